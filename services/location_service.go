package services

import (
	"context"

	"checkout-service/models"
	aws_pkg "checkout-service/pkg/aws"

	"go.uber.org/zap"
)

// LocationSource fetches delivery locations from the Order API.
type LocationSource interface {
	ListDeliveryLocations(ctx context.Context) ([]models.DeliveryLocation, error)
}

// LocationCache keeps the last fetched location list.
type LocationCache interface {
	Get(ctx context.Context) ([]models.DeliveryLocation, bool)
	Set(ctx context.Context, locations []models.DeliveryLocation) error
}

type LocationService struct {
	source  LocationSource
	cache   LocationCache
	metrics MetricsRecorder
	logger  *zap.Logger
}

// NewLocationService creates a LocationService. cache and metrics may be nil.
func NewLocationService(source LocationSource, cache LocationCache, metrics MetricsRecorder, logger *zap.Logger) *LocationService {
	return &LocationService{source: source, cache: cache, metrics: metrics, logger: logger}
}

// ActiveLocations returns the locations a shopper may select.
func (s *LocationService) ActiveLocations(ctx context.Context) ([]models.DeliveryLocation, *ServiceError) {
	all, svcErr := s.all(ctx)
	if svcErr != nil {
		return nil, svcErr
	}
	active := make([]models.DeliveryLocation, 0, len(all))
	for _, loc := range all {
		if loc.IsActive {
			active = append(active, loc)
		}
	}
	return active, nil
}

func (s *LocationService) all(ctx context.Context) ([]models.DeliveryLocation, *ServiceError) {
	if s.cache != nil {
		if cached, ok := s.cache.Get(ctx); ok {
			recordMetrics(s.metrics, func(ctx context.Context, m MetricsRecorder) {
				_ = m.RecordCount(ctx, aws_pkg.MetricCacheHits, map[string]string{"Cache": "DeliveryLocations"})
			})
			return cached, nil
		}
		recordMetrics(s.metrics, func(ctx context.Context, m MetricsRecorder) {
			_ = m.RecordCount(ctx, aws_pkg.MetricCacheMisses, map[string]string{"Cache": "DeliveryLocations"})
		})
	}

	locations, err := s.source.ListDeliveryLocations(ctx)
	if err != nil {
		s.logger.Error("Failed to fetch delivery locations", zap.Error(err))
		return nil, &ServiceError{StatusCode: 502, Message: "Failed to load delivery locations"}
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, locations); err != nil {
			s.logger.Warn("Failed to cache delivery locations", zap.Error(err))
		}
	}
	return locations, nil
}
