package repository

import (
	"context"
	"encoding/json"
	"time"

	"checkout-service/models"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const locationCacheKey = "checkout:delivery-locations"

// LocationCache keeps the delivery location list in Redis for a short TTL.
type LocationCache struct {
	client redis.Cmdable
	ttl    time.Duration
	logger *zap.Logger
}

func NewLocationCache(client redis.Cmdable, ttl time.Duration, logger *zap.Logger) *LocationCache {
	return &LocationCache{client: client, ttl: ttl, logger: logger}
}

// Get reports a miss on any Redis or decode error.
func (c *LocationCache) Get(ctx context.Context) ([]models.DeliveryLocation, bool) {
	data, err := c.client.Get(ctx, locationCacheKey).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("Location cache read failed", zap.Error(err))
		}
		return nil, false
	}

	var locations []models.DeliveryLocation
	if err := json.Unmarshal(data, &locations); err != nil {
		c.logger.Warn("Location cache entry is corrupt", zap.Error(err))
		return nil, false
	}
	return locations, true
}

func (c *LocationCache) Set(ctx context.Context, locations []models.DeliveryLocation) error {
	data, err := json.Marshal(locations)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, locationCacheKey, data, c.ttl).Err()
}

func (c *LocationCache) Invalidate(ctx context.Context) error {
	return c.client.Del(ctx, locationCacheKey).Err()
}
