package services

import (
	"context"
	"encoding/json"
	"time"

	aws_pkg "checkout-service/pkg/aws"

	"go.uber.org/zap"
)

// MetricsRecorder is the subset of the CloudWatch metrics client used here.
type MetricsRecorder interface {
	RecordCount(ctx context.Context, metricName string, dimensions map[string]string) error
	RecordLatency(ctx context.Context, metricName string, duration time.Duration, dimensions map[string]string) error
	RecordValue(ctx context.Context, metricName string, value float64, dimensions map[string]string) error
}

// eventPublisher publishes JSON events to SNS. Failures are logged only.
type eventPublisher struct {
	snsClient   aws_pkg.SNSPublisher
	snsTopicArn string
	logger      *zap.Logger
}

func (p eventPublisher) publish(ctx context.Context, event interface{}) {
	if p.snsClient == nil || p.snsTopicArn == "" {
		p.logger.Debug("SNS not configured, skipping event publish")
		return
	}
	b, err := json.Marshal(event)
	if err != nil {
		p.logger.Error("Failed to marshal SNS event", zap.Error(err))
		return
	}
	if err := p.snsClient.Publish(ctx, p.snsTopicArn, b); err != nil {
		p.logger.Error("Failed to publish SNS event", zap.Error(err))
		return
	}
	p.logger.Info("Published SNS event", zap.String("topic", p.snsTopicArn))
}

// recordMetrics runs fn in the background so CloudWatch latency never adds to
// a request.
func recordMetrics(metrics MetricsRecorder, fn func(ctx context.Context, m MetricsRecorder)) {
	if metrics == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		fn(ctx, metrics)
	}()
}
