package aws

import (
	"context"
	"fmt"
	"strings"
	"time"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
)

// maxSQSDelay is the largest DelaySeconds SQS accepts.
const maxSQSDelay = 15 * time.Minute

// QueueSender enqueues a single message body.
type QueueSender interface {
	SendMessage(ctx context.Context, body string) error
}

// SQSProducer sends messages to one queue. Each message is held back by
// delay before it becomes visible to consumers.
type SQSProducer struct {
	client   *sqs.Client
	queueURL string
	source   string
	delay    int32
}

func NewSQSProducer(cfg sdkaws.Config, queueURL, source string, delay time.Duration) *SQSProducer {
	return &SQSProducer{
		client:   sqs.NewFromConfig(cfg),
		queueURL: queueURL,
		source:   source,
		delay:    delaySeconds(delay),
	}
}

// ResolveQueueURL accepts either a queue URL or a queue name.
func ResolveQueueURL(ctx context.Context, cfg sdkaws.Config, nameOrURL string) (string, error) {
	if strings.HasPrefix(nameOrURL, "https://") || strings.HasPrefix(nameOrURL, "http://") {
		return nameOrURL, nil
	}
	result, err := sqs.NewFromConfig(cfg).GetQueueUrl(ctx, &sqs.GetQueueUrlInput{
		QueueName: sdkaws.String(nameOrURL),
	})
	if err != nil {
		return "", fmt.Errorf("failed to get queue URL for %s: %w", nameOrURL, err)
	}
	return sdkaws.ToString(result.QueueUrl), nil
}

func (p *SQSProducer) SendMessage(ctx context.Context, body string) error {
	input := &sqs.SendMessageInput{
		QueueUrl:     sdkaws.String(p.queueURL),
		MessageBody:  sdkaws.String(body),
		DelaySeconds: p.delay,
	}
	if p.source != "" {
		// Consumers route recovery jobs on this attribute
		input.MessageAttributes = map[string]types.MessageAttributeValue{
			"source": {DataType: sdkaws.String("String"), StringValue: sdkaws.String(p.source)},
		}
	}
	if _, err := p.client.SendMessage(ctx, input); err != nil {
		return fmt.Errorf("failed to send message to %s: %w", p.queueURL, err)
	}
	return nil
}

func delaySeconds(d time.Duration) int32 {
	switch {
	case d <= 0:
		return 0
	case d > maxSQSDelay:
		return int32(maxSQSDelay / time.Second)
	default:
		return int32(d / time.Second)
	}
}
