package aws

import (
	"context"
	"encoding/json"
	"fmt"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
)

// SNSPublisher is a minimal interface for publishing messages to SNS.
type SNSPublisher interface {
	Publish(ctx context.Context, topicArn string, message []byte) error
}

// SNSClient publishes JSON events. Every message carries a "source"
// attribute and, when the body has one, an "event_type" attribute so
// subscriptions can filter without parsing the body.
type SNSClient struct {
	client *sns.Client
	source string
}

func NewSNSClient(cfg sdkaws.Config, source string) *SNSClient {
	return &SNSClient{client: sns.NewFromConfig(cfg), source: source}
}

func (s *SNSClient) Publish(ctx context.Context, topicArn string, message []byte) error {
	if topicArn == "" {
		return fmt.Errorf("empty topicArn")
	}
	_, err := s.client.Publish(ctx, &sns.PublishInput{
		TopicArn:          sdkaws.String(topicArn),
		Message:           sdkaws.String(string(message)),
		MessageAttributes: messageAttributes(s.source, message),
	})
	if err != nil {
		return fmt.Errorf("sns publish failed for topic %s: %w", topicArn, err)
	}
	return nil
}

func messageAttributes(source string, message []byte) map[string]types.MessageAttributeValue {
	attrs := make(map[string]types.MessageAttributeValue, 2)
	if source != "" {
		attrs["source"] = stringAttribute(source)
	}
	// Only the event type is read; the rest of the body is opaque here
	var envelope struct {
		EventType string `json:"event_type"`
	}
	if err := json.Unmarshal(message, &envelope); err == nil && envelope.EventType != "" {
		attrs["event_type"] = stringAttribute(envelope.EventType)
	}
	return attrs
}

func stringAttribute(v string) types.MessageAttributeValue {
	return types.MessageAttributeValue{DataType: sdkaws.String("String"), StringValue: sdkaws.String(v)}
}
