package tracing

import (
	"context"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/sqs"
	"go.opentelemetry.io/otel"
)

// SQS allows at most ten message attributes; trace context uses two.
func InjectSQSTraceContext(ctx context.Context, attrs map[string]*sqs.MessageAttributeValue) map[string]*sqs.MessageAttributeValue {
	if attrs == nil {
		attrs = make(map[string]*sqs.MessageAttributeValue)
	}
	otel.GetTextMapPropagator().Inject(ctx, sqsAttributeCarrier(attrs))
	return attrs
}

type sqsAttributeCarrier map[string]*sqs.MessageAttributeValue

func (c sqsAttributeCarrier) Get(key string) string {
	v, ok := c[key]
	if !ok || v == nil || v.StringValue == nil {
		return ""
	}
	return *v.StringValue
}

func (c sqsAttributeCarrier) Set(key, value string) {
	c[key] = &sqs.MessageAttributeValue{
		DataType:    aws.String("String"),
		StringValue: aws.String(value),
	}
}

func (c sqsAttributeCarrier) Keys() []string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	return keys
}
