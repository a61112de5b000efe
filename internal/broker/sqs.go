package broker

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/sqs"
	"github.com/aws/aws-sdk-go/service/sqs/sqsiface"
	"github.com/cenkalti/backoff/v4"

	"ecrwatch/internal/config"
	"ecrwatch/internal/constants"
	"ecrwatch/internal/logger"
	"ecrwatch/pkg/logging"
	"ecrwatch/pkg/metrics"
	"ecrwatch/pkg/retry"
	"ecrwatch/pkg/tracing"
)

// ResolveQueueURL returns cfg.QueueURL, or looks the URL up by queue name.
func ResolveQueueURL(ctx context.Context, api sqsiface.SQSAPI, cfg config.SQSConfig) (string, error) {
	if cfg.QueueURL != "" {
		return cfg.QueueURL, nil
	}
	out, err := api.GetQueueUrlWithContext(ctx, &sqs.GetQueueUrlInput{
		QueueName: aws.String(cfg.QueueName),
	})
	if err != nil {
		return "", fmt.Errorf("failed to resolve queue url for %s: %w", cfg.QueueName, err)
	}
	return aws.StringValue(out.QueueUrl), nil
}

type SQSProducer struct {
	api      sqsiface.SQSAPI
	queueURL string
	logger   logger.Logger
}

func NewSQSProducer(api sqsiface.SQSAPI, queueURL string, log logger.Logger) *SQSProducer {
	return &SQSProducer{api: api, queueURL: queueURL, logger: log}
}

// Publish sends body with a per-message delay. SQS caps the delay at 15 minutes.
func (p *SQSProducer) Publish(ctx context.Context, body []byte, delay time.Duration) error {
	if delay > constants.SQSMaxDelay {
		delay = constants.SQSMaxDelay
	}
	if delay < 0 {
		delay = 0
	}

	input := &sqs.SendMessageInput{
		QueueUrl:     aws.String(p.queueURL),
		MessageBody:  aws.String(string(body)),
		DelaySeconds: aws.Int64(int64(delay / time.Second)),
	}
	if attrs := tracing.InjectSQSTraceContext(ctx, nil); len(attrs) > 0 {
		input.MessageAttributes = attrs
	}

	out, err := p.api.SendMessageWithContext(ctx, input)
	if err != nil {
		return fmt.Errorf("failed to send sqs message: %w", err)
	}

	metrics.IncBrokerMessagesWritten(constants.BrokerSQS, p.queueURL)
	p.logger.DebugwCtx(ctx, "Message sent",
		"message_id", aws.StringValue(out.MessageId),
		"delay_seconds", aws.Int64Value(input.DelaySeconds),
	)
	return nil
}

func (p *SQSProducer) Close() error {
	return nil
}

type SQSConsumer struct {
	api         sqsiface.SQSAPI
	queueURL    string
	cfg         config.SQSConfig
	wg          sync.WaitGroup
	logger      logger.Logger
	serviceName string
	errorDelay  backoff.BackOff
}

func NewSQSConsumer(api sqsiface.SQSAPI, queueURL string, cfg config.SQSConfig, log logger.Logger) *SQSConsumer {
	return &SQSConsumer{
		api:         api,
		queueURL:    queueURL,
		cfg:         cfg,
		logger:      log,
		serviceName: "unknown",
		errorDelay:  retry.ExponentialBackoff(time.Second, 30*time.Second, 2.0),
	}
}

func (c *SQSConsumer) SetServiceName(name string) {
	c.serviceName = name
}

func (c *SQSConsumer) Consume(ctx context.Context, handler BatchHandlerFunc) error {
	c.logger.Infow("Creating SQS poller",
		"queue_url", c.queueURL,
		"max_messages", c.maxMessages(),
		"wait_time_seconds", c.cfg.WaitTimeSeconds,
		"service_name", c.serviceName,
	)

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		consumeCtx := logging.WithServiceName(ctx, c.serviceName)
		c.logger.InfowCtx(consumeCtx, "Started consuming", "queue_url", c.queueURL)

		for {
			if ctx.Err() != nil {
				c.logger.InfowCtx(consumeCtx, "Stopped consuming",
					"queue_url", c.queueURL,
					"reason", "context canceled",
				)
				return
			}
			err := c.poll(consumeCtx, handler)
			if err == nil {
				c.errorDelay.Reset()
				continue
			}
			if ctx.Err() != nil {
				continue
			}
			delay := c.errorDelay.NextBackOff()
			c.logger.ErrorwCtx(consumeCtx, "Error receiving sqs messages",
				"error", err,
				"queue_url", c.queueURL,
				"retry_in", delay,
			)
			select {
			case <-ctx.Done():
			case <-time.After(delay):
			}
		}
	}()

	<-ctx.Done()
	return ctx.Err()
}

// poll receives one batch, hands it to handler and deletes it on success.
// Messages of a failed batch become visible again after the visibility timeout.
func (c *SQSConsumer) poll(ctx context.Context, handler BatchHandlerFunc) error {
	input := &sqs.ReceiveMessageInput{
		QueueUrl:              aws.String(c.queueURL),
		MaxNumberOfMessages:   aws.Int64(c.maxMessages()),
		WaitTimeSeconds:       aws.Int64(c.cfg.WaitTimeSeconds),
		MessageAttributeNames: aws.StringSlice([]string{sqs.QueueAttributeNameAll}),
	}
	if c.cfg.VisibilityTimeout > 0 {
		input.VisibilityTimeout = aws.Int64(c.cfg.VisibilityTimeout)
	}

	start := time.Now()
	out, err := c.api.ReceiveMessageWithContext(ctx, input)
	metrics.ObserveBrokerReadDuration(constants.BrokerSQS, c.queueURL, time.Since(start))
	if err != nil {
		return err
	}
	if len(out.Messages) == 0 {
		return nil
	}
	metrics.IncBrokerMessagesRead(constants.BrokerSQS, c.queueURL, len(out.Messages))

	msgs := make([]Message, 0, len(out.Messages))
	for _, m := range out.Messages {
		msgs = append(msgs, fromSQS(m))
	}

	if err := handler(ctx, msgs); err != nil {
		c.logger.WarnwCtx(ctx, "Batch handler failed, leaving messages for redelivery",
			"error", err,
			"count", len(msgs),
		)
		return nil
	}

	return c.delete(ctx, out.Messages)
}

func (c *SQSConsumer) delete(ctx context.Context, messages []*sqs.Message) error {
	entries := make([]*sqs.DeleteMessageBatchRequestEntry, 0, len(messages))
	for i, m := range messages {
		entries = append(entries, &sqs.DeleteMessageBatchRequestEntry{
			Id:            aws.String(strconv.Itoa(i)),
			ReceiptHandle: m.ReceiptHandle,
		})
	}

	out, err := c.api.DeleteMessageBatchWithContext(ctx, &sqs.DeleteMessageBatchInput{
		QueueUrl: aws.String(c.queueURL),
		Entries:  entries,
	})
	if err != nil {
		return fmt.Errorf("failed to delete sqs messages: %w", err)
	}
	for _, f := range out.Failed {
		c.logger.WarnwCtx(ctx, "Failed to delete message",
			"entry", aws.StringValue(f.Id),
			"code", aws.StringValue(f.Code),
			"message", aws.StringValue(f.Message),
		)
	}
	return nil
}

func (c *SQSConsumer) maxMessages() int64 {
	if c.cfg.MaxMessages <= 0 || c.cfg.MaxMessages > constants.SQSMaxBatchSize {
		return constants.SQSMaxBatchSize
	}
	return c.cfg.MaxMessages
}

func (c *SQSConsumer) Close() error {
	c.wg.Wait()
	return nil
}

func fromSQS(m *sqs.Message) Message {
	headers := make(map[string]string, len(m.MessageAttributes))
	for k, v := range m.MessageAttributes {
		if v != nil && v.StringValue != nil {
			headers[k] = *v.StringValue
		}
	}
	return Message{
		ID:      aws.StringValue(m.MessageId),
		Body:    []byte(aws.StringValue(m.Body)),
		Headers: headers,
	}
}
