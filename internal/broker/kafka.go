package broker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"ecrwatch/internal/config"
	"ecrwatch/internal/constants"
	"ecrwatch/internal/logger"
	"ecrwatch/pkg/logging"
	"ecrwatch/pkg/metrics"
	"ecrwatch/pkg/tracing"
)

// kafkaBatchWindow bounds how long a partial batch waits for more messages.
const kafkaBatchWindow = 500 * time.Millisecond

type KafkaProducer struct {
	writer     *kafka.Writer
	inputTopic string
	retryTopic string
	logger     logger.Logger
	now        func() time.Time
}

func NewKafkaProducer(cfg config.KafkaConfig, log logger.Logger) *KafkaProducer {
	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: constants.KafkaBatchTimeout,
		WriteTimeout: constants.KafkaWriteTimeout,
		Async:        false,
	}
	return &KafkaProducer{
		writer:     w,
		inputTopic: cfg.InputTopic,
		retryTopic: cfg.RetryTopic,
		logger:     log,
		now:        time.Now,
	}
}

// topicFor routes delayed messages to the retry topic so they never sit in
// front of fresh events on the input topic.
func (p *KafkaProducer) topicFor(delay time.Duration) string {
	if delay > 0 && p.retryTopic != "" {
		return p.retryTopic
	}
	return p.inputTopic
}

// Publish writes body to the input topic, or to the retry topic with the due
// time in a header when delay is set. Kafka has no delivery delay of its own.
func (p *KafkaProducer) Publish(ctx context.Context, body []byte, delay time.Duration) error {
	headers := tracing.InjectTraceContext(ctx, nil)
	if delay > 0 {
		headers = append(headers, kafka.Header{
			Key:   constants.HeaderDeliverAfter,
			Value: []byte(p.now().Add(delay).UTC().Format(time.RFC3339Nano)),
		})
	}

	topic := p.topicFor(delay)
	err := p.writer.WriteMessages(ctx,
		kafka.Message{
			Topic:   topic,
			Value:   body,
			Headers: headers,
			Time:    p.now(),
		},
	)
	if err != nil {
		return fmt.Errorf("failed to write kafka message: %w", err)
	}

	metrics.IncBrokerMessagesWritten(constants.BrokerKafka, topic)
	return nil
}

func (p *KafkaProducer) Close() error {
	return p.writer.Close()
}

type kafkaReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// kafkaStream is one topic read by the consumer. A holding stream keeps
// messages until their due time; pending is a fetched message that was not
// due yet when the previous batch closed.
type kafkaStream struct {
	topic   string
	reader  kafkaReader
	hold    bool
	pending *kafka.Message
}

// KafkaConsumer reads the input topic and the retry topic on separate
// readers. Only the retry reader waits for due times, so a held retry never
// delays events on the input topic.
type KafkaConsumer struct {
	cfg         config.KafkaConfig
	wg          sync.WaitGroup
	mu          sync.Mutex
	streams     []*kafkaStream
	newReader   func(topic string) kafkaReader
	logger      logger.Logger
	serviceName string
	now         func() time.Time
	errorDelay  time.Duration
}

func NewKafkaConsumer(cfg config.KafkaConfig, log logger.Logger) *KafkaConsumer {
	c := &KafkaConsumer{
		cfg:         cfg,
		logger:      log,
		serviceName: "unknown",
		now:         time.Now,
		errorDelay:  time.Second,
	}
	c.newReader = func(topic string) kafkaReader {
		return kafka.NewReader(kafka.ReaderConfig{
			Brokers:  cfg.Brokers,
			GroupID:  cfg.GroupID,
			Topic:    topic,
			MinBytes: 10e3,
			MaxBytes: 10e6,
			MaxWait:  time.Second,
		})
	}
	return c
}

func (c *KafkaConsumer) SetServiceName(name string) {
	c.serviceName = name
}

func (c *KafkaConsumer) Consume(ctx context.Context, handler BatchHandlerFunc) error {
	c.logger.Infow("Creating Kafka readers",
		"input_topic", c.cfg.InputTopic,
		"retry_topic", c.cfg.RetryTopic,
		"brokers", c.cfg.Brokers,
		"group_id", c.cfg.GroupID,
		"service_name", c.serviceName,
	)

	c.mu.Lock()
	c.streams = append(c.streams, &kafkaStream{topic: c.cfg.InputTopic, reader: c.newReader(c.cfg.InputTopic)})
	if c.cfg.RetryTopic != "" {
		c.streams = append(c.streams, &kafkaStream{topic: c.cfg.RetryTopic, reader: c.newReader(c.cfg.RetryTopic), hold: true})
	}
	streams := append([]*kafkaStream(nil), c.streams...)
	c.mu.Unlock()

	for _, s := range streams {
		c.wg.Add(1)
		go func(s *kafkaStream) {
			defer c.wg.Done()
			c.run(ctx, s, handler)
		}(s)
	}

	<-ctx.Done()
	return ctx.Err()
}

func (c *KafkaConsumer) run(ctx context.Context, s *kafkaStream, handler BatchHandlerFunc) {
	consumeCtx := logging.WithServiceName(ctx, c.serviceName)
	c.logger.InfowCtx(consumeCtx, "Started consuming", "topic", s.topic, "hold_until_due", s.hold)

	for {
		start := time.Now()
		batch, err := c.fetchBatch(ctx, s)
		if err != nil {
			if ctx.Err() != nil {
				c.logger.InfowCtx(consumeCtx, "Stopped consuming",
					"topic", s.topic,
					"reason", "context canceled",
				)
				return
			}
			c.logger.ErrorwCtx(consumeCtx, "Error fetching kafka message",
				"error", err,
				"topic", s.topic,
			)
			select {
			case <-ctx.Done():
			case <-time.After(c.errorDelay):
			}
			continue
		}
		metrics.ObserveBrokerReadDuration(constants.BrokerKafka, s.topic, time.Since(start))
		metrics.IncBrokerMessagesRead(constants.BrokerKafka, s.topic, len(batch))

		msgs := make([]Message, 0, len(batch))
		for _, m := range batch {
			msgs = append(msgs, fromKafka(m))
		}

		if err := handler(consumeCtx, msgs); err != nil {
			c.logger.WarnwCtx(consumeCtx, "Batch handler failed, committing to avoid blocking",
				"error", err,
				"topic", s.topic,
			)
		}
		if err := s.reader.CommitMessages(ctx, batch...); err != nil {
			c.logger.ErrorwCtx(consumeCtx, "Failed to commit messages",
				"error", err,
				"topic", s.topic,
			)
		}
	}
}

// fetchBatch blocks for the first message, then gathers more for at most
// kafkaBatchWindow. On a holding stream the first message is held until due,
// and a later message that is not yet due closes the batch and waits as
// pending for the next call.
func (c *KafkaConsumer) fetchBatch(ctx context.Context, s *kafkaStream) ([]kafka.Message, error) {
	var first kafka.Message
	if s.pending != nil {
		first = *s.pending
		s.pending = nil
	} else {
		m, err := s.reader.FetchMessage(ctx)
		if err != nil {
			return nil, err
		}
		first = m
	}
	if s.hold {
		if err := c.waitUntilDue(ctx, first); err != nil {
			s.pending = &first
			return nil, err
		}
	}

	batch := []kafka.Message{first}
	size := c.cfg.BatchSize
	if size <= 0 {
		size = constants.SQSMaxBatchSize
	}

	windowCtx, cancel := context.WithTimeout(ctx, kafkaBatchWindow)
	defer cancel()
	for len(batch) < size {
		m, err := s.reader.FetchMessage(windowCtx)
		if err != nil {
			break
		}
		if s.hold && c.due(m) > 0 {
			s.pending = &m
			break
		}
		batch = append(batch, m)
	}
	return batch, nil
}

// due returns how long m must still be held.
func (c *KafkaConsumer) due(m kafka.Message) time.Duration {
	return deliverAfter(m.Headers).Sub(c.now())
}

func (c *KafkaConsumer) waitUntilDue(ctx context.Context, m kafka.Message) error {
	wait := c.due(m)
	if wait <= 0 {
		return nil
	}
	c.logger.DebugwCtx(ctx, "Holding delayed message",
		"topic", m.Topic,
		"partition", m.Partition,
		"offset", m.Offset,
		"wait", wait,
	)
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(wait):
		return nil
	}
}

func (c *KafkaConsumer) Close() error {
	c.mu.Lock()
	streams := c.streams
	c.mu.Unlock()

	var errs []error
	for _, s := range streams {
		if err := s.reader.Close(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.topic, err))
		}
	}
	c.wg.Wait()
	return errors.Join(errs...)
}

// deliverAfter returns the due time carried in headers, or the zero time.
func deliverAfter(headers []kafka.Header) time.Time {
	for _, h := range headers {
		if h.Key != constants.HeaderDeliverAfter {
			continue
		}
		t, err := time.Parse(time.RFC3339Nano, string(h.Value))
		if err != nil {
			return time.Time{}
		}
		return t
	}
	return time.Time{}
}

func fromKafka(m kafka.Message) Message {
	headers := make(map[string]string, len(m.Headers))
	for _, h := range m.Headers {
		headers[h.Key] = string(h.Value)
	}
	return Message{
		ID:      fmt.Sprintf("%s/%d/%d", m.Topic, m.Partition, m.Offset),
		Body:    m.Value,
		Headers: headers,
	}
}
