package bootstrap

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go/aws/session"

	"ecrwatch/internal/broker"
	"ecrwatch/internal/config"
	"ecrwatch/internal/logger"
)

type Base struct {
	Config   *config.Config
	Logger   logger.Logger
	Session  *session.Session
	Producer broker.Producer
	Consumer broker.Consumer
}

func NewBase(cfg *config.Config, log logger.Logger) *Base {
	return &Base{
		Config: cfg,
		Logger: log,
	}
}

func (b *Base) InitSession() error {
	sess, err := NewAWSSession(b.Config.AWS)
	if err != nil {
		return err
	}
	b.Session = sess
	return nil
}

// InitBroker creates the re-enqueue producer and, when withConsumer is set,
// the queue consumer.
func (b *Base) InitBroker(ctx context.Context, serviceName string, withConsumer bool) error {
	producer, err := broker.NewProducer(ctx, b.Config.Broker, b.Session, b.Logger)
	if err != nil {
		return fmt.Errorf("failed to create producer: %w", err)
	}
	b.Producer = producer

	if !withConsumer {
		return nil
	}

	consumer, err := broker.NewConsumer(ctx, b.Config.Broker, b.Session, b.Logger)
	if err != nil {
		producer.Close()
		return fmt.Errorf("failed to create consumer: %w", err)
	}

	if serviceName != "" {
		consumer.SetServiceName(serviceName)
	}

	b.Consumer = consumer
	return nil
}

func (b *Base) ShutdownBroker() []error {
	var errs []error

	if b.Producer != nil {
		if err := b.Producer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("producer close error: %w", err))
		}
	}

	if b.Consumer != nil {
		if err := b.Consumer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("consumer close error: %w", err))
		}
	}

	return errs
}

func (b *Base) Shutdown(ctx context.Context, additionalShutdown func(ctx context.Context) []error) error {
	b.Logger.Info("Shutting down application...")

	var errs []error

	errs = append(errs, b.ShutdownBroker()...)

	if additionalShutdown != nil {
		errs = append(errs, additionalShutdown(ctx)...)
	}

	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %v", errs)
	}

	b.Logger.Info("Application exited successfully")
	return nil
}
