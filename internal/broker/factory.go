package broker

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go/aws/client"
	"github.com/aws/aws-sdk-go/service/sqs"

	"ecrwatch/internal/config"
	"ecrwatch/internal/constants"
	"ecrwatch/internal/logger"
)

func NewProducer(ctx context.Context, cfg config.BrokerConfig, sess client.ConfigProvider, log logger.Logger) (Producer, error) {
	switch cfg.Type {
	case constants.BrokerSQS:
		api := sqs.New(sess)
		url, err := ResolveQueueURL(ctx, api, cfg.SQS)
		if err != nil {
			return nil, err
		}
		return NewSQSProducer(api, url, log), nil
	case constants.BrokerKafka:
		return NewKafkaProducer(cfg.Kafka, log), nil
	default:
		return nil, fmt.Errorf("unknown broker type: %s", cfg.Type)
	}
}

func NewConsumer(ctx context.Context, cfg config.BrokerConfig, sess client.ConfigProvider, log logger.Logger) (Consumer, error) {
	switch cfg.Type {
	case constants.BrokerSQS:
		api := sqs.New(sess)
		url, err := ResolveQueueURL(ctx, api, cfg.SQS)
		if err != nil {
			return nil, err
		}
		return NewSQSConsumer(api, url, cfg.SQS, log), nil
	case constants.BrokerKafka:
		return NewKafkaConsumer(cfg.Kafka, log), nil
	default:
		return nil, fmt.Errorf("unknown broker type: %s", cfg.Type)
	}
}
