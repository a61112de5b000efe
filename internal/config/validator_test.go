package config

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Server:  ServerConfig{Port: 8080, ReadTimeout: time.Second, WriteTimeout: time.Second},
		Watcher: WatcherConfig{MaxRetries: 3, RetryDelay: 10 * time.Minute, Concurrency: 1},
		Broker: BrokerConfig{
			Type: "sqs",
			SQS:  SQSConfig{QueueName: "events", MaxMessages: 10, WaitTimeSeconds: 20},
		},
		API: APIConfig{Enabled: true},
	}
}

func TestValidateStatic(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "bad port", mutate: func(c *Config) { c.Server.Port = 0 }, wantErr: true},
		{name: "bad port ignored without api", mutate: func(c *Config) { c.Server.Port = 0; c.API.Enabled = false }},
		{name: "bucket without key", mutate: func(c *Config) { c.Matchers.Bucket = "b" }, wantErr: true},
		{name: "negative retries", mutate: func(c *Config) { c.Watcher.MaxRetries = -1 }, wantErr: true},
		{name: "zero concurrency", mutate: func(c *Config) { c.Watcher.Concurrency = 0 }, wantErr: true},
		{name: "sqs delay too long", mutate: func(c *Config) { c.Watcher.RetryDelay = 20 * time.Minute }, wantErr: true},
		{name: "missing queue", mutate: func(c *Config) { c.Broker.SQS.QueueName = "" }, wantErr: true},
		{name: "queue url only", mutate: func(c *Config) {
			c.Broker.SQS.QueueName = ""
			c.Broker.SQS.QueueURL = "https://sqs.us-east-1.amazonaws.com/123/events"
		}},
		{name: "unknown broker", mutate: func(c *Config) { c.Broker.Type = "rabbitmq" }, wantErr: true},
		{name: "kafka without brokers", mutate: func(c *Config) { c.Broker.Type = "kafka" }, wantErr: true},
		{name: "kafka long delay allowed", mutate: func(c *Config) {
			c.Broker.Type = "kafka"
			c.Broker.Kafka = KafkaConfig{Brokers: []string{"localhost:9092"}, GroupID: "g", InputTopic: "t", RetryTopic: "t-retry"}
			c.Watcher.RetryDelay = time.Hour
		}},
		{name: "kafka without retry topic", mutate: func(c *Config) {
			c.Broker.Type = "kafka"
			c.Broker.Kafka = KafkaConfig{Brokers: []string{"localhost:9092"}, GroupID: "g", InputTopic: "t"}
		}, wantErr: true},
		{name: "kafka retry topic equals input", mutate: func(c *Config) {
			c.Broker.Type = "kafka"
			c.Broker.Kafka = KafkaConfig{Brokers: []string{"localhost:9092"}, GroupID: "g", InputTopic: "t", RetryTopic: "t"}
		}, wantErr: true},
		{name: "redis dedup without redis", mutate: func(c *Config) {
			c.Dedup = DedupConfig{Enabled: true, Backend: "redis", TTLSeconds: 60}
		}, wantErr: true},
		{name: "memory dedup", mutate: func(c *Config) {
			c.Dedup = DedupConfig{Enabled: true, Backend: "memory", TTLSeconds: 60, OnError: "deny"}
		}},
		{name: "bad dedup on_error", mutate: func(c *Config) {
			c.Dedup = DedupConfig{Enabled: true, Backend: "memory", TTLSeconds: 60, OnError: "fail"}
		}, wantErr: true},
		{name: "audit without postgres", mutate: func(c *Config) { c.Audit.Enabled = true }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := ValidateStatic(cfg)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateStatic_ReturnsValidationError(t *testing.T) {
	err := validateWatcher(WatcherConfig{Concurrency: 0})
	require.Error(t, err)

	var vErr *ValidationError
	require.True(t, errors.As(err, &vErr))
	assert.Equal(t, "watcher.concurrency", vErr.Field)
}
