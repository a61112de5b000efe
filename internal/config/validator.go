package config

import (
	"fmt"
	"strings"

	"ecrwatch/internal/constants"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

func ValidateStatic(cfg *Config) error {
	var errors []error

	if cfg.API.Enabled {
		if err := validateServer(cfg.Server); err != nil {
			errors = append(errors, err)
		}
	}

	if err := validateMatchers(cfg.Matchers); err != nil {
		errors = append(errors, err)
	}

	if err := validateWatcher(cfg.Watcher); err != nil {
		errors = append(errors, err)
	}

	if err := validateBroker(cfg.Broker, cfg.Watcher); err != nil {
		errors = append(errors, err)
	}

	if err := validateDatabase(cfg.Database); err != nil {
		errors = append(errors, err)
	}

	if err := validateDedup(cfg.Dedup, cfg.Database); err != nil {
		errors = append(errors, err)
	}

	if cfg.Audit.Enabled && cfg.Database.Postgres.Host == "" {
		errors = append(errors, &ValidationError{
			Field:   "audit.enabled",
			Message: "audit trail requires database.postgres",
		})
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed: %v", errors)
	}

	return nil
}

func validateServer(cfg ServerConfig) error {
	if cfg.Port < 1 || cfg.Port > 65535 {
		return &ValidationError{
			Field:   "server.port",
			Message: fmt.Sprintf("port must be between 1 and 65535, got %d", cfg.Port),
		}
	}

	if cfg.ReadTimeout <= 0 {
		return &ValidationError{
			Field:   "server.read_timeout",
			Message: "read timeout must be positive",
		}
	}

	if cfg.WriteTimeout <= 0 {
		return &ValidationError{
			Field:   "server.write_timeout",
			Message: "write timeout must be positive",
		}
	}

	return nil
}

func validateMatchers(cfg MatchersConfig) error {
	if cfg.Bucket != "" && cfg.Key == "" {
		return &ValidationError{
			Field:   "matchers.key",
			Message: "object key is required when a bucket is set",
		}
	}
	return nil
}

func validateWatcher(cfg WatcherConfig) error {
	if cfg.MaxRetries < 0 {
		return &ValidationError{
			Field:   "watcher.max_retries",
			Message: "max_retries must be non-negative",
		}
	}

	if cfg.RetryDelay < 0 {
		return &ValidationError{
			Field:   "watcher.retry_delay",
			Message: "retry_delay must be non-negative",
		}
	}

	if cfg.Concurrency < 1 {
		return &ValidationError{
			Field:   "watcher.concurrency",
			Message: fmt.Sprintf("concurrency must be at least 1, got %d", cfg.Concurrency),
		}
	}

	return nil
}

func validateBroker(cfg BrokerConfig, watcher WatcherConfig) error {
	switch cfg.Type {
	case constants.BrokerSQS:
		return validateSQS(cfg.SQS, watcher)
	case constants.BrokerKafka:
		return validateKafka(cfg.Kafka)
	case "":
		return &ValidationError{
			Field:   "broker.type",
			Message: "broker type is required",
		}
	default:
		return &ValidationError{
			Field:   "broker.type",
			Message: fmt.Sprintf("unknown broker type: %s (supported: sqs, kafka)", cfg.Type),
		}
	}
}

func validateSQS(cfg SQSConfig, watcher WatcherConfig) error {
	if cfg.QueueName == "" && cfg.QueueURL == "" {
		return &ValidationError{
			Field:   "broker.sqs.queue_name",
			Message: "queue_name or queue_url is required",
		}
	}

	if cfg.MaxMessages < 1 || cfg.MaxMessages > constants.SQSMaxBatchSize {
		return &ValidationError{
			Field:   "broker.sqs.max_messages",
			Message: fmt.Sprintf("max_messages must be between 1 and %d, got %d", constants.SQSMaxBatchSize, cfg.MaxMessages),
		}
	}

	if cfg.WaitTimeSeconds < 0 || cfg.WaitTimeSeconds > constants.SQSMaxWaitTimeSeconds {
		return &ValidationError{
			Field:   "broker.sqs.wait_time_seconds",
			Message: fmt.Sprintf("wait_time_seconds must be between 0 and %d", constants.SQSMaxWaitTimeSeconds),
		}
	}

	if watcher.RetryDelay > constants.SQSMaxDelay {
		return &ValidationError{
			Field:   "watcher.retry_delay",
			Message: fmt.Sprintf("SQS cannot delay delivery longer than %s", constants.SQSMaxDelay),
		}
	}

	return nil
}

func validateKafka(cfg KafkaConfig) error {
	if len(cfg.Brokers) == 0 {
		return &ValidationError{
			Field:   "broker.kafka.brokers",
			Message: "at least one Kafka broker is required",
		}
	}

	for i, broker := range cfg.Brokers {
		if broker == "" {
			return &ValidationError{
				Field:   fmt.Sprintf("broker.kafka.brokers[%d]", i),
				Message: "broker address cannot be empty",
			}
		}
	}

	if cfg.GroupID == "" {
		return &ValidationError{
			Field:   "broker.kafka.group_id",
			Message: "Kafka consumer group ID is required",
		}
	}

	if cfg.InputTopic == "" {
		return &ValidationError{
			Field:   "broker.kafka.input_topic",
			Message: "Kafka input topic is required",
		}
	}

	if cfg.RetryTopic == "" {
		return &ValidationError{
			Field:   "broker.kafka.retry_topic",
			Message: "Kafka retry topic is required",
		}
	}

	if cfg.RetryTopic == cfg.InputTopic {
		return &ValidationError{
			Field:   "broker.kafka.retry_topic",
			Message: "Kafka retry topic must differ from the input topic",
		}
	}

	return nil
}

func validateDatabase(cfg DatabaseConfig) error {
	if cfg.Postgres.Host != "" || cfg.Postgres.Port > 0 {
		if err := validatePostgres(cfg.Postgres); err != nil {
			return err
		}
	}

	if cfg.Redis.Host != "" || cfg.Redis.Port > 0 {
		if err := validateRedis(cfg.Redis); err != nil {
			return err
		}
	}

	return nil
}

func validatePostgres(cfg PostgresConfig) error {
	if cfg.Host == "" {
		return &ValidationError{
			Field:   "database.postgres.host",
			Message: "PostgreSQL host is required",
		}
	}

	if cfg.Port < 1 || cfg.Port > 65535 {
		return &ValidationError{
			Field:   "database.postgres.port",
			Message: fmt.Sprintf("port must be between 1 and 65535, got %d", cfg.Port),
		}
	}

	if cfg.User == "" {
		return &ValidationError{
			Field:   "database.postgres.user",
			Message: "PostgreSQL user is required",
		}
	}

	if cfg.DBName == "" {
		return &ValidationError{
			Field:   "database.postgres.dbname",
			Message: "PostgreSQL database name is required",
		}
	}

	validSSLModes := map[string]bool{
		"disable": true, "allow": true, "prefer": true,
		"require": true, "verify-ca": true, "verify-full": true,
	}
	if cfg.SSLMode != "" && !validSSLModes[strings.ToLower(cfg.SSLMode)] {
		return &ValidationError{
			Field:   "database.postgres.sslmode",
			Message: fmt.Sprintf("invalid SSL mode: %s (valid: disable, allow, prefer, require, verify-ca, verify-full)", cfg.SSLMode),
		}
	}

	return nil
}

func validateRedis(cfg RedisConfig) error {
	if cfg.Host == "" {
		return &ValidationError{
			Field:   "database.redis.host",
			Message: "Redis host is required",
		}
	}

	if cfg.Port < 1 || cfg.Port > 65535 {
		return &ValidationError{
			Field:   "database.redis.port",
			Message: fmt.Sprintf("port must be between 1 and 65535, got %d", cfg.Port),
		}
	}

	return nil
}

func validateDedup(cfg DedupConfig, db DatabaseConfig) error {
	if !cfg.Enabled {
		return nil
	}

	switch cfg.Backend {
	case constants.DedupBackendMemory:
	case constants.DedupBackendRedis:
		if db.Redis.Host == "" {
			return &ValidationError{
				Field:   "dedup.backend",
				Message: "redis backend requires database.redis",
			}
		}
	default:
		return &ValidationError{
			Field:   "dedup.backend",
			Message: fmt.Sprintf("invalid backend: %s (valid: redis, memory)", cfg.Backend),
		}
	}

	if cfg.TTLSeconds <= 0 {
		return &ValidationError{
			Field:   "dedup.ttl_seconds",
			Message: "TTL must be positive",
		}
	}

	if cfg.OnError != "" && cfg.OnError != constants.FallbackAllow && cfg.OnError != constants.FallbackDeny {
		return &ValidationError{
			Field:   "dedup.on_error",
			Message: fmt.Sprintf("invalid on_error value: %s (valid: allow, deny)", cfg.OnError),
		}
	}

	return nil
}
