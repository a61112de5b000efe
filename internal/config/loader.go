package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"ecrwatch/internal/constants"
)

func LoadConfig(configFile string) (*Config, error) {
	viper.Reset()

	viper.SetConfigType("yaml")
	viper.SetConfigFile(configFile)

	setDefaults()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	bindEnvVariables()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
	}

	return unmarshal()
}

// LoadFromEnv builds the configuration from defaults and environment
// variables only. Used by the Lambda entrypoint, which has no config file.
func LoadFromEnv() (*Config, error) {
	viper.Reset()

	setDefaults()
	viper.Set("api.enabled", false)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	bindEnvVariables()

	return unmarshal()
}

func unmarshal() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	if err := ValidateStatic(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

func setDefaults() {
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", "10s")
	viper.SetDefault("server.write_timeout", "10s")

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")

	viper.SetDefault("aws.region", "")
	viper.SetDefault("aws.endpoint", "")

	viper.SetDefault("matchers.bucket", "")
	viper.SetDefault("matchers.key", "")
	viper.SetDefault("matchers.file", "")

	viper.SetDefault("watcher.max_retries", constants.DefaultMaxRetries)
	viper.SetDefault("watcher.retry_delay", constants.DefaultRetryDelay.String())
	viper.SetDefault("watcher.concurrency", 1)
	viper.SetDefault("watcher.log_namespace", constants.DefaultLogNamespace)
	viper.SetDefault("watcher.notifications", true)

	viper.SetDefault("broker.type", constants.BrokerSQS)
	viper.SetDefault("broker.sqs.queue_name", "")
	viper.SetDefault("broker.sqs.queue_url", "")
	viper.SetDefault("broker.sqs.wait_time_seconds", constants.SQSMaxWaitTimeSeconds)
	viper.SetDefault("broker.sqs.max_messages", constants.SQSMaxBatchSize)
	viper.SetDefault("broker.sqs.visibility_timeout", 120)
	viper.SetDefault("broker.kafka.group_id", "ecrwatch")
	viper.SetDefault("broker.kafka.input_topic", "ecr-push-events")
	viper.SetDefault("broker.kafka.retry_topic", "ecr-push-events-retry")
	viper.SetDefault("broker.kafka.batch_size", constants.SQSMaxBatchSize)

	viper.SetDefault("database.postgres.host", "")
	viper.SetDefault("database.postgres.port", 0)
	viper.SetDefault("database.postgres.user", "")
	viper.SetDefault("database.postgres.password", "")
	viper.SetDefault("database.postgres.dbname", "")
	viper.SetDefault("database.postgres.sslmode", "disable")
	viper.SetDefault("database.redis.host", "")
	viper.SetDefault("database.redis.port", 0)
	viper.SetDefault("database.redis.password", "")
	viper.SetDefault("database.redis.db", 0)
	viper.SetDefault("database.run_migrations", false)

	viper.SetDefault("dedup.enabled", false)
	viper.SetDefault("dedup.backend", constants.DedupBackendMemory)
	viper.SetDefault("dedup.ttl_seconds", constants.DefaultDedupTTL)
	viper.SetDefault("dedup.on_error", constants.FallbackAllow)

	viper.SetDefault("audit.enabled", false)

	viper.SetDefault("circuit_breaker.enabled", false)
	viper.SetDefault("circuit_breaker.max_requests", 3)
	viper.SetDefault("circuit_breaker.interval", "60s")
	viper.SetDefault("circuit_breaker.timeout", "60s")
	viper.SetDefault("circuit_breaker.failure_ratio", 0.5)
	viper.SetDefault("circuit_breaker.min_requests", 3)

	viper.SetDefault("tracing.enabled", false)
	viper.SetDefault("tracing.service_name", "ecrwatch")
	viper.SetDefault("tracing.otlp.endpoint", "localhost:4317")
	viper.SetDefault("tracing.otlp.insecure", true)
	viper.SetDefault("tracing.sampler.type", "always_on")
	viper.SetDefault("tracing.sampler.param", 1.0)

	viper.SetDefault("api.enabled", true)
	viper.SetDefault("api.rate_limit.enabled", false)
	viper.SetDefault("api.rate_limit.rps", 10.0)
	viper.SetDefault("api.rate_limit.burst", 20)
	viper.SetDefault("api.rate_limit.cleanup_interval", 60)
	viper.SetDefault("api.rate_limit.max_age", 300)
}

func bindEnvVariables() {
	// Environment names used by the Lambda deployment.
	viper.BindEnv("matchers.bucket", "CONFIG_BUCKET")
	viper.BindEnv("matchers.key", "CONFIG_FILE")
	viper.BindEnv("broker.sqs.queue_name", "QUEUE_NAME")
	viper.BindEnv("broker.sqs.queue_url", "QUEUE_URL")
	viper.BindEnv("aws.region", "AWS_REGION", "AWS_DEFAULT_REGION")
	viper.BindEnv("aws.endpoint", "AWS_ENDPOINT_URL")

	viper.BindEnv("matchers.file", "MATCHERS_FILE")

	viper.BindEnv("watcher.max_retries", "WATCHER_MAX_RETRIES")
	viper.BindEnv("watcher.retry_delay", "WATCHER_RETRY_DELAY")
	viper.BindEnv("watcher.concurrency", "WATCHER_CONCURRENCY")
	viper.BindEnv("watcher.notifications", "WATCHER_NOTIFICATIONS")

	viper.BindEnv("broker.type", "BROKER_TYPE")
	viper.BindEnv("broker.kafka.brokers", "BROKER_KAFKA_BROKERS")
	viper.BindEnv("broker.kafka.group_id", "BROKER_KAFKA_GROUP_ID")
	viper.BindEnv("broker.kafka.input_topic", "BROKER_KAFKA_INPUT_TOPIC")
	viper.BindEnv("broker.kafka.retry_topic", "BROKER_KAFKA_RETRY_TOPIC")

	viper.BindEnv("database.postgres.host", "DATABASE_POSTGRES_HOST")
	viper.BindEnv("database.postgres.port", "DATABASE_POSTGRES_PORT")
	viper.BindEnv("database.postgres.user", "DATABASE_POSTGRES_USER")
	viper.BindEnv("database.postgres.password", "DATABASE_POSTGRES_PASSWORD")
	viper.BindEnv("database.postgres.dbname", "DATABASE_POSTGRES_DBNAME")
	viper.BindEnv("database.postgres.sslmode", "DATABASE_POSTGRES_SSLMODE")

	viper.BindEnv("database.redis.host", "DATABASE_REDIS_HOST")
	viper.BindEnv("database.redis.port", "DATABASE_REDIS_PORT")
	viper.BindEnv("database.redis.password", "DATABASE_REDIS_PASSWORD")
	viper.BindEnv("database.redis.db", "DATABASE_REDIS_DB")

	viper.BindEnv("dedup.enabled", "DEDUP_ENABLED")
	viper.BindEnv("dedup.backend", "DEDUP_BACKEND")
	viper.BindEnv("audit.enabled", "AUDIT_ENABLED")

	viper.BindEnv("server.port", "SERVER_PORT")

	viper.BindEnv("logging.level", "LOGGING_LEVEL")
	viper.BindEnv("logging.format", "LOGGING_FORMAT")

	viper.BindEnv("tracing.otlp.endpoint", "TRACING_OTLP_ENDPOINT")
	viper.BindEnv("tracing.otlp.insecure", "TRACING_OTLP_INSECURE")
	viper.BindEnv("tracing.enabled", "TRACING_ENABLED")
	viper.BindEnv("tracing.service_name", "TRACING_SERVICE_NAME")
}

func applyEnvOverrides(cfg *Config) error {
	if brokersEnv := viper.GetString("BROKER_KAFKA_BROKERS"); brokersEnv != "" {
		brokers := strings.Split(brokersEnv, ",")
		for i := range brokers {
			brokers[i] = strings.TrimSpace(brokers[i])
		}
		if len(brokers) > 0 && brokers[0] != "" {
			cfg.Broker.Kafka.Brokers = brokers
		}
	}

	cfg.Broker.Type = strings.ToLower(cfg.Broker.Type)
	cfg.Dedup.Backend = strings.ToLower(cfg.Dedup.Backend)
	cfg.Dedup.OnError = strings.ToLower(cfg.Dedup.OnError)

	return nil
}
