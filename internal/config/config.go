package config

import (
	"time"
)

type Config struct {
	Server         ServerConfig         `mapstructure:"server"`
	Logging        LoggingConfig        `mapstructure:"logging"`
	AWS            AWSConfig            `mapstructure:"aws"`
	Matchers       MatchersConfig       `mapstructure:"matchers"`
	Watcher        WatcherConfig        `mapstructure:"watcher"`
	Broker         BrokerConfig         `mapstructure:"broker"`
	Database       DatabaseConfig       `mapstructure:"database"`
	Dedup          DedupConfig          `mapstructure:"dedup"`
	Audit          AuditConfig          `mapstructure:"audit"`
	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuit_breaker"`
	Tracing        TracingConfig        `mapstructure:"tracing"`
	API            APIConfig            `mapstructure:"api"`
}

type ServerConfig struct {
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type AWSConfig struct {
	Region string `mapstructure:"region"`
	// Endpoint overrides every AWS service endpoint, for local stacks.
	Endpoint string `mapstructure:"endpoint"`
}

// MatchersConfig locates the version matcher document. Bucket and Key select
// an S3 object; File is used when Bucket is empty.
type MatchersConfig struct {
	Bucket string `mapstructure:"bucket"`
	Key    string `mapstructure:"key"`
	File   string `mapstructure:"file"`
}

type WatcherConfig struct {
	MaxRetries    int           `mapstructure:"max_retries"`
	RetryDelay    time.Duration `mapstructure:"retry_delay"`
	Concurrency   int           `mapstructure:"concurrency"`
	LogNamespace  string        `mapstructure:"log_namespace"`
	Notifications bool          `mapstructure:"notifications"`
}

type BrokerConfig struct {
	Type  string      `mapstructure:"type"`
	SQS   SQSConfig   `mapstructure:"sqs"`
	Kafka KafkaConfig `mapstructure:"kafka"`
}

type SQSConfig struct {
	QueueName         string `mapstructure:"queue_name"`
	QueueURL          string `mapstructure:"queue_url"`
	WaitTimeSeconds   int64  `mapstructure:"wait_time_seconds"`
	MaxMessages       int64  `mapstructure:"max_messages"`
	VisibilityTimeout int64  `mapstructure:"visibility_timeout"`
}

type KafkaConfig struct {
	Brokers    []string `mapstructure:"brokers"`
	GroupID    string   `mapstructure:"group_id"`
	InputTopic string   `mapstructure:"input_topic"`
	RetryTopic string   `mapstructure:"retry_topic"`
	BatchSize  int      `mapstructure:"batch_size"`
}

type DatabaseConfig struct {
	Postgres      PostgresConfig `mapstructure:"postgres"`
	Redis         RedisConfig    `mapstructure:"redis"`
	RunMigrations bool           `mapstructure:"run_migrations"`
}

type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type DedupConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	Backend    string `mapstructure:"backend"`
	TTLSeconds int    `mapstructure:"ttl_seconds"`
	OnError    string `mapstructure:"on_error"` // "allow" or "deny" (default: "allow")
}

type AuditConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

type APIConfig struct {
	Enabled   bool            `mapstructure:"enabled"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

type RateLimitConfig struct {
	Enabled         bool    `mapstructure:"enabled"`
	RPS             float64 `mapstructure:"rps"`
	Burst           int     `mapstructure:"burst"`
	CleanupInterval int     `mapstructure:"cleanup_interval"`
	MaxAge          int     `mapstructure:"max_age"`
}

type CircuitBreakerConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	MaxRequests  uint32        `mapstructure:"max_requests"`
	Interval     time.Duration `mapstructure:"interval"`
	Timeout      time.Duration `mapstructure:"timeout"`
	FailureRatio float64       `mapstructure:"failure_ratio"`
	MinRequests  uint32        `mapstructure:"min_requests"`
}

type TracingConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	ServiceName string        `mapstructure:"service_name"`
	OTLP        OTLPConfig    `mapstructure:"otlp"`
	Sampler     SamplerConfig `mapstructure:"sampler"`
}

type OTLPConfig struct {
	Endpoint string `mapstructure:"endpoint"`
	Insecure bool   `mapstructure:"insecure"`
}

type SamplerConfig struct {
	Type  string  `mapstructure:"type"`
	Param float64 `mapstructure:"param"`
}

func Load(configFile string) (*Config, error) {
	return LoadConfig(configFile)
}
