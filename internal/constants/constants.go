package constants

import "time"

const (
	KafkaBatchTimeout = 10 * time.Millisecond
	KafkaWriteTimeout = 10 * time.Second
)

const (
	DefaultMaxRetries = 3
	DefaultRetryDelay = 10 * time.Minute
)

const (
	// LatestTag marks a service pinned to a mutable tag; compared case-insensitively.
	LatestTag = "LATEST"

	ImageIdentifierFormat = "%s.dkr.ecr.%s.amazonaws.com/%s:%s"
)

const (
	DefaultLogNamespace = "aws/apprunner"
	NotificationStream  = "events"
)

const (
	SQSMaxBatchSize       = 10
	SQSMaxWaitTimeSeconds = 20
	SQSMaxDelay           = 15 * time.Minute
)

const (
	// HeaderDeliverAfter carries the RFC3339 time before which a Kafka
	// message must not be processed.
	HeaderDeliverAfter = "x-deliver-after"
)

const (
	CacheKeyPrefixAction = "ecrwatch:action:"
	DefaultDedupTTL      = 900
)

const (
	DedupBackendRedis  = "redis"
	DedupBackendMemory = "memory"
)

const (
	FallbackAllow = "allow"
	FallbackDeny  = "deny"
)

const (
	BrokerSQS   = "sqs"
	BrokerKafka = "kafka"
)

const (
	ShutdownTimeout = 5 * time.Second
)

const (
	DefaultLimit = 100
	MaxLimit     = 1000
)
