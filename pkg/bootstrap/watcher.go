package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go/aws/client"
	awsapprunner "github.com/aws/aws-sdk-go/service/apprunner"
	"github.com/aws/aws-sdk-go/service/cloudwatchlogs"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/redis/go-redis/v9"

	"ecrwatch/internal/apprunner"
	"ecrwatch/internal/audit"
	"ecrwatch/internal/config"
	"ecrwatch/internal/constants"
	"ecrwatch/internal/dedup"
	"ecrwatch/internal/logger"
	"ecrwatch/internal/matcher"
	"ecrwatch/internal/notify"
	"ecrwatch/internal/scheduler"
	"ecrwatch/internal/watcher"
	"ecrwatch/pkg/circuitbreaker"
	"ecrwatch/pkg/metrics"
)

// MatcherSource picks the matcher document location: an S3 object when a
// bucket is configured, else a local file, else nothing.
func MatcherSource(cfg config.MatchersConfig, sess client.ConfigProvider) matcher.Source {
	switch {
	case cfg.Bucket != "":
		return &matcher.S3Source{Client: s3.New(sess), Bucket: cfg.Bucket, Key: cfg.Key}
	case cfg.File != "":
		return &matcher.FileSource{Path: cfg.File}
	default:
		return matcher.EmptySource{}
	}
}

// LoadRegistry builds the immutable matcher registry once per process.
func LoadRegistry(ctx context.Context, cfg config.MatchersConfig, sess client.ConfigProvider, log logger.Logger) (*matcher.Registry, error) {
	src := MatcherSource(cfg, sess)
	registry, err := matcher.Load(ctx, src)
	if err != nil {
		return nil, err
	}

	metrics.SetActiveMatchers(registry.Len())
	log.Infow("Version matchers loaded", "source", src.String(), "count", registry.Len())
	return registry, nil
}

// WatcherDeps are the process-wide connections a watcher may use. Redis and
// DB may be nil.
type WatcherDeps struct {
	Session  client.ConfigProvider
	Requeuer scheduler.Requeuer
	Redis    *redis.Client
	DB       *sql.DB
}

// NewWatcher wires the decision pipeline from configuration.
func NewWatcher(cfg *config.Config, registry *matcher.Registry, deps WatcherDeps, log logger.Logger) (*watcher.Service, error) {
	attempts := cfg.Watcher.MaxRetries
	if attempts < 1 {
		attempts = 1
	}

	controlPlane := apprunner.NewClient(
		awsapprunner.New(deps.Session),
		attempts,
		log,
		apprunner.WithCircuitBreaker(circuitbreaker.FromConfig("apprunner", cfg.CircuitBreaker)),
	)

	sched := scheduler.New(scheduler.Config{
		MaxRetries: cfg.Watcher.MaxRetries,
		Delay:      cfg.Watcher.RetryDelay,
	}, deps.Requeuer, log)

	opts := []watcher.Option{watcher.WithConcurrency(cfg.Watcher.Concurrency)}

	if cfg.Watcher.Notifications {
		opts = append(opts, watcher.WithNotifier(notify.NewCloudWatchNotifier(
			cloudwatchlogs.New(deps.Session),
			cfg.Watcher.LogNamespace,
			attempts,
			log,
		)))
	}

	if cfg.Dedup.Enabled {
		guard, err := newGuard(cfg, deps.Redis, log)
		if err != nil {
			return nil, err
		}
		opts = append(opts, watcher.WithClaimer(guard))
	}

	if cfg.Audit.Enabled && deps.DB != nil {
		opts = append(opts, watcher.WithRecorder(audit.NewRepository(deps.DB)))
	}

	return watcher.NewService(registry, controlPlane, sched, log, opts...), nil
}

func newGuard(cfg *config.Config, rdb *redis.Client, log logger.Logger) (*dedup.Guard, error) {
	ttl := time.Duration(cfg.Dedup.TTLSeconds) * time.Second

	var repo dedup.Repository
	switch cfg.Dedup.Backend {
	case constants.DedupBackendRedis:
		if rdb == nil {
			return nil, fmt.Errorf("dedup backend redis requires database.redis")
		}
		repo = dedup.NewCircuitBreakerRepository(
			dedup.NewRedisRepository(rdb),
			circuitbreaker.FromConfig("redis-dedup", cfg.CircuitBreaker),
		)
	default:
		repo = dedup.NewMemoryRepository(time.Minute)
	}

	log.Infow("Duplicate-delivery guard enabled", "backend", cfg.Dedup.Backend, "ttl", ttl, "on_error", cfg.Dedup.OnError)
	return dedup.NewGuard(repo, ttl, cfg.Dedup.OnError, log), nil
}
