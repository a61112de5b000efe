package scheduler

import (
	"context"
	"fmt"
	"time"

	"ecrwatch/internal/constants"
	"ecrwatch/internal/event"
	"ecrwatch/internal/logger"
	"ecrwatch/pkg/metrics"
)

// Requeuer delivers an encoded event again after delay.
type Requeuer interface {
	Publish(ctx context.Context, body []byte, delay time.Duration) error
}

type Config struct {
	MaxRetries int
	Delay      time.Duration
}

func DefaultConfig() Config {
	return Config{
		MaxRetries: constants.DefaultMaxRetries,
		Delay:      constants.DefaultRetryDelay,
	}
}

// Result reports what ScheduleRetry did. RetryCount is the counter written
// into the resubmitted event.
type Result struct {
	Scheduled  bool
	RetryCount int
}

func (r Result) String() string {
	if r.Scheduled {
		return fmt.Sprintf("scheduled(%d)", r.RetryCount)
	}
	return "exhausted"
}

type Scheduler struct {
	cfg      Config
	requeuer Requeuer
	logger   logger.Logger
}

func New(cfg Config, requeuer Requeuer, log logger.Logger) *Scheduler {
	return &Scheduler{
		cfg:      cfg,
		requeuer: requeuer,
		logger:   log,
	}
}

// Next computes the counter for the next resubmission of an event currently
// carrying retryCount (0 when absent). ok is false once retries are exhausted.
func Next(retryCount, maxRetries int) (next int, ok bool) {
	n := retryCount
	if n == 0 {
		n = 1
	}
	if n > maxRetries {
		return n, false
	}
	return n + 1, true
}

// ScheduleRetry resubmits ev with an incremented retry counter after the
// configured delay, or drops it when retries are exhausted.
func (s *Scheduler) ScheduleRetry(ctx context.Context, ev *event.PushEvent) (Result, error) {
	next, ok := Next(ev.RetryCount, s.cfg.MaxRetries)
	if !ok {
		metrics.ResubmissionsTotal.WithLabelValues("exhausted").Inc()
		s.logger.WarnwCtx(ctx, "Max retries exceeded",
			"repository", ev.RepositoryName,
			"image_tag", ev.ImageTag,
			"retry_count", ev.RetryCount,
			"max_retries", s.cfg.MaxRetries,
		)
		return Result{RetryCount: ev.RetryCount}, nil
	}

	body, err := event.Encode(ev.WithRetryCount(next))
	if err != nil {
		return Result{}, fmt.Errorf("failed to encode event for resubmission: %w", err)
	}

	if err := s.requeuer.Publish(ctx, body, s.cfg.Delay); err != nil {
		metrics.ResubmissionsTotal.WithLabelValues("error").Inc()
		return Result{}, fmt.Errorf("failed to resubmit event: %w", err)
	}

	metrics.ResubmissionsTotal.WithLabelValues("scheduled").Inc()
	s.logger.InfowCtx(ctx, "Event resubmitted",
		"repository", ev.RepositoryName,
		"image_tag", ev.ImageTag,
		"retry_count", next,
		"delay", s.cfg.Delay,
	)

	return Result{Scheduled: true, RetryCount: next}, nil
}
