package dedup

import (
	"context"
	"fmt"
	"time"

	"ecrwatch/internal/constants"
	"ecrwatch/internal/event"
	"ecrwatch/internal/logger"
	"ecrwatch/pkg/metrics"
)

// Guard suppresses repeated deliveries of the same event attempt. Queues
// deliver at least once; an action must not run twice for one delivery.
type Guard struct {
	repo    Repository
	ttl     time.Duration
	onError string
	logger  logger.Logger
	now     func() time.Time
}

func NewGuard(repo Repository, ttl time.Duration, onError string, log logger.Logger) *Guard {
	if ttl <= 0 {
		ttl = constants.DefaultDedupTTL * time.Second
	}
	if onError == "" {
		onError = constants.FallbackAllow
	}
	return &Guard{
		repo:    repo,
		ttl:     ttl,
		onError: onError,
		logger:  log,
		now:     time.Now,
	}
}

// Key identifies one attempt of an event. Resubmissions carry a new retry
// count and so claim a new key.
func Key(ev *event.PushEvent) string {
	return fmt.Sprintf("%s%s:%d", constants.CacheKeyPrefixAction, ev.EventID, ev.RetryCount)
}

// Claim reports whether the caller may act on ev. Events without an id are
// always allowed.
func (g *Guard) Claim(ctx context.Context, ev *event.PushEvent) (bool, error) {
	if g == nil || ev.EventID == "" {
		return true, nil
	}

	key := Key(ev)
	ok, err := g.repo.SetNX(ctx, key, g.now().Unix(), g.ttl)
	if err != nil {
		if g.onError == constants.FallbackAllow {
			g.logger.WarnwCtx(ctx, "Dedup store error, allowing action (fallback: allow)",
				"key", key,
				"error", err,
			)
			return true, nil
		}
		return false, fmt.Errorf("dedup check failed for %s: %w", key, err)
	}

	if !ok {
		metrics.DuplicatesTotal.Inc()
		g.logger.InfowCtx(ctx, "Duplicate delivery suppressed", "key", key)
	}
	return ok, nil
}
