package dedup

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ecrwatch/internal/constants"
	"ecrwatch/internal/event"
	"ecrwatch/internal/logger"
	"ecrwatch/pkg/circuitbreaker"
)

type failingRepo struct {
	err   error
	calls int
}

func (r *failingRepo) SetNX(ctx context.Context, key string, value interface{}, ttl time.Duration) (bool, error) {
	r.calls++
	return false, r.err
}

func pushEvent(id string, retryCount int) *event.PushEvent {
	return &event.PushEvent{
		EventID:        id,
		AccountID:      "123456789012",
		Region:         "us-east-1",
		RepositoryName: "app",
		ImageTag:       "1.2.4",
		RetryCount:     retryCount,
	}
}

func TestKey(t *testing.T) {
	assert.Equal(t, "ecrwatch:action:e1:0", Key(pushEvent("e1", 0)))
	assert.Equal(t, "ecrwatch:action:e1:3", Key(pushEvent("e1", 3)))
}

func TestGuard_ClaimOncePerAttempt(t *testing.T) {
	g := NewGuard(NewMemoryRepository(time.Minute), time.Minute, constants.FallbackAllow, logger.NopLogger())
	ctx := context.Background()

	ok, err := g.Claim(ctx, pushEvent("e1", 0))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = g.Claim(ctx, pushEvent("e1", 0))
	require.NoError(t, err)
	assert.False(t, ok, "second delivery of the same attempt")

	ok, err = g.Claim(ctx, pushEvent("e1", 2))
	require.NoError(t, err)
	assert.True(t, ok, "resubmission is a new attempt")
}

func TestGuard_ClaimExpires(t *testing.T) {
	g := NewGuard(NewMemoryRepository(time.Minute), 20*time.Millisecond, constants.FallbackAllow, logger.NopLogger())
	ctx := context.Background()

	ok, _ := g.Claim(ctx, pushEvent("e1", 0))
	require.True(t, ok)

	time.Sleep(40 * time.Millisecond)
	ok, err := g.Claim(ctx, pushEvent("e1", 0))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestGuard_EventsWithoutIDSkipTheStore(t *testing.T) {
	repo := &failingRepo{err: errors.New("unreachable")}
	g := NewGuard(repo, time.Minute, constants.FallbackDeny, logger.NopLogger())

	ok, err := g.Claim(context.Background(), pushEvent("", 0))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 0, repo.calls)
}

func TestGuard_StoreErrors(t *testing.T) {
	tests := []struct {
		name    string
		onError string
		wantOK  bool
		wantErr bool
	}{
		{name: "allow", onError: constants.FallbackAllow, wantOK: true},
		{name: "deny", onError: constants.FallbackDeny, wantOK: false, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewGuard(&failingRepo{err: errors.New("connection refused")}, time.Minute, tt.onError, logger.NopLogger())

			ok, err := g.Claim(context.Background(), pushEvent("e1", 0))
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNilGuardAllows(t *testing.T) {
	var g *Guard
	ok, err := g.Claim(context.Background(), pushEvent("e1", 0))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCircuitBreakerRepository(t *testing.T) {
	cfg := circuitbreaker.DefaultConfig("dedup-test")
	cfg.Timeout = time.Minute
	repo := &failingRepo{err: errors.New("connection refused")}
	cbRepo := NewCircuitBreakerRepository(repo, circuitbreaker.NewWrapper(cfg))

	for i := 0; i < 3; i++ {
		_, err := cbRepo.SetNX(context.Background(), "k", 1, time.Minute)
		assert.Error(t, err)
	}
	assert.Equal(t, "open", cbRepo.State())

	_, err := cbRepo.SetNX(context.Background(), "k", 1, time.Minute)
	assert.ErrorContains(t, err, "circuit breaker is open")
	assert.Equal(t, 3, repo.calls)
}

func TestCircuitBreakerRepository_Disabled(t *testing.T) {
	cbRepo := NewCircuitBreakerRepository(NewMemoryRepository(time.Minute), nil)
	ok, err := cbRepo.SetNX(context.Background(), "k", 1, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "disabled", cbRepo.State())
}
