package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"ecrwatch/internal/event"
	"ecrwatch/internal/logger"
)

type published struct {
	body  []byte
	delay time.Duration
}

type fakeRequeuer struct {
	mu  sync.Mutex
	out []published
	err error
}

func (f *fakeRequeuer) Publish(ctx context.Context, body []byte, delay time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.out = append(f.out, published{body: body, delay: delay})
	return nil
}

const raw = `{"id":"e-1","account":"123456789012","region":"us-east-1","detail":{"repository-name":"svc-a","image-tag":"1.2.4"}}`

func TestNext(t *testing.T) {
	tests := []struct {
		retryCount int
		wantNext   int
		wantOK     bool
	}{
		{retryCount: 0, wantNext: 2, wantOK: true},
		{retryCount: 1, wantNext: 2, wantOK: true},
		{retryCount: 2, wantNext: 3, wantOK: true},
		{retryCount: 3, wantNext: 4, wantOK: true},
		{retryCount: 4, wantNext: 4, wantOK: false},
		{retryCount: 9, wantNext: 9, wantOK: false},
	}

	for _, tt := range tests {
		next, ok := Next(tt.retryCount, 3)
		assert.Equal(t, tt.wantNext, next, "retryCount %d", tt.retryCount)
		assert.Equal(t, tt.wantOK, ok, "retryCount %d", tt.retryCount)
	}
}

func TestScheduleRetry_FirstRetry(t *testing.T) {
	ev, err := event.Parse([]byte(raw))
	require.NoError(t, err)

	requeuer := &fakeRequeuer{}
	s := New(DefaultConfig(), requeuer, logger.NopLogger())

	res, err := s.ScheduleRetry(context.Background(), ev)
	require.NoError(t, err)
	assert.Equal(t, Result{Scheduled: true, RetryCount: 2}, res)
	assert.Equal(t, "scheduled(2)", res.String())

	require.Len(t, requeuer.out, 1)
	assert.Equal(t, 10*time.Minute, requeuer.out[0].delay)

	again, err := event.Parse(requeuer.out[0].body)
	require.NoError(t, err)
	assert.Equal(t, 2, again.RetryCount)
	assert.Equal(t, ev.AccountID, again.AccountID)
	assert.Equal(t, ev.Region, again.Region)
	assert.Equal(t, ev.RepositoryName, again.RepositoryName)
	assert.Equal(t, ev.ImageTag, again.ImageTag)
	assert.Equal(t, "e-1", again.EventID)
}

func TestScheduleRetry_ChainStopsAfterMaxRetries(t *testing.T) {
	ev, err := event.Parse([]byte(raw))
	require.NoError(t, err)

	requeuer := &fakeRequeuer{}
	s := New(DefaultConfig(), requeuer, logger.NopLogger())

	var counts []int
	for {
		res, err := s.ScheduleRetry(context.Background(), ev)
		require.NoError(t, err)
		if !res.Scheduled {
			assert.Equal(t, "exhausted", res.String())
			break
		}
		counts = append(counts, res.RetryCount)

		ev, err = event.Parse(requeuer.out[len(requeuer.out)-1].body)
		require.NoError(t, err)
	}

	assert.Equal(t, []int{2, 3, 4}, counts)
	assert.Len(t, requeuer.out, 3)
}

func TestScheduleRetry_PublishError(t *testing.T) {
	ev, err := event.Parse([]byte(raw))
	require.NoError(t, err)

	s := New(DefaultConfig(), &fakeRequeuer{err: errors.New("queue down")}, logger.NopLogger())

	_, err = s.ScheduleRetry(context.Background(), ev)
	assert.Error(t, err)
}

func TestScheduleRetry_Monotonic(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		maxRetries := rapid.IntRange(0, 10).Draw(t, "maxRetries")
		retryCount := rapid.IntRange(0, 15).Draw(t, "retryCount")

		requeuer := &fakeRequeuer{}
		s := New(Config{MaxRetries: maxRetries, Delay: time.Minute}, requeuer, logger.NopLogger())

		ev := &event.PushEvent{AccountID: "1", Region: "r", RepositoryName: "a", ImageTag: "1.0.0", RetryCount: retryCount}
		res, err := s.ScheduleRetry(context.Background(), ev)
		if err != nil {
			t.Fatalf("schedule: %v", err)
		}

		if !res.Scheduled {
			if len(requeuer.out) != 0 {
				t.Fatalf("exhausted event was published")
			}
			return
		}
		if res.RetryCount <= retryCount {
			t.Fatalf("retry count did not increase: %d -> %d", retryCount, res.RetryCount)
		}
		if res.RetryCount > maxRetries+1 {
			t.Fatalf("retry count %d exceeds bound %d", res.RetryCount, maxRetries+1)
		}
	})
}
