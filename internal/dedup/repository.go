package dedup

import (
	"context"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"

	"ecrwatch/pkg/circuitbreaker"
)

// Repository claims keys for a limited time. SetNX reports whether this caller
// made the claim.
type Repository interface {
	SetNX(ctx context.Context, key string, value interface{}, ttl time.Duration) (bool, error)
}

type RedisRepository struct {
	client *redis.Client
}

func NewRedisRepository(client *redis.Client) *RedisRepository {
	return &RedisRepository{client: client}
}

func (r *RedisRepository) SetNX(ctx context.Context, key string, value interface{}, ttl time.Duration) (bool, error) {
	success, err := r.client.SetNX(ctx, key, value, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis SetNX failed: %w", err)
	}
	return success, nil
}

// MemoryRepository keeps claims in process. It only suppresses duplicates
// delivered to the same instance.
type MemoryRepository struct {
	cache *gocache.Cache
}

func NewMemoryRepository(cleanupInterval time.Duration) *MemoryRepository {
	return &MemoryRepository{cache: gocache.New(gocache.NoExpiration, cleanupInterval)}
}

func (r *MemoryRepository) SetNX(ctx context.Context, key string, value interface{}, ttl time.Duration) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	// Add fails when an unexpired item exists.
	if err := r.cache.Add(key, value, ttl); err != nil {
		return false, nil
	}
	return true, nil
}

func (r *MemoryRepository) Len() int {
	return r.cache.ItemCount()
}

type CircuitBreakerRepository struct {
	repo Repository
	cb   *circuitbreaker.Wrapper
}

// NewCircuitBreakerRepository guards repo with cb. A nil cb disables the guard.
func NewCircuitBreakerRepository(repo Repository, cb *circuitbreaker.Wrapper) *CircuitBreakerRepository {
	return &CircuitBreakerRepository{repo: repo, cb: cb}
}

func (r *CircuitBreakerRepository) SetNX(ctx context.Context, key string, value interface{}, ttl time.Duration) (bool, error) {
	if r.cb == nil {
		return r.repo.SetNX(ctx, key, value, ttl)
	}

	result, err := r.cb.ExecuteWithContext(ctx, func() (interface{}, error) {
		return r.repo.SetNX(ctx, key, value, ttl)
	})
	if err != nil {
		if r.cb.IsOpen() {
			return false, fmt.Errorf("circuit breaker is open for %s: %w", r.cb.Name(), err)
		}
		return false, err
	}

	success, ok := result.(bool)
	if !ok {
		return false, fmt.Errorf("repository returned invalid result type")
	}
	return success, nil
}

func (r *CircuitBreakerRepository) State() string {
	if r.cb == nil {
		return "disabled"
	}
	return r.cb.State().String()
}
