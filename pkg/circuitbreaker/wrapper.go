package circuitbreaker

import (
	"context"
	"time"

	"github.com/sony/gobreaker"

	"ecrwatch/internal/config"
	"ecrwatch/pkg/metrics"
	"ecrwatch/pkg/retry"
)

// Config defines circuit breaker configuration
type Config struct {
	Name          string
	MaxRequests   uint32
	Interval      time.Duration
	Timeout       time.Duration
	ReadyToTrip   func(counts gobreaker.Counts) bool
	OnStateChange func(name string, from, to gobreaker.State)
}

// DefaultConfig returns a default circuit breaker configuration
func DefaultConfig(name string) Config {
	return Config{
		Name:        name,
		MaxRequests: 3,
		Interval:    60 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.5
		},
	}
}

// FromConfig builds a breaker named name from the shared circuit_breaker
// settings. It returns nil when breakers are disabled.
func FromConfig(name string, cfg config.CircuitBreakerConfig) *Wrapper {
	if !cfg.Enabled {
		return nil
	}

	cbConfig := DefaultConfig(name)
	if cfg.MaxRequests > 0 {
		cbConfig.MaxRequests = cfg.MaxRequests
	}
	if cfg.Interval > 0 {
		cbConfig.Interval = cfg.Interval
	}
	if cfg.Timeout > 0 {
		cbConfig.Timeout = cfg.Timeout
	}
	if cfg.FailureRatio > 0 && cfg.MinRequests > 0 {
		cbConfig.ReadyToTrip = func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= cfg.FailureRatio
		}
	}

	return NewWrapper(cbConfig)
}

// Wrapper guards calls to a remote dependency. Terminal errors (not found,
// invalid request) count as successes: the dependency answered.
type Wrapper struct {
	cb *gobreaker.CircuitBreaker
}

// NewWrapper creates a new circuit breaker wrapper
func NewWrapper(cfg Config) *Wrapper {
	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		IsSuccessful: func(err error) bool {
			return retry.Classify(err) != retry.OutcomeRetryable
		},
	}

	if cfg.ReadyToTrip != nil {
		settings.ReadyToTrip = cfg.ReadyToTrip
	}

	settings.OnStateChange = func(name string, from, to gobreaker.State) {
		updateCircuitBreakerMetrics(name, to)
		if cfg.OnStateChange != nil {
			cfg.OnStateChange(name, from, to)
		}
	}

	cb := gobreaker.NewCircuitBreaker(settings)
	updateCircuitBreakerMetrics(cfg.Name, cb.State())

	return &Wrapper{
		cb: cb,
	}
}

// Execute executes a function with circuit breaker protection
func (w *Wrapper) Execute(fn func() (interface{}, error)) (interface{}, error) {
	result, err := w.cb.Execute(fn)
	w.RecordRequest(retry.Classify(err) != retry.OutcomeRetryable)
	return result, err
}

// ExecuteWithContext executes a function with circuit breaker protection and context
func (w *Wrapper) ExecuteWithContext(ctx context.Context, fn func() (interface{}, error)) (interface{}, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	return w.Execute(func() (interface{}, error) {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
			return fn()
		}
	})
}

// State returns the current state of the circuit breaker
func (w *Wrapper) State() gobreaker.State {
	return w.cb.State()
}

// Counts returns the current counts of the circuit breaker
func (w *Wrapper) Counts() gobreaker.Counts {
	return w.cb.Counts()
}

// Name returns the name of the circuit breaker
func (w *Wrapper) Name() string {
	return w.cb.Name()
}

// IsOpen returns true if the circuit breaker is in open state
func (w *Wrapper) IsOpen() bool {
	return w.cb.State() == gobreaker.StateOpen
}

// IsOpenErr reports whether err was produced by a tripped breaker.
func IsOpenErr(err error) bool {
	return err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests
}

func updateCircuitBreakerMetrics(name string, state gobreaker.State) {
	var stateValue float64
	switch state {
	case gobreaker.StateClosed:
		stateValue = 0
	case gobreaker.StateHalfOpen:
		stateValue = 1
	case gobreaker.StateOpen:
		stateValue = 2
	}
	metrics.CircuitBreakerState.WithLabelValues(name).Set(stateValue)
}

// RecordRequest records a request through the circuit breaker
func (w *Wrapper) RecordRequest(success bool) {
	state := w.cb.State().String()
	metrics.CircuitBreakerRequests.WithLabelValues(w.cb.Name(), state).Inc()
	if !success {
		metrics.CircuitBreakerFailures.WithLabelValues(w.cb.Name()).Inc()
	}
}
