package retry

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
)

type RetryableError interface {
	error
	IsRetryable() bool
}

type retryableError struct {
	err error
}

func (e *retryableError) Error() string {
	return e.err.Error()
}

func (e *retryableError) IsRetryable() bool {
	return true
}

func (e *retryableError) Unwrap() error {
	return e.err
}

func NewRetryableError(err error) RetryableError {
	if err == nil {
		return nil
	}
	return &retryableError{err: err}
}

type FatalError interface {
	error
	IsFatal() bool
}

type fatalError struct {
	err error
}

func (e *fatalError) Error() string {
	return e.err.Error()
}

func (e *fatalError) IsFatal() bool {
	return true
}

func (e *fatalError) Unwrap() error {
	return e.err
}

func NewFatalError(err error) FatalError {
	if err == nil {
		return nil
	}
	return &fatalError{err: err}
}

// Outcome is the result class of a single attempt.
type Outcome int

const (
	OutcomeOK Outcome = iota
	OutcomeRetryable
	OutcomeTerminal
)

func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "ok"
	case OutcomeRetryable:
		return "retryable"
	default:
		return "terminal"
	}
}

// Classify maps an attempt's error onto an Outcome. Errors that declare
// neither property are retryable.
func Classify(err error) Outcome {
	if err == nil {
		return OutcomeOK
	}

	var fatalErr FatalError
	if errors.As(err, &fatalErr) && fatalErr.IsFatal() {
		return OutcomeTerminal
	}

	var retryableErr RetryableError
	if errors.As(err, &retryableErr) && !retryableErr.IsRetryable() {
		return OutcomeTerminal
	}

	return OutcomeRetryable
}

type Policy struct {
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Multiplier      float64
	MaxElapsedTime  time.Duration
}

// ImmediatePolicy retries without any delay between attempts.
func ImmediatePolicy(maxAttempts int) Policy {
	return Policy{MaxAttempts: maxAttempts}
}

func (p Policy) backOff(ctx context.Context) backoff.BackOff {
	var b backoff.BackOff
	switch {
	case p.InitialInterval <= 0:
		b = &backoff.ZeroBackOff{}
	case p.MaxElapsedTime > 0:
		b = ExponentialBackoffWithMaxElapsed(p.InitialInterval, p.MaxInterval, p.MaxElapsedTime, p.Multiplier)
	default:
		b = ExponentialBackoff(p.InitialInterval, p.MaxInterval, p.Multiplier)
	}

	b = backoff.WithContext(b, ctx)
	return backoff.WithMaxRetries(b, uint64(p.MaxAttempts-1))
}

func Retry(ctx context.Context, policy Policy, fn func() error) error {
	return RetryWithCallback(ctx, policy, fn, nil)
}

// RetryWithCallback runs fn until it succeeds, returns a terminal error, or
// the policy is exhausted. The last error is returned unchanged.
func RetryWithCallback(ctx context.Context, policy Policy, fn func() error, onRetry func(attempt int, err error, nextDelay time.Duration)) error {
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = 3
	}

	attempt := 0
	operation := func() error {
		attempt++
		err := fn()

		switch Classify(err) {
		case OutcomeOK:
			return nil
		case OutcomeTerminal:
			return backoff.Permanent(err)
		}

		if onRetry != nil && attempt < policy.MaxAttempts {
			nextDelay := time.Duration(0)
			if policy.InitialInterval > 0 {
				nextDelay = CalculateBackoffDuration(attempt, policy.InitialInterval, policy.Multiplier, policy.MaxInterval)
			}
			onRetry(attempt, err, nextDelay)
		}

		return err
	}

	return backoff.Retry(operation, policy.backOff(ctx))
}
