package retry

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"

	"github.com/tigerroll/weather-etl/pkg/batch/support/util/exception"
	"github.com/tigerroll/weather-etl/pkg/batch/support/util/logger"
)

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// ContextSleep is the default Sleeper.
func ContextSleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Executor re-runs an operation according to a RetryPolicy, optionally behind a circuit breaker.
type Executor struct {
	name    string
	policy  RetryPolicy
	breaker *gobreaker.CircuitBreaker
	sleep   Sleeper
	onRetry func(attempt int, err error)
}

// Option configures an Executor.
type Option func(*Executor)

// WithCircuitBreaker routes every attempt through cb.
func WithCircuitBreaker(cb *gobreaker.CircuitBreaker) Option {
	return func(e *Executor) { e.breaker = cb }
}

// WithSleeper replaces the wait between attempts.
func WithSleeper(s Sleeper) Option {
	return func(e *Executor) { e.sleep = s }
}

// WithRetryListener is called before each re-attempt.
func WithRetryListener(fn func(attempt int, err error)) Option {
	return func(e *Executor) { e.onRetry = fn }
}

// NewExecutor creates an Executor. name appears in log lines and errors.
func NewExecutor(name string, policy RetryPolicy, opts ...Option) *Executor {
	e := &Executor{name: name, policy: policy, sleep: ContextSleep}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// WithBreaker returns a copy of e that routes attempts through cb instead. nil means no breaker.
func (e *Executor) WithBreaker(cb *gobreaker.CircuitBreaker) *Executor {
	c := *e
	c.breaker = cb
	return &c
}

// Execute runs op until it succeeds, the policy declines another attempt, attempts run out,
// the breaker is open, or ctx is done. It returns the number of attempts made and the last error.
func (e *Executor) Execute(ctx context.Context, op func(ctx context.Context) error) (int, error) {
	maxAttempts := e.policy.GetMaxAttempts()
	for attempt := 1; ; attempt++ {
		err := e.call(ctx, op)
		if err == nil {
			return attempt, nil
		}
		if errors.Is(err, exception.ErrCircuitOpen) {
			return attempt, err
		}
		if attempt >= maxAttempts || !e.policy.ShouldRetry(err) {
			return attempt, err
		}

		wait := e.policy.GetBackoffInterval(attempt)
		logger.Warnf("%s: attempt %d/%d failed: %v. Retrying in %s.", e.name, attempt, maxAttempts, err, wait)
		if e.onRetry != nil {
			e.onRetry(attempt, err)
		}
		if sleepErr := e.sleep(ctx, wait); sleepErr != nil {
			return attempt, exception.NewTerminalError(e.name, "retry wait interrupted", errors.Join(err, sleepErr))
		}
	}
}

func (e *Executor) call(ctx context.Context, op func(ctx context.Context) error) error {
	if e.breaker == nil {
		return op(ctx)
	}
	_, err := e.breaker.Execute(func() (interface{}, error) {
		return nil, op(ctx)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return exception.NewTerminalError(e.name, "circuit breaker '"+e.breaker.Name()+"' rejected the call", errors.Join(exception.ErrCircuitOpen, err))
	}
	return err
}
