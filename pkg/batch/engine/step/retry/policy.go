// Package retry provides the retry policy, a context-aware retry executor and a
// circuit breaker factory used around outbound calls.
package retry

import (
	"time"

	config "github.com/tigerroll/weather-etl/pkg/batch/core/config"
	"github.com/tigerroll/weather-etl/pkg/batch/support/util/exception"
)

// RetryPolicy is an interface that defines retry logic.
type RetryPolicy interface {
	// ShouldRetry determines if a given error is retryable.
	ShouldRetry(err error) bool
	// GetBackoffInterval returns the wait before the attempt following attempt (starting from 1).
	GetBackoffInterval(attempt int) time.Duration
	// GetMaxAttempts returns the maximum number of attempts, the first call included.
	GetMaxAttempts() int
}

// DefaultRetryPolicyFactory is a factory for creating RetryPolicy.
type DefaultRetryPolicyFactory struct{}

// NewDefaultRetryPolicyFactory creates a new DefaultRetryPolicyFactory.
func NewDefaultRetryPolicyFactory() *DefaultRetryPolicyFactory {
	return &DefaultRetryPolicyFactory{}
}

// Create creates a new RetryPolicy instance based on the given settings.
// initialInterval is in milliseconds.
func (f *DefaultRetryPolicyFactory) Create(maxAttempts int, initialInterval int, retryableExceptions []string) RetryPolicy {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &defaultRetryPolicy{
		maxAttempts:         maxAttempts,
		initialInterval:     time.Duration(initialInterval) * time.Millisecond,
		retryableExceptions: retryableExceptions,
	}
}

// FromConfig creates a RetryPolicy from a retry config block.
func (f *DefaultRetryPolicyFactory) FromConfig(cfg config.RetryConfig) RetryPolicy {
	return f.Create(cfg.MaxAttempts, cfg.InitialInterval, cfg.RetryableExceptions)
}

// defaultRetryPolicy retries at a fixed interval.
type defaultRetryPolicy struct {
	maxAttempts         int
	initialInterval     time.Duration
	retryableExceptions []string
}

func (p *defaultRetryPolicy) GetMaxAttempts() int {
	return p.maxAttempts
}

// ShouldRetry determines if an error is retryable.
// A BatchError anywhere in the chain decides by its own flag; other errors are matched
// against the configured exception names.
func (p *defaultRetryPolicy) ShouldRetry(err error) bool {
	if err == nil {
		return false
	}

	if be, ok := exception.AsBatchError(err); ok {
		return be.IsRetryable()
	}

	for _, typeName := range p.retryableExceptions {
		if exception.IsErrorOfType(err, typeName) {
			return true
		}
	}
	return false
}

// GetBackoffInterval always returns the initial interval (fixed backoff).
func (p *defaultRetryPolicy) GetBackoffInterval(attempt int) time.Duration {
	return p.initialInterval
}

// Verify interfaces
var _ RetryPolicy = (*defaultRetryPolicy)(nil)
