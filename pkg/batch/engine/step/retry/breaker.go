package retry

import (
	"time"

	"github.com/sony/gobreaker"

	config "github.com/tigerroll/weather-etl/pkg/batch/core/config"
	"github.com/tigerroll/weather-etl/pkg/batch/support/util/exception"
	"github.com/tigerroll/weather-etl/pkg/batch/support/util/logger"
)

// NewCircuitBreaker opens after threshold consecutive transient failures and half-opens
// after resetInterval. Terminal errors (bad payloads, missing data) do not count against it.
// A threshold <= 0 returns nil, which Executor treats as no breaker.
func NewCircuitBreaker(name string, threshold int, resetInterval time.Duration) *gobreaker.CircuitBreaker {
	if threshold <= 0 {
		return nil
	}
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     resetInterval,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= uint32(threshold)
		},
		IsSuccessful: func(err error) bool {
			return err == nil || !exception.IsTemporary(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warnf("Circuit breaker '%s': %s -> %s", name, from, to)
		},
	})
}

// NewCircuitBreakerFromConfig reads threshold and reset interval (milliseconds) from cfg.
func NewCircuitBreakerFromConfig(name string, cfg config.RetryConfig) *gobreaker.CircuitBreaker {
	return NewCircuitBreaker(name, cfg.CircuitBreakerThreshold, time.Duration(cfg.CircuitBreakerResetInterval)*time.Millisecond)
}
