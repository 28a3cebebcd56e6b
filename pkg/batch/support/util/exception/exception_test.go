package exception_test

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tigerroll/weather-etl/pkg/batch/support/util/exception"
)

func TestNewBatchError(t *testing.T) {
	originalErr := errors.New("connection refused")
	be := exception.NewBatchError("openmeteo", "failed to fetch forecast", originalErr, false, true)

	assert.Equal(t, "openmeteo", be.Module)
	assert.Equal(t, "failed to fetch forecast", be.Message)
	assert.Equal(t, originalErr, be.Unwrap())
	assert.True(t, be.IsRetryable())
	assert.False(t, be.IsSkippable())
	assert.Contains(t, be.Error(), "[openmeteo] failed to fetch forecast: connection refused")
	assert.NotEmpty(t, be.StackTrace)
}

func TestNewBatchErrorf(t *testing.T) {
	// Message arguments only.
	be1 := exception.NewBatchErrorf("transform", "city %s has %d hourly points", "Samara", 48)
	assert.Equal(t, "city Samara has 48 hourly points", be1.Message)
	assert.False(t, be1.IsRetryable())
	assert.Nil(t, be1.Unwrap())

	// Trailing retryable flag and wrapped error.
	cause := errors.New("503")
	be2 := exception.NewBatchErrorf("openmeteo", "status %d", 503, true, cause)
	assert.Equal(t, "status 503", be2.Message)
	assert.True(t, be2.IsRetryable())
	assert.False(t, be2.IsSkippable())
	assert.Equal(t, cause, be2.Unwrap())

	// Full set: skippable, retryable, error.
	be3 := exception.NewBatchErrorf("telegram", "send failed", true, false, cause)
	assert.True(t, be3.IsSkippable())
	assert.False(t, be3.IsRetryable())
}

func TestIsTemporary(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"retryable batch error", exception.NewRetryableError("openmeteo", "5xx", nil), true},
		{"terminal batch error", exception.NewTerminalError("transform", "missing", exception.ErrNoForecastForTomorrow), false},
		{"wrapped retryable", fmt.Errorf("city Moscow: %w", exception.NewRetryableError("archive", "put", nil)), true},
		{"deadline", context.DeadlineExceeded, true},
		{"canceled", context.Canceled, false},
		{"net timeout", &net.DNSError{Err: "i/o timeout", IsTimeout: true}, true},
		{"plain", errors.New("invalid argument"), false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.want, exception.IsTemporary(c.err))
		})
	}
}

func TestIsFatal(t *testing.T) {
	assert.False(t, exception.IsFatal(nil))
	assert.True(t, exception.IsFatal(exception.NewTerminalError("transform", "missing", nil)))
	assert.False(t, exception.IsFatal(exception.NewRetryableError("openmeteo", "timeout", nil)))
	assert.True(t, exception.IsFatal(errors.New("permission denied")))
}

func TestIsErrorOfType(t *testing.T) {
	missing := exception.NewTerminalError("transform", "daily series", exception.ErrNoForecastForTomorrow)
	assert.True(t, exception.IsErrorOfType(missing, "NoForecastForTomorrow"))
	assert.True(t, errors.Is(missing, exception.ErrNoForecastForTomorrow))

	opErr := &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}
	assert.True(t, exception.IsErrorOfType(fmt.Errorf("fetch: %w", opErr), "net.OpError"))
	assert.True(t, exception.IsErrorOfType(opErr, "connection refused"))
	assert.False(t, exception.IsErrorOfType(opErr, "sql.ErrNoRows"))
}

func TestAsBatchError(t *testing.T) {
	inner := exception.NewTerminalError("repository", "insert failed", nil)
	be, ok := exception.AsBatchError(fmt.Errorf("load: %w", inner))
	assert.True(t, ok)
	assert.Same(t, inner, be)

	_, ok = exception.AsBatchError(errors.New("plain"))
	assert.False(t, ok)
}

func TestExtractErrorMessage(t *testing.T) {
	assert.Equal(t, "", exception.ExtractErrorMessage(nil))
	assert.Equal(t, "insert failed", exception.ExtractErrorMessage(exception.NewTerminalError("repository", "insert failed", errors.New("x"))))
	assert.Equal(t, "plain", exception.ExtractErrorMessage(errors.New("plain")))
}

func TestRegisterErrorTypePanics(t *testing.T) {
	assert.Panics(t, func() { exception.RegisterErrorType("", errors.New("x")) })
	assert.Panics(t, func() { exception.RegisterErrorType("nil", nil) })
	assert.True(t, exception.IsErrorTypeRegistered("CircuitOpen"))
}
