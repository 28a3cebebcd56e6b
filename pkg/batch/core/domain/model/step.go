package model

import (
	"errors"
	"time"

	"github.com/tigerroll/weather-etl/pkg/batch/support/util/exception"
)

// StepName identifies one stage of the per-city state machine.
type StepName string

const (
	StepFetch           StepName = "FETCH"
	StepArchive         StepName = "ARCHIVE"
	StepTransformHourly StepName = "TRANSFORM_HOURLY"
	StepTransformDaily  StepName = "TRANSFORM_DAILY"
	StepLoadHourly      StepName = "LOAD_HOURLY"
	StepLoadDaily       StepName = "LOAD_DAILY"
	StepNotify          StepName = "NOTIFY"
)

// PipelineSteps lists the steps in execution order.
var PipelineSteps = []StepName{
	StepFetch,
	StepArchive,
	StepTransformHourly,
	StepTransformDaily,
	StepLoadHourly,
	StepLoadDaily,
	StepNotify,
}

func (s StepName) String() string {
	return string(s)
}

// Outcome tags the result of a single step.
type Outcome string

const (
	OutcomeSuccess          Outcome = "SUCCESS"
	OutcomeNoOp             Outcome = "NO_OP"
	OutcomeRetryableFailure Outcome = "RETRYABLE_FAILURE"
	OutcomeTerminalFailure  Outcome = "TERMINAL_FAILURE"
)

func (o Outcome) String() string {
	return string(o)
}

// IsFailure reports whether the outcome stops the city pipeline.
func (o Outcome) IsFailure() bool {
	return o == OutcomeRetryableFailure || o == OutcomeTerminalFailure
}

// OutcomeOf classifies err. A disabled notifier or an empty registry is a no-op, not a failure.
func OutcomeOf(err error) Outcome {
	switch {
	case err == nil:
		return OutcomeSuccess
	case errors.Is(err, exception.ErrNotificationDisabled), errors.Is(err, exception.ErrNoSubscribers):
		return OutcomeNoOp
	case exception.IsTemporary(err):
		return OutcomeRetryableFailure
	default:
		return OutcomeTerminalFailure
	}
}

// StepResult is the explicit value every step returns to the orchestrator.
type StepResult struct {
	Step     StepName
	Outcome  Outcome
	Err      error
	Attempts int
	Items    int // records produced or written, messages delivered
	Duration time.Duration
}

// NewStepResult builds a StepResult whose outcome is derived from err.
func NewStepResult(step StepName, err error, attempts, items int, duration time.Duration) StepResult {
	if attempts < 1 {
		attempts = 1
	}
	return StepResult{
		Step:     step,
		Outcome:  OutcomeOf(err),
		Err:      err,
		Attempts: attempts,
		Items:    items,
		Duration: duration,
	}
}

// NoOpResult is a successful step that did nothing.
func NoOpResult(step StepName, duration time.Duration) StepResult {
	return StepResult{Step: step, Outcome: OutcomeNoOp, Attempts: 1, Duration: duration}
}
