package model

import (
	"database/sql/driver"
	"fmt"

	"github.com/google/uuid"

	"github.com/tigerroll/weather-etl/pkg/batch/support/util/serialization"
)

// BatchStatus represents the state of a run, city or step execution.
type BatchStatus string

const (
	BatchStatusStarting  BatchStatus = "STARTING"
	BatchStatusStarted   BatchStatus = "STARTED"
	BatchStatusCompleted BatchStatus = "COMPLETED"
	BatchStatusNoOp      BatchStatus = "NO_OP" // step finished without doing anything
	BatchStatusFailed    BatchStatus = "FAILED"
	BatchStatusUnknown   BatchStatus = "UNKNOWN"
)

// String returns the string representation of the BatchStatus.
func (s BatchStatus) String() string {
	return string(s)
}

// IsFinished checks if the BatchStatus represents a finished state.
func (s BatchStatus) IsFinished() bool {
	switch s {
	case BatchStatusCompleted, BatchStatusNoOp, BatchStatusFailed:
		return true
	default:
		return false
	}
}

// isValidTransition checks if a status transition is allowed.
func isValidTransition(current, next BatchStatus) bool {
	switch current {
	case BatchStatusStarting:
		return next == BatchStatusStarted || next == BatchStatusFailed
	case BatchStatusStarted:
		return next == BatchStatusCompleted || next == BatchStatusNoOp || next == BatchStatusFailed
	default:
		return false
	}
}

// FailureList holds a list of error messages.
type FailureList []string

// Value implements the `driver.Valuer` interface, converting FailureList to a JSON string.
func (fl FailureList) Value() (driver.Value, error) {
	data, err := serialization.MarshalFailures(fl)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Scan implements the `sql.Scanner` interface, converting a JSON string to FailureList.
func (fl *FailureList) Scan(value interface{}) error {
	if value == nil {
		*fl = make(FailureList, 0)
		return nil
	}
	var b []byte
	switch v := value.(type) {
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		return fmt.Errorf("unsupported Scan type for FailureList: %T", value)
	}

	msgs := make([]string, 0)
	if err := serialization.UnmarshalFailures(b, &msgs); err != nil {
		return fmt.Errorf("failed to unmarshal FailureList JSON: %w", err)
	}
	*fl = msgs
	return nil
}

// add appends msg unless it is already present.
func (fl *FailureList) add(msg string) bool {
	for _, existing := range *fl {
		if existing == msg {
			return false
		}
	}
	*fl = append(*fl, msg)
	return true
}

// NewID generates a new UUID string.
func NewID() string {
	return uuid.New().String()
}
