// Package serialization provides JSON helpers shared by the archive writer, the status API and the
// persisted failure lists.
package serialization

import (
	"bytes"
	"encoding/json"

	"github.com/tigerroll/weather-etl/pkg/batch/support/util/exception"
	logger "github.com/tigerroll/weather-etl/pkg/batch/support/util/logger"
)

const module = "serialization"

// MarshalIndent encodes v with a two-space indent and without HTML escaping,
// so non-ASCII city names and "<", ">" and "&" are written verbatim.
// The trailing newline added by json.Encoder is kept.
func MarshalIndent(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		logger.Errorf("Failed to serialize value of type %T: %v", v, err)
		return nil, exception.NewBatchError(module, "Failed to serialize JSON", err, false, false)
	}
	return buf.Bytes(), nil
}

// MarshalFailures serializes a slice of failure messages (strings) into a JSON byte slice.
func MarshalFailures(failures []string) ([]byte, error) {
	if failures == nil {
		return []byte("[]"), nil
	}

	data, err := json.Marshal(failures)
	if err != nil {
		logger.Errorf("Failed to serialize Failures: %v", err)
		return nil, exception.NewBatchError(module, "Failed to serialize Failures", err, false, false)
	}
	return data, nil
}

// UnmarshalFailures deserializes a JSON byte slice into a slice of failure messages (strings).
func UnmarshalFailures(data []byte, msgs *[]string) error {
	if len(data) == 0 || string(data) == "null" {
		*msgs = []string{}
		return nil
	}

	if err := json.Unmarshal(data, msgs); err != nil {
		logger.Errorf("Failed to deserialize Failures: %v", err)
		return exception.NewBatchError(module, "Failed to deserialize Failures", err, false, false)
	}
	return nil
}
