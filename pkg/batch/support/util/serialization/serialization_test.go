package serialization_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/weather-etl/pkg/batch/support/util/serialization"
)

func TestMarshalIndentKeepsUnicode(t *testing.T) {
	data, err := serialization.MarshalIndent(map[string]interface{}{"city": "Самара", "note": "a<b"})
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"city\": \"Самара\",\n  \"note\": \"a<b\"\n}\n", string(data))
}

func TestMarshalIndentUnsupportedValue(t *testing.T) {
	_, err := serialization.MarshalIndent(map[string]interface{}{"ch": make(chan int)})
	assert.Error(t, err)
}

func TestFailuresRoundTrip(t *testing.T) {
	data, err := serialization.MarshalFailures(nil)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))

	data, err = serialization.MarshalFailures([]string{"Samara: HTTP 500"})
	require.NoError(t, err)

	var out []string
	require.NoError(t, serialization.UnmarshalFailures(data, &out))
	assert.Equal(t, []string{"Samara: HTTP 500"}, out)

	require.NoError(t, serialization.UnmarshalFailures(nil, &out))
	assert.Empty(t, out)
	assert.Error(t, serialization.UnmarshalFailures([]byte("{"), &out))
}
