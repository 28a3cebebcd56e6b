package configbinder_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/weather-etl/pkg/batch/support/util/configbinder"
)

type sampleConfig struct {
	Type    string        `yaml:"type"`
	Port    int           `yaml:"port"`
	Secure  bool          `yaml:"secure"`
	Timeout time.Duration `yaml:"timeout"`
}

func TestDecodeWeaklyTyped(t *testing.T) {
	var cfg sampleConfig
	err := configbinder.Decode(map[string]interface{}{
		"type":    "minio",
		"port":    "9000",
		"secure":  "false",
		"timeout": "30s",
	}, &cfg)

	require.NoError(t, err)
	assert.Equal(t, "minio", cfg.Type)
	assert.Equal(t, 9000, cfg.Port)
	assert.False(t, cfg.Secure)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
}

func TestBindPropertiesEmptyIsNoop(t *testing.T) {
	cfg := sampleConfig{Type: "local"}
	require.NoError(t, configbinder.BindProperties(nil, &cfg))
	assert.Equal(t, "local", cfg.Type)
}

func TestLookup(t *testing.T) {
	adapters := map[string]interface{}{
		"storage": map[string]interface{}{
			"archive": map[string]interface{}{"type": "local"},
		},
		"database": "broken",
	}

	raw, err := configbinder.Lookup(adapters, "storage", "archive")
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"type": "local"}, raw)

	_, err = configbinder.Lookup(adapters, "storage", "missing")
	assert.ErrorContains(t, err, "storage configuration 'missing' not found")

	_, err = configbinder.Lookup(adapters, "database", "warehouse")
	assert.ErrorContains(t, err, "expected map")

	_, err = configbinder.Lookup(adapters, "queue", "x")
	assert.ErrorContains(t, err, "no 'queue' adapter configuration found")

	assert.Equal(t, []string{"archive"}, configbinder.Names(adapters, "storage"))
	assert.Nil(t, configbinder.Names(adapters, "database"))
}
