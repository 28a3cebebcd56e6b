package logger_test

import (
	"bytes"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tigerroll/weather-etl/pkg/batch/support/util/logger"
)

// captureLogs redirects the logger to a buffer for the duration of the test.
func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	buf := &bytes.Buffer{}
	logger.SetOutput(buf)
	t.Cleanup(func() {
		logger.SetOutput(os.Stderr)
		logger.SetLogLevel("INFO")
	})
	return buf
}

func TestParseLevel(t *testing.T) {
	cases := []struct {
		in    string
		want  logger.LogLevel
		known bool
	}{
		{"debug", logger.LevelDebug, true},
		{"TRACE", logger.LevelDebug, true},
		{" Info ", logger.LevelInfo, true},
		{"warning", logger.LevelWarn, true},
		{"ERROR", logger.LevelError, true},
		{"verbose", logger.LevelInfo, false},
	}
	for _, c := range cases {
		got, ok := logger.ParseLevel(c.in)
		assert.Equal(t, c.want, got, c.in)
		assert.Equal(t, c.known, ok, c.in)
	}
}

func TestLevelFiltering(t *testing.T) {
	buf := captureLogs(t)

	logger.SetLogLevel("WARN")
	logger.Debugf("debug %d", 1)
	logger.Infof("info %d", 2)
	logger.Warnf("warn %d", 3)
	logger.Errorf("error %d", 4)

	out := buf.String()
	assert.NotContains(t, out, "[DEBUG] debug 1")
	assert.NotContains(t, out, "[INFO] info 2")
	assert.Contains(t, out, "[WARN] warn 3")
	assert.Contains(t, out, "[ERROR] error 4")
	assert.True(t, logger.Enabled(logger.LevelError))
	assert.False(t, logger.Enabled(logger.LevelInfo))
}

func TestSetLogLevelUnknownFallsBackToInfo(t *testing.T) {
	captureLogs(t)

	logger.SetLogLevel("chatty")
	assert.Equal(t, logger.LevelInfo, logger.CurrentLevel())
}
