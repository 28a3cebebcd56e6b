package logger

import (
	"fmt"
	"strings"

	"github.com/robfig/cron/v3"
)

// CronLoggerAdapter routes robfig/cron messages into the leveled logger.
// Scheduler chatter (start, wake, run) goes to DEBUG; skipped runs and job panics are not.
type CronLoggerAdapter struct{}

// NewCronLoggerAdapter creates a new instance of CronLoggerAdapter.
func NewCronLoggerAdapter() cron.Logger {
	return CronLoggerAdapter{}
}

func (CronLoggerAdapter) Info(msg string, keysAndValues ...interface{}) {
	if msg == "skip" {
		Warnf("Scheduler: previous run still in progress, skipping this tick%s", formatKeysAndValues(keysAndValues))
		return
	}
	Debugf("Scheduler: %s%s", msg, formatKeysAndValues(keysAndValues))
}

func (CronLoggerAdapter) Error(err error, msg string, keysAndValues ...interface{}) {
	Errorf("Scheduler: %s: %v%s", msg, err, formatKeysAndValues(keysAndValues))
}

func formatKeysAndValues(kv []interface{}) string {
	if len(kv) == 0 {
		return ""
	}
	var sb strings.Builder
	for i := 0; i+1 < len(kv); i += 2 {
		fmt.Fprintf(&sb, " %v=%v", kv[i], kv[i+1])
	}
	return sb.String()
}

var _ cron.Logger = CronLoggerAdapter{}
