package gorm

import (
	"fmt"
	"strings"
	"time"

	"github.com/tigerroll/weather-etl/pkg/batch/support/util/logger"

	gormLogger "gorm.io/gorm/logger"
)

// NewGormLogger maps the application log level onto gorm's: DEBUG traces every statement,
// INFO and WARN report slow queries and errors, ERROR reports errors only.
func NewGormLogger(level string) gormLogger.Interface {
	var gormLevel gormLogger.LogLevel
	lvl, _ := logger.ParseLevel(level)
	switch lvl {
	case logger.LevelDebug:
		gormLevel = gormLogger.Info
	case logger.LevelInfo, logger.LevelWarn:
		gormLevel = gormLogger.Warn
	case logger.LevelError:
		gormLevel = gormLogger.Error
	default:
		gormLevel = gormLogger.Silent
	}

	return gormLogger.New(
		NewGormWriter(),
		gormLogger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  gormLevel,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
}

// GormWriter redirects gorm output to the application logger.
type GormWriter struct{}

// NewGormWriter creates a new instance of GormWriter.
func NewGormWriter() *GormWriter {
	return &GormWriter{}
}

// Printf implements gormLogger.Writer. SQL traces go to DEBUG, everything else to INFO.
func (w *GormWriter) Printf(format string, v ...interface{}) {
	msg := strings.TrimSpace(fmt.Sprintf(format, v...))
	if isSQLTrace(msg) {
		logger.Debugf("[GORM] %s", msg)
		return
	}
	logger.Infof("[GORM] %s", msg)
}

func isSQLTrace(msg string) bool {
	if !strings.Contains(msg, "[") || !strings.Contains(msg, "]") {
		return false
	}
	upper := strings.ToUpper(msg)
	for _, kw := range []string{"SELECT", "INSERT", "UPDATE", "DELETE", "CREATE", "ALTER"} {
		if strings.Contains(upper, kw) {
			return true
		}
	}
	return false
}
