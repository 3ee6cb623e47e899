package logging

import (
	"fmt"
	"strings"
	"time"

	gormlogger "gorm.io/gorm/logger"
)

type gormWriter struct{}

func (gormWriter) Printf(format string, args ...interface{}) {
	Info().Str("component", "gorm").Msg(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

// GormLogger routes gorm's SQL log through zerolog at the given gorm level
// (silent, error, warn, info).
func GormLogger(level string) gormlogger.Interface {
	return gormlogger.New(gormWriter{}, gormlogger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  gormLevel(level),
		IgnoreRecordNotFoundError: true,
		Colorful:                  false,
	})
}

func gormLevel(level string) gormlogger.LogLevel {
	switch strings.ToLower(level) {
	case "silent":
		return gormlogger.Silent
	case "error":
		return gormlogger.Error
	case "info":
		return gormlogger.Info
	default:
		return gormlogger.Warn
	}
}
