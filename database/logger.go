package database

import (
	"time"

	"github.com/rs/zerolog/log"
	gormlogger "gorm.io/gorm/logger"
)

type zerologWriter struct{}

func (zerologWriter) Printf(format string, args ...interface{}) {
	log.Warn().Str("component", "gorm").Msgf(format, args...)
}

func newGormLogger() gormlogger.Interface {
	return gormlogger.New(zerologWriter{}, gormlogger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  gormlogger.Warn,
		IgnoreRecordNotFoundError: true,
		Colorful:                  false,
	})
}
