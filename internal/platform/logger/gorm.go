package logger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

// GormLogger routes gorm's SQL trace through the application logger.
type GormLogger struct {
	log           *Logger
	level         gormLogger.LogLevel
	slowThreshold time.Duration
}

func NewGormLogger(log *Logger, level gormLogger.LogLevel, slowThreshold time.Duration) *GormLogger {
	if log == nil {
		log = Nop()
	}
	return &GormLogger{log: log.With("component", "gorm"), level: level, slowThreshold: slowThreshold}
}

func (l *GormLogger) LogMode(level gormLogger.LogLevel) gormLogger.Interface {
	cp := *l
	cp.level = level
	return &cp
}

func (l *GormLogger) Info(_ context.Context, s string, args ...interface{}) {
	if l.level >= gormLogger.Info {
		l.log.Info(fmt.Sprintf(s, args...))
	}
}

func (l *GormLogger) Warn(_ context.Context, s string, args ...interface{}) {
	if l.level >= gormLogger.Warn {
		l.log.Warn(fmt.Sprintf(s, args...))
	}
}

func (l *GormLogger) Error(_ context.Context, s string, args ...interface{}) {
	if l.level >= gormLogger.Error {
		l.log.Error(fmt.Sprintf(s, args...))
	}
}

func (l *GormLogger) Trace(_ context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level <= gormLogger.Silent {
		return
	}
	elapsed := time.Since(begin)
	switch {
	case err != nil && l.level >= gormLogger.Error && !errors.Is(err, gorm.ErrRecordNotFound):
		sql, rows := fc()
		l.log.Debug("gorm query error", "sql", sql, "rows", rows, "duration_ms", elapsed.Milliseconds(), "error", err)
	case l.slowThreshold > 0 && elapsed > l.slowThreshold && l.level >= gormLogger.Warn:
		sql, rows := fc()
		l.log.Warn("gorm slow query", "sql", sql, "rows", rows, "duration_ms", elapsed.Milliseconds())
	case l.level >= gormLogger.Info:
		sql, rows := fc()
		l.log.Debug("gorm query", "sql", sql, "rows", rows, "duration_ms", elapsed.Milliseconds())
	}
}
