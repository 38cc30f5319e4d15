package logger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	gormlogger "gorm.io/gorm/logger"
)

const (
	defaultSlowStatement = 200 * time.Millisecond
	maxLoggedStatement   = 2048
)

// GormLogger writes the statements GORM runs against the customer store to
// zap. Bound values carry customer names, so they are left out of the logged
// statement unless WithStatementValues(true) is set.
type GormLogger struct {
	base          *zap.Logger
	level         gormlogger.LogLevel
	slow          time.Duration
	logNotFound   bool
	includeValues bool
}

// GormLoggerOption configures a GormLogger
type GormLoggerOption func(*GormLogger)

// WithSlowThreshold sets the duration above which a statement is reported as
// slow. Zero turns slow statement reporting off.
func WithSlowThreshold(threshold time.Duration) GormLoggerOption {
	return func(l *GormLogger) { l.slow = threshold }
}

// WithRecordNotFound makes gorm.ErrRecordNotFound show up as a failed statement.
// Off by default: a missing customer is an ordinary lookup result.
func WithRecordNotFound(log bool) GormLoggerOption {
	return func(l *GormLogger) { l.logNotFound = log }
}

// WithStatementValues inlines bound values into logged statements
func WithStatementValues(include bool) GormLoggerOption {
	return func(l *GormLogger) { l.includeValues = include }
}

// NewGormLogger creates a GORM logger named "gorm" under zapLogger
func NewGormLogger(zapLogger *zap.Logger, level gormlogger.LogLevel, opts ...GormLoggerOption) *GormLogger {
	gl := &GormLogger{
		base:  zapLogger.Named("gorm"),
		level: level,
		slow:  defaultSlowStatement,
	}
	for _, opt := range opts {
		opt(gl)
	}
	return gl
}

// LogMode implements gormlogger.Interface
func (l *GormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	clone := *l
	clone.level = level
	return &clone
}

func (l *GormLogger) Info(ctx context.Context, msg string, data ...any) {
	l.printf(ctx, gormlogger.Info, zapcore.InfoLevel, msg, data)
}

func (l *GormLogger) Warn(ctx context.Context, msg string, data ...any) {
	l.printf(ctx, gormlogger.Warn, zapcore.WarnLevel, msg, data)
}

func (l *GormLogger) Error(ctx context.Context, msg string, data ...any) {
	l.printf(ctx, gormlogger.Error, zapcore.ErrorLevel, msg, data)
}

func (l *GormLogger) printf(ctx context.Context, min gormlogger.LogLevel, lvl zapcore.Level, msg string, data []any) {
	if l.level < min {
		return
	}
	WithLogger(ctx, l.base).Zap().Log(lvl, fmt.Sprintf(msg, data...))
}

// ParamsFilter implements gorm.ParamsFilter. GORM calls it before rendering
// the statement handed to Trace.
func (l *GormLogger) ParamsFilter(_ context.Context, sql string, params ...any) (string, []any) {
	if l.includeValues {
		return sql, params
	}
	return sql, nil
}

// Trace implements gormlogger.Interface
func (l *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (sql string, rowsAffected int64), err error) {
	elapsed := time.Since(begin)
	lvl, msg, ok := l.classify(elapsed, err)
	if !ok {
		return
	}

	statement, rows := fc()
	fields := []zap.Field{
		zap.String("statement", truncateStatement(statement)),
		zap.Int64("rows_affected", rows),
		zap.Duration("elapsed", elapsed),
	}
	if requestID := GetRequestID(ctx); requestID != "" {
		fields = append(fields, zap.String("request_id", requestID))
	}
	switch {
	case err != nil:
		fields = append(fields, zap.Error(err))
	case lvl == zapcore.WarnLevel:
		fields = append(fields, zap.Duration("slow_threshold", l.slow))
	}

	WithLogger(ctx, l.base).Zap().Log(lvl, msg, fields...)
}

// classify picks the level and message for a finished statement; ok is false
// when the configured GORM level drops it.
func (l *GormLogger) classify(elapsed time.Duration, err error) (zapcore.Level, string, bool) {
	switch {
	case l.level <= gormlogger.Silent:
		return 0, "", false
	case err != nil:
		if errors.Is(err, gormlogger.ErrRecordNotFound) && !l.logNotFound {
			return 0, "", false
		}
		return zapcore.ErrorLevel, "Customer store statement failed", l.level >= gormlogger.Error
	case l.slow > 0 && elapsed > l.slow:
		return zapcore.WarnLevel, "Customer store statement slow", l.level >= gormlogger.Warn
	default:
		return zapcore.DebugLevel, "Customer store statement", l.level >= gormlogger.Info
	}
}

func truncateStatement(s string) string {
	if len(s) <= maxLoggedStatement {
		return s
	}
	return s[:maxLoggedStatement] + "...(truncated)"
}

var gormLevels = map[string]gormlogger.LogLevel{
	"silent": gormlogger.Silent,
	"error":  gormlogger.Error,
	"warn":   gormlogger.Warn,
	"info":   gormlogger.Info,
	"debug":  gormlogger.Info,
}

// MapGormLogLevel maps a log.level name to a GORM level, defaulting to warn
func MapGormLogLevel(level string) gormlogger.LogLevel {
	if gl, ok := gormLevels[level]; ok {
		return gl
	}
	return gormlogger.Warn
}
