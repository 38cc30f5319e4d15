package logger

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var (
	_ gormlogger.Interface = (*GormLogger)(nil)
	_ gorm.ParamsFilter    = (*GormLogger)(nil)
)

func newObservedGormLogger(level gormlogger.LogLevel, opts ...GormLoggerOption) (*GormLogger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return NewGormLogger(zap.New(core), level, opts...), logs
}

func sqlFn(sql string, rows int64) func() (string, int64) {
	return func() (string, int64) { return sql, rows }
}

func TestGormLogger_Options(t *testing.T) {
	gl, _ := newObservedGormLogger(gormlogger.Info,
		WithSlowThreshold(500*time.Millisecond),
		WithRecordNotFound(true),
		WithStatementValues(true),
	)

	assert.Equal(t, 500*time.Millisecond, gl.slow)
	assert.True(t, gl.logNotFound)
	assert.True(t, gl.includeValues)

	defaults, _ := newObservedGormLogger(gormlogger.Info)
	assert.Equal(t, defaultSlowStatement, defaults.slow)
	assert.False(t, defaults.logNotFound)
	assert.False(t, defaults.includeValues)
}

func TestGormLogger_LogMode(t *testing.T) {
	gl, _ := newObservedGormLogger(gormlogger.Info)

	changed, ok := gl.LogMode(gormlogger.Warn).(*GormLogger)
	require.True(t, ok)

	assert.Equal(t, gormlogger.Info, gl.level)
	assert.Equal(t, gormlogger.Warn, changed.level)
}

func TestGormLogger_Messages(t *testing.T) {
	gl, logs := newObservedGormLogger(gormlogger.Warn)
	ctx := context.Background()

	gl.Info(ctx, "suppressed %d", 1)
	gl.Warn(ctx, "warn %d", 2)
	gl.Error(ctx, "error %d", 3)

	require.Equal(t, 2, logs.Len())
	assert.Equal(t, "warn 2", logs.All()[0].Message)
	assert.Equal(t, zapcore.WarnLevel, logs.All()[0].Level)
	assert.Equal(t, "error 3", logs.All()[1].Message)
	assert.Equal(t, zapcore.ErrorLevel, logs.All()[1].Level)
}

func TestGormLogger_Trace(t *testing.T) {
	ctx := context.Background()

	t.Run("failed statement", func(t *testing.T) {
		gl, logs := newObservedGormLogger(gormlogger.Info)
		gl.Trace(ctx, time.Now(), sqlFn(`SELECT * FROM "customers"`, 0), errors.New("connection refused"))

		entries := logs.FilterMessage("Customer store statement failed").All()
		require.Len(t, entries, 1)
		assert.Equal(t, zapcore.ErrorLevel, entries[0].Level)
		assert.Equal(t, `SELECT * FROM "customers"`, entries[0].ContextMap()["statement"])
		assert.Equal(t, "connection refused", entries[0].ContextMap()["error"])
	})

	t.Run("record not found skipped", func(t *testing.T) {
		gl, logs := newObservedGormLogger(gormlogger.Info)
		gl.Trace(ctx, time.Now(), sqlFn("SELECT 1", 0), gormlogger.ErrRecordNotFound)
		assert.Zero(t, logs.Len())
	})

	t.Run("record not found logged when configured", func(t *testing.T) {
		gl, logs := newObservedGormLogger(gormlogger.Info, WithRecordNotFound(true))
		gl.Trace(ctx, time.Now(), sqlFn("SELECT 1", 0), gormlogger.ErrRecordNotFound)
		assert.Equal(t, 1, logs.FilterMessage("Customer store statement failed").Len())
	})

	t.Run("slow statement", func(t *testing.T) {
		gl, logs := newObservedGormLogger(gormlogger.Warn, WithSlowThreshold(10*time.Millisecond))
		gl.Trace(ctx, time.Now().Add(-time.Second), sqlFn("SELECT 1", 1), nil)

		entries := logs.FilterMessage("Customer store statement slow").All()
		require.Len(t, entries, 1)
		assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
		assert.Contains(t, entries[0].ContextMap(), "slow_threshold")
	})

	t.Run("zero threshold disables slow reporting", func(t *testing.T) {
		gl, logs := newObservedGormLogger(gormlogger.Warn, WithSlowThreshold(0))
		gl.Trace(ctx, time.Now().Add(-time.Second), sqlFn("SELECT 1", 1), nil)
		assert.Zero(t, logs.Len())
	})

	t.Run("ordinary statement at debug", func(t *testing.T) {
		gl, logs := newObservedGormLogger(gormlogger.Info)
		gl.Trace(ctx, time.Now(), sqlFn("SELECT 1", 3), nil)

		entries := logs.FilterMessage("Customer store statement").All()
		require.Len(t, entries, 1)
		assert.Equal(t, zapcore.DebugLevel, entries[0].Level)
		assert.Equal(t, int64(3), entries[0].ContextMap()["rows_affected"])
	})

	t.Run("silent", func(t *testing.T) {
		gl, logs := newObservedGormLogger(gormlogger.Silent)
		gl.Trace(ctx, time.Now(), sqlFn("SELECT 1", 1), errors.New("boom"))
		assert.Zero(t, logs.Len())
	})

	t.Run("dropped statements are not rendered", func(t *testing.T) {
		gl, _ := newObservedGormLogger(gormlogger.Warn)
		rendered := false
		gl.Trace(ctx, time.Now(), func() (string, int64) {
			rendered = true
			return "SELECT 1", 1
		}, nil)
		assert.False(t, rendered)
	})

	t.Run("long statement truncated", func(t *testing.T) {
		gl, logs := newObservedGormLogger(gormlogger.Info)
		gl.Trace(ctx, time.Now(), sqlFn(strings.Repeat("x", maxLoggedStatement+10), 1), nil)

		require.Equal(t, 1, logs.Len())
		logged, ok := logs.All()[0].ContextMap()["statement"].(string)
		require.True(t, ok)
		assert.True(t, strings.HasSuffix(logged, "...(truncated)"))
		assert.Len(t, logged, maxLoggedStatement+len("...(truncated)"))
	})

	t.Run("request id", func(t *testing.T) {
		gl, logs := newObservedGormLogger(gormlogger.Info)
		reqCtx, _ := WithRequestID(ctx, zap.NewNop(), "req-42")
		gl.Trace(reqCtx, time.Now(), sqlFn("SELECT 1", 1), nil)

		require.Equal(t, 1, logs.Len())
		assert.Equal(t, "req-42", logs.All()[0].ContextMap()["request_id"])
	})
}

func TestGormLogger_ParamsFilter(t *testing.T) {
	ctx := context.Background()

	hidden, _ := newObservedGormLogger(gormlogger.Info)
	sql, params := hidden.ParamsFilter(ctx, "SELECT ?", "Ada")
	assert.Equal(t, "SELECT ?", sql)
	assert.Nil(t, params)

	shown, _ := newObservedGormLogger(gormlogger.Info, WithStatementValues(true))
	_, params = shown.ParamsFilter(ctx, "SELECT ?", "Ada")
	assert.Equal(t, []any{"Ada"}, params)
}

func TestGormLogger_CustomerNamesStayOutOfLogs(t *testing.T) {
	run := func(t *testing.T, opts ...GormLoggerOption) string {
		t.Helper()
		gl, logs := newObservedGormLogger(gormlogger.Info, opts...)
		db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{Logger: gl})
		require.NoError(t, err)
		sqlDB, err := db.DB()
		require.NoError(t, err)
		t.Cleanup(func() { _ = sqlDB.Close() })

		require.NoError(t, db.Exec("CREATE TABLE customers (id INTEGER PRIMARY KEY, first_name TEXT)").Error)
		require.NoError(t, db.Exec("INSERT INTO customers (id, first_name) VALUES (?, ?)", 1234, "Ada").Error)

		entries := logs.FilterMessage("Customer store statement").All()
		require.NotEmpty(t, entries)
		logged, ok := entries[len(entries)-1].ContextMap()["statement"].(string)
		require.True(t, ok)
		return logged
	}

	t.Run("values hidden by default", func(t *testing.T) {
		logged := run(t)
		assert.Contains(t, logged, "INSERT INTO customers")
		assert.NotContains(t, logged, "Ada")
	})

	t.Run("values inlined when enabled", func(t *testing.T) {
		logged := run(t, WithStatementValues(true))
		assert.Contains(t, logged, `"Ada"`)
	})
}

func TestMapGormLogLevel(t *testing.T) {
	tests := map[string]gormlogger.LogLevel{
		"silent":  gormlogger.Silent,
		"error":   gormlogger.Error,
		"warn":    gormlogger.Warn,
		"info":    gormlogger.Info,
		"debug":   gormlogger.Info,
		"unknown": gormlogger.Warn,
	}

	for level, want := range tests {
		t.Run(level, func(t *testing.T) {
			assert.Equal(t, want, MapGormLogLevel(level))
		})
	}
}
