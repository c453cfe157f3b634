package logger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	gormlogger "gorm.io/gorm/logger"
)

func TestGormLoggerForEnvironment(t *testing.T) {
	dev := GormLoggerForEnvironment("development")
	assert.Equal(t, gormlogger.Info, dev.Level)
	assert.Equal(t, 100*time.Millisecond, dev.SlowThreshold)

	prod := GormLoggerForEnvironment("production")
	assert.Equal(t, gormlogger.Warn, prod.Level)
	assert.True(t, prod.SkipRecordNotFound)
}

func TestSQLVerb(t *testing.T) {
	cases := map[string]string{
		"SELECT * FROM plans":                            "SELECT",
		"  insert into branches values (?)":              "INSERT",
		"WITH latest AS (SELECT 1) SELECT * FROM latest": "SELECT",
		"UPDATE plans SET active = false":                "UPDATE",
		"DELETE FROM branches WHERE id = ?":              "DELETE",
		"CREATE TABLE plans (id BIGINT)":                 "OTHER",
		"":                                               "OTHER",
	}
	for sql, want := range cases {
		assert.Equal(t, want, sqlVerb(sql), sql)
	}
}

func TestGormLogger_TraceSkipsRecordNotFound(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	restore := zap.ReplaceGlobals(zap.New(core))
	defer restore()

	l := NewGormLogger(DefaultGormLoggerConfig())
	fc := func() (string, int64) { return "SELECT * FROM plans", 0 }

	l.Trace(context.Background(), time.Now(), fc, gormlogger.ErrRecordNotFound)
	assert.Zero(t, logs.Len())

	l.Trace(context.Background(), time.Now(), fc, errors.New("connection reset"))
	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "db.query", entry.Message)
	assert.Equal(t, zapcore.ErrorLevel, entry.Level)
}

func TestGormLogger_TraceFlagsSlowQueries(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	restore := zap.ReplaceGlobals(zap.New(core))
	defer restore()

	cfg := DefaultGormLoggerConfig()
	cfg.SlowThreshold = time.Nanosecond
	l := NewGormLogger(cfg)

	l.Trace(context.Background(), time.Now().Add(-time.Second), func() (string, int64) {
		return "SELECT * FROM fiscal_configurations", 1
	}, nil)

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, zapcore.WarnLevel, logs.All()[0].Level)
}

func TestGormLogger_ParamsFilterStripsValues(t *testing.T) {
	l := NewGormLogger(DefaultGormLoggerConfig())

	sql, params := l.ParamsFilter(context.Background(), "SELECT 1 WHERE id = ?", int64(42))
	assert.Equal(t, "SELECT 1 WHERE id = ?", sql)
	assert.Nil(t, params)
}
