package xlog

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Run("JSONFormat", func(t *testing.T) {
		var buf bytes.Buffer
		logger := New(WithFormat(FormatJSON), WithOutput(&buf))

		logger.Info(context.Background(), "hello", slog.String("key", "value"))

		var entry map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
		assert.Equal(t, "hello", entry["msg"])
		assert.Equal(t, "value", entry["key"])
	})

	t.Run("TextFormat", func(t *testing.T) {
		var buf bytes.Buffer
		logger := New(WithFormat(FormatText), WithOutput(&buf))

		logger.Warn(context.Background(), "beware")
		assert.Contains(t, buf.String(), "beware")
		assert.Contains(t, buf.String(), "WARN")
	})

	t.Run("InvalidFormatIgnored", func(t *testing.T) {
		var buf bytes.Buffer
		logger := New(WithFormat("xml"), WithOutput(&buf))

		logger.Info(context.Background(), "fallback")
		assert.Contains(t, buf.String(), "fallback")
	})
}

func TestLevelControl(t *testing.T) {
	t.Run("BelowLevelSuppressed", func(t *testing.T) {
		var buf bytes.Buffer
		logger := New(WithLevel(LevelWarn), WithOutput(&buf))

		logger.Debug(context.Background(), "debug msg")
		logger.Info(context.Background(), "info msg")
		assert.Empty(t, buf.String())

		logger.Error(context.Background(), "error msg")
		assert.Contains(t, buf.String(), "error msg")
	})

	t.Run("DynamicLevel", func(t *testing.T) {
		var buf bytes.Buffer
		logger := New(WithLevel(LevelInfo), WithOutput(&buf))

		logger.Debug(context.Background(), "before")
		assert.Empty(t, buf.String())

		logger.SetLevel(LevelDebug)
		assert.Equal(t, LevelDebug, logger.GetLevel())

		logger.Debug(context.Background(), "after")
		assert.Contains(t, buf.String(), "after")
	})
}

func TestWith(t *testing.T) {
	var buf bytes.Buffer
	logger := New(WithFormat(FormatJSON), WithOutput(&buf))

	derived := logger.With(slog.String("component", "xpool"))
	derived.Info(context.Background(), "attached")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "xpool", entry["component"])

	// 派生 logger 共享父级的级别变量
	logger.SetLevel(LevelError)
	buf.Reset()
	derived.Info(context.Background(), "suppressed")
	assert.Empty(t, buf.String())
}

func TestRotation(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "app.log")

	logger := New(
		WithFormat(FormatJSON),
		WithRotation(RotateConfig{Filename: file, MaxSizeMB: 1}),
	)
	logger.Info(context.Background(), "rotated output")

	assert.FileExists(t, file)
}

func TestNop(t *testing.T) {
	logger := Nop()
	// 空实现不应 panic
	logger.Debug(context.Background(), "x")
	logger.Info(context.Background(), "x")
	logger.Warn(context.Background(), "x")
	logger.Error(context.Background(), "x")
	logger.With(slog.String("k", "v")).Info(context.Background(), "x")
}
