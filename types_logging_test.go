package crew

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestZapLoggerForwardsLevels(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := NewZapLogger(zap.New(core).Sugar())

	logger.Debug("debug %d", 1)
	logger.Info("info %s", "two")
	logger.Warn("warn")
	logger.Error("error %v", true)

	entries := logs.All()
	require.Len(t, entries, 4)

	assert.Equal(t, zapcore.DebugLevel, entries[0].Level)
	assert.Equal(t, "debug 1", entries[0].Message)
	assert.Equal(t, zapcore.InfoLevel, entries[1].Level)
	assert.Equal(t, "info two", entries[1].Message)
	assert.Equal(t, zapcore.WarnLevel, entries[2].Level)
	assert.Equal(t, zapcore.ErrorLevel, entries[3].Level)
	assert.Equal(t, "error true", entries[3].Message)
}

func TestZapLoggerNilFallsBack(t *testing.T) {
	assert.IsType(t, defLogger{}, NewZapLogger(nil))
}

func TestNewline(t *testing.T) {
	assert.Equal(t, "a\n", newline("a"))
	assert.Equal(t, "a\n", newline("a\n"))
	assert.Equal(t, "", newline(""))
}

type recordingLogger struct {
	NopLogger
	warnings []string
}

func (r *recordingLogger) Warn(format string, _ ...any) {
	r.warnings = append(r.warnings, format)
}

func TestServiceLogsSinkFailures(t *testing.T) {
	logger := &recordingLogger{}
	svc := NewService(nil,
		WithLogger(logger),
		WithActivitySink(ActivitySinkFunc(func(context.Context, ActivityEvent) error {
			return assert.AnError
		})),
	)

	svc.record(context.Background(), ActivityEvent{EventType: ActivityEventLoginSuccess})
	require.Len(t, logger.warnings, 1)
	assert.Contains(t, logger.warnings[0], "activity sink failed")
}
