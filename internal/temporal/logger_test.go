package temporal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.temporal.io/sdk/log"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newObserved(t *testing.T) (log.Logger, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zap.DebugLevel)
	return NewLogger(zap.New(core)), logs
}

func TestLoggerPairsKeyvals(t *testing.T) {
	logger, logs := newObserved(t)

	logger.Info("hello", "run_id", "r-1", "percent", 42)

	entries := logs.All()
	assert.Len(t, entries, 1)
	assert.Equal(t, "hello", entries[0].Message)
	fields := entries[0].ContextMap()
	assert.Equal(t, "r-1", fields["run_id"])
	assert.EqualValues(t, 42, fields["percent"])
}

func TestLoggerLevels(t *testing.T) {
	logger, logs := newObserved(t)

	logger.Debug("d")
	logger.Info("i")
	logger.Warn("w")
	logger.Error("e")

	entries := logs.All()
	assert.Len(t, entries, 4)
	assert.Equal(t, zapcore.DebugLevel, entries[0].Level)
	assert.Equal(t, zapcore.InfoLevel, entries[1].Level)
	assert.Equal(t, zapcore.WarnLevel, entries[2].Level)
	assert.Equal(t, zapcore.ErrorLevel, entries[3].Level)
}

func TestLoggerWithAccumulatesFields(t *testing.T) {
	logger, logs := newObserved(t)

	logger.(log.WithLogger).With("queue", "fathom-research").Warn("retrying")

	entries := logs.All()
	assert.Len(t, entries, 1)
	assert.Equal(t, "fathom-research", entries[0].ContextMap()["queue"])
}

func TestLoggerHandlesUnserializable(t *testing.T) {
	logger, logs := newObserved(t)

	logger.Error("bad", "fn", func() {}, "ch", make(chan int), "nilval", nil)

	entries := logs.All()
	assert.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "<func>", fields["fn"])
	assert.Equal(t, "<chan>", fields["ch"])
	assert.Equal(t, "<nil>", fields["nilval"])
}

func TestLoggerSkipsNonStringKeysAndDanglingKey(t *testing.T) {
	logger, logs := newObserved(t)

	logger.Info("odd", 7, "seven", "kept", "v", "dangling")

	entries := logs.All()
	assert.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "v", fields["kept"])
	assert.NotContains(t, fields, "dangling")
	assert.Len(t, fields, 1)
}
