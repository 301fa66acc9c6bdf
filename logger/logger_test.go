package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestRedactMasksSecrets(t *testing.T) {
	got := redact([]interface{}{"api_key", "gsk_123", "task", "risks", "prompt", "full text", "dangling"})
	assert.Equal(t, []interface{}{"api_key", "[REDACTED]", "task", "risks", "prompt", "[REDACTED]", "dangling"}, got)
}

func TestLoggerWritesStructuredFields(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	l := &Logger{SugaredLogger: zap.New(core).Sugar()}

	l.With("session_id", "abc").Info("completion finished", "task", "summary", "AWS_SECRET", "x")

	entries := logs.All()
	if assert.Len(t, entries, 1) {
		fields := entries[0].ContextMap()
		assert.Equal(t, "abc", fields["session_id"])
		assert.Equal(t, "summary", fields["task"])
		assert.Equal(t, "[REDACTED]", fields["AWS_SECRET"])
	}
}
