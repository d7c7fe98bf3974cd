package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureJSON(t *testing.T, fn func()) map[string]interface{} {
	t.Helper()

	var buf bytes.Buffer
	Setup("debug", "production")
	SetOutput(&buf)
	fn()

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	return entry
}

func TestWithServer(t *testing.T) {
	entry := captureJSON(t, func() {
		WithServer("srv3").Info("drifted")
	})

	assert.Equal(t, "srv3", entry["server_id"])
	assert.Equal(t, "drifted", entry["message"])
}

func TestWithEvent(t *testing.T) {
	entry := captureJSON(t, func() {
		WithEvent("evt-1-100", "cpu_spike", "srv1").Warn("generated")
	})

	assert.Equal(t, "evt-1-100", entry["event_id"])
	assert.Equal(t, "cpu_spike", entry["event_type"])
	assert.Equal(t, "srv1", entry["server_id"])
	assert.Equal(t, "warning", entry["level"])
}

func TestTraceIDFromContext(t *testing.T) {
	ctx := WithTraceID(context.Background(), "abc-123")
	assert.Equal(t, "abc-123", TraceIDFromContext(ctx))
	assert.Empty(t, TraceIDFromContext(context.Background()))

	entry := captureJSON(t, func() {
		WithContext(ctx).Info("handled")
	})
	assert.Equal(t, "abc-123", entry["trace_id"])
}
