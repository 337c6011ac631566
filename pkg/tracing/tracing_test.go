package tracing

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestNewTracingManager_Disabled(t *testing.T) {
	cfg := DefaultTracingConfig()
	cfg.Enabled = false

	tm, err := NewTracingManager(cfg, newTestLogger())
	require.NoError(t, err)
	require.NotNil(t, tm)
	assert.NotNil(t, tm.GetTracer(), "a noop tracer should still be returned when disabled")
	assert.NoError(t, tm.Shutdown(context.Background()))
}

func TestDefaultTracingConfig(t *testing.T) {
	cfg := DefaultTracingConfig()
	assert.False(t, cfg.Enabled)
	assert.Equal(t, "joedb", cfg.ServiceName)
	assert.Equal(t, "otlp", cfg.Exporter)
	assert.Equal(t, 1.0, cfg.SampleRate)
}

func TestTraceableContext_SpanLifecycle(t *testing.T) {
	cfg := DefaultTracingConfig()
	cfg.Enabled = false
	tm, err := NewTracingManager(cfg, newTestLogger())
	require.NoError(t, err)

	tc := NewTraceableContext(context.Background(), tm.GetTracer(), "database.insert")
	require.NotNil(t, tc)
	require.NotNil(t, tc.Context())

	tc.SetAttribute("records", 3)
	tc.SetAttribute("source", "file")
	tc.AddEvent("flush")

	child := tc.Child("encoder.encode")
	require.NotNil(t, child)
	child.End()

	tc.SetError(errors.New("boom"))
	tc.End()

	assert.Equal(t, "unknown", tc.CorrelationID(), "noop tracer never produces a valid trace id")
	assert.Equal(t, "unknown", tc.SpanID())
}

func TestInstrumentedFunction_Execute(t *testing.T) {
	cfg := DefaultTracingConfig()
	cfg.Enabled = false
	tm, err := NewTracingManager(cfg, newTestLogger())
	require.NoError(t, err)

	fn := NewInstrumentedFunction(tm.GetTracer(), "store.flush")

	var ran bool
	err = fn.Execute(context.Background(), func(tc *TraceableContext) error {
		ran = true
		tc.SetAttribute("trigger", "interval")
		return nil
	})
	require.NoError(t, err)
	assert.True(t, ran)

	wantErr := errors.New("flush failed")
	err = fn.Execute(context.Background(), func(tc *TraceableContext) error {
		return wantErr
	})
	assert.ErrorIs(t, err, wantErr)
}

func TestExtractTraceInfo_NoActiveSpan(t *testing.T) {
	traceID, spanID := ExtractTraceInfo(context.Background())
	assert.Empty(t, traceID)
	assert.Empty(t, spanID)
}

func TestInjectTraceFields_NoActiveSpan(t *testing.T) {
	fields := logrus.Fields{"component": "store"}
	InjectTraceFields(context.Background(), fields)
	_, hasTraceID := fields["trace_id"]
	_, hasSpanID := fields["span_id"]
	assert.False(t, hasTraceID)
	assert.False(t, hasSpanID)
}

func TestTracingManager_UnsupportedExporter(t *testing.T) {
	cfg := DefaultTracingConfig()
	cfg.Enabled = true
	cfg.Exporter = "not-a-real-exporter"

	_, err := NewTracingManager(cfg, newTestLogger())
	assert.Error(t, err)
}
