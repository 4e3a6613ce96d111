package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/platinummonkey/depsane/pkg/contextkeys"
)

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger("info", LogFormatJSON, &buf)
	require.NoError(t, err)

	logger.Debug("hidden")
	logger.WithField("root", "/p").Info("visible")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "visible", entry["msg"])
	assert.Equal(t, "/p", entry["root"])
}

func TestNewLogger_Defaults(t *testing.T) {
	logger, err := NewLogger("", "", nil)
	require.NoError(t, err)
	assert.Equal(t, logrus.WarnLevel, logger.GetLevel())
	assert.IsType(t, &logrus.TextFormatter{}, logger.Formatter)
}

func TestNewLogger_Invalid(t *testing.T) {
	_, err := NewLogger("loud", "", nil)
	assert.Error(t, err)

	_, err = NewLogger("info", "xml", nil)
	assert.Error(t, err)
}

func TestOrDiscard(t *testing.T) {
	assert.NotNil(t, OrDiscard(nil))

	logger, _ := test.NewNullLogger()
	assert.Same(t, logger, OrDiscard(logger))
}

func TestWithContext(t *testing.T) {
	logger, hook := test.NewNullLogger()

	// Nothing in the context: the logger is returned unchanged.
	assert.Same(t, logger, WithContext(context.Background(), logger))

	tp := sdktrace.NewTracerProvider()
	defer func() { _ = tp.Shutdown(context.Background()) }()
	ctx, span := tp.Tracer("test").Start(context.Background(), "op")
	defer span.End()

	ctx = contextkeys.WithRunID(ctx, "run-1")
	ctx = contextkeys.WithRequestID(ctx, "req-1")

	WithContext(ctx, logger).Info("traced")
	require.Len(t, hook.Entries, 1)
	assert.Equal(t, span.SpanContext().TraceID().String(), hook.LastEntry().Data["trace_id"])
	assert.Equal(t, span.SpanContext().SpanID().String(), hook.LastEntry().Data["span_id"])
	assert.Equal(t, "run-1", hook.LastEntry().Data["run_id"])
	assert.Equal(t, "req-1", hook.LastEntry().Data["request_id"])
}
