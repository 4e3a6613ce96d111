package observability

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/trace"

	"github.com/platinummonkey/depsane/pkg/contextkeys"
)

// Log output formats
const (
	LogFormatText = "text"
	LogFormatJSON = "json"
)

// NewLogger builds a logrus logger writing to out (stderr when nil)
func NewLogger(level, format string, out io.Writer) (*logrus.Logger, error) {
	if out == nil {
		out = os.Stderr
	}

	logger := logrus.New()
	logger.SetOutput(out)

	switch format {
	case "", LogFormatText:
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	case LogFormatJSON:
		logger.SetFormatter(&logrus.JSONFormatter{})
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}

	if level == "" {
		level = logrus.WarnLevel.String()
	}
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}
	logger.SetLevel(lvl)

	return logger, nil
}

// DiscardLogger returns a logger that drops everything
func DiscardLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// OrDiscard returns log, or a discarding logger when log is nil
func OrDiscard(log logrus.FieldLogger) logrus.FieldLogger {
	if log == nil {
		return DiscardLogger()
	}
	return log
}

// WithContext adds the run and request IDs carried by ctx, and the active
// span's identifiers, to log. log is returned unchanged when ctx carries
// none of them.
func WithContext(ctx context.Context, log logrus.FieldLogger) logrus.FieldLogger {
	fields := logrus.Fields{}
	if runID := contextkeys.GetRunID(ctx); runID != "" {
		fields["run_id"] = runID
	}
	if requestID := contextkeys.GetRequestID(ctx); requestID != "" {
		fields["request_id"] = requestID
	}
	if spanCtx := trace.SpanFromContext(ctx).SpanContext(); spanCtx.IsValid() {
		fields["trace_id"] = spanCtx.TraceID().String()
		fields["span_id"] = spanCtx.SpanID().String()
	}

	if len(fields) == 0 {
		return log
	}
	return log.WithFields(fields)
}
