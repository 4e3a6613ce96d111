// Package contextkeys defines the context keys shared across packages.
//
// All context keys used by depsane are defined here so that producers and
// consumers agree on names and value types:
//
//	ctx = contextkeys.WithRunID(ctx, runID)
//	runID := contextkeys.GetRunID(ctx)
package contextkeys

import "context"

// Key is the type for context keys to prevent collisions
type Key string

const (
	// RunIDKey contains the analysis run ID string (UUID)
	// Set by: analyzer.Analyze
	// Used by: logging
	RunIDKey Key = "run_id"

	// RequestIDKey contains the HTTP request ID string (UUID)
	// Set by: the server's request ID middleware
	// Used by: request logging
	RequestIDKey Key = "request_id"
)

// WithRunID adds an analysis run ID to the context
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, RunIDKey, runID)
}

// GetRunID retrieves the analysis run ID from context
func GetRunID(ctx context.Context) string {
	if runID, ok := ctx.Value(RunIDKey).(string); ok {
		return runID
	}
	return ""
}

// WithRequestID adds a request ID to the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// GetRequestID retrieves the request ID from context
func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok {
		return requestID
	}
	return ""
}
