package contextkeys

import (
	"context"
	"testing"
)

func TestRunID(t *testing.T) {
	ctx := context.Background()
	if got := GetRunID(ctx); got != "" {
		t.Errorf("GetRunID() on empty context = %q, want empty", got)
	}

	ctx = WithRunID(ctx, "run-1")
	if got := GetRunID(ctx); got != "run-1" {
		t.Errorf("GetRunID() = %q, want run-1", got)
	}
	if got := GetRequestID(ctx); got != "" {
		t.Errorf("GetRequestID() = %q, want empty", got)
	}
}

func TestRequestID(t *testing.T) {
	ctx := WithRequestID(context.Background(), "req-1")
	if got := GetRequestID(ctx); got != "req-1" {
		t.Errorf("GetRequestID() = %q, want req-1", got)
	}
}
