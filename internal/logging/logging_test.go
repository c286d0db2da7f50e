package logging

import (
	"errors"
	"fmt"
	"testing"
)

func TestNewLoggerRejectsUnknownLevel(t *testing.T) {
	if _, err := NewLogger("loud", false); err == nil {
		t.Fatal("expected error for unknown level")
	}
}

func TestNewLoggerBuildsBothModes(t *testing.T) {
	for _, dev := range []bool{false, true} {
		logger, err := NewLogger("debug", dev)
		if err != nil {
			t.Fatalf("development=%t: unexpected error: %v", dev, err)
		}
		if logger == nil {
			t.Fatalf("development=%t: expected logger", dev)
		}
	}
}

func TestOrNopReplacesNil(t *testing.T) {
	if OrNop(nil) == nil {
		t.Fatal("expected a no-op logger")
	}
}

func TestNewOperationErrorNil(t *testing.T) {
	if err := NewOperationError("op", "", nil); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
}

func TestOperationErrorFormattingAndUnwrap(t *testing.T) {
	base := errors.New("boom")
	err := NewOperationError("auth.token_store.get", "req-1", base)

	if got := err.Error(); got != "auth.token_store.get (request_id=req-1): boom" {
		t.Fatalf("unexpected message: %s", got)
	}
	if !errors.Is(err, base) {
		t.Fatal("expected errors.Is to reach the cause")
	}

	wrapped := fmt.Errorf("outer: %w", err)
	op, ok := OperationOf(wrapped)
	if !ok || op != "auth.token_store.get" {
		t.Fatalf("unexpected operation: %q %t", op, ok)
	}
	if _, ok := OperationOf(base); ok {
		t.Fatal("plain error has no operation")
	}
}
