package logging

import (
	"errors"
	"testing"
)

func TestNewOperationErrorKeepsNil(t *testing.T) {
	if err := NewOperationError("usecase.normalize", "req-1", nil); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
}

func TestOperationErrorFormatsAndUnwraps(t *testing.T) {
	cause := errors.New("boom")

	err := NewOperationError("llmclient.messages_new", "req-7", cause)
	if got, want := err.Error(), "llmclient.messages_new (request_id=req-7): boom"; got != want {
		t.Fatalf("unexpected message: %q, want %q", got, want)
	}
	if !errors.Is(err, cause) {
		t.Fatal("expected errors.Is to reach the cause")
	}

	err = NewOperationError("config.load", "", cause)
	if got, want := err.Error(), "config.load: boom"; got != want {
		t.Fatalf("unexpected message: %q, want %q", got, want)
	}
}
