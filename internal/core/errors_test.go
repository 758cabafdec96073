package core

import (
	"errors"
	"fmt"
	"testing"
)

func TestDomainError_ErrorAndUnwrap(t *testing.T) {
	cause := errors.New("root")
	err := (&DomainError{
		Category: ErrCatValidation,
		Code:     "CODE",
		Message:  "message",
	}).WithCause(cause)

	if err.Unwrap() != cause {
		t.Fatalf("expected cause to be unwrapped")
	}
	if !errors.Is(err, cause) {
		t.Fatalf("expected errors.Is to match cause")
	}

	match := &DomainError{Category: ErrCatValidation, Code: "CODE"}
	if !errors.Is(err, match) {
		t.Fatalf("expected errors.Is to match category and code")
	}
	if got, want := err.Error(), "[validation] CODE: message (root)"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestDomainError_WithDetail(t *testing.T) {
	err := &DomainError{Category: ErrCatExecution, Code: "X", Message: "msg"}
	err.WithDetail("k", "v")
	if err.Details == nil || err.Details["k"] != "v" {
		t.Fatalf("expected details to be set")
	}
}

func TestErrorFactories(t *testing.T) {
	if ErrValidation(CodeEmptyQuery, "m").Retryable {
		t.Fatalf("validation should not be retryable")
	}
	if !ErrExecution(CodeAgentStreamFailed, "m").Retryable {
		t.Fatalf("execution should be retryable")
	}
	if ErrState(CodeSessionBusy, "m").Retryable {
		t.Fatalf("state should not be retryable")
	}
	if !ErrNetwork(CodeUpstreamStatus, "m").Retryable {
		t.Fatalf("network should be retryable")
	}
	if ErrNotFound("scenario", "x").Code != "NOT_FOUND" {
		t.Fatalf("not found code mismatch")
	}
}

func TestErrorHelpers(t *testing.T) {
	wrapped := fmt.Errorf("outer: %w", ErrState(CodeSessionBusy, "busy"))

	if GetCategory(wrapped) != ErrCatState {
		t.Errorf("GetCategory() = %q, want %q", GetCategory(wrapped), ErrCatState)
	}
	if GetCode(wrapped) != CodeSessionBusy {
		t.Errorf("GetCode() = %q, want %q", GetCode(wrapped), CodeSessionBusy)
	}
	if !IsCategory(wrapped, ErrCatState) {
		t.Errorf("IsCategory() = false, want true")
	}
	if IsRetryable(wrapped) {
		t.Errorf("IsRetryable() = true, want false")
	}

	plain := errors.New("plain")
	if GetCategory(plain) != ErrCatInternal {
		t.Errorf("plain errors should be internal")
	}
	if GetCode(plain) != "" {
		t.Errorf("plain errors should have no code")
	}
}
