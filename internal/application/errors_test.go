package application

import (
	"errors"
	"testing"
)

func TestValidationError(t *testing.T) {
	var vErr ValidationError
	if vErr.HasErrors() || vErr.asError() != nil {
		t.Fatalf("empty validation error should report no issues")
	}

	vErr.add("name", "name is required")
	other := &ValidationError{}
	other.add("date", DateFormatMessage)
	vErr.merge(other)

	if got := vErr.Error(); got != "validation failed: date, name" {
		t.Fatalf("unexpected message %q", got)
	}
	var target *ValidationError
	if !errors.As(vErr.asError(), &target) || len(target.FieldErrors) != 2 {
		t.Fatalf("expected merged field errors, got %v", vErr.FieldErrors)
	}
}

func TestSentinelHierarchy(t *testing.T) {
	for _, err := range []error{ErrRoomNotFound, ErrClientNotFound, ErrUserNotFound, ErrInvalidInviteCode} {
		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("%v should match ErrNotFound", err)
		}
	}
	for _, err := range []error{ErrAlreadyJoined, ErrEmailAlreadyExists} {
		if !errors.Is(err, ErrConflict) {
			t.Fatalf("%v should match ErrConflict", err)
		}
	}
	if errors.Is(ErrRoomNotFound, ErrClientNotFound) {
		t.Fatalf("distinct not-found errors must not match each other")
	}
}
