package application

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrUnauthorized is returned when the caller cannot be resolved to a known account.
	ErrUnauthorized = errors.New("application: unauthorized")
	// ErrForbidden is returned when the caller's role, ownership, or membership does not permit the operation.
	ErrForbidden = errors.New("application: forbidden")
	// ErrNotFound is the parent of every missing-resource error.
	ErrNotFound = errors.New("application: not found")
	// ErrConflict is the parent of every duplicate-resource error.
	ErrConflict = errors.New("application: conflict")
	// ErrInvalidCredentials is returned when a login cannot be matched to an account.
	ErrInvalidCredentials = errors.New("application: invalid credentials")

	ErrRoomNotFound       = fmt.Errorf("%w: room", ErrNotFound)
	ErrClientNotFound     = fmt.Errorf("%w: client", ErrNotFound)
	ErrUserNotFound       = fmt.Errorf("%w: user", ErrNotFound)
	ErrInvalidInviteCode  = fmt.Errorf("%w: invite code", ErrNotFound)
	ErrAlreadyJoined      = fmt.Errorf("%w: already joined", ErrConflict)
	ErrEmailAlreadyExists = fmt.Errorf("%w: email already exists", ErrConflict)
)

// ValidationError captures field level validation issues that callers can surface to users.
type ValidationError struct {
	FieldErrors map[string]string
}

// Error implements the error interface.
func (v *ValidationError) Error() string {
	if v == nil || len(v.FieldErrors) == 0 {
		return "validation failed"
	}
	fields := make([]string, 0, len(v.FieldErrors))
	for field := range v.FieldErrors {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	return "validation failed: " + strings.Join(fields, ", ")
}

// HasErrors reports whether any field level issues were recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

func (v *ValidationError) add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	v.FieldErrors[field] = message
}

func (v *ValidationError) merge(other *ValidationError) {
	if other == nil {
		return
	}
	for field, msg := range other.FieldErrors {
		v.add(field, msg)
	}
}

// asError returns nil when no issues were recorded so callers can assign the
// result to an error without tripping over a typed nil.
func (v *ValidationError) asError() error {
	if !v.HasErrors() {
		return nil
	}
	return v
}
