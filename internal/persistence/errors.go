package persistence

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when the requested record does not exist.
	ErrNotFound = errors.New("persistence: not found")
	// ErrDuplicate is returned when a unique constraint rejects a write.
	ErrDuplicate = errors.New("persistence: duplicate record")
	// ErrInviteCodeTaken is returned when a room insert collides on invite code.
	ErrInviteCodeTaken = fmt.Errorf("%w: invite code", ErrDuplicate)
	// ErrConstraintViolation is returned for foreign key or check failures.
	ErrConstraintViolation = errors.New("persistence: constraint violation")
)
