package application

import (
	"fmt"
	"strings"
)

// Role is the immutable account type. The zero value is not a valid role.
type Role uint8

const (
	RoleCounselor Role = iota + 1
	RoleClient
)

// ParseRole accepts the stored or wire form of a role.
func ParseRole(value string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "counselor":
		return RoleCounselor, nil
	case "client":
		return RoleClient, nil
	default:
		return 0, fmt.Errorf("application: unknown role %q", value)
	}
}

func (r Role) String() string {
	switch r {
	case RoleCounselor:
		return "counselor"
	case RoleClient:
		return "client"
	default:
		return fmt.Sprintf("Role(%d)", uint8(r))
	}
}

// Valid reports whether r is one of the declared roles.
func (r Role) Valid() bool {
	return r == RoleCounselor || r == RoleClient
}

// MatchRole dispatches on r. Every role-dependent branch goes through here so
// adding a role means revisiting each call site.
func MatchRole[T any](r Role, counselor func() (T, error), client func() (T, error)) (T, error) {
	switch r {
	case RoleCounselor:
		return counselor()
	case RoleClient:
		return client()
	default:
		var zero T
		return zero, fmt.Errorf("application: unmatched role %d", uint8(r))
	}
}

// requireRole returns ErrForbidden unless r equals want.
func requireRole(r, want Role) error {
	if r != want {
		return ErrForbidden
	}
	return nil
}
