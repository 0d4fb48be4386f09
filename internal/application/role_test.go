package application

import "testing"

func TestParseRole(t *testing.T) {
	for input, want := range map[string]Role{
		"counselor": RoleCounselor,
		" Client ":  RoleClient,
		"COUNSELOR": RoleCounselor,
	} {
		got, err := ParseRole(input)
		if err != nil || got != want {
			t.Fatalf("ParseRole(%q) = %v, %v", input, got, err)
		}
	}
	if _, err := ParseRole("admin"); err == nil {
		t.Fatalf("expected error for unknown role")
	}
	if Role(0).Valid() {
		t.Fatalf("zero role must be invalid")
	}
}

func TestMatchRole(t *testing.T) {
	label := func(r Role) (string, error) {
		return MatchRole(r,
			func() (string, error) { return "c", nil },
			func() (string, error) { return "k", nil },
		)
	}
	if got, err := label(RoleCounselor); err != nil || got != "c" {
		t.Fatalf("counselor branch = %q, %v", got, err)
	}
	if got, err := label(RoleClient); err != nil || got != "k" {
		t.Fatalf("client branch = %q, %v", got, err)
	}
	if _, err := label(Role(9)); err == nil {
		t.Fatalf("expected error for invalid role")
	}
}
