package application

import (
	"errors"
	"strings"
	"testing"
)

func TestArgon2idHasher(t *testing.T) {
	hasher := &Argon2idHasher{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 8, KeyLength: 16}

	hash, err := hasher.Hash("correct horse")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if !strings.HasPrefix(hash, "$argon2id$v=19$m=1024,t=1,p=1$") {
		t.Fatalf("unexpected encoding %q", hash)
	}

	t.Run("accepts the original password", func(t *testing.T) {
		if err := hasher.Verify(hash, "correct horse"); err != nil {
			t.Fatalf("Verify: %v", err)
		}
	})

	t.Run("rejects a different password", func(t *testing.T) {
		if err := hasher.Verify(hash, "wrong horse"); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("expected ErrInvalidCredentials, got %v", err)
		}
	})

	t.Run("verifies hashes produced with other parameters", func(t *testing.T) {
		if err := NewArgon2idHasher().Verify(hash, "correct horse"); err != nil {
			t.Fatalf("Verify with default hasher: %v", err)
		}
	})

	t.Run("rejects malformed hashes", func(t *testing.T) {
		for _, bad := range []string{"", "plain", "$bcrypt$v=19$m=1,t=1,p=1$c2FsdA$aGFzaA"} {
			if err := hasher.Verify(bad, "x"); !errors.Is(err, ErrInvalidPasswordHash) {
				t.Fatalf("Verify(%q) = %v", bad, err)
			}
		}
	})
}
