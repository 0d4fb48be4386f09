package application

import (
	"bytes"
	"context"
	"errors"
	"regexp"
	"sync"
	"testing"

	"golang.org/x/sync/errgroup"

	"github.com/example/counseling-diary/internal/persistence"
)

var inviteCodePattern = regexp.MustCompile(`^[A-Z0-9]{6}$`)

type codeSet struct {
	mu    sync.Mutex
	codes map[string]bool
}

func (c *codeSet) InviteCodeExists(ctx context.Context, code string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.codes[code], nil
}

func (c *codeSet) insert(code string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.codes[code] {
		return persistence.ErrInviteCodeTaken
	}
	c.codes[code] = true
	return nil
}

func TestInviteCodeAllocator_Generate(t *testing.T) {
	t.Run("maps bytes onto the alphabet and skips biased bytes", func(t *testing.T) {
		source := bytes.NewReader([]byte{0, 255, 25, 26, 35, 252, 36, 71, 0, 0, 0, 0})
		alloc := NewInviteCodeAllocator(nil, WithRandomSource(source))

		code, err := alloc.Generate()
		if err != nil {
			t.Fatalf("Generate: %v", err)
		}
		if code != "AZ09A9" {
			t.Fatalf("expected AZ09A9, got %q", code)
		}
	})

	t.Run("produces well formed codes from crypto/rand", func(t *testing.T) {
		alloc := NewInviteCodeAllocator(nil)
		for i := 0; i < 100; i++ {
			code, err := alloc.Generate()
			if err != nil {
				t.Fatalf("Generate: %v", err)
			}
			if !inviteCodePattern.MatchString(code) {
				t.Fatalf("malformed code %q", code)
			}
		}
	})

	t.Run("surfaces random source failures", func(t *testing.T) {
		alloc := NewInviteCodeAllocator(nil, WithRandomSource(bytes.NewReader(nil)))
		if _, err := alloc.Generate(); err == nil {
			t.Fatalf("expected error from exhausted source")
		}
	})
}

func TestInviteCodeAllocator_Allocate(t *testing.T) {
	t.Run("skips codes that already exist", func(t *testing.T) {
		existing := &codeSet{codes: map[string]bool{"AAAAAA": true}}
		// First candidate AAAAAA collides, second is BBBBBB.
		source := bytes.NewReader(append(bytes.Repeat([]byte{0}, 12), bytes.Repeat([]byte{1}, 12)...))
		collisions := 0
		alloc := NewInviteCodeAllocator(existing,
			WithRandomSource(source),
			WithCollisionHook(func() { collisions++ }),
		)

		code, err := alloc.Allocate(context.Background(), existing.insert)
		if err != nil {
			t.Fatalf("Allocate: %v", err)
		}
		if code != "BBBBBB" || collisions != 1 {
			t.Fatalf("expected BBBBBB after one collision, got %q after %d", code, collisions)
		}
	})

	t.Run("retries when the insert loses a race", func(t *testing.T) {
		lost := false
		alloc := NewInviteCodeAllocator(&codeSet{codes: map[string]bool{}})

		code, err := alloc.Allocate(context.Background(), func(code string) error {
			if !lost {
				lost = true
				return persistence.ErrInviteCodeTaken
			}
			return nil
		})
		if err != nil || code == "" {
			t.Fatalf("expected a code after retry, got %q, %v", code, err)
		}
	})

	t.Run("returns other insert errors unchanged", func(t *testing.T) {
		boom := errors.New("boom")
		alloc := NewInviteCodeAllocator(nil)
		if _, err := alloc.Allocate(context.Background(), func(string) error { return boom }); !errors.Is(err, boom) {
			t.Fatalf("expected boom, got %v", err)
		}
	})

	t.Run("stops when the context is cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		alloc := NewInviteCodeAllocator(nil)
		if _, err := alloc.Allocate(ctx, func(string) error { return nil }); !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	})

	t.Run("concurrent allocations never share a code", func(t *testing.T) {
		store := &codeSet{codes: map[string]bool{}}
		alloc := NewInviteCodeAllocator(store)

		var (
			group errgroup.Group
			mu    sync.Mutex
			seen  = map[string]bool{}
		)
		for i := 0; i < 200; i++ {
			group.Go(func() error {
				code, err := alloc.Allocate(context.Background(), store.insert)
				if err != nil {
					return err
				}
				mu.Lock()
				defer mu.Unlock()
				if seen[code] {
					return errors.New("duplicate code " + code)
				}
				seen[code] = true
				return nil
			})
		}
		if err := group.Wait(); err != nil {
			t.Fatalf("concurrent allocation: %v", err)
		}
		if len(seen) != 200 {
			t.Fatalf("expected 200 codes, got %d", len(seen))
		}
	})
}
