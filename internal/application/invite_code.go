package application

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/example/counseling-diary/internal/persistence"
)

const (
	inviteCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	inviteCodeLength   = 6
	// Largest multiple of len(inviteCodeAlphabet) that fits in a byte; bytes at
	// or above it are discarded so every symbol is equally likely.
	inviteCodeByteLimit = 252
)

// InviteCodeChecker reports whether a code is already assigned to a room.
type InviteCodeChecker interface {
	InviteCodeExists(ctx context.Context, code string) (bool, error)
}

// InviteCodeAllocator hands out room invite codes that are unique across all rooms.
type InviteCodeAllocator struct {
	checker     InviteCodeChecker
	random      io.Reader
	onCollision func()
	logger      *zap.Logger
}

// AllocatorOption customises an InviteCodeAllocator.
type AllocatorOption func(*InviteCodeAllocator)

// WithRandomSource replaces crypto/rand as the source of code symbols.
func WithRandomSource(r io.Reader) AllocatorOption {
	return func(a *InviteCodeAllocator) { a.random = r }
}

// WithCollisionHook registers a callback invoked for every rejected candidate.
func WithCollisionHook(fn func()) AllocatorOption {
	return func(a *InviteCodeAllocator) { a.onCollision = fn }
}

// WithAllocatorLogger sets the logger used for collision reports.
func WithAllocatorLogger(logger *zap.Logger) AllocatorOption {
	return func(a *InviteCodeAllocator) { a.logger = logger }
}

// NewInviteCodeAllocator builds an allocator that consults checker before
// proposing a code.
func NewInviteCodeAllocator(checker InviteCodeChecker, opts ...AllocatorOption) *InviteCodeAllocator {
	a := &InviteCodeAllocator{checker: checker, random: rand.Reader}
	for _, opt := range opts {
		opt(a)
	}
	a.logger = defaultLogger(a.logger)
	return a
}

// Generate draws one candidate code uniformly from [A-Z0-9]{6}.
func (a *InviteCodeAllocator) Generate() (string, error) {
	code := make([]byte, 0, inviteCodeLength)
	buf := make([]byte, inviteCodeLength*2)
	for len(code) < inviteCodeLength {
		if _, err := io.ReadFull(a.random, buf); err != nil {
			return "", fmt.Errorf("invite code: read random: %w", err)
		}
		for _, b := range buf {
			if b >= inviteCodeByteLimit {
				continue
			}
			code = append(code, inviteCodeAlphabet[int(b)%len(inviteCodeAlphabet)])
			if len(code) == inviteCodeLength {
				break
			}
		}
	}
	return string(code), nil
}

// Allocate proposes codes until insert accepts one. A candidate is skipped
// when the checker already knows it, and retried when insert reports
// persistence.ErrInviteCodeTaken because a concurrent writer claimed it first.
// Only ctx bounds the number of attempts.
func (a *InviteCodeAllocator) Allocate(ctx context.Context, insert func(code string) error) (string, error) {
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		code, err := a.Generate()
		if err != nil {
			return "", err
		}

		if a.checker != nil {
			taken, err := a.checker.InviteCodeExists(ctx, code)
			if err != nil {
				return "", err
			}
			if taken {
				a.collision(attempt, "existing")
				continue
			}
		}

		err = insert(code)
		if errors.Is(err, persistence.ErrInviteCodeTaken) {
			a.collision(attempt, "insert")
			continue
		}
		if err != nil {
			return "", err
		}
		return code, nil
	}
}

func (a *InviteCodeAllocator) collision(attempt int, stage string) {
	if a.onCollision != nil {
		a.onCollision()
	}
	a.logger.Debug("invite code collision", zap.Int("attempt", attempt), zap.String("stage", stage))
}
