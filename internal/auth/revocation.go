package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// MemoryRevocationList keeps revoked token ids in process. Entries are dropped
// once the token would have expired.
type MemoryRevocationList struct {
	mu      sync.Mutex
	entries map[string]time.Time
	now     func() time.Time
}

// NewMemoryRevocationList returns an empty list.
func NewMemoryRevocationList(now func() time.Time) *MemoryRevocationList {
	if now == nil {
		now = time.Now
	}
	return &MemoryRevocationList{entries: make(map[string]time.Time), now: now}
}

func (l *MemoryRevocationList) Revoke(ctx context.Context, tokenID string, until time.Time) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.pruneLocked()
	if until.After(l.now()) {
		l.entries[tokenID] = until
	}
	return nil
}

func (l *MemoryRevocationList) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	until, ok := l.entries[tokenID]
	if !ok {
		return false, nil
	}
	if !until.After(l.now()) {
		delete(l.entries, tokenID)
		return false, nil
	}
	return true, nil
}

// Len reports the number of live entries.
func (l *MemoryRevocationList) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.pruneLocked()
	return len(l.entries)
}

func (l *MemoryRevocationList) pruneLocked() {
	now := l.now()
	for id, until := range l.entries {
		if !until.After(now) {
			delete(l.entries, id)
		}
	}
}

// RedisRevocationList stores one key per revoked token id with a TTL equal to
// the token's remaining lifetime, so every replica sees a logout.
type RedisRevocationList struct {
	rdb    goredis.UniversalClient
	prefix string
	now    func() time.Time
}

// NewRedisClient connects to addr and verifies the connection.
func NewRedisClient(ctx context.Context, addr string) (*goredis.Client, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}

// NewRedisRevocationList stores entries under prefix, defaulting to "revoked-token:".
func NewRedisRevocationList(rdb goredis.UniversalClient, prefix string, now func() time.Time) *RedisRevocationList {
	if prefix == "" {
		prefix = "revoked-token:"
	}
	if now == nil {
		now = time.Now
	}
	return &RedisRevocationList{rdb: rdb, prefix: prefix, now: now}
}

func (l *RedisRevocationList) key(tokenID string) string {
	return l.prefix + tokenID
}

func (l *RedisRevocationList) Revoke(ctx context.Context, tokenID string, until time.Time) error {
	ttl := remaining(until, l.now())
	if ttl <= 0 {
		return nil
	}
	if err := l.rdb.Set(ctx, l.key(tokenID), until.UTC().Format(time.RFC3339), ttl).Err(); err != nil {
		return fmt.Errorf("redis revoke: %w", err)
	}
	return nil
}

func (l *RedisRevocationList) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	err := l.rdb.Get(ctx, l.key(tokenID)).Err()
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, goredis.Nil):
		return false, nil
	default:
		return false, fmt.Errorf("redis revocation lookup: %w", err)
	}
}

// remaining is the key lifetime needed to outlive the token, rounded up to
// the millisecond resolution Redis keeps.
func remaining(until, now time.Time) time.Duration {
	d := until.Sub(now)
	if d <= 0 {
		return 0
	}
	if rounded := d.Truncate(time.Millisecond); rounded < d {
		return rounded + time.Millisecond
	}
	return d
}
