package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// RevocationStore remembers logged-out token ids until they expire.
type RevocationStore interface {
	Revoke(ctx context.Context, tokenID string, ttl time.Duration) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// MemoryRevocationStore keeps revoked ids in process. Used when Redis is
// disabled; revocations do not survive a restart.
type MemoryRevocationStore struct {
	mu      sync.Mutex
	revoked map[string]time.Time
	now     func() time.Time
}

// NewMemoryRevocationStore returns an empty store.
func NewMemoryRevocationStore() *MemoryRevocationStore {
	return &MemoryRevocationStore{revoked: make(map[string]time.Time), now: time.Now}
}

// Revoke records tokenID until ttl from now. Expired entries are swept on
// each call.
func (m *MemoryRevocationStore) Revoke(_ context.Context, tokenID string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	for id, exp := range m.revoked {
		if !now.Before(exp) {
			delete(m.revoked, id)
		}
	}
	m.revoked[tokenID] = now.Add(ttl)
	return nil
}

// IsRevoked reports whether tokenID was revoked and has not yet expired.
func (m *MemoryRevocationStore) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	exp, ok := m.revoked[tokenID]
	if !ok {
		return false, nil
	}
	return m.now().Before(exp), nil
}

// RedisRevocationStore stores revoked ids as expiring keys.
type RedisRevocationStore struct {
	client redis.Cmdable
	prefix string
}

// NewRedisRevocationStore uses keys of the form prefix+tokenID.
func NewRedisRevocationStore(client redis.Cmdable, prefix string) *RedisRevocationStore {
	return &RedisRevocationStore{client: client, prefix: prefix}
}

// Revoke sets a key for tokenID that expires with the token. A
// non-positive ttl is a no-op.
func (r *RedisRevocationStore) Revoke(ctx context.Context, tokenID string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	if err := r.client.Set(ctx, r.prefix+tokenID, "1", ttl).Err(); err != nil {
		return fmt.Errorf("revoking token: %w", err)
	}
	return nil
}

// IsRevoked reports whether a revocation key for tokenID still exists.
func (r *RedisRevocationStore) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := r.client.Exists(ctx, r.prefix+tokenID).Result()
	if err != nil {
		return false, fmt.Errorf("checking token revocation: %w", err)
	}
	return n > 0, nil
}
