// Package revocation implements the revocation registry on Redis.
package revocation

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"cuecards_backend/internal/feature/auth/usecase"
)

// RevocationRedis implements usecase.RevocationRegistry using Redis.
// Each revoked jti is a key whose TTL ends at the token's own expiry,
// so Redis purges entries by itself.
type RevocationRedis struct {
	client *redis.Client
	prefix string
	now    func() time.Time
}

var _ usecase.RevocationRegistry = (*RevocationRedis)(nil)

// NewRevocationRedis creates a new RevocationRedis instance.
func NewRevocationRedis(client *redis.Client, prefix string) *RevocationRedis {
	return &RevocationRedis{
		client: client,
		prefix: prefix,
		now:    time.Now,
	}
}

// key returns the Redis key for a jti.
func (r *RevocationRedis) key(jti string) string {
	return fmt.Sprintf("%s:%s", r.prefix, jti)
}

// Revoke stores jti until expiresAt and reports whether this call created the entry.
// SET NX keeps the first entry, so of two concurrent callers only one gets true.
// An already expired token is not stored.
func (r *RevocationRedis) Revoke(ctx context.Context, jti string, expiresAt time.Time) (bool, error) {
	ttl := expiresAt.Sub(r.now())
	if ttl <= 0 {
		return false, nil
	}
	created, err := r.client.SetNX(ctx, r.key(jti), 1, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to revoke token: %w", err)
	}
	return created, nil
}

// IsRevoked reports whether jti is present.
func (r *RevocationRedis) IsRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := r.client.Exists(ctx, r.key(jti)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check revocation: %w", err)
	}
	return n > 0, nil
}

// SweepExpired is a no-op: Redis expires the keys via TTL.
func (r *RevocationRedis) SweepExpired(ctx context.Context, now time.Time) (int64, error) {
	return 0, nil
}
