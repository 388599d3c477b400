// Package challenge stores one-time codes in Redis.
package challenge

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"cuecards_backend/internal/feature/auth/domain/entity"
	"cuecards_backend/internal/feature/auth/usecase"
)

// consumeScript deletes the key when it holds the expected hash, otherwise
// counts a failed attempt and deletes the key once ARGV[2] misses are reached.
// The script runs atomically, so a code can be consumed at most once.
var consumeScript = redis.NewScript(`
local code = redis.call("HGET", KEYS[1], "code")
if not code then
	return 0
end
if code == ARGV[1] then
	redis.call("DEL", KEYS[1])
	return 1
end
if redis.call("HINCRBY", KEYS[1], "attempts", 1) >= tonumber(ARGV[2]) then
	redis.call("DEL", KEYS[1])
end
return 0
`)

// ChallengeRedis implements usecase.ChallengeStore using Redis.
// There is one key per purpose and email; storing a new code overwrites the old one.
type ChallengeRedis struct {
	client *redis.Client
	prefix string
	now    func() time.Time
}

var _ usecase.ChallengeStore = (*ChallengeRedis)(nil)

// NewChallengeRedis creates a new ChallengeRedis instance.
func NewChallengeRedis(client *redis.Client, prefix string) *ChallengeRedis {
	return &ChallengeRedis{
		client: client,
		prefix: prefix,
		now:    time.Now,
	}
}

func (r *ChallengeRedis) key(purpose entity.ChallengePurpose, email string) string {
	return fmt.Sprintf("%s:%s:%s", r.prefix, purpose, email)
}

// Replace stores the code hash with a fresh attempt counter and a TTL ending at c.ExpiresAt.
func (r *ChallengeRedis) Replace(ctx context.Context, c *entity.Challenge) error {
	if c == nil {
		return errors.New("challenge is nil")
	}
	ttl := c.ExpiresAt.Sub(r.now())
	if ttl <= 0 {
		return fmt.Errorf("challenge already expired")
	}
	key := r.key(c.Purpose, c.Email)
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, "code", c.CodeHash, "attempts", 0)
		pipe.PExpire(ctx, key, ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to store challenge: %w", err)
	}
	return nil
}

// Consume deletes the challenge if it matches codeHash. Expiry is enforced by
// the key TTL, so now is not consulted.
func (r *ChallengeRedis) Consume(ctx context.Context, purpose entity.ChallengePurpose, email, codeHash string, now time.Time) error {
	n, err := consumeScript.Run(ctx, r.client, []string{r.key(purpose, email)}, codeHash, entity.MaxChallengeAttempts).Int()
	if err != nil {
		return fmt.Errorf("failed to consume challenge: %w", err)
	}
	if n == 0 {
		return usecase.ErrChallengeNotFound
	}
	return nil
}

// SweepExpired is a no-op: Redis drops expired and consumed keys itself.
func (r *ChallengeRedis) SweepExpired(ctx context.Context, now time.Time) (int64, error) {
	return 0, nil
}
