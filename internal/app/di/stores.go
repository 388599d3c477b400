// Package di provides dependency injection factories for creating application components.
package di

import (
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	authadapters "cuecards_backend/internal/feature/auth/adapters"
	"cuecards_backend/internal/feature/auth/usecase"
	"cuecards_backend/internal/platform/challenge"
	"cuecards_backend/internal/platform/revocation"
)

const (
	revocationPrefix = "revoked"
	challengePrefix  = "challenge"
)

// NewRevocationRegistry creates a RevocationRegistry implementation.
// If Redis is available, it returns a Redis-backed implementation.
// Otherwise, it falls back to the SQL database.
func NewRevocationRegistry(rdb *redis.Client, db *gorm.DB) usecase.RevocationRegistry {
	if rdb != nil {
		return revocation.NewRevocationRedis(rdb, revocationPrefix)
	}
	return authadapters.NewRevocationGorm(db)
}

// NewChallengeStore creates a ChallengeStore implementation, preferring Redis
// the same way NewRevocationRegistry does.
func NewChallengeStore(rdb *redis.Client, db *gorm.DB) usecase.ChallengeStore {
	if rdb != nil {
		return challenge.NewChallengeRedis(rdb, challengePrefix)
	}
	return authadapters.NewChallengeGorm(db)
}
