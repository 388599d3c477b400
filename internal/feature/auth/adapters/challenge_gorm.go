package adapters

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"cuecards_backend/internal/feature/auth/domain/entity"
	"cuecards_backend/internal/feature/auth/usecase"
)

// challengeGorm is a SQL implementation of ChallengeStore.
type challengeGorm struct {
	db  *gorm.DB
	now func() time.Time
}

var _ usecase.ChallengeStore = (*challengeGorm)(nil)

// NewChallengeGorm creates a new instance of challengeGorm.
func NewChallengeGorm(db *gorm.DB) *challengeGorm {
	return &challengeGorm{db: db, now: time.Now}
}

// Replace upserts the single row keyed by purpose and email.
// The unique index serializes concurrent callers, so only the last code stays live.
func (r *challengeGorm) Replace(ctx context.Context, c *entity.Challenge) error {
	if c == nil {
		return errors.New("challenge is nil")
	}
	m := ChallengeModelFromEntity(c)
	m.Attempts = 0
	m.CreatedAt = r.now().UTC()
	return conn(ctx, r.db).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "purpose"}, {Name: "email"}},
			DoUpdates: clause.AssignmentColumns([]string{"code_hash", "expires_at", "attempts", "consumed_at", "created_at"}),
		}).
		Create(m).Error
}

// Consume marks the matching live challenge as consumed with a single
// conditional UPDATE. Of two concurrent callers only one sees a row affected.
// A miss counts as a failed attempt against the open challenge.
func (r *challengeGorm) Consume(ctx context.Context, purpose entity.ChallengePurpose, email, codeHash string, now time.Time) error {
	now = now.UTC()
	db := conn(ctx, r.db)
	open := db.Model(&ChallengeModel{}).
		Where("purpose = ? AND email = ? AND consumed_at IS NULL AND expires_at > ? AND attempts < ?",
			string(purpose), email, now, entity.MaxChallengeAttempts).
		Session(&gorm.Session{})

	result := open.
		Where("code_hash = ?", codeHash).
		Update("consumed_at", now)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 1 {
		return nil
	}

	err := open.Update("attempts", gorm.Expr("attempts + 1")).Error
	if err != nil {
		return err
	}
	return usecase.ErrChallengeNotFound
}

// SweepExpired deletes challenges that can no longer be consumed.
func (r *challengeGorm) SweepExpired(ctx context.Context, now time.Time) (int64, error) {
	result := conn(ctx, r.db).
		Where("expires_at <= ? OR consumed_at IS NOT NULL OR attempts >= ?", now.UTC(), entity.MaxChallengeAttempts).
		Delete(&ChallengeModel{})
	return result.RowsAffected, result.Error
}
