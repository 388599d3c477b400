package adapters

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"cuecards_backend/internal/feature/auth/domain/entity"
	"cuecards_backend/internal/feature/auth/usecase"
)

// revocationGorm is a SQL implementation of RevocationRegistry, used when Redis is not available.
type revocationGorm struct {
	db  *gorm.DB
	now func() time.Time
}

// Compile-time check to ensure revocationGorm implements RevocationRegistry.
var _ usecase.RevocationRegistry = (*revocationGorm)(nil)

// NewRevocationGorm creates a new instance of revocationGorm.
func NewRevocationGorm(db *gorm.DB) *revocationGorm {
	return &revocationGorm{db: db, now: time.Now}
}

// Revoke records jti until expiresAt and reports whether this call inserted the row.
// Revoking twice keeps the first entry and returns false.
func (r *revocationGorm) Revoke(ctx context.Context, jti string, expiresAt time.Time) (bool, error) {
	if !expiresAt.After(r.now()) {
		return false, nil
	}
	result := conn(ctx, r.db).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&entity.RevokedToken{JTI: jti, ExpiresAt: expiresAt.UTC()})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// IsRevoked reports whether jti has an entry.
func (r *revocationGorm) IsRevoked(ctx context.Context, jti string) (bool, error) {
	var count int64
	err := conn(ctx, r.db).
		Model(&entity.RevokedToken{}).
		Where("jti = ?", jti).
		Count(&count).Error
	return count > 0, err
}

// SweepExpired removes all entries past their expiry.
func (r *revocationGorm) SweepExpired(ctx context.Context, now time.Time) (int64, error) {
	result := conn(ctx, r.db).
		Where("expires_at <= ?", now.UTC()).
		Delete(&entity.RevokedToken{})
	return result.RowsAffected, result.Error
}
