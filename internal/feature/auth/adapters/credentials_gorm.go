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

// credentialsGorm is the GORM implementation of CredentialRepository.
// Version bumps are done by the database, never read-modify-write in Go.
type credentialsGorm struct {
	db  *gorm.DB
	now func() time.Time
}

var _ usecase.CredentialRepository = (*credentialsGorm)(nil)

// NewCredentialsGorm creates a new instance of credentialsGorm.
func NewCredentialsGorm(db *gorm.DB) *credentialsGorm {
	return &credentialsGorm{db: db, now: time.Now}
}

// Create inserts version 1 credentials for userID.
func (r *credentialsGorm) Create(ctx context.Context, userID uint, passwordHash string) error {
	creds := &entity.Credentials{
		UserID:       userID,
		PasswordHash: passwordHash,
		Version:      entity.InitialCredentialVersion,
	}
	if err := conn(ctx, r.db).Create(creds).Error; err != nil {
		if isDuplicateKey(err) {
			return usecase.ErrCredentialsExist
		}
		return err
	}
	return nil
}

// UpdatePassword sets newHash as the current hash and oldHash as the last one.
//
//	INSERT ... ON CONFLICT (user_id) DO UPDATE SET version = credentials.version + 1, ...
//
// Concurrent callers each get a distinct version; the row is created at version 1 if absent.
func (r *credentialsGorm) UpdatePassword(ctx context.Context, userID uint, newHash, oldHash string) (int, error) {
	var last *string
	if oldHash != "" {
		last = &oldHash
	}
	now := r.now()

	var version int
	err := conn(ctx, r.db).Transaction(func(tx *gorm.DB) error {
		row := &entity.Credentials{
			UserID:           userID,
			PasswordHash:     newHash,
			LastPasswordHash: last,
			Version:          entity.InitialCredentialVersion,
			UpdatedAt:        now,
		}
		err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.Assignments(map[string]any{
				"password_hash":      newHash,
				"last_password_hash": last,
				"version":            gorm.Expr("credentials.version + 1"),
				"updated_at":         now,
			}),
		}).Create(row).Error
		if err != nil {
			return err
		}
		return tx.Model(&entity.Credentials{}).
			Where("user_id = ?", userID).
			Select("version").
			Scan(&version).Error
	})
	if err != nil {
		return 0, err
	}
	return version, nil
}

// Get returns the credentials of userID.
func (r *credentialsGorm) Get(ctx context.Context, userID uint) (*entity.Credentials, error) {
	var creds entity.Credentials
	if err := conn(ctx, r.db).Where("user_id = ?", userID).First(&creds).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, usecase.ErrCredentialsNotFound
		}
		return nil, err
	}
	return &creds, nil
}

// GetVersion reads only the version column. It is hit on every authenticated request.
func (r *credentialsGorm) GetVersion(ctx context.Context, userID uint) (int, error) {
	var versions []int
	err := conn(ctx, r.db).
		Model(&entity.Credentials{}).
		Where("user_id = ?", userID).
		Limit(1).
		Pluck("version", &versions).Error
	if err != nil {
		return 0, err
	}
	if len(versions) == 0 {
		return 0, usecase.ErrCredentialsNotFound
	}
	return versions[0], nil
}

// Delete removes the credentials of userID. Deleting a missing row is not an error.
func (r *credentialsGorm) Delete(ctx context.Context, userID uint) error {
	return conn(ctx, r.db).Where("user_id = ?", userID).Delete(&entity.Credentials{}).Error
}
