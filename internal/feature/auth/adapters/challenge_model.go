package adapters

import (
	"time"

	"cuecards_backend/internal/feature/auth/domain/entity"
)

// ChallengeModel is the GORM model for the challenges table.
// There is at most one row per purpose and email; issuing a new code overwrites it.
type ChallengeModel struct {
	ID         uint       `gorm:"primaryKey"`
	Purpose    string     `gorm:"size:32;not null;uniqueIndex:idx_challenges_purpose_email"`
	Email      string     `gorm:"size:255;not null;uniqueIndex:idx_challenges_purpose_email"`
	CodeHash   string     `gorm:"size:64;not null"`
	ExpiresAt  time.Time  `gorm:"index;not null"`
	Attempts   int        `gorm:"not null;default:0"`
	ConsumedAt *time.Time
	CreatedAt  time.Time
}

// TableName returns the table name for GORM.
func (ChallengeModel) TableName() string {
	return "challenges"
}

// ToEntity converts the GORM model to a domain entity.
func (m *ChallengeModel) ToEntity() *entity.Challenge {
	return &entity.Challenge{
		Purpose:   entity.ChallengePurpose(m.Purpose),
		Email:     m.Email,
		CodeHash:  m.CodeHash,
		ExpiresAt: m.ExpiresAt,
		Attempts:  m.Attempts,
		Consumed:  m.ConsumedAt != nil,
	}
}

// ChallengeModelFromEntity converts a domain entity to a GORM model.
func ChallengeModelFromEntity(c *entity.Challenge) *ChallengeModel {
	return &ChallengeModel{
		Purpose:   string(c.Purpose),
		Email:     c.Email,
		CodeHash:  c.CodeHash,
		ExpiresAt: c.ExpiresAt.UTC(),
		Attempts:  c.Attempts,
	}
}
