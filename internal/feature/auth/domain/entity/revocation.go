package entity

import "time"

// RevokedToken marks a token as unusable before its natural expiry.
// ExpiresAt is copied from the token; once it passes the entry is redundant
// and may be purged.
type RevokedToken struct {
	JTI       string    `gorm:"primaryKey;size:64"`
	ExpiresAt time.Time `gorm:"index;not null"`
	CreatedAt time.Time
}

// Expired reports whether the retention horizon has passed at now.
func (r *RevokedToken) Expired(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}

// TableName returns the table name for GORM.
func (RevokedToken) TableName() string {
	return "revoked_tokens"
}
