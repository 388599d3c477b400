package entity

import "time"

// InitialCredentialVersion is the version assigned when credentials are first created.
const InitialCredentialVersion = 1

// Credentials holds the secret material of a user. There is exactly one row per user.
//
// Version only ever increases. Every access token embeds the version it was issued
// under, so bumping it invalidates all earlier tokens without enumerating them.
type Credentials struct {
	UserID           uint    `gorm:"primaryKey;autoIncrement:false"`
	PasswordHash     string  `gorm:"size:255;not null"`
	LastPasswordHash *string `gorm:"size:255"`
	Version          int     `gorm:"not null;default:1"`
	UpdatedAt        time.Time
}

// TableName pins the table name used in the version upsert expression.
func (Credentials) TableName() string {
	return "credentials"
}
