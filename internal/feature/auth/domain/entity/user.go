// Package entity defines the domain entities for the auth feature.
package entity

import "time"

// User represents a registered user in the system.
type User struct {
	// ID is the unique identifier for the user.
	ID uint `gorm:"primaryKey"`

	// Email is the normalized (trimmed, lower-cased) address used for authentication.
	// It must be unique across all users.
	Email string `gorm:"uniqueIndex;size:255;not null"`

	// Nickname is the display name used in outgoing mail.
	Nickname string `gorm:"size:150;not null"`

	// Avatar is an optional path to the avatar image.
	Avatar *string `gorm:"size:512"`

	// Confirmed is set once the CONFIRM_EMAIL challenge has been consumed.
	Confirmed bool `gorm:"not null;default:false"`

	CreatedAt time.Time
	UpdatedAt time.Time
}
