package usecase

import (
	"context"
	"time"

	"cuecards_backend/internal/feature/auth/domain/entity"
)

// Following Go convention, interfaces are defined by the consumer (usecase), not the provider (adapters).

// UserRepository abstracts the persistence layer for user entities.
type UserRepository interface {
	// Create persists a new user. Returns ErrEmailAlreadyExists on a duplicate email.
	Create(ctx context.Context, user *entity.User) error

	// FindByEmail returns ErrUserNotFound if no user matches.
	FindByEmail(ctx context.Context, email string) (*entity.User, error)

	// FindByID returns ErrUserNotFound if no user matches.
	FindByID(ctx context.Context, id uint) (*entity.User, error)

	// Confirm marks the user with the given email as confirmed.
	Confirm(ctx context.Context, email string) error

	// UpdateProfile sets the non-nil fields and returns the updated user.
	// Returns ErrUserNotFound if no user matches.
	UpdateProfile(ctx context.Context, id uint, nickname, avatar *string) (*entity.User, error)

	// Delete removes the user. Returns ErrUserNotFound if nothing was deleted.
	Delete(ctx context.Context, id uint) error
}

// CredentialRepository is the credential store.
type CredentialRepository interface {
	// Create inserts credentials with version 1. Returns ErrCredentialsExist on a duplicate.
	Create(ctx context.Context, userID uint, passwordHash string) error

	// UpdatePassword atomically bumps the version and rotates the hashes,
	// inserting the row if absent. It returns the resulting version.
	UpdatePassword(ctx context.Context, userID uint, newHash, oldHash string) (int, error)

	// Get returns ErrCredentialsNotFound if the user has no credentials.
	Get(ctx context.Context, userID uint) (*entity.Credentials, error)

	// GetVersion returns the current credential version.
	GetVersion(ctx context.Context, userID uint) (int, error)

	// Delete removes the credentials of a user.
	Delete(ctx context.Context, userID uint) error
}

// RevocationRegistry is the set of tokens revoked before natural expiry.
type RevocationRegistry interface {
	// Revoke is idempotent. It reports true only to the call that created the
	// entry; an already revoked or already expired token yields false.
	Revoke(ctx context.Context, jti string, expiresAt time.Time) (bool, error)

	// IsRevoked must observe every Revoke that returned before it was called.
	IsRevoked(ctx context.Context, jti string) (bool, error)

	// SweepExpired deletes entries whose expiry is at or before now and
	// returns how many were removed.
	SweepExpired(ctx context.Context, now time.Time) (int64, error)
}

// ChallengeStore persists one-time codes.
type ChallengeStore interface {
	// Replace invalidates any live challenge with the same purpose and email
	// and stores c with a fresh attempt counter. Concurrent calls leave
	// exactly one live challenge.
	Replace(ctx context.Context, c *entity.Challenge) error

	// Consume atomically marks the live challenge matching purpose, email and
	// codeHash as consumed. Returns ErrChallengeNotFound if there is none.
	// A miss counts against the open challenge, which stops accepting any code
	// after entity.MaxChallengeAttempts misses.
	Consume(ctx context.Context, purpose entity.ChallengePurpose, email, codeHash string, now time.Time) error

	// SweepExpired deletes challenges that can no longer be consumed and
	// returns how many were removed.
	SweepExpired(ctx context.Context, now time.Time) (int64, error)
}

// TokenCodec signs and verifies bearer tokens.
type TokenCodec interface {
	Issue(subject uint, typ entity.TokenType, credentialVersion int) (string, entity.TokenClaims, error)
	Verify(raw string, expected entity.TokenType) (entity.TokenClaims, error)
}

// Mailer delivers one-time codes. ttl is rendered for the reader.
type Mailer interface {
	SendConfirmationEmail(ctx context.Context, email, nickname, code string, ttl time.Duration) error
	SendResetPasswordEmail(ctx context.Context, email, nickname, code string, ttl time.Duration) error
}

// Transactor runs fn in a single storage transaction. Repositories called
// with the ctx passed to fn take part in it.
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
