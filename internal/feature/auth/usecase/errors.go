// Package usecase implements the business logic for the auth feature.
package usecase

import "errors"

// Errors reported by repository implementations. The orchestrator translates
// them into domain errors before they reach a caller.
var (
	// ErrUserNotFound is returned when a user cannot be found by email or ID.
	ErrUserNotFound = errors.New("user not found")

	// ErrEmailAlreadyExists is returned when attempting to create a user with an email that already exists.
	ErrEmailAlreadyExists = errors.New("email already exists")

	// ErrCredentialsNotFound is returned when a user has no credentials row.
	ErrCredentialsNotFound = errors.New("credentials not found")

	// ErrCredentialsExist is returned when creating credentials for a user that already has them.
	ErrCredentialsExist = errors.New("credentials already exist")

	// ErrChallengeNotFound is returned when no live challenge matches a consume attempt.
	ErrChallengeNotFound = errors.New("challenge not found")
)
