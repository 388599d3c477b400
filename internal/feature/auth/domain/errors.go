// Package domain defines domain-level errors for the auth feature.
package domain

import "errors"

// Kind classifies every failure the auth flows can surface to a caller.
type Kind string

const (
	KindUnauthorized          Kind = "UNAUTHORIZED"
	KindInvalidCredentials    Kind = "INVALID_CREDENTIALS"
	KindUnconfirmedEmail      Kind = "UNCONFIRMED_EMAIL"
	KindDuplicateEmail        Kind = "DUPLICATE_EMAIL"
	KindPasswordReused        Kind = "PASSWORD_REUSED"
	KindInvalidPasswordFormat Kind = "INVALID_PASSWORD_FORMAT"
	KindInvalidCode           Kind = "INVALID_CODE"
	KindInternal              Kind = "INTERNAL"
)

// Domain errors for authentication operations.
// Upper layers match them with errors.Is; details may be wrapped around them with %w.
var (
	// ErrUnauthorized covers a missing, malformed, invalid, expired, revoked or
	// version-mismatched token.
	ErrUnauthorized = errors.New("user is not authorised")

	// ErrInvalidCredentials indicates that the provided email or password is incorrect.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrUnconfirmedEmail is returned on login before the confirmation code was consumed.
	ErrUnconfirmedEmail = errors.New("unconfirmed email")

	// ErrDuplicateEmail is returned during registration when the email is taken.
	ErrDuplicateEmail = errors.New("this email address is already occupied")

	// ErrPasswordReused is returned when the new password matches a previous one.
	ErrPasswordReused = errors.New("you already used this password before")

	// ErrInvalidPasswordFormat is returned when a password does not meet the format rules.
	ErrInvalidPasswordFormat = errors.New("password requires a lowercase letter, an uppercase letter, and a number")

	// ErrInvalidCode is returned for a wrong, expired or already consumed challenge code.
	ErrInvalidCode = errors.New("invalid code")

	// ErrInternal hides collaborator failures (storage, mail) from callers.
	ErrInternal = errors.New("internal error")
)

var kinds = []struct {
	err  error
	kind Kind
}{
	{ErrUnauthorized, KindUnauthorized},
	{ErrInvalidCredentials, KindInvalidCredentials},
	{ErrUnconfirmedEmail, KindUnconfirmedEmail},
	{ErrDuplicateEmail, KindDuplicateEmail},
	{ErrPasswordReused, KindPasswordReused},
	{ErrInvalidPasswordFormat, KindInvalidPasswordFormat},
	{ErrInvalidCode, KindInvalidCode},
	{ErrInternal, KindInternal},
}

// KindOf returns the kind of err. Anything outside the taxonomy is KindInternal.
func KindOf(err error) Kind {
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return KindInternal
}
