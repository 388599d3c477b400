package entity

import "time"

// ChallengePurpose identifies what a one-time code authorizes.
type ChallengePurpose string

const (
	PurposeConfirmEmail  ChallengePurpose = "confirm_email"
	PurposeResetPassword ChallengePurpose = "reset_password"
)

// MaxChallengeAttempts is the number of wrong codes a challenge tolerates.
// Reaching it burns the challenge even for the correct code.
const MaxChallengeAttempts = 5

// Challenge is a one-time, time-boxed proof of email control.
// Only the SHA-256 hash of the code is stored.
type Challenge struct {
	Purpose   ChallengePurpose
	Email     string
	CodeHash  string
	ExpiresAt time.Time
	Attempts  int
	Consumed  bool
}

// Live reports whether the challenge can still be consumed at now.
func (c *Challenge) Live(now time.Time) bool {
	return !c.Consumed && c.Attempts < MaxChallengeAttempts && now.Before(c.ExpiresAt)
}
