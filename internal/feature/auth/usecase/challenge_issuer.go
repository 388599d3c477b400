package usecase

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"cuecards_backend/internal/feature/auth/domain"
	"cuecards_backend/internal/feature/auth/domain/entity"
)

const (
	// codeLength is the number of decimal digits in a challenge code.
	codeLength = 6
	// defaultCodeTTL applies when no TTL is configured.
	defaultCodeTTL = 15 * time.Minute
)

// ChallengeIssuer generates and consumes one-time codes for email
// confirmation and password reset.
type ChallengeIssuer struct {
	store ChallengeStore
	ttl   time.Duration
	now   func() time.Time
}

// NewChallengeIssuer creates a ChallengeIssuer. A non-positive ttl falls back to 15 minutes.
func NewChallengeIssuer(store ChallengeStore, ttl time.Duration) *ChallengeIssuer {
	if ttl <= 0 {
		ttl = defaultCodeTTL
	}
	return &ChallengeIssuer{store: store, ttl: ttl, now: time.Now}
}

// TTL returns how long issued codes stay valid.
func (i *ChallengeIssuer) TTL() time.Duration {
	return i.ttl
}

// Issue creates a new code for purpose and email, replacing any live one.
func (i *ChallengeIssuer) Issue(ctx context.Context, purpose entity.ChallengePurpose, email string) (string, error) {
	code, err := generateCode(codeLength)
	if err != nil {
		return "", err
	}

	c := &entity.Challenge{
		Purpose:   purpose,
		Email:     email,
		CodeHash:  hashCode(code),
		ExpiresAt: i.now().Add(i.ttl),
	}
	if err := i.store.Replace(ctx, c); err != nil {
		return "", fmt.Errorf("failed to store challenge: %w", err)
	}
	return code, nil
}

// Consume accepts code at most once and before it expires. On success it
// returns the email the challenge was issued for.
func (i *ChallengeIssuer) Consume(ctx context.Context, purpose entity.ChallengePurpose, email, code string) (string, error) {
	code = strings.TrimSpace(code)
	if len(code) != codeLength {
		return "", domain.ErrInvalidCode
	}

	err := i.store.Consume(ctx, purpose, email, hashCode(code), i.now())
	if errors.Is(err, ErrChallengeNotFound) {
		return "", domain.ErrInvalidCode
	}
	if err != nil {
		return "", fmt.Errorf("failed to consume challenge: %w", err)
	}
	return email, nil
}

// generateCode returns n random decimal digits.
func generateCode(n int) (string, error) {
	var b strings.Builder
	b.Grow(n)
	ten := big.NewInt(10)
	for range n {
		d, err := rand.Int(rand.Reader, ten)
		if err != nil {
			return "", fmt.Errorf("failed to generate code: %w", err)
		}
		b.WriteByte(byte('0' + d.Int64()))
	}
	return b.String(), nil
}

// hashCode returns the hex SHA-256 of code; only hashes are persisted.
func hashCode(code string) string {
	sum := sha256.Sum256([]byte(code))
	return hex.EncodeToString(sum[:])
}
