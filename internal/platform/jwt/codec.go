// Package jwtmw provides the bearer token codec and the Gin authentication middleware.
package jwtmw

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"cuecards_backend/internal/feature/auth/domain/entity"
	"cuecards_backend/internal/feature/auth/usecase"
)

// Verification failures reported by Codec.Verify.
var (
	// ErrInvalidSignature covers a bad signature, a malformed token or an unexpected algorithm.
	ErrInvalidSignature = errors.New("invalid token signature")
	// ErrTokenExpired is returned when now >= exp.
	ErrTokenExpired = errors.New("token expired")
	// ErrWrongTokenType is returned when the typ claim differs from the expected type.
	ErrWrongTokenType = errors.New("wrong token type")
)

// claims is the wire form of a token.
type claims struct {
	jwt.RegisteredClaims
	Type    entity.TokenType `json:"typ"`
	Version int              `json:"ver"`
}

// Codec signs and verifies HS256 tokens. It is immutable after construction
// and safe for concurrent use.
type Codec struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

var _ usecase.TokenCodec = (*Codec)(nil)

// NewCodec creates a Codec with the given signing secret and per-type TTLs.
func NewCodec(secret string, accessTTL, refreshTTL time.Duration) *Codec {
	return &Codec{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
}

// WithClock returns a copy of c that reads the time from now.
func (c *Codec) WithClock(now func() time.Time) *Codec {
	cp := *c
	cp.now = now
	return &cp
}

func (c *Codec) ttl(typ entity.TokenType) time.Duration {
	if typ == entity.TokenTypeRefresh {
		return c.refreshTTL
	}
	return c.accessTTL
}

// Issue builds a signed token for subject with a fresh jti.
func (c *Codec) Issue(subject uint, typ entity.TokenType, credentialVersion int) (string, entity.TokenClaims, error) {
	if !typ.Valid() {
		return "", entity.TokenClaims{}, fmt.Errorf("unknown token type %q", typ)
	}

	// NumericDate has second precision; truncate so the returned claims match the wire.
	now := c.now().Truncate(time.Second)
	out := entity.TokenClaims{
		Subject:           subject,
		JTI:               uuid.NewString(),
		Type:              typ,
		CredentialVersion: credentialVersion,
		IssuedAt:          now,
		ExpiresAt:         now.Add(c.ttl(typ)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(subject), 10),
			ID:        out.JTI,
			IssuedAt:  jwt.NewNumericDate(out.IssuedAt),
			ExpiresAt: jwt.NewNumericDate(out.ExpiresAt),
		},
		Type:    typ,
		Version: credentialVersion,
	})

	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", entity.TokenClaims{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, out, nil
}

// Verify checks signature, expiry and type of raw and returns its claims.
func (c *Codec) Verify(raw string, expected entity.TokenType) (entity.TokenClaims, error) {
	var cl claims
	_, err := jwt.ParseWithClaims(raw, &cl, func(t *jwt.Token) (interface{}, error) {
		return c.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return entity.TokenClaims{}, ErrTokenExpired
		}
		return entity.TokenClaims{}, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	if cl.Type != expected {
		return entity.TokenClaims{}, fmt.Errorf("%w: got %q, want %q", ErrWrongTokenType, cl.Type, expected)
	}

	subject, err := strconv.ParseUint(cl.Subject, 10, 0)
	if err != nil || subject == 0 || cl.ID == "" {
		return entity.TokenClaims{}, fmt.Errorf("%w: missing subject or jti", ErrInvalidSignature)
	}

	out := entity.TokenClaims{
		Subject:           uint(subject),
		JTI:               cl.ID,
		Type:              cl.Type,
		CredentialVersion: cl.Version,
		ExpiresAt:         cl.ExpiresAt.Time,
	}
	if cl.IssuedAt != nil {
		out.IssuedAt = cl.IssuedAt.Time
	}
	return out, nil
}
