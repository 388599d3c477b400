package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"cuecards_backend/internal/feature/auth/domain"
	"cuecards_backend/internal/feature/auth/domain/entity"
)

// authStage is the furthest point a request reached in the authentication
// state machine. Any failed transition rejects the request.
type authStage string

const (
	stageUnauthenticated   authStage = "unauthenticated"
	stageTokenExtracted    authStage = "token_extracted"
	stageSignatureVerified authStage = "signature_verified"
	stageNotRevoked        authStage = "not_revoked"
	stageVersionMatched    authStage = "version_matched"
)

var (
	errMissingBearer   = errors.New("missing bearer token")
	errTokenRevoked    = errors.New("token has been revoked")
	errVersionMismatch = errors.New("credential version mismatch")
)

// BearerToken extracts the token from an Authorization header value. The
// scheme is matched case-insensitively and the header must have exactly two parts.
func BearerToken(header string) (string, bool) {
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", false
	}
	return parts[1], true
}

// Authenticate resolves the identity behind an Authorization header value.
// Signature, expiry, revocation and credential version are all checked; the
// storage lookups are bounded by the request timeout and fail closed.
func (u *AuthUsecase) Authenticate(ctx context.Context, authorization string) (entity.Identity, error) {
	token, ok := BearerToken(authorization)
	if !ok {
		return entity.Identity{}, u.reject(ctx, stageUnauthenticated, errMissingBearer)
	}

	claims, stage, err := u.verify(ctx, token, entity.TokenTypeAccess)
	if err != nil {
		return entity.Identity{}, u.reject(ctx, stage, err)
	}

	return entity.Identity{
		UserID:            claims.Subject,
		JTI:               claims.JTI,
		ExpiresAt:         claims.ExpiresAt,
		CredentialVersion: claims.CredentialVersion,
	}, nil
}

// verifyLive runs the same checks as Authenticate for a raw token of any type.
func (u *AuthUsecase) verifyLive(ctx context.Context, token string, typ entity.TokenType) (entity.TokenClaims, error) {
	claims, stage, err := u.verify(ctx, token, typ)
	if err != nil {
		return entity.TokenClaims{}, u.reject(ctx, stage, err)
	}
	return claims, nil
}

// verify walks token_extracted → signature_verified → not_revoked →
// version_matched and returns the last stage reached.
func (u *AuthUsecase) verify(ctx context.Context, token string, typ entity.TokenType) (entity.TokenClaims, authStage, error) {
	claims, err := u.codec.Verify(token, typ)
	if err != nil {
		return entity.TokenClaims{}, stageTokenExtracted, err
	}

	ctx, cancel := context.WithTimeout(ctx, u.requestTimeout)
	defer cancel()

	revoked, err := u.revocations.IsRevoked(ctx, claims.JTI)
	if err != nil {
		return entity.TokenClaims{}, stageSignatureVerified, fmt.Errorf("revocation lookup: %w", err)
	}
	if revoked {
		return entity.TokenClaims{}, stageSignatureVerified, errTokenRevoked
	}

	version, err := u.credentials.GetVersion(ctx, claims.Subject)
	if errors.Is(err, ErrCredentialsNotFound) {
		return entity.TokenClaims{}, stageNotRevoked, errVersionMismatch
	}
	if err != nil {
		return entity.TokenClaims{}, stageNotRevoked, fmt.Errorf("version lookup: %w", err)
	}
	if version != claims.CredentialVersion {
		return entity.TokenClaims{}, stageNotRevoked, errVersionMismatch
	}

	return claims, stageVersionMatched, nil
}

// reject maps a failed transition to a domain error. Lookup failures other
// than timeouts are internal; everything else is unauthorized.
func (u *AuthUsecase) reject(ctx context.Context, stage authStage, reason error) error {
	if stage == stageSignatureVerified || stage == stageNotRevoked {
		if !isAuthFailure(reason) && !errors.Is(reason, context.DeadlineExceeded) {
			return u.internal(ctx, "authentication lookup failed", reason, "stage", stage)
		}
	}
	u.logger.WarnContext(ctx, "authentication rejected", "stage", stage, "reason", reason)
	return fmt.Errorf("%w: %w", domain.ErrUnauthorized, reason)
}

func isAuthFailure(err error) bool {
	return errors.Is(err, errTokenRevoked) || errors.Is(err, errVersionMismatch)
}
