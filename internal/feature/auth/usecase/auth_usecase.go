// Package usecase はauthフィーチャーのビジネスロジックを実装します。
package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"cuecards_backend/internal/feature/auth/domain"
	"cuecards_backend/internal/feature/auth/domain/entity"
)

// Dependencies are the collaborators of AuthUsecase. All are required.
type Dependencies struct {
	Users       UserRepository
	Credentials CredentialRepository
	Revocations RevocationRegistry
	Challenges  *ChallengeIssuer
	Codec       TokenCodec
	Mailer      Mailer
	Tx          Transactor
	Logger      *slog.Logger
}

// Options tune AuthUsecase. Zero values fall back to defaults.
type Options struct {
	// RequestTimeout bounds the revocation and version lookups of Authenticate.
	RequestTimeout time.Duration
	// BcryptCost is the cost used for new password hashes.
	BcryptCost int
}

// AuthUsecase orchestrates registration, login, request authentication and
// the credential lifecycle.
type AuthUsecase struct {
	users          UserRepository
	credentials    CredentialRepository
	revocations    RevocationRegistry
	challenges     *ChallengeIssuer
	codec          TokenCodec
	mailer         Mailer
	tx             Transactor
	logger         *slog.Logger
	requestTimeout time.Duration
	bcryptCost     int
}

// NewAuthUsecase はAuthUsecaseの新しいインスタンスを生成します。
func NewAuthUsecase(deps Dependencies, opts Options) *AuthUsecase {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 2 * time.Second
	}
	if opts.BcryptCost == 0 {
		opts.BcryptCost = bcrypt.DefaultCost
	}
	return &AuthUsecase{
		users:          deps.Users,
		credentials:    deps.Credentials,
		revocations:    deps.Revocations,
		challenges:     deps.Challenges,
		codec:          deps.Codec,
		mailer:         deps.Mailer,
		tx:             deps.Tx,
		logger:         deps.Logger,
		requestTimeout: opts.RequestTimeout,
		bcryptCost:     opts.BcryptCost,
	}
}

// NormalizeEmail trims and lower-cases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// internal logs err with context and returns domain.ErrInternal so that no
// storage or mail detail reaches the caller.
func (u *AuthUsecase) internal(ctx context.Context, msg string, err error, args ...any) error {
	u.logger.ErrorContext(ctx, msg, append(args, "error", err)...)
	return domain.ErrInternal
}

// Register creates a user with version 1 credentials and mails a confirmation code.
func (u *AuthUsecase) Register(ctx context.Context, email, nickname, password string) (uint, error) {
	email = NormalizeEmail(email)
	if err := validatePassword(password); err != nil {
		return 0, err
	}

	hash, err := u.hashPassword(password)
	if err != nil {
		return 0, u.internal(ctx, "register: hash password", err, "email", email)
	}

	user := &entity.User{Email: email, Nickname: strings.TrimSpace(nickname)}
	err = u.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := u.users.Create(ctx, user); err != nil {
			return err
		}
		return u.credentials.Create(ctx, user.ID, hash)
	})
	if errors.Is(err, ErrEmailAlreadyExists) {
		return 0, domain.ErrDuplicateEmail
	}
	if err != nil {
		return 0, u.internal(ctx, "register: create user", err, "email", email)
	}

	if err := u.sendConfirmation(ctx, user); err != nil {
		return user.ID, err
	}
	u.logger.InfoContext(ctx, "user registered", "user_id", user.ID)
	return user.ID, nil
}

// ResendConfirmation issues a fresh confirmation code. Unknown or already
// confirmed addresses succeed silently so that callers cannot enumerate accounts.
func (u *AuthUsecase) ResendConfirmation(ctx context.Context, email string) error {
	email = NormalizeEmail(email)
	user, err := u.users.FindByEmail(ctx, email)
	if errors.Is(err, ErrUserNotFound) {
		return nil
	}
	if err != nil {
		return u.internal(ctx, "resend confirmation: find user", err, "email", email)
	}
	if user.Confirmed {
		return nil
	}
	return u.sendConfirmation(ctx, user)
}

func (u *AuthUsecase) sendConfirmation(ctx context.Context, user *entity.User) error {
	code, err := u.challenges.Issue(ctx, entity.PurposeConfirmEmail, user.Email)
	if err != nil {
		return u.internal(ctx, "issue confirmation code", err, "user_id", user.ID)
	}
	if err := u.mailer.SendConfirmationEmail(ctx, user.Email, user.Nickname, code, u.challenges.TTL()); err != nil {
		return u.internal(ctx, "send confirmation email", err, "user_id", user.ID)
	}
	return nil
}

// ConfirmEmail consumes the confirmation code and marks the user confirmed.
// Both happen in one transaction, so a code cannot be replayed by a
// concurrent caller.
func (u *AuthUsecase) ConfirmEmail(ctx context.Context, email, code string) error {
	email = NormalizeEmail(email)
	err := u.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if _, err := u.challenges.Consume(ctx, entity.PurposeConfirmEmail, email, code); err != nil {
			return err
		}
		return u.users.Confirm(ctx, email)
	})
	switch {
	case err == nil:
		return nil
	case errors.Is(err, domain.ErrInvalidCode), errors.Is(err, ErrUserNotFound):
		return domain.ErrInvalidCode
	default:
		return u.internal(ctx, "confirm email", err, "email", email)
	}
}

// Login verifies the password and issues an access and a refresh token
// bound to the current credential version.
// タイミング攻撃を防止するため、ユーザーが存在しない場合でもbcrypt比較を実行します。
func (u *AuthUsecase) Login(ctx context.Context, email, password string) (entity.TokenPair, error) {
	email = NormalizeEmail(email)

	user, err := u.users.FindByEmail(ctx, email)
	if err != nil && !errors.Is(err, ErrUserNotFound) {
		return entity.TokenPair{}, u.internal(ctx, "login: find user", err, "email", email)
	}

	passwordHash := dummyHash
	var creds *entity.Credentials
	if user != nil {
		creds, err = u.credentials.Get(ctx, user.ID)
		switch {
		case err == nil:
			passwordHash = creds.PasswordHash
		case errors.Is(err, ErrCredentialsNotFound):
			creds = nil
		default:
			return entity.TokenPair{}, u.internal(ctx, "login: load credentials", err, "user_id", user.ID)
		}
	}

	// Always compare, then decide.
	matched := passwordMatches(passwordHash, password)
	if user == nil || creds == nil || !matched {
		return entity.TokenPair{}, domain.ErrInvalidCredentials
	}
	if !user.Confirmed {
		return entity.TokenPair{}, domain.ErrUnconfirmedEmail
	}

	pair, err := u.issuePair(user.ID, creds.Version)
	if err != nil {
		return entity.TokenPair{}, u.internal(ctx, "login: issue tokens", err, "user_id", user.ID)
	}
	return pair, nil
}

func (u *AuthUsecase) issuePair(userID uint, version int) (entity.TokenPair, error) {
	access, accessClaims, err := u.codec.Issue(userID, entity.TokenTypeAccess, version)
	if err != nil {
		return entity.TokenPair{}, fmt.Errorf("failed to generate access token: %w", err)
	}
	refresh, refreshClaims, err := u.codec.Issue(userID, entity.TokenTypeRefresh, version)
	if err != nil {
		return entity.TokenPair{}, fmt.Errorf("failed to generate refresh token: %w", err)
	}
	return entity.TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresAt:  accessClaims.ExpiresAt,
		RefreshExpiresAt: refreshClaims.ExpiresAt,
	}, nil
}

// Refresh rotates a refresh token: the presented one is revoked and a new
// pair is issued under the current credential version. Only the caller that
// actually revokes the token gets a pair; a concurrent replay is rejected.
func (u *AuthUsecase) Refresh(ctx context.Context, refreshToken string) (entity.TokenPair, error) {
	claims, err := u.verifyLive(ctx, strings.TrimSpace(refreshToken), entity.TokenTypeRefresh)
	if err != nil {
		return entity.TokenPair{}, err
	}

	created, err := u.revocations.Revoke(ctx, claims.JTI, claims.ExpiresAt)
	if err != nil {
		return entity.TokenPair{}, u.internal(ctx, "refresh: revoke presented token", err, "user_id", claims.Subject)
	}
	if !created {
		u.logger.WarnContext(ctx, "refresh: token already rotated", "user_id", claims.Subject, "jti", claims.JTI)
		return entity.TokenPair{}, domain.ErrUnauthorized
	}

	pair, err := u.issuePair(claims.Subject, claims.CredentialVersion)
	if err != nil {
		return entity.TokenPair{}, u.internal(ctx, "refresh: issue tokens", err, "user_id", claims.Subject)
	}
	return pair, nil
}

// Logout revokes the access token of identity until its own expiry. A refresh
// token belonging to the same user is revoked as well; anything else in
// refreshToken is ignored.
func (u *AuthUsecase) Logout(ctx context.Context, identity entity.Identity, refreshToken string) error {
	if _, err := u.revocations.Revoke(ctx, identity.JTI, identity.ExpiresAt); err != nil {
		return u.internal(ctx, "logout: revoke access token", err, "user_id", identity.UserID)
	}

	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		return nil
	}
	claims, err := u.codec.Verify(refreshToken, entity.TokenTypeRefresh)
	if err != nil || claims.Subject != identity.UserID {
		u.logger.WarnContext(ctx, "logout: refresh token ignored", "user_id", identity.UserID, "error", err)
		return nil
	}
	if _, err := u.revocations.Revoke(ctx, claims.JTI, claims.ExpiresAt); err != nil {
		return u.internal(ctx, "logout: revoke refresh token", err, "user_id", identity.UserID)
	}
	return nil
}

// ChangePassword replaces the password of identity. The version bump makes
// every token issued before the change fail authentication.
func (u *AuthUsecase) ChangePassword(ctx context.Context, identity entity.Identity, oldPassword, newPassword string) error {
	creds, err := u.credentials.Get(ctx, identity.UserID)
	if errors.Is(err, ErrCredentialsNotFound) {
		return domain.ErrUnauthorized
	}
	if err != nil {
		return u.internal(ctx, "change password: load credentials", err, "user_id", identity.UserID)
	}

	if !passwordMatches(creds.PasswordHash, oldPassword) {
		return domain.ErrInvalidCredentials
	}
	if err := validatePassword(newPassword); err != nil {
		return err
	}
	if err := verifyNotReused(creds, newPassword); err != nil {
		return err
	}

	return u.updatePassword(ctx, identity.UserID, newPassword, creds.PasswordHash)
}

func (u *AuthUsecase) updatePassword(ctx context.Context, userID uint, newPassword, oldHash string) error {
	hash, err := u.hashPassword(newPassword)
	if err != nil {
		return u.internal(ctx, "hash password", err, "user_id", userID)
	}
	version, err := u.credentials.UpdatePassword(ctx, userID, hash, oldHash)
	if err != nil {
		return u.internal(ctx, "update password", err, "user_id", userID)
	}
	u.logger.InfoContext(ctx, "password updated", "user_id", userID, "credential_version", version)
	return nil
}

// ForgotPassword mails a reset code. Unknown addresses succeed silently.
func (u *AuthUsecase) ForgotPassword(ctx context.Context, email string) error {
	email = NormalizeEmail(email)
	user, err := u.users.FindByEmail(ctx, email)
	if errors.Is(err, ErrUserNotFound) {
		u.logger.InfoContext(ctx, "password reset requested for unknown email")
		return nil
	}
	if err != nil {
		return u.internal(ctx, "forgot password: find user", err, "email", email)
	}

	code, err := u.challenges.Issue(ctx, entity.PurposeResetPassword, user.Email)
	if err != nil {
		return u.internal(ctx, "issue reset code", err, "user_id", user.ID)
	}
	if err := u.mailer.SendResetPasswordEmail(ctx, user.Email, user.Nickname, code, u.challenges.TTL()); err != nil {
		return u.internal(ctx, "send reset password email", err, "user_id", user.ID)
	}
	return nil
}

// ResetPassword consumes a reset code and sets a new password in one
// transaction. A reused password rolls the consumption back.
func (u *AuthUsecase) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	email = NormalizeEmail(email)
	if err := validatePassword(newPassword); err != nil {
		return err
	}

	err := u.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if _, err := u.challenges.Consume(ctx, entity.PurposeResetPassword, email, code); err != nil {
			return err
		}
		user, err := u.users.FindByEmail(ctx, email)
		if err != nil {
			return err
		}

		var oldHash string
		creds, err := u.credentials.Get(ctx, user.ID)
		switch {
		case err == nil:
			oldHash = creds.PasswordHash
		case errors.Is(err, ErrCredentialsNotFound):
			creds = nil
		default:
			return err
		}
		if err := verifyNotReused(creds, newPassword); err != nil {
			return err
		}
		return u.updatePassword(ctx, user.ID, newPassword, oldHash)
	})
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrUserNotFound):
		return domain.ErrInvalidCode
	case errors.Is(err, domain.ErrInvalidCode), errors.Is(err, domain.ErrPasswordReused), errors.Is(err, domain.ErrInternal):
		return err
	default:
		return u.internal(ctx, "reset password", err, "email", email)
	}
}

// Me returns the user behind identity.
func (u *AuthUsecase) Me(ctx context.Context, identity entity.Identity) (*entity.User, error) {
	user, err := u.users.FindByID(ctx, identity.UserID)
	if errors.Is(err, ErrUserNotFound) {
		return nil, domain.ErrUnauthorized
	}
	if err != nil {
		return nil, u.internal(ctx, "me: find user", err, "user_id", identity.UserID)
	}
	return user, nil
}

// UpdateProfile changes the nickname and avatar of identity. Nil fields are
// left as they are; an empty avatar clears it.
func (u *AuthUsecase) UpdateProfile(ctx context.Context, identity entity.Identity, nickname, avatar *string) (*entity.User, error) {
	if nickname != nil {
		trimmed := strings.TrimSpace(*nickname)
		nickname = &trimmed
	}
	user, err := u.users.UpdateProfile(ctx, identity.UserID, nickname, avatar)
	if errors.Is(err, ErrUserNotFound) {
		return nil, domain.ErrUnauthorized
	}
	if err != nil {
		return nil, u.internal(ctx, "update profile", err, "user_id", identity.UserID)
	}
	return user, nil
}

// DeleteAccount removes the user together with its credentials and revokes
// the presented token.
func (u *AuthUsecase) DeleteAccount(ctx context.Context, identity entity.Identity) error {
	err := u.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := u.credentials.Delete(ctx, identity.UserID); err != nil {
			return err
		}
		return u.users.Delete(ctx, identity.UserID)
	})
	if errors.Is(err, ErrUserNotFound) {
		return domain.ErrUnauthorized
	}
	if err != nil {
		return u.internal(ctx, "delete account", err, "user_id", identity.UserID)
	}

	if _, err := u.revocations.Revoke(ctx, identity.JTI, identity.ExpiresAt); err != nil {
		return u.internal(ctx, "delete account: revoke token", err, "user_id", identity.UserID)
	}
	u.logger.InfoContext(ctx, "account deleted", "user_id", identity.UserID)
	return nil
}
