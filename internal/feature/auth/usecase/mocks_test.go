package usecase

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"cuecards_backend/internal/feature/auth/domain/entity"
)

var errUnexpectedCall = errors.New("unexpected call")

// mockUserRepository is a mock implementation of UserRepository.
type mockUserRepository struct {
	CreateFunc        func(ctx context.Context, user *entity.User) error
	FindByEmailFunc   func(ctx context.Context, email string) (*entity.User, error)
	FindByIDFunc      func(ctx context.Context, id uint) (*entity.User, error)
	ConfirmFunc       func(ctx context.Context, email string) error
	UpdateProfileFunc func(ctx context.Context, id uint, nickname, avatar *string) (*entity.User, error)
	DeleteFunc        func(ctx context.Context, id uint) error
}

func (m *mockUserRepository) Create(ctx context.Context, user *entity.User) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, user)
	}
	return errUnexpectedCall
}

// FindByEmail defaults to "user not found".
func (m *mockUserRepository) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	if m.FindByEmailFunc != nil {
		return m.FindByEmailFunc(ctx, email)
	}
	return nil, ErrUserNotFound
}

func (m *mockUserRepository) FindByID(ctx context.Context, id uint) (*entity.User, error) {
	if m.FindByIDFunc != nil {
		return m.FindByIDFunc(ctx, id)
	}
	return nil, ErrUserNotFound
}

func (m *mockUserRepository) Confirm(ctx context.Context, email string) error {
	if m.ConfirmFunc != nil {
		return m.ConfirmFunc(ctx, email)
	}
	return errUnexpectedCall
}

func (m *mockUserRepository) UpdateProfile(ctx context.Context, id uint, nickname, avatar *string) (*entity.User, error) {
	if m.UpdateProfileFunc != nil {
		return m.UpdateProfileFunc(ctx, id, nickname, avatar)
	}
	return nil, errUnexpectedCall
}

func (m *mockUserRepository) Delete(ctx context.Context, id uint) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, id)
	}
	return errUnexpectedCall
}

// mockCredentialRepository is a mock implementation of CredentialRepository.
type mockCredentialRepository struct {
	CreateFunc         func(ctx context.Context, userID uint, hash string) error
	UpdatePasswordFunc func(ctx context.Context, userID uint, newHash, oldHash string) (int, error)
	GetFunc            func(ctx context.Context, userID uint) (*entity.Credentials, error)
	GetVersionFunc     func(ctx context.Context, userID uint) (int, error)
	DeleteFunc         func(ctx context.Context, userID uint) error
}

func (m *mockCredentialRepository) Create(ctx context.Context, userID uint, hash string) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, userID, hash)
	}
	return errUnexpectedCall
}

func (m *mockCredentialRepository) UpdatePassword(ctx context.Context, userID uint, newHash, oldHash string) (int, error) {
	if m.UpdatePasswordFunc != nil {
		return m.UpdatePasswordFunc(ctx, userID, newHash, oldHash)
	}
	return 0, errUnexpectedCall
}

func (m *mockCredentialRepository) Get(ctx context.Context, userID uint) (*entity.Credentials, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, userID)
	}
	return nil, ErrCredentialsNotFound
}

func (m *mockCredentialRepository) GetVersion(ctx context.Context, userID uint) (int, error) {
	if m.GetVersionFunc != nil {
		return m.GetVersionFunc(ctx, userID)
	}
	return 0, ErrCredentialsNotFound
}

func (m *mockCredentialRepository) Delete(ctx context.Context, userID uint) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, userID)
	}
	return errUnexpectedCall
}

// mockRevocationRegistry is a mock implementation of RevocationRegistry.
type mockRevocationRegistry struct {
	RevokeFunc       func(ctx context.Context, jti string, expiresAt time.Time) (bool, error)
	IsRevokedFunc    func(ctx context.Context, jti string) (bool, error)
	SweepExpiredFunc func(ctx context.Context, now time.Time) (int64, error)
}

// Revoke defaults to a newly created entry.
func (m *mockRevocationRegistry) Revoke(ctx context.Context, jti string, expiresAt time.Time) (bool, error) {
	if m.RevokeFunc != nil {
		return m.RevokeFunc(ctx, jti, expiresAt)
	}
	return true, nil
}

func (m *mockRevocationRegistry) IsRevoked(ctx context.Context, jti string) (bool, error) {
	if m.IsRevokedFunc != nil {
		return m.IsRevokedFunc(ctx, jti)
	}
	return false, nil
}

func (m *mockRevocationRegistry) SweepExpired(ctx context.Context, now time.Time) (int64, error) {
	if m.SweepExpiredFunc != nil {
		return m.SweepExpiredFunc(ctx, now)
	}
	return 0, nil
}

// mockChallengeStore is a mock implementation of ChallengeStore.
type mockChallengeStore struct {
	ReplaceFunc      func(ctx context.Context, c *entity.Challenge) error
	ConsumeFunc      func(ctx context.Context, purpose entity.ChallengePurpose, email, codeHash string, now time.Time) error
	SweepExpiredFunc func(ctx context.Context, now time.Time) (int64, error)
}

func (m *mockChallengeStore) Replace(ctx context.Context, c *entity.Challenge) error {
	if m.ReplaceFunc != nil {
		return m.ReplaceFunc(ctx, c)
	}
	return nil
}

func (m *mockChallengeStore) Consume(ctx context.Context, purpose entity.ChallengePurpose, email, codeHash string, now time.Time) error {
	if m.ConsumeFunc != nil {
		return m.ConsumeFunc(ctx, purpose, email, codeHash, now)
	}
	return ErrChallengeNotFound
}

func (m *mockChallengeStore) SweepExpired(ctx context.Context, now time.Time) (int64, error) {
	if m.SweepExpiredFunc != nil {
		return m.SweepExpiredFunc(ctx, now)
	}
	return 0, nil
}

// mockTokenCodec is a mock implementation of TokenCodec.
type mockTokenCodec struct {
	IssueFunc  func(subject uint, typ entity.TokenType, version int) (string, entity.TokenClaims, error)
	VerifyFunc func(raw string, expected entity.TokenType) (entity.TokenClaims, error)
}

func (m *mockTokenCodec) Issue(subject uint, typ entity.TokenType, version int) (string, entity.TokenClaims, error) {
	if m.IssueFunc != nil {
		return m.IssueFunc(subject, typ, version)
	}
	return string(typ) + "-token", entity.TokenClaims{Subject: subject, Type: typ, CredentialVersion: version}, nil
}

func (m *mockTokenCodec) Verify(raw string, expected entity.TokenType) (entity.TokenClaims, error) {
	if m.VerifyFunc != nil {
		return m.VerifyFunc(raw, expected)
	}
	return entity.TokenClaims{}, errors.New("invalid token")
}

// mockMailer records the codes it was asked to send.
type mockMailer struct {
	SendFunc func(ctx context.Context, email, code string) error
	sent     []string
}

func (m *mockMailer) SendConfirmationEmail(ctx context.Context, email, nickname, code string, ttl time.Duration) error {
	return m.send(ctx, email, code)
}

func (m *mockMailer) SendResetPasswordEmail(ctx context.Context, email, nickname, code string, ttl time.Duration) error {
	return m.send(ctx, email, code)
}

func (m *mockMailer) send(ctx context.Context, email, code string) error {
	if m.SendFunc != nil {
		if err := m.SendFunc(ctx, email, code); err != nil {
			return err
		}
	}
	m.sent = append(m.sent, code)
	return nil
}

// passthroughTx runs fn directly.
type passthroughTx struct{}

func (passthroughTx) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// testDeps returns dependencies where every collaborator is a fresh mock.
type testDeps struct {
	users       *mockUserRepository
	credentials *mockCredentialRepository
	revocations *mockRevocationRegistry
	challenges  *mockChallengeStore
	codec       *mockTokenCodec
	mailer      *mockMailer
}

func newTestDeps() *testDeps {
	return &testDeps{
		users:       &mockUserRepository{},
		credentials: &mockCredentialRepository{},
		revocations: &mockRevocationRegistry{},
		challenges:  &mockChallengeStore{},
		codec:       &mockTokenCodec{},
		mailer:      &mockMailer{},
	}
}

func (d *testDeps) usecase() *AuthUsecase {
	return NewAuthUsecase(Dependencies{
		Users:       d.users,
		Credentials: d.credentials,
		Revocations: d.revocations,
		Challenges:  NewChallengeIssuer(d.challenges, 15*time.Minute),
		Codec:       d.codec,
		Mailer:      d.mailer,
		Tx:          passthroughTx{},
		Logger:      discardLogger(),
	}, Options{RequestTimeout: 100 * time.Millisecond, BcryptCost: 4})
}
