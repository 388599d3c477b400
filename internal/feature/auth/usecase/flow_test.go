package usecase_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"cuecards_backend/internal/feature/auth/adapters"
	"cuecards_backend/internal/feature/auth/domain"
	"cuecards_backend/internal/feature/auth/domain/entity"
	"cuecards_backend/internal/feature/auth/usecase"
	jwtmw "cuecards_backend/internal/platform/jwt"
)

const testSecret = "0123456789abcdef0123456789abcdef"

// clock is a manually advanced time source shared by the codec.
type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// inbox captures the last code mailed to each address.
type inbox struct {
	mu    sync.Mutex
	codes map[string]string
}

func (i *inbox) SendConfirmationEmail(ctx context.Context, email, nickname, code string, ttl time.Duration) error {
	return i.put(email, code)
}

func (i *inbox) SendResetPasswordEmail(ctx context.Context, email, nickname, code string, ttl time.Duration) error {
	return i.put(email, code)
}

func (i *inbox) put(email, code string) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.codes[email] = code
	return nil
}

func (i *inbox) code(t *testing.T, email string) string {
	t.Helper()
	i.mu.Lock()
	defer i.mu.Unlock()
	code, ok := i.codes[email]
	require.True(t, ok, "no code mailed to %s", email)
	return code
}

type harness struct {
	db          *gorm.DB
	auth        *usecase.AuthUsecase
	revocations usecase.RevocationRegistry
	challenges  usecase.ChallengeStore
	credentials usecase.CredentialRepository
	clock       *clock
	inbox       *inbox
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(&entity.User{}, &entity.Credentials{}, &entity.RevokedToken{}, &adapters.ChallengeModel{}))

	clk := &clock{t: time.Now()}
	box := &inbox{codes: make(map[string]string)}
	h := &harness{
		db:          db,
		revocations: adapters.NewRevocationGorm(db),
		challenges:  adapters.NewChallengeGorm(db),
		credentials: adapters.NewCredentialsGorm(db),
		clock:       clk,
		inbox:       box,
	}
	h.auth = usecase.NewAuthUsecase(usecase.Dependencies{
		Users:       adapters.NewUserGorm(db),
		Credentials: h.credentials,
		Revocations: h.revocations,
		Challenges:  usecase.NewChallengeIssuer(h.challenges, 15*time.Minute),
		Codec:       jwtmw.NewCodec(testSecret, 15*time.Minute, 24*time.Hour).WithClock(clk.Now),
		Mailer:      box,
		Tx:          adapters.NewGormTransactor(db),
		Logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}, usecase.Options{RequestTimeout: time.Second, BcryptCost: bcrypt.MinCost})
	return h
}

// signup registers and confirms a user and returns its ID.
func (h *harness) signup(t *testing.T, email, password string) uint {
	t.Helper()
	ctx := context.Background()
	id, err := h.auth.Register(ctx, email, "tester", password)
	require.NoError(t, err)
	require.NoError(t, h.auth.ConfirmEmail(ctx, email, h.inbox.code(t, email)))
	return id
}

func bearer(token string) string {
	return "Bearer " + token
}

func TestFlow_RegisterConfirmLogin(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	id, err := h.auth.Register(ctx, "u@x.io", "u", "Password1")
	require.NoError(t, err)

	_, err = h.auth.Login(ctx, "u@x.io", "Password1")
	assert.ErrorIs(t, err, domain.ErrUnconfirmedEmail)

	require.NoError(t, h.auth.ConfirmEmail(ctx, "U@X.io", h.inbox.code(t, "u@x.io")))

	pair, err := h.auth.Login(ctx, "u@x.io", "Password1")
	require.NoError(t, err)

	identity, err := h.auth.Authenticate(ctx, bearer(pair.AccessToken))
	require.NoError(t, err)
	assert.Equal(t, id, identity.UserID)
	assert.Equal(t, entity.InitialCredentialVersion, identity.CredentialVersion)

	user, err := h.auth.Me(ctx, identity)
	require.NoError(t, err)
	assert.Equal(t, "u@x.io", user.Email)
	assert.True(t, user.Confirmed)
}

func TestFlow_DuplicateRegistration(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.auth.Register(ctx, "dup@x.io", "a", "Password1")
	require.NoError(t, err)
	_, err = h.auth.Register(ctx, " DUP@x.io", "b", "Password1")
	assert.ErrorIs(t, err, domain.ErrDuplicateEmail)
}

func TestFlow_ConfirmationCodeIsSingleUse(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.auth.Register(ctx, "once@x.io", "o", "Password1")
	require.NoError(t, err)
	code := h.inbox.code(t, "once@x.io")

	require.NoError(t, h.auth.ConfirmEmail(ctx, "once@x.io", code))
	assert.ErrorIs(t, h.auth.ConfirmEmail(ctx, "once@x.io", code), domain.ErrInvalidCode)
}

func TestFlow_ResendReplacesCode(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.auth.Register(ctx, "re@x.io", "r", "Password1")
	require.NoError(t, err)
	first := h.inbox.code(t, "re@x.io")

	require.NoError(t, h.auth.ResendConfirmation(ctx, "re@x.io"))
	second := h.inbox.code(t, "re@x.io")

	if first != second {
		assert.ErrorIs(t, h.auth.ConfirmEmail(ctx, "re@x.io", first), domain.ErrInvalidCode)
	}
	assert.NoError(t, h.auth.ConfirmEmail(ctx, "re@x.io", second))
	assert.NoError(t, h.auth.ResendConfirmation(ctx, "nobody@x.io"))
}

func TestFlow_ConfirmationCodeLocksAfterWrongAttempts(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.auth.Register(ctx, "lock@x.io", "l", "Password1")
	require.NoError(t, err)
	code := h.inbox.code(t, "lock@x.io")
	wrong := "000000"
	if code == wrong {
		wrong = "111111"
	}

	for i := 0; i < entity.MaxChallengeAttempts; i++ {
		require.ErrorIs(t, h.auth.ConfirmEmail(ctx, "lock@x.io", wrong), domain.ErrInvalidCode)
	}
	assert.ErrorIs(t, h.auth.ConfirmEmail(ctx, "lock@x.io", code), domain.ErrInvalidCode,
		"the mailed code stops working once the attempts are used up")

	require.NoError(t, h.auth.ResendConfirmation(ctx, "lock@x.io"))
	assert.NoError(t, h.auth.ConfirmEmail(ctx, "lock@x.io", h.inbox.code(t, "lock@x.io")))
}

func TestFlow_AccessTokenExpires(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.signup(t, "exp@x.io", "Password1")

	pair, err := h.auth.Login(ctx, "exp@x.io", "Password1")
	require.NoError(t, err)

	h.clock.Advance(15 * time.Minute)

	_, err = h.auth.Authenticate(ctx, bearer(pair.AccessToken))
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestFlow_LogoutRevokesOnlyThatToken(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.signup(t, "out@x.io", "Password1")

	first, err := h.auth.Login(ctx, "out@x.io", "Password1")
	require.NoError(t, err)
	second, err := h.auth.Login(ctx, "out@x.io", "Password1")
	require.NoError(t, err)

	identity, err := h.auth.Authenticate(ctx, bearer(first.AccessToken))
	require.NoError(t, err)
	require.NoError(t, h.auth.Logout(ctx, identity, first.RefreshToken))

	_, err = h.auth.Authenticate(ctx, bearer(first.AccessToken))
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	_, err = h.auth.Refresh(ctx, first.RefreshToken)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	_, err = h.auth.Authenticate(ctx, bearer(second.AccessToken))
	assert.NoError(t, err)
}

func TestFlow_ChangePasswordInvalidatesEarlierTokens(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.signup(t, "cp@x.io", "Password1")

	before, err := h.auth.Login(ctx, "cp@x.io", "Password1")
	require.NoError(t, err)
	identity, err := h.auth.Authenticate(ctx, bearer(before.AccessToken))
	require.NoError(t, err)

	require.NoError(t, h.auth.ChangePassword(ctx, identity, "Password1", "Password2"))

	_, err = h.auth.Authenticate(ctx, bearer(before.AccessToken))
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	_, err = h.auth.Refresh(ctx, before.RefreshToken)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	_, err = h.auth.Login(ctx, "cp@x.io", "Password1")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)

	after, err := h.auth.Login(ctx, "cp@x.io", "Password2")
	require.NoError(t, err)
	identity, err = h.auth.Authenticate(ctx, bearer(after.AccessToken))
	require.NoError(t, err)
	assert.Equal(t, 2, identity.CredentialVersion)

	assert.ErrorIs(t, h.auth.ChangePassword(ctx, identity, "Password2", "Password1"), domain.ErrPasswordReused)
}

func TestFlow_ConcurrentChangePasswordYieldsDistinctVersions(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	id := h.signup(t, "race@x.io", "Password1")
	identity := entity.Identity{UserID: id}

	const n = 5
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := range n {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			err := h.auth.ChangePassword(ctx, identity, "Password1", "Newpass"+string(rune('A'+i))+"1")
			if err != nil {
				assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
				return
			}
			mu.Lock()
			succeeded++
			mu.Unlock()
		}(i)
	}
	wg.Wait()

	require.GreaterOrEqual(t, succeeded, 1)
	version, err := h.credentials.GetVersion(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 1+succeeded, version, "every successful change must bump the version once")
}

func TestFlow_ResetPassword(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.signup(t, "reset@x.io", "Password1")

	old, err := h.auth.Login(ctx, "reset@x.io", "Password1")
	require.NoError(t, err)

	require.NoError(t, h.auth.ForgotPassword(ctx, "reset@x.io"))
	code := h.inbox.code(t, "reset@x.io")

	// A reused password leaves the code unconsumed.
	assert.ErrorIs(t, h.auth.ResetPassword(ctx, "reset@x.io", code, "Password1"), domain.ErrPasswordReused)

	require.NoError(t, h.auth.ResetPassword(ctx, "reset@x.io", code, "Password9"))
	assert.ErrorIs(t, h.auth.ResetPassword(ctx, "reset@x.io", code, "Password8"), domain.ErrInvalidCode)

	_, err = h.auth.Authenticate(ctx, bearer(old.AccessToken))
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	_, err = h.auth.Login(ctx, "reset@x.io", "Password9")
	assert.NoError(t, err)

	assert.NoError(t, h.auth.ForgotPassword(ctx, "ghost@x.io"))
}

func TestFlow_RefreshRotation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.signup(t, "rot@x.io", "Password1")

	pair, err := h.auth.Login(ctx, "rot@x.io", "Password1")
	require.NoError(t, err)

	_, err = h.auth.Refresh(ctx, pair.AccessToken)
	assert.ErrorIs(t, err, domain.ErrUnauthorized, "an access token cannot refresh")

	next, err := h.auth.Refresh(ctx, pair.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, pair.RefreshToken, next.RefreshToken)

	_, err = h.auth.Refresh(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, domain.ErrUnauthorized, "a rotated refresh token is revoked")

	_, err = h.auth.Authenticate(ctx, bearer(next.AccessToken))
	assert.NoError(t, err)
	_, err = h.auth.Authenticate(ctx, bearer(next.RefreshToken))
	assert.ErrorIs(t, err, domain.ErrUnauthorized, "a refresh token cannot authenticate")
}

func TestFlow_ConcurrentRefreshSucceedsOnce(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.signup(t, "race@x.io", "Password1")

	pair, err := h.auth.Login(ctx, "race@x.io", "Password1")
	require.NoError(t, err)

	const n = 8
	var wg sync.WaitGroup
	results := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.auth.Refresh(ctx, pair.RefreshToken)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	succeeded := 0
	for err := range results {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, domain.ErrUnauthorized)
	}
	assert.Equal(t, 1, succeeded, "a refresh token yields exactly one new pair")
}

func TestFlow_RevokeAndSweep(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.signup(t, "sweep@x.io", "Password1")

	pair, err := h.auth.Login(ctx, "sweep@x.io", "Password1")
	require.NoError(t, err)
	identity, err := h.auth.Authenticate(ctx, bearer(pair.AccessToken))
	require.NoError(t, err)
	require.NoError(t, h.auth.Logout(ctx, identity, ""))

	revoked, err := h.revocations.IsRevoked(ctx, identity.JTI)
	require.NoError(t, err)
	assert.True(t, revoked)

	removed, err := h.revocations.SweepExpired(ctx, identity.ExpiresAt.Add(-time.Second))
	require.NoError(t, err)
	assert.Zero(t, removed, "entries are kept until the token expires")

	removed, err = h.revocations.SweepExpired(ctx, identity.ExpiresAt)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	revoked, err = h.revocations.IsRevoked(ctx, identity.JTI)
	require.NoError(t, err)
	assert.False(t, revoked)

	h.clock.Advance(15 * time.Minute)
	_, err = h.auth.Authenticate(ctx, bearer(pair.AccessToken))
	assert.ErrorIs(t, err, domain.ErrUnauthorized, "the swept token is still rejected by expiry")
}

func TestFlow_SweeperDropsSpentChallenges(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.signup(t, "spent@x.io", "Password1")
	_, err := h.auth.Register(ctx, "pending@x.io", "p", "Password1")
	require.NoError(t, err)

	sweeper := usecase.NewSweeper(h.revocations, h.challenges, time.Minute, slog.New(slog.NewTextHandler(io.Discard, nil)))
	sweeper.SweepOnce(ctx)

	var emails []string
	require.NoError(t, h.db.Model(&adapters.ChallengeModel{}).Pluck("email", &emails).Error)
	assert.Equal(t, []string{"pending@x.io"}, emails, "consumed challenges are removed, live ones stay")
	assert.NoError(t, h.auth.ConfirmEmail(ctx, "pending@x.io", h.inbox.code(t, "pending@x.io")))
}

func TestFlow_UpdateProfile(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.signup(t, "prof@x.io", "Password1")

	pair, err := h.auth.Login(ctx, "prof@x.io", "Password1")
	require.NoError(t, err)
	identity, err := h.auth.Authenticate(ctx, bearer(pair.AccessToken))
	require.NoError(t, err)

	nickname, avatar := " renamed ", "avatars/prof.png"
	updated, err := h.auth.UpdateProfile(ctx, identity, &nickname, &avatar)
	require.NoError(t, err)
	assert.Equal(t, "renamed", updated.Nickname)

	me, err := h.auth.Me(ctx, identity)
	require.NoError(t, err)
	assert.Equal(t, "renamed", me.Nickname)
	require.NotNil(t, me.Avatar)
	assert.Equal(t, "avatars/prof.png", *me.Avatar)

	require.NoError(t, h.auth.DeleteAccount(ctx, identity))
	_, err = h.auth.UpdateProfile(ctx, identity, &nickname, nil)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestFlow_DeleteAccount(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.signup(t, "del@x.io", "Password1")

	pair, err := h.auth.Login(ctx, "del@x.io", "Password1")
	require.NoError(t, err)
	identity, err := h.auth.Authenticate(ctx, bearer(pair.AccessToken))
	require.NoError(t, err)

	require.NoError(t, h.auth.DeleteAccount(ctx, identity))

	_, err = h.auth.Authenticate(ctx, bearer(pair.AccessToken))
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	_, err = h.auth.Login(ctx, "del@x.io", "Password1")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)

	_, err = h.auth.Register(ctx, "del@x.io", "again", "Password1")
	assert.NoError(t, err, "the address is free again")
}
