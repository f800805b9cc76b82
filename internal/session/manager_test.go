package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"dotmac/internal/auth"
	"dotmac/internal/cache"
	"dotmac/internal/email"
	"dotmac/internal/store"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v7"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type clock struct {
	now   time.Time
	mutex sync.Mutex
}

func (c *clock) Now() time.Time {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.now = c.now.Add(d)
}

type capturingMailer struct {
	tokens map[string]string
}

func (m *capturingMailer) SendEmailVerification(_ context.Context, to email.User, token string) error {
	m.tokens[to.Address] = token
	return nil
}

type fixture struct {
	clock   *clock
	manager *Manager
	store   *store.Memory
	mailer  *capturingMailer
}

func newFixture(t *testing.T, c cache.Cache) *fixture {
	testClock := &clock{now: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
	backend := store.NewMemory()
	mailer := &capturingMailer{tokens: map[string]string{}}
	if c == nil {
		c = cache.NewMemory(cache.NewMemoryOpts{Now: testClock.Now})
	}
	manager, err := NewManager(ManagerOpts{
		Store:  backend,
		Cache:  c,
		Mailer: mailer,
		Secret: testSecret,
		Policy: DefaultPolicy(false),
		Now:    testClock.Now,
	})
	require.NoError(t, err)
	return &fixture{clock: testClock, manager: manager, store: backend, mailer: mailer}
}

func (f *fixture) verifiedUser(t *testing.T, emailAddress string) *store.User {
	ctx := context.Background()
	user, err := f.manager.SignUpEmail(ctx, SignUpInput{Email: emailAddress, Password: "Sup3r$ecret!", Name: "Ops"})
	require.NoError(t, err)
	_, err = f.manager.VerifyEmail(ctx, f.mailer.tokens[user.Email])
	require.NoError(t, err)
	return user
}

func (f *fixture) signIn(t *testing.T, emailAddress string) *Session {
	current, err := f.manager.SignInEmail(context.Background(), SignInInput{Email: emailAddress, Password: "Sup3r$ecret!"})
	require.NoError(t, err)
	require.NotEmpty(t, current.Token)
	return current
}

func TestNewManagerRequiresDependencies(t *testing.T) {
	_, err := NewManager(ManagerOpts{})
	require.ErrorIs(t, err, ErrorMissingStore)
	require.ErrorIs(t, err, ErrorMissingCache)
	require.ErrorIs(t, err, ErrorMissingSecret)
}

func TestSignUpRequiresVerification(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	user, err := f.manager.SignUpEmail(ctx, SignUpInput{Email: " Ops@ISP.net ", Password: "Sup3r$ecret!"})
	require.NoError(t, err)
	require.Equal(t, "ops@isp.net", user.Email)

	_, err = f.manager.SignUpEmail(ctx, SignUpInput{Email: "ops@isp.net", Password: "Sup3r$ecret!"})
	require.ErrorIs(t, err, ErrorUserExists)

	_, err = f.manager.SignInEmail(ctx, SignInInput{Email: "ops@isp.net", Password: "Sup3r$ecret!"})
	require.ErrorIs(t, err, ErrorEmailNotVerified)

	_, err = f.manager.VerifyEmail(ctx, "not-a-token")
	require.ErrorIs(t, err, ErrorInvalidToken)

	verified, err := f.manager.VerifyEmail(ctx, f.mailer.tokens["ops@isp.net"])
	require.NoError(t, err)
	require.True(t, verified.EmailVerified)

	current := f.signIn(t, "ops@isp.net")
	require.Equal(t, StateAuthenticated, current.StateAt(f.clock.Now()))
}

func TestSignInRejectsBadCredentials(t *testing.T) {
	f := newFixture(t, nil)
	f.verifiedUser(t, "ops@isp.net")
	ctx := context.Background()

	_, err := f.manager.SignInEmail(ctx, SignInInput{Email: "ops@isp.net", Password: "wrong"})
	require.ErrorIs(t, err, ErrorInvalidCredentials)
	_, err = f.manager.SignInEmail(ctx, SignInInput{Email: "nobody@isp.net", Password: "wrong"})
	require.ErrorIs(t, err, ErrorInvalidCredentials)
}

func TestGetRefreshesAfterUpdateAge(t *testing.T) {
	f := newFixture(t, nil)
	f.verifiedUser(t, "ops@isp.net")
	created := f.clock.Now()
	current := f.signIn(t, "ops@isp.net")
	require.Equal(t, created.Add(7*24*time.Hour), current.ExpiresAt)

	f.clock.Advance(23 * time.Hour)
	unchanged, err := f.manager.Get(context.Background(), current.Token)
	require.NoError(t, err)
	require.False(t, unchanged.Refreshed)
	require.Equal(t, current.ExpiresAt, unchanged.ExpiresAt)

	f.clock.Advance(2 * time.Hour)
	refreshed, err := f.manager.Get(context.Background(), current.Token)
	require.NoError(t, err)
	require.True(t, refreshed.Refreshed)
	require.Equal(t, StateRefreshed, refreshed.StateAt(f.clock.Now()))
	require.Equal(t, created.Add(25*time.Hour+7*24*time.Hour), refreshed.ExpiresAt)
	require.NotEmpty(t, refreshed.Token)

	record, err := f.store.GetSession(context.Background(), current.Id)
	require.NoError(t, err)
	require.Equal(t, refreshed.ExpiresAt, record.ExpiresAt)
}

func TestGetRejectsIdleSessionAfterExpiry(t *testing.T) {
	f := newFixture(t, nil)
	f.verifiedUser(t, "ops@isp.net")
	current := f.signIn(t, "ops@isp.net")

	f.clock.Advance(7*24*time.Hour + time.Second)
	_, err := f.manager.Get(context.Background(), current.Token)
	require.ErrorIs(t, err, ErrorSessionExpired)
}

func TestGetRejectsExpiredSessionWithFreshToken(t *testing.T) {
	f := newFixture(t, nil)
	f.verifiedUser(t, "ops@isp.net")
	current := f.signIn(t, "ops@isp.net")

	require.NoError(t, f.store.RefreshSession(context.Background(), current.Id, f.clock.Now(), f.clock.Now().Add(time.Minute)))
	f.manager.invalidate(context.Background(), current.UserId, current.Id)
	f.clock.Advance(2 * time.Minute)

	_, err := f.manager.Get(context.Background(), current.Token)
	require.ErrorIs(t, err, ErrorSessionExpired)
	_, err = f.store.GetSession(context.Background(), current.Id)
	require.ErrorIs(t, err, store.ErrorNotFound)
}

func TestGetNeverExtendsPastMaxLifetime(t *testing.T) {
	f := newFixture(t, nil)
	f.verifiedUser(t, "ops@isp.net")
	created := f.clock.Now()
	current := f.signIn(t, "ops@isp.net")
	token := current.Token

	for day := 0; day < 35; day++ {
		f.clock.Advance(24*time.Hour + time.Minute)
		got, err := f.manager.Get(context.Background(), token)
		if errors.Is(err, ErrorSessionExpired) {
			require.False(t, f.clock.Now().Before(created.Add(30*24*time.Hour)))
			return
		}
		require.NoError(t, err)
		require.False(t, got.ExpiresAt.After(created.Add(30*24*time.Hour)))
		if got.Refreshed {
			token = got.Token
		}
	}
	t.Fatalf("session outlived its maximum lifetime")
}

func TestSignOutInvalidatesCachedSession(t *testing.T) {
	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	redisCache, err := cache.NewRedis(cache.NewRedisOpts{Client: client})
	require.NoError(t, err)

	f := newFixture(t, redisCache)
	f.verifiedUser(t, "ops@isp.net")
	current := f.signIn(t, "ops@isp.net")
	require.True(t, server.Exists(f.manager.cacheKey(current.UserId, current.Id)))

	require.NoError(t, f.manager.SignOut(context.Background(), current.Token))
	require.False(t, server.Exists(f.manager.cacheKey(current.UserId, current.Id)))
	_, err = f.manager.Get(context.Background(), current.Token)
	require.ErrorIs(t, err, ErrorInvalidSession)
}

func TestRevokeAll(t *testing.T) {
	f := newFixture(t, nil)
	f.verifiedUser(t, "ops@isp.net")
	first := f.signIn(t, "ops@isp.net")
	second := f.signIn(t, "ops@isp.net")

	revoked, err := f.manager.RevokeAll(context.Background(), first.UserId)
	require.NoError(t, err)
	require.Equal(t, 2, revoked)
	for _, token := range []string{first.Token, second.Token} {
		_, err := f.manager.Get(context.Background(), token)
		require.ErrorIs(t, err, ErrorInvalidSession)
	}
}

func TestSetActiveOrganization(t *testing.T) {
	f := newFixture(t, nil)
	f.verifiedUser(t, "ops@isp.net")
	current := f.signIn(t, "ops@isp.net")

	updated, err := f.manager.SetActiveOrganization(context.Background(), current.Token, "org-1")
	require.NoError(t, err)
	require.Equal(t, "org-1", updated.ActiveOrgId)

	again, err := f.manager.Get(context.Background(), current.Token)
	require.NoError(t, err)
	require.Equal(t, "org-1", again.ActiveOrgId)
}

func TestTwoFactorSignIn(t *testing.T) {
	f := newFixture(t, nil)
	user := f.verifiedUser(t, "ops@isp.net")
	ctx := context.Background()

	setup, err := f.manager.EnableTwoFactor(ctx, user.Id, "Sup3r$ecret!")
	require.NoError(t, err)
	require.Len(t, setup.BackupCodes, auth.BackupCodeCount)

	code, err := auth.CreateTotpToken(setup.Secret, f.clock.Now())
	require.NoError(t, err)
	require.NoError(t, f.manager.ConfirmTwoFactor(ctx, user.Id, code))

	_, err = f.manager.SignInEmail(ctx, SignInInput{Email: "ops@isp.net", Password: "Sup3r$ecret!"})
	var required *TwoFactorRequiredError
	require.ErrorAs(t, err, &required)
	require.ErrorIs(t, err, ErrorTwoFactorRequired)

	_, err = f.manager.SignInTwoFactor(ctx, required.LoginId, "000000-bad")
	require.ErrorIs(t, err, ErrorInvalidTwoFactorCode)
	_, err = f.manager.SignInTwoFactor(ctx, required.LoginId, setup.BackupCodes[0])
	require.ErrorIs(t, err, ErrorInvalidToken)

	_, err = f.manager.SignInEmail(ctx, SignInInput{Email: "ops@isp.net", Password: "Sup3r$ecret!"})
	require.ErrorAs(t, err, &required)
	current, err := f.manager.SignInTwoFactor(ctx, required.LoginId, setup.BackupCodes[0])
	require.NoError(t, err)
	require.NotEmpty(t, current.Token)

	remaining, err := f.manager.RemainingBackupCodes(ctx, user.Id)
	require.NoError(t, err)
	require.Equal(t, auth.BackupCodeCount-1, remaining)
}

func TestEnableTwoFactorKeepsConfirmedEnrolment(t *testing.T) {
	f := newFixture(t, nil)
	user := f.verifiedUser(t, "noc@isp.net")
	ctx := context.Background()

	first, err := f.manager.EnableTwoFactor(ctx, user.Id, "Sup3r$ecret!")
	require.NoError(t, err)
	retried, err := f.manager.EnableTwoFactor(ctx, user.Id, "Sup3r$ecret!")
	require.NoError(t, err, "an unconfirmed enrolment can be restarted")
	require.NotEqual(t, first.Secret, retried.Secret)

	code, err := auth.CreateTotpToken(retried.Secret, f.clock.Now())
	require.NoError(t, err)
	require.NoError(t, f.manager.ConfirmTwoFactor(ctx, user.Id, code))

	_, err = f.manager.EnableTwoFactor(ctx, user.Id, "Sup3r$ecret!")
	require.ErrorIs(t, err, ErrorTwoFactorEnabled)

	_, err = f.manager.SignInEmail(ctx, SignInInput{Email: "noc@isp.net", Password: "Sup3r$ecret!"})
	var required *TwoFactorRequiredError
	require.ErrorAs(t, err, &required)
	current, err := f.manager.SignInTwoFactor(ctx, required.LoginId, retried.BackupCodes[0])
	require.NoError(t, err)
	require.NotEmpty(t, current.Token)

	require.NoError(t, f.manager.DisableTwoFactor(ctx, user.Id, "Sup3r$ecret!"))
	_, err = f.manager.EnableTwoFactor(ctx, user.Id, "Sup3r$ecret!")
	require.NoError(t, err)
}

func TestStateAt(t *testing.T) {
	now := time.Now()
	var missing *Session
	require.Equal(t, StateUnauthenticated, missing.StateAt(now))
	current := &Session{Session: store.Session{Id: "s1", ExpiresAt: now.Add(time.Hour)}}
	require.Equal(t, StateAuthenticated, current.StateAt(now))
	require.Equal(t, StateExpired, current.StateAt(now.Add(time.Hour)))
}
