package authn

import (
	"context"
	"testing"
	"time"

	"dotmac/internal/accesscontrol"
	"dotmac/internal/cache"
	"dotmac/internal/config"
	"dotmac/internal/email"
	"dotmac/internal/org"
	"dotmac/internal/session"
	"dotmac/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type capturingMailer struct {
	tokens map[string]string
}

func (m *capturingMailer) SendEmailVerification(_ context.Context, to email.User, token string) error {
	m.tokens[to.Address] = token
	return nil
}

func env(values map[string]string) func(string) string {
	return func(key string) string { return values[key] }
}

func TestNewReturnsMockWhenBypassed(t *testing.T) {
	for _, values := range []map[string]string{
		{config.EnvNodeEnv: "test"},
		{config.EnvAuthBypass: "true"},
		{config.EnvSkipAuth: "1"},
		{config.EnvE2eAuthBypass: "yes"},
	} {
		instance, err := New(config.LoadAuth(env(values)), Deps{})
		require.NoError(t, err)
		assert.IsType(t, &Mock{}, instance)
	}
}

func TestNewFailsWithoutConfiguration(t *testing.T) {
	_, err := New(config.LoadAuth(env(map[string]string{})), Deps{})
	assert.ErrorIs(t, err, config.ErrorMissingSecret)
	assert.ErrorIs(t, err, config.ErrorMissingDatabaseUrl)

	_, err = New(config.LoadAuth(env(map[string]string{
		config.EnvAuthSecret:  testSecret,
		config.EnvDatabaseUrl: "postgres://localhost/dotmac",
	})), Deps{})
	assert.ErrorIs(t, err, ErrorMissingStore)
	assert.ErrorIs(t, err, ErrorMissingCache)
}

func TestMockIsDeterministic(t *testing.T) {
	ctx := context.Background()
	mock := NewMock()
	first, err := mock.GetSession(ctx, "")
	require.NoError(t, err)
	second, err := mock.GetSession(ctx, "anything")
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, MockUserId, first.User.Id)
	assert.Equal(t, MockOrgId, first.ActiveOrgId)
	assert.Equal(t, MockEpoch.AddDate(10, 0, 0), first.ExpiresAt)

	orgs, err := mock.ListOrganizations(ctx, MockUserId)
	require.NoError(t, err)
	require.Len(t, orgs, 1)
	assert.Equal(t, accesscontrol.RoleOwner, orgs[0].Role)

	orgCtx, err := mock.ResolveContext(ctx, MockUserId, MockOrgId)
	require.NoError(t, err)
	allowed, err := mock.HasPermission(ctx, *orgCtx, accesscontrol.Grants{"organization": {"delete"}})
	require.NoError(t, err)
	assert.True(t, allowed)
	allowed, err = mock.HasPermission(ctx, *orgCtx, accesscontrol.Grants{"organization": {"fly"}})
	require.NoError(t, err)
	assert.False(t, allowed)
}

func newTestService(t *testing.T) (*Service, *capturingMailer) {
	now := func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }
	mailer := &capturingMailer{tokens: map[string]string{}}
	instance, err := New(config.LoadAuth(env(map[string]string{
		config.EnvAuthSecret:  testSecret,
		config.EnvDatabaseUrl: "postgres://localhost/dotmac",
	})), Deps{
		Store:  store.NewMemory(),
		Cache:  cache.NewMemory(cache.NewMemoryOpts{Now: now}),
		Mailer: mailer,
		Now:    now,
	})
	require.NoError(t, err)
	require.IsType(t, &Service{}, instance)
	return instance.(*Service), mailer
}

func signIn(t *testing.T, service *Service, mailer *capturingMailer, emailAddress string) *session.Session {
	ctx := context.Background()
	user, err := service.SignUpEmail(ctx, session.SignUpInput{Email: emailAddress, Password: "Sup3r$ecret!", Name: "Ops"})
	require.NoError(t, err)
	_, err = service.VerifyEmail(ctx, mailer.tokens[user.Email])
	require.NoError(t, err)
	current, err := service.SignInEmail(ctx, session.SignInInput{Email: emailAddress, Password: "Sup3r$ecret!"})
	require.NoError(t, err)
	return current
}

func TestServiceOrganizationFlow(t *testing.T) {
	ctx := context.Background()
	service, mailer := newTestService(t)
	owner := signIn(t, service, mailer, "owner@example.com")
	outsider := signIn(t, service, mailer, "outsider@example.com")

	created, err := service.CreateOrganization(ctx, owner.UserId, org.CreateInput{Name: "Acme Fibre"})
	require.NoError(t, err)
	assert.Equal(t, "acme-fibre", created.Slug)

	_, err = service.SetActiveOrganization(ctx, outsider.Token, created.Id)
	assert.ErrorIs(t, err, org.ErrorNotMember)

	active, err := service.SetActiveOrganization(ctx, owner.Token, created.Id)
	require.NoError(t, err)
	assert.Equal(t, created.Id, active.ActiveOrgId)

	current, err := service.GetSession(ctx, owner.Token)
	require.NoError(t, err)
	assert.Equal(t, created.Id, current.ActiveOrgId)

	orgCtx, err := service.ResolveContext(ctx, current.UserId, current.ActiveOrgId)
	require.NoError(t, err)
	allowed, err := service.HasPermission(ctx, *orgCtx, accesscontrol.Grants{"organization": {"delete"}})
	require.NoError(t, err)
	assert.True(t, allowed)

	require.ErrorIs(t, service.DeleteOrganization(ctx, outsider.UserId, created.Id), org.ErrorForbidden)
	require.NoError(t, service.DeleteOrganization(ctx, owner.UserId, created.Id))
}

func TestServiceRevokeSessionIsScopedToOwner(t *testing.T) {
	ctx := context.Background()
	service, mailer := newTestService(t)
	first := signIn(t, service, mailer, "first@example.com")
	second := signIn(t, service, mailer, "second@example.com")

	assert.ErrorIs(t, service.RevokeSession(ctx, second.UserId, first.Id), session.ErrorInvalidSession)
	require.NoError(t, service.RevokeSession(ctx, first.UserId, first.Id))
	_, err := service.GetSession(ctx, first.Token)
	assert.ErrorIs(t, err, session.ErrorInvalidSession)

	_, err = service.GetSession(ctx, "")
	assert.ErrorIs(t, err, session.ErrorInvalidSession)
}
