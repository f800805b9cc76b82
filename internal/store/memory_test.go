package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMemoryUserLifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()
	require.NoError(t, store.CreateUser(ctx, User{Id: "u1", Email: "a@isp.net", IsActive: true}))
	require.ErrorIs(t, store.CreateUser(ctx, User{Id: "u2", Email: "A@isp.net"}), ErrorDuplicateEntry)

	require.NoError(t, store.SetUserEmailVerified(ctx, "u1"))
	user, err := store.GetUserByEmail(ctx, "a@isp.net")
	require.NoError(t, err)
	require.True(t, user.EmailVerified)

	_, err = store.GetUserById(ctx, "nope")
	require.ErrorIs(t, err, ErrorNotFound)
}

func TestMemoryTokensAreSingleUse(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()
	now := time.Now()
	require.NoError(t, store.CreateVerificationToken(ctx, VerificationToken{
		Digest: "d1", UserId: "u1", Purpose: TokenPurposeEmailVerification, ExpiresAt: now.Add(time.Hour),
	}))
	_, err := store.ConsumeVerificationToken(ctx, "d1", TokenPurposePasswordReset, now)
	require.ErrorIs(t, err, ErrorNotFound)

	token, err := store.ConsumeVerificationToken(ctx, "d1", TokenPurposeEmailVerification, now)
	require.NoError(t, err)
	require.Equal(t, "u1", token.UserId)

	_, err = store.ConsumeVerificationToken(ctx, "d1", TokenPurposeEmailVerification, now)
	require.ErrorIs(t, err, ErrorNotFound)
}

func TestMemoryOrganizations(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()
	require.NoError(t, store.CreateUser(ctx, User{Id: "u1", Email: "a@isp.net"}))
	require.NoError(t, store.CreateOrganization(ctx,
		Organization{Id: "o1", Name: "One", Slug: "one", Metadata: map[string]string{"plan": "pro"}},
		Member{OrgId: "o1", UserId: "u1", Role: "owner"},
	))
	require.ErrorIs(t, store.CreateOrganization(ctx,
		Organization{Id: "o2", Name: "Two", Slug: "one"},
		Member{OrgId: "o2", UserId: "u1", Role: "owner"},
	), ErrorDuplicateEntry)

	org, err := store.GetOrganization(ctx, "o1")
	require.NoError(t, err)
	org.Metadata["plan"] = "changed"
	again, err := store.GetOrganization(ctx, "o1")
	require.NoError(t, err)
	require.Equal(t, "pro", again.Metadata["plan"])

	orgs, err := store.ListUserOrganizations(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, orgs, 1)
	require.Equal(t, "owner", orgs[0].Role)

	require.NoError(t, store.CreateSession(ctx, Session{Id: "s1", UserId: "u1", ActiveOrgId: "o1"}))
	require.NoError(t, store.DeleteOrganization(ctx, "o1"))
	session, err := store.GetSession(ctx, "s1")
	require.NoError(t, err)
	require.Empty(t, session.ActiveOrgId)
	_, err = store.GetMember(ctx, "o1", "u1")
	require.ErrorIs(t, err, ErrorNotFound)
}

func TestMemoryDeleteExpiredSessions(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()
	now := time.Now()
	require.NoError(t, store.CreateSession(ctx, Session{Id: "old", UserId: "u1", ExpiresAt: now.Add(-time.Minute)}))
	require.NoError(t, store.CreateSession(ctx, Session{Id: "new", UserId: "u1", ExpiresAt: now.Add(time.Hour)}))
	purged, err := store.DeleteExpiredSessions(ctx, now)
	require.NoError(t, err)
	require.EqualValues(t, 1, purged)

	ids, err := store.DeleteUserSessions(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, []string{"new"}, ids)
}
