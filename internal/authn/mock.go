package authn

import (
	"context"
	"time"

	"dotmac/internal/accesscontrol"
	"dotmac/internal/org"
	"dotmac/internal/session"
	"dotmac/internal/store"
)

const (
	MockUserId       = "mock-user"
	MockUserEmail    = "mock-user@dotmac.local"
	MockOrgId        = "mock-org"
	MockOrgSlug      = "mock-org"
	MockSessionId    = "mock-session"
	MockSessionToken = "mock-session-token"
	MockRole         = accesscontrol.RoleOwner
)

var (
	// MockEpoch anchors every timestamp the mock returns
	MockEpoch = time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

	MockSessionExpiresAt = MockEpoch.AddDate(10, 0, 0)
)

func NewMock() *Mock {
	return &Mock{registry: accesscontrol.Default()}
}

// Mock answers every call with the same user, organization and session
// so that consumers can run without a backend
type Mock struct {
	registry *accesscontrol.Registry
}

func (m *Mock) user() *store.User {
	return &store.User{
		Id:            MockUserId,
		Email:         MockUserEmail,
		Name:          "Mock User",
		EmailVerified: true,
		IsActive:      true,
		Roles:         []string{string(MockRole)},
		CreatedAt:     MockEpoch,
		UpdatedAt:     MockEpoch,
	}
}

func (m *Mock) organization() *store.Organization {
	return &store.Organization{
		Id:        MockOrgId,
		Name:      "Mock Organization",
		Slug:      MockOrgSlug,
		Metadata:  map[string]string{},
		CreatedAt: MockEpoch,
	}
}

func (m *Mock) session() *session.Session {
	return &session.Session{
		Session: store.Session{
			Id:          MockSessionId,
			UserId:      MockUserId,
			ActiveOrgId: MockOrgId,
			CreatedAt:   MockEpoch,
			RefreshedAt: MockEpoch,
			ExpiresAt:   MockSessionExpiresAt,
		},
		User:  *m.user(),
		Token: MockSessionToken,
	}
}

func (m *Mock) Policy() session.Policy {
	return session.DefaultPolicy(false)
}

func (m *Mock) Registry() *accesscontrol.Registry {
	return m.registry
}

func (m *Mock) SignUpEmail(context.Context, session.SignUpInput) (*store.User, error) {
	return m.user(), nil
}

func (m *Mock) VerifyEmail(context.Context, string) (*store.User, error) {
	return m.user(), nil
}

func (m *Mock) SignInEmail(context.Context, session.SignInInput) (*session.Session, error) {
	return m.session(), nil
}

func (m *Mock) SignInTwoFactor(context.Context, string, string) (*session.Session, error) {
	return m.session(), nil
}

// GetSession accepts any token, the empty one included
func (m *Mock) GetSession(context.Context, string) (*session.Session, error) {
	return m.session(), nil
}

func (m *Mock) SignOut(context.Context, string) error {
	return nil
}

func (m *Mock) RevokeSession(context.Context, string, string) error {
	return nil
}

func (m *Mock) EnableTwoFactor(context.Context, string, string) (*session.TwoFactorSetup, error) {
	return &session.TwoFactorSetup{}, nil
}

func (m *Mock) ConfirmTwoFactor(context.Context, string, string) error {
	return nil
}

func (m *Mock) CreateOrganization(context.Context, string, org.CreateInput) (*store.Organization, error) {
	return m.organization(), nil
}

func (m *Mock) DeleteOrganization(context.Context, string, string) error {
	return nil
}

func (m *Mock) ListOrganizations(context.Context, string) ([]store.MemberOrganization, error) {
	return []store.MemberOrganization{{Organization: *m.organization(), Role: string(MockRole)}}, nil
}

func (m *Mock) ListMembers(context.Context, string, string) ([]store.Member, error) {
	return []store.Member{{OrgId: MockOrgId, UserId: MockUserId, Role: string(MockRole), CreatedAt: MockEpoch}}, nil
}

func (m *Mock) SetActiveOrganization(_ context.Context, _ string, orgId string) (*session.Session, error) {
	output := m.session()
	output.ActiveOrgId = orgId
	return output, nil
}

func (m *Mock) ResolveContext(_ context.Context, userId, activeOrgId string) (*org.Context, error) {
	output := &org.Context{UserId: userId}
	if activeOrgId != "" {
		output.ActiveOrgId = activeOrgId
		output.Role = string(MockRole)
	}
	return output, nil
}

func (m *Mock) HasPermission(_ context.Context, orgCtx org.Context, grants accesscontrol.Grants) (bool, error) {
	if !orgCtx.HasActiveOrganization() {
		return false, nil
	}
	for resource, actions := range grants {
		for _, action := range actions {
			if !m.registry.Can(orgCtx.Role, resource, action) {
				return false, nil
			}
		}
	}
	return true, nil
}
