package authn

import (
	"context"
	"errors"
	"fmt"
	"time"

	"dotmac/internal/accesscontrol"
	"dotmac/internal/cache"
	"dotmac/internal/common"
	"dotmac/internal/config"
	"dotmac/internal/org"
	"dotmac/internal/session"
	"dotmac/internal/store"
)

var (
	ErrorMissingCache = errors.New("missing_cache")
	ErrorMissingStore = errors.New("missing_store")
)

// Auth is everything the HTTP layer needs from authentication, served
// either by Service or, with bypass active, by Mock
type Auth interface {
	Policy() session.Policy
	Registry() *accesscontrol.Registry

	SignUpEmail(ctx context.Context, input session.SignUpInput) (*store.User, error)
	VerifyEmail(ctx context.Context, token string) (*store.User, error)
	SignInEmail(ctx context.Context, input session.SignInInput) (*session.Session, error)
	SignInTwoFactor(ctx context.Context, loginId, code string) (*session.Session, error)
	GetSession(ctx context.Context, token string) (*session.Session, error)
	SignOut(ctx context.Context, token string) error
	RevokeSession(ctx context.Context, userId, sessionId string) error

	EnableTwoFactor(ctx context.Context, userId, password string) (*session.TwoFactorSetup, error)
	ConfirmTwoFactor(ctx context.Context, userId, code string) error

	CreateOrganization(ctx context.Context, userId string, input org.CreateInput) (*store.Organization, error)
	DeleteOrganization(ctx context.Context, actorId, orgId string) error
	ListOrganizations(ctx context.Context, userId string) ([]store.MemberOrganization, error)
	ListMembers(ctx context.Context, actorId, orgId string) ([]store.Member, error)
	SetActiveOrganization(ctx context.Context, token, orgId string) (*session.Session, error)
	ResolveContext(ctx context.Context, userId, activeOrgId string) (*org.Context, error)
	HasPermission(ctx context.Context, orgCtx org.Context, grants accesscontrol.Grants) (bool, error)
}

var (
	_ Auth = (*Service)(nil)
	_ Auth = (*Mock)(nil)
)

type Deps struct {
	Store  store.Store
	Cache  cache.Cache
	Mailer session.Mailer

	// Registry defaults to accesscontrol.Default()
	Registry  *accesscontrol.Registry
	Publisher org.Publisher

	// Policy overrides session.DefaultPolicy
	Policy      *session.Policy
	CachePrefix string
	TotpIssuer  string
	Now         func() time.Time
	ServiceLogs chan<- common.ServiceLog
}

// New is the only place that decides between the real service and the
// mock. Configuration problems are returned here and never surface later
func New(cfg config.Auth, deps Deps) (Auth, error) {
	serviceLogs := deps.ServiceLogs
	if serviceLogs == nil {
		serviceLogs = common.GetNoopServiceLog()
	}
	if cfg.Bypass {
		if cfg.Production {
			serviceLogs <- common.ServiceLogf(common.LogLevelWarn, "auth bypass active in production through %s", cfg.BypassReason)
		} else {
			serviceLogs <- common.ServiceLogf(common.LogLevelInfo, "auth bypass active through %s", cfg.BypassReason)
		}
		return NewMock(), nil
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid auth configuration: %w", err)
	}
	return NewService(cfg, deps)
}

func NewService(cfg config.Auth, deps Deps) (*Service, error) {
	errs := []error{}
	if deps.Store == nil {
		errs = append(errs, ErrorMissingStore)
	}
	if deps.Cache == nil {
		errs = append(errs, ErrorMissingCache)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	registry := deps.Registry
	if registry == nil {
		registry = accesscontrol.Default()
	}
	policy := session.DefaultPolicy(cfg.Production)
	if deps.Policy != nil {
		policy = *deps.Policy
	}
	manager, err := session.NewManager(session.ManagerOpts{
		Store:       deps.Store,
		Cache:       deps.Cache,
		Mailer:      deps.Mailer,
		Secret:      cfg.Secret,
		Policy:      policy,
		CachePrefix: deps.CachePrefix,
		TotpIssuer:  deps.TotpIssuer,
		Now:         deps.Now,
		ServiceLogs: deps.ServiceLogs,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create session manager: %w", err)
	}
	orgs, err := org.NewService(org.ServiceOpts{
		Store:       deps.Store,
		Registry:    registry,
		Publisher:   deps.Publisher,
		Now:         deps.Now,
		ServiceLogs: deps.ServiceLogs,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create organization service: %w", err)
	}
	return &Service{sessions: manager, orgs: orgs}, nil
}

// Service is the real Auth backed by a session manager and an
// organization service sharing one store
type Service struct {
	sessions *session.Manager
	orgs     *org.Service
}

func (s *Service) Sessions() *session.Manager {
	return s.sessions
}

func (s *Service) Organizations() *org.Service {
	return s.orgs
}

func (s *Service) Policy() session.Policy {
	return s.sessions.Policy()
}

func (s *Service) Registry() *accesscontrol.Registry {
	return s.orgs.Registry()
}

func (s *Service) SignUpEmail(ctx context.Context, input session.SignUpInput) (*store.User, error) {
	return s.sessions.SignUpEmail(ctx, input)
}

func (s *Service) VerifyEmail(ctx context.Context, token string) (*store.User, error) {
	return s.sessions.VerifyEmail(ctx, token)
}

func (s *Service) SignInEmail(ctx context.Context, input session.SignInInput) (*session.Session, error) {
	return s.sessions.SignInEmail(ctx, input)
}

func (s *Service) SignInTwoFactor(ctx context.Context, loginId, code string) (*session.Session, error) {
	return s.sessions.SignInTwoFactor(ctx, loginId, code)
}

func (s *Service) GetSession(ctx context.Context, token string) (*session.Session, error) {
	if token == "" {
		return nil, session.ErrorInvalidSession
	}
	return s.sessions.Get(ctx, token)
}

func (s *Service) SignOut(ctx context.Context, token string) error {
	return s.sessions.SignOut(ctx, token)
}

// RevokeSession only revokes sessions owned by userId
func (s *Service) RevokeSession(ctx context.Context, userId, sessionId string) error {
	sessions, err := s.sessions.ListSessions(ctx, userId)
	if err != nil {
		return fmt.Errorf("failed to list sessions of user[%s]: %w", userId, err)
	}
	for _, owned := range sessions {
		if owned.Id == sessionId {
			return s.sessions.Revoke(ctx, sessionId)
		}
	}
	return session.ErrorInvalidSession
}

func (s *Service) EnableTwoFactor(ctx context.Context, userId, password string) (*session.TwoFactorSetup, error) {
	return s.sessions.EnableTwoFactor(ctx, userId, password)
}

func (s *Service) ConfirmTwoFactor(ctx context.Context, userId, code string) error {
	return s.sessions.ConfirmTwoFactor(ctx, userId, code)
}

func (s *Service) CreateOrganization(ctx context.Context, userId string, input org.CreateInput) (*store.Organization, error) {
	return s.orgs.Create(ctx, userId, input)
}

func (s *Service) DeleteOrganization(ctx context.Context, actorId, orgId string) error {
	return s.orgs.Delete(ctx, actorId, orgId)
}

func (s *Service) ListOrganizations(ctx context.Context, userId string) ([]store.MemberOrganization, error) {
	return s.orgs.List(ctx, userId)
}

func (s *Service) ListMembers(ctx context.Context, actorId, orgId string) ([]store.Member, error) {
	return s.orgs.ListMembers(ctx, actorId, orgId)
}

// SetActiveOrganization checks membership before recording orgId on the
// session, an empty orgId clears the active organization
func (s *Service) SetActiveOrganization(ctx context.Context, token, orgId string) (*session.Session, error) {
	if orgId != "" {
		current, err := s.GetSession(ctx, token)
		if err != nil {
			return nil, err
		}
		if _, err := s.orgs.Member(ctx, orgId, current.UserId); err != nil {
			return nil, err
		}
	}
	return s.sessions.SetActiveOrganization(ctx, token, orgId)
}

func (s *Service) ResolveContext(ctx context.Context, userId, activeOrgId string) (*org.Context, error) {
	return s.orgs.ResolveContext(ctx, userId, activeOrgId)
}

func (s *Service) HasPermission(ctx context.Context, orgCtx org.Context, grants accesscontrol.Grants) (bool, error) {
	return s.orgs.HasPermissions(ctx, orgCtx, grants)
}
