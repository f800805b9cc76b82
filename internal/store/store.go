package store

import (
	"context"
	"time"
)

// Store is the persistent backend behind sessions, users and
// organizations. Sql is used in deployments, Memory in tests and local
// development
type Store interface {
	CreateUser(ctx context.Context, user User) error
	GetUserById(ctx context.Context, id string) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	SetUserEmailVerified(ctx context.Context, id string) error
	SetUserMfaEnabled(ctx context.Context, id string, enabled bool) error

	CreateVerificationToken(ctx context.Context, token VerificationToken) error
	ConsumeVerificationToken(ctx context.Context, digest string, purpose TokenPurpose, now time.Time) (*VerificationToken, error)

	CreateSession(ctx context.Context, session Session) error
	GetSession(ctx context.Context, id string) (*Session, error)
	ListUserSessions(ctx context.Context, userId string) ([]Session, error)
	RefreshSession(ctx context.Context, id string, refreshedAt, expiresAt time.Time) error
	SetSessionActiveOrganization(ctx context.Context, id string, orgId string) error
	DeleteSession(ctx context.Context, id string) error
	DeleteUserSessions(ctx context.Context, userId string) ([]string, error)
	DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error)

	CreatePendingLogin(ctx context.Context, login PendingLogin) error
	ConsumePendingLogin(ctx context.Context, digest string, now time.Time) (*PendingLogin, error)

	GetTwoFactor(ctx context.Context, userId string) (*TwoFactor, error)
	UpsertTwoFactor(ctx context.Context, twoFactor TwoFactor) error
	ConfirmTwoFactor(ctx context.Context, userId string) error
	UpdateBackupCodes(ctx context.Context, userId string, hashes []string) error
	DeleteTwoFactor(ctx context.Context, userId string) error

	CreateOrganization(ctx context.Context, org Organization, owner Member) error
	GetOrganization(ctx context.Context, id string) (*Organization, error)
	DeleteOrganization(ctx context.Context, id string) error
	ListUserOrganizations(ctx context.Context, userId string) ([]MemberOrganization, error)
	AddMember(ctx context.Context, member Member) error
	GetMember(ctx context.Context, orgId, userId string) (*Member, error)
	ListMembers(ctx context.Context, orgId string) ([]Member, error)
	UpdateMemberRole(ctx context.Context, orgId, userId, role string) error
	RemoveMember(ctx context.Context, orgId, userId string) error
}

var (
	_ Store = (*Sql)(nil)
	_ Store = (*Memory)(nil)
)
