package store

import "time"

type TokenPurpose string

const (
	TokenPurposeEmailVerification TokenPurpose = "email_verification"
	TokenPurposePasswordReset     TokenPurpose = "password_reset"
)

// User is the persisted account. Roles is the legacy display-only role
// list, authorization always goes through organization membership
type User struct {
	Id            string    `json:"id"`
	Email         string    `json:"email"`
	Name          string    `json:"name"`
	PasswordHash  string    `json:"-"`
	EmailVerified bool      `json:"emailVerified"`
	IsActive      bool      `json:"isActive"`
	MfaEnabled    bool      `json:"mfaEnabled"`
	Roles         []string  `json:"roles"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

type Organization struct {
	Id        string            `json:"id"`
	Name      string            `json:"name"`
	Slug      string            `json:"slug"`
	Metadata  map[string]string `json:"metadata"`
	CreatedAt time.Time         `json:"createdAt"`
}

type Member struct {
	OrgId     string    `json:"orgId"`
	UserId    string    `json:"userId"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

// MemberOrganization is an organization as seen by one of its members
type MemberOrganization struct {
	Organization
	Role string `json:"role"`
}

type Session struct {
	Id          string    `json:"id"`
	UserId      string    `json:"userId"`
	ActiveOrgId string    `json:"activeOrganizationId,omitempty"`
	IpAddress   string    `json:"ipAddress,omitempty"`
	UserAgent   string    `json:"userAgent,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	RefreshedAt time.Time `json:"refreshedAt"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

type VerificationToken struct {
	Digest    string
	UserId    string
	Purpose   TokenPurpose
	ExpiresAt time.Time
}

// PendingLogin is a password-verified login waiting on a second factor
type PendingLogin struct {
	Digest    string
	UserId    string
	IpAddress string
	UserAgent string
	ExpiresAt time.Time
}

type TwoFactor struct {
	UserId      string
	Secret      string
	BackupCodes []string
	Confirmed   bool
	CreatedAt   time.Time
}
