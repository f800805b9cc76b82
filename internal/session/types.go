package session

import (
	"time"

	"dotmac/internal/store"
)

type State string

const (
	StateUnauthenticated State = "unauthenticated"
	StateAuthenticated   State = "authenticated"
	StateRefreshed       State = "refreshed"
	StateExpired         State = "expired"
	StateSignedOut       State = "signed_out"
)

// Session is a persisted session joined with a snapshot of its user, it
// is also the value held in the cookie cache
type Session struct {
	store.Session
	User store.User `json:"user"`

	// Token is only set when a new signed token was issued for the
	// session, either at sign in or on refresh
	Token     string `json:"-"`
	Refreshed bool   `json:"-"`
}

// StateAt derives the lifecycle state of the session at now
func (s *Session) StateAt(now time.Time) State {
	switch {
	case s == nil || s.Id == "":
		return StateUnauthenticated
	case !now.Before(s.ExpiresAt):
		return StateExpired
	case s.Refreshed:
		return StateRefreshed
	}
	return StateAuthenticated
}

type SignUpInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type SignInInput struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	IpAddress string `json:"-"`
	UserAgent string `json:"-"`
}

type TwoFactorSetup struct {
	Secret      string   `json:"secret"`
	Uri         string   `json:"totpUri"`
	QrCode      string   `json:"-"`
	BackupCodes []string `json:"backupCodes"`
}
