package session

import (
	"net/http"
	"time"
)

const (
	DefaultExpiresIn         = 7 * 24 * time.Hour
	DefaultUpdateAge         = 24 * time.Hour
	DefaultMaxLifetime       = 30 * 24 * time.Hour
	DefaultCookieCacheMaxAge = 5 * time.Minute
	DefaultCookieName        = "dotmac.session_token"

	securePrefix = "__Secure-"
)

type Policy struct {
	// ExpiresIn is how long a session lives without being refreshed
	ExpiresIn time.Duration
	// UpdateAge is the minimum age since the last refresh before a
	// request extends the session
	UpdateAge time.Duration
	// MaxLifetime caps how far refreshes can extend a session past its
	// creation
	MaxLifetime       time.Duration
	CookieCacheMaxAge time.Duration
	CookieName        string
	Secure            bool
}

func DefaultPolicy(production bool) Policy {
	policy := Policy{
		ExpiresIn:         DefaultExpiresIn,
		UpdateAge:         DefaultUpdateAge,
		MaxLifetime:       DefaultMaxLifetime,
		CookieCacheMaxAge: DefaultCookieCacheMaxAge,
		CookieName:        DefaultCookieName,
		Secure:            production,
	}
	if production {
		policy.CookieName = securePrefix + DefaultCookieName
	}
	return policy
}

func (p Policy) withDefaults() Policy {
	defaults := DefaultPolicy(p.Secure)
	if p.ExpiresIn == 0 {
		p.ExpiresIn = defaults.ExpiresIn
	}
	if p.UpdateAge == 0 {
		p.UpdateAge = defaults.UpdateAge
	}
	if p.MaxLifetime == 0 {
		p.MaxLifetime = defaults.MaxLifetime
	}
	if p.CookieCacheMaxAge == 0 {
		p.CookieCacheMaxAge = defaults.CookieCacheMaxAge
	}
	if p.CookieName == "" {
		p.CookieName = defaults.CookieName
	}
	return p
}

// expiryFrom is the expiry a session created at createdAt gets when it
// is issued or refreshed at now
func (p Policy) expiryFrom(createdAt, now time.Time) time.Time {
	expiresAt := now.Add(p.ExpiresIn)
	if hardLimit := createdAt.Add(p.MaxLifetime); hardLimit.Before(expiresAt) {
		return hardLimit
	}
	return expiresAt
}

func (p Policy) Cookie(token string, expiresAt time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     p.CookieName,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		HttpOnly: true,
		Secure:   p.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}

func (p Policy) ClearCookie() *http.Cookie {
	return &http.Cookie{
		Name:     p.CookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   p.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}
