package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"dotmac/internal/auth"
	"dotmac/internal/cache"
	"dotmac/internal/common"
	"dotmac/internal/email"
	"dotmac/internal/store"

	"github.com/google/uuid"
)

const (
	DefaultCachePrefix         = "dotmac:session"
	DefaultVerificationTtl     = 24 * time.Hour
	DefaultPendingLoginTtl     = 5 * time.Minute
	DefaultTotpIssuer          = "dotmac"
	DefaultRoleForNewUsers     = "user"
	cacheKeySeparator          = ":"
	unknownUserPasswordPadding = "dotmac-unknown-user"
)

// Mailer delivers email verification tokens
type Mailer interface {
	SendEmailVerification(ctx context.Context, to email.User, token string) error
}

type ManagerOpts struct {
	Store  store.Store
	Cache  cache.Cache
	Mailer Mailer
	Secret string
	Policy Policy

	CachePrefix     string
	TotpIssuer      string
	VerificationTtl time.Duration
	PendingLoginTtl time.Duration

	// Now defaults to time.Now
	Now         func() time.Time
	ServiceLogs chan<- common.ServiceLog
}

func NewManager(opts ManagerOpts) (*Manager, error) {
	var errs []error
	if opts.Store == nil {
		errs = append(errs, ErrorMissingStore)
	}
	if opts.Cache == nil {
		errs = append(errs, ErrorMissingCache)
	}
	if opts.Secret == "" {
		errs = append(errs, ErrorMissingSecret)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	manager := &Manager{
		store:           opts.Store,
		cache:           opts.Cache,
		mailer:          opts.Mailer,
		secret:          opts.Secret,
		policy:          opts.Policy.withDefaults(),
		cachePrefix:     opts.CachePrefix,
		totpIssuer:      opts.TotpIssuer,
		verificationTtl: opts.VerificationTtl,
		pendingLoginTtl: opts.PendingLoginTtl,
		now:             opts.Now,
		serviceLogs:     opts.ServiceLogs,
	}
	if manager.cachePrefix == "" {
		manager.cachePrefix = DefaultCachePrefix
	}
	if manager.totpIssuer == "" {
		manager.totpIssuer = DefaultTotpIssuer
	}
	if manager.verificationTtl == 0 {
		manager.verificationTtl = DefaultVerificationTtl
	}
	if manager.pendingLoginTtl == 0 {
		manager.pendingLoginTtl = DefaultPendingLoginTtl
	}
	if manager.now == nil {
		manager.now = time.Now
	}
	if manager.serviceLogs == nil {
		manager.serviceLogs = common.GetNoopServiceLog()
	}
	if manager.mailer == nil {
		manager.mailer = email.NewLogMailer("", manager.serviceLogs)
	}
	return manager, nil
}

// Manager owns the session lifecycle: credential exchange, validation
// through the cookie cache, sliding refresh and revocation
type Manager struct {
	store           store.Store
	cache           cache.Cache
	mailer          Mailer
	secret          string
	policy          Policy
	cachePrefix     string
	totpIssuer      string
	verificationTtl time.Duration
	pendingLoginTtl time.Duration
	now             func() time.Time
	serviceLogs     chan<- common.ServiceLog

	unknownUserHash     string
	unknownUserHashOnce sync.Once
}

func (m *Manager) Policy() Policy {
	return m.policy
}

func (m *Manager) cacheKey(userId, sessionId string) string {
	return strings.Join([]string{m.cachePrefix, userId, sessionId}, cacheKeySeparator)
}

// SignUpEmail creates an unverified user and sends the verification
// token, no session is issued until the email is verified
func (m *Manager) SignUpEmail(ctx context.Context, input SignUpInput) (*store.User, error) {
	emailAddress := auth.NormalizeEmail(input.Email)
	if err := auth.ValidateEmail(emailAddress); err != nil {
		return nil, fmt.Errorf("failed to validate email: %w", err)
	}
	if err := auth.ValidatePasswordStrength(input.Password); err != nil {
		return nil, fmt.Errorf("failed to validate password: %w", err)
	}
	passwordHash, err := auth.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	now := m.now()
	user := store.User{
		Id:           uuid.NewString(),
		Email:        emailAddress,
		Name:         strings.TrimSpace(input.Name),
		PasswordHash: passwordHash,
		IsActive:     true,
		Roles:        []string{DefaultRoleForNewUsers},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := m.store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrorDuplicateEntry) {
			return nil, fmt.Errorf("email[%s]: %w", emailAddress, ErrorUserExists)
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	if err := m.SendVerificationEmail(ctx, user); err != nil {
		m.serviceLogs <- common.ServiceLogf(common.LogLevelError, "failed to send verification email to user[%s]: %s", user.Id, err)
	}
	m.serviceLogs <- common.ServiceLogf(common.LogLevelInfo, "user[%s] signed up", user.Id)
	return &user, nil
}

// SendVerificationEmail issues a fresh verification token for the user
func (m *Manager) SendVerificationEmail(ctx context.Context, user store.User) error {
	token, digest, err := auth.CreateOpaqueToken()
	if err != nil {
		return fmt.Errorf("failed to create verification token: %w", err)
	}
	if err := m.store.CreateVerificationToken(ctx, store.VerificationToken{
		Digest:    digest,
		UserId:    user.Id,
		Purpose:   store.TokenPurposeEmailVerification,
		ExpiresAt: m.now().Add(m.verificationTtl),
	}); err != nil {
		return fmt.Errorf("failed to store verification token: %w", err)
	}
	return m.mailer.SendEmailVerification(ctx, email.User{Address: user.Email, Name: user.Name}, token)
}

func (m *Manager) VerifyEmail(ctx context.Context, token string) (*store.User, error) {
	verification, err := m.store.ConsumeVerificationToken(ctx, auth.DigestOpaqueToken(token), store.TokenPurposeEmailVerification, m.now())
	if err != nil {
		if errors.Is(err, store.ErrorNotFound) || errors.Is(err, store.ErrorExpired) {
			return nil, fmt.Errorf("%w: %w", ErrorInvalidToken, err)
		}
		return nil, fmt.Errorf("failed to consume verification token: %w", err)
	}
	if err := m.store.SetUserEmailVerified(ctx, verification.UserId); err != nil {
		return nil, fmt.Errorf("failed to verify user[%s]: %w", verification.UserId, err)
	}
	m.invalidateUser(ctx, verification.UserId)
	return m.store.GetUserById(ctx, verification.UserId)
}

// compareUnknownUser burns the same time a real password check would so
// that unknown emails cannot be told apart by latency
func (m *Manager) compareUnknownUser(password string) {
	m.unknownUserHashOnce.Do(func() {
		m.unknownUserHash, _ = auth.HashPassword(unknownUserPasswordPadding)
	})
	auth.ValidatePassword(password, m.unknownUserHash)
}

func (m *Manager) SignInEmail(ctx context.Context, input SignInInput) (*Session, error) {
	user, err := m.store.GetUserByEmail(ctx, auth.NormalizeEmail(input.Email))
	if err != nil {
		if errors.Is(err, store.ErrorNotFound) {
			m.compareUnknownUser(input.Password)
			return nil, ErrorInvalidCredentials
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if !auth.ValidatePassword(input.Password, user.PasswordHash) {
		return nil, ErrorInvalidCredentials
	}
	if !user.IsActive {
		return nil, ErrorUserSuspended
	}
	if !user.EmailVerified {
		return nil, ErrorEmailNotVerified
	}
	if user.MfaEnabled {
		loginId, digest, err := auth.CreateOpaqueToken()
		if err != nil {
			return nil, fmt.Errorf("failed to create pending login: %w", err)
		}
		if err := m.store.CreatePendingLogin(ctx, store.PendingLogin{
			Digest:    digest,
			UserId:    user.Id,
			IpAddress: input.IpAddress,
			UserAgent: input.UserAgent,
			ExpiresAt: m.now().Add(m.pendingLoginTtl),
		}); err != nil {
			return nil, fmt.Errorf("failed to store pending login: %w", err)
		}
		return nil, &TwoFactorRequiredError{LoginId: loginId}
	}
	return m.create(ctx, *user, input.IpAddress, input.UserAgent)
}

// SignInTwoFactor completes a pending login with a TOTP code or one of
// the user's backup codes. A pending login can only be attempted once
func (m *Manager) SignInTwoFactor(ctx context.Context, loginId, code string) (*Session, error) {
	now := m.now()
	login, err := m.store.ConsumePendingLogin(ctx, auth.DigestOpaqueToken(loginId), now)
	if err != nil {
		if errors.Is(err, store.ErrorNotFound) || errors.Is(err, store.ErrorExpired) {
			return nil, fmt.Errorf("%w: %w", ErrorInvalidToken, err)
		}
		return nil, fmt.Errorf("failed to load pending login: %w", err)
	}
	user, err := m.store.GetUserById(ctx, login.UserId)
	if err != nil {
		return nil, fmt.Errorf("failed to load user[%s]: %w", login.UserId, err)
	}
	if !user.IsActive {
		return nil, ErrorUserSuspended
	}
	if err := m.verifySecondFactor(ctx, user.Id, code, now); err != nil {
		return nil, err
	}
	return m.create(ctx, *user, login.IpAddress, login.UserAgent)
}

func (m *Manager) verifySecondFactor(ctx context.Context, userId, code string, now time.Time) error {
	twoFactor, err := m.store.GetTwoFactor(ctx, userId)
	if err != nil {
		if errors.Is(err, store.ErrorNotFound) {
			return ErrorTwoFactorNotEnabled
		}
		return fmt.Errorf("failed to load two factor of user[%s]: %w", userId, err)
	}
	if !twoFactor.Confirmed {
		return ErrorTwoFactorNotEnabled
	}
	if ok, err := auth.ValidateTotpToken(twoFactor.Secret, code, now); err == nil && ok {
		return nil
	}
	index := auth.MatchBackupCode(code, twoFactor.BackupCodes)
	if index < 0 {
		return ErrorInvalidTwoFactorCode
	}
	remaining := append(append([]string{}, twoFactor.BackupCodes[:index]...), twoFactor.BackupCodes[index+1:]...)
	if err := m.store.UpdateBackupCodes(ctx, userId, remaining); err != nil {
		return fmt.Errorf("failed to consume backup code: %w", err)
	}
	m.serviceLogs <- common.ServiceLogf(common.LogLevelInfo, "user[%s] used a backup code, %v remaining", userId, len(remaining))
	return nil
}

func (m *Manager) create(ctx context.Context, user store.User, ipAddress, userAgent string) (*Session, error) {
	now := m.now()
	output := &Session{
		Session: store.Session{
			Id:          uuid.NewString(),
			UserId:      user.Id,
			IpAddress:   ipAddress,
			UserAgent:   userAgent,
			CreatedAt:   now,
			RefreshedAt: now,
			ExpiresAt:   m.policy.expiryFrom(now, now),
		},
		User: user,
	}
	if err := m.store.CreateSession(ctx, output.Session); err != nil {
		return nil, fmt.Errorf("failed to store session: %w", err)
	}
	token, err := m.sign(output)
	if err != nil {
		return nil, err
	}
	output.Token = token
	m.cacheSession(ctx, output)
	m.serviceLogs <- common.ServiceLogf(common.LogLevelInfo, "user[%s] started session[%s]", user.Id, output.Id)
	return output, nil
}

func (m *Manager) sign(session *Session) (string, error) {
	token, err := auth.GenerateJwt(auth.GenerateJwtOpts{
		Email:     session.User.Email,
		ExpiresAt: session.ExpiresAt,
		IssuedAt:  m.now(),
		SessionId: session.Id,
		Secret:    m.secret,
		UserId:    session.UserId,
	})
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}
	return token, nil
}

func (m *Manager) parse(token string) (*auth.Claims, error) {
	claims, err := auth.ValidateJwt(m.secret, token, m.now())
	if err != nil {
		if errors.Is(err, auth.ErrorJwtTokenExpired) {
			return nil, ErrorSessionExpired
		}
		return nil, fmt.Errorf("%w: %w", ErrorInvalidSession, err)
	}
	return claims, nil
}

// Get resolves a signed session token. Sessions past their expiry are
// rejected regardless of activity, sessions older than UpdateAge since
// their last refresh are extended and re-signed
func (m *Manager) Get(ctx context.Context, token string) (*Session, error) {
	claims, err := m.parse(token)
	if err != nil {
		return nil, err
	}
	output, err := m.load(ctx, claims.UserId, claims.ID)
	if err != nil {
		return nil, err
	}
	now := m.now()
	if !now.Before(output.ExpiresAt) {
		m.purge(ctx, output.UserId, output.Id)
		return nil, ErrorSessionExpired
	}
	if !output.User.IsActive {
		return nil, ErrorUserSuspended
	}
	if now.Sub(output.RefreshedAt) < m.policy.UpdateAge {
		return output, nil
	}
	expiresAt := m.policy.expiryFrom(output.CreatedAt, now)
	if !expiresAt.After(output.ExpiresAt) {
		return output, nil
	}
	if err := m.store.RefreshSession(ctx, output.Id, now, expiresAt); err != nil {
		return nil, fmt.Errorf("failed to refresh session[%s]: %w", output.Id, err)
	}
	output.RefreshedAt = now
	output.ExpiresAt = expiresAt
	if output.Token, err = m.sign(output); err != nil {
		return nil, err
	}
	output.Refreshed = true
	m.cacheSession(ctx, output)
	m.serviceLogs <- common.ServiceLogf(common.LogLevelDebug, "session[%s] refreshed until %s", output.Id, expiresAt.Format(time.RFC3339))
	return output, nil
}

// load reads the session through the cookie cache
func (m *Manager) load(ctx context.Context, userId, sessionId string) (*Session, error) {
	key := m.cacheKey(userId, sessionId)
	if cached, err := m.cache.Get(ctx, key); err == nil {
		var output Session
		if err := json.Unmarshal([]byte(cached), &output); err == nil {
			return &output, nil
		}
		m.serviceLogs <- common.ServiceLogf(common.LogLevelWarn, "discarding unreadable cache entry for session[%s]", sessionId)
	} else if !errors.Is(err, cache.ErrorCacheMiss) {
		m.serviceLogs <- common.ServiceLogf(common.LogLevelWarn, "session cache unavailable: %s", err)
	}

	record, err := m.store.GetSession(ctx, sessionId)
	if err != nil {
		if errors.Is(err, store.ErrorNotFound) {
			return nil, ErrorInvalidSession
		}
		return nil, fmt.Errorf("failed to load session[%s]: %w", sessionId, err)
	}
	if record.UserId != userId {
		return nil, ErrorInvalidSession
	}
	user, err := m.store.GetUserById(ctx, userId)
	if err != nil {
		if errors.Is(err, store.ErrorNotFound) {
			return nil, ErrorInvalidSession
		}
		return nil, fmt.Errorf("failed to load user[%s]: %w", userId, err)
	}
	output := &Session{Session: *record, User: *user}
	m.cacheSession(ctx, output)
	return output, nil
}

func (m *Manager) cacheSession(ctx context.Context, session *Session) {
	encoded, err := json.Marshal(session)
	if err != nil {
		m.serviceLogs <- common.ServiceLogf(common.LogLevelWarn, "failed to encode session[%s] for caching: %s", session.Id, err)
		return
	}
	ttl := m.policy.CookieCacheMaxAge
	if untilExpiry := session.ExpiresAt.Sub(m.now()); untilExpiry < ttl {
		ttl = untilExpiry
	}
	if ttl <= 0 {
		return
	}
	if err := m.cache.Set(ctx, m.cacheKey(session.UserId, session.Id), string(encoded), ttl); err != nil {
		m.serviceLogs <- common.ServiceLogf(common.LogLevelWarn, "failed to cache session[%s]: %s", session.Id, err)
	}
}

func (m *Manager) invalidate(ctx context.Context, userId, sessionId string) {
	if err := m.cache.Del(ctx, m.cacheKey(userId, sessionId)); err != nil {
		m.serviceLogs <- common.ServiceLogf(common.LogLevelWarn, "failed to invalidate cached session[%s]: %s", sessionId, err)
	}
}

// invalidateUser drops every cached session of the user so the next
// request observes changes to the user record
func (m *Manager) invalidateUser(ctx context.Context, userId string) {
	keys, err := m.cache.Scan(ctx, m.cacheKey(userId, ""))
	if err != nil {
		m.serviceLogs <- common.ServiceLogf(common.LogLevelWarn, "failed to list cached sessions of user[%s]: %s", userId, err)
		return
	}
	for _, key := range keys {
		if err := m.cache.Del(ctx, key); err != nil {
			m.serviceLogs <- common.ServiceLogf(common.LogLevelWarn, "failed to invalidate cache key[%s]: %s", key, err)
		}
	}
}

func (m *Manager) purge(ctx context.Context, userId, sessionId string) {
	if err := m.store.DeleteSession(ctx, sessionId); err != nil {
		m.serviceLogs <- common.ServiceLogf(common.LogLevelWarn, "failed to delete expired session[%s]: %s", sessionId, err)
	}
	m.invalidate(ctx, userId, sessionId)
}

// SignOut ends the session the token belongs to, expired tokens are
// accepted so that a stale cookie can always be cleared
func (m *Manager) SignOut(ctx context.Context, token string) error {
	claims, err := auth.ValidateJwt(m.secret, token, time.Time{})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrorInvalidSession, err)
	}
	if err := m.store.DeleteSession(ctx, claims.ID); err != nil {
		return fmt.Errorf("failed to delete session[%s]: %w", claims.ID, err)
	}
	m.invalidate(ctx, claims.UserId, claims.ID)
	m.serviceLogs <- common.ServiceLogf(common.LogLevelInfo, "user[%s] signed out of session[%s]", claims.UserId, claims.ID)
	return nil
}

func (m *Manager) Revoke(ctx context.Context, sessionId string) error {
	record, err := m.store.GetSession(ctx, sessionId)
	if err != nil {
		if errors.Is(err, store.ErrorNotFound) {
			return ErrorInvalidSession
		}
		return fmt.Errorf("failed to load session[%s]: %w", sessionId, err)
	}
	if err := m.store.DeleteSession(ctx, sessionId); err != nil {
		return fmt.Errorf("failed to delete session[%s]: %w", sessionId, err)
	}
	m.invalidate(ctx, record.UserId, sessionId)
	return nil
}

func (m *Manager) RevokeAll(ctx context.Context, userId string) (int, error) {
	ids, err := m.store.DeleteUserSessions(ctx, userId)
	if err != nil {
		return 0, fmt.Errorf("failed to delete sessions of user[%s]: %w", userId, err)
	}
	m.invalidateUser(ctx, userId)
	m.serviceLogs <- common.ServiceLogf(common.LogLevelInfo, "revoked %v sessions of user[%s]", len(ids), userId)
	return len(ids), nil
}

func (m *Manager) ListSessions(ctx context.Context, userId string) ([]store.Session, error) {
	return m.store.ListUserSessions(ctx, userId)
}

// SetActiveOrganization records the organization subsequent requests act
// on. Membership is checked by the caller
func (m *Manager) SetActiveOrganization(ctx context.Context, token, orgId string) (*Session, error) {
	current, err := m.Get(ctx, token)
	if err != nil {
		return nil, err
	}
	if err := m.store.SetSessionActiveOrganization(ctx, current.Id, orgId); err != nil {
		return nil, fmt.Errorf("failed to set active organization of session[%s]: %w", current.Id, err)
	}
	m.invalidate(ctx, current.UserId, current.Id)
	current.ActiveOrgId = orgId
	return current, nil
}

// PurgeExpired deletes sessions, pending logins and verification tokens
// past their expiry
func (m *Manager) PurgeExpired(ctx context.Context) (int64, error) {
	return m.store.DeleteExpiredSessions(ctx, m.now())
}
