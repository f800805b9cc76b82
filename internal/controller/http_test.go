package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"dotmac/internal/authn"
	"dotmac/internal/cache"
	"dotmac/internal/common"
	"dotmac/internal/config"
	"dotmac/internal/email"
	"dotmac/internal/store"

	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPassword = "Sup3r$ecret!"

type capturingMailer struct {
	tokens map[string]string
}

func (m *capturingMailer) SendEmailVerification(_ context.Context, to email.User, token string) error {
	m.tokens[to.Address] = token
	return nil
}

type testApp struct {
	handler http.Handler
	mailer  *capturingMailer
	now     time.Time
}

func newTestApp(t *testing.T, getenv map[string]string) *testApp {
	now := time.Now().UTC().Truncate(time.Second)
	clock := func() time.Time { return now }
	mailer := &capturingMailer{tokens: map[string]string{}}
	instance, err := authn.New(config.LoadAuth(func(key string) string { return getenv[key] }), authn.Deps{
		Store:  store.NewMemory(),
		Cache:  cache.NewMemory(cache.NewMemoryOpts{Now: clock}),
		Mailer: mailer,
		Now:    clock,
	})
	require.NoError(t, err)
	handler, err := GetHttpApplication(HttpApplicationOpts{
		Auth:        instance,
		ServiceLogs: common.GetNoopServiceLog(),
	})
	require.NoError(t, err)
	return &testApp{handler: handler, mailer: mailer, now: now}
}

func newRealApp(t *testing.T) *testApp {
	return newTestApp(t, map[string]string{
		config.EnvAuthSecret:  "0123456789abcdef0123456789abcdef",
		config.EnvDatabaseUrl: "postgres://localhost/dotmac",
	})
}

type response struct {
	*httptest.ResponseRecorder
	body common.HttpResponse
}

func (r response) data(t *testing.T, into any) {
	encoded, err := json.Marshal(r.body.Data)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(encoded, into))
}

func (r response) sessionCookie() *http.Cookie {
	for _, cookie := range r.Result().Cookies() {
		if cookie.Name == "dotmac.session_token" {
			return cookie
		}
	}
	return nil
}

func (a *testApp) do(t *testing.T, method, path string, body any, cookie *http.Cookie, header ...string) response {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		require.NoError(t, err)
	}
	request := httptest.NewRequest(method, path, bytes.NewReader(payload))
	request.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(header); i += 2 {
		request.Header.Set(header[i], header[i+1])
	}
	if cookie != nil {
		request.AddCookie(&http.Cookie{Name: cookie.Name, Value: cookie.Value})
	}
	recorder := httptest.NewRecorder()
	a.handler.ServeHTTP(recorder, request)
	output := response{ResponseRecorder: recorder}
	if recorder.Header().Get("Content-Type") == "application/json" {
		require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &output.body))
	}
	return output
}

func (a *testApp) signIn(t *testing.T, emailAddress string) *http.Cookie {
	signUp := a.do(t, http.MethodPost, "/api/auth/sign-up/email", map[string]string{
		"email": emailAddress, "password": testPassword, "name": "Ops",
	}, nil)
	require.Equal(t, http.StatusCreated, signUp.Code, signUp.Body.String())

	notVerified := a.do(t, http.MethodPost, "/api/auth/sign-in/email", map[string]string{
		"email": emailAddress, "password": testPassword,
	}, nil)
	require.Equal(t, http.StatusLocked, notVerified.Code)

	verify := a.do(t, http.MethodGet, "/api/auth/verify-email?token="+a.mailer.tokens[emailAddress], nil, nil)
	require.Equal(t, http.StatusOK, verify.Code, verify.Body.String())

	signIn := a.do(t, http.MethodPost, "/api/auth/sign-in/email", map[string]string{
		"email": emailAddress, "password": testPassword,
	}, nil)
	require.Equal(t, http.StatusOK, signIn.Code, signIn.Body.String())
	cookie := signIn.sessionCookie()
	require.NotNil(t, cookie)
	assert.True(t, cookie.HttpOnly)
	return cookie
}

func TestGetHttpApplicationValidatesOpts(t *testing.T) {
	_, err := GetHttpApplication(HttpApplicationOpts{})
	assert.ErrorIs(t, err, ErrorMissingAuth)
	assert.ErrorIs(t, err, ErrorMissingServiceLog)
}

func TestUnauthenticatedRequests(t *testing.T) {
	app := newRealApp(t)

	jsonResponse := app.do(t, http.MethodGet, "/api/auth/get-session", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, jsonResponse.Code)
	assert.False(t, jsonResponse.body.Success)
	assert.Equal(t, ErrorAuthRequired.Error(), jsonResponse.body.Data)

	browser := app.do(t, http.MethodGet, "/api/auth/organization/list", nil, nil, "Accept", "text/html,application/xhtml+xml")
	assert.Equal(t, http.StatusSeeOther, browser.Code)
	assert.Equal(t, "/login?next=%2Fapi%2Fauth%2Forganization%2Flist", browser.Header().Get("Location"))

	badCredentials := app.do(t, http.MethodPost, "/api/auth/sign-in/email", map[string]string{
		"email": "nobody@example.com", "password": testPassword,
	}, nil)
	assert.Equal(t, http.StatusUnauthorized, badCredentials.Code)
}

func TestSignUpRejectsWeakPassword(t *testing.T) {
	app := newRealApp(t)
	signUp := app.do(t, http.MethodPost, "/api/auth/sign-up/email", map[string]string{
		"email": "ops@example.com", "password": "short",
	}, nil)
	assert.Equal(t, http.StatusBadRequest, signUp.Code)
}

func TestSessionAndOrganizationFlow(t *testing.T) {
	app := newRealApp(t)
	cookie := app.signIn(t, "owner@example.com")

	current := app.do(t, http.MethodGet, "/api/auth/get-session", nil, cookie)
	require.Equal(t, http.StatusOK, current.Code)
	var session sessionOutput
	current.data(t, &session)
	assert.Equal(t, "owner@example.com", session.User.Email)
	assert.Empty(t, session.Session.ActiveOrganizationId)

	noActiveOrg := app.do(t, http.MethodGet, "/api/auth/organization/members", nil, cookie)
	assert.Equal(t, http.StatusForbidden, noActiveOrg.Code)

	created := app.do(t, http.MethodPost, "/api/auth/organization/create", map[string]string{"name": "Acme Fibre"}, cookie)
	require.Equal(t, http.StatusCreated, created.Code, created.Body.String())
	var organization store.Organization
	created.data(t, &organization)
	assert.Equal(t, "acme-fibre", organization.Slug)

	setActive := app.do(t, http.MethodPost, "/api/auth/organization/set-active", map[string]string{"organizationId": organization.Id}, cookie)
	require.Equal(t, http.StatusOK, setActive.Code, setActive.Body.String())

	current = app.do(t, http.MethodGet, "/api/auth/get-session", nil, cookie)
	current.data(t, &session)
	assert.Equal(t, organization.Id, session.Session.ActiveOrganizationId)
	assert.Equal(t, "owner", session.Role)

	allowed := app.do(t, http.MethodPost, "/api/auth/organization/has-permission", map[string]any{
		"permissions": map[string][]string{"organization": {"delete"}, "billing": {"refund"}},
	}, cookie)
	require.Equal(t, http.StatusOK, allowed.Code)
	var check handleHasPermissionOutput
	allowed.data(t, &check)
	assert.True(t, check.Allowed)

	undeclared := app.do(t, http.MethodPost, "/api/auth/organization/has-permission", map[string]any{
		"permissions": map[string][]string{"organization": {"fly"}},
	}, cookie)
	undeclared.data(t, &check)
	assert.False(t, check.Allowed)

	members := app.do(t, http.MethodGet, "/api/auth/organization/members", nil, cookie)
	require.Equal(t, http.StatusOK, members.Code)
	var memberList []store.Member
	members.data(t, &memberList)
	require.Len(t, memberList, 1)
	assert.Equal(t, "owner", memberList[0].Role)

	list := app.do(t, http.MethodGet, "/api/auth/organization/list", nil, cookie)
	var organizations []store.MemberOrganization
	list.data(t, &organizations)
	require.Len(t, organizations, 1)

	outsider := app.signIn(t, "outsider@example.com")
	forbidden := app.do(t, http.MethodPost, "/api/auth/organization/delete", map[string]string{"organizationId": organization.Id}, outsider)
	assert.Equal(t, http.StatusForbidden, forbidden.Code)
	notMember := app.do(t, http.MethodPost, "/api/auth/organization/set-active", map[string]string{"organizationId": organization.Id}, outsider)
	assert.Equal(t, http.StatusForbidden, notMember.Code)

	deleted := app.do(t, http.MethodPost, "/api/auth/organization/delete", map[string]string{"organizationId": organization.Id}, cookie)
	assert.Equal(t, http.StatusOK, deleted.Code, deleted.Body.String())

	signOut := app.do(t, http.MethodPost, "/api/auth/sign-out", nil, cookie)
	require.Equal(t, http.StatusOK, signOut.Code)
	cleared := signOut.sessionCookie()
	require.NotNil(t, cleared)
	assert.Equal(t, -1, cleared.MaxAge)

	afterSignOut := app.do(t, http.MethodGet, "/api/auth/get-session", nil, cookie)
	assert.Equal(t, http.StatusUnauthorized, afterSignOut.Code)
}

func TestRevokeSession(t *testing.T) {
	app := newRealApp(t)
	cookie := app.signIn(t, "ops@example.com")
	current := app.do(t, http.MethodGet, "/api/auth/get-session", nil, cookie)
	var session sessionOutput
	current.data(t, &session)

	unknown := app.do(t, http.MethodPost, "/api/auth/revoke-session", map[string]string{"sessionId": "nope"}, cookie)
	assert.Equal(t, http.StatusNotFound, unknown.Code)

	revoked := app.do(t, http.MethodPost, "/api/auth/revoke-session", map[string]string{"sessionId": session.Session.Id}, cookie)
	require.Equal(t, http.StatusOK, revoked.Code)
	assert.Equal(t, http.StatusUnauthorized, app.do(t, http.MethodGet, "/api/auth/get-session", nil, cookie).Code)
}

func TestTwoFactorFlow(t *testing.T) {
	app := newRealApp(t)
	cookie := app.signIn(t, "mfa@example.com")

	enable := app.do(t, http.MethodPost, "/api/auth/two-factor/enable", map[string]string{"password": testPassword}, cookie)
	require.Equal(t, http.StatusOK, enable.Code, enable.Body.String())
	var setup struct {
		Secret      string   `json:"secret"`
		BackupCodes []string `json:"backupCodes"`
	}
	enable.data(t, &setup)
	require.NotEmpty(t, setup.Secret)
	require.NotEmpty(t, setup.BackupCodes)

	code, err := totp.GenerateCode(setup.Secret, app.now)
	require.NoError(t, err)
	wrong := app.do(t, http.MethodPost, "/api/auth/two-factor/confirm", map[string]string{"code": "000000x"}, cookie)
	assert.Equal(t, http.StatusUnauthorized, wrong.Code)
	confirm := app.do(t, http.MethodPost, "/api/auth/two-factor/confirm", map[string]string{"code": code}, cookie)
	require.Equal(t, http.StatusOK, confirm.Code, confirm.Body.String())

	signIn := app.do(t, http.MethodPost, "/api/auth/sign-in/email", map[string]string{
		"email": "mfa@example.com", "password": testPassword,
	}, nil)
	require.Equal(t, http.StatusOK, signIn.Code)
	assert.Nil(t, signIn.sessionCookie())
	var pending handleSignInEmailOutput
	signIn.data(t, &pending)
	require.True(t, pending.TwoFactorRequired)

	verify := app.do(t, http.MethodPost, "/api/auth/two-factor/verify", map[string]string{
		"loginId": pending.LoginId, "code": setup.BackupCodes[0],
	}, nil)
	require.Equal(t, http.StatusOK, verify.Code, verify.Body.String())
	require.NotNil(t, verify.sessionCookie())

	replay := app.do(t, http.MethodPost, "/api/auth/two-factor/verify", map[string]string{
		"loginId": pending.LoginId, "code": setup.BackupCodes[0],
	}, nil)
	assert.Equal(t, http.StatusBadRequest, replay.Code)
}

func TestBypassServesMockSession(t *testing.T) {
	app := newTestApp(t, map[string]string{config.EnvE2eAuthBypass: "true"})

	current := app.do(t, http.MethodGet, "/api/auth/get-session", nil, nil)
	require.Equal(t, http.StatusOK, current.Code)
	var session sessionOutput
	current.data(t, &session)
	assert.Equal(t, authn.MockUserId, session.User.Id)
	assert.Equal(t, authn.MockOrgId, session.Session.ActiveOrganizationId)
	assert.Equal(t, "owner", session.Role)

	members := app.do(t, http.MethodGet, "/api/auth/organization/members", nil, nil)
	assert.Equal(t, http.StatusOK, members.Code)
}

func TestHealthEndpoints(t *testing.T) {
	app := newRealApp(t)
	assert.Equal(t, http.StatusOK, app.do(t, http.MethodGet, "/healthz", nil, nil).Code)
	assert.Equal(t, http.StatusNotFound, app.do(t, http.MethodGet, "/nope", nil, nil).Code)
}
