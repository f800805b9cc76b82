package controller

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"dotmac/internal/accesscontrol"
	"dotmac/internal/common"
	"dotmac/internal/org"
	"dotmac/internal/session"
)

const userAuthRequestContext common.HttpContextKey = "controller-auth"

type userIdentity struct {
	// Session is the caller's validated session
	Session *session.Session

	// Org is the caller's role in the session's active organization
	Org org.Context

	// SourceIp is the IP address that the request came from
	SourceIp string

	// Token is the signed session token the request carried
	Token string

	// UserAgent is the user agent of the request
	UserAgent string
}

func getIdentity(r *http.Request) userIdentity {
	identity, _ := r.Context().Value(userAuthRequestContext).(userIdentity)
	return identity
}

// getSessionToken prefers the session cookie and falls back to a bearer
// token for non-browser clients
func (a *httpApplication) getSessionToken(r *http.Request) string {
	if cookie, err := r.Cookie(a.auth.Policy().CookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	authorizationHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authorizationHeader, "Bearer ") {
		return strings.TrimPrefix(authorizationHeader, "Bearer ")
	}
	return ""
}

// wantsHtml is true for browser navigations, they get redirected instead
// of receiving a JSON error
func wantsHtml(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "text/html")
}

func (a *httpApplication) sendUnauthorized(w http.ResponseWriter, r *http.Request, statusCode int, message string, err error) {
	if wantsHtml(r) {
		target := a.loginPath + "?" + url.Values{"next": {r.URL.RequestURI()}}.Encode()
		http.Redirect(w, r, target, http.StatusSeeOther)
		return
	}
	common.SendHttpFailResponse(w, r, statusCode, message, err)
}

// getRouteAuther resolves the session and the active organization role
// of the caller. A refreshed session gets its new token written back as
// a cookie
func (a *httpApplication) getRouteAuther() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			log := common.GetRequestLogger(r)
			a.serviceLogs <- common.ServiceLogf(common.LogLevelTrace, "auth middleware is executing")
			token := a.getSessionToken(r)
			current, err := a.auth.GetSession(r.Context(), token)
			if err != nil {
				if isInternalError(err) {
					common.SendHttpFailResponse(w, r, http.StatusInternalServerError, "failed to retrieve session", err)
					return
				}
				a.sendUnauthorized(w, r, http.StatusUnauthorized, "failed to retrieve session", ErrorAuthRequired)
				return
			}
			if current.Token != "" && current.Token != token {
				http.SetCookie(w, a.auth.Policy().Cookie(current.Token, current.ExpiresAt))
				token = current.Token
			}
			orgCtx, err := a.auth.ResolveContext(r.Context(), current.UserId, current.ActiveOrgId)
			if err != nil {
				if !errors.Is(err, org.ErrorNotMember) {
					common.SendHttpFailResponse(w, r, http.StatusInternalServerError, "failed to resolve organization", err)
					return
				}
				log(common.LogLevelWarn, fmt.Sprintf("user[%s] is no longer a member of active org[%s]", current.UserId, current.ActiveOrgId))
				orgCtx = &org.Context{UserId: current.UserId}
			}
			log(common.LogLevelInfo, fmt.Sprintf("processing request from user[%s]", current.UserId))
			identityInstance := userIdentity{
				Session:   current,
				Org:       *orgCtx,
				SourceIp:  common.RequestIp(r),
				Token:     token,
				UserAgent: r.UserAgent(),
			}
			authContext := context.WithValue(r.Context(), userAuthRequestContext, identityInstance)
			next.ServeHTTP(w, r.WithContext(authContext))
		})
	}
}

// requirePermission must run after getRouteAuther
func (a *httpApplication) requirePermission(grants accesscontrol.Grants) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity := getIdentity(r)
			allowed, err := a.auth.HasPermission(r.Context(), identity.Org, grants)
			if err != nil {
				common.SendHttpFailResponse(w, r, http.StatusInternalServerError, "failed to check permissions", err)
				return
			}
			if !allowed {
				a.sendUnauthorized(w, r, http.StatusForbidden, "insufficient permissions", ErrorForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
