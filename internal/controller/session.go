package controller

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"dotmac/internal/common"
	"dotmac/internal/session"
	"dotmac/internal/store"

	"github.com/gorilla/mux"
)

func (a *httpApplication) registerSessionRoutes(router *mux.Router) {
	router.HandleFunc("/sign-up/email", a.handleSignUpEmail).Methods(http.MethodPost)
	router.HandleFunc("/sign-in/email", a.handleSignInEmail).Methods(http.MethodPost)
	router.HandleFunc("/verify-email", a.handleVerifyEmail).Methods(http.MethodGet, http.MethodPost)
	router.HandleFunc("/sign-out", a.handleSignOut).Methods(http.MethodPost)

	authed := router.NewRoute().Subrouter()
	authed.Use(a.getRouteAuther())
	authed.HandleFunc("/get-session", a.handleGetSession).Methods(http.MethodGet)
	authed.HandleFunc("/revoke-session", a.handleRevokeSession).Methods(http.MethodPost)
}

type sessionView struct {
	Id                   string    `json:"id"`
	UserId               string    `json:"userId"`
	ActiveOrganizationId string    `json:"activeOrganizationId,omitempty"`
	CreatedAt            time.Time `json:"createdAt"`
	ExpiresAt            time.Time `json:"expiresAt"`
}

type sessionOutput struct {
	Session sessionView `json:"session"`
	User    store.User  `json:"user"`
	Role    string      `json:"role,omitempty"`
}

func newSessionOutput(current *session.Session) sessionOutput {
	return sessionOutput{
		Session: sessionView{
			Id:                   current.Id,
			UserId:               current.UserId,
			ActiveOrganizationId: current.ActiveOrgId,
			CreatedAt:            current.CreatedAt,
			ExpiresAt:            current.ExpiresAt,
		},
		User: current.User,
	}
}

type handleSignUpEmailInput struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

func (a *httpApplication) handleSignUpEmail(w http.ResponseWriter, r *http.Request) {
	var input handleSignUpEmailInput
	if err := readBody(r, &input); err != nil {
		common.SendHttpFailResponse(w, r, http.StatusBadRequest, "failed to read request", err)
		return
	}
	user, err := a.auth.SignUpEmail(r.Context(), session.SignUpInput{
		Email:    input.Email,
		Name:     input.Name,
		Password: input.Password,
	})
	if err != nil {
		common.SendHttpFailResponse(w, r, getStatusCode(err), "failed to sign up", err)
		return
	}
	common.SendHttpSuccessResponse(w, r, http.StatusCreated, "verification email sent", user)
}

type handleSignInEmailInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type handleSignInEmailOutput struct {
	TwoFactorRequired bool   `json:"twoFactorRequired"`
	LoginId           string `json:"loginId"`
}

func (a *httpApplication) handleSignInEmail(w http.ResponseWriter, r *http.Request) {
	var input handleSignInEmailInput
	if err := readBody(r, &input); err != nil {
		common.SendHttpFailResponse(w, r, http.StatusBadRequest, "failed to read request", err)
		return
	}
	if input.Email == "" || input.Password == "" {
		common.SendHttpFailResponse(w, r, http.StatusBadRequest, "failed to receive credentials", ErrorInvalidBody)
		return
	}
	current, err := a.auth.SignInEmail(r.Context(), session.SignInInput{
		Email:     input.Email,
		Password:  input.Password,
		IpAddress: common.RequestIp(r),
		UserAgent: r.UserAgent(),
	})
	if err != nil {
		var twoFactorRequired *session.TwoFactorRequiredError
		if errors.As(err, &twoFactorRequired) {
			common.SendHttpSuccessResponse(w, r, http.StatusOK, "two factor required", handleSignInEmailOutput{
				TwoFactorRequired: true,
				LoginId:           twoFactorRequired.LoginId,
			})
			return
		}
		common.SendHttpFailResponse(w, r, getStatusCode(err), "failed to sign in", err)
		return
	}
	a.sendSession(w, r, current)
}

func (a *httpApplication) sendSession(w http.ResponseWriter, r *http.Request, current *session.Session) {
	if current.Token != "" {
		http.SetCookie(w, a.auth.Policy().Cookie(current.Token, current.ExpiresAt))
	}
	common.SendHttpSuccessResponse(w, r, http.StatusOK, "ok", newSessionOutput(current))
}

type handleVerifyEmailInput struct {
	Token string `json:"token"`
}

func (a *httpApplication) handleVerifyEmail(w http.ResponseWriter, r *http.Request) {
	input := handleVerifyEmailInput{Token: r.URL.Query().Get("token")}
	if input.Token == "" {
		if err := readBody(r, &input); err != nil {
			common.SendHttpFailResponse(w, r, http.StatusBadRequest, "failed to read request", err)
			return
		}
	}
	if input.Token == "" {
		common.SendHttpFailResponse(w, r, http.StatusBadRequest, "failed to receive a token", ErrorInvalidBody)
		return
	}
	user, err := a.auth.VerifyEmail(r.Context(), input.Token)
	if err != nil {
		common.SendHttpFailResponse(w, r, getStatusCode(err), "failed to verify email", err)
		return
	}
	common.SendHttpSuccessResponse(w, r, http.StatusOK, "email verified", user)
}

func (a *httpApplication) handleGetSession(w http.ResponseWriter, r *http.Request) {
	identity := getIdentity(r)
	output := newSessionOutput(identity.Session)
	output.Role = identity.Org.Role
	common.SendHttpSuccessResponse(w, r, http.StatusOK, "ok", output)
}

// handleSignOut always clears the cookie, even when the session is
// already gone
func (a *httpApplication) handleSignOut(w http.ResponseWriter, r *http.Request) {
	log := common.GetRequestLogger(r)
	http.SetCookie(w, a.auth.Policy().ClearCookie())
	if token := a.getSessionToken(r); token != "" {
		if err := a.auth.SignOut(r.Context(), token); err != nil {
			log(common.LogLevelWarn, fmt.Sprintf("failed to end session: %s", err))
		}
	}
	common.SendHttpSuccessResponse(w, r, http.StatusOK, "signed out")
}

type handleRevokeSessionInput struct {
	SessionId string `json:"sessionId"`
}

func (a *httpApplication) handleRevokeSession(w http.ResponseWriter, r *http.Request) {
	identity := getIdentity(r)
	var input handleRevokeSessionInput
	if err := readBody(r, &input); err != nil {
		common.SendHttpFailResponse(w, r, http.StatusBadRequest, "failed to read request", err)
		return
	}
	if input.SessionId == "" {
		common.SendHttpFailResponse(w, r, http.StatusBadRequest, "failed to receive a session id", ErrorInvalidBody)
		return
	}
	if err := a.auth.RevokeSession(r.Context(), identity.Session.UserId, input.SessionId); err != nil {
		statusCode := getStatusCode(err)
		if errors.Is(err, session.ErrorInvalidSession) {
			statusCode = http.StatusNotFound
		}
		common.SendHttpFailResponse(w, r, statusCode, "failed to revoke session", err)
		return
	}
	if input.SessionId == identity.Session.Id {
		http.SetCookie(w, a.auth.Policy().ClearCookie())
	}
	common.SendHttpSuccessResponse(w, r, http.StatusOK, "session revoked")
}
