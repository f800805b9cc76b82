package controller

import (
	"net/http"

	"dotmac/internal/common"

	"github.com/gorilla/mux"
)

func (a *httpApplication) registerTwoFactorRoutes(router *mux.Router) {
	router.HandleFunc("/two-factor/verify", a.handleVerifyTwoFactor).Methods(http.MethodPost)

	authed := router.NewRoute().Subrouter()
	authed.Use(a.getRouteAuther())
	authed.HandleFunc("/two-factor/enable", a.handleEnableTwoFactor).Methods(http.MethodPost)
	authed.HandleFunc("/two-factor/confirm", a.handleConfirmTwoFactor).Methods(http.MethodPost)
}

type handleVerifyTwoFactorInput struct {
	LoginId string `json:"loginId"`
	Code    string `json:"code"`
}

func (a *httpApplication) handleVerifyTwoFactor(w http.ResponseWriter, r *http.Request) {
	var input handleVerifyTwoFactorInput
	if err := readBody(r, &input); err != nil {
		common.SendHttpFailResponse(w, r, http.StatusBadRequest, "failed to read request", err)
		return
	}
	if input.LoginId == "" || input.Code == "" {
		common.SendHttpFailResponse(w, r, http.StatusBadRequest, "failed to receive a login id and code", ErrorInvalidBody)
		return
	}
	current, err := a.auth.SignInTwoFactor(r.Context(), input.LoginId, input.Code)
	if err != nil {
		common.SendHttpFailResponse(w, r, getStatusCode(err), "failed to verify second factor", err)
		return
	}
	a.sendSession(w, r, current)
}

type handleEnableTwoFactorInput struct {
	Password string `json:"password"`
}

func (a *httpApplication) handleEnableTwoFactor(w http.ResponseWriter, r *http.Request) {
	identity := getIdentity(r)
	var input handleEnableTwoFactorInput
	if err := readBody(r, &input); err != nil {
		common.SendHttpFailResponse(w, r, http.StatusBadRequest, "failed to read request", err)
		return
	}
	setup, err := a.auth.EnableTwoFactor(r.Context(), identity.Session.UserId, input.Password)
	if err != nil {
		common.SendHttpFailResponse(w, r, getStatusCode(err), "failed to enable two factor", err)
		return
	}
	common.SendHttpSuccessResponse(w, r, http.StatusOK, "confirm with a code to finish", setup)
}

type handleConfirmTwoFactorInput struct {
	Code string `json:"code"`
}

func (a *httpApplication) handleConfirmTwoFactor(w http.ResponseWriter, r *http.Request) {
	identity := getIdentity(r)
	var input handleConfirmTwoFactorInput
	if err := readBody(r, &input); err != nil {
		common.SendHttpFailResponse(w, r, http.StatusBadRequest, "failed to read request", err)
		return
	}
	if err := a.auth.ConfirmTwoFactor(r.Context(), identity.Session.UserId, input.Code); err != nil {
		common.SendHttpFailResponse(w, r, getStatusCode(err), "failed to confirm two factor", err)
		return
	}
	common.SendHttpSuccessResponse(w, r, http.StatusOK, "two factor enabled")
}
