package controller

import (
	"errors"
	"net/http"

	"dotmac/internal/accesscontrol"
	"dotmac/internal/common"
	"dotmac/internal/org"

	"github.com/gorilla/mux"
)

func (a *httpApplication) registerOrgRoutes(router *mux.Router) {
	authed := router.PathPrefix("/organization").Subrouter()
	authed.Use(a.getRouteAuther())
	authed.HandleFunc("/create", a.handleCreateOrg).Methods(http.MethodPost)
	authed.HandleFunc("/delete", a.handleDeleteOrg).Methods(http.MethodPost)
	authed.HandleFunc("/set-active", a.handleSetActiveOrg).Methods(http.MethodPost)
	authed.HandleFunc("/list", a.handleListOrgs).Methods(http.MethodGet)
	authed.HandleFunc("/has-permission", a.handleHasPermission).Methods(http.MethodPost)

	members := authed.PathPrefix("/members").Subrouter()
	members.Use(a.requirePermission(accesscontrol.Grants{
		accesscontrol.ResourceOrganization: {accesscontrol.ActionRead},
	}))
	members.HandleFunc("", a.handleListMembers).Methods(http.MethodGet)
}

type handleCreateOrgInput struct {
	Name     string            `json:"name"`
	Slug     string            `json:"slug"`
	Metadata map[string]string `json:"metadata"`
}

func (a *httpApplication) handleCreateOrg(w http.ResponseWriter, r *http.Request) {
	identity := getIdentity(r)
	var input handleCreateOrgInput
	if err := readBody(r, &input); err != nil {
		common.SendHttpFailResponse(w, r, http.StatusBadRequest, "failed to read request", err)
		return
	}
	organization, err := a.auth.CreateOrganization(r.Context(), identity.Session.UserId, org.CreateInput{
		Name:     input.Name,
		Slug:     input.Slug,
		Metadata: input.Metadata,
	})
	if err != nil {
		common.SendHttpFailResponse(w, r, getStatusCode(err), "failed to create organization", err)
		return
	}
	common.SendHttpSuccessResponse(w, r, http.StatusCreated, "organization created", organization)
}

type organizationIdInput struct {
	OrganizationId string `json:"organizationId"`
}

func (a *httpApplication) handleDeleteOrg(w http.ResponseWriter, r *http.Request) {
	identity := getIdentity(r)
	var input organizationIdInput
	if err := readBody(r, &input); err != nil {
		common.SendHttpFailResponse(w, r, http.StatusBadRequest, "failed to read request", err)
		return
	}
	if input.OrganizationId == "" {
		input.OrganizationId = identity.Org.ActiveOrgId
	}
	if input.OrganizationId == "" {
		common.SendHttpFailResponse(w, r, http.StatusBadRequest, "failed to receive an organization id", ErrorInvalidBody)
		return
	}
	if err := a.auth.DeleteOrganization(r.Context(), identity.Session.UserId, input.OrganizationId); err != nil {
		common.SendHttpFailResponse(w, r, getStatusCode(err), "failed to delete organization", err)
		return
	}
	common.SendHttpSuccessResponse(w, r, http.StatusOK, "organization deleted")
}

// handleSetActiveOrg with an empty organizationId clears the active
// organization
func (a *httpApplication) handleSetActiveOrg(w http.ResponseWriter, r *http.Request) {
	identity := getIdentity(r)
	var input organizationIdInput
	if err := readBody(r, &input); err != nil {
		common.SendHttpFailResponse(w, r, http.StatusBadRequest, "failed to read request", err)
		return
	}
	current, err := a.auth.SetActiveOrganization(r.Context(), identity.Token, input.OrganizationId)
	if err != nil {
		common.SendHttpFailResponse(w, r, getStatusCode(err), "failed to set active organization", err)
		return
	}
	a.sendSession(w, r, current)
}

func (a *httpApplication) handleListOrgs(w http.ResponseWriter, r *http.Request) {
	identity := getIdentity(r)
	organizations, err := a.auth.ListOrganizations(r.Context(), identity.Session.UserId)
	if err != nil {
		common.SendHttpFailResponse(w, r, getStatusCode(err), "failed to list organizations", err)
		return
	}
	common.SendHttpSuccessResponse(w, r, http.StatusOK, "ok", organizations)
}

type handleHasPermissionInput struct {
	// OrganizationId defaults to the session's active organization
	OrganizationId string               `json:"organizationId"`
	Permissions    accesscontrol.Grants `json:"permissions"`
}

type handleHasPermissionOutput struct {
	Allowed bool `json:"allowed"`
}

func (a *httpApplication) handleHasPermission(w http.ResponseWriter, r *http.Request) {
	identity := getIdentity(r)
	var input handleHasPermissionInput
	if err := readBody(r, &input); err != nil {
		common.SendHttpFailResponse(w, r, http.StatusBadRequest, "failed to read request", err)
		return
	}
	if len(input.Permissions) == 0 {
		common.SendHttpFailResponse(w, r, http.StatusBadRequest, "failed to receive permissions", ErrorInvalidBody)
		return
	}
	orgCtx := identity.Org
	if input.OrganizationId != "" && input.OrganizationId != orgCtx.ActiveOrgId {
		resolved, err := a.auth.ResolveContext(r.Context(), identity.Session.UserId, input.OrganizationId)
		if err != nil && !errors.Is(err, org.ErrorNotMember) {
			common.SendHttpFailResponse(w, r, http.StatusInternalServerError, "failed to resolve organization", err)
			return
		}
		if err != nil {
			common.SendHttpSuccessResponse(w, r, http.StatusOK, "ok", handleHasPermissionOutput{})
			return
		}
		orgCtx = *resolved
	}
	allowed, err := a.auth.HasPermission(r.Context(), orgCtx, input.Permissions)
	if err != nil {
		common.SendHttpFailResponse(w, r, http.StatusInternalServerError, "failed to check permissions", err)
		return
	}
	common.SendHttpSuccessResponse(w, r, http.StatusOK, "ok", handleHasPermissionOutput{Allowed: allowed})
}

func (a *httpApplication) handleListMembers(w http.ResponseWriter, r *http.Request) {
	identity := getIdentity(r)
	members, err := a.auth.ListMembers(r.Context(), identity.Session.UserId, identity.Org.ActiveOrgId)
	if err != nil {
		common.SendHttpFailResponse(w, r, getStatusCode(err), "failed to list members", err)
		return
	}
	common.SendHttpSuccessResponse(w, r, http.StatusOK, "ok", members)
}
