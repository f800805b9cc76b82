package org

import (
	"context"
	"errors"
	"fmt"

	"dotmac/internal/accesscontrol"
	"dotmac/internal/store"
)

// Context is the organization a request acts within. Role is the
// caller's member role in ActiveOrgId and is empty without one
type Context struct {
	UserId      string `json:"userId"`
	ActiveOrgId string `json:"activeOrganizationId,omitempty"`
	Role        string `json:"role,omitempty"`
}

func (c Context) HasActiveOrganization() bool {
	return c.ActiveOrgId != "" && c.Role != ""
}

// ResolveContext looks up the caller's role in the active organization
func (s *Service) ResolveContext(ctx context.Context, userId, activeOrgId string) (*Context, error) {
	output := &Context{UserId: userId}
	if activeOrgId == "" {
		return output, nil
	}
	member, err := s.store.GetMember(ctx, activeOrgId, userId)
	if err != nil {
		if errors.Is(err, store.ErrorNotFound) {
			return nil, fmt.Errorf("user[%s] in org[%s]: %w", userId, activeOrgId, ErrorNotMember)
		}
		return nil, fmt.Errorf("failed to resolve membership: %w", err)
	}
	output.ActiveOrgId = activeOrgId
	output.Role = member.Role
	return output, nil
}

// HasPermission reports whether the caller's current role in the active
// organization grants action on resource. The role is re-read so that a
// changed or revoked membership takes effect immediately
func (s *Service) HasPermission(ctx context.Context, orgCtx Context, resource accesscontrol.Resource, action accesscontrol.Action) (bool, error) {
	return s.HasPermissions(ctx, orgCtx, accesscontrol.Grants{resource: {action}})
}

// HasPermissions is HasPermission for a set of grants, all of which must
// be held
func (s *Service) HasPermissions(ctx context.Context, orgCtx Context, grants accesscontrol.Grants) (bool, error) {
	if orgCtx.ActiveOrgId == "" {
		return false, nil
	}
	resolved, err := s.ResolveContext(ctx, orgCtx.UserId, orgCtx.ActiveOrgId)
	if err != nil {
		if errors.Is(err, ErrorNotMember) {
			return false, nil
		}
		return false, err
	}
	for resource, actions := range grants {
		for _, action := range actions {
			if !s.registry.Can(resolved.Role, resource, action) {
				return false, nil
			}
		}
	}
	return true, nil
}

// HasRole compares against the already resolved role only
func HasRole(orgCtx Context, role string) bool {
	return orgCtx.HasActiveOrganization() && orgCtx.Role == role
}
