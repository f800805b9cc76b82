package org

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"dotmac/internal/accesscontrol"
	"dotmac/internal/common"
	"dotmac/internal/hooks"
	"dotmac/internal/store"
	"dotmac/internal/validate"

	"github.com/google/uuid"
)

// Publisher receives events after the change they describe is committed
type Publisher interface {
	Publish(context.Context, hooks.Event) error
}

type ServiceOpts struct {
	Store    store.Store
	Registry *accesscontrol.Registry

	// Publisher is optional, without it no events are emitted
	Publisher   Publisher
	Now         func() time.Time
	ServiceLogs chan<- common.ServiceLog
}

func NewService(opts ServiceOpts) (*Service, error) {
	errs := []error{}
	if opts.Store == nil {
		errs = append(errs, ErrorMissingStore)
	}
	if opts.Registry == nil {
		errs = append(errs, ErrorMissingRegistry)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	output := &Service{
		store:       opts.Store,
		registry:    opts.Registry,
		publisher:   opts.Publisher,
		now:         opts.Now,
		serviceLogs: opts.ServiceLogs,
	}
	if output.now == nil {
		output.now = time.Now
	}
	if output.serviceLogs == nil {
		output.serviceLogs = common.GetNoopServiceLog()
	}
	return output, nil
}

type Service struct {
	store       store.Store
	registry    *accesscontrol.Registry
	publisher   Publisher
	now         func() time.Time
	serviceLogs chan<- common.ServiceLog
}

func (s *Service) Registry() *accesscontrol.Registry {
	return s.registry
}

type CreateInput struct {
	Name string `json:"name"`

	// Slug is derived from Name when empty
	Slug     string            `json:"slug"`
	Metadata map[string]string `json:"metadata"`
}

func (c *CreateInput) normalize() error {
	c.Name = strings.TrimSpace(c.Name)
	c.Slug = strings.TrimSpace(c.Slug)
	if c.Slug == "" {
		c.Slug = validate.Slugify(c.Name)
	}
	errs := []error{}
	if err := validate.OrgName(c.Name); err != nil {
		errs = append(errs, fmt.Errorf("name[%s]: %w", c.Name, err))
	}
	if err := validate.OrgSlug(c.Slug); err != nil {
		errs = append(errs, fmt.Errorf("slug[%s]: %w", c.Slug, err))
	}
	if len(errs) > 0 {
		return errors.Join(ErrorInvalidInput, errors.Join(errs...))
	}
	return nil
}

// Create makes userId the owner of a new organization
func (s *Service) Create(ctx context.Context, userId string, input CreateInput) (*store.Organization, error) {
	if err := input.normalize(); err != nil {
		return nil, err
	}
	now := s.now()
	organization := store.Organization{
		Id:        uuid.NewString(),
		Name:      input.Name,
		Slug:      input.Slug,
		Metadata:  input.Metadata,
		CreatedAt: now,
	}
	owner := store.Member{
		OrgId:     organization.Id,
		UserId:    userId,
		Role:      accesscontrol.RoleOwner,
		CreatedAt: now,
	}
	if err := s.store.CreateOrganization(ctx, organization, owner); err != nil {
		return nil, fmt.Errorf("failed to create organization[%s]: %w", organization.Slug, err)
	}
	s.serviceLogs <- common.ServiceLogf(common.LogLevelInfo, "user[%s] created org[%s] with id[%s]", userId, organization.Slug, organization.Id)
	s.publish(ctx, hooks.NewEvent(hooks.EventOrganizationCreated, organization.Id, userId, now, map[string]any{
		"name": organization.Name,
		"slug": organization.Slug,
	}))
	return &organization, nil
}

// Delete requires organization:delete in the organization being deleted
func (s *Service) Delete(ctx context.Context, actorId, orgId string) error {
	if err := s.authorize(ctx, actorId, orgId, accesscontrol.ResourceOrganization, accesscontrol.ActionDelete); err != nil {
		return err
	}
	organization, err := s.store.GetOrganization(ctx, orgId)
	if err != nil {
		return fmt.Errorf("failed to load organization[%s]: %w", orgId, err)
	}
	if err := s.store.DeleteOrganization(ctx, orgId); err != nil {
		return fmt.Errorf("failed to delete organization[%s]: %w", orgId, err)
	}
	s.serviceLogs <- common.ServiceLogf(common.LogLevelInfo, "user[%s] deleted org[%s]", actorId, orgId)
	s.publish(ctx, hooks.NewEvent(hooks.EventOrganizationDeleted, orgId, actorId, s.now(), map[string]any{
		"name": organization.Name,
		"slug": organization.Slug,
	}))
	return nil
}

func (s *Service) List(ctx context.Context, userId string) ([]store.MemberOrganization, error) {
	return s.store.ListUserOrganizations(ctx, userId)
}

func (s *Service) Get(ctx context.Context, orgId string) (*store.Organization, error) {
	return s.store.GetOrganization(ctx, orgId)
}

func (s *Service) Member(ctx context.Context, orgId, userId string) (*store.Member, error) {
	member, err := s.store.GetMember(ctx, orgId, userId)
	if err != nil {
		if errors.Is(err, store.ErrorNotFound) {
			return nil, fmt.Errorf("user[%s] in org[%s]: %w", userId, orgId, ErrorNotMember)
		}
		return nil, err
	}
	return member, nil
}

// ListMembers requires organization:read
func (s *Service) ListMembers(ctx context.Context, actorId, orgId string) ([]store.Member, error) {
	if err := s.authorize(ctx, actorId, orgId, accesscontrol.ResourceOrganization, accesscontrol.ActionRead); err != nil {
		return nil, err
	}
	return s.store.ListMembers(ctx, orgId)
}

// AddMember requires organization:manage_members, only owners may add
// other owners
func (s *Service) AddMember(ctx context.Context, actorId, orgId, userId, role string) (*store.Member, error) {
	actor, err := s.authorizeRoleChange(ctx, actorId, orgId, role)
	if err != nil {
		return nil, err
	}
	member := store.Member{OrgId: orgId, UserId: userId, Role: role, CreatedAt: s.now()}
	if err := s.store.AddMember(ctx, member); err != nil {
		return nil, fmt.Errorf("failed to add user[%s] to org[%s]: %w", userId, orgId, err)
	}
	s.serviceLogs <- common.ServiceLogf(common.LogLevelInfo, "user[%s] (%s) added user[%s] to org[%s] as %s", actorId, actor.Role, userId, orgId, role)
	return &member, nil
}

func (s *Service) UpdateMemberRole(ctx context.Context, actorId, orgId, userId, role string) error {
	actor, err := s.authorizeRoleChange(ctx, actorId, orgId, role)
	if err != nil {
		return err
	}
	target, err := s.Member(ctx, orgId, userId)
	if err != nil {
		return err
	}
	if target.Role == role {
		return nil
	}
	if target.Role == accesscontrol.RoleOwner {
		if actor.Role != accesscontrol.RoleOwner {
			return fmt.Errorf("only owners may change an owner's role: %w", ErrorForbidden)
		}
		if err := s.ensureAnotherOwner(ctx, orgId, userId); err != nil {
			return err
		}
	}
	if err := s.store.UpdateMemberRole(ctx, orgId, userId, role); err != nil {
		return fmt.Errorf("failed to update role of user[%s] in org[%s]: %w", userId, orgId, err)
	}
	s.serviceLogs <- common.ServiceLogf(common.LogLevelInfo, "user[%s] changed role of user[%s] in org[%s] from %s to %s", actorId, userId, orgId, target.Role, role)
	return nil
}

// RemoveMember requires organization:manage_members unless a member is
// removing themselves. The last owner can never leave
func (s *Service) RemoveMember(ctx context.Context, actorId, orgId, userId string) error {
	if actorId != userId {
		if err := s.authorize(ctx, actorId, orgId, accesscontrol.ResourceOrganization, accesscontrol.ActionManageMembers); err != nil {
			return err
		}
	}
	target, err := s.Member(ctx, orgId, userId)
	if err != nil {
		return err
	}
	if target.Role == accesscontrol.RoleOwner {
		if actorId != userId {
			actor, err := s.Member(ctx, orgId, actorId)
			if err != nil {
				return err
			}
			if actor.Role != accesscontrol.RoleOwner {
				return fmt.Errorf("only owners may remove an owner: %w", ErrorForbidden)
			}
		}
		if err := s.ensureAnotherOwner(ctx, orgId, userId); err != nil {
			return err
		}
	}
	if err := s.store.RemoveMember(ctx, orgId, userId); err != nil {
		return fmt.Errorf("failed to remove user[%s] from org[%s]: %w", userId, orgId, err)
	}
	s.serviceLogs <- common.ServiceLogf(common.LogLevelInfo, "user[%s] removed user[%s] from org[%s]", actorId, userId, orgId)
	return nil
}

func (s *Service) authorize(ctx context.Context, actorId, orgId string, resource accesscontrol.Resource, action accesscontrol.Action) error {
	allowed, err := s.HasPermission(ctx, Context{UserId: actorId, ActiveOrgId: orgId}, resource, action)
	if err != nil {
		return err
	}
	if !allowed {
		return fmt.Errorf("user[%s] lacks %s:%s in org[%s]: %w", actorId, resource, action, orgId, ErrorForbidden)
	}
	return nil
}

func (s *Service) authorizeRoleChange(ctx context.Context, actorId, orgId, role string) (*store.Member, error) {
	if !s.registry.HasRole(role) {
		return nil, fmt.Errorf("role[%s]: %w", role, ErrorInvalidRole)
	}
	if err := s.authorize(ctx, actorId, orgId, accesscontrol.ResourceOrganization, accesscontrol.ActionManageMembers); err != nil {
		return nil, err
	}
	actor, err := s.Member(ctx, orgId, actorId)
	if err != nil {
		return nil, err
	}
	if role == accesscontrol.RoleOwner && actor.Role != accesscontrol.RoleOwner {
		return nil, fmt.Errorf("only owners may grant the owner role: %w", ErrorForbidden)
	}
	return actor, nil
}

func (s *Service) ensureAnotherOwner(ctx context.Context, orgId, userId string) error {
	members, err := s.store.ListMembers(ctx, orgId)
	if err != nil {
		return fmt.Errorf("failed to list members of org[%s]: %w", orgId, err)
	}
	for _, member := range members {
		if member.UserId != userId && member.Role == accesscontrol.RoleOwner {
			return nil
		}
	}
	return fmt.Errorf("org[%s] needs at least one owner: %w", orgId, ErrorLastOwner)
}

// publish never fails the caller, the change is already committed
func (s *Service) publish(ctx context.Context, event hooks.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(context.WithoutCancel(ctx), event); err != nil {
		s.serviceLogs <- common.ServiceLogf(
			common.LogLevelError,
			"org[%s] event[%s] type[%s] was committed but could not be enqueued: %s",
			event.OrganizationId,
			event.Id,
			event.Type,
			err,
		)
	}
}
