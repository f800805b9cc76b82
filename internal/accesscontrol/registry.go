package accesscontrol

import (
	"errors"
	"fmt"
	"sort"
)

// Registry holds the statement and the roles validated against it. It
// is immutable once built so it is safe for concurrent use
type Registry struct {
	statement Statement
	roles     map[string]Role
	index     map[string]map[Resource]map[Action]struct{}
}

// NewRegistry validates every grant of every role against statement and
// returns all configuration problems found
func NewRegistry(statement Statement, roles ...Role) (*Registry, error) {
	if len(statement) == 0 {
		return nil, ErrorEmptyStatement
	}
	registry := &Registry{
		statement: statement.clone(),
		roles:     map[string]Role{},
		index:     map[string]map[Resource]map[Action]struct{}{},
	}
	errs := []error{}
	for _, role := range roles {
		if role.Name == "" {
			errs = append(errs, ErrorEmptyRoleName)
			continue
		}
		if _, exists := registry.roles[role.Name]; exists {
			errs = append(errs, fmt.Errorf("role[%s]: %w", role.Name, ErrorDuplicateRole))
			continue
		}
		grants := map[Resource]map[Action]struct{}{}
		isRoleValid := true
		for resource, actions := range role.Grants {
			if _, ok := registry.statement[resource]; !ok {
				errs = append(errs, fmt.Errorf("role[%s] grants resource[%s]: %w", role.Name, resource, ErrorUndeclaredResource))
				isRoleValid = false
				continue
			}
			for _, action := range actions {
				if _, isActionDeclared := registry.statement.allows(resource, action); !isActionDeclared {
					errs = append(errs, fmt.Errorf("role[%s] grants action[%s] on resource[%s]: %w", role.Name, action, resource, ErrorUndeclaredAction))
					isRoleValid = false
					continue
				}
				if grants[resource] == nil {
					grants[resource] = map[Action]struct{}{}
				}
				grants[resource][action] = struct{}{}
			}
		}
		if !isRoleValid {
			continue
		}
		registry.roles[role.Name] = role.clone()
		registry.index[role.Name] = grants
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return registry, nil
}

// MustNewRegistry is NewRegistry for process-wide configuration where a
// bad role table should stop the process
func MustNewRegistry(statement Statement, roles ...Role) *Registry {
	registry, err := NewRegistry(statement, roles...)
	if err != nil {
		panic(fmt.Sprintf("invalid access control configuration: %s", err))
	}
	return registry
}

// Can reports whether role may perform action on resource; unknown
// roles, resources and actions are never allowed
func (r *Registry) Can(role string, resource Resource, action Action) bool {
	grants, ok := r.index[role]
	if !ok {
		return false
	}
	_, ok = grants[resource][action]
	return ok
}

func (r *Registry) HasRole(name string) bool {
	_, ok := r.roles[name]
	return ok
}

func (r *Registry) Role(name string) (Role, error) {
	role, ok := r.roles[name]
	if !ok {
		return Role{}, fmt.Errorf("role[%s]: %w", name, ErrorUnknownRole)
	}
	return role.clone(), nil
}

// Roles returns every role sorted by name
func (r *Registry) Roles() []Role {
	output := make([]Role, 0, len(r.roles))
	for _, role := range r.roles {
		output = append(output, role.clone())
	}
	sort.Slice(output, func(i, j int) bool {
		return output[i].Name < output[j].Name
	})
	return output
}

func (r *Registry) Statement() Statement {
	return r.statement.clone()
}

// Permissions returns the effective permissions of role ordered by
// resource then by the order actions are declared in the statement
func (r *Registry) Permissions(role string) ([]Permission, error) {
	grants, ok := r.index[role]
	if !ok {
		return nil, fmt.Errorf("role[%s]: %w", role, ErrorUnknownRole)
	}
	resources := make([]Resource, 0, len(grants))
	for resource := range grants {
		resources = append(resources, resource)
	}
	sort.Slice(resources, func(i, j int) bool {
		return resources[i] < resources[j]
	})
	output := []Permission{}
	for _, resource := range resources {
		for _, action := range r.statement[resource] {
			if _, ok := grants[resource][action]; ok {
				output = append(output, Permission{Resource: resource, Action: action})
			}
		}
	}
	return output, nil
}
