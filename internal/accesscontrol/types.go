package accesscontrol

import (
	"fmt"
	"strings"
)

type Resource string

const (
	ResourceUsers        Resource = "users"
	ResourceCustomers    Resource = "customers"
	ResourceSubscribers  Resource = "subscribers"
	ResourceNetwork      Resource = "network"
	ResourceBilling      Resource = "billing"
	ResourceTickets      Resource = "tickets"
	ResourceOrganization Resource = "organization"
	ResourceReports      Resource = "reports"
)

type Action string

const (
	ActionCreate        Action = "create"
	ActionRead          Action = "read"
	ActionUpdate        Action = "update"
	ActionDelete        Action = "delete"
	ActionInvite        Action = "invite"
	ActionExport        Action = "export"
	ActionProvision     Action = "provision"
	ActionSuspend       Action = "suspend"
	ActionTerminate     Action = "terminate"
	ActionConfigure     Action = "configure"
	ActionMonitor       Action = "monitor"
	ActionRefund        Action = "refund"
	ActionAssign        Action = "assign"
	ActionClose         Action = "close"
	ActionManageMembers Action = "manage_members"
	ActionManageBilling Action = "manage_billing"
)

// Statement declares every resource and the closed set of actions that
// may be granted on it
type Statement map[Resource][]Action

func (s Statement) clone() Statement {
	output := make(Statement, len(s))
	for resource, actions := range s {
		output[resource] = append([]Action(nil), actions...)
	}
	return output
}

func (s Statement) allows(resource Resource, action Action) (isResourceDeclared, isActionDeclared bool) {
	actions, ok := s[resource]
	if !ok {
		return false, false
	}
	for _, declared := range actions {
		if declared == action {
			return true, true
		}
	}
	return true, false
}

// Grants maps a resource to the actions a role may perform on it
type Grants map[Resource][]Action

type Role struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
	Grants      Grants `json:"grants" yaml:"grants"`
}

func (r Role) clone() Role {
	output := Role{
		Name:        r.Name,
		Description: r.Description,
		Grants:      make(Grants, len(r.Grants)),
	}
	for resource, actions := range r.Grants {
		output.Grants[resource] = append([]Action(nil), actions...)
	}
	return output
}

// Permission is a single resource/action pair rendered as
// `resource:action`
type Permission struct {
	Resource Resource `json:"resource" yaml:"resource"`
	Action   Action   `json:"action" yaml:"action"`
}

func (p Permission) String() string {
	return fmt.Sprintf("%s:%s", p.Resource, p.Action)
}

// ParsePermission parses the `resource:action` form
func ParsePermission(value string) (Permission, error) {
	parts := strings.SplitN(value, ":", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return Permission{}, fmt.Errorf("permission[%s] is not of the form resource:action: %w", value, ErrorInvalidPermission)
	}
	return Permission{Resource: Resource(parts[0]), Action: Action(parts[1])}, nil
}
