package accesscontrol

const (
	RoleOwner    = "owner"
	RoleAdmin    = "admin"
	RoleOperator = "operator"
	RoleSupport  = "support"
	RoleBilling  = "billing"
	RoleViewer   = "viewer"
)

// DefaultStatement is the ISP operations statement
func DefaultStatement() Statement {
	return Statement{
		ResourceUsers:        {ActionCreate, ActionRead, ActionUpdate, ActionDelete, ActionInvite},
		ResourceCustomers:    {ActionCreate, ActionRead, ActionUpdate, ActionDelete, ActionExport},
		ResourceSubscribers:  {ActionCreate, ActionRead, ActionUpdate, ActionDelete, ActionProvision, ActionSuspend, ActionTerminate},
		ResourceNetwork:      {ActionRead, ActionConfigure, ActionMonitor, ActionProvision},
		ResourceBilling:      {ActionRead, ActionCreate, ActionUpdate, ActionRefund, ActionExport},
		ResourceTickets:      {ActionCreate, ActionRead, ActionUpdate, ActionAssign, ActionClose},
		ResourceOrganization: {ActionRead, ActionUpdate, ActionDelete, ActionManageMembers, ActionManageBilling},
		ResourceReports:      {ActionRead, ActionCreate, ActionExport},
	}
}

func DefaultRoles() []Role {
	statement := DefaultStatement()

	owner := Grants{}
	admin := Grants{}
	viewer := Grants{}
	for resource, actions := range statement {
		owner[resource] = append([]Action(nil), actions...)
		viewer[resource] = []Action{ActionRead}
		for _, action := range actions {
			if resource == ResourceOrganization && action == ActionDelete {
				continue
			}
			admin[resource] = append(admin[resource], action)
		}
	}

	return []Role{
		{
			Name:        RoleOwner,
			Description: "Full control of the organization including deleting it",
			Grants:      owner,
		},
		{
			Name:        RoleAdmin,
			Description: "Full control of the organization except deleting it",
			Grants:      admin,
		},
		{
			Name:        RoleOperator,
			Description: "Runs the network and subscriber lifecycle",
			Grants: Grants{
				ResourceSubscribers: statement[ResourceSubscribers],
				ResourceNetwork:     statement[ResourceNetwork],
				ResourceTickets:     statement[ResourceTickets],
				ResourceCustomers:   {ActionCreate, ActionRead, ActionUpdate},
				ResourceReports:     {ActionRead},
			},
		},
		{
			Name:        RoleSupport,
			Description: "Handles tickets and first line customer issues",
			Grants: Grants{
				ResourceTickets:     statement[ResourceTickets],
				ResourceCustomers:   {ActionRead, ActionUpdate},
				ResourceSubscribers: {ActionRead, ActionSuspend},
				ResourceNetwork:     {ActionRead, ActionMonitor},
			},
		},
		{
			Name:        RoleBilling,
			Description: "Manages invoices, payments and refunds",
			Grants: Grants{
				ResourceBilling:     statement[ResourceBilling],
				ResourceCustomers:   {ActionRead},
				ResourceReports:     {ActionRead, ActionExport},
				ResourceSubscribers: {ActionRead},
			},
		},
		{
			Name:        RoleViewer,
			Description: "Read only access to every resource",
			Grants:      viewer,
		},
	}
}

var defaultRegistry = MustNewRegistry(DefaultStatement(), DefaultRoles()...)

// Default returns the process-wide registry built from the default
// statement and roles
func Default() *Registry {
	return defaultRegistry
}
