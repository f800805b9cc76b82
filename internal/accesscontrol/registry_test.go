package accesscontrol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegistryRejectsUndeclaredGrants(t *testing.T) {
	statement := Statement{
		ResourceTickets: {ActionRead, ActionClose},
	}

	_, err := NewRegistry(statement, Role{Name: "bad", Grants: Grants{ResourceBilling: {ActionRead}}})
	require.ErrorIs(t, err, ErrorUndeclaredResource)
	require.Contains(t, err.Error(), "role[bad]")

	_, err = NewRegistry(statement, Role{Name: "bad", Grants: Grants{"bogus": {}}})
	require.ErrorIs(t, err, ErrorUndeclaredResource)
	require.Contains(t, err.Error(), "resource[bogus]")

	_, err = NewRegistry(statement, Role{Name: "bad", Grants: Grants{ResourceTickets: {ActionRefund}}})
	require.ErrorIs(t, err, ErrorUndeclaredAction)
	require.Contains(t, err.Error(), "action[refund]")

	_, err = NewRegistry(statement, Role{Name: ""})
	require.ErrorIs(t, err, ErrorEmptyRoleName)

	_, err = NewRegistry(statement, Role{Name: "a"}, Role{Name: "a"})
	require.ErrorIs(t, err, ErrorDuplicateRole)

	_, err = NewRegistry(nil)
	require.ErrorIs(t, err, ErrorEmptyStatement)
}

func TestMustNewRegistryPanics(t *testing.T) {
	require.Panics(t, func() {
		MustNewRegistry(Statement{ResourceTickets: {ActionRead}}, Role{Name: "bad", Grants: Grants{ResourceTickets: {ActionDelete}}})
	})
}

func TestDefaultRolesGrantExactlyTheirDeclaredSet(t *testing.T) {
	registry := Default()
	statement := registry.Statement()
	for _, role := range DefaultRoles() {
		granted := map[Permission]bool{}
		for resource, actions := range role.Grants {
			for _, action := range actions {
				granted[Permission{resource, action}] = true
			}
		}
		for resource, actions := range statement {
			for _, action := range actions {
				expected := granted[Permission{resource, action}]
				assert.Equalf(t, expected, registry.Can(role.Name, resource, action), "role[%s] %s:%s", role.Name, resource, action)
			}
		}
	}
}

func TestDefaultRoleShape(t *testing.T) {
	registry := Default()
	assert.True(t, registry.Can(RoleOwner, ResourceOrganization, ActionDelete))
	assert.False(t, registry.Can(RoleAdmin, ResourceOrganization, ActionDelete))
	assert.True(t, registry.Can(RoleAdmin, ResourceOrganization, ActionManageMembers))
	assert.True(t, registry.Can(RoleOperator, ResourceSubscribers, ActionTerminate))
	assert.False(t, registry.Can(RoleOperator, ResourceCustomers, ActionDelete))
	assert.True(t, registry.Can(RoleSupport, ResourceSubscribers, ActionSuspend))
	assert.False(t, registry.Can(RoleSupport, ResourceSubscribers, ActionTerminate))
	assert.True(t, registry.Can(RoleBilling, ResourceBilling, ActionRefund))
	assert.True(t, registry.Can(RoleViewer, ResourceReports, ActionRead))
	assert.False(t, registry.Can(RoleViewer, ResourceReports, ActionExport))

	assert.False(t, registry.Can("ghost", ResourceReports, ActionRead))
	assert.False(t, registry.Can(RoleOwner, Resource("wireguard"), ActionRead))
	assert.False(t, registry.Can(RoleOwner, ResourceReports, Action("fly")))
}

func TestRegistryAccessorsReturnCopies(t *testing.T) {
	registry := Default()

	role, err := registry.Role(RoleViewer)
	require.NoError(t, err)
	role.Grants[ResourceBilling] = []Action{ActionRefund}
	assert.False(t, registry.Can(RoleViewer, ResourceBilling, ActionRefund))

	statement := registry.Statement()
	statement[ResourceBilling] = nil
	assert.NotEmpty(t, registry.Statement()[ResourceBilling])

	_, err = registry.Role("ghost")
	require.ErrorIs(t, err, ErrorUnknownRole)

	names := []string{}
	for _, role := range registry.Roles() {
		names = append(names, role.Name)
	}
	assert.Equal(t, []string{RoleAdmin, RoleBilling, RoleOperator, RoleOwner, RoleSupport, RoleViewer}, names)
}

func TestPermissions(t *testing.T) {
	permissions, err := Default().Permissions(RoleSupport)
	require.NoError(t, err)
	rendered := []string{}
	for _, permission := range permissions {
		rendered = append(rendered, permission.String())
	}
	assert.Equal(t, []string{
		"customers:read",
		"customers:update",
		"network:read",
		"network:monitor",
		"subscribers:read",
		"subscribers:suspend",
		"tickets:create",
		"tickets:read",
		"tickets:update",
		"tickets:assign",
		"tickets:close",
	}, rendered)

	_, err = Default().Permissions("ghost")
	require.ErrorIs(t, err, ErrorUnknownRole)
}

func TestParsePermission(t *testing.T) {
	permission, err := ParsePermission("subscribers:provision")
	require.NoError(t, err)
	assert.Equal(t, Permission{ResourceSubscribers, ActionProvision}, permission)

	_, err = ParsePermission("subscribers")
	require.ErrorIs(t, err, ErrorInvalidPermission)
}
