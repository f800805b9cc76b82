package roles

import (
	"bytes"
	"encoding/json"
	"testing"

	"dotmac/internal/accesscontrol"
	"dotmac/internal/cli"

	"github.com/stretchr/testify/require"
)

func TestRenderJson(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, render(&out, cli.OutputFormatJson, accesscontrol.Default()))

	roles := []roleOutput{}
	require.NoError(t, json.Unmarshal(out.Bytes(), &roles))
	require.Len(t, roles, len(accesscontrol.DefaultRoles()))
	byName := map[string]roleOutput{}
	for _, role := range roles {
		byName[role.Name] = role
	}
	require.Contains(t, byName[accesscontrol.RoleOwner].Permissions, "organization:delete")
	require.NotContains(t, byName[accesscontrol.RoleViewer].Permissions, "organization:delete")
}

func TestRenderText(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, render(&out, cli.OutputFormatText, accesscontrol.Default()))
	require.Contains(t, out.String(), accesscontrol.RoleOwner)
}
