package can

import (
	"bytes"
	"testing"

	"dotmac/internal/accesscontrol"
	"dotmac/internal/cli"

	"github.com/stretchr/testify/require"
)

func TestEvaluate(t *testing.T) {
	registry := accesscontrol.Default()

	var out bytes.Buffer
	require.NoError(t, evaluate(&out, cli.OutputFormatText, registry, "owner", "organization", "delete"))
	require.Equal(t, "owner can delete organization\n", out.String())

	out.Reset()
	err := evaluate(&out, cli.OutputFormatJson, registry, "admin", "organization", "delete")
	require.ErrorIs(t, err, ErrorNotPermitted)
	require.JSONEq(t, `{"role":"admin","resource":"organization","action":"delete","allowed":false}`, out.String())

	err = evaluate(&out, cli.OutputFormatText, registry, "superuser", "organization", "delete")
	require.ErrorIs(t, err, accesscontrol.ErrorUnknownRole)
}
