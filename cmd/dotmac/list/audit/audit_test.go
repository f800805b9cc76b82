package audit

import (
	"bytes"
	"context"
	"testing"
	"time"

	"dotmac/internal/audit"
	"dotmac/internal/cli"

	"github.com/stretchr/testify/require"
)

func TestRenderInterpretsEntries(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	logger := audit.NewMemory(func() time.Time { return now })
	ctx := context.Background()
	require.NoError(t, logger.Log(ctx, audit.LogEntry{
		EntityId:     "0b0e7c1a-4a4e-4d8e-9d1e-0c6f5a1b2c3d",
		EntityType:   audit.UserEntity,
		Verb:         audit.Create,
		ResourceId:   "org-1",
		ResourceType: audit.OrgResource,
		Status:       audit.Success,
		Timestamp:    now.Add(-time.Minute),
	}))

	var out bytes.Buffer
	require.NoError(t, render(ctx, &out, cli.OutputFormatText, logger, audit.GetByEntityOpts{
		EntityId:   "0b0e7c1a-4a4e-4d8e-9d1e-0c6f5a1b2c3d",
		EntityType: audit.UserEntity,
	}))
	require.Contains(t, out.String(), "Created an organization (ID: org-1)")

	out.Reset()
	require.NoError(t, render(ctx, &out, cli.OutputFormatText, logger, audit.GetByEntityOpts{
		EntityId:   "someone-else",
		EntityType: audit.UserEntity,
	}))
	require.Equal(t, "no audit entries for user[someone-else]\n", out.String())
}
