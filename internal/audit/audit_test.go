package audit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLogger(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	logger := NewMemory(func() time.Time { return now })
	ctx := context.Background()

	require.NoError(t, logger.Log(ctx, LogEntry{Id: "evt-1", EntityId: "org-1", EntityType: OrgEntity, Verb: Create, ResourceType: OrgResource, ResourceId: "org-1"}))
	require.NoError(t, logger.Log(ctx, LogEntry{Id: "evt-1", EntityId: "org-1", EntityType: OrgEntity, Verb: Create}), "duplicate id is ignored")
	require.NoError(t, logger.Log(ctx, LogEntry{EntityId: "org-1", EntityType: OrgEntity, Verb: Delete, Timestamp: now.Add(-time.Hour)}))
	require.NoError(t, logger.Log(ctx, LogEntry{EntityId: "org-2", EntityType: OrgEntity, Verb: Create}))

	entries, err := logger.GetByEntity(ctx, GetByEntityOpts{EntityId: "org-1", EntityType: OrgEntity})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, Create, entries[0].Verb, "newest first")
	assert.Equal(t, now, entries[0].Timestamp)

	entries, err = logger.GetByEntity(ctx, GetByEntityOpts{EntityId: "org-1", EntityType: OrgEntity, Cursor: now.Add(-time.Minute)})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, Delete, entries[0].Verb)

	entries, err = logger.GetByEntity(ctx, GetByEntityOpts{EntityId: "org-1", EntityType: OrgEntity, Limit: 1})
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestLogEntryValidate(t *testing.T) {
	err := NewMemory(nil).Log(context.Background(), LogEntry{EntityType: UserEntity})
	assert.ErrorIs(t, err, ErrorInvalidEntry)
}

func TestNewMongoRequiresDatabase(t *testing.T) {
	_, err := NewMongo(NewMongoOpts{})
	assert.ErrorIs(t, err, ErrorDatabaseUndefined)
}

func TestInterpret(t *testing.T) {
	assert.Equal(t, "Created an organization (ID: org-1)", Interpret(LogEntry{Verb: Create, ResourceType: OrgResource, ResourceId: "org-1"}))
	assert.Equal(t, "Signed out", Interpret(LogEntry{Verb: Logout}))
	assert.Equal(
		t,
		"Entity[user[u1]] performed action[update] on Resource[user[u1]]",
		Interpret(LogEntry{EntityId: "u1", EntityType: UserEntity, Verb: Update, ResourceType: UserResource, ResourceId: "u1"}),
	)
}
