package envstore

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftworks/arbor/internal/storage"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := storage.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "arbor.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewStore(db)
}

func testEnv(id, workflowID string) *Environment {
	return &Environment{
		ID:                id,
		CodebaseID:        "myrepo",
		WorkflowType:      WorkflowIssue,
		WorkflowID:        workflowID,
		Provider:          "worktree",
		WorkingPath:       "/worktrees/myrepo/issue-" + workflowID,
		BranchName:        "issue-" + workflowID,
		Status:            StatusActive,
		CreatedAt:         time.Now().UTC(),
		CreatedByPlatform: "slack",
		Metadata:          map[string]any{},
	}
}

func TestInsertOrFetchFirstWriterWins(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first, inserted, err := store.InsertOrFetch(ctx, testEnv("env-a", "42"))
	require.NoError(t, err)
	assert.True(t, inserted)
	assert.Equal(t, "env-a", first.ID)

	// Same identity, different id: the original row must be returned.
	second, inserted, err := store.InsertOrFetch(ctx, testEnv("env-b", "42"))
	require.NoError(t, err)
	assert.False(t, inserted)
	assert.Equal(t, "env-a", second.ID)

	// Only one active row exists for the identity.
	active, err := store.ListActive(ctx, "myrepo")
	require.NoError(t, err)
	assert.Len(t, active, 1)
}

func TestInsertOrFetchRejectsInvalidInput(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	env := testEnv("", "42")
	_, _, err := store.InsertOrFetch(ctx, env)
	assert.Error(t, err)

	env = testEnv("env-a", "42")
	env.WorkflowType = "bogus"
	_, _, err = store.InsertOrFetch(ctx, env)
	assert.Error(t, err)
}

func TestMarkDestroyedAllowsNewEnvironmentForSameIdentity(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, inserted, err := store.InsertOrFetch(ctx, testEnv("env-a", "42"))
	require.NoError(t, err)
	require.True(t, inserted)

	require.NoError(t, store.MarkDestroyed(ctx, "env-a"))

	old, err := store.GetByID(ctx, "env-a")
	require.NoError(t, err)
	assert.Equal(t, StatusDestroyed, old.Status)
	require.NotNil(t, old.DestroyedAt)

	// Destruction is idempotent; the timestamp does not move.
	stamp := *old.DestroyedAt
	require.NoError(t, store.MarkDestroyed(ctx, "env-a"))
	again, err := store.GetByID(ctx, "env-a")
	require.NoError(t, err)
	assert.Equal(t, stamp, *again.DestroyedAt)

	// The identity is free again.
	fresh, inserted, err := store.InsertOrFetch(ctx, testEnv("env-b", "42"))
	require.NoError(t, err)
	assert.True(t, inserted)
	assert.Equal(t, "env-b", fresh.ID)
}

func TestFindActiveByIdentity(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.FindActiveByIdentity(ctx, Identity{
		CodebaseID: "myrepo", WorkflowType: WorkflowIssue, WorkflowID: "42",
	})
	assert.ErrorIs(t, err, ErrNotFound)

	_, _, err = store.InsertOrFetch(ctx, testEnv("env-a", "42"))
	require.NoError(t, err)

	found, err := store.FindActiveByIdentity(ctx, Identity{
		CodebaseID: "myrepo", WorkflowType: WorkflowIssue, WorkflowID: "42",
	})
	require.NoError(t, err)
	assert.Equal(t, "env-a", found.ID)
	assert.Equal(t, "issue-42", found.BranchName)

	require.NoError(t, store.MarkDestroyed(ctx, "env-a"))
	_, err = store.FindActiveByIdentity(ctx, Identity{
		CodebaseID: "myrepo", WorkflowType: WorkflowIssue, WorkflowID: "42",
	})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFindActiveByPath(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	env := testEnv("env-a", "42")
	_, _, err := store.InsertOrFetch(ctx, env)
	require.NoError(t, err)

	found, err := store.FindActiveByPath(ctx, env.WorkingPath)
	require.NoError(t, err)
	assert.Equal(t, "env-a", found.ID)

	_, err = store.FindActiveByPath(ctx, "/nowhere")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestConversationReferences(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, _, err := store.InsertOrFetch(ctx, testEnv("env-a", "42"))
	require.NoError(t, err)
	_, _, err = store.InsertOrFetch(ctx, testEnv("env-b", "43"))
	require.NoError(t, err)

	_, err = store.EnvironmentForConversation(ctx, "conv-1")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.AttachConversation(ctx, "conv-1", "env-a"))
	require.NoError(t, store.AttachConversation(ctx, "conv-2", "env-a"))

	env, err := store.EnvironmentForConversation(ctx, "conv-1")
	require.NoError(t, err)
	assert.Equal(t, "env-a", env.ID)

	refs, err := store.RefCount(ctx, "env-a")
	require.NoError(t, err)
	assert.Equal(t, 2, refs)

	// Re-attaching moves the reference, it does not add a second one.
	require.NoError(t, store.AttachConversation(ctx, "conv-1", "env-b"))
	refs, err = store.RefCount(ctx, "env-a")
	require.NoError(t, err)
	assert.Equal(t, 1, refs)
	refs, err = store.RefCount(ctx, "env-b")
	require.NoError(t, err)
	assert.Equal(t, 1, refs)

	require.NoError(t, store.DetachConversation(ctx, "conv-2"))
	refs, err = store.RefCount(ctx, "env-a")
	require.NoError(t, err)
	assert.Equal(t, 0, refs)

	// Detaching a conversation with no reference is a no-op.
	require.NoError(t, store.DetachConversation(ctx, "conv-gone"))
}

func TestMergeMetadata(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	env := testEnv("env-a", "42")
	env.Metadata = map[string]any{"adopted": true, "origin": "slack"}
	_, _, err := store.InsertOrFetch(ctx, env)
	require.NoError(t, err)

	merged, err := store.MergeMetadata(ctx, "env-a", map[string]any{
		"origin": "github",
		"label":  "bugfix",
	})
	require.NoError(t, err)
	assert.Equal(t, true, merged["adopted"])
	assert.Equal(t, "github", merged["origin"])
	assert.Equal(t, "bugfix", merged["label"])

	stored, err := store.GetByID(ctx, "env-a")
	require.NoError(t, err)
	assert.Equal(t, "github", stored.Metadata["origin"])
	assert.Equal(t, "bugfix", stored.Metadata["label"])

	_, err = store.MergeMetadata(ctx, "env-missing", map[string]any{"k": "v"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListActiveFiltersAndOrders(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"env-a", "env-b", "env-c"} {
		env := testEnv(id, "4"+string(rune('0'+i)))
		env.CreatedAt = base.Add(time.Duration(i) * time.Hour)
		if id == "env-c" {
			env.CodebaseID = "otherrepo"
		}
		_, _, err := store.InsertOrFetch(ctx, env)
		require.NoError(t, err)
	}

	all, err := store.ListActive(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "env-a", all[0].ID)
	assert.Equal(t, "env-b", all[1].ID)

	mine, err := store.ListActive(ctx, "myrepo")
	require.NoError(t, err)
	assert.Len(t, mine, 2)
}

func TestGetByIDRoundTripsFields(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	env := testEnv("env-a", "42")
	env.Metadata = map[string]any{"adopted": true}
	_, _, err := store.InsertOrFetch(ctx, env)
	require.NoError(t, err)

	got, err := store.GetByID(ctx, "env-a")
	require.NoError(t, err)
	assert.Equal(t, env.CodebaseID, got.CodebaseID)
	assert.Equal(t, WorkflowIssue, got.WorkflowType)
	assert.Equal(t, env.WorkingPath, got.WorkingPath)
	assert.Equal(t, env.BranchName, got.BranchName)
	assert.Equal(t, "slack", got.CreatedByPlatform)
	assert.Equal(t, StatusActive, got.Status)
	assert.WithinDuration(t, env.CreatedAt, got.CreatedAt, time.Millisecond)
	assert.Equal(t, true, got.Metadata["adopted"])
	assert.Nil(t, got.DestroyedAt)

	_, err = store.GetByID(ctx, "env-missing")
	assert.ErrorIs(t, err, ErrNotFound)
}
