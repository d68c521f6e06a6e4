package provider

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftworks/arbor/internal/envstore"
	"github.com/driftworks/arbor/internal/gitx"
	"github.com/driftworks/arbor/internal/storage"
)

type providerFixture struct {
	provider *WorktreeProvider
	store    *envstore.Store
	git      *gitx.Gateway
	codebase Codebase
	baseDir  string
}

func newProviderFixture(t *testing.T) *providerFixture {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available in PATH")
	}

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	db, err := storage.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "arbor.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	repo := initRepo(t)
	cb := Codebase{ID: "myrepo", RootPath: repo, MainBranch: "main"}
	baseDir := t.TempDir()

	store := envstore.NewStore(db)
	git := gitx.NewGateway(30*time.Second, logger)
	prov := NewWorktreeProvider(git, store, map[string]Codebase{"myrepo": cb}, baseDir, logger)

	return &providerFixture{provider: prov, store: store, git: git, codebase: cb, baseDir: baseDir}
}

func mustGit(t *testing.T, dir string, args ...string) string {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(),
		"GIT_AUTHOR_NAME=test", "GIT_AUTHOR_EMAIL=test@example.com",
		"GIT_COMMITTER_NAME=test", "GIT_COMMITTER_EMAIL=test@example.com",
	)
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, "git %v: %s", args, out)
	return string(out)
}

func initRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	mustGit(t, dir, "init")
	mustGit(t, dir, "symbolic-ref", "HEAD", "refs/heads/main")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README"), []byte("hello\n"), 0o644))
	mustGit(t, dir, "add", "README")
	mustGit(t, dir, "commit", "-m", "initial")
	return dir
}

func issueRequest(f *providerFixture, workflowID string) CreateRequest {
	return CreateRequest{
		Codebase:     f.codebase,
		WorkflowType: envstore.WorkflowIssue,
		WorkflowID:   workflowID,
		Platform:     "slack",
	}
}

func TestCreateProvisionsWorktree(t *testing.T) {
	f := newProviderFixture(t)
	ctx := context.Background()

	env, err := f.provider.Create(ctx, issueRequest(f, "42"))
	require.NoError(t, err)

	assert.NotEmpty(t, env.ID)
	assert.Equal(t, "myrepo", env.CodebaseID)
	assert.Equal(t, "issue-42", env.BranchName)
	assert.Equal(t, filepath.Join(f.baseDir, "myrepo", "issue-42"), env.WorkingPath)
	assert.Equal(t, ProviderName, env.Provider)
	assert.Equal(t, "slack", env.CreatedByPlatform)
	assert.Equal(t, envstore.StatusActive, env.Status)
	assert.True(t, f.git.IsValidWorktree(ctx, env.WorkingPath))
}

func TestCreateIsIdempotent(t *testing.T) {
	f := newProviderFixture(t)
	ctx := context.Background()

	first, err := f.provider.Create(ctx, issueRequest(f, "42"))
	require.NoError(t, err)

	second, err := f.provider.Create(ctx, issueRequest(f, "42"))
	require.NoError(t, err)

	assert.Equal(t, first.WorkingPath, second.WorkingPath)
	assert.Equal(t, first.BranchName, second.BranchName)
}

func TestCreateReusesExistingBranch(t *testing.T) {
	f := newProviderFixture(t)
	ctx := context.Background()

	// Branch predates the worktree (e.g. left behind by a previous
	// environment whose worktree was removed without deleting the branch).
	mustGit(t, f.codebase.RootPath, "branch", "issue-42")

	env, err := f.provider.Create(ctx, issueRequest(f, "42"))
	require.NoError(t, err)
	assert.Equal(t, "issue-42", env.BranchName)
	assert.True(t, f.git.IsValidWorktree(ctx, env.WorkingPath))
}

func TestCreateFromSourceCommit(t *testing.T) {
	f := newProviderFixture(t)
	ctx := context.Background()

	pinned := strings.TrimSpace(mustGit(t, f.codebase.RootPath, "rev-parse", "HEAD"))
	require.NoError(t, os.WriteFile(filepath.Join(f.codebase.RootPath, "later.txt"), []byte("x"), 0o644))
	mustGit(t, f.codebase.RootPath, "add", "later.txt")
	mustGit(t, f.codebase.RootPath, "commit", "-m", "later")

	req := issueRequest(f, "42")
	req.SourceCommit = pinned
	env, err := f.provider.Create(ctx, req)
	require.NoError(t, err)

	head := strings.TrimSpace(mustGit(t, env.WorkingPath, "rev-parse", "HEAD"))
	assert.Equal(t, pinned, head)
}

func TestDestroyLifecycle(t *testing.T) {
	f := newProviderFixture(t)
	ctx := context.Background()

	env, err := f.provider.Create(ctx, issueRequest(f, "42"))
	require.NoError(t, err)
	_, _, err = f.store.InsertOrFetch(ctx, env)
	require.NoError(t, err)

	require.NoError(t, f.provider.Destroy(ctx, env.ID, false))
	assert.False(t, f.git.IsValidWorktree(ctx, env.WorkingPath))

	// Destroy does not touch the record; callers mark it after success.
	stored, err := f.store.GetByID(ctx, env.ID)
	require.NoError(t, err)
	assert.Equal(t, envstore.StatusActive, stored.Status)

	require.NoError(t, f.store.MarkDestroyed(ctx, env.ID))
	// Destroying a destroyed environment is a no-op.
	require.NoError(t, f.provider.Destroy(ctx, env.ID, false))
}

func TestDestroyDirtyWorktreeRefused(t *testing.T) {
	f := newProviderFixture(t)
	ctx := context.Background()

	env, err := f.provider.Create(ctx, issueRequest(f, "42"))
	require.NoError(t, err)
	_, _, err = f.store.InsertOrFetch(ctx, env)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(env.WorkingPath, "wip.txt"), []byte("x"), 0o644))

	err = f.provider.Destroy(ctx, env.ID, false)
	require.Error(t, err)
	assert.True(t, gitx.IsDirty(err))
	assert.True(t, f.git.IsValidWorktree(ctx, env.WorkingPath))

	require.NoError(t, f.provider.Destroy(ctx, env.ID, true))
	assert.False(t, f.git.IsValidWorktree(ctx, env.WorkingPath))
}

func TestDestroyUnknownEnvironment(t *testing.T) {
	f := newProviderFixture(t)
	err := f.provider.Destroy(context.Background(), "nope", false)
	assert.ErrorIs(t, err, envstore.ErrNotFound)
}

func TestAdoptExternalWorktree(t *testing.T) {
	f := newProviderFixture(t)
	ctx := context.Background()

	external := filepath.Join(t.TempDir(), "handmade")
	mustGit(t, f.codebase.RootPath, "worktree", "add", "-b", "handmade-branch", external)

	env, err := f.provider.Adopt(ctx, issueRequest(f, "42"), external)
	require.NoError(t, err)
	require.NotNil(t, env)
	assert.Equal(t, "handmade-branch", env.BranchName)
	assert.Equal(t, external, env.WorkingPath)
	assert.Equal(t, true, env.Metadata["adopted"])
}

func TestAdoptRejectsNonWorktree(t *testing.T) {
	f := newProviderFixture(t)
	env, err := f.provider.Adopt(context.Background(), issueRequest(f, "42"),
		filepath.Join(t.TempDir(), "missing"))
	require.NoError(t, err)
	assert.Nil(t, env)
}

func TestAdoptRejectsAlreadyOwnedPath(t *testing.T) {
	f := newProviderFixture(t)
	ctx := context.Background()

	env, err := f.provider.Create(ctx, issueRequest(f, "42"))
	require.NoError(t, err)
	_, _, err = f.store.InsertOrFetch(ctx, env)
	require.NoError(t, err)

	adopted, err := f.provider.Adopt(ctx, issueRequest(f, "42"), env.WorkingPath)
	require.NoError(t, err)
	assert.Nil(t, adopted)
}

func TestHealthCheck(t *testing.T) {
	f := newProviderFixture(t)
	ctx := context.Background()

	env, err := f.provider.Create(ctx, issueRequest(f, "42"))
	require.NoError(t, err)
	_, _, err = f.store.InsertOrFetch(ctx, env)
	require.NoError(t, err)

	assert.True(t, f.provider.HealthCheck(ctx, env.ID))

	require.NoError(t, f.provider.Destroy(ctx, env.ID, false))
	assert.False(t, f.provider.HealthCheck(ctx, env.ID), "missing worktree fails the check")

	assert.False(t, f.provider.HealthCheck(ctx, "nope"))
}
