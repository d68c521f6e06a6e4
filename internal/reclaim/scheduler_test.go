package reclaim

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftworks/arbor/internal/envstore"
	"github.com/driftworks/arbor/internal/events"
	"github.com/driftworks/arbor/internal/gitx"
	"github.com/driftworks/arbor/internal/provider"
	"github.com/driftworks/arbor/internal/reclaim/mocks"
)

// NewTestSlogger creates a *slog.Logger that writes to an in-memory buffer.
func NewTestSlogger() (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	handler := slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	return slog.New(handler), &buf
}

var sweepNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

type schedulerFixture struct {
	store     *mocks.MockEnvironmentStore
	provider  *mocks.MockIsolationProvider
	git       *mocks.MockGateway
	scheduler *Scheduler
}

func newSchedulerFixture(t *testing.T, opts Options) *schedulerFixture {
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	f := &schedulerFixture{
		store:    mocks.NewMockEnvironmentStore(ctrl),
		provider: mocks.NewMockIsolationProvider(ctrl),
		git:      mocks.NewMockGateway(ctrl),
	}
	codebases := map[string]provider.Codebase{
		"myrepo": {ID: "myrepo", RootPath: "/repos/myrepo", MainBranch: "main"},
	}
	slogger, _ := NewTestSlogger()
	f.scheduler = New(opts, codebases, f.store, f.provider, f.git, events.NewHub(64), slogger)
	f.scheduler.now = func() time.Time { return sweepNow }
	return f
}

func sweepEnv(id, branch string, createdAt time.Time) *envstore.Environment {
	return &envstore.Environment{
		ID:           id,
		CodebaseID:   "myrepo",
		WorkflowType: envstore.WorkflowIssue,
		WorkflowID:   "42",
		WorkingPath:  "/worktrees/myrepo/" + branch,
		BranchName:   branch,
		Status:       envstore.StatusActive,
		CreatedAt:    createdAt,
	}
}

func TestSweepMergedCleanRemoved(t *testing.T) {
	f := newSchedulerFixture(t, Options{})
	ctx := context.Background()
	env := sweepEnv("env-1", "issue-42", sweepNow.Add(-time.Hour))

	f.store.EXPECT().ListActive(ctx, "").Return([]*envstore.Environment{env}, nil)
	f.git.EXPECT().IsValidWorktree(ctx, env.WorkingPath).Return(true)
	f.git.EXPECT().IsBranchMerged(ctx, "/repos/myrepo", "issue-42", "main").Return(true, nil)
	f.git.EXPECT().HasUncommittedChanges(ctx, env.WorkingPath).Return(false, nil)
	f.store.EXPECT().RefCount(ctx, "env-1").Return(0, nil)
	f.provider.EXPECT().Destroy(ctx, "env-1", false).Return(nil)
	f.store.EXPECT().MarkDestroyed(ctx, "env-1").Return(nil)

	report, err := f.scheduler.RunSweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Visited)
	require.Len(t, report.Removed, 1)
	assert.Equal(t, SweepItem{ID: "env-1", Reason: "merged"}, report.Removed[0])
	assert.Empty(t, report.Skipped)
	assert.Empty(t, report.Errors)
}

func TestSweepMergedButDirtySkipped(t *testing.T) {
	f := newSchedulerFixture(t, Options{})
	ctx := context.Background()
	env := sweepEnv("env-1", "issue-42", sweepNow.Add(-time.Hour))

	f.store.EXPECT().ListActive(ctx, "").Return([]*envstore.Environment{env}, nil)
	f.git.EXPECT().IsValidWorktree(ctx, env.WorkingPath).Return(true)
	f.git.EXPECT().IsBranchMerged(ctx, "/repos/myrepo", "issue-42", "main").Return(true, nil)
	f.git.EXPECT().HasUncommittedChanges(ctx, env.WorkingPath).Return(true, nil)

	report, err := f.scheduler.RunSweep(ctx)
	require.NoError(t, err)
	assert.Empty(t, report.Removed)
	require.Len(t, report.Skipped, 1)
	assert.Equal(t, SweepItem{ID: "env-1", Reason: "merged but dirty"}, report.Skipped[0])
}

func TestSweepMergedButReferencedSkipped(t *testing.T) {
	f := newSchedulerFixture(t, Options{})
	ctx := context.Background()
	env := sweepEnv("env-1", "issue-42", sweepNow.Add(-time.Hour))

	f.store.EXPECT().ListActive(ctx, "").Return([]*envstore.Environment{env}, nil)
	f.git.EXPECT().IsValidWorktree(ctx, env.WorkingPath).Return(true)
	f.git.EXPECT().IsBranchMerged(ctx, "/repos/myrepo", "issue-42", "main").Return(true, nil)
	f.git.EXPECT().HasUncommittedChanges(ctx, env.WorkingPath).Return(false, nil)
	f.store.EXPECT().RefCount(ctx, "env-1").Return(2, nil)

	report, err := f.scheduler.RunSweep(ctx)
	require.NoError(t, err)
	assert.Empty(t, report.Removed)
	require.Len(t, report.Skipped, 1)
	assert.Equal(t, "merged but referenced", report.Skipped[0].Reason)
}

func TestSweepStaleRemoved(t *testing.T) {
	f := newSchedulerFixture(t, Options{StaleThreshold: 14 * 24 * time.Hour})
	ctx := context.Background()
	env := sweepEnv("env-1", "issue-42", sweepNow.Add(-30*24*time.Hour))

	f.store.EXPECT().ListActive(ctx, "").Return([]*envstore.Environment{env}, nil)
	f.git.EXPECT().IsValidWorktree(ctx, env.WorkingPath).Return(true)
	f.git.EXPECT().IsBranchMerged(ctx, "/repos/myrepo", "issue-42", "main").Return(false, nil)
	f.git.EXPECT().LastCommitTime(ctx, env.WorkingPath).Return(nil)
	f.git.EXPECT().HasUncommittedChanges(ctx, env.WorkingPath).Return(false, nil)
	f.store.EXPECT().RefCount(ctx, "env-1").Return(0, nil)
	f.provider.EXPECT().Destroy(ctx, "env-1", false).Return(nil)
	f.store.EXPECT().MarkDestroyed(ctx, "env-1").Return(nil)

	report, err := f.scheduler.RunSweep(ctx)
	require.NoError(t, err)
	require.Len(t, report.Removed, 1)
	assert.Equal(t, "stale", report.Removed[0].Reason)
}

func TestSweepRecentCommitKeepsEnvironment(t *testing.T) {
	f := newSchedulerFixture(t, Options{StaleThreshold: 14 * 24 * time.Hour})
	ctx := context.Background()
	// Created long ago, but someone committed yesterday.
	env := sweepEnv("env-1", "issue-42", sweepNow.Add(-60*24*time.Hour))
	recent := sweepNow.Add(-24 * time.Hour)

	f.store.EXPECT().ListActive(ctx, "").Return([]*envstore.Environment{env}, nil)
	f.git.EXPECT().IsValidWorktree(ctx, env.WorkingPath).Return(true)
	f.git.EXPECT().IsBranchMerged(ctx, "/repos/myrepo", "issue-42", "main").Return(false, nil)
	f.git.EXPECT().LastCommitTime(ctx, env.WorkingPath).Return(&recent)

	report, err := f.scheduler.RunSweep(ctx)
	require.NoError(t, err)
	assert.Empty(t, report.Removed)
	require.Len(t, report.Skipped, 1)
	assert.Equal(t, "active", report.Skipped[0].Reason)
}

func TestSweepPersistentPlatformExemptFromStaleness(t *testing.T) {
	f := newSchedulerFixture(t, Options{
		StaleThreshold:      14 * 24 * time.Hour,
		PersistentPlatforms: []string{"cron"},
	})
	ctx := context.Background()
	env := sweepEnv("env-1", "issue-42", sweepNow.Add(-90*24*time.Hour))
	env.CreatedByPlatform = "cron"

	f.store.EXPECT().ListActive(ctx, "").Return([]*envstore.Environment{env}, nil)
	f.git.EXPECT().IsValidWorktree(ctx, env.WorkingPath).Return(true)
	f.git.EXPECT().IsBranchMerged(ctx, "/repos/myrepo", "issue-42", "main").Return(false, nil)

	report, err := f.scheduler.RunSweep(ctx)
	require.NoError(t, err)
	assert.Empty(t, report.Removed)
	require.Len(t, report.Skipped, 1)
	assert.Equal(t, "persistent platform", report.Skipped[0].Reason)
}

func TestSweepPersistentPlatformStillReclaimedWhenMerged(t *testing.T) {
	f := newSchedulerFixture(t, Options{PersistentPlatforms: []string{"cron"}})
	ctx := context.Background()
	env := sweepEnv("env-1", "issue-42", sweepNow.Add(-time.Hour))
	env.CreatedByPlatform = "cron"

	f.store.EXPECT().ListActive(ctx, "").Return([]*envstore.Environment{env}, nil)
	f.git.EXPECT().IsValidWorktree(ctx, env.WorkingPath).Return(true)
	f.git.EXPECT().IsBranchMerged(ctx, "/repos/myrepo", "issue-42", "main").Return(true, nil)
	f.git.EXPECT().HasUncommittedChanges(ctx, env.WorkingPath).Return(false, nil)
	f.store.EXPECT().RefCount(ctx, "env-1").Return(0, nil)
	f.provider.EXPECT().Destroy(ctx, "env-1", false).Return(nil)
	f.store.EXPECT().MarkDestroyed(ctx, "env-1").Return(nil)

	report, err := f.scheduler.RunSweep(ctx)
	require.NoError(t, err)
	require.Len(t, report.Removed, 1)
	assert.Equal(t, "merged", report.Removed[0].Reason)
}

func TestSweepMissingWorktreeReconciled(t *testing.T) {
	f := newSchedulerFixture(t, Options{})
	ctx := context.Background()
	env := sweepEnv("env-1", "issue-42", sweepNow.Add(-time.Hour))

	f.store.EXPECT().ListActive(ctx, "").Return([]*envstore.Environment{env}, nil)
	f.git.EXPECT().IsValidWorktree(ctx, env.WorkingPath).Return(false)
	f.store.EXPECT().MarkDestroyed(ctx, "env-1").Return(nil)

	report, err := f.scheduler.RunSweep(ctx)
	require.NoError(t, err)
	require.Len(t, report.Removed, 1)
	assert.Equal(t, "missing", report.Removed[0].Reason)
}

func TestSweepErrorDoesNotAbortSweep(t *testing.T) {
	f := newSchedulerFixture(t, Options{})
	ctx := context.Background()
	broken := sweepEnv("env-broken", "issue-42", sweepNow.Add(-time.Hour))
	healthy := sweepEnv("env-ok", "issue-43", sweepNow.Add(-time.Hour))
	healthy.WorkflowID = "43"

	f.store.EXPECT().ListActive(ctx, "").Return([]*envstore.Environment{broken, healthy}, nil)

	f.git.EXPECT().IsValidWorktree(ctx, broken.WorkingPath).Return(true)
	f.git.EXPECT().IsBranchMerged(ctx, "/repos/myrepo", "issue-42", "main").
		Return(false, errors.New("git exploded"))

	f.git.EXPECT().IsValidWorktree(ctx, healthy.WorkingPath).Return(true)
	f.git.EXPECT().IsBranchMerged(ctx, "/repos/myrepo", "issue-43", "main").Return(true, nil)
	f.git.EXPECT().HasUncommittedChanges(ctx, healthy.WorkingPath).Return(false, nil)
	f.store.EXPECT().RefCount(ctx, "env-ok").Return(0, nil)
	f.provider.EXPECT().Destroy(ctx, "env-ok", false).Return(nil)
	f.store.EXPECT().MarkDestroyed(ctx, "env-ok").Return(nil)

	report, err := f.scheduler.RunSweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Visited)
	require.Len(t, report.Errors, 1)
	assert.Equal(t, "env-broken", report.Errors[0].ID)
	require.Len(t, report.Removed, 1)
	assert.Equal(t, "env-ok", report.Removed[0].ID)
}

func TestSweepUnknownCodebaseRecordedAsError(t *testing.T) {
	f := newSchedulerFixture(t, Options{})
	ctx := context.Background()
	env := sweepEnv("env-1", "issue-42", sweepNow.Add(-time.Hour))
	env.CodebaseID = "gone"

	f.store.EXPECT().ListActive(ctx, "").Return([]*envstore.Environment{env}, nil)
	f.git.EXPECT().IsValidWorktree(ctx, env.WorkingPath).Return(true)

	report, err := f.scheduler.RunSweep(ctx)
	require.NoError(t, err)
	require.Len(t, report.Errors, 1)
	assert.Contains(t, report.Errors[0].Error, "unknown codebase")
}

func TestRunSweepSingleFlight(t *testing.T) {
	f := newSchedulerFixture(t, Options{})

	f.scheduler.sweeping.Store(true)
	_, err := f.scheduler.RunSweep(context.Background())
	assert.ErrorIs(t, err, ErrSweepInProgress)

	f.scheduler.sweeping.Store(false)
	f.store.EXPECT().ListActive(gomock.Any(), "").Return(nil, nil)
	report, err := f.scheduler.RunSweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, report.Visited)
}

func TestSweepDirtyRaceDuringDestroySkipped(t *testing.T) {
	f := newSchedulerFixture(t, Options{})
	ctx := context.Background()
	env := sweepEnv("env-1", "issue-42", sweepNow.Add(-time.Hour))

	f.store.EXPECT().ListActive(ctx, "").Return([]*envstore.Environment{env}, nil)
	f.git.EXPECT().IsValidWorktree(ctx, env.WorkingPath).Return(true)
	f.git.EXPECT().IsBranchMerged(ctx, "/repos/myrepo", "issue-42", "main").Return(true, nil)
	f.git.EXPECT().HasUncommittedChanges(ctx, env.WorkingPath).Return(false, nil)
	f.store.EXPECT().RefCount(ctx, "env-1").Return(0, nil)
	f.provider.EXPECT().Destroy(ctx, "env-1", false).
		Return(&gitx.DirtyWorktreeError{Path: env.WorkingPath})

	report, err := f.scheduler.RunSweep(ctx)
	require.NoError(t, err)
	assert.Empty(t, report.Removed)
	require.Len(t, report.Skipped, 1)
	assert.Equal(t, "merged but dirty", report.Skipped[0].Reason)
}
