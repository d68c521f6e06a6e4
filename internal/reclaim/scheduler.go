package reclaim

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/driftworks/arbor/internal/envstore"
	"github.com/driftworks/arbor/internal/events"
	"github.com/driftworks/arbor/internal/gitx"
	"github.com/driftworks/arbor/internal/provider"
)

// Options configure a Scheduler.
type Options struct {
	Interval       time.Duration
	StaleThreshold time.Duration
	// PersistentPlatforms lists origin tags whose environments are exempt
	// from staleness reclamation (merged-branch reclamation still applies).
	PersistentPlatforms []string
}

// Scheduler periodically sweeps active environments and evicts the ones whose
// branch is merged or whose worktree has gone idle past the stale threshold.
//
// Safety invariant: dirty state and reference count are re-checked immediately
// before the destructive removal, never from data classified earlier in the
// same item's evaluation. A conversation may attach a reference or produce
// uncommitted work between classification and removal.
type Scheduler struct {
	opts       Options
	codebases  map[string]provider.Codebase
	store      EnvironmentStore
	provider   IsolationProvider
	git        Gateway
	events     *events.Hub
	logger     *slog.Logger
	persistent map[string]bool

	stopCh   chan struct{}
	wg       sync.WaitGroup
	sweeping atomic.Bool
	now      func() time.Time
}

// New creates a Scheduler. Interval and threshold fall back to the documented
// defaults (6h sweep, 14 day staleness) when unset.
func New(opts Options, codebases map[string]provider.Codebase, store EnvironmentStore, prov IsolationProvider, git Gateway, hub *events.Hub, logger *slog.Logger) *Scheduler {
	if opts.Interval <= 0 {
		opts.Interval = 6 * time.Hour
	}
	if opts.StaleThreshold <= 0 {
		opts.StaleThreshold = 14 * 24 * time.Hour
	}
	if hub == nil {
		hub = events.NewHub(128)
	}
	persistent := make(map[string]bool, len(opts.PersistentPlatforms))
	for _, p := range opts.PersistentPlatforms {
		persistent[p] = true
	}
	return &Scheduler{
		opts:       opts,
		codebases:  codebases,
		store:      store,
		provider:   prov,
		git:        git,
		events:     hub,
		logger:     logger.With("component", "reclaim"),
		persistent: persistent,
		stopCh:     make(chan struct{}),
		now:        time.Now,
	}
}

// Start begins the sweep loop: one sweep immediately, then on the timer.
func (s *Scheduler) Start(ctx context.Context) {
	s.logger.Info("Starting reclamation scheduler", "interval", s.opts.Interval)
	s.wg.Add(1)
	go s.tickLoop(ctx)
}

// Stop gracefully stops the scheduler.
func (s *Scheduler) Stop() {
	s.logger.Info("Stopping reclamation scheduler")
	close(s.stopCh)
	s.wg.Wait()
	s.logger.Info("Reclamation scheduler stopped")
}

func (s *Scheduler) tickLoop(ctx context.Context) {
	defer s.wg.Done()

	s.sweepTick(ctx)

	ticker := time.NewTicker(s.opts.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.sweepTick(ctx)
		case <-s.stopCh:
			return
		case <-ctx.Done():
			s.logger.Warn("Reclamation context cancelled, stopping tick loop")
			return
		}
	}
}

func (s *Scheduler) sweepTick(ctx context.Context) {
	report, err := s.RunSweep(ctx)
	if errors.Is(err, ErrSweepInProgress) {
		// Never re-entrant: a fire during a running sweep is dropped.
		s.logger.Warn("Skipped sweep tick, previous sweep still running")
		return
	}
	if err != nil {
		s.logger.Error("Sweep failed", "error", err)
		return
	}
	s.logger.Info("Sweep finished",
		"visited", report.Visited,
		"removed", len(report.Removed),
		"skipped", len(report.Skipped),
		"errors", len(report.Errors),
	)
}

// RunSweep executes one sweep over a snapshot of all active environments.
// Environments created after the snapshot is taken are not visited this
// cycle. Also invoked on demand from the API and the operator CLI.
func (s *Scheduler) RunSweep(ctx context.Context) (*CleanupReport, error) {
	if !s.sweeping.CompareAndSwap(false, true) {
		return nil, ErrSweepInProgress
	}
	defer s.sweeping.Store(false)

	report := &CleanupReport{StartedAt: s.now().UTC()}
	s.events.Publish("reclaim.sweep_started", map[string]any{"at": report.StartedAt})

	snapshot, err := s.store.ListActive(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("snapshot active environments: %w", err)
	}
	report.Visited = len(snapshot)

	for _, env := range snapshot {
		s.sweepOne(ctx, env, report)
	}

	report.FinishedAt = s.now().UTC()
	s.events.Publish("reclaim.sweep_finished", report)
	return report, nil
}

// sweepOne evaluates a single environment with per-item error isolation.
func (s *Scheduler) sweepOne(ctx context.Context, env *envstore.Environment, report *CleanupReport) {
	logger := s.logger.With("environment_id", env.ID, "branch", env.BranchName)

	// Gone from disk: reconcile the record, no branch logic needed.
	if !s.git.IsValidWorktree(ctx, env.WorkingPath) {
		if err := s.store.MarkDestroyed(ctx, env.ID); err != nil {
			s.recordError(report, env.ID, err)
			return
		}
		logger.Info("Reconciled environment with missing worktree", "path", env.WorkingPath)
		s.recordRemoved(report, env.ID, "missing")
		return
	}

	cb, ok := s.codebases[env.CodebaseID]
	if !ok {
		s.recordError(report, env.ID, fmt.Errorf("unknown codebase %q", env.CodebaseID))
		return
	}
	mainBranch := cb.MainBranch
	if mainBranch == "" {
		mainBranch = s.git.ResolveMainBranch(ctx, cb.RootPath)
	}

	merged, err := s.git.IsBranchMerged(ctx, cb.RootPath, env.BranchName, mainBranch)
	if err != nil {
		s.recordError(report, env.ID, err)
		return
	}

	if merged {
		s.removeIfSafe(ctx, env, cb, "merged", report, logger)
		return
	}

	if s.persistent[env.CreatedByPlatform] {
		s.recordSkipped(report, env.ID, "persistent platform")
		return
	}

	referenceTime := env.CreatedAt
	if commitTime := s.git.LastCommitTime(ctx, env.WorkingPath); commitTime != nil {
		referenceTime = *commitTime
	}
	if s.now().Sub(referenceTime) < s.opts.StaleThreshold {
		s.recordSkipped(report, env.ID, "active")
		return
	}

	s.removeIfSafe(ctx, env, cb, "stale", report, logger)
}

// removeIfSafe destroys env unless it is dirty or still referenced. Both
// checks run here, immediately before the removal call.
func (s *Scheduler) removeIfSafe(ctx context.Context, env *envstore.Environment, cb provider.Codebase, reason string, report *CleanupReport, logger *slog.Logger) {
	dirty, err := s.git.HasUncommittedChanges(ctx, env.WorkingPath)
	if err != nil {
		s.recordError(report, env.ID, err)
		return
	}
	if dirty {
		s.recordSkipped(report, env.ID, reason+" but dirty")
		return
	}

	refs, err := s.store.RefCount(ctx, env.ID)
	if err != nil {
		s.recordError(report, env.ID, err)
		return
	}
	if refs > 0 {
		s.recordSkipped(report, env.ID, reason+" but referenced")
		return
	}

	if err := s.provider.Destroy(ctx, env.ID, false); err != nil {
		// The worktree may have gone dirty in the window since the check
		// above; the gateway's own guard rail catches that.
		if gitx.IsDirty(err) {
			s.recordSkipped(report, env.ID, reason+" but dirty")
			return
		}
		s.recordError(report, env.ID, err)
		return
	}
	if err := s.store.MarkDestroyed(ctx, env.ID); err != nil {
		s.recordError(report, env.ID, err)
		return
	}

	logger.Info("Environment reclaimed", "reason", reason, "path", env.WorkingPath)
	s.recordRemoved(report, env.ID, reason)
}

func (s *Scheduler) recordRemoved(report *CleanupReport, id, reason string) {
	report.Removed = append(report.Removed, SweepItem{ID: id, Reason: reason})
	s.events.Publish("reclaim.removed", map[string]any{"environment_id": id, "reason": reason})
}

func (s *Scheduler) recordSkipped(report *CleanupReport, id, reason string) {
	report.Skipped = append(report.Skipped, SweepItem{ID: id, Reason: reason})
	s.events.Publish("reclaim.skipped", map[string]any{"environment_id": id, "reason": reason})
}

func (s *Scheduler) recordError(report *CleanupReport, id string, err error) {
	report.Errors = append(report.Errors, SweepError{ID: id, Error: err.Error()})
	s.logger.Error("Sweep item failed", "environment_id", id, "error", err)
	s.events.Publish("reclaim.error", map[string]any{"environment_id": id, "error": err.Error()})
}
