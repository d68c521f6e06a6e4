package reclaim

import (
	"context"
	"errors"
	"time"

	"github.com/driftworks/arbor/internal/envstore"
)

// ErrSweepInProgress is returned when a sweep is requested while another is
// still running. Sweeps are single-flight; overlapping requests are dropped,
// never queued.
var ErrSweepInProgress = errors.New("reclamation sweep already in progress")

// SweepItem records one environment's outcome in a sweep.
type SweepItem struct {
	ID     string `json:"id"`
	Reason string `json:"reason"`
}

// SweepError records an environment whose evaluation failed. One failure
// never aborts the sweep.
type SweepError struct {
	ID    string `json:"id"`
	Error string `json:"error"`
}

// CleanupReport is a sweep's only externally observable output besides the
// persisted status changes.
type CleanupReport struct {
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt time.Time    `json:"finished_at"`
	Visited    int          `json:"visited"`
	Removed    []SweepItem  `json:"removed"`
	Skipped    []SweepItem  `json:"skipped"`
	Errors     []SweepError `json:"errors"`
}

// EnvironmentStore is the persistence surface the scheduler consumes.
type EnvironmentStore interface {
	ListActive(ctx context.Context, codebaseID string) ([]*envstore.Environment, error)
	MarkDestroyed(ctx context.Context, id string) error
	RefCount(ctx context.Context, environmentID string) (int, error)
}

// IsolationProvider destroys physical worktrees on the scheduler's behalf.
type IsolationProvider interface {
	Destroy(ctx context.Context, id string, force bool) error
}

// Gateway is the version-control surface the scheduler consults for liveness,
// dirtiness, and merge state.
type Gateway interface {
	IsValidWorktree(ctx context.Context, path string) bool
	HasUncommittedChanges(ctx context.Context, path string) (bool, error)
	IsBranchMerged(ctx context.Context, repoPath, branch, mainBranch string) (bool, error)
	ResolveMainBranch(ctx context.Context, repoPath string) string
	LastCommitTime(ctx context.Context, path string) *time.Time
}
