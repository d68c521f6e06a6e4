package provider

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/driftworks/arbor/internal/envstore"
	"github.com/driftworks/arbor/internal/gitx"
)

// ProviderName tags environments created by this implementation. The field
// exists so alternative isolation backends can coexist in the same store.
const ProviderName = "worktree"

// Codebase is a repository known to the service. Read-only here; ownership
// stays with configuration.
type Codebase struct {
	ID         string
	RootPath   string
	MainBranch string
}

// CreateRequest describes the environment to provision.
type CreateRequest struct {
	Codebase     Codebase
	WorkflowType envstore.WorkflowType
	WorkflowID   string
	// SourceCommit pins the worktree to an exact commit (reproducible review
	// snapshots; forked-PR heads that are not fetchable by name).
	SourceCommit string
	// SourceBranch branches from a named remote branch when set.
	SourceBranch string
	Platform     string
}

// Provider is the isolation capability interface.
type Provider interface {
	// Create provisions a branch + worktree and returns an unsaved
	// environment description. Idempotent: an existing valid worktree at the
	// computed path is returned unchanged.
	Create(ctx context.Context, req CreateRequest) (*envstore.Environment, error)

	// Destroy removes the physical worktree for an environment. Propagates
	// DirtyWorktreeError when force is false; callers decide to skip or force.
	Destroy(ctx context.Context, id string, force bool) error

	// Get returns the stored environment, or ErrNotFound.
	Get(ctx context.Context, id string) (*envstore.Environment, error)

	// List returns active environments for a codebase (all when empty).
	List(ctx context.Context, codebaseID string) ([]*envstore.Environment, error)

	// Adopt registers an externally created worktree at path as an unsaved
	// environment description, or returns nil when path is not adoptable.
	Adopt(ctx context.Context, req CreateRequest, path string) (*envstore.Environment, error)

	// HealthCheck reports whether the environment is active and its worktree
	// still valid on disk.
	HealthCheck(ctx context.Context, id string) bool
}

// WorktreeProvider implements Provider on top of git worktrees.
type WorktreeProvider struct {
	git       *gitx.Gateway
	store     *envstore.Store
	codebases map[string]Codebase
	baseDir   string
	logger    *slog.Logger
	now       func() time.Time
}

var _ Provider = (*WorktreeProvider)(nil)

func NewWorktreeProvider(git *gitx.Gateway, store *envstore.Store, codebases map[string]Codebase, baseDir string, logger *slog.Logger) *WorktreeProvider {
	return &WorktreeProvider{
		git:       git,
		store:     store,
		codebases: codebases,
		baseDir:   baseDir,
		logger:    logger.With("component", "provider"),
		now:       time.Now,
	}
}

// Create provisions the branch and worktree for req.
//
// The path pre-check makes create idempotent: a second creator racing on the
// same identity computes the same path and finds the first creator's worktree.
// A branch-exists conflict is retried once reusing the branch; a path conflict
// (existing non-worktree directory) is surfaced.
func (p *WorktreeProvider) Create(ctx context.Context, req CreateRequest) (*envstore.Environment, error) {
	if req.Codebase.RootPath == "" {
		return nil, fmt.Errorf("create environment: codebase %q has no root path", req.Codebase.ID)
	}

	branch := BranchName(req.WorkflowType, req.WorkflowID)
	path := WorktreePath(p.baseDir, req.Codebase.ID, branch)

	if p.git.IsValidWorktree(ctx, path) {
		p.logger.Debug("reusing existing worktree", "path", path, "branch", branch)
		return p.describe(req, path, branch), nil
	}

	startPoint := ""
	switch {
	case req.SourceCommit != "":
		startPoint = req.SourceCommit
	case req.SourceBranch != "":
		if err := p.git.FetchBranch(ctx, req.Codebase.RootPath, req.SourceBranch); err != nil {
			// Local-only branches are still usable as a start point.
			p.logger.Warn("fetch source branch failed, trying local ref",
				"codebase", req.Codebase.ID, "branch", req.SourceBranch, "error", err)
			startPoint = req.SourceBranch
		} else {
			startPoint = "origin/" + req.SourceBranch
		}
	}

	err := p.git.AddWorktree(ctx, req.Codebase.RootPath, path, branch, startPoint, true)
	if err != nil {
		var conflict *gitx.ConflictError
		if errors.As(err, &conflict) && conflict.Branch != "" {
			// Branch already exists: reuse it rather than failing.
			p.logger.Info("branch exists, reusing", "codebase", req.Codebase.ID, "branch", branch)
			err = p.git.AddWorktree(ctx, req.Codebase.RootPath, path, branch, "", false)
		}
		if err != nil {
			return nil, fmt.Errorf("create worktree for %s/%s: %w", req.WorkflowType, req.WorkflowID, err)
		}
	}

	p.logger.Info("worktree created",
		"codebase", req.Codebase.ID, "branch", branch, "path", path, "platform", req.Platform)
	return p.describe(req, path, branch), nil
}

// Destroy removes the environment's worktree. The store row is not touched
// here; callers mark it destroyed only after removal succeeds, so a timed-out
// destroy leaves the record active for a later sweep to retry.
func (p *WorktreeProvider) Destroy(ctx context.Context, id string, force bool) error {
	env, err := p.store.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if env.Status == envstore.StatusDestroyed {
		return nil
	}

	cb, ok := p.codebases[env.CodebaseID]
	if !ok {
		return fmt.Errorf("destroy environment %s: unknown codebase %q", id, env.CodebaseID)
	}
	if err := p.git.RemoveWorktree(ctx, cb.RootPath, env.WorkingPath, force); err != nil {
		return fmt.Errorf("destroy environment %s: %w", id, err)
	}
	p.logger.Info("worktree destroyed", "environment_id", id, "path", env.WorkingPath, "force", force)
	return nil
}

func (p *WorktreeProvider) Get(ctx context.Context, id string) (*envstore.Environment, error) {
	return p.store.GetByID(ctx, id)
}

func (p *WorktreeProvider) List(ctx context.Context, codebaseID string) ([]*envstore.Environment, error) {
	return p.store.ListActive(ctx, codebaseID)
}

// Adopt turns an externally created worktree into an environment description.
// Returns nil (no error) when the path is not a valid worktree or is already
// owned by an active record.
func (p *WorktreeProvider) Adopt(ctx context.Context, req CreateRequest, path string) (*envstore.Environment, error) {
	if !p.git.IsValidWorktree(ctx, path) {
		return nil, nil
	}
	if _, err := p.store.FindActiveByPath(ctx, path); err == nil {
		return nil, nil
	} else if !errors.Is(err, envstore.ErrNotFound) {
		return nil, err
	}

	branch, err := p.git.CurrentBranch(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("adopt %s: %w", path, err)
	}

	env := p.describe(req, path, branch)
	env.Metadata["adopted"] = true
	p.logger.Info("worktree adopted", "path", path, "branch", branch, "codebase", req.Codebase.ID)
	return env, nil
}

func (p *WorktreeProvider) HealthCheck(ctx context.Context, id string) bool {
	env, err := p.store.GetByID(ctx, id)
	if err != nil || env.Status != envstore.StatusActive {
		return false
	}
	return p.git.IsValidWorktree(ctx, env.WorkingPath)
}

func (p *WorktreeProvider) describe(req CreateRequest, path, branch string) *envstore.Environment {
	return &envstore.Environment{
		ID:                uuid.NewString(),
		CodebaseID:        req.Codebase.ID,
		WorkflowType:      req.WorkflowType,
		WorkflowID:        req.WorkflowID,
		Provider:          ProviderName,
		WorkingPath:       path,
		BranchName:        branch,
		Status:            envstore.StatusActive,
		CreatedAt:         p.now().UTC(),
		CreatedByPlatform: req.Platform,
		Metadata:          map[string]any{},
	}
}
