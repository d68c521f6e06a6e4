package gitx

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// DefaultMainBranch is the fallback when main-branch detection fails (no
// remote configured, detached HEAD, fresh repository).
const DefaultMainBranch = "main"

// Gateway is a thin blocking wrapper over the git CLI. Every command runs
// under a bounded timeout; failures come back as typed errors and no command
// is retried here.
type Gateway struct {
	timeout time.Duration
	logger  *slog.Logger
}

// NewGateway creates a Gateway whose commands are bounded by timeout.
func NewGateway(timeout time.Duration, logger *slog.Logger) *Gateway {
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &Gateway{
		timeout: timeout,
		logger:  logger.With("component", "gitx"),
	}
}

// AddWorktree creates a worktree at path. When newBranch is true the branch
// is created (optionally at startPoint); otherwise the existing branch is
// checked out. Returns ConflictError when the branch already exists (newBranch
// case) or when path exists and is not a valid worktree.
func (g *Gateway) AddWorktree(ctx context.Context, repoPath, path, branch, startPoint string, newBranch bool) error {
	if info, err := os.Stat(path); err == nil {
		if info.IsDir() && g.IsValidWorktree(ctx, path) {
			return nil
		}
		return &ConflictError{Path: path}
	}

	args := []string{"worktree", "add"}
	if newBranch {
		args = append(args, "-b", branch, path)
		if startPoint != "" {
			args = append(args, startPoint)
		}
	} else {
		args = append(args, path, branch)
	}

	_, stderr, _, err := g.run(ctx, repoPath, args...)
	if err != nil {
		if newBranch && strings.Contains(stderr, "already exists") {
			return &ConflictError{Branch: branch}
		}
		return err
	}
	g.logger.Debug("worktree added", "repo", repoPath, "path", path, "branch", branch)
	return nil
}

// FetchBranch fetches branch from origin so it can be used as a start point.
func (g *Gateway) FetchBranch(ctx context.Context, repoPath, branch string) error {
	_, _, _, err := g.run(ctx, repoPath, "fetch", "origin", branch)
	return err
}

// RemoveWorktree removes the worktree at path. Fails with DirtyWorktreeError
// if uncommitted changes exist and force is false.
func (g *Gateway) RemoveWorktree(ctx context.Context, repoPath, path string, force bool) error {
	if !force {
		dirty, err := g.HasUncommittedChanges(ctx, path)
		if err != nil {
			return err
		}
		if dirty {
			return &DirtyWorktreeError{Path: path}
		}
	}

	args := []string{"worktree", "remove"}
	if force {
		args = append(args, "--force")
	}
	args = append(args, path)

	if _, _, _, err := g.run(ctx, repoPath, args...); err != nil {
		return err
	}
	g.logger.Debug("worktree removed", "repo", repoPath, "path", path, "force", force)
	return nil
}

// HasUncommittedChanges reports whether path has uncommitted work. A missing
// or non-worktree path is "safe to remove", so it reports false, not an error.
func (g *Gateway) HasUncommittedChanges(ctx context.Context, path string) (bool, error) {
	if !g.IsValidWorktree(ctx, path) {
		return false, nil
	}
	stdout, _, _, err := g.run(ctx, path, "status", "--porcelain")
	if err != nil {
		return false, err
	}
	return strings.TrimSpace(stdout) != "", nil
}

// IsBranchMerged reports whether branch is an ancestor of mainBranch.
func (g *Gateway) IsBranchMerged(ctx context.Context, repoPath, branch, mainBranch string) (bool, error) {
	_, _, exitCode, err := g.run(ctx, repoPath,
		"merge-base", "--is-ancestor", "refs/heads/"+branch, "refs/heads/"+mainBranch)
	if err != nil {
		var te *ToolError
		if errors.As(err, &te) && exitCode == 1 {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// ResolveMainBranch determines the repository's main branch. Best-effort: any
// failure falls back to DefaultMainBranch.
func (g *Gateway) ResolveMainBranch(ctx context.Context, repoPath string) string {
	stdout, _, _, err := g.run(ctx, repoPath, "symbolic-ref", "--short", "refs/remotes/origin/HEAD")
	if err == nil {
		if name := strings.TrimPrefix(strings.TrimSpace(stdout), "origin/"); name != "" {
			return name
		}
	}
	for _, candidate := range []string{"main", "master"} {
		if _, _, _, err := g.run(ctx, repoPath, "rev-parse", "--verify", "refs/heads/"+candidate); err == nil {
			return candidate
		}
	}
	return DefaultMainBranch
}

// LastCommitTime returns the commit time of HEAD at path, or nil when it
// cannot be determined (no commits, missing path, tool failure).
func (g *Gateway) LastCommitTime(ctx context.Context, path string) *time.Time {
	stdout, _, _, err := g.run(ctx, path, "log", "-1", "--format=%ct")
	if err != nil {
		return nil
	}
	secs, err := strconv.ParseInt(strings.TrimSpace(stdout), 10, 64)
	if err != nil {
		return nil
	}
	t := time.Unix(secs, 0).UTC()
	return &t
}

// CurrentBranch returns the branch checked out at path.
func (g *Gateway) CurrentBranch(ctx context.Context, path string) (string, error) {
	stdout, _, _, err := g.run(ctx, path, "branch", "--show-current")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(stdout), nil
}

// IsValidWorktree reports whether path exists and carries git metadata.
func (g *Gateway) IsValidWorktree(ctx context.Context, path string) bool {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return false
	}
	stdout, _, _, err := g.run(ctx, path, "rev-parse", "--is-inside-work-tree")
	return err == nil && strings.TrimSpace(stdout) == "true"
}

// run executes one git command under the gateway timeout and returns trimmed
// stdout, stderr, and the process exit code.
func (g *Gateway) run(ctx context.Context, dir string, args ...string) (string, string, int, error) {
	cctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	cmd := exec.CommandContext(cctx, "git", args...)
	cmd.Dir = dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	errText := strings.TrimSpace(stderr.String())

	if cctx.Err() == context.DeadlineExceeded {
		return "", errText, -1, &TimeoutError{Args: args, Timeout: g.timeout}
	}
	if err != nil {
		exitCode := -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		}
		return "", errText, exitCode, &ToolError{
			Args:   args,
			Stderr: errText,
			Err:    fmt.Errorf("run git in %s: %w", dir, err),
		}
	}
	return stdout.String(), errText, 0, nil
}
