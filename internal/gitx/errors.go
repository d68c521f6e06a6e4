package gitx

import (
	"errors"
	"fmt"
	"time"
)

// ConflictError reports that a branch or target path already exists. Callers
// recover from it locally (branch reuse, idempotent create); it is never
// surfaced to end users.
type ConflictError struct {
	Branch string
	Path   string
}

func (e *ConflictError) Error() string {
	if e.Branch != "" {
		return fmt.Sprintf("branch %q already exists", e.Branch)
	}
	return fmt.Sprintf("path %q already exists and is not a worktree", e.Path)
}

// DirtyWorktreeError blocks destructive actions on a worktree with
// uncommitted changes. This is a guard rail, not a fault to suppress.
type DirtyWorktreeError struct {
	Path string
}

func (e *DirtyWorktreeError) Error() string {
	return fmt.Sprintf("worktree %q has uncommitted changes", e.Path)
}

// ToolError reports an unexpected git command failure.
type ToolError struct {
	Args   []string
	Stderr string
	Err    error
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("git %v: %s", e.Args, e.Stderr)
}

func (e *ToolError) Unwrap() error { return e.Err }

// TimeoutError reports a git command that exceeded the configured deadline.
type TimeoutError struct {
	Args    []string
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("git %v timed out after %s", e.Args, e.Timeout)
}

// IsConflict returns true if err is a ConflictError.
func IsConflict(err error) bool {
	var ce *ConflictError
	return errors.As(err, &ce)
}

// IsDirty returns true if err is a DirtyWorktreeError.
func IsDirty(err error) bool {
	var de *DirtyWorktreeError
	return errors.As(err, &de)
}
