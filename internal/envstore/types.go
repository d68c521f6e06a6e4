package envstore

import (
	"errors"
	"fmt"
	"time"
)

// WorkflowType classifies the unit of conversational work an environment
// serves.
type WorkflowType string

const (
	WorkflowIssue  WorkflowType = "issue"
	WorkflowPR     WorkflowType = "pr"
	WorkflowReview WorkflowType = "review"
	WorkflowThread WorkflowType = "thread"
	WorkflowTask   WorkflowType = "task"
)

// Valid reports whether t is one of the known workflow types.
func (t WorkflowType) Valid() bool {
	switch t {
	case WorkflowIssue, WorkflowPR, WorkflowReview, WorkflowThread, WorkflowTask:
		return true
	}
	return false
}

type Status string

const (
	StatusActive    Status = "active"
	StatusDestroyed Status = "destroyed"
)

// Identity is the workflow identity an environment is keyed on. At most one
// active environment exists per identity.
type Identity struct {
	CodebaseID   string
	WorkflowType WorkflowType
	WorkflowID   string
}

func (id Identity) String() string {
	return fmt.Sprintf("%s/%s/%s", id.CodebaseID, id.WorkflowType, id.WorkflowID)
}

// Environment is one isolated working copy of a codebase, backed by a git
// worktree and branch. Destruction is terminal; a destroyed row is never
// reactivated.
type Environment struct {
	ID                string
	CodebaseID        string
	WorkflowType      WorkflowType
	WorkflowID        string
	Provider          string
	WorkingPath       string
	BranchName        string
	Status            Status
	CreatedAt         time.Time
	CreatedByPlatform string
	DestroyedAt       *time.Time
	Metadata          map[string]any
}

// Identity returns the environment's workflow identity.
func (e *Environment) Identity() Identity {
	return Identity{
		CodebaseID:   e.CodebaseID,
		WorkflowType: e.WorkflowType,
		WorkflowID:   e.WorkflowID,
	}
}

var ErrNotFound = errors.New("environment not found")

// StillReferencedError blocks destruction of an environment that conversations
// still point at.
type StillReferencedError struct {
	EnvironmentID string
	Refs          int
}

func (e *StillReferencedError) Error() string {
	return fmt.Sprintf("environment %s still referenced by %d conversation(s)", e.EnvironmentID, e.Refs)
}
