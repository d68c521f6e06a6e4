package api

import (
	"time"

	"github.com/driftworks/arbor/internal/envstore"
	"github.com/driftworks/arbor/internal/resolve"
)

// ResolveRequest is the body of POST /v1/resolve. Chat and webhook adapters
// translate their inbound events into this shape.
type ResolveRequest struct {
	Conversation ConversationBody `json:"conversation"`
	CodebaseID   string           `json:"codebase_id,omitempty"`
	Hints        HintsBody        `json:"hints"`
}

type ConversationBody struct {
	ID                string `json:"id"`
	Platform          string `json:"platform,omitempty"`
	LegacyWorkingPath string `json:"legacy_working_path,omitempty"`
}

type HintsBody struct {
	WorkflowType       string           `json:"workflow_type,omitempty"`
	WorkflowID         string           `json:"workflow_id,omitempty"`
	LinkedWork         []LinkedWorkBody `json:"linked_work,omitempty"`
	SourceBranch       string           `json:"source_branch,omitempty"`
	SourceCommit       string           `json:"source_commit,omitempty"`
	SuggestedAdoptPath string           `json:"suggested_adopt_path,omitempty"`
}

type LinkedWorkBody struct {
	WorkflowType string `json:"workflow_type"`
	WorkflowID   string `json:"workflow_id"`
}

// ResolveResponse reports the resolved working path. Fallback is true when
// isolation failed and the codebase's default root is returned instead; the
// request still succeeds so the assistant can keep working unisolated.
type ResolveResponse struct {
	WorkingPath string           `json:"working_path"`
	Environment *EnvironmentView `json:"environment,omitempty"`
	IsNew       bool             `json:"is_new"`
	Notices     []string         `json:"notices,omitempty"`
	Fallback    bool             `json:"fallback,omitempty"`
	Error       string           `json:"error,omitempty"`
}

// EnvironmentView is the wire representation of an environment.
type EnvironmentView struct {
	ID                string         `json:"id"`
	CodebaseID        string         `json:"codebase_id"`
	WorkflowType      string         `json:"workflow_type"`
	WorkflowID        string         `json:"workflow_id"`
	Provider          string         `json:"provider"`
	WorkingPath       string         `json:"working_path"`
	BranchName        string         `json:"branch_name"`
	Status            string         `json:"status"`
	CreatedAt         time.Time      `json:"created_at"`
	CreatedByPlatform string         `json:"created_by_platform,omitempty"`
	DestroyedAt       *time.Time     `json:"destroyed_at,omitempty"`
	Metadata          map[string]any `json:"metadata,omitempty"`
}

func viewOf(env *envstore.Environment) *EnvironmentView {
	if env == nil {
		return nil
	}
	return &EnvironmentView{
		ID:                env.ID,
		CodebaseID:        env.CodebaseID,
		WorkflowType:      string(env.WorkflowType),
		WorkflowID:        env.WorkflowID,
		Provider:          env.Provider,
		WorkingPath:       env.WorkingPath,
		BranchName:        env.BranchName,
		Status:            string(env.Status),
		CreatedAt:         env.CreatedAt,
		CreatedByPlatform: env.CreatedByPlatform,
		DestroyedAt:       env.DestroyedAt,
		Metadata:          env.Metadata,
	}
}

func (h HintsBody) toHints() resolve.Hints {
	hints := resolve.Hints{
		WorkflowType:       envstore.WorkflowType(h.WorkflowType),
		WorkflowID:         h.WorkflowID,
		SourceBranch:       h.SourceBranch,
		SourceCommit:       h.SourceCommit,
		SuggestedAdoptPath: h.SuggestedAdoptPath,
	}
	for _, lw := range h.LinkedWork {
		hints.LinkedWork = append(hints.LinkedWork, resolve.LinkedWork{
			WorkflowType: envstore.WorkflowType(lw.WorkflowType),
			WorkflowID:   lw.WorkflowID,
		})
	}
	return hints
}

// HealthzResponse is the GET /healthz body.
type HealthzResponse struct {
	Status             string `json:"status"`
	UptimeSeconds      int64  `json:"uptime_seconds"`
	ActiveEnvironments int    `json:"active_environments"`
}

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error string `json:"error"`
}
