package resolve

import (
	"context"

	"github.com/driftworks/arbor/internal/envstore"
	"github.com/driftworks/arbor/internal/provider"
)

// Conversation is the inbound unit of work's conversation record. The engine
// only reads it; conversation content stays with the chat adapters.
type Conversation struct {
	ID       string
	Platform string
	// LegacyWorkingPath is a bare path carried by pre-migration conversations
	// that predate structured environment records.
	LegacyWorkingPath string
}

// LinkedWork names an issue or PR a conversation is about, for
// cross-conversation environment sharing.
type LinkedWork struct {
	WorkflowType envstore.WorkflowType
	WorkflowID   string
}

// Hints carry platform-supplied context for resolution.
type Hints struct {
	WorkflowType envstore.WorkflowType
	WorkflowID   string
	LinkedWork   []LinkedWork
	SourceBranch string
	SourceCommit string
	// SuggestedAdoptPath points at a worktree created outside this service
	// that follows the same naming convention.
	SuggestedAdoptPath string
}

// Result is the outcome of one resolution.
type Result struct {
	WorkingPath string
	// Environment is nil when no codebase is configured and work falls back
	// to the unisolated default root.
	Environment *envstore.Environment
	IsNew       bool
	Notices     []string
}

// EnvironmentStore is the persistence surface the engine consumes.
type EnvironmentStore interface {
	InsertOrFetch(ctx context.Context, env *envstore.Environment) (*envstore.Environment, bool, error)
	FindActiveByIdentity(ctx context.Context, identity envstore.Identity) (*envstore.Environment, error)
	EnvironmentForConversation(ctx context.Context, conversationID string) (*envstore.Environment, error)
	AttachConversation(ctx context.Context, conversationID, environmentID string) error
	DetachConversation(ctx context.Context, conversationID string) error
	MarkDestroyed(ctx context.Context, id string) error
}

// IsolationProvider is the subset of provider capabilities the engine uses.
type IsolationProvider interface {
	Create(ctx context.Context, req provider.CreateRequest) (*envstore.Environment, error)
	Adopt(ctx context.Context, req provider.CreateRequest, path string) (*envstore.Environment, error)
}

// WorktreeChecker revalidates filesystem state before any persisted record is
// trusted.
type WorktreeChecker interface {
	IsValidWorktree(ctx context.Context, path string) bool
}

// Notifier delivers short user-visible notices back to the conversation.
type Notifier interface {
	SendMessage(ctx context.Context, conversationID, text string)
}
