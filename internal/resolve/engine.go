package resolve

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/driftworks/arbor/internal/envstore"
	"github.com/driftworks/arbor/internal/events"
	"github.com/driftworks/arbor/internal/provider"
)

// Engine decides, for each inbound unit of work, whether to reuse, share,
// adopt, or create an isolated environment.
//
// Callers invoke Resolve through the per-conversation serializer; within one
// conversation calls are strictly ordered. Cross-conversation races on the
// same workflow identity converge through the store's insert-or-fetch rule.
type Engine struct {
	store    EnvironmentStore
	provider IsolationProvider
	worktree WorktreeChecker
	notifier Notifier
	events   *events.Hub
	logger   *slog.Logger
}

func New(store EnvironmentStore, prov IsolationProvider, worktree WorktreeChecker, notifier Notifier, hub *events.Hub, logger *slog.Logger) *Engine {
	if hub == nil {
		hub = events.NewHub(128)
	}
	return &Engine{
		store:    store,
		provider: prov,
		worktree: worktree,
		notifier: notifier,
		events:   hub,
		logger:   logger.With("component", "resolve"),
	}
}

// Resolve returns the working path conversation should use. Ordered
// decision ladder; the first matching branch wins:
//
//  1. reuse the conversation's existing valid reference
//  2. clear a stale reference and fall through
//  3. migrate a legacy bare path into a structured record
//  4. no codebase configured: unisolated default root
//  5. reuse the active environment for the same workflow identity
//  6. share the environment of linked work (issue/PR)
//  7. adopt an externally created worktree
//  8. create
func (e *Engine) Resolve(ctx context.Context, conv Conversation, cb provider.Codebase, hints Hints) (*Result, error) {
	logger := e.logger.With("conversation_id", conv.ID, "codebase", cb.ID)

	// Steps 1-2: existing reference, revalidated against the filesystem.
	env, err := e.store.EnvironmentForConversation(ctx, conv.ID)
	switch {
	case err == nil:
		if env.Status == envstore.StatusActive && e.worktree.IsValidWorktree(ctx, env.WorkingPath) {
			logger.Debug("reusing referenced environment", "environment_id", env.ID)
			return &Result{WorkingPath: env.WorkingPath, Environment: env}, nil
		}
		// Stale reference: the worktree vanished or the record is dead.
		// Self-heal and fall through to provisioning.
		logger.Info("clearing stale environment reference",
			"environment_id", env.ID, "path", env.WorkingPath)
		if err := e.store.DetachConversation(ctx, conv.ID); err != nil {
			return nil, err
		}
		if err := e.store.MarkDestroyed(ctx, env.ID); err != nil {
			return nil, err
		}
		e.events.Publish("resolve.stale_reference_cleared", map[string]any{
			"conversation_id": conv.ID,
			"environment_id":  env.ID,
		})
	case errors.Is(err, envstore.ErrNotFound):
		// No reference; continue.
	default:
		return nil, err
	}

	identity := e.identityFor(conv, cb, hints)
	req := provider.CreateRequest{
		Codebase:     cb,
		WorkflowType: identity.WorkflowType,
		WorkflowID:   identity.WorkflowID,
		SourceCommit: hints.SourceCommit,
		SourceBranch: hints.SourceBranch,
		Platform:     conv.Platform,
	}

	// Step 3: legacy bare-path migration.
	if conv.LegacyWorkingPath != "" && e.worktree.IsValidWorktree(ctx, conv.LegacyWorkingPath) {
		desc, err := e.provider.Adopt(ctx, req, conv.LegacyWorkingPath)
		if err != nil {
			return nil, err
		}
		if desc != nil {
			delete(desc.Metadata, "adopted")
			desc.Metadata["migrated"] = true
			return e.register(ctx, conv, desc, false, "", logger)
		}
	}

	// Step 4: no codebase configured for this conversation.
	if cb.ID == "" {
		logger.Debug("no codebase configured, using default root")
		return &Result{WorkingPath: cb.RootPath}, nil
	}

	// Step 5: identity lookup (same logical work from another conversation).
	if res, err := e.reuseByIdentity(ctx, conv, identity, "", logger); err != nil || res != nil {
		return res, err
	}

	// Step 6: linked-work sharing.
	for _, linked := range hints.LinkedWork {
		linkedIdentity := envstore.Identity{
			CodebaseID:   cb.ID,
			WorkflowType: linked.WorkflowType,
			WorkflowID:   linked.WorkflowID,
		}
		notice := fmt.Sprintf("Using the workspace already set up for %s %s.",
			linked.WorkflowType, linked.WorkflowID)
		if res, err := e.reuseByIdentity(ctx, conv, linkedIdentity, notice, logger); err != nil || res != nil {
			return res, err
		}
	}

	// Step 7: adoption of an externally created worktree.
	if hints.SuggestedAdoptPath != "" {
		desc, err := e.provider.Adopt(ctx, req, hints.SuggestedAdoptPath)
		if err != nil {
			return nil, err
		}
		if desc != nil {
			notice := fmt.Sprintf("Adopted existing workspace at %s.", desc.WorkingPath)
			return e.register(ctx, conv, desc, false, notice, logger)
		}
	}

	// Step 8: create.
	desc, err := e.provider.Create(ctx, req)
	if err != nil {
		return nil, err
	}
	notice := fmt.Sprintf("Created workspace on branch %s.", desc.BranchName)
	return e.register(ctx, conv, desc, true, notice, logger)
}

// reuseByIdentity reuses the active environment for identity when its worktree
// is still valid. A found-but-invalid record is reconciled to destroyed so a
// later create does not trip over the uniqueness index.
func (e *Engine) reuseByIdentity(ctx context.Context, conv Conversation, identity envstore.Identity, notice string, logger *slog.Logger) (*Result, error) {
	env, err := e.store.FindActiveByIdentity(ctx, identity)
	if errors.Is(err, envstore.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if !e.worktree.IsValidWorktree(ctx, env.WorkingPath) {
		logger.Info("active record has no backing worktree, reconciling",
			"environment_id", env.ID, "path", env.WorkingPath)
		if err := e.store.MarkDestroyed(ctx, env.ID); err != nil {
			return nil, err
		}
		return nil, nil
	}

	if err := e.store.AttachConversation(ctx, conv.ID, env.ID); err != nil {
		return nil, err
	}
	logger.Info("sharing environment", "environment_id", env.ID, "identity", identity.String())
	e.events.Publish("resolve.shared", map[string]any{
		"conversation_id": conv.ID,
		"environment_id":  env.ID,
		"identity":        identity.String(),
	})

	res := &Result{WorkingPath: env.WorkingPath, Environment: env}
	if notice != "" {
		res.Notices = append(res.Notices, notice)
		e.notify(ctx, conv.ID, notice)
	}
	return res, nil
}

// register persists desc (insert-or-fetch), attaches the conversation, and
// emits the user-visible notice. When a concurrent creator won the identity
// race the winner's record is reused and isNew is reported as false.
func (e *Engine) register(ctx context.Context, conv Conversation, desc *envstore.Environment, isNew bool, notice string, logger *slog.Logger) (*Result, error) {
	stored, inserted, err := e.store.InsertOrFetch(ctx, desc)
	if err != nil {
		return nil, err
	}
	if !inserted {
		isNew = false
	}
	if err := e.store.AttachConversation(ctx, conv.ID, stored.ID); err != nil {
		return nil, err
	}

	logger.Info("environment resolved",
		"environment_id", stored.ID, "branch", stored.BranchName, "is_new", isNew)
	e.events.Publish("resolve.registered", map[string]any{
		"conversation_id": conv.ID,
		"environment_id":  stored.ID,
		"branch":          stored.BranchName,
		"is_new":          isNew,
	})

	res := &Result{WorkingPath: stored.WorkingPath, Environment: stored, IsNew: isNew}
	if notice != "" {
		res.Notices = append(res.Notices, notice)
		e.notify(ctx, conv.ID, notice)
	}
	return res, nil
}

func (e *Engine) identityFor(conv Conversation, cb provider.Codebase, hints Hints) envstore.Identity {
	workflowType := hints.WorkflowType
	workflowID := hints.WorkflowID
	if !workflowType.Valid() || workflowID == "" {
		workflowType = envstore.WorkflowThread
		workflowID = conv.ID
	}
	return envstore.Identity{
		CodebaseID:   cb.ID,
		WorkflowType: workflowType,
		WorkflowID:   workflowID,
	}
}

func (e *Engine) notify(ctx context.Context, conversationID, text string) {
	if e.notifier == nil {
		return
	}
	e.notifier.SendMessage(ctx, conversationID, text)
}
