package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/driftworks/arbor/internal/envstore"
	"github.com/driftworks/arbor/internal/gitx"
	"github.com/driftworks/arbor/internal/reclaim"
	"github.com/driftworks/arbor/internal/resolve"
)

// handleHealthz handles GET /healthz (no auth).
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	active, err := s.store.ListActive(r.Context(), "")
	if err != nil {
		s.logger.Error("failed to list environments for healthz", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to list environments")
		return
	}

	s.writeJSON(w, http.StatusOK, HealthzResponse{
		Status:             "ok",
		UptimeSeconds:      int64(time.Since(s.startedAt).Seconds()),
		ActiveEnvironments: len(active),
	})
}

// handleResolve handles POST /v1/resolve. The resolution itself runs inside
// the serializer keyed by conversation id, so one conversation never has two
// resolutions in flight.
func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	var req ResolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Conversation.ID == "" {
		s.writeError(w, http.StatusBadRequest, "conversation.id is required")
		return
	}

	cb, ok := s.codebases[req.CodebaseID]
	if req.CodebaseID != "" && !ok {
		s.writeError(w, http.StatusNotFound, fmt.Sprintf("unknown codebase %q", req.CodebaseID))
		return
	}

	conv := resolve.Conversation{
		ID:                req.Conversation.ID,
		Platform:          req.Conversation.Platform,
		LegacyWorkingPath: req.Conversation.LegacyWorkingPath,
	}

	var result *resolve.Result
	err := s.serializer.RunExclusive(r.Context(), conv.ID, func(ctx context.Context) error {
		var rerr error
		result, rerr = s.resolver.Resolve(ctx, conv, cb, req.Hints.toHints())
		return rerr
	})
	if err != nil {
		// Version-control failures degrade to the unisolated default root
		// rather than failing the whole request.
		var toolErr *gitx.ToolError
		var timeoutErr *gitx.TimeoutError
		if errors.As(err, &toolErr) || errors.As(err, &timeoutErr) {
			s.logger.Warn("resolution degraded to default root",
				"conversation_id", conv.ID, "error", err)
			s.writeJSON(w, http.StatusOK, ResolveResponse{
				WorkingPath: cb.RootPath,
				Fallback:    true,
				Error:       err.Error(),
			})
			return
		}
		s.logger.Error("resolution failed", "conversation_id", conv.ID, "error", err)
		s.writeError(w, http.StatusInternalServerError, "resolution failed")
		return
	}

	s.writeJSON(w, http.StatusOK, ResolveResponse{
		WorkingPath: result.WorkingPath,
		Environment: viewOf(result.Environment),
		IsNew:       result.IsNew,
		Notices:     result.Notices,
	})
}

// handleSweep handles POST /v1/sweep: an on-demand reclamation sweep.
func (s *Server) handleSweep(w http.ResponseWriter, r *http.Request) {
	report, err := s.sweeper.RunSweep(r.Context())
	if errors.Is(err, reclaim.ErrSweepInProgress) {
		s.writeError(w, http.StatusConflict, err.Error())
		return
	}
	if err != nil {
		s.logger.Error("on-demand sweep failed", "error", err)
		s.writeError(w, http.StatusInternalServerError, "sweep failed")
		return
	}
	s.writeJSON(w, http.StatusOK, report)
}

// handleListEnvironments handles GET /v1/environments[?codebase=id].
func (s *Server) handleListEnvironments(w http.ResponseWriter, r *http.Request) {
	envs, err := s.store.ListActive(r.Context(), r.URL.Query().Get("codebase"))
	if err != nil {
		s.logger.Error("failed to list environments", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to list environments")
		return
	}

	views := make([]*EnvironmentView, 0, len(envs))
	for _, env := range envs {
		views = append(views, viewOf(env))
	}
	s.writeJSON(w, http.StatusOK, views)
}

// handleGetEnvironment handles GET /v1/environments/{envID}.
func (s *Server) handleGetEnvironment(w http.ResponseWriter, r *http.Request) {
	env, err := s.provider.Get(r.Context(), chi.URLParam(r, "envID"))
	if errors.Is(err, envstore.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, "environment not found")
		return
	}
	if err != nil {
		s.logger.Error("failed to get environment", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to get environment")
		return
	}
	s.writeJSON(w, http.StatusOK, viewOf(env))
}

// handleDestroyEnvironment handles DELETE /v1/environments/{envID}[?force=true].
// Manual eviction for operators; the same safety rails as the sweep apply
// unless force is set.
func (s *Server) handleDestroyEnvironment(w http.ResponseWriter, r *http.Request) {
	envID := chi.URLParam(r, "envID")
	force := r.URL.Query().Get("force") == "true"

	if !force {
		refs, err := s.store.RefCount(r.Context(), envID)
		if err != nil {
			s.logger.Error("failed to count references", "error", err)
			s.writeError(w, http.StatusInternalServerError, "failed to count references")
			return
		}
		if refs > 0 {
			err := &envstore.StillReferencedError{EnvironmentID: envID, Refs: refs}
			s.writeError(w, http.StatusConflict, err.Error())
			return
		}
	}

	err := s.provider.Destroy(r.Context(), envID, force)
	switch {
	case errors.Is(err, envstore.ErrNotFound):
		s.writeError(w, http.StatusNotFound, "environment not found")
		return
	case gitx.IsDirty(err):
		s.writeError(w, http.StatusConflict, err.Error())
		return
	case err != nil:
		s.logger.Error("failed to destroy environment", "environment_id", envID, "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to destroy environment")
		return
	}

	if err := s.store.MarkDestroyed(r.Context(), envID); err != nil {
		s.logger.Error("failed to mark environment destroyed", "environment_id", envID, "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to mark environment destroyed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleEvents streams hub events over SSE.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		s.writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	ch, cancel := s.events.Subscribe()
	defer cancel()

	// Replay the ring buffer so late clients see recent history.
	for _, ev := range s.events.SnapshotSince(0) {
		writeSSE(w, ev.Type, ev)
	}
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev, open := <-ch:
			if !open {
				return
			}
			writeSSE(w, ev.Type, ev)
			flusher.Flush()
		}
	}
}

// handleRecentEvents handles GET /v1/events/recent[?since=id]: a JSON
// snapshot of the hub's ring buffer for polling clients like the watch TUI.
func (s *Server) handleRecentEvents(w http.ResponseWriter, r *http.Request) {
	var since int64
	if raw := r.URL.Query().Get("since"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "since must be an integer event id")
			return
		}
		since = parsed
	}
	s.writeJSON(w, http.StatusOK, s.events.SnapshotSince(since))
}

func writeSSE(w http.ResponseWriter, eventType string, data any) {
	payload, err := json.Marshal(data)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", eventType, payload)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, ErrorResponse{Error: msg})
}
