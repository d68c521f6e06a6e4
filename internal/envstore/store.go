package envstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"time"
)

// Store persists IsolationEnvironment rows and conversation references in
// SQLite. It is the single source of truth for identity uniqueness and
// status; filesystem liveness is always revalidated by callers.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

const environmentColumns = `id, codebase_id, workflow_type, workflow_id, provider,
working_path, branch_name, status, created_at, created_by_platform, destroyed_at, metadata`

// InsertOrFetch inserts env, or returns the already-active environment for
// the same identity when a concurrent creator won the race. The returned bool
// is true when this call performed the insert.
func (s *Store) InsertOrFetch(ctx context.Context, env *Environment) (*Environment, bool, error) {
	if env.ID == "" {
		return nil, false, fmt.Errorf("environment id is empty")
	}
	if !env.WorkflowType.Valid() {
		return nil, false, fmt.Errorf("invalid workflow type %q", env.WorkflowType)
	}

	meta, err := encodeMetadata(env.Metadata)
	if err != nil {
		return nil, false, fmt.Errorf("encode metadata: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `
INSERT INTO environments(`+environmentColumns+`)
VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, NULL, ?)
ON CONFLICT(codebase_id, workflow_type, workflow_id) WHERE status = 'active'
DO NOTHING;
`, env.ID, env.CodebaseID, string(env.WorkflowType), env.WorkflowID, env.Provider,
		env.WorkingPath, env.BranchName, string(StatusActive),
		env.CreatedAt.UTC().Format(time.RFC3339Nano), env.CreatedByPlatform, meta)
	if err != nil {
		return nil, false, fmt.Errorf("insert environment: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return nil, false, fmt.Errorf("insert environment rows affected: %w", err)
	}
	if affected > 0 {
		inserted := *env
		inserted.Status = StatusActive
		return &inserted, true, nil
	}

	// Lost the race: fetch the winner's row and reuse it.
	winner, err := s.FindActiveByIdentity(ctx, env.Identity())
	if err != nil {
		return nil, false, fmt.Errorf("fetch winning environment for %s: %w", env.Identity(), err)
	}
	return winner, false, nil
}

// GetByID returns the environment with the given id regardless of status.
func (s *Store) GetByID(ctx context.Context, id string) (*Environment, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+environmentColumns+` FROM environments WHERE id = ?;`, id)
	return scanEnvironment(row)
}

// FindActiveByIdentity returns the active environment for identity, or
// ErrNotFound.
func (s *Store) FindActiveByIdentity(ctx context.Context, identity Identity) (*Environment, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT `+environmentColumns+` FROM environments
WHERE codebase_id = ? AND workflow_type = ? AND workflow_id = ? AND status = 'active';
`, identity.CodebaseID, string(identity.WorkflowType), identity.WorkflowID)
	return scanEnvironment(row)
}

// FindActiveByPath returns the active environment whose working path matches,
// or ErrNotFound. Used by adoption to detect already-owned paths.
func (s *Store) FindActiveByPath(ctx context.Context, workingPath string) (*Environment, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT `+environmentColumns+` FROM environments
WHERE working_path = ? AND status = 'active';
`, workingPath)
	return scanEnvironment(row)
}

// ListActive returns active environments, optionally filtered by codebase
// (empty codebaseID means all codebases). Ordered by creation time so sweep
// output is deterministic.
func (s *Store) ListActive(ctx context.Context, codebaseID string) ([]*Environment, error) {
	query := `SELECT ` + environmentColumns + ` FROM environments WHERE status = 'active'`
	args := []any{}
	if codebaseID != "" {
		query += ` AND codebase_id = ?`
		args = append(args, codebaseID)
	}
	query += ` ORDER BY created_at, id;`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list environments: %w", err)
	}
	defer rows.Close()

	var out []*Environment
	for rows.Next() {
		env, err := scanEnvironment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, env)
	}
	return out, rows.Err()
}

// MarkDestroyed transitions an active environment to destroyed. Already
// destroyed rows are left untouched (destruction is terminal and idempotent).
func (s *Store) MarkDestroyed(ctx context.Context, id string) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.db.ExecContext(ctx, `
UPDATE environments SET status = 'destroyed', destroyed_at = ?
WHERE id = ? AND status = 'active';
`, now, id)
	if err != nil {
		return fmt.Errorf("mark environment destroyed: %w", err)
	}
	return nil
}

// MergeMetadata applies updates as a shallow merge over the stored metadata
// (top-level keys replaced) and returns the merged bag.
func (s *Store) MergeMetadata(ctx context.Context, id string, updates map[string]any) (map[string]any, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var raw string
	err = tx.QueryRowContext(ctx, `SELECT metadata FROM environments WHERE id = ?;`, id).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("merge metadata for %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read metadata: %w", err)
	}

	cur, err := decodeMetadata(raw)
	if err != nil {
		return nil, fmt.Errorf("decode stored metadata: %w", err)
	}
	maps.Copy(cur, updates)

	merged, err := encodeMetadata(cur)
	if err != nil {
		return nil, fmt.Errorf("encode merged metadata: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE environments SET metadata = ? WHERE id = ?;`, merged, id); err != nil {
		return nil, fmt.Errorf("write merged metadata: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return cur, nil
}

// AttachConversation points conversationID at environmentID, replacing any
// previous reference the conversation held.
func (s *Store) AttachConversation(ctx context.Context, conversationID, environmentID string) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.db.ExecContext(ctx, `
INSERT INTO conversation_refs(conversation_id, environment_id, attached_at)
VALUES(?, ?, ?)
ON CONFLICT(conversation_id) DO UPDATE SET
  environment_id = excluded.environment_id,
  attached_at = excluded.attached_at;
`, conversationID, environmentID, now)
	if err != nil {
		return fmt.Errorf("attach conversation %s: %w", conversationID, err)
	}
	return nil
}

// DetachConversation clears conversationID's environment reference. Detaching
// a conversation with no reference is a no-op.
func (s *Store) DetachConversation(ctx context.Context, conversationID string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM conversation_refs WHERE conversation_id = ?;`, conversationID)
	if err != nil {
		return fmt.Errorf("detach conversation %s: %w", conversationID, err)
	}
	return nil
}

// EnvironmentForConversation returns the environment conversationID currently
// references, or ErrNotFound.
func (s *Store) EnvironmentForConversation(ctx context.Context, conversationID string) (*Environment, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT `+envColumnsPrefixed("e")+` FROM environments e
JOIN conversation_refs c ON c.environment_id = e.id
WHERE c.conversation_id = ?;
`, conversationID)
	return scanEnvironment(row)
}

// RefCount returns the number of conversations referencing environmentID.
// Reclamation calls this immediately before every destructive removal.
func (s *Store) RefCount(ctx context.Context, environmentID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM conversation_refs WHERE environment_id = ?;`, environmentID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count references for %s: %w", environmentID, err)
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEnvironment(row rowScanner) (*Environment, error) {
	var (
		env         Environment
		wfType      string
		status      string
		createdAt   string
		destroyedAt sql.NullString
		meta        string
	)
	err := row.Scan(&env.ID, &env.CodebaseID, &wfType, &env.WorkflowID, &env.Provider,
		&env.WorkingPath, &env.BranchName, &status, &createdAt, &env.CreatedByPlatform,
		&destroyedAt, &meta)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan environment: %w", err)
	}

	env.WorkflowType = WorkflowType(wfType)
	env.Status = Status(status)
	if env.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at %q: %w", createdAt, err)
	}
	if destroyedAt.Valid {
		t, err := time.Parse(time.RFC3339Nano, destroyedAt.String)
		if err != nil {
			return nil, fmt.Errorf("parse destroyed_at %q: %w", destroyedAt.String, err)
		}
		env.DestroyedAt = &t
	}
	if env.Metadata, err = decodeMetadata(meta); err != nil {
		return nil, fmt.Errorf("decode metadata for %s: %w", env.ID, err)
	}
	return &env, nil
}

func envColumnsPrefixed(alias string) string {
	return alias + `.id, ` + alias + `.codebase_id, ` + alias + `.workflow_type, ` +
		alias + `.workflow_id, ` + alias + `.provider, ` + alias + `.working_path, ` +
		alias + `.branch_name, ` + alias + `.status, ` + alias + `.created_at, ` +
		alias + `.created_by_platform, ` + alias + `.destroyed_at, ` + alias + `.metadata`
}

func encodeMetadata(m map[string]any) (string, error) {
	if len(m) == 0 {
		return "{}", nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func decodeMetadata(raw string) (map[string]any, error) {
	if raw == "" {
		return map[string]any{}, nil
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return nil, err
	}
	if m == nil {
		m = map[string]any{}
	}
	return m, nil
}
