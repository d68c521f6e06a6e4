package provider

import (
	"encoding/hex"
	"path/filepath"
	"strings"

	"github.com/zeebo/blake3"

	"github.com/driftworks/arbor/internal/envstore"
)

const maxSlugLen = 48

// BranchName computes the deterministic branch name for a workflow identity.
// Thread identifiers are free-form (chat channel + timestamp), so they get a
// short stable hash instead of appearing verbatim in a ref name.
func BranchName(workflowType envstore.WorkflowType, workflowID string) string {
	switch workflowType {
	case envstore.WorkflowIssue:
		return "issue-" + workflowID
	case envstore.WorkflowPR:
		return "pr-" + workflowID
	case envstore.WorkflowReview:
		return "review-" + workflowID
	case envstore.WorkflowThread:
		return "thread-" + shortHash(workflowID)
	case envstore.WorkflowTask:
		return "task-" + slugify(workflowID)
	default:
		return "thread-" + shortHash(workflowID)
	}
}

// WorktreePath computes the deterministic working path for a branch. Two
// callers computing the same identity independently land on the same path.
func WorktreePath(baseDir, codebaseID, branchName string) string {
	return filepath.Join(baseDir, codebaseID, branchName)
}

func shortHash(s string) string {
	sum := blake3.Sum256([]byte(s))
	return hex.EncodeToString(sum[:4])
}

func slugify(s string) string {
	var b strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	slug := strings.Trim(b.String(), "-")
	if len(slug) > maxSlugLen {
		slug = strings.Trim(slug[:maxSlugLen], "-")
	}
	if slug == "" {
		slug = shortHash(s)
	}
	return slug
}
