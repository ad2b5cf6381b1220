package report

import (
	"fmt"
	"strings"

	"github.com/cghimire/eod-reporter/internal/activity"
)

// RenderFallback produces the one-line plain-text summary used as the
// notification preview alongside the rich document. Clauses appear
// only when their counts are non-zero and are joined with " | ".
func RenderFallback(snap activity.Snapshot) string {
	parts := []string{"Updates:"}

	gh := snap.GitHub
	if len(gh.Commits) > 0 || len(gh.PRsOpened) > 0 || len(gh.PRsMerged) > 0 {
		parts = append(parts, fmt.Sprintf("Development: %d commits, %d PRs opened, %d PRs merged",
			len(gh.Commits), len(gh.PRsOpened), len(gh.PRsMerged)))
	}

	if n := len(snap.Tracker.Completed); n > 0 {
		parts = append(parts, fmt.Sprintf("Completed: %d tasks", n))
	}
	if n := len(snap.Tracker.InProgress); n > 0 {
		parts = append(parts, fmt.Sprintf("In progress: %d tasks", n))
	}
	if n := len(snap.ManualUpdates); n > 0 {
		parts = append(parts, fmt.Sprintf("Additional updates: %d", n))
	}

	return strings.Join(parts, " | ")
}
