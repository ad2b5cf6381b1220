package activity

import (
	"strings"
	"time"
)

// MaxManualUpdates is the storage-side cap applied when manual updates
// are loaded from configuration. The renderer applies its own, lower
// display cap.
const MaxManualUpdates = 30

// SnapshotBuilder accumulates fetcher output into a Snapshot.
// Commit identity is unique within one snapshot: adding a second
// commit with the same SHA is a no-op (first occurrence wins).
type SnapshotBuilder struct {
	snap     Snapshot
	seenSHAs map[string]struct{}
}

// NewSnapshotBuilder creates a builder for the given calendar day.
func NewSnapshotBuilder(date time.Time) *SnapshotBuilder {
	return &SnapshotBuilder{
		snap: Snapshot{
			Date: date.UTC().Format("2006-01-02"),
		},
		seenSHAs: make(map[string]struct{}),
	}
}

// AddCommit appends a commit unless its SHA was already added.
func (b *SnapshotBuilder) AddCommit(c Commit) {
	if _, dup := b.seenSHAs[c.SHA]; dup {
		return
	}
	b.seenSHAs[c.SHA] = struct{}{}
	b.snap.GitHub.Commits = append(b.snap.GitHub.Commits, c)
}

// SetGitHub merges a fetched GitHubActivity, deduplicating commits.
func (b *SnapshotBuilder) SetGitHub(gh GitHubActivity) {
	for _, c := range gh.Commits {
		b.AddCommit(c)
	}
	b.snap.GitHub.PRsOpened = gh.PRsOpened
	b.snap.GitHub.PRsMerged = gh.PRsMerged
}

// SetTracker sets the work-tracker activity.
func (b *SnapshotBuilder) SetTracker(t TrackerActivity) {
	b.snap.Tracker = t
}

// SetChannels sets the Slack channel activity.
func (b *SnapshotBuilder) SetChannels(ca ChannelActivity) {
	b.snap.Channels = ca
}

// SetManualUpdates stores user-authored notes, dropping blank entries
// and capping at MaxManualUpdates.
func (b *SnapshotBuilder) SetManualUpdates(updates []string) {
	cleaned := make([]string, 0, len(updates))
	for _, u := range updates {
		u = strings.TrimSpace(u)
		if u == "" {
			continue
		}
		cleaned = append(cleaned, u)
		if len(cleaned) == MaxManualUpdates {
			break
		}
	}
	b.snap.ManualUpdates = cleaned
}

// SetAISummary attaches an optional AI digest.
func (b *SnapshotBuilder) SetAISummary(s *AISummary) {
	b.snap.AISummary = s
}

// Build returns the assembled snapshot. The builder must not be
// reused afterwards.
func (b *SnapshotBuilder) Build() Snapshot {
	return b.snap
}
