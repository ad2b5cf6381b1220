// Package activity defines the domain models that flow between the
// fetchers and the report renderer. They are intentionally decoupled
// from upstream API response shapes so the system is resilient to
// schema changes in GitHub, ClickUp, or Slack.
package activity

import "time"

// Commit is a single commit authored by the tracked user.
type Commit struct {
	SHA       string    `json:"sha"`
	Message   string    `json:"message"` // first line only
	Repo      string    `json:"repo"`    // full name (owner/repo)
	URL       string    `json:"url"`
	Timestamp time.Time `json:"timestamp"`
}

// PullRequest is a pull request opened or merged by the tracked user.
type PullRequest struct {
	Number    int        `json:"number"`
	Title     string     `json:"title"`
	Repo      string     `json:"repo"` // full name (owner/repo)
	State     string     `json:"state"`
	URL       string     `json:"url"`
	CreatedAt time.Time  `json:"created_at"`
	MergedAt  *time.Time `json:"merged_at,omitempty"`
}

// GitHubActivity is aggregated GitHub activity for a single day.
// PRs opened today and merged today are separate facts; a PR opened
// and merged on the same day appears in both lists.
type GitHubActivity struct {
	Commits   []Commit      `json:"commits"`
	PRsOpened []PullRequest `json:"prs_opened"`
	PRsMerged []PullRequest `json:"prs_merged"`
}

// WorkItem is a ClickUp task touched today.
type WorkItem struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Status         string    `json:"status"` // lower-cased label
	PreviousStatus string    `json:"previous_status,omitempty"`
	ParentID       string    `json:"parent_id,omitempty"` // empty if top-level
	URL            string    `json:"url"`
	DateUpdated    time.Time `json:"date_updated"`
}

// Comment is a comment the user posted on a work item today.
// TaskName is denormalized so the comment survives the item being
// absent from the active set.
type Comment struct {
	TaskID   string    `json:"task_id"`
	TaskName string    `json:"task_name"`
	Text     string    `json:"text"` // truncated to 200 chars at fetch time
	Date     time.Time `json:"date"`
}

// TrackerActivity is aggregated work-tracker activity for a single day.
//
// AllItems is the union of completed and in-progress items plus any
// parents fetched purely for hierarchy reconstruction; only Completed
// and InProgress contribute to counts.
type TrackerActivity struct {
	AllItems   []WorkItem `json:"all_items"`
	Completed  []WorkItem `json:"completed"`
	InProgress []WorkItem `json:"in_progress"`
	Comments   []Comment  `json:"comments"`
}

// ChannelMessage is a single message from a monitored Slack channel.
type ChannelMessage struct {
	UserID      string    `json:"user_id"`
	UserName    string    `json:"user_name"`
	Text        string    `json:"text"` // truncated to 500 chars
	ChannelID   string    `json:"channel_id"`
	ChannelName string    `json:"channel_name"`
	Timestamp   time.Time `json:"timestamp"`
	ThreadTS    string    `json:"thread_ts,omitempty"`
}

// ChannelActivity holds today's messages from monitored channels.
type ChannelActivity struct {
	Messages []ChannelMessage `json:"messages"`
}

// AISummary is an AI-generated digest of the day's activity.
type AISummary struct {
	Text        string    `json:"text"`
	GeneratedAt time.Time `json:"generated_at"`
}

// Snapshot is the immutable unified activity value for one calendar
// day. It is built once per pipeline run and consumed exactly once by
// the renderer.
type Snapshot struct {
	Date          string          `json:"date"` // YYYY-MM-DD
	GitHub        GitHubActivity  `json:"github"`
	Tracker       TrackerActivity `json:"tracker"`
	Channels      ChannelActivity `json:"channels"`
	ManualUpdates []string        `json:"manual_updates"`
	AISummary     *AISummary      `json:"ai_summary,omitempty"`
}
