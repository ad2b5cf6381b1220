package report

import (
	"testing"

	"github.com/cghimire/eod-reporter/internal/activity"
)

func TestRenderFallback(t *testing.T) {
	commits := make([]activity.Commit, 3)
	snap := activity.Snapshot{
		GitHub: activity.GitHubActivity{
			Commits:   commits,
			PRsOpened: []activity.PullRequest{{Number: 1}},
		},
		Tracker: activity.TrackerActivity{
			Completed: []activity.WorkItem{{ID: "a"}, {ID: "b"}},
		},
	}

	got := RenderFallback(snap)
	want := "Updates: | Development: 3 commits, 1 PRs opened, 0 PRs merged | Completed: 2 tasks"
	if got != want {
		t.Errorf("RenderFallback = %q, want %q", got, want)
	}
}

func TestRenderFallbackEmpty(t *testing.T) {
	if got := RenderFallback(activity.Snapshot{}); got != "Updates:" {
		t.Errorf("RenderFallback(empty) = %q, want \"Updates:\"", got)
	}
}

func TestRenderFallbackAllClauses(t *testing.T) {
	snap := activity.Snapshot{
		GitHub: activity.GitHubActivity{
			PRsMerged: []activity.PullRequest{{Number: 9}},
		},
		Tracker: activity.TrackerActivity{
			Completed:  []activity.WorkItem{{ID: "a"}},
			InProgress: []activity.WorkItem{{ID: "b"}, {ID: "c"}},
		},
		ManualUpdates: []string{"one", "two", "three"},
	}

	got := RenderFallback(snap)
	want := "Updates: | Development: 0 commits, 0 PRs opened, 1 PRs merged | Completed: 1 tasks | In progress: 2 tasks | Additional updates: 3"
	if got != want {
		t.Errorf("RenderFallback = %q, want %q", got, want)
	}
}
