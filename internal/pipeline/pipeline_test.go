package pipeline

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cghimire/eod-reporter/internal/activity"
	"github.com/cghimire/eod-reporter/internal/config"
	"github.com/cghimire/eod-reporter/internal/journal"
	"github.com/cghimire/eod-reporter/internal/report"
)

type fakeGitHub struct {
	activity activity.GitHubActivity
	err      error
}

func (f *fakeGitHub) FetchActivity(ctx context.Context, day time.Time) (activity.GitHubActivity, error) {
	return f.activity, f.err
}

type fakeTracker struct {
	activity activity.TrackerActivity
	err      error
}

func (f *fakeTracker) FetchActivity(ctx context.Context, day time.Time) (activity.TrackerActivity, error) {
	return f.activity, f.err
}

type fakeSink struct {
	mu       sync.Mutex
	away     bool
	postErr  error
	posted   int
	fallback string
	block    chan struct{} // when set, PostReport waits on it
}

func (f *fakeSink) PostReport(ctx context.Context, channel string, doc report.Document, fallback string) error {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.posted++
	f.fallback = fallback
	return f.postErr
}

func (f *fakeSink) IsUserAway(ctx context.Context) bool { return f.away }

func (f *fakeSink) FetchChannelActivity(ctx context.Context, channels []string, day time.Time) activity.ChannelActivity {
	return activity.ChannelActivity{}
}

func newTestPipeline(t *testing.T, sink *fakeSink, gh GitHubSource, tracker TrackerSource) *Pipeline {
	t.Helper()
	j, err := journal.Open(filepath.Join(t.TempDir(), "runs.jsonl"))
	if err != nil {
		t.Fatalf("journal: %v", err)
	}

	cfg := config.DefaultConfig()
	cfg.Slack.Channel = "C1"

	return &Pipeline{
		cfg:        cfg,
		githubSrc:  gh,
		trackerSrc: tracker,
		sink:       sink,
		journal:    j,
	}
}

func TestRunSent(t *testing.T) {
	sink := &fakeSink{}
	gh := &fakeGitHub{activity: activity.GitHubActivity{
		Commits: []activity.Commit{{SHA: "a", Message: "fix", Repo: "org/app"}},
	}}
	tracker := &fakeTracker{activity: activity.TrackerActivity{
		Completed: []activity.WorkItem{{ID: "t1", Name: "Ship", Status: "done"}},
	}}

	p := newTestPipeline(t, sink, gh, tracker)
	run := p.Run(context.Background(), "manual")

	if run.Status != journal.StatusSent {
		t.Fatalf("status = %s, want sent (error %q)", run.Status, run.Error)
	}
	if sink.posted != 1 {
		t.Errorf("posted = %d, want 1", sink.posted)
	}
	if run.Counts.Commits != 1 || run.Counts.Completed != 1 {
		t.Errorf("counts = %+v", run.Counts)
	}
	if !strings.Contains(sink.fallback, "Development: 1 commits") {
		t.Errorf("fallback = %q", sink.fallback)
	}
	if run.Trigger != "manual" || run.ID == "" {
		t.Errorf("run = %+v, want trigger and uuid set", run)
	}

	// Run was journaled.
	if last := p.journal.Last(); last == nil || last.ID != run.ID {
		t.Errorf("journal last = %+v, want run %s", last, run.ID)
	}
	if p.LastSnapshot() == nil {
		t.Error("LastSnapshot must be set after a run")
	}
}

func TestRunSkippedWhenAway(t *testing.T) {
	sink := &fakeSink{away: true}
	p := newTestPipeline(t, sink, nil, nil)

	run := p.Run(context.Background(), "scheduled")
	if run.Status != journal.StatusSkippedOOO {
		t.Fatalf("status = %s, want skipped_ooo", run.Status)
	}
	if sink.posted != 0 {
		t.Error("nothing must be posted when away")
	}
}

func TestRunSourceFailureDegrades(t *testing.T) {
	sink := &fakeSink{}
	gh := &fakeGitHub{err: errors.New("rate limited")}
	tracker := &fakeTracker{activity: activity.TrackerActivity{
		InProgress: []activity.WorkItem{{ID: "t1", Name: "Spike", Status: "in progress"}},
	}}

	p := newTestPipeline(t, sink, gh, tracker)
	run := p.Run(context.Background(), "manual")

	if run.Status != journal.StatusSent {
		t.Fatalf("status = %s, want sent despite source failure", run.Status)
	}
	if run.Counts.Commits != 0 {
		t.Errorf("commits = %d, want 0 (failed source empty)", run.Counts.Commits)
	}
	if run.Counts.InProgress != 1 {
		t.Errorf("in progress = %d, want 1", run.Counts.InProgress)
	}
}

func TestRunDeliveryFailure(t *testing.T) {
	sink := &fakeSink{postErr: errors.New(strings.Repeat("boom ", 100))}
	p := newTestPipeline(t, sink, nil, nil)

	run := p.Run(context.Background(), "manual")
	if run.Status != journal.StatusError {
		t.Fatalf("status = %s, want error", run.Status)
	}
	if n := len([]rune(run.Error)); n > 200 {
		t.Errorf("error length = %d, want <= 200", n)
	}
	if run.Error == "" {
		t.Error("error text missing")
	}
}

func TestRunSingleFlight(t *testing.T) {
	sink := &fakeSink{block: make(chan struct{})}
	p := newTestPipeline(t, sink, nil, nil)

	done := make(chan journal.Run, 1)
	go func() { done <- p.Run(context.Background(), "scheduled") }()

	// Wait for the first run to reach delivery, then trigger a second.
	deadline := time.After(2 * time.Second)
	for {
		sink.mu.Lock()
		started := sink.posted == 0 && p.LastSnapshot() != nil
		sink.mu.Unlock()
		if started {
			break
		}
		select {
		case <-deadline:
			t.Fatal("first run never reached delivery")
		case <-time.After(5 * time.Millisecond):
		}
	}

	second := p.Run(context.Background(), "manual")
	if second.Status != journal.StatusSkippedBusy {
		t.Fatalf("concurrent run status = %s, want skipped_busy", second.Status)
	}

	close(sink.block)
	first := <-done
	if first.Status != journal.StatusSent {
		t.Errorf("first run status = %s, want sent", first.Status)
	}
}

func TestRunManualToggleOff(t *testing.T) {
	sink := &fakeSink{}
	p := newTestPipeline(t, sink, nil, nil)
	p.cfg.Report.ShowManual = false
	p.cfg.Report.ManualUpdates = []string{"hidden"}

	run := p.Run(context.Background(), "manual")
	if run.Counts.Manual != 0 {
		t.Errorf("manual count = %d, want 0 when toggled off", run.Counts.Manual)
	}
}

func TestRebuildSwapsClients(t *testing.T) {
	j, err := journal.Open(filepath.Join(t.TempDir(), "runs.jsonl"))
	if err != nil {
		t.Fatalf("journal: %v", err)
	}

	cfg := config.DefaultConfig()
	cfg.Slack.Channel = "C1"
	p := New(cfg, j)

	if p.githubSrc != nil {
		t.Error("github source must be nil without a token")
	}

	cfg2 := config.DefaultConfig()
	cfg2.GitHub.Token = "tok"
	cfg2.GitHub.Username = "me"
	cfg2.ClickUp.Token = "tok"
	cfg2.ClickUp.TeamID = "team"
	p.Rebuild(cfg2)

	if p.githubSrc == nil || p.trackerSrc == nil {
		t.Error("Rebuild must construct sources when credentials appear")
	}
	if p.Config().GitHub.Token != "tok" {
		t.Error("Config() must reflect the rebuilt config")
	}
}
