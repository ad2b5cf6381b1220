// Package pipeline orchestrates a full report run: fetch, classify,
// render, deliver, record.
package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/cghimire/eod-reporter/internal/activity"
	"github.com/cghimire/eod-reporter/internal/clickup"
	"github.com/cghimire/eod-reporter/internal/config"
	"github.com/cghimire/eod-reporter/internal/digest"
	"github.com/cghimire/eod-reporter/internal/github"
	"github.com/cghimire/eod-reporter/internal/journal"
	"github.com/cghimire/eod-reporter/internal/report"
	"github.com/cghimire/eod-reporter/internal/slack"
)

const errorTextLimit = 200

// GitHubSource fetches one day's GitHub activity.
type GitHubSource interface {
	FetchActivity(ctx context.Context, day time.Time) (activity.GitHubActivity, error)
}

// TrackerSource fetches one day's work tracker activity.
type TrackerSource interface {
	FetchActivity(ctx context.Context, day time.Time) (activity.TrackerActivity, error)
}

// Sink delivers reports and answers the away check.
type Sink interface {
	PostReport(ctx context.Context, channel string, doc report.Document, fallback string) error
	IsUserAway(ctx context.Context) bool
	FetchChannelActivity(ctx context.Context, channels []string, day time.Time) activity.ChannelActivity
}

// Summarizer produces the optional AI digest.
type Summarizer interface {
	Summarize(ctx context.Context, snap activity.Snapshot) (*activity.AISummary, error)
}

// Pipeline runs the end-of-day report. Safe for concurrent use; only
// one run executes at a time.
type Pipeline struct {
	runMu sync.Mutex // held for the duration of a run

	mu         sync.RWMutex // guards everything below
	cfg        *config.Config
	githubSrc  GitHubSource
	trackerSrc TrackerSource
	sink       Sink
	summarizer Summarizer
	lastSnap   *activity.Snapshot

	journal *journal.Journal
}

// New creates a pipeline wired to real clients built from cfg.
func New(cfg *config.Config, j *journal.Journal) *Pipeline {
	p := &Pipeline{journal: j}
	p.Rebuild(cfg)
	return p
}

// Rebuild swaps in freshly constructed clients for the new config.
// Called at startup and on config file change; an in-flight run keeps
// the clients it started with.
func (p *Pipeline) Rebuild(cfg *config.Config) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.cfg = cfg.Copy()

	p.githubSrc = nil
	if cfg.Report.ShowGitHub && cfg.GitHub.Token != "" {
		p.githubSrc = github.New(cfg.GitHub.Token, cfg.GitHub.Username)
	}

	p.trackerSrc = nil
	if cfg.Report.ShowClickUp && cfg.ClickUp.Token != "" {
		p.trackerSrc = clickup.New(cfg.ClickUp.Token, cfg.ClickUp.TeamID, cfg.ClickUp.UserID)
	}

	p.sink = slack.New(cfg.Slack.BotToken, cfg.Slack.UserID)

	p.summarizer = nil
	if cfg.AI.APIKey != "" {
		p.summarizer = digest.New(cfg.AI.APIKey, cfg.AI.Model, cfg.AI.BaseURL)
	}
}

// Run executes one report run for today. Source failures degrade to
// empty sections; only delivery failure produces an error status. The
// returned record is already persisted to the journal.
func (p *Pipeline) Run(ctx context.Context, trigger string) journal.Run {
	now := time.Now().UTC()
	run := journal.Run{
		ID:        uuid.NewString(),
		Date:      now.Format("2006-01-02"),
		Trigger:   trigger,
		StartedAt: now,
	}

	if !p.runMu.TryLock() {
		run.Status = journal.StatusSkippedBusy
		run.FinishedAt = time.Now().UTC()
		slog.Info("run skipped, another run in flight", "trigger", trigger)
		return run
	}
	defer p.runMu.Unlock()

	p.mu.RLock()
	cfg := p.cfg
	githubSrc := p.githubSrc
	trackerSrc := p.trackerSrc
	sink := p.sink
	summarizer := p.summarizer
	p.mu.RUnlock()

	if sink.IsUserAway(ctx) {
		run.Status = journal.StatusSkippedOOO
		run.FinishedAt = time.Now().UTC()
		slog.Info("run skipped, user is away", "trigger", trigger)
		p.record(run)
		return run
	}

	snap := p.collect(ctx, now, cfg, githubSrc, trackerSrc, sink, summarizer)

	doc := report.Render(snap)
	fallback := report.RenderFallback(snap)

	run.Counts = journal.Counts{
		Commits:    len(snap.GitHub.Commits),
		PRsOpened:  len(snap.GitHub.PRsOpened),
		PRsMerged:  len(snap.GitHub.PRsMerged),
		Completed:  len(snap.Tracker.Completed),
		InProgress: len(snap.Tracker.InProgress),
		Manual:     len(snap.ManualUpdates),
	}

	if err := sink.PostReport(ctx, cfg.Slack.Channel, doc, fallback); err != nil {
		run.Status = journal.StatusError
		run.Error = clipError(err)
		run.FinishedAt = time.Now().UTC()
		slog.Error("report delivery failed", "error", err)
		p.record(run)
		return run
	}

	run.Status = journal.StatusSent
	run.FinishedAt = time.Now().UTC()
	slog.Info("report delivered",
		"channel", cfg.Slack.Channel,
		"commits", run.Counts.Commits,
		"completed", run.Counts.Completed,
		"in_progress", run.Counts.InProgress)
	p.record(run)
	return run
}

// collect fetches all sources in parallel and assembles the snapshot.
// Every fetch is fail-open: an error leaves that section empty.
func (p *Pipeline) collect(ctx context.Context, now time.Time, cfg *config.Config,
	githubSrc GitHubSource, trackerSrc TrackerSource, sink Sink, summarizer Summarizer) activity.Snapshot {

	b := activity.NewSnapshotBuilder(now)

	g, gctx := errgroup.WithContext(ctx)

	var (
		gh       activity.GitHubActivity
		tracker  activity.TrackerActivity
		channels activity.ChannelActivity
	)

	if githubSrc != nil {
		g.Go(func() error {
			var err error
			gh, err = githubSrc.FetchActivity(gctx, now)
			if err != nil {
				slog.Warn("github fetch failed, section will be empty", "error", err)
				gh = activity.GitHubActivity{}
			}
			return nil
		})
	}
	if trackerSrc != nil {
		g.Go(func() error {
			var err error
			tracker, err = trackerSrc.FetchActivity(gctx, now)
			if err != nil {
				slog.Warn("tracker fetch failed, section will be empty", "error", err)
				tracker = activity.TrackerActivity{}
			}
			return nil
		})
	}
	if len(cfg.Slack.MonitorChannels) > 0 {
		g.Go(func() error {
			channels = sink.FetchChannelActivity(gctx, cfg.Slack.MonitorChannels, now)
			return nil
		})
	}
	_ = g.Wait()

	b.SetGitHub(gh)
	b.SetTracker(tracker)
	b.SetChannels(channels)
	if cfg.Report.ShowManual {
		b.SetManualUpdates(cfg.Report.ManualUpdates)
	}

	snap := b.Build()

	if summarizer != nil {
		summary, err := summarizer.Summarize(ctx, snap)
		if err != nil {
			slog.Warn("digest generation failed, continuing without it", "error", err)
		} else if summary != nil {
			snap.AISummary = summary
		}
	}

	p.mu.Lock()
	p.lastSnap = &snap
	p.mu.Unlock()

	return snap
}

// Preview collects and renders today's report without delivering it.
func (p *Pipeline) Preview(ctx context.Context) (report.Document, string) {
	p.mu.RLock()
	cfg := p.cfg
	githubSrc := p.githubSrc
	trackerSrc := p.trackerSrc
	sink := p.sink
	summarizer := p.summarizer
	p.mu.RUnlock()

	snap := p.collect(ctx, time.Now().UTC(), cfg, githubSrc, trackerSrc, sink, summarizer)
	return report.Render(snap), report.RenderFallback(snap)
}

// LastSnapshot returns the most recently collected snapshot, or nil
// before the first run.
func (p *Pipeline) LastSnapshot() *activity.Snapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.lastSnap
}

// Config returns the pipeline's current config.
func (p *Pipeline) Config() *config.Config {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.cfg
}

func (p *Pipeline) record(run journal.Run) {
	if p.journal == nil {
		return
	}
	if err := p.journal.Append(run); err != nil {
		slog.Warn("failed to record run", "error", err)
	}
}

func clipError(err error) string {
	msg := err.Error()
	if runes := []rune(msg); len(runes) > errorTextLimit {
		return string(runes[:errorTextLimit])
	}
	return msg
}
