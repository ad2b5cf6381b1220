// Package digest generates a short AI summary of the day's activity
// through an OpenAI-compatible chat completions endpoint.
package digest

import (
	"context"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/cghimire/eod-reporter/internal/activity"
)

const (
	maxCommits         = 15
	maxPRs             = 10
	maxTasks           = 10
	maxComments        = 5
	commentLimit       = 100
	maxChannelMessages = 30
	perChannelMessages = 15
	channelMsgLimit    = 150
)

const systemPrompt = "You are an engineering manager writing a daily status digest. " +
	"Summarize the activity below in 3-5 short bullet points focused on outcomes, " +
	"not process. Plain text only, no headers."

// Generator produces AI summaries.
type Generator struct {
	client *openai.Client
	model  string
}

// New creates a generator. A non-empty baseURL points the client at an
// alternative OpenAI-compatible endpoint.
func New(apiKey, model, baseURL string) *Generator {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &Generator{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}
}

// Summarize generates a digest for the snapshot. An empty snapshot
// yields nil without calling the model.
func (g *Generator) Summarize(ctx context.Context, snap activity.Snapshot) (*activity.AISummary, error) {
	text := BuildActivityText(snap)
	if text == "" {
		return nil, nil
	}

	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: text},
		},
		Temperature: 0.3,
	})
	if err != nil {
		return nil, fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("chat completion returned no choices")
	}

	summary := strings.TrimSpace(resp.Choices[0].Message.Content)
	if summary == "" {
		return nil, fmt.Errorf("chat completion returned empty content")
	}

	return &activity.AISummary{Text: summary, GeneratedAt: time.Now().UTC()}, nil
}

// BuildActivityText flattens a snapshot into the prompt body, capping
// each source so one busy day cannot blow the context window. Returns
// "" when there is nothing worth summarizing.
func BuildActivityText(snap activity.Snapshot) string {
	var b strings.Builder

	if n := len(snap.GitHub.Commits); n > 0 {
		fmt.Fprintf(&b, "Commits (%d):\n", n)
		for _, c := range capCommits(snap.GitHub.Commits) {
			fmt.Fprintf(&b, "- [%s] %s\n", c.Repo, c.Message)
		}
	}
	writePRs(&b, "Pull requests opened", snap.GitHub.PRsOpened)
	writePRs(&b, "Pull requests merged", snap.GitHub.PRsMerged)
	writeTasks(&b, "Tasks completed", snap.Tracker.Completed)
	writeTasks(&b, "Tasks in progress", snap.Tracker.InProgress)

	if len(snap.Tracker.Comments) > 0 {
		b.WriteString("Task comments:\n")
		for i, cm := range snap.Tracker.Comments {
			if i >= maxComments {
				break
			}
			fmt.Fprintf(&b, "- %s: %s\n", cm.TaskName, clip(cm.Text, commentLimit))
		}
	}

	writeChannels(&b, snap.Channels.Messages)

	if len(snap.ManualUpdates) > 0 {
		b.WriteString("Manual updates:\n")
		for _, u := range snap.ManualUpdates {
			fmt.Fprintf(&b, "- %s\n", u)
		}
	}

	return strings.TrimSpace(b.String())
}

func capCommits(commits []activity.Commit) []activity.Commit {
	if len(commits) > maxCommits {
		return commits[:maxCommits]
	}
	return commits
}

func writePRs(b *strings.Builder, label string, prs []activity.PullRequest) {
	if len(prs) == 0 {
		return
	}
	fmt.Fprintf(b, "%s (%d):\n", label, len(prs))
	for i, pr := range prs {
		if i >= maxPRs {
			break
		}
		fmt.Fprintf(b, "- [%s] %s\n", pr.Repo, pr.Title)
	}
}

func writeTasks(b *strings.Builder, label string, items []activity.WorkItem) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "%s (%d):\n", label, len(items))
	for i, it := range items {
		if i >= maxTasks {
			break
		}
		fmt.Fprintf(b, "- %s [%s]\n", it.Name, it.Status)
	}
}

// writeChannels groups messages by channel, capping per channel and
// overall.
func writeChannels(b *strings.Builder, msgs []activity.ChannelMessage) {
	if len(msgs) == 0 {
		return
	}

	byChannel := make(map[string][]activity.ChannelMessage)
	var order []string
	for _, m := range msgs {
		if _, ok := byChannel[m.ChannelName]; !ok {
			order = append(order, m.ChannelName)
		}
		byChannel[m.ChannelName] = append(byChannel[m.ChannelName], m)
	}

	total := 0
	b.WriteString("Channel discussions:\n")
	for _, ch := range order {
		fmt.Fprintf(b, "#%s:\n", ch)
		for i, m := range byChannel[ch] {
			if i >= perChannelMessages || total >= maxChannelMessages {
				break
			}
			fmt.Fprintf(b, "- %s\n", clip(m.Text, channelMsgLimit))
			total++
		}
	}
}

func clip(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
