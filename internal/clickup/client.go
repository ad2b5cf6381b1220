// Package clickup fetches a user's daily work item activity from the
// ClickUp REST API and classifies it into report buckets.
package clickup

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cghimire/eod-reporter/internal/activity"
	"github.com/cghimire/eod-reporter/internal/report"
)

const (
	defaultBaseURL    = "https://api.clickup.com/api/v2"
	maxTaskPages      = 10
	maxCommentedTasks = 20
	commentCharLimit  = 200
)

// Client is a ClickUp API v2 client scoped to one workspace member.
type Client struct {
	baseURL string
	token   string
	teamID  string
	userID  int
	client  *http.Client
}

// New creates a ClickUp client.
func New(token, teamID string, userID int) *Client {
	return &Client{
		baseURL: defaultBaseURL,
		token:   token,
		teamID:  teamID,
		userID:  userID,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

type task struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Status struct {
		Status string `json:"status"`
	} `json:"status"`
	Parent      string `json:"parent"`
	URL         string `json:"url"`
	DateUpdated string `json:"date_updated"` // epoch millis as string
}

type taskPage struct {
	Tasks    []task `json:"tasks"`
	LastPage bool   `json:"last_page"`
}

type commentPage struct {
	Comments []struct {
		CommentText string `json:"comment_text"`
		User        struct {
			ID int `json:"id"`
		} `json:"user"`
		Date string `json:"date"` // epoch millis as string
	} `json:"comments"`
}

// FetchActivity returns the user's work items updated during the given
// UTC day, classified into completed and in-progress buckets, with the
// user's same-day comments on the busiest items. Parents referenced by
// fetched items but not themselves updated today are fetched so the
// hierarchy renders intact; those lookups and the comment fetches
// degrade to warnings.
func (c *Client) FetchActivity(ctx context.Context, day time.Time) (activity.TrackerActivity, error) {
	var out activity.TrackerActivity

	start := time.Date(day.UTC().Year(), day.UTC().Month(), day.UTC().Day(), 0, 0, 0, 0, time.UTC)
	end := start.Add(24 * time.Hour)

	tasks, err := c.fetchUpdatedTasks(ctx, start, end)
	if err != nil {
		return out, fmt.Errorf("fetch tasks: %w", err)
	}

	// Tasks merely visited today (excluded statuses like "open" or
	// "backlog") are dropped entirely: they join neither a bucket nor
	// the hierarchy set.
	var active []task
	items := make([]activity.WorkItem, 0, len(tasks))
	byID := make(map[string]bool, len(tasks))
	for _, t := range tasks {
		bucket := report.Classify(t.Status.Status)
		if bucket == report.Excluded {
			continue
		}
		it := toWorkItem(t)
		switch bucket {
		case report.Completed:
			out.Completed = append(out.Completed, it)
		case report.InProgress:
			out.InProgress = append(out.InProgress, it)
		}
		active = append(active, t)
		items = append(items, it)
		byID[t.ID] = true
	}

	// Resolve parents outside the day's working set. These exist only
	// to anchor the hierarchy; they are never classified, whatever
	// their own status says.
	for _, t := range active {
		if t.Parent == "" || byID[t.Parent] {
			continue
		}
		parent, err := c.fetchTask(ctx, t.Parent)
		if err != nil {
			slog.Warn("parent task fetch failed", "task", t.Parent, "error", err)
			continue
		}
		items = append(items, toWorkItem(*parent))
		byID[parent.ID] = true
	}

	out.AllItems = items
	out.Comments = c.fetchComments(ctx, active, start, end)
	return out, nil
}

func (c *Client) fetchUpdatedTasks(ctx context.Context, start, end time.Time) ([]task, error) {
	var all []task
	for page := 0; page < maxTaskPages; page++ {
		path := fmt.Sprintf("/team/%s/task?assignees[]=%d&date_updated_gt=%d&date_updated_lt=%d&include_closed=true&subtasks=true&page=%d",
			c.teamID, c.userID, start.UnixMilli(), end.UnixMilli(), page)

		var pg taskPage
		if err := c.get(ctx, path, &pg); err != nil {
			return nil, err
		}
		all = append(all, pg.Tasks...)
		if pg.LastPage || len(pg.Tasks) == 0 {
			break
		}
	}
	return all, nil
}

func (c *Client) fetchTask(ctx context.Context, id string) (*task, error) {
	var t task
	if err := c.get(ctx, "/task/"+id, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// fetchComments collects the user's same-day comments on the first
// maxCommentedTasks tasks. Failures are per-task warnings.
func (c *Client) fetchComments(ctx context.Context, tasks []task, start, end time.Time) []activity.Comment {
	if len(tasks) > maxCommentedTasks {
		tasks = tasks[:maxCommentedTasks]
	}

	var comments []activity.Comment
	for _, t := range tasks {
		var pg commentPage
		if err := c.get(ctx, "/task/"+t.ID+"/comment", &pg); err != nil {
			slog.Warn("comment fetch failed", "task", t.ID, "error", err)
			continue
		}
		for _, cm := range pg.Comments {
			if cm.User.ID != c.userID {
				continue
			}
			at := millisToTime(cm.Date)
			if at.Before(start) || !at.Before(end) {
				continue
			}
			text := strings.TrimSpace(cm.CommentText)
			if text == "" {
				text = "(empty comment)"
			}
			if runes := []rune(text); len(runes) > commentCharLimit {
				text = string(runes[:commentCharLimit])
			}
			comments = append(comments, activity.Comment{
				TaskID:   t.ID,
				TaskName: t.Name,
				Text:     text,
				Date:     at,
			})
		}
	}
	return comments
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("ClickUp API error %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func toWorkItem(t task) activity.WorkItem {
	return activity.WorkItem{
		ID:          t.ID,
		Name:        t.Name,
		Status:      t.Status.Status,
		ParentID:    t.Parent,
		URL:         t.URL,
		DateUpdated: millisToTime(t.DateUpdated),
	}
}

func millisToTime(s string) time.Time {
	ms, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}
