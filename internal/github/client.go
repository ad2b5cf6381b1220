// Package github fetches a user's daily commit and pull request
// activity from the GitHub REST API.
package github

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cghimire/eod-reporter/internal/activity"
)

const (
	defaultBaseURL = "https://api.github.com"
	maxEventPages  = 10
	eventsPerPage  = 100
	messageLimit   = 120
)

// Client is a GitHub REST API client scoped to one user.
type Client struct {
	baseURL  string
	token    string
	username string
	client   *http.Client
}

// New creates a GitHub client for the given user.
func New(token, username string) *Client {
	return &Client{
		baseURL:  defaultBaseURL,
		token:    token,
		username: username,
		client:   &http.Client{Timeout: 30 * time.Second},
	}
}

type event struct {
	Type      string    `json:"type"`
	CreatedAt time.Time `json:"created_at"`
	Repo      struct {
		Name string `json:"name"`
	} `json:"repo"`
	Payload struct {
		Commits []struct {
			SHA     string `json:"sha"`
			Message string `json:"message"`
		} `json:"commits"`
	} `json:"payload"`
}

type searchResult struct {
	Items []struct {
		Number      int        `json:"number"`
		Title       string     `json:"title"`
		State       string     `json:"state"`
		HTMLURL     string     `json:"html_url"`
		CreatedAt   time.Time  `json:"created_at"`
		RepoURL     string     `json:"repository_url"`
		PullRequest *struct {
			MergedAt *time.Time `json:"merged_at"`
		} `json:"pull_request"`
	} `json:"items"`
}

// FetchActivity returns the user's commits and pull requests for the
// given UTC day. Commit and PR fetches degrade independently: a failed
// search logs a warning and yields an empty slice rather than failing
// the whole fetch.
func (c *Client) FetchActivity(ctx context.Context, day time.Time) (activity.GitHubActivity, error) {
	var out activity.GitHubActivity

	commits, err := c.fetchCommits(ctx, day)
	if err != nil {
		return out, fmt.Errorf("fetch commits: %w", err)
	}
	out.Commits = commits

	date := day.UTC().Format("2006-01-02")

	opened, err := c.searchPRs(ctx, fmt.Sprintf("author:%s type:pr created:>=%s", c.username, date))
	if err != nil {
		slog.Warn("PR opened search failed", "error", err)
	}
	out.PRsOpened = opened

	merged, err := c.searchPRs(ctx, fmt.Sprintf("author:%s type:pr merged:>=%s", c.username, date))
	if err != nil {
		slog.Warn("PR merged search failed", "error", err)
	}
	out.PRsMerged = merged

	return out, nil
}

// fetchCommits walks the user's public event feed newest-first and
// collects PushEvent commits from the given UTC day. The feed is
// ordered, so the walk stops at the first event before midnight.
func (c *Client) fetchCommits(ctx context.Context, day time.Time) ([]activity.Commit, error) {
	midnight := time.Date(day.UTC().Year(), day.UTC().Month(), day.UTC().Day(), 0, 0, 0, 0, time.UTC)

	var commits []activity.Commit
	seen := make(map[string]bool)

	for page := 1; page <= maxEventPages; page++ {
		path := fmt.Sprintf("/users/%s/events?per_page=%d&page=%d", c.username, eventsPerPage, page)

		var events []event
		if err := c.get(ctx, path, &events); err != nil {
			return nil, err
		}
		if len(events) == 0 {
			break
		}

		for _, ev := range events {
			if ev.CreatedAt.Before(midnight) {
				return commits, nil
			}
			if ev.Type != "PushEvent" {
				continue
			}
			for _, pc := range ev.Payload.Commits {
				if seen[pc.SHA] {
					continue
				}
				seen[pc.SHA] = true
				commits = append(commits, activity.Commit{
					SHA:       pc.SHA,
					Message:   firstLine(pc.Message),
					Repo:      ev.Repo.Name,
					URL:       fmt.Sprintf("https://github.com/%s/commit/%s", ev.Repo.Name, pc.SHA),
					Timestamp: ev.CreatedAt,
				})
			}
		}
	}

	return commits, nil
}

func (c *Client) searchPRs(ctx context.Context, query string) ([]activity.PullRequest, error) {
	path := "/search/issues?q=" + url.QueryEscape(query) + "&per_page=100"

	var result searchResult
	if err := c.get(ctx, path, &result); err != nil {
		return nil, err
	}

	prs := make([]activity.PullRequest, 0, len(result.Items))
	for _, it := range result.Items {
		pr := activity.PullRequest{
			Number:    it.Number,
			Title:     it.Title,
			Repo:      repoFromURL(it.RepoURL),
			State:     it.State,
			URL:       it.HTMLURL,
			CreatedAt: it.CreatedAt,
		}
		if it.PullRequest != nil {
			pr.MergedAt = it.PullRequest.MergedAt
		}
		prs = append(prs, pr)
	}
	return prs, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("GitHub API error %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// firstLine returns the first line of a commit message, capped at
// messageLimit characters.
func firstLine(msg string) string {
	if i := strings.IndexByte(msg, '\n'); i >= 0 {
		msg = msg[:i]
	}
	msg = strings.TrimSpace(msg)
	runes := []rune(msg)
	if len(runes) > messageLimit {
		return string(runes[:messageLimit])
	}
	return msg
}

// repoFromURL extracts "owner/repo" from an API repository URL.
func repoFromURL(apiURL string) string {
	const marker = "/repos/"
	if i := strings.Index(apiURL, marker); i >= 0 {
		return apiURL[i+len(marker):]
	}
	return apiURL
}
