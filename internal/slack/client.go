// Package slack delivers reports and fetches channel activity via the
// Slack Web API.
package slack

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cghimire/eod-reporter/internal/activity"
	"github.com/cghimire/eod-reporter/internal/report"
)

const (
	defaultBaseURL   = "https://slack.com/api"
	messageCharLimit = 500
	historyPageSize  = 200
	maxHistoryPages  = 10
)

var awayKeywords = []string{"ooo", "out of office", "vacation", "pto", "on leave", "away"}

var awayEmojis = map[string]bool{
	":palm_tree:":           true,
	":no_entry:":            true,
	":airplane:":            true,
	":beach_with_umbrella:": true,
}

// Identity is the posting identity resolved from the user's profile.
type Identity struct {
	Username string
	IconURL  string
}

// Client is a Slack Web API client.
type Client struct {
	baseURL string
	token   string
	userID  string
	client  *http.Client

	mu           sync.Mutex
	identity     *Identity
	channelNames map[string]string
	userNames    map[string]string
}

// New creates a Slack client posting as the given user.
func New(botToken, userID string) *Client {
	return &Client{
		baseURL:      defaultBaseURL,
		token:        botToken,
		userID:       userID,
		client:       &http.Client{Timeout: 30 * time.Second},
		channelNames: make(map[string]string),
		userNames:    make(map[string]string),
	}
}

// PostReport posts a rendered report to the channel, impersonating
// the user's display name and avatar when resolvable.
func (c *Client) PostReport(ctx context.Context, channel string, doc report.Document, fallback string) error {
	payload := map[string]any{
		"channel":      channel,
		"text":         fallback,
		"blocks":       Blocks(doc),
		"unfurl_links": false,
		"unfurl_media": false,
	}

	if id := c.resolveIdentity(ctx); id != nil {
		payload["username"] = id.Username
		if id.IconURL != "" {
			payload["icon_url"] = id.IconURL
		}
	}

	var resp struct {
		OK    bool   `json:"ok"`
		Error string `json:"error"`
	}
	if err := c.postJSON(ctx, "chat.postMessage", payload, &resp); err != nil {
		return err
	}
	if !resp.OK {
		return fmt.Errorf("chat.postMessage failed: %s", resp.Error)
	}
	return nil
}

// resolveIdentity returns the cached posting identity, fetching it on
// first use. A lookup failure logs a warning and falls back to the
// app's default identity.
func (c *Client) resolveIdentity(ctx context.Context) *Identity {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.identity != nil {
		return c.identity
	}
	if c.userID == "" {
		return nil
	}

	var resp struct {
		OK    bool   `json:"ok"`
		Error string `json:"error"`
		User  struct {
			Profile struct {
				DisplayName string `json:"display_name"`
				RealName    string `json:"real_name"`
				Image192    string `json:"image_192"`
			} `json:"profile"`
		} `json:"user"`
	}
	if err := c.getForm(ctx, "users.info", url.Values{"user": {c.userID}}, &resp); err != nil || !resp.OK {
		slog.Warn("identity lookup failed, posting with default identity", "error", err, "slack_error", resp.Error)
		return nil
	}

	name := resp.User.Profile.DisplayName
	if name == "" {
		name = resp.User.Profile.RealName
	}
	if name == "" {
		return nil
	}

	c.identity = &Identity{Username: name, IconURL: resp.User.Profile.Image192}
	return c.identity
}

// InvalidateIdentity drops the cached posting identity so the next
// post re-resolves it.
func (c *Client) InvalidateIdentity() {
	c.mu.Lock()
	c.identity = nil
	c.mu.Unlock()
}

// IsUserAway reports whether the user's Slack status looks like out of
// office. Any lookup failure reports false so a profile hiccup never
// suppresses a report.
func (c *Client) IsUserAway(ctx context.Context) bool {
	if c.userID == "" {
		return false
	}

	var resp struct {
		OK      bool   `json:"ok"`
		Error   string `json:"error"`
		Profile struct {
			StatusText  string `json:"status_text"`
			StatusEmoji string `json:"status_emoji"`
		} `json:"profile"`
	}
	if err := c.getForm(ctx, "users.profile.get", url.Values{"user": {c.userID}}, &resp); err != nil || !resp.OK {
		slog.Warn("away check failed, assuming present", "error", err, "slack_error", resp.Error)
		return false
	}

	if awayEmojis[resp.Profile.StatusEmoji] {
		return true
	}
	text := strings.ToLower(resp.Profile.StatusText)
	for _, kw := range awayKeywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

// FetchChannelActivity returns the user's messages posted to the given
// channels during the UTC day. Each channel degrades independently.
func (c *Client) FetchChannelActivity(ctx context.Context, channels []string, day time.Time) activity.ChannelActivity {
	var out activity.ChannelActivity

	start := time.Date(day.UTC().Year(), day.UTC().Month(), day.UTC().Day(), 0, 0, 0, 0, time.UTC)
	end := start.Add(24 * time.Hour)

	for _, ch := range channels {
		msgs, err := c.fetchChannelMessages(ctx, ch, start, end)
		if err != nil {
			slog.Warn("channel history fetch failed", "channel", ch, "error", err, "hint", scopeHint(err))
			continue
		}
		out.Messages = append(out.Messages, msgs...)
	}
	return out
}

func (c *Client) fetchChannelMessages(ctx context.Context, channel string, start, end time.Time) ([]activity.ChannelMessage, error) {
	var msgs []activity.ChannelMessage
	cursor := ""

	for page := 0; page < maxHistoryPages; page++ {
		vals := url.Values{
			"channel": {channel},
			"oldest":  {fmt.Sprintf("%d.000000", start.Unix())},
			"latest":  {fmt.Sprintf("%d.000000", end.Unix())},
			"limit":   {strconv.Itoa(historyPageSize)},
		}
		if cursor != "" {
			vals.Set("cursor", cursor)
		}

		var resp struct {
			OK       bool   `json:"ok"`
			Error    string `json:"error"`
			Messages []struct {
				Type     string `json:"type"`
				Subtype  string `json:"subtype"`
				User     string `json:"user"`
				Text     string `json:"text"`
				TS       string `json:"ts"`
				ThreadTS string `json:"thread_ts"`
			} `json:"messages"`
			ResponseMetadata struct {
				NextCursor string `json:"next_cursor"`
			} `json:"response_metadata"`
		}
		if err := c.getForm(ctx, "conversations.history", vals, &resp); err != nil {
			return nil, err
		}
		if !resp.OK {
			return nil, fmt.Errorf("conversations.history failed: %s", resp.Error)
		}

		for _, m := range resp.Messages {
			if m.User != c.userID {
				continue
			}
			switch m.Subtype {
			case "bot_message", "channel_join", "channel_leave":
				continue
			}
			text := strings.TrimSpace(m.Text)
			if text == "" {
				continue
			}
			if runes := []rune(text); len(runes) > messageCharLimit {
				text = string(runes[:messageCharLimit])
			}
			msgs = append(msgs, activity.ChannelMessage{
				UserID:      m.User,
				UserName:    c.userName(ctx, m.User),
				Text:        text,
				ChannelID:   channel,
				ChannelName: c.channelName(ctx, channel),
				Timestamp:   tsToTime(m.TS),
				ThreadTS:    m.ThreadTS,
			})
		}

		cursor = resp.ResponseMetadata.NextCursor
		if cursor == "" {
			break
		}
	}
	return msgs, nil
}

func (c *Client) channelName(ctx context.Context, id string) string {
	c.mu.Lock()
	if name, ok := c.channelNames[id]; ok {
		c.mu.Unlock()
		return name
	}
	c.mu.Unlock()

	var resp struct {
		OK      bool `json:"ok"`
		Channel struct {
			Name string `json:"name"`
		} `json:"channel"`
	}
	name := id
	if err := c.getForm(ctx, "conversations.info", url.Values{"channel": {id}}, &resp); err == nil && resp.OK && resp.Channel.Name != "" {
		name = resp.Channel.Name
	}

	c.mu.Lock()
	c.channelNames[id] = name
	c.mu.Unlock()
	return name
}

func (c *Client) userName(ctx context.Context, id string) string {
	c.mu.Lock()
	if name, ok := c.userNames[id]; ok {
		c.mu.Unlock()
		return name
	}
	c.mu.Unlock()

	var resp struct {
		OK   bool `json:"ok"`
		User struct {
			Profile struct {
				DisplayName string `json:"display_name"`
				RealName    string `json:"real_name"`
			} `json:"profile"`
		} `json:"user"`
	}
	name := id
	if err := c.getForm(ctx, "users.info", url.Values{"user": {id}}, &resp); err == nil && resp.OK {
		if resp.User.Profile.DisplayName != "" {
			name = resp.User.Profile.DisplayName
		} else if resp.User.Profile.RealName != "" {
			name = resp.User.Profile.RealName
		}
	}

	c.mu.Lock()
	c.userNames[id] = name
	c.mu.Unlock()
	return name
}

func (c *Client) postJSON(ctx context.Context, method string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+method, strings.NewReader(string(body)))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json; charset=utf-8")

	return c.do(req, out)
}

func (c *Client) getForm(ctx context.Context, method string, vals url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/"+method+"?"+vals.Encode(), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("Slack API error %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// scopeHint maps common Slack errors to an actionable hint.
func scopeHint(err error) string {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "missing_scope"):
		return "add channels:history and groups:history to the bot token scopes"
	case strings.Contains(msg, "not_in_channel"):
		return "invite the bot to the channel with /invite"
	default:
		return ""
	}
}

func tsToTime(ts string) time.Time {
	sec, _, _ := strings.Cut(ts, ".")
	n, err := strconv.ParseInt(sec, 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.Unix(n, 0).UTC()
}
