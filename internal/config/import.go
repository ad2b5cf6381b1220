package config

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// lineMatcher maps one dotenv-style key to a config field. Matchers
// are independent and tried in order; the first whose key matches
// applies and the rest are skipped for that line.
type lineMatcher struct {
	keys  []string
	apply func(cfg *Config, value string) error
}

// importMatchers is the explicit precedence order. Aliases for the
// same field sit in one matcher so a file carrying both old and new
// names behaves deterministically.
var importMatchers = []lineMatcher{
	{[]string{"GITHUB_TOKEN", "GH_TOKEN"}, func(c *Config, v string) error {
		c.GitHub.Token = v
		return nil
	}},
	{[]string{"GITHUB_USERNAME", "GITHUB_USER"}, func(c *Config, v string) error {
		c.GitHub.Username = v
		return nil
	}},
	{[]string{"CLICKUP_TOKEN", "CLICKUP_API_TOKEN"}, func(c *Config, v string) error {
		c.ClickUp.Token = v
		return nil
	}},
	{[]string{"CLICKUP_TEAM_ID"}, func(c *Config, v string) error {
		c.ClickUp.TeamID = v
		return nil
	}},
	{[]string{"CLICKUP_USER_ID"}, func(c *Config, v string) error {
		id, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("CLICKUP_USER_ID must be numeric: %q", v)
		}
		c.ClickUp.UserID = id
		return nil
	}},
	{[]string{"SLACK_BOT_TOKEN"}, func(c *Config, v string) error {
		c.Slack.BotToken = v
		return nil
	}},
	{[]string{"SLACK_CHANNEL", "SLACK_CHANNEL_ID"}, func(c *Config, v string) error {
		c.Slack.Channel = v
		return nil
	}},
	{[]string{"SLACK_USER_ID"}, func(c *Config, v string) error {
		c.Slack.UserID = v
		return nil
	}},
	{[]string{"SLACK_MONITOR_CHANNELS"}, func(c *Config, v string) error {
		c.Slack.MonitorChannels = splitList(v)
		return nil
	}},
	{[]string{"AI_API_KEY", "OPENAI_API_KEY", "GEMINI_API_KEY"}, func(c *Config, v string) error {
		c.AI.APIKey = v
		return nil
	}},
	{[]string{"AI_MODEL"}, func(c *Config, v string) error {
		c.AI.Model = v
		return nil
	}},
	{[]string{"AI_BASE_URL", "OPENAI_BASE_URL"}, func(c *Config, v string) error {
		c.AI.BaseURL = v
		return nil
	}},
	{[]string{"REPORT_HOUR"}, func(c *Config, v string) error {
		h, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("REPORT_HOUR must be numeric: %q", v)
		}
		c.Schedule.Hour = h
		return nil
	}},
	{[]string{"REPORT_MINUTE"}, func(c *Config, v string) error {
		m, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("REPORT_MINUTE must be numeric: %q", v)
		}
		c.Schedule.Minute = m
		return nil
	}},
	{[]string{"REPORT_TIMEZONE", "TZ"}, func(c *Config, v string) error {
		c.Schedule.Timezone = v
		return nil
	}},
}

// ImportResult reports what an import applied and skipped.
type ImportResult struct {
	Applied []string // recognized keys, in file order
	Skipped []string // unrecognized keys
}

// Import applies dotenv-style settings from r onto cfg. Lines are
// independent: comments and blanks are skipped, "export " prefixes
// stripped, values unquoted. Unknown keys are collected, not errors;
// a malformed value for a known key fails the import.
func Import(cfg *Config, r io.Reader) (*ImportResult, error) {
	result := &ImportResult{}

	scanner := bufio.NewScanner(r)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		key, value, ok := parseLine(scanner.Text())
		if !ok {
			continue
		}

		m := matcherFor(key)
		if m == nil {
			result.Skipped = append(result.Skipped, key)
			continue
		}
		if err := m.apply(cfg, value); err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNum, err)
		}
		result.Applied = append(result.Applied, key)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func matcherFor(key string) *lineMatcher {
	for i := range importMatchers {
		for _, k := range importMatchers[i].keys {
			if k == key {
				return &importMatchers[i]
			}
		}
	}
	return nil
}

// parseLine extracts KEY=VALUE from one dotenv line, tolerating
// comments, blanks, "export " prefixes, and quoted values.
func parseLine(line string) (key, value string, ok bool) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return "", "", false
	}
	line = strings.TrimPrefix(line, "export ")

	key, value, found := strings.Cut(line, "=")
	if !found {
		return "", "", false
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return "", "", false
	}

	value = strings.TrimSpace(value)
	if len(value) >= 2 {
		if (value[0] == '"' && value[len(value)-1] == '"') ||
			(value[0] == '\'' && value[len(value)-1] == '\'') {
			value = value[1 : len(value)-1]
		}
	}
	return key, value, true
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
