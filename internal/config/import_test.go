package config

import (
	"strings"
	"testing"
)

func TestImport(t *testing.T) {
	input := `
# service credentials
export GITHUB_TOKEN="ghp_abc"
GITHUB_USERNAME=octocat
CLICKUP_API_TOKEN='pk_123'
CLICKUP_TEAM_ID=9000
CLICKUP_USER_ID=77
SLACK_BOT_TOKEN=xoxb-1
SLACK_CHANNEL_ID=C42
SLACK_MONITOR_CHANNELS=C1, C2 ,,C3
OPENAI_API_KEY=sk-test
REPORT_HOUR=17
REPORT_TIMEZONE=Europe/Prague

SOME_UNRELATED_VAR=junk
not a key value line
`

	cfg := DefaultConfig()
	result, err := Import(cfg, strings.NewReader(input))
	if err != nil {
		t.Fatalf("Import: %v", err)
	}

	if cfg.GitHub.Token != "ghp_abc" || cfg.GitHub.Username != "octocat" {
		t.Errorf("github = %+v", cfg.GitHub)
	}
	if cfg.ClickUp.Token != "pk_123" || cfg.ClickUp.TeamID != "9000" || cfg.ClickUp.UserID != 77 {
		t.Errorf("clickup = %+v", cfg.ClickUp)
	}
	if cfg.Slack.BotToken != "xoxb-1" || cfg.Slack.Channel != "C42" {
		t.Errorf("slack = %+v", cfg.Slack)
	}
	if len(cfg.Slack.MonitorChannels) != 3 || cfg.Slack.MonitorChannels[2] != "C3" {
		t.Errorf("monitor channels = %v", cfg.Slack.MonitorChannels)
	}
	if cfg.AI.APIKey != "sk-test" {
		t.Errorf("ai key = %q", cfg.AI.APIKey)
	}
	if cfg.Schedule.Hour != 17 || cfg.Schedule.Timezone != "Europe/Prague" {
		t.Errorf("schedule = %+v", cfg.Schedule)
	}

	if len(result.Applied) != 11 {
		t.Errorf("applied = %d (%v), want 11", len(result.Applied), result.Applied)
	}
	if len(result.Skipped) != 1 || result.Skipped[0] != "SOME_UNRELATED_VAR" {
		t.Errorf("skipped = %v", result.Skipped)
	}
}

func TestImportLaterLineWins(t *testing.T) {
	input := "GITHUB_TOKEN=first\nGH_TOKEN=second\n"

	cfg := DefaultConfig()
	if _, err := Import(cfg, strings.NewReader(input)); err != nil {
		t.Fatalf("Import: %v", err)
	}
	// Both aliases hit the same field; file order decides.
	if cfg.GitHub.Token != "second" {
		t.Errorf("token = %q, want second", cfg.GitHub.Token)
	}
}

func TestImportBadNumericValue(t *testing.T) {
	cfg := DefaultConfig()
	_, err := Import(cfg, strings.NewReader("CLICKUP_USER_ID=not-a-number\n"))
	if err == nil {
		t.Fatal("expected error for non-numeric user id")
	}
	if !strings.Contains(err.Error(), "line 1") {
		t.Errorf("error %q missing line number", err)
	}
}

func TestParseLine(t *testing.T) {
	tests := []struct {
		in    string
		key   string
		value string
		ok    bool
	}{
		{"A=b", "A", "b", true},
		{"export A=b", "A", "b", true},
		{`A="quoted"`, "A", "quoted", true},
		{"A=", "A", "", true},
		{"# comment", "", "", false},
		{"", "", "", false},
		{"no equals here", "", "", false},
	}

	for _, tt := range tests {
		key, value, ok := parseLine(tt.in)
		if key != tt.key || value != tt.value || ok != tt.ok {
			t.Errorf("parseLine(%q) = (%q, %q, %v), want (%q, %q, %v)",
				tt.in, key, value, ok, tt.key, tt.value, tt.ok)
		}
	}
}
