// Package config handles configuration loading, validation, and
// change watching.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete configuration.
type Config struct {
	GitHub   GitHubConfig   `mapstructure:"github" yaml:"github"`
	ClickUp  ClickUpConfig  `mapstructure:"clickup" yaml:"clickup"`
	Slack    SlackConfig    `mapstructure:"slack" yaml:"slack"`
	AI       AIConfig       `mapstructure:"ai" yaml:"ai"`
	Schedule ScheduleConfig `mapstructure:"schedule" yaml:"schedule"`
	Report   ReportConfig   `mapstructure:"report" yaml:"report"`
	Server   ServerConfig   `mapstructure:"server" yaml:"server"`
	Logging  LoggingConfig  `mapstructure:"logging" yaml:"logging"`
}

// GitHubConfig contains GitHub API access settings.
type GitHubConfig struct {
	Token    string `mapstructure:"token" yaml:"token"`       // personal access token
	Username string `mapstructure:"username" yaml:"username"` // user whose activity is tracked
}

// ClickUpConfig contains ClickUp API access settings.
type ClickUpConfig struct {
	Token  string `mapstructure:"token" yaml:"token"`     // API v2 personal token
	TeamID string `mapstructure:"team_id" yaml:"team_id"` // workspace (team) ID
	UserID int    `mapstructure:"user_id" yaml:"user_id"` // numeric assignee ID
}

// SlackConfig contains Slack API access and delivery settings.
type SlackConfig struct {
	BotToken        string   `mapstructure:"bot_token" yaml:"bot_token"` // xoxb-...
	Channel         string   `mapstructure:"channel" yaml:"channel"`     // report destination
	UserID          string   `mapstructure:"user_id" yaml:"user_id"`     // for identity and away check
	MonitorChannels []string `mapstructure:"monitor_channels" yaml:"monitor_channels"`
}

// AIConfig contains digest generation configuration. Any
// OpenAI-compatible chat completions endpoint works.
type AIConfig struct {
	APIKey  string `mapstructure:"api_key" yaml:"api_key"`
	Model   string `mapstructure:"model" yaml:"model"`
	BaseURL string `mapstructure:"base_url" yaml:"base_url"` // empty = api.openai.com
}

// ScheduleConfig controls the weekday delivery schedule.
type ScheduleConfig struct {
	Hour     int    `mapstructure:"hour" yaml:"hour"`         // 0-23
	Minute   int    `mapstructure:"minute" yaml:"minute"`     // 0-59
	Timezone string `mapstructure:"timezone" yaml:"timezone"` // IANA name
}

// ReportConfig controls report content: per-source toggles and
// user-authored manual updates.
type ReportConfig struct {
	ShowGitHub    bool     `mapstructure:"show_github" yaml:"show_github"`
	ShowClickUp   bool     `mapstructure:"show_clickup" yaml:"show_clickup"`
	ShowManual    bool     `mapstructure:"show_manual" yaml:"show_manual"`
	ManualUpdates []string `mapstructure:"manual_updates" yaml:"manual_updates"`
}

// ServerConfig contains the trigger/status HTTP server settings.
type ServerConfig struct {
	Addr string `mapstructure:"addr" yaml:"addr"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`   // debug, info, warn, error
	Format string `mapstructure:"format" yaml:"format"` // text, json
	File   string `mapstructure:"file" yaml:"file"`     // optional rotating log file
}

// MaxStoredManualUpdates caps manual updates kept in config. The
// renderer shows fewer; storage deliberately allows headroom.
const MaxStoredManualUpdates = 30

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		AI: AIConfig{
			Model: "gpt-4o-mini",
		},
		Schedule: ScheduleConfig{
			Hour:     18,
			Minute:   0,
			Timezone: "UTC",
		},
		Report: ReportConfig{
			ShowGitHub:  true,
			ShowClickUp: true,
			ShowManual:  true,
		},
		Server: ServerConfig{
			Addr: ":8000",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// ConfigDir returns the path to the .eod-reporter directory.
func ConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".eod-reporter")
}

// ConfigPath returns the path to config.yaml.
func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// JournalPath returns the path to the run journal file.
func JournalPath() string {
	return filepath.Join(ConfigDir(), "runs.jsonl")
}

// Load loads configuration from the given file, falling back to
// defaults for missing values. Environment variables with the EOD_
// prefix override file values (EOD_GITHUB_TOKEN, EOD_SLACK_BOT_TOKEN).
// Returns the config and any non-fatal warnings.
func Load(path string) (*Config, []string, error) {
	cfg := DefaultConfig()
	var warnings []string

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix("EOD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindKeys(v)

	if _, err := os.Stat(path); os.IsNotExist(err) {
		warnings = append(warnings, "no config file found, using defaults and environment")
	} else {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, nil, fmt.Errorf("failed to parse config: %w", err)
	}

	// Apply defaults for values an explicit file may have blanked
	if cfg.Schedule.Timezone == "" {
		cfg.Schedule.Timezone = "UTC"
	}
	if cfg.AI.Model == "" {
		cfg.AI.Model = "gpt-4o-mini"
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8000"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}

	if len(cfg.Report.ManualUpdates) > MaxStoredManualUpdates {
		cfg.Report.ManualUpdates = cfg.Report.ManualUpdates[:MaxStoredManualUpdates]
		warnings = append(warnings, fmt.Sprintf("manual updates truncated to %d entries", MaxStoredManualUpdates))
	}

	return cfg, warnings, nil
}

// bindKeys binds every key explicitly so AutomaticEnv resolves keys
// that are absent from the config file.
func bindKeys(v *viper.Viper) {
	for _, key := range []string{
		"github.token", "github.username",
		"clickup.token", "clickup.team_id", "clickup.user_id",
		"slack.bot_token", "slack.channel", "slack.user_id", "slack.monitor_channels",
		"ai.api_key", "ai.model", "ai.base_url",
		"schedule.hour", "schedule.minute", "schedule.timezone",
		"report.show_github", "report.show_clickup", "report.show_manual", "report.manual_updates",
		"server.addr",
		"logging.level", "logging.format", "logging.file",
	} {
		_ = v.BindEnv(key)
	}
}

// Save saves configuration to the given file.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config dir: %w", err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("github", cfg.GitHub)
	v.Set("clickup", cfg.ClickUp)
	v.Set("slack", cfg.Slack)
	v.Set("ai", cfg.AI)
	v.Set("schedule", cfg.Schedule)
	v.Set("report", cfg.Report)
	v.Set("server", cfg.Server)
	v.Set("logging", cfg.Logging)

	return v.WriteConfig()
}

// Validate validates the configuration.
func Validate(cfg *Config) []error {
	var errs []error

	if cfg.Slack.BotToken == "" {
		errs = append(errs, fmt.Errorf("slack.bot_token is required"))
	}
	if cfg.Slack.Channel == "" {
		errs = append(errs, fmt.Errorf("slack.channel is required"))
	}

	if cfg.Report.ShowGitHub {
		if cfg.GitHub.Token == "" {
			errs = append(errs, fmt.Errorf("github.token is required when report.show_github is enabled"))
		}
		if cfg.GitHub.Username == "" {
			errs = append(errs, fmt.Errorf("github.username is required when report.show_github is enabled"))
		}
	}

	if cfg.Report.ShowClickUp {
		if cfg.ClickUp.Token == "" {
			errs = append(errs, fmt.Errorf("clickup.token is required when report.show_clickup is enabled"))
		}
		if cfg.ClickUp.TeamID == "" {
			errs = append(errs, fmt.Errorf("clickup.team_id is required when report.show_clickup is enabled"))
		}
	}

	if cfg.Schedule.Hour < 0 || cfg.Schedule.Hour > 23 {
		errs = append(errs, fmt.Errorf("schedule.hour must be 0-23, got %d", cfg.Schedule.Hour))
	}
	if cfg.Schedule.Minute < 0 || cfg.Schedule.Minute > 59 {
		errs = append(errs, fmt.Errorf("schedule.minute must be 0-59, got %d", cfg.Schedule.Minute))
	}
	if _, err := time.LoadLocation(cfg.Schedule.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("invalid schedule.timezone %q: %w", cfg.Schedule.Timezone, err))
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[cfg.Logging.Level] {
		errs = append(errs, fmt.Errorf("invalid logging.level: %s", cfg.Logging.Level))
	}
	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[cfg.Logging.Format] {
		errs = append(errs, fmt.Errorf("invalid logging.format: %s", cfg.Logging.Format))
	}

	return errs
}

// Copy creates a deep copy of the config.
func (c *Config) Copy() *Config {
	out := *c

	if c.Slack.MonitorChannels != nil {
		out.Slack.MonitorChannels = make([]string, len(c.Slack.MonitorChannels))
		copy(out.Slack.MonitorChannels, c.Slack.MonitorChannels)
	}
	if c.Report.ManualUpdates != nil {
		out.Report.ManualUpdates = make([]string, len(c.Report.ManualUpdates))
		copy(out.Report.ManualUpdates, c.Report.ManualUpdates)
	}

	return &out
}
