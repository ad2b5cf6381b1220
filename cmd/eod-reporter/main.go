// eod-reporter posts an end-of-day engineering activity report to
// Slack, aggregated from GitHub, ClickUp, and Slack channels.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/cghimire/eod-reporter/internal/config"
	"github.com/cghimire/eod-reporter/internal/journal"
	"github.com/cghimire/eod-reporter/internal/logging"
	"github.com/cghimire/eod-reporter/internal/pipeline"
	"github.com/cghimire/eod-reporter/internal/scheduler"
	"github.com/cghimire/eod-reporter/internal/server"
)

var (
	version   = "0.3.0"
	cfgFile   string
	logLevel  string
	logFormat string
	logFile   string
)

func main() {
	defer logging.Close()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "eod-reporter",
	Short: "Daily engineering activity reports delivered to Slack",
	Long: `eod-reporter aggregates one engineer's daily activity - GitHub commits
and pull requests, ClickUp task updates and comments, Slack channel
discussions - into a single end-of-day report posted to a Slack channel.

Reports fire automatically on weekdays at a configured time, or on
demand via the CLI or the HTTP trigger endpoint.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		setupLogging()
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("eod-reporter %s\n", version)
		fmt.Printf("Go version: %s\n", runtime.Version())
		fmt.Printf("OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Collect today's activity and post the report now",
	Run: func(cmd *cobra.Command, args []string) {
		runOnce()
	},
}

var previewCmd = &cobra.Command{
	Use:   "preview",
	Short: "Render today's report to stdout without posting",
	Run: func(cmd *cobra.Command, args []string) {
		runPreview()
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the scheduler and the trigger/status HTTP server",
	Run: func(cmd *cobra.Command, args []string) {
		runServe()
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the last run and the next scheduled slot",
	Run: func(cmd *cobra.Command, args []string) {
		runStatus()
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration management",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create default configuration",
	Run: func(cmd *cobra.Command, args []string) {
		runConfigInit()
	},
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration",
	Run: func(cmd *cobra.Command, args []string) {
		runConfigValidate()
	},
}

var configImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import settings from a dotenv-style file",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runConfigImport(args[0])
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default: ~/.eod-reporter/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log format (text, json)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "also log to a rotating file")

	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configValidateCmd)
	configCmd.AddCommand(configImportCmd)

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(previewCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(configCmd)
}

func setupLogging() {
	if err := logging.Setup(logLevel, logFormat, logFile); err != nil {
		fmt.Fprintf(os.Stderr, "logging setup failed: %v\n", err)
		os.Exit(1)
	}
}

func configPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	return config.ConfigPath()
}

// loadConfig loads and validates config, exiting on fatal problems.
func loadConfig() *config.Config {
	cfg, warnings, err := config.Load(configPath())
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	for _, w := range warnings {
		slog.Warn(w)
	}

	if errs := config.Validate(cfg); len(errs) > 0 {
		for _, e := range errs {
			slog.Error("invalid config", "error", e)
		}
		os.Exit(1)
	}
	return cfg
}

func openJournal() *journal.Journal {
	j, err := journal.Open(config.JournalPath())
	if err != nil {
		slog.Error("failed to open run journal", "error", err)
		os.Exit(1)
	}
	return j
}

func runOnce() {
	cfg := loadConfig()
	p := pipeline.New(cfg, openJournal())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	run := p.Run(ctx, "manual")
	switch run.Status {
	case journal.StatusSent:
		fmt.Printf("Report delivered to %s\n", cfg.Slack.Channel)
		fmt.Printf("Commits: %d, PRs opened: %d, PRs merged: %d\n",
			run.Counts.Commits, run.Counts.PRsOpened, run.Counts.PRsMerged)
		fmt.Printf("Tasks completed: %d, in progress: %d, manual updates: %d\n",
			run.Counts.Completed, run.Counts.InProgress, run.Counts.Manual)
	case journal.StatusSkippedOOO:
		fmt.Println("Skipped: your Slack status looks out of office")
	case journal.StatusSkippedBusy:
		fmt.Println("Skipped: another run is already in flight")
	default:
		fmt.Printf("Run failed: %s\n", run.Error)
		os.Exit(1)
	}
}

func runPreview() {
	cfg := loadConfig()
	p := pipeline.New(cfg, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	doc, fallback := p.Preview(ctx)
	fmt.Println(doc.Text())
	fmt.Println()
	fmt.Printf("Fallback: %s\n", fallback)
}

func runServe() {
	cfg := loadConfig()
	j := openJournal()
	p := pipeline.New(cfg, j)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sched, err := scheduler.New(cfg.Schedule.Hour, cfg.Schedule.Minute, cfg.Schedule.Timezone,
		scheduler.RunnerFunc(func(ctx context.Context, trigger string) {
			p.Run(ctx, trigger)
		}))
	if err != nil {
		slog.Error("failed to create scheduler", "error", err)
		os.Exit(1)
	}
	go sched.Start(ctx)

	watcher, err := config.NewWatcher(configPath(), func(newCfg *config.Config) {
		p.Rebuild(newCfg)
		slog.Info("pipeline rebuilt from updated config")
	})
	if err != nil {
		slog.Warn("config watching unavailable", "error", err)
	} else {
		go func() {
			if err := watcher.Watch(ctx); err != nil {
				slog.Warn("config watcher stopped", "error", err)
			}
		}()
	}

	srv := server.New(p, j, sched.Next, cfg.Schedule.Timezone)
	if err := srv.ListenAndServe(ctx, cfg.Server.Addr); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func runStatus() {
	cfg := loadConfig()
	j := openJournal()

	fmt.Println("=== Schedule ===")
	fmt.Printf("Weekdays at %02d:%02d %s\n", cfg.Schedule.Hour, cfg.Schedule.Minute, cfg.Schedule.Timezone)
	if sched, err := scheduler.New(cfg.Schedule.Hour, cfg.Schedule.Minute, cfg.Schedule.Timezone, nil); err == nil {
		fmt.Printf("Next slot: %s\n", sched.Next().Format("2006-01-02 15:04 MST"))
	}

	fmt.Println("\n=== Last run ===")
	last := j.Last()
	if last == nil {
		fmt.Println("No runs recorded yet")
		return
	}
	fmt.Printf("Status:  %s (%s)\n", last.Status, last.Trigger)
	fmt.Printf("Date:    %s\n", last.Date)
	fmt.Printf("At:      %s\n", last.StartedAt.Format("2006-01-02 15:04:05 MST"))
	if last.Error != "" {
		fmt.Printf("Error:   %s\n", last.Error)
	}
	fmt.Printf("Counts:  %d commits, %d PRs opened, %d PRs merged, %d completed, %d in progress, %d manual\n",
		last.Counts.Commits, last.Counts.PRsOpened, last.Counts.PRsMerged,
		last.Counts.Completed, last.Counts.InProgress, last.Counts.Manual)
	fmt.Printf("Stored runs: %d\n", j.Len())
}

func runConfigInit() {
	path := configPath()
	if _, err := os.Stat(path); err == nil {
		fmt.Printf("Config already exists at %s\n", path)
		os.Exit(1)
	}

	if err := config.Save(path, config.DefaultConfig()); err != nil {
		slog.Error("failed to save config", "error", err)
		os.Exit(1)
	}
	fmt.Printf("Created config at %s\n", path)
}

func runConfigValidate() {
	cfg, warnings, err := config.Load(configPath())
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	for _, w := range warnings {
		fmt.Printf("Warning: %s\n", w)
	}

	errs := config.Validate(cfg)
	if len(errs) > 0 {
		for _, e := range errs {
			fmt.Printf("Error: %v\n", e)
		}
		os.Exit(1)
	}
	fmt.Println("Configuration is valid")
}

func runConfigImport(file string) {
	f, err := os.Open(file)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	defer f.Close()

	path := configPath()
	cfg, warnings, err := config.Load(path)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	for _, w := range warnings {
		fmt.Printf("Warning: %s\n", w)
	}

	result, err := config.Import(cfg, f)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	if err := config.Save(path, cfg); err != nil {
		slog.Error("failed to save config", "error", err)
		os.Exit(1)
	}

	fmt.Printf("Imported %d settings into %s\n", len(result.Applied), path)
	for _, k := range result.Applied {
		fmt.Printf("  applied: %s\n", k)
	}
	for _, k := range result.Skipped {
		fmt.Printf("  skipped: %s (unrecognized)\n", k)
	}
}
