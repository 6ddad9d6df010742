// Package main provides the politikk CLI entry point.
// politikk collects upcoming political meetings and posts them to Slack.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"politikk-moter/internal/app"
	"politikk-moter/internal/config"
	"politikk-moter/internal/domain/entity"
	"politikk-moter/internal/observability/logging"
)

// errRunFailed marks a run where at least one pipeline failed. Its message
// has already been logged.
var errRunFailed = errors.New("one or more pipelines failed")

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configFile string
	debug      bool
	force      bool
	horizon    int
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:   "politikk",
		Short: "Collect upcoming political meetings and post them to Slack",
		Long: `politikk scrapes the meeting calendars of the configured municipalities,
merges them with the shared Google calendars and posts a digest per pipeline
to Slack.

Set DRY_RUN=true (or TESTING=true) to print messages instead of sending them.
--force sends for real regardless.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&flags.configFile, "config", "", "registry file (default: $"+config.RegistryEnv+" or the built-in registry)")
	root.PersistentFlags().BoolVar(&flags.debug, "debug", false, "print messages and debug logs, never deliver")
	root.PersistentFlags().BoolVar(&flags.force, "force", false, "deliver even in test mode")
	root.PersistentFlags().IntVar(&flags.horizon, "horizon", 0, "days ahead to include (default: $HORIZON_DAYS or 10)")

	root.AddCommand(
		newRunCmd(flags),
		newSourcesCmd(flags),
		newCalendarCmd(flags),
	)
	return root
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		if !errors.Is(err, errRunFailed) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}

// loadRegistry reads --config, else the environment, else the built-in
// registry.
func (f *globalFlags) loadRegistry() (*entity.Registry, error) {
	if f.configFile != "" {
		return config.LoadRegistry(f.configFile)
	}
	return config.LoadRegistryFromEnv()
}

// newApp loads configuration and wires an App writing to out.
func (f *globalFlags) newApp(out io.Writer) (*app.App, *slog.Logger, error) {
	cfg, err := config.LoadAppConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("load configuration: %w", err)
	}
	if f.horizon != 0 && (f.horizon < config.MinHorizonDays || f.horizon > config.MaxHorizonDays) {
		return nil, nil, fmt.Errorf("--horizon must be between %d and %d, got %d",
			config.MinHorizonDays, config.MaxHorizonDays, f.horizon)
	}

	var logger *slog.Logger
	if f.debug {
		logger = logging.NewTextLogger(os.Stderr, slog.LevelDebug)
	} else {
		logger = logging.NewJSONLogger(os.Stderr, cfg.Level())
	}
	slog.SetDefault(logger)

	reg, err := f.loadRegistry()
	if err != nil {
		return nil, nil, fmt.Errorf("load registry: %w", err)
	}

	a, err := app.New(cfg, reg, app.Options{
		HorizonDays: f.horizon,
		Debug:       f.debug,
		Force:       f.force,
		Out:         out,
	}, logger)
	if err != nil {
		return nil, nil, err
	}
	return a, logger, nil
}
