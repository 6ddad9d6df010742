package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"politikk-moter/internal/domain/entity"
	"politikk-moter/internal/observability/logging"
)

func newRunCmd(flags *globalFlags) *cobra.Command {
	var (
		pipelines []string
		asJSON    bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run pipelines and deliver their digests",
		Long: `Run collects, filters and formats the meetings of each pipeline and
delivers one Slack message per batch. Without --pipeline every enabled
pipeline runs.

--json prints the collected meetings instead of delivering them.`,
		Example: `  politikk run
  politikk run --pipeline utvidet --debug
  politikk run --pipeline standard --json --horizon 14`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, logger, err := flags.newApp(cmd.OutOrStdout())
			if err != nil {
				return err
			}
			defer closeApp(a.Close, logger)

			ctx := logging.WithLogger(cmd.Context(), logger)

			if asJSON {
				return printMeetings(ctx, cmd, a.Collect, pipelineKeys(pipelines, a.Registry))
			}

			logger.Info("run started", slog.Any("pipelines", pipelines), slog.Bool("force", flags.force))
			ok := a.Runner.RunAll(ctx, pipelines...)
			logger.Info("run finished", slog.Bool("success", ok))
			if !ok && !flags.debug {
				return errRunFailed
			}
			return nil
		},
	}
	cmd.Flags().StringSliceVarP(&pipelines, "pipeline", "p", nil, "pipeline key to run (repeatable, default: all enabled)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print collected meetings as JSON")
	return cmd
}

type collectFunc func(ctx context.Context, key string) ([]entity.Meeting, error)

// printMeetings writes {"<pipeline>": [meetings...]} to the command output.
func printMeetings(ctx context.Context, cmd *cobra.Command, collect collectFunc, keys []string) error {
	out := make(map[string][]entity.Meeting, len(keys))
	for _, key := range keys {
		meetings, err := collect(ctx, key)
		if err != nil {
			return fmt.Errorf("collect %s: %w", key, err)
		}
		if meetings == nil {
			meetings = []entity.Meeting{}
		}
		out[key] = meetings
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(out)
}

// pipelineKeys returns keys, or every enabled pipeline when keys is empty.
func pipelineKeys(keys []string, reg *entity.Registry) []string {
	if len(keys) > 0 {
		return keys
	}
	var enabled []string
	for _, p := range reg.Pipelines {
		if p.Enabled {
			enabled = append(enabled, p.Key)
		}
	}
	return enabled
}

func closeApp(closeFn func(context.Context) error, logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := closeFn(ctx); err != nil {
		logger.Warn("shutdown failed", slog.Any("error", err))
	}
}
