package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"politikk-moter/internal/observability/logging"
)

func newCalendarCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "calendar",
		Short: "Work with the shared Google calendars",
	}
	cmd.AddCommand(newCalendarSyncCmd(flags))
	return cmd
}

func newCalendarSyncCmd(flags *globalFlags) *cobra.Command {
	var (
		calendarID string
		pipeline   string
	)

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Copy a pipeline's scraped meetings into a calendar",
		Long: `Sync collects the meetings of a pipeline and creates one event per
meeting in the calendar source. Requires GOOGLE_SERVICE_ACCOUNT_JSON.`,
		Example: `  politikk calendar sync --calendar turnus --pipeline standard`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, logger, err := flags.newApp(cmd.OutOrStdout())
			if err != nil {
				return err
			}
			defer closeApp(a.Close, logger)

			ctx := logging.WithLogger(cmd.Context(), logger)
			created, err := a.SyncCalendar(ctx, calendarID, pipeline)
			if err != nil {
				return fmt.Errorf("sync calendar %s: %w", calendarID, err)
			}
			logger.Info("calendar synced",
				slog.String("calendar", calendarID),
				slog.String("pipeline", pipeline),
				slog.Int("created", created))
			fmt.Fprintf(cmd.OutOrStdout(), "Created %d events in %s\n", created, calendarID)
			return nil
		},
	}
	cmd.Flags().StringVar(&calendarID, "calendar", "", "calendar source id (required)")
	cmd.Flags().StringVarP(&pipeline, "pipeline", "p", "standard", "pipeline whose meetings are copied")
	_ = cmd.MarkFlagRequired("calendar")
	return cmd
}
