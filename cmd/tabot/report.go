package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alejandrodnm/tabot/internal/adapters/notify"
	"github.com/alejandrodnm/tabot/internal/adapters/storage"
)

var reportRunID string

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print the results of a recorded run (latest by default)",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		ctx := cmd.Context()

		store, err := openStore(ctx, cfg.Telemetry)
		if err != nil {
			return err
		}
		defer store.Close()

		runID := reportRunID
		if runID == "" {
			runID, err = store.LatestRunID(ctx)
			if errors.Is(err, storage.ErrNoRuns) {
				return fmt.Errorf("nothing to report in %s: %w", cfg.Telemetry.DSN, err)
			}
			if err != nil {
				return err
			}
		}

		results, err := store.InstanceResults(ctx, runID)
		if err != nil {
			return err
		}
		return notify.NewConsole().Report(ctx, runID, results)
	},
}

func init() {
	reportCmd.Flags().StringVar(&reportRunID, "run", "", "run id to report (default: latest)")
}
