package cmd

import (
	"encoding/json"
	"fmt"
	"time"

	"enip/lock"
	"enip/service"
	"enip/worker"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Ingest the results feed and publish changed documents",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApplication(cmd.Context(), true)
		if err != nil {
			return err
		}
		defer app.Close()

		summary, err := app.runs.Run(cmd.Context())
		if summary != nil {
			printJSON(cmd, summary)
		}
		return err
	},
}

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Ingest the results feed without publishing",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApplication(cmd.Context(), true)
		if err != nil {
			return err
		}
		defer app.Close()

		result, err := app.runs.Ingest(cmd.Context())
		if err != nil {
			return err
		}
		log.WithFields(log.Fields{
			"ingestId":     result.Run.ID,
			"records":      len(result.Records),
			"persisted":    result.Persisted,
			"callsChanged": result.CallsChanged,
		}).Info("Ingest completed")
		return nil
	},
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Re-export a stored ingest run (the latest by default)",
	RunE: func(cmd *cobra.Command, args []string) error {
		id, _ := cmd.Flags().GetInt64("id")

		app, err := newApplication(cmd.Context(), true)
		if err != nil {
			return err
		}
		defer app.Close()

		var summary *service.ExportSummary
		if id > 0 {
			summary, err = app.runs.ExportRun(cmd.Context(), id)
		} else {
			summary, err = app.runs.ExportLatest(cmd.Context())
		}
		if summary != nil {
			printJSON(cmd, summary)
		}
		return err
	},
}

var bulkCmd = &cobra.Command{
	Use:   "bulk",
	Short: "Re-export every waypoint run in a time range",
	RunE: func(cmd *cobra.Command, args []string) error {
		from, err := timeFlag(cmd, "from")
		if err != nil {
			return err
		}
		to, err := timeFlag(cmd, "to")
		if err != nil {
			return err
		}
		if to.Before(from) {
			return fmt.Errorf("--to must not be before --from")
		}

		app, err := newApplication(cmd.Context(), true)
		if err != nil {
			return err
		}
		defer app.Close()

		entries, err := app.runs.Bulk(cmd.Context(), from, to)
		printJSON(cmd, entries)
		return err
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Run ingest and export on every RUN_INTERVAL until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		app, err := newApplication(ctx, true)
		if err != nil {
			return err
		}
		defer app.Close()

		guard := worker.Unguarded
		if app.cfg.RedisAddr != "" {
			rdb, err := lock.Connect(ctx, app.cfg.RedisAddr)
			if err != nil {
				return err
			}
			defer rdb.Close()
			guard = worker.LeaseGuard(lock.New(rdb, lock.DefaultKey, app.cfg.RunLockTTL))
		} else {
			log.Warn("REDIS_ADDR not set, running without a run lock")
		}

		stop := worker.StartWatchWorker(ctx, app.cfg.RunInterval, app.runs, guard)
		log.WithField("environment", app.cfg.Environment).Info("Watching results feed")

		<-ctx.Done()
		log.Info("Shutting down watch loop...")
		stop()
		return nil
	},
}

func init() {
	exportCmd.Flags().Int64("id", 0, "Ingest run id to export")
	bulkCmd.Flags().String("from", "", "Start of the range (RFC3339, inclusive)")
	bulkCmd.Flags().String("to", "", "End of the range (RFC3339, inclusive)")
	_ = bulkCmd.MarkFlagRequired("from")
	_ = bulkCmd.MarkFlagRequired("to")

	rootCmd.AddCommand(runCmd, ingestCmd, exportCmd, bulkCmd, watchCmd)
}

func timeFlag(cmd *cobra.Command, name string) (time.Time, error) {
	raw, _ := cmd.Flags().GetString(name)
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --%s %q: %w", name, raw, err)
	}
	return t.UTC(), nil
}

func printJSON(cmd *cobra.Command, v any) {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		log.WithError(err).Error("Failed to write output")
	}
}
