package cmd

import (
	"fmt"
	"strconv"

	"enip/config"
	"enip/database"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the database schema",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return database.MigrateUp(config.Get().GetDatabaseURL())
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down [steps]",
	Short: "Roll back migrations (one by default)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		steps := 1
		if len(args) == 1 {
			n, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid steps value: %s", args[0])
			}
			steps = n
		}
		return database.MigrateDown(config.Get().GetDatabaseURL(), steps)
	},
}

var migrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the applied schema version",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		status, err := database.MigrateStatus(config.Get().GetDatabaseURL())
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if !status.Applied {
			fmt.Fprintln(out, "No migrations applied")
			return nil
		}
		fmt.Fprintf(out, "Current version: %d\n", status.Version)
		if status.Dirty {
			fmt.Fprintln(out, "WARNING: Database is in dirty state")
		}
		return nil
	},
}

func init() {
	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd, migrateStatusCmd)
	rootCmd.AddCommand(migrateCmd)
}
