package cmd

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"enip/comments"
	"enip/models"
	"enip/service"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var callsCmd = &cobra.Command{
	Use:   "calls",
	Short: "Inspect and approve race calls",
}

var callsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the call register",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApplication(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer app.Close()

		entries, err := service.NewCallAdmin(app.uowFactory).List(cmd.Context())
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "OFFICE\tGEOGRAPHY\tAP CALL\tCALLED AT\tPUBLISHED")
		for _, c := range entries {
			call, at := "-", "-"
			if c.APCall != nil {
				call = string(*c.APCall)
			}
			if c.APCalledAt != nil {
				at = c.APCalledAt.Format(time.RFC3339)
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%t\n", c.Office, c.State, call, at, c.Published)
		}
		return w.Flush()
	},
}

func setPublishedCmd(use, short string, published bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <office> <geography>",
		Short: short,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			office := models.Office(strings.ToUpper(args[0]))
			geo := strings.ToUpper(args[1])

			app, err := newApplication(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer app.Close()

			return service.NewCallAdmin(app.uowFactory).SetPublished(cmd.Context(), office, geo, published)
		},
	}
}

var commentsCmd = &cobra.Command{
	Use:   "comments",
	Short: "Manage editorial comments",
}

var commentsLoadCmd = &cobra.Command{
	Use:   "load <file.yaml>",
	Short: "Replace every comment with the contents of a YAML file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := comments.LoadFile(args[0])
		if err != nil {
			return err
		}

		app, err := newApplication(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer app.Close()

		if err := service.ReplaceComments(cmd.Context(), app.uowFactory, loaded); err != nil {
			return err
		}
		log.WithFields(log.Fields{
			"file":     args[0],
			"comments": len(loaded),
		}).Info("Comments replaced")
		return nil
	},
}

func init() {
	callsCmd.AddCommand(
		callsListCmd,
		setPublishedCmd("publish", "Publish the feed's call for a geography", true),
		setPublishedCmd("unpublish", "Withdraw a published call", false),
	)
	commentsCmd.AddCommand(commentsLoadCmd)
	rootCmd.AddCommand(callsCmd, commentsCmd)
}
