package cmd

import (
	"context"
	"errors"
	"os"
	"strings"

	"enip/config"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:           "enip",
	Short:         "Election night results ingest and publishing",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cfgFile != "" {
			config.UseConfigFile(cfgFile)
		}
		cfg := config.Get()
		return configureLogging(cfg.LogLevel, cfg.LogFormat)
	},
}

// Execute runs the command named on the command line
func Execute(ctx context.Context) error {
	if ctx == nil {
		return errors.New("context is required")
	}

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		log.WithError(err).Error("Command failed")
		return err
	}
	return nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file path (environment variables still take precedence)")
}

func configureLogging(level, format string) error {
	lvl, err := log.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		return err
	}
	log.SetLevel(lvl)
	log.SetOutput(os.Stderr)

	switch strings.ToLower(format) {
	case "json":
		log.SetFormatter(&log.JSONFormatter{})
	default:
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
	return nil
}
