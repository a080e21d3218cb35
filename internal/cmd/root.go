// Package cmd provides the CLI commands for pathfilter.
package cmd

import (
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

// Version information set via ldflags
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "pathfilter",
	Short: "Change-based path filters for CI pipelines",
	Long: `Pathfilter decides which CI jobs a change affects.

Filters are named lists of regular expressions over repository paths. For
each filter pathfilter reports whether the current change touches it and a
SHA-1 fingerprint over the matching files, so jobs can be skipped and their
artifacts reused when nothing they depend on has changed.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

var (
	flagFilterFile string
	flagEnvFile    string
	flagLogLevel   string
	flagRoot       string
)

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.Version = Version
	rootCmd.SetVersionTemplate(`{{printf "pathfilter %s\ncommit: %s\nbuilt: %s\n" .Version "` + Commit + `" "` + BuildDate + `"}}`)

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&flagFilterFile, "filter-file", "f", "", "Filter definition file (env FILTER_FILE)")
	pf.StringVar(&flagEnvFile, "env-file", ".env", "Dotenv file loaded before reading the environment")
	pf.StringVar(&flagLogLevel, "log-level", "", "Log level: debug, info, warn, error (env PATHFILTER_LOG_LEVEL)")
	pf.StringVar(&flagRoot, "root", "", "Repository root (default: nearest directory containing .git)")
}

// setup runs before every command: it loads configuration and configures
// the logger.
func setup(cmd *cobra.Command, args []string) error {
	c, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := setupLogging(c.LogLevel); err != nil {
		return err
	}
	cfg = c
	log.Debug("Configuration loaded", "root", root, "filters", cfg.FilterFile)
	return nil
}

func setupLogging(level string) error {
	if level == "" {
		level = "info"
	}
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}

	log.SetDefault(log.NewWithOptions(os.Stderr, log.Options{
		Level:           lvl,
		ReportTimestamp: lvl == log.DebugLevel,
	}))
	return nil
}
