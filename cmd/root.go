// Package cmd contains the askdocs CLI commands.
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/askdocs/askdocs/internal/log"
)

var (
	logLevel string
	logJSON  bool
)

var rootCmd = &cobra.Command{
	Use:   "askdocs",
	Short: "askdocs - chat with the documents in your data folder",
	Long: `askdocs serves a small chat page that answers questions about the
files in your data folder. Documents are embedded into a local vector
index that rebuilds automatically whenever the folder changes.

Running askdocs without a subcommand starts the server.`,
	RunE: runServe,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "emit logs as JSON")
}

// newLogger builds the process logger from the persistent flags.
func newLogger() (log.Logger, error) {
	level, err := log.ParseLevel(logLevel)
	if err != nil {
		return nil, fmt.Errorf("parsing log level: %w", err)
	}
	return log.New(log.Config{Level: level, JSON: logJSON}), nil
}
