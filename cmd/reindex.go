package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/askdocs/askdocs/internal/app"
	"github.com/askdocs/askdocs/internal/config"
)

var reindexCmd = &cobra.Command{
	Use:   "reindex",
	Short: "Rebuild the vector index from the data folder and exit",
	RunE:  runReindex,
}

func init() {
	rootCmd.AddCommand(reindexCmd)
}

func runReindex(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	// One-shot run, no point watching the folder.
	cfg.WatchData = false

	logger, err := newLogger()
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := app.Setup(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil {
			logger.Warn("shutdown error", "error", closeErr)
		}
	}()

	result, err := a.Manager.Rebuild(ctx)
	if err != nil {
		return fmt.Errorf("rebuilding index: %w", err)
	}

	cmd.Printf("Indexed %d file(s) (%d skipped, %d failed, %d bytes) in %s\n",
		result.FilesAdded, result.FilesSkipped, result.FilesFailed,
		result.TotalSize, result.Duration.Round(time.Millisecond))
	return nil
}
