package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/goodtune/streak/internal/config"
	"github.com/goodtune/streak/internal/tui"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var watchLogFile string

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Show the streak timer in the terminal",
	Long: `Run the streak timer in the terminal. Press s to start, r to reset and q
to quit. The counter is stored with the same storage settings as the server.

Only one process should count against a store at a time. While the server is
running, open its web page or use "streak status" instead.`,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVar(&watchLogFile, "log-file", "", "Write logs to this file (logs are discarded otherwise)")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// The terminal belongs to the UI, so logs only go to an explicit file.
	logger := zerolog.Nop()
	if watchLogFile != "" {
		f, err := os.OpenFile(watchLogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		defer f.Close()
		logger = setupLogger(cfg.Logging, f)
	}

	// The server falls back to an unsaved counter when storage is down. Here
	// nobody would see the log, so refuse to start instead.
	if err := checkStorage(cfg.Storage); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	counter, err := mountWidget(ctx, cfg, logger, nil)
	if err != nil {
		return fmt.Errorf("failed to initialize timer: %w", err)
	}

	runErr := tui.Run(ctx, counter)

	unmountCtx, unmountCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer unmountCancel()

	if err := counter.Unmount(unmountCtx); err != nil {
		logger.Error().Err(err).Msg("Error flushing timer to storage")
	}

	return runErr
}

// checkStorage opens and closes the store once.
func checkStorage(cfg config.StorageConfig) error {
	store, err := openStorage(cfg)
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	return store.Close()
}
