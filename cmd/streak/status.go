package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/goodtune/streak/internal/config"
	"github.com/goodtune/streak/internal/storage"
	"github.com/goodtune/streak/internal/storage/bolt"
	"github.com/goodtune/streak/internal/view"
	"github.com/spf13/cobra"
)

var statusJSON bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print the stored streak",
	Long:  `Read the persisted counter from storage and print it the way the widget shows it.`,
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "Print the snapshot as JSON")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	seconds, err := readStored(cmd.Context(), cfg.Storage)
	if err != nil {
		return err
	}

	snap := view.NewSnapshot(seconds, false)

	if statusJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(snap)
	}

	bold := color.New(color.Bold)
	cyan := color.New(color.FgCyan, color.Bold)
	green := color.New(color.FgGreen)

	_, _ = bold.Println(view.Header)
	_, _ = cyan.Printf("  %s\n", snap.Time)
	_, _ = green.Printf("  %s  %s\n", snap.DaysLabel, snap.PercentLabel)
	fmt.Printf("  storage: %s\n", cfg.Storage.Type)

	return nil
}

// openStorageForRead opens cfg without taking ownership of it, so status
// works while the server holds the same store.
func openStorageForRead(cfg config.StorageConfig) (storage.Store, error) {
	if cfg.Type == config.StorageBolt {
		return bolt.OpenReadOnly(cfg.Path)
	}
	return openStorage(cfg)
}

// readStored loads the persisted value, treating a missing or unparsable
// record as zero like the widget does.
func readStored(ctx context.Context, cfg config.StorageConfig) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, config.ParseDuration(cfg.OpenTimeout, 5*time.Second))
	defer cancel()

	store, err := openStorageForRead(cfg)
	if err != nil {
		return 0, fmt.Errorf("failed to open storage: %w", err)
	}
	defer store.Close()

	seconds, err := store.Load(ctx)
	switch {
	case err == nil:
		return seconds, nil
	case errors.Is(err, storage.ErrNotFound):
		return 0, nil
	case errors.Is(err, storage.ErrCorrupt):
		_, _ = color.New(color.FgYellow).Fprintf(os.Stderr, "⚠️  Ignoring unparsable stored value: %v\n", err)
		return 0, nil
	default:
		return 0, fmt.Errorf("failed to read storage: %w", err)
	}
}
