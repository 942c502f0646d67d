package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show repository statistics",
	RunE:  showStats,
}

func showStats(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	engine, err := buildEngine(cfg)
	if err != nil {
		return err
	}

	stats, err := engine.Stats(cmd.Context())
	if err != nil {
		return err
	}

	fmt.Println("Repository statistics:")
	fmt.Printf("  Snapshots: %d\n", stats.SnapshotCount)
	fmt.Printf("  Files: %d\n", stats.TotalFileCount)
	fmt.Printf("  Restore size: %d bytes\n", stats.TotalSizeBytes)
	fmt.Printf("  Stored size (deduplicated): %d bytes\n", stats.UniqueSizeBytes)
	return nil
}
