package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var forgetCmd = &cobra.Command{
	Use:   "forget",
	Short: "Apply the retention policy and prune removed data",
	RunE:  applyRetention,
}

func applyRetention(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	engine, err := buildEngine(cfg)
	if err != nil {
		return err
	}

	result, err := engine.ApplyRetention(cmd.Context(), cfg.Retention)
	if err != nil {
		return err
	}

	fmt.Printf("Retention applied: kept %d snapshot(s), removed %d\n",
		result.SnapshotsKept, len(result.RemovedSnapshotIDs))
	for _, id := range result.RemovedSnapshotIDs {
		fmt.Printf("  removed %s\n", id)
	}
	return nil
}
