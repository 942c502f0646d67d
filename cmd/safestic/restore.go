package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var restoreIncludes []string

var restoreCmd = &cobra.Command{
	Use:   "restore [snapshot-id]",
	Short: "Restore a snapshot into a timestamped directory",
	Long: `Restore a snapshot into a timestamped subdirectory of the configured
restore target. The snapshot id may be a full hash, a prefix, or "latest"
(the default).`,
	Args: cobra.MaximumNArgs(1),
	RunE: restoreSnapshot,
}

func init() {
	restoreCmd.Flags().StringSliceVar(&restoreIncludes, "include", nil, "only restore paths matching this pattern (repeatable)")
}

func restoreSnapshot(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	engine, err := buildEngine(cfg)
	if err != nil {
		return err
	}

	snapshotID := "latest"
	if len(args) == 1 {
		snapshotID = args[0]
	}

	result, err := engine.Restore(cmd.Context(), snapshotID, restoreIncludes)
	if err != nil {
		return err
	}

	fmt.Printf("Restored snapshot %s to %s in %s\n",
		result.SnapshotID, result.TargetDir, result.Duration.Round(time.Second))
	return nil
}
