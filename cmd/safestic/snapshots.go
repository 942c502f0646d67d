package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var snapshotTags []string

var snapshotsCmd = &cobra.Command{
	Use:   "snapshots",
	Short: "List snapshots in the repository",
	RunE:  listSnapshots,
}

func init() {
	snapshotsCmd.Flags().StringSliceVar(&snapshotTags, "tag", nil, "only list snapshots with this tag (repeatable)")
}

func listSnapshots(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	engine, err := buildEngine(cfg)
	if err != nil {
		return err
	}

	snapshots, err := engine.Snapshots(cmd.Context(), snapshotTags)
	if err != nil {
		return err
	}
	if len(snapshots) == 0 {
		fmt.Println("No snapshots found.")
		return nil
	}

	fmt.Printf("%-10s  %-20s  %-15s  %s\n", "ID", "TIME", "HOST", "PATHS")
	for _, snap := range snapshots {
		fmt.Printf("%-10s  %-20s  %-15s  %s\n",
			snap.ShortID,
			snap.Time.Local().Format("2006-01-02 15:04:05"),
			snap.Hostname,
			strings.Join(snap.Paths, ", "))
	}
	fmt.Printf("\n%d snapshot(s)\n", len(snapshots))
	return nil
}
