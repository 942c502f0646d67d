package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var repairCmd = &cobra.Command{
	Use:   "repair",
	Short: "Repair repository metadata",
}

var repairIndexCmd = &cobra.Command{
	Use:   "index",
	Short: "Rebuild the repository index from pack files",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		engine, err := buildEngine(cfg)
		if err != nil {
			return err
		}
		if err := engine.RepairIndex(cmd.Context()); err != nil {
			return err
		}
		fmt.Println("Index repaired.")
		return nil
	},
}

var repairSnapshotsCmd = &cobra.Command{
	Use:   "snapshots",
	Short: "Remove references to missing data from snapshots",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		engine, err := buildEngine(cfg)
		if err != nil {
			return err
		}
		if err := engine.RepairSnapshots(cmd.Context()); err != nil {
			return err
		}
		fmt.Println("Snapshots repaired.")
		return nil
	},
}

func init() {
	repairCmd.AddCommand(repairIndexCmd)
	repairCmd.AddCommand(repairSnapshotsCmd)
}
