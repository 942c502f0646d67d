package main

import (
	"fmt"
	"time"

	"github.com/safestic/safestic/internal/models"
	"github.com/spf13/cobra"
)

var checkSubset string

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify repository integrity",
	RunE:  checkRepository,
}

func init() {
	checkCmd.Flags().StringVar(&checkSubset, "read-data-subset", "", "also verify a subset of pack file contents, e.g. 1%")
}

func checkRepository(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	engine, err := buildEngine(cfg)
	if err != nil {
		return err
	}

	settings := models.CheckSettings{Enabled: true, Subset: cfg.Check.Subset}
	if checkSubset != "" {
		settings.Subset = checkSubset
	}

	result, err := engine.CheckRepository(cmd.Context(), settings)
	if err != nil {
		return err
	}

	fmt.Printf("Repository check passed in %s\n", result.Duration.Round(time.Second))
	return nil
}
