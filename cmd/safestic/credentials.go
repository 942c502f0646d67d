package main

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/safestic/safestic/internal/services/credentials"
	"github.com/spf13/cobra"
)

var credentialsCmd = &cobra.Command{
	Use:   "credentials",
	Short: "Verify that every required secret is resolvable",
	Long: `Resolve every secret the configured storage provider requires and
report where each one was found. Secret values are never printed.`,
	RunE: verifyCredentials,
}

func verifyCredentials(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	resolver, err := credentials.New(cfg.Credentials, log.Logger)
	if err != nil {
		return err
	}

	statuses, err := credentials.VerifyRequired(cmd.Context(), resolver, cfg.Storage.Provider)
	if err != nil {
		return err
	}

	fmt.Printf("Credential source: %s\n\n", cfg.Credentials.Source)
	for _, status := range statuses {
		marker := "MISSING"
		if status.Found {
			marker = fmt.Sprintf("ok (%s)", status.Source)
		} else if !status.Required {
			marker = "not set (optional)"
		}
		fmt.Printf("  %-25s %s\n", status.Key, marker)
	}

	if missing := credentials.MissingRequired(statuses); len(missing) > 0 {
		fmt.Println()
		return fmt.Errorf("missing required secrets: %s", strings.Join(missing, ", "))
	}
	fmt.Println("\nAll required secrets are resolvable.")
	return nil
}
