package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/safestic/safestic/internal/config"
	"github.com/safestic/safestic/internal/services/credentials"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration file",
	Long:  `Validate the configuration file without executing any backup operations.`,
	RunE:  validateConfig,
}

func validateConfig(cmd *cobra.Command, args []string) error {
	if _, err := os.Stat(envFile); os.IsNotExist(err) {
		log.Error().Str("file", envFile).Msg("config file not found")
		return fmt.Errorf("config file not found: %s", envFile)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := config.Validate(cfg); err != nil {
		log.Error().Err(err).Msg("configuration validation failed")
		return err
	}
	required := credentials.RequiredKeys(cfg.Storage.Provider)
	if err := config.ValidateSecrets(cfg, required, os.LookupEnv); err != nil {
		log.Error().Err(err).Msg("configuration validation failed")
		return err
	}

	fmt.Println("Configuration is valid!")
	fmt.Println()
	fmt.Println("Summary:")
	fmt.Printf("  Provider: %s\n", cfg.Storage.Provider)
	fmt.Printf("  Target: %s\n", cfg.Storage.Target)
	fmt.Printf("  Credential source: %s\n", cfg.Credentials.Source)
	fmt.Printf("  Host: %s\n", cfg.Backup.Host)
	fmt.Printf("  Paths: %v\n", cfg.Backup.Paths)
	fmt.Printf("  Tags: %v\n", cfg.Backup.Tags)
	fmt.Println()
	fmt.Println("Retention Policy:")
	fmt.Printf("  Enabled: %v\n", cfg.Retention.Enabled)
	fmt.Printf("  Keep hourly: %d\n", cfg.Retention.KeepHourly)
	fmt.Printf("  Keep daily: %d\n", cfg.Retention.KeepDaily)
	fmt.Printf("  Keep weekly: %d\n", cfg.Retention.KeepWeekly)
	fmt.Printf("  Keep monthly: %d\n", cfg.Retention.KeepMonthly)
	fmt.Println()
	fmt.Println("Optional Features:")
	fmt.Printf("  Wake-on-LAN: %v\n", cfg.Wake != nil)
	fmt.Printf("  SSH Shutdown: %v\n", cfg.Shutdown != nil)
	fmt.Printf("  Telegram: %v\n", cfg.Telegram != nil)
	fmt.Printf("  Repository Check: %v\n", cfg.Check.Enabled)

	if cfg.Wake != nil {
		fmt.Println()
		fmt.Println("Wake Configuration:")
		fmt.Printf("  MAC Address: %s\n", cfg.Wake.MACAddress)
		fmt.Printf("  Broadcast IP: %s\n", cfg.Wake.BroadcastIP)
		if cfg.Wake.PollURL != "" {
			fmt.Printf("  Poll URL: %s\n", cfg.Wake.PollURL)
		}
	}

	if cfg.Shutdown != nil {
		fmt.Println()
		fmt.Println("Shutdown Configuration:")
		fmt.Printf("  Host: %s\n", cfg.Shutdown.Host)
		fmt.Printf("  Port: %d\n", cfg.Shutdown.Port)
		fmt.Printf("  Username: %s\n", cfg.Shutdown.Username)
		fmt.Printf("  Delay: %d minute(s)\n", cfg.Shutdown.DelayMinutes)
	}

	if cfg.Telegram != nil {
		fmt.Println()
		fmt.Println("Telegram Configuration:")
		fmt.Printf("  Chat ID: %s\n", cfg.Telegram.ChatID)
		fmt.Printf("  Bot Token: (configured)\n")
	}

	if cfg.Check.Enabled && cfg.Check.Subset != "" {
		fmt.Println()
		fmt.Println("Check Configuration:")
		fmt.Printf("  Subset: %s\n", cfg.Check.Subset)
	}

	return nil
}
