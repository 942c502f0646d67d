package main

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/safestic/safestic/internal/config"
	"github.com/safestic/safestic/internal/models"
	"github.com/safestic/safestic/internal/services/credentials"
	"github.com/safestic/safestic/internal/services/repository"
	"github.com/safestic/safestic/internal/services/restic"
	"github.com/spf13/cobra"
)

var (
	// Version is set at build time.
	Version = "dev"

	// Configuration flags.
	envFile    string
	verbose    bool
	quiet      bool
	jsonOutput bool
)

var rootCmd = &cobra.Command{
	Use:   "safestic",
	Short: "An encrypted multi-cloud backup orchestrator built on restic",
	Long: `safestic orchestrates encrypted restic backups across local, S3,
Azure Blob and Google Cloud Storage repositories. Secrets are resolved from
a configurable store (environment, OS keyring, AWS Secrets Manager, Azure
Key Vault, GCP Secret Manager or SOPS) and are handed to restic through the
subprocess environment only.

Use as a one-shot command with an external scheduler (cron, systemd timer, etc.)`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		setupLogging()
	},
	Version: Version,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&envFile, "env-file", "e", ".env", "configuration .env file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose (debug) output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "enable quiet mode (errors only)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output logs in JSON format")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(snapshotsCmd)
	rootCmd.AddCommand(restoreCmd)
	rootCmd.AddCommand(forgetCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(repairCmd)
	rootCmd.AddCommand(mountCmd)
	rootCmd.AddCommand(credentialsCmd)
}

func setupLogging() {
	if jsonOutput {
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	} else {
		output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: "15:04:05"}
		output.FormatLevel = func(i interface{}) string {
			if s, ok := i.(string); ok {
				return strings.ToUpper(s)
			}
			return ""
		}
		log.Logger = zerolog.New(output).With().Timestamp().Logger()
	}

	switch {
	case quiet:
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	case verbose:
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}

// loadConfig loads the .env file into the process environment (existing
// variables win) and parses it into a typed configuration.
func loadConfig() (*models.Config, error) {
	if err := godotenv.Load(envFile); err != nil {
		log.Debug().Err(err).Str("file", envFile).Msg("no .env file loaded, using process environment")
	}

	parser := config.NewParser()
	cfg, err := parser.LoadFile(envFile)
	if err != nil {
		log.Error().Err(err).Str("file", envFile).Msg("failed to load config")
		return nil, err
	}
	if err := config.Validate(cfg); err != nil {
		log.Error().Err(err).Msg("invalid configuration")
		return nil, err
	}
	return cfg, nil
}

// buildEngine wires the credential resolver, repository URL builder and
// engine client for one-shot subcommands.
func buildEngine(cfg *models.Config) (restic.Service, error) {
	resolver, err := credentials.New(cfg.Credentials, log.Logger)
	if err != nil {
		log.Error().Err(err).Msg("failed to create credential resolver")
		return nil, err
	}
	repo := repository.New(cfg.Storage, resolver)
	return restic.New(*cfg, resolver, repo, log.Logger), nil
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
