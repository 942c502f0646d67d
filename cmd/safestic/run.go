package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/safestic/safestic/internal/services/runner"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Execute the backup workflow",
	Long: `Execute the complete backup workflow:
1. Wake-on-LAN (if configured)
2. Initialize the repository (if needed)
3. Back up the configured source paths
4. Apply the retention policy (if enabled)
5. Repository integrity check (if enabled)
6. SSH shutdown (if configured)
7. Send Telegram notification (if configured)`,
	RunE: runBackup,
}

func runBackup(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	log.Info().
		Str("config", envFile).
		Str("provider", string(cfg.Storage.Provider)).
		Str("host", cfg.Backup.Host).
		Msg("configuration loaded")

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		log.Warn().Str("signal", sig.String()).Msg("received signal, shutting down")
		cancel()
	}()

	runnerSvc, err := runner.New(*cfg, log.Logger)
	if err != nil {
		log.Error().Err(err).Msg("failed to create runner")
		return err
	}
	if err := runnerSvc.Run(ctx); err != nil {
		log.Error().Err(err).Msg("backup failed")
		return err
	}

	log.Info().Msg("backup completed successfully")
	return nil
}
