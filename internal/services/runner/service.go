// Package runner orchestrates the full backup workflow.
package runner

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
	"github.com/safestic/safestic/internal/models"
	"github.com/safestic/safestic/internal/services/credentials"
	"github.com/safestic/safestic/internal/services/notify"
	"github.com/safestic/safestic/internal/services/repository"
	"github.com/safestic/safestic/internal/services/restic"
	"github.com/safestic/safestic/internal/services/shutdown"
	"github.com/safestic/safestic/internal/services/wake"
)

// Service defines the interface for the backup runner.
type Service interface {
	Run(ctx context.Context) error
}

// Impl implements the runner Service interface. The configuration is fixed
// at construction so every workflow step sees the same settings the engine
// services were wired from.
type Impl struct {
	cfg         models.Config
	resticSvc   restic.Service
	repoSvc     repository.Service
	wakeSvc     wake.Service
	shutdownSvc shutdown.Service
	notifySvc   notify.Service
	logger      zerolog.Logger
}

// New wires a runner from the configuration. It fails when the credential
// source cannot be constructed, before any workflow step runs.
func New(cfg models.Config, logger zerolog.Logger) (*Impl, error) {
	resolver, err := credentials.New(cfg.Credentials, logger)
	if err != nil {
		return nil, err
	}
	repoSvc := repository.New(cfg.Storage, resolver)
	return &Impl{
		cfg:         cfg,
		resticSvc:   restic.New(cfg, resolver, repoSvc, logger),
		repoSvc:     repoSvc,
		wakeSvc:     wake.New(logger),
		shutdownSvc: shutdown.New(logger),
		notifySvc:   notify.New(logger),
		logger:      logger,
	}, nil
}

// NewWithServices creates a runner with custom services (for testing).
func NewWithServices(
	cfg models.Config,
	logger zerolog.Logger,
	resticSvc restic.Service,
	repoSvc repository.Service,
	wakeSvc wake.Service,
	shutdownSvc shutdown.Service,
	notifySvc notify.Service,
) *Impl {
	return &Impl{
		cfg:         cfg,
		resticSvc:   resticSvc,
		repoSvc:     repoSvc,
		wakeSvc:     wakeSvc,
		shutdownSvc: shutdownSvc,
		notifySvc:   notifySvc,
		logger:      logger,
	}
}

// Run executes the complete backup workflow: wake the host if configured,
// initialize the repository on first use, back up, apply retention, verify
// integrity, then shut the host down and report.
func (s *Impl) Run(ctx context.Context) error {
	cfg := s.cfg
	startTime := time.Now()
	report := models.RunReport{
		Host:      cfg.Backup.Host,
		StartTime: startTime,
	}
	var failedStep string
	var runErr error

	s.logger.Info().
		Str("provider", string(cfg.Storage.Provider)).
		Str("host", cfg.Backup.Host).
		Msg("starting backup run")

	defer func() {
		if cfg.Telegram == nil {
			return
		}
		report.Success = runErr == nil
		report.Duration = time.Since(startTime)
		if runErr != nil {
			report.FailedStep = failedStep
			report.ErrorMessage = runErr.Error()
		}
		if err := s.notifySvc.Send(ctx, *cfg.Telegram, report); err != nil {
			s.logger.Error().Err(err).Msg("failed to send notification")
		}
	}()

	if cfg.Wake != nil {
		failedStep = "wake"
		if runErr = s.runWake(ctx, cfg.Wake); runErr != nil {
			return runErr
		}
	}

	if url, err := s.repoSvc.URL(ctx); err == nil {
		report.Repository = url
	}

	failedStep = "init"
	initialized, err := s.resticSvc.CheckAccess(ctx)
	if err != nil {
		runErr = errors.Wrap(err, "repository access check failed")
		return runErr
	}
	if !initialized {
		if err := s.resticSvc.Init(ctx); err != nil {
			runErr = errors.Wrap(err, "init failed")
			return runErr
		}
	}

	failedStep = "backup"
	backupResult, err := s.resticSvc.Backup(ctx, cfg.Backup)
	if err != nil {
		runErr = errors.Wrap(err, "backup failed")
		return runErr
	}
	report.SnapshotID = backupResult.SnapshotID
	report.DataAdded = backupResult.DataAdded
	report.FilesNew = backupResult.FilesNew

	if cfg.Retention.Enabled {
		failedStep = "forget"
		forgetResult, err := s.resticSvc.ApplyRetention(ctx, cfg.Retention)
		if err != nil {
			runErr = errors.Wrap(err, "retention failed")
			return runErr
		}
		report.SnapshotsRemoved = len(forgetResult.RemovedSnapshotIDs)
	}

	if cfg.Check.Enabled {
		failedStep = "check"
		checkResult, err := s.resticSvc.CheckRepository(ctx, cfg.Check)
		if err != nil {
			runErr = errors.Wrap(err, "check failed")
			return runErr
		}
		s.logger.Info().
			Bool("passed", checkResult.Passed).
			Dur("duration", checkResult.Duration).
			Msg("repository check completed")
	}

	if cfg.Shutdown != nil {
		failedStep = "shutdown"
		result, err := s.shutdownSvc.Shutdown(ctx, *cfg.Shutdown)
		if err != nil {
			runErr = errors.Wrap(err, "shutdown failed")
			return runErr
		}
		s.logger.Info().Bool("command_sent", result.CommandSent).Msg("remote shutdown scheduled")
	}

	failedStep = ""
	s.logger.Info().
		Dur("duration", time.Since(startTime)).
		Msg("backup run completed successfully")
	return nil
}

func (s *Impl) runWake(ctx context.Context, cfg *models.WakeConfig) error {
	result, err := s.wakeSvc.Wake(ctx, *cfg)
	if err != nil {
		return errors.Wrap(err, "wake failed")
	}
	if !result.HostReady {
		return errors.New("host did not become ready after wake packet")
	}
	s.logger.Info().
		Bool("packet_sent", result.PacketSent).
		Dur("wait_duration", result.WaitDuration).
		Msg("host woken")
	return nil
}
