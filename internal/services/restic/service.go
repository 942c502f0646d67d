// Package restic drives the restic binary. Each operation builds one
// subprocess invocation, injects the resolved secrets into its environment,
// and parses exit code plus JSON output into a typed result or a classified
// error. The package holds no repository state between calls.
package restic

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
	"github.com/safestic/safestic/internal/errdefs"
	"github.com/safestic/safestic/internal/models"
	"github.com/safestic/safestic/internal/services/credentials"
	"github.com/safestic/safestic/internal/services/repository"
)

// Service defines the engine operations exposed to callers.
type Service interface {
	CheckAccess(ctx context.Context) (bool, error)
	State(ctx context.Context) (models.RepositoryState, error)
	Init(ctx context.Context) error
	Backup(ctx context.Context, settings models.BackupSettings) (*models.BackupResult, error)
	Snapshots(ctx context.Context, filterTags []string) ([]models.Snapshot, error)
	Restore(ctx context.Context, snapshotID string, includePaths []string) (*models.RestoreResult, error)
	ApplyRetention(ctx context.Context, policy models.RetentionPolicy) (*models.ForgetResult, error)
	CheckRepository(ctx context.Context, settings models.CheckSettings) (*models.CheckResult, error)
	Stats(ctx context.Context) (*models.RepoStats, error)
	ListSnapshotFiles(ctx context.Context, snapshotID string) ([]string, error)
	RepairIndex(ctx context.Context) error
	RepairSnapshots(ctx context.Context) error
	Version(ctx context.Context) (string, error)
	Mount(ctx context.Context, mountpoint string) (*MountSession, error)
}

// Impl implements the Service interface by spawning restic subprocesses.
type Impl struct {
	provider models.StorageProvider
	restore  models.RestoreSettings
	repo     repository.Service
	resolver credentials.Resolver
	executor CommandExecutor
	logger   zerolog.Logger
}

// New creates an engine client.
func New(cfg models.Config, resolver credentials.Resolver, repo repository.Service, logger zerolog.Logger) *Impl {
	return NewWithExecutor(cfg, resolver, repo, &DefaultExecutor{}, logger)
}

// NewWithExecutor creates an engine client with a custom executor (for testing).
func NewWithExecutor(cfg models.Config, resolver credentials.Resolver, repo repository.Service, executor CommandExecutor, logger zerolog.Logger) *Impl {
	return &Impl{
		provider: cfg.Storage.Provider,
		restore:  cfg.Restore,
		repo:     repo,
		resolver: resolver,
		executor: executor,
		logger:   logger,
	}
}

// buildEnv resolves exactly the secrets the configured provider needs and
// returns the subprocess environment. Secrets go into env only; the argument
// vector stays clean so they never show up in process lists.
func (s *Impl) buildEnv(ctx context.Context) ([]string, error) {
	url, err := s.repo.URL(ctx)
	if err != nil {
		return nil, err
	}
	env := []string{"RESTIC_REPOSITORY=" + url}

	for _, key := range credentials.RequiredKeys(s.provider) {
		resolved, err := s.resolver.Resolve(ctx, key)
		if err != nil {
			return nil, err
		}
		if !resolved.Found {
			return nil, errors.Mark(
				errors.Newf("required secret %s is not set in any configured source", key),
				errdefs.ErrCredentialNotFound)
		}
		env = append(env, key+"="+resolved.Value)
	}
	for _, key := range credentials.OptionalKeys(s.provider) {
		resolved, err := s.resolver.Resolve(ctx, key)
		if err != nil {
			return nil, err
		}
		if resolved.Found {
			env = append(env, key+"="+resolved.Value)
		}
	}
	return env, nil
}

// run executes one restic invocation and returns raw stdout/stderr and the
// unclassified exec error.
func (s *Impl) run(ctx context.Context, args ...string) ([]byte, []byte, error) {
	env, err := s.buildEnv(ctx)
	if err != nil {
		return nil, nil, err
	}
	s.logger.Debug().Strs("args", args).Msg("invoking restic")
	return s.executor.Execute(ctx, env, "restic", args...)
}

// CheckAccess probes whether the repository is reachable and initialized.
// "No repository here yet" is a normal false, not an error.
func (s *Impl) CheckAccess(ctx context.Context) (bool, error) {
	_, stderr, err := s.run(ctx, "snapshots", "--json")
	if err == nil {
		return true, nil
	}
	if isNotInitialized(err, stderr) {
		return false, nil
	}
	return false, classify(err, stderr)
}

// State probes the repository and reports accessibility and initialization
// separately. An unreachable backend yields Accessible=false without an
// error so health checks can render a report; credential and engine
// problems still propagate.
func (s *Impl) State(ctx context.Context) (models.RepositoryState, error) {
	initialized, err := s.CheckAccess(ctx)
	switch {
	case err == nil:
		return models.RepositoryState{Accessible: true, Initialized: initialized}, nil
	case errors.Is(err, errdefs.ErrRepositoryInaccessible):
		return models.RepositoryState{}, nil
	default:
		return models.RepositoryState{}, err
	}
}

// Init creates the repository. The engine's "already initialized" answer is
// re-raised as errdefs.ErrRepositoryAlreadyInitialized rather than
// suppressed; callers decide whether that is benign.
func (s *Impl) Init(ctx context.Context) error {
	s.logger.Info().Msg("initializing repository")
	_, stderr, err := s.run(ctx, "init")
	if err != nil {
		return classify(err, stderr)
	}
	s.logger.Info().Msg("repository initialized")
	return nil
}

// snapshotJSON is the record shape of restic snapshots --json.
type snapshotJSON struct {
	ID       string    `json:"id"`
	ShortID  string    `json:"short_id"`
	Time     time.Time `json:"time"`
	Hostname string    `json:"hostname"`
	Tags     []string  `json:"tags"`
	Paths    []string  `json:"paths"`
}

func (j snapshotJSON) toModel() models.Snapshot {
	return models.Snapshot{
		ID:       j.ID,
		ShortID:  j.ShortID,
		Time:     j.Time,
		Hostname: j.Hostname,
		Tags:     j.Tags,
		Paths:    j.Paths,
	}
}

// Snapshots lists snapshots sorted by time ascending, optionally filtered by
// tags. An empty repository yields an empty slice, not an error.
func (s *Impl) Snapshots(ctx context.Context, filterTags []string) ([]models.Snapshot, error) {
	args := []string{"snapshots", "--json"}
	for _, tag := range filterTags {
		args = append(args, "--tag", tag)
	}

	stdout, stderr, err := s.run(ctx, args...)
	if err != nil {
		return nil, classify(err, stderr)
	}

	var records []snapshotJSON
	if err := json.Unmarshal(stdout, &records); err != nil {
		return nil, errors.Mark(
			errors.Wrap(err, "parsing snapshot list"),
			errdefs.ErrEngineInvocation)
	}

	snapshots := make([]models.Snapshot, len(records))
	for i, rec := range records {
		snapshots[i] = rec.toModel()
	}
	sort.Slice(snapshots, func(i, j int) bool { return snapshots[i].Time.Before(snapshots[j].Time) })

	s.logger.Debug().Int("count", len(snapshots)).Msg("snapshots listed")
	return snapshots, nil
}

// backupSummary is the summary record of restic backup --json.
type backupSummary struct {
	MessageType         string  `json:"message_type"`
	FilesNew            int     `json:"files_new"`
	FilesChanged        int     `json:"files_changed"`
	FilesUnmodified     int     `json:"files_unmodified"`
	DataAdded           int64   `json:"data_added"`
	TotalFilesProcessed int     `json:"total_files_processed"`
	TotalBytesProcessed int64   `json:"total_bytes_processed"`
	SnapshotID          string  `json:"snapshot_id"`
	TotalDuration       float64 `json:"total_duration"`
}

// Backup snapshots the given paths. Paths are validated before any
// subprocess is spawned: an empty list or a missing path fails fast instead
// of producing a confusing partial engine error.
func (s *Impl) Backup(ctx context.Context, settings models.BackupSettings) (*models.BackupResult, error) {
	if len(settings.Paths) == 0 {
		return nil, errors.Mark(
			errors.New("backup requires at least one source path"),
			errdefs.ErrConfiguration)
	}
	for _, path := range settings.Paths {
		if _, err := os.Stat(path); err != nil {
			return nil, errors.Mark(
				errors.Wrapf(err, "backup source path %s", path),
				errdefs.ErrConfiguration)
		}
	}

	args := []string{"backup", "--json"}
	if settings.Host != "" {
		args = append(args, "--host", settings.Host)
	}
	for _, exclude := range settings.Excludes {
		args = append(args, "--exclude", exclude)
	}
	for _, tag := range settings.Tags {
		args = append(args, "--tag", tag)
	}
	args = append(args, settings.Paths...)

	s.logger.Info().Strs("paths", settings.Paths).Msg("starting backup")
	start := time.Now()

	stdout, stderr, err := s.run(ctx, args...)
	if err != nil {
		return nil, classify(err, stderr)
	}

	summary, ok := parseBackupSummary(stdout)
	if !ok {
		return nil, errors.Mark(
			errors.New("backup output contained no summary record"),
			errdefs.ErrEngineInvocation)
	}

	result := &models.BackupResult{
		SnapshotID:          summary.SnapshotID,
		FilesNew:            summary.FilesNew,
		FilesChanged:        summary.FilesChanged,
		FilesUnmodified:     summary.FilesUnmodified,
		DataAdded:           summary.DataAdded,
		TotalFilesProcessed: summary.TotalFilesProcessed,
		TotalBytesProcessed: summary.TotalBytesProcessed,
		Duration:            time.Since(start),
	}

	s.logger.Info().
		Str("snapshot_id", result.SnapshotID).
		Int("files_new", result.FilesNew).
		Int64("data_added", result.DataAdded).
		Dur("duration", result.Duration).
		Msg("backup completed")
	return result, nil
}

// parseBackupSummary scans restic's line-delimited JSON for the summary
// record.
func parseBackupSummary(output []byte) (backupSummary, bool) {
	for _, line := range bytes.Split(output, []byte("\n")) {
		if len(line) == 0 {
			continue
		}
		var record backupSummary
		if err := json.Unmarshal(line, &record); err != nil {
			continue
		}
		if record.MessageType == "summary" {
			return record, true
		}
	}
	return backupSummary{}, false
}

// DestinationDir is the restore destination for one snapshot: a
// subdirectory of targetDir named after the snapshot's own timestamp.
// Repeated restores of the same snapshot are therefore deterministic, and
// different snapshots can never collide.
func DestinationDir(targetDir string, snapshotTime time.Time) string {
	return filepath.Join(targetDir, snapshotTime.UTC().Format("2006-01-02_150405"))
}

// Restore restores a snapshot (or a subset of its paths) into a timestamped
// subdirectory of the configured restore target.
func (s *Impl) Restore(ctx context.Context, snapshotID string, includePaths []string) (*models.RestoreResult, error) {
	if s.restore.TargetDir == "" {
		return nil, errors.Mark(
			errors.New("restore target directory is not configured"),
			errdefs.ErrConfiguration)
	}

	snapshot, err := s.snapshotByID(ctx, snapshotID)
	if err != nil {
		return nil, err
	}

	dest := DestinationDir(s.restore.TargetDir, snapshot.Time)
	if err := os.MkdirAll(dest, 0o750); err != nil {
		return nil, errors.Wrapf(err, "creating restore directory %s", dest)
	}

	args := []string{"restore", snapshot.ID, "--target", dest}
	for _, include := range includePaths {
		args = append(args, "--include", include)
	}

	s.logger.Info().Str("snapshot_id", snapshot.ShortID).Str("target", dest).Msg("restoring snapshot")
	start := time.Now()

	_, stderr, err := s.run(ctx, args...)
	if err != nil {
		return nil, classify(err, stderr)
	}

	result := &models.RestoreResult{
		SnapshotID: snapshot.ID,
		TargetDir:  dest,
		Duration:   time.Since(start),
	}
	s.logger.Info().Str("target", dest).Dur("duration", result.Duration).Msg("restore completed")
	return result, nil
}

// snapshotByID fetches a single snapshot record; the id may be a full hash,
// a prefix, or "latest".
func (s *Impl) snapshotByID(ctx context.Context, snapshotID string) (models.Snapshot, error) {
	stdout, stderr, err := s.run(ctx, "snapshots", snapshotID, "--json")
	if err != nil {
		return models.Snapshot{}, classify(err, stderr)
	}
	var records []snapshotJSON
	if err := json.Unmarshal(stdout, &records); err != nil || len(records) == 0 {
		return models.Snapshot{}, errors.Mark(
			errors.Newf("snapshot %s not found in repository", snapshotID),
			errdefs.ErrEngineInvocation)
	}
	return records[0].toModel(), nil
}

// forgetGroup is the group shape of restic forget --json.
type forgetGroup struct {
	Keep   []snapshotJSON `json:"keep"`
	Remove []snapshotJSON `json:"remove"`
}

// ApplyRetention translates the policy into keep flags and prunes. The
// policy is validated before any subprocess is spawned.
func (s *Impl) ApplyRetention(ctx context.Context, policy models.RetentionPolicy) (*models.ForgetResult, error) {
	policyArgs, err := PolicyArgs(policy)
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Int("keep_hourly", policy.KeepHourly).
		Int("keep_daily", policy.KeepDaily).
		Int("keep_weekly", policy.KeepWeekly).
		Int("keep_monthly", policy.KeepMonthly).
		Msg("applying retention policy")
	start := time.Now()

	args := append([]string{"forget", "--prune", "--json"}, policyArgs...)
	stdout, stderr, err := s.run(ctx, args...)
	if err != nil {
		return nil, classify(err, stderr)
	}

	result := &models.ForgetResult{Duration: time.Since(start)}
	var groups []forgetGroup
	// Forget output may be empty when nothing matched; that is fine.
	if err := json.Unmarshal(stdout, &groups); err == nil {
		for _, group := range groups {
			result.SnapshotsKept += len(group.Keep)
			for _, removed := range group.Remove {
				result.RemovedSnapshotIDs = append(result.RemovedSnapshotIDs, removed.ID)
			}
		}
	}

	s.logger.Info().
		Int("kept", result.SnapshotsKept).
		Int("removed", len(result.RemovedSnapshotIDs)).
		Dur("duration", result.Duration).
		Msg("retention policy applied")
	return result, nil
}

// CheckRepository runs the engine's structural integrity check. Corruption
// is surfaced distinctly from connectivity failure and never auto-repaired.
func (s *Impl) CheckRepository(ctx context.Context, settings models.CheckSettings) (*models.CheckResult, error) {
	args := []string{"check"}
	if settings.Subset != "" {
		args = append(args, "--read-data-subset", settings.Subset)
	}

	s.logger.Info().Str("subset", settings.Subset).Msg("checking repository integrity")
	start := time.Now()

	_, stderr, err := s.run(ctx, args...)
	if err != nil {
		if isCorrupted(stderr) {
			return nil, errors.Mark(
				errors.Wrapf(err, "repository integrity check failed: %s", strings.TrimSpace(string(stderr))),
				errdefs.ErrRepositoryCorrupted)
		}
		return nil, classify(err, stderr)
	}

	result := &models.CheckResult{Passed: true, Duration: time.Since(start)}
	s.logger.Info().Dur("duration", result.Duration).Msg("repository check passed")
	return result, nil
}

// statsJSON is the shape of restic stats --json.
type statsJSON struct {
	TotalSize      int64 `json:"total_size"`
	TotalFileCount int64 `json:"total_file_count"`
}

// Stats gathers repository statistics: snapshot count, restore size across
// snapshots and the deduplicated size on the backend.
func (s *Impl) Stats(ctx context.Context) (*models.RepoStats, error) {
	snapshots, err := s.Snapshots(ctx, nil)
	if err != nil {
		return nil, err
	}

	restoreSize, err := s.statsMode(ctx, "restore-size")
	if err != nil {
		return nil, err
	}
	rawData, err := s.statsMode(ctx, "raw-data")
	if err != nil {
		return nil, err
	}

	return &models.RepoStats{
		SnapshotCount:   len(snapshots),
		TotalSizeBytes:  restoreSize.TotalSize,
		UniqueSizeBytes: rawData.TotalSize,
		TotalFileCount:  restoreSize.TotalFileCount,
	}, nil
}

func (s *Impl) statsMode(ctx context.Context, mode string) (statsJSON, error) {
	stdout, stderr, err := s.run(ctx, "stats", "--json", "--mode", mode)
	if err != nil {
		return statsJSON{}, classify(err, stderr)
	}
	var stats statsJSON
	if err := json.Unmarshal(stdout, &stats); err != nil {
		return statsJSON{}, errors.Mark(
			errors.Wrapf(err, "parsing %s stats", mode),
			errdefs.ErrEngineInvocation)
	}
	return stats, nil
}

// ListSnapshotFiles lists the paths contained in a snapshot.
func (s *Impl) ListSnapshotFiles(ctx context.Context, snapshotID string) ([]string, error) {
	stdout, stderr, err := s.run(ctx, "ls", snapshotID)
	if err != nil {
		return nil, classify(err, stderr)
	}

	var paths []string
	for _, line := range splitLines(stdout) {
		// Skip the "snapshot <id> of [...] at ..." header line.
		if strings.HasPrefix(line, "snapshot ") {
			continue
		}
		paths = append(paths, line)
	}
	return paths, nil
}

// RepairIndex rebuilds the repository index from the pack files.
func (s *Impl) RepairIndex(ctx context.Context) error {
	s.logger.Info().Msg("repairing repository index")
	_, stderr, err := s.run(ctx, "repair", "index")
	if err != nil {
		return classify(err, stderr)
	}
	return nil
}

// RepairSnapshots removes references to missing data from snapshots.
func (s *Impl) RepairSnapshots(ctx context.Context) error {
	s.logger.Info().Msg("repairing snapshots")
	_, stderr, err := s.run(ctx, "repair", "snapshots", "--forget")
	if err != nil {
		return classify(err, stderr)
	}
	return nil
}

// Version reports the engine version; its failure mode doubles as the
// EngineNotFound probe.
func (s *Impl) Version(ctx context.Context) (string, error) {
	stdout, stderr, err := s.executor.Execute(ctx, nil, "restic", "version")
	if err != nil {
		return "", classify(err, stderr)
	}
	lines := splitLines(stdout)
	if len(lines) == 0 {
		return "", nil
	}
	return lines[0], nil
}

func splitLines(output []byte) []string {
	var lines []string
	for _, line := range strings.Split(string(output), "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			lines = append(lines, trimmed)
		}
	}
	return lines
}
