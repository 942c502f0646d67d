package models

import "time"

// Snapshot is an immutable point-in-time record reported by the engine.
type Snapshot struct {
	ID       string
	ShortID  string
	Time     time.Time
	Hostname string
	Tags     []string
	Paths    []string
}

// BackupResult holds the result of a backup operation.
type BackupResult struct {
	SnapshotID          string
	FilesNew            int
	FilesChanged        int
	FilesUnmodified     int
	DataAdded           int64
	TotalFilesProcessed int
	TotalBytesProcessed int64
	Duration            time.Duration
}

// ForgetResult holds the result of applying a retention policy.
type ForgetResult struct {
	RemovedSnapshotIDs []string
	SnapshotsKept      int
	Duration           time.Duration
}

// RestoreResult holds the result of a restore operation.
type RestoreResult struct {
	SnapshotID string
	// TargetDir is the timestamped subdirectory the snapshot was restored
	// into, derived from the snapshot's own timestamp.
	TargetDir string
	Duration  time.Duration
}

// CheckResult holds the result of a repository integrity check.
type CheckResult struct {
	Passed   bool
	Duration time.Duration
}

// RepoStats holds repository-level statistics.
type RepoStats struct {
	SnapshotCount   int
	TotalSizeBytes  int64 // restore size across snapshots
	UniqueSizeBytes int64 // deduplicated size on the storage backend
	TotalFileCount  int64
}

// RepositoryState is the ephemeral result of a connectivity probe. It is
// derived per call and never cached across invocations.
type RepositoryState struct {
	Accessible  bool
	Initialized bool
}
