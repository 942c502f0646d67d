package restic

import (
	"context"
	"encoding/json"
	"io"
	"os/exec"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
	"github.com/safestic/safestic/internal/errdefs"
	"github.com/safestic/safestic/internal/models"
	"github.com/safestic/safestic/internal/services/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockExecutor is a mock implementation of CommandExecutor for testing.
type mockExecutor struct {
	executeFunc func(ctx context.Context, env []string, name string, args ...string) ([]byte, []byte, error)
	startFunc   func(ctx context.Context, env []string, name string, args ...string) (Process, error)
	calls       [][]string
	lastEnv     []string
}

func (m *mockExecutor) Execute(ctx context.Context, env []string, name string, args ...string) ([]byte, []byte, error) {
	m.calls = append(m.calls, args)
	m.lastEnv = env
	if m.executeFunc != nil {
		return m.executeFunc(ctx, env, name, args...)
	}
	return nil, nil, nil
}

func (m *mockExecutor) Start(ctx context.Context, env []string, name string, args ...string) (Process, error) {
	m.calls = append(m.calls, args)
	m.lastEnv = env
	if m.startFunc != nil {
		return m.startFunc(ctx, env, name, args...)
	}
	return nil, errors.New("start not mocked")
}

type stubResolver struct {
	values map[string]string
}

func (s *stubResolver) Resolve(ctx context.Context, key string) (models.ResolvedCredential, error) {
	value, ok := s.values[key]
	if !ok {
		return models.ResolvedCredential{}, nil
	}
	return models.ResolvedCredential{Value: value, Found: true, Source: models.SourceEnv}, nil
}

func testLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

func testConfig(t *testing.T) models.Config {
	t.Helper()
	return models.Config{
		Storage: models.StorageSettings{Provider: models.ProviderLocal, Target: "/backup"},
		Restore: models.RestoreSettings{TargetDir: t.TempDir()},
	}
}

func testService(t *testing.T, executor *mockExecutor) *Impl {
	t.Helper()
	cfg := testConfig(t)
	resolver := &stubResolver{values: map[string]string{"RESTIC_PASSWORD": "secret"}}
	repo := repository.New(cfg.Storage, resolver)
	return NewWithExecutor(cfg, resolver, repo, executor, testLogger())
}

func TestBuildEnv_SecretsInEnvNotArgs(t *testing.T) {
	executor := &mockExecutor{
		executeFunc: func(ctx context.Context, env []string, name string, args ...string) ([]byte, []byte, error) {
			return []byte("[]"), nil, nil
		},
	}
	svc := testService(t, executor)

	_, err := svc.Snapshots(context.Background(), nil)
	require.NoError(t, err)

	assert.Contains(t, executor.lastEnv, "RESTIC_REPOSITORY=/backup")
	assert.Contains(t, executor.lastEnv, "RESTIC_PASSWORD=secret")
	for _, call := range executor.calls {
		for _, arg := range call {
			assert.NotContains(t, arg, "secret", "secrets must never appear in the argument vector")
		}
	}
}

func TestBuildEnv_MissingRequiredSecret(t *testing.T) {
	cfg := testConfig(t)
	resolver := &stubResolver{} // no secrets anywhere
	repo := repository.New(cfg.Storage, resolver)
	svc := NewWithExecutor(cfg, resolver, repo, &mockExecutor{}, testLogger())

	_, err := svc.Snapshots(context.Background(), nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errdefs.ErrCredentialNotFound))
}

func TestCheckAccess_Initialized(t *testing.T) {
	executor := &mockExecutor{
		executeFunc: func(ctx context.Context, env []string, name string, args ...string) ([]byte, []byte, error) {
			return []byte("[]"), nil, nil
		},
	}
	svc := testService(t, executor)

	ok, err := svc.CheckAccess(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCheckAccess_NotInitialized(t *testing.T) {
	executor := &mockExecutor{
		executeFunc: func(ctx context.Context, env []string, name string, args ...string) ([]byte, []byte, error) {
			return nil, []byte("Fatal: unable to open config file: <config/> does not exist\nIs there a repository at the following location?\n/backup"), errors.New("exit status 1")
		},
	}
	svc := testService(t, executor)

	ok, err := svc.CheckAccess(context.Background())
	require.NoError(t, err, "a missing repository is a normal probe answer, not an error")
	assert.False(t, ok)
}

func TestCheckAccess_NetworkFailure(t *testing.T) {
	executor := &mockExecutor{
		executeFunc: func(ctx context.Context, env []string, name string, args ...string) ([]byte, []byte, error) {
			return nil, []byte("Fatal: unable to open repository: dial tcp 10.0.0.5:8000: connection refused"), errors.New("exit status 1")
		},
	}
	svc := testService(t, executor)

	_, err := svc.CheckAccess(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, errdefs.ErrRepositoryInaccessible))
}

func TestState_InaccessibleIsNotAnError(t *testing.T) {
	executor := &mockExecutor{
		executeFunc: func(ctx context.Context, env []string, name string, args ...string) ([]byte, []byte, error) {
			return nil, []byte("dial tcp: no such host"), errors.New("exit status 1")
		},
	}
	svc := testService(t, executor)

	state, err := svc.State(context.Background())
	require.NoError(t, err)
	assert.False(t, state.Accessible)
	assert.False(t, state.Initialized)
}

func TestInit_AlreadyInitialized(t *testing.T) {
	executor := &mockExecutor{
		executeFunc: func(ctx context.Context, env []string, name string, args ...string) ([]byte, []byte, error) {
			return nil, []byte("Fatal: create repository at /backup failed: config file already exists"), errors.New("exit status 1")
		},
	}
	svc := testService(t, executor)

	err := svc.Init(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, errdefs.ErrRepositoryAlreadyInitialized))
}

func TestClassify_EngineNotFound(t *testing.T) {
	err := classify(exec.ErrNotFound, nil)
	assert.True(t, errors.Is(err, errdefs.ErrEngineNotFound))
}

func TestClassify_AuthFailure(t *testing.T) {
	err := classify(errors.New("exit status 1"), []byte("Fatal: wrong password or no key found"))
	assert.True(t, errors.Is(err, errdefs.ErrRepositoryInaccessible))
}

func TestClassify_UnknownFailureKeepsStderr(t *testing.T) {
	err := classify(errors.New("exit status 1"), []byte("Fatal: something unexpected"))
	assert.True(t, errors.Is(err, errdefs.ErrEngineInvocation))
	assert.Contains(t, err.Error(), "something unexpected")
}

func TestSnapshots_SortedByTime(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Second)
	records := []snapshotJSON{
		{ID: "newer", ShortID: "newer", Time: now, Hostname: "server1", Paths: []string{"/data"}},
		{ID: "older", ShortID: "older", Time: now.Add(-24 * time.Hour), Hostname: "server1", Paths: []string{"/data"}},
	}
	payload, err := json.Marshal(records)
	require.NoError(t, err)

	executor := &mockExecutor{
		executeFunc: func(ctx context.Context, env []string, name string, args ...string) ([]byte, []byte, error) {
			return payload, nil, nil
		},
	}
	svc := testService(t, executor)

	snapshots, err := svc.Snapshots(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, snapshots, 2)
	assert.Equal(t, "older", snapshots[0].ID)
	assert.Equal(t, "newer", snapshots[1].ID)
}

func TestSnapshots_EmptyRepository(t *testing.T) {
	executor := &mockExecutor{
		executeFunc: func(ctx context.Context, env []string, name string, args ...string) ([]byte, []byte, error) {
			return []byte("[]"), nil, nil
		},
	}
	svc := testService(t, executor)

	snapshots, err := svc.Snapshots(context.Background(), nil)
	require.NoError(t, err, "an empty repository lists zero snapshots, it does not fail")
	assert.Empty(t, snapshots)
}

func TestSnapshots_TagFilterArgs(t *testing.T) {
	executor := &mockExecutor{
		executeFunc: func(ctx context.Context, env []string, name string, args ...string) ([]byte, []byte, error) {
			return []byte("[]"), nil, nil
		},
	}
	svc := testService(t, executor)

	_, err := svc.Snapshots(context.Background(), []string{"daily", "db"})
	require.NoError(t, err)
	require.Len(t, executor.calls, 1)
	assert.Equal(t, []string{"snapshots", "--json", "--tag", "daily", "--tag", "db"}, executor.calls[0])
}

func TestBackup_RejectsEmptyPathsBeforeSpawning(t *testing.T) {
	executor := &mockExecutor{}
	svc := testService(t, executor)

	_, err := svc.Backup(context.Background(), models.BackupSettings{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errdefs.ErrConfiguration))
	assert.Empty(t, executor.calls, "no subprocess may be spawned for an invalid backup request")
}

func TestBackup_RejectsMissingPath(t *testing.T) {
	executor := &mockExecutor{}
	svc := testService(t, executor)

	_, err := svc.Backup(context.Background(), models.BackupSettings{Paths: []string{"/does/not/exist"}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errdefs.ErrConfiguration))
	assert.Empty(t, executor.calls)
}

func TestBackup_ParsesSummary(t *testing.T) {
	output := `{"message_type":"status","percent_done":0.5}
{"message_type":"summary","files_new":42,"files_changed":3,"files_unmodified":100,"data_added":1048576,"total_files_processed":145,"total_bytes_processed":2097152,"snapshot_id":"abc123"}
`
	executor := &mockExecutor{
		executeFunc: func(ctx context.Context, env []string, name string, args ...string) ([]byte, []byte, error) {
			return []byte(output), nil, nil
		},
	}
	svc := testService(t, executor)

	result, err := svc.Backup(context.Background(), models.BackupSettings{
		Paths: []string{t.TempDir()},
		Tags:  []string{"daily"},
	})
	require.NoError(t, err)
	assert.Equal(t, "abc123", result.SnapshotID)
	assert.Equal(t, 42, result.FilesNew)
	assert.Equal(t, int64(1048576), result.DataAdded)
}

func TestBackup_NoSummaryRecord(t *testing.T) {
	executor := &mockExecutor{
		executeFunc: func(ctx context.Context, env []string, name string, args ...string) ([]byte, []byte, error) {
			return []byte(`{"message_type":"status"}`), nil, nil
		},
	}
	svc := testService(t, executor)

	_, err := svc.Backup(context.Background(), models.BackupSettings{Paths: []string{t.TempDir()}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errdefs.ErrEngineInvocation))
}

func TestDestinationDir_Deterministic(t *testing.T) {
	snapTime := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)

	first := DestinationDir("/restore", snapTime)
	second := DestinationDir("/restore", snapTime)

	assert.Equal(t, "/restore/2026-03-14_092653", first)
	assert.Equal(t, first, second)

	other := DestinationDir("/restore", snapTime.Add(time.Second))
	assert.NotEqual(t, first, other, "different snapshots must never share a restore directory")
}

func TestDestinationDir_NormalizesToUTC(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*3600)
	local := time.Date(2026, 3, 14, 11, 26, 53, 0, loc)
	utc := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)

	assert.Equal(t, DestinationDir("/restore", utc), DestinationDir("/restore", local))
}

func TestRestore_IntoTimestampedDir(t *testing.T) {
	snapTime := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	snapPayload, err := json.Marshal([]snapshotJSON{
		{ID: "abc123full", ShortID: "abc123", Time: snapTime, Hostname: "server1"},
	})
	require.NoError(t, err)

	executor := &mockExecutor{
		executeFunc: func(ctx context.Context, env []string, name string, args ...string) ([]byte, []byte, error) {
			if args[0] == "snapshots" {
				return snapPayload, nil, nil
			}
			return nil, nil, nil
		},
	}
	cfg := testConfig(t)
	resolver := &stubResolver{values: map[string]string{"RESTIC_PASSWORD": "secret"}}
	repo := repository.New(cfg.Storage, resolver)
	svc := NewWithExecutor(cfg, resolver, repo, executor, testLogger())

	result, err := svc.Restore(context.Background(), "abc123", nil)
	require.NoError(t, err)
	assert.Equal(t, "abc123full", result.SnapshotID)
	assert.Equal(t, DestinationDir(cfg.Restore.TargetDir, snapTime), result.TargetDir)

	restoreCall := executor.calls[len(executor.calls)-1]
	assert.Equal(t, "restore", restoreCall[0])
	assert.Contains(t, restoreCall, "--target")
}

func TestRestore_WithoutTargetDir(t *testing.T) {
	cfg := testConfig(t)
	cfg.Restore.TargetDir = ""
	resolver := &stubResolver{values: map[string]string{"RESTIC_PASSWORD": "secret"}}
	repo := repository.New(cfg.Storage, resolver)
	svc := NewWithExecutor(cfg, resolver, repo, &mockExecutor{}, testLogger())

	_, err := svc.Restore(context.Background(), "abc123", nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errdefs.ErrConfiguration))
}

func TestApplyRetention_ParsesForgetGroups(t *testing.T) {
	output := `[{"keep":[{"id":"k1"},{"id":"k2"}],"remove":[{"id":"r1"},{"id":"r2"},{"id":"r3"}]}]`
	executor := &mockExecutor{
		executeFunc: func(ctx context.Context, env []string, name string, args ...string) ([]byte, []byte, error) {
			return []byte(output), nil, nil
		},
	}
	svc := testService(t, executor)

	result, err := svc.ApplyRetention(context.Background(), models.RetentionPolicy{
		Enabled: true, KeepDaily: 7, KeepWeekly: 4,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, result.SnapshotsKept)
	assert.Equal(t, []string{"r1", "r2", "r3"}, result.RemovedSnapshotIDs)

	require.Len(t, executor.calls, 1)
	assert.Equal(t, []string{"forget", "--prune", "--json", "--keep-daily", "7", "--keep-weekly", "4"}, executor.calls[0])
}

func TestApplyRetention_RejectsAllZeroPolicyBeforeSpawning(t *testing.T) {
	executor := &mockExecutor{}
	svc := testService(t, executor)

	_, err := svc.ApplyRetention(context.Background(), models.RetentionPolicy{Enabled: true})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errdefs.ErrConfiguration))
	assert.Empty(t, executor.calls, "an all-zero policy would delete every snapshot; it must never reach the engine")
}

func TestCheckRepository_CorruptionIsDistinctFromConnectivity(t *testing.T) {
	executor := &mockExecutor{
		executeFunc: func(ctx context.Context, env []string, name string, args ...string) ([]byte, []byte, error) {
			return nil, []byte("Fatal: repository contains errors: pack a1b2 not referenced"), errors.New("exit status 1")
		},
	}
	svc := testService(t, executor)

	_, err := svc.CheckRepository(context.Background(), models.CheckSettings{Enabled: true})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errdefs.ErrRepositoryCorrupted))
	assert.False(t, errors.Is(err, errdefs.ErrRepositoryInaccessible))
}

func TestCheckRepository_ConnectivityFailureIsNotCorruption(t *testing.T) {
	executor := &mockExecutor{
		executeFunc: func(ctx context.Context, env []string, name string, args ...string) ([]byte, []byte, error) {
			return nil, []byte("dial tcp: i/o timeout"), errors.New("exit status 1")
		},
	}
	svc := testService(t, executor)

	_, err := svc.CheckRepository(context.Background(), models.CheckSettings{Enabled: true})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errdefs.ErrRepositoryInaccessible))
	assert.False(t, errors.Is(err, errdefs.ErrRepositoryCorrupted))
}

func TestCheckRepository_UnrelatedFailureIsNotCorruption(t *testing.T) {
	executor := &mockExecutor{
		executeFunc: func(ctx context.Context, env []string, name string, args ...string) ([]byte, []byte, error) {
			return nil, []byte("unable to create lock in backend: repository is already locked by PID 1234"), errors.New("exit status 1")
		},
	}
	svc := testService(t, executor)

	_, err := svc.CheckRepository(context.Background(), models.CheckSettings{Enabled: true})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errdefs.ErrEngineInvocation))
	assert.False(t, errors.Is(err, errdefs.ErrRepositoryCorrupted),
		"a lock contention failure must not be reported as corruption")
}

func TestCheckRepository_SubsetFlag(t *testing.T) {
	executor := &mockExecutor{
		executeFunc: func(ctx context.Context, env []string, name string, args ...string) ([]byte, []byte, error) {
			return nil, nil, nil
		},
	}
	svc := testService(t, executor)

	result, err := svc.CheckRepository(context.Background(), models.CheckSettings{Enabled: true, Subset: "1%"})
	require.NoError(t, err)
	assert.True(t, result.Passed)
	assert.Equal(t, []string{"check", "--read-data-subset", "1%"}, executor.calls[0])
}

func TestStats_CombinesModes(t *testing.T) {
	snapPayload, err := json.Marshal([]snapshotJSON{{ID: "a"}, {ID: "b"}})
	require.NoError(t, err)

	executor := &mockExecutor{
		executeFunc: func(ctx context.Context, env []string, name string, args ...string) ([]byte, []byte, error) {
			switch args[0] {
			case "snapshots":
				return snapPayload, nil, nil
			case "stats":
				mode := args[len(args)-1]
				if mode == "restore-size" {
					return []byte(`{"total_size":2097152,"total_file_count":145}`), nil, nil
				}
				return []byte(`{"total_size":1048576,"total_file_count":0}`), nil, nil
			}
			return nil, nil, errors.New("unexpected command")
		},
	}
	svc := testService(t, executor)

	stats, err := svc.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, stats.SnapshotCount)
	assert.Equal(t, int64(2097152), stats.TotalSizeBytes)
	assert.Equal(t, int64(1048576), stats.UniqueSizeBytes)
	assert.Equal(t, int64(145), stats.TotalFileCount)
}

func TestListSnapshotFiles(t *testing.T) {
	executor := &mockExecutor{
		executeFunc: func(ctx context.Context, env []string, name string, args ...string) ([]byte, []byte, error) {
			out := "snapshot abc123 of [/data] at 2026-03-14 09:26:53.000000 +0000 UTC by root@nas:\n" +
				"/data\n/data/file1.txt\n/data/file2.txt\n"
			return []byte(out), nil, nil
		},
	}
	svc := testService(t, executor)

	files, err := svc.ListSnapshotFiles(context.Background(), "abc123")
	require.NoError(t, err)
	assert.Equal(t, []string{"/data", "/data/file1.txt", "/data/file2.txt"}, files)
}

func TestVersion(t *testing.T) {
	executor := &mockExecutor{
		executeFunc: func(ctx context.Context, env []string, name string, args ...string) ([]byte, []byte, error) {
			return []byte("restic 0.17.3 compiled with go1.23.1 on linux/amd64\n"), nil, nil
		},
	}
	svc := testService(t, executor)

	version, err := svc.Version(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "restic 0.17.3 compiled with go1.23.1 on linux/amd64", version)
}
