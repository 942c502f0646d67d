// Package errdefs defines the error kinds shared across safestic services.
//
// Callers classify failures with errors.Is against these sentinels; the
// services wrap the underlying cause and mark it with the matching kind.
package errdefs

import "github.com/cockroachdb/errors"

var (
	// ErrConfiguration is an invalid or incomplete configuration. Never retried.
	ErrConfiguration = errors.New("invalid configuration")

	// ErrCredentialNotFound means the configured source and the .env fallback
	// were both exhausted without finding a required secret.
	ErrCredentialNotFound = errors.New("credential not found")

	// ErrCredentialBackendUnavailable means the configured secret store could
	// not be reached at all, independent of whether the secret exists.
	ErrCredentialBackendUnavailable = errors.New("credential backend unavailable")

	// ErrEngineNotFound means the restic executable is missing from PATH.
	ErrEngineNotFound = errors.New("backup engine not found")

	// ErrRepositoryInaccessible is a connectivity or authentication failure
	// talking to the storage backend.
	ErrRepositoryInaccessible = errors.New("repository inaccessible")

	// ErrRepositoryAlreadyInitialized is the engine's "repository already
	// exists" answer to init, surfaced distinctly so callers can treat it as
	// a benign idempotency signal.
	ErrRepositoryAlreadyInitialized = errors.New("repository already initialized")

	// ErrRepositoryCorrupted means the structural integrity check failed.
	// Never auto-repaired.
	ErrRepositoryCorrupted = errors.New("repository corrupted")

	// ErrEngineInvocation is any non-zero engine exit not matched to a more
	// specific kind. The wrapped cause carries the raw stderr.
	ErrEngineInvocation = errors.New("engine invocation failed")
)
