package restic

import (
	"os/exec"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/safestic/safestic/internal/errdefs"
)

// Exit code restic uses when the repository does not exist (0.17+).
const exitNoRepository = 10

var networkPatterns = []string{
	"dial tcp",
	"connection refused",
	"connection reset",
	"no such host",
	"network is unreachable",
	"i/o timeout",
	"timeout",
}

var authPatterns = []string{
	"wrong password",
	"no key could be found",
	"authentication",
	"access denied",
	"invalid credentials",
	"permission denied",
	"signature does not match",
}

var alreadyInitializedPatterns = []string{
	"already initialized",
	"config file already exists",
}

var corruptionPatterns = []string{
	"repository contains errors",
	"not referenced in any index",
	"not found in index",
	"ciphertext verification failed",
	"hash does not match",
	"invalid pack file",
}

var notInitializedPatterns = []string{
	"is there a repository at the following location",
	"repository does not exist",
	"repository not found",
	"unable to open config file",
}

func containsAny(s string, patterns []string) bool {
	for _, p := range patterns {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}

func exitCode(err error) int {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}

// isCorrupted reports whether check output describes damaged repository data
// rather than a failure to reach the repository or run the check at all.
func isCorrupted(stderr []byte) bool {
	return containsAny(strings.ToLower(string(stderr)), corruptionPatterns)
}

// isNotInitialized reports whether a failure means "no repository here yet".
// That is a normal answer to a connectivity probe, not an error.
func isNotInitialized(err error, stderr []byte) bool {
	if exitCode(err) == exitNoRepository {
		return true
	}
	return containsAny(strings.ToLower(string(stderr)), notInitializedPatterns)
}

// classify maps a subprocess failure to the error taxonomy using the exit
// error and stderr patterns. Unrecognized failures become a generic
// invocation error carrying the raw stderr for diagnosis.
func classify(err error, stderr []byte) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, exec.ErrNotFound) {
		return errors.Mark(
			errors.Wrap(err, "restic executable not found in PATH"),
			errdefs.ErrEngineNotFound)
	}

	msg := strings.ToLower(string(stderr))
	switch {
	case containsAny(msg, alreadyInitializedPatterns):
		return errors.Mark(
			errors.Wrap(err, "repository is already initialized"),
			errdefs.ErrRepositoryAlreadyInitialized)
	case containsAny(msg, networkPatterns), containsAny(msg, authPatterns):
		return errors.Mark(
			errors.Wrapf(err, "cannot reach repository: %s", strings.TrimSpace(string(stderr))),
			errdefs.ErrRepositoryInaccessible)
	default:
		return errors.Mark(
			errors.Wrapf(err, "restic exited with code %d: %s", exitCode(err), strings.TrimSpace(string(stderr))),
			errdefs.ErrEngineInvocation)
	}
}
