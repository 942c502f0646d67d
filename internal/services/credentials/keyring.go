package credentials

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/safestic/safestic/internal/errdefs"
	"github.com/safestic/safestic/internal/models"
	"github.com/zalando/go-keyring"
)

// keyringBackend queries the OS-native secret store (Secret Service on
// Linux, Keychain on macOS, Credential Manager on Windows) under
// (namespace, key).
type keyringBackend struct{}

func (keyringBackend) Lookup(_ context.Context, req models.CredentialRequest) (string, bool, error) {
	value, err := keyring.Get(req.Namespace, req.Key)
	switch {
	case errors.Is(err, keyring.ErrNotFound):
		return "", false, nil
	case err != nil:
		// No daemon, no D-Bus session, locked collection: the store is
		// unreachable, which is not the same as the secret being unset.
		return "", false, errors.Mark(
			errors.Wrapf(err, "querying OS keyring for %s", req.Key),
			errdefs.ErrCredentialBackendUnavailable)
	case value == "":
		return "", false, nil
	}
	return value, true, nil
}
