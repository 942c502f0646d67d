package credentials

import (
	"context"
	"os"

	"github.com/safestic/safestic/internal/models"
)

// envBackend reads the process environment. The .env file is loaded into the
// environment at CLI startup, so this backend covers both.
type envBackend struct{}

func (envBackend) Lookup(_ context.Context, req models.CredentialRequest) (string, bool, error) {
	value, ok := os.LookupEnv(req.Key)
	if !ok || value == "" {
		return "", false, nil
	}
	return value, true, nil
}
