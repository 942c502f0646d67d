package credentials

import (
	"context"

	"github.com/safestic/safestic/internal/models"
)

// KeyStatus reports the outcome of resolving one secret.
type KeyStatus struct {
	Key      string
	Found    bool
	Required bool
	// Source names the backend that satisfied the key; zero when not found.
	Source models.CredentialSource
}

// VerifyRequired resolves every secret the given provider needs and reports
// per-key outcomes. Backend failures abort immediately; a missing key does
// not, so operators see the full picture in one pass.
func VerifyRequired(ctx context.Context, r Resolver, provider models.StorageProvider) ([]KeyStatus, error) {
	var statuses []KeyStatus
	for _, key := range RequiredKeys(provider) {
		resolved, err := r.Resolve(ctx, key)
		if err != nil {
			return nil, err
		}
		statuses = append(statuses, KeyStatus{
			Key:      key,
			Found:    resolved.Found,
			Required: true,
			Source:   resolved.Source,
		})
	}
	for _, key := range OptionalKeys(provider) {
		resolved, err := r.Resolve(ctx, key)
		if err != nil {
			return nil, err
		}
		statuses = append(statuses, KeyStatus{
			Key:    key,
			Found:  resolved.Found,
			Source: resolved.Source,
		})
	}
	return statuses, nil
}

// MissingRequired filters statuses down to required keys that were not found.
func MissingRequired(statuses []KeyStatus) []string {
	var missing []string
	for _, s := range statuses {
		if s.Required && !s.Found {
			missing = append(missing, s.Key)
		}
	}
	return missing
}
