package credentials

import "github.com/safestic/safestic/internal/models"

// Canonical secret names. These are the only keys the engine client ever
// resolves and injects into the subprocess environment.
const (
	KeyResticPassword = "RESTIC_PASSWORD"

	KeyAWSAccessKeyID     = "AWS_ACCESS_KEY_ID"
	KeyAWSSecretAccessKey = "AWS_SECRET_ACCESS_KEY" //nolint:gosec // secret name, not a secret
	KeyAWSDefaultRegion   = "AWS_DEFAULT_REGION"

	KeyAzureAccountName = "AZURE_ACCOUNT_NAME"
	KeyAzureAccountKey  = "AZURE_ACCOUNT_KEY"

	KeyGoogleCredentials = "GOOGLE_APPLICATION_CREDENTIALS"
	KeyGoogleProjectID   = "GOOGLE_PROJECT_ID"
)

// RequiredKeys returns the secrets a storage provider cannot run without.
// The repository password is always required and always first.
func RequiredKeys(provider models.StorageProvider) []string {
	keys := []string{KeyResticPassword}
	switch provider {
	case models.ProviderAWS:
		keys = append(keys, KeyAWSAccessKeyID, KeyAWSSecretAccessKey)
	case models.ProviderAzure:
		keys = append(keys, KeyAzureAccountName, KeyAzureAccountKey)
	case models.ProviderGCP:
		keys = append(keys, KeyGoogleCredentials, KeyGoogleProjectID)
	case models.ProviderLocal:
	}
	return keys
}

// OptionalKeys returns secrets that are injected when present but whose
// absence is not an error.
func OptionalKeys(provider models.StorageProvider) []string {
	if provider == models.ProviderAWS {
		return []string{KeyAWSDefaultRegion}
	}
	return nil
}
