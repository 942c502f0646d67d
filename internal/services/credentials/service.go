// Package credentials resolves named secrets against interchangeable
// backends: process environment, OS keyring, cloud secret managers and
// SOPS-encrypted files.
//
// Resolution distinguishes three outcomes. A secret may be found, it may be
// absent (a valid result, not an error), or the backend
// itself may be unreachable, which is surfaced as
// errdefs.ErrCredentialBackendUnavailable. A keyring daemon missing on a
// headless server must never look like "the user never set the password";
// the two call for different remediation.
package credentials

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
	"github.com/safestic/safestic/internal/errdefs"
	"github.com/safestic/safestic/internal/models"
)

// Resolver resolves a logical secret name to a value.
type Resolver interface {
	Resolve(ctx context.Context, key string) (models.ResolvedCredential, error)
}

// Backend is one concrete secret store. Lookup returns found=false for a
// missing secret and an error only when the store itself misbehaved.
type Backend interface {
	Lookup(ctx context.Context, req models.CredentialRequest) (value string, found bool, err error)
}

// Impl resolves secrets against a primary backend with an optional one-shot
// fallback to the process environment. It is stateless: no caching, no
// retries, every call queries the backend again.
type Impl struct {
	settings models.CredentialSettings
	primary  Backend
	env      Backend
	logger   zerolog.Logger
}

// New creates a resolver for the configured credential source. Store
// locators required by the source (vault URL, project id, SOPS file) are
// validated here so a broken setup fails at construction, not mid-backup.
func New(settings models.CredentialSettings, logger zerolog.Logger) (*Impl, error) {
	var primary Backend
	switch settings.Source {
	case models.SourceEnv:
		primary = envBackend{}
	case models.SourceKeyring:
		primary = keyringBackend{}
	case models.SourceAWSSecrets:
		primary = awsBackend{region: settings.AWSRegion}
	case models.SourceAzureKeyVault:
		if settings.AzureVaultURL == "" {
			return nil, errors.Mark(
				errors.New("AZURE_KEYVAULT_URL is required when credential source is azure_keyvault"),
				errdefs.ErrConfiguration)
		}
		primary = azureBackend{vaultURL: settings.AzureVaultURL}
	case models.SourceGCPSecrets:
		if settings.GCPProjectID == "" {
			return nil, errors.Mark(
				errors.New("GCP_PROJECT_ID is required when credential source is gcp_secrets"),
				errdefs.ErrConfiguration)
		}
		primary = gcpBackend{projectID: settings.GCPProjectID}
	case models.SourceSOPS:
		if settings.SOPSFile == "" {
			return nil, errors.Mark(
				errors.New("SOPS_FILE is required when credential source is sops"),
				errdefs.ErrConfiguration)
		}
		primary = sopsBackend{file: settings.SOPSFile, decryptor: &execDecryptor{}}
	default:
		return nil, errors.Mark(
			errors.Newf("unknown credential source %q", settings.Source),
			errdefs.ErrConfiguration)
	}

	return &Impl{
		settings: settings,
		primary:  primary,
		env:      envBackend{},
		logger:   logger,
	}, nil
}

// NewWithBackends creates a resolver with explicit backends (for testing).
func NewWithBackends(settings models.CredentialSettings, primary, env Backend, logger zerolog.Logger) *Impl {
	return &Impl{settings: settings, primary: primary, env: env, logger: logger}
}

// Resolve looks up key in the primary backend and, if the backend reports
// not-found and fallback is enabled, once in the process environment.
// Backend failures are propagated, never papered over by the fallback.
func (r *Impl) Resolve(ctx context.Context, key string) (models.ResolvedCredential, error) {
	req := models.CredentialRequest{Key: key, Namespace: r.settings.Namespace}

	value, found, err := r.primary.Lookup(ctx, req)
	if err != nil {
		return models.ResolvedCredential{}, err
	}
	if found {
		r.logger.Debug().Str("key", key).Str("source", string(r.settings.Source)).Msg("credential resolved")
		return models.ResolvedCredential{Value: value, Found: true, Source: r.settings.Source}, nil
	}

	if r.settings.FallbackToEnv && r.settings.Source != models.SourceEnv {
		value, found, _ = r.env.Lookup(ctx, req)
		if found {
			r.logger.Debug().Str("key", key).Msg("credential resolved from environment fallback")
			return models.ResolvedCredential{Value: value, Found: true, Source: models.SourceEnv}, nil
		}
	}

	r.logger.Debug().Str("key", key).Msg("credential not found in any source")
	return models.ResolvedCredential{}, nil
}
