// Package repository maps a storage provider and target to the connection
// string the backup engine consumes.
package repository

import (
	"context"
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/safestic/safestic/internal/errdefs"
	"github.com/safestic/safestic/internal/models"
	"github.com/safestic/safestic/internal/services/credentials"
)

// BuildURL is the pure provider table. The same (provider, target, account)
// triple always yields the same string; the account name is only consulted
// for azure.
func BuildURL(provider models.StorageProvider, target, accountName string) (string, error) {
	if target == "" {
		return "", errors.Mark(errors.New("storage target is empty"), errdefs.ErrConfiguration)
	}
	switch provider {
	case models.ProviderLocal:
		return target, nil
	case models.ProviderAWS:
		return "s3:s3.amazonaws.com/" + target, nil
	case models.ProviderAzure:
		if accountName == "" {
			return "", errors.Mark(
				errors.New("azure storage requires an account name"),
				errdefs.ErrConfiguration)
		}
		return fmt.Sprintf("azure:%s:%s:restic", accountName, target), nil
	case models.ProviderGCP:
		return "gs:" + target, nil
	default:
		return "", errors.Mark(
			errors.Newf("unsupported storage provider %q", provider),
			errdefs.ErrConfiguration)
	}
}

// Service resolves the repository connection string for one configuration.
type Service interface {
	URL(ctx context.Context) (string, error)
}

// Impl builds connection strings, resolving the azure account name through
// the credential resolver since it may live in a secret store rather than
// the config file.
type Impl struct {
	storage  models.StorageSettings
	resolver credentials.Resolver
}

// New creates a repository URL service.
func New(storage models.StorageSettings, resolver credentials.Resolver) *Impl {
	return &Impl{storage: storage, resolver: resolver}
}

// URL returns the engine connection string for the configured repository.
func (s *Impl) URL(ctx context.Context) (string, error) {
	var accountName string
	if s.storage.Provider == models.ProviderAzure {
		resolved, err := s.resolver.Resolve(ctx, credentials.KeyAzureAccountName)
		if err != nil {
			return "", err
		}
		if !resolved.Found {
			return "", errors.Mark(
				errors.Newf("%s is not resolvable from any configured source", credentials.KeyAzureAccountName),
				errdefs.ErrConfiguration)
		}
		accountName = resolved.Value
	}
	return BuildURL(s.storage.Provider, s.storage.Target, accountName)
}
