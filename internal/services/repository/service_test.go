package repository

import (
	"context"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/safestic/safestic/internal/errdefs"
	"github.com/safestic/safestic/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildURL(t *testing.T) {
	tests := []struct {
		name        string
		provider    models.StorageProvider
		target      string
		accountName string
		want        string
	}{
		{"local path", models.ProviderLocal, "/mnt/backup", "", "/mnt/backup"},
		{"aws bucket", models.ProviderAWS, "my-bucket", "", "s3:s3.amazonaws.com/my-bucket"},
		{"aws bucket with prefix", models.ProviderAWS, "my-bucket/restic", "", "s3:s3.amazonaws.com/my-bucket/restic"},
		{"azure container", models.ProviderAzure, "backups", "myaccount", "azure:myaccount:backups:restic"},
		{"gcp bucket", models.ProviderGCP, "my-bucket", "", "gs:my-bucket"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := BuildURL(tt.provider, tt.target, tt.accountName)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)

			// Same inputs, same output.
			again, err := BuildURL(tt.provider, tt.target, tt.accountName)
			require.NoError(t, err)
			assert.Equal(t, got, again)
		})
	}
}

func TestBuildURL_Errors(t *testing.T) {
	tests := []struct {
		name        string
		provider    models.StorageProvider
		target      string
		accountName string
	}{
		{"empty target", models.ProviderAWS, "", ""},
		{"azure without account", models.ProviderAzure, "backups", ""},
		{"unknown provider", "ftp", "target", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := BuildURL(tt.provider, tt.target, tt.accountName)
			require.Error(t, err)
			assert.True(t, errors.Is(err, errdefs.ErrConfiguration))
		})
	}
}

type stubResolver struct {
	values map[string]string
	err    error
}

func (s *stubResolver) Resolve(ctx context.Context, key string) (models.ResolvedCredential, error) {
	if s.err != nil {
		return models.ResolvedCredential{}, s.err
	}
	value, ok := s.values[key]
	if !ok {
		return models.ResolvedCredential{}, nil
	}
	return models.ResolvedCredential{Value: value, Found: true, Source: models.SourceEnv}, nil
}

func TestURL_AzureResolvesAccountName(t *testing.T) {
	svc := New(
		models.StorageSettings{Provider: models.ProviderAzure, Target: "backups"},
		&stubResolver{values: map[string]string{"AZURE_ACCOUNT_NAME": "myaccount"}},
	)

	url, err := svc.URL(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "azure:myaccount:backups:restic", url)
}

func TestURL_AzureMissingAccountName(t *testing.T) {
	svc := New(
		models.StorageSettings{Provider: models.ProviderAzure, Target: "backups"},
		&stubResolver{},
	)

	_, err := svc.URL(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, errdefs.ErrConfiguration))
}

func TestURL_NonAzureSkipsResolver(t *testing.T) {
	svc := New(
		models.StorageSettings{Provider: models.ProviderAWS, Target: "my-bucket"},
		&stubResolver{err: errors.New("resolver must not be called")},
	)

	url, err := svc.URL(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "s3:s3.amazonaws.com/my-bucket", url)
}
