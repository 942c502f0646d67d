package credentials

import (
	"context"
	"net/http"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/security/keyvault/azsecrets"
	"github.com/cockroachdb/errors"
	"github.com/safestic/safestic/internal/errdefs"
	"github.com/safestic/safestic/internal/models"
)

// azureBackend reads secrets from an Azure Key Vault using the default
// credential chain (managed identity, CLI login, environment).
type azureBackend struct {
	vaultURL string
}

func (b azureBackend) Lookup(ctx context.Context, req models.CredentialRequest) (string, bool, error) {
	cred, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return "", false, errors.Mark(
			errors.Wrap(err, "building Azure credential chain"),
			errdefs.ErrCredentialBackendUnavailable)
	}
	client, err := azsecrets.NewClient(b.vaultURL, cred, nil)
	if err != nil {
		return "", false, errors.Mark(
			errors.Wrapf(err, "creating Key Vault client for %s", b.vaultURL),
			errdefs.ErrCredentialBackendUnavailable)
	}

	// Key Vault secret names do not allow underscores.
	name := strings.ReplaceAll(req.Key, "_", "-")

	resp, err := client.GetSecret(ctx, name, "", nil)
	var respErr *azcore.ResponseError
	switch {
	case errors.As(err, &respErr) && respErr.StatusCode == http.StatusNotFound:
		return "", false, nil
	case err != nil:
		return "", false, errors.Mark(
			errors.Wrapf(err, "querying Azure Key Vault for %s", req.Key),
			errdefs.ErrCredentialBackendUnavailable)
	}
	if resp.Value == nil || *resp.Value == "" {
		return "", false, nil
	}
	return *resp.Value, true, nil
}
