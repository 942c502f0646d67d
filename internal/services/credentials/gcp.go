package credentials

import (
	"context"
	"fmt"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"github.com/cockroachdb/errors"
	"github.com/safestic/safestic/internal/errdefs"
	"github.com/safestic/safestic/internal/models"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// gcpBackend reads the latest version of a secret from Google Cloud Secret
// Manager under projects/<project>/secrets/<key>.
type gcpBackend struct {
	projectID string
}

func (b gcpBackend) Lookup(ctx context.Context, req models.CredentialRequest) (string, bool, error) {
	client, err := secretmanager.NewClient(ctx)
	if err != nil {
		return "", false, errors.Mark(
			errors.Wrap(err, "creating Secret Manager client"),
			errdefs.ErrCredentialBackendUnavailable)
	}
	defer func() { _ = client.Close() }()

	name := fmt.Sprintf("projects/%s/secrets/%s/versions/latest", b.projectID, req.Key)
	resp, err := client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{Name: name})
	switch {
	case status.Code(err) == codes.NotFound:
		return "", false, nil
	case err != nil:
		return "", false, errors.Mark(
			errors.Wrapf(err, "querying Secret Manager for %s", req.Key),
			errdefs.ErrCredentialBackendUnavailable)
	}

	value := string(resp.GetPayload().GetData())
	if value == "" {
		return "", false, nil
	}
	return value, true, nil
}
