package credentials

import (
	"context"
	"encoding/json"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	smtypes "github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"
	"github.com/cockroachdb/errors"
	"github.com/safestic/safestic/internal/errdefs"
	"github.com/safestic/safestic/internal/models"
)

// awsBackend reads secrets from AWS Secrets Manager under the id
// <namespace>/<key>. The secret payload may be a plain string or a JSON
// object holding the value under the key name.
type awsBackend struct {
	region string
}

func (b awsBackend) Lookup(ctx context.Context, req models.CredentialRequest) (string, bool, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if b.region != "" {
		opts = append(opts, awsconfig.WithRegion(b.region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return "", false, errors.Mark(
			errors.Wrap(err, "loading AWS configuration"),
			errdefs.ErrCredentialBackendUnavailable)
	}

	client := secretsmanager.NewFromConfig(cfg)
	out, err := client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(req.Namespace + "/" + req.Key),
	})
	var notFound *smtypes.ResourceNotFoundException
	switch {
	case errors.As(err, &notFound):
		return "", false, nil
	case err != nil:
		return "", false, errors.Mark(
			errors.Wrapf(err, "querying AWS Secrets Manager for %s", req.Key),
			errdefs.ErrCredentialBackendUnavailable)
	}
	if out.SecretString == nil {
		return "", false, nil
	}

	secret := *out.SecretString
	var fields map[string]string
	if json.Unmarshal([]byte(secret), &fields) == nil {
		value, ok := fields[req.Key]
		return value, ok && value != "", nil
	}
	return secret, secret != "", nil
}
