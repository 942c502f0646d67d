package credentials

import (
	"context"
	"os"
	"os/exec"

	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
	"github.com/safestic/safestic/internal/errdefs"
	"github.com/safestic/safestic/internal/models"
)

// Decryptor decrypts a SOPS-encrypted file. Split out so tests can avoid
// the sops binary.
type Decryptor interface {
	Decrypt(ctx context.Context, path string) ([]byte, error)
}

type execDecryptor struct{}

func (*execDecryptor) Decrypt(ctx context.Context, path string) ([]byte, error) {
	return exec.CommandContext(ctx, "sops", "--decrypt", path).Output()
}

// sopsBackend decrypts a dotenv-formatted file with sops on every lookup.
// Decryption never hits the disk; the plaintext stays in memory.
type sopsBackend struct {
	file      string
	decryptor Decryptor
}

func (b sopsBackend) Lookup(ctx context.Context, req models.CredentialRequest) (string, bool, error) {
	if _, err := os.Stat(b.file); err != nil {
		return "", false, errors.Mark(
			errors.Wrapf(err, "SOPS file %s", b.file),
			errdefs.ErrCredentialBackendUnavailable)
	}

	plaintext, err := b.decryptor.Decrypt(ctx, b.file)
	if err != nil {
		// Missing sops binary and failed decryption are both store-side
		// failures; the secret's existence is unknown either way.
		return "", false, errors.Mark(
			errors.Wrapf(err, "decrypting %s with sops", b.file),
			errdefs.ErrCredentialBackendUnavailable)
	}

	values, err := godotenv.UnmarshalBytes(plaintext)
	if err != nil {
		return "", false, errors.Mark(
			errors.Wrapf(err, "parsing decrypted %s as dotenv", b.file),
			errdefs.ErrCredentialBackendUnavailable)
	}

	value, ok := values[req.Key]
	if !ok || value == "" {
		return "", false, nil
	}
	return value, true, nil
}
