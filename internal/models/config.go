// Package models contains the data structures used throughout safestic.
package models

// StorageProvider identifies where the restic repository lives.
type StorageProvider string

// Supported storage providers.
const (
	ProviderLocal StorageProvider = "local"
	ProviderAWS   StorageProvider = "aws"
	ProviderAzure StorageProvider = "azure"
	ProviderGCP   StorageProvider = "gcp"
)

// Valid reports whether p is a known storage provider.
func (p StorageProvider) Valid() bool {
	switch p {
	case ProviderLocal, ProviderAWS, ProviderAzure, ProviderGCP:
		return true
	}
	return false
}

// CredentialSource identifies the secret store credentials are resolved from.
type CredentialSource string

// Supported credential sources.
const (
	SourceEnv           CredentialSource = "env"
	SourceKeyring       CredentialSource = "keyring"
	SourceAWSSecrets    CredentialSource = "aws_secrets"
	SourceAzureKeyVault CredentialSource = "azure_keyvault"
	SourceGCPSecrets    CredentialSource = "gcp_secrets"
	SourceSOPS          CredentialSource = "sops"
)

// Valid reports whether s is a known credential source.
func (s CredentialSource) Valid() bool {
	switch s {
	case SourceEnv, SourceKeyring, SourceAWSSecrets, SourceAzureKeyVault, SourceGCPSecrets, SourceSOPS:
		return true
	}
	return false
}

// Config is the complete, immutable configuration for one backup setup.
// It is built once from the .env file and passed explicitly; services never
// read ambient environment variables for configuration.
type Config struct {
	Storage     StorageSettings
	Credentials CredentialSettings
	Backup      BackupSettings
	Restore     RestoreSettings
	Retention   RetentionPolicy
	Check       CheckSettings

	Wake     *WakeConfig     // nil if not configured
	Shutdown *ShutdownConfig // nil if not configured
	Telegram *TelegramConfig // nil if not configured
}

// StorageSettings describes the repository location.
type StorageSettings struct {
	Provider StorageProvider
	// Target is the bucket, container or filesystem path; its meaning
	// depends on Provider.
	Target string
}

// CredentialSettings selects and parameterizes the secret store.
type CredentialSettings struct {
	Source CredentialSource
	// Namespace groups secrets of one configuration inside a shared store
	// (keyring service name, Secrets Manager id prefix).
	Namespace string
	// FallbackToEnv enables the one-shot fallback to process environment
	// variables when the primary source reports not-found.
	FallbackToEnv bool

	// Store locators. Only the one matching Source is consulted.
	AWSRegion     string
	AzureVaultURL string
	GCPProjectID  string
	SOPSFile      string
}

// BackupSettings holds backup-specific settings.
type BackupSettings struct {
	Paths    []string
	Excludes []string
	Tags     []string
	Host     string
}

// RestoreSettings holds restore-specific settings.
type RestoreSettings struct {
	// TargetDir is the destination root; every restore lands in a
	// snapshot-timestamped subdirectory below it.
	TargetDir string
}

// RetentionPolicy defines how many snapshots to keep per time bucket.
type RetentionPolicy struct {
	Enabled     bool
	KeepHourly  int
	KeepDaily   int
	KeepWeekly  int
	KeepMonthly int
}

// CheckSettings defines repository integrity check behavior.
type CheckSettings struct {
	Enabled bool
	Subset  string // --read-data-subset value, e.g. "1%"
}
