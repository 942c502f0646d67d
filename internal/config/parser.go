// Package config parses the .env configuration file into a typed Config.
package config

import (
	"os"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/safestic/safestic/internal/errdefs"
	"github.com/safestic/safestic/internal/models"
	"github.com/spf13/viper"
)

// Parser handles configuration file parsing.
type Parser struct {
	v *viper.Viper
}

// NewParser creates a new configuration parser.
func NewParser() *Parser {
	v := viper.New()
	v.SetConfigType("env")
	return &Parser{v: v}
}

// LoadFile loads configuration from a .env file path.
func (p *Parser) LoadFile(path string) (*models.Config, error) {
	p.v.SetConfigFile(path)
	p.v.SetConfigType("env")

	if err := p.v.ReadInConfig(); err != nil {
		return nil, errors.Mark(
			errors.Wrap(err, "reading config file"),
			errdefs.ErrConfiguration)
	}
	return p.parse()
}

// LoadReader loads configuration from a string (useful for testing).
func (p *Parser) LoadReader(content string) (*models.Config, error) {
	if err := p.v.ReadConfig(strings.NewReader(content)); err != nil {
		return nil, errors.Mark(
			errors.Wrap(err, "reading config"),
			errdefs.ErrConfiguration)
	}
	return p.parse()
}

func configErrorf(format string, args ...interface{}) error {
	return errors.Mark(errors.Newf(format, args...), errdefs.ErrConfiguration)
}

//nolint:gocognit,gocyclo // parsing config requires checking many fields
func (p *Parser) parse() (*models.Config, error) {
	cfg := &models.Config{}

	cfg.Storage = models.StorageSettings{
		Provider: models.StorageProvider(strings.ToLower(p.v.GetString("storage_provider"))),
		Target:   p.v.GetString("storage_bucket"),
	}
	if cfg.Storage.Provider == "" {
		return nil, configErrorf("STORAGE_PROVIDER is required")
	}
	if !cfg.Storage.Provider.Valid() {
		return nil, configErrorf("STORAGE_PROVIDER must be one of: local, aws, azure, gcp")
	}
	if cfg.Storage.Target == "" {
		return nil, configErrorf("STORAGE_BUCKET is required")
	}

	cfg.Credentials = models.CredentialSettings{
		Source:        models.CredentialSource(strings.ToLower(p.v.GetString("credential_source"))),
		Namespace:     p.v.GetString("credential_namespace"),
		FallbackToEnv: true,
		AWSRegion:     p.v.GetString("aws_region"),
		AzureVaultURL: p.v.GetString("azure_keyvault_url"),
		GCPProjectID:  p.v.GetString("gcp_project_id"),
		SOPSFile:      p.v.GetString("sops_file"),
	}
	if cfg.Credentials.Source == "" {
		cfg.Credentials.Source = models.SourceEnv
	}
	if !cfg.Credentials.Source.Valid() {
		return nil, configErrorf(
			"CREDENTIAL_SOURCE must be one of: env, keyring, aws_secrets, azure_keyvault, gcp_secrets, sops")
	}
	if cfg.Credentials.Namespace == "" {
		cfg.Credentials.Namespace = "safestic"
	}
	if p.v.IsSet("credential_fallback_to_env") {
		cfg.Credentials.FallbackToEnv = p.v.GetBool("credential_fallback_to_env")
	}

	cfg.Backup = models.BackupSettings{
		Paths:    splitList(p.v.GetString("backup_source_dirs")),
		Excludes: splitList(p.v.GetString("restic_excludes")),
		Tags:     splitList(p.v.GetString("restic_tags")),
		Host:     p.v.GetString("backup_host"),
	}
	if cfg.Backup.Host == "" {
		hostname, err := os.Hostname()
		if err != nil {
			cfg.Backup.Host = "unknown"
		} else {
			cfg.Backup.Host = hostname
		}
	}

	cfg.Restore = models.RestoreSettings{
		TargetDir: p.v.GetString("restore_target_dir"),
	}

	cfg.Retention = models.RetentionPolicy{
		Enabled:     p.v.GetBool("retention_enabled"),
		KeepHourly:  p.v.GetInt("keep_hourly"),
		KeepDaily:   p.v.GetInt("keep_daily"),
		KeepWeekly:  p.v.GetInt("keep_weekly"),
		KeepMonthly: p.v.GetInt("keep_monthly"),
	}
	// Defaults apply only when no keep count appears in the file at all.
	// An explicit zero is the operator's choice and must reach Validate.
	if !p.v.IsSet("keep_hourly") && !p.v.IsSet("keep_daily") &&
		!p.v.IsSet("keep_weekly") && !p.v.IsSet("keep_monthly") {
		cfg.Retention.KeepDaily = 7
		cfg.Retention.KeepWeekly = 4
		cfg.Retention.KeepMonthly = 6
	}

	cfg.Check = models.CheckSettings{
		Enabled: p.v.GetBool("check_enabled"),
		Subset:  p.v.GetString("check_subset"),
	}

	if p.v.IsSet("wake_mac_address") { //nolint:nestif // optional block with defaults
		cfg.Wake = &models.WakeConfig{
			MACAddress:    p.v.GetString("wake_mac_address"),
			BroadcastIP:   p.v.GetString("wake_broadcast_ip"),
			PollURL:       p.v.GetString("wake_poll_url"),
			Timeout:       p.v.GetDuration("wake_timeout"),
			PollInterval:  p.v.GetDuration("wake_poll_interval"),
			StabilizeWait: p.v.GetDuration("wake_stabilize_wait"),
		}
		if cfg.Wake.BroadcastIP == "" {
			cfg.Wake.BroadcastIP = "255.255.255.255"
		}
		if cfg.Wake.Timeout == 0 {
			cfg.Wake.Timeout = 5 * time.Minute
		}
		if cfg.Wake.PollInterval == 0 {
			cfg.Wake.PollInterval = 10 * time.Second
		}
		if cfg.Wake.StabilizeWait == 0 {
			cfg.Wake.StabilizeWait = 10 * time.Second
		}
	}

	if p.v.IsSet("shutdown_host") { //nolint:nestif // optional block with defaults
		cfg.Shutdown = &models.ShutdownConfig{
			Host:         p.v.GetString("shutdown_host"),
			Port:         p.v.GetInt("shutdown_port"),
			Username:     p.v.GetString("shutdown_username"),
			KeyPath:      os.ExpandEnv(p.v.GetString("shutdown_key_path")),
			DelayMinutes: p.v.GetInt("shutdown_delay_minutes"),
		}
		if cfg.Shutdown.Port == 0 {
			cfg.Shutdown.Port = 22
		}
		if cfg.Shutdown.Username == "" {
			cfg.Shutdown.Username = "root"
		}
		if cfg.Shutdown.KeyPath == "" {
			return nil, configErrorf("SHUTDOWN_KEY_PATH is required when shutdown is configured")
		}
		if cfg.Shutdown.DelayMinutes == 0 {
			cfg.Shutdown.DelayMinutes = 1
		}
	}

	if p.v.IsSet("telegram_bot_token") {
		cfg.Telegram = &models.TelegramConfig{
			BotToken: p.v.GetString("telegram_bot_token"),
			ChatID:   p.v.GetString("telegram_chat_id"),
		}
		if cfg.Telegram.ChatID == "" {
			return nil, configErrorf("TELEGRAM_CHAT_ID is required when telegram is configured")
		}
	}

	return cfg, nil
}

// splitList parses a comma-separated value, trimming whitespace and dropping
// empty entries.
func splitList(s string) []string {
	if s == "" {
		return nil
	}
	var items []string
	for _, item := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}

// Validate performs structural validation on the loaded configuration.
// Secret presence is deliberately not checked here; that depends on the
// credential source and is verified separately.
func Validate(cfg *models.Config) error {
	if cfg == nil {
		return configErrorf("configuration is nil")
	}
	if !cfg.Storage.Provider.Valid() {
		return configErrorf("unknown storage provider %q", cfg.Storage.Provider)
	}
	if cfg.Storage.Target == "" {
		return configErrorf("STORAGE_BUCKET is required")
	}
	if !cfg.Credentials.Source.Valid() {
		return configErrorf("unknown credential source %q", cfg.Credentials.Source)
	}
	if cfg.Retention.Enabled {
		if cfg.Retention.KeepHourly < 0 || cfg.Retention.KeepDaily < 0 ||
			cfg.Retention.KeepWeekly < 0 || cfg.Retention.KeepMonthly < 0 {
			return configErrorf("retention keep counts must not be negative")
		}
		if cfg.Retention.KeepHourly == 0 && cfg.Retention.KeepDaily == 0 &&
			cfg.Retention.KeepWeekly == 0 && cfg.Retention.KeepMonthly == 0 {
			return configErrorf("retention is enabled but every keep count is zero")
		}
	}
	return nil
}

// ValidateSecrets checks that every secret the provider requires is present
// in the process environment. It only applies when the credential source is
// env; other sources are queried lazily at resolve time.
func ValidateSecrets(cfg *models.Config, requiredKeys []string, lookupEnv func(string) (string, bool)) error {
	if cfg.Credentials.Source != models.SourceEnv {
		return nil
	}
	var missing []string
	for _, key := range requiredKeys {
		if value, ok := lookupEnv(key); !ok || value == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return configErrorf("missing required secrets in environment: %s", strings.Join(missing, ", "))
	}
	return nil
}
