package config

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// Config is the full application configuration.
type Config struct {
	Remote   Remote   `yaml:"remote"`
	Transfer Transfer `yaml:"transfer"`
	LogLevel string   `yaml:"log_level" validate:"required,oneof=debug info warn error"`
}

// Remote configures the S3-compatible storage service.
type Remote struct {
	Endpoint  string `yaml:"endpoint" validate:"required"`
	AccessKey string `yaml:"access_key" validate:"required"`
	SecretKey string `yaml:"secret_key" validate:"required"`
	Bucket    string `yaml:"bucket" validate:"required"`
	Prefix    string `yaml:"prefix"`
	Secure    bool   `yaml:"secure"`
}

// Transfer configures the local side of a transfer run.
type Transfer struct {
	Root               string   `yaml:"root" validate:"required"`
	Concurrency        int      `yaml:"concurrency" validate:"min=1,max=256"`
	MaxEntryAgeDays    int      `yaml:"max_entry_age_days" validate:"min=0"`
	StateDir           string   `yaml:"state_dir"`
	DisablePersistence bool     `yaml:"disable_persistence"`
	MaxFileSize        int64    `yaml:"max_file_size" validate:"min=0"`
	AllowedMediaTypes  []string `yaml:"allowed_media_types"`
	MetricsAddr        string   `yaml:"metrics_addr" validate:"omitempty,hostname_port"`
	DryRun             bool     `yaml:"dry_run"`
}

// Load builds the configuration from defaults, then the YAML file (if
// given), then command line flag overrides, and validates the result.
func Load(configFile string, flags *pflag.FlagSet) (*Config, error) {
	cfg := &Config{
		LogLevel: "info",
		Transfer: Transfer{
			Concurrency:     8,
			MaxEntryAgeDays: 30,
		},
	}

	if configFile != "" {
		if err := loadFromFile(cfg, configFile); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	if err := loadFromFlags(cfg, flags); err != nil {
		return nil, fmt.Errorf("failed to load flags: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func loadFromFile(cfg *Config, filename string) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

func loadFromFlags(cfg *Config, flags *pflag.FlagSet) error {
	if flags == nil {
		return nil
	}

	if flags.Changed("endpoint") {
		cfg.Remote.Endpoint, _ = flags.GetString("endpoint")
	}
	if flags.Changed("access-key") {
		cfg.Remote.AccessKey, _ = flags.GetString("access-key")
	}
	if flags.Changed("secret-key") {
		cfg.Remote.SecretKey, _ = flags.GetString("secret-key")
	}
	if flags.Changed("bucket") {
		cfg.Remote.Bucket, _ = flags.GetString("bucket")
	}
	if flags.Changed("prefix") {
		cfg.Remote.Prefix, _ = flags.GetString("prefix")
	}
	if flags.Changed("secure") {
		cfg.Remote.Secure, _ = flags.GetBool("secure")
	}

	if flags.Changed("root") {
		cfg.Transfer.Root, _ = flags.GetString("root")
	}
	if flags.Changed("concurrency") {
		cfg.Transfer.Concurrency, _ = flags.GetInt("concurrency")
	}
	if flags.Changed("max-entry-age-days") {
		cfg.Transfer.MaxEntryAgeDays, _ = flags.GetInt("max-entry-age-days")
	}
	if flags.Changed("state-dir") {
		cfg.Transfer.StateDir, _ = flags.GetString("state-dir")
	}
	if flags.Changed("no-persistence") {
		cfg.Transfer.DisablePersistence, _ = flags.GetBool("no-persistence")
	}
	if flags.Changed("max-file-size") {
		cfg.Transfer.MaxFileSize, _ = flags.GetInt64("max-file-size")
	}
	if flags.Changed("metrics-addr") {
		cfg.Transfer.MetricsAddr, _ = flags.GetString("metrics-addr")
	}
	if flags.Changed("dry-run") {
		cfg.Transfer.DryRun, _ = flags.GetBool("dry-run")
	}
	if flags.Changed("log-level") {
		cfg.LogLevel, _ = flags.GetString("log-level")
	}

	return nil
}
