package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Output formats accepted by the format key.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatCSV  = "csv"
	FormatNone = "none"
)

const configName = "gcsspectre"

// Config holds all configuration for gcsspectre
type Config struct {
	// Directory that holds stored runs
	StorageDir string `mapstructure:"storage_dir"`

	// Console output format (text, json, csv, none)
	Format string `mapstructure:"format"`

	// Artifact paths written by investigate
	OutputJSON string `mapstructure:"output_json"`
	OutputCSV  string `mapstructure:"output_csv"`

	// GCP client settings. Empty credentials mean Application Default Credentials.
	CredentialsFile   string        `mapstructure:"credentials_file"`
	QuotaProject      string        `mapstructure:"quota_project"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	CallTimeout       time.Duration `mapstructure:"call_timeout"`

	// Explicit policy file; otherwise searched upward from the working directory
	PolicyFile string `mapstructure:"policy_file"`

	// Exit 1 when exposed buckets exceed this number (0 disables)
	FailThreshold int `mapstructure:"fail_threshold"`

	// Number of stored runs used by trend
	LastRuns int `mapstructure:"last_runs"`

	Verbose bool `mapstructure:"verbose"`
	Debug   bool `mapstructure:"debug"`
	NoColor bool `mapstructure:"no_color"`
}

// DefaultConfig returns configuration with default values
func DefaultConfig() *Config {
	return &Config{
		StorageDir:  ".gcsspectre",
		Format:      FormatText,
		OutputJSON:  "public_bucket_read_investigation.json",
		OutputCSV:   "public_bucket_read_summary.csv",
		CallTimeout: 30 * time.Second,
		LastRuns:    7,
	}
}

// Load loads configuration with the following precedence (lowest to highest):
// 1. Default values
// 2. Config file (./gcsspectre.yaml, ~/gcsspectre.yaml, $XDG_CONFIG_HOME/gcsspectre/gcsspectre.yaml)
// 3. Environment variables (GCSSPECTRE_*)
// 4. CLI flags (handled by caller)
func Load() (*Config, error) {
	return LoadFromFile("")
}

// LoadFromFile loads configuration from a specific file path.
// If path is empty, it searches for config in standard locations.
func LoadFromFile(configPath string) (*Config, error) {
	v := viper.New()

	defaults := DefaultConfig()
	v.SetDefault("storage_dir", defaults.StorageDir)
	v.SetDefault("format", defaults.Format)
	v.SetDefault("output_json", defaults.OutputJSON)
	v.SetDefault("output_csv", defaults.OutputCSV)
	v.SetDefault("credentials_file", "")
	v.SetDefault("quota_project", "")
	v.SetDefault("requests_per_second", 0.0)
	v.SetDefault("call_timeout", defaults.CallTimeout)
	v.SetDefault("policy_file", "")
	v.SetDefault("fail_threshold", defaults.FailThreshold)
	v.SetDefault("last_runs", defaults.LastRuns)
	v.SetDefault("verbose", false)
	v.SetDefault("debug", false)
	v.SetDefault("no_color", false)

	v.SetConfigName(configName)
	v.SetConfigType("yaml")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
		if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
			v.AddConfigPath(filepath.Join(xdgConfig, configName))
		}
	}

	v.SetEnvPrefix("GCSSPECTRE")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	switch c.Format {
	case FormatText, FormatJSON, FormatCSV, FormatNone:
	default:
		return fmt.Errorf("invalid format: %s (must be text, json, csv, or none)", c.Format)
	}

	if c.FailThreshold < 0 {
		return fmt.Errorf("fail_threshold cannot be negative")
	}
	if c.RequestsPerSecond < 0 {
		return fmt.Errorf("requests_per_second cannot be negative")
	}
	if c.CallTimeout < 0 {
		return fmt.Errorf("call_timeout cannot be negative")
	}
	if c.LastRuns <= 0 {
		return fmt.Errorf("last_runs must be positive")
	}
	if c.StorageDir == "" {
		return fmt.Errorf("storage_dir cannot be empty")
	}

	return nil
}

// GetStoragePath returns the absolute path to the storage directory
func (c *Config) GetStoragePath() (string, error) {
	if strings.HasPrefix(c.StorageDir, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		return filepath.Join(home, c.StorageDir[2:]), nil
	}

	absPath, err := filepath.Abs(c.StorageDir)
	if err != nil {
		return "", fmt.Errorf("failed to get absolute path: %w", err)
	}

	return absPath, nil
}

// ShouldFailOnThreshold checks if the exposed bucket count exceeds the threshold
func (c *Config) ShouldFailOnThreshold(exposed int) bool {
	if c.FailThreshold == 0 {
		return false
	}
	return exposed > c.FailThreshold
}

// ConfigPath returns where `gcsspectre config --init` writes the config file.
func ConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, configName, configName+".yaml")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, configName+".yaml")
	}
	return configName + ".yaml"
}

// WriteSample writes the sample configuration to path, creating parent
// directories. An existing file is left untouched unless force is set.
func WriteSample(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config file already exists: %s", path)
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(GenerateSampleConfig()), 0600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// GenerateSampleConfig generates a sample configuration file content
func GenerateSampleConfig() string {
	return `# gcsspectre configuration
# Save this file as ./gcsspectre.yaml, ~/gcsspectre.yaml
# or $XDG_CONFIG_HOME/gcsspectre/gcsspectre.yaml

# Directory to store investigation runs
storage_dir: .gcsspectre

# Console output format: text, json, csv, or none
format: text

# Artifacts written by investigate
output_json: public_bucket_read_investigation.json
output_csv: public_bucket_read_summary.csv

# Service account key; leave empty for Application Default Credentials
# credentials_file: /path/to/key.json

# Project billed for API quota
# quota_project: my-billing-project

# Client-side rate limit across all API calls (0 disables)
requests_per_second: 0

# Timeout for a single API call
call_timeout: 30s

# Policy file; searched upward from the working directory when empty
# policy_file: .gcsspectre-policy.yaml

# Fail threshold for CI/CD (exit code 1 if exposed buckets exceed this number)
# Set to 0 to disable threshold checking
fail_threshold: 0

# Number of stored runs analyzed by trend
last_runs: 7

verbose: false
debug: false
no_color: false
`
}
