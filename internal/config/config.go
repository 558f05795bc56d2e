// Package config loads cellveyor settings from YAML, .env files and the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override, e.g. CELLVEYOR_GITHUB_TOKEN.
const EnvPrefix = "CELLVEYOR"

// Config holds all configuration for the application.
type Config struct {
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	LogServer LogServerConfig `yaml:"log_server" envconfig:"LOG_SERVER"`
	GitHub    GitHubConfig    `yaml:"github" envconfig:"GITHUB"`
	Storage   StorageConfig   `yaml:"storage" envconfig:"STORAGE"`
	Display   DisplayConfig   `yaml:"display" envconfig:"DISPLAY"`
	Watch     WatchConfig     `yaml:"watch" envconfig:"WATCH"`
}

// LoggingConfig selects log level and destination.
type LoggingConfig struct {
	Level         string `yaml:"level" split_words:"true"`
	Destination   string `yaml:"destination" split_words:"true"`
	SyslogAddress string `yaml:"syslog_address" split_words:"true"`
}

// LogServerConfig holds telemetry server settings.
type LogServerConfig struct {
	Host         string        `yaml:"host" split_words:"true"`
	Port         int           `yaml:"port" split_words:"true"`
	HTTPPort     int           `yaml:"http_port" split_words:"true"`
	LogFile      string        `yaml:"log_file" split_words:"true"`
	MaxSizeMB    int           `yaml:"max_size_mb" split_words:"true"`
	MaxBackups   int           `yaml:"max_backups" split_words:"true"`
	RecentLines  int           `yaml:"recent_lines" split_words:"true"`
	PollInterval time.Duration `yaml:"poll_interval" split_words:"true"`
}

// Address returns the UDP listen address.
func (c LogServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// HTTPAddress returns the HTTP listen address.
func (c LogServerConfig) HTTPAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.HTTPPort)
}

// GitHubConfig holds delivery settings.
type GitHubConfig struct {
	Token             string  `yaml:"token" split_words:"true"`
	Organization      string  `yaml:"organization" split_words:"true"`
	RepositoryPrefix  string  `yaml:"repository_prefix" split_words:"true"`
	PullRequest       int     `yaml:"pull_request" split_words:"true"`
	BaseURL           string  `yaml:"base_url" split_words:"true"`
	RequestsPerSecond float64 `yaml:"requests_per_second" split_words:"true"`
	Concurrency       int     `yaml:"concurrency" split_words:"true"`
}

// StorageConfig holds the delivery ledger location.
type StorageConfig struct {
	DatabasePath string `yaml:"database_path" split_words:"true"`
}

// DisplayConfig holds console rendering defaults.
type DisplayConfig struct {
	Format string `yaml:"format" split_words:"true"`
	Layout string `yaml:"layout" split_words:"true"`
}

// WatchConfig holds watch mode settings.
type WatchConfig struct {
	Debounce time.Duration `yaml:"debounce" split_words:"true"`
}

// Load builds the configuration. The YAML file at path is optional: an empty
// path or a missing file yields defaults. A .env file next to the config file
// (or in the working directory) is loaded first without overriding the
// environment, then CELLVEYOR_* variables override file values.
func Load(path string) (*Config, error) {
	var cfg Config
	configDir := "."

	if path != "" {
		configDir = filepath.Dir(path)
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		case errors.Is(err, fs.ErrNotExist):
		default:
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	if err := godotenv.Load(filepath.Join(configDir, ".env")); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}
	if cfg.GitHub.Token == "" {
		cfg.GitHub.Token = os.Getenv("GITHUB_TOKEN")
	}

	ApplyDefaults(&cfg)

	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	cfg.LogServer.LogFile = expandPath(cfg.LogServer.LogFile, configDir)

	return &cfg, nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		if abs, err := filepath.Abs(filepath.Join(configDir, path)); err == nil {
			return abs
		}
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}

// Save writes cfg to path as YAML.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Redacted returns a copy of cfg safe to print.
func (c Config) Redacted() Config {
	if c.GitHub.Token != "" {
		c.GitHub.Token = "********"
	}
	return c
}
