package config

import "time"

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "ERROR"
	}
	if cfg.Logging.Destination == "" {
		cfg.Logging.Destination = "console"
	}
	if cfg.LogServer.Host == "" {
		cfg.LogServer.Host = "127.0.0.1"
	}
	if cfg.LogServer.Port == 0 {
		cfg.LogServer.Port = 2525
	}
	if cfg.LogServer.HTTPPort == 0 {
		cfg.LogServer.HTTPPort = 2526
	}
	if cfg.Logging.SyslogAddress == "" {
		cfg.Logging.SyslogAddress = cfg.LogServer.Address()
	}
	if cfg.LogServer.LogFile == "" {
		cfg.LogServer.LogFile = "./.discover.log"
	}
	if cfg.LogServer.MaxSizeMB == 0 {
		cfg.LogServer.MaxSizeMB = 1
	}
	if cfg.LogServer.MaxBackups == 0 {
		cfg.LogServer.MaxBackups = 1
	}
	if cfg.LogServer.RecentLines == 0 {
		cfg.LogServer.RecentLines = 500
	}
	if cfg.LogServer.PollInterval == 0 {
		cfg.LogServer.PollInterval = 500 * time.Millisecond
	}
	if cfg.GitHub.BaseURL == "" {
		cfg.GitHub.BaseURL = "https://api.github.com"
	}
	if cfg.GitHub.PullRequest == 0 {
		cfg.GitHub.PullRequest = 1
	}
	if cfg.GitHub.RequestsPerSecond == 0 {
		cfg.GitHub.RequestsPerSecond = 1
	}
	if cfg.GitHub.Concurrency == 0 {
		cfg.GitHub.Concurrency = 4
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = ".cellveyor/deliveries.db"
	}
	if cfg.Display.Format == "" {
		cfg.Display.Format = "panel"
	}
	if cfg.Display.Layout == "" {
		cfg.Display.Layout = "compact"
	}
	if cfg.Watch.Debounce == 0 {
		cfg.Watch.Debounce = 300 * time.Millisecond
	}
}
