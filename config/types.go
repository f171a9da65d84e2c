package config

import "time"

// Config represents the complete configuration structure
type Config struct {
	Plex    PlexConfig    `mapstructure:"plex"`
	Export  ExportConfig  `mapstructure:"export"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// PlexConfig holds Plex Media Server connection details
type PlexConfig struct {
	URL       string        `mapstructure:"url"`
	Token     string        `mapstructure:"token"`
	Library   string        `mapstructure:"library"`
	AccountID string        `mapstructure:"account_id"`
	Timeout   time.Duration `mapstructure:"timeout"`
	RateLimit float64       `mapstructure:"rate_limit"`
}

// ExportConfig controls what is written and where
type ExportConfig struct {
	Output      string   `mapstructure:"output"`
	Tags        string   `mapstructure:"tags"`
	Filter      string   `mapstructure:"filter"`
	IDSchemes   []string `mapstructure:"id_schemes"`
	Concurrency int      `mapstructure:"concurrency"`
	DryRun      bool     `mapstructure:"dry_run"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Color  bool   `mapstructure:"color"`
}
