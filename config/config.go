package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/viper"

	"github.com/s0up4200/plex2letterboxd/export"
	"github.com/s0up4200/plex2letterboxd/letterboxd"
	"github.com/s0up4200/plex2letterboxd/plex"
)

// envPrefix namespaces every setting, e.g. PLEX2LETTERBOXD_PLEX_TOKEN
const envPrefix = "PLEX2LETTERBOXD"

// Load loads the configuration from file and environment. A config file is
// optional unless configPath names one explicitly.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set default values
	setDefaults(v)
	bindEnv(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// Look for config in standard locations
		v.SetConfigName("config")
		v.SetConfigType("yaml")

		// Check current directory first
		v.AddConfigPath(".")

		// Check home directory
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".plex2letterboxd"))
		}

		// Check /etc
		v.AddConfigPath("/etc/plex2letterboxd/")
	}

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) || configPath != "" {
			return nil, fmt.Errorf("error reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	normalize(&cfg)

	// Validate configuration
	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Plex defaults
	v.SetDefault("plex.url", "http://localhost:32400")
	v.SetDefault("plex.token", "")
	v.SetDefault("plex.library", "Movies")
	v.SetDefault("plex.account_id", plex.DefaultAccountID)
	v.SetDefault("plex.timeout", plex.DefaultTimeout)
	v.SetDefault("plex.rate_limit", 0)

	// Export defaults
	v.SetDefault("export.output", "plex_watch_history.csv")
	v.SetDefault("export.tags", letterboxd.DefaultTags)
	v.SetDefault("export.filter", "")
	v.SetDefault("export.id_schemes", slices.Clone(export.DefaultIDSchemes))
	v.SetDefault("export.concurrency", export.DefaultConcurrency)
	v.SetDefault("export.dry_run", false)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.color", true)
}

// bindEnv maps environment variables onto config keys. The short names
// PLEX_URL, PLEX_TOKEN, PLEX_LIBRARY and OUTPUT_CSV are accepted alongside
// the prefixed form.
func bindEnv(v *viper.Viper) {
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	_ = v.BindEnv("plex.url", envPrefix+"_PLEX_URL", "PLEX_URL")
	_ = v.BindEnv("plex.token", envPrefix+"_PLEX_TOKEN", "PLEX_TOKEN")
	_ = v.BindEnv("plex.library", envPrefix+"_PLEX_LIBRARY", "PLEX_LIBRARY")
	_ = v.BindEnv("export.output", envPrefix+"_EXPORT_OUTPUT", "OUTPUT_CSV")
}

// normalize lowercases enum-like values
func normalize(cfg *Config) {
	cfg.Plex.URL = strings.TrimSpace(cfg.Plex.URL)
	cfg.Plex.Token = strings.TrimSpace(cfg.Plex.Token)
	cfg.Logging.Level = strings.ToLower(cfg.Logging.Level)
	cfg.Logging.Format = strings.ToLower(cfg.Logging.Format)
	for i, s := range cfg.Export.IDSchemes {
		cfg.Export.IDSchemes[i] = strings.ToLower(strings.TrimSpace(s))
	}
}

// validate checks if the configuration is valid
func validate(cfg *Config) error {
	if cfg.Plex.URL == "" {
		return fmt.Errorf("plex.url is required")
	}

	if cfg.Plex.Token == "" || cfg.Plex.Token == "your-plex-token" {
		return fmt.Errorf("plex.token must be set to a valid token")
	}

	if strings.TrimSpace(cfg.Plex.Library) == "" {
		return fmt.Errorf("plex.library is required")
	}

	if cfg.Plex.Timeout < 0 {
		return fmt.Errorf("plex.timeout must not be negative")
	}

	if cfg.Plex.RateLimit < 0 {
		return fmt.Errorf("plex.rate_limit must not be negative")
	}

	if cfg.Export.Output == "" {
		return fmt.Errorf("export.output is required")
	}

	if cfg.Export.Concurrency < 1 {
		return fmt.Errorf("export.concurrency must be at least 1")
	}

	// Letterboxd only has columns for these
	validSchemes := map[string]bool{
		"imdb": true,
		"tmdb": true,
	}
	if len(cfg.Export.IDSchemes) == 0 {
		return fmt.Errorf("export.id_schemes must list at least one scheme")
	}
	for _, scheme := range cfg.Export.IDSchemes {
		if !validSchemes[scheme] {
			return fmt.Errorf("invalid export.id_schemes entry: %s (must be 'imdb' or 'tmdb')", scheme)
		}
	}

	// Validate logging level
	validLevels := map[string]bool{
		"trace": true,
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[cfg.Logging.Level] {
		return fmt.Errorf("invalid logging level: %s", cfg.Logging.Level)
	}

	// Validate logging format
	validFormats := map[string]bool{
		"console": true,
		"json":    true,
	}
	if !validFormats[cfg.Logging.Format] {
		return fmt.Errorf("invalid logging format: %s", cfg.Logging.Format)
	}

	return nil
}
