// Package config loads calcserver configuration from YAML with sensible
// defaults for every field.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the calculation service.
type Config struct {
	LogLevel string `yaml:"log_level"`

	Server     ServerConfig     `yaml:"server"`
	Catalog    CatalogConfig    `yaml:"catalog"`
	Cache      CacheConfig      `yaml:"cache"`
	Validation ValidationConfig `yaml:"validation"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	BindAddress string `yaml:"bind_address"`
	Port        int    `yaml:"port"`
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.BindAddress, s.Port)
}

// CatalogConfig selects the relic data source.
type CatalogConfig struct {
	// Source is "embedded" or "postgres".
	Source string `yaml:"source"`
	// SeedOnEmpty populates an empty relics table from the embedded
	// catalog at startup (postgres source only).
	SeedOnEmpty bool           `yaml:"seed_on_empty"`
	Database    DatabaseConfig `yaml:"database"`
}

// DatabaseConfig holds PostgreSQL connection parameters.
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

// CacheConfig bounds the memoization cache.
type CacheConfig struct {
	MaxEntries int `yaml:"max_entries"`
	TTLSeconds int `yaml:"ttl_seconds"`
}

// ValidationConfig tunes the dual-path validator.
type ValidationConfig struct {
	// RemoteURL is the authoritative calculation service. Empty disables
	// remote validation entirely.
	RemoteURL string `yaml:"remote_url"`
	TimeoutMs int    `yaml:"timeout_ms"`
	// SampleRate is the fraction of calculate calls validated (0.1 = 10%).
	SampleRate float64 `yaml:"sample_rate"`
	// Strategy: prefer_local, prefer_remote or conservative.
	Strategy string `yaml:"strategy"`

	ToleranceTotal      float64 `yaml:"tolerance_total"`
	ToleranceEfficiency float64 `yaml:"tolerance_efficiency"`
	ToleranceDifficulty float64 `yaml:"tolerance_difficulty"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		LogLevel: "info",
		Server: ServerConfig{
			BindAddress: "0.0.0.0",
			Port:        8780,
		},
		Catalog: CatalogConfig{
			Source:      "embedded",
			SeedOnEmpty: true,
			Database: DatabaseConfig{
				Host:    "127.0.0.1",
				Port:    5432,
				User:    "relic",
				DBName:  "relic_engine",
				SSLMode: "disable",
			},
		},
		Cache: CacheConfig{
			MaxEntries: 256,
			TTLSeconds: 300,
		},
		Validation: ValidationConfig{
			TimeoutMs:           5000,
			SampleRate:          0.1,
			Strategy:            "conservative",
			ToleranceTotal:      0.01,
			ToleranceEfficiency: 0.05,
			ToleranceDifficulty: 0.02,
		},
	}
}

// Load reads the config file at path, overlaying defaults. A missing file
// is not an error; the defaults are returned.
func Load(path string) (Config, error) {
	cfg := Default()

	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return cfg, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server port %d out of range", c.Server.Port)
	}
	switch c.Catalog.Source {
	case "embedded", "postgres":
	default:
		return fmt.Errorf("unknown catalog source %q", c.Catalog.Source)
	}
	switch c.Validation.Strategy {
	case "prefer_local", "prefer_remote", "conservative":
	default:
		return fmt.Errorf("unknown validation strategy %q", c.Validation.Strategy)
	}
	if c.Validation.SampleRate < 0 || c.Validation.SampleRate > 1 {
		return fmt.Errorf("validation sample rate %.2f outside [0,1]", c.Validation.SampleRate)
	}
	return nil
}
