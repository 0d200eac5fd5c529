package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "calcserver.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "embedded", cfg.Catalog.Source)
	assert.Equal(t, 5000, cfg.Validation.TimeoutMs)
	assert.Equal(t, 0.1, cfg.Validation.SampleRate)
	assert.Equal(t, "0.0.0.0:8780", cfg.Server.Addr())
}

func TestLoad_OverlaysDefaults(t *testing.T) {
	path := writeConfig(t, `
log_level: debug
server:
  port: 9000
validation:
  remote_url: http://authority:8780
  strategy: prefer_remote
  sample_rate: 0.25
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "http://authority:8780", cfg.Validation.RemoteURL)
	assert.Equal(t, "prefer_remote", cfg.Validation.Strategy)
	assert.Equal(t, 0.25, cfg.Validation.SampleRate)
	// Untouched fields keep defaults.
	assert.Equal(t, 0.01, cfg.Validation.ToleranceTotal)
	assert.Equal(t, 256, cfg.Cache.MaxEntries)
}

func TestLoad_RejectsInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"bad source", "catalog:\n  source: redis\n"},
		{"bad strategy", "validation:\n  strategy: coin_flip\n"},
		{"bad sample rate", "validation:\n  sample_rate: 1.5\n"},
		{"bad port", "server:\n  port: -1\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			assert.Error(t, err)
		})
	}
}

func TestDatabaseDSN(t *testing.T) {
	d := DatabaseConfig{Host: "db", Port: 5432, User: "u", Password: "p", DBName: "relics", SSLMode: "disable"}
	assert.Equal(t, "postgres://u:p@db:5432/relics?sslmode=disable", d.DSN())
}
