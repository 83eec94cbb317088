package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWithoutFile(t *testing.T) {
	t.Setenv("DESKCORE_CONFIG", "")
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "realestate", cfg.App)
	assert.Equal(t, DriverFile, cfg.Storage.Driver)
	assert.Equal(t, "./data", cfg.Storage.Dir)
	assert.Equal(t, BlobInline, cfg.Blob.Driver)
	assert.Equal(t, int64(10<<20), cfg.Blob.MaxBytes)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, 16, cfg.Export.Queue)
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "desk.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
app: pefund
storage:
  driver: sqlite
  sqlite_path: /tmp/funds.db
log:
  level: debug
  format: json
`), 0o600))
	t.Setenv("DESKCORE_CONFIG", path)
	t.Setenv("DESKCORE_LOG_LEVEL", "error")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "pefund", cfg.App)
	assert.Equal(t, DriverSQLite, cfg.Storage.Driver)
	assert.Equal(t, "/tmp/funds.db", cfg.Storage.SQLitePath)
	assert.Equal(t, "error", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestExplicitMissingFileFails(t *testing.T) {
	t.Setenv("DESKCORE_CONFIG", filepath.Join(t.TempDir(), "nope.yaml"))
	_, err := Load()
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			App:     "lab",
			Storage: StorageConfig{Driver: DriverMemory},
			Blob:    BlobConfig{Driver: BlobMemory, MaxBytes: 1},
			Log:     LogConfig{Level: "info", Format: "json"},
			Export:  ExportConfig{Queue: 1},
		}
	}
	cases := map[string]func(*Config){
		"unknown app":      func(c *Config) { c.App = "crm" },
		"unknown driver":   func(c *Config) { c.Storage.Driver = "redis" },
		"postgres no dsn":  func(c *Config) { c.Storage.Driver = DriverPostgres },
		"s3 no bucket":     func(c *Config) { c.Blob.Driver = BlobS3 },
		"zero blob limit":  func(c *Config) { c.Blob.MaxBytes = 0 },
		"bad log format":   func(c *Config) { c.Log.Format = "xml" },
		"empty export q":   func(c *Config) { c.Export.Queue = 0 },
		"file without dir": func(c *Config) { c.Storage.Driver = DriverFile },
	}
	base := valid()
	require.NoError(t, base.Validate())
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := valid()
			mutate(&cfg)
			require.Error(t, cfg.Validate())
		})
	}

	upper := valid()
	upper.App = " LAB "
	require.NoError(t, upper.Validate())
	assert.Equal(t, "lab", upper.App)
}
