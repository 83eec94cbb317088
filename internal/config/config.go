// Package config loads deskcore settings from a YAML file overlaid by
// DESKCORE_* environment variables.
package config

import (
	"fmt"
	"os"
	"slices"
	"strings"

	"deskcore/pkg/domain"

	"github.com/ilyakaznacheev/cleanenv"
)

// Storage drivers accepted by StorageConfig.Driver.
const (
	DriverMemory   = "memory"
	DriverFile     = "file"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Blob drivers accepted by BlobConfig.Driver.
const (
	BlobInline = "inline"
	BlobFS     = "fs"
	BlobMemory = "memory"
	BlobS3     = "s3"
)

// Config is the root configuration.
type Config struct {
	App      string         `yaml:"app" env:"DESKCORE_APP" env-default:"realestate"`
	Storage  StorageConfig  `yaml:"storage"`
	Blob     BlobConfig     `yaml:"blob"`
	Log      LogConfig      `yaml:"log"`
	Analysis AnalysisConfig `yaml:"analysis"`
	Export   ExportConfig   `yaml:"export"`
}

// StorageConfig selects the key-value backend.
type StorageConfig struct {
	Driver      string `yaml:"driver"       env:"DESKCORE_STORAGE_DRIVER" env-default:"file"`
	Dir         string `yaml:"dir"          env:"DESKCORE_STORAGE_DIR"    env-default:"./data"`
	SQLitePath  string `yaml:"sqlite_path"  env:"DESKCORE_SQLITE_PATH"    env-default:"./deskcore.db"`
	PostgresDSN string `yaml:"postgres_dsn" env:"DESKCORE_POSTGRES_DSN"`
}

// BlobConfig selects where uploaded images and export artifacts go.
type BlobConfig struct {
	Driver   string `yaml:"driver"    env:"DESKCORE_BLOB_DRIVER"    env-default:"inline"`
	Dir      string `yaml:"dir"       env:"DESKCORE_BLOB_DIR"       env-default:"./blobs"`
	Bucket   string `yaml:"bucket"    env:"DESKCORE_BLOB_BUCKET"`
	Region   string `yaml:"region"    env:"DESKCORE_BLOB_REGION"    env-default:"us-east-1"`
	Endpoint string `yaml:"endpoint"  env:"DESKCORE_BLOB_ENDPOINT"`
	MaxBytes int64  `yaml:"max_bytes" env:"DESKCORE_BLOB_MAX_BYTES" env-default:"10485760"`

	// PathStyle addresses the bucket as a path segment (MinIO).
	PathStyle bool   `yaml:"path_style" env:"DESKCORE_BLOB_PATH_STYLE"`
	AccessKey string `yaml:"access_key" env:"DESKCORE_BLOB_ACCESS_KEY"`
	SecretKey string `yaml:"secret_key" env:"DESKCORE_BLOB_SECRET_KEY"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level"  env:"DESKCORE_LOG_LEVEL"  env-default:"info"`
	Format string `yaml:"format" env:"DESKCORE_LOG_FORMAT" env-default:"console"`
}

// AnalysisConfig configures the AI analysis client.
type AnalysisConfig struct {
	APIKey string `yaml:"api_key" env:"DESKCORE_GENAI_API_KEY"`
	Model  string `yaml:"model"   env:"DESKCORE_GENAI_MODEL" env-default:"gemini-2.5-flash"`
}

// ExportConfig configures the export worker.
type ExportConfig struct {
	Queue int `yaml:"queue" env:"DESKCORE_EXPORT_QUEUE" env-default:"16"`
}

// DefaultPath is read when DESKCORE_CONFIG is unset.
const DefaultPath = "./deskcore.yaml"

// Load reads configuration with priority ENV > YAML > defaults. The YAML
// path comes from DESKCORE_CONFIG; a missing default file is not an error.
func Load() (*Config, error) {
	path := os.Getenv("DESKCORE_CONFIG")
	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}
	return LoadFile(path, explicit)
}

// LoadFile reads path (required when mustExist) and the environment.
func LoadFile(path string, mustExist bool) (*Config, error) {
	var cfg Config
	if _, err := os.Stat(path); err == nil {
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	} else if mustExist {
		return nil, fmt.Errorf("config: file %s: %w", path, err)
	} else if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("config: read env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validate: %w", err)
	}
	return &cfg, nil
}

// Validate checks enumerations and driver requirements.
func (c *Config) Validate() error {
	c.App = strings.ToLower(strings.TrimSpace(c.App))
	if !slices.Contains(domain.AppNames(), c.App) {
		return fmt.Errorf("app %q must be one of %s", c.App, strings.Join(domain.AppNames(), ", "))
	}
	switch c.Storage.Driver {
	case DriverMemory:
	case DriverFile:
		if c.Storage.Dir == "" {
			return fmt.Errorf("storage.dir is required for the file driver")
		}
	case DriverSQLite:
		if c.Storage.SQLitePath == "" {
			return fmt.Errorf("storage.sqlite_path is required for the sqlite driver")
		}
	case DriverPostgres:
		if c.Storage.PostgresDSN == "" {
			return fmt.Errorf("storage.postgres_dsn is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	switch c.Blob.Driver {
	case BlobInline, BlobMemory:
	case BlobFS:
		if c.Blob.Dir == "" {
			return fmt.Errorf("blob.dir is required for the fs driver")
		}
	case BlobS3:
		if c.Blob.Bucket == "" {
			return fmt.Errorf("blob.bucket is required for the s3 driver")
		}
	default:
		return fmt.Errorf("unknown blob driver %q", c.Blob.Driver)
	}
	if c.Blob.MaxBytes <= 0 {
		return fmt.Errorf("blob.max_bytes must be > 0 (got %d)", c.Blob.MaxBytes)
	}
	if c.Export.Queue <= 0 {
		return fmt.Errorf("export.queue must be > 0 (got %d)", c.Export.Queue)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("log.format %q must be json or console", c.Log.Format)
	}
	return nil
}
