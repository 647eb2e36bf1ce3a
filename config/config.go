// Package config loads the YAML configuration used by the lvfs command.
package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/mwantia/lvfs"
	"github.com/mwantia/lvfs/backend"
	"github.com/mwantia/lvfs/backend/badger"
	"github.com/mwantia/lvfs/backend/bolt"
	"github.com/mwantia/lvfs/backend/consul"
	"github.com/mwantia/lvfs/backend/ephemeral"
	"github.com/mwantia/lvfs/backend/postgres"
	"github.com/mwantia/lvfs/backend/s3"
	"github.com/mwantia/lvfs/backend/sqlite"
	"github.com/mwantia/lvfs/data"
	"github.com/mwantia/lvfs/log"
	"gopkg.in/yaml.v3"
)

// EnvConfigFile names the environment variable holding the config file path.
const EnvConfigFile = "LVFS_CONFIG"

type Config struct {
	Log         Log     `yaml:"log"`
	Compression string  `yaml:"compression"`
	Backend     Backend `yaml:"backend"`
}

type Log struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file,omitempty"`
	JSON       bool   `yaml:"json"`
	NoTerminal bool   `yaml:"noTerminal"`
}

type Backend struct {
	// One of ephemeral, sqlite, postgres, bolt, badger, consul or s3
	Type string `yaml:"type"`

	SQLite   SQLite   `yaml:"sqlite,omitempty"`
	Postgres Postgres `yaml:"postgres,omitempty"`
	Bolt     Bolt     `yaml:"bolt,omitempty"`
	Badger   Badger   `yaml:"badger,omitempty"`
	Consul   Consul   `yaml:"consul,omitempty"`
	S3       S3       `yaml:"s3,omitempty"`
}

type SQLite struct {
	Path string `yaml:"path"`
}

type Postgres struct {
	DSN string `yaml:"dsn"`
}

type Bolt struct {
	Path string `yaml:"path"`
}

type Badger struct {
	Directory string `yaml:"directory"`
}

type Consul struct {
	Address      string `yaml:"address,omitempty"`
	Token        string `yaml:"token,omitempty"`
	Datacenter   string `yaml:"datacenter,omitempty"`
	Namespace    string `yaml:"namespace,omitempty"`
	Prefix       string `yaml:"prefix,omitempty"`
	MaxValueSize int64  `yaml:"maxValueSize,omitempty"`
}

type S3 struct {
	Endpoint     string `yaml:"endpoint"`
	Bucket       string `yaml:"bucket"`
	AccessKey    string `yaml:"accessKey,omitempty"`
	SecretKey    string `yaml:"secretKey,omitempty"`
	Region       string `yaml:"region,omitempty"`
	UseSSL       bool   `yaml:"useSSL,omitempty"`
	Prefix       string `yaml:"prefix,omitempty"`
	CreateBucket bool   `yaml:"createBucket,omitempty"`
}

var (
	ErrConfigFileUnreadable     = errors.New("config file is unreadable")
	ErrConfigFileUnmarshallable = errors.New("config file is unmarshallable")
	ErrBackendTypeUnknown       = errors.New("backend.type is unknown")
	ErrSQLitePathMissing        = errors.New("backend.sqlite.path is missing in config")
	ErrPostgresDSNMissing       = errors.New("backend.postgres.dsn is missing in config")
	ErrBoltPathMissing          = errors.New("backend.bolt.path is missing in config")
	ErrBadgerDirectoryMissing   = errors.New("backend.badger.directory is missing in config")
	ErrConsulValueSizeTooSmall  = errors.New("backend.consul.maxValueSize cannot hold an uncompressed chunk")
	ErrS3EndpointMissing        = errors.New("backend.s3.endpoint and backend.s3.bucket are required")
)

// Default returns a configuration storing everything in ./lvfs.db.
func Default() *Config {
	return &Config{
		Log: Log{
			Level: "warn",
		},
		Compression: data.CompressionNone.String(),
		Backend: Backend{
			Type: "sqlite",
			SQLite: SQLite{
				Path: "lvfs.db",
			},
		},
	}
}

// Load reads and validates the configuration file at path. Environment
// variables referenced as ${NAME} are expanded before parsing.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigFileUnreadable, err)
	}

	return Parse([]byte(os.ExpandEnv(string(raw))))
}

// Parse decodes YAML on top of Default and validates the result.
func Parse(raw []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigFileUnmarshallable, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Marshal renders the configuration as YAML.
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

func (c *Config) Validate() error {
	if _, err := log.Parse(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	tag, err := data.ParseCompressionTag(c.Compression)
	if err != nil {
		return fmt.Errorf("compression: %w", err)
	}

	switch strings.ToLower(c.Backend.Type) {
	case "ephemeral":
	case "sqlite":
		if c.Backend.SQLite.Path == "" {
			return ErrSQLitePathMissing
		}
	case "postgres":
		if c.Backend.Postgres.DSN == "" {
			return ErrPostgresDSNMissing
		}
	case "bolt":
		if c.Backend.Bolt.Path == "" {
			return ErrBoltPathMissing
		}
	case "badger":
		if c.Backend.Badger.Directory == "" {
			return ErrBadgerDirectoryMissing
		}
	case "consul":
		// Without compression every full chunk is stored at its full size
		maxValueSize := c.Backend.Consul.MaxValueSize
		if maxValueSize <= 0 {
			maxValueSize = consul.DefaultMaxValueSize
		}
		if tag == data.CompressionNone && maxValueSize < data.MaxChunkRecordSize {
			return fmt.Errorf("%w: %d < %d bytes", ErrConsulValueSizeTooSmall, maxValueSize, data.MaxChunkRecordSize)
		}
	case "s3":
		if c.Backend.S3.Endpoint == "" || c.Backend.S3.Bucket == "" {
			return ErrS3EndpointMissing
		}
	default:
		return fmt.Errorf("%w: '%s'", ErrBackendTypeUnknown, c.Backend.Type)
	}

	return nil
}

// NewLogger builds the logger described by the log section.
func (c *Config) NewLogger(name string) *log.Logger {
	level, _ := log.Parse(c.Log.Level)

	logger := log.NewLogger(name, level, c.Log.File, c.Log.NoTerminal)
	logger.JSON = c.Log.JSON
	return logger
}

// CompressionTag returns the configured chunk compression.
func (c *Config) CompressionTag() data.CompressionTag {
	tag, _ := data.ParseCompressionTag(c.Compression)
	return tag
}

// NewBackend creates the configured storage backend without opening it.
func (c *Config) NewBackend(ctx context.Context, logger *log.Logger) (backend.StorageBackend, error) {
	b := c.Backend

	switch strings.ToLower(b.Type) {
	case "ephemeral":
		return ephemeral.NewEphemeralBackend(), nil
	case "sqlite":
		return sqlite.NewSQLiteBackend(b.SQLite.Path)
	case "postgres":
		return postgres.NewPostgresBackend(ctx, b.Postgres.DSN)
	case "bolt":
		return bolt.NewBoltBackend(b.Bolt.Path), nil
	case "badger":
		return badger.NewBadgerBackend(&badger.BadgerBackendConfig{
			Directory: b.Badger.Directory,
			Logger:    logger,
		})
	case "consul":
		return consul.NewConsulBackend(&consul.ConsulBackendConfig{
			Address:      b.Consul.Address,
			Token:        b.Consul.Token,
			Datacenter:   b.Consul.Datacenter,
			Namespace:    b.Consul.Namespace,
			Prefix:       b.Consul.Prefix,
			MaxValueSize: b.Consul.MaxValueSize,
		})
	case "s3":
		return s3.NewS3Backend(&s3.S3BackendConfig{
			Endpoint:     b.S3.Endpoint,
			Bucket:       b.S3.Bucket,
			AccessKey:    b.S3.AccessKey,
			SecretKey:    b.S3.SecretKey,
			Region:       b.S3.Region,
			UseSSL:       b.S3.UseSSL,
			Prefix:       b.S3.Prefix,
			CreateBucket: b.S3.CreateBucket,
		})
	default:
		return nil, fmt.Errorf("%w: '%s'", ErrBackendTypeUnknown, b.Type)
	}
}

// Open creates the configured backend and opens a file system on it.
func (c *Config) Open(ctx context.Context, logger *log.Logger) (*lvfs.FileSystem, error) {
	storage, err := c.NewBackend(ctx, logger)
	if err != nil {
		return nil, err
	}

	return lvfs.Open(ctx, storage,
		lvfs.WithLogger(logger),
		lvfs.WithCompression(c.CompressionTag()))
}
