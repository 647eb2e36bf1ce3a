package config

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/mwantia/lvfs/backend/badger"
	"github.com/mwantia/lvfs/backend/bolt"
	"github.com/mwantia/lvfs/data"
	"github.com/mwantia/lvfs/log"
)

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse(nil)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if cfg.Backend.Type != "sqlite" || cfg.Backend.SQLite.Path != "lvfs.db" {
		t.Errorf("Unexpected default backend %+v", cfg.Backend)
	}
	if cfg.CompressionTag() != data.CompressionNone {
		t.Errorf("Expected no compression, got %s", cfg.CompressionTag())
	}
}

func TestParse(t *testing.T) {
	raw := []byte(`
log:
  level: debug
  json: true
compression: zstd
backend:
  type: badger
  badger:
    directory: /tmp/lvfs-badger
`)

	cfg, err := Parse(raw)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if cfg.CompressionTag() != data.CompressionZstd {
		t.Errorf("Expected zstd, got %s", cfg.CompressionTag())
	}

	var buf bytes.Buffer
	storage, err := cfg.NewBackend(t.Context(), log.NewWriterLogger("test", log.Debug, &buf))
	if err != nil {
		t.Fatalf("NewBackend failed: %v", err)
	}
	if _, ok := storage.(*badger.BadgerBackend); !ok {
		t.Errorf("Expected badger backend, got %T", storage)
	}

	logger := cfg.NewLogger("lvfs")
	if logger.Level != log.Debug || !logger.JSON {
		t.Errorf("Unexpected logger settings: level=%s json=%t", logger.Level, logger.JSON)
	}
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		raw      string
		expected error
	}{
		{"backend: {type: etcd}", ErrBackendTypeUnknown},
		{"backend: {type: postgres}", ErrPostgresDSNMissing},
		{"backend: {type: bolt}", ErrBoltPathMissing},
		{"backend: {type: badger}", ErrBadgerDirectoryMissing},
		{"backend: {type: consul}", ErrConsulValueSizeTooSmall},
		{"backend: {type: consul, consul: {maxValueSize: 1048576}}", ErrConsulValueSizeTooSmall},
		{"backend: {type: s3, s3: {endpoint: localhost:9000}}", ErrS3EndpointMissing},
		{"backend: [not, a, map]", ErrConfigFileUnmarshallable},
	}

	for _, tc := range tests {
		if _, err := Parse([]byte(tc.raw)); !errors.Is(err, tc.expected) {
			t.Errorf("Parse(%q): expected %v, got %v", tc.raw, tc.expected, err)
		}
	}

	for _, raw := range []string{
		"{compression: zstd, backend: {type: consul}}",
		"backend: {type: consul, consul: {maxValueSize: 2097152}}",
	} {
		if _, err := Parse([]byte(raw)); err != nil {
			t.Errorf("Parse(%q) failed: %v", raw, err)
		}
	}

	if _, err := Parse([]byte("compression: brotli")); err == nil {
		t.Errorf("Expected error for unknown compression")
	}
	if _, err := Parse([]byte("log: {level: loud}")); err == nil {
		t.Errorf("Expected error for unknown log level")
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "lvfs.yaml")

	t.Setenv("LVFS_TEST_BOLT_PATH", filepath.Join(dir, "lvfs.bolt"))
	if err := os.WriteFile(path, []byte("backend:\n  type: bolt\n  bolt:\n    path: ${LVFS_TEST_BOLT_PATH}\n"), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Backend.Bolt.Path != filepath.Join(dir, "lvfs.bolt") {
		t.Errorf("Expected expanded path, got %q", cfg.Backend.Bolt.Path)
	}

	fs, err := cfg.Open(t.Context(), log.Discard())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer fs.Close(t.Context())

	if _, ok := fs.Backend().(*bolt.BoltBackend); !ok {
		t.Errorf("Expected bolt backend, got %T", fs.Backend())
	}

	if _, err := Load(filepath.Join(dir, "missing.yaml")); !errors.Is(err, ErrConfigFileUnreadable) {
		t.Errorf("Expected ErrConfigFileUnreadable, got %v", err)
	}
}

func TestMarshal(t *testing.T) {
	raw, err := Default().Marshal()
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	cfg, err := Parse(raw)
	if err != nil {
		t.Fatalf("Parse of marshalled default failed: %v", err)
	}
	if cfg.Backend.SQLite.Path != "lvfs.db" {
		t.Errorf("Unexpected round trip result %+v", cfg.Backend)
	}
}
