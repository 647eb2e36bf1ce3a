package badger

import (
	"bytes"
	"encoding/binary"
	"errors"
	"strings"
	"testing"

	"github.com/dgraph-io/badger/v3"
	"github.com/mwantia/lvfs/backend"
	"github.com/mwantia/lvfs/backend/storetest"
	"github.com/mwantia/lvfs/data"
	"github.com/mwantia/lvfs/log"
)

func newTestBackend(t *testing.T) (backend.StorageBackend, error) {
	return NewBadgerBackend(&BadgerBackendConfig{Directory: t.TempDir()})
}

func TestBadgerBackend(t *testing.T) {
	storetest.Run(t, newTestBackend)
}

func TestBadgerBackend_Config(t *testing.T) {
	if _, err := NewBadgerBackend(&BadgerBackendConfig{}); err == nil {
		t.Errorf("Expected error without directory")
	}
	if _, err := NewBadgerBackend(nil); err == nil {
		t.Errorf("Expected error for nil config")
	}
}

// Full chunk records are larger than data.ChunkSize once encoded.
func TestBadgerBackend_FullChunkRecord(t *testing.T) {
	ctx := t.Context()
	bb := storetest.Open(t, newTestBackend)

	if caps := bb.GetCapabilities(); !caps.Fits(data.MaxChunkRecordSize) {
		t.Fatalf("Expected capabilities to fit a full chunk record")
	}

	for _, size := range []int{data.ChunkSize - 1, data.ChunkSize, data.MaxChunkRecordSize} {
		value := bytes.Repeat([]byte{0xA5}, size)
		key := backend.Key{Path: "/full", Index: int64(size)}

		if err := bb.Put(ctx, backend.TableData, key, value); err != nil {
			t.Fatalf("Put (%d bytes) failed: %v", size, err)
		}

		stored, ok, err := bb.Get(ctx, backend.TableData, key)
		if err != nil || !ok {
			t.Fatalf("Get (%d bytes) failed: ok=%t err=%v", size, ok, err)
		}
		if !bytes.Equal(stored, value) {
			t.Errorf("Value (%d bytes) changed on round trip", size)
		}
	}
}

func TestBadgerBackend_Persistent(t *testing.T) {
	ctx := t.Context()
	dir := t.TempDir()

	var logs bytes.Buffer
	config := &BadgerBackendConfig{
		Directory: dir,
		Logger:    log.NewWriterLogger("test", log.Debug, &logs),
	}

	first, err := NewBadgerBackend(config)
	if err != nil {
		t.Fatalf("Backend init failed: %v", err)
	}
	if err := first.Open(ctx); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if err := first.Put(ctx, backend.TableData, backend.Key{Path: "/a", Index: 1}, []byte("chunk")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := first.Close(ctx); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	if !strings.Contains(logs.String(), "test/badger") {
		t.Errorf("Expected badger output through the named logger, got %q", logs.String())
	}

	second := storetest.Open(t, func(t *testing.T) (backend.StorageBackend, error) {
		return NewBadgerBackend(&BadgerBackendConfig{Directory: dir})
	})

	value, ok, err := second.Get(ctx, backend.TableData, backend.Key{Path: "/a", Index: 1})
	if err != nil || !ok {
		t.Fatalf("Get after reopen failed: ok=%t err=%v", ok, err)
	}
	if string(value) != "chunk" {
		t.Errorf("Expected 'chunk', got %q", value)
	}
}

func TestBadgerBackend_NewerSchemaRejected(t *testing.T) {
	ctx := t.Context()
	dir := t.TempDir()

	db, err := badger.Open(badger.DefaultOptions(dir).WithLogger(nil))
	if err != nil {
		t.Fatalf("badger open failed: %v", err)
	}
	err = db.Update(func(txn *badger.Txn) error {
		return txn.Set(versionKey, binary.BigEndian.AppendUint32(nil, backend.SchemaVersion+1))
	})
	if err != nil {
		t.Fatalf("Failed to write schema version: %v", err)
	}
	db.Close()

	bb, err := NewBadgerBackend(&BadgerBackendConfig{Directory: dir})
	if err != nil {
		t.Fatalf("Backend init failed: %v", err)
	}
	if err := bb.Open(ctx); !errors.Is(err, data.ErrSchemaVersion) {
		t.Fatalf("Expected ErrSchemaVersion, got %v", err)
	}
}
