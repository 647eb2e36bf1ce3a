package bolt

import (
	"context"
	"encoding/binary"
	"fmt"
	"sync"
	"time"

	"github.com/mwantia/lvfs/backend"
	"github.com/mwantia/lvfs/data"
	bolt "go.etcd.io/bbolt"
)

var (
	schemaBucket = []byte("schema")
	versionKey   = []byte("version")
)

// BoltBackend stores each table in its own bbolt bucket using the byte key
// layout of the backend package. The schema version lives in the "schema" bucket.
type BoltBackend struct {
	mu sync.RWMutex
	db *bolt.DB

	path    string
	timeout time.Duration
}

// NewBoltBackend creates a bbolt-backed storage backend for the database file at path.
// The file is created and locked on Open.
func NewBoltBackend(path string) *BoltBackend {
	return &BoltBackend{
		path:    path,
		timeout: 1 * time.Second,
	}
}

// Name returns the identifier name defined for this backend
func (*BoltBackend) Name() string {
	return "bolt"
}

// Open is part of the lifecycle behaviour and gets called when opening this backend.
func (bb *BoltBackend) Open(ctx context.Context) error {
	bb.mu.Lock()
	defer bb.mu.Unlock()

	// Already open, only run the schema step again
	if bb.db != nil {
		return initSchema(bb.db)
	}

	db, err := bolt.Open(bb.path, 0600, &bolt.Options{
		Timeout: bb.timeout,
	})
	if err != nil {
		return err
	}

	if err := initSchema(db); err != nil {
		db.Close()
		return err
	}

	bb.db = db
	return nil
}

// initSchema creates the buckets and records the schema version in one update.
func initSchema(db *bolt.DB) error {
	return db.Update(func(tx *bolt.Tx) error {
		schema, err := tx.CreateBucketIfNotExists(schemaBucket)
		if err != nil {
			return err
		}

		stored := 0
		if raw := schema.Get(versionKey); raw != nil {
			if len(raw) != 4 {
				return fmt.Errorf("%w: malformed version", data.ErrSchemaVersion)
			}
			stored = int(binary.BigEndian.Uint32(raw))
		}

		upgrade, err := backend.CheckSchema(stored)
		if err != nil || !upgrade {
			return err
		}

		for _, table := range backend.Tables {
			if _, err := tx.CreateBucketIfNotExists([]byte(table)); err != nil {
				return err
			}
		}

		return schema.Put(versionKey, binary.BigEndian.AppendUint32(nil, backend.SchemaVersion))
	})
}

// Close is part of the lifecycle behaviour and gets called when closing this backend.
func (bb *BoltBackend) Close(ctx context.Context) error {
	bb.mu.Lock()
	defer bb.mu.Unlock()

	if bb.db == nil {
		return nil
	}

	err := bb.db.Close()
	bb.db = nil
	return err
}

// GetCapabilities returns a list of capabilities supported by this backend.
func (bb *BoltBackend) GetCapabilities() *backend.BackendCapabilities {
	return &backend.BackendCapabilities{
		Capabilities: []backend.BackendCapability{
			backend.CapabilityPersistent,
			backend.CapabilityTransactional,
			backend.CapabilityOrderedScan,
		},
	}
}
