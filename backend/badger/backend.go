package badger

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/dgraph-io/badger/v3"
	"github.com/mwantia/lvfs/backend"
	"github.com/mwantia/lvfs/data"
	"github.com/mwantia/lvfs/log"
)

var versionKey = []byte("schema:version")

// BadgerBackend stores both tables in one Badger keyspace. Each table
// owns a "<table>:" key namespace followed by the byte key layout of the
// backend package.
type BadgerBackend struct {
	mu sync.RWMutex
	db *badger.DB

	config *BadgerBackendConfig
}

// BadgerBackendConfig contains configuration options for the Badger backend
type BadgerBackendConfig struct {
	// Directory holding the value and key files
	Directory string

	// Logger receives Badger's own log output (optional)
	Logger *log.Logger
}

// NewBadgerBackend creates a Badger-backed storage backend.
// The database is opened on Open.
func NewBadgerBackend(config *BadgerBackendConfig) (*BadgerBackend, error) {
	if config == nil {
		config = &BadgerBackendConfig{}
	}

	if config.Directory == "" {
		return nil, errors.New("badger: directory is required")
	}

	return &BadgerBackend{
		config: config,
	}, nil
}

// Name returns the identifier name defined for this backend
func (*BadgerBackend) Name() string {
	return "badger"
}

// Open is part of the lifecycle behaviour and gets called when opening this backend.
func (bb *BadgerBackend) Open(ctx context.Context) error {
	bb.mu.Lock()
	defer bb.mu.Unlock()

	// Already open, only run the schema step again
	if bb.db != nil {
		return initSchema(bb.db)
	}

	opts := badger.DefaultOptions(bb.config.Directory).
		WithMemTableSize(16 << 20)

	if bb.config.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: bb.config.Logger.Named("badger")})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
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

// initSchema records the schema version. Badger has no tables to create;
// the key namespaces come into existence with their first record.
func initSchema(db *badger.DB) error {
	return db.Update(func(txn *badger.Txn) error {
		stored := 0

		item, err := txn.Get(versionKey)
		switch {
		case errors.Is(err, badger.ErrKeyNotFound):
		case err != nil:
			return err
		default:
			raw, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			if len(raw) != 4 {
				return fmt.Errorf("%w: malformed version", data.ErrSchemaVersion)
			}
			stored = int(binary.BigEndian.Uint32(raw))
		}

		upgrade, err := backend.CheckSchema(stored)
		if err != nil || !upgrade {
			return err
		}

		return txn.Set(versionKey, binary.BigEndian.AppendUint32(nil, backend.SchemaVersion))
	})
}

// Close is part of the lifecycle behaviour and gets called when closing this backend.
func (bb *BadgerBackend) Close(ctx context.Context) error {
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
func (bb *BadgerBackend) GetCapabilities() *backend.BackendCapabilities {
	return &backend.BackendCapabilities{
		Capabilities: []backend.BackendCapability{
			backend.CapabilityPersistent,
			backend.CapabilityTransactional,
			backend.CapabilityOrderedScan,
		},
	}
}

// badgerLogger forwards Badger's log output into the lvfs logger.
type badgerLogger struct {
	logger *log.Logger
}

func (bl *badgerLogger) Errorf(format string, args ...any) {
	bl.logger.Error(format, args...)
}

func (bl *badgerLogger) Warningf(format string, args ...any) {
	bl.logger.Warn(format, args...)
}

func (bl *badgerLogger) Infof(format string, args ...any) {
	bl.logger.Debug(format, args...)
}

func (bl *badgerLogger) Debugf(format string, args ...any) {
	bl.logger.Debug(format, args...)
}
