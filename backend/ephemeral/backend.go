package ephemeral

import (
	"context"
	"sync"

	"github.com/mwantia/lvfs/backend"
	"github.com/tidwall/btree"
)

// EphemeralBackend keeps both tables in ordered in-memory B-trees keyed by
// the byte key layout of the backend package. Nothing survives Close.
type EphemeralBackend struct {
	mu sync.RWMutex

	open    bool
	version int
	tables  map[backend.Table]*btree.Map[string, []byte]
}

func NewEphemeralBackend() *EphemeralBackend {
	return &EphemeralBackend{
		tables: make(map[backend.Table]*btree.Map[string, []byte]),
	}
}

// Returns the identifier name defined for this backend
func (*EphemeralBackend) Name() string {
	return "ephemeral"
}

// Open is part of the lifecycle behaviour and gets called when opening this backend.
func (eb *EphemeralBackend) Open(ctx context.Context) error {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	upgrade, err := backend.CheckSchema(eb.version)
	if err != nil {
		return err
	}

	if upgrade {
		for _, table := range backend.Tables {
			if _, exists := eb.tables[table]; !exists {
				eb.tables[table] = btree.NewMap[string, []byte](0)
			}
		}
		eb.version = backend.SchemaVersion
	}

	eb.open = true
	return nil
}

// Close is part of the lifecycle behaviour and gets called when closing this backend.
func (eb *EphemeralBackend) Close(ctx context.Context) error {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	for _, tree := range eb.tables {
		tree.Clear()
	}

	eb.open = false
	eb.version = 0
	return nil
}

// GetCapabilities returns a list of capabilities supported by this backend.
func (eb *EphemeralBackend) GetCapabilities() *backend.BackendCapabilities {
	return &backend.BackendCapabilities{
		Capabilities: []backend.BackendCapability{
			backend.CapabilityOrderedScan,
		},
	}
}
