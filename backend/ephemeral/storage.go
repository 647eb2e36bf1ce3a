package ephemeral

import (
	"bytes"
	"context"

	"github.com/mwantia/lvfs/backend"
	"github.com/mwantia/lvfs/data"
	"github.com/tidwall/btree"
)

type entry struct {
	key   string
	value []byte
}

func (eb *EphemeralBackend) Get(ctx context.Context, table backend.Table, key backend.Key) ([]byte, bool, error) {
	eb.mu.RLock()
	defer eb.mu.RUnlock()

	tree, err := eb.tableUnsafe(table)
	if err != nil {
		return nil, false, err
	}

	value, exists := tree.Get(string(backend.EncodeKey(table, key)))
	if !exists {
		return nil, false, nil
	}

	return bytes.Clone(value), true, nil
}

func (eb *EphemeralBackend) Put(ctx context.Context, table backend.Table, key backend.Key, value []byte) error {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	tree, err := eb.tableUnsafe(table)
	if err != nil {
		return err
	}

	tree.Set(string(backend.EncodeKey(table, key)), bytes.Clone(value))
	return nil
}

func (eb *EphemeralBackend) DeleteByPath(ctx context.Context, table backend.Table, path string) error {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	tree, err := eb.tableUnsafe(table)
	if err != nil {
		return err
	}

	if table == backend.TableMeta {
		tree.Delete(path)
		return nil
	}

	// Collect first; the tree must not be modified while iterating
	var keysToDelete []string
	for _, e := range eb.collectPathUnsafe(tree, path) {
		keysToDelete = append(keysToDelete, e.key)
	}

	for _, key := range keysToDelete {
		tree.Delete(key)
	}

	return nil
}

func (eb *EphemeralBackend) ScanPath(ctx context.Context, table backend.Table, path string, fn backend.ScanFunc) error {
	if table == backend.TableMeta {
		value, ok, err := eb.Get(ctx, table, backend.Key{Path: path})
		if err != nil || !ok {
			return err
		}

		return fn(backend.Key{Path: path}, value)
	}

	eb.mu.RLock()
	tree, err := eb.tableUnsafe(table)
	if err != nil {
		eb.mu.RUnlock()
		return err
	}

	entries := eb.collectPathUnsafe(tree, path)
	eb.mu.RUnlock()

	return visit(table, entries, fn)
}

func (eb *EphemeralBackend) ScanAll(ctx context.Context, table backend.Table, fn backend.ScanFunc) error {
	eb.mu.RLock()
	tree, err := eb.tableUnsafe(table)
	if err != nil {
		eb.mu.RUnlock()
		return err
	}

	entries := make([]entry, 0, tree.Len())
	tree.Scan(func(key string, value []byte) bool {
		entries = append(entries, entry{key: key, value: bytes.Clone(value)})
		return true
	})
	eb.mu.RUnlock()

	return visit(table, entries, fn)
}

// tableUnsafe resolves the tree for table.
// MUST be called while holding at least a read lock.
func (eb *EphemeralBackend) tableUnsafe(table backend.Table) (*btree.Map[string, []byte], error) {
	if err := table.Validate(); err != nil {
		return nil, err
	}

	if !eb.open {
		return nil, data.ErrClosed
	}

	return eb.tables[table], nil
}

// collectPathUnsafe copies every chunk entry of path out of tree.
// MUST be called while holding at least a read lock.
func (eb *EphemeralBackend) collectPathUnsafe(tree *btree.Map[string, []byte], path string) []entry {
	prefix := string(backend.ChunkPrefix(path))

	var entries []entry
	tree.Ascend(prefix, func(key string, value []byte) bool {
		if len(key) < len(prefix) || key[:len(prefix)] != prefix {
			return false
		}

		entries = append(entries, entry{key: key, value: bytes.Clone(value)})
		return true
	})

	return entries
}

func visit(table backend.Table, entries []entry, fn backend.ScanFunc) error {
	for _, e := range entries {
		key, err := backend.DecodeKey(table, []byte(e.key))
		if err != nil {
			return err
		}

		if err := fn(key, e.value); err != nil {
			return err
		}
	}

	return nil
}
