package bolt

import (
	"bytes"
	"context"

	"github.com/mwantia/lvfs/backend"
	"github.com/mwantia/lvfs/data"
	bolt "go.etcd.io/bbolt"
)

type entry struct {
	key   []byte
	value []byte
}

func (bb *BoltBackend) Get(ctx context.Context, table backend.Table, key backend.Key) ([]byte, bool, error) {
	bb.mu.RLock()
	defer bb.mu.RUnlock()

	var value []byte
	err := bb.viewUnsafe(table, func(b *bolt.Bucket) error {
		// Values are only valid for the life of the transaction
		if raw := b.Get(backend.EncodeKey(table, key)); raw != nil {
			value = bytes.Clone(raw)
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}

	return value, value != nil, nil
}

func (bb *BoltBackend) Put(ctx context.Context, table backend.Table, key backend.Key, value []byte) error {
	bb.mu.RLock()
	defer bb.mu.RUnlock()

	return bb.updateUnsafe(table, func(b *bolt.Bucket) error {
		return b.Put(backend.EncodeKey(table, key), value)
	})
}

func (bb *BoltBackend) DeleteByPath(ctx context.Context, table backend.Table, path string) error {
	bb.mu.RLock()
	defer bb.mu.RUnlock()

	return bb.updateUnsafe(table, func(b *bolt.Bucket) error {
		if table == backend.TableMeta {
			return b.Delete([]byte(path))
		}

		// Deleting through the cursor can skip the following key, so collect first
		for _, e := range collectPrefix(b, backend.ChunkPrefix(path)) {
			if err := b.Delete(e.key); err != nil {
				return err
			}
		}

		return nil
	})
}

func (bb *BoltBackend) ScanPath(ctx context.Context, table backend.Table, path string, fn backend.ScanFunc) error {
	bb.mu.RLock()

	var entries []entry
	err := bb.viewUnsafe(table, func(b *bolt.Bucket) error {
		if table == backend.TableMeta {
			if raw := b.Get([]byte(path)); raw != nil {
				entries = append(entries, entry{key: []byte(path), value: bytes.Clone(raw)})
			}
			return nil
		}

		entries = collectPrefix(b, backend.ChunkPrefix(path))
		return nil
	})
	bb.mu.RUnlock()

	if err != nil {
		return err
	}

	return visit(table, entries, fn)
}

func (bb *BoltBackend) ScanAll(ctx context.Context, table backend.Table, fn backend.ScanFunc) error {
	bb.mu.RLock()

	var entries []entry
	err := bb.viewUnsafe(table, func(b *bolt.Bucket) error {
		return b.ForEach(func(k, v []byte) error {
			entries = append(entries, entry{key: bytes.Clone(k), value: bytes.Clone(v)})
			return nil
		})
	})
	bb.mu.RUnlock()

	if err != nil {
		return err
	}

	return visit(table, entries, fn)
}

// viewUnsafe runs fn in a read-only transaction on the bucket of table.
// MUST be called while holding at least a read lock.
func (bb *BoltBackend) viewUnsafe(table backend.Table, fn func(b *bolt.Bucket) error) error {
	if err := bb.checkUnsafe(table); err != nil {
		return err
	}

	return bb.db.View(func(tx *bolt.Tx) error {
		return fn(tx.Bucket([]byte(table)))
	})
}

// updateUnsafe runs fn in a read-write transaction on the bucket of table.
// MUST be called while holding at least a read lock.
func (bb *BoltBackend) updateUnsafe(table backend.Table, fn func(b *bolt.Bucket) error) error {
	if err := bb.checkUnsafe(table); err != nil {
		return err
	}

	return bb.db.Update(func(tx *bolt.Tx) error {
		return fn(tx.Bucket([]byte(table)))
	})
}

func (bb *BoltBackend) checkUnsafe(table backend.Table) error {
	if err := table.Validate(); err != nil {
		return err
	}

	if bb.db == nil {
		return data.ErrClosed
	}

	return nil
}

func collectPrefix(b *bolt.Bucket, prefix []byte) []entry {
	var entries []entry

	c := b.Cursor()
	for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
		entries = append(entries, entry{key: bytes.Clone(k), value: bytes.Clone(v)})
	}

	return entries
}

func visit(table backend.Table, entries []entry, fn backend.ScanFunc) error {
	for _, e := range entries {
		key, err := backend.DecodeKey(table, e.key)
		if err != nil {
			return err
		}

		if err := fn(key, e.value); err != nil {
			return err
		}
	}

	return nil
}
