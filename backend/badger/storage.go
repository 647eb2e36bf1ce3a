package badger

import (
	"context"
	"errors"

	"github.com/dgraph-io/badger/v3"
	"github.com/mwantia/lvfs/backend"
	"github.com/mwantia/lvfs/data"
)

type entry struct {
	key   []byte
	value []byte
}

func (bb *BadgerBackend) Get(ctx context.Context, table backend.Table, key backend.Key) ([]byte, bool, error) {
	bb.mu.RLock()
	defer bb.mu.RUnlock()

	if err := bb.checkUnsafe(table); err != nil {
		return nil, false, err
	}

	var value []byte
	err := bb.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(storeKey(table, backend.EncodeKey(table, key)))
		if err != nil {
			return err
		}

		value, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	return value, true, nil
}

func (bb *BadgerBackend) Put(ctx context.Context, table backend.Table, key backend.Key, value []byte) error {
	bb.mu.RLock()
	defer bb.mu.RUnlock()

	if err := bb.checkUnsafe(table); err != nil {
		return err
	}

	return bb.db.Update(func(txn *badger.Txn) error {
		return txn.Set(storeKey(table, backend.EncodeKey(table, key)), value)
	})
}

func (bb *BadgerBackend) DeleteByPath(ctx context.Context, table backend.Table, path string) error {
	bb.mu.RLock()
	defer bb.mu.RUnlock()

	if err := bb.checkUnsafe(table); err != nil {
		return err
	}

	return bb.db.Update(func(txn *badger.Txn) error {
		if table == backend.TableMeta {
			return txn.Delete(storeKey(table, []byte(path)))
		}

		entries, err := collectPrefix(txn, storeKey(table, backend.ChunkPrefix(path)), false)
		if err != nil {
			return err
		}

		for _, e := range entries {
			if err := txn.Delete(e.key); err != nil {
				return err
			}
		}

		return nil
	})
}

func (bb *BadgerBackend) ScanPath(ctx context.Context, table backend.Table, path string, fn backend.ScanFunc) error {
	if table == backend.TableMeta {
		value, ok, err := bb.Get(ctx, table, backend.Key{Path: path})
		if err != nil || !ok {
			return err
		}

		return fn(backend.Key{Path: path}, value)
	}

	return bb.scan(table, storeKey(table, backend.ChunkPrefix(path)), fn)
}

func (bb *BadgerBackend) ScanAll(ctx context.Context, table backend.Table, fn backend.ScanFunc) error {
	return bb.scan(table, storeKey(table, nil), fn)
}

func (bb *BadgerBackend) scan(table backend.Table, prefix []byte, fn backend.ScanFunc) error {
	bb.mu.RLock()

	if err := bb.checkUnsafe(table); err != nil {
		bb.mu.RUnlock()
		return err
	}

	var entries []entry
	err := bb.db.View(func(txn *badger.Txn) error {
		var err error
		entries, err = collectPrefix(txn, prefix, true)
		return err
	})
	bb.mu.RUnlock()

	if err != nil {
		return err
	}

	namespace := len(storeKey(table, nil))
	for _, e := range entries {
		key, err := backend.DecodeKey(table, e.key[namespace:])
		if err != nil {
			return err
		}

		if err := fn(key, e.value); err != nil {
			return err
		}
	}

	return nil
}

func (bb *BadgerBackend) checkUnsafe(table backend.Table) error {
	if err := table.Validate(); err != nil {
		return err
	}

	if bb.db == nil {
		return data.ErrClosed
	}

	return nil
}

// storeKey places raw inside the key namespace of table.
func storeKey(table backend.Table, raw []byte) []byte {
	key := make([]byte, 0, len(table)+1+len(raw))
	key = append(key, table...)
	key = append(key, ':')
	return append(key, raw...)
}

// collectPrefix copies every entry below prefix; values are skipped
// unless withValues is set.
func collectPrefix(txn *badger.Txn, prefix []byte, withValues bool) ([]entry, error) {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	opts.PrefetchValues = withValues

	it := txn.NewIterator(opts)
	defer it.Close()

	var entries []entry
	for it.Rewind(); it.Valid(); it.Next() {
		item := it.Item()

		e := entry{key: item.KeyCopy(nil)}
		if withValues {
			value, err := item.ValueCopy(nil)
			if err != nil {
				return nil, err
			}
			e.value = value
		}

		entries = append(entries, e)
	}

	return entries, nil
}
