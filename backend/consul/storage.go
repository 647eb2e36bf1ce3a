package consul

import (
	"context"
	"fmt"

	"github.com/hashicorp/consul/api"
	"github.com/mwantia/lvfs/backend"
	"github.com/mwantia/lvfs/data"
)

func (cb *ConsulBackend) Get(ctx context.Context, table backend.Table, key backend.Key) ([]byte, bool, error) {
	cb.mu.RLock()
	defer cb.mu.RUnlock()

	if err := table.Validate(); err != nil {
		return nil, false, err
	}

	pair, _, err := cb.kv.Get(backend.ObjectName(cb.config.Prefix, table, key), cb.queryOptions(ctx))
	if err != nil {
		return nil, false, err
	}
	if pair == nil {
		return nil, false, nil
	}

	return pair.Value, true, nil
}

func (cb *ConsulBackend) Put(ctx context.Context, table backend.Table, key backend.Key, value []byte) error {
	cb.mu.RLock()
	defer cb.mu.RUnlock()

	if err := table.Validate(); err != nil {
		return err
	}

	// Check size constraint from capabilities
	if !cb.GetCapabilities().Fits(int64(len(value))) {
		return fmt.Errorf("%w: %d bytes, consul limit is %d bytes", data.ErrRecordTooLarge, len(value), cb.config.MaxValueSize)
	}

	pair := &api.KVPair{
		Key:   backend.ObjectName(cb.config.Prefix, table, key),
		Value: value,
	}

	_, err := cb.kv.Put(pair, cb.writeOptions(ctx))
	return err
}

func (cb *ConsulBackend) DeleteByPath(ctx context.Context, table backend.Table, path string) error {
	cb.mu.RLock()
	defer cb.mu.RUnlock()

	var err error

	switch table {
	case backend.TableMeta:
		_, err = cb.kv.Delete(backend.ObjectName(cb.config.Prefix, table, backend.Key{Path: path}), cb.writeOptions(ctx))
	case backend.TableData:
		_, err = cb.kv.DeleteTree(backend.ObjectChunkPrefix(cb.config.Prefix, path), cb.writeOptions(ctx))
	default:
		err = table.Validate()
	}

	return err
}

func (cb *ConsulBackend) ScanPath(ctx context.Context, table backend.Table, path string, fn backend.ScanFunc) error {
	if table == backend.TableMeta {
		value, ok, err := cb.Get(ctx, table, backend.Key{Path: path})
		if err != nil || !ok {
			return err
		}

		return fn(backend.Key{Path: path}, value)
	}

	return cb.list(ctx, table, backend.ObjectChunkPrefix(cb.config.Prefix, path), fn)
}

func (cb *ConsulBackend) ScanAll(ctx context.Context, table backend.Table, fn backend.ScanFunc) error {
	return cb.list(ctx, table, backend.ObjectTablePrefix(cb.config.Prefix, table), fn)
}

// list visits every pair below prefix. Consul returns pairs sorted by key.
func (cb *ConsulBackend) list(ctx context.Context, table backend.Table, prefix string, fn backend.ScanFunc) error {
	if err := table.Validate(); err != nil {
		return err
	}

	cb.mu.RLock()
	pairs, _, err := cb.kv.List(prefix, cb.queryOptions(ctx))
	cb.mu.RUnlock()

	if err != nil {
		return err
	}

	for _, pair := range pairs {
		key, err := backend.ParseObjectName(cb.config.Prefix, table, pair.Key)
		if err != nil {
			return err
		}

		if err := fn(key, pair.Value); err != nil {
			return err
		}
	}

	return nil
}

func (cb *ConsulBackend) queryOptions(ctx context.Context) *api.QueryOptions {
	return (&api.QueryOptions{RequireConsistent: true}).WithContext(ctx)
}

func (cb *ConsulBackend) writeOptions(ctx context.Context) *api.WriteOptions {
	return (&api.WriteOptions{}).WithContext(ctx)
}
