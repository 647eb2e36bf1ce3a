package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/mwantia/lvfs/backend"
)

type row struct {
	key   backend.Key
	value []byte
}

func (pb *PostgresBackend) Get(ctx context.Context, table backend.Table, key backend.Key) ([]byte, bool, error) {
	pb.mu.RLock()
	defer pb.mu.RUnlock()

	var value []byte
	var err error

	switch table {
	case backend.TableMeta:
		err = pb.pool.QueryRow(ctx,
			"SELECT value FROM lvfs_meta WHERE path = $1",
			key.Path).Scan(&value)
	case backend.TableData:
		err = pb.pool.QueryRow(ctx,
			"SELECT value FROM lvfs_data WHERE path = $1 AND idx = $2",
			key.Path, key.Index).Scan(&value)
	default:
		return nil, false, table.Validate()
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	return value, true, nil
}

func (pb *PostgresBackend) Put(ctx context.Context, table backend.Table, key backend.Key, value []byte) error {
	pb.mu.RLock()
	defer pb.mu.RUnlock()

	var err error

	switch table {
	case backend.TableMeta:
		_, err = pb.pool.Exec(ctx, `
			INSERT INTO lvfs_meta (path, value) VALUES ($1, $2)
			ON CONFLICT (path) DO UPDATE SET value = EXCLUDED.value
		`, key.Path, value)
	case backend.TableData:
		_, err = pb.pool.Exec(ctx, `
			INSERT INTO lvfs_data (path, idx, value) VALUES ($1, $2, $3)
			ON CONFLICT (path, idx) DO UPDATE SET value = EXCLUDED.value
		`, key.Path, key.Index, value)
	default:
		return table.Validate()
	}

	return err
}

func (pb *PostgresBackend) DeleteByPath(ctx context.Context, table backend.Table, path string) error {
	pb.mu.RLock()
	defer pb.mu.RUnlock()

	var err error

	switch table {
	case backend.TableMeta:
		_, err = pb.pool.Exec(ctx, "DELETE FROM lvfs_meta WHERE path = $1", path)
	case backend.TableData:
		_, err = pb.pool.Exec(ctx, "DELETE FROM lvfs_data WHERE path = $1", path)
	default:
		return table.Validate()
	}

	return err
}

func (pb *PostgresBackend) ScanPath(ctx context.Context, table backend.Table, path string, fn backend.ScanFunc) error {
	pb.mu.RLock()

	var rows []row
	var err error

	switch table {
	case backend.TableMeta:
		rows, err = pb.queryUnsafe(ctx, "SELECT path, 0::BIGINT, value FROM lvfs_meta WHERE path = $1", path)
	case backend.TableData:
		rows, err = pb.queryUnsafe(ctx, "SELECT path, idx, value FROM lvfs_data WHERE path = $1", path)
	default:
		err = table.Validate()
	}
	pb.mu.RUnlock()

	if err != nil {
		return err
	}

	return visit(rows, fn)
}

func (pb *PostgresBackend) ScanAll(ctx context.Context, table backend.Table, fn backend.ScanFunc) error {
	pb.mu.RLock()

	var rows []row
	var err error

	// COLLATE "C" keeps byte order, matching the other ordered backends
	switch table {
	case backend.TableMeta:
		rows, err = pb.queryUnsafe(ctx, `SELECT path, 0::BIGINT, value FROM lvfs_meta ORDER BY path COLLATE "C"`)
	case backend.TableData:
		rows, err = pb.queryUnsafe(ctx, `SELECT path, idx, value FROM lvfs_data ORDER BY path COLLATE "C", idx`)
	default:
		err = table.Validate()
	}
	pb.mu.RUnlock()

	if err != nil {
		return err
	}

	return visit(rows, fn)
}

// queryUnsafe loads all rows of query into memory so the pooled connection
// is released before callers process them.
// MUST be called while holding at least a read lock.
func (pb *PostgresBackend) queryUnsafe(ctx context.Context, query string, args ...any) ([]row, error) {
	rows, err := pb.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := make([]row, 0)
	for rows.Next() {
		var r row
		if err := rows.Scan(&r.key.Path, &r.key.Index, &r.value); err != nil {
			return nil, err
		}

		results = append(results, r)
	}

	return results, rows.Err()
}

func visit(rows []row, fn backend.ScanFunc) error {
	for _, r := range rows {
		if err := fn(r.key, r.value); err != nil {
			return err
		}
	}

	return nil
}
