package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/mwantia/lvfs/backend"
)

type row struct {
	key   backend.Key
	value []byte
}

func (sb *SQLiteBackend) Get(ctx context.Context, table backend.Table, key backend.Key) ([]byte, bool, error) {
	sb.mu.RLock()
	defer sb.mu.RUnlock()

	var value []byte
	var err error

	switch table {
	case backend.TableMeta:
		err = sb.db.QueryRowContext(ctx,
			"SELECT value FROM lvfs_meta WHERE path = ?",
			key.Path).Scan(&value)
	case backend.TableData:
		err = sb.db.QueryRowContext(ctx,
			"SELECT value FROM lvfs_data WHERE path = ? AND idx = ?",
			key.Path, key.Index).Scan(&value)
	default:
		return nil, false, table.Validate()
	}

	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	return value, true, nil
}

func (sb *SQLiteBackend) Put(ctx context.Context, table backend.Table, key backend.Key, value []byte) error {
	sb.mu.RLock()
	defer sb.mu.RUnlock()

	var err error

	switch table {
	case backend.TableMeta:
		_, err = sb.db.ExecContext(ctx, `
			INSERT INTO lvfs_meta (path, value) VALUES (?, ?)
			ON CONFLICT(path) DO UPDATE SET value = excluded.value
		`, key.Path, value)
	case backend.TableData:
		_, err = sb.db.ExecContext(ctx, `
			INSERT INTO lvfs_data (path, idx, value) VALUES (?, ?, ?)
			ON CONFLICT(path, idx) DO UPDATE SET value = excluded.value
		`, key.Path, key.Index, value)
	default:
		return table.Validate()
	}

	return err
}

func (sb *SQLiteBackend) DeleteByPath(ctx context.Context, table backend.Table, path string) error {
	sb.mu.RLock()
	defer sb.mu.RUnlock()

	name, err := tableName(table)
	if err != nil {
		return err
	}

	_, err = sb.db.ExecContext(ctx, "DELETE FROM "+name+" WHERE path = ?", path)
	return err
}

func (sb *SQLiteBackend) ScanPath(ctx context.Context, table backend.Table, path string, fn backend.ScanFunc) error {
	sb.mu.RLock()

	var rows []row
	var err error

	switch table {
	case backend.TableMeta:
		rows, err = sb.queryUnsafe(ctx, "SELECT path, 0, value FROM lvfs_meta WHERE path = ?", path)
	case backend.TableData:
		rows, err = sb.queryUnsafe(ctx, "SELECT path, idx, value FROM lvfs_data WHERE path = ?", path)
	default:
		err = table.Validate()
	}
	sb.mu.RUnlock()

	if err != nil {
		return err
	}

	return visit(rows, fn)
}

func (sb *SQLiteBackend) ScanAll(ctx context.Context, table backend.Table, fn backend.ScanFunc) error {
	sb.mu.RLock()

	var rows []row
	var err error

	switch table {
	case backend.TableMeta:
		rows, err = sb.queryUnsafe(ctx, "SELECT path, 0, value FROM lvfs_meta ORDER BY path")
	case backend.TableData:
		rows, err = sb.queryUnsafe(ctx, "SELECT path, idx, value FROM lvfs_data ORDER BY path, idx")
	default:
		err = table.Validate()
	}
	sb.mu.RUnlock()

	if err != nil {
		return err
	}

	return visit(rows, fn)
}

// queryUnsafe loads all rows of query into memory so no cursor stays open
// while callers process them.
// MUST be called while holding at least a read lock.
func (sb *SQLiteBackend) queryUnsafe(ctx context.Context, query string, args ...any) ([]row, error) {
	rows, err := sb.db.QueryContext(ctx, query, args...)
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
