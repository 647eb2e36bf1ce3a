package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/mwantia/lvfs/backend"
	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// SQLiteBackend stores both tables in a single SQLite database:
//
//	lvfs_meta (path PRIMARY KEY, value)
//	lvfs_data (path, idx, value, PRIMARY KEY (path, idx)) with an index on path
//
// The schema version lives in PRAGMA user_version.
type SQLiteBackend struct {
	mu sync.RWMutex
	db *sql.DB

	dbPath string
}

// NewSQLiteBackend creates a new SQLite-backed storage backend.
// The dbPath can be ":memory:" for an in-memory database or a file path.
func NewSQLiteBackend(dbPath string) (*SQLiteBackend, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	// Every pooled connection would see its own private in-memory database
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	return &SQLiteBackend{
		db:     db,
		dbPath: dbPath,
	}, nil
}

// initSchema creates or upgrades the database schema.
func (sb *SQLiteBackend) initSchema(ctx context.Context) error {
	var stored int
	if err := sb.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&stored); err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	upgrade, err := backend.CheckSchema(stored)
	if err != nil || !upgrade {
		return err
	}

	tx, err := sb.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	schema := `
	-- One record per path
	CREATE TABLE IF NOT EXISTS lvfs_meta (
		path TEXT PRIMARY KEY,
		value BLOB NOT NULL
	);

	-- Chunk records grouped by path
	CREATE TABLE IF NOT EXISTS lvfs_data (
		path TEXT NOT NULL,
		idx INTEGER NOT NULL CHECK(idx >= 0),
		value BLOB NOT NULL,
		PRIMARY KEY (path, idx)
	);
	CREATE INDEX IF NOT EXISTS idx_lvfs_data_path ON lvfs_data(path);
	`

	if _, err := tx.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", backend.SchemaVersion)); err != nil {
		return fmt.Errorf("failed to write schema version: %w", err)
	}

	return tx.Commit()
}

// Returns the identifier name defined for this backend
func (*SQLiteBackend) Name() string {
	return "sqlite"
}

// Open is part of the lifecycle behaviour and gets called when opening this backend.
func (sb *SQLiteBackend) Open(ctx context.Context) error {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	// Verify database connection
	if err := sb.db.PingContext(ctx); err != nil {
		return err
	}

	if sb.dbPath != ":memory:" {
		// Enable WAL mode for better concurrency
		if _, err := sb.db.ExecContext(ctx, "PRAGMA journal_mode = WAL"); err != nil {
			return err
		}
	}

	return sb.initSchema(ctx)
}

// Close is part of the lifecycle behaviour and gets called when closing this backend.
func (sb *SQLiteBackend) Close(ctx context.Context) error {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	return sb.db.Close()
}

// GetCapabilities returns a list of capabilities supported by this backend.
func (sb *SQLiteBackend) GetCapabilities() *backend.BackendCapabilities {
	caps := []backend.BackendCapability{
		backend.CapabilityTransactional,
		backend.CapabilityOrderedScan,
	}
	if sb.dbPath != ":memory:" {
		caps = append(caps, backend.CapabilityPersistent)
	}

	return &backend.BackendCapabilities{
		Capabilities: caps,
	}
}

func tableName(table backend.Table) (string, error) {
	switch table {
	case backend.TableMeta:
		return "lvfs_meta", nil
	case backend.TableData:
		return "lvfs_data", nil
	default:
		return "", table.Validate()
	}
}
