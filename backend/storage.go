package backend

import (
	"context"
	"fmt"

	"github.com/mwantia/lvfs/data"
)

// Table names one of the two logical tables every substrate provides.
type Table string

const (
	// TableMeta holds one metadata record per path.
	TableMeta Table = "meta"
	// TableData holds chunk records keyed by (path, index) and grouped by path.
	TableData Table = "data"
)

// Tables lists every table in creation order.
var Tables = []Table{TableMeta, TableData}

func (t Table) String() string {
	return string(t)
}

// Validate rejects table names other than TableMeta and TableData.
func (t Table) Validate() error {
	if t != TableMeta && t != TableData {
		return fmt.Errorf("%w: '%s'", data.ErrUnknownTable, string(t))
	}

	return nil
}

// Key addresses a single record. Index is only meaningful for TableData.
type Key struct {
	Path  string
	Index int64
}

// ScanFunc receives one record during a scan. Returning an error stops
// the scan and is passed back to the caller unchanged.
type ScanFunc func(key Key, value []byte) error

// StorageBackend is the atomic key-value interface the engine persists into.
// Every call runs as its own transaction against the named table.
type StorageBackend interface {
	Backend

	// Get looks up a single record. A missing record is reported with
	// ok == false and a nil error.
	Get(ctx context.Context, table Table, key Key) (value []byte, ok bool, err error)

	// Put inserts or replaces the record stored under key.
	Put(ctx context.Context, table Table, key Key, value []byte) error

	// DeleteByPath removes every record whose key path equals path.
	// It is a no-op when nothing matches.
	DeleteByPath(ctx context.Context, table Table, path string) error

	// ScanPath visits every record whose key path equals path using the
	// secondary path grouping. Callers must not rely on the visit order.
	ScanPath(ctx context.Context, table Table, path string, fn ScanFunc) error

	// ScanAll visits every record of table in substrate key order.
	ScanAll(ctx context.Context, table Table, fn ScanFunc) error
}
