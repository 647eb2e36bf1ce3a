package data

import (
	"errors"
	"fmt"
	"strings"
	"sync"
)

// Standard errors that backend implementations and the engine should use.
var (
	// Backend lifecycle errors
	ErrClosed        = errors.New("lvfs: backend closed")
	ErrSchemaVersion = errors.New("lvfs: stored schema version is newer than supported")

	// Record errors
	ErrUnknownTable     = errors.New("lvfs: unknown table")
	ErrInvalidKey       = errors.New("lvfs: invalid record key")
	ErrRecordTooLarge   = errors.New("lvfs: record exceeds backend size limit")
	ErrCorruptRecord    = errors.New("lvfs: corrupt record")
	ErrChecksumMismatch = errors.New("lvfs: chunk checksum mismatch")

	// Iterator errors
	ErrConsumed = errors.New("lvfs: chunk sequence already consumed")
)

// StorageError reports that the substrate rejected or failed a transaction.
// It is the only error kind raised by engine operations.
type StorageError struct {
	Op    string
	Table string
	Path  string
	Err   error
}

func NewStorageError(op, table, path string, err error) error {
	if err == nil {
		return nil
	}

	var se *StorageError
	if errors.As(err, &se) {
		return err
	}

	return &StorageError{
		Op:    op,
		Table: table,
		Path:  path,
		Err:   err,
	}
}

func (e *StorageError) Error() string {
	var sb strings.Builder
	sb.WriteString("lvfs: ")
	sb.WriteString(e.Op)
	if e.Table != "" {
		sb.WriteString(" " + e.Table)
	}
	if e.Path != "" {
		sb.WriteString(" '" + e.Path + "'")
	}

	return fmt.Sprintf("%s: %v", sb.String(), e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// Errors collects multiple errors, e.g. during cleanup on close.
type Errors struct {
	mu     sync.RWMutex
	errors []error
}

func (e *Errors) Add(err error) {
	if err == nil {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.errors = append(e.errors, err)
}

func (e *Errors) Errors() error {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if len(e.errors) == 0 {
		return nil
	}

	return errors.Join(e.errors...)
}
