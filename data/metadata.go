package data

import (
	"time"

	"github.com/google/uuid"
)

// FileMeta is the single record stored per path in the metadata table.
// Directories and files share the same key space, so a later write at the
// same path replaces whatever record was stored before.
type FileMeta struct {
	// Unique identifier of this record generation
	ID string `cbor:"id" json:"id"`

	// Absolute, slash-delimited path; primary key
	Path string `cbor:"path" json:"path"`

	// Whether this record describes a directory
	IsDir bool `cbor:"is_dir" json:"is_dir"`

	// Length of the reassembled blob in bytes (0 for directories)
	Size int64 `cbor:"size" json:"size"`

	// Last modification time
	ModTime time.Time `cbor:"mtime" json:"mtime"`

	// Advisory only; never enforced by the engine
	ReadOnly bool `cbor:"read_only" json:"read_only"`
}

// NewFileMeta creates a record for a regular file of the given size.
func NewFileMeta(path string, size int64, now time.Time) *FileMeta {
	return newMeta(path, false, size, now)
}

// NewDirectoryMeta creates a record for a directory.
func NewDirectoryMeta(path string, now time.Time) *FileMeta {
	return newMeta(path, true, 0, now)
}

func newMeta(path string, isDir bool, size int64, now time.Time) *FileMeta {
	return &FileMeta{
		ID:      genMetadataID(),
		Path:    path,
		IsDir:   isDir,
		Size:    size,
		ModTime: Timestamp(now),
	}
}

// Timestamp normalizes t to the precision that survives a round-trip
// through the record codec.
func Timestamp(t time.Time) time.Time {
	return t.UTC().Truncate(time.Millisecond)
}

// Equal reports whether both records describe the same state.
func (m *FileMeta) Equal(other *FileMeta) bool {
	if m == nil || other == nil {
		return m == other
	}

	return m.ID == other.ID &&
		m.Path == other.Path &&
		m.IsDir == other.IsDir &&
		m.Size == other.Size &&
		m.ModTime.Equal(other.ModTime) &&
		m.ReadOnly == other.ReadOnly
}

func genMetadataID() string {
	return uuid.Must(uuid.NewV7()).String()
}
