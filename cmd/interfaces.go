package cmd

import (
	"context"
	"io"

	"github.com/mwantia/lvfs"
	"github.com/mwantia/lvfs/backend"
	"github.com/mwantia/lvfs/data"
	"github.com/spf13/pflag"
)

// API is the part of lvfs.FileSystem that commands operate on.
type API interface {
	// Backend returns the storage backend the file system was opened on.
	Backend() backend.StorageBackend

	// Stat returns the record stored at path, or false if there is none.
	Stat(ctx context.Context, path string) (*data.FileMeta, bool, error)

	// ListDir returns the direct children of a directory path.
	ListDir(ctx context.Context, dirPath string) ([]*data.FileMeta, error)

	// Mkdir creates a directory record unless path already holds a record.
	Mkdir(ctx context.Context, path string) (*data.FileMeta, error)

	// WriteFile replaces the content stored at path.
	WriteFile(ctx context.Context, path string, r io.Reader) (*data.FileMeta, error)

	// ReadFile delivers the chunks stored at path in order.
	ReadFile(ctx context.Context, path string, fn lvfs.ChunkFunc) error
}

var _ API = (*lvfs.FileSystem)(nil)

// Command represents an executable command operating on a file system.
type Command interface {
	// Name returns the command identifier
	Name() string

	// Description returns human-readable help text
	Description() string

	// Usage returns a usage string for help (e.g. "ls [-l] [path]")
	Usage() string

	// Execute runs the command with parsed arguments
	// The writer parameter is where command output should be written
	// Returns exit code (0 = success) and error message
	Execute(ctx context.Context, api API, args *CommandArgs, writer io.Writer) (int, error)

	// GetFlags returns the flag set for this command (this is optional)
	GetFlags() *pflag.FlagSet
}
