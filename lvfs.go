package lvfs

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/mwantia/lvfs/backend"
	"github.com/mwantia/lvfs/data"
	"github.com/mwantia/lvfs/log"
)

// FileSystem is an open handle onto a storage backend. It holds no state
// besides its options, so every operation maps onto one or more backend
// transactions.
type FileSystem struct {
	log     *log.Logger
	storage backend.StorageBackend
	options *Options
}

// Open opens storage, creating or upgrading its tables, and returns a handle
// that must be closed with Close.
func Open(ctx context.Context, storage backend.StorageBackend, opts ...Option) (*FileSystem, error) {
	options := newDefaultOptions()
	for _, opt := range opts {
		if err := opt(options); err != nil {
			return nil, err
		}
	}

	logger := options.Logger
	if logger == nil {
		logger = log.NewLogger("lvfs", options.LogLevel, options.LogFile, options.NoTerminalLog)
	}

	fs := &FileSystem{
		log:     logger,
		storage: storage,
		options: options,
	}

	fs.log.Debug("Open: opening backend '%s'", storage.Name())
	if err := storage.Open(ctx); err != nil {
		fs.log.Error("Open: failed to open backend '%s' - %v", storage.Name(), err)
		return nil, data.NewStorageError("open", "", "", err)
	}

	caps := storage.GetCapabilities()
	if !caps.Fits(data.MaxChunkRecordSize) {
		fs.log.Warn("Open: backend '%s' limits records to %d bytes, incompressible chunks of %d bytes will be rejected",
			storage.Name(), caps.MaxRecordSize, data.ChunkSize)
	}

	fs.log.Info("Open: backend '%s' ready (schema version %d, compression %s)",
		storage.Name(), backend.SchemaVersion, options.Compression)
	return fs, nil
}

// Close releases the underlying backend. The handle must not be used afterwards.
func (fs *FileSystem) Close(ctx context.Context) error {
	fs.log.Debug("Close: closing backend '%s'", fs.storage.Name())
	if err := fs.storage.Close(ctx); err != nil {
		return data.NewStorageError("close", "", "", err)
	}

	return nil
}

// Backend returns the storage backend this handle was opened on.
func (fs *FileSystem) Backend() backend.StorageBackend {
	return fs.storage
}

// Stat looks up the metadata record of path. A path that was never created
// is reported as absent (nil, false, nil).
func (fs *FileSystem) Stat(ctx context.Context, path string) (*data.FileMeta, bool, error) {
	if err := validatePath(path); err != nil {
		return nil, false, data.NewStorageError("stat", backend.TableMeta.String(), path, err)
	}

	value, ok, err := fs.storage.Get(ctx, backend.TableMeta, backend.Key{Path: path})
	if err != nil {
		return nil, false, data.NewStorageError("stat", backend.TableMeta.String(), path, err)
	}
	if !ok {
		return nil, false, nil
	}

	meta, err := data.DecodeMeta(value)
	if err != nil {
		return nil, false, data.NewStorageError("stat", backend.TableMeta.String(), path, err)
	}

	return meta, true, nil
}

// PutMeta stores meta as is, replacing any record at meta.Path. Chunk records
// are left untouched.
func (fs *FileSystem) PutMeta(ctx context.Context, meta *data.FileMeta) error {
	if meta == nil {
		return data.NewStorageError("put", backend.TableMeta.String(), "", data.ErrInvalidKey)
	}
	if err := validatePath(meta.Path); err != nil {
		return data.NewStorageError("put", backend.TableMeta.String(), meta.Path, err)
	}

	value, err := data.EncodeMeta(meta)
	if err != nil {
		return data.NewStorageError("put", backend.TableMeta.String(), meta.Path, err)
	}

	if err := fs.storage.Put(ctx, backend.TableMeta, backend.Key{Path: meta.Path}, value); err != nil {
		return data.NewStorageError("put", backend.TableMeta.String(), meta.Path, err)
	}

	return nil
}

// Mkdir returns the record already stored at path, whatever its type, or
// creates a directory record there.
func (fs *FileSystem) Mkdir(ctx context.Context, path string) (*data.FileMeta, error) {
	existing, ok, err := fs.Stat(ctx, path)
	if err != nil {
		return nil, err
	}
	if ok {
		fs.log.Debug("Mkdir: '%s' already exists (dir=%t)", path, existing.IsDir)
		return existing, nil
	}

	meta := data.NewDirectoryMeta(path, fs.now())
	if err := fs.PutMeta(ctx, meta); err != nil {
		return nil, err
	}

	fs.log.Debug("Mkdir: created '%s'", path)
	return meta, nil
}

func (fs *FileSystem) now() time.Time {
	return fs.options.Clock()
}

// Paths double as byte keys, so they must be non-empty and free of the
// chunk key separator. Records store them as CBOR text, which must be UTF-8.
func validatePath(path string) error {
	if path == "" || strings.IndexByte(path, 0) >= 0 || !utf8.ValidString(path) {
		return data.ErrInvalidKey
	}

	return nil
}
