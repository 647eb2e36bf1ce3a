package lvfs

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/mwantia/lvfs/backend"
	"github.com/mwantia/lvfs/data"
)

// WriteFile replaces the content of path with everything read from r.
// Prior chunks are deleted first, then r is stored in slices of at most
// data.ChunkSize bytes, one record per slice in ascending index order, and
// finally a file record replaces whatever record path held before.
//
// The sequence is not atomic: a failure part way leaves the path with some
// of the new chunks and the previous metadata record.
func (fs *FileSystem) WriteFile(ctx context.Context, path string, r io.Reader) (*data.FileMeta, error) {
	if err := validatePath(path); err != nil {
		return nil, data.NewStorageError("write", backend.TableData.String(), path, err)
	}

	if err := fs.storage.DeleteByPath(ctx, backend.TableData, path); err != nil {
		return nil, data.NewStorageError("write", backend.TableData.String(), path, err)
	}

	var size int64
	var index int64

	buffer := make([]byte, data.ChunkSize)
	for {
		n, readErr := io.ReadFull(r, buffer)
		if n > 0 {
			if err := fs.putChunk(ctx, path, index, buffer[:n]); err != nil {
				return nil, err
			}

			size += int64(n)
			index++
		}

		if errors.Is(readErr, io.EOF) || errors.Is(readErr, io.ErrUnexpectedEOF) {
			break
		}
		if readErr != nil {
			fs.log.Error("WriteFile: failed to read content for '%s' after %d chunks - %v", path, index, readErr)
			return nil, fmt.Errorf("lvfs: write '%s': read content: %w", path, readErr)
		}
	}

	meta := data.NewFileMeta(path, size, fs.now())
	if err := fs.PutMeta(ctx, meta); err != nil {
		return nil, err
	}

	fs.log.Debug("WriteFile: stored %d bytes in %d chunks for '%s'", size, index, path)
	return meta, nil
}

func (fs *FileSystem) putChunk(ctx context.Context, path string, index int64, payload []byte) error {
	record, err := data.NewChunkRecord(path, index, payload, fs.options.Compression)
	if err != nil {
		return data.NewStorageError("write", backend.TableData.String(), path, err)
	}

	value, err := data.EncodeChunk(record)
	if err != nil {
		return data.NewStorageError("write", backend.TableData.String(), path, err)
	}

	key := backend.Key{Path: path, Index: index}
	if err := fs.storage.Put(ctx, backend.TableData, key, value); err != nil {
		fs.log.Error("WriteFile: failed to store chunk %d of '%s' - %v", index, path, err)
		return data.NewStorageError("write", backend.TableData.String(), path, err)
	}

	return nil
}
