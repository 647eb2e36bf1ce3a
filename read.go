package lvfs

import (
	"cmp"
	"context"
	"fmt"
	"iter"
	"slices"
	"sync/atomic"

	"github.com/mwantia/lvfs/backend"
	"github.com/mwantia/lvfs/data"
)

// Chunk is one decoded slice of a file delivered in ascending Index order.
type Chunk struct {
	Data  []byte
	Index int
	Total int
}

// ChunkFunc receives the chunks of a file one at a time. Returning an
// error stops delivery and makes ReadFile return that error.
type ChunkFunc func(chunk []byte, index, total int) error

// ReadFile delivers the stored chunks of path to fn in ascending index
// order. Each call returns before the next chunk is decoded. A path without
// chunks, either an empty file or one that does not exist, results in zero
// calls and a nil error; use Stat to tell them apart.
func (fs *FileSystem) ReadFile(ctx context.Context, path string, fn ChunkFunc) error {
	for chunk, err := range fs.Chunks(ctx, path) {
		if err != nil {
			return err
		}

		if err := fn(chunk.Data, chunk.Index, chunk.Total); err != nil {
			fs.log.Debug("ReadFile: consumer stopped at chunk %d of '%s' - %v", chunk.Index, path, err)
			return err
		}
	}

	return nil
}

// Chunks returns the stored chunks of path as a pull sequence. The sequence
// is finite and can be ranged over once; ranging again yields data.ErrConsumed.
func (fs *FileSystem) Chunks(ctx context.Context, path string) iter.Seq2[*Chunk, error] {
	var consumed atomic.Bool

	return func(yield func(*Chunk, error) bool) {
		if consumed.Swap(true) {
			yield(nil, data.ErrConsumed)
			return
		}

		records, err := fs.loadChunks(ctx, path)
		if err != nil {
			yield(nil, err)
			return
		}

		total := len(records)
		for _, record := range records {
			payload, err := record.Payload()
			if err != nil {
				fs.log.Error("ReadFile: failed to decode chunk %d of '%s' - %v", record.Index, path, err)
				yield(nil, data.NewStorageError("read", backend.TableData.String(), path, err))
				return
			}

			if !yield(&Chunk{Data: payload, Index: int(record.Index), Total: total}, nil) {
				return
			}
		}
	}
}

// loadChunks fetches every chunk record of path through the path grouping
// and sorts them by index, since backends deliver them in any order.
func (fs *FileSystem) loadChunks(ctx context.Context, path string) ([]*data.ChunkRecord, error) {
	if err := validatePath(path); err != nil {
		return nil, data.NewStorageError("read", backend.TableData.String(), path, err)
	}

	records := make([]*data.ChunkRecord, 0)
	err := fs.storage.ScanPath(ctx, backend.TableData, path, func(key backend.Key, value []byte) error {
		record, err := data.DecodeChunk(value)
		if err != nil {
			return err
		}
		if record.Path != key.Path || record.Index != key.Index {
			return fmt.Errorf("%w: chunk %d of '%s' stored under index %d of '%s'",
				data.ErrCorruptRecord, record.Index, record.Path, key.Index, key.Path)
		}

		records = append(records, record)
		return nil
	})
	if err != nil {
		return nil, data.NewStorageError("read", backend.TableData.String(), path, err)
	}

	slices.SortFunc(records, func(a, b *data.ChunkRecord) int {
		return cmp.Compare(a.Index, b.Index)
	})

	fs.log.Debug("ReadFile: loaded %d chunks for '%s'", len(records), path)
	return records, nil
}
