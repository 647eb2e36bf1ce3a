package lvfs

import (
	"context"

	"github.com/mwantia/lvfs/backend"
	"github.com/mwantia/lvfs/data"
)

// ListDir returns the records lying directly below dirPath in backend key
// order. Trailing slashes are ignored and an empty path means the root.
//
// There is no index by parent, so every call scans the whole metadata table.
// A directory without children, created or not, yields an empty slice.
func (fs *FileSystem) ListDir(ctx context.Context, dirPath string) ([]*data.FileMeta, error) {
	dir := data.NormalizeDir(dirPath)
	children := make([]*data.FileMeta, 0)

	scanned := 0
	err := fs.storage.ScanAll(ctx, backend.TableMeta, func(key backend.Key, value []byte) error {
		scanned++
		if !data.IsDirectChild(dir, key.Path) {
			return nil
		}

		meta, err := data.DecodeMeta(value)
		if err != nil {
			return err
		}

		children = append(children, meta)
		return nil
	})
	if err != nil {
		return nil, data.NewStorageError("list", backend.TableMeta.String(), dir, err)
	}

	fs.log.Debug("ListDir: found %d children of '%s' in %d records", len(children), dir, scanned)
	return children, nil
}
