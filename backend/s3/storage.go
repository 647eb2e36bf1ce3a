package s3

import (
	"bytes"
	"context"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/mwantia/lvfs/backend"
	"github.com/mwantia/lvfs/data"
)

const recordContentType = "application/cbor"

func (sb *S3Backend) Get(ctx context.Context, table backend.Table, key backend.Key) ([]byte, bool, error) {
	sb.mu.RLock()
	defer sb.mu.RUnlock()

	if err := table.Validate(); err != nil {
		return nil, false, err
	}

	return sb.getObjectUnsafe(ctx, backend.ObjectName(sb.config.Prefix, table, key))
}

func (sb *S3Backend) Put(ctx context.Context, table backend.Table, key backend.Key, value []byte) error {
	sb.mu.RLock()
	defer sb.mu.RUnlock()

	if err := table.Validate(); err != nil {
		return err
	}

	return sb.putObjectUnsafe(ctx, backend.ObjectName(sb.config.Prefix, table, key), value, recordContentType)
}

func (sb *S3Backend) DeleteByPath(ctx context.Context, table backend.Table, path string) error {
	sb.mu.RLock()
	defer sb.mu.RUnlock()

	switch table {
	case backend.TableMeta:
		name := backend.ObjectName(sb.config.Prefix, table, backend.Key{Path: path})
		return sb.client.RemoveObject(ctx, sb.config.Bucket, name, minio.RemoveObjectOptions{})
	case backend.TableData:
	default:
		return table.Validate()
	}

	names, err := sb.listUnsafe(ctx, backend.ObjectChunkPrefix(sb.config.Prefix, path))
	if err != nil || len(names) == 0 {
		return err
	}

	objects := make(chan minio.ObjectInfo, len(names))
	for _, name := range names {
		objects <- minio.ObjectInfo{Key: name}
	}
	close(objects)

	errs := data.Errors{}
	for removeErr := range sb.client.RemoveObjects(ctx, sb.config.Bucket, objects, minio.RemoveObjectsOptions{}) {
		errs.Add(removeErr.Err)
	}

	return errs.Errors()
}

func (sb *S3Backend) ScanPath(ctx context.Context, table backend.Table, path string, fn backend.ScanFunc) error {
	if table == backend.TableMeta {
		value, ok, err := sb.Get(ctx, table, backend.Key{Path: path})
		if err != nil || !ok {
			return err
		}

		return fn(backend.Key{Path: path}, value)
	}

	return sb.scan(ctx, table, backend.ObjectChunkPrefix(sb.config.Prefix, path), fn)
}

func (sb *S3Backend) ScanAll(ctx context.Context, table backend.Table, fn backend.ScanFunc) error {
	return sb.scan(ctx, table, backend.ObjectTablePrefix(sb.config.Prefix, table), fn)
}

// scan lists every object below prefix and fetches each one. Listings are
// returned in lexicographic object name order.
func (sb *S3Backend) scan(ctx context.Context, table backend.Table, prefix string, fn backend.ScanFunc) error {
	if err := table.Validate(); err != nil {
		return err
	}

	sb.mu.RLock()
	names, err := sb.listUnsafe(ctx, prefix)
	sb.mu.RUnlock()

	if err != nil {
		return err
	}

	for _, name := range names {
		key, err := backend.ParseObjectName(sb.config.Prefix, table, name)
		if err != nil {
			return err
		}

		sb.mu.RLock()
		value, exists, err := sb.getObjectUnsafe(ctx, name)
		sb.mu.RUnlock()

		if err != nil {
			return err
		}
		// Removed between listing and fetching
		if !exists {
			continue
		}

		if err := fn(key, value); err != nil {
			return err
		}
	}

	return nil
}

// listUnsafe collects the object names below prefix. The listing context is
// cancelled on return so the lister goroutine stops when we bail out early.
func (sb *S3Backend) listUnsafe(ctx context.Context, prefix string) ([]string, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var names []string

	for object := range sb.client.ListObjects(ctx, sb.config.Bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	}) {
		if object.Err != nil {
			return nil, object.Err
		}

		names = append(names, object.Key)
	}

	return names, nil
}

func (sb *S3Backend) getObjectUnsafe(ctx context.Context, name string) ([]byte, bool, error) {
	object, err := sb.client.GetObject(ctx, sb.config.Bucket, name, minio.GetObjectOptions{})
	if err != nil {
		return nil, false, err
	}
	defer object.Close()

	value, err := io.ReadAll(object)
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, false, nil
		}
		return nil, false, err
	}

	return value, true, nil
}

func (sb *S3Backend) putObjectUnsafe(ctx context.Context, name string, value []byte, contentType string) error {
	_, err := sb.client.PutObject(ctx, sb.config.Bucket, name, bytes.NewReader(value), int64(len(value)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	return err
}
