// Package storetest provides the conformance tests every StorageBackend
// implementation is expected to pass.
package storetest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"slices"
	"testing"

	"github.com/mwantia/lvfs/backend"
	"github.com/mwantia/lvfs/data"
)

// Factory creates a new, unopened backend. Every subtest receives its own
// instance, so factories must not share state between calls.
type Factory func(t *testing.T) (backend.StorageBackend, error)

// Run executes the conformance suite against backends created by factory.
func Run(t *testing.T, factory Factory) {
	tests := []struct {
		name string
		fn   func(t *testing.T, sb backend.StorageBackend)
	}{
		{"GetAbsent", testGetAbsent},
		{"PutGet", testPutGet},
		{"PutReplaces", testPutReplaces},
		{"DeleteByPath", testDeleteByPath},
		{"DeleteByPathMissing", testDeleteByPathMissing},
		{"DeleteMeta", testDeleteMeta},
		{"ScanPath", testScanPath},
		{"ScanAll", testScanAll},
		{"ScanStops", testScanStops},
		{"UnknownTable", testUnknownTable},
		{"ReopenSchema", testReopenSchema},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(tst *testing.T) {
			tc.fn(tst, Open(tst, factory))
		})
	}
}

// Open creates and opens a backend from factory and closes it when the test ends.
func Open(t *testing.T, factory Factory) backend.StorageBackend {
	t.Helper()

	sb, err := factory(t)
	if err != nil {
		t.Fatalf("Backend init failed: %v", err)
	}

	if err := sb.Open(t.Context()); err != nil {
		t.Fatalf("Backend open failed: %v", err)
	}

	t.Cleanup(func() {
		if err := sb.Close(context.Background()); err != nil {
			t.Errorf("Backend close failed: %v", err)
		}
	})

	return sb
}

func chunkValue(path string, index int64) []byte {
	return fmt.Appendf(nil, "%s#%d", path, index)
}

func putChunks(t *testing.T, sb backend.StorageBackend, path string, count int64) {
	t.Helper()

	for i := range count {
		key := backend.Key{Path: path, Index: i}
		if err := sb.Put(t.Context(), backend.TableData, key, chunkValue(path, i)); err != nil {
			t.Fatalf("Put chunk %d of %s failed: %v", i, path, err)
		}
	}
}

func collect(t *testing.T, scan func(fn backend.ScanFunc) error) []backend.Key {
	t.Helper()

	keys := make([]backend.Key, 0)
	err := scan(func(key backend.Key, value []byte) error {
		keys = append(keys, key)
		return nil
	})
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}

	return keys
}

func testGetAbsent(t *testing.T, sb backend.StorageBackend) {
	ctx := t.Context()

	for _, table := range backend.Tables {
		value, ok, err := sb.Get(ctx, table, backend.Key{Path: "/missing"})
		if err != nil {
			t.Fatalf("Get %s failed: %v", table, err)
		}
		if ok || value != nil {
			t.Fatalf("Expected absent record in %s, got %q", table, value)
		}
	}
}

func testPutGet(t *testing.T, sb backend.StorageBackend) {
	ctx := t.Context()

	if err := sb.Put(ctx, backend.TableMeta, backend.Key{Path: "/file.txt"}, []byte("meta")); err != nil {
		t.Fatalf("Put meta failed: %v", err)
	}
	putChunks(t, sb, "/file.txt", 3)

	value, ok, err := sb.Get(ctx, backend.TableMeta, backend.Key{Path: "/file.txt"})
	if err != nil || !ok {
		t.Fatalf("Get meta failed: ok=%t err=%v", ok, err)
	}
	if !bytes.Equal(value, []byte("meta")) {
		t.Errorf("Expected 'meta', got %q", value)
	}

	for i := range int64(3) {
		value, ok, err := sb.Get(ctx, backend.TableData, backend.Key{Path: "/file.txt", Index: i})
		if err != nil || !ok {
			t.Fatalf("Get chunk %d failed: ok=%t err=%v", i, ok, err)
		}
		if want := chunkValue("/file.txt", i); !bytes.Equal(value, want) {
			t.Errorf("Chunk %d: expected %q, got %q", i, want, value)
		}
	}

	// Records are keyed per table
	if _, ok, _ := sb.Get(ctx, backend.TableData, backend.Key{Path: "/file.txt", Index: 3}); ok {
		t.Errorf("Unexpected chunk 3")
	}
}

func testPutReplaces(t *testing.T, sb backend.StorageBackend) {
	ctx := t.Context()
	key := backend.Key{Path: "/dir"}

	for _, value := range []string{"first", "second"} {
		if err := sb.Put(ctx, backend.TableMeta, key, []byte(value)); err != nil {
			t.Fatalf("Put %s failed: %v", value, err)
		}
	}

	value, ok, err := sb.Get(ctx, backend.TableMeta, key)
	if err != nil || !ok {
		t.Fatalf("Get failed: ok=%t err=%v", ok, err)
	}
	if string(value) != "second" {
		t.Errorf("Expected 'second', got %q", value)
	}

	keys := collect(t, func(fn backend.ScanFunc) error {
		return sb.ScanAll(ctx, backend.TableMeta, fn)
	})
	if len(keys) != 1 {
		t.Errorf("Expected 1 record after replace, got %d", len(keys))
	}
}

func testDeleteByPath(t *testing.T, sb backend.StorageBackend) {
	ctx := t.Context()

	putChunks(t, sb, "/a", 4)
	putChunks(t, sb, "/a/b", 2)
	putChunks(t, sb, "/ab", 1)

	if err := sb.DeleteByPath(ctx, backend.TableData, "/a"); err != nil {
		t.Fatalf("DeleteByPath failed: %v", err)
	}

	remaining := collect(t, func(fn backend.ScanFunc) error {
		return sb.ScanAll(ctx, backend.TableData, fn)
	})
	if len(remaining) != 3 {
		t.Fatalf("Expected 3 remaining chunks, got %d: %v", len(remaining), remaining)
	}
	for _, key := range remaining {
		if key.Path == "/a" {
			t.Errorf("Chunk %d of /a survived deletion", key.Index)
		}
	}
}

func testDeleteByPathMissing(t *testing.T, sb backend.StorageBackend) {
	for _, table := range backend.Tables {
		if err := sb.DeleteByPath(t.Context(), table, "/never"); err != nil {
			t.Errorf("DeleteByPath on %s failed: %v", table, err)
		}
	}
}

func testDeleteMeta(t *testing.T, sb backend.StorageBackend) {
	ctx := t.Context()

	for _, path := range []string{"/a", "/ab"} {
		if err := sb.Put(ctx, backend.TableMeta, backend.Key{Path: path}, []byte(path)); err != nil {
			t.Fatalf("Put %s failed: %v", path, err)
		}
	}

	if err := sb.DeleteByPath(ctx, backend.TableMeta, "/a"); err != nil {
		t.Fatalf("DeleteByPath failed: %v", err)
	}

	if _, ok, _ := sb.Get(ctx, backend.TableMeta, backend.Key{Path: "/a"}); ok {
		t.Errorf("Expected /a to be deleted")
	}
	if _, ok, _ := sb.Get(ctx, backend.TableMeta, backend.Key{Path: "/ab"}); !ok {
		t.Errorf("Expected /ab to survive")
	}
}

func testScanPath(t *testing.T, sb backend.StorageBackend) {
	ctx := t.Context()

	putChunks(t, sb, "/a", 3)
	putChunks(t, sb, "/a/b", 2)
	putChunks(t, sb, "/ab", 2)

	values := make(map[int64][]byte)
	err := sb.ScanPath(ctx, backend.TableData, "/a", func(key backend.Key, value []byte) error {
		if key.Path != "/a" {
			return fmt.Errorf("unexpected path %q", key.Path)
		}
		values[key.Index] = value
		return nil
	})
	if err != nil {
		t.Fatalf("ScanPath failed: %v", err)
	}

	if len(values) != 3 {
		t.Fatalf("Expected 3 chunks, got %d", len(values))
	}
	for i := range int64(3) {
		if want := chunkValue("/a", i); !bytes.Equal(values[i], want) {
			t.Errorf("Chunk %d: expected %q, got %q", i, want, values[i])
		}
	}

	if err := sb.Put(ctx, backend.TableMeta, backend.Key{Path: "/a"}, []byte("meta")); err != nil {
		t.Fatalf("Put meta failed: %v", err)
	}
	keys := collect(t, func(fn backend.ScanFunc) error {
		return sb.ScanPath(ctx, backend.TableMeta, "/a", fn)
	})
	if len(keys) != 1 || keys[0].Path != "/a" {
		t.Errorf("Expected exactly /a in meta, got %v", keys)
	}
}

func testScanAll(t *testing.T, sb backend.StorageBackend) {
	ctx := t.Context()
	paths := []string{"/b", "/a/b/c", "/ab", "/a", "/a/b"}

	for _, path := range paths {
		if err := sb.Put(ctx, backend.TableMeta, backend.Key{Path: path}, []byte(path)); err != nil {
			t.Fatalf("Put %s failed: %v", path, err)
		}
	}
	putChunks(t, sb, "/a", 3)
	putChunks(t, sb, "/b", 2)

	metaKeys := make([]string, 0)
	err := sb.ScanAll(ctx, backend.TableMeta, func(key backend.Key, value []byte) error {
		if string(value) != key.Path {
			return fmt.Errorf("value %q does not belong to %q", value, key.Path)
		}
		metaKeys = append(metaKeys, key.Path)
		return nil
	})
	if err != nil {
		t.Fatalf("ScanAll meta failed: %v", err)
	}

	sorted := slices.Sorted(slices.Values(paths))
	if got := slices.Sorted(slices.Values(metaKeys)); !slices.Equal(got, sorted) {
		t.Fatalf("Expected %v, got %v", sorted, got)
	}

	dataKeys := collect(t, func(fn backend.ScanFunc) error {
		return sb.ScanAll(ctx, backend.TableData, fn)
	})
	if len(dataKeys) != 5 {
		t.Fatalf("Expected 5 chunks, got %d", len(dataKeys))
	}

	if !sb.GetCapabilities().Contains(backend.CapabilityOrderedScan) {
		return
	}

	if !slices.Equal(metaKeys, sorted) {
		t.Errorf("Expected ordered scan %v, got %v", sorted, metaKeys)
	}

	last := make(map[string]int64)
	for _, key := range dataKeys {
		if prev, seen := last[key.Path]; seen && key.Index <= prev {
			t.Errorf("Chunk %d of %s scanned after chunk %d", key.Index, key.Path, prev)
		}
		last[key.Path] = key.Index
	}
}

func testScanStops(t *testing.T, sb backend.StorageBackend) {
	ctx := t.Context()
	putChunks(t, sb, "/big", 5)

	stop := errors.New("stop")
	visits := 0
	err := sb.ScanPath(ctx, backend.TableData, "/big", func(key backend.Key, value []byte) error {
		visits++
		return stop
	})
	if !errors.Is(err, stop) {
		t.Fatalf("Expected stop error, got %v", err)
	}
	if visits != 1 {
		t.Errorf("Expected 1 visit, got %d", visits)
	}

	visits = 0
	err = sb.ScanAll(ctx, backend.TableData, func(key backend.Key, value []byte) error {
		visits++
		return stop
	})
	if !errors.Is(err, stop) {
		t.Fatalf("Expected stop error, got %v", err)
	}
	if visits != 1 {
		t.Errorf("Expected 1 visit, got %d", visits)
	}
}

func testUnknownTable(t *testing.T, sb backend.StorageBackend) {
	ctx := t.Context()
	table := backend.Table("inode")

	if _, _, err := sb.Get(ctx, table, backend.Key{Path: "/a"}); !errors.Is(err, data.ErrUnknownTable) {
		t.Errorf("Get: expected ErrUnknownTable, got %v", err)
	}
	if err := sb.Put(ctx, table, backend.Key{Path: "/a"}, []byte("x")); !errors.Is(err, data.ErrUnknownTable) {
		t.Errorf("Put: expected ErrUnknownTable, got %v", err)
	}
	if err := sb.DeleteByPath(ctx, table, "/a"); !errors.Is(err, data.ErrUnknownTable) {
		t.Errorf("DeleteByPath: expected ErrUnknownTable, got %v", err)
	}
	if err := sb.ScanAll(ctx, table, func(backend.Key, []byte) error { return nil }); !errors.Is(err, data.ErrUnknownTable) {
		t.Errorf("ScanAll: expected ErrUnknownTable, got %v", err)
	}
}

// Opening an already initialized backend runs the schema step again and
// must keep existing records.
func testReopenSchema(t *testing.T, sb backend.StorageBackend) {
	ctx := t.Context()

	if err := sb.Put(ctx, backend.TableMeta, backend.Key{Path: "/keep"}, []byte("keep")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	if err := sb.Open(ctx); err != nil {
		t.Fatalf("Second open failed: %v", err)
	}

	if _, ok, err := sb.Get(ctx, backend.TableMeta, backend.Key{Path: "/keep"}); err != nil || !ok {
		t.Errorf("Expected /keep after reopen: ok=%t err=%v", ok, err)
	}
}
