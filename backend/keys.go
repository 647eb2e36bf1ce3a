package backend

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/mwantia/lvfs/data"
)

// Byte key layout for ordered key-value substrates (ephemeral, bolt, badger):
//
//	meta: <path>
//	data: <path> 0x00 <uint64 big-endian index>
//
// The separator sorts below every printable byte, so all chunks of one path
// are contiguous and ordered by index.
const chunkKeySeparator = 0x00

// EncodeKey returns the byte key for a record of table.
func EncodeKey(table Table, key Key) []byte {
	if table == TableData {
		return ChunkKey(key.Path, key.Index)
	}

	return []byte(key.Path)
}

// DecodeKey reverses EncodeKey.
func DecodeKey(table Table, raw []byte) (Key, error) {
	if table == TableData {
		return ParseChunkKey(raw)
	}

	return Key{Path: string(raw)}, nil
}

// ChunkKey encodes the composite key (path, index).
func ChunkKey(path string, index int64) []byte {
	key := make([]byte, 0, len(path)+9)
	key = append(key, path...)
	key = append(key, chunkKeySeparator)
	return binary.BigEndian.AppendUint64(key, uint64(index))
}

// ChunkPrefix returns the prefix shared by every chunk key of path.
func ChunkPrefix(path string) []byte {
	prefix := make([]byte, 0, len(path)+1)
	prefix = append(prefix, path...)
	return append(prefix, chunkKeySeparator)
}

// ParseChunkKey decodes a key produced by ChunkKey.
func ParseChunkKey(raw []byte) (Key, error) {
	if len(raw) < 9 || raw[len(raw)-9] != chunkKeySeparator {
		return Key{}, fmt.Errorf("%w: %q", data.ErrInvalidKey, raw)
	}

	path := raw[:len(raw)-9]
	if bytes.IndexByte(path, chunkKeySeparator) >= 0 {
		return Key{}, fmt.Errorf("%w: %q", data.ErrInvalidKey, raw)
	}

	return Key{
		Path:  string(path),
		Index: int64(binary.BigEndian.Uint64(raw[len(raw)-8:])),
	}, nil
}

// Object name layout for string-keyed substrates (consul, s3):
//
//	<prefix>/meta/<escaped path>
//	<prefix>/data/<escaped path>/<16 hex digit index>
//
// Escaping keeps every path a single name segment, so listing by
// "<prefix>/data/<escaped path>/" never matches another path.

// ObjectName returns the object name of a record.
func ObjectName(prefix string, table Table, key Key) string {
	if table == TableData {
		return ObjectChunkPrefix(prefix, key.Path) + fmt.Sprintf("%016x", uint64(key.Index))
	}

	return ObjectTablePrefix(prefix, table) + url.PathEscape(key.Path)
}

// ObjectTablePrefix returns the prefix shared by every object of table.
func ObjectTablePrefix(prefix string, table Table) string {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return string(table) + "/"
	}

	return prefix + "/" + string(table) + "/"
}

// ObjectChunkPrefix returns the prefix shared by every chunk object of path.
func ObjectChunkPrefix(prefix string, path string) string {
	return ObjectTablePrefix(prefix, TableData) + url.PathEscape(path) + "/"
}

// ParseObjectName reverses ObjectName.
func ParseObjectName(prefix string, table Table, name string) (Key, error) {
	rest, ok := strings.CutPrefix(name, ObjectTablePrefix(prefix, table))
	if !ok {
		return Key{}, fmt.Errorf("%w: %q", data.ErrInvalidKey, name)
	}

	var index int64
	if table == TableData {
		escaped, hex, found := strings.Cut(rest, "/")
		if !found || strings.Contains(hex, "/") {
			return Key{}, fmt.Errorf("%w: %q", data.ErrInvalidKey, name)
		}

		value, err := strconv.ParseUint(hex, 16, 64)
		if err != nil {
			return Key{}, fmt.Errorf("%w: %q", data.ErrInvalidKey, name)
		}

		rest = escaped
		index = int64(value)
	}

	path, err := url.PathUnescape(rest)
	if err != nil {
		return Key{}, fmt.Errorf("%w: %q", data.ErrInvalidKey, name)
	}

	return Key{Path: path, Index: index}, nil
}
