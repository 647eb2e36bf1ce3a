package data

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/zeebo/blake3"
)

// ChunkSize is the fixed maximum payload length of one chunk record (1 MiB).
const ChunkSize = 1 << 20

// MaxChunkRecordSize bounds one encoded chunk record. Besides the payload a
// record carries its path, index, checksum and framing.
const MaxChunkRecordSize = ChunkSize + 512

// ChunkRecord is one slice of a file's content stored in the data table
// under the key (Path, Index).
type ChunkRecord struct {
	Path  string `cbor:"path"`
	Index int64  `cbor:"idx"`

	// Uncompressed payload length
	Size int `cbor:"size"`

	Compression CompressionTag `cbor:"compression"`

	// BLAKE3-256 digest of the uncompressed payload
	Checksum []byte `cbor:"checksum"`

	// Stored payload, compressed according to Compression
	Chunk []byte `cbor:"chunk"`
}

// ChunkCount returns the number of chunk records a blob of the given size occupies.
func ChunkCount(size int64) int64 {
	if size <= 0 {
		return 0
	}

	return (size + ChunkSize - 1) / ChunkSize
}

// NewChunkRecord builds the record for payload at index. When tag requests
// compression but the payload does not shrink, the payload is stored as is.
func NewChunkRecord(path string, index int64, payload []byte, tag CompressionTag) (*ChunkRecord, error) {
	sum := blake3.Sum256(payload)

	record := &ChunkRecord{
		Path:        path,
		Index:       index,
		Size:        len(payload),
		Compression: CompressionNone,
		Checksum:    sum[:],
		Chunk:       payload,
	}

	if tag == CompressionNone || len(payload) == 0 {
		return record, nil
	}

	compressed, err := CompressChunk(payload, tag)
	if errors.Is(err, errIncompressible) {
		return record, nil
	}
	if err != nil {
		return nil, err
	}

	record.Compression = tag
	record.Chunk = compressed
	return record, nil
}

// Payload decompresses the stored chunk and verifies it against its checksum.
func (cr *ChunkRecord) Payload() ([]byte, error) {
	payload, err := DecompressChunk(cr.Chunk, cr.Compression, cr.Size)
	if err != nil {
		return nil, fmt.Errorf("%w: chunk %d of '%s': %v", ErrCorruptRecord, cr.Index, cr.Path, err)
	}

	sum := blake3.Sum256(payload)
	if !bytes.Equal(sum[:], cr.Checksum) {
		return nil, fmt.Errorf("%w: chunk %d of '%s'", ErrChecksumMismatch, cr.Index, cr.Path)
	}

	return payload, nil
}
