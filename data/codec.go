package data

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// encMode uses Core Deterministic Encoding so identical records always
// produce identical bytes. Times are written as RFC 3339 strings.
var encMode cbor.EncMode

var decMode cbor.DecMode

func init() {
	var err error

	encOptions := cbor.CoreDetEncOptions()
	encOptions.Time = cbor.TimeRFC3339Nano
	encMode, err = encOptions.EncMode()
	if err != nil {
		panic("lvfs: CBOR encoder initialization failed: " + err.Error())
	}

	decMode, err = cbor.DecOptions{}.DecMode()
	if err != nil {
		panic("lvfs: CBOR decoder initialization failed: " + err.Error())
	}
}

// EncodeMeta serializes a metadata record for storage.
func EncodeMeta(meta *FileMeta) ([]byte, error) {
	return encMode.Marshal(meta)
}

// DecodeMeta parses a stored metadata record.
func DecodeMeta(value []byte) (*FileMeta, error) {
	var meta FileMeta
	if err := decMode.Unmarshal(value, &meta); err != nil {
		return nil, fmt.Errorf("%w: metadata: %v", ErrCorruptRecord, err)
	}

	return &meta, nil
}

// EncodeChunk serializes a chunk record for storage.
func EncodeChunk(record *ChunkRecord) ([]byte, error) {
	return encMode.Marshal(record)
}

// DecodeChunk parses a stored chunk record.
func DecodeChunk(value []byte) (*ChunkRecord, error) {
	var record ChunkRecord
	if err := decMode.Unmarshal(value, &record); err != nil {
		return nil, fmt.Errorf("%w: chunk: %v", ErrCorruptRecord, err)
	}

	return &record, nil
}
