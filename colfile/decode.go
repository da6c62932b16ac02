package colfile

import (
	"encoding/binary"
	"fmt"

	"github.com/cespare/xxhash/v2"
	"github.com/dot5enko/simple-column-scan/bits"
	"github.com/dot5enko/simple-column-scan/block"
	"github.com/dot5enko/simple-column-scan/compression"
	"github.com/dot5enko/simple-column-scan/manager/cache"
	"github.com/dot5enko/simple-column-scan/schema"
)

// decodeChunk verifies and decompresses one chunk into a column vector of rows values.
// Fixed width chunks that fit are inflated into a pooled scratch buffer, their
// values are copied out anyway.
func decodeChunk(compressed []byte, chunk ChunkHeader, col schema.Column, rows int, scratch *cache.FixedSizeBufferPool) (block.Column, error) {

	if sum := xxhash.Sum64(compressed); sum != chunk.Checksum {
		return nil, fmt.Errorf("%w: checksum %x, header says %x", ErrCorruptChunk, sum, chunk.Checksum)
	}

	size := col.Type.Size()
	if size > 0 && int(chunk.RawSize) != size*rows {
		return nil, fmt.Errorf("%w: %d bytes for %d %s values", ErrCorruptChunk, chunk.RawSize, rows, col.Type)
	}

	// lz4 cannot expand past ~255x
	if chunk.RawSize > 255*uint64(len(compressed))+64 {
		return nil, fmt.Errorf("%w: raw size %d for %d compressed bytes", ErrCorruptChunk, chunk.RawSize, len(compressed))
	}

	var raw []byte
	if size > 0 && scratch != nil {
		if buf, id, ok := scratch.TryGet(int(chunk.RawSize)); ok {
			defer scratch.Return(id)
			raw = buf
		}
	}
	if raw == nil {
		raw = make([]byte, chunk.RawSize)
	}

	if err := compression.DecompressLz4Into(compressed, raw); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorruptChunk, err)
	}

	switch col.Type {
	case schema.Int16FieldType:
		return &block.Int16Column{Data: bits.DecodeFixed[int16](raw, rows)}, nil
	case schema.Int32FieldType:
		return &block.Int32Column{Data: bits.DecodeFixed[int32](raw, rows)}, nil
	case schema.Int64FieldType:
		return &block.Int64Column{Data: bits.DecodeFixed[int64](raw, rows)}, nil
	case schema.DateFieldType:
		return &block.DateColumn{Data: bits.DecodeFixed[int32](raw, rows)}, nil
	case schema.DecimalFieldType:
		return &block.DecimalColumn{
			Data:      bits.DecodeFixed[int64](raw, rows),
			Scale:     col.Scale,
			Precision: col.Precision,
		}, nil
	case schema.BytesFieldType:
		return decodeBytes(raw, rows)
	}

	return nil, fmt.Errorf("%w: %s", schema.ErrUnsupportedType, col.Type)
}

func decodeBytes(raw []byte, rows int) (block.Column, error) {
	out := make([][]byte, rows)

	offset := 0
	for i := range out {
		if offset+4 > len(raw) {
			return nil, fmt.Errorf("%w: bytes value %d truncated", ErrCorruptChunk, i)
		}
		n := int(binary.LittleEndian.Uint32(raw[offset:]))
		offset += 4

		if n > len(raw)-offset {
			return nil, fmt.Errorf("%w: bytes value %d claims %d bytes", ErrCorruptChunk, i, n)
		}
		out[i] = raw[offset : offset+n : offset+n]
		offset += n
	}

	if offset != len(raw) {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrCorruptChunk, len(raw)-offset)
	}

	return &block.BytesColumn{Data: out}, nil
}
