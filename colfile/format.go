// Package colfile implements the native columnar file: a header with the schema and
// per row group chunk directory, followed by lz4 compressed column chunks.
package colfile

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/dot5enko/simple-column-scan/bits"
	"github.com/dot5enko/simple-column-scan/schema"
	"github.com/google/uuid"
)

var (
	ErrBadMagic      = errors.New("not a colfile")
	ErrBadVersion    = errors.New("unsupported colfile version")
	ErrCorruptChunk  = errors.New("corrupt column chunk")
	ErrCorruptHeader = errors.New("corrupt colfile header")
)

var Magic = [4]byte{'S', 'C', 'O', 'L'}

const Version uint8 = 1

// ChunkHeader locates one compressed column chunk inside the data region.
type ChunkHeader struct {
	Offset         uint64
	CompressedSize uint64
	RawSize        uint64
	Checksum       uint64 // xxhash64 of the compressed bytes

	Bounds schema.Bounds
}

type RowGroupHeader struct {
	Rows   uint32
	Chunks []ChunkHeader
}

type FileHeader struct {
	Uid       uuid.UUID
	Columns   []schema.Column
	RowGroups []RowGroupHeader

	// size of the encoded header, chunk offsets are relative to it
	DataStart int64

	// per column bounds merged over every row group, derived on decode.
	// A column with any chunk lacking stats has none.
	FileBounds []schema.Bounds
}

func (h *FileHeader) RowCount() int64 {
	var total int64
	for _, g := range h.RowGroups {
		total += int64(g.Rows)
	}
	return total
}

func (h *FileHeader) WriteTo(bw *bits.BitWriter) (int, error) {

	bw.Write(Magic[:])
	bw.WriteByte(Version)
	bw.PutUUID(h.Uid)

	bw.PutUint16(uint16(len(h.Columns)))
	for _, c := range h.Columns {
		bw.PutString(c.Name)
		bw.WriteByte(uint8(c.Type))
		bw.WriteByte(c.Scale)
		bw.WriteByte(c.Precision)
	}

	bw.PutUint32(uint32(len(h.RowGroups)))
	for _, g := range h.RowGroups {
		if len(g.Chunks) != len(h.Columns) {
			return bw.Position(), fmt.Errorf("row group has %d chunks for %d columns", len(g.Chunks), len(h.Columns))
		}

		bw.PutUint32(g.Rows)
		for ci, chunk := range g.Chunks {
			bw.PutUint64(chunk.Offset)
			bw.PutUint64(chunk.CompressedSize)
			bw.PutUint64(chunk.RawSize)
			bw.PutUint64(chunk.Checksum)

			if _, err := chunk.Bounds.WriteTo(bw, h.Columns[ci].Type); err != nil {
				return bw.Position(), err
			}
		}
	}

	return bw.Position(), nil
}

func (h *FileHeader) FromBytes(input io.Reader) (topErr error) {

	reader := bits.NewReader(input, binary.LittleEndian)

	var magic [4]byte
	if topErr = reader.ReadBytes(4, magic[:]); topErr != nil || magic != Magic {
		return ErrBadMagic
	}

	version, topErr := reader.ReadU8()
	if topErr != nil {
		return fmt.Errorf("%w: unable to decode version: %s", ErrCorruptHeader, topErr.Error())
	}
	if version != Version {
		return fmt.Errorf("%w: %d", ErrBadVersion, version)
	}

	h.Uid, topErr = reader.ReadUUID()
	if topErr != nil {
		return fmt.Errorf("%w: unable to decode file uid: %s", ErrCorruptHeader, topErr.Error())
	}

	columnCount, topErr := reader.ReadU16()
	if topErr != nil {
		return fmt.Errorf("%w: unable to decode column count: %s", ErrCorruptHeader, topErr.Error())
	}

	h.Columns = make([]schema.Column, columnCount)
	for i := range h.Columns {
		c := &h.Columns[i]

		if c.Name, topErr = reader.ReadString(); topErr != nil {
			return fmt.Errorf("%w: unable to decode column %d name: %s", ErrCorruptHeader, i, topErr.Error())
		}

		var raw [3]byte
		if topErr = reader.ReadBytes(3, raw[:]); topErr != nil {
			return fmt.Errorf("%w: unable to decode column %s type: %s", ErrCorruptHeader, c.Name, topErr.Error())
		}
		c.Type = schema.FieldType(raw[0])
		c.Scale = raw[1]
		c.Precision = raw[2]
	}

	groupCount, topErr := reader.ReadU32()
	if topErr != nil {
		return fmt.Errorf("%w: unable to decode row group count: %s", ErrCorruptHeader, topErr.Error())
	}

	h.RowGroups = make([]RowGroupHeader, groupCount)
	for gi := range h.RowGroups {
		g := &h.RowGroups[gi]

		if g.Rows, topErr = reader.ReadU32(); topErr != nil {
			return fmt.Errorf("%w: unable to decode row group %d: %s", ErrCorruptHeader, gi, topErr.Error())
		}

		g.Chunks = make([]ChunkHeader, columnCount)
		for ci := range g.Chunks {
			if topErr = g.Chunks[ci].fromBytes(reader, h.Columns[ci].Type); topErr != nil {
				return fmt.Errorf("%w: unable to decode chunk %d of row group %d: %s", ErrCorruptHeader, ci, gi, topErr.Error())
			}
		}
	}

	h.DataStart = int64(reader.Position())
	h.FileBounds = h.mergeBounds()

	return nil
}

func (h *FileHeader) mergeBounds() []schema.Bounds {
	merged := make([]schema.Bounds, len(h.Columns))

	for ci := range merged {
		for gi := range h.RowGroups {
			chunk := h.RowGroups[gi].Chunks[ci].Bounds
			if !chunk.HasStats {
				merged[ci] = schema.Bounds{}
				break
			}
			merged[ci].Morph(chunk)
		}
	}

	return merged
}

func (c *ChunkHeader) fromBytes(reader *bits.BitsReader, typ schema.FieldType) (err error) {
	if c.Offset, err = reader.ReadU64(); err != nil {
		return err
	}
	if c.CompressedSize, err = reader.ReadU64(); err != nil {
		return err
	}
	if c.RawSize, err = reader.ReadU64(); err != nil {
		return err
	}
	if c.Checksum, err = reader.ReadU64(); err != nil {
		return err
	}
	return c.Bounds.FromBytes(reader, typ)
}
