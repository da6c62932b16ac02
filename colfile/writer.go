package colfile

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/cespare/xxhash/v2"
	"github.com/dot5enko/simple-column-scan/bits"
	"github.com/dot5enko/simple-column-scan/block"
	"github.com/dot5enko/simple-column-scan/compression"
	fileio "github.com/dot5enko/simple-column-scan/io"
	"github.com/dot5enko/simple-column-scan/schema"
	"github.com/google/uuid"
)

// Writer accumulates row groups in memory and emits the whole file at once,
// the header has to know every chunk offset up front.
type Writer struct {
	header FileHeader
	data   bytes.Buffer
}

func NewWriter(columns []schema.Column) (*Writer, error) {
	for _, c := range columns {
		if err := c.Validate(); err != nil {
			return nil, err
		}
	}

	return &Writer{
		header: FileHeader{
			Uid:     uuid.New(),
			Columns: columns,
		},
	}, nil
}

func (w *Writer) Uid() uuid.UUID {
	return w.header.Uid
}

// WriteRowGroup compresses one column vector per schema column.
func (w *Writer) WriteRowGroup(columns []block.Column) error {
	if len(columns) != len(w.header.Columns) {
		return fmt.Errorf("row group has %d columns, schema has %d", len(columns), len(w.header.Columns))
	}

	rows := 0
	if len(columns) > 0 {
		rows = columns[0].Len()
	}

	group := RowGroupHeader{Rows: uint32(rows), Chunks: make([]ChunkHeader, len(columns))}

	for i, col := range columns {
		expected := w.header.Columns[i]

		if col.Type() != expected.Type {
			return fmt.Errorf("%w: column %s got %s vector", schema.ErrUnsupportedType, expected.Name, col.Type())
		}
		if col.Len() != rows {
			return fmt.Errorf("column %s has %d rows, row group has %d", expected.Name, col.Len(), rows)
		}

		raw, bounds := encodeColumn(col)

		start := w.data.Len()
		if err := compression.CompressLz4(raw, &w.data); err != nil {
			return fmt.Errorf("unable to compress column %s: %s", expected.Name, err.Error())
		}
		compressed := w.data.Bytes()[start:]

		group.Chunks[i] = ChunkHeader{
			Offset:         uint64(start),
			CompressedSize: uint64(len(compressed)),
			RawSize:        uint64(len(raw)),
			Checksum:       xxhash.Sum64(compressed),
			Bounds:         bounds,
		}
	}

	w.header.RowGroups = append(w.header.RowGroups, group)
	return nil
}

func (w *Writer) WriteTo(out io.Writer) (int64, error) {
	bw := bits.NewEncodeBuffer(make([]byte, 1024), binary.LittleEndian)
	bw.EnableGrowing()

	if _, err := w.header.WriteTo(&bw); err != nil {
		return 0, err
	}

	n, err := out.Write(bw.Bytes())
	if err != nil {
		return int64(n), err
	}

	m, err := out.Write(w.data.Bytes())
	return int64(n + m), err
}

// WriteFile writes a complete colfile, one row group per entry of groups.
func WriteFile(path string, columns []schema.Column, groups [][]block.Column) error {
	w, err := NewWriter(columns)
	if err != nil {
		return err
	}

	for i, g := range groups {
		if err = w.WriteRowGroup(g); err != nil {
			return fmt.Errorf("unable to write row group %d: %s", i, err.Error())
		}
	}

	return fileio.DumpToFile(path, func(bw *bufio.Writer) error {
		_, werr := w.WriteTo(bw)
		return werr
	})
}

func encodeColumn(col block.Column) ([]byte, schema.Bounds) {
	switch typed := col.(type) {
	case *block.Int16Column:
		return bits.EncodeFixed(typed.Data), schema.GetMaxMinBounds(typed.Data)
	case *block.Int32Column:
		return bits.EncodeFixed(typed.Data), schema.GetMaxMinBounds(typed.Data)
	case *block.Int64Column:
		return bits.EncodeFixed(typed.Data), schema.GetMaxMinBounds(typed.Data)
	case *block.DateColumn:
		return bits.EncodeFixed(typed.Data), schema.GetMaxMinBounds(typed.Data)
	case *block.DecimalColumn:
		return bits.EncodeFixed(typed.Data), schema.GetMaxMinBounds(typed.Data)
	case *block.BytesColumn:
		bw := bits.NewEncodeBuffer(make([]byte, 256), binary.LittleEndian)
		bw.EnableGrowing()
		for _, v := range typed.Data {
			bw.PutUint32(uint32(len(v)))
			bw.Write(v)
		}

		bounds := schema.GetMaxMinBytesBounds(typed.Data)
		// long strings would not fit the u16 prefixed stats
		if len(bounds.MinBytes) > maxStatsLen || len(bounds.MaxBytes) > maxStatsLen {
			bounds = schema.Bounds{}
		}
		return bw.Bytes(), bounds
	}
	panic(fmt.Sprintf("unknown column vector %T", col))
}

const maxStatsLen = 1024
