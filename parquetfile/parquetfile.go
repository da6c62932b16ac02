// Package parquetfile adapts parquet files, local or served over http range
// requests, to the scan reader interfaces.
package parquetfile

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"

	"github.com/dot5enko/simple-column-scan/block"
	"github.com/dot5enko/simple-column-scan/manager/query"
	"github.com/dot5enko/simple-column-scan/reader"
	"github.com/dot5enko/simple-column-scan/schema"
	"github.com/parquet-go/parquet-go"
	"howett.net/ranger"
)

const valueBufferSize = 1024

type Opener struct{}

func NewOpener() *Opener {
	return &Opener{}
}

func IsHTTPURL(path string) bool {
	u, err := url.Parse(path)
	if err != nil {
		return false
	}
	return u.Scheme == "http" || u.Scheme == "https"
}

func (o *Opener) Open(path string) (reader.Handle, error) {
	if IsHTTPURL(path) {
		return openHTTP(path)
	}
	return openLocal(path)
}

func openLocal(path string) (reader.Handle, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	stat, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("unable to stat %s: %s", path, err.Error())
	}

	f, err := parquet.OpenFile(file, stat.Size())
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("unable to open parquet file %s: %w", path, err)
	}

	return newHandle(path, f, file), nil
}

func openHTTP(path string) (reader.Handle, error) {
	u, err := url.Parse(path)
	if err != nil {
		return nil, err
	}

	rr, err := ranger.NewReader(&ranger.HTTPRanger{URL: u})
	if err != nil {
		return nil, fmt.Errorf("unable to create range reader for %s: %w", path, err)
	}

	length, err := rr.Length()
	if err != nil {
		return nil, fmt.Errorf("unable to get content length of %s: %w", path, err)
	}

	f, err := parquet.OpenFile(rr, length)
	if err != nil {
		return nil, fmt.Errorf("unable to open remote parquet file %s: %w", path, err)
	}

	return newHandle(path, f, nil), nil
}

type handle struct {
	path   string
	file   *parquet.File
	closer io.Closer

	columns []schema.Column
	// leaf column index per schema entry
	leaves []int
}

func newHandle(path string, f *parquet.File, closer io.Closer) *handle {
	h := &handle{path: path, file: f, closer: closer}

	for _, c := range f.Root().Columns() {
		if !c.Leaf() {
			slog.Debug("skipping nested parquet column", "file", path, "column", c.Name())
			continue
		}

		col, err := mapColumn(c.Name(), c.Type())
		if err != nil {
			slog.Debug("skipping parquet column", "file", path, "column", c.Name(), "err", err)
			continue
		}

		h.columns = append(h.columns, col)
		h.leaves = append(h.leaves, c.Index())
	}

	return h
}

// mapColumn picks the field type from the logical type, falling back to the physical kind.
func mapColumn(name string, t parquet.Type) (schema.Column, error) {
	col := schema.Column{Name: name}

	lt := t.LogicalType()

	switch t.Kind() {
	case parquet.Int32:
		switch {
		case lt != nil && lt.Date != nil:
			col.Type = schema.DateFieldType
		case lt != nil && lt.Decimal != nil:
			col.Type = schema.DecimalFieldType
			col.Scale, col.Precision = uint8(lt.Decimal.Scale), uint8(lt.Decimal.Precision)
		case lt != nil && lt.Integer != nil:
			if !lt.Integer.IsSigned && lt.Integer.BitWidth == 32 {
				return col, fmt.Errorf("%w: uint32", schema.ErrUnsupportedType)
			}
			col.Type = schema.Int32FieldType
			if lt.Integer.BitWidth <= 16 && lt.Integer.IsSigned {
				col.Type = schema.Int16FieldType
			}
		default:
			col.Type = schema.Int32FieldType
		}
	case parquet.Int64:
		switch {
		case lt != nil && lt.Decimal != nil:
			col.Type = schema.DecimalFieldType
			col.Scale, col.Precision = uint8(lt.Decimal.Scale), uint8(lt.Decimal.Precision)
		case lt != nil && lt.Integer != nil && !lt.Integer.IsSigned:
			return col, fmt.Errorf("%w: uint64", schema.ErrUnsupportedType)
		default:
			col.Type = schema.Int64FieldType
		}
	case parquet.ByteArray, parquet.FixedLenByteArray:
		if lt != nil && lt.Decimal != nil {
			return col, fmt.Errorf("%w: byte array decimal", schema.ErrUnsupportedType)
		}
		col.Type = schema.BytesFieldType
	default:
		return col, fmt.Errorf("%w: parquet %s", schema.ErrUnsupportedType, t)
	}

	return col, col.Validate()
}

func (h *handle) RowGroupCount() int {
	return len(h.file.RowGroups())
}

func (h *handle) RowCount() int64 {
	return h.file.NumRows()
}

func (h *handle) Schema() []schema.Column {
	return h.columns
}

func (h *handle) Read(opts reader.Options) (reader.Producer, error) {
	sources, err := reader.ResolveColumns(h.columns, opts)
	if err != nil {
		return nil, err
	}

	groups := h.file.RowGroups()
	start, end := opts.RowGroupRange(len(groups))
	pushdown := opts.Pushdown()
	group := start

	fetch := func() (*block.ColumnBatch, error) {
		for ; group < end; group++ {
			rg := groups[group]

			if pushdown != nil {
				match, merr := query.MatchBounds(pushdown, h.boundsLookup(rg, sources))
				if merr != nil {
					return nil, merr
				}
				if match == schema.NoIntersection {
					continue
				}
			}

			batch, derr := h.decodeRowGroup(rg, sources)
			if derr != nil {
				if opts.SkipCorruptRecords {
					slog.Warn("skipping unreadable row group", "file", h.path, "group", group, "err", derr)
					continue
				}
				return nil, fmt.Errorf("row group %d of %s: %w", group, h.path, derr)
			}

			group++
			return batch, nil
		}
		return nil, io.EOF
	}

	return reader.NewRowGroupProducer(opts.BatchSize, fetch, nil), nil
}

func (h *handle) boundsLookup(rg parquet.RowGroup, sources []reader.ColumnSource) query.BoundsLookup {
	chunks := rg.ColumnChunks()

	return func(column int) (schema.Column, schema.Bounds, bool) {
		src := sources[column]
		if src.FileIndex < 0 {
			return src.Column, schema.Bounds{}, false
		}

		fc, ok := chunks[h.leaves[src.FileIndex]].(*parquet.FileColumnChunk)
		if !ok {
			return src.Column, schema.Bounds{}, false
		}

		// chunks with nulls hide them from min/max
		if fc.NullCount() > 0 {
			return src.Column, schema.Bounds{}, false
		}

		minV, maxV, ok := fc.Bounds()
		if !ok {
			return src.Column, schema.Bounds{}, false
		}

		if src.Column.Type == schema.BytesFieldType {
			return src.Column, schema.NewBytesBounds(minV.ByteArray(), maxV.ByteArray()), true
		}
		return src.Column, schema.NewBounds(intOf(minV), intOf(maxV)), true
	}
}

func intOf(v parquet.Value) int64 {
	if v.Kind() == parquet.Int32 {
		return int64(v.Int32())
	}
	return v.Int64()
}

func (h *handle) decodeRowGroup(rg parquet.RowGroup, sources []reader.ColumnSource) (*block.ColumnBatch, error) {
	rows := int(rg.NumRows())
	chunks := rg.ColumnChunks()
	out := make([]block.Column, len(sources))

	for i, src := range sources {
		col, err := block.NewColumn(src.Column, rows)
		if err != nil {
			return nil, err
		}
		out[i] = col

		if src.FileIndex < 0 {
			continue
		}

		if err = readChunk(chunks[h.leaves[src.FileIndex]], col); err != nil {
			return nil, fmt.Errorf("column %s: %w", src.Column.Name, err)
		}
	}

	return block.NewColumnBatch(out, rows, false), nil
}

var errChunkLength = errors.New("column chunk value count does not match row group")

// readChunk fills a zero filled vector, nulls stay zero.
func readChunk(chunk parquet.ColumnChunk, dst block.Column) error {
	values := parquet.NewColumnChunkValueReader(chunk)
	defer values.Close()

	buf := make([]parquet.Value, valueBufferSize)
	row := 0

	for {
		n, err := values.ReadValues(buf)

		if row+n > dst.Len() {
			return errChunkLength
		}

		for _, v := range buf[:n] {
			if !v.IsNull() {
				setValue(dst, row, v)
			}
			row++
		}

		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}
	}

	if row != dst.Len() {
		return errChunkLength
	}
	return nil
}

func setValue(dst block.Column, row int, v parquet.Value) {
	switch typed := dst.(type) {
	case *block.Int16Column:
		typed.Data[row] = int16(v.Int32())
	case *block.Int32Column:
		typed.Data[row] = v.Int32()
	case *block.Int64Column:
		typed.Data[row] = v.Int64()
	case *block.DateColumn:
		typed.Data[row] = v.Int32()
	case *block.DecimalColumn:
		typed.Data[row] = intOf(v)
	case *block.BytesColumn:
		typed.Data[row] = v.Clone().ByteArray()
	}
}

func (h *handle) Close() error {
	if h.closer == nil {
		return nil
	}
	return h.closer.Close()
}

var _ reader.Opener = (*Opener)(nil)
