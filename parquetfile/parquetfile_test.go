package parquetfile

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/dot5enko/simple-column-scan/block"
	"github.com/dot5enko/simple-column-scan/manager"
	"github.com/dot5enko/simple-column-scan/manager/query"
	"github.com/dot5enko/simple-column-scan/reader"
	"github.com/dot5enko/simple-column-scan/schema"
	"github.com/parquet-go/parquet-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type lineItem struct {
	ID      int64  `parquet:"id"`
	Qty     int32  `parquet:"qty,int(16)"`
	Part    int32  `parquet:"part"`
	Shipped int32  `parquet:"shipped,date"`
	Comment string `parquet:"comment"`
}

func items(from, n int) []lineItem {
	out := make([]lineItem, n)
	for i := range out {
		v := from + i
		out[i] = lineItem{
			ID:      int64(v),
			Qty:     int32(v % 7),
			Part:    int32(v * 2),
			Shipped: int32(19000 + v),
			Comment: string(rune('a' + v%26)),
		}
	}
	return out
}

// one row group per entry of groups
func writeItems(t *testing.T, path string, groups ...[]lineItem) {
	t.Helper()

	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	w := parquet.NewGenericWriter[lineItem](f)
	for _, g := range groups {
		_, err = w.Write(g)
		require.NoError(t, err)
		require.NoError(t, w.Flush())
	}
	require.NoError(t, w.Close())
}

func readIds(t *testing.T, p reader.Producer) []int64 {
	t.Helper()

	var out []int64
	for {
		b, err := p.NextBatch()
		if errors.Is(err, io.EOF) {
			return out
		}
		require.NoError(t, err)

		for i := 0; i < b.RowCount; i++ {
			out = append(out, b.Columns[0].Value(i).Int)
		}
	}
}

func TestSchemaMapping(t *testing.T) {
	path := filepath.Join(t.TempDir(), "items.parquet")
	writeItems(t, path, items(0, 10))

	h, err := NewOpener().Open(path)
	require.NoError(t, err)
	defer h.Close()

	types := map[string]schema.FieldType{}
	for _, c := range h.Schema() {
		types[c.Name] = c.Type
	}

	assert.Equal(t, map[string]schema.FieldType{
		"id":      schema.Int64FieldType,
		"qty":     schema.Int16FieldType,
		"part":    schema.Int32FieldType,
		"shipped": schema.DateFieldType,
		"comment": schema.BytesFieldType,
	}, types)
	assert.Equal(t, int64(10), h.RowCount())
	assert.Equal(t, 1, h.RowGroupCount())
}

func TestReadValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "items.parquet")
	writeItems(t, path, items(0, 5), items(5, 5))

	h, err := NewOpener().Open(path)
	require.NoError(t, err)
	defer h.Close()

	p, err := h.Read(reader.Options{
		IncludeColumns: []string{"id", "qty", "part", "shipped", "comment"},
		BatchSize:      3,
	})
	require.NoError(t, err)
	defer p.Close()

	var rows [][]block.Value
	var lastEOF bool
	for {
		b, err := p.NextBatch()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)

		for i := 0; i < b.RowCount; i++ {
			row := make([]block.Value, len(b.Columns))
			b.Row(i, row)
			rows = append(rows, row)
		}
		lastEOF = b.EndOfFile
	}

	require.Len(t, rows, 10)
	assert.True(t, lastEOF)

	for i, row := range rows {
		assert.Equal(t, int64(i), row[0].Int)
		assert.Equal(t, int64(i%7), row[1].Int)
		assert.Equal(t, int64(i*2), row[2].Int)
		assert.Equal(t, int64(19000+i), row[3].Int)
		assert.Equal(t, string(rune('a'+i%26)), row[4].String())
	}
}

func TestNarrowIntColumnDecodesAsInt16(t *testing.T) {
	path := filepath.Join(t.TempDir(), "items.parquet")
	writeItems(t, path, items(0, 8))

	h, err := NewOpener().Open(path)
	require.NoError(t, err)
	defer h.Close()

	p, err := h.Read(reader.Options{IncludeColumns: []string{"qty"}, BatchSize: 8})
	require.NoError(t, err)
	defer p.Close()

	b, err := p.NextBatch()
	require.NoError(t, err)

	col, ok := b.Columns[0].(*block.Int16Column)
	require.True(t, ok, "qty decoded as %T", b.Columns[0])
	assert.Equal(t, []int16{0, 1, 2, 3, 4, 5, 6, 0}, col.Data)
}

func TestPushdownKeepsMatchingRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "items.parquet")
	writeItems(t, path, items(0, 10), items(10, 10), items(20, 10))

	h, err := NewOpener().Open(path)
	require.NoError(t, err)
	defer h.Close()

	cols := []schema.Column{{Name: "id", Type: schema.Int64FieldType}}
	filter := query.NewCompare(0, query.GTE, query.Int(25))

	p, err := h.Read(reader.Options{
		IncludeColumns: []string{"id"},
		Schema:         cols,
		Filters:        query.Split(filter, 1),
	})
	require.NoError(t, err)

	ids := readIds(t, p)

	// pruning is a hint, every matching row must still be there
	assert.Subset(t, ids, []int64{25, 26, 27, 28, 29})
	assert.NotContains(t, ids, int64(5))
}

func TestMissingColumn(t *testing.T) {
	path := filepath.Join(t.TempDir(), "items.parquet")
	writeItems(t, path, items(0, 3))

	h, err := NewOpener().Open(path)
	require.NoError(t, err)
	defer h.Close()

	bind := []schema.Column{
		{Name: "id", Type: schema.Int64FieldType},
		{Name: "tax", Type: schema.Int32FieldType},
	}

	p, err := h.Read(reader.Options{IncludeColumns: []string{"id", "tax"}, Schema: bind, TolerantSchemaEvolution: true})
	require.NoError(t, err)

	b, err := p.NextBatch()
	require.NoError(t, err)
	assert.Equal(t, int64(0), b.Columns[1].Value(2).Int)

	_, err = h.Read(reader.Options{IncludeColumns: []string{"id", "tax"}, Schema: bind})
	assert.ErrorIs(t, err, reader.ErrColumnNotFound)
}

func TestIsHTTPURL(t *testing.T) {
	assert.True(t, IsHTTPURL("https://example.com/data/part-0.parquet"))
	assert.True(t, IsHTTPURL("http://localhost:9000/a.parquet"))
	assert.False(t, IsHTTPURL("/tmp/a.parquet"))
	assert.False(t, IsHTTPURL("s3://bucket/a.parquet"))
}

func TestScanOverParquet(t *testing.T) {
	dir := t.TempDir()
	files := []string{filepath.Join(dir, "a.parquet"), filepath.Join(dir, "b.parquet")}
	writeItems(t, files[0], items(0, 40))
	writeItems(t, files[1], items(40, 40))

	cfg := manager.DefaultConfig()
	cfg.Threads = 2

	c, err := manager.Open(context.Background(), NewOpener(), files, manager.Scan{
		Columns: []string{"id", "shipped"},
		Filter:  query.NewCompare(1, query.LT, query.String("2022-01-10")),
	}, cfg)
	require.NoError(t, err)
	defer c.Close()

	// 2022-01-10 is day 19002
	var seen atomic.Int64
	require.NoError(t, c.Run(context.Background(), func(_ *manager.Lane, row []block.Value) error {
		assert.Less(t, row[1].Int, int64(19002))
		seen.Add(1)
		return nil
	}))
	assert.Equal(t, int64(2), seen.Load())
}
