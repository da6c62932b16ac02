package reader

import (
	"errors"
	"io"
	"testing"

	"github.com/dot5enko/simple-column-scan/block"
	"github.com/dot5enko/simple-column-scan/manager/query"
	"github.com/dot5enko/simple-column-scan/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testTable() *MemoryTable {
	return &MemoryTable{
		Schema: []schema.Column{
			{Name: "id", Type: schema.Int64FieldType},
			{Name: "name", Type: schema.BytesFieldType},
		},
		RowGroups: [][]block.Column{
			{
				&block.Int64Column{Data: []int64{1, 2, 3, 4, 5}},
				&block.BytesColumn{Data: [][]byte{[]byte("a"), []byte("b"), []byte("c"), []byte("d"), []byte("e")}},
			},
			{
				&block.Int64Column{Data: []int64{}},
				&block.BytesColumn{Data: [][]byte{}},
			},
			{
				&block.Int64Column{Data: []int64{10, 11, 12}},
				&block.BytesColumn{Data: [][]byte{[]byte("x"), []byte("y"), []byte("z")}},
			},
		},
	}
}

func readAll(t *testing.T, p Producer) (ids []int64, eofFlags []bool) {
	t.Helper()

	for {
		b, err := p.NextBatch()
		if errors.Is(err, io.EOF) {
			return
		}
		require.NoError(t, err)

		for i := 0; i < b.RowCount; i++ {
			ids = append(ids, b.Columns[0].Value(i).Int)
		}
		eofFlags = append(eofFlags, b.EndOfFile)
	}
}

func TestMemoryReaderBatches(t *testing.T) {
	opener := NewMemoryOpener()
	opener.Add("t", testTable())

	h, err := opener.Open("t")
	require.NoError(t, err)
	defer h.Close()

	assert.Equal(t, 3, h.RowGroupCount())
	assert.Equal(t, int64(8), h.RowCount())

	p, err := h.Read(Options{IncludeColumns: []string{"id"}, BatchSize: 2})
	require.NoError(t, err)

	ids, eof := readAll(t, p)
	assert.Equal(t, []int64{1, 2, 3, 4, 5, 10, 11, 12}, ids)
	// 2+2+1 from the first group, 2+1 from the last one
	assert.Equal(t, []bool{false, false, false, false, true}, eof)

	_, err = p.NextBatch()
	assert.ErrorIs(t, err, io.EOF)
	require.NoError(t, p.Close())
}

func TestMemoryReaderPushdown(t *testing.T) {
	opener := NewMemoryOpener()
	opener.Add("t", testTable())

	h, err := opener.Open("t")
	require.NoError(t, err)
	defer h.Close()

	p, err := h.Read(Options{
		IncludeColumns: []string{"name", "id"},
		BatchSize:      10,
		Filters:        map[int]query.Node{1: query.NewCompare(1, query.GT, query.Int(7))},
	})
	require.NoError(t, err)

	b, err := p.NextBatch()
	require.NoError(t, err)
	assert.Equal(t, 3, b.RowCount)
	assert.True(t, b.EndOfFile)
	assert.Equal(t, "x", b.Columns[0].Value(0).String())
}

func TestMemoryReaderRowGroupRange(t *testing.T) {
	opener := NewMemoryOpener()
	opener.Add("t", testTable())

	h, _ := opener.Open("t")
	defer h.Close()

	p, err := h.Read(Options{IncludeColumns: []string{"id"}, RowGroupStart: 2, RowGroupEnd: 3})
	require.NoError(t, err)

	ids, _ := readAll(t, p)
	assert.Equal(t, []int64{10, 11, 12}, ids)
}

func TestMemoryOpenerTracksHandles(t *testing.T) {
	opener := NewMemoryOpener()
	opener.Add("t", testTable())
	opener.Add("broken", &MemoryTable{OpenErr: errors.New("nope")})

	h1, _ := opener.Open("t")
	h2, _ := opener.Open("t")
	assert.Equal(t, 2, opener.Live())

	h1.Close()
	h1.Close()
	assert.Equal(t, 1, opener.Live())
	h2.Close()
	assert.Equal(t, 0, opener.Live())

	_, err := opener.Open("broken")
	assert.Error(t, err)
	_, err = opener.Open("missing")
	assert.ErrorIs(t, err, ErrFileNotFound)
	assert.Equal(t, 2, opener.Opened("t"))
}

func TestResolveColumns(t *testing.T) {
	fileSchema := []schema.Column{
		{Name: "id", Type: schema.Int64FieldType},
		{Name: "price", Type: schema.DecimalFieldType, Scale: 2, Precision: 9},
	}
	bind := []schema.Column{
		{Name: "price", Type: schema.DecimalFieldType, Scale: 2, Precision: 9},
		{Name: "qty", Type: schema.Int32FieldType},
	}

	_, err := ResolveColumns(fileSchema, Options{IncludeColumns: []string{"price", "qty"}, Schema: bind})
	assert.ErrorIs(t, err, ErrColumnNotFound)

	src, err := ResolveColumns(fileSchema, Options{IncludeColumns: []string{"price", "qty"}, Schema: bind, TolerantSchemaEvolution: true})
	require.NoError(t, err)
	assert.Equal(t, 1, src[0].FileIndex)
	assert.Equal(t, -1, src[1].FileIndex)

	bind[0].Scale = 3
	_, err = ResolveColumns(fileSchema, Options{IncludeColumns: []string{"price"}, Schema: bind[:1]})
	assert.ErrorIs(t, err, schema.ErrUnsupportedType)
}

func TestRowGroupProducerPrefetch(t *testing.T) {
	fetched := 0
	groups := []*block.ColumnBatch{
		block.NewColumnBatch([]block.Column{&block.Int16Column{Data: []int16{1, 2, 3}}}, 3, false),
	}

	p := NewRowGroupProducer(0, func() (*block.ColumnBatch, error) {
		if fetched >= len(groups) {
			return nil, io.EOF
		}
		fetched++
		return groups[fetched-1], nil
	}, nil)

	require.NoError(t, p.Prefetch())
	assert.Equal(t, 1, fetched)

	b, err := p.NextBatch()
	require.NoError(t, err)
	assert.Equal(t, 3, b.RowCount)
	assert.True(t, b.EndOfFile)

	_, err = p.NextBatch()
	assert.ErrorIs(t, err, io.EOF)
}
