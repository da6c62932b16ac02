package manager

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/dot5enko/simple-column-scan/bits"
	"github.com/dot5enko/simple-column-scan/block"
	"github.com/dot5enko/simple-column-scan/manager/query"
	"github.com/dot5enko/simple-column-scan/reader"
	"github.com/dot5enko/simple-column-scan/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

var idSchema = []schema.Column{{Name: "id", Type: schema.Int64FieldType}}

// table of sequential ids [from, from+n) split into row groups of groupSize
func idTable(from, n, groupSize int) *reader.MemoryTable {
	t := &reader.MemoryTable{Schema: idSchema}

	for start := 0; start < n; start += groupSize {
		end := min(start+groupSize, n)
		data := make([]int64, 0, end-start)
		for v := start; v < end; v++ {
			data = append(data, int64(from+v))
		}
		t.RowGroups = append(t.RowGroups, []block.Column{&block.Int64Column{Data: data}})
	}
	return t
}

func memoryFiles(opener *reader.MemoryOpener, tables ...*reader.MemoryTable) []string {
	files := make([]string, len(tables))
	for i, t := range tables {
		files[i] = fmt.Sprintf("mem://file_%d", i)
		opener.Add(files[i], t)
	}
	return files
}

func testConfig(threads, batchSize int) ManagerConfig {
	cfg := DefaultConfig()
	cfg.Threads = threads
	cfg.BatchSize = batchSize
	return cfg
}

// collects every lane's rows, lane by lane
func drainLanes(t *testing.T, c *Coordinator) [][]int64 {
	t.Helper()

	out := make([][]int64, c.LaneCount())
	row := make([]block.Value, len(c.Columns()))

	for id := 0; id < c.LaneCount(); id++ {
		lane, err := c.AcquireLane(id)
		require.NoError(t, err)

		for {
			ok, err := lane.Next(row)
			require.NoError(t, err)
			if !ok {
				break
			}
			out[id] = append(out[id], row[0].Int)
		}
	}
	return out
}

func TestUnevenFilesOnTwoLanes(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	opener := reader.NewMemoryOpener()
	files := memoryFiles(opener, idTable(0, 10, 4), idTable(100, 0, 4), idTable(200, 5, 4))

	c, err := Open(context.Background(), opener, files, Scan{Columns: []string{"id"}}, testConfig(2, 3))
	require.NoError(t, err)
	defer c.Close()

	require.Equal(t, 2, c.LaneCount())
	assert.Equal(t, []int{0, 2}, c.sched.Plans()[0].Files)
	assert.Equal(t, []int{1}, c.sched.Plans()[1].Files)

	lane1, err := c.AcquireLane(1)
	require.NoError(t, err)
	assert.Equal(t, LanePrimed, lane1.State())
	assert.Equal(t, files[1], lane1.CurrentFile())

	cur, next := lane1.Slots()
	assert.True(t, cur)
	assert.False(t, next)

	row := make([]block.Value, 1)
	ok, err := lane1.Next(row)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, LaneDrained, lane1.State())
	assert.Equal(t, 1, lane1.FilesDone())

	rows := drainLanes(t, c)
	assert.Len(t, rows[0], 15)
	assert.Empty(t, rows[1])

	expected := []int64{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 200, 201, 202, 203, 204}
	assert.Equal(t, expected, rows[0])

	assert.Equal(t, float64(100), c.Progress())
	assert.Equal(t, int64(30), c.EstimateCardinality())

	exact, err := c.CountRows(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(15), exact)

	require.NoError(t, c.Close())
	assert.Equal(t, 0, opener.Live())
}

func TestDoubleBufferInvariant(t *testing.T) {
	opener := reader.NewMemoryOpener()

	tables := make([]*reader.MemoryTable, 5)
	for i := range tables {
		tables[i] = idTable(i*10, 3, 2)
	}
	files := memoryFiles(opener, tables...)

	c, err := Open(context.Background(), opener, files, Scan{Columns: []string{"id"}}, testConfig(1, 2))
	require.NoError(t, err)
	defer c.Close()

	lane, err := c.AcquireLane(0)
	require.NoError(t, err)

	row := make([]block.Value, 1)
	seen := 0

	for {
		ok, err := lane.Next(row)
		require.NoError(t, err)
		if !ok {
			break
		}
		seen++

		remaining := len(files) - lane.FilesDone()
		cur, next := lane.Slots()

		require.True(t, cur, "current reader must be open while delivering")
		if remaining > 1 {
			assert.True(t, next, "next reader must be open with %d files left", remaining)
		} else {
			assert.False(t, next, "no next reader on the last file")
		}
	}

	assert.Equal(t, 15, seen)

	cur, next := lane.Slots()
	assert.False(t, cur)
	assert.False(t, next)
	assert.Equal(t, 0, opener.Live())
}

func TestFilterOnIntColumn(t *testing.T) {
	opener := reader.NewMemoryOpener()
	files := memoryFiles(opener, idTable(1, 9, 9))

	scanRows := func(filter query.Node) []int64 {
		c, err := Open(context.Background(), opener, files, Scan{Columns: []string{"id"}, Filter: filter}, testConfig(1, 0))
		require.NoError(t, err)
		defer c.Close()

		return drainLanes(t, c)[0]
	}

	gt5 := query.NewCompare(0, query.GT, query.Int(5))
	lt8 := query.NewCompare(0, query.LT, query.Int(8))

	assert.Equal(t, []int64{6, 7, 8, 9}, scanRows(gt5))
	assert.Equal(t, []int64{6, 7}, scanRows(query.NewAnd(gt5, lt8)))
	assert.Equal(t, []int64{1, 2, 3, 4, 5, 6, 7, 8, 9}, scanRows(query.NewOr(query.NewCompare(0, query.LTE, query.Int(5)), gt5)))
}

func TestNoneMaskEmitsNothing(t *testing.T) {
	opener := reader.NewMemoryOpener()
	files := memoryFiles(opener, idTable(0, 100, 100), idTable(100, 100, 100))

	filter := query.NewAnd(
		query.NewCompare(0, query.GT, query.Int(10)),
		query.NewCompare(0, query.LT, query.Int(5)),
	)

	c, err := Open(context.Background(), opener, files, Scan{Columns: []string{"id"}, Filter: filter}, testConfig(1, 16))
	require.NoError(t, err)
	defer c.Close()

	rows := drainLanes(t, c)
	assert.Empty(t, rows[0])

	lane, _ := c.AcquireLane(0)
	assert.Zero(t, lane.RowsEmitted())
	assert.Equal(t, 2, lane.FilesDone())
}

func TestAndShortCircuitSkipsRightSide(t *testing.T) {
	evens := make([]int64, 64)
	for i := range evens {
		evens[i] = int64(i * 2)
	}

	opener := reader.NewMemoryOpener()
	files := memoryFiles(opener, &reader.MemoryTable{Schema: idSchema, RowGroups: [][]block.Column{{&block.Int64Column{Data: evens}}}})

	// odd literals sit inside the row group bounds, so pruning keeps the group and every batch is evaluated
	never := query.NewCompare(0, query.EQ, query.Int(1))
	c, err := Open(context.Background(), opener, files, Scan{
		Columns: []string{"id"},
		Filter:  query.NewOr(query.NewAnd(never, query.NewCompare(0, query.GT, query.Int(0))), query.NewCompare(0, query.EQ, query.Int(3))),
	}, testConfig(1, 8))
	require.NoError(t, err)
	defer c.Close()

	rows := drainLanes(t, c)
	assert.Empty(t, rows[0])

	lane, _ := c.AcquireLane(0)
	stats := lane.EvaluatorStats()

	// 8 batches: the AND evaluates its left leaf only, the OR then evaluates its right leaf
	assert.Equal(t, 8, stats.AndShortCircuits)
	assert.Equal(t, 16, stats.LeafEvaluations)
}

func TestRescanReplaysRows(t *testing.T) {
	opener := reader.NewMemoryOpener()
	files := memoryFiles(opener, idTable(0, 7, 3), idTable(10, 4, 3), idTable(20, 9, 3), idTable(30, 1, 3))

	c, err := Open(context.Background(), opener, files, Scan{Columns: []string{"id"}}, testConfig(3, 2))
	require.NoError(t, err)
	defer c.Close()

	first := drainLanes(t, c)

	require.NoError(t, c.Rescan(context.Background()))
	second := drainLanes(t, c)

	assert.Equal(t, first, second)
	assert.Equal(t, []int64{0, 1, 2, 3, 4, 5, 6, 30}, first[0])
}

func TestRescanMidway(t *testing.T) {
	opener := reader.NewMemoryOpener()
	files := memoryFiles(opener, idTable(0, 5, 5), idTable(5, 5, 5))

	c, err := Open(context.Background(), opener, files, Scan{Columns: []string{"id"}}, testConfig(1, 2))
	require.NoError(t, err)
	defer c.Close()

	lane, _ := c.AcquireLane(0)
	row := make([]block.Value, 1)
	for range 3 {
		ok, err := lane.Next(row)
		require.NoError(t, err)
		require.True(t, ok)
	}

	require.NoError(t, c.Rescan(context.Background()))
	assert.Equal(t, 0, c.lanes[0].FilesDone())

	rows := drainLanes(t, c)
	assert.Equal(t, []int64{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, rows[0])
	require.NoError(t, c.Close())
	assert.Equal(t, 0, opener.Live())
}

func TestOpenErrorAbortsEveryLane(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	opener := reader.NewMemoryOpener()

	tables := make([]*reader.MemoryTable, 8)
	for i := range tables {
		tables[i] = idTable(i*100, 50, 10)
	}
	broken := errors.New("disk on fire")
	tables[5] = &reader.MemoryTable{Schema: idSchema, OpenErr: broken}

	files := memoryFiles(opener, tables...)

	c, err := Open(context.Background(), opener, files, Scan{Columns: []string{"id"}}, testConfig(2, 8))
	require.NoError(t, err)

	err = c.Run(context.Background(), func(lane *Lane, row []block.Value) error {
		return nil
	})
	require.ErrorIs(t, err, ErrReaderOpen)
	assert.True(t, c.Aborted())

	for id := 0; id < c.LaneCount(); id++ {
		lane, _ := c.AcquireLane(id)
		_, err := lane.Next(make([]block.Value, 1))
		if lane.State() != LaneDrained {
			require.ErrorIs(t, err, ErrReaderOpen)
		}
	}

	require.NoError(t, c.Close())
	assert.Equal(t, 0, opener.Live())
}

func TestFilterErrorStopsLane(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	opener := reader.NewMemoryOpener()

	// schema says int64, the row group holds bytes
	mislabeled := &reader.MemoryTable{
		Schema:    idSchema,
		RowGroups: [][]block.Column{{&block.BytesColumn{Data: [][]byte{[]byte("a"), []byte("b")}}}},
	}
	files := memoryFiles(opener, idTable(0, 5, 5), mislabeled, idTable(100, 5, 5))

	c, err := Open(context.Background(), opener, files, Scan{
		Columns: []string{"id"},
		Filter:  query.NewCompare(0, query.GTE, query.Int(0)),
	}, testConfig(1, 0))
	require.NoError(t, err)

	lane, err := c.AcquireLane(0)
	require.NoError(t, err)

	row := make([]block.Value, 1)
	var got []int64
	for {
		ok, err := lane.Next(row)
		if err != nil {
			break
		}
		require.True(t, ok, "lane drained without reporting the filter error")
		got = append(got, row[0].Int)
	}
	assert.Equal(t, []int64{0, 1, 2, 3, 4}, got)

	// nothing past the failed batch, the third file is never delivered
	ok, err := lane.Next(row)
	assert.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, LaneDrained, lane.State())
	assert.True(t, c.Aborted())
	assert.Equal(t, 0, opener.Live())

	require.NoError(t, c.Close())
}

func TestProbeOpenError(t *testing.T) {
	opener := reader.NewMemoryOpener()
	files := memoryFiles(opener, &reader.MemoryTable{Schema: idSchema, OpenErr: errors.New("gone")}, idTable(0, 5, 5))

	_, err := Open(context.Background(), opener, files, Scan{Columns: []string{"id"}}, testConfig(1, 0))
	require.ErrorIs(t, err, ErrReaderOpen)
}

func TestBindErrors(t *testing.T) {
	opener := reader.NewMemoryOpener()
	files := memoryFiles(opener, idTable(0, 5, 5))
	ctx := context.Background()

	_, err := Open(ctx, opener, nil, Scan{Columns: []string{"id"}}, DefaultConfig())
	require.ErrorIs(t, err, ErrConfiguration)

	_, err = Open(ctx, opener, files, Scan{Columns: []string{"missing"}}, DefaultConfig())
	require.ErrorIs(t, err, ErrConfiguration)
	require.ErrorIs(t, err, reader.ErrColumnNotFound)

	_, err = Open(ctx, opener, files, Scan{
		Columns: []string{"id"},
		Filter:  query.NewCompare(0, query.EQ, query.String("abc")),
	}, DefaultConfig())
	require.ErrorIs(t, err, ErrUnsupportedType)

	_, err = Open(ctx, opener, files, Scan{
		Columns: []string{"id"},
		Filter:  query.NewCompare(3, query.EQ, query.Int(1)),
	}, DefaultConfig())
	require.Error(t, err)

	cfg := DefaultConfig()
	cfg.BatchSize = -1
	_, err = Open(ctx, opener, files, Scan{Columns: []string{"id"}}, cfg)
	require.ErrorIs(t, err, ErrConfiguration)

	c, err := Open(ctx, opener, files, Scan{Columns: []string{"id"}}, DefaultConfig())
	require.NoError(t, err)
	defer c.Close()

	_, err = c.AcquireLane(1)
	require.ErrorIs(t, err, ErrConfiguration)
}

func TestSchemaEvolution(t *testing.T) {
	wide := []schema.Column{
		{Name: "id", Type: schema.Int64FieldType},
		{Name: "qty", Type: schema.Int32FieldType},
	}

	first := &reader.MemoryTable{Schema: wide, RowGroups: [][]block.Column{{
		&block.Int64Column{Data: []int64{1, 2}},
		&block.Int32Column{Data: []int32{10, 20}},
	}}}
	// an older file written before qty existed
	second := idTable(3, 2, 2)

	t.Run("tolerant", func(t *testing.T) {
		opener := reader.NewMemoryOpener()
		files := memoryFiles(opener, first, second)

		c, err := Open(context.Background(), opener, files, Scan{Columns: []string{"id", "qty"}}, testConfig(1, 0))
		require.NoError(t, err)
		defer c.Close()

		var qty []int64
		err = c.Run(context.Background(), func(lane *Lane, row []block.Value) error {
			qty = append(qty, row[1].Int)
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, []int64{10, 20, 0, 0}, qty)
	})

	t.Run("strict", func(t *testing.T) {
		opener := reader.NewMemoryOpener()
		files := memoryFiles(opener, first, second)

		cfg := testConfig(1, 0)
		cfg.TolerantSchemaEvolution = false

		c, err := Open(context.Background(), opener, files, Scan{Columns: []string{"id", "qty"}}, cfg)
		if err == nil {
			err = c.Run(context.Background(), func(lane *Lane, row []block.Value) error { return nil })
			c.Close()
		}
		require.ErrorIs(t, err, ErrReaderOpen)
		require.ErrorIs(t, err, reader.ErrColumnNotFound)
	})
}

func TestRunBatchesCountsAdmittedRows(t *testing.T) {
	opener := reader.NewMemoryOpener()
	files := memoryFiles(opener, idTable(0, 100, 30), idTable(100, 100, 30), idTable(200, 100, 30))

	filter := query.NewCompare(0, query.GTE, query.Int(150))
	c, err := Open(context.Background(), opener, files, Scan{Columns: []string{"id"}, Filter: filter}, testConfig(2, 16))
	require.NoError(t, err)
	defer c.Close()

	counts := make([]int, c.LaneCount())
	err = c.RunBatches(context.Background(), func(lane *Lane, batch *block.ColumnBatch, mask *bits.Mask) error {
		if mask == nil {
			counts[lane.ID()] += batch.RowCount
		} else {
			counts[lane.ID()] += mask.Count()
		}
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, 150, counts[0]+counts[1])
}

func TestRunStopsOnCallbackError(t *testing.T) {
	opener := reader.NewMemoryOpener()
	files := memoryFiles(opener, idTable(0, 100, 10), idTable(100, 100, 10))

	c, err := Open(context.Background(), opener, files, Scan{Columns: []string{"id"}}, testConfig(2, 8))
	require.NoError(t, err)
	defer c.Close()

	stop := errors.New("enough")
	err = c.Run(context.Background(), func(lane *Lane, row []block.Value) error {
		if row[0].Int == 42 {
			return stop
		}
		return nil
	})
	require.ErrorIs(t, err, stop)
}
