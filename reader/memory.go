package reader

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/dot5enko/simple-column-scan/block"
	"github.com/dot5enko/simple-column-scan/manager/query"
	"github.com/dot5enko/simple-column-scan/schema"
)

var ErrFileNotFound = errors.New("file not found")

// MemoryTable is an already decoded file. Every row group must hold one column per schema entry.
type MemoryTable struct {
	Schema    []schema.Column
	RowGroups [][]block.Column

	// returned from Open instead of a handle
	OpenErr error
}

func (t *MemoryTable) rows(group int) int {
	if len(t.RowGroups[group]) == 0 {
		return 0
	}
	return t.RowGroups[group][0].Len()
}

// MemoryOpener serves MemoryTables by path. It counts open handles, which the
// scan tests use to check that lanes release readers.
type MemoryOpener struct {
	lock   sync.Mutex
	tables map[string]*MemoryTable

	opened map[string]int
	live   int
}

func NewMemoryOpener() *MemoryOpener {
	return &MemoryOpener{
		tables: map[string]*MemoryTable{},
		opened: map[string]int{},
	}
}

func (m *MemoryOpener) Add(path string, table *MemoryTable) {
	m.lock.Lock()
	defer m.lock.Unlock()

	m.tables[path] = table
}

// Live is the number of handles opened and not yet closed.
func (m *MemoryOpener) Live() int {
	m.lock.Lock()
	defer m.lock.Unlock()

	return m.live
}

// Opened counts Open calls for path, successful or not.
func (m *MemoryOpener) Opened(path string) int {
	m.lock.Lock()
	defer m.lock.Unlock()

	return m.opened[path]
}

func (m *MemoryOpener) Open(path string) (Handle, error) {
	m.lock.Lock()
	defer m.lock.Unlock()

	m.opened[path]++

	t, ok := m.tables[path]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
	}
	if t.OpenErr != nil {
		return nil, t.OpenErr
	}

	m.live++
	return &memoryHandle{owner: m, table: t}, nil
}

type memoryHandle struct {
	owner  *MemoryOpener
	table  *MemoryTable
	closed bool
}

func (h *memoryHandle) RowGroupCount() int {
	return len(h.table.RowGroups)
}

func (h *memoryHandle) RowCount() int64 {
	var total int64
	for g := range h.table.RowGroups {
		total += int64(h.table.rows(g))
	}
	return total
}

func (h *memoryHandle) Schema() []schema.Column {
	return h.table.Schema
}

func (h *memoryHandle) Read(opts Options) (Producer, error) {

	sources, err := ResolveColumns(h.table.Schema, opts)
	if err != nil {
		return nil, err
	}

	start, end := opts.RowGroupRange(len(h.table.RowGroups))
	pushdown := opts.Pushdown()
	group := start

	fetch := func() (*block.ColumnBatch, error) {
		for ; group < end; group++ {
			cols := h.table.RowGroups[group]
			rows := h.table.rows(group)

			if pushdown != nil {
				match, merr := query.MatchBounds(pushdown, func(column int) (schema.Column, schema.Bounds, bool) {
					src := sources[column]
					if src.FileIndex < 0 {
						return src.Column, schema.Bounds{}, false
					}
					return src.Column, ColumnBounds(cols[src.FileIndex]), true
				})
				if merr != nil {
					return nil, merr
				}
				if match == schema.NoIntersection {
					continue
				}
			}

			out := make([]block.Column, len(sources))
			for i, src := range sources {
				if src.FileIndex < 0 {
					if out[i], err = block.NewColumn(src.Column, rows); err != nil {
						return nil, err
					}
					continue
				}
				out[i] = cols[src.FileIndex]
			}

			group++
			return block.NewColumnBatch(out, rows, false), nil
		}
		return nil, io.EOF
	}

	return NewRowGroupProducer(opts.BatchSize, fetch, nil), nil
}

func (h *memoryHandle) Close() error {
	h.owner.lock.Lock()
	defer h.owner.lock.Unlock()

	if h.closed {
		return nil
	}
	h.closed = true
	h.owner.live--

	return nil
}

// ColumnBounds computes min/max statistics of a decoded column.
func ColumnBounds(c block.Column) schema.Bounds {
	switch typed := c.(type) {
	case *block.Int16Column:
		return schema.GetMaxMinBounds(typed.Data)
	case *block.Int32Column:
		return schema.GetMaxMinBounds(typed.Data)
	case *block.Int64Column:
		return schema.GetMaxMinBounds(typed.Data)
	case *block.DateColumn:
		return schema.GetMaxMinBounds(typed.Data)
	case *block.DecimalColumn:
		return schema.GetMaxMinBounds(typed.Data)
	case *block.BytesColumn:
		return schema.GetMaxMinBytesBounds(typed.Data)
	}
	return schema.Bounds{}
}
