// Package reader describes the decoder capability a scan consumes.
package reader

import (
	"errors"
	"fmt"
	"sort"

	"github.com/dot5enko/simple-column-scan/block"
	"github.com/dot5enko/simple-column-scan/manager/query"
	"github.com/dot5enko/simple-column-scan/schema"
)

var ErrColumnNotFound = errors.New("column not found")

// Opener opens one file of the scan.
type Opener interface {
	Open(path string) (Handle, error)
}

type Handle interface {
	RowGroupCount() int
	RowCount() int64
	Schema() []schema.Column
	Read(opts Options) (Producer, error)
	Close() error
}

// Producer yields batches in file order and io.EOF once the file is done.
type Producer interface {
	NextBatch() (*block.ColumnBatch, error)
	Close() error
}

// Prefetcher is implemented by producers that can decode ahead of the first NextBatch.
type Prefetcher interface {
	Prefetch() error
}

type Options struct {
	IncludeColumns []string

	// row groups [RowGroupStart, RowGroupEnd)
	RowGroupStart int
	RowGroupEnd   int

	BatchSize int

	SkipCorruptRecords      bool
	TolerantSchemaEvolution bool

	// bind schema, one entry per IncludeColumns
	Schema []schema.Column

	// per requested column filter projections, a pruning hint only
	Filters map[int]query.Node
}

// Pushdown joins the per column projections into one conjunction.
func (o Options) Pushdown() query.Node {
	if len(o.Filters) == 0 {
		return nil
	}

	keys := make([]int, 0, len(o.Filters))
	for k := range o.Filters {
		keys = append(keys, k)
	}
	sort.Ints(keys)

	nodes := make([]query.Node, 0, len(keys))
	for _, k := range keys {
		nodes = append(nodes, o.Filters[k])
	}
	return query.AndAll(nodes...)
}

// ColumnSource says where a requested column comes from in a particular file.
// FileIndex -1 means the file lacks it and a zero filled column is synthesized.
type ColumnSource struct {
	FileIndex int
	Column    schema.Column
}

// ResolveColumns maps the requested columns onto a file schema.
func ResolveColumns(fileSchema []schema.Column, opts Options) ([]ColumnSource, error) {
	out := make([]ColumnSource, len(opts.IncludeColumns))

	for i, name := range opts.IncludeColumns {
		idx := schema.IndexOf(fileSchema, name)

		var bind schema.Column
		hasBind := i < len(opts.Schema)
		if hasBind {
			bind = opts.Schema[i]
		}

		if idx < 0 {
			if !opts.TolerantSchemaEvolution || !hasBind {
				return nil, fmt.Errorf("%w: %s", ErrColumnNotFound, name)
			}
			out[i] = ColumnSource{FileIndex: -1, Column: bind}
			continue
		}

		col := fileSchema[idx]
		if hasBind && !sameType(bind, col) {
			return nil, fmt.Errorf("%w: column %s is %s in file, scan expects %s", schema.ErrUnsupportedType, name, col, bind)
		}

		out[i] = ColumnSource{FileIndex: idx, Column: col}
	}

	return out, nil
}

func sameType(a, b schema.Column) bool {
	if a.Type != b.Type {
		return false
	}
	if a.Type == schema.DecimalFieldType {
		return a.Scale == b.Scale
	}
	return true
}

// RowGroupRange clamps the requested range to what the file has.
func (o Options) RowGroupRange(total int) (int, int) {
	start, end := o.RowGroupStart, o.RowGroupEnd
	if end <= 0 || end > total {
		end = total
	}
	if start < 0 {
		start = 0
	}
	if start > end {
		start = end
	}
	return start, end
}
