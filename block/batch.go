package block

// ColumnBatch is a run of decoded rows across the requested columns.
// A batch is consumed strictly in row order by a single lane.
type ColumnBatch struct {
	Columns  []Column
	RowCount int

	// last batch the producing reader will emit
	EndOfFile bool

	cursor int
}

func NewColumnBatch(columns []Column, rows int, endOfFile bool) *ColumnBatch {
	return &ColumnBatch{
		Columns:   columns,
		RowCount:  rows,
		EndOfFile: endOfFile,
	}
}

func (b *ColumnBatch) Cursor() int {
	return b.cursor
}

func (b *ColumnBatch) SetCursor(row int) {
	b.cursor = row
}

func (b *ColumnBatch) Exhausted() bool {
	return b.cursor >= b.RowCount
}

// Row writes one value per column of row i into dst.
func (b *ColumnBatch) Row(i int, dst []Value) {
	for c, col := range b.Columns {
		dst[c] = col.Value(i)
	}
}

// Slice returns rows [from, to) as a new batch sharing storage.
func (b *ColumnBatch) Slice(from, to int, endOfFile bool) *ColumnBatch {
	cols := make([]Column, len(b.Columns))
	for i, c := range b.Columns {
		cols[i] = c.Slice(from, to)
	}
	return NewColumnBatch(cols, to-from, endOfFile)
}
