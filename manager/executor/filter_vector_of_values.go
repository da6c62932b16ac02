package executor

import (
	"fmt"

	"github.com/dot5enko/simple-column-scan/bits"
	"github.com/dot5enko/simple-column-scan/block"
	"github.com/dot5enko/simple-column-scan/manager/query"
	"github.com/dot5enko/simple-column-scan/ops"
	"github.com/dot5enko/simple-column-scan/schema"
)

// EvaluateLeaf writes filter(row) for every row of the batch into out, which must be
// sized to batch.RowCount. The column type is switched on once per batch.
// lossy reports that a decimal literal had to be rounded to the column scale.
func EvaluateLeaf(batch *block.ColumnBatch, filter *query.Compare, out *bits.Mask, packed bool) (lossy bool, err error) {

	if filter.Column < 0 || filter.Column >= len(batch.Columns) {
		return false, fmt.Errorf("filter references column #%d, batch has %d columns", filter.Column, len(batch.Columns))
	}

	column := batch.Columns[filter.Column]
	if column.Len() < batch.RowCount {
		return false, fmt.Errorf("column #%d has %d rows, batch has %d", filter.Column, column.Len(), batch.RowCount)
	}

	colInfo := schema.Column{Name: fmt.Sprintf("#%d", filter.Column), Type: column.Type()}

	switch typed := column.(type) {
	case *block.Int16Column:
		return ProcessSignedFilterOnColumnWithType(typed.Data[:batch.RowCount], colInfo, filter, out, packed)
	case *block.Int32Column:
		return ProcessSignedFilterOnColumnWithType(typed.Data[:batch.RowCount], colInfo, filter, out, packed)
	case *block.Int64Column:
		return ProcessSignedFilterOnColumnWithType(typed.Data[:batch.RowCount], colInfo, filter, out, packed)
	case *block.DateColumn:
		return ProcessSignedFilterOnColumnWithType(typed.Data[:batch.RowCount], colInfo, filter, out, packed)
	case *block.DecimalColumn:
		colInfo.Scale = typed.Scale
		colInfo.Precision = typed.Precision
		return ProcessSignedFilterOnColumnWithType(typed.Data[:batch.RowCount], colInfo, filter, out, packed)
	case *block.BytesColumn:
		operand, rerr := filter.Literal.ResolveBytes(colInfo)
		if rerr != nil {
			return false, rerr
		}
		ops.CompareBytes(typed.Data[:batch.RowCount], filter.Op, operand, out)
		return false, nil
	default:
		return false, fmt.Errorf("%w: column #%d is %T", schema.ErrUnsupportedType, filter.Column, column)
	}
}

func ProcessSignedFilterOnColumnWithType[T ops.SignedInts](
	inputArray []T,
	colInfo schema.Column,
	filter *query.Compare,
	out *bits.Mask,
	packed bool,
) (bool, error) {

	operand, lossy, err := filter.Literal.ResolveInt(colInfo)
	if err != nil {
		return false, err
	}

	switch filter.Op {
	case query.EQ, query.GT, query.GTE, query.LT, query.LTE:
		ops.CompareIntsWide(inputArray, filter.Op, operand, out, packed)
	default:
		return false, fmt.Errorf("unsupported operand type=%d while ProcessSignedFilterOnColumnWithType[%s]", byte(filter.Op), colInfo.Type.String())
	}

	return lossy, nil
}
