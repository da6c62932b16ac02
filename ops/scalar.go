package ops

import (
	"bytes"

	"github.com/dot5enko/simple-column-scan/bits"
	"github.com/dot5enko/simple-column-scan/manager/query"
)

// CompareIntsScalar evaluates one row at a time, arr[0] lands on mask row offset.
func CompareIntsScalar[T SignedInts](arr []T, offset int, op query.CondOperand, lit T, mask *bits.Mask) {
	for i, v := range arr {
		var ok bool
		switch op {
		case query.EQ:
			ok = v == lit
		case query.GT:
			ok = v > lit
		case query.GTE:
			ok = v >= lit
		case query.LT:
			ok = v < lit
		case query.LTE:
			ok = v <= lit
		default:
			panic("unsupported operand " + op.String())
		}
		mask.Set(offset+i, ok)
	}
}

// lexicographic, no packed variant
func CompareBytes(values [][]byte, op query.CondOperand, lit []byte, mask *bits.Mask) {
	for i, v := range values {
		c := bytes.Compare(v, lit)

		var ok bool
		switch op {
		case query.EQ:
			ok = c == 0
		case query.GT:
			ok = c > 0
		case query.GTE:
			ok = c >= 0
		case query.LT:
			ok = c < 0
		case query.LTE:
			ok = c <= 0
		default:
			panic("unsupported operand " + op.String())
		}
		mask.Set(i, ok)
	}
}
