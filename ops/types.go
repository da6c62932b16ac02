package ops

import (
	"unsafe"

	"github.com/dot5enko/simple-column-scan/bits"
	"github.com/dot5enko/simple-column-scan/manager/query"
	"golang.org/x/exp/constraints"
)

type SignedInts = constraints.Signed

func b2i(b bool) int {
	if b {
		return 1
	}
	return 0
}

// CompareInts writes op(arr[i], lit) for every row into mask.
// The packed path handles 8 rows per step, the tail always goes through the scalar loop.
func CompareInts[T SignedInts](arr []T, op query.CondOperand, lit T, mask *bits.Mask, packed bool) {
	from := 0
	if packed {
		from = CompareIntsPacked(arr, op, lit, mask)
	}
	CompareIntsScalar(arr[from:], from, op, lit, mask)
}

// CompareIntsWide is CompareInts with a literal that may fall outside T.
// Such literals saturate: every row gets the same answer.
func CompareIntsWide[T SignedInts](arr []T, op query.CondOperand, lit int64, mask *bits.Mask, packed bool) {
	v, cmp := SaturateLiteral[T](lit)
	if cmp == 0 {
		CompareInts(arr, op, v, mask, packed)
		return
	}

	// cmp < 0: literal below every value of T, cmp > 0: above
	var all bool
	switch op {
	case query.EQ:
		all = false
	case query.GT, query.GTE:
		all = cmp < 0
	case query.LT, query.LTE:
		all = cmp > 0
	}

	if all {
		mask.SetAll()
	} else {
		mask.ClearAll()
	}
}

// SaturateLiteral clamps lit to T, cmp reports on which side it was clipped.
func SaturateLiteral[T SignedInts](lit int64) (v T, cmp int) {
	var zero T
	bitsize := 8 * int(unsafe.Sizeof(zero))
	if bitsize == 64 {
		return T(lit), 0
	}

	maxV := int64(1)<<(bitsize-1) - 1
	minV := -maxV - 1

	if lit > maxV {
		return T(maxV), 1
	}
	if lit < minV {
		return T(minV), -1
	}
	return T(lit), 0
}
