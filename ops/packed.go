package ops

import (
	"github.com/dot5enko/simple-column-scan/bits"
	"github.com/dot5enko/simple-column-scan/manager/query"
)

// CompareIntsPacked evaluates full groups of 8 rows, packing each group into one byte
// (bit k = row i+k). Returns the number of rows handled.
func CompareIntsPacked[T SignedInts](arr []T, op query.CondOperand, lit T, mask *bits.Mask) int {
	n := len(arr)
	i := 0

	switch op {
	case query.EQ:
		for ; i+7 < n; i += 8 {
			mask.SetByteAligned(i, packEq(arr[i:i+8], lit))
		}
	case query.GT:
		for ; i+7 < n; i += 8 {
			mask.SetByteAligned(i, packGt(arr[i:i+8], lit))
		}
	case query.GTE:
		for ; i+7 < n; i += 8 {
			mask.SetByteAligned(i, ^packLt(arr[i:i+8], lit))
		}
	case query.LT:
		for ; i+7 < n; i += 8 {
			mask.SetByteAligned(i, packLt(arr[i:i+8], lit))
		}
	case query.LTE:
		for ; i+7 < n; i += 8 {
			mask.SetByteAligned(i, ^packGt(arr[i:i+8], lit))
		}
	default:
		panic("unsupported operand " + op.String())
	}

	return i
}

func packEq[T SignedInts](a []T, cmp T) byte {
	_ = a[7]

	im0 := b2i(a[0] == cmp)
	im1 := b2i(a[1] == cmp)
	im2 := b2i(a[2] == cmp)
	im3 := b2i(a[3] == cmp)
	im4 := b2i(a[4] == cmp)
	im5 := b2i(a[5] == cmp)
	im6 := b2i(a[6] == cmp)
	im7 := b2i(a[7] == cmp)

	return byte(im0 | im1<<1 | im2<<2 | im3<<3 | im4<<4 | im5<<5 | im6<<6 | im7<<7)
}

func packGt[T SignedInts](a []T, cmp T) byte {
	_ = a[7]

	im0 := b2i(a[0] > cmp)
	im1 := b2i(a[1] > cmp)
	im2 := b2i(a[2] > cmp)
	im3 := b2i(a[3] > cmp)
	im4 := b2i(a[4] > cmp)
	im5 := b2i(a[5] > cmp)
	im6 := b2i(a[6] > cmp)
	im7 := b2i(a[7] > cmp)

	return byte(im0 | im1<<1 | im2<<2 | im3<<3 | im4<<4 | im5<<5 | im6<<6 | im7<<7)
}

func packLt[T SignedInts](a []T, cmp T) byte {
	_ = a[7]

	im0 := b2i(a[0] < cmp)
	im1 := b2i(a[1] < cmp)
	im2 := b2i(a[2] < cmp)
	im3 := b2i(a[3] < cmp)
	im4 := b2i(a[4] < cmp)
	im5 := b2i(a[5] < cmp)
	im6 := b2i(a[6] < cmp)
	im7 := b2i(a[7] < cmp)

	return byte(im0 | im1<<1 | im2<<2 | im3<<3 | im4<<4 | im5<<5 | im6<<6 | im7<<7)
}
