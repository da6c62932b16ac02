package schema

import (
	"bytes"

	"github.com/dot5enko/simple-column-scan/bits"
	"golang.org/x/exp/constraints"
)

type BoundsFilterMatchResult uint8

const (
	UnknownIntersection BoundsFilterMatchResult = iota
	NoIntersection
	PartialIntersection
	FullIntersection
)

func (r BoundsFilterMatchResult) String() string {
	switch r {
	case NoIntersection:
		return "none"
	case PartialIntersection:
		return "partial"
	case FullIntersection:
		return "full"
	default:
		return "unknown"
	}
}

// Bounds holds min/max statistics of a column chunk.
// Numeric types (date and decimal included) use Min/Max in their raw int64 form,
// bytes columns use MinBytes/MaxBytes.
type Bounds struct {
	HasStats bool

	Min int64
	Max int64

	MinBytes []byte
	MaxBytes []byte
}

func NewBounds(min, max int64) Bounds {
	return Bounds{HasStats: true, Min: min, Max: max}
}

func NewBytesBounds(min, max []byte) Bounds {
	return Bounds{HasStats: true, MinBytes: min, MaxBytes: max}
}

func (b *Bounds) Contains(v int64) bool {
	return v >= b.Min && v <= b.Max
}

func (b *Bounds) ContainsBytes(v []byte) bool {
	return bytes.Compare(v, b.MinBytes) >= 0 && bytes.Compare(v, b.MaxBytes) <= 0
}

// widens b to cover other, reports whether anything changed
func (b *Bounds) Morph(other Bounds) bool {
	if !other.HasStats {
		return false
	}
	if !b.HasStats {
		*b = other
		return true
	}

	changes := 0

	if other.Min < b.Min {
		b.Min = other.Min
		changes += 1
	}
	if other.Max > b.Max {
		b.Max = other.Max
		changes += 1
	}
	if other.MinBytes != nil && bytes.Compare(other.MinBytes, b.MinBytes) < 0 {
		b.MinBytes = other.MinBytes
		changes += 1
	}
	if other.MaxBytes != nil && bytes.Compare(other.MaxBytes, b.MaxBytes) > 0 {
		b.MaxBytes = other.MaxBytes
		changes += 1
	}

	return changes != 0
}

func GetMaxMinBounds[T constraints.Integer](arr []T) Bounds {
	if len(arr) == 0 {
		return Bounds{}
	}

	minV, maxV := arr[0], arr[0]

	for _, v := range arr[1:] {
		if v < minV {
			minV = v
		}
		if v > maxV {
			maxV = v
		}
	}
	return NewBounds(int64(minV), int64(maxV))
}

func GetMaxMinBytesBounds(arr [][]byte) Bounds {
	if len(arr) == 0 {
		return Bounds{}
	}

	minV, maxV := arr[0], arr[0]
	for _, v := range arr[1:] {
		if bytes.Compare(v, minV) < 0 {
			minV = v
		}
		if bytes.Compare(v, maxV) > 0 {
			maxV = v
		}
	}
	return NewBytesBounds(minV, maxV)
}

func (b *Bounds) FromBytes(reader *bits.BitsReader, typ FieldType) (topErr error) {

	flag, topErr := reader.ReadU8()
	if topErr != nil {
		return topErr
	}

	b.HasStats = flag == 1
	if !b.HasStats {
		return nil
	}

	if typ == BytesFieldType {
		if b.MinBytes, topErr = reader.ReadLenBytes(); topErr != nil {
			return topErr
		}
		b.MaxBytes, topErr = reader.ReadLenBytes()
		return topErr
	}

	if b.Min, topErr = reader.ReadI64(); topErr != nil {
		return topErr
	}
	b.Max, topErr = reader.ReadI64()

	return topErr
}

func (b *Bounds) WriteTo(bw *bits.BitWriter, typ FieldType) (int, error) {

	if !b.HasStats {
		bw.WriteByte(0)
		return bw.Position(), nil
	}

	bw.WriteByte(1)

	if typ == BytesFieldType {
		bw.PutLenBytes(b.MinBytes)
		bw.PutLenBytes(b.MaxBytes)
	} else {
		bw.PutInt64(b.Min)
		bw.PutInt64(b.Max)
	}

	return bw.Position(), nil
}
