package bits

import (
	"encoding/binary"
	"unsafe"

	"golang.org/x/exp/constraints"
	"golang.org/x/sys/cpu"
)

// DecodeFixed copies little endian fixed width integers out of data.
// On little endian hosts this is a single memmove into the typed slice.
func DecodeFixed[T constraints.Integer](data []byte, count int) []T {

	var sample T
	valueSize := int(unsafe.Sizeof(sample))

	if len(data) < count*valueSize {
		panic("not enough data")
	}

	out := make([]T, count)
	if count == 0 {
		return out
	}

	if !cpu.IsBigEndian {
		raw := unsafe.Slice((*byte)(unsafe.Pointer(&out[0])), count*valueSize)
		copy(raw, data)
		return out
	}

	for i := range out {
		off := i * valueSize
		switch valueSize {
		case 2:
			out[i] = T(binary.LittleEndian.Uint16(data[off:]))
		case 4:
			out[i] = T(binary.LittleEndian.Uint32(data[off:]))
		case 8:
			out[i] = T(binary.LittleEndian.Uint64(data[off:]))
		default:
			out[i] = T(data[off])
		}
	}
	return out
}

// EncodeFixed is the inverse of DecodeFixed.
func EncodeFixed[T constraints.Integer](values []T) []byte {

	var sample T
	valueSize := int(unsafe.Sizeof(sample))

	out := make([]byte, len(values)*valueSize)
	if len(values) == 0 {
		return out
	}

	if !cpu.IsBigEndian {
		copy(out, unsafe.Slice((*byte)(unsafe.Pointer(&values[0])), len(out)))
		return out
	}

	for i, v := range values {
		off := i * valueSize
		switch valueSize {
		case 2:
			binary.LittleEndian.PutUint16(out[off:], uint16(v))
		case 4:
			binary.LittleEndian.PutUint32(out[off:], uint32(v))
		case 8:
			binary.LittleEndian.PutUint64(out[off:], uint64(v))
		default:
			out[off] = byte(v)
		}
	}
	return out
}
