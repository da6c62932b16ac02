package schema

import (
	"errors"
	"fmt"
)

var ErrUnsupportedType = errors.New("unsupported column type")

type FieldType uint8

const (
	UnknownFieldType FieldType = iota
	Int16FieldType
	Int32FieldType
	Int64FieldType

	// days since unix epoch, stored as int32
	DateFieldType

	// unscaled int64 with column scale/precision
	DecimalFieldType

	BytesFieldType
)

// decimals wider than this do not fit the int64 representation
const MaxDecimalPrecision = 18

func (f FieldType) String() string {
	switch f {
	case Int16FieldType:
		return "Int16"
	case Int32FieldType:
		return "Int32"
	case Int64FieldType:
		return "Int64"
	case DateFieldType:
		return "Date"
	case DecimalFieldType:
		return "Decimal"
	case BytesFieldType:
		return "Bytes"
	default:
		return "Unknown"
	}
}

// fixed element size in bytes, 0 for variable width types
func (f FieldType) Size() int {
	switch f {
	case Int16FieldType:
		return 2
	case Int32FieldType, DateFieldType:
		return 4
	case Int64FieldType, DecimalFieldType:
		return 8
	case BytesFieldType:
		return 0
	default:
		panic("unknown field type " + f.String())
	}
}

func (f FieldType) IsNumeric() bool {
	switch f {
	case Int16FieldType, Int32FieldType, Int64FieldType, DateFieldType, DecimalFieldType:
		return true
	}
	return false
}

func ParseFieldType(s string) (FieldType, error) {
	switch s {
	case "int16", "Int16":
		return Int16FieldType, nil
	case "int32", "Int32":
		return Int32FieldType, nil
	case "int64", "Int64":
		return Int64FieldType, nil
	case "date", "Date":
		return DateFieldType, nil
	case "decimal", "Decimal":
		return DecimalFieldType, nil
	case "bytes", "Bytes", "string":
		return BytesFieldType, nil
	}
	return UnknownFieldType, fmt.Errorf("%w: %q", ErrUnsupportedType, s)
}
