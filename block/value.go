package block

import (
	"math"
	"strconv"
	"time"

	"github.com/dot5enko/simple-column-scan/schema"
)

// Value is a single decoded cell handed to the row sink.
type Value struct {
	Type  schema.FieldType
	Int   int64
	Bytes []byte
	Scale uint8
}

// Native converts the cell to a plain go value. Decimals become float64,
// which loses precision for wide values.
func (v Value) Native() any {
	switch v.Type {
	case schema.Int16FieldType:
		return int16(v.Int)
	case schema.Int32FieldType:
		return int32(v.Int)
	case schema.Int64FieldType:
		return v.Int
	case schema.DateFieldType:
		return time.Unix(v.Int*86400, 0).UTC()
	case schema.DecimalFieldType:
		return float64(v.Int) / math.Pow10(int(v.Scale))
	case schema.BytesFieldType:
		return string(v.Bytes)
	}
	return nil
}

func (v Value) String() string {
	switch v.Type {
	case schema.DateFieldType:
		return time.Unix(v.Int*86400, 0).UTC().Format("2006-01-02")
	case schema.DecimalFieldType:
		return formatDecimal(v.Int, v.Scale)
	case schema.BytesFieldType:
		return string(v.Bytes)
	}
	return strconv.FormatInt(v.Int, 10)
}

// exact text form of an unscaled decimal
func formatDecimal(unscaled int64, scale uint8) string {
	s := strconv.FormatInt(unscaled, 10)
	if scale == 0 {
		return s
	}

	neg := unscaled < 0
	if neg {
		s = s[1:]
	}
	for len(s) <= int(scale) {
		s = "0" + s
	}

	cut := len(s) - int(scale)
	s = s[:cut] + "." + s[cut:]
	if neg {
		s = "-" + s
	}
	return s
}
