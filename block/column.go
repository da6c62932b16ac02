package block

import (
	"fmt"

	"github.com/dot5enko/simple-column-scan/schema"
)

// Column is one decoded column vector of a batch.
type Column interface {
	Type() schema.FieldType
	Len() int
	Value(i int) Value
	Slice(from, to int) Column
}

type Int16Column struct{ Data []int16 }
type Int32Column struct{ Data []int32 }
type Int64Column struct{ Data []int64 }

// days since unix epoch
type DateColumn struct{ Data []int32 }

// unscaled values, real value = Data[i] / 10^Scale
type DecimalColumn struct {
	Data      []int64
	Scale     uint8
	Precision uint8
}

type BytesColumn struct{ Data [][]byte }

func (c *Int16Column) Type() schema.FieldType   { return schema.Int16FieldType }
func (c *Int32Column) Type() schema.FieldType   { return schema.Int32FieldType }
func (c *Int64Column) Type() schema.FieldType   { return schema.Int64FieldType }
func (c *DateColumn) Type() schema.FieldType    { return schema.DateFieldType }
func (c *DecimalColumn) Type() schema.FieldType { return schema.DecimalFieldType }
func (c *BytesColumn) Type() schema.FieldType   { return schema.BytesFieldType }

func (c *Int16Column) Len() int   { return len(c.Data) }
func (c *Int32Column) Len() int   { return len(c.Data) }
func (c *Int64Column) Len() int   { return len(c.Data) }
func (c *DateColumn) Len() int    { return len(c.Data) }
func (c *DecimalColumn) Len() int { return len(c.Data) }
func (c *BytesColumn) Len() int   { return len(c.Data) }

func (c *Int16Column) Value(i int) Value {
	return Value{Type: schema.Int16FieldType, Int: int64(c.Data[i])}
}

func (c *Int32Column) Value(i int) Value {
	return Value{Type: schema.Int32FieldType, Int: int64(c.Data[i])}
}

func (c *Int64Column) Value(i int) Value {
	return Value{Type: schema.Int64FieldType, Int: c.Data[i]}
}

func (c *DateColumn) Value(i int) Value {
	return Value{Type: schema.DateFieldType, Int: int64(c.Data[i])}
}

func (c *DecimalColumn) Value(i int) Value {
	return Value{Type: schema.DecimalFieldType, Int: c.Data[i], Scale: c.Scale}
}

func (c *BytesColumn) Value(i int) Value {
	return Value{Type: schema.BytesFieldType, Bytes: c.Data[i]}
}

func (c *Int16Column) Slice(from, to int) Column { return &Int16Column{Data: c.Data[from:to]} }
func (c *Int32Column) Slice(from, to int) Column { return &Int32Column{Data: c.Data[from:to]} }
func (c *Int64Column) Slice(from, to int) Column { return &Int64Column{Data: c.Data[from:to]} }
func (c *DateColumn) Slice(from, to int) Column  { return &DateColumn{Data: c.Data[from:to]} }
func (c *BytesColumn) Slice(from, to int) Column { return &BytesColumn{Data: c.Data[from:to]} }

func (c *DecimalColumn) Slice(from, to int) Column {
	return &DecimalColumn{Data: c.Data[from:to], Scale: c.Scale, Precision: c.Precision}
}

// NewColumn allocates a zero filled vector of n rows for col.
func NewColumn(col schema.Column, n int) (Column, error) {
	switch col.Type {
	case schema.Int16FieldType:
		return &Int16Column{Data: make([]int16, n)}, nil
	case schema.Int32FieldType:
		return &Int32Column{Data: make([]int32, n)}, nil
	case schema.Int64FieldType:
		return &Int64Column{Data: make([]int64, n)}, nil
	case schema.DateFieldType:
		return &DateColumn{Data: make([]int32, n)}, nil
	case schema.DecimalFieldType:
		return &DecimalColumn{Data: make([]int64, n), Scale: col.Scale, Precision: col.Precision}, nil
	case schema.BytesFieldType:
		data := make([][]byte, n)
		for i := range data {
			data[i] = []byte{}
		}
		return &BytesColumn{Data: data}, nil
	}
	return nil, fmt.Errorf("%w: column %s", schema.ErrUnsupportedType, col)
}
