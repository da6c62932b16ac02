package schema

import "fmt"

type Column struct {
	Name string
	Type FieldType

	// decimal only
	Scale     uint8
	Precision uint8
}

func (c Column) String() string {
	if c.Type == DecimalFieldType {
		return fmt.Sprintf("%s %s(%d,%d)", c.Name, c.Type, c.Precision, c.Scale)
	}
	return fmt.Sprintf("%s %s", c.Name, c.Type)
}

func (c Column) Validate() error {
	switch c.Type {
	case Int16FieldType, Int32FieldType, Int64FieldType, DateFieldType, BytesFieldType:
		return nil
	case DecimalFieldType:
		if c.Precision > MaxDecimalPrecision {
			return fmt.Errorf("%w: column %s decimal precision %d exceeds %d", ErrUnsupportedType, c.Name, c.Precision, MaxDecimalPrecision)
		}
		if c.Scale > c.Precision {
			return fmt.Errorf("%w: column %s scale %d above precision %d", ErrUnsupportedType, c.Name, c.Scale, c.Precision)
		}
		return nil
	default:
		return fmt.Errorf("%w: column %s has type %s", ErrUnsupportedType, c.Name, c.Type)
	}
}

func IndexOf(columns []Column, name string) int {
	for i, c := range columns {
		if c.Name == name {
			return i
		}
	}
	return -1
}
