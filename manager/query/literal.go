package query

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/dot5enko/simple-column-scan/schema"
)

type LiteralKind uint8

const (
	IntLiteral LiteralKind = iota
	FloatLiteral
	StringLiteral
)

// Literal is the right hand side of a comparison.
type Literal struct {
	Kind LiteralKind

	Int   int64
	Float float64
	Str   string
}

func Int(v int64) Literal     { return Literal{Kind: IntLiteral, Int: v} }
func Float(v float64) Literal { return Literal{Kind: FloatLiteral, Float: v} }
func String(v string) Literal { return Literal{Kind: StringLiteral, Str: v} }

func (l Literal) String() string {
	switch l.Kind {
	case IntLiteral:
		return strconv.FormatInt(l.Int, 10)
	case FloatLiteral:
		return strconv.FormatFloat(l.Float, 'g', -1, 64)
	default:
		return strconv.Quote(l.Str)
	}
}

// ParseLiteral infers the literal kind from its text form.
func ParseLiteral(s string) Literal {
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return Int(v)
	}
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return Float(v)
	}
	return String(s)
}

const DateLayout = "2006-01-02"

// ResolveInt converts the literal into the raw int64 representation of col.
// For decimals the literal is rescaled with round(lit * 10^scale); lossy reports
// that the rounding changed the value.
func (l Literal) ResolveInt(col schema.Column) (v int64, lossy bool, err error) {

	switch col.Type {
	case schema.Int16FieldType, schema.Int32FieldType, schema.Int64FieldType:
		switch l.Kind {
		case IntLiteral:
			return l.Int, false, nil
		case FloatLiteral:
			if l.Float == math.Trunc(l.Float) && math.Abs(l.Float) < 1<<63 {
				return int64(l.Float), false, nil
			}
		}

	case schema.DateFieldType:
		switch l.Kind {
		case IntLiteral:
			return l.Int, false, nil
		case StringLiteral:
			t, perr := time.Parse(DateLayout, l.Str)
			if perr != nil {
				return 0, false, fmt.Errorf("%w: date literal %q for column %s: %s", schema.ErrUnsupportedType, l.Str, col.Name, perr.Error())
			}
			return t.Unix() / 86400, false, nil
		}

	case schema.DecimalFieldType:
		scaleFactor := math.Pow10(int(col.Scale))

		switch l.Kind {
		case IntLiteral:
			factor := int64(scaleFactor)
			if l.Int > math.MaxInt64/factor || l.Int < math.MinInt64/factor {
				break
			}
			return l.Int * factor, false, nil
		case FloatLiteral:
			scaled := l.Float * scaleFactor
			rounded := math.Round(scaled)
			if math.IsNaN(rounded) || math.Abs(rounded) >= 1<<63 {
				break
			}
			return int64(rounded), rounded != scaled, nil
		}
	}

	return 0, false, fmt.Errorf("%w: %s literal %s not comparable with column %s", schema.ErrUnsupportedType, l.kindName(), l.String(), col)
}

func (l Literal) ResolveBytes(col schema.Column) ([]byte, error) {
	if col.Type == schema.BytesFieldType && l.Kind == StringLiteral {
		return []byte(l.Str), nil
	}
	return nil, fmt.Errorf("%w: %s literal %s not comparable with column %s", schema.ErrUnsupportedType, l.kindName(), l.String(), col)
}

// Check resolves the literal against col without keeping the result.
func (l Literal) Check(col schema.Column) error {
	if col.Type == schema.BytesFieldType {
		_, err := l.ResolveBytes(col)
		return err
	}
	_, _, err := l.ResolveInt(col)
	return err
}

func (l Literal) kindName() string {
	switch l.Kind {
	case IntLiteral:
		return "integer"
	case FloatLiteral:
		return "float"
	default:
		return "string"
	}
}
