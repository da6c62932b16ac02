package query

import (
	"fmt"
	"strings"
)

type CondOperand byte

const (
	EQ CondOperand = iota
	GT
	LT
	GTE
	LTE
)

func (c CondOperand) String() string {
	switch c {
	case EQ:
		return "EQ"
	case GT:
		return "GT"
	case LT:
		return "LT"
	case GTE:
		return "GTE"
	case LTE:
		return "LTE"
	default:
		panic(fmt.Sprintf("unknown operand %d", byte(c)))
	}
}

func (c CondOperand) Symbol() string {
	switch c {
	case EQ:
		return "="
	case GT:
		return ">"
	case LT:
		return "<"
	case GTE:
		return ">="
	case LTE:
		return "<="
	default:
		return "?"
	}
}

func ParseCondOperand(s string) (CondOperand, error) {
	switch strings.ToLower(s) {
	case "eq", "=", "==":
		return EQ, nil
	case "gt", ">":
		return GT, nil
	case "lt", "<":
		return LT, nil
	case "gte", "ge", ">=":
		return GTE, nil
	case "lte", "le", "<=":
		return LTE, nil
	}
	return EQ, fmt.Errorf("unknown compare operand %q", s)
}
