package query

import (
	"bytes"
	"fmt"

	"github.com/dot5enko/simple-column-scan/schema"
)

// BoundsLookup returns chunk statistics for a requested column.
type BoundsLookup func(column int) (schema.Column, schema.Bounds, bool)

// MatchBounds decides whether rows described by chunk statistics can satisfy n.
// Missing statistics are treated as a partial match.
func MatchBounds(n Node, lookup BoundsLookup) (schema.BoundsFilterMatchResult, error) {
	switch v := n.(type) {
	case nil:
		return schema.FullIntersection, nil
	case *Compare:
		col, bounds, ok := lookup(v.Column)
		if !ok || !bounds.HasStats {
			return schema.PartialIntersection, nil
		}
		return ProcessFilterOnBounds(v, col, &bounds)
	case *And:
		left, err := MatchBounds(v.Left, lookup)
		if err != nil || left == schema.NoIntersection {
			return left, err
		}
		right, err := MatchBounds(v.Right, lookup)
		if err != nil || right == schema.NoIntersection {
			return right, err
		}
		if left == schema.FullIntersection && right == schema.FullIntersection {
			return schema.FullIntersection, nil
		}
		return schema.PartialIntersection, nil
	case *Or:
		left, err := MatchBounds(v.Left, lookup)
		if err != nil || left == schema.FullIntersection {
			return left, err
		}
		right, err := MatchBounds(v.Right, lookup)
		if err != nil || right == schema.FullIntersection {
			return right, err
		}
		if left == schema.NoIntersection && right == schema.NoIntersection {
			return schema.NoIntersection, nil
		}
		return schema.PartialIntersection, nil
	}
	return schema.UnknownIntersection, fmt.Errorf("unknown filter node %T", n)
}

func ProcessFilterOnBounds(
	filter *Compare,
	col schema.Column,
	bounds *schema.Bounds,
) (matchResult schema.BoundsFilterMatchResult, err error) {

	var cmpMin, cmpMax int
	var inside bool

	if col.Type == schema.BytesFieldType {
		operand, rerr := filter.Literal.ResolveBytes(col)
		if rerr != nil {
			return schema.UnknownIntersection, rerr
		}
		cmpMin = bytes.Compare(operand, bounds.MinBytes)
		cmpMax = bytes.Compare(operand, bounds.MaxBytes)
		inside = bounds.ContainsBytes(operand)
	} else {
		operand, _, rerr := filter.Literal.ResolveInt(col)
		if rerr != nil {
			return schema.UnknownIntersection, rerr
		}
		cmpMin = cmp64(operand, bounds.Min)
		cmpMax = cmp64(operand, bounds.Max)
		inside = bounds.Contains(operand)
	}

	switch filter.Op {
	case EQ:
		if !inside {
			return schema.NoIntersection, nil
		}
		if cmpMin == 0 && cmpMax == 0 {
			return schema.FullIntersection, nil
		}
		return schema.PartialIntersection, nil

	case GT:
		if cmpMax >= 0 {
			return schema.NoIntersection, nil
		}
		if cmpMin < 0 {
			return schema.FullIntersection, nil
		}
		return schema.PartialIntersection, nil

	case GTE:
		if cmpMax > 0 {
			return schema.NoIntersection, nil
		}
		if cmpMin <= 0 {
			return schema.FullIntersection, nil
		}
		return schema.PartialIntersection, nil

	case LT:
		if cmpMin <= 0 {
			return schema.NoIntersection, nil
		}
		if cmpMax > 0 {
			return schema.FullIntersection, nil
		}
		return schema.PartialIntersection, nil

	case LTE:
		if cmpMin < 0 {
			return schema.NoIntersection, nil
		}
		if cmpMax >= 0 {
			return schema.FullIntersection, nil
		}
		return schema.PartialIntersection, nil
	}

	return schema.UnknownIntersection, fmt.Errorf("unsupported operand type=%v while ProcessFilterOnBounds", filter.Op)
}

func cmp64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
