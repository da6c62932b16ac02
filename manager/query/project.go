package query

// Project keeps the part of n that only talks about column, so a reader can use it
// for pushdown. Conjunctions keep whichever side references the column. A disjunction
// survives only when both of its sides do, a half-projected OR would prune rows the
// other branch admits. Returns nil when nothing applies.
func Project(n Node, column int) Node {
	switch v := n.(type) {
	case *Compare:
		if v.Column == column {
			return v
		}
		return nil
	case *And:
		left := Project(v.Left, column)
		right := Project(v.Right, column)

		switch {
		case left == nil:
			return right
		case right == nil:
			return left
		case left == v.Left && right == v.Right:
			return v
		}
		return NewAnd(left, right)
	case *Or:
		left := Project(v.Left, column)
		right := Project(v.Right, column)

		if left == nil || right == nil {
			return nil
		}
		if left == v.Left && right == v.Right {
			return v
		}
		return NewOr(left, right)
	}
	return nil
}

// Split projects n onto every column in 0..columns, dropping columns with nothing to push.
func Split(n Node, columns int) map[int]Node {
	if n == nil {
		return nil
	}

	out := map[int]Node{}
	for i := 0; i < columns; i++ {
		if p := Project(n, i); p != nil {
			out[i] = p
		}
	}
	return out
}
