package query

import (
	"fmt"

	"github.com/dot5enko/simple-column-scan/schema"
)

// Node is an immutable filter tree. Nodes are never mutated after construction
// and may be shared between lanes.
type Node interface {
	String() string
	node()
}

type And struct {
	Left, Right Node
}

type Or struct {
	Left, Right Node
}

// Compare tests one column of the scan against a literal.
// Column is the position in the scan's requested column list.
type Compare struct {
	Op      CondOperand
	Column  int
	Literal Literal
}

func (*And) node()     {}
func (*Or) node()      {}
func (*Compare) node() {}

func (n *And) String() string {
	return fmt.Sprintf("(%s AND %s)", n.Left, n.Right)
}

func (n *Or) String() string {
	return fmt.Sprintf("(%s OR %s)", n.Left, n.Right)
}

func (n *Compare) String() string {
	return fmt.Sprintf("#%d %s %s", n.Column, n.Op.Symbol(), n.Literal)
}

func NewCompare(column int, op CondOperand, lit Literal) *Compare {
	return &Compare{Op: op, Column: column, Literal: lit}
}

func NewAnd(left, right Node) *And {
	return &And{Left: left, Right: right}
}

func NewOr(left, right Node) *Or {
	return &Or{Left: left, Right: right}
}

// AndAll folds nodes into a left deep conjunction, nil for no nodes.
func AndAll(nodes ...Node) Node {
	var result Node
	for _, n := range nodes {
		if n == nil {
			continue
		}
		if result == nil {
			result = n
		} else {
			result = NewAnd(result, n)
		}
	}
	return result
}

// Walk visits every comparison leaf, left to right.
func Walk(n Node, fn func(c *Compare) error) error {
	switch v := n.(type) {
	case nil:
		return nil
	case *Compare:
		return fn(v)
	case *And:
		if err := Walk(v.Left, fn); err != nil {
			return err
		}
		return Walk(v.Right, fn)
	case *Or:
		if err := Walk(v.Left, fn); err != nil {
			return err
		}
		return Walk(v.Right, fn)
	default:
		return fmt.Errorf("unknown filter node %T", n)
	}
}

// Validate checks every leaf against the requested columns: column reference in range,
// literal comparable with the column type.
func Validate(n Node, columns []schema.Column) error {
	return Walk(n, func(c *Compare) error {
		if c.Column < 0 || c.Column >= len(columns) {
			return fmt.Errorf("filter references column #%d, scan has %d columns", c.Column, len(columns))
		}
		if c.Op > LTE {
			return fmt.Errorf("%w: compare operand %d", schema.ErrUnsupportedType, byte(c.Op))
		}
		return c.Literal.Check(columns[c.Column])
	})
}

// Columns lists the distinct columns referenced by the tree.
func Columns(n Node) []int {
	seen := map[int]bool{}
	var out []int

	Walk(n, func(c *Compare) error {
		if !seen[c.Column] {
			seen[c.Column] = true
			out = append(out, c.Column)
		}
		return nil
	})

	return out
}
