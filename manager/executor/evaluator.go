package executor

import (
	"fmt"
	"log/slog"

	"github.com/dot5enko/simple-column-scan/bits"
	"github.com/dot5enko/simple-column-scan/block"
	"github.com/dot5enko/simple-column-scan/manager/query"
	"github.com/dot5enko/simple-column-scan/ops"
)

type EvaluatorStats struct {
	LeafEvaluations  int
	AndShortCircuits int
	OrShortCircuits  int
}

// Evaluator turns filter trees into admission masks. It is owned by one lane and
// recycles mask storage between batches, so it must not be shared.
type Evaluator struct {
	Packed bool
	Stats  EvaluatorStats

	free []*bits.Mask

	// leaves already reported for decimal rounding
	lossReported map[*query.Compare]bool
}

func NewEvaluator(packed bool) *Evaluator {
	return &Evaluator{
		Packed:       packed,
		lossReported: map[*query.Compare]bool{},
	}
}

// NewDefaultEvaluator picks the packed path when the cpu supports wide compares.
func NewDefaultEvaluator() *Evaluator {
	return NewEvaluator(ops.HasVectorSupport())
}

func (e *Evaluator) acquire(n int) *bits.Mask {
	if l := len(e.free); l > 0 {
		m := e.free[l-1]
		e.free = e.free[:l-1]
		m.Reset(n)
		return m
	}
	return bits.NewMask(n)
}

// Release hands a mask returned by Evaluate back for reuse.
func (e *Evaluator) Release(m *bits.Mask) {
	if m != nil {
		e.free = append(e.free, m)
	}
}

// Evaluate computes the admission mask of node over every row of batch.
// An AND whose left side admits nothing returns without touching the right side.
// An OR whose left side admits everything does the same, the result is identical.
func (e *Evaluator) Evaluate(node query.Node, batch *block.ColumnBatch) (*bits.Mask, error) {

	switch n := node.(type) {
	case *query.Compare:
		m := e.acquire(batch.RowCount)

		lossy, err := EvaluateLeaf(batch, n, m, e.Packed)
		if err != nil {
			e.Release(m)
			return nil, err
		}
		e.Stats.LeafEvaluations++

		if lossy && !e.lossReported[n] {
			e.lossReported[n] = true
			slog.Debug("decimal literal rounded to column scale", "filter", n.String())
		}
		return m, nil

	case *query.And:
		left, err := e.Evaluate(n.Left, batch)
		if err != nil {
			return nil, err
		}
		if left.IsNone() {
			e.Stats.AndShortCircuits++
			return left, nil
		}

		right, err := e.Evaluate(n.Right, batch)
		if err != nil {
			e.Release(left)
			return nil, err
		}
		left.And(right)
		e.Release(right)
		return left, nil

	case *query.Or:
		left, err := e.Evaluate(n.Left, batch)
		if err != nil {
			return nil, err
		}
		if left.IsAll() {
			e.Stats.OrShortCircuits++
			return left, nil
		}

		right, err := e.Evaluate(n.Right, batch)
		if err != nil {
			e.Release(left)
			return nil, err
		}
		left.Or(right)
		e.Release(right)
		return left, nil

	default:
		return nil, fmt.Errorf("unknown filter node %T", node)
	}
}

// Apply narrows mask to rows also admitted by node. Never widens.
func (e *Evaluator) Apply(node query.Node, batch *block.ColumnBatch, mask *bits.Mask) error {
	if node == nil || mask.IsNone() {
		return nil
	}

	m, err := e.Evaluate(node, batch)
	if err != nil {
		return err
	}

	mask.And(m)
	e.Release(m)

	return nil
}
