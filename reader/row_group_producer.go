package reader

import (
	"errors"
	"io"

	"github.com/dot5enko/simple-column-scan/block"
)

// RowGroupProducer cuts decoded row groups into batches of at most batchSize rows.
// It keeps one decoded row group of lookahead so the last batch can carry EndOfFile.
type RowGroupProducer struct {
	batchSize int

	// next decoded row group or io.EOF
	fetch   func() (*block.ColumnBatch, error)
	closeFn func() error

	current *block.ColumnBatch
	offset  int

	upcoming       *block.ColumnBatch
	upcomingLoaded bool

	done bool
}

func NewRowGroupProducer(batchSize int, fetch func() (*block.ColumnBatch, error), closeFn func() error) *RowGroupProducer {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &RowGroupProducer{
		batchSize: batchSize,
		fetch:     fetch,
		closeFn:   closeFn,
	}
}

const DefaultBatchSize = 2048

func (p *RowGroupProducer) load() (*block.ColumnBatch, error) {
	for !p.done {
		g, err := p.fetch()
		if errors.Is(err, io.EOF) {
			p.done = true
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		if g.RowCount > 0 {
			return g, nil
		}
	}
	return nil, nil
}

func (p *RowGroupProducer) peek() error {
	if p.upcomingLoaded {
		return nil
	}

	g, err := p.load()
	if err != nil {
		return err
	}

	p.upcoming = g
	p.upcomingLoaded = true
	return nil
}

// Prefetch decodes the next row group ahead of NextBatch.
func (p *RowGroupProducer) Prefetch() error {
	if p.current != nil && p.offset < p.current.RowCount {
		return nil
	}
	return p.peek()
}

func (p *RowGroupProducer) NextBatch() (*block.ColumnBatch, error) {

	if p.current == nil || p.offset >= p.current.RowCount {
		if err := p.peek(); err != nil {
			return nil, err
		}

		p.current, p.upcoming, p.upcomingLoaded = p.upcoming, nil, false
		p.offset = 0

		if p.current == nil {
			return nil, io.EOF
		}
	}

	end := min(p.offset+p.batchSize, p.current.RowCount)

	last := false
	if end == p.current.RowCount {
		if err := p.peek(); err != nil {
			return nil, err
		}
		last = p.upcoming == nil
	}

	b := p.current.Slice(p.offset, end, last)
	p.offset = end

	return b, nil
}

func (p *RowGroupProducer) Close() error {
	p.current, p.upcoming = nil, nil
	p.done = true

	if p.closeFn == nil {
		return nil
	}

	fn := p.closeFn
	p.closeFn = nil
	return fn()
}
