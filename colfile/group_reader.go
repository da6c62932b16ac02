package colfile

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/davecgh/go-spew/spew"
	"github.com/dot5enko/simple-column-scan/block"
	fileio "github.com/dot5enko/simple-column-scan/io"
	"github.com/dot5enko/simple-column-scan/manager/cache"
	"github.com/dot5enko/simple-column-scan/manager/query"
	"github.com/dot5enko/simple-column-scan/reader"
	"github.com/dot5enko/simple-column-scan/schema"
)

// groupReader decodes the requested columns of one row group per call, skipping
// groups the pushdown filter rules out.
type groupReader struct {
	file    *fileio.FileReader
	header  *FileHeader
	scratch *cache.FixedSizeBufferPool
	sources []reader.ColumnSource

	pushdown query.Node
	skip     bool

	group int
	end   int

	buf []byte

	pruned  int
	corrupt int
}

func (r *groupReader) next() (*block.ColumnBatch, error) {
	for ; r.group < r.end; r.group++ {
		g := &r.header.RowGroups[r.group]

		if r.pushdown != nil {
			match, err := query.MatchBounds(r.pushdown, r.boundsLookup(g))
			if err != nil {
				return nil, err
			}
			if match == schema.NoIntersection {
				r.pruned++
				continue
			}
		}

		batch, err := r.decodeGroup(g)
		if err != nil {
			if !r.skip || !errors.Is(err, ErrCorruptChunk) {
				return nil, fmt.Errorf("row group %d of %s: %w", r.group, r.file.Path(), err)
			}

			r.corrupt++
			slog.Warn("skipping corrupt row group", "file", r.file.Path(), "group", r.group, "err", err)
			if slog.Default().Enabled(context.Background(), slog.LevelDebug) {
				slog.Debug("corrupt row group header", "dump", spew.Sdump(g))
			}
			continue
		}

		r.group++
		return batch, nil
	}

	return nil, io.EOF
}

func (r *groupReader) boundsLookup(g *RowGroupHeader) query.BoundsLookup {
	return func(column int) (schema.Column, schema.Bounds, bool) {
		src := r.sources[column]
		if src.FileIndex < 0 {
			return src.Column, schema.Bounds{}, false
		}
		return src.Column, g.Chunks[src.FileIndex].Bounds, true
	}
}

// fileMatch checks the pushdown against the bounds of the whole file, so a file
// that cannot match is dropped without walking its row groups.
func fileMatch(h *FileHeader, sources []reader.ColumnSource, pushdown query.Node) (schema.BoundsFilterMatchResult, error) {
	if pushdown == nil || len(h.FileBounds) != len(h.Columns) {
		return schema.PartialIntersection, nil
	}

	return query.MatchBounds(pushdown, func(column int) (schema.Column, schema.Bounds, bool) {
		src := sources[column]
		if src.FileIndex < 0 {
			return src.Column, schema.Bounds{}, false
		}
		return src.Column, h.FileBounds[src.FileIndex], true
	})
}

func (r *groupReader) decodeGroup(g *RowGroupHeader) (*block.ColumnBatch, error) {
	rows := int(g.Rows)
	out := make([]block.Column, len(r.sources))

	for i, src := range r.sources {
		if src.FileIndex < 0 {
			col, err := block.NewColumn(src.Column, rows)
			if err != nil {
				return nil, err
			}
			out[i] = col
			continue
		}

		chunk := g.Chunks[src.FileIndex]

		size := int(chunk.CompressedSize)
		if cap(r.buf) < size {
			r.buf = make([]byte, size)
		}

		if err := r.file.ReadAt(r.buf, r.header.DataStart+int64(chunk.Offset), size); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrCorruptChunk, err)
		}

		col, err := decodeChunk(r.buf[:size], chunk, src.Column, rows, r.scratch)
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", src.Column.Name, err)
		}
		out[i] = col
	}

	return block.NewColumnBatch(out, rows, false), nil
}
