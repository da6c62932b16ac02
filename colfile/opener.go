package colfile

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"

	fileio "github.com/dot5enko/simple-column-scan/io"
	"github.com/dot5enko/simple-column-scan/manager/cache"
	"github.com/dot5enko/simple-column-scan/reader"
	"github.com/dot5enko/simple-column-scan/schema"
)

type fileStamp struct {
	modTime int64
	size    int64
}

const (
	scratchBuffers    = 8
	scratchBufferSize = 256 * 1024
)

// Opener opens colfiles from disk. Decoded headers are cached per path and
// reused while the file modification time and size stay the same.
type Opener struct {
	headers *cache.KeyedCache[fileStamp, *FileHeader]

	// decompression scratch for fixed width chunks
	scratch *cache.FixedSizeBufferPool
}

func NewOpener() *Opener {
	return &Opener{
		headers: cache.NewKeyedCache[fileStamp, *FileHeader](),
		scratch: cache.NewFixedSizeBufferPool(scratchBuffers, scratchBufferSize),
	}
}

// CacheReads reports how many opens of path were served from the header cache.
func (o *Opener) CacheReads(path string) int {
	if stats := o.headers.Stats(path); stats != nil {
		return int(stats.Reads.Load())
	}
	return 0
}

func (o *Opener) Open(path string) (reader.Handle, error) {

	f := fileio.NewFileReader(path)
	if err := f.Open(true); err != nil {
		return nil, err
	}

	header, err := o.loadHeader(f)
	if err != nil {
		f.Close()
		return nil, err
	}

	return &handle{file: f, header: header, scratch: o.scratch}, nil
}

func (o *Opener) loadHeader(f *fileio.FileReader) (*FileHeader, error) {
	stat, err := os.Stat(f.Path())
	if err != nil {
		return nil, err
	}

	stamp := fileStamp{modTime: stat.ModTime().UnixNano(), size: stat.Size()}

	return o.headers.Load(f.Path(), stamp, func() (*FileHeader, error) {
		return ReadHeader(f)
	})
}

// ReadHeader decodes the header at the start of an opened file.
func ReadHeader(f *fileio.FileReader) (*FileHeader, error) {
	section, err := f.Section(0, f.Size())
	if err != nil {
		return nil, err
	}

	h := &FileHeader{}
	if err = h.FromBytes(bufio.NewReader(section)); err != nil {
		return nil, fmt.Errorf("unable to read header of %s: %w", f.Path(), err)
	}

	for _, c := range h.Columns {
		if err = c.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrCorruptHeader, err)
		}
	}

	if h.DataStart > f.Size() {
		return nil, fmt.Errorf("%w: header runs past the end of %s", ErrCorruptHeader, f.Path())
	}

	return h, nil
}

var _ reader.Opener = (*Opener)(nil)

type handle struct {
	file    *fileio.FileReader
	header  *FileHeader
	scratch *cache.FixedSizeBufferPool
}

func (h *handle) RowGroupCount() int {
	return len(h.header.RowGroups)
}

func (h *handle) RowCount() int64 {
	return h.header.RowCount()
}

func (h *handle) Schema() []schema.Column {
	return h.header.Columns
}

func (h *handle) Header() *FileHeader {
	return h.header
}

func (h *handle) Read(opts reader.Options) (reader.Producer, error) {
	sources, err := reader.ResolveColumns(h.header.Columns, opts)
	if err != nil {
		return nil, err
	}

	start, end := opts.RowGroupRange(len(h.header.RowGroups))
	pushdown := opts.Pushdown()

	match, err := fileMatch(h.header, sources, pushdown)
	if err != nil {
		return nil, err
	}
	if match == schema.NoIntersection {
		slog.Debug("file pruned by column bounds", "file", h.file.Path(), "row_groups", end-start)
		start = end
	}

	gr := &groupReader{
		file:     h.file,
		header:   h.header,
		scratch:  h.scratch,
		sources:  sources,
		pushdown: pushdown,
		skip:     opts.SkipCorruptRecords,
		group:    start,
		end:      end,
	}

	return reader.NewRowGroupProducer(opts.BatchSize, gr.next, nil), nil
}

func (h *handle) Close() error {
	return h.file.Close()
}
