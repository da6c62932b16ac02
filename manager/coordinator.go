package manager

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dot5enko/simple-column-scan/bits"
	"github.com/dot5enko/simple-column-scan/block"
	"github.com/dot5enko/simple-column-scan/manager/query"
	"github.com/dot5enko/simple-column-scan/manager/scheduler"
	"github.com/dot5enko/simple-column-scan/ops"
	"github.com/dot5enko/simple-column-scan/reader"
	"github.com/dot5enko/simple-column-scan/schema"
	"github.com/google/uuid"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
)

// Scan names what to read: the requested columns in output order and an optional
// filter whose Compare leaves index into Columns.
type Scan struct {
	Columns []string
	Filter  query.Node
}

// Coordinator owns the lanes of one scan and the only state they share:
// the error flag and the per-lane file cursors, both behind lock.
type Coordinator struct {
	id uuid.UUID

	opener reader.Opener
	files  []string
	scan   Scan
	config ManagerConfig
	packed bool

	// bind results
	columns   []schema.Column
	probeRows int64
	filters   map[int]query.Node
	sched     *scheduler.Scheduler

	lock             sync.Mutex
	errorOpeningFile bool
	fileCursor       []int

	lanes []*Lane
}

// Open binds the scan against the first file, partitions the file set and primes every lane.
func Open(ctx context.Context, opener reader.Opener, files []string, scan Scan, config ManagerConfig) (*Coordinator, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: empty file set", ErrConfiguration)
	}

	c := &Coordinator{
		id:     uuid.New(),
		opener: opener,
		files:  files,
		scan:   scan,
		config: config,
		packed: ops.HasVectorSupport(),
	}

	if err := c.bind(); err != nil {
		return nil, err
	}

	if err := c.start(ctx); err != nil {
		return nil, err
	}

	return c, nil
}

// bind probes the first file for the schema and validates the request against it.
func (c *Coordinator) bind() error {
	probe, err := c.opener.Open(c.files[0])
	if err != nil {
		metricOpenErrors.Inc()
		return fmt.Errorf("%w %s: %w", ErrReaderOpen, c.files[0], err)
	}
	defer probe.Close()

	fileSchema := probe.Schema()
	columns := make([]schema.Column, len(c.scan.Columns))

	for i, name := range c.scan.Columns {
		idx := schema.IndexOf(fileSchema, name)
		if idx < 0 {
			return fmt.Errorf("%w: %w: %s in %s", ErrConfiguration, reader.ErrColumnNotFound, name, c.files[0])
		}
		if err = fileSchema[idx].Validate(); err != nil {
			return err
		}
		columns[i] = fileSchema[idx]
	}

	if err = query.Validate(c.scan.Filter, columns); err != nil {
		return fmt.Errorf("invalid filter %s: %w", c.scan.Filter, err)
	}

	c.columns = columns
	c.probeRows = probe.RowCount()
	c.filters = query.Split(c.scan.Filter, len(columns))

	laneCount := c.config.laneCount(len(c.files))
	c.sched, err = scheduler.New(c.files, laneCount)
	if err != nil {
		return err
	}

	slog.Info("scan bound",
		"scan", c.id.String(),
		"files", len(c.files),
		"lanes", c.sched.LaneCount(),
		"columns", len(columns),
		"filter", c.scan.Filter != nil,
		"packed_compare", !c.config.DisablePacked && c.packed,
	)

	return nil
}

func (c *Coordinator) start(ctx context.Context) error {
	c.lock.Lock()
	c.errorOpeningFile = false
	c.fileCursor = make([]int, c.sched.LaneCount())
	c.lock.Unlock()

	c.lanes = make([]*Lane, c.sched.LaneCount())
	for i := range c.lanes {
		c.lanes[i] = newLane(i, c)
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	startedAt := time.Now()

	var g errgroup.Group
	for _, lane := range c.lanes {
		g.Go(lane.prime)
	}

	if err := g.Wait(); err != nil {
		c.closeLanes()
		return err
	}

	slog.Debug("lanes primed", "scan", c.id.String(), "took", time.Since(startedAt))

	return nil
}

// rendezvous is the only place lanes touch shared state. With init set it makes the
// first claim of the lane, otherwise it shifts next into current and claims the
// following file. Returns false when the lane has nothing left.
func (c *Coordinator) rendezvous(l *Lane, init bool) (bool, error) {
	c.lock.Lock()
	defer c.lock.Unlock()

	if c.errorOpeningFile {
		return false, fmt.Errorf("%w: scan aborted by another lane", ErrReaderOpen)
	}

	fileSum := c.sched.FileSum(l.id)
	if (init && c.fileCursor[l.id] >= fileSum) || (!init && l.nextFileIndex >= fileSum) {
		return false, nil
	}

	l.currFileIndex = l.nextFileIndex
	l.currFileName = l.nextFileName

	l.nextFileIndex = c.fileCursor[l.id]
	c.fileCursor[l.id]++
	l.nextFileName = c.sched.FileName(l.id, l.nextFileIndex)

	return true, nil
}

// abort raises the shared error flag, every lane fails at its next rendezvous.
func (c *Coordinator) abort() {
	c.lock.Lock()
	defer c.lock.Unlock()

	c.errorOpeningFile = true
}

func (c *Coordinator) Aborted() bool {
	c.lock.Lock()
	defer c.lock.Unlock()

	return c.errorOpeningFile
}

func (c *Coordinator) readerOptions() reader.Options {
	names := make([]string, len(c.columns))
	for i, col := range c.columns {
		names[i] = col.Name
	}

	return reader.Options{
		IncludeColumns:          names,
		RowGroupStart:           0,
		BatchSize:               c.config.batchSize(),
		SkipCorruptRecords:      c.config.SkipCorruptRecords,
		TolerantSchemaEvolution: c.config.TolerantSchemaEvolution,
		Schema:                  c.columns,
		Filters:                 c.filters,
	}
}

func (c *Coordinator) ScanID() uuid.UUID {
	return c.id
}

func (c *Coordinator) LaneCount() int {
	return len(c.lanes)
}

// Columns is the bound schema of the requested columns.
func (c *Coordinator) Columns() []schema.Column {
	return c.columns
}

func (c *Coordinator) Files() []string {
	return c.files
}

// AcquireLane returns the primed lane id. Lane ids are fixed for the scan.
func (c *Coordinator) AcquireLane(id int) (*Lane, error) {
	if id < 0 || id >= len(c.lanes) {
		return nil, fmt.Errorf("%w: lane %d of %d", ErrConfiguration, id, len(c.lanes))
	}
	return c.lanes[id], nil
}

// Progress is the share of files fully consumed, in percent.
func (c *Coordinator) Progress() float64 {
	if len(c.files) == 0 {
		return 100
	}

	done := 0
	for _, l := range c.lanes {
		done += l.FilesDone()
	}
	return float64(done) * 100 / float64(len(c.files))
}

// EstimateCardinality assumes every file holds as many rows as the probed one.
func (c *Coordinator) EstimateCardinality() int64 {
	return c.probeRows * int64(len(c.files))
}

// CountRows opens every file and sums the row counts reported by its metadata.
func (c *Coordinator) CountRows(ctx context.Context) (int64, error) {
	counts := make([]int64, len(c.files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, len(c.lanes)))

	for i, file := range c.files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			h, err := c.opener.Open(file)
			if err != nil {
				return fmt.Errorf("%w %s: %w", ErrReaderOpen, file, err)
			}
			counts[i] = h.RowCount()
			return h.Close()
		})
	}

	if err := g.Wait(); err != nil {
		return 0, err
	}

	var total int64
	for _, n := range counts {
		total += n
	}
	return total, nil
}

// Rescan tears every lane down and restarts the scan from the first file.
func (c *Coordinator) Rescan(ctx context.Context) error {
	if err := c.closeLanes(); err != nil {
		slog.Warn("errors while closing lanes for rescan", "scan", c.id.String(), "err", err)
	}

	if err := c.bind(); err != nil {
		return err
	}
	return c.start(ctx)
}

func (c *Coordinator) closeLanes() error {
	var err error
	for _, l := range c.lanes {
		if l != nil {
			err = multierr.Append(err, l.Close())
		}
	}
	return err
}

func (c *Coordinator) Close() error {
	return c.closeLanes()
}

// Run drives every lane on its own goroutine and calls fn for each admitted row.
// row is reused between calls. The first error stops all lanes.
func (c *Coordinator) Run(ctx context.Context, fn func(lane *Lane, row []block.Value) error) error {
	return c.runLanes(ctx, func(gctx context.Context, lane *Lane) error {
		row := make([]block.Value, len(c.columns))

		for n := 0; ; n++ {
			if n&1023 == 0 {
				if err := gctx.Err(); err != nil {
					return err
				}
			}

			ok, err := lane.Next(row)
			if err != nil || !ok {
				return err
			}
			if err = fn(lane, row); err != nil {
				return err
			}
		}
	})
}

// RunBatches is Run at batch granularity. A nil mask admits every row of the batch.
func (c *Coordinator) RunBatches(ctx context.Context, fn func(lane *Lane, batch *block.ColumnBatch, mask *bits.Mask) error) error {
	return c.runLanes(ctx, func(gctx context.Context, lane *Lane) error {
		for {
			if err := gctx.Err(); err != nil {
				return err
			}

			batch, mask, err := lane.NextBatch()
			if err != nil || batch == nil {
				return err
			}

			if err = fn(lane, batch, mask); err != nil {
				return err
			}
		}
	})
}

func (c *Coordinator) runLanes(ctx context.Context, work func(context.Context, *Lane) error) error {

	slog.Info("starting lanes", "scan", c.id.String(), "lanes", len(c.lanes))

	g, gctx := errgroup.WithContext(ctx)

	for _, lane := range c.lanes {
		g.Go(func() error {
			slog.Debug("lane started", "lane", lane.id)
			defer slog.Debug("lane stopped", "lane", lane.id)

			return work(gctx, lane)
		})
	}

	return g.Wait()
}
