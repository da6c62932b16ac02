package manager

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"

	"github.com/dot5enko/simple-column-scan/bits"
	"github.com/dot5enko/simple-column-scan/block"
	"github.com/dot5enko/simple-column-scan/manager/executor"
	"github.com/dot5enko/simple-column-scan/manager/query"
	"github.com/dot5enko/simple-column-scan/reader"
	"go.uber.org/multierr"
)

type LaneState uint8

const (
	LaneEmpty LaneState = iota
	LanePrimed
	LaneAdvancing
	LaneDelivering
	LaneDrained
)

func (s LaneState) String() string {
	switch s {
	case LaneEmpty:
		return "empty"
	case LanePrimed:
		return "primed"
	case LaneAdvancing:
		return "advancing"
	case LaneDelivering:
		return "delivering"
	case LaneDrained:
		return "drained"
	default:
		return "unknown"
	}
}

// readerSlot is one half of the lane double buffer. The open runs on its own
// goroutine, done is closed once handle/producer/err are final.
type readerSlot struct {
	fileName string
	batchID  int

	handle   reader.Handle
	producer reader.Producer
	err      error

	done chan struct{}
}

func (s *readerSlot) wait() {
	<-s.done
}

func (s *readerSlot) close() error {
	s.wait()

	var err error
	if s.producer != nil {
		err = multierr.Append(err, s.producer.Close())
		s.producer = nil
	}
	if s.handle != nil {
		err = multierr.Append(err, s.handle.Close())
		s.handle = nil
	}
	return err
}

// Lane reads its share of the file set, one file after another, while the
// following file is opened in the background.
type Lane struct {
	id    int
	coord *Coordinator

	state LaneState

	current *readerSlot
	next    *readerSlot

	// positions in the lane's file list, claimed under the coordinator lock
	currFileIndex int
	nextFileIndex int
	currFileName  string
	nextFileName  string

	filter    query.Node
	evaluator *executor.Evaluator

	batch *block.ColumnBatch
	// nil admits every row of batch
	mask *bits.Mask

	filesDone atomic.Int64
	rows      atomic.Int64
}

func newLane(id int, coord *Coordinator) *Lane {
	return &Lane{
		id:            id,
		coord:         coord,
		state:         LaneEmpty,
		currFileIndex: -1,
		nextFileIndex: -1,
		filter:        coord.scan.Filter,
		evaluator:     executor.NewEvaluator(!coord.config.DisablePacked && coord.packed),
	}
}

func (l *Lane) ID() int {
	return l.id
}

func (l *Lane) State() LaneState {
	return l.state
}

// CurrentFile is the file rows are being delivered from, "" when none.
func (l *Lane) CurrentFile() string {
	if l.current == nil {
		return ""
	}
	return l.current.fileName
}

// BatchID is the global id of the current file, -1 when none.
func (l *Lane) BatchID() int {
	if l.current == nil {
		return -1
	}
	return l.current.batchID
}

// Slots reports which halves of the double buffer hold a reader.
func (l *Lane) Slots() (current, next bool) {
	return l.current != nil, l.next != nil
}

func (l *Lane) EvaluatorStats() executor.EvaluatorStats {
	return l.evaluator.Stats
}

// RowsEmitted counts rows admitted by this lane so far.
func (l *Lane) RowsEmitted() int64 {
	return l.rows.Load()
}

// FilesDone counts files this lane has fully consumed.
func (l *Lane) FilesDone() int {
	return int(l.filesDone.Load())
}

// Progress of this lane in percent of its file list.
func (l *Lane) Progress() float64 {
	sum := l.coord.sched.FileSum(l.id)
	if sum == 0 {
		return 100
	}
	return float64(l.FilesDone()) * 100 / float64(sum)
}

func (l *Lane) prime() error {
	more, err := l.coord.rendezvous(l, true)
	if err != nil {
		return err
	}
	if !more {
		l.drain()
		return nil
	}

	if l.nextFileIndex < l.coord.sched.FileSum(l.id) {
		l.next = l.startOpen(l.nextFileIndex)
	}

	if err = l.advance(); err != nil {
		return err
	}
	if l.state != LaneDrained {
		l.state = LanePrimed
	}
	return nil
}

// advance retires the current reader and promotes the prefetched one.
func (l *Lane) advance() error {
	l.state = LaneAdvancing

	more, err := l.coord.rendezvous(l, false)
	if err != nil {
		// report our own failed open rather than the generic abort
		if l.next != nil {
			l.next.wait()
			if l.next.err != nil {
				err = l.next.err
			}
		}
		l.closeReaders()
		l.state = LaneDrained
		return err
	}

	if l.current != nil {
		if cerr := l.current.close(); cerr != nil {
			slog.Warn("unable to close reader", "lane", l.id, "file", l.current.fileName, "err", cerr)
		}
		l.current = nil
		l.filesDone.Add(1)
	}

	if !more {
		l.drain()
		return nil
	}

	promoted := l.next
	l.next = nil

	promoted.wait()
	if promoted.err != nil {
		l.current = promoted
		l.closeReaders()
		l.state = LaneDrained
		return promoted.err
	}
	l.current = promoted

	if l.nextFileIndex < l.coord.sched.FileSum(l.id) {
		l.next = l.startOpen(l.nextFileIndex)
	}

	return nil
}

func (l *Lane) drain() {
	l.closeReaders()
	l.state = LaneDrained

	slog.Debug("lane drained", "scan", l.coord.id.String(), "lane", l.id, "files", l.FilesDone(), "rows", l.RowsEmitted())
}

func (l *Lane) startOpen(laneFile int) *readerSlot {
	slot := &readerSlot{
		fileName: l.coord.sched.FileName(l.id, laneFile),
		batchID:  l.coord.sched.BatchID(l.id, laneFile),
		done:     make(chan struct{}),
	}

	opts := l.coord.readerOptions()

	go func() {
		defer close(slot.done)

		err := l.openSlot(slot, opts)
		if err == nil {
			metricFilesOpened.Inc()
			return
		}

		metricOpenErrors.Inc()
		l.coord.abort()

		if cerr := multierr.Append(closeIfSet(slot.producer), closeIfSet(slot.handle)); cerr != nil {
			slog.Warn("unable to close failed reader", "file", slot.fileName, "err", cerr)
		}
		slot.producer, slot.handle = nil, nil
		slot.err = fmt.Errorf("%w %s: %w", ErrReaderOpen, slot.fileName, err)
	}()

	return slot
}

func (l *Lane) openSlot(slot *readerSlot, opts reader.Options) (err error) {
	slot.handle, err = l.coord.opener.Open(slot.fileName)
	if err != nil {
		return err
	}

	opts.RowGroupEnd = slot.handle.RowGroupCount()

	slot.producer, err = slot.handle.Read(opts)
	if err != nil {
		return err
	}

	if pf, ok := slot.producer.(reader.Prefetcher); ok {
		return pf.Prefetch()
	}
	return nil
}

func closeIfSet(c io.Closer) error {
	if c == nil {
		return nil
	}
	return c.Close()
}

// Next writes the next admitted row into dst, one value per requested column.
// Returns false once the lane is drained.
func (l *Lane) Next(dst []block.Value) (bool, error) {
	for {
		if l.state == LaneDrained {
			return false, nil
		}

		if l.batch != nil {
			if row := l.nextAdmitted(); row >= 0 {
				l.batch.Row(row, dst)
				l.batch.SetCursor(row + 1)
				return true, nil
			}

			eof := l.batch.EndOfFile
			l.releaseBatch()
			if eof {
				if err := l.advance(); err != nil {
					return false, err
				}
			}
			continue
		}

		if err := l.pull(); err != nil {
			return false, err
		}
	}
}

// NextBatch hands out whole batches with their admission mask, a nil mask admits
// every row. Both stay valid until the next call. Do not mix with Next.
func (l *Lane) NextBatch() (*block.ColumnBatch, *bits.Mask, error) {
	for {
		if l.state == LaneDrained {
			return nil, nil, nil
		}

		if l.batch != nil {
			eof := l.batch.EndOfFile
			l.releaseBatch()
			if eof {
				if err := l.advance(); err != nil {
					return nil, nil, err
				}
				continue
			}
		}

		if err := l.pull(); err != nil {
			return nil, nil, err
		}

		if l.batch != nil {
			l.batch.SetCursor(l.batch.RowCount)
			return l.batch, l.mask, nil
		}
	}
}

// pull loads the next batch with at least one admitted row into l.batch,
// advancing over finished files. Leaves l.batch nil when the lane drains
// or a batch was skipped at end of file.
func (l *Lane) pull() error {
	batch, err := l.current.producer.NextBatch()
	if errors.Is(err, io.EOF) {
		return l.advance()
	}
	if err != nil {
		fileName := l.current.fileName

		l.coord.abort()
		l.closeReaders()
		l.state = LaneDrained
		return fmt.Errorf("unable to read batch from %s: %w", fileName, err)
	}

	l.state = LaneDelivering
	metricBatchesScanned.Inc()

	if l.filter != nil {
		mask, ferr := l.evaluator.Evaluate(l.filter, batch)
		if ferr != nil {
			fileName := l.current.fileName

			l.coord.abort()
			l.closeReaders()
			l.state = LaneDrained
			return fmt.Errorf("unable to evaluate filter on %s: %w", fileName, ferr)
		}

		if mask.IsNone() {
			l.evaluator.Release(mask)
			metricBatchesSkipped.Inc()

			if batch.EndOfFile {
				return l.advance()
			}
			return nil
		}

		l.mask = mask
		l.rows.Add(int64(mask.Count()))
		metricRowsEmitted.Add(float64(mask.Count()))
	} else {
		l.rows.Add(int64(batch.RowCount))
		metricRowsEmitted.Add(float64(batch.RowCount))
	}

	l.batch = batch
	return nil
}

func (l *Lane) nextAdmitted() int {
	cursor := l.batch.Cursor()
	if l.mask == nil {
		if cursor < l.batch.RowCount {
			return cursor
		}
		return -1
	}
	return l.mask.NextSet(cursor)
}

func (l *Lane) releaseBatch() {
	l.batch = nil
	if l.mask != nil {
		l.evaluator.Release(l.mask)
		l.mask = nil
	}
}

func (l *Lane) closeReaders() error {
	l.releaseBatch()

	var err error
	if l.current != nil {
		err = multierr.Append(err, l.current.close())
		l.current = nil
	}
	if l.next != nil {
		err = multierr.Append(err, l.next.close())
		l.next = nil
	}
	return err
}

// Close releases both readers, waiting for a pending background open.
func (l *Lane) Close() error {
	err := l.closeReaders()
	l.state = LaneDrained
	return err
}
