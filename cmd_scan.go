package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dot5enko/simple-column-scan/bits"
	"github.com/dot5enko/simple-column-scan/block"
	"github.com/dot5enko/simple-column-scan/manager"
	"github.com/dot5enko/simple-column-scan/manager/query"
	"github.com/dot5enko/simple-column-scan/reader"
	"github.com/dot5enko/simple-column-scan/schema"
	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type scanCmd struct {
	Files   []string `arg:"" help:"Files to scan, .parquet files and http(s) urls are read as parquet."`
	Columns []string `help:"Columns to read, all columns of the first file when empty." sep:","`
	Where   []string `help:"Filter clause column:op:value, op is one of eq,gt,lt,gte,lte. Repeated clauses are ANDed." sep:"none"`
	Count   bool     `help:"Only count matching rows."`

	MetricsAddr string `help:"Serve prometheus metrics on this address while scanning."`
}

// bindScan resolves the requested columns against the first file and parses
// the where clauses. Clause columns that are not requested are appended.
func bindScan(opener reader.Opener, file string, columns, where []string) (manager.Scan, error) {
	probe, err := opener.Open(file)
	if err != nil {
		return manager.Scan{}, err
	}
	fileSchema := probe.Schema()
	if err = probe.Close(); err != nil {
		return manager.Scan{}, err
	}

	if len(columns) == 0 {
		for _, c := range fileSchema {
			columns = append(columns, c.Name)
		}
	}

	for _, clause := range where {
		name := strings.SplitN(clause, ":", 2)[0]
		found := false
		for _, c := range columns {
			found = found || c == name
		}
		if !found {
			columns = append(columns, name)
		}
	}

	bound := make([]schema.Column, 0, len(columns))
	for _, name := range columns {
		idx := schema.IndexOf(fileSchema, name)
		if idx < 0 {
			return manager.Scan{}, fmt.Errorf("%w: %s in %s", reader.ErrColumnNotFound, name, file)
		}
		bound = append(bound, fileSchema[idx])
	}

	var filters []query.Node
	for _, clause := range where {
		cmp, perr := query.ParseClause(clause, bound)
		if perr != nil {
			return manager.Scan{}, perr
		}
		filters = append(filters, cmp)
	}

	return manager.Scan{Columns: columns, Filter: query.AndAll(filters...)}, nil
}

func (cmd *scanCmd) Run(g *globalOptions) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if cmd.MetricsAddr != "" {
		srv := &http.Server{Addr: cmd.MetricsAddr, Handler: promhttp.Handler()}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Warn("metrics server stopped", "err", err)
			}
		}()
		defer srv.Close()
	}

	opener := newFormatOpener()

	scan, err := bindScan(opener, cmd.Files[0], cmd.Columns, cmd.Where)
	if err != nil {
		return err
	}

	before := time.Now()

	c, err := manager.Open(ctx, opener, cmd.Files, scan, g.config())
	if err != nil {
		return err
	}
	defer c.Close()

	var rows atomic.Int64

	if cmd.Count {
		err = c.RunBatches(ctx, func(_ *manager.Lane, batch *block.ColumnBatch, mask *bits.Mask) error {
			if mask == nil {
				rows.Add(int64(batch.RowCount))
			} else {
				rows.Add(int64(mask.Count()))
			}
			return nil
		})
	} else {
		err = cmd.printRows(ctx, c, &rows)
	}
	if err != nil {
		return err
	}

	color.New(color.FgGreen).Fprintf(os.Stderr, "%s rows matched in %d files on %d lanes, %s\n",
		humanize.Comma(rows.Load()), len(cmd.Files), c.LaneCount(), time.Since(before).Round(time.Millisecond))

	return nil
}

func (cmd *scanCmd) printRows(ctx context.Context, c *manager.Coordinator, rows *atomic.Int64) error {
	out := bufio.NewWriter(os.Stdout)
	defer out.Flush()

	var lock sync.Mutex

	names := make([]string, len(c.Columns()))
	for i, col := range c.Columns() {
		names[i] = col.Name
	}
	fmt.Fprintln(out, strings.Join(names, "\t"))

	return c.Run(ctx, func(_ *manager.Lane, row []block.Value) error {
		var sb strings.Builder
		for i, v := range row {
			if i > 0 {
				sb.WriteByte('\t')
			}
			sb.WriteString(v.String())
		}
		sb.WriteByte('\n')

		lock.Lock()
		defer lock.Unlock()

		rows.Add(1)
		_, err := out.WriteString(sb.String())
		return err
	})
}
