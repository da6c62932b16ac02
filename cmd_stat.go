package main

import (
	"context"
	"fmt"
	"os"

	"github.com/dot5enko/simple-column-scan/manager"
	"github.com/dot5enko/simple-column-scan/parquetfile"
	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
)

type statCmd struct {
	Files []string `arg:"" help:"Files to inspect."`
}

func (cmd *statCmd) Run(g *globalOptions) error {
	opener := newFormatOpener()

	x := table.NewWriter()
	x.SetOutputMirror(os.Stdout)
	x.AppendHeader(table.Row{"file", "format", "columns", "row groups", "rows", "size"})

	for _, file := range cmd.Files {
		h, err := opener.Open(file)
		if err != nil {
			return fmt.Errorf("%w %s: %w", manager.ErrReaderOpen, file, err)
		}

		format := "colfile"
		if isParquet(file) {
			format = "parquet"
		}

		size := "-"
		if !parquetfile.IsHTTPURL(file) {
			if st, serr := os.Stat(file); serr == nil {
				size = humanize.Bytes(uint64(st.Size()))
			}
		}

		x.AppendRow(table.Row{file, format, len(h.Schema()), h.RowGroupCount(), humanize.Comma(h.RowCount()), size})

		if err = h.Close(); err != nil {
			return err
		}
	}

	ctx := context.Background()

	c, err := manager.Open(ctx, opener, cmd.Files, manager.Scan{}, g.config())
	if err != nil {
		return err
	}
	defer c.Close()

	exact, err := c.CountRows(ctx)
	if err != nil {
		return err
	}

	x.AppendSeparator()
	x.AppendFooter(table.Row{"total", "", "", "", humanize.Comma(exact), ""})
	x.Render()

	color.New(color.FgCyan).Printf("estimated %s rows from the first file, %s exact\n",
		humanize.Comma(c.EstimateCardinality()), humanize.Comma(exact))

	return nil
}
