package main

import (
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/dot5enko/simple-column-scan/block"
	"github.com/dot5enko/simple-column-scan/colfile"
	"github.com/dot5enko/simple-column-scan/schema"
	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
)

var genSchema = []schema.Column{
	{Name: "id", Type: schema.Int64FieldType},
	{Name: "qty", Type: schema.Int32FieldType},
	{Name: "day", Type: schema.DateFieldType},
	{Name: "price", Type: schema.DecimalFieldType, Scale: 2, Precision: 12},
	{Name: "name", Type: schema.BytesFieldType},
}

var genNames = []string{"alpha", "bravo", "charlie", "delta", "echo", "foxtrot", "golf", "hotel"}

type genCmd struct {
	Out      string `help:"Output directory." default:"./data" type:"path"`
	Files    int    `help:"Number of files." default:"4"`
	Rows     int    `help:"Rows per file." default:"100000"`
	RowGroup int    `help:"Rows per row group." default:"16384"`
	Seed     int64  `help:"Random seed, 0 picks one from the clock."`
}

func (cmd *genCmd) Run(_ *globalOptions) error {
	if cmd.Files <= 0 || cmd.Rows < 0 || cmd.RowGroup <= 0 {
		return fmt.Errorf("files and row group must be positive, rows not negative")
	}

	if err := os.MkdirAll(cmd.Out, 0755); err != nil {
		return err
	}

	seed := cmd.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rnd := rand.New(rand.NewSource(seed))

	before := time.Now()
	id := int64(0)

	for f := range cmd.Files {
		var groups [][]block.Column
		for start := 0; start < cmd.Rows; start += cmd.RowGroup {
			n := min(cmd.RowGroup, cmd.Rows-start)
			groups = append(groups, genFakeGroup(rnd, id, n))
			id += int64(n)
		}

		path := filepath.Join(cmd.Out, fmt.Sprintf("part_%04d.scol", f))
		if err := colfile.WriteFile(path, genSchema, groups); err != nil {
			return fmt.Errorf("unable to write %s: %w", path, err)
		}

		slog.Info("file generated", "path", path, "rows", cmd.Rows, "row_groups", len(groups))
	}

	color.New(color.FgGreen).Printf("generated %s rows in %d files under %s (%s, seed %d)\n",
		humanize.Comma(id), cmd.Files, cmd.Out, time.Since(before).Round(time.Millisecond), seed)

	return nil
}

// genFakeGroup fills one row group with ids starting at firstID and random values.
func genFakeGroup(rnd *rand.Rand, firstID int64, size int) []block.Column {
	ids := make([]int64, size)
	qty := make([]int32, size)
	days := make([]int32, size)
	prices := make([]int64, size)
	names := make([][]byte, size)

	// days of 2020..2024
	const firstDay = 18262

	for i := range size {
		ids[i] = firstID + int64(i)
		qty[i] = int32(rnd.Int63n(50000))
		days[i] = int32(firstDay + rnd.Intn(5*365))
		prices[i] = rnd.Int63n(10_000_00)
		names[i] = []byte(genNames[rnd.Intn(len(genNames))])
	}

	return []block.Column{
		&block.Int64Column{Data: ids},
		&block.Int32Column{Data: qty},
		&block.DateColumn{Data: days},
		&block.DecimalColumn{Data: prices, Scale: 2, Precision: 12},
		&block.BytesColumn{Data: names},
	}
}
