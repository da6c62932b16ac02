package main

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/dot5enko/simple-column-scan/colfile"
	"github.com/dot5enko/simple-column-scan/manager"
	"github.com/dot5enko/simple-column-scan/parquetfile"
	"github.com/dot5enko/simple-column-scan/reader"
	"github.com/fatih/color"
)

type globalOptions struct {
	LogLevel string `help:"Log level (debug, info, warn, error)." default:"warn" enum:"debug,info,warn,error"`

	Threads       int  `help:"Scan lanes, 0 means one lane per file." default:"0"`
	BatchSize     int  `help:"Rows per batch." default:"2048"`
	Strict        bool `help:"Fail on corrupt row groups and missing columns instead of skipping them."`
	DisablePacked bool `help:"Force the scalar compare path."`
}

func (g *globalOptions) config() manager.ManagerConfig {
	cfg := manager.DefaultConfig()
	cfg.Threads = g.Threads
	cfg.BatchSize = g.BatchSize
	cfg.DisablePacked = g.DisablePacked
	if g.Strict {
		cfg.SkipCorruptRecords = false
		cfg.TolerantSchemaEvolution = false
	}
	return cfg
}

var cli struct {
	globalOptions `embed:""`

	Gen  genCmd  `cmd:"" help:"Generate colfiles with synthetic rows."`
	Scan scanCmd `cmd:"" help:"Scan files in parallel, printing or counting matching rows."`
	Stat statCmd `cmd:"" help:"Show row groups and row counts of files."`
}

func setupLogging(level string) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		l = slog.LevelWarn
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l})))
}

// formatOpener picks the decoder by file extension.
type formatOpener struct {
	native  *colfile.Opener
	parquet *parquetfile.Opener
}

func newFormatOpener() *formatOpener {
	return &formatOpener{
		native:  colfile.NewOpener(),
		parquet: parquetfile.NewOpener(),
	}
}

func isParquet(path string) bool {
	if parquetfile.IsHTTPURL(path) {
		path = strings.SplitN(path, "?", 2)[0]
	}
	return strings.EqualFold(filepath.Ext(path), ".parquet")
}

func (o *formatOpener) Open(path string) (reader.Handle, error) {
	if isParquet(path) {
		return o.parquet.Open(path)
	}
	return o.native.Open(path)
}

func main() {
	ctx := kong.Parse(&cli,
		kong.Name("colscan"),
		kong.Description("Parallel columnar scans with predicate pushdown over colfiles and parquet."),
		kong.UsageOnError(),
		kong.DefaultEnvars("COLSCAN"),
	)

	setupLogging(cli.LogLevel)

	if err := ctx.Run(&cli.globalOptions); err != nil {
		color.New(color.FgRed).Fprintf(os.Stderr, "error: %s\n", err.Error())
		os.Exit(1)
	}
}
