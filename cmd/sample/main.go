// Command sample writes a reproducible random fraction of a CSV table's rows,
// for quick analysis runs against a small copy of the cleaned data.
//
// Usage:
//
//	go run ./cmd/sample -in data/noaa_cleaned.csv -out data/noaa_sample.csv -fraction 0.05 -seed 42
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/lmittmann/tint"

	"github.com/couchcryptid/noaa-climate-etl/internal/table"
)

func main() {
	in := flag.String("in", filepath.Join("data", "noaa_cleaned.csv"), "input CSV")
	out := flag.String("out", filepath.Join("data", "noaa_sample.csv"), "output CSV")
	fraction := flag.Float64("fraction", 0.05, "share of rows to keep, in (0, 1]")
	seed := flag.Uint64("seed", 42, "random seed")
	flag.Parse()

	logger := slog.New(tint.NewHandler(os.Stderr, &tint.Options{TimeFormat: time.Kitchen}))
	if err := run(logger, *in, *out, *fraction, *seed); err != nil {
		logger.Error("sample failed", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger, in, out string, fraction float64, seed uint64) error {
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	res, err := table.Sample(in, out, fraction, seed)
	if err != nil {
		return err
	}
	logger.Info("sample written",
		"path", res.Path,
		"rows_in", res.RowsIn,
		"rows_out", res.RowsOut,
		"fraction", fraction,
		"seed", seed,
		"size", humanize.IBytes(uint64(res.Bytes)), //nolint:gosec // file sizes are non-negative
	)
	return nil
}
