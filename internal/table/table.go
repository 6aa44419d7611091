// Package table holds the file-level table stages: unifying station files,
// cleaning the unified table, and reading the cleaned table back for analysis.
package table

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"github.com/couchcryptid/noaa-climate-etl/internal/domain"
	"github.com/couchcryptid/noaa-climate-etl/internal/observability"
)

// ErrNoInput is returned when none of the given station files could be read.
var ErrNoInput = errors.New("no readable station files")

// Processor runs the table stages, recording progress in logs and metrics.
type Processor struct {
	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewProcessor creates a Processor.
func NewProcessor(metrics *observability.Metrics, logger *slog.Logger) *Processor {
	return &Processor{metrics: metrics, logger: logger}
}

// CheckSize reports whether the file at path is at least minGB binary gigabytes.
func (p *Processor) CheckSize(path string, minGB float64) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		return false, fmt.Errorf("stat %s: %w", path, err)
	}
	gb := domain.SizeGB(info.Size())
	ok := gb >= minGB
	if ok {
		p.logger.Info("file meets minimum size", "path", path, "size_gb", fmt.Sprintf("%.3f", gb), "min_gb", minGB)
	} else {
		p.logger.Warn("file below minimum size", "path", path, "size_gb", fmt.Sprintf("%.3f", gb), "min_gb", minGB)
	}
	return ok, nil
}

// readFrame loads a CSV file. Options decide column types.
func readFrame(path string, opts ...dataframe.LoadOption) (dataframe.DataFrame, error) {
	f, err := os.Open(path)
	if err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	df := dataframe.ReadCSV(bufio.NewReader(f), opts...)
	if df.Err != nil {
		// gota refuses a file with a header and no rows.
		if names, ok := headerOnly(path); ok {
			return emptyFrame(names), nil
		}
		return dataframe.DataFrame{}, fmt.Errorf("parse %s: %w", path, df.Err)
	}
	return df, nil
}

// headerOnly reports whether path holds exactly one CSV record, and returns it.
func headerOnly(path string) ([]string, bool) {
	f, err := os.Open(path)
	if err != nil {
		return nil, false
	}
	defer f.Close()

	r := csv.NewReader(bufio.NewReader(f))
	header, err := r.Read()
	if err != nil || len(header) == 0 {
		return nil, false
	}
	if _, err := r.Read(); !errors.Is(err, io.EOF) {
		return nil, false
	}
	return header, true
}

// emptyFrame is a zero-row frame of string columns.
func emptyFrame(names []string) dataframe.DataFrame {
	cols := make([]series.Series, len(names))
	for i, name := range names {
		cols[i] = series.New([]string{}, series.String, name)
	}
	return dataframe.New(cols...)
}

// trimColumns strips the fixed-width padding NCEI puts around values and
// re-reads cols as type t. Blank cells become missing for numeric types.
func trimColumns(df dataframe.DataFrame, t series.Type, cols ...string) dataframe.DataFrame {
	for _, col := range cols {
		vals := df.Col(col).Records()
		for i, v := range vals {
			vals[i] = strings.TrimSpace(v)
		}
		df = df.Mutate(series.New(vals, t, col))
	}
	return df
}

// writeFrame writes df as CSV with a header row and returns the file size.
func writeFrame(df dataframe.DataFrame, path string) (int64, error) {
	if df.Err != nil {
		return 0, fmt.Errorf("build %s: %w", path, df.Err)
	}

	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("create %s: %w", path, err)
	}

	w := bufio.NewWriter(f)
	writeErr := df.WriteCSV(w)
	if writeErr == nil {
		writeErr = w.Flush()
	}
	if err := errors.Join(writeErr, f.Close()); err != nil {
		return 0, fmt.Errorf("write %s: %w", path, err)
	}

	info, err := os.Stat(path)
	if err != nil {
		return 0, fmt.Errorf("stat %s: %w", path, err)
	}
	return info.Size(), nil
}

// requireColumns reports the first of want missing from df.
func requireColumns(df dataframe.DataFrame, want ...string) error {
	names := df.Names()
	for _, col := range want {
		if !slices.Contains(names, col) {
			return fmt.Errorf("missing column %s", col)
		}
	}
	return nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
