package table

import (
	"fmt"
	"path/filepath"
	"slices"

	"github.com/dustin/go-humanize"
	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"github.com/couchcryptid/noaa-climate-etl/internal/domain"
)

// FileRows is the row count read from one station file.
type FileRows struct {
	Path string
	Rows int
}

// UnifyResult describes the combined station table.
type UnifyResult struct {
	Path      string
	Rows      int
	Files     []FileRows       // parsed files, in input order
	Skipped   map[string]error // path -> reason
	FirstDate string
	LastDate  string
	Bytes     int64
}

// Unify reads each station file restricted to domain.UnifiedColumns,
// concatenates them in input order, and writes the result to outPath.
// Files that cannot be parsed or lack STATION or DATE are skipped; absent
// measurement columns are filled with empty values. ErrNoInput is returned
// when no file could be used.
func (p *Processor) Unify(paths []string, outPath string) (UnifyResult, error) {
	res := UnifyResult{Path: outPath, Skipped: make(map[string]error)}
	p.logger.Info("unifying station files", "count", len(paths))

	var combined dataframe.DataFrame
	for _, path := range paths {
		df, err := loadStation(path)
		if err != nil {
			res.Skipped[path] = err
			p.metrics.FilesParsed.WithLabelValues("skipped").Inc()
			p.logger.Warn("skipping station file", "file", filepath.Base(path), "error", err)
			continue
		}

		if len(res.Files) == 0 {
			combined = df
		} else {
			combined = combined.RBind(df)
			if combined.Err != nil {
				return res, fmt.Errorf("concatenate %s: %w", path, combined.Err)
			}
		}
		res.Files = append(res.Files, FileRows{Path: path, Rows: df.Nrow()})
		p.metrics.FilesParsed.WithLabelValues("parsed").Inc()
		p.logger.Info("station file read", "file", filepath.Base(path), "rows", humanize.Comma(int64(df.Nrow())))
	}

	if len(res.Files) == 0 {
		return res, ErrNoInput
	}

	size, err := writeFrame(combined, outPath)
	if err != nil {
		return res, err
	}

	res.Rows = combined.Nrow()
	res.Bytes = size
	res.FirstDate, res.LastDate = dateRange(combined.Col(domain.ColDate).Records())
	p.metrics.RowsUnified.Set(float64(res.Rows))

	p.logger.Info("unified file written",
		"path", outPath,
		"rows", humanize.Comma(int64(res.Rows)),
		"first_date", res.FirstDate,
		"last_date", res.LastDate,
		"size", humanize.IBytes(uint64(size)), //nolint:gosec // file sizes are non-negative
	)
	return res, nil
}

// loadStation reads one station file as strings and projects it onto the
// unified column set.
func loadStation(path string) (dataframe.DataFrame, error) {
	df, err := readFrame(path,
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
	)
	if err != nil {
		return df, err
	}
	if err := requireColumns(df, domain.ColStation, domain.ColDate); err != nil {
		return df, err
	}

	names := df.Names()
	for _, col := range domain.UnifiedColumns {
		if !slices.Contains(names, col) {
			df = df.Mutate(series.New(make([]string, df.Nrow()), series.String, col))
		}
	}

	df = df.Select(domain.UnifiedColumns)
	if df.Err != nil {
		return df, fmt.Errorf("select columns: %w", df.Err)
	}
	df = trimColumns(df, series.String, domain.UnifiedColumns...)
	if df.Err != nil {
		return df, fmt.Errorf("trim columns: %w", df.Err)
	}
	return df, nil
}

// dateRange returns the smallest and largest non-empty ISO date.
func dateRange(dates []string) (string, string) {
	var first, last string
	for _, d := range dates {
		if d == "" || d == "NaN" {
			continue
		}
		if first == "" || d < first {
			first = d
		}
		if d > last {
			last = d
		}
	}
	return first, last
}
