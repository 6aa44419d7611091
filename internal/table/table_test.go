package table_test

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/noaa-climate-etl/internal/aggregate"
	"github.com/couchcryptid/noaa-climate-etl/internal/domain"
	"github.com/couchcryptid/noaa-climate-etl/internal/observability"
	"github.com/couchcryptid/noaa-climate-etl/internal/table"
)

const noaaHeader = `"STATION","DATE","LATITUDE","NAME","PRCP","PRCP_ATTRIBUTES","TMAX","TMAX_ATTRIBUTES","TMIN"`

var day0 = time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC)

// writeStation writes a GHCN-style file with extra columns. The first nullTMax
// rows have a blank TMAX.
func writeStation(t *testing.T, dir, id string, rows, nullTMax int) string {
	t.Helper()
	var b strings.Builder
	b.WriteString(noaaHeader + "\n")
	for i := range rows {
		tmax := fmt.Sprintf("%d", 150+i)
		if i < nullTMax {
			tmax = ""
		}
		fmt.Fprintf(&b, "%q,%q,\"40.7\",\"NEW YORK CENTRAL PARK, NY US\",\"%d\",\",,W,2400\",%q,\",,W,2400\",\"%d\"\n",
			id, day0.AddDate(0, 0, i).Format(domain.DateLayout), i%7, tmax, 20+i)
	}
	path := filepath.Join(dir, id+".csv")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o600))
	return path
}

func newProcessor(logs io.Writer) (*table.Processor, *observability.Metrics) {
	m := observability.NewMetricsForTesting()
	return table.NewProcessor(m, slog.New(slog.NewTextHandler(logs, nil))), m
}

func TestPrepare_EndToEnd(t *testing.T) {
	dir := t.TempDir()
	paths := []string{
		writeStation(t, dir, "USW00000001", 100, 10),
		writeStation(t, dir, "USW00000002", 100, 10),
		writeStation(t, dir, "USW00000003", 100, 10),
	}
	p, metrics := newProcessor(io.Discard)

	unified, err := p.Unify(paths, filepath.Join(dir, "unified.csv"))
	require.NoError(t, err)
	assert.Equal(t, 300, unified.Rows)
	assert.Empty(t, unified.Skipped)
	require.Len(t, unified.Files, 3)
	for i, f := range unified.Files {
		assert.Equal(t, paths[i], f.Path)
		assert.Equal(t, 100, f.Rows)
	}
	assert.Equal(t, "2020-01-01", unified.FirstDate)
	assert.Equal(t, day0.AddDate(0, 0, 99).Format(domain.DateLayout), unified.LastDate)

	header, err := firstLine(unified.Path)
	require.NoError(t, err)
	assert.Equal(t, "STATION,DATE,TMAX,TMIN,PRCP", header)

	cleaned, err := p.Clean(unified.Path, filepath.Join(dir, "cleaned.csv"))
	require.NoError(t, err)
	assert.Equal(t, 300, cleaned.RowsIn)
	assert.Equal(t, 270, cleaned.RowsOut)
	assert.Equal(t, 30, cleaned.DroppedNull)
	assert.Zero(t, cleaned.DroppedDate)
	assert.Equal(t, 3, cleaned.Stats.Stations)
	assert.Equal(t, 2020, cleaned.Stats.FirstYear)

	header, err = firstLine(cleaned.Path)
	require.NoError(t, err)
	assert.Equal(t, strings.Join(domain.CleanedColumns, ","), header)

	records, err := table.LoadCleaned(cleaned.Path)
	require.NoError(t, err)
	require.Len(t, records, 270)

	type triple struct {
		station     string
		year, month int
	}
	distinct := map[triple]bool{}
	for _, r := range records {
		assert.InDelta(t, (r.TMaxC+r.TMinC)/2, r.TempC, 1e-9)
		distinct[triple{r.StationID, r.Year, r.Month}] = true
	}
	assert.Len(t, aggregate.MonthlyTemperature(records), len(distinct))

	assert.InDelta(t, 3, testutil.ToFloat64(metrics.FilesParsed.WithLabelValues("parsed")), 1e-9)
	assert.InDelta(t, 300, testutil.ToFloat64(metrics.RowsUnified), 1e-9)
	assert.InDelta(t, 270, testutil.ToFloat64(metrics.RowsCleaned), 1e-9)
	assert.InDelta(t, 30, testutil.ToFloat64(metrics.RowsDropped), 1e-9)
}

func TestClean_RescalesOnce(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "unified.csv")
	require.NoError(t, os.WriteFile(in, []byte(
		"STATION,DATE,TMAX,TMIN,PRCP\n"+
			"USW00094728,2023-07-14,317,228,33\n"+
			"USW00094728,2023-07-15,317.0,228.0,0.0\n"+
			"USW00094728,2023-01-02,-21,-144,NaN\n"+
			"USW00094728,not-a-date,100,50,0\n"+
			"USW00094728,2023-01-03,,50,0\n"+
			// NCEI pads values to a fixed width.
			"USW00094728,2023-07-16,  317,  228,   33\n"+
			`"USW00094728","2023-01-04","  -21"," -144","    0"`+"\n"+
			`"USW00094728","2023-01-05","     ","  -50","    0"`+"\n",
	), 0o600))

	p, _ := newProcessor(io.Discard)
	res, err := p.Clean(in, filepath.Join(dir, "cleaned.csv"))
	require.NoError(t, err)
	assert.Equal(t, 8, res.RowsIn)
	assert.Equal(t, 4, res.RowsOut)
	assert.Equal(t, 3, res.DroppedNull)
	assert.Equal(t, 1, res.DroppedDate)
	assert.Equal(t, 4, res.Dropped())

	records, err := table.LoadCleaned(res.Path)
	require.NoError(t, err)
	require.Len(t, records, 4)

	r := records[0]
	assert.Equal(t, "USW00094728", r.StationID)
	assert.Equal(t, 2023, r.Year)
	assert.Equal(t, 7, r.Month)
	assert.Equal(t, 14, r.Day)
	assert.InDelta(t, 31.7, r.TMaxC, 1e-9)
	assert.InDelta(t, 22.8, r.TMinC, 1e-9)
	assert.InDelta(t, 27.25, r.TempC, 1e-9)
	assert.InDelta(t, 3.3, r.PrecipMM, 1e-9)

	assert.InDelta(t, 31.7, records[1].TMaxC, 1e-9)
	assert.Zero(t, records[1].PrecipMM)

	padded := records[2]
	assert.Equal(t, 16, padded.Day)
	assert.InDelta(t, 31.7, padded.TMaxC, 1e-9)
	assert.InDelta(t, 22.8, padded.TMinC, 1e-9)
	assert.InDelta(t, 3.3, padded.PrecipMM, 1e-9)

	assert.InDelta(t, -2.1, records[3].TMaxC, 1e-9)
	assert.InDelta(t, -14.4, records[3].TMinC, 1e-9)
	assert.Zero(t, records[3].PrecipMM)
}

func TestUnify_TrimsPaddedValues(t *testing.T) {
	dir := t.TempDir()
	raw := filepath.Join(dir, "USW00094728.csv")
	require.NoError(t, os.WriteFile(raw, []byte(
		`"STATION","DATE","PRCP","TMAX","TMIN"`+"\n"+
			`"USW00094728","2023-01-01","    0","   31","  -17"`+"\n"+
			`"USW00094728","2023-01-02","   13","  256","  100"`+"\n",
	), 0o600))

	p, _ := newProcessor(io.Discard)
	unified, err := p.Unify([]string{raw}, filepath.Join(dir, "unified.csv"))
	require.NoError(t, err)
	require.Equal(t, 2, unified.Rows)

	data, err := os.ReadFile(unified.Path)
	require.NoError(t, err)
	assert.Equal(t,
		"STATION,DATE,TMAX,TMIN,PRCP\n"+
			"USW00094728,2023-01-01,31,-17,0\n"+
			"USW00094728,2023-01-02,256,100,13\n",
		string(data))

	cleaned, err := p.Clean(unified.Path, filepath.Join(dir, "cleaned.csv"))
	require.NoError(t, err)
	assert.Equal(t, 2, cleaned.RowsOut)
	assert.Zero(t, cleaned.Dropped())
	assert.InDelta(t, 25.6, cleaned.Stats.MaxTemp, 1e-9)
}

func TestClean_AllRowsDropped(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "unified.csv")
	require.NoError(t, os.WriteFile(in, []byte("STATION,DATE,TMAX,TMIN,PRCP\nA,2023-01-01,,1,1\n"), 0o600))

	p, _ := newProcessor(io.Discard)
	res, err := p.Clean(in, filepath.Join(dir, "cleaned.csv"))
	require.NoError(t, err)
	assert.Zero(t, res.RowsOut)
	assert.Equal(t, 1, res.DroppedNull)

	header, err := firstLine(res.Path)
	require.NoError(t, err)
	assert.Equal(t, strings.Join(domain.CleanedColumns, ","), header)

	records, err := table.LoadCleaned(res.Path)
	require.NoError(t, err)
	assert.Empty(t, records)

	// A header-only unified table cleans to a header-only table.
	again, err := p.Clean(res.Path, filepath.Join(dir, "cleaned-again.csv"))
	require.NoError(t, err)
	assert.Zero(t, again.RowsIn)
}

func TestUnify_SkipsUnreadableFiles(t *testing.T) {
	dir := t.TempDir()
	good := writeStation(t, dir, "USW00000001", 5, 0)

	noStation := filepath.Join(dir, "nostation.csv")
	require.NoError(t, os.WriteFile(noStation, []byte("DATE,TMAX\n2020-01-01,10\n"), 0o600))

	ragged := filepath.Join(dir, "ragged.csv")
	require.NoError(t, os.WriteFile(ragged, []byte("STATION,DATE\nA,2020-01-01,extra\n"), 0o600))

	// Precipitation is not observed at every station.
	noPrcp := filepath.Join(dir, "noprcp.csv")
	require.NoError(t, os.WriteFile(noPrcp, []byte("STATION,DATE,TMAX,TMIN\nUSC00000009,2021-03-01,100,0\n"), 0o600))

	var logs bytes.Buffer
	p, metrics := newProcessor(&logs)
	res, err := p.Unify([]string{good, noStation, filepath.Join(dir, "missing.csv"), ragged, noPrcp}, filepath.Join(dir, "unified.csv"))
	require.NoError(t, err)

	assert.Equal(t, 6, res.Rows)
	assert.Len(t, res.Files, 2)
	assert.Len(t, res.Skipped, 3)
	assert.ErrorContains(t, res.Skipped[noStation], "STATION")
	assert.Contains(t, logs.String(), "skipping station file")
	assert.Equal(t, "2021-03-01", res.LastDate)
	assert.InDelta(t, 3, testutil.ToFloat64(metrics.FilesParsed.WithLabelValues("skipped")), 1e-9)

	cleaned, err := p.Clean(res.Path, filepath.Join(dir, "cleaned.csv"))
	require.NoError(t, err)
	assert.Equal(t, 5, cleaned.RowsOut, "row without PRCP is dropped")
}

func TestUnify_NoInput(t *testing.T) {
	dir := t.TempDir()
	p, _ := newProcessor(io.Discard)

	_, err := p.Unify(nil, filepath.Join(dir, "unified.csv"))
	require.ErrorIs(t, err, table.ErrNoInput)

	_, err = p.Unify([]string{filepath.Join(dir, "absent.csv")}, filepath.Join(dir, "unified.csv"))
	require.ErrorIs(t, err, table.ErrNoInput)
	assert.NoFileExists(t, filepath.Join(dir, "unified.csv"))
}

func TestLoadCleaned_MissingColumns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cleaned.csv")
	require.NoError(t, os.WriteFile(path, []byte("STATION,DATE,TMAX\nA,2020-01-01,1\n"), 0o600))

	_, err := table.LoadCleaned(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing column")
}

func TestLoadCleaned_HeaderOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cleaned.csv")
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(domain.CleanedColumns, ",")+"\n"), 0o600))

	records, err := table.LoadCleaned(path)
	require.NoError(t, err)
	assert.Nil(t, records)
}

func TestSample_Reproducible(t *testing.T) {
	dir := t.TempDir()
	in := writeStation(t, dir, "USW00000001", 200, 0)

	first, err := table.Sample(in, filepath.Join(dir, "a.csv"), 0.05, 42)
	require.NoError(t, err)
	assert.Equal(t, 200, first.RowsIn)
	assert.Equal(t, 10, first.RowsOut)

	second, err := table.Sample(in, filepath.Join(dir, "b.csv"), 0.05, 42)
	require.NoError(t, err)

	a, err := os.ReadFile(first.Path)
	require.NoError(t, err)
	b, err := os.ReadFile(second.Path)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))

	lines := strings.Split(strings.TrimSpace(string(a)), "\n")
	require.Len(t, lines, 11)
	for i := 2; i < len(lines); i++ {
		prev := strings.Split(lines[i-1], ",")[1]
		cur := strings.Split(lines[i], ",")[1]
		assert.Less(t, prev, cur, "sample keeps source order")
	}

	_, err = table.Sample(in, filepath.Join(dir, "c.csv"), 0, 42)
	require.Error(t, err)
}

func TestCheckSize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "small.csv")
	require.NoError(t, os.WriteFile(path, []byte("STATION\n"), 0o600))

	var logs bytes.Buffer
	p, _ := newProcessor(&logs)

	ok, err := p.CheckSize(path, 0.5)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Contains(t, logs.String(), "below minimum size")

	ok, err = p.CheckSize(path, 0)
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = p.CheckSize(filepath.Join(t.TempDir(), "absent.csv"), 0)
	require.Error(t, err)
}

func firstLine(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	line, _, _ := strings.Cut(string(data), "\n")
	return line, nil
}
