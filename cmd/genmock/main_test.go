package main

import (
	"bytes"
	"io"
	"log/slog"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/noaa-climate-etl/internal/observability"
	"github.com/couchcryptid/noaa-climate-etl/internal/table"
)

var first = time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC)

func TestGenerate_Reproducible(t *testing.T) {
	var a, b bytes.Buffer
	_, err := generate(&a, stationProfile(0), first, 60, 0.1, rand.New(rand.NewPCG(7, 7)))
	require.NoError(t, err)
	_, err = generate(&b, stationProfile(0), first, 60, 0.1, rand.New(rand.NewPCG(7, 7)))
	require.NoError(t, err)
	assert.Equal(t, a.String(), b.String())
}

func TestGenerate_PadsMeasurements(t *testing.T) {
	assert.Equal(t, "  317", tenthsField(31.7))
	assert.Equal(t, " -144", tenthsField(-14.4))
	assert.Equal(t, "    0", tenthsField(0))

	var buf bytes.Buffer
	_, err := generate(&buf, stationProfile(0), first, 5, 0, rand.New(rand.NewPCG(3, 3)))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 6)
	assert.Regexp(t, `,"\s+-?\d+",`, lines[1], "padded values are quoted as in NCEI exports")
}

func TestGenerate_FilesCleanAsExpected(t *testing.T) {
	rawDir := t.TempDir()
	rng := rand.New(rand.NewPCG(42, 42))

	var paths []string
	var rows, incomplete int
	for i := range 3 {
		p := stationProfile(i)
		path := filepath.Join(rawDir, p.id+".csv")
		stats, err := writeStationFile(path, p, first, 100, 0.1, rng)
		require.NoError(t, err)
		assert.Positive(t, stats.bytes)
		paths = append(paths, path)
		rows += stats.rows
		incomplete += stats.incomplete
	}
	require.Equal(t, 300, rows)

	out := t.TempDir()
	proc := table.NewProcessor(observability.NewMetricsForTesting(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	unified, err := proc.Unify(paths, filepath.Join(out, "unified.csv"))
	require.NoError(t, err)
	assert.Equal(t, 300, unified.Rows)
	assert.Equal(t, "2020-01-01", unified.FirstDate)

	cleaned, err := proc.Clean(unified.Path, filepath.Join(out, "cleaned.csv"))
	require.NoError(t, err)
	assert.Equal(t, 300-incomplete, cleaned.RowsOut)
	assert.Equal(t, incomplete, cleaned.Dropped())

	records, err := table.LoadCleaned(cleaned.Path)
	require.NoError(t, err)
	for _, r := range records {
		assert.Less(t, r.TMaxC, 60.0, "temperatures are rescaled to degrees")
		assert.GreaterOrEqual(t, r.TMaxC, r.TMinC)
		assert.GreaterOrEqual(t, r.PrecipMM, 0.0)
	}
}

func TestWriteStationFile_BadPath(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope", "x.csv")
	_, err := writeStationFile(missing, stationProfile(0), first, 1, 0, rand.New(rand.NewPCG(1, 1)))
	require.Error(t, err)
	_, statErr := os.Stat(missing)
	assert.True(t, os.IsNotExist(statErr))
}
