// Command genmock writes synthetic GHCN-Daily station files for demos and
// tests. Temperatures follow a seasonal cycle with noise, precipitation is
// mostly dry days with occasional showers, and a configurable share of rows
// has one measurement blanked out so the cleaner has something to drop.
//
// Usage:
//
//	go run ./cmd/genmock -out data/stations -stations 3 -days 3650
//
// Point climate-prepare at the files by serving the directory and setting
// BASE_URL, or unify them directly from the raw directory.
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/lmittmann/tint"

	"github.com/couchcryptid/noaa-climate-etl/internal/domain"
)

// header mirrors the NCEI per-station access files, including columns the
// unifier discards.
var header = []string{
	domain.ColStation, domain.ColDate, "LATITUDE", "LONGITUDE", "ELEVATION", "NAME",
	domain.ColPrecip, "PRCP_ATTRIBUTES", domain.ColTMax, "TMAX_ATTRIBUTES", domain.ColTMin, "TMIN_ATTRIBUTES",
}

// profile shapes one station's climate.
type profile struct {
	id        string
	name      string
	meanC     float64 // annual mean of the daily maximum
	amplitude float64 // half the summer/winter swing
	spreadC   float64 // typical TMAX - TMIN
	wetDays   float64 // probability of measurable precipitation
}

func main() {
	logger := slog.New(tint.NewHandler(os.Stderr, &tint.Options{TimeFormat: time.Kitchen}))
	if err := run(logger); err != nil {
		logger.Error("genmock failed", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	out := flag.String("out", filepath.Join("data", "stations"), "output directory")
	stations := flag.Int("stations", 3, "number of stations")
	start := flag.String("start", "2015-01-01", "first observation date")
	days := flag.Int("days", 3650, "observations per station")
	nullRate := flag.Float64("null-rate", 0.02, "share of rows with a missing measurement")
	seed := flag.Uint64("seed", 42, "random seed")
	flag.Parse()

	if *stations < 1 || *days < 1 || *nullRate < 0 || *nullRate > 1 {
		flag.Usage()
		return fmt.Errorf("invalid flags: need stations >= 1, days >= 1, 0 <= null-rate <= 1")
	}
	first, err := time.Parse(domain.DateLayout, *start)
	if err != nil {
		return fmt.Errorf("invalid -start: %w", err)
	}
	if err := os.MkdirAll(*out, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	rng := rand.New(rand.NewPCG(*seed, *seed)) //nolint:gosec // reproducible fixtures
	for i := range *stations {
		p := stationProfile(i)
		path := filepath.Join(*out, p.id+".csv")
		stats, err := writeStationFile(path, p, first, *days, *nullRate, rng)
		if err != nil {
			return err
		}
		logger.Info("station written",
			"station", p.id,
			"path", path,
			"rows", stats.rows,
			"incomplete", stats.incomplete,
			"size", humanize.IBytes(uint64(stats.bytes)), //nolint:gosec // file sizes are non-negative
		)
	}
	return nil
}

func stationProfile(i int) profile {
	return profile{
		id:        fmt.Sprintf("MOCK%07d", i+1),
		name:      fmt.Sprintf("MOCK STATION %d, US", i+1),
		meanC:     12 + 4*float64(i%5),
		amplitude: 9 + float64(i%4),
		spreadC:   8 + float64(i%3),
		wetDays:   0.25 + 0.05*float64(i%3),
	}
}

type fileStats struct {
	rows       int
	incomplete int
	bytes      int64
}

func writeStationFile(path string, p profile, first time.Time, days int, nullRate float64, rng *rand.Rand) (fileStats, error) {
	f, err := os.Create(path)
	if err != nil {
		return fileStats{}, fmt.Errorf("create %s: %w", path, err)
	}
	stats, err := generate(f, p, first, days, nullRate, rng)
	if cerr := f.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("close %s: %w", path, cerr)
	}
	if err != nil {
		return stats, err
	}
	info, err := os.Stat(path)
	if err != nil {
		return stats, err
	}
	stats.bytes = info.Size()
	return stats, nil
}

// generate writes one station's file. Measurements are in tenths, as NOAA
// publishes them.
func generate(w io.Writer, p profile, first time.Time, days int, nullRate float64, rng *rand.Rand) (fileStats, error) {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fileStats{}, err
	}

	var stats fileStats
	lat := strconv.FormatFloat(30+rng.Float64()*15, 'f', 4, 64)
	lon := strconv.FormatFloat(-120+rng.Float64()*45, 'f', 4, 64)
	elev := strconv.FormatFloat(rng.Float64()*1500, 'f', 1, 64)

	for d := range days {
		date := first.AddDate(0, 0, d)
		phase := 2 * math.Pi * float64(date.YearDay()-105) / 365.25
		tmax := p.meanC + p.amplitude*math.Sin(phase) + rng.NormFloat64()*3
		tmin := tmax - p.spreadC - rng.Float64()*4

		var prcp float64
		if rng.Float64() < p.wetDays {
			prcp = rng.ExpFloat64() * 6
		}

		values := []string{tenthsField(tmax), tenthsField(tmin), tenthsField(prcp)}
		if rng.Float64() < nullRate {
			values[rng.IntN(len(values))] = ""
			stats.incomplete++
		}

		row := []string{
			p.id, date.Format(domain.DateLayout), lat, lon, elev, p.name,
			values[2], ",,W,2400", values[0], ",,W", values[1], ",,W",
		}
		if err := cw.Write(row); err != nil {
			return stats, err
		}
		stats.rows++
	}

	cw.Flush()
	return stats, cw.Error()
}

// tenthsField right-aligns v in tenths to the fixed width NCEI uses.
func tenthsField(v float64) string {
	return fmt.Sprintf("%5d", int(math.Round(v*10)))
}
