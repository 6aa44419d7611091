// Command validate checks a cleaned climate table against the invariants the
// cleaner promises, and against the unified table it was derived from: no
// missing measurements, derived date and temperature columns that agree with
// their sources, measurements in standard units, and no station gaining rows.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -unified data/noaa_unified.csv \
//	  -cleaned data/noaa_cleaned.csv
package main

import (
	"flag"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"slices"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"github.com/couchcryptid/noaa-climate-etl/internal/domain"
	"github.com/couchcryptid/noaa-climate-etl/internal/table"
)

const (
	// tempTolerance absorbs decimal round-tripping through the CSV file.
	tempTolerance = 1e-6

	// Plausible ranges in standard units. Values still in tenths land far outside.
	maxAbsTempC  = 70.0
	maxDailyPrcp = 2000.0
)

// maxErrors caps the detail printed per phase.
const maxErrors = 20

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	unified := flag.String("unified", filepath.Join("data", "noaa_unified.csv"), "path to the unified table")
	cleaned := flag.String("cleaned", filepath.Join("data", "noaa_cleaned.csv"), "path to the cleaned table")
	flag.Parse()

	os.Exit(run(os.Stdout, *unified, *cleaned))
}

func run(w io.Writer, unifiedPath, cleanedPath string) int {
	fmt.Fprintln(w, "=== Climate Data Integrity Validation ===")
	fmt.Fprintln(w)

	unified, err := loadStationCounts(unifiedPath)
	if err != nil {
		fmt.Fprintf(w, "FATAL: load unified table: %v\n", err)
		return 1
	}
	records, err := table.LoadCleaned(cleanedPath)
	if err != nil {
		fmt.Fprintf(w, "FATAL: load cleaned table: %v\n", err)
		return 1
	}

	phases := []*phase{
		validateCompleteness(records),
		validateDerivedFields(records),
		validateUnits(records),
		validateParity(records, unified),
	}

	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Fprintf(w, "  %-42s %s\n", p.name, status)
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Records: %d unified, %d cleaned, %d stations\n",
		sum(unified), len(records), len(unified))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Fprintf(w, "\n--- %s ---\n", p.name)
		for i, e := range p.errors[:min(len(p.errors), maxErrors)] {
			fmt.Fprintf(w, "  [%d] %s\n", i+1, e)
		}
		if extra := len(p.errors) - maxErrors; extra > 0 {
			fmt.Fprintf(w, "  ... and %d more\n", extra)
		}
	}

	if allPassed {
		fmt.Fprintln(w, "\nAll validations passed.")
		return 0
	}
	fmt.Fprintln(w, "\nValidation FAILED.")
	return 1
}

// loadStationCounts returns the unified table's row count per station.
func loadStationCounts(path string) (map[string]int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	df := dataframe.ReadCSV(f,
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
	)
	if df.Err != nil {
		return nil, df.Err
	}
	if !slices.Contains(df.Names(), domain.ColStation) {
		return nil, fmt.Errorf("missing column %s", domain.ColStation)
	}

	counts := make(map[string]int)
	for _, s := range df.Col(domain.ColStation).Records() {
		counts[s]++
	}
	return counts, nil
}

func sum(counts map[string]int) int {
	n := 0
	for _, c := range counts {
		n += c
	}
	return n
}

// ── Phase 1: Completeness ──

func validateCompleteness(records []domain.CleanedRecord) *phase {
	p := &phase{name: "Phase 1: Completeness (no missing values)"}
	if len(records) == 0 {
		p.errorf("cleaned table has no rows")
	}
	for i, r := range records {
		for name, v := range map[string]float64{
			domain.ColTMax:   r.TMaxC,
			domain.ColTMin:   r.TMinC,
			domain.ColPrecip: r.PrecipMM,
			domain.ColTemp:   r.TempC,
		} {
			if math.IsNaN(v) {
				p.errorf("row %d (%s %s): %s is missing", i+1, r.StationID, r.Date.Format(domain.DateLayout), name)
			}
		}
		if r.StationID == "" {
			p.errorf("row %d: empty %s", i+1, domain.ColStation)
		}
	}
	return p
}

// ── Phase 2: Derived fields ──

func validateDerivedFields(records []domain.CleanedRecord) *phase {
	p := &phase{name: "Phase 2: Derived fields (date parts, TEMP)"}
	for i, r := range records {
		if r.Year != r.Date.Year() || r.Month != int(r.Date.Month()) || r.Day != r.Date.Day() {
			p.errorf("row %d: %s/%s/%s = %d/%d/%d do not match DATE %s",
				i+1, domain.ColYear, domain.ColMonth, domain.ColDay, r.Year, r.Month, r.Day, r.Date.Format(domain.DateLayout))
		}
		if want := (r.TMaxC + r.TMinC) / 2; math.Abs(want-r.TempC) > tempTolerance {
			p.errorf("row %d: TEMP %g, want (TMAX+TMIN)/2 = %g", i+1, r.TempC, want)
		}
	}
	return p
}

// ── Phase 3: Units ──

func validateUnits(records []domain.CleanedRecord) *phase {
	p := &phase{name: "Phase 3: Units (degrees C, millimetres)"}
	for i, r := range records {
		if math.Abs(r.TMaxC) > maxAbsTempC || math.Abs(r.TMinC) > maxAbsTempC {
			p.errorf("row %d (%s): TMAX %g / TMIN %g outside ±%g °C, still in tenths?", i+1, r.StationID, r.TMaxC, r.TMinC, maxAbsTempC)
		}
		if r.PrecipMM < 0 || r.PrecipMM > maxDailyPrcp {
			p.errorf("row %d (%s): PRCP %g mm outside [0, %g]", i+1, r.StationID, r.PrecipMM, maxDailyPrcp)
		}
	}
	return p
}

// ── Phase 4: Parity with the unified table ──

func validateParity(records []domain.CleanedRecord, unified map[string]int) *phase {
	p := &phase{name: "Phase 4: Parity (cleaned vs unified)"}

	cleaned := make(map[string]int)
	for _, r := range records {
		cleaned[r.StationID]++
	}
	if len(records) > sum(unified) {
		p.errorf("cleaned has %d rows, unified only %d", len(records), sum(unified))
	}

	stations := make([]string, 0, len(cleaned))
	for s := range cleaned {
		stations = append(stations, s)
	}
	slices.Sort(stations)
	for _, s := range stations {
		u, ok := unified[s]
		switch {
		case !ok:
			p.errorf("station %s is not in the unified table", s)
		case cleaned[s] > u:
			p.errorf("station %s: %d cleaned rows from %d unified", s, cleaned[s], u)
		}
	}
	return p
}
