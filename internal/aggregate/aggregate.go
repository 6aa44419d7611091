// Package aggregate computes the climate summaries over cleaned records.
//
// Every function is pure: it reads the records slice without modifying it and
// returns a freshly ordered result, so the five summaries can run concurrently
// against the same input.
package aggregate

import (
	"cmp"
	"math"
	"slices"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/couchcryptid/noaa-climate-etl/internal/domain"
)

// ExtremesTopN is the number of stations shown in the extremes report.
const ExtremesTopN = 10

type monthKey struct {
	station     string
	year, month int
}

// MonthlyTemperature groups by (station, year, month) and summarizes mean daily
// temperature. Rows are ordered by year and month, then station.
func MonthlyTemperature(records []domain.CleanedRecord) []domain.MonthlyTemperature {
	groups := groupBy(records, func(r domain.CleanedRecord) monthKey {
		return monthKey{station: r.StationID, year: r.Year, month: r.Month}
	})

	out := make([]domain.MonthlyTemperature, 0, len(groups))
	for key, rows := range groups {
		temps := column(rows, temp)
		out = append(out, domain.MonthlyTemperature{
			StationID: key.station,
			Year:      key.year,
			Month:     key.month,
			Mean:      stat.Mean(temps, nil),
			Max:       floats.Max(temps),
			Min:       floats.Min(temps),
			StdDev:    stat.StdDev(temps, nil),
			Count:     len(rows),
		})
	}

	slices.SortFunc(out, func(a, b domain.MonthlyTemperature) int {
		return cmp.Or(
			cmp.Compare(a.Year, b.Year),
			cmp.Compare(a.Month, b.Month),
			cmp.Compare(a.StationID, b.StationID),
		)
	})
	return out
}

// AnnualPrecipitation groups by year across all stations. Rows are strictly
// ascending by year.
func AnnualPrecipitation(records []domain.CleanedRecord) []domain.AnnualPrecipitation {
	groups := groupBy(records, func(r domain.CleanedRecord) int { return r.Year })

	out := make([]domain.AnnualPrecipitation, 0, len(groups))
	for year, rows := range groups {
		precip := column(rows, precipitation)
		out = append(out, domain.AnnualPrecipitation{
			Year:   year,
			Total:  floats.Sum(precip),
			Mean:   stat.Mean(precip, nil),
			StdDev: stat.StdDev(precip, nil),
			Max:    floats.Max(precip),
			Count:  len(rows),
		})
	}

	slices.SortFunc(out, func(a, b domain.AnnualPrecipitation) int {
		return cmp.Compare(a.Year, b.Year)
	})
	return out
}

// StationExtremes groups by station. Rows are ordered by record maximum
// temperature, highest first; ties fall back to station ID.
func StationExtremes(records []domain.CleanedRecord) []domain.StationExtremes {
	groups := groupBy(records, func(r domain.CleanedRecord) string { return r.StationID })

	out := make([]domain.StationExtremes, 0, len(groups))
	for station, rows := range groups {
		temps := column(rows, temp)
		out = append(out, domain.StationExtremes{
			StationID: station,
			MaxTemp:   floats.Max(temps),
			MinTemp:   floats.Min(temps),
			MeanTemp:  stat.Mean(temps, nil),
			MaxPrecip: floats.Max(column(rows, precipitation)),
			Count:     len(rows),
		})
	}

	slices.SortFunc(out, func(a, b domain.StationExtremes) int {
		return cmp.Or(
			cmp.Compare(b.MaxTemp, a.MaxTemp),
			cmp.Compare(a.StationID, b.StationID),
		)
	})
	return out
}

// TopN returns at most n leading rows, keeping their order.
func TopN[T any](rows []T, n int) []T {
	if n < 0 {
		n = 0
	}
	if len(rows) <= n {
		return rows
	}
	return rows[:n]
}

// Seasonal groups by the season derived from each record's month. The grouping
// itself has no order; the result is returned in map iteration order and callers
// that present it should apply OrderSeasons.
func Seasonal(records []domain.CleanedRecord) []domain.SeasonalSummary {
	groups := groupBy(records, func(r domain.CleanedRecord) domain.Season {
		return domain.SeasonOf(r.Month)
	})

	out := make([]domain.SeasonalSummary, 0, len(groups))
	for season, rows := range groups {
		temps := column(rows, temp)
		out = append(out, domain.SeasonalSummary{
			Season:     season,
			MeanTemp:   stat.Mean(temps, nil),
			MeanPrecip: stat.Mean(column(rows, precipitation), nil),
			MaxTemp:    floats.Max(temps),
			MinTemp:    floats.Min(temps),
			Count:      len(rows),
		})
	}
	return out
}

// OrderSeasons returns a copy sorted Spring, Summer, Fall, Winter.
func OrderSeasons(rows []domain.SeasonalSummary) []domain.SeasonalSummary {
	out := slices.Clone(rows)
	slices.SortFunc(out, func(a, b domain.SeasonalSummary) int {
		return cmp.Compare(a.Season.Rank(), b.Season.Rank())
	})
	return out
}

// AnnualTrend groups by year for the temperature/precipitation trend and adds
// the Pearson correlation between daily temperature and precipitation over all
// records.
func AnnualTrend(records []domain.CleanedRecord) domain.Trend {
	groups := groupBy(records, func(r domain.CleanedRecord) int { return r.Year })

	years := make([]domain.AnnualTrend, 0, len(groups))
	for year, rows := range groups {
		years = append(years, domain.AnnualTrend{
			Year:       year,
			MeanTemp:   stat.Mean(column(rows, temp), nil),
			MeanPrecip: stat.Mean(column(rows, precipitation), nil),
			Count:      len(rows),
		})
	}
	slices.SortFunc(years, func(a, b domain.AnnualTrend) int {
		return cmp.Compare(a.Year, b.Year)
	})

	r := Correlation(records)
	return domain.Trend{
		Years:       years,
		Correlation: r,
		Strength:    domain.ClassifyCorrelation(r),
	}
}

// Correlation is the Pearson coefficient between TempC and PrecipMM. It is NaN
// for fewer than two records or when either series is constant.
func Correlation(records []domain.CleanedRecord) float64 {
	if len(records) < 2 {
		return math.NaN()
	}
	r := stat.Correlation(column(records, temp), column(records, precipitation), nil)
	if math.IsInf(r, 0) {
		return math.NaN()
	}
	// Guard against floating error nudging |r| past 1.
	return math.Max(-1, math.Min(1, r))
}

// Summarize computes whole-table statistics.
func Summarize(records []domain.CleanedRecord) domain.Overview {
	if len(records) == 0 {
		return domain.Overview{}
	}

	stations := make(map[string]struct{})
	first, last := records[0].Year, records[0].Year
	for _, r := range records {
		stations[r.StationID] = struct{}{}
		first = min(first, r.Year)
		last = max(last, r.Year)
	}

	temps := column(records, temp)
	return domain.Overview{
		Records:    len(records),
		Stations:   len(stations),
		FirstYear:  first,
		LastYear:   last,
		MeanTemp:    stat.Mean(temps, nil),
		MaxTemp:     floats.Max(column(records, maxTemp)),
		MinTemp:     floats.Min(column(records, minTemp)),
		MeanPrecip:  stat.Mean(column(records, precipitation), nil),
		MaxMeanTemp: floats.Max(temps),
		MinMeanTemp: floats.Min(temps),
	}
}

func temp(r domain.CleanedRecord) float64          { return r.TempC }
func maxTemp(r domain.CleanedRecord) float64       { return r.TMaxC }
func minTemp(r domain.CleanedRecord) float64       { return r.TMinC }
func precipitation(r domain.CleanedRecord) float64 { return r.PrecipMM }

// groupBy buckets records by key, preserving input order within each bucket.
func groupBy[K comparable](records []domain.CleanedRecord, key func(domain.CleanedRecord) K) map[K][]domain.CleanedRecord {
	groups := make(map[K][]domain.CleanedRecord)
	for _, r := range records {
		k := key(r)
		groups[k] = append(groups[k], r)
	}
	return groups
}

func column(records []domain.CleanedRecord, field func(domain.CleanedRecord) float64) []float64 {
	out := make([]float64, len(records))
	for i, r := range records {
		out[i] = field(r)
	}
	return out
}
