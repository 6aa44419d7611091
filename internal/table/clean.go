package table

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"github.com/couchcryptid/noaa-climate-etl/internal/aggregate"
	"github.com/couchcryptid/noaa-climate-etl/internal/domain"
)

// CleanResult describes one cleaning pass.
type CleanResult struct {
	Path        string
	RowsIn      int
	RowsOut     int
	DroppedNull int // missing TMAX, TMIN, or PRCP
	DroppedDate int // DATE not in domain.DateLayout
	Stats       domain.Overview
	Bytes       int64
}

// Dropped is the total number of rows removed.
func (r CleanResult) Dropped() int { return r.DroppedNull + r.DroppedDate }

// measurementColumns are re-read as floats after trimming, so that padded,
// blank, "NaN", and decimal-formatted cells all load.
var measurementColumns = []string{domain.ColTMax, domain.ColTMin, domain.ColPrecip}

// Clean reads the unified table at inPath, drops rows missing any measurement,
// converts the rest with domain.Clean, and writes domain.CleanedColumns to outPath.
func (p *Processor) Clean(inPath, outPath string) (CleanResult, error) {
	res := CleanResult{Path: outPath}

	df, err := readFrame(inPath,
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
	)
	if err != nil {
		return res, err
	}
	if err := requireColumns(df, domain.UnifiedColumns...); err != nil {
		return res, fmt.Errorf("clean %s: %w", inPath, err)
	}
	df = trimColumns(df, series.String, domain.ColStation, domain.ColDate)
	df = trimColumns(df, series.Float, measurementColumns...)
	if df.Err != nil {
		return res, fmt.Errorf("clean %s: %w", inPath, df.Err)
	}
	res.RowsIn = df.Nrow()
	p.logger.Info("cleaning unified table", "rows", humanize.Comma(int64(res.RowsIn)))

	complete := df
	if res.RowsIn > 0 {
		for _, col := range measurementColumns {
			complete = complete.Filter(dataframe.F{
				Colname:    col,
				Comparator: series.CompFunc,
				Comparando: present,
			})
		}
		if complete.Err != nil {
			return res, fmt.Errorf("drop missing: %w", complete.Err)
		}
	}

	records := toCleaned(complete, &res)
	res.DroppedNull += res.RowsIn - complete.Nrow()
	res.RowsOut = len(records)

	size, err := writeFrame(cleanedFrame(records), outPath)
	if err != nil {
		return res, err
	}
	res.Bytes = size
	res.Stats = aggregate.Summarize(records)

	p.metrics.RowsCleaned.Set(float64(res.RowsOut))
	p.metrics.RowsDropped.Set(float64(res.Dropped()))

	p.logger.Info("cleaned file written",
		"path", outPath,
		"rows", humanize.Comma(int64(res.RowsOut)),
		"dropped_null", res.DroppedNull,
		"dropped_date", res.DroppedDate,
		"years", fmt.Sprintf("%d-%d", res.Stats.FirstYear, res.Stats.LastYear),
		"stations", res.Stats.Stations,
		"mean_temp_c", fmt.Sprintf("%.1f", res.Stats.MeanTemp),
		"record_tmax_c", fmt.Sprintf("%.1f", res.Stats.MaxTemp),
		"record_tmin_c", fmt.Sprintf("%.1f", res.Stats.MinTemp),
		"max_mean_temp_c", fmt.Sprintf("%.1f", res.Stats.MaxMeanTemp),
		"min_mean_temp_c", fmt.Sprintf("%.1f", res.Stats.MinMeanTemp),
		"mean_prcp_mm", fmt.Sprintf("%.2f", res.Stats.MeanPrecip),
	)
	return res, nil
}

func present(el series.Element) bool {
	return !el.IsNA()
}

// toCleaned converts complete rows, counting unparseable dates in res.
func toCleaned(df dataframe.DataFrame, res *CleanResult) []domain.CleanedRecord {
	if df.Nrow() == 0 {
		return nil
	}

	stations := df.Col(domain.ColStation).Records()
	dates := df.Col(domain.ColDate).Records()
	tmax := df.Col(domain.ColTMax).Float()
	tmin := df.Col(domain.ColTMin).Float()
	prcp := df.Col(domain.ColPrecip).Float()

	out := make([]domain.CleanedRecord, 0, len(stations))
	for i := range stations {
		date, err := time.Parse(domain.DateLayout, dates[i])
		if err != nil {
			res.DroppedDate++
			continue
		}
		rec, ok := domain.Clean(domain.StationRecord{
			StationID:     stations[i],
			Date:          date,
			MaxTempTenths: tenths(tmax[i]),
			MinTempTenths: tenths(tmin[i]),
			PrecipTenths:  tenths(prcp[i]),
		})
		if !ok {
			res.DroppedNull++
			continue
		}
		out = append(out, rec)
	}
	return out
}

func tenths(v float64) *int {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return domain.Tenths(int(math.Round(v)))
}

// cleanedFrame lays records out as domain.CleanedColumns.
func cleanedFrame(records []domain.CleanedRecord) dataframe.DataFrame {
	n := len(records)
	cols := map[string][]string{}
	for _, name := range domain.CleanedColumns {
		cols[name] = make([]string, n)
	}
	for i, r := range records {
		cols[domain.ColStation][i] = r.StationID
		cols[domain.ColDate][i] = r.Date.Format(domain.DateLayout)
		cols[domain.ColTMax][i] = formatFloat(r.TMaxC)
		cols[domain.ColTMin][i] = formatFloat(r.TMinC)
		cols[domain.ColPrecip][i] = formatFloat(r.PrecipMM)
		cols[domain.ColYear][i] = strconv.Itoa(r.Year)
		cols[domain.ColMonth][i] = strconv.Itoa(r.Month)
		cols[domain.ColDay][i] = strconv.Itoa(r.Day)
		cols[domain.ColTemp][i] = formatFloat(r.TempC)
	}

	s := make([]series.Series, 0, len(domain.CleanedColumns))
	for _, name := range domain.CleanedColumns {
		s = append(s, series.New(cols[name], series.String, name))
	}
	return dataframe.New(s...)
}
