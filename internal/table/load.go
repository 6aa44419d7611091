package table

import (
	"fmt"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"github.com/couchcryptid/noaa-climate-etl/internal/domain"
)

var cleanedTypes = map[string]series.Type{
	domain.ColStation: series.String,
	domain.ColDate:    series.String,
	domain.ColTMax:    series.Float,
	domain.ColTMin:    series.Float,
	domain.ColPrecip:  series.Float,
	domain.ColYear:    series.Int,
	domain.ColMonth:   series.Int,
	domain.ColDay:     series.Int,
	domain.ColTemp:    series.Float,
}

// LoadCleaned reads a file written by Clean.
func LoadCleaned(path string) ([]domain.CleanedRecord, error) {
	df, err := readFrame(path,
		dataframe.DetectTypes(false),
		dataframe.WithTypes(cleanedTypes),
	)
	if err != nil {
		return nil, err
	}
	if err := requireColumns(df, domain.CleanedColumns...); err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	if df.Nrow() == 0 {
		return nil, nil
	}

	stations := df.Col(domain.ColStation).Records()
	dates := df.Col(domain.ColDate).Records()
	tmax := df.Col(domain.ColTMax).Float()
	tmin := df.Col(domain.ColTMin).Float()
	prcp := df.Col(domain.ColPrecip).Float()
	temp := df.Col(domain.ColTemp).Float()

	years, err := df.Col(domain.ColYear).Int()
	if err != nil {
		return nil, fmt.Errorf("load %s: %s: %w", path, domain.ColYear, err)
	}
	months, err := df.Col(domain.ColMonth).Int()
	if err != nil {
		return nil, fmt.Errorf("load %s: %s: %w", path, domain.ColMonth, err)
	}
	days, err := df.Col(domain.ColDay).Int()
	if err != nil {
		return nil, fmt.Errorf("load %s: %s: %w", path, domain.ColDay, err)
	}

	out := make([]domain.CleanedRecord, len(stations))
	for i := range stations {
		date, err := time.Parse(domain.DateLayout, dates[i])
		if err != nil {
			return nil, fmt.Errorf("load %s: row %d: %w", path, i+1, err)
		}
		out[i] = domain.CleanedRecord{
			StationID: stations[i],
			Date:      date,
			Year:      years[i],
			Month:     months[i],
			Day:       days[i],
			TempC:     temp[i],
			TMaxC:     tmax[i],
			TMinC:     tmin[i],
			PrecipMM:  prcp[i],
		}
	}
	return out, nil
}
