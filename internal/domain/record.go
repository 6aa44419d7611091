package domain

import "time"

// Column names shared by the unified and cleaned CSV files.
const (
	ColStation = "STATION"
	ColDate    = "DATE"
	ColTMax    = "TMAX"
	ColTMin    = "TMIN"
	ColPrecip  = "PRCP"
	ColYear    = "YEAR"
	ColMonth   = "MONTH"
	ColDay     = "DAY"
	ColTemp    = "TEMP"
)

// DateLayout is the GHCN-Daily DATE column format.
const DateLayout = "2006-01-02"

// UnifiedColumns is the reduced column set kept from each station file, in output order.
var UnifiedColumns = []string{ColStation, ColDate, ColTMax, ColTMin, ColPrecip}

// CleanedColumns is the column order of the cleaned file.
var CleanedColumns = []string{ColStation, ColDate, ColTMax, ColTMin, ColPrecip, ColYear, ColMonth, ColDay, ColTemp}

// StationRecord is one daily observation as published by NOAA, measurements in
// tenths of a unit. A nil measurement means the value was missing in the source.
// Rows are not unique per (station, date); duplicates are kept as-is.
type StationRecord struct {
	StationID     string
	Date          time.Time
	MaxTempTenths *int
	MinTempTenths *int
	PrecipTenths  *int
}

// Complete reports whether all three measurements are present.
func (r StationRecord) Complete() bool {
	return r.MaxTempTenths != nil && r.MinTempTenths != nil && r.PrecipTenths != nil
}

// CleanedRecord is a complete observation converted to standard units.
type CleanedRecord struct {
	StationID string
	Date      time.Time
	Year      int
	Month     int
	Day       int
	TempC     float64 // (TMaxC + TMinC) / 2
	TMaxC     float64
	TMinC     float64
	PrecipMM  float64
}
