package domain

// MonthlyTemperature summarizes mean daily temperature for one station-month.
type MonthlyTemperature struct {
	StationID string
	Year      int
	Month     int
	Mean      float64
	Max       float64
	Min       float64
	StdDev    float64 // sample deviation; NaN for single-row groups
	Count     int
}

// AnnualPrecipitation summarizes daily precipitation across all stations for one year.
type AnnualPrecipitation struct {
	Year   int
	Total  float64
	Mean   float64
	StdDev float64
	Max    float64
	Count  int
}

// StationExtremes holds the record values observed at one station.
type StationExtremes struct {
	StationID string
	MaxTemp   float64
	MinTemp   float64
	MeanTemp  float64
	MaxPrecip float64
	Count     int
}

// SeasonalSummary compares temperature and precipitation for one season.
type SeasonalSummary struct {
	Season     Season
	MeanTemp   float64
	MeanPrecip float64
	MaxTemp    float64
	MinTemp    float64
	Count      int
}

// AnnualTrend is one year of the temperature/precipitation trend.
type AnnualTrend struct {
	Year       int
	MeanTemp   float64
	MeanPrecip float64
	Count      int
}

// Trend is the yearly series plus the global temperature/precipitation correlation,
// computed over every cleaned row rather than the yearly means.
type Trend struct {
	Years       []AnnualTrend
	Correlation float64
	Strength    CorrelationStrength
}

// Overview is the whole-table summary printed at the end of an analysis.
type Overview struct {
	Records    int
	Stations   int
	FirstYear  int
	LastYear   int
	MeanTemp   float64
	MaxTemp    float64 // highest TMAX
	MinTemp    float64 // lowest TMIN
	MeanPrecip float64

	// Extremes of the daily mean temperature.
	MaxMeanTemp float64
	MinMeanTemp float64
}

// Analysis bundles the results of one analysis run for reporters.
type Analysis struct {
	Monthly  []MonthlyTemperature
	Annual   []AnnualPrecipitation
	Extremes []StationExtremes // full ordering; reporters show the top rows
	Seasonal []SeasonalSummary // calendar order
	Trend    Trend
	Overview Overview
}
