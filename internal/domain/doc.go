// Package domain models NOAA Global Historical Climatology Network daily
// (GHCN-Daily) observations and the climate summaries derived from them.
//
// # Data Source
//
// Each weather station publishes one CSV file on the NCEI access endpoint,
// e.g. https://www.ncei.noaa.gov/data/global-historical-climatology-network-daily/access/USW00094728.csv.
// Only five columns are used:
//
//	STATION  station identifier, e.g. "USW00094728" (New York Central Park)
//	DATE     observation day, "YYYY-MM-DD"
//	TMAX     maximum temperature, tenths of °C
//	TMIN     minimum temperature, tenths of °C
//	PRCP     precipitation, tenths of mm
//
// Any measurement may be blank. Rows lacking TMAX, TMIN, or PRCP are dropped
// during cleaning; nothing is imputed.
//
// # Unit Conversion
//
// Raw values are integers in tenths of the final unit: TMAX=256 is 25.6 °C,
// PRCP=33 is 3.3 mm. Cleaning divides by ten exactly once. The daily mean
// temperature is computed in tenths first:
//
//	TEMP = ((TMAX + TMIN) / 2) / 10
//
// which equals (TMAX/10 + TMIN/10) / 2 for this linear transform.
//
// # Seasons
//
// Seasons are meteorological and assume the northern hemisphere:
// Mar-May Spring, Jun-Aug Summer, Sep-Nov Fall, Dec-Feb Winter.
package domain
