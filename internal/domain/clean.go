package domain

// tenthsPerUnit is the GHCN-Daily scale factor for temperature (0.1 °C) and
// precipitation (0.1 mm).
const tenthsPerUnit = 10.0

// Clean converts a StationRecord into a CleanedRecord. It returns false when any of
// max temperature, min temperature, or precipitation is missing; such rows are
// dropped, never imputed.
//
// The mean temperature is taken in tenths before the single divide-by-ten, so
// TempC, TMaxC, and TMinC always share the same scale.
func Clean(r StationRecord) (CleanedRecord, bool) {
	if !r.Complete() {
		return CleanedRecord{}, false
	}

	tmax := float64(*r.MaxTempTenths)
	tmin := float64(*r.MinTempTenths)
	temp := (tmax + tmin) / 2

	return CleanedRecord{
		StationID: r.StationID,
		Date:      r.Date,
		Year:      r.Date.Year(),
		Month:     int(r.Date.Month()),
		Day:       r.Date.Day(),
		TempC:     FromTenths(temp),
		TMaxC:     FromTenths(tmax),
		TMinC:     FromTenths(tmin),
		PrecipMM:  FromTenths(float64(*r.PrecipTenths)),
	}, true
}

// FromTenths converts a raw tenths-of-unit value to the standard unit.
func FromTenths(v float64) float64 {
	return v / tenthsPerUnit
}

// Tenths returns a pointer to v, for building StationRecords.
func Tenths(v int) *int {
	return &v
}
