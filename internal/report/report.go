// Package report presents an analysis as console tables and PNG charts.
package report

import (
	"context"
	"math"
	"strconv"

	"github.com/couchcryptid/noaa-climate-etl/internal/domain"
)

// Reporter presents the results of one analysis run.
type Reporter interface {
	Report(ctx context.Context, a domain.Analysis) error
}

// MonthlyPreviewRows is how many monthly rows the console shows.
const MonthlyPreviewRows = 15

// formatCorrelation renders r with the given decimals, or "undefined" when r is NaN.
func formatCorrelation(r float64, places int) string {
	if math.IsNaN(r) {
		return string(domain.CorrelationUndefined)
	}
	return strconv.FormatFloat(r, 'f', places, 64)
}
