package report

import (
	"context"
	"fmt"
	"io"
	"math"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"

	"github.com/couchcryptid/noaa-climate-etl/internal/aggregate"
	"github.com/couchcryptid/noaa-climate-etl/internal/domain"
)

const bannerWidth = 60

// Console writes the analysis as plain-text tables.
type Console struct {
	w io.Writer
}

// NewConsole creates a Console writing to w.
func NewConsole(w io.Writer) *Console {
	return &Console{w: w}
}

// Report writes every section in pipeline order.
func (c *Console) Report(ctx context.Context, a domain.Analysis) error {
	sections := []struct {
		title string
		write func(io.Writer, domain.Analysis)
	}{
		{"MONTHLY TEMPERATURE", writeMonthly},
		{"ANNUAL PRECIPITATION", writeAnnual},
		{"STATION EXTREMES", writeExtremes},
		{"SEASONAL ANALYSIS", writeSeasonal},
		{"TRENDS AND CORRELATION", writeTrend},
		{"OVERVIEW", writeOverview},
	}

	for _, s := range sections {
		if err := ctx.Err(); err != nil {
			return err
		}
		banner(c.w, s.title)
		tw := tabwriter.NewWriter(c.w, 0, 0, 2, ' ', 0)
		s.write(tw, a)
		if err := tw.Flush(); err != nil {
			return fmt.Errorf("write %s: %w", strings.ToLower(s.title), err)
		}
	}
	return nil
}

func banner(w io.Writer, title string) {
	rule := strings.Repeat("=", bannerWidth)
	pad := max(0, (bannerWidth-len(title))/2)
	fmt.Fprintf(w, "\n%s\n%s%s\n%s\n", rule, strings.Repeat(" ", pad), title, rule)
}

func writeMonthly(w io.Writer, a domain.Analysis) {
	fmt.Fprintf(w, "showing %d of %d rows\n", min(MonthlyPreviewRows, len(a.Monthly)), len(a.Monthly))
	fmt.Fprintln(w, "STATION\tYEAR\tMONTH\tMEAN °C\tMAX °C\tMIN °C\tSTDDEV\tCOUNT")
	for _, m := range aggregate.TopN(a.Monthly, MonthlyPreviewRows) {
		fmt.Fprintf(w, "%s\t%d\t%02d\t%.2f\t%.2f\t%.2f\t%s\t%d\n",
			m.StationID, m.Year, m.Month, m.Mean, m.Max, m.Min, num(m.StdDev, 2), m.Count)
	}
}

func writeAnnual(w io.Writer, a domain.Analysis) {
	fmt.Fprintln(w, "YEAR\tTOTAL mm\tMEAN mm\tSTDDEV\tMAX mm\tCOUNT")
	for _, y := range a.Annual {
		fmt.Fprintf(w, "%d\t%.1f\t%.2f\t%s\t%.1f\t%s\n",
			y.Year, y.Total, y.Mean, num(y.StdDev, 2), y.Max, humanize.Comma(int64(y.Count)))
	}
}

func writeExtremes(w io.Writer, a domain.Analysis) {
	fmt.Fprintf(w, "top %d stations by record temperature\n", aggregate.ExtremesTopN)
	fmt.Fprintln(w, "STATION\tMAX °C\tMIN °C\tMAX PRCP mm\tMEAN °C\tCOUNT")
	for _, s := range aggregate.TopN(a.Extremes, aggregate.ExtremesTopN) {
		fmt.Fprintf(w, "%s\t%.2f\t%.2f\t%.1f\t%.2f\t%s\n",
			s.StationID, s.MaxTemp, s.MinTemp, s.MaxPrecip, s.MeanTemp, humanize.Comma(int64(s.Count)))
	}
}

func writeSeasonal(w io.Writer, a domain.Analysis) {
	fmt.Fprintln(w, "SEASON\tMEAN °C\tMEAN PRCP mm\tMAX °C\tMIN °C\tCOUNT")
	for _, s := range aggregate.OrderSeasons(a.Seasonal) {
		fmt.Fprintf(w, "%s\t%.2f\t%.2f\t%.2f\t%.2f\t%s\n",
			s.Season, s.MeanTemp, s.MeanPrecip, s.MaxTemp, s.MinTemp, humanize.Comma(int64(s.Count)))
	}
}

func writeTrend(w io.Writer, a domain.Analysis) {
	fmt.Fprintln(w, "YEAR\tMEAN °C\tMEAN PRCP mm\tCOUNT")
	for _, y := range a.Trend.Years {
		fmt.Fprintf(w, "%d\t%.2f\t%.2f\t%s\n", y.Year, y.MeanTemp, y.MeanPrecip, humanize.Comma(int64(y.Count)))
	}
	fmt.Fprintf(w, "\ntemperature/precipitation correlation:\t%s\n", formatCorrelation(a.Trend.Correlation, 4))
	fmt.Fprintf(w, "strength:\t%s\n", a.Trend.Strength)
}

func writeOverview(w io.Writer, a domain.Analysis) {
	o := a.Overview
	fmt.Fprintf(w, "records:\t%s\n", humanize.Comma(int64(o.Records)))
	fmt.Fprintf(w, "stations:\t%d\n", o.Stations)
	fmt.Fprintf(w, "period:\t%d-%d (%d years)\n", o.FirstYear, o.LastYear, o.LastYear-o.FirstYear+1)
	fmt.Fprintf(w, "mean temperature:\t%.1f °C\n", o.MeanTemp)
	fmt.Fprintf(w, "record maximum:\t%.1f °C\n", o.MaxTemp)
	fmt.Fprintf(w, "record minimum:\t%.1f °C\n", o.MinTemp)
	fmt.Fprintf(w, "highest daily mean:\t%.1f °C\n", o.MaxMeanTemp)
	fmt.Fprintf(w, "lowest daily mean:\t%.1f °C\n", o.MinMeanTemp)
	fmt.Fprintf(w, "mean precipitation:\t%.2f mm/day\n", o.MeanPrecip)
}

// num formats v to places decimals; NaN prints as "null".
func num(v float64, places int) string {
	if math.IsNaN(v) {
		return "null"
	}
	return fmt.Sprintf("%.*f", places, v)
}
