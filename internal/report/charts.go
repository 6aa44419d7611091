package report

import (
	"context"
	"errors"
	"fmt"
	"image/color"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/couchcryptid/noaa-climate-etl/internal/aggregate"
	"github.com/couchcryptid/noaa-climate-etl/internal/config"
	"github.com/couchcryptid/noaa-climate-etl/internal/domain"
	"github.com/couchcryptid/noaa-climate-etl/internal/observability"
)

// Chart file names, in the order they are written.
const (
	ChartMonthly  = "chart_1_monthly_temperature.png"
	ChartAnnual   = "chart_2_annual_precipitation.png"
	ChartExtremes = "chart_3_station_extremes.png"
	ChartSeasonal = "chart_4_seasonal.png"
	ChartTrend    = "chart_5_trend.png"
)

const (
	monthlyStations = 3
	monthlyMonths   = 50
)

var (
	colorSteelBlue = color.RGBA{R: 70, G: 130, B: 180, A: 255}
	colorCoral     = color.RGBA{R: 255, G: 127, B: 80, A: 255}
	colorRed       = color.RGBA{R: 214, G: 39, B: 40, A: 255}
	colorBlue      = color.RGBA{R: 31, G: 119, B: 180, A: 255}

	seasonColors = map[domain.Season]color.Color{
		domain.Spring: color.RGBA{R: 144, G: 238, B: 144, A: 255},
		domain.Summer: color.RGBA{R: 255, G: 215, A: 255},
		domain.Fall:   color.RGBA{R: 255, G: 140, A: 255},
		domain.Winter: colorSteelBlue,
	}
)

// errNoData marks a chart skipped because its series is empty.
var errNoData = errors.New("no data to plot")

// Charts renders the five analysis charts as PNG files.
type Charts struct {
	dir     string
	size    config.ChartSize
	large   config.ChartSize
	dpi     int
	metrics *observability.Metrics
	logger  *slog.Logger
	written []string
}

// NewCharts creates a chart reporter writing into cfg.ResultsDir.
func NewCharts(cfg *config.Config, metrics *observability.Metrics, logger *slog.Logger) *Charts {
	return &Charts{
		dir:     cfg.ResultsDir,
		size:    cfg.ChartSize,
		large:   cfg.ChartSizeLarge,
		dpi:     cfg.ChartDPI,
		metrics: metrics,
		logger:  logger,
	}
}

// Written returns the paths of the charts written so far.
func (c *Charts) Written() []string {
	return append([]string(nil), c.written...)
}

type chart struct {
	name   string
	size   config.ChartSize
	layout func(domain.Analysis) ([][]*plot.Plot, error)
}

// Report writes one PNG per analysis. A chart with no data is skipped with a warning.
func (c *Charts) Report(ctx context.Context, a domain.Analysis) error {
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return fmt.Errorf("create results dir: %w", err)
	}

	charts := []chart{
		{ChartMonthly, c.size, monthlyChart},
		{ChartAnnual, c.large, annualChart},
		{ChartExtremes, c.size, extremesChart},
		{ChartSeasonal, c.large, seasonalChart},
		{ChartTrend, c.size, trendChart},
	}

	for _, ch := range charts {
		if err := ctx.Err(); err != nil {
			return err
		}

		plots, err := ch.layout(a)
		if errors.Is(err, errNoData) {
			c.logger.Warn("chart skipped", "chart", ch.name, "reason", err)
			continue
		}
		if err != nil {
			return fmt.Errorf("build %s: %w", ch.name, err)
		}

		path := filepath.Join(c.dir, ch.name)
		if err := c.save(path, ch.size, plots); err != nil {
			return err
		}
		c.written = append(c.written, path)
		c.metrics.ChartsRendered.Inc()
		c.logger.Info("chart saved", "path", path)
	}
	return nil
}

// save draws a grid of plots onto one canvas and encodes it as PNG.
func (c *Charts) save(path string, size config.ChartSize, plots [][]*plot.Plot) error {
	img := vgimg.NewWith(
		vgimg.UseWH(vg.Length(size.Width)*vg.Inch, vg.Length(size.Height)*vg.Inch),
		vgimg.UseDPI(c.dpi),
	)

	tiles := draw.Tiles{
		Rows:      len(plots),
		Cols:      len(plots[0]),
		PadX:      8 * vg.Millimeter,
		PadY:      8 * vg.Millimeter,
		PadTop:    2 * vg.Millimeter,
		PadBottom: 2 * vg.Millimeter,
		PadLeft:   2 * vg.Millimeter,
		PadRight:  2 * vg.Millimeter,
	}
	canvases := plot.Align(plots, tiles, draw.New(img))
	for row := range plots {
		for col := range plots[row] {
			plots[row][col].Draw(canvases[row][col])
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	_, writeErr := vgimg.PngCanvas{Canvas: img}.WriteTo(f)
	if err := errors.Join(writeErr, f.Close()); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func newPlot(title, xLabel, yLabel string) *plot.Plot {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = xLabel
	p.Y.Label.Text = yLabel
	p.Add(plotter.NewGrid())
	return p
}

func single(p *plot.Plot) [][]*plot.Plot { return [][]*plot.Plot{{p}} }

// monthlyChart draws the first months of the first few stations, in the order
// they appear in the monthly table.
func monthlyChart(a domain.Analysis) ([][]*plot.Plot, error) {
	var order []string
	series := map[string]plotter.XYs{}
	for _, m := range a.Monthly {
		xys, seen := series[m.StationID]
		if !seen {
			if len(order) == monthlyStations {
				continue
			}
			order = append(order, m.StationID)
		}
		if len(xys) < monthlyMonths {
			series[m.StationID] = append(xys, plotter.XY{X: float64(len(xys)), Y: m.Mean})
		}
	}
	if len(order) == 0 {
		return nil, errNoData
	}

	p := newPlot("Mean Monthly Temperature by Station", "Period (months)", "Temperature (°C)")
	p.Legend.Top = true
	for i, station := range order {
		line, points, err := plotter.NewLinePoints(series[station])
		if err != nil {
			return nil, fmt.Errorf("station %s: %w", station, err)
		}
		line.LineStyle.Color = plotutil.Color(i)
		line.LineStyle.Width = vg.Points(2)
		points.GlyphStyle.Color = plotutil.Color(i)
		points.GlyphStyle.Radius = vg.Points(1.5)
		points.GlyphStyle.Shape = draw.CircleGlyph{}
		p.Add(line, points)
		p.Legend.Add(station, line, points)
	}
	return single(p), nil
}

// annualChart stacks total precipitation bars above the yearly standard deviation.
func annualChart(a domain.Analysis) ([][]*plot.Plot, error) {
	if len(a.Annual) == 0 {
		return nil, errNoData
	}

	years := make([]string, len(a.Annual))
	totals := make(plotter.Values, len(a.Annual))
	var spread plotter.XYs
	for i, y := range a.Annual {
		years[i] = strconv.Itoa(y.Year)
		totals[i] = y.Total
		if !math.IsNaN(y.StdDev) {
			spread = append(spread, plotter.XY{X: float64(i), Y: y.StdDev})
		}
	}

	top := newPlot("Total Annual Precipitation", "", "Total precipitation (mm)")
	bars, err := plotter.NewBarChart(totals, vg.Points(12))
	if err != nil {
		return nil, fmt.Errorf("totals: %w", err)
	}
	bars.Color = colorSteelBlue
	top.Add(bars)
	top.NominalX(years...)

	bottom := newPlot("Precipitation Variability (Standard Deviation)", "Year", "Standard deviation (mm)")
	if len(spread) > 0 {
		line, points, err := plotter.NewLinePoints(spread)
		if err != nil {
			return nil, fmt.Errorf("stddev: %w", err)
		}
		line.LineStyle.Color = colorCoral
		line.LineStyle.Width = vg.Points(2)
		points.GlyphStyle.Color = colorCoral
		points.GlyphStyle.Shape = draw.BoxGlyph{}
		points.GlyphStyle.Radius = vg.Points(3)
		bottom.Add(line, points)
	}
	bottom.NominalX(years...)

	return [][]*plot.Plot{{top}, {bottom}}, nil
}

// extremesChart draws grouped max/min bars for the top stations with a zero line.
func extremesChart(a domain.Analysis) ([][]*plot.Plot, error) {
	top := aggregate.TopN(a.Extremes, aggregate.ExtremesTopN)
	if len(top) == 0 {
		return nil, errNoData
	}

	names := make([]string, len(top))
	highs := make(plotter.Values, len(top))
	lows := make(plotter.Values, len(top))
	for i, s := range top {
		names[i] = s.StationID
		highs[i] = s.MaxTemp
		lows[i] = s.MinTemp
	}

	p := newPlot("Temperature Extremes by Station", "Station", "Temperature (°C)")
	width := vg.Points(14)

	maxBars, err := plotter.NewBarChart(highs, width)
	if err != nil {
		return nil, fmt.Errorf("max temps: %w", err)
	}
	maxBars.Color = colorRed
	maxBars.Offset = -width / 2

	minBars, err := plotter.NewBarChart(lows, width)
	if err != nil {
		return nil, fmt.Errorf("min temps: %w", err)
	}
	minBars.Color = colorBlue
	minBars.Offset = width / 2

	zero, err := plotter.NewLine(plotter.XYs{{X: -0.5, Y: 0}, {X: float64(len(top)) - 0.5, Y: 0}})
	if err != nil {
		return nil, fmt.Errorf("zero line: %w", err)
	}
	zero.LineStyle.Width = vg.Points(0.5)

	p.Add(maxBars, minBars, zero)
	p.Legend.Add("Max temp", maxBars)
	p.Legend.Add("Min temp", minBars)
	p.Legend.Top = true
	p.NominalX(names...)
	p.X.Tick.Label.Rotation = math.Pi / 4
	p.X.Tick.Label.XAlign = draw.XRight
	p.X.Tick.Label.YAlign = draw.YCenter

	return single(p), nil
}

// seasonalChart places mean temperature and mean precipitation panels side by
// side, one colored bar per season with its value printed above.
func seasonalChart(a domain.Analysis) ([][]*plot.Plot, error) {
	rows := aggregate.OrderSeasons(a.Seasonal)
	if len(rows) == 0 {
		return nil, errNoData
	}

	temp, err := seasonPanel(rows, "Mean Temperature by Season", "Temperature (°C)",
		func(s domain.SeasonalSummary) float64 { return s.MeanTemp }, "%.1f°C")
	if err != nil {
		return nil, err
	}
	precip, err := seasonPanel(rows, "Mean Precipitation by Season", "Precipitation (mm/day)",
		func(s domain.SeasonalSummary) float64 { return s.MeanPrecip }, "%.2fmm")
	if err != nil {
		return nil, err
	}
	return [][]*plot.Plot{{temp, precip}}, nil
}

func seasonPanel(rows []domain.SeasonalSummary, title, yLabel string, value func(domain.SeasonalSummary) float64, format string) (*plot.Plot, error) {
	p := newPlot(title, "", yLabel)

	names := make([]string, len(rows))
	points := make(plotter.XYs, len(rows))
	labels := make([]string, len(rows))
	for i, s := range rows {
		v := value(s)
		bar, err := plotter.NewBarChart(plotter.Values{v}, vg.Points(30))
		if err != nil {
			return nil, fmt.Errorf("%s %s: %w", title, s.Season, err)
		}
		bar.XMin = float64(i)
		if c, ok := seasonColors[s.Season]; ok {
			bar.Color = c
		}
		p.Add(bar)

		names[i] = string(s.Season)
		points[i] = plotter.XY{X: float64(i), Y: v}
		labels[i] = fmt.Sprintf(format, v)
	}

	values, err := plotter.NewLabels(plotter.XYLabels{XYs: points, Labels: labels})
	if err != nil {
		return nil, fmt.Errorf("%s labels: %w", title, err)
	}
	values.Offset = vg.Point{X: -vg.Points(12), Y: vg.Points(4)}
	p.Add(values)
	p.NominalX(names...)
	return p, nil
}

// trendChart stacks the yearly temperature and precipitation series on a
// shared year axis, with the correlation in the title.
func trendChart(a domain.Analysis) ([][]*plot.Plot, error) {
	if len(a.Trend.Years) == 0 {
		return nil, errNoData
	}

	temps := make(plotter.XYs, len(a.Trend.Years))
	precip := make(plotter.XYs, len(a.Trend.Years))
	for i, y := range a.Trend.Years {
		temps[i] = plotter.XY{X: float64(y.Year), Y: y.MeanTemp}
		precip[i] = plotter.XY{X: float64(y.Year), Y: y.MeanPrecip}
	}

	top := newPlot(
		fmt.Sprintf("Temperature vs Precipitation Trend (correlation: %s)", formatCorrelation(a.Trend.Correlation, 3)),
		"", "Mean temperature (°C)")
	if err := addSeries(top, temps, colorRed, draw.CircleGlyph{}, "Temperature"); err != nil {
		return nil, err
	}

	bottom := newPlot("", "Year", "Mean precipitation (mm/day)")
	if err := addSeries(bottom, precip, colorBlue, draw.BoxGlyph{}, "Precipitation"); err != nil {
		return nil, err
	}

	return [][]*plot.Plot{{top}, {bottom}}, nil
}

func addSeries(p *plot.Plot, xys plotter.XYs, c color.Color, shape draw.GlyphDrawer, name string) error {
	line, points, err := plotter.NewLinePoints(xys)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	line.LineStyle.Color = c
	line.LineStyle.Width = vg.Points(2.5)
	points.GlyphStyle.Color = c
	points.GlyphStyle.Shape = shape
	points.GlyphStyle.Radius = vg.Points(3)
	p.Add(line, points)
	p.Legend.Add(name, line, points)
	p.Legend.Top = true
	p.Legend.Left = true
	return nil
}
