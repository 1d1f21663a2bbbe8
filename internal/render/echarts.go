package render

import (
	"fmt"
	"io"
	"math"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/sensorfusion/internal/record"
)

// WriteDashboard renders one HTML page holding the trajectory, error and
// covariance charts.
func WriteDashboard(w io.Writer, recs []record.Record) error {
	if len(recs) == 0 {
		return record.ErrNoRecords
	}

	page := components.NewPage()
	page.PageTitle = "Sensor Fusion Run"
	page.AddCharts(
		trajectoryChart(recs),
		errorChart(recs),
		covarianceChart(recs),
	)
	if err := page.Render(w); err != nil {
		return fmt.Errorf("render dashboard: %w", err)
	}
	return nil
}

func trajectoryChart(recs []record.Record) *charts.Scatter {
	truth := make([]opts.ScatterData, 0, len(recs))
	fused := make([]opts.ScatterData, 0, len(recs))
	var gps []opts.ScatterData
	extent := 1.0
	for _, r := range recs {
		truth = append(truth, opts.ScatterData{Value: []interface{}{r.Truth.X, r.Truth.Y}})
		fused = append(fused, opts.ScatterData{Value: []interface{}{r.Fused.X, r.Fused.Y}})
		if r.HasGPS {
			gps = append(gps, opts.ScatterData{Value: []interface{}{r.GPS.X, r.GPS.Y}})
			extent = math.Max(extent, math.Max(math.Abs(r.GPS.X), math.Abs(r.GPS.Y)))
		}
		extent = math.Max(extent, math.Max(math.Abs(r.Truth.X), math.Abs(r.Truth.Y)))
	}
	pad := math.Ceil(extent * 1.1)

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "900px", Height: "700px"}),
		charts.WithTitleOpts(opts.Title{Title: "Trajectory", Subtitle: fmt.Sprintf("records=%d fixes=%d", len(recs), len(gps))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Right: "10%"}),
		charts.WithXAxisOpts(opts.XAxis{Type: "value", Min: -pad, Max: pad, Name: "X (m)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Type: "value", Min: -pad, Max: pad, Name: "Y (m)", NameLocation: "middle", NameGap: 30}),
	)
	scatter.AddSeries("truth", truth, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 2}))
	scatter.AddSeries("gps", gps, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 6}))
	scatter.AddSeries("fused", fused, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 3}))
	return scatter
}

func errorChart(recs []record.Record) *charts.Line {
	pos := make([]opts.LineData, len(recs))
	vel := make([]opts.LineData, len(recs))
	for i, r := range recs {
		pos[i] = opts.LineData{Value: r.PositionError()}
		vel[i] = opts.LineData{Value: r.VelocityError()}
	}

	line := timeSeries("Estimation Error", "error", recs)
	line.AddSeries("position (m)", pos).
		AddSeries("velocity (m/s)", vel)
	return line
}

func covarianceChart(recs []record.Record) *charts.Line {
	line := timeSeries("State Uncertainty (1σ)", "σ", recs)
	for k, name := range StateLabels {
		data := make([]opts.LineData, len(recs))
		for i, r := range recs {
			data[i] = opts.LineData{Value: stddev(r, k)}
		}
		line.AddSeries(name, data)
	}
	return line
}

func timeSeries(title, yName string, recs []record.Record) *charts.Line {
	x := make([]string, len(recs))
	for i, r := range recs {
		x[i] = fmt.Sprintf("%.2f", r.Time)
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "420px"}),
		charts.WithTitleOpts(opts.Title{Title: title}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Right: "10%"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "t (s)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Name: yName}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "inside"}),
	)
	line.SetXAxis(x)
	return line
}

// stddev returns sqrt(P[k][k]), clamping round-off below zero.
func stddev(r record.Record, k int) float64 {
	return math.Sqrt(math.Max(r.Covariance.At(k, k), 0))
}
