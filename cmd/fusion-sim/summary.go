package main

import (
	"fmt"
	"io"
	"math"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/banshee-data/sensorfusion/internal/driver"
	"github.com/banshee-data/sensorfusion/internal/record"
)

func newTable(w io.Writer, title string) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	t.SetTitle("%s", title)
	return t
}

// writeSummary prints the run's error metrics and estimator counters.
func writeSummary(w io.Writer, runID string, sum record.Summary, snap driver.StatsSnapshot) {
	t := newTable(w, "Fusion run")
	t.AppendHeader(table.Row{"Metric", "Value"})
	if runID != "" {
		t.AppendRow(table.Row{"Run ID", runID})
	}
	t.AppendRows([]table.Row{
		{"Records", sum.Count},
		{"GPS fixes recorded", sum.Fixes},
		{"Duration (s)", fmt.Sprintf("%.2f", sum.Duration)},
	})
	t.AppendSeparator()
	t.AppendRows([]table.Row{
		{"RMS position error (m)", formatFloat(sum.RMSPosition)},
		{"Mean position error (m)", formatFloat(sum.MeanPos)},
		{"Max position error (m)", formatFloat(sum.MaxPosition)},
		{"RMS GPS error (m)", formatFloat(sum.RMSGPS)},
		{"RMS velocity error (m/s)", formatFloat(sum.RMSVelocity)},
		{"Final position σ (m)", formatFloat(sum.FinalSigma)},
	})
	t.AppendSeparator()
	t.AppendRows([]table.Row{
		{"Predicts", snap.Predicts},
		{"Updates", snap.Updates},
		{"Rejected updates", snap.Rejected},
		{"Mean innovation (m)", formatFloat(snap.InnovationMeanM)},
		{"Max innovation (m)", formatFloat(snap.InnovationMaxM)},
	})
	if snap.PacedSteps > 0 {
		t.AppendRow(table.Row{"Max pacing lag", snap.MaxPacingLag.String()})
	}
	t.SetColumnConfigs([]table.ColumnConfig{{Number: 2, Align: text.AlignRight}})
	t.Render()
}

// writeRunsTable lists stored runs.
func writeRunsTable(w io.Writer, runs []record.RunMeta) {
	t := newTable(w, "Stored runs")
	t.AppendHeader(table.Row{"Run ID", "Created", "Source", "dt", "Q", "R", "Seed", "RMS pos (m)", "Rejected"})
	for _, r := range runs {
		t.AppendRow(table.Row{
			r.ID,
			r.CreatedAt.Format("2006-01-02 15:04:05"),
			r.Source,
			r.TimeStep,
			r.ProcessNoise,
			r.MeasurementNoise,
			r.Seed,
			formatFloat(r.RMSPosition),
			r.RejectedUpdates,
		})
	}
	t.SetCaption("%d run(s)", len(runs))
	t.Render()
}

func formatFloat(v float64) string {
	if math.IsNaN(v) {
		return "-"
	}
	return fmt.Sprintf("%.3f", v)
}
