// Package render draws fusion runs as PNG plots and as an interactive HTML
// dashboard.
package render

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/banshee-data/sensorfusion/internal/monitoring"
	"github.com/banshee-data/sensorfusion/internal/record"
)

// Output file names written by RenderAll.
const (
	TrajectoryFile = "fusion.png"
	ErrorFile      = "error_metrics.png"
	CovarianceFile = "covariance.png"
)

var (
	truthColor = color.RGBA{R: 30, G: 30, B: 30, A: 255}
	gpsColor   = color.RGBA{R: 220, G: 50, B: 47, A: 160}
	fusedColor = color.RGBA{R: 38, G: 139, B: 210, A: 255}
	velColor   = color.RGBA{R: 133, G: 153, B: 0, A: 255}
	sigmaColor = []color.Color{
		color.RGBA{R: 38, G: 139, B: 210, A: 255},
		color.RGBA{R: 42, G: 161, B: 152, A: 255},
		color.RGBA{R: 211, G: 54, B: 130, A: 255},
		color.RGBA{R: 181, G: 137, B: 0, A: 255},
	}
)

// RenderAll writes the trajectory, error and covariance plots into dir,
// creating it if needed.
func RenderAll(dir string, recs []record.Record) error {
	if len(recs) == 0 {
		return record.ErrNoRecords
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	if err := RenderTrajectories(filepath.Join(dir, TrajectoryFile), recs); err != nil {
		return err
	}
	if err := RenderErrorMetrics(filepath.Join(dir, ErrorFile), recs); err != nil {
		return err
	}
	if err := RenderCovariance(filepath.Join(dir, CovarianceFile), recs); err != nil {
		return err
	}
	monitoring.Logf("wrote %d records to %s, %s, %s in %s", len(recs), TrajectoryFile, ErrorFile, CovarianceFile, dir)
	return nil
}

// RenderTrajectories plots truth, raw GPS fixes and the fused track in the
// XY plane.
func RenderTrajectories(path string, recs []record.Record) error {
	if len(recs) == 0 {
		return record.ErrNoRecords
	}

	p := plot.New()
	p.Title.Text = "Ground Truth vs GPS vs Fused"
	p.X.Label.Text = "X (m)"
	p.Y.Label.Text = "Y (m)"

	truth := make(plotter.XYs, 0, len(recs))
	fused := make(plotter.XYs, 0, len(recs))
	var gps plotter.XYs
	for _, r := range recs {
		truth = append(truth, plotter.XY{X: r.Truth.X, Y: r.Truth.Y})
		fused = append(fused, plotter.XY{X: r.Fused.X, Y: r.Fused.Y})
		if r.HasGPS {
			gps = append(gps, plotter.XY{X: r.GPS.X, Y: r.GPS.Y})
		}
	}

	truthLine, err := plotter.NewLine(truth)
	if err != nil {
		return err
	}
	truthLine.Color = truthColor
	truthLine.Width = vg.Points(1)
	truthLine.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
	p.Add(truthLine)
	p.Legend.Add("Ground truth", truthLine)

	if len(gps) > 0 {
		gpsPts, err := plotter.NewScatter(gps)
		if err != nil {
			return err
		}
		gpsPts.Color = gpsColor
		gpsPts.Shape = draw.CircleGlyph{}
		gpsPts.Radius = vg.Points(2)
		p.Add(gpsPts)
		p.Legend.Add("GPS", gpsPts)
	}

	fusedLine, err := plotter.NewLine(fused)
	if err != nil {
		return err
	}
	fusedLine.Color = fusedColor
	fusedLine.Width = vg.Points(1.5)
	p.Add(fusedLine)
	p.Legend.Add("Fused", fusedLine)

	p.Add(plotter.NewGrid())
	topRightLegend(p)
	return save(p, path)
}

// RenderErrorMetrics plots position and velocity error against time.
func RenderErrorMetrics(path string, recs []record.Record) error {
	if len(recs) == 0 {
		return record.ErrNoRecords
	}

	p := plot.New()
	p.Title.Text = "Estimation Error"
	p.X.Label.Text = "Time (s)"
	p.Y.Label.Text = "Error (m, m/s)"

	posErr := make(plotter.XYs, len(recs))
	velErr := make(plotter.XYs, len(recs))
	for i, r := range recs {
		posErr[i] = plotter.XY{X: r.Time, Y: r.PositionError()}
		velErr[i] = plotter.XY{X: r.Time, Y: r.VelocityError()}
	}

	if err := addLine(p, "Position error", posErr, fusedColor); err != nil {
		return err
	}
	if err := addLine(p, "Velocity error", velErr, velColor); err != nil {
		return err
	}

	p.Add(plotter.NewGrid())
	topRightLegend(p)
	return save(p, path)
}

// RenderCovariance plots the 1σ standard deviation of each state component.
func RenderCovariance(path string, recs []record.Record) error {
	if len(recs) == 0 {
		return record.ErrNoRecords
	}

	p := plot.New()
	p.Title.Text = "State Uncertainty (1σ)"
	p.X.Label.Text = "Time (s)"
	p.Y.Label.Text = "σ"

	for k, name := range StateLabels {
		pts := make(plotter.XYs, len(recs))
		for i, r := range recs {
			pts[i] = plotter.XY{X: r.Time, Y: stddev(r, k)}
		}
		if err := addLine(p, name, pts, sigmaColor[k]); err != nil {
			return err
		}
	}

	p.Add(plotter.NewGrid())
	topRightLegend(p)
	return save(p, path)
}

// StateLabels names the state components in covariance order.
var StateLabels = [4]string{"σ px (m)", "σ py (m)", "σ vx (m/s)", "σ vy (m/s)"}

func addLine(p *plot.Plot, name string, pts plotter.XYs, c color.Color) error {
	line, err := plotter.NewLine(pts)
	if err != nil {
		return err
	}
	line.Color = c
	line.Width = vg.Points(1)
	p.Add(line)
	p.Legend.Add(name, line)
	return nil
}

func topRightLegend(p *plot.Plot) {
	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10
}

func save(p *plot.Plot, path string) error {
	if err := p.Save(14*vg.Inch, 6*vg.Inch, path); err != nil {
		return fmt.Errorf("failed to save %s: %w", path, err)
	}
	return nil
}
