package sim

import (
	"math"

	"github.com/banshee-data/sensorfusion/internal/config"
	"github.com/banshee-data/sensorfusion/internal/linalg"
)

// Trajectory is a ground-truth path with analytic derivatives.
type Trajectory interface {
	Position(t float64) linalg.Vec2
	Velocity(t float64) linalg.Vec2
	Acceleration(t float64) linalg.Vec2
}

// Figure8 is the lemniscate-like path (s·sin ωt, s·sin 2ωt).
type Figure8 struct {
	Scale float64 // metres
	Omega float64 // rad/s
}

// DefaultFigure8 returns the 10 m, 0.5 rad/s path.
func DefaultFigure8() Figure8 {
	return Figure8{Scale: 10, Omega: 0.5}
}

// Figure8FromTuning reads trajectory_scale and trajectory_omega.
func Figure8FromTuning(cfg *config.TuningConfig) Figure8 {
	return Figure8{Scale: cfg.GetTrajectoryScale(), Omega: cfg.GetTrajectoryOmega()}
}

func (f Figure8) Position(t float64) linalg.Vec2 {
	w := f.Omega
	return linalg.Vec2{
		X: f.Scale * math.Sin(w*t),
		Y: f.Scale * math.Sin(2*w*t),
	}
}

func (f Figure8) Velocity(t float64) linalg.Vec2 {
	w := f.Omega
	return linalg.Vec2{
		X: f.Scale * w * math.Cos(w*t),
		Y: 2 * f.Scale * w * math.Cos(2*w*t),
	}
}

func (f Figure8) Acceleration(t float64) linalg.Vec2 {
	w := f.Omega
	return linalg.Vec2{
		X: -f.Scale * w * w * math.Sin(w*t),
		Y: -4 * f.Scale * w * w * math.Sin(2*w*t),
	}
}
