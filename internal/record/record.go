// Package record holds per-step snapshots of a fusion run, the error metrics
// computed from them, and a SQLite store for keeping runs around.
package record

import (
	"math"

	"github.com/banshee-data/sensorfusion/internal/linalg"
)

// Record is one snapshot taken after a predict or update step.
type Record struct {
	Time       float64     `json:"time"`
	Truth      linalg.Vec2 `json:"truth"`
	TruthVel   linalg.Vec2 `json:"truth_vel"`
	GPS        linalg.Vec2 `json:"gps"`
	HasGPS     bool        `json:"has_gps"`
	Fused      linalg.Vec2 `json:"fused"`
	FusedVel   linalg.Vec2 `json:"fused_vel"`
	Covariance linalg.Mat4 `json:"covariance"`
}

// PositionError is |Fused - Truth|.
func (r Record) PositionError() float64 { return r.Fused.Sub(r.Truth).Norm() }

// VelocityError is |FusedVel - TruthVel|.
func (r Record) VelocityError() float64 { return r.FusedVel.Sub(r.TruthVel).Norm() }

// GPSError is |GPS - Truth|, or NaN when the record carries no fix.
func (r Record) GPSError() float64 {
	if !r.HasGPS {
		return math.NaN()
	}
	return r.GPS.Sub(r.Truth).Norm()
}

// PositionSigma is sqrt(var(px) + var(py)), the 1σ radius of the position
// estimate. Tiny negative round-off on the diagonal is treated as zero.
func (r Record) PositionSigma() float64 {
	return math.Sqrt(math.Max(r.Covariance[0], 0) + math.Max(r.Covariance[5], 0))
}
