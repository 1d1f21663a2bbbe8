package record

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// ErrNoRecords is returned when a summary or plot is requested for an empty run.
var ErrNoRecords = errors.New("no records")

// Summary aggregates estimation error over a run.
type Summary struct {
	Count       int     `json:"count"`
	Fixes       int     `json:"fixes"`
	Duration    float64 `json:"duration"`
	RMSPosition float64 `json:"rms_position_error"`
	MeanPos     float64 `json:"mean_position_error"`
	MaxPosition float64 `json:"max_position_error"`
	RMSVelocity float64 `json:"rms_velocity_error"`
	RMSGPS      float64 `json:"rms_gps_error"` // NaN when no fixes were recorded
	FinalSigma  float64 `json:"final_position_sigma"`
}

// Summarize computes error statistics over recs.
func Summarize(recs []Record) (Summary, error) {
	if len(recs) == 0 {
		return Summary{}, ErrNoRecords
	}

	pos := make([]float64, len(recs))
	vel := make([]float64, len(recs))
	var gps []float64
	for i, r := range recs {
		pos[i] = r.PositionError()
		vel[i] = r.VelocityError()
		if r.HasGPS {
			gps = append(gps, r.GPSError())
		}
	}

	last := recs[len(recs)-1]
	s := Summary{
		Count:       len(recs),
		Fixes:       len(gps),
		Duration:    last.Time - recs[0].Time,
		RMSPosition: rms(pos),
		MeanPos:     stat.Mean(pos, nil),
		MaxPosition: floats.Max(pos),
		RMSVelocity: rms(vel),
		RMSGPS:      math.NaN(),
		FinalSigma:  last.PositionSigma(),
	}
	if len(gps) > 0 {
		s.RMSGPS = rms(gps)
	}
	return s, nil
}

func rms(xs []float64) float64 {
	return floats.Norm(xs, 2) / math.Sqrt(float64(len(xs)))
}
