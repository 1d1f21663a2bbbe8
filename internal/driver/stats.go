package driver

import (
	"math"
	"time"

	gometrics "github.com/rcrowley/go-metrics"
)

// Metric names registered by NewStats.
const (
	MetricPredicts   = "fusion.predicts"
	MetricUpdates    = "fusion.updates"
	MetricRejected   = "fusion.updates.rejected"
	MetricInnovation = "fusion.innovation_mm"
	MetricPacingLag  = "fusion.pacing_lag"
)

// Stats counts estimator activity for one run. Safe for concurrent use.
type Stats struct {
	registry   gometrics.Registry
	predicts   gometrics.Counter
	updates    gometrics.Counter
	rejected   gometrics.Counter
	innovation gometrics.Histogram
	lag        gometrics.Timer
}

// NewStats registers a fresh set of metrics in their own registry.
func NewStats() *Stats {
	r := gometrics.NewRegistry()
	return &Stats{
		registry:   r,
		predicts:   gometrics.NewRegisteredCounter(MetricPredicts, r),
		updates:    gometrics.NewRegisteredCounter(MetricUpdates, r),
		rejected:   gometrics.NewRegisteredCounter(MetricRejected, r),
		innovation: gometrics.NewRegisteredHistogram(MetricInnovation, r, gometrics.NewUniformSample(1028)),
		lag:        gometrics.NewRegisteredTimer(MetricPacingLag, r),
	}
}

// Registry exposes the underlying registry, e.g. for periodic log dumps.
func (s *Stats) Registry() gometrics.Registry { return s.registry }

// Predicted counts one predict step.
func (s *Stats) Predicted() { s.predicts.Inc(1) }

// Rejected counts a fix whose update was skipped.
func (s *Stats) Rejected() { s.rejected.Inc(1) }

// Updated counts an accepted update with innovation magnitude |y| in metres.
func (s *Stats) Updated(innovation float64) {
	s.updates.Inc(1)
	if !math.IsNaN(innovation) && !math.IsInf(innovation, 0) {
		s.innovation.Update(int64(math.Round(innovation * 1000)))
	}
}

// Behind records how late a paced step started.
func (s *Stats) Behind(d time.Duration) { s.lag.Update(d) }

// StatsSnapshot is a point-in-time copy of Stats.
type StatsSnapshot struct {
	Predicts        int64
	Updates         int64
	Rejected        int64
	InnovationMeanM float64
	InnovationMaxM  float64
	InnovationP95M  float64
	MaxPacingLag    time.Duration
	PacedSteps      int64
}

// Snapshot reads the current counter values.
func (s *Stats) Snapshot() StatsSnapshot {
	h := s.innovation.Snapshot()
	lag := s.lag.Snapshot()
	return StatsSnapshot{
		Predicts:        s.predicts.Snapshot().Count(),
		Updates:         s.updates.Snapshot().Count(),
		Rejected:        s.rejected.Snapshot().Count(),
		InnovationMeanM: h.Mean() / 1000,
		InnovationMaxM:  float64(h.Max()) / 1000,
		InnovationP95M:  h.Percentile(0.95) / 1000,
		MaxPacingLag:    time.Duration(lag.Max()),
		PacedSteps:      lag.Count(),
	}
}
