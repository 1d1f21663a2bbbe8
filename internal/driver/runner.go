// Package driver runs the fusion estimator against simulated sensors.
//
// A run advances in simulated time t = k·dt. Each step samples the inertial
// simulator and predicts; every GPS interval a position fix is sampled and
// applied as an update. With pacing enabled the loop is additionally held to
// the wall clock, but the estimator itself never sleeps.
package driver

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/banshee-data/sensorfusion/internal/config"
	"github.com/banshee-data/sensorfusion/internal/fusion"
	"github.com/banshee-data/sensorfusion/internal/monitoring"
	"github.com/banshee-data/sensorfusion/internal/record"
	"github.com/banshee-data/sensorfusion/internal/sensorlink"
	"github.com/banshee-data/sensorfusion/internal/sim"
	"github.com/banshee-data/sensorfusion/internal/timeutil"
)

// Config controls the simulation loop.
type Config struct {
	Duration        time.Duration
	GPSInterval     time.Duration
	Realtime        bool
	RecordEveryStep bool
}

// DefaultConfig runs 10 s with a 1 Hz fix and no pacing.
func DefaultConfig() Config {
	return Config{Duration: 10 * time.Second, GPSInterval: time.Second}
}

// ConfigFromTuning maps the loop-related tuning keys.
func ConfigFromTuning(cfg *config.TuningConfig) Config {
	return Config{
		Duration:        cfg.GetDuration(),
		GPSInterval:     cfg.GetGPSInterval(),
		Realtime:        cfg.GetRealtime(),
		RecordEveryStep: cfg.GetRecordEveryStep(),
	}
}

// Runner owns one estimator and its simulated sensors for a single run.
type Runner struct {
	est   *fusion.Estimator
	traj  sim.Trajectory
	imu   *sim.IMUSimulator
	gps   *sim.GPSSimulator
	cfg   Config
	clock timeutil.Clock
	stats *Stats

	observer func(record.Record)
	tap      func(sensorlink.Reading)
}

// NewRunner wires an estimator to its sensors. The estimator should already
// be initialised at the trajectory's starting position.
func NewRunner(est *fusion.Estimator, traj sim.Trajectory, imu *sim.IMUSimulator, gps *sim.GPSSimulator, cfg Config) *Runner {
	return &Runner{
		est:   est,
		traj:  traj,
		imu:   imu,
		gps:   gps,
		cfg:   cfg,
		clock: timeutil.RealClock{},
		stats: NewStats(),
	}
}

// NewRunnerFromTuning builds the figure-8 simulation described by cfg.
func NewRunnerFromTuning(cfg *config.TuningConfig) (*Runner, error) {
	traj := sim.Figure8FromTuning(cfg)
	est, err := fusion.New(traj.Position(0), cfg.GetTimeStep(), fusion.ConfigFromTuning(cfg))
	if err != nil {
		return nil, fmt.Errorf("create estimator: %w", err)
	}
	imu := sim.NewIMUSimulator(traj, sim.IMUConfigFromTuning(cfg))
	gps := sim.NewGPSSimulator(sim.GPSConfigFromTuning(cfg))
	return NewRunner(est, traj, imu, gps, ConfigFromTuning(cfg)), nil
}

// SetClock replaces the wall clock used for pacing.
func (r *Runner) SetClock(c timeutil.Clock) { r.clock = c }

// OnRecord registers fn to be called with every record as it is produced.
func (r *Runner) OnRecord(fn func(record.Record)) { r.observer = fn }

// OnReading registers fn to receive every simulated reading in the order the
// estimator consumes it, plus a truth reading ahead of each recorded step.
// Writing these through a sensorlink.Encoder yields a replayable log.
func (r *Runner) OnReading(fn func(sensorlink.Reading)) { r.tap = fn }

// Stats returns the run's counters.
func (r *Runner) Stats() *Stats { return r.stats }

// Estimator returns the estimator being driven.
func (r *Runner) Estimator() *fusion.Estimator { return r.est }

// Steps is the number of predict steps the configured duration covers.
func (r *Runner) Steps() int {
	return int(math.Round(r.cfg.Duration.Seconds() / r.est.TimeStep()))
}

// fixEvery is the number of predict steps between position fixes (at least 1).
func (r *Runner) fixEvery() int {
	n := int(math.Round(r.cfg.GPSInterval.Seconds() / r.est.TimeStep()))
	if n < 1 {
		return 1
	}
	return n
}

// Run executes the simulation and returns the records produced. On
// cancellation or a fatal estimator error the records gathered so far are
// returned alongside the error.
func (r *Runner) Run(ctx context.Context) ([]record.Record, error) {
	dt := r.est.TimeStep()
	steps := r.Steps()
	every := r.fixEvery()

	var pacer *timeutil.Pacer
	if r.cfg.Realtime {
		pacer = timeutil.NewPacer(r.clock, time.Duration(dt*float64(time.Second)))
	}

	recs := make([]record.Record, 0, r.expectedRecords(steps, every))
	monitoring.Logf("fusion run: %d steps of %gs, fix every %d steps, realtime=%v", steps, dt, every, r.cfg.Realtime)

	for k := 1; k <= steps; k++ {
		if err := ctx.Err(); err != nil {
			return recs, err
		}

		t0 := float64(k-1) * dt
		t := float64(k) * dt

		accel := r.imu.Sample(t0)
		r.emit(sensorlink.Reading{Kind: sensorlink.KindIMU, T: t0, X: accel.X, Y: accel.Y})
		if err := r.est.Predict(fusion.InertialReading{Accel: accel}); err != nil {
			return recs, fmt.Errorf("predict at t=%.3f: %w", t, err)
		}
		r.stats.Predicted()

		truth := r.traj.Position(t)
		rec := record.Record{Time: t, Truth: truth, TruthVel: r.traj.Velocity(t)}
		fixDue := k%every == 0
		keep := r.cfg.RecordEveryStep
		if keep || fixDue {
			r.emit(sensorlink.Reading{Kind: sensorlink.KindTruth, T: t, X: truth.X, Y: truth.Y, VX: rec.TruthVel.X, VY: rec.TruthVel.Y})
		}

		if fixDue {
			fix := r.gps.Sample(truth)
			r.emit(sensorlink.Reading{Kind: sensorlink.KindGPS, T: t, X: fix.X, Y: fix.Y})
			rec.GPS, rec.HasGPS = fix, true
			switch err := r.est.Update(fusion.PositionReading{Position: fix}); {
			case err == nil:
				diag, _ := r.est.LastUpdate()
				r.stats.Updated(diag.Innovation.Norm())
				keep = true
			case fusion.IsRecoverable(err):
				r.stats.Rejected()
				monitoring.Logf("fusion: skipping fix at t=%.3f: %v", t, err)
			default:
				return recs, fmt.Errorf("update at t=%.3f: %w", t, err)
			}
		}

		if keep {
			st := r.est.State()
			rec.Fused = st.Position()
			rec.FusedVel = st.Velocity()
			rec.Covariance = r.est.Covariance()
			recs = append(recs, rec)
			if r.observer != nil {
				r.observer(rec)
			}
		}

		if pacer != nil {
			behind, err := pacer.Wait(ctx)
			if err != nil {
				return recs, err
			}
			r.stats.Behind(behind)
			if behind > 0 {
				monitoring.Debugf("fusion: step %d is %v behind schedule", k, behind)
			}
		}
	}

	return recs, nil
}

func (r *Runner) emit(rd sensorlink.Reading) {
	if r.tap != nil {
		r.tap(rd)
	}
}

func (r *Runner) expectedRecords(steps, every int) int {
	if r.cfg.RecordEveryStep {
		return steps
	}
	return steps / every
}
