package sensorlink

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/banshee-data/sensorfusion/internal/fusion"
	"github.com/banshee-data/sensorfusion/internal/linalg"
	"github.com/banshee-data/sensorfusion/internal/monitoring"
	"github.com/banshee-data/sensorfusion/internal/record"
)

// Counters receives per-reading outcomes. *driver.Stats satisfies it.
type Counters interface {
	Predicted()
	Updated(innovation float64)
	Rejected()
}

type nopCounters struct{}

func (nopCounters) Predicted()      {}
func (nopCounters) Updated(float64) {}
func (nopCounters) Rejected()       {}

// FeedResult tallies one Feed call.
type FeedResult struct {
	Lines    int
	Skipped  int // blank, comment or malformed lines
	Predicts int
	Updates  int
	Rejected int
}

// Feeder applies a stream of readings to one estimator.
type Feeder struct {
	est      *fusion.Estimator
	counters Counters
	observer func(record.Record)

	steps    int
	truth    linalg.Vec2
	truthVel linalg.Vec2
}

// NewFeeder returns a Feeder for est. counters may be nil.
func NewFeeder(est *fusion.Estimator, counters Counters) *Feeder {
	if counters == nil {
		counters = nopCounters{}
	}
	return &Feeder{est: est, counters: counters}
}

// OnUpdate registers fn to be called with a record after every accepted fix.
func (f *Feeder) OnUpdate(fn func(record.Record)) { f.observer = fn }

// Apply feeds a single reading. Recoverable update failures are reported
// through the returned error but leave the estimator unchanged.
func (f *Feeder) Apply(r Reading) error {
	switch r.Kind {
	case KindIMU:
		if err := f.est.Predict(fusion.InertialReading{Accel: r.Vec()}); err != nil {
			return err
		}
		f.steps++
		f.counters.Predicted()
	case KindTruth:
		f.truth, f.truthVel = r.Vec(), r.Velocity()
	case KindGPS:
		if err := f.est.Update(fusion.PositionReading{Position: r.Vec()}); err != nil {
			if fusion.IsRecoverable(err) {
				f.counters.Rejected()
			}
			return err
		}
		diag, _ := f.est.LastUpdate()
		f.counters.Updated(diag.Innovation.Norm())
		if f.observer != nil {
			f.observer(f.snapshot(r))
		}
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrMalformed, r.Kind)
	}
	return nil
}

func (f *Feeder) snapshot(fix Reading) record.Record {
	st := f.est.State()
	t := fix.T
	if t == 0 {
		t = float64(f.steps) * f.est.TimeStep()
	}
	return record.Record{
		Time:       t,
		Truth:      f.truth,
		TruthVel:   f.truthVel,
		GPS:        fix.Vec(),
		HasGPS:     true,
		Fused:      st.Position(),
		FusedVel:   st.Velocity(),
		Covariance: f.est.Covariance(),
	}
}

// Feed reads lines from src until EOF, a fatal estimator error or ctx is
// done. Malformed lines and rejected fixes are logged and skipped.
func (f *Feeder) Feed(ctx context.Context, src io.Reader) (FeedResult, error) {
	// Cancelling on return releases the scanner goroutine on every exit path.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var res FeedResult
	scan := bufio.NewScanner(src)

	lineChan := make(chan string)
	scanErrChan := make(chan error, 1)

	// Scan in a goroutine so that a blocked device read cannot hold off
	// cancellation.
	go func() {
		defer close(lineChan)
		for scan.Scan() {
			select {
			case lineChan <- scan.Text():
			case <-ctx.Done():
				return
			}
		}
		if err := scan.Err(); err != nil {
			scanErrChan <- err
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return res, ctx.Err()

		case line, ok := <-lineChan:
			if !ok {
				select {
				case err := <-scanErrChan:
					return res, fmt.Errorf("read readings: %w", err)
				default:
					return res, nil
				}
			}
			res.Lines++

			r, err := ParseLine(line)
			if errors.Is(err, ErrSkipLine) {
				res.Skipped++
				continue
			}
			if err != nil {
				res.Skipped++
				monitoring.Logf("sensorlink: line %d: %v", res.Lines, err)
				continue
			}

			switch err := f.Apply(r); {
			case err == nil:
				switch r.Kind {
				case KindIMU:
					res.Predicts++
				case KindGPS:
					res.Updates++
				}
			case r.Kind == KindGPS && fusion.IsRecoverable(err):
				res.Rejected++
				monitoring.Logf("sensorlink: line %d: skipping fix: %v", res.Lines, err)
			default:
				return res, fmt.Errorf("line %d: %w", res.Lines, err)
			}
		}
	}
}
