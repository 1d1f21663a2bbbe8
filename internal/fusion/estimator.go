package fusion

import (
	"fmt"
	"math"

	"github.com/banshee-data/sensorfusion/internal/linalg"
)

// State is the estimate [px, py, vx, vy] in metres and metres per second.
type State struct {
	PX float64 `json:"px"`
	PY float64 `json:"py"`
	VX float64 `json:"vx"`
	VY float64 `json:"vy"`
}

// Position returns (PX, PY).
func (s State) Position() linalg.Vec2 { return linalg.Vec2{X: s.PX, Y: s.PY} }

// Velocity returns (VX, VY).
func (s State) Velocity() linalg.Vec2 { return linalg.Vec2{X: s.VX, Y: s.VY} }

// Vec returns the state as a 4-vector.
func (s State) Vec() linalg.Vec4 { return linalg.Vec4{s.PX, s.PY, s.VX, s.VY} }

func stateFromVec(v linalg.Vec4) State {
	return State{PX: v[0], PY: v[1], VX: v[2], VY: v[3]}
}

// InertialReading is a 2D acceleration sample in m/s².
type InertialReading struct {
	Accel linalg.Vec2
}

// PositionReading is a 2D absolute position sample in metres.
type PositionReading struct {
	Position linalg.Vec2
}

// UpdateDiagnostics captures the intermediate quantities of the most recent
// successful Update.
type UpdateDiagnostics struct {
	Innovation    linalg.Vec2  // z - H·x before the correction
	InnovationCov linalg.Mat2  // S = H·P·Hᵀ + R
	Gain          linalg.Mat42 // K = P·Hᵀ·S⁻¹
}

// positionObservation is H for a position-only measurement of [px, py, vx, vy].
var positionObservation = linalg.Mat24{
	1, 0, 0, 0,
	0, 1, 0, 0,
}

// Estimator fuses inertial and absolute position readings.
type Estimator struct {
	x  linalg.Vec4
	p  linalg.Mat4
	dt float64

	f linalg.Mat4  // constant-velocity transition
	q linalg.Mat4  // process noise
	h linalg.Mat24 // observation
	r linalg.Mat2  // measurement noise

	cfg Config

	last    UpdateDiagnostics
	hasLast bool
}

// New creates an estimator at the given position with zero velocity and a
// covariance of cfg.InitialVariance·I. dt must be positive and finite.
func New(initial linalg.Vec2, dt float64, cfg Config) (*Estimator, error) {
	if !(dt > 0) || math.IsInf(dt, 0) {
		return nil, fmt.Errorf("%w: got %g", ErrInvalidTimeStep, dt)
	}
	if !initial.IsFinite() {
		return nil, fmt.Errorf("%w: initial position %+v", ErrNonFiniteInput, initial)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// State transition matrix F for constant velocity model:
	// F = [1  0  dt  0 ]
	//     [0  1  0   dt]
	//     [0  0  1   0 ]
	//     [0  0  0   1 ]
	f := linalg.Identity4()
	f.Set(0, 2, dt)
	f.Set(1, 3, dt)

	return &Estimator{
		x:   linalg.Vec4{initial.X, initial.Y, 0, 0},
		p:   linalg.Identity4().Scale(cfg.InitialVariance),
		dt:  dt,
		f:   f,
		q:   linalg.Identity4().Scale(cfg.ProcessNoise),
		h:   positionObservation,
		r:   linalg.Identity2().Scale(cfg.MeasurementNoise),
		cfg: cfg,
	}, nil
}

// Predict advances the estimate by one time step using an acceleration
// reading. Velocity is integrated first and the updated velocity is then
// used to integrate position; the covariance becomes F·P·Fᵀ + Q.
func (e *Estimator) Predict(r InertialReading) error {
	if !r.Accel.IsFinite() {
		return fmt.Errorf("predict: %w: acceleration %+v", ErrNonFiniteInput, r.Accel)
	}

	x := e.x
	x[2] += r.Accel.X * e.dt
	x[3] += r.Accel.Y * e.dt
	x[0] += x[2] * e.dt
	x[1] += x[3] * e.dt

	p := e.f.Mul(e.p).Mul(e.f.T()).Add(e.q).Symmetrize()

	if !x.IsFinite() || !p.IsFinite() {
		return fmt.Errorf("predict: %w", ErrNonFiniteState)
	}

	e.x = x
	e.p = p
	return nil
}

// Update corrects the estimate with an absolute position reading.
//
// It returns a *SingularInnovationError when S = H·P·Hᵀ + R cannot be
// inverted reliably, and ErrCovarianceIndefinite when invariant
// verification is enabled and the corrected covariance is not positive
// semi-definite. On any error the estimate is left unchanged.
func (e *Estimator) Update(r PositionReading) error {
	if !r.Position.IsFinite() {
		return fmt.Errorf("update: %w: position %+v", ErrNonFiniteInput, r.Position)
	}

	// Innovation y = z - H·x
	y := r.Position.Sub(e.h.MulVec(e.x))

	// Innovation covariance S = H·P·Hᵀ + R
	ht := e.h.T()
	s := e.h.MulMat4(e.p).MulMat42(ht).Add(e.r)

	sInv, err := e.invertInnovation(s)
	if err != nil {
		return fmt.Errorf("update: %w", err)
	}

	// Kalman gain K = P·Hᵀ·S⁻¹
	k := e.p.MulMat42(ht).MulMat2(sInv)

	// x' = x + K·y
	x := e.x.Add(k.MulVec(y))

	// P' = (I - K·H)·P
	p := linalg.Identity4().Sub(k.MulMat24(e.h)).Mul(e.p).Symmetrize()

	if !x.IsFinite() || !p.IsFinite() {
		return fmt.Errorf("update: %w", ErrNonFiniteState)
	}
	if e.cfg.VerifyInvariants {
		if err := CheckCovariance(p); err != nil {
			return fmt.Errorf("update: %w", err)
		}
	}

	e.x = x
	e.p = p
	e.last = UpdateDiagnostics{Innovation: y, InnovationCov: s, Gain: k}
	e.hasLast = true
	return nil
}

// invertInnovation returns S⁻¹ or a *SingularInnovationError when S is
// non-finite, has a vanishing determinant relative to its own scale, or is
// too ill-conditioned.
func (e *Estimator) invertInnovation(s linalg.Mat2) (linalg.Mat2, error) {
	det := s.Det()
	cond := s.Cond()
	norm := s.Norm1()
	if !s.IsFinite() || math.IsNaN(det) || math.Abs(det) <= MinDeterminant*norm*norm {
		return linalg.Mat2{}, &SingularInnovationError{Det: det, Cond: cond}
	}
	if cond > e.cfg.MaxConditionNumber {
		return linalg.Mat2{}, &SingularInnovationError{Det: det, Cond: cond}
	}
	inv, ok := s.Inverse()
	if !ok {
		return linalg.Mat2{}, &SingularInnovationError{Det: det, Cond: cond}
	}
	return inv, nil
}

// State returns the current estimate.
func (e *Estimator) State() State { return stateFromVec(e.x) }

// Covariance returns a copy of the current covariance.
func (e *Estimator) Covariance() linalg.Mat4 { return e.p }

// TimeStep returns the fixed dt the estimator was built with.
func (e *Estimator) TimeStep() float64 { return e.dt }

// Config returns the noise configuration.
func (e *Estimator) Config() Config { return e.cfg }

// LastUpdate returns the diagnostics of the most recent successful Update.
// ok is false until an Update has succeeded.
func (e *Estimator) LastUpdate() (d UpdateDiagnostics, ok bool) {
	return e.last, e.hasLast
}

// CheckInvariants verifies that the current covariance is finite,
// symmetric and positive semi-definite.
func (e *Estimator) CheckInvariants() error {
	return CheckCovariance(e.p)
}
