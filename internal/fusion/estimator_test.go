package fusion

import (
	"errors"
	"math"
	"testing"

	"github.com/banshee-data/sensorfusion/internal/linalg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDt = 0.01

func newTestEstimator(t *testing.T, cfg Config) *Estimator {
	t.Helper()
	e, err := New(linalg.Vec2{}, testDt, cfg)
	require.NoError(t, err)
	return e
}

func accel(x, y float64) InertialReading { return InertialReading{Accel: linalg.Vec2{X: x, Y: y}} }
func fix(x, y float64) PositionReading   { return PositionReading{Position: linalg.Vec2{X: x, Y: y}} }

// ---------------------------------------------------------------------------
// Construction
// ---------------------------------------------------------------------------

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("initial state and covariance", func(t *testing.T) {
		t.Parallel()
		e, err := New(linalg.Vec2{X: 3, Y: -2}, testDt, DefaultConfig())
		require.NoError(t, err)

		assert.Equal(t, State{PX: 3, PY: -2}, e.State())
		assert.Equal(t, linalg.Identity4(), e.Covariance())
		assert.Equal(t, testDt, e.TimeStep())
		assert.Equal(t, DefaultConfig(), e.Config())

		_, ok := e.LastUpdate()
		assert.False(t, ok)
	})

	t.Run("initial variance scales identity", func(t *testing.T) {
		t.Parallel()
		cfg := DefaultConfig()
		cfg.InitialVariance = 4
		e, err := New(linalg.Vec2{}, testDt, cfg)
		require.NoError(t, err)
		assert.Equal(t, linalg.Vec4{4, 4, 4, 4}, e.Covariance().Diagonal())
	})

	t.Run("rejects bad time steps", func(t *testing.T) {
		t.Parallel()
		for _, dt := range []float64{0, -0.01, math.NaN(), math.Inf(1), math.Inf(-1)} {
			e, err := New(linalg.Vec2{}, dt, DefaultConfig())
			assert.Nil(t, e)
			assert.ErrorIs(t, err, ErrInvalidTimeStep, "dt=%v", dt)
		}
	})

	t.Run("rejects non-finite initial position", func(t *testing.T) {
		t.Parallel()
		_, err := New(linalg.Vec2{X: math.NaN()}, testDt, DefaultConfig())
		assert.ErrorIs(t, err, ErrNonFiniteInput)
	})

	t.Run("rejects invalid config", func(t *testing.T) {
		t.Parallel()
		cases := map[string]func(*Config){
			"negative process noise":     func(c *Config) { c.ProcessNoise = -1 },
			"NaN measurement noise":      func(c *Config) { c.MeasurementNoise = math.NaN() },
			"infinite initial variance":  func(c *Config) { c.InitialVariance = math.Inf(1) },
			"condition number too small": func(c *Config) { c.MaxConditionNumber = 1 },
		}
		for name, mutate := range cases {
			cfg := DefaultConfig()
			mutate(&cfg)
			_, err := New(linalg.Vec2{}, testDt, cfg)
			assert.ErrorIs(t, err, ErrInvalidConfig, name)
		}
	})
}

// ---------------------------------------------------------------------------
// Predict
// ---------------------------------------------------------------------------

func TestPredict_ZeroInputIsPureIntegration(t *testing.T) {
	t.Parallel()
	cfg := DefaultConfig()
	e := newTestEstimator(t, cfg)

	prev := e.Covariance().Diagonal()
	for i := 0; i < 50; i++ {
		require.NoError(t, e.Predict(accel(0, 0)))
		assert.Equal(t, State{}, e.State())

		diag := e.Covariance().Diagonal()
		for d := 0; d < 4; d++ {
			growth := diag[d] - prev[d]
			assert.GreaterOrEqual(t, growth, cfg.ProcessNoise-1e-12, "step %d dim %d", i, d)
		}
		// Velocity variance has no coupling term and grows by exactly Q.
		assert.InDelta(t, cfg.ProcessNoise, diag[2]-prev[2], 1e-12)
		assert.InDelta(t, cfg.ProcessNoise, diag[3]-prev[3], 1e-12)
		prev = diag
	}
}

func TestPredict_LiteralScenario(t *testing.T) {
	t.Parallel()
	e := newTestEstimator(t, DefaultConfig())

	require.NoError(t, e.Predict(accel(1, 1)))

	s := e.State()
	assert.InDelta(t, 0.0001, s.PX, 1e-15)
	assert.InDelta(t, 0.0001, s.PY, 1e-15)
	assert.InDelta(t, 0.01, s.VX, 1e-15)
	assert.InDelta(t, 0.01, s.VY, 1e-15)
}

func TestPredict_CovariancePropagation(t *testing.T) {
	t.Parallel()
	e := newTestEstimator(t, DefaultConfig())
	require.NoError(t, e.Predict(accel(0.3, -0.2)))

	// From P = I: F·Fᵀ + 0.1·I.
	p := e.Covariance()
	assert.InDelta(t, 1+testDt*testDt+0.1, p.At(0, 0), 1e-12)
	assert.InDelta(t, 1.1, p.At(2, 2), 1e-12)
	assert.InDelta(t, testDt, p.At(0, 2), 1e-12)
	assert.InDelta(t, testDt, p.At(2, 0), 1e-12)
	assert.Zero(t, p.At(0, 1))
	assert.NoError(t, e.CheckInvariants())
}

func TestPredict_RejectsNonFinite(t *testing.T) {
	t.Parallel()
	e := newTestEstimator(t, DefaultConfig())
	require.NoError(t, e.Predict(accel(1, 2)))
	before, beforeP := e.State(), e.Covariance()

	for _, a := range []InertialReading{accel(math.NaN(), 0), accel(0, math.Inf(1))} {
		err := e.Predict(a)
		assert.ErrorIs(t, err, ErrNonFiniteInput)
	}
	assert.Equal(t, before, e.State())
	assert.Equal(t, beforeP, e.Covariance())
}

func TestPredict_OverflowLeavesStateUnchanged(t *testing.T) {
	t.Parallel()
	// dt² overflows, so both the position integration and F·P·Fᵀ blow up.
	e, err := New(linalg.Vec2{X: 1, Y: 1}, 1e200, DefaultConfig())
	require.NoError(t, err)
	before, beforeP := e.State(), e.Covariance()

	err = e.Predict(accel(1, 0))
	assert.ErrorIs(t, err, ErrNonFiniteState)
	assert.Equal(t, before, e.State())
	assert.Equal(t, beforeP, e.Covariance())
}

// ---------------------------------------------------------------------------
// Update
// ---------------------------------------------------------------------------

func TestUpdate_ConfirmingMeasurement(t *testing.T) {
	t.Parallel()
	e := newTestEstimator(t, DefaultConfig())
	for i := 0; i < 10; i++ {
		require.NoError(t, e.Predict(accel(1, -0.5)))
	}
	before := e.State()
	beforeP := e.Covariance()

	require.NoError(t, e.Update(fix(before.PX, before.PY)))

	after := e.State()
	assert.InDelta(t, before.PX, after.PX, 1e-15)
	assert.InDelta(t, before.PY, after.PY, 1e-15)
	assert.Less(t, e.Covariance().At(0, 0), beforeP.At(0, 0))
	assert.Less(t, e.Covariance().At(1, 1), beforeP.At(1, 1))

	diag, ok := e.LastUpdate()
	require.True(t, ok)
	assert.InDelta(t, 0, diag.Innovation.Norm(), 1e-15)
}

func TestUpdate_PullsTowardMeasurement(t *testing.T) {
	t.Parallel()
	e := newTestEstimator(t, DefaultConfig())
	require.NoError(t, e.Predict(accel(0.5, 0.5)))
	before := e.State()

	target := linalg.Vec2{X: 25, Y: -40}
	require.NoError(t, e.Update(PositionReading{Position: target}))
	after := e.State()

	assert.Greater(t, after.PX, before.PX)
	assert.Less(t, after.PX, target.X)
	assert.Less(t, after.PY, before.PY)
	assert.Greater(t, after.PY, target.Y)

	diag, ok := e.LastUpdate()
	require.True(t, ok)
	for i := 0; i < 2; i++ {
		k := diag.Gain.At(i, i)
		assert.Greater(t, k, 0.0)
		assert.Less(t, k, 1.0)
	}
	assert.NoError(t, e.CheckInvariants())
}

func TestUpdate_MatchesScalarKalman(t *testing.T) {
	t.Parallel()
	// With P = I and R = I, each axis is an independent scalar filter with
	// gain 1/2 on position and no velocity correlation.
	e := newTestEstimator(t, DefaultConfig())
	require.NoError(t, e.Update(fix(2, 4)))

	s := e.State()
	assert.InDelta(t, 1.0, s.PX, 1e-12)
	assert.InDelta(t, 2.0, s.PY, 1e-12)
	assert.Zero(t, s.VX)
	assert.Zero(t, s.VY)

	p := e.Covariance()
	assert.InDelta(t, 0.5, p.At(0, 0), 1e-12)
	assert.InDelta(t, 0.5, p.At(1, 1), 1e-12)
	assert.InDelta(t, 1.0, p.At(2, 2), 1e-12)
}

func TestUpdate_RejectsNonFinite(t *testing.T) {
	t.Parallel()
	e := newTestEstimator(t, DefaultConfig())
	before, beforeP := e.State(), e.Covariance()

	err := e.Update(fix(math.Inf(-1), 0))
	assert.ErrorIs(t, err, ErrNonFiniteInput)
	assert.Equal(t, before, e.State())
	assert.Equal(t, beforeP, e.Covariance())
}

func TestUpdate_SingularInnovation(t *testing.T) {
	t.Parallel()
	cfg := Config{
		ProcessNoise:       0,
		MeasurementNoise:   0,
		InitialVariance:    0,
		MaxConditionNumber: 1e12,
		VerifyInvariants:   true,
	}
	e := newTestEstimator(t, cfg)
	require.NoError(t, e.Predict(accel(1, 1)))
	before, beforeP := e.State(), e.Covariance()

	var err error
	assert.NotPanics(t, func() { err = e.Update(fix(5, 5)) })
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSingularInnovation)

	var sie *SingularInnovationError
	require.True(t, errors.As(err, &sie))
	assert.Zero(t, sie.Det)
	assert.True(t, math.IsInf(sie.Cond, 1))
	assert.Contains(t, err.Error(), "singular")

	assert.Equal(t, before, e.State())
	assert.Equal(t, beforeP, e.Covariance())
	_, ok := e.LastUpdate()
	assert.False(t, ok)

	// The estimator keeps working for subsequent predicts.
	assert.NoError(t, e.Predict(accel(0, 0)))
}

func TestInvertInnovation_IllConditioned(t *testing.T) {
	t.Parallel()
	e := newTestEstimator(t, DefaultConfig())

	_, err := e.invertInnovation(linalg.Mat2{1e7, 0, 0, 1e-6})
	var sie *SingularInnovationError
	require.ErrorAs(t, err, &sie)
	assert.Greater(t, sie.Cond, e.Config().MaxConditionNumber)

	_, err = e.invertInnovation(linalg.Mat2{math.NaN(), 0, 0, 1})
	assert.ErrorIs(t, err, ErrSingularInnovation)

	inv, err := e.invertInnovation(linalg.Mat2{2, 0, 0, 4})
	require.NoError(t, err)
	assert.Equal(t, linalg.Mat2{0.5, 0, 0, 0.25}, inv)
}

func TestUpdate_SmallScaleWellConditioned(t *testing.T) {
	t.Parallel()
	cfg := DefaultConfig()
	cfg.MeasurementNoise = 1e-7
	cfg.InitialVariance = 1e-7
	e := newTestEstimator(t, cfg)

	require.NoError(t, e.Update(fix(0.001, 0)))
	d, ok := e.LastUpdate()
	require.True(t, ok)
	assert.InDelta(t, 2e-7, d.InnovationCov[0], 1e-20)
	assert.InDelta(t, 1.0, d.InnovationCov.Cond(), 1e-9)
	assert.InDelta(t, 0.0005, e.State().PX, 1e-12)
}

func TestInvertInnovation_ReportsFiniteCondition(t *testing.T) {
	t.Parallel()
	e := newTestEstimator(t, DefaultConfig())

	_, err := e.invertInnovation(linalg.Mat2{1, 0, 0, 1e-13})
	var sie *SingularInnovationError
	require.ErrorAs(t, err, &sie)
	assert.InDelta(t, 1e13, sie.Cond, 1)
	assert.False(t, math.IsInf(sie.Cond, 1))
}

// ---------------------------------------------------------------------------
// Accessors
// ---------------------------------------------------------------------------

func TestAccessorsAreIdempotent(t *testing.T) {
	t.Parallel()
	e := newTestEstimator(t, DefaultConfig())
	require.NoError(t, e.Predict(accel(0.2, 0.1)))
	require.NoError(t, e.Update(fix(0.5, 0.5)))

	assert.Equal(t, e.State(), e.State())
	assert.Equal(t, e.Covariance(), e.Covariance())

	// Mutating a returned copy must not leak into the estimator.
	p := e.Covariance()
	p.Set(0, 0, 1e9)
	assert.NotEqual(t, p, e.Covariance())
}

func TestStateHelpers(t *testing.T) {
	t.Parallel()
	s := State{PX: 1, PY: 2, VX: 3, VY: 4}
	assert.Equal(t, linalg.Vec2{X: 1, Y: 2}, s.Position())
	assert.Equal(t, linalg.Vec2{X: 3, Y: 4}, s.Velocity())
	assert.Equal(t, linalg.Vec4{1, 2, 3, 4}, s.Vec())
	assert.Equal(t, s, stateFromVec(s.Vec()))
}

// ---------------------------------------------------------------------------
// Long-run behaviour
// ---------------------------------------------------------------------------

// figure8 mirrors the reference trajectory used by the simulator.
func figure8(t float64) (pos, acc linalg.Vec2) {
	const scale, omega = 10.0, 0.5
	pos = linalg.Vec2{X: scale * math.Sin(omega*t), Y: scale * math.Sin(2*omega*t)}
	acc = linalg.Vec2{
		X: -scale * omega * omega * math.Sin(omega*t),
		Y: -scale * 4 * omega * omega * math.Sin(2*omega*t),
	}
	return pos, acc
}

func TestSteadyStateCovarianceIsBounded(t *testing.T) {
	t.Parallel()

	t.Run("update every step", func(t *testing.T) {
		t.Parallel()
		e := newTestEstimator(t, DefaultConfig())
		var mid float64
		for k := 1; k <= 4000; k++ {
			tm := float64(k) * testDt
			pos, acc := figure8(tm)
			require.NoError(t, e.Predict(InertialReading{Accel: acc}))
			require.NoError(t, e.Update(PositionReading{Position: pos}))
			if k == 2000 {
				mid = e.Covariance().At(0, 0)
			}
		}
		final := e.Covariance().At(0, 0)
		assert.Less(t, final, 1.0)
		assert.InDelta(t, mid, final, 1e-6)
		assert.NoError(t, e.CheckInvariants())
	})

	t.Run("update once per second", func(t *testing.T) {
		t.Parallel()
		e := newTestEstimator(t, DefaultConfig())
		var atUpdates []float64
		for k := 1; k <= 6000; k++ {
			tm := float64(k) * testDt
			pos, acc := figure8(tm)
			require.NoError(t, e.Predict(InertialReading{Accel: acc}))
			if k%100 == 0 {
				require.NoError(t, e.Update(PositionReading{Position: pos}))
				atUpdates = append(atUpdates, e.Covariance().At(0, 0))
			}
		}
		require.Len(t, atUpdates, 60)
		last := atUpdates[len(atUpdates)-1]
		assert.InEpsilon(t, atUpdates[len(atUpdates)-2], last, 1e-3)
		assert.Less(t, last, 1.0)
		assert.NoError(t, e.CheckInvariants())
	})
}
