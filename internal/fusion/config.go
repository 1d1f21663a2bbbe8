package fusion

import (
	"fmt"
	"math"
)

// Internal numerical stability constants — not user-tunable.
const (
	// MinDeterminant is the smallest |det S| accepted before inverting S,
	// relative to ‖S‖₁², so the test does not depend on measurement units.
	MinDeterminant = 1e-12
	// SymmetryTolerance is the largest relative asymmetry tolerated in P.
	SymmetryTolerance = 1e-9
	// PSDTolerance is the relative slack allowed below zero for the smallest
	// eigenvalue of P, absorbing floating-point round-off.
	PSDTolerance = 1e-9
)

// Config holds the noise model of the estimator. Q = ProcessNoise·I is added
// on every Predict, R = MeasurementNoise·I is used by every Update and the
// initial covariance is InitialVariance·I.
type Config struct {
	ProcessNoise       float64 // Process noise magnitude (uniform diagonal of Q)
	MeasurementNoise   float64 // Measurement noise magnitude (uniform diagonal of R)
	InitialVariance    float64 // Initial covariance diagonal
	MaxConditionNumber float64 // Largest 1-norm condition number of S accepted by Update
	VerifyInvariants   bool    // Reject updates whose covariance is not PSD
}

// DefaultConfig returns the reference noise model: Q = 0.1·I, R = I and an
// identity initial covariance.
func DefaultConfig() Config {
	return Config{
		ProcessNoise:       0.1,
		MeasurementNoise:   1.0,
		InitialVariance:    1.0,
		MaxConditionNumber: 1e12,
		VerifyInvariants:   true,
	}
}

// Validate checks that the configuration values are usable.
func (c Config) Validate() error {
	if !nonNegative(c.ProcessNoise) {
		return fmt.Errorf("%w: process noise must be finite and non-negative, got %g", ErrInvalidConfig, c.ProcessNoise)
	}
	if !nonNegative(c.MeasurementNoise) {
		return fmt.Errorf("%w: measurement noise must be finite and non-negative, got %g", ErrInvalidConfig, c.MeasurementNoise)
	}
	if !nonNegative(c.InitialVariance) {
		return fmt.Errorf("%w: initial variance must be finite and non-negative, got %g", ErrInvalidConfig, c.InitialVariance)
	}
	if math.IsNaN(c.MaxConditionNumber) || c.MaxConditionNumber <= 1 {
		return fmt.Errorf("%w: max condition number must exceed 1, got %g", ErrInvalidConfig, c.MaxConditionNumber)
	}
	return nil
}

func nonNegative(v float64) bool {
	return v >= 0 && !math.IsInf(v, 0)
}
