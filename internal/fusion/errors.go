package fusion

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidTimeStep is returned by New when dt is not a positive finite number.
	ErrInvalidTimeStep = errors.New("time step must be positive and finite")
	// ErrInvalidConfig is returned by New when the noise configuration is unusable.
	ErrInvalidConfig = errors.New("invalid estimator configuration")
	// ErrNonFiniteInput is returned when a reading contains NaN or ±Inf.
	ErrNonFiniteInput = errors.New("reading is not finite")
	// ErrNonFiniteState is returned when a step would produce NaN or ±Inf.
	ErrNonFiniteState = errors.New("step produced a non-finite estimate")
	// ErrSingularInnovation is matched by every *SingularInnovationError.
	ErrSingularInnovation = errors.New("innovation covariance is singular")
	// ErrCovarianceAsymmetric reports a covariance that lost symmetry.
	ErrCovarianceAsymmetric = errors.New("covariance is not symmetric")
	// ErrCovarianceIndefinite reports a covariance with a negative eigenvalue.
	ErrCovarianceIndefinite = errors.New("covariance is not positive semi-definite")
)

// SingularInnovationError describes an innovation covariance S that could
// not be inverted safely during Update.
type SingularInnovationError struct {
	Det  float64 // determinant of S
	Cond float64 // 1-norm condition number of S (+Inf when not invertible)
}

func (e *SingularInnovationError) Error() string {
	return fmt.Sprintf("%v (det=%g, cond=%g)", ErrSingularInnovation, e.Det, e.Cond)
}

// Unwrap lets errors.Is(err, ErrSingularInnovation) match.
func (e *SingularInnovationError) Unwrap() error { return ErrSingularInnovation }

// IsRecoverable reports whether err is an update rejection that a caller can
// skip and continue from: the estimate is unchanged and remains usable.
func IsRecoverable(err error) bool {
	return errors.Is(err, ErrSingularInnovation) ||
		errors.Is(err, ErrCovarianceIndefinite) ||
		errors.Is(err, ErrCovarianceAsymmetric)
}
