package fusion

import (
	"fmt"
	"math"

	"github.com/banshee-data/sensorfusion/internal/linalg"
	"gonum.org/v1/gonum/mat"
)

// CheckCovariance reports whether p is usable as a covariance: every
// element finite, symmetric to within SymmetryTolerance (relative to the
// largest diagonal element) and with no eigenvalue below -PSDTolerance
// (same scale).
func CheckCovariance(p linalg.Mat4) error {
	if !p.IsFinite() {
		return ErrNonFiniteState
	}

	scale := 1.0
	for _, d := range p.Diagonal() {
		if math.Abs(d) > scale {
			scale = math.Abs(d)
		}
	}

	if asym := p.MaxAsymmetry(); asym > SymmetryTolerance*scale {
		return fmt.Errorf("%w: max asymmetry %g", ErrCovarianceAsymmetric, asym)
	}

	minEig, err := MinEigenvalue(p)
	if err != nil {
		return err
	}
	if minEig < -PSDTolerance*scale {
		return fmt.Errorf("%w: smallest eigenvalue %g", ErrCovarianceIndefinite, minEig)
	}
	return nil
}

// MinEigenvalue returns the smallest eigenvalue of the symmetric part of p.
func MinEigenvalue(p linalg.Mat4) (float64, error) {
	var eig mat.EigenSym
	if ok := eig.Factorize(p.SymDense(), false); !ok {
		return 0, fmt.Errorf("%w: eigen decomposition did not converge", ErrCovarianceIndefinite)
	}
	vals := eig.Values(nil)
	minEig := vals[0]
	for _, v := range vals[1:] {
		if v < minEig {
			minEig = v
		}
	}
	return minEig, nil
}
