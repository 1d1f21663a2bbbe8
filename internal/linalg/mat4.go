package linalg

import "math"

// Mat4 is a 4×4 matrix, row-major. It holds the estimator covariance and
// the state transition.
type Mat4 [16]float64

// Identity4 returns the 4×4 identity.
func Identity4() Mat4 { return Diag4(Vec4{1, 1, 1, 1}) }

// Diag4 returns the diagonal matrix with d on the diagonal.
func Diag4(d Vec4) Mat4 {
	var m Mat4
	for i := 0; i < 4; i++ {
		m[i*4+i] = d[i]
	}
	return m
}

// At returns element (i, j).
func (m Mat4) At(i, j int) float64 { return m[i*4+j] }

// Set assigns element (i, j).
func (m *Mat4) Set(i, j int, v float64) { m[i*4+j] = v }

// Diagonal returns the diagonal elements.
func (m Mat4) Diagonal() Vec4 { return Vec4{m[0], m[5], m[10], m[15]} }

// Add returns m + o.
func (m Mat4) Add(o Mat4) Mat4 {
	for i := range m {
		m[i] += o[i]
	}
	return m
}

// Sub returns m - o.
func (m Mat4) Sub(o Mat4) Mat4 {
	for i := range m {
		m[i] -= o[i]
	}
	return m
}

// Scale returns s·m.
func (m Mat4) Scale(s float64) Mat4 {
	for i := range m {
		m[i] *= s
	}
	return m
}

// Mul returns m·o.
func (m Mat4) Mul(o Mat4) Mat4 {
	var out Mat4
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			var sum float64
			for k := 0; k < 4; k++ {
				sum += m[i*4+k] * o[k*4+j]
			}
			out[i*4+j] = sum
		}
	}
	return out
}

// MulVec returns m·v.
func (m Mat4) MulVec(v Vec4) Vec4 {
	var out Vec4
	for i := 0; i < 4; i++ {
		out[i] = m[i*4+0]*v[0] + m[i*4+1]*v[1] + m[i*4+2]*v[2] + m[i*4+3]*v[3]
	}
	return out
}

// MulMat42 returns m·o, a 4×2 matrix.
func (m Mat4) MulMat42(o Mat42) Mat42 {
	var out Mat42
	for i := 0; i < 4; i++ {
		for j := 0; j < 2; j++ {
			var sum float64
			for k := 0; k < 4; k++ {
				sum += m[i*4+k] * o[k*2+j]
			}
			out[i*2+j] = sum
		}
	}
	return out
}

// T returns the transpose.
func (m Mat4) T() Mat4 {
	var out Mat4
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			out[j*4+i] = m[i*4+j]
		}
	}
	return out
}

// Symmetrize returns (m + mᵀ)/2.
func (m Mat4) Symmetrize() Mat4 {
	out := m
	for i := 0; i < 4; i++ {
		for j := i + 1; j < 4; j++ {
			avg := 0.5 * (m[i*4+j] + m[j*4+i])
			out[i*4+j] = avg
			out[j*4+i] = avg
		}
	}
	return out
}

// MaxAsymmetry returns max |m(i,j) - m(j,i)|.
func (m Mat4) MaxAsymmetry() float64 {
	var worst float64
	for i := 0; i < 4; i++ {
		for j := i + 1; j < 4; j++ {
			if d := math.Abs(m[i*4+j] - m[j*4+i]); d > worst {
				worst = d
			}
		}
	}
	return worst
}

// IsFinite reports whether every element is finite.
func (m Mat4) IsFinite() bool {
	for _, x := range m {
		if !isFinite(x) {
			return false
		}
	}
	return true
}
