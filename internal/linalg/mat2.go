package linalg

import "math"

// Mat2 is a 2×2 matrix, row-major.
type Mat2 [4]float64

// Identity2 returns the 2×2 identity.
func Identity2() Mat2 { return Mat2{1, 0, 0, 1} }

// At returns element (i, j).
func (m Mat2) At(i, j int) float64 { return m[i*2+j] }

// Add returns m + o.
func (m Mat2) Add(o Mat2) Mat2 {
	for i := range m {
		m[i] += o[i]
	}
	return m
}

// Scale returns s·m.
func (m Mat2) Scale(s float64) Mat2 {
	for i := range m {
		m[i] *= s
	}
	return m
}

// Mul returns m·o.
func (m Mat2) Mul(o Mat2) Mat2 {
	return Mat2{
		m[0]*o[0] + m[1]*o[2], m[0]*o[1] + m[1]*o[3],
		m[2]*o[0] + m[3]*o[2], m[2]*o[1] + m[3]*o[3],
	}
}

// MulVec returns m·v.
func (m Mat2) MulVec(v Vec2) Vec2 {
	return Vec2{X: m[0]*v.X + m[1]*v.Y, Y: m[2]*v.X + m[3]*v.Y}
}

// T returns the transpose.
func (m Mat2) T() Mat2 { return Mat2{m[0], m[2], m[1], m[3]} }

// Det returns the determinant.
func (m Mat2) Det() float64 { return m[0]*m[3] - m[1]*m[2] }

// Inverse returns m⁻¹. ok is false when the determinant is zero or the
// result is not finite; the returned matrix is then the zero matrix.
func (m Mat2) Inverse() (inv Mat2, ok bool) {
	det := m.Det()
	if det == 0 || !isFinite(det) {
		return Mat2{}, false
	}
	inv = Mat2{m[3] / det, -m[1] / det, -m[2] / det, m[0] / det}
	if !inv.IsFinite() {
		return Mat2{}, false
	}
	return inv, true
}

// Norm1 returns the maximum absolute column sum.
func (m Mat2) Norm1() float64 {
	c0 := math.Abs(m[0]) + math.Abs(m[2])
	c1 := math.Abs(m[1]) + math.Abs(m[3])
	return math.Max(c0, c1)
}

// Cond returns the 1-norm condition number ‖m‖₁·‖m⁻¹‖₁, or +Inf when m is
// not invertible.
func (m Mat2) Cond() float64 {
	inv, ok := m.Inverse()
	if !ok {
		return math.Inf(1)
	}
	return m.Norm1() * inv.Norm1()
}

// IsFinite reports whether every element is finite.
func (m Mat2) IsFinite() bool {
	for _, x := range m {
		if !isFinite(x) {
			return false
		}
	}
	return true
}
