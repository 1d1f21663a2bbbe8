package linalg

import "gonum.org/v1/gonum/mat"

// Dense copies m into a new gonum dense matrix.
func (m Mat4) Dense() *mat.Dense {
	data := make([]float64, len(m))
	copy(data, m[:])
	return mat.NewDense(4, 4, data)
}

// SymDense copies the symmetric part of m into a new gonum symmetric
// matrix. Only the upper triangle of the averaged matrix is read by gonum,
// so callers should not rely on it to detect asymmetry.
func (m Mat4) SymDense() *mat.SymDense {
	s := m.Symmetrize()
	data := make([]float64, len(s))
	copy(data, s[:])
	return mat.NewSymDense(4, data)
}

// Mat4FromDense copies a 4×4 gonum matrix into a Mat4. It panics if the
// dimensions do not match, like the gonum accessors it wraps.
func Mat4FromDense(d mat.Matrix) Mat4 {
	r, c := d.Dims()
	if r != 4 || c != 4 {
		panic(mat.ErrShape)
	}
	var m Mat4
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			m[i*4+j] = d.At(i, j)
		}
	}
	return m
}

// Dense copies m into a new gonum dense matrix.
func (m Mat2) Dense() *mat.Dense {
	return mat.NewDense(2, 2, []float64{m[0], m[1], m[2], m[3]})
}
