package linalg

// Mat24 is a 2×4 matrix, row-major. It is the shape of a position-only
// observation matrix over the 4D state.
type Mat24 [8]float64

// Mat42 is a 4×2 matrix, row-major. It is the shape of the gain.
type Mat42 [8]float64

// At returns element (i, j).
func (m Mat24) At(i, j int) float64 { return m[i*4+j] }

// T returns the 4×2 transpose.
func (m Mat24) T() Mat42 {
	var out Mat42
	for i := 0; i < 2; i++ {
		for j := 0; j < 4; j++ {
			out[j*2+i] = m[i*4+j]
		}
	}
	return out
}

// MulVec returns m·v.
func (m Mat24) MulVec(v Vec4) Vec2 {
	return Vec2{
		X: m[0]*v[0] + m[1]*v[1] + m[2]*v[2] + m[3]*v[3],
		Y: m[4]*v[0] + m[5]*v[1] + m[6]*v[2] + m[7]*v[3],
	}
}

// MulMat4 returns m·o, a 2×4 matrix.
func (m Mat24) MulMat4(o Mat4) Mat24 {
	var out Mat24
	for i := 0; i < 2; i++ {
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

// MulMat42 returns m·o, a 2×2 matrix.
func (m Mat24) MulMat42(o Mat42) Mat2 {
	var out Mat2
	for i := 0; i < 2; i++ {
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

// At returns element (i, j).
func (m Mat42) At(i, j int) float64 { return m[i*2+j] }

// T returns the 2×4 transpose.
func (m Mat42) T() Mat24 {
	var out Mat24
	for i := 0; i < 4; i++ {
		for j := 0; j < 2; j++ {
			out[j*4+i] = m[i*2+j]
		}
	}
	return out
}

// MulVec returns m·v.
func (m Mat42) MulVec(v Vec2) Vec4 {
	var out Vec4
	for i := 0; i < 4; i++ {
		out[i] = m[i*2+0]*v.X + m[i*2+1]*v.Y
	}
	return out
}

// MulMat2 returns m·o, a 4×2 matrix.
func (m Mat42) MulMat2(o Mat2) Mat42 {
	var out Mat42
	for i := 0; i < 4; i++ {
		out[i*2+0] = m[i*2+0]*o[0] + m[i*2+1]*o[2]
		out[i*2+1] = m[i*2+0]*o[1] + m[i*2+1]*o[3]
	}
	return out
}

// MulMat24 returns m·o, a 4×4 matrix.
func (m Mat42) MulMat24(o Mat24) Mat4 {
	var out Mat4
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			out[i*4+j] = m[i*2+0]*o[0*4+j] + m[i*2+1]*o[1*4+j]
		}
	}
	return out
}
