package linalg

import "math"

// Vec2 is a 2D vector, used for accelerations, positions and velocities.
type Vec2 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Add returns v + o.
func (v Vec2) Add(o Vec2) Vec2 { return Vec2{X: v.X + o.X, Y: v.Y + o.Y} }

// Sub returns v - o.
func (v Vec2) Sub(o Vec2) Vec2 { return Vec2{X: v.X - o.X, Y: v.Y - o.Y} }

// Scale returns s·v.
func (v Vec2) Scale(s float64) Vec2 { return Vec2{X: v.X * s, Y: v.Y * s} }

// Norm returns the Euclidean length of v.
func (v Vec2) Norm() float64 { return math.Hypot(v.X, v.Y) }

// IsFinite reports whether neither component is NaN or ±Inf.
func (v Vec2) IsFinite() bool { return isFinite(v.X) && isFinite(v.Y) }

// Vec4 is a 4D vector. For the estimator state the layout is [px, py, vx, vy].
type Vec4 [4]float64

// Add returns v + o.
func (v Vec4) Add(o Vec4) Vec4 {
	for i := range v {
		v[i] += o[i]
	}
	return v
}

// Sub returns v - o.
func (v Vec4) Sub(o Vec4) Vec4 {
	for i := range v {
		v[i] -= o[i]
	}
	return v
}

// Scale returns s·v.
func (v Vec4) Scale(s float64) Vec4 {
	for i := range v {
		v[i] *= s
	}
	return v
}

// Head returns the first two components.
func (v Vec4) Head() Vec2 { return Vec2{X: v[0], Y: v[1]} }

// Tail returns the last two components.
func (v Vec4) Tail() Vec2 { return Vec2{X: v[2], Y: v[3]} }

// IsFinite reports whether every component is finite.
func (v Vec4) IsFinite() bool {
	for _, x := range v {
		if !isFinite(x) {
			return false
		}
	}
	return true
}

func isFinite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}
