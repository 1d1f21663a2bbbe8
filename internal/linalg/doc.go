// Package linalg provides the fixed-size vector and matrix types used by
// the position/velocity estimator.
//
// All types are plain arrays stored row-major (element (i,j) of an r×c
// matrix lives at index i*c+j), so every operation works on values and
// never allocates. Key types: Vec2, Vec4, Mat2, Mat4, Mat24 (2×4) and
// Mat42 (4×2).
//
// Conversions to gonum types live in gonum.go; they allocate and are only
// meant for diagnostics such as eigenvalue checks.
package linalg
