// Package testutil provides shared test utilities and fixtures.
//
// The helpers here cover the numeric assertions that recur across the fusion,
// driver and record tests.
package testutil

import (
	"math"
	"testing"

	"github.com/banshee-data/sensorfusion/internal/linalg"
)

// AssertNoError fails the test if err is not nil.
func AssertNoError(t testing.TB, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil.
func AssertError(t testing.TB, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

// AssertFiniteMat4 fails the test if any entry of m is NaN or infinite.
func AssertFiniteMat4(t testing.TB, m linalg.Mat4) {
	t.Helper()
	for i, v := range m {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			t.Fatalf("entry (%d,%d) is not finite: %v", i/4, i%4, v)
		}
	}
}

// AssertSymmetric fails the test if m differs from its transpose by more than
// tol in any entry.
func AssertSymmetric(t testing.TB, m linalg.Mat4, tol float64) {
	t.Helper()
	for i := 0; i < 4; i++ {
		for j := i + 1; j < 4; j++ {
			if d := math.Abs(m.At(i, j) - m.At(j, i)); d > tol {
				t.Errorf("entries (%d,%d) and (%d,%d) differ by %g", i, j, j, i, d)
			}
		}
	}
}

// AssertWithin fails the test if |got-want| > tol.
func AssertWithin(t testing.TB, name string, got, want, tol float64) {
	t.Helper()
	if math.Abs(got-want) > tol {
		t.Errorf("%s = %v, want %v ± %v", name, got, want, tol)
	}
}
