// Package testutil holds numeric assertions shared by the signal tests.
package testutil

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/floats/scalar"
)

// RequireSliceNearlyEqual fails t at the first sample where got and want
// differ by more than eps, or when their lengths differ.
func RequireSliceNearlyEqual(t testing.TB, got, want []float64, eps float64) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("len(got)=%d len(want)=%d", len(got), len(want))
	}
	for i, g := range got {
		if !scalar.EqualWithinAbs(g, want[i], eps) {
			t.Fatalf("sample %d: got=%v want=%v eps=%v", i, g, want[i], eps)
		}
	}
}

// RequireSliceEqual is RequireSliceNearlyEqual with no tolerance.
func RequireSliceEqual(t testing.TB, got, want []float64) {
	t.Helper()
	RequireSliceNearlyEqual(t, got, want, 0)
}

// RequireFinite fails t on the first NaN or Inf sample.
func RequireFinite(t testing.TB, data []float64) {
	t.Helper()
	for i, v := range data {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			t.Fatalf("sample %d is %v", i, v)
		}
	}
}
