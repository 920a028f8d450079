package testutil

import "testing"

func TestRequireHelpersAcceptMatchingInput(t *testing.T) {
	RequireSliceNearlyEqual(t, []float64{1, 2}, []float64{1 + 1e-12, 2}, 1e-9)
	RequireSliceEqual(t, []float64{0.5, -1}, []float64{0.5, -1})
	RequireFinite(t, []float64{0, 1, -1})
	RequireFinite(t, nil)
}
