package wave

import (
	"fmt"
	"math"
)

// DefaultGridSize is the number of samples in the demo time grid.
const DefaultGridSize = 500

// Linspace returns n evenly spaced samples over [start, stop], endpoints included.
func Linspace(start, stop float64, n int) ([]float64, error) {
	if n < 1 {
		return nil, fmt.Errorf("grid size must be >= 1 (got %d): %w", n, ErrInvalidInput)
	}
	if math.IsNaN(start) || math.IsNaN(stop) || math.IsInf(start, 0) || math.IsInf(stop, 0) {
		return nil, fmt.Errorf("grid bounds must be finite: %w", ErrInvalidInput)
	}
	out := make([]float64, n)
	if n == 1 {
		out[0] = start
		return out, nil
	}
	step := (stop - start) / float64(n-1)
	for i := range out {
		out[i] = start + float64(i)*step
	}
	out[n-1] = stop
	return out, nil
}

// Grid returns the demo time grid of n samples over [0, 2π].
func Grid(n int) ([]float64, error) {
	return Linspace(0, 2*math.Pi, n)
}

// SamplingRate derives samples per unit time from the spacing of the first two grid points.
func SamplingRate(grid []float64) (float64, error) {
	if len(grid) < 2 {
		return 0, fmt.Errorf("sampling rate needs at least 2 grid points (got %d): %w", len(grid), ErrInvalidInput)
	}
	dt := grid[1] - grid[0]
	if dt <= 0 || math.IsNaN(dt) {
		return 0, fmt.Errorf("grid spacing must be positive (got %g): %w", dt, ErrInvalidInput)
	}
	return 1.0 / dt, nil
}
