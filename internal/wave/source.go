package wave

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// Generate evaluates amplitude*sin(2π*frequency*t + phase) over grid and,
// when showNoise is set, adds noise elementwise. The inputs are not modified.
func Generate(grid []float64, amplitude, frequency, phase float64, noise []float64, showNoise bool) ([]float64, error) {
	if showNoise && len(noise) != len(grid) {
		return nil, fmt.Errorf("noise length %d does not match grid length %d: %w", len(noise), len(grid), ErrInvalidInput)
	}

	pure := make([]float64, len(grid))
	omega := 2 * math.Pi * frequency
	for i, t := range grid {
		pure[i] = amplitude * math.Sin(omega*t+phase)
	}
	if !showNoise {
		return pure, nil
	}
	return floats.AddTo(make([]float64, len(pure)), pure, noise), nil
}
