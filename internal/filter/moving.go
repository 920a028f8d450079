package filter

import (
	"fmt"

	"gonum.org/v1/gonum/floats"

	"github.com/guidoenr/sigdash/internal/wave"
)

// MovingAverage applies a boxcar of window samples. Output i averages
// raw[i-window/2 : i-window/2+window], replicating the boundary samples
// where the box runs off either end.
func MovingAverage(raw []float64, window int) ([]float64, error) {
	if window < 1 {
		return nil, fmt.Errorf("moving-average window must be >= 1 (got %d): %w", window, wave.ErrInvalidInput)
	}
	n := len(raw)
	out := make([]float64, n)
	if n == 0 {
		return out, nil
	}

	lead := window / 2
	ext := make([]float64, n+window-1)
	for i := range ext {
		src := i - lead
		if src < 0 {
			src = 0
		} else if src >= n {
			src = n - 1
		}
		ext[i] = raw[src]
	}

	size := float64(window)
	for i := range out {
		out[i] = floats.Sum(ext[i:i+window]) / size
	}
	return out, nil
}
