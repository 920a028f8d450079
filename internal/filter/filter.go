// Package filter implements the smoothing transforms applied to the raw
// signal. Every transform is a pure function returning a new slice of the
// same length as its input.
package filter

import (
	"fmt"

	"github.com/guidoenr/sigdash/internal/wave"
)

// Apply runs the transform selected by spec over raw. samplingRate is only
// consulted by the Butterworth kind.
func Apply(raw []float64, spec Spec, samplingRate float64) ([]float64, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	switch spec.Kind {
	case KindGaussian:
		return Gaussian(raw, spec.Sigma)
	case KindMovingAverage:
		return MovingAverage(raw, spec.WindowSize())
	case KindButterworth:
		window := spec.WindowSize()
		return LowpassZeroPhase(raw, window, Cutoff(samplingRate, window), samplingRate)
	default:
		return nil, fmt.Errorf("unknown filter kind %q: %w", spec.Kind, wave.ErrInvalidInput)
	}
}
