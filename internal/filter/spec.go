package filter

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/guidoenr/sigdash/internal/wave"
)

// Kind selects one of the smoothing transforms.
type Kind string

const (
	KindGaussian      Kind = "gaussian-convolution"
	KindMovingAverage Kind = "moving-average"
	KindButterworth   Kind = "low-pass-butterworth"
)

var kindNames = []string{
	string(KindGaussian),
	string(KindMovingAverage),
	string(KindButterworth),
}

// Kinds returns the supported filter kinds.
func Kinds() []string {
	out := make([]string, len(kindNames))
	copy(out, kindNames)
	sort.Strings(out)
	return out
}

// ParseKind accepts canonical kind names plus the short tags used by the
// dashboard dropdowns ("MA", "BW", "gaussian").
func ParseKind(name string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case string(KindGaussian), "gaussian", "gauss":
		return KindGaussian, nil
	case string(KindMovingAverage), "ma", "moving", "boxcar":
		return KindMovingAverage, nil
	case string(KindButterworth), "bw", "butterworth", "lowpass", "low-pass":
		return KindButterworth, nil
	default:
		return "", fmt.Errorf("unknown filter kind %q: %w", name, wave.ErrInvalidInput)
	}
}

// Spec is a tagged filter choice. Sigma drives the gaussian kernel; Window
// is the moving-average width and, for the Butterworth case, both the
// filter order and the cutoff divisor. Fractional windows are truncated.
type Spec struct {
	Kind   Kind    `json:"kind"`
	Sigma  float64 `json:"sigma"`
	Window float64 `json:"window"`
}

// MaxWindow bounds the window, which is also the Butterworth order.
const MaxWindow = 50

// WindowSize returns the truncated integer window.
func (s Spec) WindowSize() int {
	if math.IsNaN(s.Window) || s.Window >= math.MaxInt32 {
		return 0
	}
	return int(s.Window)
}

// Validate checks the parameters the selected kind depends on.
func (s Spec) Validate() error {
	switch s.Kind {
	case KindGaussian:
		if !(s.Sigma > 0) || math.IsInf(s.Sigma, 0) {
			return fmt.Errorf("gaussian sigma must be > 0 (got %g): %w", s.Sigma, wave.ErrInvalidInput)
		}
	case KindMovingAverage, KindButterworth:
		if n := s.WindowSize(); n < 1 || n > MaxWindow {
			return fmt.Errorf("%s window must be in [1, %d] (got %g): %w", s.Kind, MaxWindow, s.Window, wave.ErrInvalidInput)
		}
	default:
		return fmt.Errorf("unknown filter kind %q: %w", s.Kind, wave.ErrInvalidInput)
	}
	return nil
}

// Cutoff derives the Butterworth cutoff from the sampling rate and window,
// clamped to 0.99 of Nyquist so the normalised cutoff stays below 1.
func Cutoff(samplingRate float64, window int) float64 {
	if window < 1 {
		window = 1
	}
	return math.Min(samplingRate/float64(window), 0.99*samplingRate/2)
}

// NormalizedCutoff divides a cutoff by the Nyquist frequency.
func NormalizedCutoff(cutoff, samplingRate float64) float64 {
	return cutoff / (0.5 * samplingRate)
}
