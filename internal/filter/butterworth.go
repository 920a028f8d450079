package filter

import (
	"fmt"
	"math"

	"github.com/guidoenr/sigdash/internal/wave"
)

// Section holds one second-order section with a0 normalised to 1, in
// Direct Form II Transposed convention:
//
//	y  = B0*x + d0
//	d0 = B1*x - A1*y + d1
//	d1 = B2*x - A2*y
type Section struct {
	B0, B1, B2 float64
	A1, A2     float64
}

// DCGain returns the section response at z = 1.
func (s Section) DCGain() float64 {
	return (s.B0 + s.B1 + s.B2) / (1 + s.A1 + s.A2)
}

// ButterworthLowpass designs an order-N digital Butterworth lowpass as a
// cascade of biquads (plus one first-order section for odd N), using the
// bilinear transform prewarped at cutoff.
func ButterworthLowpass(order int, cutoff, samplingRate float64) ([]Section, error) {
	if order < 1 {
		return nil, fmt.Errorf("butterworth order must be >= 1 (got %d): %w", order, wave.ErrInvalidInput)
	}
	if !(samplingRate > 0) || math.IsInf(samplingRate, 0) {
		return nil, fmt.Errorf("sampling rate must be > 0 (got %g): %w", samplingRate, wave.ErrInvalidInput)
	}
	wn := NormalizedCutoff(cutoff, samplingRate)
	if !(wn > 0 && wn < 1) {
		return nil, fmt.Errorf("normalized cutoff must be in (0, 1) (got %g): %w", wn, wave.ErrInvalidInput)
	}

	sections := make([]Section, 0, (order+1)/2)
	w0 := math.Pi * wn
	for k := order/2 - 1; k >= 0; k-- {
		sections = append(sections, lowpassBiquad(w0, butterworthQ(order, k)))
	}
	if order%2 != 0 {
		sections = append(sections, lowpassFirstOrder(w0))
	}
	return sections, nil
}

// butterworthQ is the quality factor of the k-th conjugate pole pair.
func butterworthQ(order, k int) float64 {
	theta := math.Pi * float64(2*k+1) / (2 * float64(order))
	s := math.Sin(theta)
	if s == 0 {
		return 1 / math.Sqrt2
	}
	return 1 / (2 * s)
}

func lowpassBiquad(w0, q float64) Section {
	sw, cw := math.Sincos(w0)
	alpha := sw / (2 * q)
	a0 := 1 + alpha
	return Section{
		B0: (1 - cw) / 2 / a0,
		B1: (1 - cw) / a0,
		B2: (1 - cw) / 2 / a0,
		A1: -2 * cw / a0,
		A2: (1 - alpha) / a0,
	}
}

func lowpassFirstOrder(w0 float64) Section {
	k := math.Tan(w0 / 2)
	norm := 1 / (1 + k)
	return Section{
		B0: k * norm,
		B1: k * norm,
		A1: (k - 1) * norm,
	}
}

// LowpassZeroPhase designs an order-N Butterworth lowpass at cutoff and
// runs it forward then backward over raw, cancelling the phase delay.
func LowpassZeroPhase(raw []float64, order int, cutoff, samplingRate float64) ([]float64, error) {
	sections, err := ButterworthLowpass(order, cutoff, samplingRate)
	if err != nil {
		return nil, err
	}
	return FiltFilt(sections, raw, 3*(order+1)), nil
}

// FiltFilt applies the cascade forward and backward. The input is extended
// at both ends by an odd reflection of padlen samples (clamped to len-1)
// and each pass starts from the cascade's steady state for the first
// sample, which keeps edge transients small.
func FiltFilt(sections []Section, x []float64, padlen int) []float64 {
	n := len(x)
	if n == 0 {
		return []float64{}
	}
	if padlen > n-1 {
		padlen = n - 1
	}
	if padlen < 0 {
		padlen = 0
	}

	ext := oddExtend(x, padlen)
	zi := steadyState(sections)

	y := runCascade(sections, zi, ext)
	reverse(y)
	y = runCascade(sections, zi, y)
	reverse(y)

	out := make([]float64, n)
	copy(out, y[padlen:padlen+n])
	return out
}

func oddExtend(x []float64, padlen int) []float64 {
	n := len(x)
	ext := make([]float64, n+2*padlen)
	first, last := x[0], x[n-1]
	for i := 0; i < padlen; i++ {
		ext[i] = 2*first - x[padlen-i]
		ext[padlen+n+i] = 2*last - x[n-2-i]
	}
	copy(ext[padlen:], x)
	return ext
}

// steadyState returns per-section delay states for a unit step input
// that has settled through the whole cascade.
func steadyState(sections []Section) [][2]float64 {
	zi := make([][2]float64, len(sections))
	scale := 1.0
	for i, s := range sections {
		g := s.DCGain()
		d1 := (s.B2 - s.A2*g) * scale
		d0 := (g - s.B0) * scale
		zi[i] = [2]float64{d0, d1}
		scale *= g
	}
	return zi
}

func runCascade(sections []Section, zi [][2]float64, in []float64) []float64 {
	out := make([]float64, len(in))
	copy(out, in)
	if len(in) == 0 {
		return out
	}
	x0 := in[0]
	for i, s := range sections {
		d0 := zi[i][0] * x0
		d1 := zi[i][1] * x0
		for j, x := range out {
			y := s.B0*x + d0
			d0 = s.B1*x - s.A1*y + d1
			d1 = s.B2*x - s.A2*y
			out[j] = y
		}
	}
	return out
}

func reverse(v []float64) {
	for i, j := 0, len(v)-1; i < j; i, j = i+1, j-1 {
		v[i], v[j] = v[j], v[i]
	}
}
