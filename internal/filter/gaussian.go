package filter

import (
	"fmt"
	"math"

	"github.com/mjibson/go-dsp/fft"
	"gonum.org/v1/gonum/floats"

	"github.com/guidoenr/sigdash/internal/wave"
)

// GaussianWindow returns a size-point Gaussian window with standard
// deviation sigma, centred at (size-1)/2 and peaking at 1.
func GaussianWindow(size int, sigma float64) []float64 {
	w := make([]float64, size)
	center := float64(size-1) / 2
	for n := range w {
		z := (float64(n) - center) / sigma
		w[n] = math.Exp(-0.5 * z * z)
	}
	return w
}

// Gaussian convolves raw with a unit-sum Gaussian kernel as long as the
// signal itself. Output keeps the centre of the full convolution, so
// samples near the edges see implicit zeros beyond the signal.
func Gaussian(raw []float64, sigma float64) ([]float64, error) {
	if !(sigma > 0) || math.IsInf(sigma, 0) {
		return nil, fmt.Errorf("gaussian sigma must be > 0 (got %g): %w", sigma, wave.ErrInvalidInput)
	}
	n := len(raw)
	if n == 0 {
		return []float64{}, nil
	}

	kernel := GaussianWindow(n, sigma)
	floats.Scale(1/floats.Sum(kernel), kernel)

	size := nextPow2(2*n - 1)
	x := make([]complex128, size)
	y := make([]complex128, size)
	for i := 0; i < n; i++ {
		x[i] = complex(raw[i], 0)
		y[i] = complex(kernel[i], 0)
	}
	full := fft.Convolve(x, y)

	offset := (n - 1) / 2
	out := make([]float64, n)
	for i := range out {
		out[i] = real(full[i+offset])
	}
	return out, nil
}

func nextPow2(n int) int {
	if n <= 0 {
		return 1
	}
	n--
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n |= n >> 32
	return n + 1
}
