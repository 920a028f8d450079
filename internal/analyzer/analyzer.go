// Package analyzer compares the spectra of a raw signal and its filtered
// version so the effect of a filter can be read off in the frequency domain.
package analyzer

import (
	"fmt"
	"math"
	"sync"

	"github.com/mjibson/go-dsp/fft"
	"gonum.org/v1/gonum/floats"

	"github.com/guidoenr/sigdash/internal/wave"
)

// floorDB bounds reported attenuation when the filtered signal is silent.
const floorDB = -120.0

// Analyzer computes Hann-windowed one-sided magnitude spectra. The window
// and FFT buffer are cached per size; an Analyzer is safe for concurrent use.
type Analyzer struct {
	mu     sync.Mutex
	buffer []complex128
	window []float64
	gain   float64
}

// New creates an Analyzer.
func New() *Analyzer {
	return &Analyzer{}
}

// Analyze returns both spectra and the summary features. raw and filtered
// must have the same length of at least two samples and samplingRate must
// be positive.
func (a *Analyzer) Analyze(raw, filtered []float64, samplingRate float64) (Spectrum, Features, error) {
	if len(raw) < 2 || len(raw) != len(filtered) {
		return Spectrum{}, Features{}, fmt.Errorf("need two equal-length signals of at least 2 samples (got %d and %d): %w",
			len(raw), len(filtered), wave.ErrInvalidInput)
	}
	if !(samplingRate > 0) || math.IsInf(samplingRate, 0) {
		return Spectrum{}, Features{}, fmt.Errorf("sampling rate must be positive (got %g): %w", samplingRate, wave.ErrInvalidInput)
	}

	size := nextPow2(len(raw))
	a.mu.Lock()
	a.ensureWorkspace(size, len(raw))
	rawMag := a.magnitudes(raw)
	filteredMag := a.magnitudes(filtered)
	a.mu.Unlock()

	resolution := samplingRate / float64(size)
	freq := make([]float64, len(rawMag))
	for i := range freq {
		freq[i] = float64(i) * resolution
	}
	spec := Spectrum{Freq: freq, Raw: rawMag, Filtered: filteredMag, Resolution: resolution}
	return spec, summarize(spec), nil
}

// magnitudes expects a.mu to be held.
func (a *Analyzer) magnitudes(x []float64) []float64 {
	buffer := a.buffer
	for i := range buffer {
		if i < len(x) {
			buffer[i] = complex(x[i]*a.window[i], 0)
			continue
		}
		buffer[i] = 0
	}
	res := fft.FFT(buffer)

	half := len(res)/2 + 1
	out := make([]float64, half)
	for i := range out {
		m := cmag(res[i]) / a.gain
		if i > 0 && i < len(res)/2 {
			m *= 2
		}
		out[i] = m
	}
	return out
}

// ensureWorkspace sizes the FFT buffer and builds a Hann window over the
// n real samples; padding stays unwindowed zeros.
func (a *Analyzer) ensureWorkspace(size, n int) {
	if len(a.buffer) != size {
		a.buffer = make([]complex128, size)
	}
	if len(a.window) != n {
		a.window = make([]float64, n)
		for i := range a.window {
			a.window[i] = hann(float64(i), float64(n-1))
		}
		a.gain = floats.Sum(a.window)
	}
}

func summarize(s Spectrum) Features {
	f := Features{
		RawPower:      power(s.Raw),
		FilteredPower: power(s.Filtered),
	}
	if len(s.Raw) > 1 {
		f.Dominant = s.Freq[1+floats.MaxIdx(s.Raw[1:])]
	}
	f.AttenuationDB = ratioDB(f.FilteredPower, f.RawPower)
	return f
}

// BandPower sums squared magnitudes in [lo, hi) of one spectrum.
func BandPower(freq, mag []float64, lo, hi float64) float64 {
	if lo >= hi {
		return 0
	}
	sum := 0.0
	for i, fr := range freq {
		if fr >= lo && fr < hi {
			sum += mag[i] * mag[i]
		}
	}
	return sum
}

// BandAttenuation reports filtered/raw power in [lo, hi) in dB.
func (s Spectrum) BandAttenuation(lo, hi float64) float64 {
	return ratioDB(BandPower(s.Freq, s.Filtered, lo, hi), BandPower(s.Freq, s.Raw, lo, hi))
}

func power(mag []float64) float64 {
	return floats.Dot(mag, mag)
}

func ratioDB(num, den float64) float64 {
	if den <= 0 {
		return 0
	}
	if num <= 0 {
		return floorDB
	}
	return clamp(10*math.Log10(num/den), floorDB, -floorDB)
}

func hann(i, span float64) float64 {
	if span <= 0 {
		return 1
	}
	return 0.5 * (1.0 - math.Cos(2.0*math.Pi*i/span))
}

func cmag(c complex128) float64 {
	return math.Hypot(real(c), imag(c))
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
	return n + 1
}

func clamp(v, minVal, maxVal float64) float64 {
	if v < minVal {
		return minVal
	}
	if v > maxVal {
		return maxVal
	}
	return v
}
