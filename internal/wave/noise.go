package wave

import (
	"fmt"
	"math"
	"math/rand"
	"time"
)

// NoiseGenerator draws normally distributed noise vectors from its own source.
type NoiseGenerator struct {
	rng  *rand.Rand
	seed int64
}

// NewNoiseGenerator returns a generator whose sequence is fully determined by seed.
func NewNoiseGenerator(seed int64) *NoiseGenerator {
	return &NoiseGenerator{
		rng:  rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// NewTimeSeededNoiseGenerator seeds from the wall clock, matching an unseeded run.
func NewTimeSeededNoiseGenerator() *NoiseGenerator {
	return NewNoiseGenerator(time.Now().UnixNano())
}

// Seed reports the seed the generator started from.
func (g *NoiseGenerator) Seed() int64 {
	return g.seed
}

// Sample draws length independent N(mean, std²) values. A zero std yields
// a vector filled with mean.
func (g *NoiseGenerator) Sample(length int, mean, std float64) ([]float64, error) {
	if length < 0 {
		return nil, fmt.Errorf("noise length must be >= 0 (got %d): %w", length, ErrInvalidInput)
	}
	if std < 0 || math.IsNaN(std) || math.IsInf(std, 0) {
		return nil, fmt.Errorf("noise std must be finite and >= 0 (got %g): %w", std, ErrInvalidInput)
	}
	if math.IsNaN(mean) || math.IsInf(mean, 0) {
		return nil, fmt.Errorf("noise mean must be finite (got %g): %w", mean, ErrInvalidInput)
	}

	out := make([]float64, length)
	if std == 0 {
		for i := range out {
			out[i] = mean
		}
		return out, nil
	}
	for i := range out {
		out[i] = mean + std*g.rng.NormFloat64()
	}
	return out, nil
}
