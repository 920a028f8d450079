package params

import (
	"fmt"

	"github.com/guidoenr/sigdash/internal/wave"
)

// NoiseSource draws noise vectors; *wave.NoiseGenerator satisfies it.
type NoiseSource interface {
	Sample(length int, mean, std float64) ([]float64, error)
}

// Store owns the current Parameters and the noise realization that goes
// with them. It is driven by a single logical worker and does no locking;
// every mutation either commits completely or leaves the store untouched.
type Store struct {
	current Parameters
	noise   []float64
	length  int
	source  NoiseSource
}

// NewStore creates a store at Defaults with a freshly drawn noise vector of length.
func NewStore(length int, source NoiseSource) (*Store, error) {
	if length < 1 {
		return nil, fmt.Errorf("noise length must be >= 1 (got %d): %w", length, wave.ErrInvalidInput)
	}
	if source == nil {
		return nil, fmt.Errorf("noise source is required: %w", wave.ErrInvalidInput)
	}
	s := &Store{
		current: Defaults(),
		length:  length,
		source:  source,
	}
	if err := s.RegenerateNoise(); err != nil {
		return nil, err
	}
	return s, nil
}

// Get returns the current parameters.
func (s *Store) Get() Parameters {
	return s.current
}

// Noise returns a copy of the current noise vector.
func (s *Store) Noise() []float64 {
	out := make([]float64, len(s.noise))
	copy(out, s.noise)
	return out
}

// Set validates and stores one field. regenerate is true only for the
// noise mean and std fields, telling the caller to RegenerateNoise before
// recomputing; every other field is a pure recompute.
func (s *Store) Set(field Field, value any) (regenerate bool, err error) {
	next, err := s.current.With(field, value)
	if err != nil {
		return false, err
	}
	s.current = next
	return field == FieldNoiseMean || field == FieldNoiseStd, nil
}

// Apply replaces the whole parameter set after validating it. The noise is
// redrawn when mean or std differ from the current values.
func (s *Store) Apply(p Parameters) (regenerated bool, err error) {
	if err := p.Validate(); err != nil {
		return false, err
	}
	if !s.current.NoiseChanged(p) {
		s.current = p
		return false, nil
	}
	noise, err := s.source.Sample(s.length, p.NoiseMean, p.NoiseStd)
	if err != nil {
		return false, err
	}
	s.current = p
	s.noise = noise
	return true, nil
}

// RegenerateNoise replaces the noise vector using the current mean and std.
func (s *Store) RegenerateNoise() error {
	noise, err := s.source.Sample(s.length, s.current.NoiseMean, s.current.NoiseStd)
	if err != nil {
		return err
	}
	if len(noise) != s.length {
		return fmt.Errorf("noise source returned %d samples, want %d: %w", len(noise), s.length, wave.ErrInvalidInput)
	}
	s.noise = noise
	return nil
}

// Reset restores every field to Defaults and redraws the noise.
func (s *Store) Reset() (Parameters, error) {
	defaults := Defaults()
	noise, err := s.source.Sample(s.length, defaults.NoiseMean, defaults.NoiseStd)
	if err != nil {
		return s.current, err
	}
	s.current = defaults
	s.noise = noise
	return defaults, nil
}
