package params

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/guidoenr/sigdash/internal/filter"
	"github.com/guidoenr/sigdash/internal/wave"
)

// Parameters is the full set of adjustable values driving the signal demo.
type Parameters struct {
	Amplitude float64     `json:"amplitude"`
	Frequency float64     `json:"frequency"`
	Phase     float64     `json:"phase"`
	NoiseMean float64     `json:"noiseMean"`
	NoiseStd  float64     `json:"noiseStd"`
	ShowNoise bool        `json:"showNoise"`
	Filter    filter.Spec `json:"filter"`
}

// Defaults returns the values every control starts from and returns to on reset.
func Defaults() Parameters {
	return Parameters{
		Amplitude: 1.0,
		Frequency: 1.0,
		Phase:     0.0,
		NoiseMean: 0.0,
		NoiseStd:  0.1,
		ShowNoise: true,
		Filter: filter.Spec{
			Kind:   filter.KindMovingAverage,
			Sigma:  2.0,
			Window: 10,
		},
	}
}

// Validate checks every field against its domain.
func (p Parameters) Validate() error {
	switch {
	case !finite(p.Amplitude) || p.Amplitude < 0:
		return fmt.Errorf("amplitude must be >= 0 (got %g): %w", p.Amplitude, wave.ErrInvalidInput)
	case !finite(p.Frequency) || p.Frequency <= 0:
		return fmt.Errorf("frequency must be > 0 (got %g): %w", p.Frequency, wave.ErrInvalidInput)
	case !finite(p.Phase) || p.Phase < 0 || p.Phase >= 2*math.Pi:
		return fmt.Errorf("phase must be in [0, 2π) (got %g): %w", p.Phase, wave.ErrInvalidInput)
	case !finite(p.NoiseMean):
		return fmt.Errorf("noise mean must be finite (got %g): %w", p.NoiseMean, wave.ErrInvalidInput)
	case !finite(p.NoiseStd) || p.NoiseStd < 0:
		return fmt.Errorf("noise std must be >= 0 (got %g): %w", p.NoiseStd, wave.ErrInvalidInput)
	}
	// sigma is kept valid even while another kind is selected so switching
	// kinds never lands on a broken spec.
	if !(p.Filter.Sigma > 0) || math.IsInf(p.Filter.Sigma, 0) {
		return fmt.Errorf("gaussian sigma must be > 0 (got %g): %w", p.Filter.Sigma, wave.ErrInvalidInput)
	}
	if n := p.Filter.WindowSize(); n < 1 || n > filter.MaxWindow {
		return fmt.Errorf("filter window must be in [1, %d] (got %g): %w", filter.MaxWindow, p.Filter.Window, wave.ErrInvalidInput)
	}
	return p.Filter.Validate()
}

// NoiseChanged reports whether q needs a different noise realization than p.
func (p Parameters) NoiseChanged(q Parameters) bool {
	return p.NoiseMean != q.NoiseMean || p.NoiseStd != q.NoiseStd
}

// Field names an individually settable parameter.
type Field string

const (
	FieldAmplitude    Field = "amplitude"
	FieldFrequency    Field = "frequency"
	FieldPhase        Field = "phase"
	FieldNoiseMean    Field = "noise-mean"
	FieldNoiseStd     Field = "noise-std"
	FieldShowNoise    Field = "show-noise"
	FieldFilterKind   Field = "filter-type"
	FieldFilterWindow Field = "filter-window"
	FieldFilterSigma  Field = "filter-sigma"
)

// Fields lists every settable field in display order.
func Fields() []Field {
	return []Field{
		FieldAmplitude,
		FieldFrequency,
		FieldPhase,
		FieldNoiseMean,
		FieldNoiseStd,
		FieldShowNoise,
		FieldFilterKind,
		FieldFilterWindow,
		FieldFilterSigma,
	}
}

// ParseField resolves a field name, accepting a few spellings used by UIs.
func ParseField(name string) (Field, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	key = strings.ReplaceAll(key, "_", "-")
	switch key {
	case "amplitude", "amp":
		return FieldAmplitude, nil
	case "frequency", "freq":
		return FieldFrequency, nil
	case "phase":
		return FieldPhase, nil
	case "noise-mean", "noisemean", "mean":
		return FieldNoiseMean, nil
	case "noise-std", "noisestd", "std":
		return FieldNoiseStd, nil
	case "show-noise", "shownoise":
		return FieldShowNoise, nil
	case "filter-type", "filter-kind", "filter", "kind":
		return FieldFilterKind, nil
	case "filter-window", "window", "window-size":
		return FieldFilterWindow, nil
	case "filter-sigma", "sigma", "gaussian":
		return FieldFilterSigma, nil
	default:
		return "", fmt.Errorf("unknown parameter %q: %w", name, wave.ErrInvalidInput)
	}
}

// With returns a copy of p with field set to value. Numeric fields accept
// float64, int or numeric strings; show-noise accepts bool or "true"/"false";
// filter-type accepts a kind name. The copy is validated before returning.
func (p Parameters) With(field Field, value any) (Parameters, error) {
	next := p
	switch field {
	case FieldShowNoise:
		b, err := toBool(value)
		if err != nil {
			return p, fmt.Errorf("%s: %w", field, err)
		}
		next.ShowNoise = b
	case FieldFilterKind:
		name, ok := value.(string)
		if !ok {
			return p, fmt.Errorf("%s expects a string (got %T): %w", field, value, wave.ErrInvalidInput)
		}
		kind, err := filter.ParseKind(name)
		if err != nil {
			return p, err
		}
		next.Filter.Kind = kind
	default:
		v, err := toFloat(value)
		if err != nil {
			return p, fmt.Errorf("%s: %w", field, err)
		}
		switch field {
		case FieldAmplitude:
			next.Amplitude = v
		case FieldFrequency:
			next.Frequency = v
		case FieldPhase:
			next.Phase = v
		case FieldNoiseMean:
			next.NoiseMean = v
		case FieldNoiseStd:
			next.NoiseStd = v
		case FieldFilterWindow:
			next.Filter.Window = v
		case FieldFilterSigma:
			next.Filter.Sigma = v
		default:
			return p, fmt.Errorf("unknown parameter %q: %w", field, wave.ErrInvalidInput)
		}
	}
	if err := next.Validate(); err != nil {
		return p, err
	}
	return next, nil
}

func toFloat(value any) (float64, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, fmt.Errorf("not a number %q: %w", v, wave.ErrInvalidInput)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("expected a number (got %T): %w", value, wave.ErrInvalidInput)
	}
}

func toBool(value any) (bool, error) {
	switch v := value.(type) {
	case bool:
		return v, nil
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return false, fmt.Errorf("not a boolean %q: %w", v, wave.ErrInvalidInput)
		}
		return b, nil
	default:
		return false, fmt.Errorf("expected a boolean (got %T): %w", value, wave.ErrInvalidInput)
	}
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
