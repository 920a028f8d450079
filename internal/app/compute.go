package app

import (
	"github.com/guidoenr/sigdash/internal/filter"
	"github.com/guidoenr/sigdash/internal/params"
	"github.com/guidoenr/sigdash/internal/wave"
)

// Frame is one unit of output: the raw and filtered signals over the time
// grid together with the parameters that produced them.
type Frame struct {
	Seq          uint64            `json:"seq"`
	Time         []float64         `json:"time"`
	Raw          []float64         `json:"raw"`
	Filtered     []float64         `json:"filtered"`
	Params       params.Parameters `json:"params"`
	SamplingRate float64           `json:"samplingRate"`
	Cutoff       float64           `json:"cutoff,omitempty"`
}

// Compute regenerates the raw signal from p and noise and runs the
// selected filter over it. It holds no state and never mutates its inputs.
func Compute(grid []float64, p params.Parameters, noise []float64) (Frame, error) {
	if err := p.Validate(); err != nil {
		return Frame{}, err
	}

	var fs float64
	if len(grid) >= 2 {
		rate, err := wave.SamplingRate(grid)
		if err != nil {
			return Frame{}, err
		}
		fs = rate
	}

	raw, err := wave.Generate(grid, p.Amplitude, p.Frequency, p.Phase, noise, p.ShowNoise)
	if err != nil {
		return Frame{}, err
	}
	filtered, err := filter.Apply(raw, p.Filter, fs)
	if err != nil {
		return Frame{}, err
	}

	frame := Frame{
		Time:         grid,
		Raw:          raw,
		Filtered:     filtered,
		Params:       p,
		SamplingRate: fs,
	}
	if p.Filter.Kind == filter.KindButterworth {
		frame.Cutoff = filter.Cutoff(fs, p.Filter.WindowSize())
	}
	return frame, nil
}
