// Package config loads the optional JSON settings file. Flags given on the
// command line take precedence over anything read here.
package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/guidoenr/sigdash/internal/filter"
	"github.com/guidoenr/sigdash/internal/params"
)

// File mirrors the settings file layout. Zero values mean "not set".
type File struct {
	Params      json.RawMessage `json:"params,omitempty"`
	Port        int             `json:"port,omitempty"`
	GridSize    int             `json:"gridSize,omitempty"`
	Seed        *int64          `json:"seed,omitempty"`
	Palette     string          `json:"palette,omitempty"`
	TargetFPS   float64         `json:"targetFPS,omitempty"`
	DroughtDir  string          `json:"droughtDir,omitempty"`
	NATSURL     string          `json:"natsURL,omitempty"`
	NATSSubject string          `json:"natsSubject,omitempty"`
	LogLevel    string          `json:"logLevel,omitempty"`
}

// Load reads and decodes the settings file at path.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	if f.Port < 0 || f.Port > 65535 {
		return nil, fmt.Errorf("port out of range: %d", f.Port)
	}
	if f.GridSize < 0 {
		return nil, fmt.Errorf("gridSize must be positive: %d", f.GridSize)
	}
	return &f, nil
}

// Parameters overlays the "params" block on Defaults so a file only needs
// the fields it changes. ok is false when the file has no params block.
func (f *File) Parameters() (p params.Parameters, ok bool, err error) {
	p = params.Defaults()
	if f == nil || len(f.Params) == 0 {
		return p, false, nil
	}
	if err := json.Unmarshal(f.Params, &p); err != nil {
		return p, false, fmt.Errorf("decode params: %w", err)
	}
	if p.Filter.Kind != "" {
		kind, err := filter.ParseKind(string(p.Filter.Kind))
		if err != nil {
			return p, false, err
		}
		p.Filter.Kind = kind
	}
	if err := p.Validate(); err != nil {
		return p, false, err
	}
	return p, true, nil
}
