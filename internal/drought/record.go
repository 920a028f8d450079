// Package drought loads weekly vegetation-health index files for a set of
// regions and answers the dashboard's filter and aggregate queries.
package drought

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// ErrInvalidQuery reports an unknown index, region or an inverted range.
var ErrInvalidQuery = errors.New("invalid drought query")

// Record is one cleaned row of a region file.
type Record struct {
	Area int     `json:"area"`
	Year int     `json:"year"`
	Week int     `json:"week"`
	SMN  float64 `json:"smn"`
	SMT  float64 `json:"smt"`
	VCI  float64 `json:"vci"`
	TCI  float64 `json:"tci"`
	VHI  float64 `json:"vhi"`
}

// Index selects which health index a query reads.
type Index string

const (
	IndexVCI Index = "VCI"
	IndexTCI Index = "TCI"
	IndexVHI Index = "VHI"
)

// Indexes lists the selectable indexes.
func Indexes() []Index {
	return []Index{IndexVCI, IndexTCI, IndexVHI}
}

// ParseIndex accepts VCI, TCI or VHI in any case.
func ParseIndex(name string) (Index, error) {
	switch Index(strings.ToUpper(strings.TrimSpace(name))) {
	case IndexVCI:
		return IndexVCI, nil
	case IndexTCI:
		return IndexTCI, nil
	case IndexVHI:
		return IndexVHI, nil
	default:
		return "", fmt.Errorf("unknown index %q: %w", name, ErrInvalidQuery)
	}
}

// Value returns the field of r that idx names, or NaN for a
// non-canonical index. Run names through ParseIndex first.
func (idx Index) Value(r Record) float64 {
	switch idx {
	case IndexVCI:
		return r.VCI
	case IndexTCI:
		return r.TCI
	case IndexVHI:
		return r.VHI
	default:
		return math.NaN()
	}
}
