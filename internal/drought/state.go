package drought

import "fmt"

const defaultArea = 4

// State holds the dashboard's current selection.
type State struct {
	Index      Index  `json:"index"`
	Region     string `json:"region"`
	Weeks      Range  `json:"weeks"`
	Years      Range  `json:"years"`
	Ascending  bool   `json:"ascending"`
	Descending bool   `json:"descending"`
}

// DefaultState is VHI for Donetsk, weeks 1-25 of 1991-2014, unsorted.
func DefaultState() State {
	name, _ := RegionName(defaultArea)
	return State{
		Index:  IndexVHI,
		Region: name,
		Weeks:  Range{Min: 1, Max: 25},
		Years:  Range{Min: 1991, Max: 2014},
	}
}

// Reset restores the default selection.
func (s *State) Reset() {
	*s = DefaultState()
}

// Query converts the selection into a Query. When both sort directions are
// set, ascending is used and a warning is returned alongside.
func (s State) Query() (Query, []string, error) {
	idx, err := ParseIndex(string(s.Index))
	if err != nil {
		return Query{}, nil, err
	}
	area, ok := RegionByName(s.Region)
	if !ok {
		return Query{}, nil, fmt.Errorf("unknown region %q: %w", s.Region, ErrInvalidQuery)
	}
	q := Query{Area: area, Index: idx, Weeks: s.Weeks, Years: s.Years}

	var warnings []string
	switch {
	case s.Ascending && s.Descending:
		warnings = append(warnings, "both sort orders selected, sorting ascending")
		q.Sort = SortAscending
	case s.Ascending:
		q.Sort = SortAscending
	case s.Descending:
		q.Sort = SortDescending
	}
	if err := q.validate(true); err != nil {
		return Query{}, nil, err
	}
	return q, warnings, nil
}
