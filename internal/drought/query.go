package drought

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Range is an inclusive integer interval.
type Range struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// Contains reports whether v lies within the range.
func (r Range) Contains(v int) bool { return v >= r.Min && v <= r.Max }

// SortOrder orders query rows by index value.
type SortOrder int

const (
	SortNone SortOrder = iota
	SortAscending
	SortDescending
)

// String names the order for logs.
func (s SortOrder) String() string {
	switch s {
	case SortAscending:
		return "asc"
	case SortDescending:
		return "desc"
	default:
		return "none"
	}
}

// Query selects one region's index values over a week and year window.
type Query struct {
	Area  int
	Index Index
	Weeks Range
	Years Range
	Sort  SortOrder
}

// Row is a single index observation returned by Filter.
type Row struct {
	Area  int     `json:"area"`
	Year  int     `json:"year"`
	Week  int     `json:"week"`
	Value float64 `json:"value"`
}

// validate checks q and rewrites q.Index to its canonical spelling.
func (q *Query) validate(needArea bool) error {
	idx, err := ParseIndex(string(q.Index))
	if err != nil {
		return err
	}
	q.Index = idx
	if needArea {
		if _, ok := RegionName(q.Area); !ok {
			return fmt.Errorf("unknown area %d: %w", q.Area, ErrInvalidQuery)
		}
	}
	if q.Weeks.Min > q.Weeks.Max {
		return fmt.Errorf("week range %d..%d is inverted: %w", q.Weeks.Min, q.Weeks.Max, ErrInvalidQuery)
	}
	if q.Years.Min > q.Years.Max {
		return fmt.Errorf("year range %d..%d is inverted: %w", q.Years.Min, q.Years.Max, ErrInvalidQuery)
	}
	return nil
}

// Filter returns the rows of q.Area inside both windows, in record order
// unless a sort is requested. Sorting is stable.
func Filter(records []Record, q Query) ([]Row, error) {
	if err := q.validate(true); err != nil {
		return nil, err
	}
	rows := make([]Row, 0)
	for _, r := range records {
		if r.Area != q.Area || !q.Weeks.Contains(r.Week) || !q.Years.Contains(r.Year) {
			continue
		}
		rows = append(rows, Row{Area: r.Area, Year: r.Year, Week: r.Week, Value: q.Index.Value(r)})
	}
	switch q.Sort {
	case SortAscending:
		sort.SliceStable(rows, func(i, j int) bool { return rows[i].Value < rows[j].Value })
	case SortDescending:
		sort.SliceStable(rows, func(i, j int) bool { return rows[i].Value > rows[j].Value })
	}
	return rows, nil
}

// WeekMean is the average index value for one week number across years.
type WeekMean struct {
	Week  int     `json:"week"`
	Mean  float64 `json:"mean"`
	Count int     `json:"count"`
}

// WeeklyMean groups rows by week and averages them, ordered by week.
func WeeklyMean(rows []Row) []WeekMean {
	groups := make(map[int][]float64)
	for _, r := range rows {
		groups[r.Week] = append(groups[r.Week], r.Value)
	}
	out := make([]WeekMean, 0, len(groups))
	for week, vals := range groups {
		out = append(out, WeekMean{Week: week, Mean: stat.Mean(vals, nil), Count: len(vals)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Week < out[j].Week })
	return out
}

// BoxStats summarises one region's values for a box plot.
type BoxStats struct {
	Area   int     `json:"area"`
	Name   string  `json:"name"`
	Count  int     `json:"count"`
	Min    float64 `json:"min"`
	Q1     float64 `json:"q1"`
	Median float64 `json:"median"`
	Q3     float64 `json:"q3"`
	Max    float64 `json:"max"`
	Mean   float64 `json:"mean"`
}

// CompareRegions computes box statistics of q.Index for every region over
// q's week and year windows. q.Area and q.Sort are ignored. Regions with no
// rows in the window are omitted.
func CompareRegions(records []Record, q Query) ([]BoxStats, error) {
	if err := q.validate(false); err != nil {
		return nil, err
	}
	groups := make(map[int][]float64)
	for _, r := range records {
		if !q.Weeks.Contains(r.Week) || !q.Years.Contains(r.Year) {
			continue
		}
		groups[r.Area] = append(groups[r.Area], q.Index.Value(r))
	}
	out := make([]BoxStats, 0, len(groups))
	for area, vals := range groups {
		sort.Float64s(vals)
		name, _ := RegionName(area)
		out = append(out, BoxStats{
			Area:   area,
			Name:   name,
			Count:  len(vals),
			Min:    floats.Min(vals),
			Q1:     quantile(vals, 0.25),
			Median: quantile(vals, 0.5),
			Q3:     quantile(vals, 0.75),
			Max:    floats.Max(vals),
			Mean:   stat.Mean(vals, nil),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Area < out[j].Area })
	return out, nil
}

// quantile interpolates linearly between closest ranks of sorted, placing
// p=0 on the first sample and p=1 on the last.
func quantile(sorted []float64, p float64) float64 {
	h := float64(len(sorted)-1) * p
	lo := math.Floor(h)
	i := int(lo)
	if i+1 >= len(sorted) {
		return sorted[len(sorted)-1]
	}
	return sorted[i] + (h-lo)*(sorted[i+1]-sorted[i])
}

// YearBounds reports the earliest and latest year present.
func YearBounds(records []Record) (Range, bool) {
	if len(records) == 0 {
		return Range{}, false
	}
	r := Range{Min: records[0].Year, Max: records[0].Year}
	for _, rec := range records[1:] {
		if rec.Year < r.Min {
			r.Min = rec.Year
		}
		if rec.Year > r.Max {
			r.Max = rec.Year
		}
	}
	return r, true
}
