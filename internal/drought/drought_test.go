package drought

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const sampleFile = `<tt><pre><br>Province:  1: weekly VHI
year,week, SMN,SMT, VCI, TCI, VHI
<tt><pre>1991,  1, 0.050,261.0, 40.00, 30.00, 35.00,
1991,  2, 0.060,262.0, 50.00, 40.00, 45.00,
1991,  3, 0.070,263.0, 60.00, 50.00, -1,
1992,  1, 0.080,264.0, 20.00, 10.00, 15.00,
1992,  1, 0.080,264.0, 20.00, 10.00, 15.00,
bad,  1, 0.080,264.0, 20.00, 10.00, 15.00,
</pre></tt>
`

func writeFile(t *testing.T, dir, name, body string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func loadSample(t *testing.T) []Record {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, dir, "vhi_id_4_2024.csv", sampleFile)
	writeFile(t, dir, "vhi_id_2_2024.csv", strings.ReplaceAll(sampleFile, "35.00", "70.00"))
	writeFile(t, dir, "notes.txt", "nothing here")
	if err := os.Mkdir(filepath.Join(dir, "sub"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	records, err := LoadDir(dir, nil)
	if err != nil {
		t.Fatalf("LoadDir: %v", err)
	}
	return records
}

func TestLoadDirCleansAndSorts(t *testing.T) {
	records := loadSample(t)
	if len(records) != 6 {
		t.Fatalf("records=%d want=6: %+v", len(records), records)
	}
	if records[0].Area != 2 || records[3].Area != 4 {
		t.Fatalf("records not ordered by area: %+v", records)
	}
	for i := 1; i < len(records); i++ {
		a, b := records[i-1], records[i]
		if a.Area == b.Area && (a.Year > b.Year || (a.Year == b.Year && a.Week > b.Week)) {
			t.Fatalf("records out of order at %d: %+v %+v", i, a, b)
		}
	}
	for _, r := range records {
		if r.VHI == -1 {
			t.Fatalf("sentinel VHI kept: %+v", r)
		}
	}
	first := records[3]
	if first.Year != 1991 || first.Week != 1 || first.VHI != 35 || first.SMT != 261 {
		t.Fatalf("first area-4 record=%+v", first)
	}
}

func TestLoadDirMissingDir(t *testing.T) {
	if _, err := LoadDir(filepath.Join(t.TempDir(), "missing"), nil); err == nil {
		t.Fatalf("expected error for missing dir")
	}
}

func TestAreaFromFileName(t *testing.T) {
	if area, err := areaFromFileName("vhi_id_17_2024-10-01.csv"); err != nil || area != 17 {
		t.Fatalf("area=%d err=%v", area, err)
	}
	if _, err := areaFromFileName("vhi.csv"); err == nil {
		t.Fatalf("expected error for name without area")
	}
}

func TestRegions(t *testing.T) {
	regions := Regions()
	if len(regions) != 25 {
		t.Fatalf("regions=%d want=25", len(regions))
	}
	for i, r := range regions {
		if r.ID != i+1 {
			t.Fatalf("region %d has id %d", i, r.ID)
		}
	}
	if id, ok := RegionByName("donetsk"); !ok || id != 4 {
		t.Fatalf("RegionByName(donetsk)=%d,%v", id, ok)
	}
}

func TestFilterWindowsAndSort(t *testing.T) {
	records := loadSample(t)
	q := Query{Area: 4, Index: IndexVCI, Weeks: Range{1, 2}, Years: Range{1991, 1992}}
	rows, err := Filter(records, q)
	if err != nil {
		t.Fatalf("Filter: %v", err)
	}
	if len(rows) != 3 || rows[0].Value != 40 {
		t.Fatalf("rows=%+v", rows)
	}

	q.Sort = SortDescending
	rows, _ = Filter(records, q)
	if rows[0].Value != 50 || rows[2].Value != 20 {
		t.Fatalf("descending rows=%+v", rows)
	}
	q.Sort = SortAscending
	rows, _ = Filter(records, q)
	if rows[0].Value != 20 || rows[2].Value != 50 {
		t.Fatalf("ascending rows=%+v", rows)
	}

	q.Years = Range{2000, 2001}
	rows, err = Filter(records, q)
	if err != nil || len(rows) != 0 {
		t.Fatalf("empty window rows=%+v err=%v", rows, err)
	}
}

func TestFilterRejectsBadQuery(t *testing.T) {
	cases := []Query{
		{Area: 4, Index: "NDVI", Weeks: Range{1, 2}, Years: Range{1991, 1992}},
		{Area: 99, Index: IndexVHI, Weeks: Range{1, 2}, Years: Range{1991, 1992}},
		{Area: 4, Index: IndexVHI, Weeks: Range{5, 2}, Years: Range{1991, 1992}},
	}
	for _, q := range cases {
		if _, err := Filter(nil, q); !errors.Is(err, ErrInvalidQuery) {
			t.Fatalf("query %+v: expected ErrInvalidQuery, got %v", q, err)
		}
	}
}

func TestIndexNamesAnyCase(t *testing.T) {
	records := []Record{{Area: 4, Year: 2000, Week: 1, VCI: 11, TCI: 22, VHI: 33}}
	window := Query{Area: 4, Weeks: Range{1, 1}, Years: Range{2000, 2000}}

	for name, want := range map[Index]float64{"vci": 11, " Tci ": 22, "vhi": 33, IndexVCI: 11} {
		q := window
		q.Index = name
		rows, err := Filter(records, q)
		if err != nil {
			t.Fatalf("Filter(%q): %v", name, err)
		}
		if len(rows) != 1 || rows[0].Value != want {
			t.Fatalf("Filter(%q) rows=%+v, want value %v", name, rows, want)
		}
		stats, err := CompareRegions(records, q)
		if err != nil {
			t.Fatalf("CompareRegions(%q): %v", name, err)
		}
		if len(stats) != 1 || stats[0].Min != want || stats[0].Max != want || stats[0].Mean != want {
			t.Fatalf("CompareRegions(%q) stats=%+v, want %v", name, stats, want)
		}
	}

	if v := Index("vci").Value(records[0]); !math.IsNaN(v) {
		t.Fatalf("non-canonical index value=%v, want NaN", v)
	}
}

func TestWeeklyMean(t *testing.T) {
	rows := []Row{{Year: 1991, Week: 2, Value: 4}, {Year: 1991, Week: 1, Value: 1}, {Year: 1992, Week: 1, Value: 3}}
	means := WeeklyMean(rows)
	if len(means) != 2 || means[0].Week != 1 || means[0].Mean != 2 || means[0].Count != 2 || means[1].Mean != 4 {
		t.Fatalf("means=%+v", means)
	}
}

func TestCompareRegions(t *testing.T) {
	records := loadSample(t)
	stats, err := CompareRegions(records, Query{Index: IndexVHI, Weeks: Range{1, 52}, Years: Range{1991, 1992}})
	if err != nil {
		t.Fatalf("CompareRegions: %v", err)
	}
	if len(stats) != 2 || stats[0].Area != 2 || stats[1].Name != "Donetsk" {
		t.Fatalf("stats=%+v", stats)
	}
	s := stats[1]
	if s.Count != 3 || s.Min != 15 || s.Max != 45 || s.Median != 35 {
		t.Fatalf("donetsk stats=%+v", s)
	}
	if math.Abs(s.Mean-95.0/3) > 1e-12 {
		t.Fatalf("mean=%v", s.Mean)
	}
}

func TestQuantileInterpolates(t *testing.T) {
	x := []float64{1, 2, 3, 4}
	for _, c := range []struct{ p, want float64 }{{0, 1}, {0.25, 1.75}, {0.5, 2.5}, {0.75, 3.25}, {1, 4}} {
		if got := quantile(x, c.p); math.Abs(got-c.want) > 1e-12 {
			t.Fatalf("quantile(%v)=%v want=%v", c.p, got, c.want)
		}
	}
	if got := quantile([]float64{7}, 0.5); got != 7 {
		t.Fatalf("single-sample quantile=%v", got)
	}
}

func TestStateDefaultsAndReset(t *testing.T) {
	s := DefaultState()
	if s.Index != IndexVHI || s.Region != "Donetsk" || s.Weeks != (Range{1, 25}) || s.Years != (Range{1991, 2014}) {
		t.Fatalf("defaults=%+v", s)
	}
	s.Index = IndexTCI
	s.Ascending = true
	s.Reset()
	if s != DefaultState() {
		t.Fatalf("reset=%+v", s)
	}
}

func TestStateQueryConflictingSort(t *testing.T) {
	s := DefaultState()
	s.Ascending, s.Descending = true, true
	q, warnings, err := s.Query()
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if q.Sort != SortAscending || q.Sort.String() != "asc" || len(warnings) != 1 {
		t.Fatalf("sort=%v warnings=%v", q.Sort, warnings)
	}
	if q.Area != 4 {
		t.Fatalf("area=%d", q.Area)
	}

	s.Region = "Atlantis"
	if _, _, err := s.Query(); !errors.Is(err, ErrInvalidQuery) {
		t.Fatalf("expected ErrInvalidQuery, got %v", err)
	}
}

func TestYearBounds(t *testing.T) {
	r, ok := YearBounds(loadSample(t))
	if !ok || r != (Range{1991, 1992}) {
		t.Fatalf("bounds=%+v ok=%v", r, ok)
	}
	if _, ok := YearBounds(nil); ok {
		t.Fatalf("expected no bounds for empty input")
	}
}
