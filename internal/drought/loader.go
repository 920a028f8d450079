package drought

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

const (
	openMarker  = "<tt><pre>"
	closeMarker = "</pre></tt>"
)

// LoadDir reads every region file in dir. Files that cannot be read or
// whose name carries no area id are skipped with a warning. The result is
// deduplicated and ordered by area, year and week.
func LoadDir(dir string, logger *zap.Logger) ([]Record, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read drought dir: %w", err)
	}

	seen := make(map[Record]struct{})
	var records []Record
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		area, err := areaFromFileName(entry.Name())
		if err != nil {
			logger.Warn("skipping drought file", zap.String("path", path), zap.Error(err))
			continue
		}
		rows, err := loadFile(path, area)
		if err != nil {
			logger.Warn("skipping drought file", zap.String("path", path), zap.Error(err))
			continue
		}
		for _, r := range rows {
			if _, dup := seen[r]; dup {
				continue
			}
			seen[r] = struct{}{}
			records = append(records, r)
		}
		logger.Debug("loaded drought file", zap.String("path", path), zap.Int("area", area), zap.Int("rows", len(rows)))
	}

	sort.SliceStable(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if a.Area != b.Area {
			return a.Area < b.Area
		}
		if a.Year != b.Year {
			return a.Year < b.Year
		}
		return a.Week < b.Week
	})
	logger.Info("drought data loaded", zap.String("dir", dir), zap.Int("records", len(records)))
	return records, nil
}

// areaFromFileName takes the third underscore-separated token, so
// "vhi_id_7_2024.csv" belongs to area 7.
func areaFromFileName(name string) (int, error) {
	parts := strings.Split(name, "_")
	if len(parts) < 3 {
		return 0, fmt.Errorf("file name %q has no area token", name)
	}
	area, err := strconv.Atoi(parts[2])
	if err != nil {
		return 0, fmt.Errorf("file name %q: area token: %w", name, err)
	}
	return area, nil
}

func loadFile(path string, area int) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return parseRecords(f, area)
}

// parseRecords skips the banner line and the header, then keeps every row
// with a readable year, week and index values and a VHI other than -1.
func parseRecords(r io.Reader, area int) ([]Record, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	var out []Record
	line := 0
	for {
		fields, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse csv: %w", err)
		}
		line++
		if line <= 2 || len(fields) < 7 || containsMarker(fields) {
			continue
		}
		rec, ok := parseRow(fields, area)
		if !ok || rec.VHI == -1 {
			continue
		}
		out = append(out, rec)
	}
	if line < 2 {
		return nil, errors.New("missing header")
	}
	return out, nil
}

func containsMarker(fields []string) bool {
	for _, f := range fields {
		if strings.Contains(f, closeMarker) {
			return true
		}
	}
	return false
}

func parseRow(fields []string, area int) (Record, bool) {
	year, ok := parseInt(strings.ReplaceAll(fields[0], openMarker, ""))
	if !ok {
		return Record{}, false
	}
	week, ok := parseInt(fields[1])
	if !ok {
		return Record{}, false
	}
	var vals [5]float64
	for i := range vals {
		v, err := strconv.ParseFloat(strings.TrimSpace(fields[2+i]), 64)
		if err != nil {
			return Record{}, false
		}
		vals[i] = v
	}
	return Record{
		Area: area,
		Year: year,
		Week: week,
		SMN:  vals[0],
		SMT:  vals[1],
		VCI:  vals[2],
		TCI:  vals[3],
		VHI:  vals[4],
	}, true
}

// parseInt also accepts integral floats such as "1982.0".
func parseInt(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if v, err := strconv.Atoi(s); err == nil {
		return v, true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != float64(int(f)) {
		return 0, false
	}
	return int(f), true
}
