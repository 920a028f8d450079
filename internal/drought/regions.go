package drought

import (
	"sort"
	"strings"
)

// Region is one administrative area covered by the index files.
type Region struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

var regionNames = map[int]string{
	1:  "Vinnytsia",
	2:  "Volyn",
	3:  "Dnipropetrovsk",
	4:  "Donetsk",
	5:  "Zhytomyr",
	6:  "Zakarpattia",
	7:  "Zaporizhzhia",
	8:  "Ivano-Frankivsk",
	9:  "Kyiv",
	10: "Kirovohrad",
	11: "Luhansk",
	12: "Lviv",
	13: "Mykolaiv",
	14: "Odesa",
	15: "Poltava",
	16: "Rivne",
	17: "Sumy",
	18: "Ternopil",
	19: "Kharkiv",
	20: "Kherson",
	21: "Khmelnytskyi",
	22: "Cherkasy",
	23: "Chernivtsi",
	24: "Chernihiv",
	25: "Crimea",
}

// Regions returns every known region ordered by id.
func Regions() []Region {
	out := make([]Region, 0, len(regionNames))
	for id, name := range regionNames {
		out = append(out, Region{ID: id, Name: name})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// RegionName looks up the display name for an area id.
func RegionName(id int) (string, bool) {
	name, ok := regionNames[id]
	return name, ok
}

// RegionByName resolves a display name (case-insensitive) to its area id.
func RegionByName(name string) (int, bool) {
	key := strings.TrimSpace(name)
	for id, n := range regionNames {
		if strings.EqualFold(n, key) {
			return id, true
		}
	}
	return 0, false
}
