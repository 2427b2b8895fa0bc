// Package stats holds the pure aggregation logic behind the per-link and
// per-page analytics counters. No I/O happens here; persistence decides
// how (and how atomically) the result is written back.
package stats

import (
	"sort"
	"strings"

	"github.com/samber/lo"

	"github.com/Adhithya200503/AgentSync/internal"
)

// MaxTopCities bounds how many cities are tracked per country. Cities that
// fall out of the top list are dropped from tracking entirely, so the
// ranking is approximate once a country has seen more distinct cities.
const MaxTopCities = 3

const unknown = "Unknown"

// Apply merges one (country, city) observation into the counters and
// returns the updated slice. Matching is case-insensitive; the casing of
// the first-seen value is preserved. "Unknown" aggregates like any other
// value. Ties between equal-count cities keep their earlier order (stable
// sort, first-observed wins).
func Apply(counters []internal.CountryStat, country, city string) []internal.CountryStat {
	if country == "" {
		country = unknown
	}
	if city == "" {
		city = unknown
	}

	_, idx, found := lo.FindIndexOf(counters, func(c internal.CountryStat) bool {
		return strings.EqualFold(c.Country, country)
	})
	if !found {
		return append(counters, internal.CountryStat{
			Country:   country,
			Count:     1,
			TopCities: []internal.CityStat{{City: city, Count: 1}},
		})
	}

	counters[idx].Count++

	cities := counters[idx].TopCities
	_, cityIdx, cityFound := lo.FindIndexOf(cities, func(c internal.CityStat) bool {
		return strings.EqualFold(c.City, city)
	})
	if cityFound {
		cities[cityIdx].Count++
	} else {
		cities = append(cities, internal.CityStat{City: city, Count: 1})
	}

	sort.SliceStable(cities, func(i, j int) bool {
		return cities[i].Count > cities[j].Count
	})
	if len(cities) > MaxTopCities {
		cities = cities[:MaxTopCities]
	}
	counters[idx].TopCities = cities

	return counters
}

// Bump increments a label counter in a plain label->count map. Unlike the
// country stats there is no top-K bounding.
func Bump(m map[string]int64, label string) map[string]int64 {
	if m == nil {
		m = make(map[string]int64)
	}
	if label == "" {
		label = unknown
	}
	m[label]++
	return m
}
