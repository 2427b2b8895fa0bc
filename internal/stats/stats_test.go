package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adhithya200503/AgentSync/internal"
)

func TestApply_RepeatedObservation(t *testing.T) {
	var counters []internal.CountryStat

	const k = 5
	for range k {
		counters = Apply(counters, "India", "Chennai")
	}

	require.Len(t, counters, 1)
	assert.Equal(t, "India", counters[0].Country)
	assert.Equal(t, int64(k), counters[0].Count)
	require.Len(t, counters[0].TopCities, 1)
	assert.Equal(t, "Chennai", counters[0].TopCities[0].City)
	assert.Equal(t, int64(k), counters[0].TopCities[0].Count)
}

func TestApply_CaseInsensitiveKeepsFirstCasing(t *testing.T) {
	var counters []internal.CountryStat
	counters = Apply(counters, "Germany", "Berlin")
	counters = Apply(counters, "germany", "BERLIN")
	counters = Apply(counters, "GERMANY", "berlin")

	require.Len(t, counters, 1)
	assert.Equal(t, "Germany", counters[0].Country)
	assert.Equal(t, int64(3), counters[0].Count)
	require.Len(t, counters[0].TopCities, 1)
	assert.Equal(t, "Berlin", counters[0].TopCities[0].City)
	assert.Equal(t, int64(3), counters[0].TopCities[0].Count)
}

func TestApply_TopCityBounding(t *testing.T) {
	var counters []internal.CountryStat

	// Five cities with distinct counts: 5, 4, 3, 2, 1.
	observations := []struct {
		city string
		n    int
	}{
		{"Alpha", 5},
		{"Bravo", 4},
		{"Charlie", 3},
		{"Delta", 2},
		{"Echo", 1},
	}
	for _, obs := range observations {
		for range obs.n {
			counters = Apply(counters, "US", obs.city)
		}
	}

	require.Len(t, counters, 1)
	assert.Equal(t, int64(15), counters[0].Count)

	cities := counters[0].TopCities
	require.Len(t, cities, MaxTopCities)
	assert.Equal(t, "Alpha", cities[0].City)
	assert.Equal(t, int64(5), cities[0].Count)
	assert.Equal(t, "Bravo", cities[1].City)
	assert.Equal(t, "Charlie", cities[2].City)
}

func TestApply_TieBreakKeepsFirstObserved(t *testing.T) {
	var counters []internal.CountryStat
	counters = Apply(counters, "FR", "Paris")
	counters = Apply(counters, "FR", "Lyon")

	cities := counters[0].TopCities
	require.Len(t, cities, 2)
	assert.Equal(t, "Paris", cities[0].City)
	assert.Equal(t, "Lyon", cities[1].City)
}

func TestApply_NewCountry(t *testing.T) {
	counters := Apply(nil, "Japan", "Tokyo")
	counters = Apply(counters, "Brazil", "Recife")

	require.Len(t, counters, 2)
	assert.Equal(t, "Japan", counters[0].Country)
	assert.Equal(t, "Brazil", counters[1].Country)
}

func TestApply_UnknownAggregatesNormally(t *testing.T) {
	var counters []internal.CountryStat
	counters = Apply(counters, "Unknown", "Unknown")
	counters = Apply(counters, "Unknown", "Unknown")
	counters = Apply(counters, "", "")

	require.Len(t, counters, 1)
	assert.Equal(t, "Unknown", counters[0].Country)
	assert.Equal(t, int64(3), counters[0].Count)
}

func TestBump(t *testing.T) {
	m := Bump(nil, "mobile")
	m = Bump(m, "mobile")
	m = Bump(m, "desktop")
	m = Bump(m, "")

	assert.Equal(t, int64(2), m["mobile"])
	assert.Equal(t, int64(1), m["desktop"])
	assert.Equal(t, int64(1), m["Unknown"])
}
