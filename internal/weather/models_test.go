package weather_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/lipelix/chmu-weather/internal/weather"
	"github.com/lipelix/chmu-weather/pkg/geo"
)

func testDirectory() weather.Directory {
	return weather.Directory{
		"11518": {ID: "11518", Name: "Praha-Ruzyně", Coordinate: geo.Coordinate{Lat: 50.1008, Lon: 14.26}, HasCoordinate: true},
		"11450": {ID: "11450", Name: "Plzeň, Mikulka", Coordinate: geo.Coordinate{Lat: 49.764722, Lon: 13.378889}, HasCoordinate: true},
		"11782": {ID: "11782", Name: "Brno-Tuřany", Coordinate: geo.Coordinate{Lat: 49.1513, Lon: 16.6944}, HasCoordinate: true},
	}
}

func TestDirectory_SortedIDs(t *testing.T) {
	assert.Equal(t, []string{"11450", "11518", "11782"}, testDirectory().SortedIDs())
	assert.Empty(t, weather.Directory{}.SortedIDs())
}

func TestDirectory_SortedByName(t *testing.T) {
	dir := testDirectory()
	dir["11999"] = weather.StationInfo{ID: "11999", Name: "Brno-Tuřany"}

	stations := dir.SortedByName()

	names := make([]string, len(stations))
	ids := make([]string, len(stations))
	for i, s := range stations {
		names[i] = s.Name
		ids[i] = s.ID
	}

	assert.Equal(t, []string{"Brno-Tuřany", "Brno-Tuřany", "Plzeň, Mikulka", "Praha-Ruzyně"}, names)
	assert.Equal(t, []string{"11782", "11999", "11450", "11518"}, ids)
}
