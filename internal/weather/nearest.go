package weather

import (
	"github.com/lipelix/chmu-weather/pkg/geo"
)

// NearestStation returns the ID of the station closest to home and its distance in kilometers.
// Stations are visited in ascending ID order; only a strictly smaller distance
// replaces the current best, so ties resolve to the first station visited.
// Stations without coordinates are skipped. ok is false when nothing qualifies.
func NearestStation(home geo.Coordinate, directory Directory) (id string, distanceKm float64, ok bool) {
	for _, stationID := range directory.SortedIDs() {
		station := directory[stationID]
		if !station.HasCoordinate {
			continue
		}

		d := geo.Distance(home, station.Coordinate)
		if !ok || d < distanceKm {
			id = stationID
			distanceKm = d
			ok = true
		}
	}

	return id, distanceKm, ok
}
