package station_test

import (
	"context"
	"sync"

	"github.com/lipelix/chmu-weather/internal/station"
	"github.com/lipelix/chmu-weather/internal/weather"
	"github.com/lipelix/chmu-weather/pkg/geo"
)

type fakeCatalog struct {
	dir   weather.Directory
	calls int
}

func (f *fakeCatalog) FetchStations(_ context.Context, withCoordinates bool) weather.Directory {
	f.calls++
	return f.dir
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{dir: weather.Directory{
		"11518": {ID: "11518", Name: "Praha-Ruzyně", Coordinate: geo.Coordinate{Lat: 50.1008, Lon: 14.26}, HasCoordinate: true},
		"11450": {ID: "11450", Name: "Plzeň, Mikulka", Coordinate: geo.Coordinate{Lat: 49.764722, Lon: 13.378889}, HasCoordinate: true},
		"11782": {ID: "11782", Name: "Brno-Tuřany", Coordinate: geo.Coordinate{Lat: 49.1513, Lon: 16.6944}, HasCoordinate: true},
	}}
}

type recordingLifecycle struct {
	mu      sync.Mutex
	added   []string
	loaded  []string
	removed []string
}

func (r *recordingLifecycle) StationAdded(_ context.Context, cfg station.Config) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.added = append(r.added, cfg.StationID)
}

func (r *recordingLifecycle) StationLoaded(_ context.Context, cfg station.Config) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loaded = append(r.loaded, cfg.StationID)
}

func (r *recordingLifecycle) StationRemoved(_ context.Context, stationID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.removed = append(r.removed, stationID)
}
