// Package weather provides station observation models and per-station refresh services.
package weather

import (
	"errors"
	"sort"
	"time"

	"github.com/lipelix/chmu-weather/pkg/geo"
)

// Weather errors.
var (
	// ErrDataUnavailable is returned when the station has not published data for today yet.
	ErrDataUnavailable = errors.New("no data available for station")

	// ErrFetch wraps transport failures and unexpected upstream status codes.
	ErrFetch = errors.New("fetching observations failed")

	// ErrEmptyPayload is returned when the observation payload carries no values.
	ErrEmptyPayload = errors.New("no data values found in response")

	// ErrNoStationData is returned when no row in the payload belongs to the station.
	ErrNoStationData = errors.New("no data found for station")

	// ErrInvalidCoordinates is returned for a latitude or longitude out of range.
	ErrInvalidCoordinates = errors.New("invalid coordinates")
)

// Element codes used by the CHMU 10-minute observation files.
const (
	ElementTemperature   = "T"
	ElementHumidity      = "H"
	ElementPressure      = "P"
	ElementPrecipitation = "SRA10M"
	ElementWindSpeed     = "F"
	ElementWindDirection = "D"
)

// StationInfo describes a single station from the metadata catalog.
type StationInfo struct {
	ID   string
	Name string

	// Coordinate is only meaningful when HasCoordinate is true.
	Coordinate    geo.Coordinate
	HasCoordinate bool
}

// Directory maps station IDs to station metadata.
type Directory map[string]StationInfo

// SortedIDs returns the station IDs in ascending order.
func (d Directory) SortedIDs() []string {
	ids := make([]string, 0, len(d))
	for id := range d {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// SortedByName returns the stations ordered by name, then by ID.
func (d Directory) SortedByName() []StationInfo {
	stations := make([]StationInfo, 0, len(d))
	for _, s := range d {
		stations = append(stations, s)
	}
	sort.Slice(stations, func(i, j int) bool {
		if stations[i].Name == stations[j].Name {
			return stations[i].ID < stations[j].ID
		}
		return stations[i].Name < stations[j].Name
	})
	return stations
}

// LatestValue is the most recent raw value seen for one element code.
type LatestValue struct {
	Value     any
	Timestamp string
}

// Reading is the projection of one observation file onto the monitored sensors.
// Nil fields mean the element was not observed.
type Reading struct {
	Temperature   *float64 // °C
	Humidity      *float64 // %
	Pressure      *float64 // hPa
	Precipitation *float64 // mm, 0 when the station did not report it
	WindSpeed     *float64 // m/s
	WindDirection *float64 // degrees

	StationName string

	// Timestamp is the source timestamp of the temperature element, or the
	// wall clock at reduction time when temperature is missing.
	Timestamp string

	FetchedAt time.Time
}

// Status describes the outcome of the most recent refreshes of a station.
type Status struct {
	StationID     string
	LastSuccessAt *time.Time
	LastFailureAt *time.Time
	LastError     string
	Degraded      bool
}
