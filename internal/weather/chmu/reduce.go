package chmu

import (
	"fmt"
	"strings"
	"time"

	"github.com/lipelix/chmu-weather/internal/weather"
)

// isoLocal mirrors the ISO 8601 local time format of the observation files.
const isoLocal = "2006-01-02T15:04:05.000000"

// Observation row layout: [station_id, element_code, timestamp, value, flag, quality].
const (
	colStationID = 0
	colElement   = 1
	colTimestamp = 2
	colValue     = 3

	minObservationFields = 4
)

// LatestValues returns the latest value per element code for the station.
// A row replaces the stored value only when its timestamp is strictly greater
// in string order, so the result does not depend on row order.
func LatestValues(rows [][]any, stationID string) map[string]weather.LatestValue {
	latest := make(map[string]weather.LatestValue)

	for _, row := range rows {
		if len(row) < minObservationFields {
			continue
		}

		rowStation, ok := row[colStationID].(string)
		if !ok || !strings.HasSuffix(rowStation, stationID) {
			continue
		}

		element, ok := row[colElement].(string)
		if !ok {
			continue
		}
		timestamp, ok := row[colTimestamp].(string)
		if !ok {
			continue
		}

		current, seen := latest[element]
		if !seen || timestamp > current.Timestamp {
			latest[element] = weather.LatestValue{Value: row[colValue], Timestamp: timestamp}
		}
	}

	return latest
}

// Reduce projects an observation payload onto a Reading for one station.
// now is used as the reading timestamp when the station reported no temperature.
func Reduce(payload *Payload, stationID, stationName string, now time.Time) (*weather.Reading, error) {
	rows := payload.Values()
	if len(rows) == 0 {
		return nil, weather.ErrEmptyPayload
	}

	latest := LatestValues(rows, stationID)
	if len(latest) == 0 {
		return nil, fmt.Errorf("%w %s", weather.ErrNoStationData, stationID)
	}

	reading := &weather.Reading{
		Temperature:   numericValue(latest, weather.ElementTemperature),
		Humidity:      numericValue(latest, weather.ElementHumidity),
		Pressure:      numericValue(latest, weather.ElementPressure),
		WindSpeed:     numericValue(latest, weather.ElementWindSpeed),
		WindDirection: numericValue(latest, weather.ElementWindDirection),
		StationName:   stationName,
		Timestamp:     now.Format(isoLocal),
	}

	if _, ok := latest[weather.ElementPrecipitation]; ok {
		reading.Precipitation = numericValue(latest, weather.ElementPrecipitation)
	} else {
		zero := 0.0
		reading.Precipitation = &zero
	}

	if t, ok := latest[weather.ElementTemperature]; ok {
		reading.Timestamp = t.Timestamp
	}

	return reading, nil
}

// numericValue returns the element value as a number, or nil when the element
// is missing or its value is not numeric.
func numericValue(latest map[string]weather.LatestValue, element string) *float64 {
	lv, ok := latest[element]
	if !ok || lv.Value == nil {
		return nil
	}

	f, err := toFloat(lv.Value)
	if err != nil {
		return nil
	}
	return &f
}
