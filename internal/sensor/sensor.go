// Package sensor projects station readings onto the sensor entities exposed to consumers.
package sensor

import (
	"github.com/lipelix/chmu-weather/internal/weather"
)

// Kind identifies one of the monitored sensors.
type Kind string

const (
	KindTemperature   Kind = "temperature"
	KindHumidity      Kind = "humidity"
	KindPressure      Kind = "pressure"
	KindPrecipitation Kind = "precipitation"
	KindWindSpeed     Kind = "wind_speed"
	KindWindDirection Kind = "wind_direction"
)

// AllKinds returns all sensor kinds in display order.
func AllKinds() []Kind {
	return []Kind{
		KindTemperature,
		KindHumidity,
		KindPressure,
		KindPrecipitation,
		KindWindSpeed,
		KindWindDirection,
	}
}

// StateClass describes how consumers should aggregate a sensor's history.
type StateClass string

const (
	StateClassMeasurement     StateClass = "measurement"
	StateClassTotalIncreasing StateClass = "total_increasing"
)

// Descriptor holds the static metadata of a sensor kind.
type Descriptor struct {
	Kind        Kind
	Unit        string
	DeviceClass string // empty when no standard class applies
	StateClass  StateClass
	Icon        string

	value func(*weather.Reading) *float64
}

var descriptors = map[Kind]Descriptor{
	KindTemperature: {
		Kind:        KindTemperature,
		Unit:        "°C",
		DeviceClass: "temperature",
		StateClass:  StateClassMeasurement,
		Icon:        "mdi:thermometer",
		value:       func(r *weather.Reading) *float64 { return r.Temperature },
	},
	KindHumidity: {
		Kind:        KindHumidity,
		Unit:        "%",
		DeviceClass: "humidity",
		StateClass:  StateClassMeasurement,
		Icon:        "mdi:water-percent",
		value:       func(r *weather.Reading) *float64 { return r.Humidity },
	},
	KindPressure: {
		Kind:        KindPressure,
		Unit:        "hPa",
		DeviceClass: "pressure",
		StateClass:  StateClassMeasurement,
		Icon:        "mdi:gauge",
		value:       func(r *weather.Reading) *float64 { return r.Pressure },
	},
	KindPrecipitation: {
		Kind:        KindPrecipitation,
		Unit:        "mm",
		DeviceClass: "precipitation",
		StateClass:  StateClassTotalIncreasing,
		Icon:        "mdi:weather-rainy",
		value:       func(r *weather.Reading) *float64 { return r.Precipitation },
	},
	KindWindSpeed: {
		Kind:        KindWindSpeed,
		Unit:        "m/s",
		DeviceClass: "wind_speed",
		StateClass:  StateClassMeasurement,
		Icon:        "mdi:weather-windy",
		value:       func(r *weather.Reading) *float64 { return r.WindSpeed },
	},
	KindWindDirection: {
		Kind:       KindWindDirection,
		Unit:       "°",
		StateClass: StateClassMeasurement,
		Icon:       "mdi:compass",
		value:      func(r *weather.Reading) *float64 { return r.WindDirection },
	},
}

// Describe returns the descriptor for a sensor kind.
func Describe(kind Kind) (Descriptor, bool) {
	d, ok := descriptors[kind]
	return d, ok
}

// Project returns the value of one sensor for a reading.
// It is nil when there is no reading yet or the element was not observed.
func Project(kind Kind, reading *weather.Reading) *float64 {
	if reading == nil {
		return nil
	}
	d, ok := descriptors[kind]
	if !ok {
		return nil
	}
	return d.value(reading)
}

// UniqueID returns the stable identifier of a station sensor.
func UniqueID(stationID string, kind Kind) string {
	return stationID + "_" + string(kind)
}

// State is the current state of one sensor of a station.
type State struct {
	Descriptor
	UniqueID  string
	Value     *float64
	Available bool
}

// States projects a reading onto every sensor of the station.
// A nil reading yields unavailable sensors.
func States(stationID string, reading *weather.Reading) []State {
	kinds := AllKinds()
	states := make([]State, 0, len(kinds))
	for _, kind := range kinds {
		states = append(states, State{
			Descriptor: descriptors[kind],
			UniqueID:   UniqueID(stationID, kind),
			Value:      Project(kind, reading),
			Available:  reading != nil,
		})
	}
	return states
}

// Values maps each sensor key to its projected value.
func Values(reading *weather.Reading) map[Kind]*float64 {
	values := make(map[Kind]*float64, len(descriptors))
	for _, kind := range AllKinds() {
		values[kind] = Project(kind, reading)
	}
	return values
}
