package models

import (
	"time"

	"github.com/lipelix/chmu-weather/internal/sensor"
	"github.com/lipelix/chmu-weather/internal/station"
	"github.com/lipelix/chmu-weather/internal/weather"
)

// StationConfig represents a configured station.
type StationConfig struct {
	StationID   string    `json:"stationId"`
	StationName string    `json:"stationName"`
	Title       string    `json:"title"`
	CreatedAt   Timestamp `json:"createdAt"`
}

// StationConfigFrom converts a stored station configuration.
func StationConfigFrom(cfg *station.Config) StationConfig {
	return StationConfig{
		StationID:   cfg.StationID,
		StationName: cfg.StationName,
		Title:       cfg.Title(),
		CreatedAt:   Timestamp(cfg.CreatedAt),
	}
}

// StationList is the response of GET /v1/stations.
type StationList struct {
	Items []StationConfig `json:"items"`
}

// CreateStationRequest is the request body of POST /v1/stations.
type CreateStationRequest struct {
	StationID string `json:"stationId"`
}

// Validate checks the request fields.
func (r *CreateStationRequest) Validate() []FieldError {
	if r.StationID == "" {
		return []FieldError{{Field: "stationId", Message: "stationId is required"}}
	}
	return nil
}

// SetupOption is one selectable station.
type SetupOption struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// SetupForm is the response of GET /v1/setup/stations.
type SetupForm struct {
	Options            []SetupOption `json:"options"`
	SuggestedStationID *string       `json:"suggestedStationId,omitempty"`
	NearestStation     string        `json:"nearestStation"`
	Distance           string        `json:"distance"`
	StationCount       int           `json:"stationCount"`
	Error              string        `json:"error,omitempty"`
}

// SetupFormFrom converts a station setup form.
func SetupFormFrom(form *station.SetupForm) SetupForm {
	out := SetupForm{
		Options:        make([]SetupOption, 0, len(form.Options)),
		NearestStation: form.NearestStation,
		Distance:       form.Distance,
		StationCount:   form.StationCount,
		Error:          form.Error,
	}
	for _, opt := range form.Options {
		out.Options = append(out.Options, SetupOption{Value: opt.Value, Label: opt.Label})
	}
	if form.SuggestedStationID != "" {
		id := form.SuggestedStationID
		out.SuggestedStationID = &id
	}
	return out
}

// Reading is the latest observation of a station.
type Reading struct {
	StationID     string    `json:"stationId"`
	StationName   string    `json:"stationName"`
	Temperature   *float64  `json:"temperature"`
	Humidity      *float64  `json:"humidity"`
	Pressure      *float64  `json:"pressure"`
	Precipitation *float64  `json:"precipitation"`
	WindSpeed     *float64  `json:"windSpeed"`
	WindDirection *float64  `json:"windDirection"`
	Timestamp     string    `json:"timestamp"`
	FetchedAt     Timestamp `json:"fetchedAt"`
}

// ReadingFrom converts a station reading.
func ReadingFrom(stationID string, r *weather.Reading) Reading {
	return Reading{
		StationID:     stationID,
		StationName:   r.StationName,
		Temperature:   r.Temperature,
		Humidity:      r.Humidity,
		Pressure:      r.Pressure,
		Precipitation: r.Precipitation,
		WindSpeed:     r.WindSpeed,
		WindDirection: r.WindDirection,
		Timestamp:     r.Timestamp,
		FetchedAt:     Timestamp(r.FetchedAt.UTC()),
	}
}

// Sensor is one exposed sensor entity of a station.
type Sensor struct {
	UniqueID    string   `json:"uniqueId"`
	Kind        string   `json:"kind"`
	Unit        string   `json:"unit"`
	DeviceClass string   `json:"deviceClass,omitempty"`
	StateClass  string   `json:"stateClass"`
	Icon        string   `json:"icon,omitempty"`
	Value       *float64 `json:"value"`
	Available   bool     `json:"available"`
}

// Device groups the sensors of one station.
type Device struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	Manufacturer     string `json:"manufacturer"`
	Model            string `json:"model"`
	ConfigurationURL string `json:"configurationUrl"`
	SuggestedArea    string `json:"suggestedArea"`
}

// StationSensors is the response of GET /v1/stations/{stationId}/sensors.
type StationSensors struct {
	Device    Device     `json:"device"`
	Sensors   []Sensor   `json:"sensors"`
	UpdatedAt *Timestamp `json:"updatedAt,omitempty"`
}

// StationSensorsFrom converts the sensor states of a station.
func StationSensorsFrom(device sensor.Device, states []sensor.State, fetchedAt *time.Time) StationSensors {
	out := StationSensors{
		Device: Device{
			ID:               device.ID,
			Name:             device.Name,
			Manufacturer:     device.Manufacturer,
			Model:            device.Model,
			ConfigurationURL: device.ConfigurationURL,
			SuggestedArea:    device.SuggestedArea,
		},
		Sensors:   make([]Sensor, 0, len(states)),
		UpdatedAt: TimestampPtr(fetchedAt),
	}
	for _, s := range states {
		out.Sensors = append(out.Sensors, Sensor{
			UniqueID:    s.UniqueID,
			Kind:        string(s.Kind),
			Unit:        s.Unit,
			DeviceClass: s.DeviceClass,
			StateClass:  string(s.StateClass),
			Icon:        s.Icon,
			Value:       s.Value,
			Available:   s.Available,
		})
	}
	return out
}
