package sensor

const (
	// Manufacturer is reported for every station device.
	Manufacturer = "ČHMÚ"

	// ConfigurationURL points at the open data catalog.
	ConfigurationURL = "https://opendata.chmi.cz"

	// SuggestedArea groups station devices in consumers that support areas.
	SuggestedArea = "Outdoors"
)

// Device groups the sensors of one station.
type Device struct {
	ID               string
	Name             string
	Manufacturer     string
	Model            string
	ConfigurationURL string
	SuggestedArea    string
}

// DeviceInfo returns the device descriptor of a station.
func DeviceInfo(stationID, stationName string) Device {
	if stationName == "" {
		stationName = "Station " + stationID
	}
	return Device{
		ID:               stationID,
		Name:             stationName,
		Manufacturer:     Manufacturer,
		Model:            "Weather Station " + stationID,
		ConfigurationURL: ConfigurationURL,
		SuggestedArea:    SuggestedArea,
	}
}
