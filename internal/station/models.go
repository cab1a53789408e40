// Package station manages the configured weather stations and the setup flow that picks them.
package station

import (
	"errors"
	"fmt"
	"time"
)

// Station errors.
var (
	ErrNotFound          = errors.New("station not configured")
	ErrAlreadyConfigured = errors.New("station already configured")
	ErrInvalidStationID  = errors.New("invalid station id")
)

// Config is the persisted configuration of one monitored station.
// It is created once and never updated.
type Config struct {
	StationID   string
	StationName string
	CreatedAt   time.Time
}

// Title returns the display title of the configured station.
func (c Config) Title() string {
	return fmt.Sprintf("%s (%s)", c.StationName, c.StationID)
}

// SetupErrorCannotConnect marks a setup form built without any station.
const SetupErrorCannotConnect = "cannot_connect"

// Option is one selectable station in the setup form.
type Option struct {
	Value string
	Label string
}

// SetupForm is the data needed to let a user pick a station.
type SetupForm struct {
	// Options lists every known station ordered by name.
	Options []Option

	// SuggestedStationID is the station nearest to home, empty when none.
	SuggestedStationID string

	// NearestStation is the name of the suggested station or "N/A".
	NearestStation string

	// Distance is the distance to the suggested station in km with one
	// decimal, or "N/A".
	Distance string

	StationCount int

	// Error is SetupErrorCannotConnect when no station could be listed.
	Error string
}
