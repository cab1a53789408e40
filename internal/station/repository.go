package station

import "context"

// Repository defines the interface for station configuration persistence.
type Repository interface {
	// Get retrieves a station configuration by station ID.
	Get(ctx context.Context, stationID string) (*Config, error)

	// List retrieves all station configurations ordered by station ID.
	List(ctx context.Context) ([]*Config, error)

	// Create stores a new configuration.
	// Returns ErrAlreadyConfigured if the station is already present.
	Create(ctx context.Context, cfg *Config) error

	// Delete removes a configuration.
	Delete(ctx context.Context, stationID string) error
}
