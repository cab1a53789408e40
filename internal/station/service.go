package station

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/lipelix/chmu-weather/internal/weather"
	"github.com/lipelix/chmu-weather/pkg/geo"
)

// Catalog provides the station directory.
type Catalog interface {
	FetchStations(ctx context.Context, withCoordinates bool) weather.Directory
}

// Lifecycle is notified when stations are added or removed so that their
// refresh services can be started or stopped.
type Lifecycle interface {
	// StationAdded starts a newly configured station and refreshes it once.
	StationAdded(ctx context.Context, cfg Config)

	// StationLoaded starts a station at boot without refreshing it; the
	// scheduler's first run does that for all stations at once.
	StationLoaded(ctx context.Context, cfg Config)

	StationRemoved(ctx context.Context, stationID string)
}

// ServiceConfig holds configuration for the station service.
type ServiceConfig struct {
	Repository Repository
	Catalog    Catalog

	// Lifecycle is optional.
	Lifecycle Lifecycle

	Logger zerolog.Logger

	// Now is optional, defaults to time.Now.
	Now func() time.Time
}

// Service provides station setup and configuration operations.
type Service struct {
	repo      Repository
	catalog   Catalog
	lifecycle Lifecycle
	logger    zerolog.Logger
	now       func() time.Time
}

// NewService creates a new station service.
func NewService(cfg ServiceConfig) *Service {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		repo:      cfg.Repository,
		catalog:   cfg.Catalog,
		lifecycle: cfg.Lifecycle,
		logger:    cfg.Logger,
		now:       now,
	}
}

// SetupForm lists the known stations and suggests the one nearest to home.
// home may be nil when the caller has no location.
func (s *Service) SetupForm(ctx context.Context, home *geo.Coordinate) *SetupForm {
	dir := s.catalog.FetchStations(ctx, true)

	form := &SetupForm{
		Options:        make([]Option, 0, len(dir)),
		NearestStation: "N/A",
		Distance:       "N/A",
		StationCount:   len(dir),
	}

	if len(dir) == 0 {
		s.logger.Warn().Msg("station catalog is empty")
		form.Error = SetupErrorCannotConnect
		return form
	}

	for _, info := range dir.SortedByName() {
		form.Options = append(form.Options, Option{Value: info.ID, Label: info.Name})
	}

	// A zero latitude or longitude is treated as "no home location".
	if home == nil || home.Lat == 0 || home.Lon == 0 {
		return form
	}

	id, distance, ok := weather.NearestStation(*home, dir)
	if !ok {
		return form
	}

	form.SuggestedStationID = id
	form.NearestStation = dir[id].Name
	form.Distance = fmt.Sprintf("%.1f", distance)

	s.logger.Debug().
		Str("station_id", id).
		Float64("distance_km", distance).
		Msg("nearest station")

	return form
}

// Add configures a new station. The name is taken from the station catalog
// and falls back to "Station {id}" when the station is not listed.
func (s *Service) Add(ctx context.Context, stationID string) (*Config, error) {
	stationID = strings.TrimSpace(stationID)
	if stationID == "" {
		return nil, ErrInvalidStationID
	}

	cfg, err := s.create(ctx, stationID, s.catalog.FetchStations(ctx, true))
	if err != nil {
		return nil, err
	}

	if s.lifecycle != nil {
		s.lifecycle.StationAdded(ctx, *cfg)
	}

	return cfg, nil
}

func (s *Service) create(ctx context.Context, stationID string, dir weather.Directory) (*Config, error) {
	name := "Station " + stationID
	if info, ok := dir[stationID]; ok && info.Name != "" {
		name = info.Name
	}

	cfg := &Config{
		StationID:   stationID,
		StationName: name,
		CreatedAt:   s.now().UTC(),
	}

	if err := s.repo.Create(ctx, cfg); err != nil {
		if errors.Is(err, ErrAlreadyConfigured) {
			return nil, ErrAlreadyConfigured
		}
		return nil, fmt.Errorf("storing station %s: %w", stationID, err)
	}

	s.logger.Info().
		Str("station_id", stationID).
		Str("title", cfg.Title()).
		Msg("station configured")

	return cfg, nil
}

// Remove unloads and deletes a configured station.
func (s *Service) Remove(ctx context.Context, stationID string) error {
	if err := s.repo.Delete(ctx, stationID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("deleting station %s: %w", stationID, err)
	}

	if s.lifecycle != nil {
		s.lifecycle.StationRemoved(ctx, stationID)
	}

	s.logger.Info().Str("station_id", stationID).Msg("station removed")
	return nil
}

// Get retrieves one configured station.
func (s *Service) Get(ctx context.Context, stationID string) (*Config, error) {
	return s.repo.Get(ctx, stationID)
}

// List retrieves all configured stations.
func (s *Service) List(ctx context.Context) ([]*Config, error) {
	return s.repo.List(ctx)
}

// Load starts every stored station, typically once at startup. Stations are
// not refreshed here.
func (s *Service) Load(ctx context.Context) (int, error) {
	configs, err := s.repo.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("listing stations: %w", err)
	}

	if s.lifecycle != nil {
		for _, cfg := range configs {
			s.lifecycle.StationLoaded(ctx, *cfg)
		}
	}

	return len(configs), nil
}

// Seed configures and starts the given station IDs unless they are already
// configured. Like Load it does not refresh them.
func (s *Service) Seed(ctx context.Context, stationIDs []string) error {
	var missing []string
	for _, id := range stationIDs {
		id = strings.TrimSpace(id)
		if id == "" {
			return ErrInvalidStationID
		}
		_, err := s.repo.Get(ctx, id)
		switch {
		case errors.Is(err, ErrNotFound):
			missing = append(missing, id)
		case err != nil:
			return fmt.Errorf("looking up station %s: %w", id, err)
		}
	}
	if len(missing) == 0 {
		return nil
	}

	dir := s.catalog.FetchStations(ctx, true)
	for _, id := range missing {
		cfg, err := s.create(ctx, id, dir)
		if errors.Is(err, ErrAlreadyConfigured) {
			continue
		}
		if err != nil {
			return err
		}
		if s.lifecycle != nil {
			s.lifecycle.StationLoaded(ctx, *cfg)
		}
	}
	return nil
}
