package weather

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Provider defines the interface for per-station observation sources.
type Provider interface {
	// GetCurrentData fetches and reduces today's observations for the station.
	GetCurrentData(ctx context.Context) (*Reading, error)

	// Name returns the provider name for logging.
	Name() string
}

// UpdateFunc is called after every refresh attempt. reading is the last known
// reading (possibly stale or nil) and err is the refresh error, if any.
type UpdateFunc func(stationID string, reading *Reading, err error)

// ServiceConfig holds configuration for a station service.
type ServiceConfig struct {
	StationID   string
	StationName string

	// Provider is the observation source for this station.
	Provider Provider

	// Logger for service operations.
	Logger zerolog.Logger
}

// Service keeps the latest reading of one station and serializes its refreshes.
type Service struct {
	stationID   string
	stationName string
	provider    Provider
	logger      zerolog.Logger

	// refreshMu is held for the duration of a refresh.
	refreshMu sync.Mutex

	mu            sync.RWMutex
	current       *Reading
	lastSuccessAt *time.Time
	lastFailureAt *time.Time
	lastErr       error
	listeners     []UpdateFunc
}

// NewService creates a new station service.
func NewService(cfg ServiceConfig) *Service {
	name := cfg.StationName
	if name == "" {
		name = "Station " + cfg.StationID
	}

	return &Service{
		stationID:   cfg.StationID,
		stationName: name,
		provider:    cfg.Provider,
		logger:      cfg.Logger.With().Str("station_id", cfg.StationID).Logger(),
	}
}

// StationID returns the station identifier.
func (s *Service) StationID() string {
	return s.stationID
}

// StationName returns the display name of the station.
func (s *Service) StationName() string {
	return s.stationName
}

// OnUpdate registers a listener notified after each refresh.
func (s *Service) OnUpdate(fn UpdateFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// Refresh fetches a new reading from the provider.
// A refresh started while another is running waits for it to finish.
// On failure the previous reading is kept and the error is returned.
func (s *Service) Refresh(ctx context.Context) (*Reading, error) {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	start := time.Now()

	s.logger.Debug().
		Str("provider", s.provider.Name()).
		Msg("refreshing station data")

	reading, err := s.provider.GetCurrentData(ctx)
	if err == nil && reading == nil {
		err = ErrDataUnavailable
	}
	now := time.Now()

	s.mu.Lock()
	if err != nil {
		err = fmt.Errorf("refreshing station %s: %w", s.stationID, err)
		s.lastFailureAt = &now
		s.lastErr = err
	} else {
		if reading.StationName == "" {
			reading.StationName = s.stationName
		}
		if reading.FetchedAt.IsZero() {
			reading.FetchedAt = now
		}
		s.current = reading
		s.lastSuccessAt = &now
		s.lastErr = nil
	}
	current := s.current
	listeners := make([]UpdateFunc, len(s.listeners))
	copy(listeners, s.listeners)
	s.mu.Unlock()

	if err != nil {
		s.logger.Error().Err(err).
			Dur("duration", now.Sub(start)).
			Msg("station refresh failed")
	} else {
		s.logger.Debug().
			Str("timestamp", reading.Timestamp).
			Dur("duration", now.Sub(start)).
			Msg("station refresh completed")
	}

	for _, fn := range listeners {
		fn(s.stationID, current, err)
	}

	if err != nil {
		return nil, err
	}
	return reading, nil
}

// Current returns the last successfully fetched reading, or nil if none.
func (s *Service) Current() *Reading {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Status returns the refresh status of the station.
func (s *Service) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	status := Status{
		StationID:     s.stationID,
		LastSuccessAt: s.lastSuccessAt,
		LastFailureAt: s.lastFailureAt,
		Degraded:      s.lastErr != nil,
	}
	if s.lastErr != nil {
		status.LastError = s.lastErr.Error()
	}
	return status
}

// Available reports whether any refresh has ever succeeded.
// Sensors keep showing the last reading while later refreshes fail.
func (s *Service) Available() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current != nil
}
