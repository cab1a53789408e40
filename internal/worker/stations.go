package worker

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/lipelix/chmu-weather/internal/station"
	"github.com/lipelix/chmu-weather/internal/weather"
)

// ServiceFactory builds the refresh service of a configured station.
type ServiceFactory func(cfg station.Config) *weather.Service

// StationRunnerConfig holds configuration for a StationRunner.
type StationRunnerConfig struct {
	Job     *RefreshJob
	Factory ServiceFactory

	// OnRemoved is called after a station service is unregistered (optional).
	OnRemoved func(stationID string)

	Logger zerolog.Logger
}

// StationRunner starts and stops station services as configurations come and go.
type StationRunner struct {
	job       *RefreshJob
	factory   ServiceFactory
	onRemoved func(stationID string)
	logger    zerolog.Logger
}

// NewStationRunner creates a new station runner.
func NewStationRunner(cfg StationRunnerConfig) *StationRunner {
	return &StationRunner{
		job:       cfg.Job,
		factory:   cfg.Factory,
		onRemoved: cfg.OnRemoved,
		logger:    cfg.Logger,
	}
}

// StationAdded registers the station and performs its first refresh.
// A failed first refresh leaves the station registered; the scheduler retries it.
func (r *StationRunner) StationAdded(ctx context.Context, cfg station.Config) {
	if !r.start(cfg) {
		return
	}

	if err := r.job.RefreshStation(ctx, cfg.StationID); err != nil {
		r.logger.Warn().Err(err).Str("station_id", cfg.StationID).Msg("first refresh failed")
	}
}

// StationLoaded registers the station without refreshing it.
func (r *StationRunner) StationLoaded(_ context.Context, cfg station.Config) {
	r.start(cfg)
}

// start builds and registers the station service. The factory is not called
// for a station that is already running since it creates the station's
// upstream client.
func (r *StationRunner) start(cfg station.Config) bool {
	if _, running := r.job.Service(cfg.StationID); running {
		r.logger.Debug().Str("station_id", cfg.StationID).Msg("station already running")
		return false
	}

	if !r.job.Register(r.factory(cfg)) {
		r.logger.Debug().Str("station_id", cfg.StationID).Msg("station already running")
		return false
	}

	r.logger.Info().
		Str("station_id", cfg.StationID).
		Str("station_name", cfg.StationName).
		Msg("station started")
	return true
}

// StationRemoved unregisters the station.
func (r *StationRunner) StationRemoved(_ context.Context, stationID string) {
	if !r.job.Unregister(stationID) {
		return
	}

	if r.onRemoved != nil {
		r.onRemoved(stationID)
	}

	r.logger.Info().Str("station_id", stationID).Msg("station stopped")
}

var _ station.Lifecycle = (*StationRunner)(nil)
