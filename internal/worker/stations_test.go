package worker_test

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lipelix/chmu-weather/internal/station"
	"github.com/lipelix/chmu-weather/internal/weather"
	"github.com/lipelix/chmu-weather/internal/worker"
)

func TestStationRunner(t *testing.T) {
	job := newTestJob(worker.RefreshConfig{})
	provider := &stubProvider{}

	var removed []string
	built := 0
	runner := worker.NewStationRunner(worker.StationRunnerConfig{
		Job: job,
		Factory: func(cfg station.Config) *weather.Service {
			built++
			return weather.NewService(weather.ServiceConfig{
				StationID:   cfg.StationID,
				StationName: cfg.StationName,
				Provider:    provider,
				Logger:      zerolog.Nop(),
			})
		},
		OnRemoved: func(id string) { removed = append(removed, id) },
		Logger:    zerolog.Nop(),
	})

	cfg := station.Config{StationID: "11518", StationName: "Praha-Ruzyně"}
	runner.StationAdded(context.Background(), cfg)

	svc, ok := job.Service("11518")
	require.True(t, ok)
	assert.Equal(t, "Praha-Ruzyně", svc.StationName())
	// The first refresh runs as part of setup.
	assert.True(t, svc.Available())
	assert.Equal(t, int32(1), provider.calls.Load())

	// Adding again is a no-op and does not build a second service.
	runner.StationAdded(context.Background(), cfg)
	runner.StationLoaded(context.Background(), cfg)
	assert.Equal(t, int32(1), provider.calls.Load())
	assert.Equal(t, 1, built)

	runner.StationRemoved(context.Background(), "11518")
	runner.StationRemoved(context.Background(), "11518")
	_, ok = job.Service("11518")
	assert.False(t, ok)
	assert.Equal(t, []string{"11518"}, removed)
}

func TestStationRunner_FirstRefreshFailureKeepsStation(t *testing.T) {
	job := newTestJob(worker.RefreshConfig{})
	provider := &stubProvider{}
	provider.setErr(weather.ErrDataUnavailable)

	runner := worker.NewStationRunner(worker.StationRunnerConfig{
		Job: job,
		Factory: func(cfg station.Config) *weather.Service {
			return newStationService(cfg.StationID, provider)
		},
		Logger: zerolog.Nop(),
	})

	runner.StationAdded(context.Background(), station.Config{StationID: "11450"})

	svc, ok := job.Service("11450")
	require.True(t, ok)
	assert.False(t, svc.Available())
	assert.True(t, svc.Status().Degraded)
}

func TestStationRunner_LoadedStationIsNotRefreshed(t *testing.T) {
	job := newTestJob(worker.RefreshConfig{})
	provider := &stubProvider{}

	runner := worker.NewStationRunner(worker.StationRunnerConfig{
		Job: job,
		Factory: func(cfg station.Config) *weather.Service {
			return newStationService(cfg.StationID, provider)
		},
		Logger: zerolog.Nop(),
	})

	runner.StationLoaded(context.Background(), station.Config{StationID: "11518"})
	runner.StationLoaded(context.Background(), station.Config{StationID: "11450"})

	assert.Len(t, job.Services(), 2)
	assert.Zero(t, provider.calls.Load())

	// The scheduler performs the first refresh of every loaded station.
	result := job.Run(context.Background())
	assert.Equal(t, 2, result.Successful)
	assert.Equal(t, int32(2), provider.calls.Load())
}
