package worker

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/lipelix/chmu-weather/internal/weather"
)

// ErrUnknownStation is returned when refreshing a station that is not registered.
var ErrUnknownStation = errors.New("station not registered")

// RefreshJob refreshes the registered station services.
type RefreshJob struct {
	config RefreshConfig
	logger zerolog.Logger

	mu       sync.RWMutex
	services map[string]*weather.Service

	// Metrics
	metrics *RefreshMetrics
}

// RefreshMetrics tracks refresh job statistics.
type RefreshMetrics struct {
	mu sync.RWMutex

	// Counters
	TotalRuns         int64
	SuccessfulRefresh int64
	FailedRefreshes   int64

	// Timings
	LastRefreshAt       time.Time
	LastRefreshDuration time.Duration
	TotalDuration       time.Duration
}

// RefreshJobConfig holds configuration for creating a RefreshJob.
type RefreshJobConfig struct {
	Config RefreshConfig
	Logger zerolog.Logger
}

// NewRefreshJob creates a new refresh job processor.
func NewRefreshJob(cfg RefreshJobConfig) *RefreshJob {
	return &RefreshJob{
		config:   cfg.Config.withDefaults(),
		logger:   cfg.Logger,
		services: make(map[string]*weather.Service),
		metrics:  &RefreshMetrics{},
	}
}

// Config returns the effective refresh configuration.
func (j *RefreshJob) Config() RefreshConfig {
	return j.config
}

// Register adds a station service. It returns false if a service for the
// same station is already registered.
func (j *RefreshJob) Register(svc *weather.Service) bool {
	j.mu.Lock()
	defer j.mu.Unlock()

	if _, exists := j.services[svc.StationID()]; exists {
		return false
	}
	j.services[svc.StationID()] = svc
	return true
}

// Unregister removes a station service.
func (j *RefreshJob) Unregister(stationID string) bool {
	j.mu.Lock()
	defer j.mu.Unlock()

	if _, exists := j.services[stationID]; !exists {
		return false
	}
	delete(j.services, stationID)
	return true
}

// Service returns the registered service of a station.
func (j *RefreshJob) Service(stationID string) (*weather.Service, bool) {
	j.mu.RLock()
	defer j.mu.RUnlock()

	svc, ok := j.services[stationID]
	return svc, ok
}

// Services returns the registered services ordered by station ID.
func (j *RefreshJob) Services() []*weather.Service {
	j.mu.RLock()
	defer j.mu.RUnlock()

	services := make([]*weather.Service, 0, len(j.services))
	for _, svc := range j.services {
		services = append(services, svc)
	}
	sort.Slice(services, func(a, b int) bool {
		return services[a].StationID() < services[b].StationID()
	})
	return services
}

// RefreshResult contains the result of a refresh operation.
type RefreshResult struct {
	StartTime     time.Time
	EndTime       time.Time
	Duration      time.Duration
	TotalStations int
	Successful    int
	Failed        int
	Errors        []RefreshError
}

// RefreshError represents an error during refresh.
type RefreshError struct {
	StationID string
	Error     string
}

// Run refreshes every registered station once.
func (j *RefreshJob) Run(ctx context.Context) *RefreshResult {
	services := j.Services()

	startTime := time.Now()
	result := &RefreshResult{
		StartTime:     startTime,
		TotalStations: len(services),
	}

	j.logger.Info().
		Int("total_stations", result.TotalStations).
		Int("concurrency", j.config.Concurrency).
		Msg("starting station refresh job")

	// Create work channels
	stationsChan := make(chan *weather.Service, len(services))
	resultsChan := make(chan stationResult, len(services))

	// Start workers
	var wg sync.WaitGroup
	for i := 0; i < j.config.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			j.refreshWorker(ctx, stationsChan, resultsChan)
		}()
	}

	for _, svc := range services {
		stationsChan <- svc
	}
	close(stationsChan)

	go func() {
		wg.Wait()
		close(resultsChan)
	}()

	// Collect results
	for sr := range resultsChan {
		if sr.err == nil {
			result.Successful++
			continue
		}
		result.Failed++
		result.Errors = append(result.Errors, RefreshError{
			StationID: sr.stationID,
			Error:     sr.err.Error(),
		})
	}

	sort.Slice(result.Errors, func(a, b int) bool {
		return result.Errors[a].StationID < result.Errors[b].StationID
	})

	result.EndTime = time.Now()
	result.Duration = result.EndTime.Sub(startTime)

	j.updateMetrics(result)

	j.logger.Info().
		Dur("duration", result.Duration).
		Int("successful", result.Successful).
		Int("failed", result.Failed).
		Msg("station refresh job completed")

	return result
}

type stationResult struct {
	stationID string
	err       error
}

func (j *RefreshJob) refreshWorker(ctx context.Context, services <-chan *weather.Service, results chan<- stationResult) {
	for svc := range services {
		select {
		case <-ctx.Done():
			results <- stationResult{stationID: svc.StationID(), err: ctx.Err()}
		default:
			results <- stationResult{stationID: svc.StationID(), err: j.refresh(ctx, svc)}
		}
	}
}

func (j *RefreshJob) refresh(ctx context.Context, svc *weather.Service) error {
	stationCtx, cancel := context.WithTimeout(ctx, j.config.Timeout)
	defer cancel()

	_, err := svc.Refresh(stationCtx)
	return err
}

// RefreshStation refreshes a single registered station.
func (j *RefreshJob) RefreshStation(ctx context.Context, stationID string) error {
	svc, ok := j.Service(stationID)
	if !ok {
		return ErrUnknownStation
	}

	start := time.Now()
	err := j.refresh(ctx, svc)

	result := &RefreshResult{
		StartTime:     start,
		EndTime:       time.Now(),
		TotalStations: 1,
	}
	result.Duration = result.EndTime.Sub(start)
	if err != nil {
		result.Failed = 1
	} else {
		result.Successful = 1
	}
	j.updateMetrics(result)

	return err
}

// Start runs an initial refresh and then refreshes every Interval until ctx is done.
// A tick that arrives while a station is still refreshing waits for that refresh.
func (j *RefreshJob) Start(ctx context.Context) {
	j.logger.Info().
		Dur("interval", j.config.Interval).
		Msg("starting refresh scheduler")

	j.Run(ctx)

	ticker := time.NewTicker(j.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			j.logger.Info().Msg("refresh scheduler stopped")
			return
		case <-ticker.C:
			j.Run(ctx)
		}
	}
}

func (j *RefreshJob) updateMetrics(result *RefreshResult) {
	j.metrics.mu.Lock()
	defer j.metrics.mu.Unlock()

	j.metrics.TotalRuns++
	j.metrics.SuccessfulRefresh += int64(result.Successful)
	j.metrics.FailedRefreshes += int64(result.Failed)
	j.metrics.LastRefreshAt = result.EndTime
	j.metrics.LastRefreshDuration = result.Duration
	j.metrics.TotalDuration += result.Duration
}

// GetMetrics returns a copy of the current metrics.
func (j *RefreshJob) GetMetrics() RefreshMetrics {
	j.metrics.mu.RLock()
	defer j.metrics.mu.RUnlock()

	return RefreshMetrics{
		TotalRuns:           j.metrics.TotalRuns,
		SuccessfulRefresh:   j.metrics.SuccessfulRefresh,
		FailedRefreshes:     j.metrics.FailedRefreshes,
		LastRefreshAt:       j.metrics.LastRefreshAt,
		LastRefreshDuration: j.metrics.LastRefreshDuration,
		TotalDuration:       j.metrics.TotalDuration,
	}
}

// MetricsSnapshot returns a snapshot of the current metrics as a map.
func (j *RefreshJob) MetricsSnapshot() map[string]interface{} {
	m := j.GetMetrics()
	return map[string]interface{}{
		"total_runs":            m.TotalRuns,
		"successful_refreshes":  m.SuccessfulRefresh,
		"failed_refreshes":      m.FailedRefreshes,
		"registered_stations":   len(j.Services()),
		"last_refresh_at":       m.LastRefreshAt,
		"last_refresh_duration": m.LastRefreshDuration.String(),
		"total_duration":        m.TotalDuration.String(),
	}
}
