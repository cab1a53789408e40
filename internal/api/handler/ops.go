// Package handler provides HTTP handlers for the station API.
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/lipelix/chmu-weather/internal/api/models"
	"github.com/lipelix/chmu-weather/internal/api/response"
	"github.com/lipelix/chmu-weather/internal/provider/resilience"
	"github.com/lipelix/chmu-weather/internal/station"
	"github.com/lipelix/chmu-weather/internal/weather"
	"github.com/lipelix/chmu-weather/internal/worker"
)

// ProviderHealthSource reports the health of upstream clients.
type ProviderHealthSource interface {
	GetAllHealth() []*resilience.ProviderHealth
	Summary() map[resilience.Condition]int
}

// StationRegistry exposes the running station services.
type StationRegistry interface {
	Service(stationID string) (*weather.Service, bool)
	Services() []*weather.Service
	RefreshStation(ctx context.Context, stationID string) error
	GetMetrics() worker.RefreshMetrics
}

// StationLister lists the configured stations.
type StationLister interface {
	List(ctx context.Context) ([]*station.Config, error)
}

// OpsHandlerConfig holds configuration for the ops handler.
type OpsHandlerConfig struct {
	Version   string
	BuildTime string
	Stations  StationLister
	Registry  StationRegistry

	// Providers is optional.
	Providers ProviderHealthSource
}

// OpsHandler handles operational endpoints.
type OpsHandler struct {
	version   string
	buildTime string
	stations  StationLister
	registry  StationRegistry
	providers ProviderHealthSource
}

// NewOpsHandler creates a new OpsHandler.
func NewOpsHandler(cfg OpsHandlerConfig) *OpsHandler {
	return &OpsHandler{
		version:   cfg.Version,
		buildTime: cfg.BuildTime,
		stations:  cfg.Stations,
		registry:  cfg.Registry,
		providers: cfg.Providers,
	}
}

// HealthCheck handles GET /v1/ops/health - liveness check.
func (h *OpsHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	health := models.Health{
		Status: models.HealthStatusOK,
		Time:   models.Timestamp(time.Now()),
		Details: map[string]interface{}{
			"version":   h.version,
			"buildTime": h.buildTime,
		},
	}
	response.JSON(w, r, http.StatusOK, health)
}

// ReadinessCheck handles GET /v1/ops/ready - readiness check.
// The service is ready once the station store answers.
func (h *OpsHandler) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	configs, err := h.stations.List(r.Context())
	if err != nil {
		response.JSON(w, r, http.StatusServiceUnavailable, models.Health{
			Status: models.HealthStatusFail,
			Time:   models.Timestamp(time.Now()),
			Details: map[string]interface{}{
				"store": "unavailable",
			},
		})
		return
	}

	response.JSON(w, r, http.StatusOK, models.Health{
		Status: models.HealthStatusOK,
		Time:   models.Timestamp(time.Now()),
		Details: map[string]interface{}{
			"configuredStations": len(configs),
			"runningStations":    len(h.registry.Services()),
			"providers":          h.providers.Summary(),
		},
	})
}

// SystemStatus handles GET /v1/ops/status - upstream and station status.
func (h *OpsHandler) SystemStatus(w http.ResponseWriter, r *http.Request) {
	status := models.SystemStatus{
		Status:    models.HealthStatusOK,
		Time:      models.Timestamp(time.Now()),
		Providers: []models.ProviderStatus{},
		Stations:  []models.StationStatus{},
	}

	if h.providers != nil {
		for _, ph := range h.providers.GetAllHealth() {
			ps := providerStatus(ph)
			if ps.Status != models.HealthStatusOK {
				status.Status = models.HealthStatusDegraded
			}
			status.Providers = append(status.Providers, ps)
		}
	}

	for _, svc := range h.registry.Services() {
		ss := stationStatus(svc.Status(), svc.Available())
		if ss.Status != models.HealthStatusOK {
			status.Status = models.HealthStatusDegraded
		}
		status.Stations = append(status.Stations, ss)
	}

	m := h.registry.GetMetrics()
	status.Refresh = &models.RefreshStatus{
		TotalRuns:         m.TotalRuns,
		SuccessfulRefresh: m.SuccessfulRefresh,
		FailedRefreshes:   m.FailedRefreshes,
		LastDurationMs:    m.LastRefreshDuration.Milliseconds(),
	}
	if !m.LastRefreshAt.IsZero() {
		status.Refresh.LastRunAt = models.TimestampPtr(&m.LastRefreshAt)
	}

	response.JSON(w, r, http.StatusOK, status)
}

func providerStatus(ph *resilience.ProviderHealth) models.ProviderStatus {
	ps := models.ProviderStatus{
		Provider:      ph.Name,
		Status:        models.HealthStatusOK,
		CircuitState:  ph.CircuitState.String(),
		LastSuccessAt: models.TimestampPtr(ph.LastSuccessAt),
		LastFailureAt: models.TimestampPtr(ph.LastFailureAt),
	}
	switch ph.Condition() {
	case resilience.ConditionFailing:
		ps.Status = models.HealthStatusFail
	case resilience.ConditionDegraded:
		ps.Status = models.HealthStatusDegraded
	}
	if ph.LastError != "" {
		msg := ph.LastError
		ps.Message = &msg
	}
	return ps
}

func stationStatus(st weather.Status, available bool) models.StationStatus {
	ss := models.StationStatus{
		StationID:     st.StationID,
		Status:        models.HealthStatusOK,
		Available:     available,
		LastSuccessAt: models.TimestampPtr(st.LastSuccessAt),
		LastFailureAt: models.TimestampPtr(st.LastFailureAt),
	}
	if st.Degraded {
		// Sensors keep serving the last reading while degraded.
		ss.Status = models.HealthStatusDegraded
		if !available {
			ss.Status = models.HealthStatusFail
		}
	}
	if st.LastError != "" {
		msg := st.LastError
		ss.Message = &msg
	}
	return ss
}
