package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/lipelix/chmu-weather/internal/api/models"
	"github.com/lipelix/chmu-weather/internal/api/response"
	"github.com/lipelix/chmu-weather/internal/sensor"
	"github.com/lipelix/chmu-weather/internal/station"
	"github.com/lipelix/chmu-weather/internal/weather"
)

// StationStore manages the configured stations.
type StationStore interface {
	Add(ctx context.Context, stationID string) (*station.Config, error)
	Remove(ctx context.Context, stationID string) error
	Get(ctx context.Context, stationID string) (*station.Config, error)
	List(ctx context.Context) ([]*station.Config, error)
}

// StationHandler handles station configuration and observation endpoints.
type StationHandler struct {
	stations StationStore
	registry StationRegistry
	logger   zerolog.Logger
}

// NewStationHandler creates a new StationHandler.
func NewStationHandler(stations StationStore, registry StationRegistry, logger zerolog.Logger) *StationHandler {
	return &StationHandler{
		stations: stations,
		registry: registry,
		logger:   logger,
	}
}

// ListStations handles GET /v1/stations - list configured stations.
func (h *StationHandler) ListStations(w http.ResponseWriter, r *http.Request) {
	configs, err := h.stations.List(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}

	list := models.StationList{Items: make([]models.StationConfig, 0, len(configs))}
	for _, cfg := range configs {
		list.Items = append(list.Items, models.StationConfigFrom(cfg))
	}
	response.JSON(w, r, http.StatusOK, list)
}

// CreateStation handles POST /v1/stations - configure a station.
func (h *StationHandler) CreateStation(w http.ResponseWriter, r *http.Request) {
	var input models.CreateStationRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}
	if fieldErrors := input.Validate(); len(fieldErrors) > 0 {
		response.BadRequest(w, r, "validation failed", fieldErrors)
		return
	}

	cfg, err := h.stations.Add(r.Context(), input.StationID)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	response.Created(w, r, "/v1/stations/"+cfg.StationID, models.StationConfigFrom(cfg))
}

// GetStation handles GET /v1/stations/{stationId}.
func (h *StationHandler) GetStation(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.stations.Get(r.Context(), chi.URLParam(r, "stationId"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, models.StationConfigFrom(cfg))
}

// DeleteStation handles DELETE /v1/stations/{stationId} - unload a station.
func (h *StationHandler) DeleteStation(w http.ResponseWriter, r *http.Request) {
	if err := h.stations.Remove(r.Context(), chi.URLParam(r, "stationId")); err != nil {
		h.fail(w, r, err)
		return
	}
	response.NoContent(w, r)
}

// GetReading handles GET /v1/stations/{stationId}/reading - latest observation.
func (h *StationHandler) GetReading(w http.ResponseWriter, r *http.Request) {
	stationID := chi.URLParam(r, "stationId")
	if _, err := h.stations.Get(r.Context(), stationID); err != nil {
		h.fail(w, r, err)
		return
	}

	reading := h.current(stationID)
	if reading == nil {
		h.fail(w, r, weather.ErrDataUnavailable)
		return
	}

	response.JSON(w, r, http.StatusOK, models.ReadingFrom(stationID, reading))
}

// GetSensors handles GET /v1/stations/{stationId}/sensors - sensor states
// grouped under the station device.
func (h *StationHandler) GetSensors(w http.ResponseWriter, r *http.Request) {
	stationID := chi.URLParam(r, "stationId")
	cfg, err := h.stations.Get(r.Context(), stationID)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	reading := h.current(stationID)

	var fetchedAt *time.Time
	if reading != nil {
		t := reading.FetchedAt.UTC()
		fetchedAt = &t
	}

	out := models.StationSensorsFrom(sensor.DeviceInfo(stationID, cfg.StationName), sensor.States(stationID, reading), fetchedAt)
	response.JSON(w, r, http.StatusOK, out)
}

// RefreshStation handles POST /v1/stations/{stationId}/refresh - refresh now.
func (h *StationHandler) RefreshStation(w http.ResponseWriter, r *http.Request) {
	stationID := chi.URLParam(r, "stationId")
	if err := h.registry.RefreshStation(r.Context(), stationID); err != nil {
		h.fail(w, r, err)
		return
	}

	reading := h.current(stationID)
	if reading == nil {
		h.fail(w, r, weather.ErrDataUnavailable)
		return
	}
	response.JSON(w, r, http.StatusOK, models.ReadingFrom(stationID, reading))
}

// current returns the last reading of a running station, or nil.
func (h *StationHandler) current(stationID string) *weather.Reading {
	svc, ok := h.registry.Service(stationID)
	if !ok {
		return nil
	}
	return svc.Current()
}

func (h *StationHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	h.logger.Debug().Err(err).Str("path", r.URL.Path).Msg("station request failed")
	response.FromError(w, r, err)
}
