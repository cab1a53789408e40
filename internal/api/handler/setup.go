package handler

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/lipelix/chmu-weather/internal/api/models"
	"github.com/lipelix/chmu-weather/internal/api/response"
	"github.com/lipelix/chmu-weather/internal/station"
	"github.com/lipelix/chmu-weather/internal/weather"
	"github.com/lipelix/chmu-weather/pkg/geo"
)

// SetupFormer builds the station selection form.
type SetupFormer interface {
	SetupForm(ctx context.Context, home *geo.Coordinate) *station.SetupForm
}

// SetupHandler handles the station selection endpoint.
type SetupHandler struct {
	stations SetupFormer
	home     *geo.Coordinate
}

// NewSetupHandler creates a new SetupHandler. home is the configured home
// location used when the request does not carry one, and may be nil.
func NewSetupHandler(stations SetupFormer, home *geo.Coordinate) *SetupHandler {
	return &SetupHandler{stations: stations, home: home}
}

// ListStations handles GET /v1/setup/stations?lat=&lon= - station options
// and the station nearest to the given location.
func (h *SetupHandler) ListStations(w http.ResponseWriter, r *http.Request) {
	home, fieldErrors := parseHome(r)
	if len(fieldErrors) > 0 {
		response.BadRequest(w, r, "invalid home location", fieldErrors)
		return
	}
	if home != nil && !home.Valid() {
		response.FromError(w, r, fmt.Errorf("home location %v,%v: %w", home.Lat, home.Lon, weather.ErrInvalidCoordinates))
		return
	}
	if home == nil {
		home = h.home
	}

	form := h.stations.SetupForm(r.Context(), home)
	response.JSON(w, r, http.StatusOK, models.SetupFormFrom(form))
}

// parseHome reads the optional lat/lon query pair. Both must be given together.
func parseHome(r *http.Request) (*geo.Coordinate, []models.FieldError) {
	q := r.URL.Query()
	latRaw, lonRaw := q.Get("lat"), q.Get("lon")
	if latRaw == "" && lonRaw == "" {
		return nil, nil
	}

	var errs []models.FieldError
	lat, err := strconv.ParseFloat(latRaw, 64)
	if err != nil {
		errs = append(errs, models.FieldError{Field: "lat", Message: "must be a number"})
	}
	lon, err := strconv.ParseFloat(lonRaw, 64)
	if err != nil {
		errs = append(errs, models.FieldError{Field: "lon", Message: "must be a number"})
	}
	if len(errs) > 0 {
		return nil, errs
	}

	return &geo.Coordinate{Lat: lat, Lon: lon}, nil
}
