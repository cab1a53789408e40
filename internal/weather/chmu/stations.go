package chmu

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/lipelix/chmu-weather/internal/weather"
	"github.com/lipelix/chmu-weather/pkg/geo"
)

// Catalog row layout: [wsi, gh_id, full_name, longitude, latitude, elevation, begin_date, ...].
const (
	colWSI       = 0
	colFullName  = 2
	colLongitude = 3
	colLatitude  = 4

	minNameFields  = 3
	minCoordFields = 5
)

var errMalformedRow = errors.New("malformed station row")

// FallbackStations returns the static directory used when the catalog cannot be read.
// Coordinates are only attached when withCoordinates is set.
func FallbackStations(withCoordinates bool) weather.Directory {
	stations := []weather.StationInfo{
		{ID: "11450", Name: "Plzeň, Mikulka", Coordinate: geo.Coordinate{Lat: 49.764722, Lon: 13.378889}},
		{ID: "11518", Name: "Praha-Ruzyně", Coordinate: geo.Coordinate{Lat: 50.1008, Lon: 14.26}},
		{ID: "11782", Name: "Brno-Tuřany", Coordinate: geo.Coordinate{Lat: 49.1513, Lon: 16.6944}},
	}

	dir := make(weather.Directory, len(stations))
	for _, s := range stations {
		if withCoordinates {
			s.HasCoordinate = true
		} else {
			s.Coordinate = geo.Coordinate{}
		}
		dir[s.ID] = s
	}
	return dir
}

// FetchStations reads today's station catalog and returns the professional stations.
// It never fails: any transport, status or parse problem is logged and the
// fallback directory is returned instead.
func (c *Client) FetchStations(ctx context.Context, withCoordinates bool) weather.Directory {
	url := c.MetadataURL(c.now())

	ctx, span := c.tracer.Start(ctx, "chmu.FetchStations",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("url.full", url),
			attribute.Bool("chmu.with_coordinates", withCoordinates),
		),
	)
	defer span.End()

	c.logger.Info().Str("url", url).Bool("with_coordinates", withCoordinates).Msg("fetching station catalog")

	start := time.Now()
	dir, err := c.fetchStations(ctx, url, withCoordinates)
	c.record("stations", start, err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "using fallback stations")
		c.logger.Error().Err(err).Str("url", url).Msg("failed to fetch stations, using fallback set")
		return FallbackStations(withCoordinates)
	}

	span.SetAttributes(attribute.Int("chmu.station_count", len(dir)))
	c.logger.Info().Int("stations", len(dir)).Msg("station catalog loaded")

	return dir
}

func (c *Client) fetchStations(ctx context.Context, url string, withCoordinates bool) (weather.Directory, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	payload, err := decodePayload(resp)
	if err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	c.logger.Debug().Int("entries", len(payload.Values())).Msg("got catalog entries")

	return ParseStations(payload.Values(), withCoordinates)
}

// ParseStations builds a directory from catalog rows. Rows that do not
// qualify are skipped; a row that cannot be interpreted at all fails the
// whole catalog. Later rows overwrite earlier ones with the same station ID.
func ParseStations(rows [][]any, withCoordinates bool) (weather.Directory, error) {
	minFields := minNameFields
	if withCoordinates {
		minFields = minCoordFields
	}

	dir := make(weather.Directory)
	for i, row := range rows {
		if len(row) < minFields {
			continue
		}

		if !truthy(row[colWSI]) {
			continue
		}
		wsi, ok := row[colWSI].(string)
		if !ok {
			return nil, fmt.Errorf("%w %d: station identifier is %T", errMalformedRow, i, row[colWSI])
		}
		if !strings.HasPrefix(wsi, ProfessionalStationPrefix) {
			continue
		}

		station := weather.StationInfo{}

		if withCoordinates {
			if !truthy(row[colLongitude]) || !truthy(row[colLatitude]) {
				continue
			}
		}

		name, ok := row[colFullName].(string)
		if !ok || name == "" {
			continue
		}

		if withCoordinates {
			lon, err := toFloat(row[colLongitude])
			if err != nil {
				return nil, fmt.Errorf("%w %d: longitude: %w", errMalformedRow, i, err)
			}
			lat, err := toFloat(row[colLatitude])
			if err != nil {
				return nil, fmt.Errorf("%w %d: latitude: %w", errMalformedRow, i, err)
			}
			station.Coordinate = geo.Coordinate{Lat: lat, Lon: lon}
			station.HasCoordinate = true
		}

		station.ID = wsi[strings.LastIndex(wsi, "-")+1:]
		station.Name = name
		dir[station.ID] = station
	}

	return dir, nil
}

// truthy reports whether a decoded JSON value counts as present.
// nil, false, empty strings and numeric zero do not.
func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case float64:
		return t != 0
	case json.Number:
		f, err := t.Float64()
		return err != nil || f != 0
	case []any:
		return len(t) > 0
	case map[string]any:
		return len(t) > 0
	default:
		return true
	}
}

// toFloat converts a decoded JSON number or numeric string to float64.
func toFloat(v any) (float64, error) {
	switch t := v.(type) {
	case float64:
		return t, nil
	case int:
		return float64(t), nil
	case json.Number:
		return t.Float64()
	case string:
		return strconv.ParseFloat(strings.TrimSpace(t), 64)
	default:
		return 0, fmt.Errorf("unsupported value type %T", v)
	}
}
