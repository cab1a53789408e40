// Package chmu provides a client for the CHMU (Czech Hydrometeorological Institute) open data service.
package chmu

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/lipelix/chmu-weather/internal/provider/resilience"
	"github.com/lipelix/chmu-weather/internal/weather"
)

const (
	// ProviderName identifies this weather provider.
	ProviderName = "chmu"

	// DefaultBaseURL is the CHMU open data climate base URL.
	DefaultBaseURL = "https://opendata.chmi.cz/meteorology/climate"

	// MetadataPath holds the daily station catalog files.
	MetadataPath = "/now/metadata"

	// DataPath holds the daily per-station observation files.
	DataPath = "/now/data"

	// UserAgent is sent with every request.
	UserAgent = "Home-Assistant-CHMU-Integration/1.0"

	// DefaultTimeout bounds every upstream request.
	DefaultTimeout = 30 * time.Second

	// ProfessionalStationPrefix selects the professional station class from the catalog.
	ProfessionalStationPrefix = "0-20000-0-11"

	tracerName = "github.com/lipelix/chmu-weather/internal/weather/chmu"
)

// RequestRecorder receives the outcome of every upstream request.
type RequestRecorder interface {
	RecordRequest(provider, operation string, duration time.Duration, err error)
}

// HTTPDoer abstracts HTTP request execution.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// ClientConfig holds configuration for the CHMU client.
type ClientConfig struct {
	// Name identifies the client in the provider health registry
	// (defaults to "chmu").
	Name string

	// BaseURL is the API base URL (optional, defaults to DefaultBaseURL).
	BaseURL string

	// HTTPClient is the HTTP client to use (optional).
	// If nil, a single-attempt resilient client is created.
	HTTPClient HTTPDoer

	// Timeout bounds each request of the default HTTP client.
	// Default: DefaultTimeout
	Timeout time.Duration

	// PollInterval is the refresh cadence of a station feed. When set, the
	// default HTTP client trips its circuit on consecutive failures.
	PollInterval time.Duration

	// Registry tracks upstream health when the default HTTP client is used.
	Registry *resilience.Registry

	// Metrics records upstream request outcomes (optional).
	Metrics RequestRecorder

	// Logger for client operations.
	Logger zerolog.Logger

	// Now returns the current time; used for the daily file names.
	Now func() time.Time
}

// Client is a CHMU open data client.
type Client struct {
	baseURL    string
	httpClient HTTPDoer
	metrics    RequestRecorder
	logger     zerolog.Logger
	now        func() time.Time
	tracer     trace.Tracer
}

// NewClient creates a new CHMU client.
func NewClient(cfg ClientConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	name := cfg.Name
	if name == "" {
		name = ProviderName
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		cbConfig := resilience.PollingCircuitBreakerConfig(name, cfg.PollInterval)
		cbConfig.OnStateChange = resilience.LogStateChanges(cfg.Logger)
		httpClient = resilience.NewClient(resilience.ClientConfig{
			Name:           name,
			Timeout:        timeout,
			MaxRetries:     0, // a failed cycle is retried by the next scheduled refresh
			UserAgent:      UserAgent,
			CircuitBreaker: &cbConfig,
			Registry:       cfg.Registry,
		})
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: httpClient,
		metrics:    cfg.Metrics,
		logger:     cfg.Logger,
		now:        now,
		tracer:     otel.Tracer(tracerName),
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return ProviderName
}

// MetadataURL returns the station catalog URL for the given day.
func (c *Client) MetadataURL(date time.Time) string {
	return fmt.Sprintf("%s%s/meta1-%s.json", c.baseURL, MetadataPath, date.Format("20060102"))
}

// ObservationURL returns the 10-minute observation file URL for a station and day.
func (c *Client) ObservationURL(stationID string, date time.Time) string {
	return fmt.Sprintf("%s%s/10m-0-20000-0-%s-%s.json", c.baseURL, DataPath, stationID, date.Format("20060102"))
}

// FetchObservations retrieves the raw observation payload for a station and day.
// It returns (nil, nil) when the file does not exist yet (HTTP 404).
func (c *Client) FetchObservations(ctx context.Context, stationID string, date time.Time) (payload *Payload, err error) {
	url := c.ObservationURL(stationID, date)

	start := time.Now()
	defer func() {
		c.record("observations", start, err)
	}()

	ctx, span := c.tracer.Start(ctx, "chmu.FetchObservations",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("chmu.station_id", stationID),
			attribute.String("url.full", url),
		),
	)
	defer span.End()

	c.logger.Debug().Str("url", url).Msg("fetching observations")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "request failed")
		return nil, fmt.Errorf("%w: executing request: %w", weather.ErrFetch, err)
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))

	if resp.StatusCode == http.StatusNotFound {
		c.logger.Debug().Str("url", url).Msg("observation file not found")
		return nil, nil
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		span.SetStatus(codes.Error, http.StatusText(resp.StatusCode))
		return nil, fmt.Errorf("%w: unexpected status code: %d", weather.ErrFetch, resp.StatusCode)
	}

	payload, err = decodePayload(resp)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "decode failed")
		return nil, fmt.Errorf("%w: decoding response: %w", weather.ErrFetch, err)
	}

	return payload, nil
}

func (c *Client) record(operation string, start time.Time, err error) {
	if c.metrics != nil {
		c.metrics.RecordRequest(ProviderName, operation, time.Since(start), err)
	}
}

// Payload is the common envelope of CHMU JSON files: {data: {data: {values: [[...]]}}}.
type Payload struct {
	Data struct {
		Data struct {
			Values [][]any `json:"values"`
		} `json:"data"`
	} `json:"data"`
}

// Values returns the row-oriented values array.
func (p *Payload) Values() [][]any {
	if p == nil {
		return nil
	}
	return p.Data.Data.Values
}

func decodePayload(resp *http.Response) (*Payload, error) {
	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()

	var payload Payload
	if err := dec.Decode(&payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// StationFeed is the observation source for one configured station.
type StationFeed struct {
	client      *Client
	stationID   string
	stationName string
}

// NewStationFeed creates a feed for a single station.
func NewStationFeed(client *Client, stationID, stationName string) *StationFeed {
	if stationName == "" {
		stationName = "Station " + stationID
	}
	return &StationFeed{
		client:      client,
		stationID:   stationID,
		stationName: stationName,
	}
}

// Name returns the provider name.
func (f *StationFeed) Name() string {
	return ProviderName
}

// GetCurrentData fetches today's observations and reduces them to a reading.
// A missing file for today is reported as weather.ErrDataUnavailable.
func (f *StationFeed) GetCurrentData(ctx context.Context) (*weather.Reading, error) {
	payload, err := f.client.FetchObservations(ctx, f.stationID, f.client.now())
	if err != nil {
		return nil, err
	}
	if payload == nil {
		return nil, fmt.Errorf("%w %s", weather.ErrDataUnavailable, f.stationID)
	}

	// Without a temperature row the reading is stamped with the time of reduction.
	reading, err := Reduce(payload, f.stationID, f.stationName, f.client.now())
	if err != nil {
		return nil, err
	}

	f.client.logger.Debug().
		Str("station_id", f.stationID).
		Str("timestamp", reading.Timestamp).
		Msg("parsed observations")

	return reading, nil
}

var _ weather.Provider = (*StationFeed)(nil)
