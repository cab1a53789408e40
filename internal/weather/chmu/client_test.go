package chmu_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lipelix/chmu-weather/internal/provider/resilience"
	"github.com/lipelix/chmu-weather/internal/weather"
	"github.com/lipelix/chmu-weather/internal/weather/chmu"
)

var testNow = time.Date(2024, 1, 1, 12, 0, 0, 0, time.Local)

const observationsJSON = `{"data":{"data":{"values":[
	["0-20000-0-11518","T","2024-01-01T10:00",5.2,0,1],
	["0-20000-0-11518","T","2024-01-01T10:10",5.5,0,1],
	["0-20000-0-11518","H","2024-01-01T10:10",81,0,1]
]}}}`

func newTestClient(t *testing.T, handler http.HandlerFunc) *chmu.Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return chmu.NewClient(chmu.ClientConfig{
		BaseURL:    server.URL,
		HTTPClient: server.Client(),
		Now:        func() time.Time { return testNow },
	})
}

func TestClient_URLs(t *testing.T) {
	client := chmu.NewClient(chmu.ClientConfig{})

	assert.Equal(t,
		"https://opendata.chmi.cz/meteorology/climate/now/metadata/meta1-20240101.json",
		client.MetadataURL(testNow))
	assert.Equal(t,
		"https://opendata.chmi.cz/meteorology/climate/now/data/10m-0-20000-0-11518-20240101.json",
		client.ObservationURL("11518", testNow))
	assert.Equal(t, "chmu", client.Name())
}

func TestClient_FetchObservations(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/now/data/10m-0-20000-0-11518-20240101.json", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(observationsJSON))
	})

	payload, err := client.FetchObservations(context.Background(), "11518", testNow)
	require.NoError(t, err)
	require.NotNil(t, payload)
	assert.Len(t, payload.Values(), 3)
}

func TestClient_FetchObservations_NotFound(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	payload, err := client.FetchObservations(context.Background(), "11518", testNow)
	require.NoError(t, err)
	assert.Nil(t, payload)
}

func TestClient_FetchObservations_ServerError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	payload, err := client.FetchObservations(context.Background(), "11518", testNow)
	require.Error(t, err)
	assert.Nil(t, payload)
	assert.True(t, errors.Is(err, weather.ErrFetch))
}

func TestClient_FetchObservations_MalformedJSON(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data": [`))
	})

	_, err := client.FetchObservations(context.Background(), "11518", testNow)
	require.Error(t, err)
	assert.True(t, errors.Is(err, weather.ErrFetch))
}

func TestClient_FetchObservations_TransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	client := chmu.NewClient(chmu.ClientConfig{BaseURL: url, HTTPClient: http.DefaultClient})

	_, err := client.FetchObservations(context.Background(), "11518", testNow)
	require.Error(t, err)
	assert.True(t, errors.Is(err, weather.ErrFetch))
}

func TestClient_DefaultHTTPClientSendsUserAgent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, chmu.UserAgent, r.Header.Get("User-Agent"))
		w.Write([]byte(observationsJSON))
	}))
	defer server.Close()

	registry := resilience.NewRegistry()
	client := chmu.NewClient(chmu.ClientConfig{
		Name:     "chmu-11518",
		BaseURL:  server.URL,
		Registry: registry,
	})

	_, err := client.FetchObservations(context.Background(), "11518", testNow)
	require.NoError(t, err)

	health := registry.GetHealth("chmu-11518")
	require.NotNil(t, health)
	assert.True(t, health.IsHealthy())
}

func TestStationFeed_GetCurrentData(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(observationsJSON))
	})

	feed := chmu.NewStationFeed(client, "11518", "Praha-Ruzyně")
	assert.Equal(t, "chmu", feed.Name())

	reading, err := feed.GetCurrentData(context.Background())
	require.NoError(t, err)
	require.NotNil(t, reading.Temperature)
	assert.Equal(t, 5.5, *reading.Temperature)
	require.NotNil(t, reading.Humidity)
	assert.Equal(t, 81.0, *reading.Humidity)
	assert.Equal(t, "2024-01-01T10:10", reading.Timestamp)
	assert.Equal(t, "Praha-Ruzyně", reading.StationName)
}

func TestStationFeed_GetCurrentData_NoDataYet(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	feed := chmu.NewStationFeed(client, "11518", "")

	reading, err := feed.GetCurrentData(context.Background())
	require.Error(t, err)
	assert.Nil(t, reading)
	assert.True(t, errors.Is(err, weather.ErrDataUnavailable))
	assert.Contains(t, err.Error(), "11518")
}

func TestStationFeed_TimestampFallbackUsesTimeOfReduction(t *testing.T) {
	var served atomic.Bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		served.Store(true)
		w.Write([]byte(`{"data":{"data":{"values":[["0-20000-0-11518","H","2024-01-01T10:10",81,0,1]]}}}`))
	}))
	t.Cleanup(server.Close)

	requestedAt := testNow
	receivedAt := testNow.Add(25 * time.Second)
	client := chmu.NewClient(chmu.ClientConfig{
		BaseURL:    server.URL,
		HTTPClient: server.Client(),
		Now: func() time.Time {
			if served.Load() {
				return receivedAt
			}
			return requestedAt
		},
	})

	reading, err := chmu.NewStationFeed(client, "11518", "Praha-Ruzyně").GetCurrentData(context.Background())
	require.NoError(t, err)
	assert.Nil(t, reading.Temperature)
	assert.Equal(t, receivedAt.Format("2006-01-02T15:04:05.000000"), reading.Timestamp)
}

func TestStationFeed_DefaultName(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(observationsJSON))
	})

	reading, err := chmu.NewStationFeed(client, "11518", "").GetCurrentData(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Station 11518", reading.StationName)
}

type recordedRequest struct {
	provider, operation string
	failed              bool
}

type fakeRecorder struct {
	mu       sync.Mutex
	requests []recordedRequest
}

func (r *fakeRecorder) RecordRequest(provider, operation string, _ time.Duration, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requests = append(r.requests, recordedRequest{provider: provider, operation: operation, failed: err != nil})
}

func TestClient_RecordsRequestMetrics(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/now/metadata/meta1-20240101.json" {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(observationsJSON))
	}))
	t.Cleanup(server.Close)

	recorder := &fakeRecorder{}
	client := chmu.NewClient(chmu.ClientConfig{
		BaseURL:    server.URL,
		HTTPClient: server.Client(),
		Metrics:    recorder,
		Now:        func() time.Time { return testNow },
	})

	_, err := client.FetchObservations(context.Background(), "11518", testNow)
	require.NoError(t, err)
	client.FetchStations(context.Background(), true)

	assert.Equal(t, []recordedRequest{
		{provider: "chmu", operation: "observations"},
		{provider: "chmu", operation: "stations", failed: true},
	}, recorder.requests)
}
