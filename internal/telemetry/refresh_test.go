package telemetry_test

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/lipelix/chmu-weather/internal/telemetry"
	"github.com/lipelix/chmu-weather/internal/weather"
	"github.com/lipelix/chmu-weather/internal/worker"
)

type staticProvider struct {
	err error
}

func (p staticProvider) Name() string { return "static" }

func (p staticProvider) GetCurrentData(_ context.Context) (*weather.Reading, error) {
	if p.err != nil {
		return nil, p.err
	}
	t := 4.0
	return &weather.Reading{Temperature: &t}, nil
}

func TestRegisterRefreshMetrics(t *testing.T) {
	job := worker.NewRefreshJob(worker.RefreshJobConfig{Logger: zerolog.Nop()})
	job.Register(weather.NewService(weather.ServiceConfig{StationID: "11518", Provider: staticProvider{}}))
	job.Register(weather.NewService(weather.ServiceConfig{StationID: "11450", Provider: staticProvider{err: weather.ErrDataUnavailable}}))
	job.Run(context.Background())

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	reg, err := telemetry.RegisterRefreshMetrics(mp.Meter("test"), job)
	require.NoError(t, err)
	t.Cleanup(func() { _ = reg.Unregister() })

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	refreshes := findInt64(t, rm, "chmu.refresh.total")
	assert.Equal(t, int64(1), valueWith(refreshes, attribute.String("outcome", "success")))
	assert.Equal(t, int64(1), valueWith(refreshes, attribute.String("outcome", "failure")))

	runs := findInt64(t, rm, "chmu.refresh.runs")
	require.Len(t, runs, 1)
	assert.Equal(t, int64(1), runs[0].Value)

	stations := findInt64(t, rm, "chmu.stations")
	assert.Equal(t, int64(1), valueWith(stations, attribute.Bool("available", true)))
	assert.Equal(t, int64(1), valueWith(stations, attribute.Bool("available", false)))
}

func findInt64(t *testing.T, rm metricdata.ResourceMetrics, name string) []metricdata.DataPoint[int64] {
	t.Helper()
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			switch data := m.Data.(type) {
			case metricdata.Sum[int64]:
				return data.DataPoints
			case metricdata.Gauge[int64]:
				return data.DataPoints
			}
		}
	}
	t.Fatalf("metric %s not found", name)
	return nil
}

func valueWith(points []metricdata.DataPoint[int64], kv attribute.KeyValue) int64 {
	for _, p := range points {
		if v, ok := p.Attributes.Value(kv.Key); ok && v == kv.Value {
			return p.Value
		}
	}
	return -1
}
