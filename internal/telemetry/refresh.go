package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/lipelix/chmu-weather/internal/weather"
	"github.com/lipelix/chmu-weather/internal/worker"
)

// RefreshSource exposes the refresh job state observed by RegisterRefreshMetrics.
type RefreshSource interface {
	GetMetrics() worker.RefreshMetrics
	Services() []*weather.Service
}

// RegisterRefreshMetrics registers observable instruments that report the
// refresh job counters and station availability on every collection.
func RegisterRefreshMetrics(meter metric.Meter, src RefreshSource) (metric.Registration, error) {
	refreshes, err := meter.Int64ObservableCounter(
		"chmu.refresh.total",
		metric.WithDescription("Station refreshes by outcome"),
		metric.WithUnit("{refresh}"),
	)
	if err != nil {
		return nil, err
	}

	runs, err := meter.Int64ObservableCounter(
		"chmu.refresh.runs",
		metric.WithDescription("Refresh runs started"),
		metric.WithUnit("{run}"),
	)
	if err != nil {
		return nil, err
	}

	lastDuration, err := meter.Float64ObservableGauge(
		"chmu.refresh.last_duration",
		metric.WithDescription("Duration of the most recent refresh"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	stations, err := meter.Int64ObservableGauge(
		"chmu.stations",
		metric.WithDescription("Running stations by availability"),
		metric.WithUnit("{station}"),
	)
	if err != nil {
		return nil, err
	}

	return meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		m := src.GetMetrics()
		o.ObserveInt64(refreshes, m.SuccessfulRefresh, metric.WithAttributes(outcomeAttr("success")))
		o.ObserveInt64(refreshes, m.FailedRefreshes, metric.WithAttributes(outcomeAttr("failure")))
		o.ObserveInt64(runs, m.TotalRuns)
		o.ObserveFloat64(lastDuration, m.LastRefreshDuration.Seconds())

		var available, unavailable int64
		for _, svc := range src.Services() {
			if svc.Available() {
				available++
			} else {
				unavailable++
			}
		}
		o.ObserveInt64(stations, available, metric.WithAttributes(availableAttr(true)))
		o.ObserveInt64(stations, unavailable, metric.WithAttributes(availableAttr(false)))
		return nil
	}, refreshes, runs, lastDuration, stations)
}

func outcomeAttr(outcome string) attribute.KeyValue {
	return attribute.String("outcome", outcome)
}

func availableAttr(available bool) attribute.KeyValue {
	return attribute.Bool("available", available)
}
