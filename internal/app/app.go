// Package app wires the station services shared by the API and worker binaries.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"

	"github.com/lipelix/chmu-weather/internal/api/middleware"
	"github.com/lipelix/chmu-weather/internal/config"
	"github.com/lipelix/chmu-weather/internal/database"
	"github.com/lipelix/chmu-weather/internal/mqtt"
	"github.com/lipelix/chmu-weather/internal/provider/resilience"
	"github.com/lipelix/chmu-weather/internal/station"
	"github.com/lipelix/chmu-weather/internal/telemetry"
	"github.com/lipelix/chmu-weather/internal/weather"
	"github.com/lipelix/chmu-weather/internal/weather/chmu"
	"github.com/lipelix/chmu-weather/internal/worker"
)

const (
	catalogProviderName = "chmu-catalog"
	mqttConnectTimeout  = 10 * time.Second
)

// App holds the wired station services.
type App struct {
	Config   config.Config
	Logger   zerolog.Logger
	Registry *resilience.Registry
	Catalog  *chmu.Client
	Job      *worker.RefreshJob
	Runner   *worker.StationRunner
	Stations *station.Service

	// Publisher is nil when no MQTT broker is configured.
	Publisher *mqtt.Publisher

	providerMetrics *middleware.ProviderMetrics
	closers         []func() error
}

// Option customizes New.
type Option func(*options)

type options struct {
	repo       station.Repository
	httpClient chmu.HTTPDoer
	broker     mqtt.Broker
}

// WithRepository overrides the repository selected by the database driver.
func WithRepository(repo station.Repository) Option {
	return func(o *options) { o.repo = repo }
}

// WithHTTPClient makes every CHMU client use doer instead of a resilient client.
func WithHTTPClient(doer chmu.HTTPDoer) Option {
	return func(o *options) { o.httpClient = doer }
}

// WithBroker publishes sensor states through broker instead of connecting to
// the configured MQTT broker.
func WithBroker(broker mqtt.Broker) Option {
	return func(o *options) { o.broker = broker }
}

// New wires the station services. Call Start to load stations and Close to
// release connections.
func New(ctx context.Context, cfg config.Config, logger zerolog.Logger, opts ...Option) (*App, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	a := &App{
		Config:   cfg,
		Logger:   logger,
		Registry: resilience.NewRegistry(),
	}

	providerMetrics, err := middleware.NewProviderMetrics()
	if err != nil {
		return nil, fmt.Errorf("creating provider metrics: %w", err)
	}
	a.providerMetrics = providerMetrics

	a.Catalog = a.newCHMUClient(catalogProviderName, 0, o.httpClient)

	repo := o.repo
	if repo == nil {
		repo, err = a.openRepository(ctx)
		if err != nil {
			a.Close()
			return nil, err
		}
	}

	var mqttClient *mqtt.Client
	broker := o.broker
	if broker == nil && cfg.MQTT.Enabled() {
		mqttClient = a.newMQTTClient()
		broker = mqttClient
	}
	if broker != nil {
		a.Publisher = mqtt.NewPublisher(mqtt.PublisherConfig{
			Broker:          broker,
			TopicPrefix:     cfg.MQTT.TopicPrefix,
			DiscoveryPrefix: cfg.MQTT.DiscoveryPrefix,
			Logger:          logger.With().Str("component", "mqtt").Logger(),
		})
	}
	if mqttClient != nil {
		mqttClient.OnConnect(a.Publisher.Reannounce)
		a.connectMQTT(ctx, mqttClient)
	}

	a.Job = worker.NewRefreshJob(worker.RefreshJobConfig{
		Config: cfg.Refresh.Worker(),
		Logger: logger.With().Str("component", "refresh").Logger(),
	})

	a.Runner = worker.NewStationRunner(worker.StationRunnerConfig{
		Job:       a.Job,
		Factory:   a.serviceFactory(o.httpClient),
		OnRemoved: a.stationRemoved,
		Logger:    logger,
	})

	a.Stations = station.NewService(station.ServiceConfig{
		Repository: repo,
		Catalog:    a.Catalog,
		Lifecycle:  a.Runner,
		Logger:     logger.With().Str("component", "station").Logger(),
	})

	reg, err := telemetry.RegisterRefreshMetrics(otel.Meter(telemetry.DefaultServiceName), a.Job)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("registering refresh metrics: %w", err)
	}
	a.closers = append(a.closers, reg.Unregister)

	return a, nil
}

// Start loads the stored stations, seeds the configured ones and runs the
// refresh scheduler until ctx is done. It returns once the stations are
// registered; their first refresh is the scheduler's initial run, which
// refreshes them concurrently.
func (a *App) Start(ctx context.Context) error {
	n, err := a.Stations.Load(ctx)
	if err != nil {
		return fmt.Errorf("loading stations: %w", err)
	}
	a.Logger.Info().Int("stations", n).Msg("stations loaded")

	if err := a.Stations.Seed(ctx, a.Config.Stations); err != nil {
		return fmt.Errorf("seeding stations: %w", err)
	}

	go a.Job.Start(ctx)
	return nil
}

// ProviderMetrics returns the upstream request metrics.
func (a *App) ProviderMetrics() *middleware.ProviderMetrics {
	return a.providerMetrics
}

// Close releases every connection opened by New.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}

// newCHMUClient builds a client registered under name. Station feeds pass the
// refresh interval; the catalog is fetched on demand and passes zero.
func (a *App) newCHMUClient(name string, pollInterval time.Duration, doer chmu.HTTPDoer) *chmu.Client {
	return chmu.NewClient(chmu.ClientConfig{
		Name:         name,
		BaseURL:      a.Config.CHMU.BaseURL,
		HTTPClient:   doer,
		Timeout:      a.Config.CHMU.Timeout,
		PollInterval: pollInterval,
		Registry:     a.Registry,
		Metrics:      a.providerMetrics,
		Logger:       a.Logger.With().Str("provider", name).Logger(),
	})
}

// serviceFactory builds a station service backed by its own CHMU client so
// that every station has its own circuit breaker and health entry.
func (a *App) serviceFactory(doer chmu.HTTPDoer) worker.ServiceFactory {
	return func(cfg station.Config) *weather.Service {
		client := a.newCHMUClient(providerName(cfg.StationID), a.Job.Config().Interval, doer)

		svc := weather.NewService(weather.ServiceConfig{
			StationID:   cfg.StationID,
			StationName: cfg.StationName,
			Provider:    chmu.NewStationFeed(client, cfg.StationID, cfg.StationName),
			Logger:      a.Logger,
		})

		if a.Publisher != nil {
			if err := a.Publisher.PublishDiscovery(cfg.StationID, cfg.StationName); err != nil {
				a.Logger.Warn().Err(err).Str("station_id", cfg.StationID).Msg("publishing discovery failed")
			}
			svc.OnUpdate(a.Publisher.Update)
		}
		return svc
	}
}

func (a *App) stationRemoved(stationID string) {
	a.Registry.Unregister(providerName(stationID))
	if a.Publisher != nil {
		a.Publisher.StationRemoved(stationID)
	}
}

func (a *App) openRepository(ctx context.Context) (station.Repository, error) {
	dbCfg := a.Config.Database

	switch dbCfg.Driver {
	case database.DriverMemory, "":
		a.Logger.Warn().Msg("using in-memory station store, configuration is lost on restart")
		return station.NewInMemoryRepository(), nil

	case database.DriverPostgres:
		pool, err := database.Connect(ctx, dbCfg)
		if err != nil {
			return nil, fmt.Errorf("connecting to database: %w", err)
		}
		a.closers = append(a.closers, func() error {
			pool.Close()
			return nil
		})
		a.Logger.Info().
			Str("host", dbCfg.Host).
			Int("port", dbCfg.Port).
			Str("database", dbCfg.Database).
			Msg("database connected")
		return station.NewPostgresRepository(pool), nil

	case database.DriverSQLite:
		db, err := database.OpenSQLite(ctx, dbCfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("opening sqlite database: %w", err)
		}
		a.closers = append(a.closers, db.Close)
		a.Logger.Info().Str("path", dbCfg.SQLitePath).Msg("sqlite database opened")
		return station.NewSQLiteRepository(db), nil

	default:
		return nil, fmt.Errorf("unknown database driver %q", dbCfg.Driver)
	}
}

func (a *App) newMQTTClient() *mqtt.Client {
	m := a.Config.MQTT
	return mqtt.NewClient(mqtt.ClientConfig{
		BrokerURL: m.BrokerURL,
		ClientID:  m.ClientID,
		Username:  m.Username,
		Password:  m.Password,
		Logger:    a.Logger.With().Str("component", "mqtt").Logger(),
	})
}

// connectMQTT connects to the configured broker. A broker that is not reachable
// yet is not fatal: paho keeps retrying in the background and discovery is
// republished once it connects.
func (a *App) connectMQTT(ctx context.Context, client *mqtt.Client) {
	connectCtx, cancel := context.WithTimeout(ctx, mqttConnectTimeout)
	defer cancel()
	if err := client.Connect(connectCtx); err != nil {
		a.Logger.Warn().Err(err).Str("broker", a.Config.MQTT.BrokerURL).Msg("mqtt broker not reachable yet")
	}

	a.closers = append(a.closers, func() error {
		client.Disconnect()
		return nil
	})
}

func providerName(stationID string) string {
	return chmu.ProviderName + "-" + stationID
}
