package mqtt

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/lipelix/chmu-weather/internal/sensor"
	"github.com/lipelix/chmu-weather/internal/weather"
)

// Availability payloads.
const (
	PayloadOnline  = "online"
	PayloadOffline = "offline"
)

// DefaultTopicPrefix is the root of all station topics.
const DefaultTopicPrefix = "chmu"

// Broker publishes raw messages.
type Broker interface {
	Publish(topic string, retained bool, payload []byte) error
}

// PublisherConfig holds configuration for the state publisher.
type PublisherConfig struct {
	Broker Broker

	// TopicPrefix defaults to DefaultTopicPrefix.
	TopicPrefix string

	// DiscoveryPrefix enables retained sensor discovery messages under
	// {DiscoveryPrefix}/sensor/{unique_id}/config when set.
	DiscoveryPrefix string

	Logger zerolog.Logger
}

// Publisher publishes station readings as sensor states.
// Publishes are serialized so that a refresh finishing after StationRemoved
// cannot mark the removed station online again.
type Publisher struct {
	broker          Broker
	prefix          string
	discoveryPrefix string
	logger          zerolog.Logger

	mu        sync.Mutex
	stations  map[string]string // station ID -> name, for discovery
	announced map[string]bool
	removed   map[string]bool
}

// NewPublisher creates a new state publisher.
func NewPublisher(cfg PublisherConfig) *Publisher {
	prefix := cfg.TopicPrefix
	if prefix == "" {
		prefix = DefaultTopicPrefix
	}
	return &Publisher{
		broker:          cfg.Broker,
		prefix:          prefix,
		discoveryPrefix: cfg.DiscoveryPrefix,
		logger:          cfg.Logger,
		stations:        make(map[string]string),
		announced:       make(map[string]bool),
		removed:         make(map[string]bool),
	}
}

// StateTopic returns the state topic of a station.
func (p *Publisher) StateTopic(stationID string) string {
	return fmt.Sprintf("%s/%s/state", p.prefix, stationID)
}

// AvailabilityTopic returns the retained availability topic of a station.
func (p *Publisher) AvailabilityTopic(stationID string) string {
	return fmt.Sprintf("%s/%s/availability", p.prefix, stationID)
}

// StatePayload is the JSON document published on the state topic.
type StatePayload struct {
	StationID     string   `json:"station_id"`
	StationName   string   `json:"station_name"`
	Timestamp     string   `json:"timestamp"`
	FetchedAt     string   `json:"fetched_at"`
	Temperature   *float64 `json:"temperature"`
	Humidity      *float64 `json:"humidity"`
	Pressure      *float64 `json:"pressure"`
	Precipitation *float64 `json:"precipitation"`
	WindSpeed     *float64 `json:"wind_speed"`
	WindDirection *float64 `json:"wind_direction"`
}

// Update publishes the outcome of a station refresh. It has the signature of
// weather.UpdateFunc so it can be registered with Service.OnUpdate.
// Sensors stay online with the last known reading while refreshes fail and
// are only offline when no reading has ever been fetched. Discovery that
// could not be published earlier is retried first. Updates for removed
// stations are dropped.
func (p *Publisher) Update(stationID string, reading *weather.Reading, refreshErr error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.removed[stationID] {
		p.logger.Debug().Str("station_id", stationID).Msg("dropping update for removed station")
		return
	}

	if name, ok := p.stations[stationID]; ok && !p.announced[stationID] {
		if err := p.announce(stationID, name); err != nil {
			p.logger.Warn().Err(err).Str("station_id", stationID).Msg("publishing discovery failed")
		}
	}

	if reading == nil {
		if err := p.publishAvailability(stationID, false); err != nil {
			p.logger.Error().Err(err).Str("station_id", stationID).Msg("failed to publish availability")
		}
		return
	}

	if refreshErr != nil {
		p.logger.Debug().Err(refreshErr).Str("station_id", stationID).Msg("publishing last known reading")
	}

	if err := p.PublishReading(stationID, reading); err != nil {
		p.logger.Error().Err(err).Str("station_id", stationID).Msg("failed to publish reading")
		return
	}
	if err := p.publishAvailability(stationID, true); err != nil {
		p.logger.Error().Err(err).Str("station_id", stationID).Msg("failed to publish availability")
	}
}

// PublishReading publishes the sensor values of a reading.
func (p *Publisher) PublishReading(stationID string, reading *weather.Reading) error {
	values := sensor.Values(reading)

	payload := StatePayload{
		StationID:     stationID,
		StationName:   reading.StationName,
		Timestamp:     reading.Timestamp,
		Temperature:   values[sensor.KindTemperature],
		Humidity:      values[sensor.KindHumidity],
		Pressure:      values[sensor.KindPressure],
		Precipitation: values[sensor.KindPrecipitation],
		WindSpeed:     values[sensor.KindWindSpeed],
		WindDirection: values[sensor.KindWindDirection],
	}
	if !reading.FetchedAt.IsZero() {
		payload.FetchedAt = reading.FetchedAt.UTC().Format(time.RFC3339)
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	if err := p.broker.Publish(p.StateTopic(stationID), false, data); err != nil {
		return err
	}

	p.logger.Debug().Str("topic", p.StateTopic(stationID)).Msg("published state")
	return nil
}

// StationRemoved marks a station offline. Later updates for it are dropped
// until it is announced again.
func (p *Publisher) StationRemoved(stationID string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.removed[stationID] = true
	delete(p.stations, stationID)
	delete(p.announced, stationID)

	if err := p.publishAvailability(stationID, false); err != nil {
		p.logger.Error().Err(err).Str("station_id", stationID).Msg("failed to publish availability")
	}
}

func (p *Publisher) publishAvailability(stationID string, online bool) error {
	payload := PayloadOffline
	if online {
		payload = PayloadOnline
	}
	return p.broker.Publish(p.AvailabilityTopic(stationID), true, []byte(payload))
}

// discoveryConfig is a retained sensor discovery message.
type discoveryConfig struct {
	Name              string          `json:"name"`
	UniqueID          string          `json:"unique_id"`
	StateTopic        string          `json:"state_topic"`
	AvailabilityTopic string          `json:"availability_topic"`
	ValueTemplate     string          `json:"value_template"`
	UnitOfMeasurement string          `json:"unit_of_measurement"`
	DeviceClass       string          `json:"device_class,omitempty"`
	StateClass        string          `json:"state_class"`
	Icon              string          `json:"icon"`
	Device            discoveryDevice `json:"device"`
}

type discoveryDevice struct {
	Identifiers      []string `json:"identifiers"`
	Name             string   `json:"name"`
	Manufacturer     string   `json:"manufacturer"`
	Model            string   `json:"model"`
	ConfigurationURL string   `json:"configuration_url"`
	SuggestedArea    string   `json:"suggested_area"`
}

// PublishDiscovery announces the six sensors of a station. The station is
// remembered even when publishing fails, so the next Update or Reannounce
// retries it. It publishes nothing when no discovery prefix is configured.
func (p *Publisher) PublishDiscovery(stationID, stationName string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	delete(p.removed, stationID)
	p.stations[stationID] = stationName
	return p.announce(stationID, stationName)
}

// Reannounce publishes discovery for every known station. It is meant to run
// whenever the broker connection is (re)established.
func (p *Publisher) Reannounce() {
	p.mu.Lock()
	defer p.mu.Unlock()

	ids := make([]string, 0, len(p.stations))
	for id := range p.stations {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		if err := p.announce(id, p.stations[id]); err != nil {
			p.logger.Warn().Err(err).Str("station_id", id).Msg("publishing discovery failed")
		}
	}
}

// announce must be called with p.mu held.
func (p *Publisher) announce(stationID, stationName string) error {
	p.announced[stationID] = false
	if p.discoveryPrefix == "" {
		p.announced[stationID] = true
		return nil
	}

	device := sensor.DeviceInfo(stationID, stationName)
	dev := discoveryDevice{
		Identifiers:      []string{"chmu_" + device.ID},
		Name:             device.Name,
		Manufacturer:     device.Manufacturer,
		Model:            device.Model,
		ConfigurationURL: device.ConfigurationURL,
		SuggestedArea:    device.SuggestedArea,
	}

	for _, kind := range sensor.AllKinds() {
		d, _ := sensor.Describe(kind)
		uniqueID := sensor.UniqueID(stationID, kind)

		cfg := discoveryConfig{
			Name:              string(kind),
			UniqueID:          uniqueID,
			StateTopic:        p.StateTopic(stationID),
			AvailabilityTopic: p.AvailabilityTopic(stationID),
			ValueTemplate:     fmt.Sprintf("{{ value_json.%s }}", kind),
			UnitOfMeasurement: d.Unit,
			DeviceClass:       d.DeviceClass,
			StateClass:        string(d.StateClass),
			Icon:              d.Icon,
			Device:            dev,
		}

		data, err := json.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("marshal discovery: %w", err)
		}

		topic := fmt.Sprintf("%s/sensor/%s/config", p.discoveryPrefix, uniqueID)
		if err := p.broker.Publish(topic, true, data); err != nil {
			return err
		}
	}

	p.announced[stationID] = true
	return nil
}
