// Package config loads service configuration from an optional YAML file,
// a .env file and environment variables, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/lipelix/chmu-weather/internal/database"
	"github.com/lipelix/chmu-weather/internal/weather"
	"github.com/lipelix/chmu-weather/internal/worker"
	"github.com/lipelix/chmu-weather/pkg/geo"
)

// Config is the complete service configuration.
type Config struct {
	Env  string `yaml:"env"`
	Port string `yaml:"port"`

	// RequireTLS rejects requests that did not arrive over HTTPS.
	RequireTLS bool `yaml:"require_tls"`

	// Stations are seeded into the station store at startup.
	Stations []string `yaml:"stations"`

	// Home is used to suggest the nearest station during setup.
	Home HomeConfig `yaml:"home"`

	CHMU      CHMUConfig      `yaml:"chmu"`
	Refresh   RefreshConfig   `yaml:"refresh"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	PubSub    PubSubConfig    `yaml:"pubsub"`
	Telemetry TelemetryConfig `yaml:"telemetry"`

	// JWTSigningKey protects station configuration writes when set.
	JWTSigningKey string `yaml:"-"`

	Database database.Config `yaml:"-"`
}

// HomeConfig is the home location.
type HomeConfig struct {
	Latitude  float64 `yaml:"latitude"`
	Longitude float64 `yaml:"longitude"`
}

// Coordinate returns the home location, or nil when it is not configured.
func (h HomeConfig) Coordinate() *geo.Coordinate {
	if h.Latitude == 0 || h.Longitude == 0 {
		return nil
	}
	return &geo.Coordinate{Lat: h.Latitude, Lon: h.Longitude}
}

// CHMUConfig holds upstream settings.
type CHMUConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

// RefreshConfig holds refresh scheduling settings.
type RefreshConfig struct {
	Interval    time.Duration `yaml:"interval"`
	Concurrency int           `yaml:"concurrency"`
	Timeout     time.Duration `yaml:"timeout"`
}

// Worker converts the settings to a worker.RefreshConfig.
func (r RefreshConfig) Worker() worker.RefreshConfig {
	return worker.RefreshConfig{
		Interval:    r.Interval,
		Concurrency: r.Concurrency,
		Timeout:     r.Timeout,
	}
}

// MQTTConfig holds broker settings. Publishing is disabled without a broker URL.
type MQTTConfig struct {
	BrokerURL       string `yaml:"broker_url"`
	ClientID        string `yaml:"client_id"`
	Username        string `yaml:"username"`
	Password        string `yaml:"-"`
	TopicPrefix     string `yaml:"topic_prefix"`
	DiscoveryPrefix string `yaml:"discovery_prefix"`
}

// Enabled reports whether a broker is configured.
func (m MQTTConfig) Enabled() bool {
	return m.BrokerURL != ""
}

// PubSubConfig holds refresh trigger subscription settings.
type PubSubConfig struct {
	ProjectID    string `yaml:"project_id"`
	Subscription string `yaml:"subscription"`
}

// Enabled reports whether a subscription is configured.
func (p PubSubConfig) Enabled() bool {
	return p.ProjectID != "" && p.Subscription != ""
}

// TelemetryConfig holds OpenTelemetry settings.
type TelemetryConfig struct {
	Enabled      bool   `yaml:"enabled"`
	OTLPEndpoint string `yaml:"otlp_endpoint"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	def := worker.DefaultRefreshConfig()
	return Config{
		Env:  "development",
		Port: "8080",
		CHMU: CHMUConfig{
			BaseURL: "https://opendata.chmi.cz/meteorology/climate",
			Timeout: 30 * time.Second,
		},
		Refresh: RefreshConfig{
			Interval:    def.Interval,
			Concurrency: def.Concurrency,
			Timeout:     def.Timeout,
		},
		MQTT: MQTTConfig{
			ClientID:    "chmu-weather",
			TopicPrefix: "chmu",
		},
		Telemetry: TelemetryConfig{
			OTLPEndpoint: "localhost:4317",
		},
	}
}

// Load builds the configuration. The .env file in the working directory is
// loaded first if present, then the YAML file at path (skipped when path is
// empty), then environment variables override individual settings.
func Load(path string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("loading .env: %w", err)
	}

	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("reading config file: %w", err)
		}
		if err := Parse(data, &cfg); err != nil {
			return Config{}, err
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}

	cfg.Database = database.ConfigFromEnv()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Parse decodes YAML on top of cfg.
func Parse(data []byte, cfg *Config) error {
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parsing config file: %w", err)
	}
	return nil
}

// Validate checks the configuration for invalid values.
func (c Config) Validate() error {
	if c.Refresh.Interval <= 0 {
		return errors.New("refresh interval must be positive")
	}
	if c.Refresh.Concurrency <= 0 {
		return errors.New("refresh concurrency must be positive")
	}
	if c.Refresh.Timeout <= 0 {
		return errors.New("refresh timeout must be positive")
	}
	for _, id := range c.Stations {
		if strings.TrimSpace(id) == "" {
			return errors.New("station id must not be empty")
		}
	}
	if c.Home.Coordinate() != nil && !c.Home.Coordinate().Valid() {
		return fmt.Errorf("home location %v,%v: %w", c.Home.Latitude, c.Home.Longitude, weather.ErrInvalidCoordinates)
	}
	return nil
}

func (c *Config) applyEnv() error {
	setString(&c.Env, "APP_ENV")
	setString(&c.Port, "APP_PORT")
	setString(&c.CHMU.BaseURL, "CHMU_BASE_URL")
	setString(&c.JWTSigningKey, "JWT_SIGNING_KEY")
	setString(&c.MQTT.BrokerURL, "MQTT_BROKER_URL")
	setString(&c.MQTT.ClientID, "MQTT_CLIENT_ID")
	setString(&c.MQTT.Username, "MQTT_USERNAME")
	setString(&c.MQTT.Password, "MQTT_PASSWORD")
	setString(&c.MQTT.TopicPrefix, "MQTT_TOPIC_PREFIX")
	setString(&c.MQTT.DiscoveryPrefix, "MQTT_DISCOVERY_PREFIX")
	setString(&c.PubSub.ProjectID, "PUBSUB_PROJECT_ID")
	setString(&c.PubSub.Subscription, "PUBSUB_SUBSCRIPTION")
	setString(&c.Telemetry.OTLPEndpoint, "OTEL_EXPORTER_OTLP_ENDPOINT")

	if v := os.Getenv("OTEL_ENABLED"); v != "" {
		c.Telemetry.Enabled = v == "true"
	}
	if v := os.Getenv("REQUIRE_TLS"); v != "" {
		c.RequireTLS = v == "true"
	}

	if v := os.Getenv("CHMU_STATIONS"); v != "" {
		c.Stations = splitList(v)
	}

	for _, f := range []struct {
		key string
		dst *float64
	}{
		{"CHMU_HOME_LATITUDE", &c.Home.Latitude},
		{"CHMU_HOME_LONGITUDE", &c.Home.Longitude},
	} {
		if err := setFloat(f.dst, f.key); err != nil {
			return err
		}
	}

	for _, d := range []struct {
		key string
		dst *time.Duration
	}{
		{"CHMU_TIMEOUT", &c.CHMU.Timeout},
		{"REFRESH_INTERVAL", &c.Refresh.Interval},
		{"REFRESH_TIMEOUT", &c.Refresh.Timeout},
	} {
		if err := setDuration(d.dst, d.key); err != nil {
			return err
		}
	}

	if v := os.Getenv("REFRESH_CONCURRENCY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid REFRESH_CONCURRENCY: %w", err)
		}
		c.Refresh.Concurrency = n
	}

	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setFloat(dst *float64, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = f
	return nil
}

func setDuration(dst *time.Duration, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = d
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
