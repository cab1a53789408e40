// Package mqtt publishes station sensor states to an MQTT broker.
package mqtt

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"
)

// ErrNotConnected is returned when publishing without a broker connection.
var ErrNotConnected = errors.New("mqtt client not connected")

// ClientConfig holds MQTT connection settings.
type ClientConfig struct {
	BrokerURL string // e.g. tcp://localhost:1883
	ClientID  string
	Username  string
	Password  string

	// PublishTimeout bounds every publish.
	// Default: 5 seconds
	PublishTimeout time.Duration

	Logger zerolog.Logger
}

// Client is a paho-backed MQTT connection.
type Client struct {
	client         paho.Client
	cfg            ClientConfig
	logger         zerolog.Logger
	mu             sync.RWMutex
	connected      bool
	onConnect      func()
	publishTimeout time.Duration

	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewClient creates a new MQTT client. Call Connect before publishing.
func NewClient(cfg ClientConfig) *Client {
	c := &Client{
		cfg:            cfg,
		logger:         cfg.Logger,
		publishTimeout: cfg.PublishTimeout,
		stopCh:         make(chan struct{}),
	}
	if c.publishTimeout <= 0 {
		c.publishTimeout = 5 * time.Second
	}

	opts := paho.NewClientOptions()
	opts.AddBroker(cfg.BrokerURL)
	opts.SetClientID(cfg.ClientID)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}

	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(5 * time.Second)
	opts.SetMaxReconnectInterval(60 * time.Second)
	opts.SetKeepAlive(30 * time.Second)
	opts.SetPingTimeout(10 * time.Second)

	opts.SetOnConnectHandler(func(_ paho.Client) {
		c.setConnected(true)
		c.logger.Info().Str("broker", cfg.BrokerURL).Msg("mqtt connected")
		c.connectedHook()
	})
	opts.SetConnectionLostHandler(func(_ paho.Client, err error) {
		c.setConnected(false)
		c.logger.Warn().Err(err).Msg("mqtt connection lost")
	})

	c.client = paho.NewClient(opts)
	return c
}

// OnConnect registers fn to run after every successful (re)connection.
// Retained messages such as discovery configs are republished from it.
func (c *Client) OnConnect(fn func()) {
	c.mu.Lock()
	c.onConnect = fn
	c.mu.Unlock()
}

func (c *Client) connectedHook() {
	c.mu.RLock()
	fn := c.onConnect
	c.mu.RUnlock()
	if fn != nil {
		fn()
	}
}

// Connect waits for the initial broker connection, honouring ctx and Disconnect.
func (c *Client) Connect(ctx context.Context) error {
	select {
	case <-c.stopCh:
		return errors.New("mqtt client stopped")
	default:
	}

	if c.IsConnected() {
		return nil
	}

	token := c.client.Connect()

	const poll = 200 * time.Millisecond
	for {
		if token.WaitTimeout(poll) {
			if err := token.Error(); err != nil {
				return fmt.Errorf("mqtt connect: %w", err)
			}
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.stopCh:
			return errors.New("mqtt client stopped")
		default:
		}
	}
}

// Publish sends payload to topic with QoS 1.
func (c *Client) Publish(topic string, retained bool, payload []byte) error {
	if !c.IsConnected() {
		return ErrNotConnected
	}

	token := c.client.Publish(topic, 1, retained, payload)
	if !token.WaitTimeout(c.publishTimeout) {
		return fmt.Errorf("publish timeout for topic %s", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

// IsConnected returns whether the client is connected.
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	connected := c.connected
	c.mu.RUnlock()
	return connected && c.client.IsConnected()
}

// Disconnect stops the client. It is safe to call more than once.
func (c *Client) Disconnect() {
	c.stopOnce.Do(func() { close(c.stopCh) })

	if c.client != nil {
		c.client.Disconnect(250)
	}

	c.setConnected(false)
	c.logger.Info().Msg("mqtt disconnected")
}

func (c *Client) setConnected(v bool) {
	c.mu.Lock()
	c.connected = v
	c.mu.Unlock()
}
