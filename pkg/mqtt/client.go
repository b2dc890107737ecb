package mqtt

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
)

// Connection timeouts.
const (
	ConnectTimeout = 10 * time.Second
	PublishTimeout = 5 * time.Second
	RetryInterval  = 5 * time.Second
)

// ErrConnectTimeout is returned when the broker does not answer in time.
var ErrConnectTimeout = errors.New("mqtt connect timeout")

// Config holds the broker connection settings.
type Config struct {
	Broker      string `yaml:"broker"`
	Username    string `yaml:"username"`
	Password    string `yaml:"password"`
	ClientID    string `yaml:"client_id"`
	TopicPrefix string `yaml:"topic_prefix"`

	// Discovery publishes Home Assistant discovery documents on connect.
	Discovery       bool   `yaml:"discovery"`
	DiscoveryPrefix string `yaml:"discovery_prefix"`
}

// Client is a paho-backed Publisher.
type Client struct {
	cfg    Config
	logger *slog.Logger

	mu     sync.RWMutex
	client pahomqtt.Client
}

// NewClient creates an unconnected client.
func NewClient(cfg Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.ClientID == "" {
		cfg.ClientID = "mash-sensor"
	}
	return &Client{cfg: cfg, logger: logger.With("component", "mqtt")}
}

// Connect dials the broker. The last will marks willTopic offline; onConnect
// runs after every (re)connect.
func (c *Client) Connect(willTopic string, onConnect func()) error {
	opts := pahomqtt.NewClientOptions().
		AddBroker(c.cfg.Broker).
		SetClientID(c.cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(RetryInterval).
		SetWill(willTopic, Offline, 1, true).
		SetOnConnectHandler(func(_ pahomqtt.Client) {
			c.logger.Info("MQTT connected", "broker", c.cfg.Broker)
			if onConnect != nil {
				onConnect()
			}
		}).
		SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
			c.logger.Warn("MQTT connection lost", "err", err)
		})

	if c.cfg.Username != "" {
		opts.SetUsername(c.cfg.Username)
		opts.SetPassword(c.cfg.Password)
	}

	client := pahomqtt.NewClient(opts)
	c.mu.Lock()
	c.client = client
	c.mu.Unlock()

	token := client.Connect()
	if !token.WaitTimeout(ConnectTimeout) {
		return ErrConnectTimeout
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt connect: %w", err)
	}
	return nil
}

// Publish sends payload with QoS 1. Delivery is confirmed asynchronously.
func (c *Client) Publish(topic string, payload []byte, retained bool) {
	c.mu.RLock()
	client := c.client
	c.mu.RUnlock()
	if client == nil {
		c.logger.Debug("MQTT publish before connect", "topic", topic)
		return
	}

	token := client.Publish(topic, 1, retained, payload)
	go func() {
		if !token.WaitTimeout(PublishTimeout) {
			c.logger.Warn("MQTT publish timeout", "topic", topic)
		} else if err := token.Error(); err != nil {
			c.logger.Warn("MQTT publish error", "topic", topic, "err", err)
		}
	}()
}

// Close disconnects, waiting up to one second for in-flight messages.
func (c *Client) Close() {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.client != nil {
		c.client.Disconnect(1000)
	}
}

var _ Publisher = (*Client)(nil)
