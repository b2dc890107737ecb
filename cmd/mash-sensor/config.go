package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mash-protocol/mash-sensor/pkg/clusters"
	"github.com/mash-protocol/mash-sensor/pkg/mqtt"
	"github.com/mash-protocol/mash-sensor/pkg/poller"
	"github.com/mash-protocol/mash-sensor/pkg/sht4x"
)

// Hardware modes.
const (
	ModeRPi = "rpi"
	ModeSim = "sim"
)

// Config is the YAML configuration of the sensor node.
type Config struct {
	Device clusters.BasicInfoConfig `yaml:"device"`

	Listen string `yaml:"listen"`

	Hardware struct {
		Mode          string `yaml:"mode"` // "rpi" or "sim"
		I2CBus        int    `yaml:"i2c_bus"`
		SensorAddress uint16 `yaml:"sensor_address"`
		VerifyCRC     bool   `yaml:"verify_crc"`
		ButtonPin     int    `yaml:"button_pin"`
		LED           bool   `yaml:"led"`
	} `yaml:"hardware"`

	Poll struct {
		Interval time.Duration `yaml:"interval"`
		Settle   time.Duration `yaml:"settle"`
	} `yaml:"poll"`

	Subscriptions struct {
		Max       int    `yaml:"max"`
		Heartbeat string `yaml:"heartbeat"` // "full" or "empty"
	} `yaml:"subscriptions"`

	Store struct {
		Path string `yaml:"path"`
	} `yaml:"store"`

	MQTT struct {
		Enabled     bool `yaml:"enabled"`
		mqtt.Config `yaml:",inline"`
	} `yaml:"mqtt"`

	Discovery struct {
		Enabled   bool   `yaml:"enabled"`
		Interface string `yaml:"interface"`
	} `yaml:"discovery"`

	Log struct {
		Level       string `yaml:"level"`
		Format      string `yaml:"format"`
		ProtocolLog string `yaml:"protocol_log"`
	} `yaml:"log"`
}

// defaultConfig returns the configuration used for keys a file omits.
func defaultConfig() *Config {
	cfg := &Config{
		Device: clusters.DefaultBasicInfoConfig(),
		Listen: ":5540",
	}
	// Generated on first boot and kept in the store.
	cfg.Device.SerialNumber = ""

	cfg.Hardware.Mode = ModeSim
	cfg.Hardware.I2CBus = 1
	cfg.Hardware.SensorAddress = sht4x.DefaultAddress
	cfg.Hardware.ButtonPin = 9
	cfg.Hardware.LED = true
	cfg.Poll.Interval = poller.DefaultInterval
	cfg.Poll.Settle = sht4x.SettleDelay
	cfg.Subscriptions.Heartbeat = "full"
	cfg.Store.Path = "mash-sensor.db"
	cfg.MQTT.TopicPrefix = "mash"
	cfg.MQTT.DiscoveryPrefix = mqtt.DefaultDiscoveryPrefix
	cfg.Log.Level = "info"
	cfg.Log.Format = "text"
	return cfg
}

// loadConfig reads path over the defaults. An empty path yields the
// defaults.
func loadConfig(path string) (*Config, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Hardware.Mode {
	case ModeRPi, ModeSim:
	default:
		return fmt.Errorf("hardware.mode must be %q or %q, got %q", ModeRPi, ModeSim, c.Hardware.Mode)
	}
	if c.Listen == "" {
		return fmt.Errorf("listen is required")
	}
	if c.Hardware.SensorAddress == 0 || c.Hardware.SensorAddress > 0x7F {
		return fmt.Errorf("hardware.sensor_address must be a 7-bit address, got 0x%02X", c.Hardware.SensorAddress)
	}
	if c.Poll.Interval <= 0 {
		return fmt.Errorf("poll.interval must be positive")
	}
	if c.Poll.Settle < 0 {
		return fmt.Errorf("poll.settle must not be negative")
	}
	if c.Subscriptions.Max < 0 {
		return fmt.Errorf("subscriptions.max must not be negative")
	}
	switch strings.ToLower(c.Subscriptions.Heartbeat) {
	case "full", "empty":
	default:
		return fmt.Errorf("subscriptions.heartbeat must be full or empty, got %q", c.Subscriptions.Heartbeat)
	}
	if c.Store.Path == "" {
		return fmt.Errorf("store.path is required")
	}
	if c.MQTT.Enabled && c.MQTT.Broker == "" {
		return fmt.Errorf("mqtt.broker is required when mqtt is enabled")
	}
	return nil
}
