package service

import (
	"errors"
	"log/slog"
	"time"

	"github.com/mash-protocol/mash-sensor/pkg/discovery"
	"github.com/mash-protocol/mash-sensor/pkg/log"
	"github.com/mash-protocol/mash-sensor/pkg/mqtt"
	"github.com/mash-protocol/mash-sensor/pkg/subscription"
)

// Service errors.
var (
	ErrNotStarted     = errors.New("service not started")
	ErrAlreadyStarted = errors.New("service already started")
	ErrInvalidConfig  = errors.New("invalid configuration")
	ErrSessionClosed  = errors.New("session closed")
)

// ServiceState represents the service state.
type ServiceState uint8

const (
	// StateIdle - service created but not started.
	StateIdle ServiceState = iota

	// StateStarting - service is starting up.
	StateStarting

	// StateRunning - service is running normally.
	StateRunning

	// StateStopping - service is shutting down.
	StateStopping

	// StateStopped - service has stopped.
	StateStopped
)

// String returns the state name.
func (s ServiceState) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateStarting:
		return "STARTING"
	case StateRunning:
		return "RUNNING"
	case StateStopping:
		return "STOPPING"
	case StateStopped:
		return "STOPPED"
	default:
		return "UNKNOWN"
	}
}

// DeviceConfig configures a DeviceService.
type DeviceConfig struct {
	// ListenAddress is the address to listen on (e.g., ":5540").
	ListenAddress string

	// MaxMessageSize bounds protocol frames (default 64 KB).
	MaxMessageSize uint32

	// IdleTimeout closes silent controller connections (default 5 min).
	IdleTimeout time.Duration

	// Subscriptions configures the subscription manager.
	Subscriptions subscription.Config

	// ReportTick is the reporter polling period (default 250ms).
	ReportTick time.Duration

	// Advertiser publishes the node over mDNS (optional).
	Advertiser discovery.Advertiser

	// Mirror publishes the node state to MQTT (optional).
	Mirror *mqtt.Mirror

	// Logger is the optional logger for debug output.
	// If nil, logging is disabled.
	Logger *slog.Logger

	// ProtocolLogger captures frames, messages and session changes
	// (optional).
	ProtocolLogger log.Logger
}

// DefaultDeviceConfig returns the default configuration.
func DefaultDeviceConfig() DeviceConfig {
	return DeviceConfig{
		ListenAddress: ":5540",
		Subscriptions: subscription.DefaultConfig(),
		ReportTick:    subscription.DefaultTick,
	}
}

// Validate checks the configuration.
func (c *DeviceConfig) Validate() error {
	if c.ListenAddress == "" {
		return errors.Join(ErrInvalidConfig, errors.New("listen address is required"))
	}
	if c.Subscriptions.MaxSubscriptions < 0 || c.Subscriptions.MaxAttributesPerSub < 0 {
		return errors.Join(ErrInvalidConfig, errors.New("subscription limits must not be negative"))
	}
	return nil
}
