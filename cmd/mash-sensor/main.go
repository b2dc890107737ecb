// Command mash-sensor runs the sensor light node.
//
// The node serves a light (OnOff) and temperature and humidity measurement
// clusters to controllers over TCP, polls an SHT4x sensor and a push button,
// and mirrors the light state on an RGB indicator.
//
// Usage:
//
//	mash-sensor [flags]
//
// Flags:
//
//	-config string        Configuration file path (YAML)
//	-listen string        Listen address (default ":5540")
//	-mode string          Hardware mode: rpi, sim (default "sim")
//	-serial string        Serial number (generated on first start if empty)
//	-log-level string     Log level: debug, info, warn, error (default "info")
//	-protocol-log string  Protocol capture file (*.mlog)
//	-store string         State database path (default "mash-sensor.db")
//	-interactive          Operator console (sim mode only)
//
// Flags given on the command line override the configuration file.
//
// Examples:
//
//	# Simulated node with the console
//	mash-sensor -mode sim -interactive
//
//	# Raspberry Pi with config file and protocol capture
//	mash-sensor -config /etc/mash/sensor.yaml -protocol-log /var/log/mash/sensor.mlog
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"

	"github.com/mash-protocol/mash-sensor/cmd/mash-sensor/interactive"
	"github.com/mash-protocol/mash-sensor/pkg/clusters"
	"github.com/mash-protocol/mash-sensor/pkg/discovery"
	mashlog "github.com/mash-protocol/mash-sensor/pkg/log"
	"github.com/mash-protocol/mash-sensor/pkg/mqtt"
	"github.com/mash-protocol/mash-sensor/pkg/persistence"
	"github.com/mash-protocol/mash-sensor/pkg/poller"
	"github.com/mash-protocol/mash-sensor/pkg/race"
	"github.com/mash-protocol/mash-sensor/pkg/service"
	"github.com/mash-protocol/mash-sensor/pkg/subscription"
)

type flags struct {
	configFile  string
	listen      string
	mode        string
	serial      string
	logLevel    string
	protocolLog string
	store       string
	interactive bool
}

var cli flags

func init() {
	flag.StringVar(&cli.configFile, "config", "", "Configuration file path (YAML)")
	flag.StringVar(&cli.listen, "listen", ":5540", "Listen address")
	flag.StringVar(&cli.mode, "mode", ModeSim, "Hardware mode: rpi, sim")
	flag.StringVar(&cli.serial, "serial", "", "Serial number (generated on first start if empty)")
	flag.StringVar(&cli.logLevel, "log-level", "info", "Log level: debug, info, warn, error")
	flag.StringVar(&cli.protocolLog, "protocol-log", "", "Protocol capture file (*.mlog)")
	flag.StringVar(&cli.store, "store", "mash-sensor.db", "State database path")
	flag.BoolVar(&cli.interactive, "interactive", false, "Operator console (sim mode only)")
}

func main() {
	flag.Parse()

	bootLogger := newLogger("info", "text", os.Stderr)

	cfg, err := loadConfig(cli.configFile)
	if err != nil {
		bootLogger.Error("Failed to load configuration", "err", err)
		os.Exit(1)
	}
	applyFlags(cfg)
	if err := cfg.validate(); err != nil {
		bootLogger.Error("Invalid configuration", "err", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		bootLogger.Error("Node failed", "err", err)
		os.Exit(1)
	}
}

// applyFlags copies the flags set on the command line over cfg.
func applyFlags(cfg *Config) {
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "listen":
			cfg.Listen = cli.listen
		case "mode":
			cfg.Hardware.Mode = cli.mode
		case "serial":
			cfg.Device.SerialNumber = cli.serial
		case "log-level":
			cfg.Log.Level = cli.logLevel
		case "protocol-log":
			cfg.Log.ProtocolLog = cli.protocolLog
		case "store":
			cfg.Store.Path = cli.store
		}
	})
}

func run(ctx context.Context, cfg *Config) error {
	var console *interactive.Console
	out := io.Writer(os.Stdout)

	hw, err := openHardware(cfg)
	if err != nil {
		return fmt.Errorf("open hardware: %w", err)
	}
	defer hw.close()

	if cli.interactive {
		if hw.sim == nil {
			return fmt.Errorf("-interactive requires hardware mode %q", ModeSim)
		}
		console, err = interactive.New(*hw.sim)
		if err != nil {
			return err
		}
		out = console.Stdout()
	}

	logger := newLogger(cfg.Log.Level, cfg.Log.Format, out)
	slog.SetDefault(logger)

	protocolLogger, closeProtocol, err := newProtocolLogger(cfg, logger)
	if err != nil {
		return err
	}
	defer closeProtocol()

	store, err := persistence.OpenDeviceStateStore(cfg.Store.Path)
	if err != nil {
		return err
	}
	defer store.Close()

	state, err := store.Modify(func(st *persistence.DeviceState) {
		st.BootCount++
		switch {
		case cfg.Device.SerialNumber != "":
			st.SerialNumber = cfg.Device.SerialNumber
		case st.SerialNumber == "":
			st.SerialNumber = generateSerial()
		}
	})
	if err != nil {
		return fmt.Errorf("update state: %w", err)
	}
	cfg.Device.SerialNumber = state.SerialNumber

	logger.Info("MASH sensor node",
		"serial", state.SerialNumber,
		"mode", cfg.Hardware.Mode,
		"boot", state.BootCount,
		"light", state.OnOff)

	device, err := clusters.NewDevice(clusters.DeviceOptions{
		BasicInfo:    cfg.Device,
		InitialOnOff: state.OnOff,
	})
	if err != nil {
		return err
	}

	svcCfg := service.DefaultDeviceConfig()
	svcCfg.ListenAddress = cfg.Listen
	svcCfg.Subscriptions = subscription.DefaultConfig()
	if cfg.Subscriptions.Max > 0 {
		svcCfg.Subscriptions.MaxSubscriptions = cfg.Subscriptions.Max
	}
	if strings.EqualFold(cfg.Subscriptions.Heartbeat, "empty") {
		svcCfg.Subscriptions.HeartbeatMode = subscription.HeartbeatEmpty
	}
	svcCfg.Logger = logger
	svcCfg.ProtocolLogger = protocolLogger

	if cfg.Discovery.Enabled {
		advCfg := discovery.DefaultAdvertiserConfig()
		advCfg.Interface = cfg.Discovery.Interface
		svcCfg.Advertiser = discovery.NewMDNSAdvertiser(advCfg)
	}

	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient = mqtt.NewClient(cfg.MQTT.Config, logger)
		svcCfg.Mirror = mqtt.NewMirror(mqttClient, mqtt.MirrorConfig{
			TopicPrefix: cfg.MQTT.TopicPrefix,
			Node:        state.SerialNumber,
		}, logger)
	}

	svc, err := service.NewDeviceService(device, svcCfg)
	if err != nil {
		return err
	}

	p, err := poller.New(poller.Config{
		Sensor:         hw.sensor,
		Button:         hw.button,
		Indicator:      hw.indicator,
		Temperature:    device.Temperature,
		Humidity:       device.Humidity,
		Light:          device.OnOff,
		Notify:         svc.NotifyChanged,
		Store:          store,
		Interval:       cfg.Poll.Interval,
		Settle:         cfg.Poll.Settle,
		Logger:         logger,
		ProtocolLogger: protocolLogger,
	})
	if err != nil {
		return err
	}
	if err := p.Init(); err != nil {
		return err
	}

	if mqttClient != nil {
		mirror := svcCfg.Mirror
		onConnect := func() {
			mirror.Republish()
			if cfg.MQTT.Discovery {
				mirror.PublishDiscovery(cfg.MQTT.DiscoveryPrefix, cfg.Device)
			}
		}
		if err := mqttClient.Connect(mirror.AvailabilityTopic(), onConnect); err != nil {
			logger.Warn("MQTT broker not reachable, retrying in background", "broker", cfg.MQTT.Broker, "err", err)
		}
		defer mqttClient.Close()
	}

	activities := []race.Activity{
		{Name: "serve", Run: svc.Run},
		{Name: "poll", Run: p.Run},
	}
	if console != nil {
		console.Bind(svc)
		activities = append(activities, race.Activity{Name: "console", Run: console.Run})
	}

	err = race.Run(ctx, activities...)
	logger.Info("MASH sensor node stopped")
	return err
}

// newProtocolLogger builds the protocol capture sink. Events go to the
// capture file when one is configured and to the operational log at debug
// level.
func newProtocolLogger(cfg *Config, logger *slog.Logger) (mashlog.Logger, func(), error) {
	var sinks []mashlog.Logger
	closeFn := func() {}

	if cfg.Log.ProtocolLog != "" {
		fl, err := mashlog.NewFileLogger(cfg.Log.ProtocolLog)
		if err != nil {
			return nil, nil, fmt.Errorf("open protocol log: %w", err)
		}
		sinks = append(sinks, fl)
		closeFn = func() {
			if dropped := fl.Dropped(); dropped > 0 {
				logger.Warn("Protocol log dropped events", "count", dropped)
			}
			fl.Close()
		}
		logger.Info("Protocol capture enabled", "path", cfg.Log.ProtocolLog)
	}
	if logger.Enabled(context.Background(), slog.LevelDebug) {
		sinks = append(sinks, mashlog.NewSlogAdapter(logger))
	}

	switch len(sinks) {
	case 0:
		return mashlog.NoopLogger{}, closeFn, nil
	case 1:
		return sinks[0], closeFn, nil
	default:
		return mashlog.NewMultiLogger(sinks...), closeFn, nil
	}
}

// newLogger creates the operational logger. Unknown levels fall back to info.
func newLogger(level, format string, w io.Writer) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: lvl}
	if format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// generateSerial returns 8 random hex digits.
func generateSerial() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}
