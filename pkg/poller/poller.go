// Package poller implements the device-polling activity: it refreshes the
// measurement clusters from the sensor, turns button presses into light
// toggles and mirrors the light state on the indicator LED.
package poller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mash-protocol/mash-sensor/pkg/hal"
	"github.com/mash-protocol/mash-sensor/pkg/log"
	"github.com/mash-protocol/mash-sensor/pkg/sht4x"
)

// Defaults.
const (
	DefaultInterval = 100 * time.Millisecond

	ColorOn  uint32 = 0xFFFFFF
	ColorOff uint32 = 0x000000
)

// Poller errors. Both end the activity.
var (
	ErrPeripheralInit = errors.New("peripheral initialisation failed")
	ErrIndicator      = errors.New("indicator update failed")
)

// Sensor is the measurement transaction of the temperature/humidity sensor.
type Sensor interface {
	Reset() error
	RequestMeasurement() error
	ReadMeasurement() (sht4x.Measurement, error)
}

// Measurement is a measurement cluster fed by the poller.
type Measurement interface {
	Set(v float32, ok bool) bool
}

// Light is the on/off state shared with remote commands.
type Light interface {
	Get() bool
	Toggle() bool
}

// StateSaver persists the light state.
type StateSaver interface {
	SaveOnOff(on bool) error
}

// Config configures a Poller.
type Config struct {
	Sensor      Sensor
	Button      hal.InputPin
	Indicator   hal.Indicator
	Temperature Measurement
	Humidity    Measurement
	Light       Light

	// Notify wakes the subscription reporter after a local state change
	// (optional).
	Notify func()

	// Store persists the light state whenever it changes (optional).
	Store StateSaver

	// Interval is the pause between iterations (default 100ms).
	Interval time.Duration

	// Settle is the wait between the measure command and the read
	// (default sht4x.SettleDelay).
	Settle time.Duration

	// Logger for debug output (optional).
	Logger *slog.Logger

	// ProtocolLogger receives a SampleEvent for iterations that changed
	// something (optional).
	ProtocolLogger log.Logger
}

// Poller runs the polling loop.
type Poller struct {
	cfg Config

	lastPressed bool
	savedOn     bool
	lastBusErr  string
	initialised bool
}

// New creates a poller. Sensor, Button, Indicator, Temperature, Humidity
// and Light are required.
func New(cfg Config) (*Poller, error) {
	switch {
	case cfg.Sensor == nil:
		return nil, fmt.Errorf("%w: no sensor", ErrPeripheralInit)
	case cfg.Button == nil:
		return nil, fmt.Errorf("%w: no button", ErrPeripheralInit)
	case cfg.Indicator == nil:
		return nil, fmt.Errorf("%w: no indicator", ErrPeripheralInit)
	case cfg.Temperature == nil || cfg.Humidity == nil || cfg.Light == nil:
		return nil, errors.New("poller: missing cluster")
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.Settle <= 0 {
		cfg.Settle = sht4x.SettleDelay
	}
	if cfg.ProtocolLogger == nil {
		cfg.ProtocolLogger = log.NoopLogger{}
	}
	return &Poller{cfg: cfg}, nil
}

// Init resets the sensor and samples the initial button and light state.
// A failure here is fatal to the activity.
func (p *Poller) Init() error {
	if err := p.cfg.Sensor.Reset(); err != nil {
		return fmt.Errorf("%w: %w", ErrPeripheralInit, err)
	}
	pressed, err := p.cfg.Button.Read()
	if err != nil {
		return fmt.Errorf("%w: button: %w", ErrPeripheralInit, err)
	}
	p.lastPressed = pressed
	p.savedOn = p.cfg.Light.Get()
	p.initialised = true
	return nil
}

// Run polls until ctx is cancelled or the indicator fails, calling Init
// first unless it already succeeded. It returns ctx.Err() on cancellation.
func (p *Poller) Run(ctx context.Context) error {
	if !p.initialised {
		if err := p.Init(); err != nil {
			return err
		}
	}
	p.debugLog("polling started", "interval", p.cfg.Interval)

	for {
		if err := p.Step(ctx); err != nil {
			return err
		}
		if err := sleep(ctx, p.cfg.Interval); err != nil {
			return err
		}
	}
}

// Step runs one iteration: sensor, then button, then indicator.
func (p *Poller) Step(ctx context.Context) error {
	sample := log.SampleEvent{}
	changed := false

	m, busErr := p.measure(ctx)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if busErr != nil {
		// Bus errors skip the update; the last reading stays visible.
		p.debugLog("sensor read skipped", "error", busErr)
		if msg := busErr.Error(); msg != p.lastBusErr {
			p.lastBusErr = msg
			sample.BusError = msg
			changed = true
		}
	} else {
		p.lastBusErr = ""
		t, rh := m.Temperature, m.Humidity
		sample.Temperature, sample.Humidity = &t, &rh
		if p.cfg.Temperature.Set(t, true) {
			changed = true
		}
		if p.cfg.Humidity.Set(rh, true) {
			changed = true
		}
	}

	pressed, err := p.cfg.Button.Read()
	if err != nil {
		p.debugLog("button read failed", "error", err)
		pressed = p.lastPressed
	}
	if pressed && !p.lastPressed {
		on := p.cfg.Light.Toggle()
		p.debugLog("button pressed", "on", on)
		if p.cfg.Notify != nil {
			p.cfg.Notify()
		}
		sample.ButtonEdge = true
		changed = true
	}
	p.lastPressed = pressed

	on := p.cfg.Light.Get()
	sample.OnOff = on
	if on != p.savedOn {
		p.persist(on)
		changed = true
	}

	color := ColorOff
	if on {
		color = ColorOn
	}
	if err := p.cfg.Indicator.Show(color); err != nil {
		p.cfg.ProtocolLogger.Log(log.ErrorEvent("", log.LayerDevice, err, "indicator"))
		return fmt.Errorf("%w: %w", ErrIndicator, err)
	}

	if changed {
		p.cfg.ProtocolLogger.Log(log.NewSampleEvent(sample))
	}
	return nil
}

func (p *Poller) measure(ctx context.Context) (sht4x.Measurement, error) {
	if err := p.cfg.Sensor.RequestMeasurement(); err != nil {
		return sht4x.Measurement{}, err
	}
	if err := sleep(ctx, p.cfg.Settle); err != nil {
		return sht4x.Measurement{}, err
	}
	return p.cfg.Sensor.ReadMeasurement()
}

func (p *Poller) persist(on bool) {
	p.savedOn = on
	if p.cfg.Store == nil {
		return
	}
	if err := p.cfg.Store.SaveOnOff(on); err != nil {
		if p.cfg.Logger != nil {
			p.cfg.Logger.Warn("persist light state", "error", err)
		}
	}
}

func (p *Poller) debugLog(msg string, args ...any) {
	if p.cfg.Logger != nil {
		p.cfg.Logger.Debug(msg, args...)
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
