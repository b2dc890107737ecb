package main

import (
	"errors"
	"fmt"

	"github.com/mash-protocol/mash-sensor/cmd/mash-sensor/interactive"
	"github.com/mash-protocol/mash-sensor/pkg/hal"
	"github.com/mash-protocol/mash-sensor/pkg/sht4x"
)

// Reading of the simulated sensor at start.
const (
	simCelsius  float32 = 21.5
	simHumidity float32 = 45
)

// hardware is the set of peripherals the poller drives.
type hardware struct {
	sensor    *sht4x.Sensor
	button    hal.InputPin
	indicator hal.Indicator

	// sim is set in simulation mode.
	sim *interactive.Simulation

	closers []func() error
}

// openHardware opens the peripherals selected by cfg.Hardware.Mode.
func openHardware(cfg *Config) (*hardware, error) {
	sensorCfg := sht4x.Config{
		Address:   cfg.Hardware.SensorAddress,
		VerifyCRC: cfg.Hardware.VerifyCRC,
		Settle:    cfg.Poll.Settle,
	}

	switch cfg.Hardware.Mode {
	case ModeSim:
		sim := &interactive.Simulation{
			Sensor:    sht4x.NewSimulator(simCelsius, simHumidity),
			Button:    hal.NewSimButton(),
			Indicator: hal.NewSimIndicator(),
			Celsius:   simCelsius,
			Humidity:  simHumidity,
		}
		return &hardware{
			sensor:    sht4x.New(sim.Sensor, sensorCfg),
			button:    sim.Button,
			indicator: sim.Indicator,
			sim:       sim,
		}, nil

	case ModeRPi:
		hw := &hardware{}
		bus, err := hal.OpenI2C(cfg.Hardware.I2CBus)
		if err != nil {
			return nil, err
		}
		hw.closers = append(hw.closers, bus.Close)
		hw.sensor = sht4x.New(bus, sensorCfg)

		if err := hal.OpenGPIO(); err != nil {
			hw.close()
			return nil, err
		}
		hw.closers = append(hw.closers, hal.CloseGPIO)
		hw.button = hal.NewGPIOButton(cfg.Hardware.ButtonPin)

		if cfg.Hardware.LED {
			led, err := hal.OpenSPIIndicator()
			if err != nil {
				hw.close()
				return nil, err
			}
			hw.closers = append(hw.closers, led.Close)
			hw.indicator = led
		} else {
			hw.indicator = hal.NewSimIndicator()
		}
		return hw, nil

	default:
		return nil, fmt.Errorf("unknown hardware mode %q", cfg.Hardware.Mode)
	}
}

// close releases the peripherals in reverse order of opening.
func (h *hardware) close() error {
	var errs []error
	for i := len(h.closers) - 1; i >= 0; i-- {
		if err := h.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	h.closers = nil
	return errors.Join(errs...)
}
