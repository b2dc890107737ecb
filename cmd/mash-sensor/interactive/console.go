// Package interactive provides the operator console of mash-sensor in
// simulation mode.
package interactive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/chzyer/readline"

	"github.com/mash-protocol/mash-sensor/pkg/hal"
	"github.com/mash-protocol/mash-sensor/pkg/service"
	"github.com/mash-protocol/mash-sensor/pkg/sht4x"
)

// DefaultPressDuration is how long "press" holds the button. It must span
// at least one poll iteration for the edge to be seen.
const DefaultPressDuration = 300 * time.Millisecond

// errBusInjected is the failure injected by "bus-fail".
var errBusInjected = errors.New("injected bus failure")

// Simulation is the simulated hardware the console drives.
type Simulation struct {
	Sensor    *sht4x.Simulator
	Button    *hal.SimButton
	Indicator *hal.SimIndicator

	// Initial reading of Sensor.
	Celsius  float32
	Humidity float32
}

// Console handles interactive mode for mash-sensor.
type Console struct {
	svc *service.DeviceService
	sim Simulation
	out io.Writer
	rl  *readline.Instance

	pressDuration time.Duration

	mu       sync.Mutex
	celsius  float32
	humidity float32
}

// New creates a console reading commands from the terminal. Bind the
// service before Run.
func New(sim Simulation) (*Console, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "sensor> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}
	c := newConsole(sim, rl.Stdout())
	c.rl = rl
	return c, nil
}

func newConsole(sim Simulation, out io.Writer) *Console {
	return &Console{
		sim:           sim,
		out:           out,
		pressDuration: DefaultPressDuration,
		celsius:       sim.Celsius,
		humidity:      sim.Humidity,
	}
}

// Bind sets the service shown by "status".
func (c *Console) Bind(svc *service.DeviceService) {
	c.svc = svc
}

// Stdout returns a writer that coordinates with the prompt. Use it for log
// output while the console runs.
func (c *Console) Stdout() io.Writer {
	return c.out
}

// Run reads commands until "quit", end of input or ctx is cancelled.
// Returning ends the process, so quit is a clean exit.
func (c *Console) Run(ctx context.Context) error {
	defer c.rl.Close()

	stop := context.AfterFunc(ctx, func() { c.rl.Close() })
	defer stop()

	c.printHelp()
	for {
		line, err := c.rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) && ctx.Err() == nil {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			fmt.Fprintln(c.out, "Exiting...")
			return nil
		}
		if c.Exec(ctx, line) {
			fmt.Fprintln(c.out, "Exiting...")
			return nil
		}
	}
}

// Exec runs one command line and reports whether it asked to quit.
func (c *Console) Exec(ctx context.Context, line string) bool {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return false
	}
	cmd := strings.ToLower(parts[0])
	args := parts[1:]

	switch cmd {
	case "help", "?":
		c.printHelp()
	case "status", "s":
		c.cmdStatus()
	case "press", "p":
		c.cmdPress(ctx)
	case "hold":
		c.sim.Button.Press()
		fmt.Fprintln(c.out, "Button held")
	case "release":
		c.sim.Button.Release()
		fmt.Fprintln(c.out, "Button released")
	case "temp", "t":
		c.cmdReading(args, true)
	case "humidity", "rh":
		c.cmdReading(args, false)
	case "bus-fail":
		c.cmdBusFail(args)
	case "led":
		c.cmdLED()
	case "quit", "exit", "q":
		return true
	default:
		fmt.Fprintf(c.out, "Unknown command: %s (type 'help' for commands)\n", cmd)
	}
	return false
}

func (c *Console) printHelp() {
	fmt.Fprintln(c.out, `
Sensor Commands:
  status             - Show cluster values and sessions
  press              - Press and release the button
  hold / release     - Hold or release the button
  temp <celsius>     - Set the simulated temperature
  humidity <percent> - Set the simulated relative humidity
  bus-fail on|off    - Make sensor bus transactions fail
  led                - Show the indicator colour
  quit               - Exit`)
}

func (c *Console) cmdStatus() {
	if c.svc == nil {
		fmt.Fprintln(c.out, "Service not started")
		return
	}
	dev := c.svc.Device()

	fmt.Fprintf(c.out, "Service:       %s\n", c.svc.State())
	if addr := c.svc.Addr(); addr != nil {
		fmt.Fprintf(c.out, "Listening:     %s\n", addr)
	}
	fmt.Fprintf(c.out, "Sessions:      %d\n", c.svc.SessionCount())
	fmt.Fprintf(c.out, "Subscriptions: %d\n", c.svc.Subscriptions().Count())
	fmt.Fprintf(c.out, "Light:         %s (dataver %d)\n", onOffString(dev.OnOff.Get()), dev.OnOff.DataVersion())

	if v, ok := dev.Temperature.Get(); ok {
		fmt.Fprintf(c.out, "Temperature:   %.2f °C (dataver %d)\n", v, dev.Temperature.DataVersion())
	} else {
		fmt.Fprintf(c.out, "Temperature:   null (dataver %d)\n", dev.Temperature.DataVersion())
	}
	if v, ok := dev.Humidity.Get(); ok {
		fmt.Fprintf(c.out, "Humidity:      %.2f %%RH (dataver %d)\n", v, dev.Humidity.DataVersion())
	} else {
		fmt.Fprintf(c.out, "Humidity:      null (dataver %d)\n", dev.Humidity.DataVersion())
	}
}

func (c *Console) cmdPress(ctx context.Context) {
	c.sim.Button.Press()
	select {
	case <-time.After(c.pressDuration):
	case <-ctx.Done():
	}
	c.sim.Button.Release()
	fmt.Fprintln(c.out, "Button pressed")
}

func (c *Console) cmdReading(args []string, temperature bool) {
	if len(args) != 1 {
		fmt.Fprintln(c.out, "Usage: temp <celsius> | humidity <percent>")
		return
	}
	v, err := strconv.ParseFloat(args[0], 32)
	if err != nil {
		fmt.Fprintf(c.out, "Invalid value %q: %v\n", args[0], err)
		return
	}

	c.mu.Lock()
	if temperature {
		c.celsius = float32(v)
	} else {
		c.humidity = float32(v)
	}
	celsius, humidity := c.celsius, c.humidity
	c.mu.Unlock()

	c.sim.Sensor.Set(celsius, humidity)
	fmt.Fprintf(c.out, "Sensor reading set to %.2f °C, %.2f %%RH\n", celsius, humidity)
}

func (c *Console) cmdBusFail(args []string) {
	if len(args) != 1 {
		fmt.Fprintln(c.out, "Usage: bus-fail on|off")
		return
	}
	switch strings.ToLower(args[0]) {
	case "on":
		c.sim.Sensor.FailWrites(errBusInjected)
		fmt.Fprintln(c.out, "Sensor bus failing")
	case "off":
		c.sim.Sensor.FailWrites(nil)
		fmt.Fprintln(c.out, "Sensor bus restored")
	default:
		fmt.Fprintln(c.out, "Usage: bus-fail on|off")
	}
}

func (c *Console) cmdLED() {
	color, ok := c.sim.Indicator.Last()
	if !ok {
		fmt.Fprintln(c.out, "LED: not set")
		return
	}
	fmt.Fprintf(c.out, "LED: #%06X\n", color)
}

func onOffString(on bool) string {
	if on {
		return "on"
	}
	return "off"
}
