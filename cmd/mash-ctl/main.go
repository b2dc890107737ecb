// Command mash-ctl is a command-line controller for mash-sensor nodes.
//
// Usage:
//
//	mash-ctl <command> [flags] [args]
//
// Commands:
//
//	browse   List nodes advertised on the local network
//	info     Show the identity of a node
//	read     Read temperature, humidity or light
//	light    Switch the light: on, off, toggle
//	watch    Subscribe and print reports until interrupted
//
// A node is addressed with -addr host:port or found by -serial over mDNS.
//
// Examples:
//
//	# Find nodes
//	mash-ctl browse -timeout 5s
//
//	# Read everything from a node found by serial
//	mash-ctl read -serial 0A1B2C3D
//
//	# Toggle the light
//	mash-ctl light -addr 192.168.1.40:5540 toggle
//
//	# Watch temperature reports
//	mash-ctl watch -addr 192.168.1.40:5540 -min 1s temperature
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mash-protocol/mash-sensor/cmd/mash-ctl/commands"
	"github.com/mash-protocol/mash-sensor/pkg/discovery"
)

const usage = `mash-ctl - MASH Sensor Controller

Usage:
  mash-ctl <command> [flags] [args]

Commands:
  browse   List nodes advertised on the local network
  info     Show the identity of a node
  read     Read temperature, humidity or light
  light    Switch the light: on, off, toggle
  watch    Subscribe and print reports until interrupted

Use "mash-ctl <command> -help" for more information about a command.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := os.Args[1]
	args := os.Args[2:]

	var err error
	switch cmd {
	case "browse":
		err = runBrowse(ctx, args)
	case "info":
		err = runInfo(ctx, args)
	case "read":
		err = runRead(ctx, args)
	case "light":
		err = runLight(ctx, args)
	case "watch":
		err = runWatch(ctx, args)
	case "-h", "-help", "--help", "help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// target holds the node addressing flags.
type target struct {
	addr    string
	serial  string
	iface   string
	timeout time.Duration
}

func newFlagSet(name, summary, usage string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "mash-ctl %s - %s\n\nUsage:\n  %s\n\nFlags:\n", name, summary, usage)
		fs.PrintDefaults()
	}
	return fs
}

func addTargetFlags(fs *flag.FlagSet) *target {
	t := &target{}
	fs.StringVar(&t.addr, "addr", "", "Node address (host:port)")
	fs.StringVar(&t.serial, "serial", "", "Find the node by serial number over mDNS")
	fs.StringVar(&t.iface, "interface", "", "Network interface for mDNS")
	fs.DurationVar(&t.timeout, "timeout", commands.DefaultTimeout, "Request and discovery timeout")
	return t
}

// dial resolves the target and connects to it.
func (t *target) dial(ctx context.Context) (*commands.Session, error) {
	addr := t.addr
	if addr == "" {
		if t.serial == "" {
			return nil, fmt.Errorf("-addr or -serial required")
		}
		cfg := discovery.DefaultBrowserConfig()
		cfg.Interface = t.iface
		cfg.Timeout = t.timeout

		var err error
		addr, err = commands.Resolve(ctx, discovery.NewMDNSBrowser(cfg), t.serial)
		if err != nil {
			return nil, fmt.Errorf("find %s: %w", t.serial, err)
		}
	}

	dialCtx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return commands.Dial(dialCtx, addr, t.timeout)
}

func runBrowse(ctx context.Context, args []string) error {
	fs := newFlagSet("browse", "List nodes advertised on the local network", "mash-ctl browse [flags]")
	iface := fs.String("interface", "", "Network interface for mDNS")
	timeout := fs.Duration("timeout", discovery.BrowseTimeout, "How long to browse")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg := discovery.DefaultBrowserConfig()
	cfg.Interface = *iface

	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()
	return commands.RunBrowse(ctx, discovery.NewMDNSBrowser(cfg), os.Stdout)
}

func runInfo(ctx context.Context, args []string) error {
	fs := newFlagSet("info", "Show the identity of a node", "mash-ctl info [flags]")
	t := addTargetFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	s, err := t.dial(ctx)
	if err != nil {
		return err
	}
	defer s.Close()
	return commands.RunInfo(ctx, s, os.Stdout)
}

func runRead(ctx context.Context, args []string) error {
	fs := newFlagSet("read", "Read temperature, humidity or light", "mash-ctl read [flags] [temperature|humidity|light ...]")
	t := addTargetFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	s, err := t.dial(ctx)
	if err != nil {
		return err
	}
	defer s.Close()
	return commands.RunRead(ctx, s, fs.Args(), os.Stdout)
}

func runLight(ctx context.Context, args []string) error {
	fs := newFlagSet("light", "Switch the light", "mash-ctl light [flags] on|off|toggle")
	t := addTargetFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return fmt.Errorf("light command required")
	}

	s, err := t.dial(ctx)
	if err != nil {
		return err
	}
	defer s.Close()
	return commands.RunLight(ctx, s, fs.Arg(0), os.Stdout)
}

func runWatch(ctx context.Context, args []string) error {
	fs := newFlagSet("watch", "Subscribe and print reports until interrupted", "mash-ctl watch [flags] [temperature|humidity|light ...]")
	t := addTargetFlags(fs)
	minInterval := fs.Duration("min", time.Second, "Minimum report interval")
	maxInterval := fs.Duration("max", time.Minute, "Maximum report interval (heartbeat)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	s, err := t.dial(ctx)
	if err != nil {
		return err
	}
	defer s.Close()
	return commands.RunWatch(ctx, s, commands.WatchOptions{
		Names:       fs.Args(),
		MinInterval: *minInterval,
		MaxInterval: *maxInterval,
	}, os.Stdout)
}
