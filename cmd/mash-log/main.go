// Command mash-log is a tool for viewing and analyzing MASH protocol log files.
//
// Log files are written by mash-sensor when started with -protocol-log.
//
// Usage:
//
//	mash-log <command> [flags] <file.mlog>
//
// Commands:
//
//	view     View log file in human-readable format
//	export   Export log file to JSON or CSV format
//	filter   Filter log file and write to new file
//	stats    Show statistics about the log file
//
// Examples:
//
//	# View all events
//	mash-log view device.mlog
//
//	# View only wire-layer events
//	mash-log view --layer wire device.mlog
//
//	# View only outgoing messages
//	mash-log view --direction out device.mlog
//
//	# Export to JSONL
//	mash-log export --format jsonl device.mlog
//
//	# Sensor samples only
//	mash-log view --category sample device.mlog
//
//	# Filter by session and save to new file
//	mash-log filter --session 3f2a9c1e-... -o filtered.mlog device.mlog
//
//	# Show statistics
//	mash-log stats device.mlog
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/mash-protocol/mash-sensor/cmd/mash-log/commands"
	"github.com/mash-protocol/mash-sensor/pkg/log"
)

const usage = `mash-log - MASH Protocol Log Analyzer

Usage:
  mash-log <command> [flags] <file.mlog>

Commands:
  view     View log file in human-readable format
  export   Export log file to JSON or CSV format
  filter   Filter log file and write to new file
  stats    Show statistics about the log file

Use "mash-log <command> -help" for more information about a command.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	switch cmd {
	case "view":
		runView(args)
	case "export":
		runExport(args)
	case "filter":
		runFilter(args)
	case "stats":
		runStats(args)
	case "-h", "-help", "--help", "help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}
}

// addFilterFlags registers the event filter flags on fs.
func addFilterFlags(fs *flag.FlagSet) *commands.FilterFlags {
	f := &commands.FilterFlags{}
	fs.StringVar(&f.SessionID, "session", "", "Filter by session ID")
	fs.StringVar(&f.TimeStart, "time-start", "", "Filter by start time (RFC3339)")
	fs.StringVar(&f.TimeEnd, "time-end", "", "Filter by end time (RFC3339)")
	fs.StringVar(&f.Layer, "layer", "", "Filter by layer (transport, wire, service, device)")
	fs.StringVar(&f.Direction, "direction", "", "Filter by direction (in, out, local)")
	fs.StringVar(&f.Category, "category", "", "Filter by category (message, state, sample, error)")
	fs.StringVar(&f.Endpoint, "endpoint", "", "Filter messages by endpoint ID")
	fs.StringVar(&f.Cluster, "cluster", "", "Filter messages by cluster ID (e.g. 0x0402)")
	return f
}

// parseArgs parses args and returns the log file path and the filter.
func parseArgs(fs *flag.FlagSet, flags *commands.FilterFlags, args []string) (string, log.Filter) {
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Error: log file path required")
		fs.Usage()
		os.Exit(1)
	}

	var filter log.Filter
	if flags != nil {
		var err error
		filter, err = flags.Filter()
		if err != nil {
			fatal(err)
		}
	}
	return fs.Arg(0), filter
}

func newFlagSet(name, summary, usage string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "mash-log %s - %s\n\nUsage:\n  %s\n\nFlags:\n", name, summary, usage)
		fs.PrintDefaults()
	}
	return fs
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

func runView(args []string) {
	fs := newFlagSet("view", "View log file in human-readable format", "mash-log view [flags] <file.mlog>")
	flags := addFilterFlags(fs)
	path, filter := parseArgs(fs, flags, args)

	if err := commands.RunView(path, filter, os.Stdout); err != nil {
		fatal(err)
	}
}

func runExport(args []string) {
	fs := newFlagSet("export", "Export log file to JSON or CSV format", "mash-log export [flags] <file.mlog>")
	format := fs.String("format", "jsonl", "Output format (jsonl, csv)")
	output := fs.String("o", "", "Output file (default: stdout)")
	flags := addFilterFlags(fs)
	path, filter := parseArgs(fs, flags, args)

	if err := commands.RunExport(path, *format, *output, filter); err != nil {
		fatal(err)
	}
}

func runFilter(args []string) {
	fs := newFlagSet("filter", "Filter log file and write to new file", "mash-log filter [flags] -o <out.mlog> <file.mlog>")
	output := fs.String("o", "", "Output file (required)")
	flags := addFilterFlags(fs)
	path, filter := parseArgs(fs, flags, args)

	if *output == "" {
		fmt.Fprintln(os.Stderr, "Error: output file (-o) required")
		fs.Usage()
		os.Exit(1)
	}

	if err := commands.RunFilter(path, *output, filter, os.Stdout); err != nil {
		fatal(err)
	}
}

func runStats(args []string) {
	fs := newFlagSet("stats", "Show statistics about the log file", "mash-log stats <file.mlog>")
	path, _ := parseArgs(fs, nil, args)

	if err := commands.RunStats(path, os.Stdout); err != nil {
		fatal(err)
	}
}
