// Command paramtree-log is a tool for viewing and analyzing paramtree
// capture files.
//
// Capture files are written by paramtree with the -capture flag. Each
// record is a CBOR-encoded event: a management request or response, a
// committed tree change, a rejected operation, or a notification delivery.
//
// Usage:
//
//	paramtree-log <command> [flags] <file.plog>
//
// Commands:
//
//	view     View capture file in human-readable format
//	export   Export capture file to JSONL or CSV format
//	filter   Filter capture file and write to new file
//	stats    Show statistics about the capture file
//
// Examples:
//
//	# View all events
//	paramtree-log view device.plog
//
//	# View changes made by the management server below WiFi
//	paramtree-log view -category change -origin management -path Device.WiFi. device.plog
//
//	# Export faults to CSV
//	paramtree-log export -format csv -category fault device.plog
//
//	# Keep one session and save to new file
//	paramtree-log filter -session 3f2a9c1e-... -o session.plog device.plog
//
//	# Show statistics
//	paramtree-log stats device.plog
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/paramtree/paramtree-go/cmd/paramtree-log/commands"
)

const usage = `paramtree-log - Parameter Tree Capture Analyzer

Usage:
  paramtree-log <command> [flags] <file.plog>

Commands:
  view     View capture file in human-readable format
  export   Export capture file to JSONL or CSV format
  filter   Filter capture file and write to new file
  stats    Show statistics about the capture file

Use "paramtree-log <command> -help" for more information about a command.
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

// newFlagSet creates a flag set with the usage text of a command.
func newFlagSet(name, synopsis string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `paramtree-log %s - %s

Usage:
  paramtree-log %s [flags] <file.plog>

Flags:
`, name, synopsis, name)
		fs.PrintDefaults()
	}
	return fs
}

// filterFlags registers the filter flags shared by view, export and filter.
func filterFlags(fs *flag.FlagSet) *commands.Options {
	opts := &commands.Options{}
	fs.StringVar(&opts.Session, "session", "", "Filter by session ID")
	fs.StringVar(&opts.Layer, "layer", "", "Filter by layer (wire, tree, notify)")
	fs.StringVar(&opts.Direction, "direction", "", "Filter by direction (in, out)")
	fs.StringVar(&opts.Category, "category", "", "Filter by category (message, change, fault, notification)")
	fs.StringVar(&opts.Path, "path", "", "Filter by path prefix")
	fs.StringVar(&opts.Origin, "origin", "", "Filter changes by origin (management, device)")
	fs.StringVar(&opts.TimeStart, "time-start", "", "Filter by start time (RFC3339)")
	fs.StringVar(&opts.TimeEnd, "time-end", "", "Filter by end time (RFC3339)")
	return opts
}

// parseArgs parses the flags and returns the capture file path.
func parseArgs(fs *flag.FlagSet, args []string) string {
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Error: capture file path required")
		fs.Usage()
		os.Exit(1)
	}
	return fs.Arg(0)
}

func exitOnError(err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runView(args []string) {
	fs := newFlagSet("view", "View capture file in human-readable format")
	opts := filterFlags(fs)
	path := parseArgs(fs, args)

	exitOnError(commands.RunView(path, *opts, os.Stdout))
}

func runExport(args []string) {
	fs := newFlagSet("export", "Export capture file to JSONL or CSV format")
	format := fs.String("format", "jsonl", "Output format (jsonl, csv)")
	output := fs.String("o", "", "Output file (default: stdout)")
	opts := filterFlags(fs)
	path := parseArgs(fs, args)

	exitOnError(commands.RunExport(path, *format, *output, *opts))
}

func runFilter(args []string) {
	fs := newFlagSet("filter", "Filter capture file and write to new file")
	output := fs.String("o", "", "Output file (required)")
	opts := filterFlags(fs)
	path := parseArgs(fs, args)

	if *output == "" {
		fmt.Fprintln(os.Stderr, "Error: output file (-o) required")
		fs.Usage()
		os.Exit(1)
	}

	exitOnError(commands.RunFilter(path, *output, *opts, os.Stdout))
}

func runStats(args []string) {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `paramtree-log stats - Show statistics about the capture file

Usage:
  paramtree-log stats <file.plog>

`)
	}
	path := parseArgs(fs, args)

	exitOnError(commands.RunStats(path, os.Stdout))
}
