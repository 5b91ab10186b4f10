// Package cmd wires up the CLI flags and dispatches to the core modes.
package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	flag "github.com/spf13/pflag"

	"xm2m/config"
	"xm2m/internal/core"
	"xm2m/internal/report"
	"xm2m/util"
)

// version is overridable at link time:
//
//	go build -ldflags "-X xm2m/cmd.version=2.0.0"
var version = "1.0.0" //nolint:gochecknoglobals

// options are the raw flag values.  They only override the file and
// environment layers when the flag was given explicitly.
type options struct {
	port, consolePort  int
	repoSize, sessions int
	bind               string
	poll               time.Duration
	reportFormat       string
	reportFile         string
	configPath         string
	dialAttempts       int
	verbose            int
	quiet              bool
	dryRun             bool
	showVersion        bool
	showHelp           bool
}

func newFlagSet(o *options) *flag.FlagSet {
	fs := flag.NewFlagSet("xm2m", flag.ContinueOnError)

	// ── server ───────────────────────────────────────────────────
	fs.IntVarP(&o.port, "port", "p", config.DefaultTransactionPort, "Transaction TCP/UDP port")
	fs.IntVarP(&o.consolePort, "portCon", "c", config.DefaultConsolePort, "Console TCP port")
	fs.IntVarP(&o.repoSize, "repoSize", "r", config.DefaultRepoSize, "Repository capacity (records)")
	fs.IntVarP(&o.sessions, "sessions", "s", config.DefaultSessions, "Maximum concurrent TCP sessions")
	fs.StringVarP(&o.bind, "bind", "b", "", "Listen address (default all interfaces)")
	fs.DurationVar(&o.poll, "poll", config.DefaultPollInterval, "Idle housekeeping interval")

	// ── report ───────────────────────────────────────────────────
	fs.StringVarP(&o.reportFormat, "report-format", "f", config.DefaultReportFormat,
		"Report format ("+strings.Join(report.Formats(), ", ")+")")
	fs.StringVarP(&o.reportFile, "report-file", "o", "", "Write reports to this file instead of stdout")

	// ── console client ───────────────────────────────────────────
	fs.IntVar(&o.dialAttempts, "attempts", config.DefaultDialAttempts, "Console connection attempts")

	// ── general ──────────────────────────────────────────────────
	fs.StringVar(&o.configPath, "config", "", "Read settings from an ini file")
	fs.CountVarP(&o.verbose, "verbose", "v", "Increase verbosity (repeatable)")
	fs.BoolVarP(&o.quiet, "quiet", "q", false, "Only log errors")
	fs.BoolVar(&o.dryRun, "dry-run", false, "Validate settings, print them and exit")
	fs.BoolVar(&o.showVersion, "version", false, "Print version and exit")
	fs.BoolVarP(&o.showHelp, "help", "h", false, "Show this help")

	fs.SortFlags = false
	fs.Usage = func() { printUsage(fs) }
	return fs
}

// Execute parses args and runs the server or the console client.
func Execute(ctx context.Context, args []string) error {
	o := &options{}
	fs := newFlagSet(o)
	if err := fs.Parse(args); err != nil {
		return err
	}

	if o.showHelp {
		printUsage(fs)
		return nil
	}
	if o.showVersion {
		fmt.Printf("xm2m %s\n", version)
		return nil
	}

	cfg, err := resolve(fs, o)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		printUsage(fs)
		return err
	}

	logger := util.NewLogger(cfg.Verbose)
	for _, w := range cfg.Warnings() {
		logger.Warn("%s", w)
	}

	if cfg.DryRun {
		fmt.Println(cfg.Summary())
		return nil
	}

	mode, err := core.Build(cfg, logger)
	if err != nil {
		return err
	}
	return mode.Run(ctx)
}

// resolve layers defaults, the ini file, the environment, explicit
// flags and positional arguments, in that order.
func resolve(fs *flag.FlagSet, o *options) (*config.Config, error) {
	cfg := config.Defaults()
	cfg.Version = version

	if o.configPath != "" {
		if err := config.LoadFile(cfg, o.configPath); err != nil {
			return nil, err
		}
	}
	config.LoadFromEnv(cfg)

	set := func(name string, apply func()) {
		if fs.Changed(name) {
			apply()
		}
	}
	set("port", func() { cfg.TransactionPort = o.port })
	set("portCon", func() { cfg.ConsolePort = o.consolePort })
	set("repoSize", func() { cfg.RepoSize = o.repoSize })
	set("sessions", func() { cfg.Sessions = o.sessions })
	set("bind", func() { cfg.Bind = o.bind })
	set("poll", func() { cfg.PollInterval = o.poll })
	set("report-format", func() { cfg.ReportFormat = strings.ToLower(o.reportFormat) })
	set("report-file", func() { cfg.ReportFile = o.reportFile })
	set("attempts", func() { cfg.DialAttempts = o.dialAttempts })
	set("verbose", func() { cfg.Verbose = 1 + o.verbose })
	if o.quiet {
		cfg.Verbose = 0
	}
	cfg.DryRun = o.dryRun

	if err := parsePositional(cfg, fs.Args()); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ── helpers ──────────────────────────────────────────────────────────

func parsePositional(cfg *config.Config, remaining []string) error {
	if len(remaining) == 0 {
		return nil
	}
	if remaining[0] != "console" {
		return fmt.Errorf("unexpected argument %q (use --help for usage)", remaining[0])
	}

	cfg.Console = true
	switch len(remaining) {
	case 1:
	case 2:
		cfg.ConsoleHost = remaining[1]
	default:
		return fmt.Errorf("too many arguments for console mode")
	}
	return nil
}

func printUsage(fs *flag.FlagSet) {
	fmt.Fprintf(os.Stderr, `xm2m – network transaction server v%s

Echoes every TCP and UDP message upper-cased and keeps the most recent
exchanges for reporting from the operator console.

Usage:
  xm2m [options]                      Run the server
  xm2m [options] console [host]       Connect to a server's console

Options:
`, version)
	fs.PrintDefaults()
	fmt.Fprintf(os.Stderr, `
Console commands:
  W                                   Write all records to the report
  Q                                   Stop the server
  anything else                       Show the command list

Environment:
  XM2M_PORT, XM2M_CONSOLE_PORT, XM2M_REPO_SIZE, XM2M_SESSIONS, XM2M_BIND,
  XM2M_POLL, XM2M_REPORT_FORMAT, XM2M_REPORT_FILE, XM2M_CONSOLE_HOST,
  XM2M_VERBOSE

Examples:
  xm2m -p 9900 --portCon 1900 -r 5000     Server with a larger repository
  xm2m -f yaml -o /var/tmp/xm2m.yaml      Write YAML reports to a file
  xm2m console 10.0.0.7                   Operate a remote server
  echo W | xm2m console                   Scripted report
`)
}
