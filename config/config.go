// Package config defines the runtime configuration for xm2m and the
// layers it is assembled from: defaults, an optional ini file,
// environment variables and finally command-line flags.
package config

import (
	"fmt"
	"strings"
	"time"

	xerrors "xm2m/internal/errors"
	"xm2m/internal/report"
)

// Config holds every tuneable for one xm2m process.
type Config struct {
	// ── Server ───────────────────────────────────────────────────────
	Bind            string // listen host, "" = all interfaces
	TransactionPort int
	ConsolePort     int
	RepoSize        int
	Sessions        int // TCP sessions, the listeners excluded
	PollInterval    time.Duration

	// ── Report ───────────────────────────────────────────────────────
	ReportFormat string
	ReportFile   string // "" = server stdout

	// ── Console client ───────────────────────────────────────────────
	Console      bool // run the operator client instead of the server
	ConsoleHost  string
	DialTimeout  time.Duration
	DialAttempts int

	// ── Output ───────────────────────────────────────────────────────
	Verbose int
	DryRun  bool

	Version string // build identifier shown in the banner and reports
}

// Defaults returns a Config populated from defaults.go.
func Defaults() *Config {
	return &Config{
		TransactionPort: DefaultTransactionPort,
		ConsolePort:     DefaultConsolePort,
		RepoSize:        DefaultRepoSize,
		Sessions:        DefaultSessions,
		PollInterval:    DefaultPollInterval,
		ReportFormat:    DefaultReportFormat,
		ConsoleHost:     DefaultConsoleHost,
		DialTimeout:     DefaultDialTimeout,
		DialAttempts:    DefaultDialAttempts,
		Verbose:         1,
	}
}

// ── Validation ───────────────────────────────────────────────────────

// Validate checks every value that would make the process unusable.
func (c *Config) Validate() error {
	if err := validPort("port", c.TransactionPort); err != nil {
		return err
	}
	if err := validPort("portCon", c.ConsolePort); err != nil {
		return err
	}
	if c.Console {
		if c.ConsoleHost == "" {
			return &xerrors.ConfigError{Field: "host", Message: "console host is required"}
		}
		if c.DialAttempts < 1 {
			return &xerrors.ConfigError{Field: "attempts", Value: c.DialAttempts, Message: "must try at least once"}
		}
		return nil
	}

	if c.RepoSize <= 0 {
		return &xerrors.ConfigError{
			Field:   "repoSize",
			Value:   c.RepoSize,
			Message: "must have at least one record in your repository",
		}
	}
	if c.Sessions <= 0 {
		return &xerrors.ConfigError{
			Field:   "sessions",
			Value:   c.Sessions,
			Message: "must allow at least one TCP transaction session",
		}
	}
	if c.PollInterval <= 0 {
		return &xerrors.ConfigError{Field: "poll", Value: c.PollInterval, Message: "must be positive"}
	}
	if !report.Supported(c.ReportFormat) {
		return &xerrors.ConfigError{
			Field:   "report-format",
			Value:   c.ReportFormat,
			Message: "unknown report format",
			Hint:    "use one of: " + strings.Join(report.Formats(), ", "),
		}
	}
	if c.ConsolePort != 0 && c.ConsolePort == c.TransactionPort {
		return &xerrors.ConfigError{
			Field:   "portCon",
			Value:   c.ConsolePort,
			Message: "console and transaction ports must differ",
		}
	}
	return nil
}

// Warnings lists accepted but unusual settings.
func (c *Config) Warnings() []string {
	if c.Console {
		return nil
	}
	var out []string
	if c.RepoSize > WarnRepoSize {
		out = append(out, fmt.Sprintf("are you sure you want over a million repository records (%d)?", c.RepoSize))
	}
	if c.Sessions > WarnSessions {
		out = append(out, fmt.Sprintf("are you sure you want over a hundred concurrent TCP sessions (%d)?", c.Sessions))
	}
	return out
}

// Summary renders the effective configuration for --dry-run and the
// startup banner.
func (c *Config) Summary() string {
	if c.Console {
		return fmt.Sprintf("console client: host=%s port=%d attempts=%d timeout=%s",
			c.ConsoleHost, c.ConsolePort, c.DialAttempts, c.DialTimeout)
	}
	file := c.ReportFile
	if file == "" {
		file = "stdout"
	}
	return fmt.Sprintf("server: bind=%q port=%d portCon=%d repoSize=%d sessions=%d poll=%s report=%s->%s",
		c.Bind, c.TransactionPort, c.ConsolePort, c.RepoSize, c.Sessions, c.PollInterval, c.ReportFormat, file)
}

func validPort(field string, port int) error {
	if port < 0 || port > MaxPort {
		return &xerrors.ConfigError{
			Field:   field,
			Value:   port,
			Message: "out of range",
			Hint:    "port numbers should be from 0 to 65535",
		}
	}
	return nil
}
