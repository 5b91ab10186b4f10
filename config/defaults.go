package config

import "time"

// ── Default values ───────────────────────────────────────────────────
//
// All tuneable defaults live here so they are easy to audit and reuse
// across CLI flags, the ini file, and environment variable loading.

const (
	// DefaultTransactionPort serves the TCP and UDP echo endpoints.
	DefaultTransactionPort = 9900

	// DefaultConsolePort serves the operator console.
	DefaultConsolePort = 1900

	// DefaultRepoSize is how many transaction records are kept.
	DefaultRepoSize = 1000

	// DefaultSessions is how many TCP sessions (echo and console) may
	// be registered at once.  The three listeners are not counted.
	DefaultSessions = 10

	// DefaultPollInterval is how long the event loop waits before an
	// idle cycle runs housekeeping.
	DefaultPollInterval = time.Minute

	// DefaultReportFormat renders console reports.
	DefaultReportFormat = "html"

	// DefaultConsoleHost is where the console client connects.
	DefaultConsoleHost = "127.0.0.1"

	// DefaultDialTimeout bounds each console connection attempt.
	DefaultDialTimeout = 5 * time.Second

	// DefaultDialAttempts is how many times the console client tries
	// to reach a server that is not up yet.
	DefaultDialAttempts = 5

	// WarnRepoSize and WarnSessions are accepted but logged as unusual.
	WarnRepoSize = 1000000
	WarnSessions = 100

	// MaxPort is the largest valid port number.
	MaxPort = 65535
)
