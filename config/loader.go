package config

// loader.go - configuration loading from an ini file and environment
// variables.
//
// Precedence order (highest wins):
//   1. CLI flags  (handled by cmd/root.go)
//   2. Environment variables
//   3. ini file given with --config
//   4. Defaults   (defaults.go)

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/ini.v1"
)

// ── ini file ─────────────────────────────────────────────────────────

// fileConfig mirrors the ini layout.  Numeric [server] keys are read
// separately because a present 0 must reach Validate:
//
//	[server]
//	bind = 0.0.0.0
//	port = 9900
//	console_port = 1900
//	repo_size = 1000
//	sessions = 10
//	poll_interval = 60s
//
//	[report]
//	format = html
//	file = /var/tmp/xm2m-report.html
type fileConfig struct {
	Server struct {
		Bind string `ini:"bind"`
	} `ini:"server"`
	Report struct {
		Format string `ini:"format"`
		File   string `ini:"file"`
	} `ini:"report"`
}

// LoadFile overlays the keys present in an ini file onto cfg.
func LoadFile(cfg *Config, path string) error {
	f, err := ini.Load(path)
	if err != nil {
		return fmt.Errorf("load config %s: %w", path, err)
	}
	var fc fileConfig
	if err := f.MapTo(&fc); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	if fc.Server.Bind != "" {
		cfg.Bind = fc.Server.Bind
	}

	server := f.Section("server")
	for _, k := range []struct {
		key string
		dst *int
	}{
		{"port", &cfg.TransactionPort},
		{"console_port", &cfg.ConsolePort},
		{"repo_size", &cfg.RepoSize},
		{"sessions", &cfg.Sessions},
	} {
		if !server.HasKey(k.key) {
			continue
		}
		n, err := server.Key(k.key).Int()
		if err != nil {
			return fmt.Errorf("parse config %s: [server] %s: %w", path, k.key, err)
		}
		*k.dst = n
	}
	if server.HasKey("poll_interval") {
		d, err := server.Key("poll_interval").Duration()
		if err != nil {
			return fmt.Errorf("parse config %s: [server] poll_interval: %w", path, err)
		}
		cfg.PollInterval = d
	}

	if fc.Report.Format != "" {
		cfg.ReportFormat = fc.Report.Format
	}
	if fc.Report.File != "" {
		cfg.ReportFile = fc.Report.File
	}
	return nil
}

// ── Environment variable mapping ─────────────────────────────────────
//
// Every supported env var uses the XM2M_ prefix.  Unset or unparsable
// values leave cfg untouched.

// LoadFromEnv overlays environment variables onto cfg.
func LoadFromEnv(cfg *Config) {
	if v, ok := envInt("XM2M_PORT"); ok {
		cfg.TransactionPort = v
	}
	if v, ok := envInt("XM2M_CONSOLE_PORT"); ok {
		cfg.ConsolePort = v
	}
	if v, ok := envInt("XM2M_REPO_SIZE"); ok {
		cfg.RepoSize = v
	}
	if v, ok := envInt("XM2M_SESSIONS"); ok {
		cfg.Sessions = v
	}
	if v := os.Getenv("XM2M_BIND"); v != "" {
		cfg.Bind = v
	}
	if v := os.Getenv("XM2M_POLL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.PollInterval = d
		}
	}
	if v := os.Getenv("XM2M_REPORT_FORMAT"); v != "" {
		cfg.ReportFormat = strings.ToLower(v)
	}
	if v := os.Getenv("XM2M_REPORT_FILE"); v != "" {
		cfg.ReportFile = v
	}
	if v := os.Getenv("XM2M_CONSOLE_HOST"); v != "" {
		cfg.ConsoleHost = v
	}
	if v, ok := envInt("XM2M_VERBOSE"); ok && v >= 0 {
		cfg.Verbose = v
	}
}

// ── helpers ──────────────────────────────────────────────────────────

func envInt(key string) (int, bool) {
	v := os.Getenv(key)
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}
