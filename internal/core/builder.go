package core

import (
	"fmt"
	"time"

	"xm2m/config"
	"xm2m/internal/capability"
	"xm2m/internal/metrics"
	"xm2m/internal/repo"
	"xm2m/internal/report"
	"xm2m/internal/retry"
	"xm2m/internal/transport"
	"xm2m/util"
)

// Build constructs the appropriate Mode from the given configuration.
func Build(cfg *config.Config, logger *util.Logger) (Mode, error) {
	if cfg.Console {
		return buildConsole(cfg, logger), nil
	}
	return buildServer(cfg, logger)
}

// ── mode builders ────────────────────────────────────────────────────

func buildServer(cfg *config.Config, logger *util.Logger) (Mode, error) {
	r, err := repo.New(cfg.RepoSize)
	if err != nil {
		return nil, fmt.Errorf("repository: %w", err)
	}

	sink, err := report.Open(cfg.ReportFormat, cfg.ReportFile, report.Info{
		Version:         cfg.Version,
		TransactionPort: cfg.TransactionPort,
	})
	if err != nil {
		return nil, fmt.Errorf("report: %w", err)
	}

	return &ServerMode{
		Host:            cfg.Bind,
		TransactionPort: cfg.TransactionPort,
		ConsolePort:     cfg.ConsolePort,
		MaxSessions:     cfg.Sessions,
		PollInterval:    cfg.PollInterval,
		Version:         cfg.Version,
		Env:             capability.NewEnv(r, sink, metrics.New()),
		Logger:          logger,
	}, nil
}

func buildConsole(cfg *config.Config, logger *util.Logger) Mode {
	return &ConsoleMode{
		Dialer:  &transport.TCPDialer{Timeout: cfg.DialTimeout},
		Address: util.FormatAddr(cfg.ConsoleHost, cfg.ConsolePort),
		Backoff: &retry.Backoff{
			Initial:  250 * time.Millisecond,
			Max:      2 * time.Second,
			Attempts: cfg.DialAttempts,
			Jitter:   true,
		},
		Logger: logger,
	}
}
