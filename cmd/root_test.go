package cmd

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// TestExecute_Version verifies --version prints a version string.
func TestExecute_Version(t *testing.T) {
	if err := Execute(context.Background(), []string{"--version"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// TestExecute_Help verifies --help returns without starting anything.
func TestExecute_Help(t *testing.T) {
	for _, args := range [][]string{{"--help"}, {"-h"}} {
		t.Run(args[0], func(t *testing.T) {
			if err := Execute(context.Background(), args); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

// TestExecute_DryRun verifies --dry-run validates and exits cleanly.
func TestExecute_DryRun(t *testing.T) {
	for _, args := range [][]string{
		{"--dry-run"},
		{"-p", "8080", "--portCon", "8081", "-r", "10", "-s", "3", "--dry-run"},
		{"-f", "yaml", "-o", "report.yaml", "--dry-run"},
		{"console", "--dry-run"},
		{"console", "10.0.0.1", "--attempts", "2", "--dry-run"},
	} {
		t.Run(strings.Join(args, " "), func(t *testing.T) {
			if err := Execute(context.Background(), args); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

// TestExecute_DryRunInvalid verifies --dry-run still catches bad configs.
func TestExecute_DryRunInvalid(t *testing.T) {
	tests := []struct {
		args []string
		want string
	}{
		{[]string{"-p", "70000", "--dry-run"}, "port"},
		{[]string{"--portCon", "-1", "--dry-run"}, "portCon"},
		{[]string{"-r", "0", "--dry-run"}, "repoSize"},
		{[]string{"-s", "0", "--dry-run"}, "sessions"},
		{[]string{"-f", "pdf", "--dry-run"}, "report-format"},
		{[]string{"-p", "5000", "--portCon", "5000", "--dry-run"}, "portCon"},
		{[]string{"console", "--attempts", "0", "--dry-run"}, "attempts"},
	}
	for _, tt := range tests {
		t.Run(strings.Join(tt.args, " "), func(t *testing.T) {
			err := Execute(context.Background(), tt.args)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q should mention %q", err, tt.want)
			}
		})
	}
}

// TestExecute_InvalidFlags verifies unknown flags produce an error.
func TestExecute_InvalidFlags(t *testing.T) {
	if err := Execute(context.Background(), []string{"--nonexistent-flag"}); err == nil {
		t.Fatal("expected error for unknown flag")
	}
}

func TestExecute_Positional(t *testing.T) {
	for _, args := range [][]string{
		{"serve"},
		{"console", "a", "b"},
	} {
		if err := Execute(context.Background(), append(args, "--dry-run")); err == nil {
			t.Errorf("%v: expected error", args)
		}
	}
}

func TestResolve_Precedence(t *testing.T) {
	ini := filepath.Join(t.TempDir(), "xm2m.ini")
	body := "[server]\nport = 7000\nrepo_size = 70\nsessions = 7\n[report]\nformat = text\n"
	if err := os.WriteFile(ini, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("XM2M_REPO_SIZE", "80")
	t.Setenv("XM2M_SESSIONS", "8")

	o := &options{}
	fs := newFlagSet(o)
	if err := fs.Parse([]string{"--config", ini, "-s", "9", "-vv"}); err != nil {
		t.Fatal(err)
	}
	cfg, err := resolve(fs, o)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}

	if cfg.TransactionPort != 7000 {
		t.Errorf("port = %d, want 7000 from the file", cfg.TransactionPort)
	}
	if cfg.RepoSize != 80 {
		t.Errorf("repoSize = %d, want 80 from the environment", cfg.RepoSize)
	}
	if cfg.Sessions != 9 {
		t.Errorf("sessions = %d, want 9 from the flag", cfg.Sessions)
	}
	if cfg.ReportFormat != "text" {
		t.Errorf("format = %q, want text", cfg.ReportFormat)
	}
	if cfg.Verbose != 3 {
		t.Errorf("verbose = %d, want 3", cfg.Verbose)
	}
	if cfg.PollInterval != time.Minute {
		t.Errorf("poll = %v, want default", cfg.PollInterval)
	}
	if cfg.Version != version {
		t.Errorf("version = %q", cfg.Version)
	}
}

func TestResolve_Console(t *testing.T) {
	o := &options{}
	fs := newFlagSet(o)
	if err := fs.Parse([]string{"-q", "console", "192.0.2.1"}); err != nil {
		t.Fatal(err)
	}
	cfg, err := resolve(fs, o)
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.Console || cfg.ConsoleHost != "192.0.2.1" || cfg.Verbose != 0 {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestResolve_MissingConfigFile(t *testing.T) {
	o := &options{}
	fs := newFlagSet(o)
	if err := fs.Parse([]string{"--config", filepath.Join(t.TempDir(), "nope.ini")}); err != nil {
		t.Fatal(err)
	}
	if _, err := resolve(fs, o); err == nil {
		t.Fatal("expected error for missing config file")
	}
}
