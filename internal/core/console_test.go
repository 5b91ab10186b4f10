package core

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"

	"xm2m/config"
	"xm2m/internal/capability"
	"xm2m/internal/retry"
	"xm2m/internal/transport"
	"xm2m/util"
)

func init() {
	color.NoColor = true
}

func consoleClient(addr string, in string, interactive bool) (*ConsoleMode, *bytes.Buffer) {
	out := &bytes.Buffer{}
	return &ConsoleMode{
		Dialer:      &transport.TCPDialer{Timeout: time.Second},
		Address:     addr,
		Backoff:     &retry.Backoff{Initial: 10 * time.Millisecond, Max: 50 * time.Millisecond, Attempts: 3},
		Logger:      util.NewLogger(0),
		Stdin:       strings.NewReader(in),
		Stdout:      out,
		Interactive: func() bool { return interactive },
	}, out
}

func TestConsoleMode_Interactive(t *testing.T) {
	h := startServer(t, 4)
	m, out := consoleClient(h.m.ConsoleAddr().String(), "h\n\nw\nq\nh\n", true)

	if err := m.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	got := out.String()
	for _, want := range []string{
		"Commands:\n W - write all test records",
		"Repository write is complete.\n",
		"Terminating server operations.\n",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
	if strings.Count(got, "Commands:") != 1 {
		t.Errorf("input after quit was sent:\n%s", got)
	}
	if !strings.HasPrefix(got, capability.Prompt+" ") {
		t.Errorf("output should start with the prompt: %q", got)
	}
	if err := h.wait(t); err != nil {
		t.Errorf("server: %v", err)
	}
	if _, reports := h.sink.snapshot(); reports != 1 {
		t.Errorf("reports = %d, want 1", reports)
	}
}

func TestConsoleMode_InputEnds(t *testing.T) {
	h := startServer(t, 4)
	m, _ := consoleClient(h.m.ConsoleAddr().String(), "h\nh\n", true)

	done := make(chan error, 1)
	go func() { done <- m.Run(context.Background()) }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("client did not finish")
	}
	h.stop(t)
}

func TestConsoleMode_Piped(t *testing.T) {
	h := startServer(t, 4)
	m, out := consoleClient(h.m.ConsoleAddr().String(), "w", false)

	if err := m.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := out.String(); got != capability.ReplyWriteDone {
		t.Errorf("output = %q, want %q", got, capability.ReplyWriteDone)
	}
}

func TestConsoleMode_WaitsForServer(t *testing.T) {
	port, err := util.FindFreePort()
	if err != nil {
		t.Fatal(err)
	}
	m, out := consoleClient(util.FormatAddr("127.0.0.1", port), "q\n", true)
	m.Backoff = &retry.Backoff{Initial: 20 * time.Millisecond, Max: 50 * time.Millisecond, Attempts: 100}

	done := make(chan error, 1)
	go func() { done <- m.Run(context.Background()) }()

	time.Sleep(100 * time.Millisecond)
	h := startServer(t, 2, func(s *ServerMode) { s.ConsolePort = port })

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("client never connected")
	}
	if !strings.Contains(out.String(), "Terminating server operations.") {
		t.Errorf("output = %q", out.String())
	}
	h.wait(t)
}

func TestConsoleMode_GivesUp(t *testing.T) {
	port, err := util.FindFreePort()
	if err != nil {
		t.Fatal(err)
	}
	m, _ := consoleClient(util.FormatAddr("127.0.0.1", port), "", true)
	m.Backoff = &retry.Backoff{Initial: time.Millisecond, Attempts: 2}

	if err := m.Run(context.Background()); err == nil {
		t.Fatal("expected error with no server listening")
	}
}

func TestBuild(t *testing.T) {
	cfg := config.Defaults()
	cfg.RepoSize = 5
	mode, err := Build(cfg, util.NewLogger(0))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	srv, ok := mode.(*ServerMode)
	if !ok {
		t.Fatalf("Build returned %T, want *ServerMode", mode)
	}
	if srv.Env.Repo.Cap() != 5 || srv.MaxSessions != config.DefaultSessions {
		t.Errorf("server = cap %d sessions %d", srv.Env.Repo.Cap(), srv.MaxSessions)
	}

	cfg.Console = true
	cfg.ConsoleHost = "10.1.2.3"
	mode, err = Build(cfg, util.NewLogger(0))
	if err != nil {
		t.Fatalf("Build console: %v", err)
	}
	con, ok := mode.(*ConsoleMode)
	if !ok {
		t.Fatalf("Build returned %T, want *ConsoleMode", mode)
	}
	if con.Address != "10.1.2.3:1900" || con.Backoff.Attempts != config.DefaultDialAttempts {
		t.Errorf("console = %s attempts %d", con.Address, con.Backoff.Attempts)
	}
}

func TestBuild_BadReportFormat(t *testing.T) {
	cfg := config.Defaults()
	cfg.ReportFormat = "pdf"
	if _, err := Build(cfg, util.NewLogger(0)); err == nil {
		t.Fatal("expected error for unknown report format")
	}
}
