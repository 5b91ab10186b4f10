package core

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"golang.org/x/term"

	"xm2m/internal/capability"
	xerrors "xm2m/internal/errors"
	"xm2m/internal/retry"
	"xm2m/internal/transport"
	"xm2m/util"
)

var promptColor = color.New(color.FgCyan, color.Bold) //nolint:gochecknoglobals

// ConsoleMode is the operator client.  It connects to a server's
// console port, waiting for it with Backoff if it is not up yet.  On a
// terminal it sends one command per line and prints each reply; with
// piped input it relays bytes verbatim in both directions.
type ConsoleMode struct {
	Dialer  transport.Dialer
	Address string
	Backoff *retry.Backoff
	Logger  *util.Logger

	// Stdin/Stdout default to os.Stdin/os.Stdout when nil.
	Stdin  io.Reader
	Stdout io.Writer

	// Interactive overrides terminal detection on Stdin.
	Interactive func() bool
}

func (m *ConsoleMode) stdin() io.Reader {
	if m.Stdin != nil {
		return m.Stdin
	}
	return os.Stdin
}

func (m *ConsoleMode) stdout() io.Writer {
	if m.Stdout != nil {
		return m.Stdout
	}
	return os.Stdout
}

func (m *ConsoleMode) interactive() bool {
	if m.Interactive != nil {
		return m.Interactive()
	}
	f, ok := m.stdin().(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// Run connects and drives the session until the server closes it,
// input ends or a quit command is acknowledged.
func (m *ConsoleMode) Run(ctx context.Context) error {
	defer m.Dialer.Close()

	conn, err := m.dial(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()
	m.Logger.Verbose("connected to console at %s", conn.RemoteAddr())

	if !m.interactive() {
		return util.Relay(ctx, conn, m.stdin(), m.stdout())
	}

	go func() {
		<-ctx.Done()
		conn.Close()
	}()
	return m.interact(conn)
}

func (m *ConsoleMode) dial(ctx context.Context) (net.Conn, error) {
	b := m.Backoff
	if b == nil {
		b = &retry.Backoff{Attempts: 1}
	}
	b.OnRetry = func(attempt int, err error, wait time.Duration) {
		m.Logger.Verbose("console %s not reachable (attempt %d): %v, retrying in %v",
			m.Address, attempt, err, wait.Round(time.Millisecond))
	}

	var conn net.Conn
	err := b.Do(ctx, func(int) error {
		c, err := m.Dialer.Dial(ctx, "tcp", m.Address)
		if err != nil {
			if !xerrors.IsRetryable(err) {
				return retry.Permanent(err)
			}
			return err
		}
		conn = c
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("connect to console %s: %w", m.Address, err)
	}
	return conn, nil
}

// interact sends each non-blank input line as one command.
func (m *ConsoleMode) interact(conn net.Conn) error {
	in := bufio.NewScanner(m.stdin())
	out := m.stdout()
	replies := bufio.NewReader(conn)

	m.prompt(out)
	for in.Scan() {
		line := strings.TrimSpace(in.Text())
		if line == "" {
			m.prompt(out)
			continue
		}
		if _, err := io.WriteString(conn, line); err != nil {
			return fmt.Errorf("send command: %w", err)
		}

		reply, err := readReply(replies)
		fmt.Fprint(out, reply)
		if err != nil {
			fmt.Fprintln(out)
			if xerrors.Is(err, io.EOF) || xerrors.IsClosed(err) {
				m.Logger.Verbose("console closed by server")
				return nil
			}
			return fmt.Errorf("read reply: %w", err)
		}
		if capability.Upper([]byte(line[:1]))[0] == 'Q' {
			fmt.Fprintln(out)
			return nil
		}
		m.prompt(out)
	}
	return in.Err()
}

func (m *ConsoleMode) prompt(w io.Writer) {
	promptColor.Fprint(w, capability.Prompt) //nolint:errcheck
	fmt.Fprint(w, " ")
}

// readReply reads up to and including the prompt that ends every
// console reply and returns the text before it.
func readReply(r *bufio.Reader) (string, error) {
	var sb strings.Builder
	for {
		chunk, err := r.ReadString(capability.Prompt[len(capability.Prompt)-1])
		sb.WriteString(chunk)
		if err != nil {
			return sb.String(), err
		}
		if s := sb.String(); strings.HasSuffix(s, capability.Prompt) {
			return strings.TrimSuffix(s, capability.Prompt), nil
		}
	}
}
