package errors

import (
	"fmt"
	"io"
	"net"
	"os"
	"syscall"
	"testing"
)

func TestNetworkError_Format(t *testing.T) {
	tests := []struct {
		name string
		err  NetworkError
		want string
	}{
		{
			name: "retryable",
			err:  NetworkError{Op: "dial", Addr: "127.0.0.1:1900", Err: io.EOF, Retryable: true},
			want: "dial 127.0.0.1:1900: EOF (retryable)",
		},
		{
			name: "non-retryable",
			err:  NetworkError{Op: "listen", Addr: ":9900", Err: fmt.Errorf("bind failed")},
			want: "listen :9900: bind failed",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNetworkError_Unwrap(t *testing.T) {
	err := &NetworkError{Op: "accept", Addr: "x", Err: io.EOF}
	if !Is(err, io.EOF) {
		t.Error("should unwrap to io.EOF")
	}
}

func TestConfigError_Format(t *testing.T) {
	tests := []struct {
		name string
		err  ConfigError
		want string
	}{
		{
			name: "with value and hint",
			err: ConfigError{
				Field:   "port",
				Value:   99999,
				Message: "out of range 0-65535",
				Hint:    "port numbers should be from 0 to 65535",
			},
			want: "config: --port=99999: out of range 0-65535\n  hint: port numbers should be from 0 to 65535",
		},
		{
			name: "missing value no hint",
			err: ConfigError{
				Field:   "report-format",
				Message: "must not be empty",
			},
			want: "config: --report-format: must not be empty",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestIsWouldBlock(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"eagain", syscall.EAGAIN, true},
		{"wrapped eagain", &net.OpError{Op: "read", Err: os.NewSyscallError("read", syscall.EAGAIN)}, true},
		{"deadline", fmt.Errorf("read: %w", os.ErrDeadlineExceeded), true},
		{"eof", io.EOF, false},
		{"reset", syscall.ECONNRESET, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsWouldBlock(tt.err); got != tt.want {
				t.Errorf("IsWouldBlock(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestIsTemporary(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"aborted", &net.OpError{Op: "accept", Err: os.NewSyscallError("accept", syscall.ECONNABORTED)}, true},
		{"too many files", os.NewSyscallError("accept", syscall.EMFILE), true},
		{"would block", syscall.EWOULDBLOCK, true},
		{"closed", &net.OpError{Op: "accept", Err: net.ErrClosed}, false},
		{"plain", fmt.Errorf("boom"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsTemporary(tt.err); got != tt.want {
				t.Errorf("IsTemporary(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestIsClosed(t *testing.T) {
	if !IsClosed(&net.OpError{Op: "read", Err: net.ErrClosed}) {
		t.Error("wrapped net.ErrClosed should be closed")
	}
	if IsClosed(io.EOF) {
		t.Error("io.EOF is not a closed-connection error")
	}
}

func TestWrap_DetectsRetryable(t *testing.T) {
	err := Wrap("dial", "127.0.0.1:1900", os.NewSyscallError("connect", syscall.ECONNREFUSED))
	if !err.Retryable {
		t.Error("connection refused should be retryable")
	}
	if !IsRetryable(fmt.Errorf("outer: %w", err)) {
		t.Error("IsRetryable should see through wrapping")
	}
	if IsRetryable(Wrap("listen", ":1", fmt.Errorf("bad"))) {
		t.Error("plain error should not be retryable")
	}
}

func TestSentinels_Distinct(t *testing.T) {
	all := []error{ErrAlreadyInitialized, ErrNotInitialized, ErrConsoleBusy, ErrSessionLimit, ErrServerStopped}
	for i, a := range all {
		for j, b := range all {
			if i != j && Is(a, b) {
				t.Errorf("%v should not match %v", a, b)
			}
		}
	}
}
