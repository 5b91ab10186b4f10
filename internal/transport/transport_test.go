package transport

import (
	"context"
	"io"
	"net"
	"strings"
	"testing"
	"time"

	"xm2m/util"
)

// TestTCPDialer_Connect verifies that TCPDialer can reach a local
// TCP server and exchange data.
func TestTCPDialer_Connect(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		conn.Write([]byte("Commands:\nxm2m]")) //nolint:errcheck
	}()

	d := &TCPDialer{Timeout: 2 * time.Second}
	conn, err := d.Dial(context.Background(), "tcp", ln.Addr().String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	got, err := io.ReadAll(conn)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(got) != "Commands:\nxm2m]" {
		t.Errorf("got %q", got)
	}
}

// TestTCPDialer_ContextCancel verifies that a cancelled context stops the dial.
func TestTCPDialer_ContextCancel(t *testing.T) {
	d := &TCPDialer{Timeout: 5 * time.Second}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := d.Dial(ctx, "tcp", "127.0.0.1:1"); err == nil {
		t.Fatal("expected error from cancelled context")
	}
	if err := d.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestListen(t *testing.T) {
	ls, err := Listen(context.Background(), "127.0.0.1", 0, 0, util.NewLogger(0))
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer ls.Close()

	txPort := util.ListenerPort(ls.Transaction.Addr())
	if txPort == 0 || util.ListenerPort(ls.Console.Addr()) == 0 {
		t.Fatalf("ephemeral ports not assigned: %s", ls)
	}
	if got := util.ListenerPort(ls.Datagram.LocalAddr()); got != txPort {
		t.Errorf("UDP port = %d, want TCP transaction port %d", got, txPort)
	}
	if !strings.Contains(ls.String(), "console=") {
		t.Errorf("String() = %q", ls.String())
	}
}

func TestListen_PortInUse(t *testing.T) {
	busy, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer busy.Close()
	port := util.ListenerPort(busy.Addr())

	if _, err := Listen(context.Background(), "127.0.0.1", 0, port, util.NewLogger(0)); err == nil {
		t.Fatal("expected bind failure on a port already listening")
	}
}

func TestListeners_CloseIdempotentFields(t *testing.T) {
	var ls Listeners
	if err := ls.Close(); err != nil {
		t.Errorf("Close on empty Listeners: %v", err)
	}
}
