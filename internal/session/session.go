// Package session holds the live state of one registered connection:
// its identity, socket, peer and which kind of handler serves it.
//
// Handlers operate on a Session rather than a raw net.Conn, so they
// can reply without knowing whether the socket is a TCP stream or the
// shared UDP socket.
package session

import (
	"net"
	"net/netip"
	"time"

	"github.com/google/uuid"

	"xm2m/util"
)

// Kind selects the handler bound to a session at registration time.
type Kind int

const (
	// Echo is a TCP transaction session.
	Echo Kind = iota
	// Console is the operator command session.
	Console
	// Datagram is the singleton UDP transaction endpoint.
	Datagram
)

func (k Kind) String() string {
	switch k {
	case Echo:
		return "echo"
	case Console:
		return "console"
	case Datagram:
		return "udp"
	default:
		return "unknown"
	}
}

// Session encapsulates the runtime state of one connection.
type Session struct {
	ID     string
	Kind   Kind
	Conn   net.Conn
	Peer   netip.AddrPort
	Opened time.Time
	Logger *util.Logger

	connected bool
}

// New creates a connected Session with a fresh ID.  The logger is
// tagged with the ID so lines from one session can be correlated.
func New(kind Kind, conn net.Conn, logger *util.Logger) *Session {
	id := uuid.NewString()
	var peer netip.AddrPort
	if kind != Datagram {
		peer = util.AddrPort(conn.RemoteAddr())
	}
	return &Session{
		ID:        id,
		Kind:      kind,
		Conn:      conn,
		Peer:      peer,
		Opened:    time.Now(),
		Logger:    logger.With("session", id[:8]),
		connected: true,
	}
}

// Connected reports whether the session is still usable.
func (s *Session) Connected() bool { return s.connected }

// Send writes p to the peer.  Datagram sessions address each reply to
// the sender of the message being answered; stream sessions ignore to.
func (s *Session) Send(p []byte, to net.Addr) (int, error) {
	if s.Kind == Datagram {
		if pc, ok := s.Conn.(net.PacketConn); ok && to != nil {
			return pc.WriteTo(p, to)
		}
	}
	return s.Conn.Write(p)
}

// Close shuts the connection down in both directions and closes it.
// It is idempotent.
func (s *Session) Close() error {
	if !s.connected {
		return nil
	}
	s.connected = false
	if tc, ok := s.Conn.(*net.TCPConn); ok {
		tc.CloseRead()  //nolint:errcheck
		tc.CloseWrite() //nolint:errcheck
	}
	return s.Conn.Close()
}
