package core

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"xm2m/config"
	"xm2m/internal/capability"
	xerrors "xm2m/internal/errors"
	"xm2m/internal/session"
	"xm2m/internal/transport"
	"xm2m/util"
)

const (
	// eventQueue bounds how far reader goroutines may run ahead of the
	// loop before they block.
	eventQueue = 64

	// acceptPause throttles a listener after a temporary accept
	// failure such as running out of descriptors.
	acceptPause = 10 * time.Millisecond
)

type eventKind int

const (
	evAccept       eventKind = iota // a listener produced a connection
	evAcceptFailed                  // a listener's Accept returned an error
	evMessage                       // a session read returned
)

// event is what reader goroutines post to the loop.  It carries
// everything the loop needs so readers never touch shared state.
type event struct {
	kind eventKind
	from session.Kind // listener that produced an accept event
	conn net.Conn
	id   string // session ID of a message event
	pkt  capability.Packet
	err  error
}

// entry is one row of the session table.
type entry struct {
	sess    *session.Session
	handler capability.Handler
}

// ServerMode runs the transaction service: TCP and UDP echo on the
// transaction port and the operator console on the console port.
//
// Sockets are read by one goroutine each, but every event is handled
// on the goroutine that called Serve.  That goroutine alone owns the
// session table, the repository, the sequence counter and the stop
// signal, so none of them need locking.
type ServerMode struct {
	Host            string
	TransactionPort int
	ConsolePort     int
	MaxSessions     int // TCP sessions, console included
	PollInterval    time.Duration
	Version         string

	// Housekeeping runs whenever a wait times out with nothing to do.
	Housekeeping func()

	Env    *capability.Env
	Logger *util.Logger

	listeners *transport.Listeners
	events    chan event
	done      chan struct{}
	wg        sync.WaitGroup

	sessions map[string]*entry
	echo     *capability.Echo
	console  *capability.Console
	udp      *session.Session
	served   bool
	fatal    error
}

// Run binds the listeners and serves until a console quit, a fatal
// listener failure or ctx cancellation.
func (m *ServerMode) Run(ctx context.Context) error {
	if err := m.Listen(ctx); err != nil {
		return err
	}
	m.Logger.Info("xm2m-server %s: transactions on %s (tcp+udp), console on %s",
		m.Version, m.TransactionAddr(), m.ConsoleAddr())
	return m.Serve(ctx)
}

// Listen binds the console, TCP transaction and UDP transaction
// endpoints.  It must be called once before Serve.
func (m *ServerMode) Listen(ctx context.Context) error {
	if m.listeners != nil {
		return fmt.Errorf("server already listening on %s", m.listeners)
	}
	ls, err := transport.Listen(ctx, m.Host, m.TransactionPort, m.ConsolePort, m.Logger)
	if err != nil {
		return err
	}
	m.Logger.Verbose("bound %s", ls)

	m.listeners = ls
	m.events = make(chan event, eventQueue)
	m.done = make(chan struct{})
	m.sessions = make(map[string]*entry, m.MaxSessions)
	m.echo = &capability.Echo{Env: m.Env}
	m.console = &capability.Console{Env: m.Env}
	m.udp = session.New(session.Datagram, ls.Datagram, m.Logger)
	return nil
}

// TransactionAddr returns the bound TCP transaction address.  The UDP
// endpoint shares its port.
func (m *ServerMode) TransactionAddr() net.Addr { return m.listeners.Transaction.Addr() }

// ConsoleAddr returns the bound console address.
func (m *ServerMode) ConsoleAddr() net.Addr { return m.listeners.Console.Addr() }

// Serve runs the event loop.  It returns nil after an orderly stop and
// the listener failure that forced the stop otherwise.
func (m *ServerMode) Serve(ctx context.Context) error {
	if m.listeners == nil {
		return fmt.Errorf("serve: %w", xerrors.New("listeners not bound"))
	}
	if m.served {
		return xerrors.ErrServerStopped
	}
	m.served = true

	m.wg.Add(3)
	go m.accept(m.listeners.Console, session.Console)
	go m.accept(m.listeners.Transaction, session.Echo)
	go m.receiveFrom(m.udp)

	for !m.Env.Stopped() && ctx.Err() == nil {
		batch := m.wait(ctx)
		if len(batch) == 0 {
			if ctx.Err() == nil {
				m.idle()
			}
			continue
		}
		for _, ev := range batch {
			m.dispatch(ev)
		}
	}

	m.shutdown()
	return m.fatal
}

// ── loop side ────────────────────────────────────────────────────────

// wait blocks until at least one event arrives or the poll interval
// expires, then takes every event already queued.  Events posted
// while the batch is dispatched wait for the next iteration.
func (m *ServerMode) wait(ctx context.Context) []event {
	timer := time.NewTimer(m.pollInterval())
	defer timer.Stop()

	var batch []event
	select {
	case ev := <-m.events:
		batch = append(batch, ev)
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return nil
	}
	for n := len(m.events); n > 0; n-- {
		batch = append(batch, <-m.events)
	}
	return batch
}

func (m *ServerMode) dispatch(ev event) {
	switch ev.kind {
	case evAccept:
		m.admit(ev.from, ev.conn)

	case evAcceptFailed:
		if xerrors.IsTemporary(ev.err) {
			m.Logger.Debug("%s accept: %v", ev.from, ev.err)
			return
		}
		m.Logger.Error("%s listener failed: %v", ev.from, ev.err)
		m.Env.Metrics.RecordError(ev.err.Error())
		m.fatal = fmt.Errorf("%s listener: %w", ev.from, ev.err)
		m.Env.Stop()

	case evMessage:
		if ev.id == m.udp.ID {
			m.echo.Receive(m.udp, ev.pkt)
			return
		}
		// The session may have been removed earlier in this batch.
		e, ok := m.sessions[ev.id]
		if !ok {
			return
		}
		if n := e.handler.Receive(e.sess, ev.pkt); n <= 0 {
			m.remove(e)
		}
	}
}

// admit registers an accepted connection or refuses it.
func (m *ServerMode) admit(kind session.Kind, conn net.Conn) {
	if len(m.sessions) >= m.MaxSessions {
		m.refuse(conn, xerrors.ErrSessionLimit)
		return
	}

	sess := session.New(kind, conn, m.Logger)
	var h capability.Handler = m.echo
	if kind == session.Console {
		if err := m.console.Attach(sess); err != nil {
			m.refuse(conn, err)
			return
		}
		h = m.console
	}

	m.sessions[sess.ID] = &entry{sess: sess, handler: h}
	m.Env.Metrics.SessionOpened()
	sess.Logger.Verbose("%s session from %s (%d/%d)", kind, sess.Peer, len(m.sessions), m.MaxSessions)

	m.wg.Add(1)
	go m.receive(sess)
}

func (m *ServerMode) refuse(conn net.Conn, reason error) {
	m.Logger.Warn("refused %s: %v", conn.RemoteAddr(), reason)
	m.Env.Metrics.SessionRefused()
	conn.Close()
}

// remove closes a session and frees its table slot and, if it held
// it, the console slot.
func (m *ServerMode) remove(e *entry) {
	m.console.Detach(e.sess)
	if e.sess.Connected() {
		if err := e.sess.Close(); err != nil && !xerrors.IsClosed(err) {
			e.sess.Logger.Debug("close: %v", err)
		}
	}
	delete(m.sessions, e.sess.ID)
	m.Env.Metrics.SessionClosed()
	e.sess.Logger.Verbose("%s session closed", e.sess.Kind)
}

func (m *ServerMode) idle() {
	m.Env.Metrics.RecordIdle()
	m.Logger.Debug("idle, %d session(s) open", len(m.sessions))
	if m.Housekeeping != nil {
		m.Housekeeping()
	}
}

func (m *ServerMode) shutdown() {
	m.Logger.Info("shutting down, closing %d session(s)", len(m.sessions))

	close(m.done)
	if err := m.listeners.Close(); err != nil {
		m.Logger.Debug("close listeners: %v", err)
	}
	for _, e := range m.sessions {
		m.remove(e)
	}
	m.wg.Wait()

	// Readers are gone; anything still queued is an unanswered accept
	// or a read nobody will handle.
	for len(m.events) > 0 {
		if ev := <-m.events; ev.conn != nil {
			ev.conn.Close()
		}
	}

	if m.Logger.Level() >= util.LogVerbose {
		m.Logger.Verbose("metrics: %s", m.Env.Metrics.JSON())
	}
}

func (m *ServerMode) pollInterval() time.Duration {
	if m.PollInterval > 0 {
		return m.PollInterval
	}
	return config.DefaultPollInterval
}

// ── reader side ──────────────────────────────────────────────────────

// post hands ev to the loop.  It reports false once the loop has shut
// down.
func (m *ServerMode) post(ev event) bool {
	select {
	case m.events <- ev:
		return true
	case <-m.done:
		return false
	}
}

func (m *ServerMode) closing() bool {
	select {
	case <-m.done:
		return true
	default:
		return false
	}
}

func (m *ServerMode) accept(ln net.Listener, kind session.Kind) {
	defer m.wg.Done()
	for {
		conn, err := ln.Accept()
		if err != nil {
			if m.closing() {
				return
			}
			if !m.post(event{kind: evAcceptFailed, from: kind, err: err}) || !xerrors.IsTemporary(err) {
				return
			}
			time.Sleep(acceptPause)
			continue
		}
		if !m.post(event{kind: evAccept, from: kind, conn: conn}) {
			conn.Close()
			return
		}
	}
}

// receive reads one TCP session until end of stream or error.  Every
// read becomes one message, so a long write may arrive as several.
func (m *ServerMode) receive(sess *session.Session) {
	defer m.wg.Done()
	bp := util.GetBuf()
	defer util.PutBuf(bp)
	buf := *bp

	from := sess.Conn.RemoteAddr()
	for {
		n, err := sess.Conn.Read(buf)
		if n > 0 {
			pkt := capability.Packet{Data: append([]byte(nil), buf[:n]...), From: from}
			if !m.post(event{kind: evMessage, id: sess.ID, pkt: pkt}) {
				return
			}
		}
		if err != nil {
			if !m.post(event{kind: evMessage, id: sess.ID, pkt: capability.Packet{From: from, Err: err}}) || !xerrors.IsWouldBlock(err) {
				return
			}
		}
	}
}

// receiveFrom reads the UDP endpoint.  Datagrams longer than the
// buffer are truncated; empty ones are dropped.
func (m *ServerMode) receiveFrom(sess *session.Session) {
	defer m.wg.Done()
	bp := util.GetBuf()
	defer util.PutBuf(bp)
	buf := *bp

	pc := sess.Conn.(net.PacketConn)
	for {
		n, from, err := pc.ReadFrom(buf)
		if err != nil {
			if m.closing() || xerrors.IsClosed(err) {
				return
			}
			if !m.post(event{kind: evMessage, id: sess.ID, pkt: capability.Packet{From: from, Err: err}}) || !xerrors.IsTemporary(err) {
				return
			}
			continue
		}
		if n == 0 {
			continue
		}
		pkt := capability.Packet{Data: append([]byte(nil), buf[:n]...), From: from}
		if !m.post(event{kind: evMessage, id: sess.ID, pkt: pkt}) {
			return
		}
	}
}
