// Package capability defines what happens when a registered session
// has a message: the echo handler answers and logs it, the console
// handler interprets it as an operator command.
//
// Handlers are called only from the event loop goroutine, one message
// at a time, and always run to completion.
package capability

import (
	"net"
	"time"

	"xm2m/internal/metrics"
	"xm2m/internal/repo"
	"xm2m/internal/session"
)

// Packet is one receive result: a message, end of stream or an error.
type Packet struct {
	Data []byte
	From net.Addr // sender; the remote address for stream sessions
	Err  error    // nil, io.EOF on orderly close, or the read failure
}

// Idle is the result for a receive that produced nothing to answer
// but leaves the session open.
const Idle = 1

// Handler processes one packet for a session.
type Handler interface {
	// Receive returns the number of bytes sent in reply, or Idle when
	// there was nothing to answer.  A result of zero or less means the
	// session is over and must be removed.
	Receive(sess *session.Session, pkt Packet) int
}

// Env is the process-scoped state shared by all handlers: the
// transaction log, the sequence counter, the report sink and the stop
// signal.  It is owned by the event loop and never touched from any
// other goroutine.
type Env struct {
	Repo    *repo.Repository
	Seq     repo.Sequence
	Sink    repo.Sink
	Metrics *metrics.Collector
	Now     func() time.Time // defaults to time.Now

	stop bool
}

// NewEnv returns an Env around an initialized repository.
func NewEnv(r *repo.Repository, sink repo.Sink, m *metrics.Collector) *Env {
	return &Env{Repo: r, Sink: sink, Metrics: m}
}

// Stop raises the stop signal.  The loop notices it on its next
// iteration.
func (e *Env) Stop() { e.stop = true }

// Stopped reports whether the stop signal has been raised.
func (e *Env) Stopped() bool { return e.stop }

func (e *Env) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}
