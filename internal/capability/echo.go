package capability

import (
	"io"

	xerrors "xm2m/internal/errors"
	"xm2m/internal/repo"
	"xm2m/internal/session"
	"xm2m/util"
)

// Echo replies to every message with its upper-cased bytes and logs
// the exchange.  One instance serves all TCP sessions and another the
// UDP socket.
type Echo struct {
	Env *Env
}

// Receive answers one message.
func (e *Echo) Receive(sess *session.Session, pkt Packet) int {
	if n, done := endOfSession(sess, pkt, e.Env); done {
		return n
	}

	peer := util.AddrPort(pkt.From)
	rec := repo.Record{
		Seq:      e.Env.Seq.Next(),
		Start:    e.Env.now(),
		Peer:     peer,
		Received: repo.NewPayload(pkt.Data),
	}
	reply := Upper(pkt.Data)
	rec.Sent = repo.NewPayload(reply)

	sess.Logger.Verbose("%s message #%d from %s: %q", sess.Kind, rec.Seq, peer, pkt.Data)

	n, err := sess.Send(reply, pkt.From)
	if err != nil {
		sess.Logger.Error("unable to send reply to %s: %v", peer, err)
		e.Env.Metrics.RecordError(err.Error())
		n = -1
	} else {
		sess.Logger.Debug("sent %d bytes: %q", n, reply)
	}

	e.Env.Repo.Store(rec)
	e.Env.Metrics.Transaction(len(pkt.Data), sess.Kind == session.Datagram)
	e.Env.Metrics.BytesSent(n)
	return n
}

// Upper returns a copy of b with ASCII letters upper-cased byte by
// byte; every other byte is left alone.
func Upper(b []byte) []byte {
	out := make([]byte, len(b))
	for i, c := range b {
		if 'a' <= c && c <= 'z' {
			c -= 'a' - 'A'
		}
		out[i] = c
	}
	return out
}

// endOfSession handles the receive outcomes that carry no message.  It
// reports done=true with the handler result when there is nothing to
// answer; that result keeps the session only after a would-block read.
func endOfSession(sess *session.Session, pkt Packet, env *Env) (int, bool) {
	switch {
	case xerrors.IsWouldBlock(pkt.Err):
		return Idle, true
	case pkt.Err != nil && !xerrors.Is(pkt.Err, io.EOF):
		sess.Logger.Error("socket receive failure: %v", pkt.Err)
		env.Metrics.RecordError(pkt.Err.Error())
		return -1, true
	case len(pkt.Data) == 0:
		sess.Logger.Verbose("session ended normally")
		return 0, true
	}
	return 0, false
}
