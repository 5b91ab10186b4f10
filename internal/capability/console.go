package capability

import (
	xerrors "xm2m/internal/errors"
	"xm2m/internal/session"
)

// Prompt terminates every console reply.
const Prompt = "xm2m]"

// Console replies.
const (
	ReplyWriteDone   = "Repository write is complete.\n" + Prompt
	ReplyWriteFailed = "Repository write failed.\n" + Prompt
	ReplyQuit        = "Terminating server operations.\n" + Prompt
	ReplyHelp        = "Commands:\n W - write all test records\n Q - quit xm2m-server\n" + Prompt
)

// Console interprets operator commands.  Only one console session may
// exist at a time; Attach claims the slot and Detach releases it.
type Console struct {
	Env *Env

	owner string // session ID holding the slot, "" when free
}

// Connected reports whether a console session currently holds the slot.
func (c *Console) Connected() bool { return c.owner != "" }

// Attach binds sess as the console session.
func (c *Console) Attach(sess *session.Session) error {
	if c.owner != "" {
		return xerrors.ErrConsoleBusy
	}
	c.owner = sess.ID
	return nil
}

// Detach releases the slot if sess holds it.
func (c *Console) Detach(sess *session.Session) {
	if c.owner == sess.ID {
		c.owner = ""
	}
}

// Receive runs the command named by the first byte of the message.
func (c *Console) Receive(sess *session.Session, pkt Packet) int {
	if n, done := endOfSession(sess, pkt, c.Env); done {
		if n <= 0 {
			c.Detach(sess)
		}
		return n
	}

	var reply string
	switch Upper(pkt.Data[:1])[0] {
	case 'W':
		sess.Logger.Info("console: writing repository report (%d records)", c.Env.Repo.Len())
		reply = ReplyWriteDone
		if err := c.Env.Repo.Emit(c.Env.Sink); err != nil {
			sess.Logger.Error("console: report failed: %v", err)
			c.Env.Metrics.RecordError(err.Error())
			reply = ReplyWriteFailed
		}
	case 'Q':
		sess.Logger.Info("console: stop requested")
		c.Env.Stop()
		reply = ReplyQuit
	default:
		reply = ReplyHelp
	}

	n, err := sess.Send([]byte(reply), pkt.From)
	if err != nil {
		sess.Logger.Error("console: unable to send reply: %v", err)
		c.Env.Metrics.RecordError(err.Error())
		return -1
	}
	c.Env.Metrics.BytesSent(n)
	return n
}
