// Package repo keeps the transaction log: a fixed-capacity ring of
// Records that is written by the echo handlers and traversed oldest
// first when an operator asks for a report.
//
// Nothing in this package locks.  The event loop is the only goroutine
// that ever stores, emits or draws sequence numbers.
package repo

import (
	"net/netip"
	"time"

	"xm2m/util"
)

// MaxPayload is the number of bytes a Record keeps per direction.
const MaxPayload = util.RxBufferSize

// Payload is a bounded, length-tracked copy of message bytes.  The
// zero value is empty.
type Payload struct {
	buf [MaxPayload]byte
	n   int
}

// NewPayload copies b, truncating to MaxPayload.
func NewPayload(b []byte) Payload {
	var p Payload
	p.n = copy(p.buf[:], b)
	return p
}

// Bytes returns a copy of the stored bytes.
func (p Payload) Bytes() []byte {
	out := make([]byte, p.n)
	copy(out, p.buf[:p.n])
	return out
}

// Len returns the number of stored bytes.
func (p Payload) Len() int { return p.n }

func (p Payload) String() string { return string(p.buf[:p.n]) }

// Record describes one request/reply exchange.  Records are values:
// storing one copies it, so callers cannot alter what was logged.
type Record struct {
	Seq      uint32 // 0 marks a slot that was never written
	Start    time.Time
	Peer     netip.AddrPort
	Received Payload
	Sent     Payload
}

// IsZero reports whether r is the never-written sentinel.
func (r Record) IsZero() bool { return r.Seq == 0 }

// Sequence hands out transaction numbers starting at 1.  On uint32
// overflow it wraps back to 1, skipping the sentinel value 0.
type Sequence struct {
	next uint32
}

// Next returns the next transaction number.
func (s *Sequence) Next() uint32 {
	if s.next == 0 {
		s.next = 1
	}
	n := s.next
	s.next++
	return n
}
