// Package metrics provides lock-free counters describing a running
// xm2m server.
//
// All methods are safe for concurrent use.  A nil *Collector is a
// valid no-op receiver, so callers never need to nil-check.
package metrics

import (
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"
)

// Collector tracks runtime counters for one server process.
type Collector struct {
	sessionsActive  atomic.Int64
	sessionsTotal   atomic.Int64
	sessionsRefused atomic.Int64
	transactions    atomic.Int64
	datagrams       atomic.Int64
	bytesIn         atomic.Int64
	bytesOut        atomic.Int64
	errorsTotal     atomic.Int64

	mu           sync.RWMutex
	startTime    time.Time
	lastIdle     time.Time
	lastError    time.Time
	lastErrorMsg string
}

// New creates a collector with the start time set to now.
func New() *Collector {
	return &Collector{startTime: time.Now()}
}

// ── Session metrics ──────────────────────────────────────────────────

// SessionOpened counts a registered TCP session.
func (c *Collector) SessionOpened() {
	if c == nil {
		return
	}
	c.sessionsActive.Add(1)
	c.sessionsTotal.Add(1)
}

// SessionClosed counts a session removed from the table.
func (c *Collector) SessionClosed() {
	if c == nil {
		return
	}
	c.sessionsActive.Add(-1)
}

// SessionRefused counts a connection closed right after accept.
func (c *Collector) SessionRefused() {
	if c == nil {
		return
	}
	c.sessionsRefused.Add(1)
}

// ActiveSessions returns the number of registered sessions.
func (c *Collector) ActiveSessions() int64 {
	if c == nil {
		return 0
	}
	return c.sessionsActive.Load()
}

// TotalSessions returns the lifetime count of registered sessions.
func (c *Collector) TotalSessions() int64 {
	if c == nil {
		return 0
	}
	return c.sessionsTotal.Load()
}

// RefusedSessions returns the number of refused connections.
func (c *Collector) RefusedSessions() int64 {
	if c == nil {
		return 0
	}
	return c.sessionsRefused.Load()
}

// ── Traffic metrics ──────────────────────────────────────────────────

// Transaction counts one logged echo exchange of n bytes each way.
// UDP exchanges are also counted as datagrams.
func (c *Collector) Transaction(n int, udp bool) {
	if c == nil {
		return
	}
	c.transactions.Add(1)
	if udp {
		c.datagrams.Add(1)
	}
	c.bytesIn.Add(int64(n))
}

// BytesSent records n bytes written to the network.
func (c *Collector) BytesSent(n int) {
	if c == nil || n <= 0 {
		return
	}
	c.bytesOut.Add(int64(n))
}

// Transactions returns the number of logged exchanges.
func (c *Collector) Transactions() int64 {
	if c == nil {
		return 0
	}
	return c.transactions.Load()
}

// TotalBytesIn returns echoed bytes received.
func (c *Collector) TotalBytesIn() int64 {
	if c == nil {
		return 0
	}
	return c.bytesIn.Load()
}

// TotalBytesOut returns bytes sent.
func (c *Collector) TotalBytesOut() int64 {
	if c == nil {
		return 0
	}
	return c.bytesOut.Load()
}

// ── Errors and idle ──────────────────────────────────────────────────

// RecordError increments the error counter and stores the message.
func (c *Collector) RecordError(msg string) {
	if c == nil {
		return
	}
	c.errorsTotal.Add(1)
	c.mu.Lock()
	c.lastError = time.Now()
	c.lastErrorMsg = msg
	c.mu.Unlock()
}

// ErrorCount returns the total number of errors recorded.
func (c *Collector) ErrorCount() int64 {
	if c == nil {
		return 0
	}
	return c.errorsTotal.Load()
}

// RecordIdle notes a wait cycle that timed out with nothing ready.
func (c *Collector) RecordIdle() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.lastIdle = time.Now()
	c.mu.Unlock()
}

// ── Snapshot ─────────────────────────────────────────────────────────

// Snapshot is a point-in-time view of all metrics.
type Snapshot struct {
	Uptime          string `json:"uptime"`
	SessionsActive  int64  `json:"sessions_active"`
	SessionsTotal   int64  `json:"sessions_total"`
	SessionsRefused int64  `json:"sessions_refused"`
	Transactions    int64  `json:"transactions"`
	Datagrams       int64  `json:"datagrams"`
	BytesIn         int64  `json:"bytes_in"`
	BytesOut        int64  `json:"bytes_out"`
	ErrorsTotal     int64  `json:"errors_total"`
	LastIdle        string `json:"last_idle,omitempty"`
	LastError       string `json:"last_error,omitempty"`
	LastErrorMsg    string `json:"last_error_message,omitempty"`
}

// Snapshot returns a copy of all current metrics.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	s := Snapshot{
		Uptime:          time.Since(c.startTime).Truncate(time.Second).String(),
		SessionsActive:  c.sessionsActive.Load(),
		SessionsTotal:   c.sessionsTotal.Load(),
		SessionsRefused: c.sessionsRefused.Load(),
		Transactions:    c.transactions.Load(),
		Datagrams:       c.datagrams.Load(),
		BytesIn:         c.bytesIn.Load(),
		BytesOut:        c.bytesOut.Load(),
		ErrorsTotal:     c.errorsTotal.Load(),
	}
	if !c.lastIdle.IsZero() {
		s.LastIdle = c.lastIdle.Format(time.RFC3339)
	}
	if !c.lastError.IsZero() {
		s.LastError = c.lastError.Format(time.RFC3339)
		s.LastErrorMsg = c.lastErrorMsg
	}
	return s
}

// JSON returns the snapshot as an indented JSON string.
func (c *Collector) JSON() string {
	data, _ := json.MarshalIndent(c.Snapshot(), "", "  ")
	return string(data)
}
