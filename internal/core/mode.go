// Package core is the orchestration layer.  It composes listeners,
// sessions and capabilities into the two operational modes of xm2m and
// provides a builder that selects the right one from a Config.
//
// Architecture layers (bottom → top):
//
//	repo, transport  →  session  →  capability  →  core  →  cmd (CLI)
//
// The server mode is an event loop: reader goroutines only accept and
// read, and a single loop goroutine owns every piece of shared state.
package core

import "context"

// Mode represents a complete operational mode of xm2m (server or
// operator console).  Each mode owns its full lifecycle from socket
// setup to teardown.
type Mode interface {
	Run(ctx context.Context) error
}
