// File: reactor/conn.go
// Package reactor implements the boss/worker event-driven server core:
// one acceptor distributing connections round-robin across a fixed pool
// of single-threaded event-loop workers.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package reactor

import (
	"github.com/momentics/hioload-reactor/api"
	"github.com/momentics/hioload-reactor/buffer"
)

// connState tracks where a connection is in its lifecycle.
type connState uint8

const (
	stateReading connState = iota // waiting for or consuming inbound bytes
	stateWriting                  // flushing a staged reply, reads paused
	stateClosing                  // teardown initiated
	stateClosed                   // fd closed, registration cancelled
)

// conn is the per-connection record. After handoff it is owned by
// exactly one worker; no other goroutine reads or writes any field.
type conn struct {
	fd int

	in *buffer.Cursor // inbound fill/drain cursor

	// pending holds staged reply spans not yet flushed, in order.
	// pendingOff is the count of bytes of pending[0] already written.
	pending      [][]byte
	pendingOff   int
	pendingBytes int

	state    connState
	interest api.EventType
}
