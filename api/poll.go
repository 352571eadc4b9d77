// File: api/poll.go
// Package api defines the contracts between the reactor core and the
// platform readiness demultiplexer.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package api

// EventType is a bitmask of readiness conditions reported for one
// file descriptor. Dispatch switches exhaustively on these bits.
type EventType uint8

const (
	// EventRead indicates the descriptor has bytes to read, or the peer
	// half-closed its side.
	EventRead EventType = 1 << iota
	// EventWrite indicates the descriptor accepts writes without blocking.
	EventWrite
	// EventError indicates an error or hangup condition on the descriptor.
	// Delivered regardless of the registered interest.
	EventError
)

// Event is one readiness notification produced by a Poller.
type Event struct {
	FD   int
	Type EventType
}

// Poller is a readiness-event demultiplexer owned by exactly one loop
// goroutine. Only Wake may be called from other goroutines.
type Poller interface {
	// Add registers fd with the given interest set.
	Add(fd int, interest EventType) error

	// Mod replaces the interest set of an already registered fd.
	Mod(fd int, interest EventType) error

	// Del cancels the registration of fd. The caller must Del before
	// closing the descriptor.
	Del(fd int) error

	// Wait blocks until at least one registered descriptor is ready or
	// Wake is called, fills events, and returns the count. A return of
	// (0, nil) is valid and means the caller should re-check its inbox.
	Wait(events []Event) (int, error)

	// Wake makes a blocked Wait return promptly. If no Wait is in
	// progress, the next Wait returns immediately instead of blocking;
	// a wakeup is never lost.
	Wake() error

	// Close releases the demultiplexer. Registered descriptors are not
	// closed.
	Close() error
}
