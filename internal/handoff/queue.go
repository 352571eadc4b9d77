// File: internal/handoff/queue.go
// Package handoff carries newly accepted connections from the acceptor
// into a worker's exclusive ownership.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// The queue is the only structure in the core mutated from two threads:
// the acceptor pushes, the owning worker drains. It pairs with the
// worker poller's Wake so an entry pushed while the worker is blocked
// is observed promptly, and one pushed while the worker is busy is
// observed on its next loop iteration.

package handoff

import (
	"sync"

	"github.com/eapache/queue"
)

// Entry is one accepted, already non-blocking socket handle awaiting
// registration in its target worker.
type Entry struct {
	FD int
}

// Queue is an unbounded FIFO safe for one pushing thread and one
// draining thread (and incidentally for many of each).
type Queue struct {
	mu sync.Mutex
	q  *queue.Queue
}

// New creates an empty queue.
func New() *Queue {
	return &Queue{q: queue.New()}
}

// Push appends an entry. Safe to call concurrently with Pop.
func (h *Queue) Push(e Entry) {
	h.mu.Lock()
	h.q.Add(e)
	h.mu.Unlock()
}

// Pop removes the oldest entry, reporting false when the queue is
// empty.
func (h *Queue) Pop() (Entry, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.q.Length() == 0 {
		return Entry{}, false
	}
	return h.q.Remove().(Entry), true
}

// Len returns the current queue depth.
func (h *Queue) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.q.Length()
}
