// File: control/metrics.go
// Author: momentics <momentics@gmail.com>
//
// Runtime metrics for the reactor core. Counters are plain atomics
// updated from the owning loop; snapshots are value copies, so an
// external reporter polling the registry never blocks a loop.

package control

import "sync/atomic"

// WorkerMetrics holds the counters of one event-loop worker. Only the
// owning worker writes them.
type WorkerMetrics struct {
	ActiveConns  atomic.Int64
	BytesRead    atomic.Uint64
	BytesWritten atomic.Uint64
	FramesDone   atomic.Uint64
	ErrorCloses  atomic.Uint64
	PeerCloses   atomic.Uint64
}

// Snapshot is a point-in-time copy of one worker's counters.
type Snapshot struct {
	ActiveConns  int64
	BytesRead    uint64
	BytesWritten uint64
	FramesDone   uint64
	ErrorCloses  uint64
	PeerCloses   uint64
}

// Snapshot returns the current counter values.
func (m *WorkerMetrics) Snapshot() Snapshot {
	return Snapshot{
		ActiveConns:  m.ActiveConns.Load(),
		BytesRead:    m.BytesRead.Load(),
		BytesWritten: m.BytesWritten.Load(),
		FramesDone:   m.FramesDone.Load(),
		ErrorCloses:  m.ErrorCloses.Load(),
		PeerCloses:   m.PeerCloses.Load(),
	}
}

// Registry aggregates the per-worker metrics plus acceptor-side totals.
type Registry struct {
	Accepted atomic.Uint64
	workers  []*WorkerMetrics
}

// NewRegistry creates a registry for n workers.
func NewRegistry(n int) *Registry {
	r := &Registry{workers: make([]*WorkerMetrics, n)}
	for i := range r.workers {
		r.workers[i] = &WorkerMetrics{}
	}
	return r
}

// Worker returns the counter block of worker i.
func (r *Registry) Worker(i int) *WorkerMetrics {
	return r.workers[i]
}

// Workers returns the number of worker slots.
func (r *Registry) Workers() int {
	return len(r.workers)
}

// SnapshotAll returns one snapshot per worker, indexed by worker id.
func (r *Registry) SnapshotAll() []Snapshot {
	out := make([]Snapshot, len(r.workers))
	for i, w := range r.workers {
		out[i] = w.Snapshot()
	}
	return out
}
