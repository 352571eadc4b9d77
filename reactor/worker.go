//go:build linux

// File: reactor/worker.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Event-loop worker (sub-reactor). Single-threaded cooperative
// multiplexing: the loop alternates between draining the handoff inbox
// and blocking on the demultiplexer; handlers for different connections
// only ever interleave, never run concurrently.

package reactor

import (
	"fmt"
	"log"

	"golang.org/x/sys/unix"

	"github.com/momentics/hioload-reactor/api"
	"github.com/momentics/hioload-reactor/buffer"
	"github.com/momentics/hioload-reactor/control"
	"github.com/momentics/hioload-reactor/internal/handoff"
	"github.com/momentics/hioload-reactor/internal/poller"
	"github.com/momentics/hioload-reactor/protocol"
)

// eventBatch bounds how many readiness events one Wait call returns.
const eventBatch = 128

// Worker owns one demultiplexer and the connections handed to it. All
// per-connection state is confined to the Run goroutine; Enqueue and
// Stop are the only cross-thread entry points.
type Worker struct {
	id         int
	poller     api.Poller
	inbox      *handoff.Queue
	conns      map[int]*conn
	pool       *buffer.Pool
	metrics    *control.WorkerMetrics
	maxPending int
	events     []api.Event
	onFatal    func(id int, err error)

	stopping chan struct{}
	done     chan struct{}
}

// newWorker builds a worker with its own demultiplexer.
func newWorker(id int, pool *buffer.Pool, maxPending int, metrics *control.WorkerMetrics, onFatal func(int, error)) (*Worker, error) {
	p, err := poller.New()
	if err != nil {
		return nil, fmt.Errorf("worker %d: %w", id, err)
	}
	return &Worker{
		id:         id,
		poller:     p,
		inbox:      handoff.New(),
		conns:      make(map[int]*conn),
		pool:       pool,
		metrics:    metrics,
		maxPending: maxPending,
		events:     make([]api.Event, eventBatch),
		onFatal:    onFatal,
		stopping:   make(chan struct{}),
		done:       make(chan struct{}),
	}, nil
}

// Enqueue hands a newly accepted connection to this worker. Called from
// the acceptor goroutine; the paired Wake guarantees the entry is
// drained even if the worker is blocked in Wait right now.
func (w *Worker) Enqueue(e handoff.Entry) {
	if w.stopped() {
		_ = unix.Close(e.FD)
		return
	}
	w.inbox.Push(e)
	if w.stopped() {
		// the loop stopped between the check and the push and may have
		// already drained its inbox for the last time; discard here so
		// the handle cannot leak
		w.discardInbox()
		return
	}
	if err := w.poller.Wake(); err != nil {
		log.Printf("[worker %d] wake: %v", w.id, err)
	}
}

// Stop asks the loop to close all connections and exit. Safe to call
// more than once and from any goroutine.
func (w *Worker) Stop() {
	select {
	case <-w.stopping:
	default:
		close(w.stopping)
	}
	_ = w.poller.Wake()
}

// Done is closed once the loop has exited and released its resources.
func (w *Worker) Done() <-chan struct{} {
	return w.done
}

func (w *Worker) stopped() bool {
	select {
	case <-w.stopping:
		return true
	default:
		return false
	}
}

// Run is the worker loop: drain inbox, wait for readiness, dispatch.
// It exits on Stop or on a demultiplexer-level error; either way every
// live connection is closed with the cancel-then-close ordering and the
// poller is released.
func (w *Worker) Run() {
	defer close(w.done)
	defer w.poller.Close()
	for {
		if w.stopped() {
			w.discardInbox()
			w.closeAll()
			return
		}
		if err := w.drainInbox(); err != nil {
			w.fail(err)
			return
		}
		n, err := w.poller.Wait(w.events)
		if err != nil {
			w.fail(err)
			return
		}
		for i := 0; i < n; i++ {
			ev := w.events[i]
			w.events[i] = api.Event{} // consume the slot; batches are not auto-cleared
			c, ok := w.conns[ev.FD]
			if !ok {
				// registration cancelled earlier in this same batch
				continue
			}
			if err := w.dispatch(c, ev.Type); err != nil {
				w.fail(err)
				return
			}
		}
	}
}

// fail handles demultiplexer-level errors: fatal to this worker, so it
// closes everything it owns and reports up for the server to stop.
func (w *Worker) fail(err error) {
	log.Printf("[worker %d] fatal: %v", w.id, err)
	select {
	case <-w.stopping:
	default:
		close(w.stopping) // refuse further handoffs
	}
	w.discardInbox()
	w.closeAll()
	if w.onFatal != nil {
		w.onFatal(w.id, err)
	}
}

// drainInbox registers every handed-off connection for read interest.
// A registration failure is a demultiplexer error and aborts the loop.
func (w *Worker) drainInbox() error {
	for {
		e, ok := w.inbox.Pop()
		if !ok {
			return nil
		}
		c := &conn{
			fd:       e.FD,
			in:       w.pool.Get(),
			state:    stateReading,
			interest: api.EventRead,
		}
		if err := w.poller.Add(e.FD, api.EventRead); err != nil {
			w.pool.Put(c.in)
			_ = unix.Close(e.FD)
			return fmt.Errorf("register fd=%d: %w", e.FD, err)
		}
		w.conns[e.FD] = c
		w.metrics.ActiveConns.Add(1)
	}
}

// discardInbox closes handles that were handed off but never
// registered. Only reached during shutdown or after a fatal error.
func (w *Worker) discardInbox() {
	for {
		e, ok := w.inbox.Pop()
		if !ok {
			return
		}
		_ = unix.Close(e.FD)
	}
}

// dispatch routes one readiness event. A panic while handling a single
// connection tears down only that connection; it never unwinds the
// loop.
func (w *Worker) dispatch(c *conn, t api.EventType) (err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[worker %d] panic on fd=%d: %v", w.id, c.fd, r)
			w.teardown(c, true)
		}
	}()
	if t&api.EventError != 0 {
		w.teardown(c, true)
		return nil
	}
	// Flush before reading: pending bytes must drain before this
	// connection accepts new frames.
	if t&api.EventWrite != 0 && c.state == stateWriting {
		if err := w.handleWrite(c); err != nil {
			return err
		}
	}
	if t&api.EventRead != 0 {
		switch c.state {
		case stateReading:
			return w.handleRead(c)
		case stateWriting:
			if t&api.EventWrite == 0 {
				// hangup while the read mask is off: peer vanished
				// mid-reply, the flush can never complete
				w.teardown(c, true)
			}
		}
	}
	return nil
}

// handleRead fills the cursor from the socket and extracts at most one
// complete frame. Partial frames stay buffered; reading pauses while a
// reply is in flight.
func (w *Worker) handleRead(c *conn) error {
	for c.state == stateReading {
		c.in.Compact()
		region := c.in.FillRegion()
		if len(region) > 0 {
			n, err := unix.Read(c.fd, region)
			if err == unix.EINTR {
				continue
			}
			if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
				return nil
			}
			if err != nil {
				w.teardown(c, true)
				return nil
			}
			if n == 0 {
				// peer-initiated close: normal, not an error
				c.state = stateClosing
				w.metrics.PeerCloses.Add(1)
				w.teardown(c, false)
				return nil
			}
			c.in.Advance(n)
			w.metrics.BytesRead.Add(uint64(n))
		}
		payload, ok, err := protocol.NextFrame(c.in)
		if err != nil {
			// oversized frame: protocol violation, close the connection
			log.Printf("[worker %d] fd=%d: %v", w.id, c.fd, err)
			w.teardown(c, true)
			return nil
		}
		if ok {
			return w.stageReply(c, payload)
		}
		// no complete frame yet; loop fills again until EAGAIN
	}
	return nil
}

// stageReply queues the echo for payload and switches the connection to
// write interest. Read interest stays off until the reply flushes.
func (w *Worker) stageReply(c *conn, payload []byte) error {
	if c.pendingBytes+protocol.ReplySize(len(payload)) > w.maxPending {
		w.teardown(c, true)
		return nil
	}
	reply := protocol.AppendEcho(make([]byte, 0, protocol.ReplySize(len(payload))), payload)
	c.pending = append(c.pending, reply)
	c.pendingBytes += len(reply)
	c.state = stateWriting
	w.metrics.FramesDone.Add(1)
	return w.setInterest(c, api.EventWrite)
}

// handleWrite flushes pending spans without blocking. A partial write
// leaves write interest registered; the next write-ready event resumes
// here. This is the backpressure path: a peer that never reads only
// stalls its own connection.
func (w *Worker) handleWrite(c *conn) error {
	for len(c.pending) > 0 {
		span := c.pending[0][c.pendingOff:]
		n, err := unix.Write(c.fd, span)
		if err == unix.EINTR {
			continue
		}
		if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
			return nil
		}
		if err != nil {
			w.teardown(c, true)
			return nil
		}
		w.metrics.BytesWritten.Add(uint64(n))
		c.pendingBytes -= n
		if n < len(span) {
			c.pendingOff += n
			return nil
		}
		c.pending = c.pending[1:]
		c.pendingOff = 0
	}
	c.pending = nil

	// Fully flushed. Serve any frame already sitting in the cursor
	// before resuming reads, so pipelined frames cannot stall.
	payload, ok, err := protocol.NextFrame(c.in)
	if err != nil {
		w.teardown(c, true)
		return nil
	}
	if ok {
		return w.stageReply(c, payload)
	}
	c.state = stateReading
	return w.setInterest(c, api.EventRead)
}

// setInterest updates the registered interest set of c.
func (w *Worker) setInterest(c *conn, interest api.EventType) error {
	if c.interest == interest {
		return nil
	}
	if err := w.poller.Mod(c.fd, interest); err != nil {
		return err
	}
	c.interest = interest
	return nil
}

// teardown releases a connection: buffers first, then the registration,
// then the handle. Closing the fd before cancelling its registration is
// the leak ordering this sequence exists to prevent.
func (w *Worker) teardown(c *conn, byError bool) {
	if c.state == stateClosed {
		return
	}
	w.pool.Put(c.in)
	c.in = nil
	c.pending = nil
	c.pendingBytes = 0
	if err := w.poller.Del(c.fd); err != nil {
		// close(2) below still removes the fd from the epoll set
		log.Printf("[worker %d] unregister fd=%d: %v", w.id, c.fd, err)
	}
	_ = unix.Close(c.fd)
	delete(w.conns, c.fd)
	c.state = stateClosed
	w.metrics.ActiveConns.Add(-1)
	if byError {
		w.metrics.ErrorCloses.Add(1)
	}
}

// closeAll tears down every live connection. Used on stop and on fatal
// errors.
func (w *Worker) closeAll() {
	for _, c := range w.conns {
		w.teardown(c, false)
	}
}
