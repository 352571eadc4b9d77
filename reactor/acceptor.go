//go:build linux

// File: reactor/acceptor.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Acceptor (boss). Owns the listening socket and its own demultiplexer;
// performs no connection I/O. Each accepted handle is made non-blocking
// and handed to a worker picked by round-robin.

package reactor

import (
	"fmt"
	"log"
	"net"
	"sync/atomic"

	"golang.org/x/sys/unix"

	"github.com/momentics/hioload-reactor/api"
	"github.com/momentics/hioload-reactor/control"
	"github.com/momentics/hioload-reactor/internal/handoff"
	"github.com/momentics/hioload-reactor/internal/poller"
)

const listenBacklog = 1024

// Acceptor accepts inbound connections and distributes them across the
// worker pool.
type Acceptor struct {
	poller   api.Poller
	lfd      int
	addr     *net.TCPAddr
	workers  []*Worker
	next     atomic.Uint64
	registry *control.Registry

	stopping chan struct{}
	done     chan struct{}
}

// newAcceptor opens the listening socket and its demultiplexer.
func newAcceptor(addr string, workers []*Worker, registry *control.Registry) (*Acceptor, error) {
	lfd, bound, err := listenTCP(addr)
	if err != nil {
		return nil, err
	}
	p, err := poller.New()
	if err != nil {
		unix.Close(lfd)
		return nil, err
	}
	if err := p.Add(lfd, api.EventRead); err != nil {
		p.Close()
		unix.Close(lfd)
		return nil, err
	}
	return &Acceptor{
		poller:   p,
		lfd:      lfd,
		addr:     bound,
		workers:  workers,
		registry: registry,
		stopping: make(chan struct{}),
		done:     make(chan struct{}),
	}, nil
}

// listenTCP opens a non-blocking listening socket bound to addr and
// returns the fd plus the actually bound address (port 0 resolves).
func listenTCP(addr string) (int, *net.TCPAddr, error) {
	taddr, err := net.ResolveTCPAddr("tcp", addr)
	if err != nil {
		return -1, nil, fmt.Errorf("resolve %q: %w", addr, err)
	}
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, unix.IPPROTO_TCP)
	if err != nil {
		return -1, nil, fmt.Errorf("socket create: %w", err)
	}
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		unix.Close(fd)
		return -1, nil, fmt.Errorf("setsockopt SO_REUSEADDR: %w", err)
	}
	sa := &unix.SockaddrInet4{Port: taddr.Port}
	if ip4 := taddr.IP.To4(); ip4 != nil {
		copy(sa.Addr[:], ip4)
	}
	if err := unix.Bind(fd, sa); err != nil {
		unix.Close(fd)
		return -1, nil, fmt.Errorf("bind %q: %w", addr, err)
	}
	if err := unix.Listen(fd, listenBacklog); err != nil {
		unix.Close(fd)
		return -1, nil, fmt.Errorf("listen %q: %w", addr, err)
	}
	bsa, err := unix.Getsockname(fd)
	if err != nil {
		unix.Close(fd)
		return -1, nil, fmt.Errorf("getsockname: %w", err)
	}
	bound := &net.TCPAddr{IP: taddr.IP}
	if in4, ok := bsa.(*unix.SockaddrInet4); ok {
		bound.IP = net.IP(in4.Addr[:])
		bound.Port = in4.Port
	}
	return fd, bound, nil
}

// Addr returns the bound listening address.
func (a *Acceptor) Addr() *net.TCPAddr {
	return a.addr
}

// Stop asks the accept loop to exit. Idempotent.
func (a *Acceptor) Stop() {
	select {
	case <-a.stopping:
	default:
		close(a.stopping)
	}
	_ = a.poller.Wake()
}

// Done is closed once the loop exited and the listening socket closed.
func (a *Acceptor) Done() <-chan struct{} {
	return a.done
}

func (a *Acceptor) stopped() bool {
	select {
	case <-a.stopping:
		return true
	default:
		return false
	}
}

// Run blocks on accept readiness and drains every pending connection
// per wakeup. Per-handle errors never terminate the loop; only Stop or
// a demultiplexer failure does.
func (a *Acceptor) Run() {
	defer close(a.done)
	defer unix.Close(a.lfd)
	defer a.poller.Close()
	events := make([]api.Event, 4)
	for {
		if a.stopped() {
			return
		}
		n, err := a.poller.Wait(events)
		if err != nil {
			log.Printf("[acceptor] wait: %v", err)
			return
		}
		for i := 0; i < n; i++ {
			if events[i].FD == a.lfd {
				a.acceptPending()
			}
			events[i] = api.Event{}
		}
	}
}

// acceptPending accepts until the backlog is empty. One readiness
// notification can cover several queued connections.
func (a *Acceptor) acceptPending() {
	for {
		fd, _, err := unix.Accept4(a.lfd, unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC)
		if err == unix.EINTR {
			continue
		}
		if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
			return
		}
		if err != nil {
			// transient per-handle failure; keep accepting
			log.Printf("[acceptor] accept: %v", err)
			return
		}
		if err := unix.SetsockoptInt(fd, unix.IPPROTO_TCP, unix.TCP_NODELAY, 1); err != nil {
			log.Printf("[acceptor] setsockopt fd=%d: %v", fd, err)
		}
		a.registry.Accepted.Add(1)
		a.pick().Enqueue(handoff.Entry{FD: fd})
	}
}

// pick selects the next worker by round-robin. The counter is a uint64
// taken modulo the pool size; at wraparound the sequence restarts from
// worker 0, which keeps the per-worker imbalance within one connection.
func (a *Acceptor) pick() *Worker {
	idx := a.next.Add(1) - 1
	return a.workers[idx%uint64(len(a.workers))]
}
