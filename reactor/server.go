//go:build linux

// File: reactor/server.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Server composes one acceptor and a fixed pool of event-loop workers
// and owns startup/shutdown sequencing.

package reactor

import (
	"errors"
	"fmt"
	"log"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sys/unix"

	"github.com/momentics/hioload-reactor/buffer"
	"github.com/momentics/hioload-reactor/control"
)

// ErrShutdownTimeout reports loops still alive after the grace period.
var ErrShutdownTimeout = errors.New("reactor: shutdown grace period exceeded")

// Server is the multi-reactor server core.
type Server struct {
	cfg      *Config
	registry *control.Registry
	pool     *buffer.Pool
	workers  []*Worker
	acceptor *Acceptor

	started      atomic.Bool
	shutdownOnce sync.Once
	shutdownErr  error
	closed       chan struct{}
}

// New builds the server: listening socket first, then the worker pool.
// Loops do not run until Start.
func New(cfg *Config, opts ...Option) (*Server, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	} else {
		c := *cfg
		cfg = &c
	}
	for _, o := range opts {
		o(cfg)
	}
	cfg.normalize()

	s := &Server{
		cfg:      cfg,
		registry: control.NewRegistry(cfg.Workers),
		pool:     buffer.NewPool(cfg.BufferSize),
		closed:   make(chan struct{}),
	}

	s.workers = make([]*Worker, cfg.Workers)
	for i := range s.workers {
		w, err := newWorker(i, s.pool, cfg.MaxPendingBytes, s.registry.Worker(i), s.onWorkerFatal)
		if err != nil {
			s.releaseIdle(i)
			return nil, err
		}
		s.workers[i] = w
	}

	a, err := newAcceptor(cfg.Addr, s.workers, s.registry)
	if err != nil {
		s.releaseIdle(len(s.workers))
		return nil, fmt.Errorf("acceptor: %w", err)
	}
	s.acceptor = a
	return s, nil
}

// releaseIdle closes pollers of workers that were built but never run.
func (s *Server) releaseIdle(n int) {
	for i := 0; i < n; i++ {
		_ = s.workers[i].poller.Close()
	}
}

// Start launches the worker loops and then the accept loop.
func (s *Server) Start() error {
	if !s.started.CompareAndSwap(false, true) {
		return errors.New("reactor: server already started")
	}
	for _, w := range s.workers {
		go w.Run()
	}
	go s.acceptor.Run()
	return nil
}

// Addr returns the bound listening address.
func (s *Server) Addr() net.Addr {
	return s.acceptor.Addr()
}

// Metrics returns a point-in-time snapshot per worker.
func (s *Server) Metrics() []control.Snapshot {
	return s.registry.SnapshotAll()
}

// Accepted returns the total number of accepted connections.
func (s *Server) Accepted() uint64 {
	return s.registry.Accepted.Load()
}

// onWorkerFatal is invoked from a dying worker goroutine; the rest of
// the server must not keep running with that worker's connections gone.
func (s *Server) onWorkerFatal(id int, err error) {
	log.Printf("[server] worker %d died: %v; shutting down", id, err)
	go s.Shutdown()
}

// Shutdown stops accepting, then wakes and drains every worker, closing
// all live connections. Idempotent: every call returns the result of
// the first. Safe to call while connections are mid-flight.
func (s *Server) Shutdown() error {
	s.shutdownOnce.Do(func() {
		defer close(s.closed)
		deadline := time.Now().Add(s.cfg.ShutdownGrace)

		s.acceptor.Stop()
		if !s.started.Load() {
			// loops never ran: release their demultiplexers directly
			_ = s.acceptor.poller.Close()
			_ = unix.Close(s.acceptor.lfd)
			s.releaseIdle(len(s.workers))
			return
		}
		if !awaitClosed(s.acceptor.Done(), deadline) {
			s.shutdownErr = ErrShutdownTimeout
		}
		// workers stop only once the acceptor can no longer hand off
		for _, w := range s.workers {
			w.Stop()
		}
		for _, w := range s.workers {
			if !awaitClosed(w.Done(), deadline) {
				s.shutdownErr = ErrShutdownTimeout
			}
		}
	})
	return s.shutdownErr
}

// Wait blocks until shutdown has completed.
func (s *Server) Wait() {
	<-s.closed
}

func awaitClosed(ch <-chan struct{}, deadline time.Time) bool {
	select {
	case <-ch:
		return true
	case <-time.After(time.Until(deadline)):
		return false
	}
}
