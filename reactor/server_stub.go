//go:build !linux

// File: reactor/server_stub.go
// Author: momentics <momentics@gmail.com>
//
// Stub for platforms without epoll support.

package reactor

import (
	"errors"
	"net"

	"github.com/momentics/hioload-reactor/control"
)

// ErrShutdownTimeout reports loops still alive after the grace period.
var ErrShutdownTimeout = errors.New("reactor: shutdown grace period exceeded")

var errUnsupported = errors.New("reactor: unsupported platform")

// Server is unavailable outside Linux.
type Server struct{}

// New is unavailable outside Linux.
func New(cfg *Config, opts ...Option) (*Server, error) {
	return nil, errUnsupported
}

func (s *Server) Start() error                { return errUnsupported }
func (s *Server) Addr() net.Addr              { return nil }
func (s *Server) Metrics() []control.Snapshot { return nil }
func (s *Server) Accepted() uint64            { return 0 }
func (s *Server) Shutdown() error             { return errUnsupported }
func (s *Server) Wait()                       {}
