//go:build !linux

// File: internal/poller/poller_stub.go
// Author: momentics <momentics@gmail.com>
//
// Stub for platforms without an epoll-backed demultiplexer.

package poller

import (
	"errors"

	"github.com/momentics/hioload-reactor/api"
)

// ErrUnsupportedPlatform is returned on platforms without epoll support.
var ErrUnsupportedPlatform = errors.New("poller: unsupported platform")

// New is unavailable outside Linux.
func New() (api.Poller, error) {
	return nil, ErrUnsupportedPlatform
}
