// File: reactor/options.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Server configuration and functional options.

package reactor

import (
	"runtime"
	"time"
)

// Config holds the process-level knobs of the server core.
type Config struct {
	// Addr is the TCP listen address, e.g. ":9100".
	Addr string
	// Workers is the event-loop pool size. Fixed for the lifetime of
	// the server.
	Workers int
	// BufferSize is the per-connection buffer capacity in bytes; it is
	// also the upper bound on a single frame.
	BufferSize int
	// MaxPendingBytes bounds staged-but-unflushed reply bytes per
	// connection. Exceeding it closes the connection.
	MaxPendingBytes int
	// ShutdownGrace bounds how long Shutdown waits for loops to exit.
	ShutdownGrace time.Duration
}

// DefaultConfig returns the defaults: one worker per usable CPU and a
// 64 KiB connection buffer. GOMAXPROCS(0) rather than NumCPU so that a
// container CPU quota applied at startup shrinks the pool accordingly.
func DefaultConfig() *Config {
	return &Config{
		Addr:            ":9100",
		Workers:         runtime.GOMAXPROCS(0),
		BufferSize:      64 << 10,
		MaxPendingBytes: 256 << 10,
		ShutdownGrace:   5 * time.Second,
	}
}

// Option customizes server initialization.
type Option func(*Config)

// WithAddr overrides the listen address.
func WithAddr(addr string) Option {
	return func(c *Config) { c.Addr = addr }
}

// WithWorkers sets the event-loop pool size.
func WithWorkers(n int) Option {
	return func(c *Config) { c.Workers = n }
}

// WithBufferSize sets the per-connection buffer capacity.
func WithBufferSize(n int) Option {
	return func(c *Config) { c.BufferSize = n }
}

// WithMaxPendingBytes bounds per-connection staged reply bytes.
func WithMaxPendingBytes(n int) Option {
	return func(c *Config) { c.MaxPendingBytes = n }
}

// WithShutdownGrace sets the shutdown grace period.
func WithShutdownGrace(d time.Duration) Option {
	return func(c *Config) { c.ShutdownGrace = d }
}

func (c *Config) normalize() {
	def := DefaultConfig()
	if c.Addr == "" {
		c.Addr = def.Addr
	}
	if c.Workers <= 0 {
		c.Workers = def.Workers
	}
	if c.BufferSize <= 0 {
		c.BufferSize = def.BufferSize
	}
	if c.MaxPendingBytes <= 0 {
		c.MaxPendingBytes = def.MaxPendingBytes
	}
	if c.MaxPendingBytes < c.BufferSize+16 {
		// a reply to a max-size frame must always fit
		c.MaxPendingBytes = c.BufferSize + 16
	}
	if c.ShutdownGrace <= 0 {
		c.ShutdownGrace = def.ShutdownGrace
	}
}
