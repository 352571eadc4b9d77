// Copyright 2025 momentics@gmail.com
// Licensed under the Apache License, Version 2.0.

// options_test.go — configuration defaults and normalization.
package reactor

import (
	"runtime"
	"testing"
	"time"
)

// TestDefaultConfig_WorkersFollowGOMAXPROCS: the pool default must
// track the scheduler's usable CPU count (the value a container quota
// adjusts at startup), not the raw machine CPU count.
func TestDefaultConfig_WorkersFollowGOMAXPROCS(t *testing.T) {
	if got, want := DefaultConfig().Workers, runtime.GOMAXPROCS(0); got != want {
		t.Fatalf("default workers = %d, want GOMAXPROCS = %d", got, want)
	}
}

func TestConfig_NormalizeFillsZeroValues(t *testing.T) {
	cfg := &Config{}
	cfg.normalize()
	def := DefaultConfig()
	if cfg.Addr != def.Addr || cfg.Workers != def.Workers ||
		cfg.BufferSize != def.BufferSize || cfg.ShutdownGrace != def.ShutdownGrace {
		t.Fatalf("normalized config = %+v, want defaults %+v", cfg, def)
	}
}

// TestConfig_NormalizePendingBound: a reply to a maximum-size frame
// must always fit in the pending-write bound.
func TestConfig_NormalizePendingBound(t *testing.T) {
	cfg := &Config{BufferSize: 1 << 20, MaxPendingBytes: 1024, ShutdownGrace: time.Second}
	cfg.normalize()
	if cfg.MaxPendingBytes < cfg.BufferSize+16 {
		t.Fatalf("max pending = %d, below buffer size %d", cfg.MaxPendingBytes, cfg.BufferSize)
	}
}
