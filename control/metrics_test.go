// Copyright 2025 momentics@gmail.com
// Licensed under the Apache License, Version 2.0.

// metrics_test.go — snapshot consistency of the metrics registry.
package control

import (
	"sync"
	"testing"
)

func TestRegistry_Snapshot(t *testing.T) {
	r := NewRegistry(3)
	if r.Workers() != 3 {
		t.Fatalf("workers = %d, want 3", r.Workers())
	}
	m := r.Worker(1)
	m.ActiveConns.Add(2)
	m.BytesRead.Add(100)
	m.FramesDone.Add(7)

	snaps := r.SnapshotAll()
	if len(snaps) != 3 {
		t.Fatalf("snapshots = %d, want 3", len(snaps))
	}
	if snaps[1].ActiveConns != 2 || snaps[1].BytesRead != 100 || snaps[1].FramesDone != 7 {
		t.Fatalf("snapshot[1] = %+v", snaps[1])
	}
	if snaps[0] != (Snapshot{}) || snaps[2] != (Snapshot{}) {
		t.Fatalf("untouched workers not zero: %+v", snaps)
	}

	// snapshots are copies: later increments must not alter them
	m.FramesDone.Add(1)
	if snaps[1].FramesDone != 7 {
		t.Fatal("snapshot mutated after the fact")
	}
}

// TestRegistry_ConcurrentReaders: pollers must be able to snapshot
// while the owning loop keeps counting.
func TestRegistry_ConcurrentReaders(t *testing.T) {
	r := NewRegistry(1)
	m := r.Worker(0)
	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
				m.BytesWritten.Add(1)
			}
		}
	}()
	for i := 0; i < 1000; i++ {
		_ = r.SnapshotAll()
	}
	close(stop)
	wg.Wait()
	if got := r.Worker(0).Snapshot().BytesWritten; got == 0 {
		t.Fatal("writer made no progress")
	}
}
