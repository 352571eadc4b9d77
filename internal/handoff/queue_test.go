// Copyright 2025 momentics@gmail.com
// Licensed under the Apache License, Version 2.0.

// queue_test.go — FIFO contract and cross-thread stress for the
// acceptor→worker handoff queue.
package handoff

import (
	"runtime"
	"sync"
	"testing"
)

func TestQueue_FIFO(t *testing.T) {
	q := New()
	for fd := 0; fd < 10; fd++ {
		q.Push(Entry{FD: fd})
	}
	if q.Len() != 10 {
		t.Fatalf("len = %d, want 10", q.Len())
	}
	for fd := 0; fd < 10; fd++ {
		e, ok := q.Pop()
		if !ok || e.FD != fd {
			t.Fatalf("pop %d: got %v ok=%v", fd, e, ok)
		}
	}
	if _, ok := q.Pop(); ok {
		t.Fatal("queue should be empty")
	}
}

// TestQueue_ConcurrentNoLoss pushes from several goroutines while one
// consumer drains; every pushed entry must come out exactly once.
func TestQueue_ConcurrentNoLoss(t *testing.T) {
	q := New()
	const producers, items = 4, 1000
	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(base int) {
			defer wg.Done()
			for i := 0; i < items; i++ {
				q.Push(Entry{FD: base*items + i})
			}
		}(p)
	}
	got := make(map[int]struct{})
	drained := make(chan struct{})
	go func() {
		count := 0
		for count < producers*items {
			e, ok := q.Pop()
			if !ok {
				runtime.Gosched()
				continue
			}
			if _, dup := got[e.FD]; dup {
				t.Errorf("duplicate entry %d", e.FD)
			}
			got[e.FD] = struct{}{}
			count++
		}
		close(drained)
	}()
	wg.Wait()
	<-drained
	if len(got) != producers*items {
		t.Errorf("expected %d unique entries, got %d", producers*items, len(got))
	}
}
