// Copyright 2025 momentics@gmail.com
// Licensed under the Apache License, Version 2.0.

// echo_test.go — newline framing extraction and reply building.
package protocol

import (
	"errors"
	"testing"

	"github.com/momentics/hioload-reactor/buffer"
)

func fill(t *testing.T, c *buffer.Cursor, s string) {
	t.Helper()
	c.Compact()
	region := c.FillRegion()
	if len(region) < len(s) {
		t.Fatalf("fill region too small: %d < %d", len(region), len(s))
	}
	copy(region, s)
	c.Advance(len(s))
}

func TestNextFrame_Complete(t *testing.T) {
	c := buffer.NewCursor(64)
	fill(t, c, "hello\n")
	payload, ok, err := NextFrame(c)
	if err != nil || !ok {
		t.Fatalf("ok=%v err=%v", ok, err)
	}
	if string(payload) != "hello" {
		t.Fatalf("payload = %q", payload)
	}
	if _, ok, _ := NextFrame(c); ok {
		t.Fatal("no second frame expected")
	}
}

// TestNextFrame_SplitAcrossFills simulates slow-network delivery: frame
// bytes arriving in several separate fills must produce exactly one
// frame with nothing dropped or duplicated.
func TestNextFrame_SplitAcrossFills(t *testing.T) {
	c := buffer.NewCursor(64)
	for _, chunk := range []string{"hel", "lo wor"} {
		fill(t, c, chunk)
		if _, ok, err := NextFrame(c); ok || err != nil {
			t.Fatalf("premature frame after %q: ok=%v err=%v", chunk, ok, err)
		}
	}
	fill(t, c, "ld\n")
	payload, ok, err := NextFrame(c)
	if err != nil || !ok {
		t.Fatalf("ok=%v err=%v", ok, err)
	}
	if string(payload) != "hello world" {
		t.Fatalf("payload = %q", payload)
	}
}

func TestNextFrame_MultipleBuffered(t *testing.T) {
	c := buffer.NewCursor(64)
	fill(t, c, "a\nbb\nccc\n")
	want := []string{"a", "bb", "ccc"}
	for _, w := range want {
		payload, ok, err := NextFrame(c)
		if err != nil || !ok {
			t.Fatalf("frame %q: ok=%v err=%v", w, ok, err)
		}
		if string(payload) != w {
			t.Fatalf("payload = %q, want %q", payload, w)
		}
	}
	if _, ok, _ := NextFrame(c); ok {
		t.Fatal("unexpected extra frame")
	}
}

func TestNextFrame_Oversized(t *testing.T) {
	c := buffer.NewCursor(8)
	fill(t, c, "12345678") // full, no delimiter
	_, ok, err := NextFrame(c)
	if ok {
		t.Fatal("no frame should be extracted")
	}
	if !errors.Is(err, ErrFrameTooLarge) {
		t.Fatalf("err = %v, want ErrFrameTooLarge", err)
	}
}

func TestAppendEcho(t *testing.T) {
	got := AppendEcho(nil, []byte("ping"))
	if string(got) != "ECHO: ping\n" {
		t.Fatalf("reply = %q", got)
	}
	if len(got) != ReplySize(4) {
		t.Fatalf("ReplySize(4) = %d, reply is %d bytes", ReplySize(4), len(got))
	}
}

func TestAppendEcho_EmptyPayload(t *testing.T) {
	if got := AppendEcho(nil, nil); string(got) != "ECHO: \n" {
		t.Fatalf("reply = %q", got)
	}
}
