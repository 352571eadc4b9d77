// File: buffer/cursor.go
// Package buffer provides the fill/drain cursor every connection uses
// for both directions of I/O.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package buffer

// Cursor is a fill/drain cursor pair over a fixed-capacity byte region.
// Fill appends bytes after the write position; drain consumes from the
// read position. Invariant: 0 <= read <= write <= capacity. Unread
// bytes from a partial frame survive both mode switches and compaction.
type Cursor struct {
	buf []byte
	r   int // next unread byte
	w   int // next byte to fill
}

// NewCursor allocates a cursor over a region of the given capacity.
func NewCursor(capacity int) *Cursor {
	return &Cursor{buf: make([]byte, capacity)}
}

// FillRegion returns the writable tail of the region. Call Advance with
// the number of bytes actually filled.
func (c *Cursor) FillRegion() []byte {
	return c.buf[c.w:]
}

// Advance marks n freshly filled bytes as valid unread data.
func (c *Cursor) Advance(n int) {
	c.w += n
}

// Unread returns the valid, not-yet-consumed bytes. The slice aliases
// the region and is invalidated by the next Advance or Compact.
func (c *Cursor) Unread() []byte {
	return c.buf[c.r:c.w]
}

// Consume drops n bytes from the front of the unread span. When the
// span empties both cursors rewind so the next fill starts at zero.
func (c *Cursor) Consume(n int) {
	c.r += n
	if c.r >= c.w {
		c.r, c.w = 0, 0
	}
}

// Compact moves unread bytes to the front of the region, reclaiming the
// space of already consumed bytes for the next fill.
func (c *Cursor) Compact() {
	if c.r == 0 {
		return
	}
	n := copy(c.buf, c.buf[c.r:c.w])
	c.r, c.w = 0, n
}

// Full reports whether the region holds unread data up to capacity with
// no reclaimable space left. A full cursor with no frame delimiter in
// it means the peer sent an oversized frame.
func (c *Cursor) Full() bool {
	return c.r == 0 && c.w == len(c.buf)
}

// Len returns the number of unread bytes.
func (c *Cursor) Len() int {
	return c.w - c.r
}

// Cap returns the region capacity.
func (c *Cursor) Cap() int {
	return len(c.buf)
}

// Reset discards all data and rewinds both cursors.
func (c *Cursor) Reset() {
	c.r, c.w = 0, 0
}
