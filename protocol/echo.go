// File: protocol/echo.go
// Package protocol implements the newline-delimited echo framing with
// frame size enforcement.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// A frame is a run of UTF-8 bytes terminated by '\n'. Each received
// frame <payload> produces the reply "ECHO: <payload>\n". A buffer full
// of bytes with no delimiter is a protocol violation: the limit
// protects against a peer streaming an unbounded frame.

package protocol

import (
	"bytes"
	"errors"

	"github.com/momentics/hioload-reactor/buffer"
)

// Delimiter terminates every frame on the wire.
const Delimiter = '\n'

// echoPrefix starts every reply frame.
var echoPrefix = []byte("ECHO: ")

// ErrFrameTooLarge reports a frame exceeding the connection's buffer
// capacity without a delimiter. The connection must be closed.
var ErrFrameTooLarge = errors.New("protocol: frame exceeds buffer capacity")

// NextFrame extracts one complete frame from the cursor's unread span.
// The returned payload excludes the delimiter and aliases the cursor
// region: copy it before the next fill. ok is false when no complete
// frame is buffered yet; partial bytes stay in the cursor untouched.
func NextFrame(c *buffer.Cursor) (payload []byte, ok bool, err error) {
	unread := c.Unread()
	if i := bytes.IndexByte(unread, Delimiter); i >= 0 {
		c.Consume(i + 1)
		return unread[:i], true, nil
	}
	if c.Full() {
		return nil, false, ErrFrameTooLarge
	}
	return nil, false, nil
}

// AppendEcho appends the reply frame for payload to dst and returns the
// extended slice.
func AppendEcho(dst, payload []byte) []byte {
	dst = append(dst, echoPrefix...)
	dst = append(dst, payload...)
	return append(dst, Delimiter)
}

// ReplySize returns the encoded size of the reply for a payload of n
// bytes. Used to bound pending-write growth before staging.
func ReplySize(n int) int {
	return len(echoPrefix) + n + 1
}
