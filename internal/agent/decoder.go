// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package agent

import (
	"strings"
	"unicode/utf8"
)

// Decoder turns a sequence of byte chunks into valid UTF-8 text.
//
// A multi-byte character split across two chunks is held back until the
// chunk completing it arrives. Bytes that can never form a valid character
// are dropped so they never reach the screen.
type Decoder struct {
	pending []byte
	dropped int
}

// Decode returns the text that is complete after appending p.
func (d *Decoder) Decode(p []byte) string {
	buf := p
	if len(d.pending) > 0 {
		buf = make([]byte, 0, len(d.pending)+len(p))
		buf = append(buf, d.pending...)
		buf = append(buf, p...)
	}

	var out strings.Builder
	out.Grow(len(buf))

	i := 0
	for i < len(buf) {
		c := buf[i]
		if c < utf8.RuneSelf {
			out.WriteByte(c)
			i++
			continue
		}
		if !utf8.FullRune(buf[i:]) {
			// Valid prefix of a longer sequence; wait for more bytes
			break
		}
		r, size := utf8.DecodeRune(buf[i:])
		if r == utf8.RuneError && size == 1 {
			d.dropped++
			i++
			continue
		}
		out.Write(buf[i : i+size])
		i += size
	}

	d.pending = append(d.pending[:0:0], buf[i:]...)
	return out.String()
}

// Flush discards any incomplete trailing sequence at end of stream and
// reports how many bytes were held back.
func (d *Decoder) Flush() int {
	n := len(d.pending)
	d.dropped += n
	d.pending = nil
	return n
}

// Pending returns the number of bytes waiting for completion.
func (d *Decoder) Pending() int {
	return len(d.pending)
}

// Dropped returns the total number of invalid bytes discarded so far.
func (d *Decoder) Dropped() int {
	return d.dropped
}
