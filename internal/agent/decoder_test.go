// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package agent

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func decodeAll(d *Decoder, chunks ...[]byte) string {
	var sb strings.Builder
	for _, c := range chunks {
		sb.WriteString(d.Decode(c))
	}
	return sb.String()
}

func TestDecoder_ASCII(t *testing.T) {
	var d Decoder
	assert.Equal(t, "Hello", d.Decode([]byte("Hello")))
	assert.Equal(t, 0, d.Pending())
}

func TestDecoder_SplitMultiByte(t *testing.T) {
	text := "héllo → 世界 🎉"
	raw := []byte(text)

	// Split at every possible byte offset
	for cut := 0; cut <= len(raw); cut++ {
		var d Decoder
		got := decodeAll(&d, raw[:cut], raw[cut:])
		assert.Equal(t, text, got, "cut at %d", cut)
		assert.Zero(t, d.Flush(), "cut at %d", cut)
	}
}

func TestDecoder_OneByteAtATime(t *testing.T) {
	text := "Grüße, 世界! 🎉🎉"
	var d Decoder
	var sb strings.Builder
	for _, b := range []byte(text) {
		out := d.Decode([]byte{b})
		assert.True(t, utf8.ValidString(out))
		sb.WriteString(out)
	}
	assert.Equal(t, text, sb.String())
}

func TestDecoder_HoldsIncompleteTail(t *testing.T) {
	var d Decoder
	euro := []byte("€") // e2 82 ac

	assert.Equal(t, "a", d.Decode([]byte{'a', euro[0]}))
	assert.Equal(t, 1, d.Pending())
	assert.Equal(t, "", d.Decode([]byte{euro[1]}))
	assert.Equal(t, 2, d.Pending())
	assert.Equal(t, "€b", d.Decode([]byte{euro[2], 'b'}))
	assert.Equal(t, 0, d.Pending())
}

func TestDecoder_DropsInvalidBytes(t *testing.T) {
	var d Decoder
	got := d.Decode([]byte{'o', 'k', 0xff, 0xfe, '!', 0x80})
	assert.Equal(t, "ok!", got)
	assert.Equal(t, 3, d.Dropped())
	assert.NotContains(t, got, "�")
}

func TestDecoder_BrokenContinuation(t *testing.T) {
	var d Decoder
	// Lead byte of a 3-byte sequence followed by ASCII: lead is dropped
	got := decodeAll(&d, []byte{0xe2}, []byte("x"))
	assert.Equal(t, "x", got)
	assert.Equal(t, 1, d.Dropped())
}

func TestDecoder_FlushDropsTail(t *testing.T) {
	var d Decoder
	emoji := []byte("🎉")
	assert.Equal(t, "hi", d.Decode(append([]byte("hi"), emoji[:3]...)))
	assert.Equal(t, 3, d.Flush())
	assert.Equal(t, 0, d.Pending())
	assert.Equal(t, "", d.Decode(nil))
}
