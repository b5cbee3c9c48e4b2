// Copyright (c) 2014 Quoc-Viet Nguyen. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package crc

import (
	"testing"
)

func TestCRC(t *testing.T) {
	var c CRC
	c.Reset()
	c.PushBytes([]byte{0x02, 0x07})

	if c.Value() != 0x1241 {
		t.Fatalf("crc expected %v, actual %v", 0x1241, c.Value())
	}
}

func TestChecksumKnownFrame(t *testing.T) {
	// "Read 2 holding regs from slave 0x11 starting at 0x006B" request
	// header, CRC 0x47B7 transmitted low-then-high as B7 47.
	got := Checksum([]byte{0x11, 0x03, 0x00, 0x6B, 0x00, 0x02})
	if got != 0x47B7 {
		t.Fatalf("checksum = %#04x, want %#04x", got, 0x47B7)
	}
}

func TestPiecewiseMatchesOneShot(t *testing.T) {
	data := []byte{0x11, 0x03, 0x04, 0x00, 0x0A, 0x00, 0x0B}

	var whole CRC
	whole.Reset().PushBytes(data)

	var piecewise CRC
	piecewise.Reset().PushBytes(data[:3])
	piecewise.Reset(piecewise.Value()).PushBytes(data[3:])

	if whole.Value() != piecewise.Value() {
		t.Fatalf("piecewise crc %#04x != one-shot crc %#04x", piecewise.Value(), whole.Value())
	}
}

func TestRoundTrip(t *testing.T) {
	for length := 0; length < 254; length++ {
		data := make([]byte, length)
		for i := range data {
			data[i] = byte(i*31 + length)
		}

		var c CRC
		c.Reset().PushBytes(data)
		framed := c.AppendChecksum(append([]byte{}, data...))

		var verify CRC
		verify.Reset().PushBytes(framed[:len(framed)-2])
		want := verify.AppendChecksum(nil)
		got := framed[len(framed)-2:]
		if want[0] != got[0] || want[1] != got[1] {
			t.Fatalf("length %d: crc mismatch, frame trailer %v, recomputed %v", length, got, want)
		}

		// Flipping the last byte must break verification.
		framed[len(framed)-1] ^= 0xFF
		verify.Reset().PushBytes(framed[:len(framed)-2])
		broken := verify.AppendChecksum(nil)
		if broken[0] == framed[len(framed)-2] && broken[1] == framed[len(framed)-1] {
			t.Fatalf("length %d: corrupted crc unexpectedly verified", length)
		}
	}
}
