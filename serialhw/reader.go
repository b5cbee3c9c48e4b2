// Copyright (c) 2025 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package serialhw

import (
	"errors"
	"io"
	"time"
)

// ErrTimeout is returned by readFrame when no byte arrives before the
// overall deadline and no partial frame has started.
var ErrTimeout = errors.New("serialhw: read timed out")

// deadlineReader is implemented by net.Conn and by real serial ports
// that support per-call read deadlines; readFrame uses it, when
// available, to turn the inter-character silence gap into a read
// timeout instead of a busy-poll.
type deadlineReader interface {
	SetReadDeadline(t time.Time) error
}

// readFrame reads one RTU frame from r, delimited by silence rather
// than a known length: once at least one byte has arrived, a read
// that yields nothing before the inter-character gap elapses is
// treated as the end of the frame. Gap delimiting handles every
// function code uniformly, including the variable-length custom
// packet opcodes, without a per-opcode expected-length table.
func readFrame(r io.Reader, maxLen int, overallDeadline time.Time, gap time.Duration) ([]byte, error) {
	dr, hasDeadline := r.(deadlineReader)

	buf := make([]byte, maxLen)
	one := make([]byte, 1)
	n := 0

	for {
		if time.Now().After(overallDeadline) {
			if n > 0 {
				return buf[:n], nil
			}
			return nil, ErrTimeout
		}

		if hasDeadline {
			next := time.Now().Add(gap)
			if next.After(overallDeadline) {
				next = overallDeadline
			}
			dr.SetReadDeadline(next)
		}

		nr, err := r.Read(one)
		if nr == 1 {
			buf[n] = one[0]
			n++
			if n == maxLen {
				return buf[:n], nil
			}
			continue
		}
		if err != nil {
			if n > 0 {
				// The gap elapsed with no further byte: the line has
				// gone quiet, frame done.
				return buf[:n], nil
			}
			if errors.Is(err, io.EOF) {
				return nil, err
			}
			// Timed out waiting for the first byte of a frame; keep
			// polling until the overall deadline.
			continue
		}
	}
}
