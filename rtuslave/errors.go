// Copyright (c) 2025 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package rtuslave

import "errors"

var (
	// ErrBadConfig is returned by Init when the station address is 0
	// or a required callback is nil.
	ErrBadConfig = errors.New("rtuslave: bad station address or callback not configured")

	// ErrFrameTooShort is returned by Check when an inbound frame is
	// shorter than the minimum ADU (addr + fn + 2 CRC bytes).
	ErrFrameTooShort = errors.New("rtuslave: frame shorter than minimum ADU")
	// ErrBadCRC is returned by Check when an inbound frame's CRC
	// trailer does not match the computed checksum.
	ErrBadCRC = errors.New("rtuslave: crc mismatch")
)
