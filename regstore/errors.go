// Copyright (c) 2025 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package regstore

import "errors"

var (
	// ErrStorageTooSmall is returned by New when a Storage's loaded
	// Snapshot doesn't cover the configured register range.
	ErrStorageTooSmall = errors.New("regstore: storage too small for configured register range")

	// ErrBadLayout is returned by decodeSnapshot when the buffer it is
	// given is not exactly the size of the on-disk layout.
	ErrBadLayout = errors.New("regstore: file size does not match expected layout")
)
