// Copyright (c) 2025 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package rtumaster

import "errors"

var (
	// ErrBadConfig is returned by Init when Send or Recv is nil.
	ErrBadConfig = errors.New("rtumaster: send/recv callback not configured")
	// ErrBusy is returned by ReadRegs/WriteRegs when the session is not
	// in Standby.
	ErrBusy = errors.New("rtumaster: session busy")
	// ErrBadParam is returned by ReadRegs/WriteRegs when the register
	// count is out of range or the buffer length does not match it.
	ErrBadParam = errors.New("rtumaster: bad parameter")
	// ErrHwError is returned by ReadRegs/WriteRegs when the driver's
	// Send callback reports failure.
	ErrHwError = errors.New("rtumaster: hardware send failed")
)
