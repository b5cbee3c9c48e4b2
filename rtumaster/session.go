// Copyright (c) 2025 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package rtumaster

import (
	"sync/atomic"
	"time"
)

// DefaultRxTimeout is the default response window counted from the
// moment the receiver is armed.
const DefaultRxTimeout = 100 * time.Millisecond

// maxADU is the largest RTU application data unit the session buffer
// can hold: 1 address + 253 data + 2 CRC, plus one guard byte so index
// math never needs a separate bounds branch.
const maxADU = 257

// SendFunc transmits data over the UART and must not block on the
// reply; the driver reports completion later via Session.OnTxDone.
type SendFunc func(data []byte) error

// RecvFunc arms the UART receiver and must not block; the driver
// reports completion later via Session.OnRxDone/OnRxError.
type RecvFunc func() error

// TimeFunc returns the current time in milliseconds on a monotonic
// source usable from both the poll goroutine and the hardware
// callback context.
type TimeFunc func() int64

// Config carries everything Init needs to wire a Session to its
// driver.
type Config struct {
	Send SendFunc
	Recv RecvFunc

	// Now defaults to time.Now().UnixMilli when nil.
	Now TimeFunc
	// RxTimeout defaults to DefaultRxTimeout when zero.
	RxTimeout time.Duration
}

// Outcome is what Check reports once a transaction leaves Standby.
type Outcome struct {
	State State
	// ExceptionCode is only meaningful when State == ErrReported.
	ExceptionCode byte
}

// Session carries the full state of one master engine instance. More
// than one Session may be in use at the same time, each bound to its
// own driver.
type Session struct {
	status      atomic.Int32
	rxStartTime atomic.Int64

	send SendFunc
	recv RecvFunc
	now  TimeFunc

	rxTimeout time.Duration

	slaveAddr byte
	opCode    byte
	firstReg  uint16
	numRegs   uint16
	regBuffer []uint16

	message     [maxADU]byte
	messageLast int
}

func defaultNow() int64 {
	return time.Now().UnixMilli()
}

// State returns the session's current state.
func (s *Session) State() State {
	return State(s.status.Load())
}

// RxBuffer exposes the session's internal message buffer so a driver
// can read directly into it (the "receive-in-place" path, see
// OnRxDone) instead of reading into a scratch buffer and handing the
// bytes to OnRxDone for a copy.
func (s *Session) RxBuffer() []byte {
	return s.message[:]
}

func (s *Session) setState(state State) {
	s.status.Store(int32(state))
}

func (s *Session) compareAndSwapState(old, new State) bool {
	return s.status.CompareAndSwap(int32(old), int32(new))
}
