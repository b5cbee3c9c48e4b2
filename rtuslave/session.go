// Copyright (c) 2025 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package rtuslave

import "sync/atomic"

// maxADU is the largest RTU application data unit the session buffer
// can hold: 1 address + 253 data + 2 CRC, plus one guard byte so index
// math never needs a separate bounds branch.
const maxADU = 257

// StandbyFunc arms the UART receiver and must not block; the driver
// reports completion later via Session.OnRxDone/OnRxError.
type StandbyFunc func() error

// SendAnswerFunc transmits a reply and must not block; the driver
// reports completion later via Session.OnTxDone.
type SendAnswerFunc func(data []byte) error

// GetRegFunc reads one holding register. A non-zero exc aborts the
// in-progress reply with that Modbus exception code.
type GetRegFunc func(addr uint16) (value uint16, exc byte)

// SetRegFunc writes one holding register. A non-zero exc aborts the
// in-progress reply with that Modbus exception code.
type SetRegFunc func(addr uint16, value uint16) (exc byte)

// GetPacketFunc fills buf (backed by the session's own message buffer)
// with at most 251 bytes of custom packet payload and returns how many
// it wrote.
type GetPacketFunc func(buf []byte) (n int, exc byte)

// SetPacketFunc delivers a custom packet payload to the application.
type SetPacketFunc func(payload []byte) (exc byte)

// Callbacks gathers every application hook the slave engine may call
// while processing a frame. Standby, GetReg, SetReg, and SendAnswer
// are mandatory; GetPacket/SetPacket are only required to serve the
// optional custom packet opcodes 0x64/0x65 — when left nil those
// opcodes always answer ExIllegalFunction.
type Callbacks struct {
	Standby    StandbyFunc
	SendAnswer SendAnswerFunc
	GetReg     GetRegFunc
	SetReg     SetRegFunc
	GetPacket  GetPacketFunc
	SetPacket  SetPacketFunc
}

// Session carries the full state of one slave engine instance. More
// than one Session may be in use at the same time, each bound to its
// own driver and station address.
type Session struct {
	status atomic.Int32

	address byte
	lastReg uint16
	cb      Callbacks

	message     [maxADU]byte
	messageLast int

	broadcast bool
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
