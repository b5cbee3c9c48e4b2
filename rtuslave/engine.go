// Copyright (c) 2025 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

// Package rtuslave implements the slave half of a Modbus RTU engine: a
// single-frame-at-a-time state machine driven by a foreground Check
// poll plus asynchronous hardware callbacks. The engine never blocks
// and never logs. A frame that is too short or fails its CRC check is
// dropped and reported by Check as a Go error (ErrFrameTooShort,
// ErrBadCRC); every fault found in a well-framed request is reported
// on the wire as a Modbus exception, never as a Go error.
package rtuslave

import (
	"encoding/binary"

	"github.com/ffutop/modbus-rtu-engine/modbus"
	"github.com/ffutop/modbus-rtu-engine/modbus/crc"
)

// Init binds a Session to its station address and application
// callbacks. address must not be 0 (the broadcast address); values
// above 247 are not rejected. Standby, GetReg, SetReg, and
// SendAnswer must be non-nil. GetPacket/SetPacket are only required to
// serve the custom packet opcodes.
func Init(s *Session, address byte, lastReg uint16, cb Callbacks) error {
	if address == 0 {
		return ErrBadConfig
	}
	if cb.Standby == nil || cb.GetReg == nil || cb.SetReg == nil || cb.SendAnswer == nil {
		return ErrBadConfig
	}
	s.address = address
	s.lastReg = lastReg
	s.cb = cb
	s.setState(Standby)
	return nil
}

// Check is the poll entry point. It must be called repeatedly by a
// single foreground goroutine.
func Check(s *Session) error {
	switch s.State() {
	case Standby:
		if !s.compareAndSwapState(Standby, Receiving) {
			return nil
		}
		if err := s.cb.Standby(); err != nil {
			s.setState(Standby)
			return err
		}
		return nil

	case Received:
		return s.processFrame()

	default:
		return nil
	}
}

// processFrame validates and dispatches the frame sitting in
// s.message, assuming the caller has already confirmed state ==
// Received.
func (s *Session) processFrame() error {
	s.setState(Processing)

	length := s.messageLast + 1
	addr := s.message[0]
	if addr != s.address && addr != 0 {
		s.setState(Standby)
		return nil
	}
	s.broadcast = addr == 0

	if length < 4 {
		s.setState(Standby)
		return ErrFrameTooShort
	}

	body := s.message[:length-2]
	trailer := s.message[length-2 : length]
	if crc.Checksum(body) != binary.LittleEndian.Uint16(trailer) {
		s.setState(Standby)
		return ErrBadCRC
	}
	s.messageLast -= 2

	fn := s.message[1]
	switch fn {
	case modbus.FuncReadHoldingRegisters, modbus.FuncReadInputRegisters:
		s.handleReadRegs(fn)
	case modbus.FuncWriteMultipleRegs:
		s.handleWriteRegs(fn)
	case modbus.FuncDiagnostic:
		s.handleDiagnostic(fn)
	case modbus.FuncReadPacket:
		s.handleReadPacket(fn)
	case modbus.FuncWritePacket:
		s.handleWritePacket(fn)
	default:
		s.exception(fn, modbus.ExIllegalFunction)
	}

	return s.reply()
}

func (s *Session) handleReadRegs(fn byte) {
	if s.messageLast+1 != 6 {
		s.exception(fn, modbus.ExIllegalDataValue)
		return
	}
	start := binary.BigEndian.Uint16(s.message[2:])
	count := binary.BigEndian.Uint16(s.message[4:])

	if count < 1 || count > 125 {
		s.exception(fn, modbus.ExIllegalDataValue)
		return
	}
	if uint32(start)+uint32(count)-1 > uint32(s.lastReg) {
		s.exception(fn, modbus.ExIllegalDataAddress)
		return
	}

	s.message[0] = s.address
	s.message[1] = fn
	s.message[2] = byte(2 * count)
	n := 3
	for i := uint16(0); i < count; i++ {
		value, exc := s.cb.GetReg(start + i)
		if exc != 0 {
			s.exception(fn, exc)
			return
		}
		binary.BigEndian.PutUint16(s.message[n:], value)
		n += 2
	}
	s.messageLast = n - 1
}

func (s *Session) handleWriteRegs(fn byte) {
	if s.messageLast+1 < 7 {
		s.exception(fn, modbus.ExIllegalDataValue)
		return
	}
	start := binary.BigEndian.Uint16(s.message[2:])
	count := binary.BigEndian.Uint16(s.message[4:])
	byteCount := s.message[6]

	if count < 1 || count > 123 || byteCount != byte(2*count) || s.messageLast+1 != 7+int(2*count) {
		s.exception(fn, modbus.ExIllegalDataValue)
		return
	}
	if uint32(start)+uint32(count)-1 > uint32(s.lastReg) {
		s.exception(fn, modbus.ExIllegalDataAddress)
		return
	}

	for i := uint16(0); i < count; i++ {
		value := binary.BigEndian.Uint16(s.message[7+2*i:])
		if exc := s.cb.SetReg(start+i, value); exc != 0 {
			s.exception(fn, exc)
			return
		}
	}

	s.message[0] = s.address
	s.message[1] = fn
	binary.BigEndian.PutUint16(s.message[2:], start)
	binary.BigEndian.PutUint16(s.message[4:], count)
	s.messageLast = 5
}

func (s *Session) handleDiagnostic(fn byte) {
	if s.messageLast+1 != 4 || s.message[2] != 0 || s.message[3] != 0 {
		s.exception(fn, modbus.ExIllegalFunction)
		return
	}
	// Loopback: reply is the request unchanged (already sitting in
	// s.message with messageLast already pointing at its last byte).
}

func (s *Session) handleReadPacket(fn byte) {
	if s.cb.GetPacket == nil {
		s.exception(fn, modbus.ExIllegalFunction)
		return
	}
	if s.messageLast+1 != 2 {
		s.exception(fn, modbus.ExIllegalDataValue)
		return
	}

	n, exc := s.cb.GetPacket(s.message[3:])
	if exc != 0 {
		s.exception(fn, exc)
		return
	}
	if n > 251 {
		s.exception(fn, modbus.ExSlaveDeviceFailure)
		return
	}

	s.message[0] = s.address
	s.message[1] = fn
	s.message[2] = byte(n)
	s.messageLast = 2 + n
}

func (s *Session) handleWritePacket(fn byte) {
	if s.cb.SetPacket == nil {
		s.exception(fn, modbus.ExIllegalFunction)
		return
	}
	if s.messageLast+1 < 2 {
		s.exception(fn, modbus.ExIllegalDataValue)
		return
	}
	length := int(s.message[2])
	if s.messageLast+1 != length+3 {
		s.exception(fn, modbus.ExIllegalDataValue)
		return
	}

	if exc := s.cb.SetPacket(s.message[3 : 3+length]); exc != 0 {
		s.exception(fn, exc)
		return
	}

	s.message[0] = s.address
	s.message[1] = fn
	s.message[2] = byte(length)
	s.messageLast = 2
}

// exception overwrites the reply with a Modbus exception frame.
func (s *Session) exception(fn, code byte) {
	s.message[0] = s.address
	s.message[1] = modbus.WithException(fn)
	s.message[2] = code
	s.messageLast = 2
}

// reply appends CRC and transmits, unless the inbound frame was a
// broadcast, in which case the session returns straight to Standby
// without answering.
func (s *Session) reply() error {
	if s.broadcast {
		s.setState(Standby)
		return nil
	}

	body := s.message[:s.messageLast+1]
	v := crc.Checksum(body)
	s.message[s.messageLast+1] = byte(v)
	s.message[s.messageLast+2] = byte(v >> 8)
	s.messageLast += 2

	s.setState(Transmitting)
	if err := s.cb.SendAnswer(s.message[:s.messageLast+1]); err != nil {
		s.setState(Standby)
		return err
	}
	return nil
}

// OnRxDone is invoked by the driver once a frame has arrived. data is
// copied into the session's message buffer unless it already points
// at that buffer (the receive-in-place path via Session.RxBuffer).
func (s *Session) OnRxDone(data []byte) {
	if s.State() != Receiving {
		return
	}
	if len(data) < 1 || len(data) > maxADU {
		s.setState(Standby)
		return
	}
	if &data[0] != &s.message[0] {
		copy(s.message[:], data)
	}
	s.messageLast = len(data) - 1
	s.setState(Received)
}

// OnRxError is invoked by the driver when the receiver detects a
// framing fault while Receiving.
func (s *Session) OnRxError() {
	s.compareAndSwapState(Receiving, Standby)
}

// OnTxDone is invoked once the reply has left the wire.
func (s *Session) OnTxDone() {
	s.compareAndSwapState(Transmitting, Standby)
}
