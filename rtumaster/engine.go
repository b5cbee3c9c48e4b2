// Copyright (c) 2025 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

// Package rtumaster implements the master half of a Modbus RTU engine:
// a single in-flight-transaction state machine driven by a foreground
// Check poll plus asynchronous hardware callbacks. The engine never
// blocks and never retries; every send/receive callback is expected to
// hand off to a driver and return immediately.
package rtumaster

import (
	"encoding/binary"

	"github.com/ffutop/modbus-rtu-engine/modbus"
	"github.com/ffutop/modbus-rtu-engine/modbus/crc"
)

// Init binds a Session to its driver callbacks. Send and Recv must be
// non-nil or Init returns ErrBadConfig. Now defaults to
// time.Now().UnixMilli and RxTimeout defaults to DefaultRxTimeout when
// left zero.
func Init(s *Session, cfg Config) error {
	if cfg.Send == nil || cfg.Recv == nil {
		return ErrBadConfig
	}
	s.send = cfg.Send
	s.recv = cfg.Recv
	s.now = cfg.Now
	if s.now == nil {
		s.now = defaultNow
	}
	s.rxTimeout = cfg.RxTimeout
	if s.rxTimeout == 0 {
		s.rxTimeout = DefaultRxTimeout
	}
	s.setState(Standby)
	return nil
}

// ReadRegs issues a read-holding-registers (0x03) request for num
// registers starting at first, decoding the reply into buf once Check
// reports Processed. The session must be in Standby; num must be in
// [1,125] and len(buf) must equal int(num).
func ReadRegs(s *Session, slave byte, first, num uint16, buf []uint16) error {
	if num < 1 || num > 125 || len(buf) != int(num) {
		return ErrBadParam
	}
	if !s.compareAndSwapState(Standby, Transmitting) {
		return ErrBusy
	}

	s.slaveAddr = slave
	s.opCode = modbus.FuncReadHoldingRegisters
	s.firstReg = first
	s.numRegs = num
	s.regBuffer = buf

	s.encodeHeader(slave, modbus.FuncReadHoldingRegisters, first, num)

	return s.transmit()
}

// WriteRegs issues a write-multiple-registers (0x10) request, encoding
// values (big-endian) into the PDU. The session must be in Standby;
// num must be in [1,123] and len(values) must equal int(num).
func WriteRegs(s *Session, slave byte, first, num uint16, values []uint16) error {
	if num < 1 || num > 123 || len(values) != int(num) {
		return ErrBadParam
	}
	if !s.compareAndSwapState(Standby, Transmitting) {
		return ErrBusy
	}

	s.slaveAddr = slave
	s.opCode = modbus.FuncWriteMultipleRegs
	s.firstReg = first
	s.numRegs = num
	s.regBuffer = nil

	n := 2 // addr, fn
	s.message[0] = slave
	s.message[1] = modbus.FuncWriteMultipleRegs
	binary.BigEndian.PutUint16(s.message[n:], first)
	n += 2
	binary.BigEndian.PutUint16(s.message[n:], num)
	n += 2
	s.message[n] = byte(2 * num)
	n++
	for i := 0; i < int(num); i++ {
		binary.BigEndian.PutUint16(s.message[n:], values[i])
		n += 2
	}
	s.messageLast = n - 1
	s.appendCRC()

	return s.transmit()
}

// encodeHeader frames the fixed-size read request PDU
// [addr][fn][first-hi][first-lo][num-hi][num-lo] plus CRC.
func (s *Session) encodeHeader(slave, fn byte, first, num uint16) {
	s.message[0] = slave
	s.message[1] = fn
	binary.BigEndian.PutUint16(s.message[2:], first)
	binary.BigEndian.PutUint16(s.message[4:], num)
	s.messageLast = 5
	s.appendCRC()
}

func (s *Session) appendCRC() {
	body := s.message[:s.messageLast+1]
	v := crc.Checksum(body)
	s.message[s.messageLast+1] = byte(v)
	s.message[s.messageLast+2] = byte(v >> 8)
	s.messageLast += 2
}

// transmit hands the framed ADU to the driver. It assumes the caller
// has already put the session into Transmitting.
func (s *Session) transmit() error {
	if err := s.send(s.message[:s.messageLast+1]); err != nil {
		s.setState(HwError)
		return ErrHwError
	}
	return nil
}

// Check is the poll entry point. It must be called repeatedly by a
// single foreground goroutine; it is the only place a transaction
// outcome becomes observable and state decays back to Standby.
func Check(s *Session) (Outcome, bool) {
	switch s.State() {
	case Standby:
		return Outcome{State: Standby}, true

	case Transmitting:
		return Outcome{}, false

	case WaitingAnswer:
		if s.now()-s.rxStartTime.Load() > s.rxTimeout.Milliseconds() {
			s.setState(Standby)
			return Outcome{State: TimedOut}, true
		}
		return Outcome{}, false

	case Received:
		outcome := s.parseReply()
		s.setState(Standby)
		return outcome, true

	case Corrupted, HwError:
		state := s.State()
		s.setState(Standby)
		return Outcome{State: state}, true

	default:
		// Processing observed mid-parse by a racing poll call; cannot
		// happen under the single-poll-goroutine contract, handled
		// defensively.
		return Outcome{}, false
	}
}

// parseReply validates and decodes the frame sitting in s.message,
// assuming the caller has already confirmed state == Received.
func (s *Session) parseReply() Outcome {
	s.setState(Processing)

	length := s.messageLast + 1

	if length < 1 || s.message[0] != s.slaveAddr {
		return Outcome{State: Corrupted}
	}
	if length < 4 {
		return Outcome{State: Corrupted}
	}

	body := s.message[:length-2]
	trailer := s.message[length-2 : length]
	if crc.Checksum(body) != binary.LittleEndian.Uint16(trailer) {
		return Outcome{State: Corrupted}
	}
	s.messageLast -= 2
	length -= 2

	fn := s.message[1]
	if modbus.WithoutException(fn) != s.opCode {
		return Outcome{State: Corrupted}
	}

	if modbus.IsException(fn) {
		if length < 3 {
			return Outcome{State: Corrupted}
		}
		return Outcome{State: ErrReported, ExceptionCode: s.message[2]}
	}

	switch s.opCode {
	case modbus.FuncReadHoldingRegisters, modbus.FuncReadInputRegisters:
		byteCount := int(2 * s.numRegs)
		if length != 3+byteCount || int(s.message[2]) != byteCount {
			return Outcome{State: Corrupted}
		}
		for i := 0; i < int(s.numRegs); i++ {
			s.regBuffer[i] = binary.BigEndian.Uint16(s.message[3+2*i:])
		}
		return Outcome{State: Processed}

	case modbus.FuncWriteMultipleRegs:
		if length != 6 {
			return Outcome{State: Corrupted}
		}
		echoFirst := binary.BigEndian.Uint16(s.message[2:])
		echoNum := binary.BigEndian.Uint16(s.message[4:])
		if echoFirst != s.firstReg || echoNum != s.numRegs {
			return Outcome{State: Corrupted}
		}
		return Outcome{State: Processed}

	default:
		return Outcome{State: Corrupted}
	}
}

// OnTxDone is invoked by the driver once the request has left the
// wire. It may run from a hardware-callback context (e.g. an
// interrupt handler on an embedded target).
func (s *Session) OnTxDone() {
	if !s.compareAndSwapState(Transmitting, WaitingAnswer) {
		return
	}
	s.rxStartTime.Store(s.now())
	if err := s.recv(); err != nil {
		s.setState(HwError)
	}
}

// OnRxDone is invoked by the driver once a frame has arrived. data is
// copied into the session's message buffer unless it already points
// at that buffer (the receive-in-place path via Session.RxBuffer).
func (s *Session) OnRxDone(data []byte) {
	if s.State() != WaitingAnswer {
		return
	}
	if len(data) < 1 || len(data) > maxADU {
		s.setState(Corrupted)
		return
	}
	if &data[0] != &s.message[0] {
		copy(s.message[:], data)
	}
	s.messageLast = len(data) - 1
	s.setState(Received)
}

// OnRxError is invoked by the driver when the receiver detects a
// framing fault while WaitingAnswer.
func (s *Session) OnRxError() {
	s.compareAndSwapState(WaitingAnswer, Corrupted)
}
