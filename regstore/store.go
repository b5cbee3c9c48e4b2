// Copyright (c) 2025 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

// Package regstore is the slave-side application data model: a flat
// holding-register table plus a custom packet payload, reachable
// through the exact function signatures rtuslave.Callbacks expects.
// Only the two tables this engine serves exist here; coils and
// discrete inputs belong to the full Modbus object model, which this
// RTU engine does not expose.
package regstore

import (
	"sync"

	"github.com/ffutop/modbus-rtu-engine/modbus"
)

// MaxRegisters bounds the register address space the backing storage
// lays out on disk, independent of the lastReg a particular Store is
// configured to expose. Keeping it fixed means a persisted file's
// layout never has to migrate when lastReg changes.
const MaxRegisters = 65536

// MaxPacket is the largest custom packet payload SetPacket/GetPacket
// can carry: the 256-byte maximum RTU ADU less the address, function
// and length bytes (rtuslave's s.message[0..2]) and the 2-byte CRC.
const MaxPacket = 251

// TableType identifies which region of a Snapshot an OnWrite call
// touched, so a Storage implementation can flush only what changed.
type TableType int

const (
	TableHolding TableType = iota
	TablePacket
)

// Snapshot is the in-memory register/packet state a Storage loads and
// saves. When a Storage implementation backs Snapshot's slices with
// its own persistent memory (a memory-mapped file, say), writes a
// Store makes through Registers/Packet land directly in that memory
// with no extra copy.
type Snapshot struct {
	Registers []uint16
	Packet    []byte
}

// Storage is the persistence boundary a Store is built on. Load
// supplies (and may own) the backing slices; OnWrite is called after
// every successful register or packet write so the implementation can
// flush, sync, or otherwise notice the change.
type Storage interface {
	Load() (*Snapshot, error)
	OnWrite(table TableType, address, quantity uint16)
	Close() error
}

// Store implements rtuslave.Callbacks's GetReg/SetReg/GetPacket/SetPacket
// surface over a Snapshot, guarding every access with a single mutex.
// A poll loop calling rtuslave.Check and an application goroutine
// reading register values through some other path (a status endpoint,
// say) may safely share one Store.
type Store struct {
	mu      sync.RWMutex
	lastReg uint16
	snap    *Snapshot
	storage Storage
}

// New loads storage and returns a Store exposing registers [0,lastReg].
func New(lastReg uint16, storage Storage) (*Store, error) {
	snap, err := storage.Load()
	if err != nil {
		return nil, err
	}
	if len(snap.Registers) < int(lastReg)+1 {
		return nil, ErrStorageTooSmall
	}
	return &Store{lastReg: lastReg, snap: snap, storage: storage}, nil
}

// Close releases the underlying storage.
func (s *Store) Close() error {
	return s.storage.Close()
}

// GetReg implements rtuslave.GetRegFunc.
func (s *Store) GetReg(addr uint16) (uint16, byte) {
	if addr > s.lastReg {
		return 0, modbus.ExIllegalDataAddress
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap.Registers[addr], 0
}

// SetReg implements rtuslave.SetRegFunc.
func (s *Store) SetReg(addr, value uint16) byte {
	if addr > s.lastReg {
		return modbus.ExIllegalDataAddress
	}
	s.mu.Lock()
	s.snap.Registers[addr] = value
	s.mu.Unlock()
	s.storage.OnWrite(TableHolding, addr, 1)
	return 0
}

// GetPacket implements rtuslave.GetPacketFunc.
func (s *Store) GetPacket(buf []byte) (int, byte) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := copy(buf, s.snap.Packet)
	return n, 0
}

// SetPacket implements rtuslave.SetPacketFunc.
func (s *Store) SetPacket(payload []byte) byte {
	if len(payload) > MaxPacket {
		return modbus.ExIllegalDataValue
	}
	s.mu.Lock()
	s.snap.Packet = append(s.snap.Packet[:0], payload...)
	s.mu.Unlock()
	s.storage.OnWrite(TablePacket, 0, uint16(len(payload)))
	return 0
}

// Snapshot returns a defensive copy of the current register table and
// packet payload, for callers outside the protocol hot path (a status
// page, a metrics exporter) that shouldn't hold the Store's lock.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	regs := make([]uint16, len(s.snap.Registers))
	copy(regs, s.snap.Registers)
	pkt := make([]byte, len(s.snap.Packet))
	copy(pkt, s.snap.Packet)
	return Snapshot{Registers: regs, Packet: pkt}
}
