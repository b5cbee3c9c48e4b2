// Copyright (c) 2025 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package regstore

// MemoryStorage keeps the register table and packet payload in
// process memory only; OnWrite and Close are no-ops. Used for tests
// and for slave configurations that don't need state to survive a
// restart.
type MemoryStorage struct{}

func NewMemoryStorage() *MemoryStorage { return &MemoryStorage{} }

func (m *MemoryStorage) Load() (*Snapshot, error) {
	return &Snapshot{Registers: make([]uint16, MaxRegisters), Packet: nil}, nil
}

func (m *MemoryStorage) OnWrite(_ TableType, _, _ uint16) {}

func (m *MemoryStorage) Close() error { return nil }
