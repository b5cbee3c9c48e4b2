// Copyright (c) 2025 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package regstore

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ffutop/modbus-rtu-engine/modbus"
)

func TestStoreRegisterRoundTrip(t *testing.T) {
	store, err := New(0x00FF, NewMemoryStorage())
	require.NoError(t, err)
	defer store.Close()

	require.Zero(t, store.SetReg(0x006B, 0x000A))

	v, exc := store.GetReg(0x006B)
	require.Zero(t, exc)
	require.Equal(t, uint16(0x000A), v)
}

func TestStoreRejectsOutOfRangeAddress(t *testing.T) {
	store, err := New(0x000F, NewMemoryStorage())
	require.NoError(t, err)
	defer store.Close()

	_, exc := store.GetReg(0x0010)
	require.Equal(t, modbus.ExIllegalDataAddress, exc)
	require.Equal(t, modbus.ExIllegalDataAddress, store.SetReg(0x0010, 1))
}

func TestStorePacketRoundTrip(t *testing.T) {
	store, err := New(0x00FF, NewMemoryStorage())
	require.NoError(t, err)
	defer store.Close()

	payload := []byte{0xDE, 0xAD, 0xBE, 0xEF}
	require.Zero(t, store.SetPacket(payload))

	buf := make([]byte, MaxPacket)
	n, exc := store.GetPacket(buf)
	require.Zero(t, exc)
	require.Equal(t, payload, buf[:n])
}

func TestStoreRejectsOversizedPacket(t *testing.T) {
	store, err := New(0x00FF, NewMemoryStorage())
	require.NoError(t, err)
	defer store.Close()

	require.Equal(t, modbus.ExIllegalDataValue, store.SetPacket(make([]byte, MaxPacket+1)))
}

func TestStoreSnapshotIsDefensiveCopy(t *testing.T) {
	store, err := New(0x00FF, NewMemoryStorage())
	require.NoError(t, err)
	defer store.Close()

	require.Zero(t, store.SetReg(5, 77))
	snap := store.Snapshot()
	snap.Registers[5] = 0

	v, _ := store.GetReg(5)
	require.Equal(t, uint16(77), v)
}

// shortStorage loads fewer registers than any realistic lastReg asks
// for, to exercise New's size check.
type shortStorage struct{}

func (shortStorage) Load() (*Snapshot, error) {
	return &Snapshot{Registers: make([]uint16, 8)}, nil
}
func (shortStorage) OnWrite(TableType, uint16, uint16) {}
func (shortStorage) Close() error                      { return nil }

func TestNewRejectsUndersizedStorage(t *testing.T) {
	_, err := New(8, shortStorage{})
	require.ErrorIs(t, err, ErrStorageTooSmall)

	store, err := New(7, shortStorage{})
	require.NoError(t, err)
	store.Close()
}
