// Copyright (c) 2025 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package regstore

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFileStorageSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "regs.bin")

	first, err := NewFileStorage(path)
	require.NoError(t, err)
	store, err := New(0x00FF, first)
	require.NoError(t, err)

	require.Zero(t, store.SetReg(0x0010, 0xBEEF))
	require.Zero(t, store.SetPacket([]byte{1, 2, 3}))
	require.NoError(t, store.Close())

	second, err := NewFileStorage(path)
	require.NoError(t, err)
	reopened, err := New(0x00FF, second)
	require.NoError(t, err)
	defer reopened.Close()

	v, exc := reopened.GetReg(0x0010)
	require.Zero(t, exc)
	require.Equal(t, uint16(0xBEEF), v)

	buf := make([]byte, MaxPacket)
	n, exc := reopened.GetPacket(buf)
	require.Zero(t, exc)
	require.Equal(t, []byte{1, 2, 3}, buf[:n])
}

func TestMmapStorageSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "regs.mmap")

	first, err := NewMmapStorage(path)
	require.NoError(t, err)
	store, err := New(0x00FF, first)
	require.NoError(t, err)

	require.Zero(t, store.SetReg(0x0020, 0xCAFE))
	require.Zero(t, store.SetPacket([]byte{9, 8, 7, 6}))
	require.NoError(t, store.Close())

	second, err := NewMmapStorage(path)
	require.NoError(t, err)
	reopened, err := New(0x00FF, second)
	require.NoError(t, err)
	defer reopened.Close()

	v, exc := reopened.GetReg(0x0020)
	require.Zero(t, exc)
	require.Equal(t, uint16(0xCAFE), v)

	buf := make([]byte, MaxPacket)
	n, exc := reopened.GetPacket(buf)
	require.Zero(t, exc)
	require.Equal(t, []byte{9, 8, 7, 6}, buf[:n])
}

func TestSnapshotLayoutRoundTrip(t *testing.T) {
	snap := &Snapshot{Registers: make([]uint16, MaxRegisters), Packet: []byte{0xAA, 0x55}}
	snap.Registers[0] = 0x0102
	snap.Registers[MaxRegisters-1] = 0xFFFF

	decoded, err := decodeSnapshot(encodeSnapshot(snap))
	require.NoError(t, err)
	require.Equal(t, snap.Registers, decoded.Registers)
	require.Equal(t, snap.Packet, decoded.Packet)

	_, err = decodeSnapshot(make([]byte, totalSize-1))
	require.ErrorIs(t, err, ErrBadLayout)
}
