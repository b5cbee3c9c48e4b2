// Copyright (c) 2025 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package regstore

import (
	"os"
	"syscall"
	"unsafe"
)

// MmapStorage maps the backing file directly into process memory:
// Store's register writes land straight in the mapped page with no
// intermediate copy, and OnWrite only has to msync. The layout
// offsets come from layout.go, shared with FileStorage.
type MmapStorage struct {
	f    *os.File
	data []byte
	snap *Snapshot
}

func NewMmapStorage(path string) (*MmapStorage, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	if info.Size() != totalSize {
		if err := f.Truncate(totalSize); err != nil {
			f.Close()
			return nil, err
		}
	}

	data, err := syscall.Mmap(int(f.Fd()), 0, totalSize, syscall.PROT_READ|syscall.PROT_WRITE, syscall.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, err
	}
	return &MmapStorage{f: f, data: data}, nil
}

func (s *MmapStorage) Load() (*Snapshot, error) {
	regs := unsafe.Slice((*uint16)(unsafe.Pointer(&s.data[offsetHolding])), MaxRegisters)
	n := int(s.data[offsetPktLen])
	pkt := s.data[offsetPacket : offsetPacket+n : offsetPacket+sizePacket]
	s.snap = &Snapshot{Registers: regs, Packet: pkt}
	return s.snap, nil
}

func (s *MmapStorage) OnWrite(table TableType, _, _ uint16) {
	if table == TablePacket {
		s.data[offsetPktLen] = byte(len(s.snap.Packet))
		copy(s.data[offsetPacket:offsetPacket+sizePacket], s.snap.Packet)
		for i := len(s.snap.Packet); i < sizePacket; i++ {
			s.data[offsetPacket+i] = 0
		}
	}
	s.msync()
}

func (s *MmapStorage) msync() {
	_, _, errno := syscall.Syscall(syscall.SYS_MSYNC, uintptr(unsafe.Pointer(&s.data[0])), uintptr(len(s.data)), syscall.MS_SYNC)
	_ = errno
}

func (s *MmapStorage) Close() error {
	if err := syscall.Munmap(s.data); err != nil {
		s.f.Close()
		return err
	}
	return s.f.Close()
}
