// Copyright (c) 2025 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package regstore

import (
	"os"
)

// FileStorage persists the register table and packet payload to a
// plain file: the whole fixed-size image is rewritten and fsynced on
// every write. Simple and durable; for a high write rate prefer
// MmapStorage.
type FileStorage struct {
	f    *os.File
	snap *Snapshot
}

func NewFileStorage(path string) (*FileStorage, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, err
	}
	return &FileStorage{f: f}, nil
}

func (s *FileStorage) Load() (*Snapshot, error) {
	info, err := s.f.Stat()
	if err != nil {
		return nil, err
	}

	if info.Size() == 0 {
		snap := &Snapshot{Registers: make([]uint16, MaxRegisters)}
		if err := s.f.Truncate(totalSize); err != nil {
			return nil, err
		}
		if _, err := s.f.WriteAt(encodeSnapshot(snap), 0); err != nil {
			return nil, err
		}
		s.snap = snap
		return snap, nil
	}

	data := make([]byte, totalSize)
	if _, err := s.f.ReadAt(data, 0); err != nil {
		return nil, err
	}
	snap, err := decodeSnapshot(data)
	if err != nil {
		return nil, err
	}
	s.snap = snap
	return snap, nil
}

func (s *FileStorage) OnWrite(_ TableType, _, _ uint16) {
	if _, err := s.f.WriteAt(encodeSnapshot(s.snap), 0); err != nil {
		return
	}
	_ = s.f.Sync()
}

func (s *FileStorage) Close() error {
	return s.f.Close()
}
