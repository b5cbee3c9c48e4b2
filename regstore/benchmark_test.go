// Copyright (c) 2025 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package regstore

import (
	"path/filepath"
	"testing"
)

func BenchmarkMemoryStorageOnWrite(b *testing.B) {
	ms := NewMemoryStorage()
	snap, err := ms.Load()
	if err != nil {
		b.Fatalf("Load: %v", err)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		snap.Registers[10] = uint16(i)
		ms.OnWrite(TableHolding, 10, 1)
	}
}

func BenchmarkFileStorageOnWrite(b *testing.B) {
	path := filepath.Join(b.TempDir(), "bench_file.bin")
	fs, err := NewFileStorage(path)
	if err != nil {
		b.Fatalf("NewFileStorage: %v", err)
	}
	snap, err := fs.Load()
	if err != nil {
		b.Fatalf("Load: %v", err)
	}
	defer fs.Close()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		snap.Registers[10] = uint16(i)
		fs.OnWrite(TableHolding, 10, 1)
	}
}

func BenchmarkMmapStorageOnWrite(b *testing.B) {
	path := filepath.Join(b.TempDir(), "bench_mmap.bin")
	ms, err := NewMmapStorage(path)
	if err != nil {
		b.Fatalf("NewMmapStorage: %v", err)
	}
	snap, err := ms.Load()
	if err != nil {
		b.Fatalf("Load: %v", err)
	}
	defer ms.Close()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		snap.Registers[10] = uint16(i)
		ms.OnWrite(TableHolding, 10, 1)
	}
}
