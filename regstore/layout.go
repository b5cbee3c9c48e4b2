// Copyright (c) 2025 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package regstore

import "encoding/binary"

// On-disk layout shared by FileStorage and MmapStorage:
//
//	[ MaxRegisters * 2 bytes: holding registers, little-endian ]
//	[ 1 byte: packet length                                    ]
//	[ MaxPacket bytes: packet payload                          ]
//
// Defined once here so the two backends can never drift out of sync
// with each other.
const (
	sizeHolding = MaxRegisters * 2
	sizePktLen  = 1
	sizePacket  = MaxPacket

	offsetHolding = 0
	offsetPktLen  = offsetHolding + sizeHolding
	offsetPacket  = offsetPktLen + sizePktLen

	totalSize = offsetPacket + sizePacket
)

// encodeSnapshot serializes snap into the fixed-size on-disk layout.
func encodeSnapshot(snap *Snapshot) []byte {
	buf := make([]byte, totalSize)
	for i, v := range snap.Registers {
		binary.LittleEndian.PutUint16(buf[offsetHolding+2*i:], v)
	}
	buf[offsetPktLen] = byte(len(snap.Packet))
	copy(buf[offsetPacket:], snap.Packet)
	return buf
}

// decodeSnapshot parses a buffer laid out by encodeSnapshot. It copies
// out of data, so the caller is free to reuse or discard it afterward.
func decodeSnapshot(data []byte) (*Snapshot, error) {
	if len(data) != totalSize {
		return nil, ErrBadLayout
	}
	regs := make([]uint16, MaxRegisters)
	for i := range regs {
		regs[i] = binary.LittleEndian.Uint16(data[offsetHolding+2*i:])
	}
	n := int(data[offsetPktLen])
	pkt := make([]byte, n)
	copy(pkt, data[offsetPacket:offsetPacket+n])
	return &Snapshot{Registers: regs, Packet: pkt}, nil
}
