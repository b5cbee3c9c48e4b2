// Copyright (c) 2025 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package rtuslave

// State is one value of the slave engine's state machine.
type State int32

const (
	Standby State = iota
	Receiving
	Received
	Processing
	Transmitting
)

func (s State) String() string {
	switch s {
	case Standby:
		return "Standby"
	case Receiving:
		return "Receiving"
	case Received:
		return "Received"
	case Processing:
		return "Processing"
	case Transmitting:
		return "Transmitting"
	default:
		return "Unknown"
	}
}
