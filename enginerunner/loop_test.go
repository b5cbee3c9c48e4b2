// Copyright (c) 2025 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package enginerunner

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoopTicks(t *testing.T) {
	var calls atomic.Int32
	loop := NewLoop(5*time.Millisecond, func() { calls.Add(1) })
	loop.Start()
	time.Sleep(55 * time.Millisecond)
	loop.Stop()

	require.GreaterOrEqual(t, calls.Load(), int32(5))
}

func TestLoopStopWaitsForGoroutine(t *testing.T) {
	var calls atomic.Int32
	loop := NewLoop(time.Millisecond, func() { calls.Add(1) })
	loop.Start()
	time.Sleep(5 * time.Millisecond)
	loop.Stop()
	// Stop blocks until the goroutine has returned; a second observed
	// tick after Stop returns would indicate a leaked goroutine.
	stopped := calls.Load()
	time.Sleep(5 * time.Millisecond)
	require.Equal(t, stopped, calls.Load())
}
