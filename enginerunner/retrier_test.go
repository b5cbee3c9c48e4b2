// Copyright (c) 2025 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package enginerunner

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ffutop/modbus-rtu-engine/rtumaster"
)

func TestRetrierSucceedsAfterTransientTimeout(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	q := NewTransactionQueue(ctx, time.Millisecond, 1)

	attempt := 0
	req := Request{
		Issue: func() error { return nil },
		Check: func() (rtumaster.Outcome, bool) {
			attempt++
			if attempt == 1 {
				return rtumaster.Outcome{State: rtumaster.TimedOut}, true
			}
			return rtumaster.Outcome{State: rtumaster.Processed}, true
		},
	}

	r := &Retrier{MaxAttempts: 3, Backoff: time.Millisecond}
	outcome, err := r.Run(ctx, q, req)
	require.NoError(t, err)
	require.Equal(t, rtumaster.Processed, outcome.State)
}

func TestRetrierGivesUpAfterMaxAttempts(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	q := NewTransactionQueue(ctx, time.Millisecond, 1)

	req := Request{
		Issue: func() error { return nil },
		Check: func() (rtumaster.Outcome, bool) { return rtumaster.Outcome{State: rtumaster.Corrupted}, true },
	}

	r := &Retrier{MaxAttempts: 2, Backoff: time.Millisecond}
	outcome, err := r.Run(ctx, q, req)
	require.NoError(t, err)
	require.Equal(t, rtumaster.Corrupted, outcome.State)
}

func TestRetrierStopsOnNonRetryableOutcome(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	q := NewTransactionQueue(ctx, time.Millisecond, 1)

	calls := 0
	req := Request{
		Issue: func() error { return nil },
		Check: func() (rtumaster.Outcome, bool) {
			calls++
			return rtumaster.Outcome{State: rtumaster.ErrReported, ExceptionCode: 0x02}, true
		},
	}

	r := &Retrier{MaxAttempts: 5, Backoff: time.Millisecond}
	outcome, err := r.Run(ctx, q, req)
	require.NoError(t, err)
	require.Equal(t, rtumaster.ErrReported, outcome.State)
	require.Equal(t, 1, calls)
}
