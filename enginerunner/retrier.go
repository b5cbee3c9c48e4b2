// Copyright (c) 2025 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package enginerunner

import (
	"context"
	"time"

	"github.com/ffutop/modbus-rtu-engine/rtumaster"
)

// Retrier wraps a request with a bounded retry policy. It lives here,
// outside rtumaster, because the core engine never retries on its
// own — retry policy is an application decision layered on top.
type Retrier struct {
	MaxAttempts int
	Backoff     time.Duration
}

// shouldRetry reports whether outcome warrants another attempt.
// Processed and ErrReported (a legal slave-side exception) are final;
// TimedOut, Corrupted, and HwError are transient bus faults worth
// retrying.
func shouldRetry(outcome rtumaster.Outcome) bool {
	switch outcome.State {
	case rtumaster.TimedOut, rtumaster.Corrupted, rtumaster.HwError:
		return true
	default:
		return false
	}
}

// Run issues req up to r.MaxAttempts times via q, sleeping r.Backoff
// (scaled by attempt number) between retryable outcomes. The first
// non-retryable outcome, or the last attempt regardless of outcome, is
// returned.
func (r *Retrier) Run(ctx context.Context, q *TransactionQueue, req Request) (rtumaster.Outcome, error) {
	attempts := r.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var outcome rtumaster.Outcome
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		outcome, err = q.Submit(ctx, req)
		if err != nil || !shouldRetry(outcome) {
			return outcome, err
		}
		if attempt == attempts {
			break
		}
		select {
		case <-ctx.Done():
			return outcome, ctx.Err()
		case <-time.After(r.Backoff * time.Duration(attempt)):
		}
	}
	return outcome, err
}
