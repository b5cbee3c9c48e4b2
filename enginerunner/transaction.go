// Copyright (c) 2025 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package enginerunner

import (
	"context"
	"time"

	"github.com/ffutop/modbus-rtu-engine/rtumaster"
)

// CheckFunc matches rtumaster.Check's signature: call it once per
// tick and stop polling once done is true.
type CheckFunc func() (rtumaster.Outcome, bool)

// RunUntilDone polls check at interval until it reports done or ctx
// is canceled. It is the one-shot counterpart to Loop: most callers
// issuing a single request (the cmd/modbus-master CLI, for example)
// want to block until that one transaction resolves rather than run a
// background ticker.
func RunUntilDone(ctx context.Context, interval time.Duration, check CheckFunc) (rtumaster.Outcome, error) {
	if outcome, done := check(); done {
		return outcome, nil
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return rtumaster.Outcome{}, ctx.Err()
		case <-ticker.C:
			if outcome, done := check(); done {
				return outcome, nil
			}
		}
	}
}

// Request is one unit of work submitted to a TransactionQueue: Issue
// starts the transaction against the shared session (e.g. calling
// rtumaster.ReadRegs) and Check polls it to completion, matching
// RunUntilDone's signature.
type Request struct {
	Issue func() error
	Check CheckFunc
}

// result pairs a completed Request with its outcome or error.
type result struct {
	outcome rtumaster.Outcome
	err     error
}

type job struct {
	req  Request
	resp chan result
}

// TransactionQueue serializes concurrently-submitted master
// transactions onto the single rtumaster.Session that owns the
// physical RTU bus: only one frame may be in flight on a shared
// two-wire bus at a time.
type TransactionQueue struct {
	jobs     chan job
	interval time.Duration
}

// NewTransactionQueue starts the worker goroutine that drains
// submitted requests one at a time, polling each with interval until
// it completes before picking up the next. capacity bounds how many
// callers may be waiting to submit before Submit blocks.
func NewTransactionQueue(ctx context.Context, interval time.Duration, capacity int) *TransactionQueue {
	q := &TransactionQueue{
		jobs:     make(chan job, capacity),
		interval: interval,
	}
	go q.run(ctx)
	return q
}

func (q *TransactionQueue) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case j := <-q.jobs:
			if err := j.req.Issue(); err != nil {
				j.resp <- result{err: err}
				continue
			}
			outcome, err := RunUntilDone(ctx, q.interval, j.req.Check)
			j.resp <- result{outcome: outcome, err: err}
		}
	}
}

// Submit enqueues req and blocks until it has run to completion (or
// ctx is canceled), returning its outcome.
func (q *TransactionQueue) Submit(ctx context.Context, req Request) (rtumaster.Outcome, error) {
	resp := make(chan result, 1)
	select {
	case q.jobs <- job{req: req, resp: resp}:
	case <-ctx.Done():
		return rtumaster.Outcome{}, ctx.Err()
	}

	select {
	case r := <-resp:
		return r.outcome, r.err
	case <-ctx.Done():
		return rtumaster.Outcome{}, ctx.Err()
	}
}
