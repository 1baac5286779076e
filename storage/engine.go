// Copyright 2014 The Cockroach Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or
// implied. See the License for the specific language governing
// permissions and limitations under the License. See the AUTHORS file
// for names of contributors.

package storage

import (
	"context"
	"sync"
	"time"

	pkgerrors "github.com/pkg/errors"

	"github.com/cubrid-db/pagesrv-replicator/roachpb"
	"github.com/cubrid-db/pagesrv-replicator/util/log"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// claimPollInterval bounds how long a worker with nothing runnable
// waits before checking the queues again. A worker waits here whenever
// it finds nothing to claim: when no job is queued at all (the idle
// path), or when every non-empty page queue is busy in another worker.
const claimPollInterval = 200 * time.Microsecond

// RedoJob is a unit of parallel redo work: a page identifier, a log
// position, and something to execute. Non-sentinel VPIDs establish a
// per-page ordering constraint (§3): among jobs sharing a VPID, the
// one with the smaller RecLSA must finish applying before the next
// begins.
type RedoJob interface {
	VPID() roachpb.PageIdentifier
	RecLSA() roachpb.LogPosition
	Execute(ctx context.Context) error
}

// ParallelRedoEngine is a worker pool that dispatches RedoJobs while
// enforcing per-page ordering and keeping a MinLsaMonitor up to date.
// Per-page ordering is realized as command_queue.go realizes key-range
// ordering in the teacher: a queue keyed by the contended resource
// (there, a key range; here, a VPID) with a busy flag, drained by
// whichever worker is free — simplified from an interval tree to a
// plain map because a VPID, unlike a key range, is always a single
// point and two VPIDs either match exactly or don't overlap at all.
type ParallelRedoEngine struct {
	minLSA *MinLsaMonitor
	sem    *semaphore.Weighted
	group  *errgroup.Group
	ctx    context.Context
	cancel context.CancelFunc

	mu           sync.Mutex
	queues       map[roachpb.PageIdentifier]*pageQueue
	addClosed    bool
	idleWaiters  []chan struct{}
	pendingCount int
}

type pageQueue struct {
	jobs []RedoJob
	busy bool
}

// NewParallelRedoEngine starts a pool of numWorkers goroutines pulling
// from per-page queues, publishing progress into minLSA.
func NewParallelRedoEngine(numWorkers int, minLSA *MinLsaMonitor) *ParallelRedoEngine {
	if numWorkers <= 0 {
		panic("NewParallelRedoEngine requires numWorkers > 0")
	}
	ctx, cancel := context.WithCancel(context.Background())
	group, gctx := errgroup.WithContext(ctx)
	e := &ParallelRedoEngine{
		minLSA: minLSA,
		sem:    semaphore.NewWeighted(int64(numWorkers) * 64),
		group:  group,
		ctx:    ctx,
		cancel: cancel,
		queues: map[roachpb.PageIdentifier]*pageQueue{},
	}
	for i := 0; i < numWorkers; i++ {
		workerID := int64(i)
		group.Go(func() error {
			return e.runWorker(gctx, workerID)
		})
	}
	return e
}

// Add enqueues job, transferring ownership to the engine. Blocks only
// under backpressure (more than 64 jobs per worker outstanding).
func (e *ParallelRedoEngine) Add(ctx context.Context, job RedoJob) error {
	if err := e.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	e.mu.Lock()
	if e.addClosed {
		e.mu.Unlock()
		e.sem.Release(1)
		panic("Add called after SetAddingFinished")
	}
	vpid := job.VPID()
	q, ok := e.queues[vpid]
	if !ok {
		q = &pageQueue{}
		e.queues[vpid] = q
	}
	q.jobs = append(q.jobs, job)
	e.pendingCount++
	e.mu.Unlock()
	return nil
}

// SetAddingFinished closes the input; subsequent Add calls panic.
func (e *ParallelRedoEngine) SetAddingFinished() {
	e.mu.Lock()
	e.addClosed = true
	e.mu.Unlock()
}

// WaitForIdle blocks until all enqueued jobs have completed. Further
// Add calls remain legal once it returns, unless SetAddingFinished was
// also called.
func (e *ParallelRedoEngine) WaitForIdle() {
	for {
		e.mu.Lock()
		if e.pendingCount == 0 {
			e.mu.Unlock()
			return
		}
		ch := make(chan struct{})
		e.idleWaiters = append(e.idleWaiters, ch)
		e.mu.Unlock()
		<-ch
	}
}

// WaitForTerminationAndStopExecution joins all workers. Terminal: the
// engine must not be used afterward.
func (e *ParallelRedoEngine) WaitForTerminationAndStopExecution() error {
	e.cancel()
	return e.group.Wait()
}

func (e *ParallelRedoEngine) runWorker(ctx context.Context, workerID int64) error {
	for {
		job, vpid, ok := e.claimNext(workerID)
		if !ok {
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(claimPollInterval):
			}
			continue
		}
		err := job.Execute(ctx)
		e.sem.Release(1)
		e.finishJob(vpid, workerID)
		if err != nil {
			// pkgerrors.Cause unwraps a pkg/errors-style chain to the
			// root cause for the log line; the error returned to the
			// errgroup keeps its full wrapped context for callers.
			log.Errorf("redo job at %s failed: %v (cause: %v)", job.RecLSA(), err, pkgerrors.Cause(err))
			return err
		}
	}
}

// claimNext finds a page queue that is not busy and has work, marks it
// busy, and returns its head job. Sentinel-VPID jobs never sit behind a
// busy flag: every one of them is immediately claimable, since they
// carry no page-ordering constraint (spec §4.8).
func (e *ParallelRedoEngine) claimNext(workerID int64) (RedoJob, roachpb.PageIdentifier, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if sq, ok := e.queues[roachpb.SentinelVPID]; ok && len(sq.jobs) > 0 {
		job := sq.jobs[0]
		sq.jobs = sq.jobs[1:]
		e.minLSA.Publish(workerID, job.RecLSA())
		return job, roachpb.SentinelVPID, true
	}

	for vpid, q := range e.queues {
		if vpid.IsSentinel() || q.busy || len(q.jobs) == 0 {
			continue
		}
		job := q.jobs[0]
		q.jobs = q.jobs[1:]
		q.busy = true
		e.minLSA.Publish(workerID, job.RecLSA())
		return job, vpid, true
	}
	return nil, roachpb.PageIdentifier{}, false
}

func (e *ParallelRedoEngine) finishJob(vpid roachpb.PageIdentifier, workerID int64) {
	e.mu.Lock()
	if !vpid.IsSentinel() {
		if q, ok := e.queues[vpid]; ok {
			q.busy = false
			if len(q.jobs) == 0 {
				delete(e.queues, vpid)
			}
		}
	} else if q, ok := e.queues[vpid]; ok && len(q.jobs) == 0 {
		delete(e.queues, vpid)
	}
	e.pendingCount--
	// Only the finisher that actually observes the transition to zero
	// takes ownership of the waiter list; everyone else gets nil. The
	// decision and the hand-off both happen under mu, and only the owner
	// closes the channels (after unlocking), so two workers finishing
	// concurrently can never both try to close the same channel.
	var waiters []chan struct{}
	if e.pendingCount == 0 {
		waiters = e.idleWaiters
		e.idleWaiters = nil
	}
	e.mu.Unlock()
	e.minLSA.Retract(workerID)
	for _, ch := range waiters {
		close(ch)
	}
}
