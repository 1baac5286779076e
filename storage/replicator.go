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

	"github.com/cockroachdb/errors"
	"github.com/cubrid-db/pagesrv-replicator/roachpb"
	"github.com/cubrid-db/pagesrv-replicator/util/log"
)

// looperDelay is the producer loop's minimum idle delay, avoiding a
// busy-spin while redoLSA == nxioLSA (spec §4.2).
const looperDelay = time.Millisecond

// Replicator owns the producer loop, the log reader, the optional
// parallel redo engine, and the waiter protocol: the single entry
// point spec §2 calls out as owning "the loop, the reader, the engine
// (optional), and the waiter protocol". Modeled on the teacher's
// daemon-loop shape in storage/raft.go's run() (a select over a timer
// and a stop channel), generalized from a pushed-event consumer to one
// that polls an externally-growing position.
type Replicator struct {
	src          LogSource
	reader       *LogReader
	pool         BufferPool
	dispatch     RecoveryDispatch
	decompressor Decompressor
	btreeApplier BtreeStatsApplier
	metrics      MetricsSink
	mvcc         *MVCCGenerator
	delayProbe   *DelayProbe
	engine       *ParallelRedoEngine
	minLSA       *MinLsaMonitor
	cfg          Config

	// mu guards redoLSA and advanced, the Go realization of
	// m_redo_lsa_mutex/m_redo_lsa_condvar (spec §5). Since sync.Cond
	// cannot be combined with context cancellation, waiters instead
	// hold a reference to advanced and select on it alongside
	// ctx.Done(); every write under mu closes the old channel and
	// installs a fresh one, broadcasting the advance to all waiters at
	// once.
	mu       sync.Mutex
	redoLSA  roachpb.LogPosition
	advanced chan struct{}

	stop    chan struct{}
	stopped chan struct{}
}

// NewReplicator constructs and starts a Replicator. If cfg.ParallelCount
// > 0, the ParallelRedoEngine and MinLsaMonitor are created before the
// producer goroutine starts, so no record can race ahead of a
// not-yet-ready engine (spec §3's Lifecycles paragraph).
func NewReplicator(cfg Config, deps Dependencies) (*Replicator, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	r := &Replicator{
		src:          deps.LogSource,
		reader:       NewLogReader(deps.LogSource, deps.PageSize),
		pool:         deps.BufferPool,
		dispatch:     deps.Dispatch,
		decompressor: deps.Decompressor,
		btreeApplier: deps.BtreeStats,
		metrics:      deps.Metrics,
		mvcc:         NewMVCCGenerator(roachpb.NullMVCCID.Forward()),
		cfg:          cfg,
		redoLSA:      cfg.StartRedoLSA,
		advanced:     make(chan struct{}),
		stop:         make(chan struct{}),
		stopped:      make(chan struct{}),
	}
	r.delayProbe = NewDelayProbe(deps.Clock, deps.Metrics, cfg.CalcReplDelay)

	if cfg.ParallelCount > 0 {
		r.minLSA = NewMinLsaMonitor()
		r.minLSA.SetForOuter(cfg.StartRedoLSA)
		r.engine = NewParallelRedoEngine(cfg.ParallelCount, r.minLSA)
	}

	go r.runProducer()
	return r, nil
}

// Close stops the producer, signals no more jobs will be added, drains
// the engine and joins its workers: spec §3's destruction sequence.
func (r *Replicator) Close() error {
	close(r.stop)
	<-r.stopped

	if r.engine == nil {
		return nil
	}
	r.engine.SetAddingFinished()
	r.engine.WaitForIdle()
	return r.engine.WaitForTerminationAndStopExecution()
}

// RedoLSA returns the producer's current frontier.
func (r *Replicator) RedoLSA() roachpb.LogPosition {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.redoLSA
}

func (r *Replicator) setRedoLSA(lsa roachpb.LogPosition) {
	r.mu.Lock()
	r.redoLSA = lsa
	old := r.advanced
	r.advanced = make(chan struct{})
	r.mu.Unlock()
	if r.minLSA != nil {
		r.minLSA.SetForOuter(lsa)
	}
	close(old)
}

func (r *Replicator) waitChan() (roachpb.LogPosition, chan struct{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.redoLSA, r.advanced
}

// WaitReplicationFinishDuringShutdown blocks until the producer has
// caught all the way up to the log's current high-water mark and, in
// async mode, until every dispatched job has actually been applied
// (spec §4.9). The engine itself is not stopped: the producer is still
// running.
func (r *Replicator) WaitReplicationFinishDuringShutdown(ctx context.Context) error {
	for {
		cur, ch := r.waitChan()
		nxio := r.src.NxioLSA()
		if cur.Compare(nxio) >= 0 {
			break
		}
		select {
		case <-ch:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if r.engine != nil {
		r.engine.WaitForIdle()
	}
	return nil
}

// WaitPastTargetLSA blocks until replication has moved past target:
// in sync mode that means redoLSA > target (records are applied
// inline by the producer, so dispatched == applied); in async mode it
// delegates to the MinLsaMonitor, which gives the stronger guarantee
// that every record up to and including target has actually been
// applied, not merely dispatched (spec §4.9's closing paragraph).
func (r *Replicator) WaitPastTargetLSA(ctx context.Context, target roachpb.LogPosition) error {
	if r.minLSA != nil {
		return r.minLSA.WaitPastTargetLSA(ctx, target)
	}
	for {
		cur, ch := r.waitChan()
		if cur.Compare(target) > 0 {
			return nil
		}
		select {
		case <-ch:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (r *Replicator) runProducer() {
	defer close(r.stopped)
	ticker := time.NewTicker(looperDelay)
	defer ticker.Stop()

	ctx := context.Background()
	for {
		select {
		case <-r.stop:
			return
		case <-ticker.C:
		}

		for {
			cur := r.RedoLSA()
			nxio := r.src.NxioLSA()
			if cur.Compare(nxio) >= 0 {
				break
			}
			if err := r.redoUpto(ctx, nxio); err != nil {
				log.Fatalf("log replication failed irrecoverably: %v", err)
				return
			}
			select {
			case <-r.stop:
				return
			default:
			}
		}
	}
}

// redoUpto implements spec §4.2's redo_upto(end): force a page refresh
// once at entry, then repeatedly decode and dispatch records until the
// cursor reaches end.
func (r *Replicator) redoUpto(ctx context.Context, end roachpb.LogPosition) error {
	cur := r.RedoLSA()
	if err := r.reader.SetLSAAndFetchPage(ctx, cur, FetchForce); err != nil {
		return errors.Wrapf(err, "forcing page refresh at %s", cur)
	}

	for {
		cur = r.RedoLSA()
		if cur.Compare(end) >= 0 {
			return nil
		}
		if err := r.reader.SetLSAAndFetchPage(ctx, cur, FetchNormal); err != nil {
			return errors.Wrapf(err, "positioning reader at %s", cur)
		}
		if err := r.reader.AdvanceWhenDoesNotFit(ctx, FixedSize[roachpb.RecordHeader]()); err != nil {
			return errors.Wrapf(err, "advancing past page boundary at %s", cur)
		}
		header, err := DecodeFixed[roachpb.RecordHeader](r.reader)
		if err != nil {
			return errors.Wrapf(err, "decoding record header at %s", cur)
		}
		if header.ForwardLSA.Compare(cur) <= 0 {
			return errors.Newf("malformed log: forward_lsa %s does not advance past %s", header.ForwardLSA, cur)
		}

		if err := r.classify(ctx, header, cur); err != nil {
			return err
		}

		r.setRedoLSA(header.ForwardLSA)
	}
}
