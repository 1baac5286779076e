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
	"encoding/binary"
	"testing"
	"time"

	"github.com/cubrid-db/pagesrv-replicator/roachpb"
	"github.com/cubrid-db/pagesrv-replicator/util/clock"
)

const (
	rcvWriteByte  roachpb.RecoveryIndex = 100
	rcvIncrement  roachpb.RecoveryIndex = 101
)

const testPageSize = 1 << 20

func newTestDeps(src *fakeLogSource, pool *fakeBufferPool, dispatch *fakeRecoveryDispatch, sink *fakeMetricsSink, clk clock.Clock) Dependencies {
	return Dependencies{
		LogSource:    src,
		BufferPool:   pool,
		Dispatch:     dispatch,
		Decompressor: fakeDecompressor{},
		BtreeStats:   fakeBtreeStatsApplier{},
		Metrics:      sink,
		Clock:        clk,
		PageSize:     testPageSize,
	}
}

// scenario 1: synchronous commit-only log.
func TestReplicatorSyncCommitOnlyLog(t *testing.T) {
	b := &logBuilder{}
	recLSA := b.addGenericRedo(roachpb.RecordTypeRedoData, vpid(1, 7), roachpb.NullMVCCID, rcvWriteByte, []byte{'A'})
	const nowMs = int64(1_000_000)
	b.addTimestamped(roachpb.RecordTypeCommit, nowMs-5)
	b.addTimestamped(roachpb.RecordTypeDummyHAServerState, nowMs-2)

	pool := newFakeBufferPool()
	page := pool.createPage(vpid(1, 7), 16)
	dispatch := newFakeRecoveryDispatch()
	dispatch.RegisterFunc(rcvWriteByte, writeBytesHandler)
	sink := newFakeMetricsSink()

	r, err := NewReplicator(Config{ParallelCount: 0, CalcReplDelay: true},
		newTestDeps(newFakeLogSource(b), pool, dispatch, sink, clock.NewManual(nowMs)))
	if err != nil {
		t.Fatalf("NewReplicator: %v", err)
	}
	defer r.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.WaitReplicationFinishDuringShutdown(ctx); err != nil {
		t.Fatalf("WaitReplicationFinishDuringShutdown: %v", err)
	}

	if got := page.Bytes()[0]; got != 'A' {
		t.Fatalf("page byte 0 = %q, want 'A'", got)
	}
	if got := page.LSA(); got != recLSA {
		t.Fatalf("page.LSA() = %s, want %s", got, recLSA)
	}
	delays := sink.valuesFor(replDelayMetric)
	if len(delays) < 2 {
		t.Fatalf("expected at least 2 REDO_REPL_DELAY samples, got %v", delays)
	}
	foundFive, foundTwo := false, false
	for _, d := range delays {
		if d == 5 {
			foundFive = true
		}
		if d == 2 {
			foundTwo = true
		}
	}
	if !foundFive || !foundTwo {
		t.Fatalf("expected delay samples of 5 and 2, got %v", delays)
	}
}

// scenario 2: parallel, cross-page.
func TestReplicatorParallelCrossPage(t *testing.T) {
	b := &logBuilder{}
	pool := newFakeBufferPool()
	pageA := pool.createPage(vpid(1, 7), 16)
	pageB := pool.createPage(vpid(1, 8), 16)
	dispatch := newFakeRecoveryDispatch()
	dispatch.RegisterFunc(rcvWriteByte, writeBytesHandler)
	sink := newFakeMetricsSink()

	const n = 1000
	var lastLSA [2]roachpb.LogPosition
	var lastVal [2]uint32
	targets := [2]roachpb.PageIdentifier{vpid(1, 7), vpid(1, 8)}
	for i := 0; i < n; i++ {
		side := i % 2
		val := make([]byte, 4)
		binary.LittleEndian.PutUint32(val, uint32(i))
		lsa := b.addGenericRedo(roachpb.RecordTypeRedoData, targets[side], roachpb.NullMVCCID, rcvWriteByte, val)
		lastLSA[side] = lsa
		lastVal[side] = uint32(i)
	}
	finalLSA := lastLSA[0]
	if lastLSA[1].Compare(finalLSA) > 0 {
		finalLSA = lastLSA[1]
	}

	r, err := NewReplicator(Config{ParallelCount: 4},
		newTestDeps(newFakeLogSource(b), pool, dispatch, sink, clock.Real))
	if err != nil {
		t.Fatalf("NewReplicator: %v", err)
	}
	defer r.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := r.WaitPastTargetLSA(ctx, finalLSA); err != nil {
		t.Fatalf("WaitPastTargetLSA: %v", err)
	}

	if got := pageA.LSA(); got != lastLSA[0] {
		t.Fatalf("page (1,7) LSA = %s, want %s", got, lastLSA[0])
	}
	if got := pageB.LSA(); got != lastLSA[1] {
		t.Fatalf("page (1,8) LSA = %s, want %s", got, lastLSA[1])
	}
	if got := binary.LittleEndian.Uint32(pageA.Bytes()[:4]); got != lastVal[0] {
		t.Fatalf("page (1,7) value = %d, want %d", got, lastVal[0])
	}
	if got := binary.LittleEndian.Uint32(pageB.Bytes()[:4]); got != lastVal[1] {
		t.Fatalf("page (1,8) value = %d, want %d", got, lastVal[1])
	}
}

// scenario 3: parallel, same-page contention. Ordering violations would
// produce a lower counter than n.
func TestReplicatorParallelSamePageContention(t *testing.T) {
	b := &logBuilder{}
	pool := newFakeBufferPool()
	page := pool.createPage(vpid(1, 7), 16)
	dispatch := newFakeRecoveryDispatch()
	dispatch.RegisterFunc(rcvIncrement, incrementCounterHandler)
	sink := newFakeMetricsSink()

	const n = 1000
	var lastLSA roachpb.LogPosition
	for i := 0; i < n; i++ {
		lastLSA = b.addGenericRedo(roachpb.RecordTypeRedoData, vpid(1, 7), roachpb.NullMVCCID, rcvIncrement, nil)
	}

	r, err := NewReplicator(Config{ParallelCount: 4},
		newTestDeps(newFakeLogSource(b), pool, dispatch, sink, clock.Real))
	if err != nil {
		t.Fatalf("NewReplicator: %v", err)
	}
	defer r.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := r.WaitPastTargetLSA(ctx, lastLSA); err != nil {
		t.Fatalf("WaitPastTargetLSA: %v", err)
	}

	if got := binary.LittleEndian.Uint64(page.Bytes()[:8]); got != n {
		t.Fatalf("counter = %d, want %d (an ordering violation would under-count)", got, n)
	}
	if got := page.LSA(); got != lastLSA {
		t.Fatalf("page.LSA() = %s, want %s", got, lastLSA)
	}
}

// scenario 4: stats redo.
func TestReplicatorBtreeStatsRedo(t *testing.T) {
	b := &logBuilder{}
	btid := roachpb.BTID{Volume: 2, RootPage: 42}
	stats := roachpb.UniqueStats{NumKeys: 5, NumOids: 10, NumNulls: 0}
	recLSA := b.addGenericRedo(roachpb.RecordTypeRedoData, roachpb.PageIdentifier{}, roachpb.NullMVCCID,
		roachpb.GlobalUniqueStatsCommit, encodeBtreeStatsBody(btid, stats))

	pool := newFakeBufferPool()
	page := pool.createPage(btid.RootVPID(), 16)
	dispatch := newFakeRecoveryDispatch()
	sink := newFakeMetricsSink()

	r, err := NewReplicator(Config{ParallelCount: 0},
		newTestDeps(newFakeLogSource(b), pool, dispatch, sink, clock.Real))
	if err != nil {
		t.Fatalf("NewReplicator: %v", err)
	}
	defer r.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.WaitReplicationFinishDuringShutdown(ctx); err != nil {
		t.Fatalf("WaitReplicationFinishDuringShutdown: %v", err)
	}

	if page.stats != stats {
		t.Fatalf("page stats = %+v, want %+v", page.stats, stats)
	}
	if got := page.LSA(); got != recLSA {
		t.Fatalf("page.LSA() = %s, want %s", got, recLSA)
	}
}

// scenario 5: bogus timestamp.
func TestReplicatorBogusTimestampSkipped(t *testing.T) {
	b := &logBuilder{}
	b.addTimestamped(roachpb.RecordTypeCommit, -1)

	pool := newFakeBufferPool()
	dispatch := newFakeRecoveryDispatch()
	sink := newFakeMetricsSink()

	r, err := NewReplicator(Config{ParallelCount: 0, CalcReplDelay: true},
		newTestDeps(newFakeLogSource(b), pool, dispatch, sink, clock.Real))
	if err != nil {
		t.Fatalf("NewReplicator: %v", err)
	}
	defer r.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.WaitReplicationFinishDuringShutdown(ctx); err != nil {
		t.Fatalf("WaitReplicationFinishDuringShutdown: %v", err)
	}

	if delays := sink.valuesFor(replDelayMetric); len(delays) != 0 {
		t.Fatalf("expected no REDO_REPL_DELAY samples for a bogus timestamp, got %v", delays)
	}
}

// scenario 6: shutdown drain, waiting while the producer is still well
// behind nxio_lsa.
func TestReplicatorShutdownDrain(t *testing.T) {
	b := &logBuilder{}
	pool := newFakeBufferPool()
	page := pool.createPage(vpid(1, 7), 16)
	dispatch := newFakeRecoveryDispatch()
	dispatch.RegisterFunc(rcvIncrement, incrementCounterHandler)
	sink := newFakeMetricsSink()

	const n = 200
	for i := 0; i < n; i++ {
		b.addGenericRedo(roachpb.RecordTypeRedoData, vpid(1, 7), roachpb.NullMVCCID, rcvIncrement, nil)
	}

	r, err := NewReplicator(Config{ParallelCount: 4},
		newTestDeps(newFakeLogSource(b), pool, dispatch, sink, clock.Real))
	if err != nil {
		t.Fatalf("NewReplicator: %v", err)
	}
	defer r.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	// Called immediately: the producer has not yet applied anything.
	if err := r.WaitReplicationFinishDuringShutdown(ctx); err != nil {
		t.Fatalf("WaitReplicationFinishDuringShutdown: %v", err)
	}

	if got := r.RedoLSA(); got != r.src.NxioLSA() {
		t.Fatalf("RedoLSA() = %s, want caught up to %s", got, r.src.NxioLSA())
	}
	if got := binary.LittleEndian.Uint64(page.Bytes()[:8]); got != n {
		t.Fatalf("counter = %d, want %d", got, n)
	}
}

// boundary: empty log never calls redo_upto; shutdown completes
// immediately.
func TestReplicatorEmptyLog(t *testing.T) {
	b := &logBuilder{}
	pool := newFakeBufferPool()
	dispatch := newFakeRecoveryDispatch()
	sink := newFakeMetricsSink()

	r, err := NewReplicator(Config{ParallelCount: 0},
		newTestDeps(newFakeLogSource(b), pool, dispatch, sink, clock.Real))
	if err != nil {
		t.Fatalf("NewReplicator: %v", err)
	}
	defer r.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := r.WaitReplicationFinishDuringShutdown(ctx); err != nil {
		t.Fatalf("WaitReplicationFinishDuringShutdown: %v", err)
	}
}

// boundary: parallel count > 0 but no records; wait_for_idle returns
// promptly.
func TestReplicatorParallelNoRecordsIdlesPromptly(t *testing.T) {
	b := &logBuilder{}
	pool := newFakeBufferPool()
	dispatch := newFakeRecoveryDispatch()
	sink := newFakeMetricsSink()

	r, err := NewReplicator(Config{ParallelCount: 4},
		newTestDeps(newFakeLogSource(b), pool, dispatch, sink, clock.Real))
	if err != nil {
		t.Fatalf("NewReplicator: %v", err)
	}
	defer r.Close()

	done := make(chan struct{})
	go func() {
		r.engine.WaitForIdle()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("WaitForIdle did not return promptly with no records")
	}
}
