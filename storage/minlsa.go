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
	"container/heap"
	"context"
	"sync"
	"time"

	"github.com/cubrid-db/pagesrv-replicator/roachpb"
)

// pollInterval is how often WaitPastTargetLSA re-checks the minimum;
// Publish and Retract do not notify waiters. Kept short relative to the
// producer's own 1ms idle delay so waiters don't add perceptible
// latency on top of replication itself.
const pollInterval = 500 * time.Microsecond

// MinLsaMonitor tracks the smallest log position still unapplied
// across the producer and all workers: a reservation set in the style
// of the teacher's TimestampCache low-water mark, but tracking a floor
// over active entries rather than a ceiling over evicted ones, using
// the same container/heap approach the teacher uses in
// CommandQueue's overlapHeap to order entries by an allocation id.
//
// Each worker, when it claims a job, Publishes its rec_lsa under its
// own owner id; on completion it Retracts the entry. The producer
// publishes its own frontier separately, under a reserved owner id.
// GetMinimum is the min over all currently-published entries.
type MinLsaMonitor struct {
	mu      sync.Mutex
	entries map[int64]roachpb.LogPosition
	pq      minLsaHeap
}

// producerOwnerID is the owner id the replicator's producer loop uses
// to publish its own frontier, distinct from any worker id (workers
// are numbered from 0).
const producerOwnerID = -1

// NewMinLsaMonitor returns an empty monitor.
func NewMinLsaMonitor() *MinLsaMonitor {
	return &MinLsaMonitor{entries: map[int64]roachpb.LogPosition{}}
}

// Publish records that owner is the entry point for lsa: no record
// earlier than lsa is still outstanding under that owner.
func (m *MinLsaMonitor) Publish(owner int64, lsa roachpb.LogPosition) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[owner] = lsa
	heap.Push(&m.pq, minLsaEntry{owner: owner, lsa: lsa})
}

// SetForOuter is an alias for Publish under the producer's reserved
// owner id, mirroring the original's set_for_outer naming for the
// producer-side update.
func (m *MinLsaMonitor) SetForOuter(lsa roachpb.LogPosition) {
	m.Publish(producerOwnerID, lsa)
}

// Retract removes owner's published entry, signaling that whatever
// record it was holding back has completed.
func (m *MinLsaMonitor) Retract(owner int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, owner)
}

// GetMinimum returns the minimum of all currently published entries.
// It returns the null LSA if nothing is outstanding.
func (m *MinLsaMonitor) GetMinimum() roachpb.LogPosition {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.getMinimumLocked()
}

func (m *MinLsaMonitor) getMinimumLocked() roachpb.LogPosition {
	// The heap may contain stale entries for owners that have since
	// republished or retracted; pop until we find one that matches the
	// live map (lazy deletion, same trick command_queue.go's overlapHeap
	// uses implicitly via eviction callbacks).
	for m.pq.Len() > 0 {
		top := m.pq[0]
		live, ok := m.entries[top.owner]
		if !ok || live != top.lsa {
			heap.Pop(&m.pq)
			continue
		}
		return top.lsa
	}
	return roachpb.NullLogPosition
}

// WaitPastTargetLSA blocks until GetMinimum() > target, or ctx is
// done. Polling rather than a condition variable is a deliberate
// choice: it gives ctx cancellation a clean, race-free exit, at the
// cost of up to one pollInterval of extra latency, which is
// negligible next to the producer's own 1ms idle delay.
func (m *MinLsaMonitor) WaitPastTargetLSA(ctx context.Context, target roachpb.LogPosition) error {
	t := time.NewTicker(pollInterval)
	defer t.Stop()
	for {
		min := m.GetMinimum()
		if !min.IsNull() && min.Compare(target) > 0 {
			return nil
		}
		select {
		case <-t.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

type minLsaEntry struct {
	owner int64
	lsa   roachpb.LogPosition
}

// minLsaHeap is a min-heap of minLsaEntry ordered by LSA, mirroring the
// shape of command_queue.go's overlapHeap (a heap.Interface over a
// slice of lightweight entries, sorted by a monotonically ordered
// field).
type minLsaHeap []minLsaEntry

func (h minLsaHeap) Len() int            { return len(h) }
func (h minLsaHeap) Less(i, j int) bool  { return h[i].lsa.Less(h[j].lsa) }
func (h minLsaHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *minLsaHeap) Push(x interface{}) { *h = append(*h, x.(minLsaEntry)) }
func (h *minLsaHeap) Pop() interface{} {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}
