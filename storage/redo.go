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

	"github.com/cockroachdb/errors"
	"github.com/cubrid-db/pagesrv-replicator/roachpb"
	"github.com/cubrid-db/pagesrv-replicator/util/log"
	"github.com/google/uuid"
)

// MVCCGenerator owns the process-wide mvcc_next_id, passed around by
// pointer rather than kept as a package global (spec §9's "pass it as
// an explicit handle" note).
type MVCCGenerator struct {
	mu   sync.Mutex
	next roachpb.MVCCID
}

// NewMVCCGenerator returns a generator seeded at start.
func NewMVCCGenerator(start roachpb.MVCCID) *MVCCGenerator {
	return &MVCCGenerator{next: start}
}

// Bump advances the generator's next id past seen if seen is not
// already strictly less than it, guaranteeing every subsequently
// allocated id exceeds every id this method has ever seen.
func (g *MVCCGenerator) Bump(seen roachpb.MVCCID) {
	if seen == roachpb.NullMVCCID {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if !seen.Precedes(g.next) {
		g.next = seen.Forward()
	}
}

// Next allocates and returns the next MVCCID, the local counterpart to
// the bump path used for locally originated transactions. The
// replicator core itself only ever observes ids via Bump; Next exists
// for an embedding page server that originates its own transactions
// against the same generator.
func (g *MVCCGenerator) Next() roachpb.MVCCID {
	g.mu.Lock()
	defer g.mu.Unlock()
	id := g.next
	g.next = g.next.Forward()
	return id
}

// genericRedoPayload is a RedoJob carrying a decoded record's redo
// image to be applied against its target page by invoking the
// recovery-index-keyed handler from the embedding RecoveryDispatch.
// One of the three concrete RedoJob payloads (spec.md's "payload:
// variant" realized as interface dispatch rather than a tagged C++
// struct, per design note §9).
type genericRedoPayload struct {
	vpid     roachpb.PageIdentifier
	recLSA   roachpb.LogPosition
	rcvIndex roachpb.RecoveryIndex
	data     []byte
	pool     BufferPool
	dispatch RecoveryDispatch
	traceID  uuid.UUID
}

func (j *genericRedoPayload) VPID() roachpb.PageIdentifier { return j.vpid }
func (j *genericRedoPayload) RecLSA() roachpb.LogPosition  { return j.recLSA }

func (j *genericRedoPayload) Execute(ctx context.Context) error {
	if log.V(2) {
		log.Infof("redo job %s: applying rcvindex=%d to %s at %s", j.traceID, j.rcvIndex, j.vpid, j.recLSA)
	}
	return applyGenericRedo(ctx, j.pool, j.dispatch, j.vpid, j.recLSA, j.rcvIndex, j.data)
}

// applyGenericRedo fixes the target page and invokes its recovery
// handler, the shared tail of both the synchronous and worker-executed
// generic redo paths (spec §4.6).
func applyGenericRedo(
	ctx context.Context,
	pool BufferPool,
	dispatch RecoveryDispatch,
	vpid roachpb.PageIdentifier,
	recLSA roachpb.LogPosition,
	rcvIndex roachpb.RecoveryIndex,
	data []byte,
) error {
	fn, ok := dispatch.RedoFunc(rcvIndex)
	if !ok {
		return errors.Newf("no redo handler registered for recovery index %d", rcvIndex)
	}
	page, err := pool.FixForRedo(ctx, vpid, rcvIndex)
	if err != nil {
		return errors.Wrapf(err, "fixing page %s for redo at %s", vpid, recLSA)
	}
	if page == nil {
		return errors.Newf("page %s does not exist on the page server, required by redo at %s", vpid, recLSA)
	}
	if err := fn(ctx, page, data); err != nil {
		page.SetDirtyAndFree()
		return errors.Wrapf(err, "redo handler for recovery index %d failed at %s", rcvIndex, recLSA)
	}
	page.SetLSA(recLSA)
	page.SetDirtyAndFree()
	return nil
}
