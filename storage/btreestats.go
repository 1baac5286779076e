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

	"github.com/cockroachdb/errors"
	"github.com/cubrid-db/pagesrv-replicator/roachpb"
)

// btreeStatsPayload is the RedoJob payload that materializes
// replicated b-tree unique-key statistics into a root page, the
// special redo path of spec §4.5: ordinary recovery redo never touches
// the root page for these, but the page server's readers expect
// authoritative stats there.
type btreeStatsPayload struct {
	rootVPID roachpb.PageIdentifier
	recLSA   roachpb.LogPosition
	stats    roachpb.UniqueStats
	pool     BufferPool
	applier  BtreeStatsApplier
}

func (j *btreeStatsPayload) VPID() roachpb.PageIdentifier { return j.rootVPID }
func (j *btreeStatsPayload) RecLSA() roachpb.LogPosition  { return j.recLSA }

func (j *btreeStatsPayload) Execute(ctx context.Context) error {
	return applyBtreeStats(ctx, j.pool, j.applier, j.rootVPID, j.recLSA, j.stats)
}

// applyBtreeStats fixes the b-tree root page and merges stats into it,
// the tail shared by both the synchronous (parallel=0) and
// worker-executed stats redo paths.
func applyBtreeStats(
	ctx context.Context,
	pool BufferPool,
	applier BtreeStatsApplier,
	rootVPID roachpb.PageIdentifier,
	recLSA roachpb.LogPosition,
	stats roachpb.UniqueStats,
) error {
	page, err := pool.FixForRedo(ctx, rootVPID, roachpb.GlobalUniqueStatsCommit)
	if err != nil {
		return errors.Wrapf(err, "fixing b-tree root %s for stats redo at %s", rootVPID, recLSA)
	}
	if page == nil {
		return errors.Newf("b-tree root page %s does not exist on the page server, required by stats redo at %s", rootVPID, recLSA)
	}
	applier.MergeUniqueStats(page, stats)
	page.SetLSA(recLSA)
	page.SetDirtyAndFree()
	return nil
}
