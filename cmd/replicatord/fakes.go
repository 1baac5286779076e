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

package main

import (
	"context"

	"github.com/cubrid-db/pagesrv-replicator/roachpb"
	"github.com/cubrid-db/pagesrv-replicator/storage"
)

// defaultPageSize is the log page size the fake log source below
// reports; it never actually holds any records, so the value only
// matters insofar as it must be positive.
const defaultPageSize = 16 * 1024

// noopLogSource reports an unmoving high-water mark equal to its
// starting position, so a standalone replicatord never has anything
// to redo. A real log source is supplied by the embedding page server.
type noopLogSource struct {
	nxio roachpb.LogPosition
}

func newNoopLogSource(start roachpb.LogPosition) *noopLogSource {
	return &noopLogSource{nxio: start}
}

func (s *noopLogSource) NxioLSA() roachpb.LogPosition { return s.nxio }

func (s *noopLogSource) FetchPage(ctx context.Context, pageID int64) ([]byte, error) {
	return make([]byte, defaultPageSize), nil
}

// noopBufferPool never has any page to offer, since noopLogSource
// never produces a record that would ask for one.
type noopBufferPool struct{}

func newNoopBufferPool() *noopBufferPool { return &noopBufferPool{} }

func (noopBufferPool) FixForRedo(ctx context.Context, vpid roachpb.PageIdentifier, rcvindex roachpb.RecoveryIndex) (storage.Page, error) {
	return nil, nil
}

// noopRecoveryDispatch holds no handlers; standalone mode never
// decodes a record that would need one.
type noopRecoveryDispatch struct{}

func newNoopRecoveryDispatch() *noopRecoveryDispatch { return &noopRecoveryDispatch{} }

func (noopRecoveryDispatch) RedoFunc(rcvindex roachpb.RecoveryIndex) (storage.RedoFunc, bool) {
	return nil, false
}

type noopDecompressor struct{}

func (noopDecompressor) Decompress(data []byte) ([]byte, error) { return data, nil }

type noopBtreeStatsApplier struct{}

func (noopBtreeStatsApplier) MergeUniqueStats(page storage.Page, stats roachpb.UniqueStats) {}
