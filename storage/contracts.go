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

// Package storage implements the page-server log replicator: the
// subsystem that consumes a transactional redo log produced by a
// primary and applies each record against the local buffer pool. The
// external collaborators named in this file (the log source, buffer
// pool, recovery dispatch table, decompressor and metrics sink) are
// out of scope for this module; only their interfaces are defined
// here, to be supplied by the embedding page server.
package storage

import (
	"context"

	"github.com/cubrid-db/pagesrv-replicator/roachpb"
)

// LogSource is the primary's append-only redo log, as observed from
// the page server.
type LogSource interface {
	// NxioLSA returns the log's current high-water mark: the position
	// up to which records have been durably appended.
	NxioLSA() roachpb.LogPosition
	// FetchPage returns the raw bytes of the given log page.
	FetchPage(ctx context.Context, pageID int64) ([]byte, error)
}

// BufferPool is the page server's page cache, fixed/unfixed under the
// standard latch discipline; the replicator never performs I/O against
// the page store directly.
type BufferPool interface {
	// FixForRedo pins the page identified by vpid for a redo
	// application keyed by rcvindex, returning nil if the page does
	// not exist (a fatal condition for this replicator, since every
	// page it redoes must already exist on the page server).
	FixForRedo(ctx context.Context, vpid roachpb.PageIdentifier, rcvindex roachpb.RecoveryIndex) (Page, error)
}

// Page is a pinned buffer-pool page.
type Page interface {
	SetLSA(lsa roachpb.LogPosition)
	SetDirtyAndFree()
	// Bytes exposes the page's raw contents for handlers that mutate
	// it directly (e.g. the b-tree unique-stats redo path).
	Bytes() []byte
}

// RedoFunc applies a decoded record's redo image to a fixed page.
type RedoFunc func(ctx context.Context, page Page, data []byte) error

// RecoveryDispatch is the closed, recovery-index-keyed table of redo
// handlers (RV[rcvindex] in the original). It is populated entirely by
// the embedding system; the replicator only ever looks handlers up by
// index.
type RecoveryDispatch interface {
	RedoFunc(rcvindex roachpb.RecoveryIndex) (RedoFunc, bool)
}

// Decompressor undoes the primary's payload compression. Called only
// when a record's header flags its payload as compressed.
type Decompressor interface {
	Decompress(data []byte) ([]byte, error)
}

// BtreeStatsApplier merges replicated unique-key statistics into a
// b-tree root page, the special-cased redo path of spec §4.5.
type BtreeStatsApplier interface {
	MergeUniqueStats(page Page, stats roachpb.UniqueStats)
}

// MetricsSink accepts the handful of named performance metrics this
// module publishes (REDO_REPL_DELAY, REDO_REPL_LOG_REDO_SYNC). A
// *metric.Registry satisfies it.
type MetricsSink interface {
	SetStat(kind string, value int64)
}
