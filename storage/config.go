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
	"github.com/cockroachdb/errors"
	"github.com/cubrid-db/pagesrv-replicator/roachpb"
	"github.com/cubrid-db/pagesrv-replicator/util/clock"
)

// Config holds the replicator's tunable knobs, the Go realization of
// spec §6's enumerated config consumed interface:
// REPLICATION_PARALLEL_COUNT and ER_LOG_CALC_REPL_DELAY.
type Config struct {
	// ParallelCount is P in spec §3's Lifecycles: 0 means synchronous
	// replication (no engine, no MinLsaMonitor); >0 starts that many
	// workers.
	ParallelCount int
	// CalcReplDelay gates the DelayProbe the way ER_LOG_CALC_REPL_DELAY
	// does in the original: when false, commit/abort/HA-state records
	// are still classified and skipped past, but no metric is computed.
	CalcReplDelay bool
	// StartRedoLSA is the position the producer loop begins consuming
	// from.
	StartRedoLSA roachpb.LogPosition
}

// validate reports the one precondition spec §3 requires of P: it must
// be non-negative. The original guards this with a C++ assert
// (compiled out in release builds); a Go library returns an error
// instead of panicking on caller-supplied configuration.
func (c Config) validate() error {
	if c.ParallelCount < 0 {
		return errors.Newf("replicator config: ParallelCount must be >= 0, got %d", c.ParallelCount)
	}
	return nil
}

// Dependencies bundles every external collaborator the Replicator
// needs (spec §6's "Consumed" interfaces), so construction takes one
// cohesive struct instead of a long positional parameter list.
type Dependencies struct {
	LogSource    LogSource
	BufferPool   BufferPool
	Dispatch     RecoveryDispatch
	Decompressor Decompressor
	BtreeStats   BtreeStatsApplier
	Metrics      MetricsSink
	Clock        clock.Clock
	PageSize     int
}
