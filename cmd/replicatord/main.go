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

// Command replicatord runs the page-server log replicator core as a
// standalone process, for exercising it outside the page server it is
// normally embedded in. It wires fake, no-op collaborators in place of
// the real log source, buffer pool and recovery dispatch table (out of
// scope per this module's own boundaries), so the only thing it
// demonstrates is the replicator's lifecycle and wait protocol.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/cubrid-db/pagesrv-replicator/roachpb"
	"github.com/cubrid-db/pagesrv-replicator/storage"
	"github.com/cubrid-db/pagesrv-replicator/util/clock"
	"github.com/cubrid-db/pagesrv-replicator/util/log"
	"github.com/cubrid-db/pagesrv-replicator/util/metric"
	"github.com/spf13/cobra"
)

var cfg = storage.Config{
	ParallelCount: 4,
	CalcReplDelay: true,
}

var startRedoPage int64
var startRedoOffset int32

var replicatordCmd = &cobra.Command{
	Use:   "replicatord",
	Short: "run the page-server log replicator core standalone",
	Long: `
replicatord starts a Replicator against a no-op log source and blocks
until interrupted, logging only its start and its shutdown. It exists
to exercise the replicator's lifecycle outside the page server that
would normally embed it; the log source, buffer pool and recovery
dispatch table are fakes compiled into this binary.
`,
	SilenceUsage: true,
	RunE:         runReplicatord,
}

func init() {
	f := replicatordCmd.Flags()
	f.IntVar(&cfg.ParallelCount, "replication-parallel-count", cfg.ParallelCount,
		"number of parallel redo workers; 0 means synchronous replication")
	f.BoolVar(&cfg.CalcReplDelay, "log-calc-repl-delay", cfg.CalcReplDelay,
		"compute and publish the REDO_REPL_DELAY metric for commit/abort/HA-state records")
	f.Int64Var(&startRedoPage, "start-redo-lsa-page", 0, "log page component of the starting redo LSA")
	f.Int32Var(&startRedoOffset, "start-redo-lsa-offset", 0, "offset component of the starting redo LSA")
}

func runReplicatord(cmd *cobra.Command, args []string) error {
	cfg.StartRedoLSA = roachpb.LogPosition{Page: startRedoPage, Offset: startRedoOffset}

	registry := metric.NewRegistry()
	deps := storage.Dependencies{
		LogSource:    newNoopLogSource(cfg.StartRedoLSA),
		BufferPool:   newNoopBufferPool(),
		Dispatch:     newNoopRecoveryDispatch(),
		Decompressor: noopDecompressor{},
		BtreeStats:   noopBtreeStatsApplier{},
		Metrics:      registry,
		Clock:        clock.Real,
		PageSize:     defaultPageSize,
	}

	r, err := storage.NewReplicator(cfg, deps)
	if err != nil {
		return err
	}
	defer r.Close()

	log.Infof("replicatord started at %s, parallel=%d", cfg.StartRedoLSA, cfg.ParallelCount)
	<-cmd.Context().Done()
	log.Infof("replicatord shutting down, waiting for replication to finish")
	return r.WaitReplicationFinishDuringShutdown(context.Background())
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := replicatordCmd.ExecuteContext(ctx); err != nil {
		log.Errorf("%v", err)
		os.Exit(1)
	}
}
