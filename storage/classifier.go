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

// classify dispatches a decoded RecordHeader by its type, implementing
// exactly the four patterns of spec §4.3. recLSA is the header's own
// position (not its ForwardLSA), the position every resulting RedoJob
// or synchronous application is keyed on.
func (r *Replicator) classify(ctx context.Context, header roachpb.RecordHeader, recLSA roachpb.LogPosition) error {
	switch header.Type {
	case roachpb.RecordTypeRedoData,
		roachpb.RecordTypeMVCCRedoData,
		roachpb.RecordTypeUndoRedoData,
		roachpb.RecordTypeDiffUndoRedoData,
		roachpb.RecordTypeMVCCUndoRedoData,
		roachpb.RecordTypeMVCCDiffUndoRedoData,
		roachpb.RecordTypeRunPostpone,
		roachpb.RecordTypeCompensate:
		return r.classifyGenericRedo(ctx, recLSA)

	case roachpb.RecordTypeDBExternRedoData:
		return r.classifyExternRedo(ctx, recLSA)

	case roachpb.RecordTypeCommit,
		roachpb.RecordTypeAbort,
		roachpb.RecordTypeDummyHAServerState:
		return r.classifyTimestamped(ctx, recLSA)

	default:
		// Forward-compatible skip: the caller advances the cursor to
		// header.ForwardLSA once classify returns: nothing further to do.
		return nil
	}
}

// classifyGenericRedo implements spec §4.4: decode the type-specific
// record, bump the MVCC generator, then branch on recovery index
// between the b-tree stats path (§4.5) and ordinary generic redo
// (§4.6).
func (r *Replicator) classifyGenericRedo(ctx context.Context, recLSA roachpb.LogPosition) error {
	if err := r.reader.AdvanceWhenDoesNotFit(ctx, FixedSize[roachpb.GenericRedoBody]()); err != nil {
		return errors.Wrapf(err, "advancing past page boundary before generic redo body at %s", recLSA)
	}
	body, err := DecodeFixed[roachpb.GenericRedoBody](r.reader)
	if err != nil {
		return errors.Wrapf(err, "decoding generic redo body at %s", recLSA)
	}
	r.mvcc.Bump(body.MVCCID)

	data, err := r.reader.ReadBytes(int(body.DataLength))
	if err != nil {
		return errors.Wrapf(err, "reading redo data block at %s", recLSA)
	}
	if body.IsCompressed() {
		data, err = r.decompressor.Decompress(data)
		if err != nil {
			return errors.Wrapf(err, "decompressing redo data block at %s", recLSA)
		}
	}

	if body.RcvIndex == roachpb.GlobalUniqueStatsCommit {
		stats, err := decodeBtreeStatsBody(data, recLSA)
		if err != nil {
			return err
		}
		return r.dispatchBtreeStats(ctx, stats.BTID.RootVPID(), recLSA, stats.Stats)
	}
	return r.dispatchGenericRedo(ctx, body.VPID, recLSA, body.RcvIndex, data)
}

// classifyExternRedo implements spec §4.3's DBEXTERN_REDO_DATA row:
// the handler runs synchronously regardless of parallelism, bypassing
// the engine and its per-page queues. It is applied through
// applyGenericRedo like any generic redo, so it fixes the page named by
// the body's VPID and fails if that page does not exist; the handler
// is never invoked without a page.
func (r *Replicator) classifyExternRedo(ctx context.Context, recLSA roachpb.LogPosition) error {
	if err := r.reader.AdvanceWhenDoesNotFit(ctx, FixedSize[roachpb.GenericRedoBody]()); err != nil {
		return errors.Wrapf(err, "advancing past page boundary before extern redo body at %s", recLSA)
	}
	body, err := DecodeFixed[roachpb.GenericRedoBody](r.reader)
	if err != nil {
		return errors.Wrapf(err, "decoding extern redo body at %s", recLSA)
	}
	data, err := r.reader.ReadBytes(int(body.DataLength))
	if err != nil {
		return errors.Wrapf(err, "reading extern redo data block at %s", recLSA)
	}
	if body.IsCompressed() {
		data, err = r.decompressor.Decompress(data)
		if err != nil {
			return errors.Wrapf(err, "decompressing extern redo data block at %s", recLSA)
		}
	}
	return applyGenericRedo(ctx, r.pool, r.dispatch, body.VPID, recLSA, body.RcvIndex, data)
}

// classifyTimestamped implements spec §4.3's COMMIT/ABORT/
// DUMMY_HA_SERVER_STATE row: extract the embedded timestamp and run or
// enqueue the delay probe.
func (r *Replicator) classifyTimestamped(ctx context.Context, recLSA roachpb.LogPosition) error {
	if err := r.reader.AdvanceWhenDoesNotFit(ctx, FixedSize[roachpb.TimestampedBody]()); err != nil {
		return errors.Wrapf(err, "advancing past page boundary before timestamped body at %s", recLSA)
	}
	body, err := DecodeFixed[roachpb.TimestampedBody](r.reader)
	if err != nil {
		return errors.Wrapf(err, "decoding timestamped body at %s", recLSA)
	}
	return r.dispatchDelayProbe(ctx, body.AtTimeMsec, recLSA)
}

func decodeBtreeStatsBody(data []byte, recLSA roachpb.LogPosition) (roachpb.BtreeStatsBody, error) {
	var out roachpb.BtreeStatsBody
	tmp := NewLogReader(nil, len(data))
	tmp.curPage = data
	tmp.curLSA = roachpb.LogPosition{Page: recLSA.Page, Offset: 0}
	body, err := DecodeFixed[roachpb.BtreeStatsBody](tmp)
	if err != nil {
		return out, errors.Wrapf(err, "decoding b-tree stats body at %s", recLSA)
	}
	return body, nil
}
