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

package roachpb

// RecordType is the closed enumeration of log record types a page
// server's replicator understands. Types outside this set are skipped
// via RecordHeader.ForwardLSA rather than rejected, keeping the
// classifier forward-compatible with a primary that is newer than the
// page server.
type RecordType int32

// The record types the replicator dispatches on. Values outside this
// list are legal on the wire and are simply skipped.
const (
	RecordTypeUnknown RecordType = iota
	RecordTypeRedoData
	RecordTypeMVCCRedoData
	RecordTypeUndoRedoData
	RecordTypeDiffUndoRedoData
	RecordTypeMVCCUndoRedoData
	RecordTypeMVCCDiffUndoRedoData
	RecordTypeRunPostpone
	RecordTypeCompensate
	RecordTypeDBExternRedoData
	RecordTypeCommit
	RecordTypeAbort
	RecordTypeDummyHAServerState
)

var recordTypeNames = map[RecordType]string{
	RecordTypeUnknown:              "UNKNOWN",
	RecordTypeRedoData:             "REDO_DATA",
	RecordTypeMVCCRedoData:         "MVCC_REDO_DATA",
	RecordTypeUndoRedoData:         "UNDOREDO_DATA",
	RecordTypeDiffUndoRedoData:     "DIFF_UNDOREDO_DATA",
	RecordTypeMVCCUndoRedoData:     "MVCC_UNDOREDO_DATA",
	RecordTypeMVCCDiffUndoRedoData: "MVCC_DIFF_UNDOREDO_DATA",
	RecordTypeRunPostpone:          "RUN_POSTPONE",
	RecordTypeCompensate:           "COMPENSATE",
	RecordTypeDBExternRedoData:     "DBEXTERN_REDO_DATA",
	RecordTypeCommit:               "COMMIT",
	RecordTypeAbort:                "ABORT",
	RecordTypeDummyHAServerState:   "DUMMY_HA_SERVER_STATE",
}

func (t RecordType) String() string {
	if name, ok := recordTypeNames[t]; ok {
		return name
	}
	return "SKIPPED"
}

// RecordHeader is the fixed-size prefix present on every log record.
// ForwardLSA is the sole means of advancing the replicator's cursor:
// it must point strictly past the header's own LSA.
type RecordHeader struct {
	Type       RecordType
	ForwardLSA LogPosition
}

// RecoveryIndex selects a redo/undo handler pair from the recovery
// dispatch table. The table itself (RV[rcvindex] in the original) is
// an external collaborator; only the enumeration of indices this
// module cares about is defined here.
type RecoveryIndex int32

// GlobalUniqueStatsCommit is the recovery index that triggers the
// special b-tree unique-stats materialization path (spec §4.5) instead
// of ordinary page-bound redo.
const GlobalUniqueStatsCommit RecoveryIndex = 1

// MVCCID is a 64-bit monotonically allocated transaction id.
type MVCCID uint64

// NullMVCCID is the sentinel value meaning "no MVCC id".
const NullMVCCID MVCCID = 0

// Precedes reports whether id sorts strictly before other (mirroring
// MVCC_ID_PRECEDES, a plain comparison). NullMVCCID is 0 and so
// precedes every non-null id; callers exclude it before comparing.
func (id MVCCID) Precedes(other MVCCID) bool {
	return id < other
}

// Forward returns the next id after id, mirroring the MVCCID_FORWARD
// macro (simple increment; MVCCID never wraps in practice).
func (id MVCCID) Forward() MVCCID {
	return id + 1
}
