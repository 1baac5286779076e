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

// GenericRedoBody is the fixed-size structure following a RecordHeader
// for every record type that carries a page-bound redo image:
// REDO_DATA, MVCC_REDO_DATA, UNDOREDO_DATA, DIFF_UNDOREDO_DATA,
// MVCC_UNDOREDO_DATA, MVCC_DIFF_UNDOREDO_DATA, RUN_POSTPONE, COMPENSATE
// and DBEXTERN_REDO_DATA alike. MVCCID is NullMVCCID on record types
// that do not carry MVCC information.
type GenericRedoBody struct {
	VPID       PageIdentifier
	MVCCID     MVCCID
	RcvIndex   RecoveryIndex
	Compressed int32
	DataLength int32
}

// IsCompressed reports whether the record's data block needs to pass
// through the Decompressor before use.
func (b GenericRedoBody) IsCompressed() bool {
	return b.Compressed != 0
}

// BtreeStatsBody is the fixed-size structure decoded from a generic
// redo record's data block once RcvIndex == GlobalUniqueStatsCommit.
type BtreeStatsBody struct {
	BTID  BTID
	Stats UniqueStats
}

// TimestampedBody is the fixed-size structure following a RecordHeader
// for COMMIT, ABORT, and DUMMY_HA_SERVER_STATE records.
type TimestampedBody struct {
	AtTimeMsec int64
}
