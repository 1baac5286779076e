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
	"bytes"
	"context"
	"encoding/binary"
	"sync"

	"github.com/cubrid-db/pagesrv-replicator/roachpb"
)

// logBuilder assembles a single-page fake redo log byte-for-byte
// compatible with LogReader's DecodeFixed/ReadBytes (little-endian,
// fields packed with no struct padding, each record 8-byte aligned).
type logBuilder struct {
	buf bytes.Buffer
}

func appendFixed(buf *bytes.Buffer, v interface{}) {
	if err := binary.Write(buf, binary.LittleEndian, v); err != nil {
		panic(err)
	}
	size := binary.Size(v)
	if pad := alignUp(size) - size; pad > 0 {
		buf.Write(make([]byte, pad))
	}
}

func appendRaw(buf *bytes.Buffer, data []byte) {
	buf.Write(data)
	if pad := alignUp(len(data)) - len(data); pad > 0 {
		buf.Write(make([]byte, pad))
	}
}

func (b *logBuilder) offset() int32 { return int32(b.buf.Len()) }

func (b *logBuilder) lsa() roachpb.LogPosition {
	return roachpb.LogPosition{Page: 0, Offset: b.offset()}
}

// addGenericRedo appends a generic-redo-shaped record (covers
// REDO_DATA, MVCC_REDO_DATA, ..., DBEXTERN_REDO_DATA alike) and returns
// its own LSA.
func (b *logBuilder) addGenericRedo(
	typ roachpb.RecordType, vpid roachpb.PageIdentifier, mvccid roachpb.MVCCID, rcvIndex roachpb.RecoveryIndex, data []byte,
) roachpb.LogPosition {
	recLSA := b.lsa()
	headerSize := alignUp(FixedSize[roachpb.RecordHeader]())
	bodySize := alignUp(FixedSize[roachpb.GenericRedoBody]())
	dataSize := alignUp(len(data))
	forward := roachpb.LogPosition{Page: 0, Offset: recLSA.Offset + int32(headerSize+bodySize+dataSize)}

	appendFixed(&b.buf, roachpb.RecordHeader{Type: typ, ForwardLSA: forward})
	appendFixed(&b.buf, roachpb.GenericRedoBody{
		VPID:       vpid,
		MVCCID:     mvccid,
		RcvIndex:   rcvIndex,
		DataLength: int32(len(data)),
	})
	appendRaw(&b.buf, data)
	return recLSA
}

// addTimestamped appends a COMMIT/ABORT/DUMMY_HA_SERVER_STATE-shaped
// record and returns its own LSA.
func (b *logBuilder) addTimestamped(typ roachpb.RecordType, atTimeMsec int64) roachpb.LogPosition {
	recLSA := b.lsa()
	headerSize := alignUp(FixedSize[roachpb.RecordHeader]())
	bodySize := alignUp(FixedSize[roachpb.TimestampedBody]())
	forward := roachpb.LogPosition{Page: 0, Offset: recLSA.Offset + int32(headerSize+bodySize)}

	appendFixed(&b.buf, roachpb.RecordHeader{Type: typ, ForwardLSA: forward})
	appendFixed(&b.buf, roachpb.TimestampedBody{AtTimeMsec: atTimeMsec})
	return recLSA
}

func encodeBtreeStatsBody(btid roachpb.BTID, stats roachpb.UniqueStats) []byte {
	var buf bytes.Buffer
	appendFixed(&buf, roachpb.BtreeStatsBody{BTID: btid, Stats: stats})
	return buf.Bytes()
}

// fakeLogSource is an in-memory single-page log: every LSA this
// module's tests construct has Page == 0.
type fakeLogSource struct {
	mu   sync.Mutex
	data []byte
}

func newFakeLogSource(b *logBuilder) *fakeLogSource {
	return &fakeLogSource{data: append([]byte(nil), b.buf.Bytes()...)}
}

func (s *fakeLogSource) NxioLSA() roachpb.LogPosition {
	s.mu.Lock()
	defer s.mu.Unlock()
	return roachpb.LogPosition{Page: 0, Offset: int32(len(s.data))}
}

func (s *fakeLogSource) FetchPage(ctx context.Context, pageID int64) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data, nil
}

// fakePage is a buffer-pool page backing store for tests: raw bytes
// plus whatever the b-tree stats applier last wrote.
type fakePage struct {
	mu    sync.Mutex
	data  []byte
	lsa   roachpb.LogPosition
	stats roachpb.UniqueStats
}

func newFakePage(size int) *fakePage { return &fakePage{data: make([]byte, size)} }

func (p *fakePage) SetLSA(lsa roachpb.LogPosition) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.lsa = lsa
}

func (p *fakePage) SetDirtyAndFree() {}

func (p *fakePage) Bytes() []byte { return p.data }

func (p *fakePage) LSA() roachpb.LogPosition {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lsa
}

// fakeBufferPool indexes fakePages by VPID; FixForRedo on an
// unregistered VPID returns (nil, nil), mirroring the contract that a
// missing page comes back as a nil PagePtr rather than an error.
type fakeBufferPool struct {
	mu    sync.Mutex
	pages map[roachpb.PageIdentifier]*fakePage
}

func newFakeBufferPool() *fakeBufferPool {
	return &fakeBufferPool{pages: map[roachpb.PageIdentifier]*fakePage{}}
}

func (p *fakeBufferPool) createPage(vpid roachpb.PageIdentifier, size int) *fakePage {
	p.mu.Lock()
	defer p.mu.Unlock()
	pg := newFakePage(size)
	p.pages[vpid] = pg
	return pg
}

func (p *fakeBufferPool) FixForRedo(ctx context.Context, vpid roachpb.PageIdentifier, rcvIndex roachpb.RecoveryIndex) (Page, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	pg, ok := p.pages[vpid]
	if !ok {
		return nil, nil
	}
	return pg, nil
}

// fakeRecoveryDispatch is a closed RecoveryIndex -> RedoFunc table
// built up by RegisterFunc, standing in for the page server's RV[].
type fakeRecoveryDispatch struct {
	handlers map[roachpb.RecoveryIndex]RedoFunc
}

func newFakeRecoveryDispatch() *fakeRecoveryDispatch {
	return &fakeRecoveryDispatch{handlers: map[roachpb.RecoveryIndex]RedoFunc{}}
}

func (d *fakeRecoveryDispatch) RegisterFunc(idx roachpb.RecoveryIndex, fn RedoFunc) {
	d.handlers[idx] = fn
}

func (d *fakeRecoveryDispatch) RedoFunc(idx roachpb.RecoveryIndex) (RedoFunc, bool) {
	fn, ok := d.handlers[idx]
	return fn, ok
}

// writeBytesHandler overwrites the page's leading bytes with data.
func writeBytesHandler(ctx context.Context, page Page, data []byte) error {
	copy(page.Bytes(), data)
	return nil
}

// incrementCounterHandler treats the page's first 8 bytes as a
// little-endian uint64 counter and increments it by one; used by the
// same-page contention scenario, where only strict per-page ordering
// keeps the final value correct.
func incrementCounterHandler(ctx context.Context, page Page, data []byte) error {
	b := page.Bytes()
	v := binary.LittleEndian.Uint64(b[:8])
	binary.LittleEndian.PutUint64(b[:8], v+1)
	return nil
}

type fakeBtreeStatsApplier struct{}

func (fakeBtreeStatsApplier) MergeUniqueStats(page Page, stats roachpb.UniqueStats) {
	page.(*fakePage).mu.Lock()
	defer page.(*fakePage).mu.Unlock()
	page.(*fakePage).stats = stats
}

type fakeDecompressor struct{}

func (fakeDecompressor) Decompress(data []byte) ([]byte, error) { return data, nil }

// fakeMetricsSink records every SetStat call, for assertions on which
// metrics were observed and with what values.
type fakeMetricsSink struct {
	mu      sync.Mutex
	samples map[string][]int64
}

func newFakeMetricsSink() *fakeMetricsSink {
	return &fakeMetricsSink{samples: map[string][]int64{}}
}

func (m *fakeMetricsSink) SetStat(kind string, value int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.samples[kind] = append(m.samples[kind], value)
}

func (m *fakeMetricsSink) valuesFor(kind string) []int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]int64(nil), m.samples[kind]...)
}
