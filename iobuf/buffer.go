// Copyright 2025 The blueth Authors
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package iobuf implements the owned, growable byte region every reactor
// peer and blocking transport reads into and drains from.
//
//	        start                        end
//	          |                           |
//	          v                           v
//	   +------+---------------------------+------------+
//	   | sent |           data            |   un-init  |
//	   +------+---------------------------+------------+
//	   ^                                               ^
//	   0                                          capacity
//
// A Buffer never shifts data left to reclaim the region before start — a
// caller either Clears it or pays the one-time copy cost of a growing
// Append. That tradeoff is what keeps non-blocking recv/send loops free of
// reassembly logic: there is exactly one contiguous region to fill and one
// contiguous region to drain, and a parser can always restart at start.
package iobuf

import "github.com/pkg/errors"

// ErrOverconsume is returned by AdvanceStart when delta exceeds the data
// currently held in [start, end).
var ErrOverconsume = errors.New("iobuf: advance_start exceeds data length")

// ErrOverfill is returned by AdvanceEnd when delta exceeds the free space
// currently held in [end, capacity).
var ErrOverfill = errors.New("iobuf: advance_end exceeds free space")

// Buffer is an owned, growable byte region with explicit start/end offsets
// over a single backing array. The zero value is not usable; build one with
// New.
type Buffer struct {
	buf   []byte
	start int
	end   int
}

// New allocates a Buffer with the given initial capacity.
func New(capacity int) *Buffer {
	if capacity < 0 {
		capacity = 0
	}
	return &Buffer{buf: make([]byte, capacity)}
}

// Capacity returns the size of the underlying allocation.
func (b *Buffer) Capacity() int {
	return cap(b.buf)
}

// Start returns the current start offset (bytes already consumed).
func (b *Buffer) Start() int {
	return b.start
}

// End returns the current end offset (bytes filled).
func (b *Buffer) End() int {
	return b.end
}

// DataLen returns end - start, the size of the readable data region.
func (b *Buffer) DataLen() int {
	return b.end - b.start
}

// FreeSpace returns capacity - end, the room left before a growing Append
// is needed.
func (b *Buffer) FreeSpace() int {
	return cap(b.buf) - b.end
}

// Bytes returns the current data region [start, end). The slice is stable
// only until the next growing Append or Clear; callers must not retain it
// across those calls.
func (b *Buffer) Bytes() []byte {
	return b.buf[b.start:b.end]
}

// FreeBytes returns the writable region [end, capacity), for callers (e.g.
// a transport's Read) that fill the buffer directly instead of through
// Append.
func (b *Buffer) FreeBytes() []byte {
	return b.buf[b.end:cap(b.buf)]
}

// Append copies src to position end, growing the buffer first if
// necessary, then advances end by len(src). Growth at least doubles
// capacity and always preserves [0, end); it never shifts start back
// toward zero.
func (b *Buffer) Append(src []byte) {
	n := len(src)
	if n == 0 {
		return
	}
	b.growFor(n)
	copy(b.buf[b.end:b.end+n], src)
	b.end += n
}

// AppendBuffer appends other's data region, equivalent to
// Append(other.Bytes()).
func (b *Buffer) AppendBuffer(other *Buffer) {
	b.Append(other.Bytes())
}

// growFor ensures at least n bytes of free space past end, growing to
// max(2*capacity, end+n) when it doesn't already fit.
func (b *Buffer) growFor(n int) {
	if b.FreeSpace() >= n {
		return
	}
	need := b.end + n
	newCap := cap(b.buf) * 2
	if newCap < need {
		newCap = need
	}
	grown := make([]byte, newCap)
	copy(grown, b.buf[:b.end])
	b.buf = grown
}

// Grow ensures at least n bytes of free space past end, so a caller that
// fills FreeBytes directly (e.g. a transport's Read) doesn't read into a
// short slice. Growth follows the same max(2*capacity, end+n) rule as
// Append and never shifts start.
func (b *Buffer) Grow(n int) {
	b.growFor(n)
}

// AdvanceStart records that delta bytes of the data region have been
// consumed, e.g. sent on the wire by a transport's Write.
func (b *Buffer) AdvanceStart(delta int) error {
	if delta < 0 || delta > b.DataLen() {
		return errors.Wrapf(ErrOverconsume, "delta=%d data_len=%d", delta, b.DataLen())
	}
	b.start += delta
	return nil
}

// AdvanceEnd records that delta bytes were filled in past end by an
// external writer, e.g. a recv that wrote directly into FreeBytes.
func (b *Buffer) AdvanceEnd(delta int) error {
	if delta < 0 || delta > b.FreeSpace() {
		return errors.Wrapf(ErrOverfill, "delta=%d free_space=%d", delta, b.FreeSpace())
	}
	b.end += delta
	return nil
}

// Clear resets start and end to zero without deallocating the backing
// array.
func (b *Buffer) Clear() {
	b.start = 0
	b.end = 0
}
