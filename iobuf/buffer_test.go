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

package iobuf

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBufferAppendGrows(t *testing.T) {
	b := New(10)
	b.Append([]byte("Hello"))
	assert.Equal(t, 5, b.DataLen())
	assert.Equal(t, byte('o'), b.Bytes()[4])

	blob := bytes.Repeat([]byte{'x'}, 10240)
	b.Append(blob)

	assert.Equal(t, 5+10240, b.DataLen())
	assert.GreaterOrEqual(t, b.Capacity(), 10240)
	assert.Equal(t, byte('o'), b.Bytes()[4])
}

func TestBufferAppendNeverShiftsStart(t *testing.T) {
	b := New(4)
	b.Append([]byte("abcd"))
	require.NoError(t, b.AdvanceStart(2))
	assert.Equal(t, 2, b.Start())

	b.Append(bytes.Repeat([]byte{'z'}, 64))
	assert.Equal(t, 2, b.Start(), "growth must not shift start back toward zero")
	assert.Equal(t, "cd"+string(bytes.Repeat([]byte{'z'}, 64)), string(b.Bytes()))
}

func TestBufferAdvanceStartRejectsOverconsume(t *testing.T) {
	b := New(4)
	b.Append([]byte("ab"))
	err := b.AdvanceStart(3)
	assert.ErrorIs(t, err, ErrOverconsume)
}

func TestBufferAdvanceEndRejectsOverfill(t *testing.T) {
	b := New(4)
	err := b.AdvanceEnd(5)
	assert.ErrorIs(t, err, ErrOverfill)
}

func TestBufferAdvanceEndFillsFreeBytesDirectly(t *testing.T) {
	b := New(8)
	n := copy(b.FreeBytes(), []byte("recv"))
	require.NoError(t, b.AdvanceEnd(n))
	assert.Equal(t, "recv", string(b.Bytes()))
}

func TestBufferClearDoesNotDeallocate(t *testing.T) {
	b := New(16)
	b.Append([]byte("payload"))
	capBefore := b.Capacity()
	b.Clear()

	assert.Equal(t, 0, b.Start())
	assert.Equal(t, 0, b.End())
	assert.Equal(t, capBefore, b.Capacity())
}

func TestBufferInvariantStartEndCapacity(t *testing.T) {
	b := New(2)
	ops := [][]byte{[]byte("a"), []byte("bcdefgh"), []byte("ij"), {}}
	for _, op := range ops {
		b.Append(op)
		assert.LessOrEqual(t, 0, b.Start())
		assert.LessOrEqual(t, b.Start(), b.End())
		assert.LessOrEqual(t, b.End(), b.Capacity())
	}
	require.NoError(t, b.AdvanceStart(b.DataLen()))
	assert.LessOrEqual(t, b.Start(), b.End())
}

func TestBufferAppendBuffer(t *testing.T) {
	a := New(4)
	a.Append([]byte("foo"))
	other := New(4)
	other.Append([]byte("bar"))

	a.AppendBuffer(other)
	assert.Equal(t, "foobar", string(a.Bytes()))
}
