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

package transport

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pipeTransports(t *testing.T) (*Plain, *Plain) {
	t.Helper()
	client, server := net.Pipe()
	return NewPlain(client), NewPlain(server)
}

func TestTransportWriteThenRead(t *testing.T) {
	client, server := pipeTransports(t)
	defer client.Close()
	defer server.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		n, err := client.Write([]byte("ping"))
		assert.NoError(t, err)
		assert.Equal(t, 4, n)
	}()

	read, err := server.Read(4)
	require.NoError(t, err)
	assert.Equal(t, 4, read)
	assert.Equal(t, "ping", string(server.Buffer().Bytes()))
	<-done
}

func TestTransportReadCallbackFires(t *testing.T) {
	client, server := pipeTransports(t)
	defer client.Close()
	defer server.Close()

	var seen string
	server.SetReadCallback(func(data []byte) {
		seen = string(data)
	})

	go client.Write([]byte("hello"))
	_, err := server.Read(5)
	require.NoError(t, err)
	assert.Equal(t, "hello", seen)
}

func TestTransportCloseIsIdempotentAndRejectsIO(t *testing.T) {
	client, server := pipeTransports(t)
	defer server.Close()

	require.NoError(t, client.Close())
	require.NoError(t, client.Close())

	_, err := client.Read(1)
	assert.ErrorIs(t, err, ErrClosed)

	_, err = client.Write([]byte("x"))
	assert.ErrorIs(t, err, ErrClosed)
}

func TestTransportTakeAndSetBuffer(t *testing.T) {
	client, server := pipeTransports(t)
	defer client.Close()
	defer server.Close()

	taken := server.TakeBuffer()
	assert.Nil(t, server.Buffer())

	server.SetBuffer(taken)
	assert.NotNil(t, server.Buffer())
}
