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

package proxyclient

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blueth-go/blueth/transport"
)

// fakeProxy reads a CONNECT request off conn and writes back resp.
func fakeProxy(t *testing.T, conn net.Conn, resp string) {
	t.Helper()
	go func() {
		buf := make([]byte, 4096)
		_, _ = conn.Read(buf)
		_, _ = conn.Write([]byte(resp))
		_ = conn.Close()
	}()
}

func TestConnectSuccess(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	fakeProxy(t, server, "HTTP/1.1 200 Connection Established\r\n\r\n")

	c := New(transport.NewPlain(client))
	result, err := c.Connect(context.Background(), "origin.example.com", 443, nil, nil)

	require.NoError(t, err)
	assert.Equal(t, ConnectionSuccess, result)

	_, err = c.Write([]byte("hi"))
	assert.Error(t, err)
}

func TestConnectAuthRequired(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	fakeProxy(t, server, "HTTP/1.1 401 Unauthorized\r\nProxy-Authenticate: Basic\r\n\r\n")

	c := New(transport.NewPlain(client))
	result, err := c.Connect(context.Background(), "origin.example.com", 443, nil, nil)

	require.NoError(t, err)
	assert.Equal(t, ProxyAuthRequired, result)
}

func TestConnectAuthFailed(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	fakeProxy(t, server, "HTTP/1.1 407 Proxy Authentication Required\r\n\r\n")

	user, pass := "alice", "wrong-password"
	c := New(transport.NewPlain(client))
	result, err := c.Connect(context.Background(), "origin.example.com", 443, &user, &pass)

	require.NoError(t, err)
	assert.Equal(t, AuthFailed, result)
}

func TestConnectNoProxySupport(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	fakeProxy(t, server, "HTTP/1.1 404 Not Found\r\n\r\n")

	c := New(transport.NewPlain(client))
	result, err := c.Connect(context.Background(), "origin.example.com", 443, nil, nil)

	require.NoError(t, err)
	assert.Equal(t, NoProxySupport, result)
}

func TestConnectInvalidResponse(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	fakeProxy(t, server, "garbage not http\r\n\r\n")

	c := New(transport.NewPlain(client))
	result, err := c.Connect(context.Background(), "origin.example.com", 443, nil, nil)

	require.NoError(t, err)
	assert.Equal(t, InvalidResponse, result)
}

func TestReadWriteBeforeConnectFails(t *testing.T) {
	client, _ := net.Pipe()
	defer client.Close()

	c := New(transport.NewPlain(client))
	_, err := c.Read(16)
	assert.ErrorIs(t, err, ErrNotConnected)

	_, err = c.Write([]byte("x"))
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestConnectWithBasicAuthHeader(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()

	received := make(chan string, 1)
	go func() {
		buf := make([]byte, 4096)
		n, _ := server.Read(buf)
		received <- string(buf[:n])
		_, _ = server.Write([]byte("HTTP/1.1 200 OK\r\n\r\n"))
		_ = server.Close()
	}()

	user, pass := "alice", "secret"
	c := New(transport.NewPlain(client))
	_, err := c.Connect(context.Background(), "origin.example.com", 8443, &user, &pass)
	require.NoError(t, err)

	select {
	case req := <-received:
		assert.Contains(t, req, "CONNECT origin.example.com:8443 HTTP/1.1\r\n")
		assert.Contains(t, req, "Proxy-Authorization: Basic ")
	case <-time.After(time.Second):
		t.Fatal("proxy never received request")
	}
}
