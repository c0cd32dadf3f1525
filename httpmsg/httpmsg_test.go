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

package httpmsg

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRequestBuildRaw(t *testing.T) {
	req := NewRequest()
	for _, c := range []byte("GET") {
		req.PushMethodByte(c)
	}
	req.ResolveMethod()
	req.Target = "/status"
	req.Headers.Add("Host", "example.com")

	assert.Equal(t, "GET /status HTTP/1.1\r\nHost: example.com\r\n\r\n", req.BuildRaw())
}

func TestRequestUnsupportedMethodEmitsLiteral(t *testing.T) {
	req := NewRequest()
	for _, c := range []byte("PATCH") {
		req.PushMethodByte(c)
	}
	req.ResolveMethod()
	req.Target = "/"

	assert.Equal(t, MethodUnsupported, req.Method)
	assert.Equal(t, "UNSUPPORTED / HTTP/1.1\r\n\r\n", req.BuildRaw())
}

func TestRequestCommitHeaderDropsSmuggledNewline(t *testing.T) {
	req := NewRequest()
	req.Headers.Add("X-Good", "ok")
	for _, c := range []byte("X-Evil") {
		req.PushHeaderNameByte(c)
	}
	for _, c := range []byte("value\r\nSmuggled: true") {
		req.PushHeaderValueByte(c)
	}
	req.CommitHeader()

	assert.False(t, req.Headers.Has("X-Evil"))
	assert.Equal(t, 1, req.Headers.Len())
}

func TestResponseBuildRaw(t *testing.T) {
	resp := NewResponse()
	for _, c := range []byte("200") {
		resp.PushStatusByte(c)
	}
	resp.ResolveStatus()
	resp.Headers.Add("Content-Length", "0")

	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, "HTTP/1.1 200 OK\r\nContent-Length: 0\r\n\r\n", resp.BuildRaw())
}

func TestResponseUnknownStatusBuildsEmpty(t *testing.T) {
	resp := NewResponse()
	for _, c := range []byte("999") {
		resp.PushStatusByte(c)
	}
	resp.ResolveStatus()

	assert.Equal(t, "", resp.BuildRaw())
}

func TestHeadersBuildRawTerminatesWithBareCRLF(t *testing.T) {
	h := NewHeaders()
	assert.Equal(t, "\r\n", h.BuildRaw())
}
