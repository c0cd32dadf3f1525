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

package httpparse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blueth-go/blueth/httpmsg"
)

const getRequest = "GET /index.php HTTP/1.1\r\nAccept: */*\r\nUser-Agent: FB/CXX-Bot/12.32\r\nHost: Proxygen.fb.com\r\n\r\n"

func TestRequestParserGetRoundTrip(t *testing.T) {
	p := NewRequestParser()
	p.Feed([]byte(getRequest))

	require.Equal(t, ParsingDone, p.State)
	assert.Equal(t, httpmsg.MethodGet, p.Message.Method)
	assert.Equal(t, "/index.php", p.Message.Target)
	assert.Equal(t, httpmsg.Version11, p.Message.Version)
	assert.Equal(t, 3, p.Message.Headers.Len())
	v, ok := p.Message.Headers.Get("Accept")
	assert.True(t, ok)
	assert.Equal(t, "*/*", v)
	v, ok = p.Message.Headers.Get("Host")
	assert.True(t, ok)
	assert.Equal(t, "Proxygen.fb.com", v)
}

func TestRequestParserSplitFeedMatchesSingleFeed(t *testing.T) {
	splitAfter := "Accept: */*\r\n"
	idx := len(splitAfter) + len("GET /index.php HTTP/1.1\r\n")

	whole := NewRequestParser()
	whole.Feed([]byte(getRequest))

	split := NewRequestParser()
	split.Feed([]byte(getRequest[:idx]))
	split.Feed([]byte(getRequest[idx : idx+10]))
	split.Feed([]byte(getRequest[idx+10:]))

	assert.Equal(t, whole.State, split.State)
	assert.Equal(t, whole.Message, split.Message)
}

func TestRequestParserBadCRIsProtocolError(t *testing.T) {
	bad := []byte(getRequest)
	for i, c := range bad {
		if c == '\n' {
			bad[i] = '\r'
			break
		}
	}

	p := NewRequestParser()
	p.Feed(bad)

	assert.Equal(t, ProtocolError, p.State)
}

func TestRequestParserByteAtATimeResumability(t *testing.T) {
	whole := NewRequestParser()
	whole.Feed([]byte(getRequest))

	stepped := NewRequestParser()
	for i := 0; i < len(getRequest); i++ {
		stepped.Feed([]byte{getRequest[i]})
	}

	assert.Equal(t, whole.State, stepped.State)
	assert.Equal(t, whole.Message, stepped.Message)
}

func TestRequestParserPostEntersMessageBody(t *testing.T) {
	raw := "POST /submit HTTP/1.1\r\nContent-Length: 4\r\n\r\nabcd"
	p := NewRequestParser()
	p.Feed([]byte(raw))

	assert.Equal(t, httpmsg.MethodPost, p.Message.Method)
	assert.Equal(t, "abcd", string(p.Message.Body.Bytes()))
}

const movedResponse = "HTTP/1.1 301 Moved Permanently\r\n" +
	"Location: https://www.facebook.com/page.php\r\n" +
	"Content-Type: text/html; charset=UTF-8\r\n" +
	"Date: Sat, 24 Apr 2021 04:00:59 GMT\r\n" +
	"X-Powered-By: Proxygen/FB-CXX\r\n" +
	"Content-Length: 47\r\n\r\n" +
	"<html><h1>Moved somewhere, proxygen</h1></html>"

func TestResponseParser301WithBody(t *testing.T) {
	p := NewResponseParser()
	p.Feed([]byte(movedResponse))

	require.Equal(t, ResponseParsingDone, p.State)
	assert.Equal(t, 301, p.Message.StatusCode)
	assert.Equal(t, 5, p.Message.Headers.Len())
	body := p.Message.Body.Bytes()
	assert.Len(t, body, 47)
	assert.Equal(t, "<html><h1>Moved somewhere, proxygen</h1></html>", string(body))
}

func TestResponseParserWithoutContentLengthSkipsBody(t *testing.T) {
	raw := "HTTP/1.1 204 No Content\r\nConnection: close\r\n\r\n"
	p := NewResponseParser()
	p.Feed([]byte(raw))

	assert.Equal(t, ResponseParsingDone, p.State)
	assert.Equal(t, 204, p.Message.StatusCode)
	assert.Equal(t, 0, p.Message.Body.DataLen())
}

func TestResponseParserSplitFeedMatchesSingleFeed(t *testing.T) {
	whole := NewResponseParser()
	whole.Feed([]byte(movedResponse))

	mid := len(movedResponse) / 2
	split := NewResponseParser()
	split.Feed([]byte(movedResponse[:mid]))
	split.Feed([]byte(movedResponse[mid:]))

	assert.Equal(t, whole.State, split.State)
	assert.Equal(t, whole.Message, split.Message)
}
