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

// Package proxyclient implements an HTTP CONNECT tunnel client, ported from
// the source's HTTPProxyClient: it turns an already-connected
// transport.Transport pointing at an HTTP proxy into an opaque byte pipe to
// an origin server.
package proxyclient

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/blueth-go/blueth/httpmsg"
	"github.com/blueth-go/blueth/httpparse"
	"github.com/blueth-go/blueth/internal/splitio"
	"github.com/blueth-go/blueth/transport"
)

// libraryTag is sent as the CONNECT request's User-Agent.
const libraryTag = "blueth/http-client"

// responseReadChunk bounds a single transport read while probing for the
// proxy's CONNECT response.
const responseReadChunk = 4096

var tracer = otel.Tracer("github.com/blueth-go/blueth/proxyclient")

// Result classifies the outcome of Connect.
type Result int

const (
	// InvalidResponse means the proxy's reply failed to parse as HTTP/1.1.
	InvalidResponse Result = iota
	// NetworkError means the CONNECT request could not be written or the
	// proxy's response could not be read.
	NetworkError
	// ConnectionSuccess means the proxy answered 2xx: the transport is now
	// a raw tunnel to the origin server.
	ConnectionSuccess
	// ProxyAuthRequired means the proxy answered 401: it requires
	// authentication and none was supplied on this CONNECT request.
	ProxyAuthRequired
	// AuthFailed means the proxy answered 407: Proxy-Authorization was
	// sent but the proxy rejected the username/password.
	AuthFailed
	// NoProxySupport means the proxy answered with any other status.
	NoProxySupport
)

func (r Result) String() string {
	switch r {
	case InvalidResponse:
		return "InvalidResponse"
	case NetworkError:
		return "NetworkError"
	case ConnectionSuccess:
		return "ConnectionSuccess"
	case ProxyAuthRequired:
		return "ProxyAuthRequired"
	case AuthFailed:
		return "AuthFailed"
	case NoProxySupport:
		return "NoProxySupport"
	default:
		return "Unknown"
	}
}

// ErrNotConnected is returned by Read/Write when called before a successful
// Connect.
var ErrNotConnected = errors.New("proxyclient: tunnel not established")

// Client turns a proxy-facing transport.Transport into a CONNECT tunnel.
// It is not safe for concurrent use.
type Client struct {
	t         transport.Transport
	connected bool
}

// New wraps an already-connected transport pointing at the proxy.
func New(t transport.Transport) *Client {
	return &Client{t: t}
}

// Connect issues "CONNECT host:port HTTP/1.1" to the proxy, optionally with
// HTTP Basic proxy authentication, and classifies the proxy's response. On
// ConnectionSuccess the underlying transport becomes a raw byte pipe to the
// origin server.
func (c *Client) Connect(ctx context.Context, originHost string, originPort uint16, user, pass *string) (Result, error) {
	_, span := tracer.Start(ctx, "proxyclient.Connect")
	defer span.End()
	span.SetAttributes(
		attribute.String("proxy.origin_host", originHost),
		attribute.Int64("proxy.origin_port", int64(originPort)),
	)

	req := httpmsg.NewRequest()
	req.Method = httpmsg.MethodConnect
	req.Target = fmt.Sprintf("%s:%d", originHost, originPort)
	req.Headers.Add("Host", req.Target)
	req.Headers.Add("User-Agent", libraryTag)
	req.Headers.Add("Proxy-Connection", "Keep-Alive")
	if user != nil && pass != nil {
		creds := base64.StdEncoding.EncodeToString([]byte(*user + ":" + *pass))
		req.Headers.Add("Proxy-Authorization", "Basic "+creds)
	}

	raw := []byte(req.BuildRaw())
	if _, err := c.t.Write(raw); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "write failed")
		return NetworkError, errors.Wrap(err, "proxyclient: write CONNECT request")
	}

	parser := httpparse.NewResponseParser()
	buf := c.t.Buffer()
	fed := 0
	for parser.State != httpparse.ResponseParsingDone && parser.State != httpparse.ResponseProtocolError {
		n, err := c.t.Read(responseReadChunk)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "read failed")
			return NetworkError, errors.Wrap(err, "proxyclient: read CONNECT response")
		}
		if n == 0 {
			break
		}

		data := buf.Bytes()
		chunk := data[fed:]
		parser.Feed(chunk)
		fed = len(data)

		// Fast-path probe: a bare CRLF line in the newly arrived chunk
		// means the header block just completed, so it's worth
		// recording even though the FSM's own state is authoritative.
		sc := splitio.NewScanner(chunk)
		for sc.Scan() {
			if line := sc.Bytes(); len(line) == len(splitio.CharCRLF) && line[0] == '\r' {
				span.AddEvent("proxy response headers complete")
			}
		}
	}

	if parser.State == httpparse.ResponseProtocolError {
		span.SetStatus(codes.Error, "protocol error")
		return InvalidResponse, nil
	}

	result := classify(parser.Message.StatusCode)
	if result == ConnectionSuccess {
		c.connected = true
	}
	span.SetAttributes(attribute.Int("proxy.status_code", parser.Message.StatusCode))
	return result, nil
}

// classify maps a 2xx/401/407/other status code per the proxy's response
// classification table: 401 means the proxy wants credentials we didn't
// send, 407 means it rejected the Proxy-Authorization we did send.
func classify(status int) Result {
	switch {
	case status >= 200 && status <= 299:
		return ConnectionSuccess
	case status == 401:
		return ProxyAuthRequired
	case status == 407:
		return AuthFailed
	default:
		return NoProxySupport
	}
}

// Read delegates to the underlying transport. It fails with
// ErrNotConnected unless Connect has already returned ConnectionSuccess.
func (c *Client) Read(n int) (int, error) {
	if !c.connected {
		return 0, ErrNotConnected
	}
	return c.t.Read(n)
}

// Write delegates to the underlying transport, guarded the same way as
// Read.
func (c *Client) Write(b []byte) (int, error) {
	if !c.connected {
		return 0, ErrNotConnected
	}
	return c.t.Write(b)
}
