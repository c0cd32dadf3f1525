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
	"strconv"
	"strings"

	"golang.org/x/net/http/httpguts"

	"github.com/blueth-go/blueth/internal/bufbytes"
	"github.com/blueth-go/blueth/iobuf"
)

// statusScratchCap bounds the status-code accumulator at exactly three
// digits, the width of every HTTP/1.1 status code.
const statusScratchCap = 3

// Response is the typed container ResponseParser fills in.
type Response struct {
	Version    Version
	StatusCode int
	Headers    Headers
	Body       *iobuf.Buffer

	scratchStatus     *bufbytes.Bytes
	scratchHeaderName *bufbytes.Bytes
	scratchHeaderVal  *bufbytes.Bytes
}

// NewResponse returns a zero Response ready for ResponseParser to fill in.
func NewResponse() *Response {
	return &Response{
		Version: Version11,
		Headers: NewHeaders(),
		Body:    iobuf.New(2048),

		scratchStatus:     bufbytes.New(statusScratchCap),
		scratchHeaderName: bufbytes.New(headerScratchCap),
		scratchHeaderVal:  bufbytes.New(headerScratchCap),
	}
}

// PushStatusByte appends a digit to the in-progress three-byte status code.
func (r *Response) PushStatusByte(c byte) {
	r.scratchStatus.Write([]byte{c})
}

// ResolveStatus parses the accumulated digits into StatusCode and clears
// the scratch. An unparsable accumulator (should not happen if the FSM
// only pushes digits) leaves StatusCode at 0.
func (r *Response) ResolveStatus() {
	code, err := strconv.Atoi(r.scratchStatus.Text())
	if err == nil {
		r.StatusCode = code
	}
	r.scratchStatus.Reset()
}

// PushHeaderNameByte appends c to the in-progress header name.
func (r *Response) PushHeaderNameByte(c byte) {
	r.scratchHeaderName.Write([]byte{c})
}

// PushHeaderValueByte appends c to the in-progress header value.
func (r *Response) PushHeaderValueByte(c byte) {
	r.scratchHeaderVal.Write([]byte{c})
}

// CommitHeader promotes the scratch name/value pair into Headers, dropping
// it silently if it fails httpguts validation.
func (r *Response) CommitHeader() {
	name := r.scratchHeaderName.Text()
	value := r.scratchHeaderVal.Text()
	r.scratchHeaderName.Reset()
	r.scratchHeaderVal.Reset()

	if !httpguts.ValidHeaderFieldName(name) || httpguts.HeaderValueContainsNewline(value) {
		return
	}
	r.Headers.Add(name, value)
}

// AppendBody appends raw bytes to the body buffer.
func (r *Response) AppendBody(b []byte) {
	r.Body.Append(b)
}

// BuildRaw serializes the response to its wire form. An invalid/unknown
// status code yields an empty string.
func (r *Response) BuildRaw() string {
	phrase, ok := ReasonPhrase(r.StatusCode)
	if !ok {
		return ""
	}
	var b strings.Builder
	b.WriteString(string(Version11))
	b.WriteByte(' ')
	b.WriteString(strconv.Itoa(r.StatusCode))
	b.WriteByte(' ')
	b.WriteString(phrase)
	b.WriteString("\r\n")
	b.WriteString(r.Headers.BuildRaw())
	if r.Body != nil {
		b.Write(r.Body.Bytes())
	}
	return b.String()
}
