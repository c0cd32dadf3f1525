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
	"strings"

	"golang.org/x/net/http/httpguts"

	"github.com/blueth-go/blueth/internal/bufbytes"
	"github.com/blueth-go/blueth/iobuf"
)

// Scratch field caps: a single slow-sending peer must not be able to grow
// a method or header accumulator without bound while the parser is still
// mid-message. targetScratchCap is not applied: Target is appended to
// directly and has no cap (see PushTargetByte).
const (
	methodScratchCap = 16
	targetScratchCap = 8192
	headerScratchCap = 8192
)

// Request is the typed container RequestParser fills in. Method, Target,
// Version, and Headers hold the promoted, validated message; the scratch
// fields hold whatever the parser is accumulating mid-field.
type Request struct {
	Method  Method
	Target  string
	Version Version
	Headers Headers
	Body    *iobuf.Buffer

	scratchMethod     *bufbytes.Bytes
	scratchHeaderName *bufbytes.Bytes
	scratchHeaderVal  *bufbytes.Bytes
}

// NewRequest returns a zero Request ready for RequestParser to fill in.
func NewRequest() *Request {
	return &Request{
		Method:  MethodUnsupported,
		Version: Version11,
		Headers: NewHeaders(),
		Body:    iobuf.New(2048),

		scratchMethod:     bufbytes.New(methodScratchCap),
		scratchHeaderName: bufbytes.New(headerScratchCap),
		scratchHeaderVal:  bufbytes.New(headerScratchCap),
	}
}

// PushMethodByte appends c to the in-progress method token.
func (r *Request) PushMethodByte(c byte) {
	r.scratchMethod.Write([]byte{c})
}

// ResolveMethod promotes the scratch method token into Method, defaulting
// to MethodUnsupported for an unrecognized token, and clears the scratch.
func (r *Request) ResolveMethod() {
	r.Method = MethodFromToken(r.scratchMethod.Text())
	r.scratchMethod.Reset()
}

// PushTargetByte appends c to Target directly; the target resource string
// has no bound beyond the transport's own buffer, unlike header scratch.
func (r *Request) PushTargetByte(c byte) {
	r.Target += string(c)
}

// PushHeaderNameByte appends c to the in-progress header name.
func (r *Request) PushHeaderNameByte(c byte) {
	r.scratchHeaderName.Write([]byte{c})
}

// PushHeaderValueByte appends c to the in-progress header value.
func (r *Request) PushHeaderValueByte(c byte) {
	r.scratchHeaderVal.Write([]byte{c})
}

// CommitHeader promotes the scratch name/value pair into Headers and
// clears both scratch accumulators. A name or value that fails httpguts
// validation (e.g. a smuggled CRLF) is dropped silently rather than
// corrupting the header collection.
func (r *Request) CommitHeader() {
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
func (r *Request) AppendBody(b []byte) {
	r.Body.Append(b)
}

// BuildRaw serializes the request to its wire form. MethodUnsupported
// emits the literal "UNSUPPORTED " — preserved for compatibility with the
// reference behavior, which never emits a usable request line for an
// unrecognized method.
func (r *Request) BuildRaw() string {
	var b strings.Builder
	switch r.Method {
	case MethodUnsupported:
		b.WriteString("UNSUPPORTED ")
	default:
		b.WriteString(string(r.Method))
		b.WriteByte(' ')
	}
	b.WriteString(r.Target)
	b.WriteByte(' ')
	b.WriteString(string(Version11))
	b.WriteString("\r\n")
	b.WriteString(r.Headers.BuildRaw())
	if r.Body != nil {
		b.Write(r.Body.Bytes())
	}
	return b.String()
}
