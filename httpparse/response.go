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

import "github.com/blueth-go/blueth/httpmsg"

// ResponseState is a state of the response parser FSM.
type ResponseState int

// Response parser states, in the order the source's ResponseParserState
// enum lists them.
const (
	ResponseProtocolH ResponseState = iota
	ResponseProtocolT1
	ResponseProtocolT2
	ResponseProtocolP
	ResponseProtocolSlash
	ResponseProtocolVersionMajor
	ResponseProtocolDot
	ResponseProtocolVersionMinor
	StatusCode
	ResponseReasonPhrase
	StatusLineLF
	ResponseHeaderName
	ResponseHeaderValue
	ResponseHeaderValueLF
	ResponseHeaderEndLF
	ResponseMessageBody
	ResponseParsingDone
	ResponseProtocolError
)

// ResponseParser drives a Response through the status-line/header/body FSM
// one buffer slice at a time, with the same resumability contract as
// RequestParser.
type ResponseParser struct {
	State   ResponseState
	Message *httpmsg.Response

	// prevByte is the last byte consumed across any Feed call; see
	// RequestParser.prevByte.
	prevByte byte
}

// NewResponseParser returns a parser positioned at ResponseProtocolH with a
// fresh Message.
func NewResponseParser() *ResponseParser {
	return &ResponseParser{
		State:   ResponseProtocolH,
		Message: httpmsg.NewResponse(),
	}
}

// Feed drives the FSM across data, resuming from p.State. See
// RequestParser.Feed for the resumability contract.
func (p *ResponseParser) Feed(data []byte) {
	i := 0
	n := len(data)

loop:
	for i < n {
		c := data[i]
		iBefore := i
		switch p.State {
		case ResponseProtocolH:
			i = p.matchLiteral(data, i, 'H', ResponseProtocolT1)
		case ResponseProtocolT1:
			i = p.matchLiteral(data, i, 'T', ResponseProtocolT2)
		case ResponseProtocolT2:
			i = p.matchLiteral(data, i, 'T', ResponseProtocolP)
		case ResponseProtocolP:
			i = p.matchLiteral(data, i, 'P', ResponseProtocolSlash)
		case ResponseProtocolSlash:
			i = p.matchLiteral(data, i, '/', ResponseProtocolVersionMajor)
		case ResponseProtocolVersionMajor:
			// The source, and this implementation, restrict the major
			// version digit to exactly '1'; HTTP/2 is out of scope.
			i = p.matchLiteral(data, i, '1', ResponseProtocolDot)
		case ResponseProtocolDot:
			if c == '.' {
				p.State = ResponseProtocolVersionMinor
				i++
			} else {
				p.State = ResponseProtocolError
			}
		case ResponseProtocolVersionMinor:
			switch {
			case isDigit(c):
				p.Message.Version = httpmsg.Version11
				i++
			case c == sp:
				p.State = StatusCode
				i++
			default:
				p.State = ResponseProtocolError
			}
		case StatusCode:
			switch {
			case isDigit(c):
				p.Message.PushStatusByte(c)
				i++
			case c == sp:
				p.Message.ResolveStatus()
				p.State = ResponseReasonPhrase
				i++
			default:
				p.State = ResponseProtocolError
			}
		case ResponseReasonPhrase:
			switch {
			case c == cr:
				p.State = StatusLineLF
				i++
			case isText(c):
				// The reason phrase is consumed but never retained.
				i++
			default:
				p.State = ResponseProtocolError
			}
		case StatusLineLF:
			if c == lf {
				p.State = ResponseHeaderName
				i++
			} else {
				p.State = ResponseProtocolError
			}
		case ResponseHeaderName:
			switch {
			case isToken(c):
				p.Message.PushHeaderNameByte(c)
				i++
			case c == ':':
				p.State = ResponseHeaderValue
				i++
			case c == cr:
				p.State = ResponseHeaderEndLF
				i++
			default:
				p.State = ResponseProtocolError
			}
		case ResponseHeaderValue:
			switch {
			case c == cr:
				p.State = ResponseHeaderValueLF
				i++
			case isText(c):
				if c == sp && p.prevByte == ':' {
					i++
					break
				}
				p.Message.PushHeaderValueByte(c)
				i++
			default:
				p.State = ResponseProtocolError
			}
		case ResponseHeaderValueLF:
			if c == lf {
				p.Message.CommitHeader()
				p.State = ResponseHeaderName
				i++
			} else {
				p.State = ResponseProtocolError
			}
		case ResponseHeaderEndLF:
			if c != lf {
				p.State = ResponseProtocolError
				break
			}
			i++
			if p.Message.Headers.Has("Content-Length") {
				p.State = ResponseMessageBody
			} else {
				p.State = ResponseParsingDone
			}
		case ResponseMessageBody:
			p.Message.AppendBody(data[i:])
			i = n
			p.State = ResponseParsingDone
			break loop
		case ResponseParsingDone, ResponseProtocolError:
			break loop
		}
		if i > iBefore {
			p.prevByte = data[i-1]
		}
	}
}

func (p *ResponseParser) matchLiteral(data []byte, i int, want byte, next ResponseState) int {
	if data[i] == want {
		p.State = next
		return i + 1
	}
	p.State = ResponseProtocolError
	return i
}
