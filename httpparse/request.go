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

// RequestState is a state of the request parser FSM.
type RequestState int

// Request parser states, in the order the source's ParserState enum lists
// them.
const (
	RequestLineBegin RequestState = iota
	RequestMethod
	RequestResource
	RequestProtocolH
	RequestProtocolT1
	RequestProtocolT2
	RequestProtocolP
	RequestProtocolSlash
	RequestProtocolVersionMajor
	RequestProtocolDot
	RequestProtocolVersionMinor
	RequestLineLF
	HeaderName
	HeaderValue
	HeaderValueLF
	HeaderEndLF
	MessageBody
	ParsingDone
	ProtocolError
)

// RequestParser drives a Request through the request-line/header/body FSM
// one buffer slice at a time. State, Message, and prevByte are the entire
// resumable checkpoint.
type RequestParser struct {
	State   RequestState
	Message *httpmsg.Request

	// prevByte is the last byte consumed across any Feed call, needed by
	// HeaderValue's "single SP immediately after a header-name colon" rule
	// since that lookbehind can straddle a call boundary.
	prevByte byte
}

// NewRequestParser returns a parser positioned at RequestLineBegin with a
// fresh Message.
func NewRequestParser() *RequestParser {
	return &RequestParser{
		State:   RequestLineBegin,
		Message: httpmsg.NewRequest(),
	}
}

// Feed drives the FSM across data, resuming from p.State. It returns after
// consuming every byte, or after reaching a terminal state (ParsingDone or
// ProtocolError), whichever comes first. Calling Feed again with more bytes
// continues from exactly where the previous call stopped — this is the
// resumability property: splitting one logical message across any number
// of Feed calls produces the same final State and Message as one call with
// the whole message.
func (p *RequestParser) Feed(data []byte) {
	i := 0
	n := len(data)

loop:
	for i < n {
		c := data[i]
		iBefore := i
		switch p.State {
		case RequestLineBegin:
			if isToken(c) {
				p.Message.PushMethodByte(c)
				p.State = RequestMethod
				i++
			} else {
				p.State = ProtocolError
			}
		case RequestMethod:
			switch {
			case c == sp:
				p.Message.ResolveMethod()
				p.State = RequestResource
				i++
			case isToken(c):
				p.Message.PushMethodByte(c)
				i++
			default:
				p.State = ProtocolError
			}
		case RequestResource:
			switch {
			case c == sp:
				p.State = RequestProtocolH
				i++
			case isPrintable(c):
				p.Message.PushTargetByte(c)
				i++
			default:
				p.State = ProtocolError
			}
		case RequestProtocolH:
			i = p.matchLiteral(data, i, 'H', RequestProtocolT1)
		case RequestProtocolT1:
			i = p.matchLiteral(data, i, 'T', RequestProtocolT2)
		case RequestProtocolT2:
			i = p.matchLiteral(data, i, 'T', RequestProtocolP)
		case RequestProtocolP:
			i = p.matchLiteral(data, i, 'P', RequestProtocolSlash)
		case RequestProtocolSlash:
			i = p.matchLiteral(data, i, '/', RequestProtocolVersionMajor)
		case RequestProtocolVersionMajor:
			if isDigit(c) {
				p.State = RequestProtocolDot
				i++
			} else {
				p.State = ProtocolError
			}
		case RequestProtocolDot:
			if c == '.' {
				p.State = RequestProtocolVersionMinor
				i++
			} else {
				p.State = ProtocolError
			}
		case RequestProtocolVersionMinor:
			switch {
			case isDigit(c):
				p.Message.Version = httpmsg.Version11
				i++
			case c == cr:
				p.State = RequestLineLF
				i++
			default:
				p.State = ProtocolError
			}
		case RequestLineLF:
			if c == lf {
				p.State = HeaderName
				i++
			} else {
				p.State = ProtocolError
			}
		case HeaderName:
			switch {
			case isToken(c):
				p.Message.PushHeaderNameByte(c)
				i++
			case c == ':':
				p.State = HeaderValue
				i++
			case c == cr:
				p.State = HeaderEndLF
				i++
			default:
				p.State = ProtocolError
			}
		case HeaderValue:
			switch {
			case c == cr:
				p.State = HeaderValueLF
				i++
			case c == sp:
				if p.prevByte == ':' {
					i++
				} else {
					p.State = ProtocolError
				}
			case isText(c):
				p.Message.PushHeaderValueByte(c)
				i++
			default:
				p.State = ProtocolError
			}
		case HeaderValueLF:
			if c == lf {
				p.Message.CommitHeader()
				p.State = HeaderName
				i++
			} else {
				p.State = ProtocolError
			}
		case HeaderEndLF:
			if c != lf {
				p.State = ProtocolError
				break
			}
			i++
			switch p.Message.Method {
			case httpmsg.MethodGet, httpmsg.MethodHead:
				p.State = ParsingDone
			case httpmsg.MethodPost, httpmsg.MethodPut:
				p.State = MessageBody
			default:
				// The source leaves this path ambiguous for unknown
				// methods (never advancing state). We route to
				// ParsingDone so resumability and liveness both hold.
				p.State = ParsingDone
			}
		case MessageBody:
			p.Message.AppendBody(data[i:])
			i = n
			break loop
		case ParsingDone, ProtocolError:
			break loop
		}
		if i > iBefore {
			p.prevByte = data[i-1]
		}
	}
}

// matchLiteral consumes data[i] if it equals want, advancing to next; any
// mismatch is a ProtocolError. Shared by the five fixed-literal states of
// the "HTTP/" prefix.
func (p *RequestParser) matchLiteral(data []byte, i int, want byte, next RequestState) int {
	if data[i] == want {
		p.State = next
		return i + 1
	}
	p.State = ProtocolError
	return i
}
