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

// Package httpparse implements resumable, byte-driven finite-state-machine
// parsers for HTTP/1.1 request and response messages, ported from the
// source's hand-rolled lexer (HTTPParserStateMachine.hpp /
// HTTPParserStateMachineResponse.hpp). Each parser advances through as much
// of an IoBuffer slice as is available and leaves its state where it
// stopped, so callers can feed it arbitrarily fragmented reads.
package httpparse

const (
	sp byte = 0x20
	ht byte = 0x09
	cr byte = 0x0D
	lf byte = 0x0A
)

// isSeparator reports whether c is an HTTP/1.1 token separator.
func isSeparator(c byte) bool {
	switch c {
	case '(', ')', '<', '>', '@', ',', ';', ':', '\\', '"', '/', '[', ']', '?', '=', '{', '}', sp, ht:
		return true
	default:
		return false
	}
}

// isControl reports whether c is a control character (0-31 or 127).
func isControl(c byte) bool {
	return c <= 31 || c == 127
}

// isToken reports whether c may appear in an HTTP token (a method name or
// header field name): any non-control, non-separator byte.
func isToken(c byte) bool {
	return !isControl(c) && !isSeparator(c)
}

// isText reports whether c may appear in free-form HTTP text (a header
// value or reason phrase): any non-control byte, plus SP and HT.
func isText(c byte) bool {
	return !isControl(c) || c == sp || c == ht
}

// isPrintable reports whether c is a printable ASCII byte, per the
// request-target grammar (the source uses std::isprint here).
func isPrintable(c byte) bool {
	return c >= 0x20 && c < 0x7F
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
