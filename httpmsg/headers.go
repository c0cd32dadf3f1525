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

import "strings"

// Headers is a case-sensitive mapping from header name to header value.
// Insertion order is not preserved on the wire.
type Headers map[string]string

// NewHeaders returns an empty Headers map.
func NewHeaders() Headers {
	return make(Headers)
}

// Add sets name to value, overwriting any prior value for that exact name.
func (h Headers) Add(name, value string) {
	h[name] = value
}

// Remove deletes name, reporting whether it was present.
func (h Headers) Remove(name string) bool {
	if _, ok := h[name]; !ok {
		return false
	}
	delete(h, name)
	return true
}

// Get returns the value for name and whether it was present.
func (h Headers) Get(name string) (string, bool) {
	v, ok := h[name]
	return v, ok
}

// Has reports whether name is present.
func (h Headers) Has(name string) bool {
	_, ok := h[name]
	return ok
}

// Len returns the number of headers.
func (h Headers) Len() int {
	return len(h)
}

// BuildRaw serializes the header block, one "Name: Value\r\n" per entry in
// map iteration order, terminated by a bare CRLF.
func (h Headers) BuildRaw() string {
	var b strings.Builder
	for name, value := range h {
		b.WriteString(name)
		b.WriteString(": ")
		b.WriteString(value)
		b.WriteString("\r\n")
	}
	b.WriteString("\r\n")
	return b.String()
}
