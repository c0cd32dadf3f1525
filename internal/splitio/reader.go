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

package splitio

type Reader struct {
	r, w    int
	b       []byte
	scanner *Scanner
}

// NewReader returns a *Reader over b. Like Scanner, line terminators are
// kept and no line is copied out of b.
func NewReader(b []byte) *Reader {
	return &Reader{
		w:       len(b),
		b:       b,
		scanner: NewScanner(b),
	}
}

// ReadLine reads the next line.
func (lr *Reader) ReadLine() ([]byte, bool) {
	if !lr.scanner.Scan() {
		return nil, true // EOF
	}

	b := lr.scanner.Bytes()
	lr.r += len(b)
	return b, false
}

// EOF reports whether the Reader has consumed every byte.
func (lr *Reader) EOF() bool {
	return lr.r >= lr.w
}
