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

package common

const (
	// App is the binary name reported in logs and the admin server.
	App = "blueth"

	// Version is the fallback semver used when no build-time ldflags are set.
	Version = "v0.0.1"

	// DefaultIOBufferSize is the initial capacity an iobuf.Buffer allocates
	// for a peer's read/write side when the caller doesn't size it explicitly.
	//
	// A TCP segment tops out at 64K, but giving every accepted connection a
	// 64K buffer up front wastes memory under high peer counts, so buffers
	// start small and grow by doubling as iobuf.Buffer.Append needs room.
	DefaultIOBufferSize = 4096
)
