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

package sigs

import (
	"os"
	"os/signal"
	"syscall"
)

// Terminate returns a channel fed by SIGINT/SIGTERM, for an orderly
// reactor.Stop() instead of the default process-kill behavior.
func Terminate() chan os.Signal {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
	return ch
}

// Reload returns a channel fed by SIGHUP, signalling a reload request to
// whoever selects on it.
func Reload() chan os.Signal {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGHUP)
	return ch
}

// SelfReload sends SIGHUP to the current process, triggering the same
// reload request a real SIGHUP would.
func SelfReload() error {
	return syscall.Kill(syscall.Getpid(), syscall.SIGHUP)
}
