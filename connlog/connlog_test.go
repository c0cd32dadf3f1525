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

package connlog

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blueth-go/blueth/reactor"
)

type discardCloser struct {
	*bytes.Buffer
}

func (discardCloser) Close() error { return nil }

func newTestLogger() (*Logger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	cfg := Config{Console: true}.withDefaults()
	return newWithWriter(cfg, discardCloser{buf}), buf
}

func TestLoggerImplementsEventSink(t *testing.T) {
	var _ reactor.EventSink = (*Logger)(nil)
}

func TestOnAcceptWritesJSONLine(t *testing.T) {
	l, buf := newTestLogger()
	tup := reactor.Tuple{LocalPort: 80, RemotePort: 12345}

	l.OnAccept(tup)

	var ev Event
	require.NoError(t, json.Unmarshal(buf.Bytes(), &ev))
	assert.Equal(t, EventAccept, ev.Kind)
	assert.Equal(t, tup.String(), ev.Peer)
	assert.WithinDuration(t, time.Now(), ev.Time, time.Second)
}

func TestOnCloseWritesJSONLine(t *testing.T) {
	l, buf := newTestLogger()
	tup := reactor.Tuple{LocalPort: 443, RemotePort: 55555}

	l.OnClose(tup)

	var ev Event
	require.NoError(t, json.Unmarshal(buf.Bytes(), &ev))
	assert.Equal(t, EventClose, ev.Kind)
	assert.Equal(t, tup.String(), ev.Peer)
}

func TestSubscribeReceivesFannedOutEvents(t *testing.T) {
	l, _ := newTestLogger()
	q := l.Subscribe()
	defer l.Unsubscribe(q)

	tup := reactor.Tuple{LocalPort: 80, RemotePort: 1}
	l.OnAccept(tup)

	v, ok := q.PopTimeout(time.Second)
	require.True(t, ok)
	ev, ok := v.(Event)
	require.True(t, ok)
	assert.Equal(t, EventAccept, ev.Kind)
	assert.Equal(t, tup.String(), ev.Peer)
}

func TestMultipleEventsAppendAsSeparateLines(t *testing.T) {
	l, buf := newTestLogger()
	a := reactor.Tuple{LocalPort: 1, RemotePort: 2}
	b := reactor.Tuple{LocalPort: 3, RemotePort: 4}

	l.OnAccept(a)
	l.OnClose(b)

	dec := json.NewDecoder(buf)
	var first, second Event
	require.NoError(t, dec.Decode(&first))
	require.NoError(t, dec.Decode(&second))
	assert.Equal(t, EventAccept, first.Kind)
	assert.Equal(t, EventClose, second.Kind)
}
