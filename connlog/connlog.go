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

// Package connlog records reactor accept/close events as JSON lines (to
// stdout or a rotated file) and fans the same events out to any number of
// live subscribers through internal/pubsub, the way the source's
// roundtrips sinker logged completed request/response pairs.
package connlog

import (
	"io"
	"os"
	"time"

	goccyjson "github.com/goccy/go-json"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/blueth-go/blueth/confengine"
	"github.com/blueth-go/blueth/internal/pubsub"
	"github.com/blueth-go/blueth/reactor"
)

// EventKind distinguishes an accept from a close record.
type EventKind string

const (
	EventAccept EventKind = "accept"
	EventClose  EventKind = "close"
)

// Event is one JSON-encoded line: a peer's tuple and what just happened to
// it.
type Event struct {
	Kind EventKind `json:"kind"`
	Peer string    `json:"peer"`
	Time time.Time `json:"time"`
}

// Config controls where connlog writes its JSON lines.
type Config struct {
	Console    bool   `config:"console"`
	Filename   string `config:"filename"`
	MaxSize    int    `config:"maxSize"`
	MaxBackups int    `config:"maxBackups"`
	MaxAge     int    `config:"maxAge"`
	// SubscriberQueueSize bounds each Subscribe queue; a slow subscriber
	// drops events rather than blocking the reactor thread.
	SubscriberQueueSize int `config:"subscriberQueueSize"`
}

func (c Config) withDefaults() Config {
	if c.MaxSize <= 0 {
		c.MaxSize = 100
	}
	if c.MaxBackups <= 0 {
		c.MaxBackups = 10
	}
	if c.MaxAge <= 0 {
		c.MaxAge = 7
	}
	if c.SubscriberQueueSize <= 0 {
		c.SubscriberQueueSize = 64
	}
	return c
}

// Logger implements reactor.EventSink: every accept/close notification is
// encoded as one JSON line and published to current subscribers.
type Logger struct {
	wr      io.WriteCloser
	encoder *goccyjson.Encoder
	pubsub  *pubsub.PubSub
	cfg     Config
}

var _ reactor.EventSink = (*Logger)(nil)

// New builds the connlog Logger from the "connlog" config block. Returns a
// nil *Logger when unconfigured entirely (an empty Filename with Console
// false); callers should fall back to a noop reactor.EventSink in that case.
func New(conf *confengine.Config) (*Logger, error) {
	var cfg Config
	if err := conf.UnpackChild("connlog", &cfg); err != nil {
		return nil, err
	}
	if !cfg.Console && cfg.Filename == "" {
		return nil, nil
	}
	return newFromConfig(cfg), nil
}

func newFromConfig(cfg Config) *Logger {
	cfg = cfg.withDefaults()

	var wr io.WriteCloser
	switch {
	case cfg.Console:
		wr = os.Stdout
	default:
		wr = &lumberjack.Logger{
			Filename:   cfg.Filename,
			MaxSize:    cfg.MaxSize,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAge,
			LocalTime:  true,
		}
	}

	return newWithWriter(cfg, wr)
}

func newWithWriter(cfg Config, wr io.WriteCloser) *Logger {
	return &Logger{
		wr:      wr,
		encoder: goccyjson.NewEncoder(wr),
		pubsub:  pubsub.New(),
		cfg:     cfg,
	}
}

// Subscribe returns a live feed of Event values; the caller must
// Unsubscribe when done.
func (l *Logger) Subscribe() pubsub.Queue {
	return l.pubsub.Subscribe(l.cfg.SubscriberQueueSize)
}

// Unsubscribe detaches q from the live feed.
func (l *Logger) Unsubscribe(q pubsub.Queue) {
	l.pubsub.Unsubscribe(q)
}

// OnAccept implements reactor.EventSink.
func (l *Logger) OnAccept(t reactor.Tuple) {
	l.record(Event{Kind: EventAccept, Peer: t.String(), Time: time.Now()})
}

// OnClose implements reactor.EventSink.
func (l *Logger) OnClose(t reactor.Tuple) {
	l.record(Event{Kind: EventClose, Peer: t.String(), Time: time.Now()})
}

func (l *Logger) record(ev Event) {
	// Best-effort: a write error here must never propagate back into the
	// reactor's single dispatch thread.
	_ = l.encoder.Encode(ev)
	l.pubsub.Publish(ev)
}

// Close flushes and closes the underlying writer.
func (l *Logger) Close() error {
	return l.wr.Close()
}
