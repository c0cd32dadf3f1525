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

// Package reactor implements a single-threaded, epoll-based readiness loop:
// one listening socket, a fixed-size batch of epoll_wait wakeups, and three
// user-supplied callback slots (on_accept, on_read, on_write) that decide
// each peer's next interest mask via FdIntent.
//
// The reactor thread is the sole mutator of every peer's state, every
// peer's buffer, and every epoll registration; callbacks run inline on that
// thread and must never block on I/O. This single-owner rule is what lets
// the rest of the package (peer state, buffers, parser state) go without
// locking.
package reactor

import (
	"net"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/sys/unix"

	"github.com/blueth-go/blueth/common"
	"github.com/blueth-go/blueth/internal/rescue"
	"github.com/blueth-go/blueth/iobuf"
)

// FdIntent is the sole mechanism by which a callback re-arms, disarms, or
// requests closure of a descriptor. {false,false} closes it.
type FdIntent struct {
	WantRead  bool
	WantWrite bool
}

var (
	// IntentClose requests the descriptor be closed and its peer dropped.
	IntentClose = FdIntent{}
	// IntentRead requests read-readiness only.
	IntentRead = FdIntent{WantRead: true}
	// IntentWrite requests write-readiness only.
	IntentWrite = FdIntent{WantWrite: true}
	// IntentReadWrite requests both.
	IntentReadWrite = FdIntent{WantRead: true, WantWrite: true}
)

func (i FdIntent) closed() bool {
	return !i.WantRead && !i.WantWrite
}

func (i FdIntent) epollEvents() uint32 {
	var ev uint32
	if i.WantRead {
		ev |= unix.EPOLLIN
	}
	if i.WantWrite {
		ev |= unix.EPOLLOUT
	}
	return ev
}

// Peer is a reactor-bound pair of (file descriptor, user state): the
// holder owns the descriptor's lifetime while registered, and State is an
// opaque payload the application attaches — typically one iobuf.Buffer
// plus a parser's current state. One Peer exists per connected socket.
type Peer struct {
	fd    int
	Tuple Tuple
	State any
}

// Fd returns the peer's underlying file descriptor. Exposed for callbacks
// that need it for logging; callbacks must not close it directly — return
// IntentClose instead.
func (p *Peer) Fd() int {
	return p.fd
}

// Callback is the signature shared by on_accept, on_read, and on_write:
// (peer, reactor) -> next interest.
type Callback func(peer *Peer, r *Reactor) FdIntent

// EventSink receives accept/close notifications, used to drive connlog
// without coupling the reactor to it. The reactor's Prometheus connection
// metrics are updated directly, not through the sink.
type EventSink interface {
	OnAccept(t Tuple)
	OnClose(t Tuple)
}

type noopSink struct{}

func (noopSink) OnAccept(Tuple) {}
func (noopSink) OnClose(Tuple)  {}

// Config configures a Reactor at construction.
type Config struct {
	Address    string        `config:"address"`
	Backlog    int           `config:"backlog"`
	MaxEvents  int           `config:"maxEvents"`
	IdleTTL    time.Duration `config:"idleTTL"`
	PollTimeout time.Duration `config:"pollTimeout"`
}

func (c Config) withDefaults() Config {
	if c.Backlog <= 0 {
		c.Backlog = 128
	}
	if c.MaxEvents <= 0 {
		c.MaxEvents = 256
	}
	if c.IdleTTL <= 0 {
		c.IdleTTL = 2 * time.Minute
	}
	if c.PollTimeout <= 0 {
		c.PollTimeout = time.Second
	}
	return c
}

var (
	peersActive = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: common.App,
		Name:      "reactor_peers_active",
		Help:      "connections currently registered with the reactor",
	})
	peersAcceptedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: common.App,
		Name:      "reactor_peers_accepted_total",
		Help:      "connections accepted by the reactor",
	})
	peerBytesRead = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: common.App,
		Name:      "reactor_bytes_read_total",
		Help:      "bytes read from peers via ReadFromPeer",
	})
	peerBytesWritten = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: common.App,
		Name:      "reactor_bytes_written_total",
		Help:      "bytes written to peers via WriteToPeer",
	})
)

// Reactor is a single-threaded epoll readiness loop over a listening
// socket and its accepted peers.
type Reactor struct {
	config   Config
	listenFD int
	epollFD  int

	onAccept Callback
	onRead   Callback
	onWrite  Callback

	peers   map[int]*Peer
	janitor *janitor
	sink    EventSink

	done chan struct{}
}

// New opens a non-blocking listening socket on config.Address and returns
// a Reactor registered to watch it for read-readiness. The three callback
// slots must be set with OnAccept/OnRead/OnWrite before ListenAndServe.
func New(config Config, sink EventSink) (*Reactor, error) {
	config = config.withDefaults()
	if sink == nil {
		sink = noopSink{}
	}

	addr, err := net.ResolveTCPAddr("tcp", config.Address)
	if err != nil {
		return nil, errors.Wrap(err, "reactor: resolve address")
	}

	listenFD, err := unix.Socket(domainFor(addr), unix.SOCK_STREAM, 0)
	if err != nil {
		return nil, errors.Wrap(err, "reactor: socket")
	}
	if err := unix.SetsockoptInt(listenFD, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		return nil, errors.Wrap(err, "reactor: setsockopt SO_REUSEADDR")
	}
	sockaddr, err := sockaddrFor(addr)
	if err != nil {
		return nil, err
	}
	if err := unix.Bind(listenFD, sockaddr); err != nil {
		return nil, errors.Wrap(err, "reactor: bind")
	}
	if err := unix.Listen(listenFD, config.Backlog); err != nil {
		return nil, errors.Wrap(err, "reactor: listen")
	}
	if err := unix.SetNonblock(listenFD, true); err != nil {
		return nil, errors.Wrap(err, "reactor: set listen socket non-blocking")
	}

	epollFD, err := unix.EpollCreate1(0)
	if err != nil {
		return nil, errors.Wrap(err, "reactor: epoll_create1")
	}
	if err := unix.EpollCtl(epollFD, unix.EPOLL_CTL_ADD, listenFD, &unix.EpollEvent{
		Events: unix.EPOLLIN,
		Fd:     int32(listenFD),
	}); err != nil {
		return nil, errors.Wrap(err, "reactor: epoll_ctl add listen socket")
	}

	r := &Reactor{
		config:   config,
		listenFD: listenFD,
		epollFD:  epollFD,
		peers:    make(map[int]*Peer),
		sink:     sink,
		done:     make(chan struct{}),
	}
	return r, nil
}

// Addr returns the listening socket's bound local address, useful when
// Config.Address was given with a ":0" port and the caller needs the
// kernel-assigned port (e.g. in tests).
func (r *Reactor) Addr() (*net.TCPAddr, error) {
	sa, err := unix.Getsockname(r.listenFD)
	if err != nil {
		return nil, errors.Wrap(err, "reactor: getsockname")
	}
	switch v := sa.(type) {
	case *unix.SockaddrInet4:
		return &net.TCPAddr{IP: net.IP(v.Addr[:]), Port: v.Port}, nil
	case *unix.SockaddrInet6:
		return &net.TCPAddr{IP: net.IP(v.Addr[:]), Port: v.Port}, nil
	default:
		return nil, errors.New("reactor: unsupported sockaddr from getsockname")
	}
}

// OnAccept sets the callback invoked for every newly accepted connection.
func (r *Reactor) OnAccept(cb Callback) { r.onAccept = cb }

// OnRead sets the callback invoked when a peer becomes read-ready.
func (r *Reactor) OnRead(cb Callback) { r.onRead = cb }

// OnWrite sets the callback invoked when a peer becomes write-ready.
func (r *Reactor) OnWrite(cb Callback) { r.onWrite = cb }

// ListenAndServe runs the epoll loop until Stop is called or the
// notification facility returns a fatal error. It never returns nil except
// via an explicit Stop(); a wakeup with zero ready descriptors (timeout)
// just iterates again.
func (r *Reactor) ListenAndServe() error {
	r.janitor = newJanitor(r.config.IdleTTL, r.closeIdleFd)
	defer r.janitor.stop()

	events := make([]unix.EpollEvent, r.config.MaxEvents)
	timeoutMs := int(r.config.PollTimeout / time.Millisecond)

	for {
		select {
		case <-r.done:
			return nil
		default:
		}

		n, err := unix.EpollWait(r.epollFD, events, timeoutMs)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			return errors.Wrap(err, "reactor: epoll_wait")
		}

		for i := 0; i < n; i++ {
			r.dispatch(events[i])
		}
	}
}

// Stop signals the loop to exit before its next EpollWait and closes every
// remaining peer. Safe to call once; callers running ListenAndServe on
// another goroutine should wait for it to return before assuming
// descriptors are closed.
func (r *Reactor) Stop() error {
	select {
	case <-r.done:
		return nil
	default:
		close(r.done)
	}
	for fd := range r.peers {
		r.closeFd(fd)
	}
	return unix.Close(r.epollFD)
}

func (r *Reactor) dispatch(ev unix.EpollEvent) {
	fd := int(ev.Fd)
	if fd == r.listenFD {
		if ev.Events&unix.EPOLLIN != 0 {
			r.acceptLoop()
		}
		return
	}

	peer, ok := r.peers[fd]
	if !ok {
		// Already closed earlier in this wakeup cycle; the reactor must
		// never call back into a peer whose descriptor is gone.
		return
	}

	if ev.Events&unix.EPOLLIN != 0 {
		r.invoke(peer, r.onRead)
		if _, ok := r.peers[fd]; !ok {
			return
		}
	}
	if ev.Events&unix.EPOLLOUT != 0 {
		r.invoke(peer, r.onWrite)
	}
}

func (r *Reactor) acceptLoop() {
	for {
		connFD, sa, err := unix.Accept4(r.listenFD, unix.SOCK_NONBLOCK)
		if err != nil {
			if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
				return
			}
			return
		}

		peer := &Peer{fd: connFD, Tuple: tupleFromSockaddr(sa)}
		intent := FdIntent{}
		if r.onAccept != nil {
			intent = r.onAccept(peer, r)
		}
		if intent.closed() {
			unix.Close(connFD)
			continue
		}

		r.peers[connFD] = peer
		peersActive.Inc()
		peersAcceptedTotal.Inc()
		r.janitor.touch(connFD)
		r.sink.OnAccept(peer.Tuple)

		if err := unix.EpollCtl(r.epollFD, unix.EPOLL_CTL_ADD, connFD, &unix.EpollEvent{
			Events: intent.epollEvents(),
			Fd:     int32(connFD),
		}); err != nil {
			r.closeFd(connFD)
		}
	}
}

func (r *Reactor) invoke(peer *Peer, cb Callback) {
	if cb == nil {
		return
	}
	intent := r.safeInvoke(peer, cb)
	r.janitor.touch(peer.fd)

	if intent.closed() {
		r.closeFd(peer.fd)
		return
	}
	if err := unix.EpollCtl(r.epollFD, unix.EPOLL_CTL_MOD, peer.fd, &unix.EpollEvent{
		Events: intent.epollEvents(),
		Fd:     int32(peer.fd),
	}); err != nil {
		r.closeFd(peer.fd)
	}
}

func (r *Reactor) safeInvoke(peer *Peer, cb Callback) (intent FdIntent) {
	// A panicking callback never assigns intent, so the peer is closed.
	intent = IntentClose
	defer rescue.HandleCrash()
	intent = cb(peer, r)
	return intent
}

func (r *Reactor) closeIdleFd(fd int) {
	r.closeFd(fd)
}

func (r *Reactor) closeFd(fd int) {
	peer, ok := r.peers[fd]
	if !ok {
		return
	}
	delete(r.peers, fd)
	r.janitor.forget(fd)
	unix.EpollCtl(r.epollFD, unix.EPOLL_CTL_DEL, fd, nil)
	unix.Close(fd)
	peersActive.Dec()
	r.sink.OnClose(peer.Tuple)
}

// ReadFromPeer recv's directly into buf's free region and advances end by
// the result. Returns 0, nil on EAGAIN/EWOULDBLOCK; any other error is a
// transport error the caller should treat as fatal for the peer.
func (r *Reactor) ReadFromPeer(peer *Peer, buf *iobuf.Buffer) (int, error) {
	if buf.FreeSpace() == 0 {
		buf.Grow(common.DefaultIOBufferSize)
	}
	n, err := unix.Read(peer.fd, buf.FreeBytes())
	if err != nil {
		if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
			return 0, nil
		}
		return 0, errors.Wrap(err, "reactor: read")
	}
	if n > 0 {
		if aerr := buf.AdvanceEnd(n); aerr != nil {
			return n, aerr
		}
		peerBytesRead.Add(float64(n))
	}
	return n, nil
}

// WriteToPeer send's from buf's data region and advances start by the
// result. Returns 0, nil on EAGAIN/EWOULDBLOCK.
func (r *Reactor) WriteToPeer(peer *Peer, buf *iobuf.Buffer) (int, error) {
	data := buf.Bytes()
	if len(data) == 0 {
		return 0, nil
	}
	n, err := unix.Write(peer.fd, data)
	if err != nil {
		if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
			return 0, nil
		}
		return 0, errors.Wrap(err, "reactor: write")
	}
	if n > 0 {
		if aerr := buf.AdvanceStart(n); aerr != nil {
			return n, aerr
		}
		peerBytesWritten.Add(float64(n))
	}
	return n, nil
}
