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

// Package transport implements the blocking stream abstraction that sits
// between a socket (plaintext or TLS) and an iobuf.Buffer. Reactor peers use
// the non-blocking variants exposed by package reactor; transport is for the
// synchronous client side — proxyclient.Client and anything else that
// reads/writes a single stream to completion on its own goroutine.
package transport

import (
	"crypto/tls"
	"crypto/x509"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/pkg/errors"

	"github.com/blueth-go/blueth/common"
	"github.com/blueth-go/blueth/internal/rescue"
	"github.com/blueth-go/blueth/iobuf"
)

// ErrClosed is returned by Read/Write after Close has been called.
var ErrClosed = errors.New("transport: use of closed transport")

// Protocol is the wire protocol a transport carries.
type Protocol string

const (
	ProtocolTCP Protocol = "tcp"
	ProtocolUDP Protocol = "udp"
)

// Role distinguishes a transport dialed as a client from one accepted as a
// server; both share the same read/write contract.
type Role string

const (
	RoleClient Role = "client"
	RoleServer Role = "server"
)

// Kind selects the concrete variant built by Dial.
type Kind string

const (
	KindSyncPlain Kind = "sync_plain"
	KindSyncTLS   Kind = "sync_tls"
)

// Config is recognized at construction time, mirroring the original
// {host, port, protocol, role, kind, ca_cert_path} shape.
type Config struct {
	Host        string        `config:"host"`
	Port        int           `config:"port"`
	Protocol    Protocol      `config:"protocol"`
	Role        Role          `config:"role"`
	Kind        Kind          `config:"kind"`
	CACertPath  string        `config:"caCertPath"`
	DialTimeout time.Duration `config:"dialTimeout"`
}

// BufferCallback is invoked after a successful read or write with an
// immutable view of the transport's buffer. A panic inside the callback is
// recovered by rescue.HandleCrash so it can't corrupt the transport or take
// down the caller's goroutine.
type BufferCallback func(data []byte)

// Transport is a blocking stream over a plaintext or TLS socket, carrying a
// single iobuf.Buffer that Read fills and that callers drain explicitly.
type Transport interface {
	// Read reads up to n bytes into the transport's buffer, growing it if
	// needed, and advances the buffer's end. Returns the number of bytes
	// actually read, which may be less than n.
	Read(n int) (int, error)
	// Write sends bytes straight to the wire, blocking until all of them
	// are sent or an error occurs. It does not touch the buffer.
	Write(bytes []byte) (int, error)
	// TakeBuffer moves the internal buffer out to the caller, leaving the
	// transport without one until SetBuffer is called again.
	TakeBuffer() *iobuf.Buffer
	// SetBuffer installs buf as the transport's internal buffer.
	SetBuffer(buf *iobuf.Buffer)
	// Buffer returns the internal buffer without transferring ownership.
	Buffer() *iobuf.Buffer
	// SetReadCallback installs the hook fired after each successful Read.
	SetReadCallback(cb BufferCallback)
	// SetWriteCallback installs the hook fired after each successful
	// Write.
	SetWriteCallback(cb BufferCallback)
	// Close idempotently tears down the underlying socket. Any Read or
	// Write issued afterward returns ErrClosed.
	Close() error
}

type base struct {
	conn     net.Conn
	buf      *iobuf.Buffer
	onRead   BufferCallback
	onWrite  BufferCallback
	closed   bool
}

func newBase(conn net.Conn) *base {
	return &base{
		conn: conn,
		buf:  iobuf.New(common.DefaultIOBufferSize),
	}
}

func (b *base) Read(n int) (int, error) {
	if b.closed {
		return 0, ErrClosed
	}
	b.buf.Grow(n)
	read, err := b.conn.Read(b.buf.FreeBytes()[:n])
	if read > 0 {
		if aerr := b.buf.AdvanceEnd(read); aerr != nil {
			return read, aerr
		}
		b.fireRead()
	}
	if err != nil {
		return read, errors.Wrap(err, "transport: read")
	}
	return read, nil
}

func (b *base) Write(bytes []byte) (int, error) {
	if b.closed {
		return 0, ErrClosed
	}
	written := 0
	for written < len(bytes) {
		n, err := b.conn.Write(bytes[written:])
		written += n
		if err != nil {
			return written, errors.Wrap(err, "transport: write")
		}
	}
	b.fireWrite(bytes)
	return written, nil
}

func (b *base) fireRead() {
	defer rescue.HandleCrash()
	if b.onRead != nil {
		b.onRead(b.buf.Bytes())
	}
}

func (b *base) fireWrite(data []byte) {
	defer rescue.HandleCrash()
	if b.onWrite != nil {
		b.onWrite(data)
	}
}

func (b *base) TakeBuffer() *iobuf.Buffer {
	taken := b.buf
	b.buf = nil
	return taken
}

func (b *base) SetBuffer(buf *iobuf.Buffer) {
	b.buf = buf
}

func (b *base) Buffer() *iobuf.Buffer {
	return b.buf
}

func (b *base) SetReadCallback(cb BufferCallback) {
	b.onRead = cb
}

func (b *base) SetWriteCallback(cb BufferCallback) {
	b.onWrite = cb
}

func (b *base) Close() error {
	if b.closed {
		return nil
	}
	b.closed = true
	return b.conn.Close()
}

// Plain is a plaintext TCP/UDP transport.
type Plain struct {
	*base
}

// TLS is a TLS-wrapped transport.
type TLS struct {
	*base
}

// Dial builds a Transport for the given Config, selecting Plain or TLS by
// Kind. Only RoleClient is supported here; server-side connections arrive
// pre-accepted through the reactor and are wrapped with NewPlain/NewTLS
// directly.
func Dial(cfg Config) (Transport, error) {
	network := string(cfg.Protocol)
	if network == "" {
		network = string(ProtocolTCP)
	}
	addr := net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))

	dialer := net.Dialer{Timeout: cfg.DialTimeout}
	switch cfg.Kind {
	case KindSyncTLS:
		tlsConf := &tls.Config{ServerName: cfg.Host, MinVersion: tls.VersionTLS12}
		if cfg.CACertPath != "" {
			pool, err := loadCAPool(cfg.CACertPath)
			if err != nil {
				return nil, errors.Wrap(err, "transport: load ca cert")
			}
			tlsConf.RootCAs = pool
		}
		conn, err := tls.DialWithDialer(&dialer, network, addr, tlsConf)
		if err != nil {
			return nil, errors.Wrap(err, "transport: tls dial")
		}
		return &TLS{base: newBase(conn)}, nil
	default:
		conn, err := dialer.Dial(network, addr)
		if err != nil {
			return nil, errors.Wrap(err, "transport: dial")
		}
		return &Plain{base: newBase(conn)}, nil
	}
}

func loadCAPool(path string) (*x509.CertPool, error) {
	pem, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pem) {
		return nil, errors.Errorf("transport: no certificates found in %s", path)
	}
	return pool, nil
}

// NewPlain wraps an already-accepted plaintext connection (e.g. from a
// reactor's accept loop or net.Listen) as a Transport.
func NewPlain(conn net.Conn) *Plain {
	return &Plain{base: newBase(conn)}
}

// NewTLS wraps an already-accepted TLS connection as a Transport.
func NewTLS(conn *tls.Conn) *TLS {
	return &TLS{base: newBase(conn)}
}
