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
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/blueth-go/blueth/iobuf"
)

type echoState struct {
	in  *iobuf.Buffer
	out *iobuf.Buffer
}

// TestReactorEchoRoundtrip exercises the accept/read/write callback
// contract end to end: a client writes "Hello, from client" and must read
// the exact same 18 bytes back.
func TestReactorEchoRoundtrip(t *testing.T) {
	r, err := New(Config{Address: "127.0.0.1:0"}, nil)
	require.NoError(t, err)

	r.OnAccept(func(peer *Peer, r *Reactor) FdIntent {
		peer.State = &echoState{in: iobuf.New(64), out: iobuf.New(64)}
		return IntentRead
	})
	r.OnRead(func(peer *Peer, r *Reactor) FdIntent {
		st := peer.State.(*echoState)
		if _, err := r.ReadFromPeer(peer, st.in); err != nil {
			return IntentClose
		}
		st.out.Append(st.in.Bytes())
		require.NoError(t, st.in.AdvanceStart(st.in.DataLen()))
		return IntentReadWrite
	})
	r.OnWrite(func(peer *Peer, r *Reactor) FdIntent {
		st := peer.State.(*echoState)
		if st.out.DataLen() == 0 {
			return IntentRead
		}
		if _, err := r.WriteToPeer(peer, st.out); err != nil {
			return IntentClose
		}
		if st.out.DataLen() == 0 {
			return IntentRead
		}
		return IntentReadWrite
	})

	go func() {
		_ = r.ListenAndServe()
	}()
	defer r.Stop()

	addr, err := r.Addr()
	require.NoError(t, err)

	conn, err := net.DialTimeout("tcp", addr.String(), time.Second)
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write([]byte("Hello, from client"))
	require.NoError(t, err)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	got := make([]byte, 18)
	_, err = readFull(conn, got)
	require.NoError(t, err)
	require.Equal(t, "Hello, from client", string(got))
}

func readFull(conn net.Conn, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := conn.Read(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}
