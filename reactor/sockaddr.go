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

	"golang.org/x/sys/unix"
)

func domainFor(addr *net.TCPAddr) int {
	if addr.IP != nil && addr.IP.To4() == nil {
		return unix.AF_INET6
	}
	return unix.AF_INET
}

func sockaddrFor(addr *net.TCPAddr) (unix.Sockaddr, error) {
	if domainFor(addr) == unix.AF_INET6 {
		sa := &unix.SockaddrInet6{Port: addr.Port}
		copy(sa.Addr[:], addr.IP.To16())
		return sa, nil
	}
	sa := &unix.SockaddrInet4{Port: addr.Port}
	ip := addr.IP.To4()
	if ip == nil {
		ip = net.IPv4zero.To4()
	}
	copy(sa.Addr[:], ip)
	return sa, nil
}

// tupleFromSockaddr builds the RemoteIP/RemotePort half of a Tuple from the
// sockaddr Accept4 hands back; local address tracking is left to the
// application (the reactor never calls getsockname for a peer it just
// accepted with a known listen address).
func tupleFromSockaddr(sa unix.Sockaddr) Tuple {
	switch v := sa.(type) {
	case *unix.SockaddrInet4:
		return Tuple{
			RemoteIP:   ToIPV4(net.IP(v.Addr[:])),
			RemotePort: Port(v.Port),
		}
	case *unix.SockaddrInet6:
		return Tuple{
			RemoteIP:   ToIPV6(net.IP(v.Addr[:])),
			RemotePort: Port(v.Port),
		}
	default:
		return Tuple{}
	}
}
