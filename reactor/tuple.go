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
	"fmt"
	"net"
)

// Version distinguishes an IPV's address family.
type Version uint8

const (
	V4 Version = iota
	V6
)

// IPV wraps a net.IP together with its address family, sized to hold
// either family without an allocation.
type IPV struct {
	IP      [net.IPv6len]byte
	Version Version
}

// ToIPV4 builds an IPV from a v4 net.IP.
func ToIPV4(ip net.IP) IPV {
	var dst [net.IPv6len]byte
	copy(dst[:], ip)
	return IPV{IP: dst, Version: V4}
}

// ToIPV6 builds an IPV from a v6 net.IP.
func ToIPV6(ip net.IP) IPV {
	var dst [net.IPv6len]byte
	copy(dst[:], ip)
	return IPV{IP: dst, Version: V6}
}

// NetIP returns ipv as a net.IP of the right length for its Version.
func (ipv IPV) NetIP() net.IP {
	if ipv.Version == V4 {
		return net.IP(ipv.IP[:net.IPv4len])
	}
	return net.IP(ipv.IP[:])
}

func (ipv IPV) String() string {
	return ipv.NetIP().String()
}

// Port is a TCP/UDP port number.
type Port uint16

// Tuple identifies one side of a connected peer by local/remote address.
// Used as the identity attached to connlog accept/close events; the
// idle-peer janitor keys on the file descriptor instead.
type Tuple struct {
	LocalIP    IPV
	RemoteIP   IPV
	LocalPort  Port
	RemotePort Port
}

func (t Tuple) String() string {
	return fmt.Sprintf("%s:%d > %s:%d", t.LocalIP, t.LocalPort, t.RemoteIP, t.RemotePort)
}

// TupleFromConn derives a Tuple from an accepted net.Conn's local/remote
// addresses. Returns the zero Tuple for non-IP connections (e.g. in tests
// using net.Pipe).
func TupleFromConn(conn net.Conn) Tuple {
	local, lok := conn.LocalAddr().(*net.TCPAddr)
	remote, rok := conn.RemoteAddr().(*net.TCPAddr)
	if !lok || !rok {
		return Tuple{}
	}
	return Tuple{
		LocalIP:    ipvFrom(local.IP),
		RemoteIP:   ipvFrom(remote.IP),
		LocalPort:  Port(local.Port),
		RemotePort: Port(remote.Port),
	}
}

func ipvFrom(ip net.IP) IPV {
	if v4 := ip.To4(); v4 != nil {
		return ToIPV4(v4)
	}
	return ToIPV6(ip)
}
