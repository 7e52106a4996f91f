//go:build linux || darwin

package netutil

import (
	"net"
	"strconv"

	"golang.org/x/sys/unix"
)

// AddressBytes returns the raw IP of sa in a protocol-agnostic form:
// 4 bytes for IPv4 (including IPv4-mapped IPv6 addresses), 16 bytes for
// IPv6, nil for anything else.  The slice is a copy.
func AddressBytes(sa unix.Sockaddr) []byte {
	switch a := sa.(type) {
	case *unix.SockaddrInet4:
		out := make([]byte, net.IPv4len)
		copy(out, a.Addr[:])
		return out
	case *unix.SockaddrInet6:
		ip := net.IP(a.Addr[:])
		if v4 := ip.To4(); v4 != nil {
			out := make([]byte, net.IPv4len)
			copy(out, v4)
			return out
		}
		out := make([]byte, net.IPv6len)
		copy(out, a.Addr[:])
		return out
	}
	return nil
}

// SockaddrPort returns the port of an inet socket address, or 0.
func SockaddrPort(sa unix.Sockaddr) int {
	switch a := sa.(type) {
	case *unix.SockaddrInet4:
		return a.Port
	case *unix.SockaddrInet6:
		return a.Port
	}
	return 0
}

// SockaddrString renders sa as "host:port" for log lines.
func SockaddrString(sa unix.Sockaddr) string {
	ip := AddressBytes(sa)
	if ip == nil {
		return "?"
	}
	return net.JoinHostPort(net.IP(ip).String(), strconv.Itoa(SockaddrPort(sa)))
}
