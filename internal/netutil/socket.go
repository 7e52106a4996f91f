//go:build linux || darwin

// Package netutil wraps the raw socket calls the request server
// multiplexes over: listening sockets, accept, address extraction,
// half-close and the poll(2) readiness wait.
//
// Everything here works on plain file descriptors so a single goroutine
// can watch the listener and every live connection at once.
package netutil

import (
	"errors"
	"fmt"
	"net"
	"time"

	"go.uber.org/multierr"
	"golang.org/x/sys/unix"

	ncerr "gohttpd/internal/errors"
)

// ListenConfig describes the listening socket to create.
type ListenConfig struct {
	Address string // numeric bind address; "" binds every interface
	Port    int    // 0 picks an ephemeral port
	IPv6    bool   // AF_INET6 socket that also accepts IPv4 (dual stack)
	Backlog int    // listen(2) backlog; <= 0 uses DefaultBacklog
}

// DefaultBacklog is the listen backlog used when none is configured.
const DefaultBacklog = 5

// Listen creates, binds and listens on a TCP socket.  It returns the
// descriptor and the port actually bound, which differs from lc.Port
// when an ephemeral port was requested.
//
// Failures are *errors.NetworkError with Op "socket", "bind" or "listen".
// The listening socket is non-blocking so a connection that vanishes
// between readiness and accept cannot stall the caller.
func Listen(lc ListenConfig) (fd int, port int, err error) {
	family := unix.AF_INET
	if lc.IPv6 {
		family = unix.AF_INET6
	}
	addr := FormatListenAddr(lc)

	sa, err := sockaddr(family, lc.Address, lc.Port)
	if err != nil {
		return -1, 0, ncerr.Wrap("socket", addr, err)
	}

	fd, err = unix.Socket(family, unix.SOCK_STREAM, unix.IPPROTO_TCP)
	if err != nil {
		return -1, 0, ncerr.Wrap("socket", addr, err)
	}
	unix.CloseOnExec(fd)

	fail := func(op string, err error) (int, int, error) {
		unix.Close(fd) //nolint:errcheck
		return -1, 0, ncerr.Wrap(op, addr, err)
	}

	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		return fail("socket", err)
	}
	if lc.IPv6 {
		if err := unix.SetsockoptInt(fd, unix.IPPROTO_IPV6, unix.IPV6_V6ONLY, 0); err != nil {
			return fail("socket", err)
		}
	}
	if err := unix.Bind(fd, sa); err != nil {
		return fail("bind", err)
	}
	if err := unix.SetNonblock(fd, true); err != nil {
		return fail("socket", err)
	}

	backlog := lc.Backlog
	if backlog <= 0 {
		backlog = DefaultBacklog
	}
	if err := unix.Listen(fd, backlog); err != nil {
		return fail("listen", err)
	}

	bound, err := unix.Getsockname(fd)
	if err != nil {
		return fail("listen", err)
	}
	return fd, SockaddrPort(bound), nil
}

// FormatListenAddr renders lc as host:port for diagnostics.
func FormatListenAddr(lc ListenConfig) string {
	host := lc.Address
	if host == "" {
		host = "0.0.0.0"
		if lc.IPv6 {
			host = "::"
		}
	}
	return net.JoinHostPort(host, fmt.Sprint(lc.Port))
}

func sockaddr(family int, address string, port int) (unix.Sockaddr, error) {
	if port < 0 || port > 65535 {
		return nil, fmt.Errorf("port %d out of range 0-65535", port)
	}
	var ip net.IP
	if address != "" {
		ip = net.ParseIP(address)
		if ip == nil {
			return nil, fmt.Errorf("cannot parse %q as an IP address", address)
		}
	}

	if family == unix.AF_INET {
		sa := &unix.SockaddrInet4{Port: port}
		if ip != nil {
			v4 := ip.To4()
			if v4 == nil {
				return nil, fmt.Errorf("%q is not an IPv4 address (enable IPv6)", address)
			}
			copy(sa.Addr[:], v4)
		}
		return sa, nil
	}

	sa := &unix.SockaddrInet6{Port: port}
	if ip != nil {
		copy(sa.Addr[:], ip.To16())
	}
	return sa, nil
}

// Accept takes one pending connection off the listening socket.  The
// new descriptor is put in blocking mode: reads only happen after the
// poller reported readiness, and sends must be able to complete.
func Accept(fd int) (int, unix.Sockaddr, error) {
	nfd, sa, err := unix.Accept(fd)
	if err != nil {
		return -1, nil, ncerr.Wrap("accept", "", err)
	}
	unix.CloseOnExec(nfd)
	if err := unix.SetNonblock(nfd, false); err != nil {
		unix.Close(nfd) //nolint:errcheck
		return -1, nil, ncerr.Wrap("accept", SockaddrString(sa), err)
	}
	return nfd, sa, nil
}

// IsTransientAccept reports whether an accept failure only means there
// was nothing to accept this time (the peer went away, or a signal
// interrupted the call).
func IsTransientAccept(err error) bool {
	return ncerr.IsInterrupted(err) || errors.Is(err, unix.ECONNABORTED)
}

// LocalAddr returns the local address a connected socket is bound to.
func LocalAddr(fd int) (unix.Sockaddr, error) {
	sa, err := unix.Getsockname(fd)
	if err != nil {
		return nil, ncerr.Wrap("getsockname", "", err)
	}
	return sa, nil
}

// SetSendTimeout bounds how long a single send may block.  A zero
// duration removes the bound.
func SetSendTimeout(fd int, d time.Duration) error {
	tv := unix.NsecToTimeval(d.Nanoseconds())
	return ncerr.Wrap("setsockopt", "",
		unix.SetsockoptTimeval(fd, unix.SOL_SOCKET, unix.SO_SNDTIMEO, &tv))
}

// Recv performs one read of at most len(buf) bytes.  It returns 0, nil
// on an orderly close by the peer.
func Recv(fd int, buf []byte) (int, error) {
	n, err := unix.Read(fd, buf)
	if err != nil {
		return 0, ncerr.Wrap("recv", "", err)
	}
	return n, nil
}

// Send performs one write and reports how many bytes the kernel took,
// which may be fewer than len(buf).
func Send(fd int, buf []byte) (int, error) {
	n, err := unix.Write(fd, buf)
	if err != nil {
		return 0, ncerr.Wrap("send", "", err)
	}
	return n, nil
}

// ShutdownWrite half-closes the socket: the peer sees EOF but may
// still have data in flight towards us.
func ShutdownWrite(fd int) error {
	return shutdown(fd, unix.SHUT_WR)
}

// Shutdown closes both directions without releasing the descriptor.
func Shutdown(fd int) error {
	return shutdown(fd, unix.SHUT_RDWR)
}

func shutdown(fd, how int) error {
	err := unix.Shutdown(fd, how)
	// ENOTCONN just means the peer beat us to it.
	if err == nil || errors.Is(err, unix.ENOTCONN) {
		return nil
	}
	return ncerr.Wrap("shutdown", "", err)
}

// Close releases the descriptor.
func Close(fd int) error {
	return ncerr.Wrap("close", "", unix.Close(fd))
}

// CloseWrite half-closes fd for writing and then closes it.  Both steps
// always run; their failures are combined.
func CloseWrite(fd int) error {
	return multierr.Append(ShutdownWrite(fd), Close(fd))
}

// Abort shuts fd down in both directions and closes it, used to turn
// away connections that will never be served.
func Abort(fd int) error {
	return multierr.Append(Shutdown(fd), Close(fd))
}
