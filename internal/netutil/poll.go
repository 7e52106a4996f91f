//go:build linux || darwin

package netutil

import (
	"time"

	"golang.org/x/sys/unix"

	ncerr "gohttpd/internal/errors"
)

// readyMask is what counts as "something to do" for a watched socket.
// Hang-ups and errors are reported as readable so the following read
// or accept surfaces them.
const readyMask = unix.POLLIN | unix.POLLHUP | unix.POLLERR | unix.POLLNVAL

// Poller is a reusable readiness set for poll(2).  The set is rebuilt
// every iteration with Reset and Add; indices returned by Add stay valid
// until the next Reset.
type Poller struct {
	fds []unix.PollFd
}

// NewPoller returns a Poller with room for size descriptors.
func NewPoller(size int) *Poller {
	return &Poller{fds: make([]unix.PollFd, 0, size)}
}

// Reset empties the set.
func (p *Poller) Reset() { p.fds = p.fds[:0] }

// Len is the number of watched descriptors.
func (p *Poller) Len() int { return len(p.fds) }

// Add watches fd for readability and returns its index in the set.
func (p *Poller) Add(fd int) int {
	p.fds = append(p.fds, unix.PollFd{Fd: int32(fd), Events: unix.POLLIN})
	return len(p.fds) - 1
}

// Wait blocks until at least one watched descriptor is ready or timeout
// elapses, and returns the number of ready descriptors (0 on timeout).
// A wait interrupted by a signal is reported as a timeout.
func (p *Poller) Wait(timeout time.Duration) (int, error) {
	ms := int(timeout / time.Millisecond)
	if ms == 0 && timeout > 0 {
		ms = 1
	}
	n, err := unix.Poll(p.fds, ms)
	if err != nil {
		if ncerr.IsInterrupted(err) {
			return 0, nil
		}
		return 0, ncerr.Wrap("poll", "", err)
	}
	return n, nil
}

// Readable reports whether the descriptor at index i was ready in the
// last Wait.
func (p *Poller) Readable(i int) bool {
	return p.fds[i].Revents&readyMask != 0
}
