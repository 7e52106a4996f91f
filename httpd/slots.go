package httpd

import (
	"gohttpd/httpmsg"
	"gohttpd/internal/netutil"
)

// slot is one connection record.  A free slot has connected == false
// and holds nothing else.
type slot struct {
	connected bool
	fd        int
	state     any
	req       *httpmsg.Request
}

// table is the fixed arena of connection slots.  It is sized once and
// only ever touched by the worker goroutine.
type table struct {
	slots []slot
	cb    Callbacks
}

func newTable(size int, cb Callbacks) *table {
	t := &table{slots: make([]slot, size), cb: cb}
	for i := range t.slots {
		t.slots[i].fd = -1
	}
	return t
}

// admit stores fd in the lowest free slot and runs ConnInit for it.
// It reports false when every slot is taken; the caller still owns fd
// in that case.
func (t *table) admit(fd int, local, remote []byte) (int, bool) {
	for i := range t.slots {
		s := &t.slots[i]
		if s.connected {
			continue
		}
		s.connected = true
		s.fd = fd
		s.req = nil
		s.state = t.cb.ConnInit(local, remote)
		return i, true
	}
	return -1, false
}

// evict tears down the connection in slot i: the pending request is
// dropped, ConnDestroy runs, and the socket is half-closed for writing
// and closed.  The slot must be connected.
func (t *table) evict(i int) error {
	s := &t.slots[i]
	s.req = nil
	t.cb.ConnDestroy(s.state)
	err := netutil.CloseWrite(s.fd)
	*s = slot{fd: -1}
	return err
}

// active counts connected slots.
func (t *table) active() int {
	n := 0
	for i := range t.slots {
		if t.slots[i].connected {
			n++
		}
	}
	return n
}
