package httpd

import (
	"errors"
	"fmt"
	"io"
	"syscall"

	"gohttpd/httpmsg"
	ncerr "gohttpd/internal/errors"
	"gohttpd/internal/netutil"
	"gohttpd/util"
)

// acceptConn is the accept call used by the worker; tests replace it
// to inject listener failures.
var acceptConn = netutil.Accept

// run is the worker.  It owns lfd and conns until it returns; on the
// way out it evicts every live connection, closes lfd and finally
// closes done.
func (s *Server) run(lfd int, conns *table, done chan struct{}) {
	defer close(done)
	defer func() {
		if err := netutil.Close(lfd); err != nil {
			s.logger.Warn("closing listener: %v", err)
		}
	}()
	defer s.drain(conns)

	bufp := util.GetBufSize(s.cfg.ReadSize)
	defer util.PutBuf(bufp)
	buf := *bufp

	poller := netutil.NewPoller(len(conns.slots) + 1)
	owners := make([]int, 0, len(conns.slots))

	for s.running() {
		// Listener first, then every live slot in table order.
		poller.Reset()
		owners = owners[:0]
		poller.Add(lfd)
		for i := range conns.slots {
			if conns.slots[i].connected {
				poller.Add(conns.slots[i].fd)
				owners = append(owners, i)
			}
		}

		n, err := poller.Wait(s.cfg.PollInterval)
		if err != nil {
			s.fatal("readiness wait failed: %v", err)
			return
		}
		if n == 0 {
			continue
		}

		if poller.Readable(0) {
			if err := s.accept(lfd, conns); err != nil {
				s.fatal("accept failed: %v", err)
				return
			}
		}

		for j, i := range owners {
			if poller.Readable(j + 1) {
				s.serve(conns, i, buf)
			}
		}
	}
}

// fatal logs an error that ends the current worker generation.
func (s *Server) fatal(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	s.logger.Error("%s", msg)
	s.metrics.RecordError(msg)
}

// accept takes one pending connection.  Only failures of the listening
// socket itself are returned; anything wrong with the new connection
// is logged and the connection dropped.
func (s *Server) accept(lfd int, conns *table) error {
	fd, remote, err := acceptConn(lfd)
	if err != nil {
		if netutil.IsTransientAccept(err) {
			s.logger.Debug("accept: nothing to accept (%v)", err)
			return nil
		}
		return err
	}

	local, err := netutil.LocalAddr(fd)
	if err != nil {
		s.logger.Warn("connection from %s: %v", netutil.SockaddrString(remote), err)
		netutil.Close(fd) //nolint:errcheck
		return nil
	}
	if s.cfg.SendTimeout > 0 {
		if err := netutil.SetSendTimeout(fd, s.cfg.SendTimeout); err != nil {
			s.logger.Debug("fd %d: %v", fd, err)
		}
	}

	i, ok := conns.admit(fd, netutil.AddressBytes(local), netutil.AddressBytes(remote))
	if !ok {
		s.logger.Info("rejecting %s: %v (%d)",
			netutil.SockaddrString(remote), ncerr.ErrMaxConnections, len(conns.slots))
		s.metrics.ConnectionRejected()
		if err := netutil.Abort(fd); err != nil {
			s.logger.Debug("fd %d: %v", fd, err)
		}
		return nil
	}

	s.metrics.ConnectionOpened()
	s.logger.Verbose("slot %d: connection from %s (fd %d)",
		i, netutil.SockaddrString(remote), fd)
	return nil
}

// serve does one bounded read on slot i and processes every request
// the bytes complete.
func (s *Server) serve(conns *table, i int, buf []byte) {
	c := &conns.slots[i]
	if c.req == nil {
		c.req = httpmsg.NewRequest(s.cfg.RTSP)
	}

	n, err := netutil.Recv(c.fd, buf)
	if err != nil {
		if ncerr.IsInterrupted(err) {
			return
		}
		s.logger.Verbose("slot %d: %v", i, err)
		s.evict(conns, i)
		return
	}
	if n == 0 {
		s.logger.Verbose("slot %d: closed by peer", i)
		s.evict(conns, i)
		return
	}
	s.metrics.BytesReceived(int64(n))
	s.logger.Debug("slot %d: read %d bytes", i, n)

	data := buf[:n]
	for len(data) > 0 {
		if c.req == nil {
			c.req = httpmsg.NewRequest(s.cfg.RTSP)
		}
		used := c.req.Feed(data)
		data = data[used:]

		if c.req.HasError() {
			s.logger.Info("slot %d: bad request: %s", i, c.req.ErrorName())
			s.metrics.ParseError()
			s.evict(conns, i)
			return
		}
		if !c.req.IsComplete() {
			return
		}

		req := c.req
		c.req = nil
		if !s.respond(conns, i, req) {
			return
		}
	}
}

// respond hands a complete request to the application and writes the
// answer.  It reports false if the slot was evicted.
func (s *Server) respond(conns *table, i int, req *httpmsg.Request) bool {
	c := &conns.slots[i]
	s.metrics.RequestHandled()

	res := s.cb.ConnRequest(c.state, req)
	if res == nil {
		s.logger.Info("slot %d: no response to %s %s", i, req.Method(), req.URL())
		s.metrics.MissingResponse()
		return true
	}

	data := res.Data()
	sent, err := sendAll(func(b []byte) (int, error) { return netutil.Send(c.fd, b) }, data)
	s.metrics.BytesSent(int64(sent))
	if err != nil {
		s.logger.Warn("slot %d: send failed after %d of %d bytes: %v", i, sent, len(data), err)
		s.metrics.SendError()
	} else {
		s.logger.Debug("slot %d: sent %d bytes", i, sent)
	}

	if res.Disconnect() {
		s.logger.Verbose("slot %d: closing after response", i)
		s.evict(conns, i)
		return false
	}
	return true
}

// evict frees slot i and accounts for it.
func (s *Server) evict(conns *table, i int) {
	if err := conns.evict(i); err != nil {
		s.logger.Debug("slot %d: %v", i, err)
	}
	s.metrics.ConnectionClosed()
}

// drain evicts every live connection so each gets its ConnDestroy.
func (s *Server) drain(conns *table) {
	n := 0
	for i := range conns.slots {
		if conns.slots[i].connected {
			s.evict(conns, i)
			n++
		}
	}
	if n > 0 {
		s.logger.Verbose("closed %d connection(s) on shutdown", n)
	}
}

// sendAll keeps calling send until data is fully written or send
// fails.  It returns the number of bytes written.
func sendAll(send func([]byte) (int, error), data []byte) (int, error) {
	written := 0
	for written < len(data) {
		n, err := send(data[written:])
		written += n
		if err != nil {
			if errors.Is(err, syscall.EINTR) {
				continue
			}
			return written, err
		}
		if n == 0 {
			return written, io.ErrShortWrite
		}
	}
	return written, nil
}
