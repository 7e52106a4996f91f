package session

import (
	"net"
	"testing"

	"github.com/google/uuid"

	"gohttpd/util"
)

// TestNew_Addresses verifies raw address bytes become IPs and are
// copied rather than aliased.
func TestNew_Addresses(t *testing.T) {
	local := []byte{192, 168, 1, 2}
	remote := net.ParseIP("2001:db8::7")

	s := New(local, remote, util.NewLogger(0))
	local[0] = 10 // must not affect the session

	if got := s.Local.String(); got != "192.168.1.2" {
		t.Errorf("Local = %s, want 192.168.1.2", got)
	}
	if got := s.Remote.String(); got != "2001:db8::7" {
		t.Errorf("Remote = %s, want 2001:db8::7", got)
	}
	if s.ID == uuid.Nil {
		t.Error("session id should be set")
	}
	if s.Values == nil {
		t.Error("Values should be initialised")
	}
}

// TestNew_BadAddress verifies odd-length addresses are dropped.
func TestNew_BadAddress(t *testing.T) {
	s := New([]byte{1, 2, 3}, nil, util.NewLogger(0))
	if s.Local != nil || s.Remote != nil {
		t.Errorf("expected nil IPs, got %v %v", s.Local, s.Remote)
	}
}

// TestTouch verifies request numbering per connection.
func TestTouch(t *testing.T) {
	s := New(nil, nil, util.NewLogger(0))
	for want := 1; want <= 3; want++ {
		if got := s.Touch(); got != want {
			t.Errorf("Touch() = %d, want %d", got, want)
		}
	}
	if s.Age() < 0 {
		t.Error("Age should not be negative")
	}
}

// TestNew_UniqueIDs verifies sessions are distinguishable in logs.
func TestNew_UniqueIDs(t *testing.T) {
	a := New(nil, nil, util.NewLogger(0))
	b := New(nil, nil, util.NewLogger(0))
	if a.ID == b.ID {
		t.Error("two sessions share an id")
	}
}
