package errors

import (
	"fmt"
	"io"
	"net"
	"syscall"
	"testing"
)

func TestNetworkError_Format(t *testing.T) {
	tests := []struct {
		name string
		err  NetworkError
		want string
	}{
		{
			name: "retryable",
			err:  NetworkError{Op: "accept", Addr: "0.0.0.0:5000", Err: io.EOF, Retryable: true},
			want: "accept 0.0.0.0:5000: EOF (retryable)",
		},
		{
			name: "non-retryable",
			err:  NetworkError{Op: "listen", Addr: ":8080", Err: fmt.Errorf("bind failed")},
			want: "listen :8080: bind failed",
		},
		{
			name: "no address",
			err:  NetworkError{Op: "poll", Err: fmt.Errorf("bad fd")},
			want: "poll: bad fd",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNetworkError_Unwrap(t *testing.T) {
	err := &NetworkError{Op: "recv", Addr: "x", Err: io.EOF}
	if !Is(err, io.EOF) {
		t.Error("should unwrap to io.EOF")
	}
}

func TestConfigError_Format(t *testing.T) {
	tests := []struct {
		name string
		err  ConfigError
		want string
	}{
		{
			name: "with value and hint",
			err: ConfigError{
				Field:   "port",
				Value:   99999,
				Message: "out of range 0-65535",
				Hint:    "use 0 for an ephemeral port",
			},
			want: "config: --port=99999: out of range 0-65535\n  hint: use 0 for an ephemeral port",
		},
		{
			name: "missing value no hint",
			err: ConfigError{
				Field:   "max-conns",
				Message: "must be positive",
			},
			want: "config: --max-conns: must be positive",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("got:\n%s\nwant:\n%s", got, tt.want)
			}
		})
	}
}

func TestWrap(t *testing.T) {
	inner := fmt.Errorf("address in use")
	err := Wrap("bind", "0.0.0.0:554", inner)

	var ne *NetworkError
	if !As(err, &ne) {
		t.Fatalf("Wrap returned %T, want *NetworkError", err)
	}
	if ne.Op != "bind" || ne.Addr != "0.0.0.0:554" {
		t.Errorf("wrong fields: Op=%q Addr=%q", ne.Op, ne.Addr)
	}
	if !Is(err, inner) {
		t.Error("should unwrap to inner error")
	}
}

func TestWrap_Nil(t *testing.T) {
	if err := Wrap("close", "", nil); err != nil {
		t.Errorf("Wrap(nil) = %v, want nil", err)
	}
}

// TestWrap_Retryable checks which errnos Wrap marks retryable.  Only
// the kernel's temporary conditions qualify; an aborted connection
// does not.
func TestWrap_Retryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"EINTR", syscall.EINTR, true},
		{"EMFILE", syscall.EMFILE, true},
		{"EBADF", syscall.EBADF, false},
		{"ECONNABORTED", syscall.ECONNABORTED, false},
		{"plain error", fmt.Errorf("boom"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ne *NetworkError
			if !As(Wrap("accept", "", tt.err), &ne) {
				t.Fatal("Wrap should return *NetworkError")
			}
			if ne.Retryable != tt.want {
				t.Errorf("Retryable = %v, want %v", ne.Retryable, tt.want)
			}
		})
	}
}

func TestIsInterrupted(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{syscall.EINTR, true},
		{syscall.EAGAIN, true},
		{Wrap("recv", "", syscall.EAGAIN), true},
		{syscall.ECONNRESET, false},
		{io.EOF, false},
		{nil, false},
	}
	for _, tt := range tests {
		if got := IsInterrupted(tt.err); got != tt.want {
			t.Errorf("IsInterrupted(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}

func TestClassifyRetryable_NetOpError(t *testing.T) {
	opErr := &net.OpError{
		Op:  "dial",
		Net: "tcp",
		Err: &net.DNSError{IsTemporary: true},
	}
	if !classifyRetryable(opErr) {
		t.Error("temporary OpError should be retryable")
	}
}

func TestSentinels(t *testing.T) {
	// Verify sentinel errors are distinct.
	sentinels := []error{
		ErrAlreadyRunning, ErrServerClosed, ErrSocket,
		ErrListen, ErrMaxConnections,
	}
	for i, a := range sentinels {
		for j, b := range sentinels {
			if i != j && Is(a, b) {
				t.Errorf("sentinel %d and %d should not match", i, j)
			}
		}
	}
}
