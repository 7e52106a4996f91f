package core

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gohttpd/config"
	ncerr "gohttpd/internal/errors"
	"gohttpd/internal/metrics"
	"gohttpd/internal/retry"
	"gohttpd/util"
)

func quietLogger() *util.Logger {
	l := util.NewLogger(int(util.LogDebug))
	l.SetOutput(io.Discard)
	return l
}

// fakeServer is a Server whose worker can be made to die on demand.
type fakeServer struct {
	mu        sync.Mutex
	running   bool
	closed    bool
	done      chan struct{}
	starts    []int
	failNext  int // Start calls that fail before one succeeds
	stops     int
	closeHits int
}

func (f *fakeServer) Start(port int) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.starts = append(f.starts, port)
	if f.closed {
		return 0, ncerr.ErrServerClosed
	}
	if f.running {
		return 0, ncerr.ErrAlreadyRunning
	}
	if f.failNext > 0 {
		f.failNext--
		return 0, fmt.Errorf("%w: address in use", ncerr.ErrSocket)
	}
	if port == 0 {
		port = 41000
	}
	f.running = true
	f.done = make(chan struct{})
	return port, nil
}

func (f *fakeServer) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stops++
	if f.running {
		f.running = false
		select {
		case <-f.done:
		default:
			close(f.done)
		}
	}
}

func (f *fakeServer) Close() error {
	f.Stop()
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	f.closeHits++
	return nil
}

func (f *fakeServer) Done() <-chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.done == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return f.done
}

func (f *fakeServer) Addr() string { return "fake" }

// crash simulates a fatal worker exit: Done closes but the server is
// still considered running until Stop.
func (f *fakeServer) crash() {
	f.mu.Lock()
	defer f.mu.Unlock()
	close(f.done)
}

func (f *fakeServer) startCalls() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int(nil), f.starts...)
}

func fastBackoff() *retry.Backoff {
	return &retry.Backoff{InitialDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, MaxAttempts: 5}
}

func runAsync(ctx context.Context, m Mode) <-chan error {
	errCh := make(chan error, 1)
	go func() { errCh <- m.Run(ctx) }()
	return errCh
}

func waitErr(t *testing.T, errCh <-chan error) error {
	t.Helper()
	select {
	case err := <-errCh:
		return err
	case <-time.After(3 * time.Second):
		t.Fatal("mode did not return in time")
		return nil
	}
}

// TestServeMode_Cancel verifies cancellation closes the server and
// returns nil.
func TestServeMode_Cancel(t *testing.T) {
	fs := &fakeServer{}
	ctx, cancel := context.WithCancel(context.Background())
	errCh := runAsync(ctx, &ServeMode{Server: fs, Port: 5000, Logger: quietLogger()})

	require.Eventually(t, func() bool { return len(fs.startCalls()) == 1 }, time.Second, time.Millisecond)
	cancel()

	assert.NoError(t, waitErr(t, errCh))
	assert.Equal(t, 1, fs.closeHits)
}

// TestServeMode_StartFailure verifies a failed first start is returned.
func TestServeMode_StartFailure(t *testing.T) {
	fs := &fakeServer{failNext: 1}
	err := (&ServeMode{Server: fs, Logger: quietLogger()}).Run(context.Background())
	assert.ErrorIs(t, err, ncerr.ErrSocket)
	assert.Equal(t, 1, fs.closeHits)
}

// TestServeMode_Restart verifies a crashed worker is restarted on the
// originally bound port, retrying failed starts.
func TestServeMode_Restart(t *testing.T) {
	fs := &fakeServer{}
	m := metrics.New()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := runAsync(ctx, &ServeMode{
		Server:      fs,
		Port:        0,
		AutoRestart: true,
		Backoff:     fastBackoff(),
		Metrics:     m,
		Logger:      quietLogger(),
	})
	require.Eventually(t, func() bool { return len(fs.startCalls()) == 1 }, time.Second, time.Millisecond)

	fs.mu.Lock()
	fs.failNext = 2
	fs.mu.Unlock()
	fs.crash()

	require.Eventually(t, func() bool { return m.Restarts() == 1 }, 2*time.Second, time.Millisecond)
	assert.Equal(t, []int{0, 41000, 41000, 41000}, fs.startCalls())
	fs.mu.Lock()
	assert.GreaterOrEqual(t, fs.stops, 1)
	fs.mu.Unlock()

	cancel()
	assert.NoError(t, waitErr(t, errCh))
}

// TestServeMode_NoRestart verifies a crash is an error without
// AutoRestart.
func TestServeMode_NoRestart(t *testing.T) {
	fs := &fakeServer{}
	errCh := runAsync(context.Background(), &ServeMode{Server: fs, Logger: quietLogger()})
	require.Eventually(t, func() bool { return len(fs.startCalls()) == 1 }, time.Second, time.Millisecond)

	fs.crash()
	assert.Error(t, waitErr(t, errCh))
}

// TestServeMode_RestartGivesUp verifies the backoff budget bounds
// restart attempts.
func TestServeMode_RestartGivesUp(t *testing.T) {
	fs := &fakeServer{}
	errCh := runAsync(context.Background(), &ServeMode{
		Server:      fs,
		AutoRestart: true,
		Backoff:     fastBackoff(),
		Logger:      quietLogger(),
	})
	require.Eventually(t, func() bool { return len(fs.startCalls()) == 1 }, time.Second, time.Millisecond)

	fs.mu.Lock()
	fs.failNext = 100
	fs.mu.Unlock()
	fs.crash()

	err := waitErr(t, errCh)
	assert.ErrorIs(t, err, ncerr.ErrSocket)
	assert.Len(t, fs.startCalls(), 6)
}

// TestServeMode_RealServer runs the full daemon stack built from a
// config against a loopback client.
func TestServeMode_RealServer(t *testing.T) {
	port, err := util.FindFreePort()
	require.NoError(t, err)

	cfg := config.Default()
	cfg.Port = port
	cfg.BindAddress = "127.0.0.1"
	cfg.PollInterval = 20 * time.Millisecond

	modes, err := Build(cfg, quietLogger(), metrics.New())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := runAsync(ctx, modes[0])

	var conn net.Conn
	require.Eventually(t, func() bool {
		conn, err = net.DialTimeout("tcp", fmt.Sprintf("127.0.0.1:%d", port), time.Second)
		return err == nil
	}, 2*time.Second, 10*time.Millisecond)
	defer conn.Close()

	_, err = conn.Write([]byte("GET / HTTP/1.1\r\nHost: x\r\n\r\n"))
	require.NoError(t, err)
	res, err := http.ReadResponse(bufio.NewReader(conn), nil)
	require.NoError(t, err)
	body, _ := io.ReadAll(res.Body)
	assert.Equal(t, 200, res.StatusCode)
	assert.Contains(t, string(body), "hello 127.0.0.1")

	cancel()
	assert.NoError(t, waitErr(t, errCh))
}
