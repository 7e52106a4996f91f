package httpd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

// socketPair returns the table's end and the peer's end of a connected
// pair.  The peer end is closed at cleanup.
func socketPair(t *testing.T) (int, int) {
	t.Helper()
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	require.NoError(t, err)
	t.Cleanup(func() { unix.Close(fds[1]) }) //nolint:errcheck
	return fds[0], fds[1]
}

// TestTable_LowestIndex verifies admission always takes the lowest
// free slot and refuses once the table is full.
func TestTable_LowestIndex(t *testing.T) {
	rec := newRecorder()
	tbl := newTable(3, rec)

	for want := 0; want < 3; want++ {
		fd, _ := socketPair(t)
		i, ok := tbl.admit(fd, []byte{127, 0, 0, 1}, []byte{127, 0, 0, 1})
		require.True(t, ok)
		assert.Equal(t, want, i)
	}
	assert.Equal(t, 3, tbl.active())

	fd, _ := socketPair(t)
	_, ok := tbl.admit(fd, nil, nil)
	assert.False(t, ok, "a full table must refuse")
	unix.Close(fd) //nolint:errcheck

	require.NoError(t, tbl.evict(1))
	fd, _ = socketPair(t)
	i, ok := tbl.admit(fd, nil, nil)
	require.True(t, ok)
	assert.Equal(t, 1, i, "freed slot 1 should be reused")

	require.NoError(t, tbl.evict(2))
	require.NoError(t, tbl.evict(0))
	fd, _ = socketPair(t)
	i, ok = tbl.admit(fd, nil, nil)
	require.True(t, ok)
	assert.Equal(t, 0, i, "lowest free index wins")

	assert.Equal(t, 5, rec.inits())
	assert.Equal(t, 3, rec.destroys())
	assert.Equal(t, 2, tbl.active())
}

// TestTable_EvictClosesSocket verifies eviction runs ConnDestroy with
// the stored state and the peer sees end-of-stream.
func TestTable_EvictClosesSocket(t *testing.T) {
	rec := newRecorder()
	tbl := newTable(1, rec)

	fd, peer := socketPair(t)
	i, ok := tbl.admit(fd, []byte{10, 0, 0, 1}, []byte{10, 0, 0, 2})
	require.True(t, ok)

	state := tbl.slots[i].state
	require.NotNil(t, state)
	assert.Equal(t, []byte{10, 0, 0, 2}, state.(*connState).remote)

	require.NoError(t, tbl.evict(i))
	assert.False(t, tbl.slots[i].connected)
	assert.Equal(t, -1, tbl.slots[i].fd)
	assert.Nil(t, tbl.slots[i].state)
	assert.Equal(t, 1, rec.destroys())
	assert.Same(t, state, rec.destroyed()[0])

	buf := make([]byte, 8)
	n, err := unix.Read(peer, buf)
	require.NoError(t, err)
	assert.Zero(t, n, "peer should read EOF")
}

// TestTable_Fresh verifies a new table has no live slots.
func TestTable_Fresh(t *testing.T) {
	tbl := newTable(4, CallbackFuncs{})
	assert.Zero(t, tbl.active())
	assert.Len(t, tbl.slots, 4)
	for _, s := range tbl.slots {
		assert.Equal(t, -1, s.fd)
	}
}
