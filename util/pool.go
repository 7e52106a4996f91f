package util

import "sync"

// DefaultBufSize is the standard read buffer size for connection I/O.
const DefaultBufSize = 4 * 1024

// BufPool provides reusable byte buffers for network reads, so a server
// generation that is started and stopped repeatedly does not allocate a
// fresh read buffer each time.
var BufPool = sync.Pool{
	New: func() interface{} {
		buf := make([]byte, DefaultBufSize)
		return &buf
	},
}

// GetBuf retrieves a buffer from the pool.  Callers must return it
// with [PutBuf] when finished.
func GetBuf() *[]byte {
	buf := BufPool.Get().(*[]byte)
	*buf = (*buf)[:cap(*buf)]
	return buf
}

// GetBufSize retrieves a pooled buffer of at least size bytes, resliced
// to exactly size.
func GetBufSize(size int) *[]byte {
	buf := GetBuf()
	if cap(*buf) < size {
		PutBuf(buf)
		b := make([]byte, size)
		return &b
	}
	*buf = (*buf)[:size]
	return buf
}

// PutBuf returns a buffer to the pool for reuse.  Buffers that were
// not allocated by the pool are dropped.
func PutBuf(buf *[]byte) {
	if buf == nil || cap(*buf) != DefaultBufSize {
		return
	}
	BufPool.Put(buf)
}
