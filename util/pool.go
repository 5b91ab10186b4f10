package util

import "sync"

// RxBufferSize is the receive capacity of a single message: one read
// from a connection or one datagram never yields more than this.
const RxBufferSize = 250

// BufPool provides reusable receive buffers for the per-connection
// reader goroutines.
var BufPool = sync.Pool{
	New: func() interface{} {
		buf := make([]byte, RxBufferSize)
		return &buf
	},
}

// GetBuf retrieves a buffer from the pool.  Callers must return it
// with [PutBuf] when finished.
func GetBuf() *[]byte {
	return BufPool.Get().(*[]byte)
}

// PutBuf returns a buffer to the pool for reuse.
func PutBuf(buf *[]byte) {
	if buf == nil {
		return
	}
	BufPool.Put(buf)
}
