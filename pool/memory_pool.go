package pool

import (
	"bytes"
	"sync"
)

// maxPooledBuffer keeps one oversized encode from pinning its memory in the pool.
const maxPooledBuffer = 16 << 20

// BufferPool provides a pool of reusable encode buffers
var BufferPool = sync.Pool{
	New: func() any {
		return new(bytes.Buffer)
	},
}

// GetBuffer returns an empty buffer from the pool
func GetBuffer() *bytes.Buffer {
	return BufferPool.Get().(*bytes.Buffer)
}

// PutBuffer returns a buffer to the pool after resetting it
func PutBuffer(buf *bytes.Buffer) {
	if buf.Cap() > maxPooledBuffer {
		return
	}
	buf.Reset()
	BufferPool.Put(buf)
}

// DetachBytes copies the buffer contents so they outlive the pooled buffer.
func DetachBytes(buf *bytes.Buffer) []byte {
	data := make([]byte, buf.Len())
	copy(data, buf.Bytes())
	return data
}
