package tailbuffer

import (
	"sync"
)

// Buffer is a bounded ring retaining the most recent bytes written to it.
// The supervisor attaches one to the gateway process's output so that exit
// diagnostics and the logs command can show the tail without unbounded
// memory growth. Safe for concurrent use.
type Buffer struct {
	mu       sync.Mutex
	data     []byte
	start    int
	length   int
	capacity int
}

// New creates a buffer retaining at most capacity bytes.
func New(capacity int) *Buffer {
	return &Buffer{
		data:     make([]byte, capacity),
		capacity: capacity,
	}
}

// Write implements io.Writer. Writes never fail; older bytes are evicted
// once the buffer is full, and writes larger than the capacity keep only
// their final capacity bytes.
func (b *Buffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	written := len(p)
	if len(p) > b.capacity {
		p = p[len(p)-b.capacity:]
	}
	for _, c := range p {
		end := (b.start + b.length) % b.capacity
		b.data[end] = c
		if b.length < b.capacity {
			b.length++
		} else {
			b.start = (b.start + 1) % b.capacity
		}
	}
	return written, nil
}

// Snapshot returns a copy of the retained bytes in write order.
func (b *Buffer) Snapshot() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]byte, b.length)
	for i := 0; i < b.length; i++ {
		out[i] = b.data[(b.start+i)%b.capacity]
	}
	return out
}

// Len returns the number of retained bytes.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.length
}
