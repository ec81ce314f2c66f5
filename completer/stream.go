package completer

import "sync"

// Stream is a multi-shot push channel used for server-streaming
// invocations: Push appends items, Close marks end-of-stream, and Next
// drains items in FIFO order before reporting end-of-stream.
type Stream[T any] struct {
	items chan T
}

// StreamCompleter is the producer half of a Stream.
type StreamCompleter[T any] struct {
	mu     sync.Mutex
	items  chan T
	closed bool
}

// NewStream creates a linked producer/consumer pair with the given
// buffer size for in-flight items.
func NewStream[T any](buffer int) (*Stream[T], *StreamCompleter[T]) {
	ch := make(chan T, buffer)
	return &Stream[T]{items: ch}, &StreamCompleter[T]{items: ch}
}

// Next returns the next item and true, or the zero value and false once
// the stream is closed and drained.
func (s *Stream[T]) Next() (T, bool) {
	v, ok := <-s.items
	return v, ok
}

// Push enqueues an item. Push after Close is a no-op.
func (c *StreamCompleter[T]) Push(item T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.items <- item
}

// Close marks end-of-stream. Idempotent.
func (c *StreamCompleter[T]) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.items)
}
