// Package buffer provides the bounded queues that connect the stages of
// the audio pipeline.
//
// Ring is a fixed-capacity drop-oldest queue: under sustained
// backpressure (a slow consumer) the oldest elements are discarded so
// memory stays bounded and the consumer always sees the most recent
// data.
package buffer

import (
	"errors"
	"fmt"
	"io"
	"sync"
)

// ErrDone is returned by Next when the queue is closed for writing and
// fully drained.
var ErrDone = errors.New("buffer: done")

// Ring is a thread-safe fixed-capacity queue. Add never blocks: when the
// queue is full the oldest element is dropped to make room. Next blocks
// until an element is available or the queue is closed.
type Ring[T any] struct {
	notify chan struct{}

	mu         sync.Mutex
	buf        []T
	head, tail int64
	dropped    int64
	closeWrite bool
	closeErr   error
}

// NewRing creates a Ring holding at most capacity elements.
func NewRing[T any](capacity int) *Ring[T] {
	if capacity <= 0 {
		panic("buffer: ring capacity must be positive")
	}
	return &Ring[T]{
		notify: make(chan struct{}, 1),
		buf:    make([]T, capacity),
	}
}

// Add appends v to the queue, dropping the oldest element if full.
func (r *Ring[T]) Add(v T) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closeErr != nil {
		return fmt.Errorf("buffer: add to closed ring: %w", r.closeErr)
	}
	if r.closeWrite {
		return fmt.Errorf("buffer: add to closed ring: %w", io.ErrClosedPipe)
	}
	r.buf[r.tail%int64(len(r.buf))] = v
	r.tail++
	if r.tail-r.head > int64(len(r.buf)) {
		r.head++
		r.dropped++
	}
	select {
	case r.notify <- struct{}{}:
	default:
	}
	return nil
}

// Next removes and returns the oldest element, blocking until one is
// available. Returns ErrDone after CloseWrite once the queue is drained,
// or the close error after CloseWithError.
func (r *Ring[T]) Next() (v T, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for r.head == r.tail {
		if r.closeErr != nil {
			return v, r.closeErr
		}
		if r.closeWrite {
			return v, ErrDone
		}
		r.mu.Unlock()
		<-r.notify
		r.mu.Lock()
	}
	i := r.head % int64(len(r.buf))
	v = r.buf[i]
	var zero T
	r.buf[i] = zero
	r.head++
	return v, nil
}

// Flush discards all queued elements. The queue remains usable.
func (r *Ring[T]) Flush() {
	r.mu.Lock()
	defer r.mu.Unlock()
	var zero T
	for i := r.head; i < r.tail; i++ {
		r.buf[i%int64(len(r.buf))] = zero
	}
	r.head = r.tail
}

// Len returns the number of queued elements.
func (r *Ring[T]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int(r.tail - r.head)
}

// Dropped returns the total number of elements discarded under
// backpressure since creation.
func (r *Ring[T]) Dropped() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dropped
}

// CloseWrite closes the write side. Pending elements remain readable;
// once drained, Next returns ErrDone. Idempotent.
func (r *Ring[T]) CloseWrite() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closeWrite {
		return nil
	}
	r.closeWrite = true
	close(r.notify)
	return nil
}

// CloseWithError tears down both ends: queued elements are discarded and
// all blocked and future calls return err. Idempotent; the first error
// wins.
func (r *Ring[T]) CloseWithError(err error) error {
	if err == nil {
		err = io.ErrClosedPipe
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closeErr != nil {
		return nil
	}
	r.closeErr = err
	r.head = r.tail
	if !r.closeWrite {
		r.closeWrite = true
		close(r.notify)
	}
	return nil
}

// Close is CloseWithError(io.ErrClosedPipe).
func (r *Ring[T]) Close() error {
	return r.CloseWithError(io.ErrClosedPipe)
}
