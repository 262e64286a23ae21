// Package capture acquires a microphone-style PCM source and turns it
// into a bounded stream of fixed-duration audio chunks.
//
// The hardware binding is abstracted behind Source so embedders can plug
// in whatever the platform provides (a device stream, a network feed, a
// file); the package ships a reader-backed source and a synthetic tone
// source for tests.
package capture

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/voxlate/voxlate/pkg/audio/pcm"
	"github.com/voxlate/voxlate/pkg/buffer"
)

// Sentinel errors mapped from source acquisition failures.
var (
	// ErrPermissionDenied means the user denied access to the input device.
	ErrPermissionDenied = errors.New("capture: permission denied")

	// ErrDeviceUnavailable means no usable input device exists.
	ErrDeviceUnavailable = errors.New("capture: no input device")
)

// Source is a raw PCM input. Read returns s16le mono samples in the
// source's native format and blocks until data is available.
type Source interface {
	// Open acquires the underlying input. It should return
	// ErrPermissionDenied or ErrDeviceUnavailable (possibly wrapped)
	// when acquisition fails for those reasons.
	Open(ctx context.Context) error

	// Format returns the source's native PCM format.
	Format() pcm.Format

	io.Reader

	// Close releases the input. Must be safe to call more than once.
	Close() error
}

// Capturer produces fixed-duration chunks from a Source at the source's
// own pace. It is restartable: Stop then Start begins a fresh chunk
// sequence.
type Capturer struct {
	src      Source
	chunkDur time.Duration
	queueCap int

	level atomic.Uint64 // math.Float64bits of the last RMS sample

	mu      sync.Mutex
	running bool
	queue   *buffer.Ring[pcm.Chunk]
	done    chan struct{}
	wg      sync.WaitGroup
}

// Option configures a Capturer.
type Option func(*Capturer)

// WithChunkDuration sets the duration of each produced chunk.
// Default 20ms.
func WithChunkDuration(d time.Duration) Option {
	return func(c *Capturer) { c.chunkDur = d }
}

// WithQueueCapacity bounds the number of chunks held between the
// capturer and its consumer; the oldest chunks are dropped beyond this.
// Default 64.
func WithQueueCapacity(n int) Option {
	return func(c *Capturer) { c.queueCap = n }
}

// New creates a Capturer reading from src.
func New(src Source, opts ...Option) *Capturer {
	c := &Capturer{
		src:      src,
		chunkDur: 20 * time.Millisecond,
		queueCap: 64,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start opens the source and begins producing chunks into the returned
// queue. The queue is closed (ErrDone after drain) when the source ends
// or Stop is called. Starting an already-started Capturer returns the
// current queue.
func (c *Capturer) Start(ctx context.Context) (*buffer.Ring[pcm.Chunk], error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		return c.queue, nil
	}

	if err := c.src.Open(ctx); err != nil {
		return nil, fmt.Errorf("capture: open source: %w", err)
	}

	c.queue = buffer.NewRing[pcm.Chunk](c.queueCap)
	c.done = make(chan struct{})
	c.running = true

	c.wg.Add(1)
	go c.readLoop(c.queue, c.done)
	return c.queue, nil
}

// readLoop pulls native-format blocks from the source until it ends or
// the capturer stops.
func (c *Capturer) readLoop(queue *buffer.Ring[pcm.Chunk], done chan struct{}) {
	defer c.wg.Done()

	format := c.src.Format()
	size := format.BytesIn(c.chunkDur)

	for {
		select {
		case <-done:
			queue.CloseWrite()
			return
		default:
		}

		buf := make([]byte, size)
		_, err := io.ReadFull(c.src, buf)
		if err != nil {
			select {
			case <-done:
				// Stopped mid-read; the source error is just teardown.
				queue.CloseWrite()
				return
			default:
			}
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				queue.CloseWrite()
			} else {
				queue.CloseWithError(fmt.Errorf("capture: read source: %w", err))
			}
			return
		}

		chunk := pcm.NewChunk(format, buf)
		c.level.Store(math.Float64bits(chunk.RMS()))
		if queue.Add(chunk) != nil {
			return
		}
	}
}

// Format returns the native PCM format of the underlying source.
func (c *Capturer) Format() pcm.Format {
	return c.src.Format()
}

// Level returns the most recent input RMS amplitude in [0, 1]. This is a
// display-only side channel; it never blocks chunk production.
func (c *Capturer) Level() float64 {
	return math.Float64frombits(c.level.Load())
}

// Running reports whether the capturer is currently producing chunks.
func (c *Capturer) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// Stop releases the source and ends the current chunk sequence.
// Idempotent: safe to call when not started.
func (c *Capturer) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.running {
		return
	}
	c.running = false
	close(c.done)
	c.src.Close()
	c.wg.Wait()
	c.level.Store(0)
}
