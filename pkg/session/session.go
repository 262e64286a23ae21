// Package session is the controller that binds capture, encoding, the
// live transport and playback into one interpreter session: it owns at
// most one connection, pumps microphone chunks upstream, gates model
// audio on the way down, and drives the optional video stream and
// recorder.
package session

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/voxlate/voxlate/pkg/audio/capture"
	"github.com/voxlate/voxlate/pkg/audio/pcm"
	"github.com/voxlate/voxlate/pkg/buffer"
	"github.com/voxlate/voxlate/pkg/live"
	"github.com/voxlate/voxlate/pkg/media"
)

// Controller drives one live interpreter session.
type Controller struct {
	transport Transport
	capturer  *capture.Capturer
	sink      io.Writer

	frameInterval time.Duration
	playbackCap   int
	recorder      *Recorder

	subscribe sync.Once

	mu        sync.Mutex
	connected bool
	muted     bool
	capturing bool
	playback  *playbackGate
	video     VideoSource
	videoDone chan struct{}
	recFns    []func(bool)
}

// Option configures a Controller.
type Option func(*Controller)

// WithRecorder tees the session into rec.
func WithRecorder(rec *Recorder) Option {
	return func(c *Controller) { c.recorder = rec }
}

// WithFrameInterval sets the video frame cadence. Default 500ms (2 fps).
func WithFrameInterval(d time.Duration) Option {
	return func(c *Controller) { c.frameInterval = d }
}

// WithPlaybackQueue bounds the playback gate. Default 64 chunks.
func WithPlaybackQueue(n int) Option {
	return func(c *Controller) { c.playbackCap = n }
}

// New creates a Controller. sink receives model audio (24kHz mono
// s16le); pass nil to discard it.
func New(transport Transport, capturer *capture.Capturer, sink io.Writer, opts ...Option) *Controller {
	if sink == nil {
		sink = io.Discard
	}
	c := &Controller{
		transport:     transport,
		capturer:      capturer,
		sink:          sink,
		frameInterval: 500 * time.Millisecond,
		playbackCap:   64,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Connect establishes the live session and, unless muted, starts the
// microphone pump. A second Connect against a live session is rejected
// and leaves the session, including its playback gate, untouched.
func (c *Controller) Connect(ctx context.Context, cfg *live.ConnectConfig) error {
	c.subscribe.Do(c.subscribeEvents)

	gate := newPlaybackGate(c.sink, c.playbackCap)
	c.mu.Lock()
	if c.connected {
		c.mu.Unlock()
		gate.stop()
		return live.ErrAlreadyConnected
	}
	c.playback = gate
	c.mu.Unlock()

	if err := c.transport.Connect(ctx, cfg); err != nil {
		c.mu.Lock()
		if c.playback == gate {
			c.playback = nil
		}
		c.mu.Unlock()
		gate.stop()
		return err
	}

	c.mu.Lock()
	c.connected = true
	muted := c.muted
	c.mu.Unlock()

	if c.recorder != nil {
		if err := c.recorder.Begin(ctx); err != nil {
			slog.Warn("recording disabled for this session", "error", err)
		}
	}

	if !muted {
		if err := c.startCapture(ctx); err != nil {
			c.transport.Disconnect()
			c.teardown()
			return err
		}
	}
	return nil
}

// Disconnect ends the session. Idempotent.
func (c *Controller) Disconnect() {
	c.transport.Disconnect()
	c.teardown()
}

// Connected reports whether a session is established.
func (c *Controller) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// SetMuted pauses or resumes the microphone without touching the
// connection.
func (c *Controller) SetMuted(muted bool) error {
	c.mu.Lock()
	if c.muted == muted {
		c.mu.Unlock()
		return nil
	}
	c.muted = muted
	connected := c.connected
	c.mu.Unlock()

	if !connected {
		return nil
	}
	if muted {
		c.capturer.Stop()
		return nil
	}
	return c.startCapture(context.Background())
}

// Muted reports the mute flag.
func (c *Controller) Muted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.muted
}

// Volume returns the microphone's most recent RMS level.
func (c *Controller) Volume() float64 {
	return c.capturer.Level()
}

// OnRecordingStateChange registers fn to be told when the microphone
// starts or stops feeding the session.
func (c *Controller) OnRecordingStateChange(fn func(bool)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.recFns = append(c.recFns, fn)
}

// SetVideoSource switches the single non-audio stream. The previous
// source is stopped before the new one starts; nil selects none.
func (c *Controller) SetVideoSource(ctx context.Context, src VideoSource) error {
	c.mu.Lock()
	old, oldDone := c.video, c.videoDone
	c.video, c.videoDone = nil, nil
	c.mu.Unlock()

	if oldDone != nil {
		close(oldDone)
	}
	if old != nil {
		old.Stop()
	}
	if src == nil {
		return nil
	}

	if err := src.Start(ctx); err != nil {
		return fmt.Errorf("session: start video source: %w", err)
	}
	done := make(chan struct{})
	c.mu.Lock()
	c.video, c.videoDone = src, done
	c.mu.Unlock()

	go c.frameLoop(src, done)
	return nil
}

// subscribeEvents wires the transport's bus into the controller. Done
// once; the handlers consult current state on every event.
func (c *Controller) subscribeEvents() {
	c.transport.Events().
		On(live.TopicAudio, func(ev live.Event) {
			c.mu.Lock()
			gate := c.playback
			c.mu.Unlock()
			if gate != nil {
				gate.enqueue(ev.(live.AudioEvent).Data)
			}
		}).
		On(live.TopicInterrupted, func(live.Event) {
			c.mu.Lock()
			gate := c.playback
			c.mu.Unlock()
			if gate != nil {
				gate.flush()
			}
		}).
		On(live.TopicTranscript, func(ev live.Event) {
			tr := ev.(live.TranscriptEvent)
			if tr.Final && c.recorder != nil {
				c.recorder.WriteTranscript(tr.Text, tr.Input)
			}
		}).
		On(live.TopicClose, func(live.Event) {
			c.teardown()
		})
}

func (c *Controller) startCapture(ctx context.Context) error {
	queue, err := c.capturer.Start(ctx)
	if err != nil {
		return err
	}
	enc, err := media.NewAudioEncoder(c.capturer.Format())
	if err != nil {
		c.capturer.Stop()
		return err
	}

	c.mu.Lock()
	c.capturing = true
	c.mu.Unlock()
	c.notifyRecording(true)

	go c.pump(queue, enc)
	return nil
}

// pump moves captured chunks into the transport in production order.
func (c *Controller) pump(queue *buffer.Ring[pcm.Chunk], enc *media.AudioEncoder) {
	for {
		chunk, err := queue.Next()
		if err != nil {
			break
		}
		if c.recorder != nil {
			c.recorder.WriteAudio(chunk.Bytes())
		}
		part, ok, err := enc.Encode(chunk)
		if err != nil {
			slog.Warn("dropping chunk", "error", err)
			continue
		}
		if !ok {
			continue
		}
		if err := c.transport.SendRealtimeInput([]media.Part{part}); err != nil {
			slog.Warn("send audio failed", "error", err)
		}
	}

	c.mu.Lock()
	c.capturing = false
	c.mu.Unlock()
	c.notifyRecording(false)
}

// frameLoop grabs and transmits frames until the source is replaced or
// the session leaves the open state.
func (c *Controller) frameLoop(src VideoSource, done chan struct{}) {
	ticker := time.NewTicker(c.frameInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
		}
		if c.transport.State() != live.StateOpen {
			return
		}

		img, err := src.Frame(context.Background())
		if err != nil {
			slog.Warn("video frame grab failed", "error", err)
			continue
		}
		part, err := media.EncodeFrame(img)
		if err != nil {
			slog.Warn("video frame encode failed", "error", err)
			continue
		}
		if err := c.transport.SendRealtimeInput([]media.Part{part}); err != nil {
			slog.Warn("send frame failed", "error", err)
		}
	}
}

func (c *Controller) notifyRecording(state bool) {
	c.mu.Lock()
	fns := make([]func(bool), len(c.recFns))
	copy(fns, c.recFns)
	c.mu.Unlock()
	for _, fn := range fns {
		fn(state)
	}
}

// teardown stops everything the session was driving. Idempotent; runs
// on explicit Disconnect and on transport close events.
func (c *Controller) teardown() {
	c.mu.Lock()
	if !c.connected {
		c.mu.Unlock()
		return
	}
	c.connected = false
	gate := c.playback
	c.playback = nil
	video, videoDone := c.video, c.videoDone
	c.video, c.videoDone = nil, nil
	c.mu.Unlock()

	c.capturer.Stop()
	if videoDone != nil {
		close(videoDone)
	}
	if video != nil {
		video.Stop()
	}
	if gate != nil {
		gate.flush()
		gate.stop()
	}
	if c.recorder != nil {
		c.recorder.End()
	}
}
