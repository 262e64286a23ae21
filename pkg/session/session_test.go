package session

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"image"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/voxlate/voxlate/pkg/audio/capture"
	"github.com/voxlate/voxlate/pkg/audio/pcm"
	"github.com/voxlate/voxlate/pkg/live"
	"github.com/voxlate/voxlate/pkg/media"
)

// fakeTransport satisfies Transport without a network.
type fakeTransport struct {
	emitter *live.Emitter

	mu       sync.Mutex
	state    live.State
	sent     [][]media.Part
	connects int
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{emitter: live.NewEmitter(), state: live.StateIdle}
}

func (f *fakeTransport) Connect(_ context.Context, _ *live.ConnectConfig) error {
	f.mu.Lock()
	if f.state == live.StateOpen {
		f.mu.Unlock()
		return live.ErrAlreadyConnected
	}
	f.state = live.StateOpen
	f.connects++
	f.mu.Unlock()
	f.emitter.Emit(live.OpenEvent{})
	return nil
}

func (f *fakeTransport) Disconnect() {
	f.mu.Lock()
	wasOpen := f.state == live.StateOpen
	f.state = live.StateClosed
	f.mu.Unlock()
	if wasOpen {
		f.emitter.Emit(live.CloseEvent{})
	}
}

func (f *fakeTransport) SendRealtimeInput(parts []media.Part) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state != live.StateOpen {
		return live.ErrNotConnected
	}
	cp := make([]media.Part, len(parts))
	copy(cp, parts)
	f.sent = append(f.sent, cp)
	return nil
}

func (f *fakeTransport) State() live.State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *fakeTransport) Events() *live.Emitter { return f.emitter }

func (f *fakeTransport) sentParts() []media.Part {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []media.Part
	for _, batch := range f.sent {
		out = append(out, batch...)
	}
	return out
}

// fakeVideo records lifecycle calls.
type fakeVideo struct {
	mu       sync.Mutex
	started  bool
	stopped  bool
	stopTime time.Time
	frames   int
}

func (v *fakeVideo) Start(context.Context) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.started = true
	return nil
}

func (v *fakeVideo) Frame(context.Context) (image.Image, error) {
	v.mu.Lock()
	v.frames++
	v.mu.Unlock()
	return image.NewRGBA(image.Rect(0, 0, 16, 16)), nil
}

func (v *fakeVideo) Stop() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.stopped = true
	v.stopTime = time.Now()
	return nil
}

func toneCapturer() *capture.Capturer {
	return capture.New(capture.NewToneSource(pcm.Rate16K, 440))
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestConnectPumpsAudioInOrder(t *testing.T) {
	transport := newFakeTransport()
	data := make([]byte, 0, 3200)
	for i := 0; i < 1600; i++ {
		data = append(data, byte(i), byte(i>>8))
	}
	cap := capture.New(capture.NewReaderSource(bytes.NewReader(data), pcm.Rate16K))
	c := New(transport, cap, nil)

	if err := c.Connect(context.Background(), &live.ConnectConfig{}); err != nil {
		t.Fatal(err)
	}
	defer c.Disconnect()

	// The reader source ends after 100ms of audio; every chunk must
	// arrive, in order.
	waitFor(t, "all chunks sent", func() bool {
		var n int
		for _, p := range transport.sentParts() {
			raw, _ := base64.StdEncoding.DecodeString(p.Data)
			n += len(raw)
		}
		return n == len(data)
	})

	var got []byte
	for _, p := range transport.sentParts() {
		if p.MIMEType != "audio/pcm;rate=16000" {
			t.Errorf("mime=%q", p.MIMEType)
		}
		raw, err := base64.StdEncoding.DecodeString(p.Data)
		if err != nil {
			t.Fatal(err)
		}
		got = append(got, raw...)
	}
	if !bytes.Equal(got, data) {
		t.Error("chunk order or content broken")
	}
}

func TestConnectMutedDoesNotCapture(t *testing.T) {
	transport := newFakeTransport()
	cap := toneCapturer()
	c := New(transport, cap, nil)

	if err := c.SetMuted(true); err != nil {
		t.Fatal(err)
	}
	if err := c.Connect(context.Background(), &live.ConnectConfig{}); err != nil {
		t.Fatal(err)
	}
	defer c.Disconnect()

	time.Sleep(50 * time.Millisecond)
	if cap.Running() {
		t.Error("capturer running while muted")
	}
	if len(transport.sentParts()) != 0 {
		t.Error("audio sent while muted")
	}
}

func TestMuteUnmuteWithoutReconnect(t *testing.T) {
	transport := newFakeTransport()
	cap := toneCapturer()
	c := New(transport, cap, nil)

	var states []bool
	var statesMu sync.Mutex
	c.OnRecordingStateChange(func(on bool) {
		statesMu.Lock()
		states = append(states, on)
		statesMu.Unlock()
	})

	if err := c.Connect(context.Background(), &live.ConnectConfig{}); err != nil {
		t.Fatal(err)
	}
	defer c.Disconnect()
	waitFor(t, "capture start", cap.Running)

	if err := c.SetMuted(true); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "capture stop", func() bool { return !cap.Running() })

	if err := c.SetMuted(false); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "capture restart", cap.Running)

	transport.mu.Lock()
	connects := transport.connects
	transport.mu.Unlock()
	if connects != 1 {
		t.Errorf("connects=%d, want 1 (mute must not reconnect)", connects)
	}

	waitFor(t, "recording notifications", func() bool {
		statesMu.Lock()
		defer statesMu.Unlock()
		return len(states) >= 3
	})
	statesMu.Lock()
	defer statesMu.Unlock()
	if !states[0] || states[1] || !states[2] {
		t.Errorf("states=%v, want [true false true ...]", states)
	}
}

// recordingSink collects every write.
type recordingSink struct {
	mu  sync.Mutex
	got [][]byte
}

func (s *recordingSink) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.got = append(s.got, bytes.Clone(p))
	return len(p), nil
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.got)
}

func TestRejectedReconnectKeepsPlayback(t *testing.T) {
	transport := newFakeTransport()
	sink := &recordingSink{}
	c := New(transport, toneCapturer(), sink)
	c.SetMuted(true)

	if err := c.Connect(context.Background(), &live.ConnectConfig{}); err != nil {
		t.Fatal(err)
	}
	defer c.Disconnect()

	transport.emitter.Emit(live.AudioEvent{Data: []byte{1}})
	waitFor(t, "first chunk played", func() bool { return sink.count() == 1 })

	if err := c.Connect(context.Background(), &live.ConnectConfig{}); !errors.Is(err, live.ErrAlreadyConnected) {
		t.Fatalf("second connect err=%v, want ErrAlreadyConnected", err)
	}

	// The live session's gate must survive the rejected attempt.
	transport.emitter.Emit(live.AudioEvent{Data: []byte{2}})
	waitFor(t, "second chunk played", func() bool { return sink.count() == 2 })
}

// blockingSink blocks every write until release is closed.
type blockingSink struct {
	mu      sync.Mutex
	got     [][]byte
	release chan struct{}
}

func (s *blockingSink) Write(p []byte) (int, error) {
	<-s.release
	s.mu.Lock()
	s.got = append(s.got, bytes.Clone(p))
	s.mu.Unlock()
	return len(p), nil
}

func TestInterruptFlushesQueuedPlayback(t *testing.T) {
	transport := newFakeTransport()
	sink := &blockingSink{release: make(chan struct{})}
	c := New(transport, toneCapturer(), sink)
	c.SetMuted(true)

	if err := c.Connect(context.Background(), &live.ConnectConfig{}); err != nil {
		t.Fatal(err)
	}

	// Five chunks arrive; the first is handed to the (blocked) sink,
	// the rest sit in the gate.
	for i := byte(0); i < 5; i++ {
		transport.emitter.Emit(live.AudioEvent{Data: []byte{i}})
	}
	time.Sleep(20 * time.Millisecond)
	transport.emitter.Emit(live.InterruptedEvent{})
	close(sink.release)

	c.Disconnect()

	sink.mu.Lock()
	defer sink.mu.Unlock()
	if len(sink.got) != 1 {
		t.Fatalf("sink received %d chunks, want 1 (rest flushed)", len(sink.got))
	}
	if sink.got[0][0] != 0 {
		t.Errorf("wrong chunk survived: %v", sink.got[0])
	}
}

func TestSingleVideoSource(t *testing.T) {
	transport := newFakeTransport()
	c := New(transport, toneCapturer(), nil, WithFrameInterval(10*time.Millisecond))
	c.SetMuted(true)

	if err := c.Connect(context.Background(), &live.ConnectConfig{}); err != nil {
		t.Fatal(err)
	}
	defer c.Disconnect()

	webcam := &fakeVideo{}
	if err := c.SetVideoSource(context.Background(), webcam); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "webcam frames", func() bool {
		webcam.mu.Lock()
		defer webcam.mu.Unlock()
		return webcam.frames >= 2
	})

	screen := &fakeVideo{}
	if err := c.SetVideoSource(context.Background(), screen); err != nil {
		t.Fatal(err)
	}
	webcam.mu.Lock()
	if !webcam.stopped {
		t.Error("previous source not stopped on switch")
	}
	webcam.mu.Unlock()

	waitFor(t, "screen frames", func() bool {
		screen.mu.Lock()
		defer screen.mu.Unlock()
		return screen.frames >= 1
	})

	// Frames must be 0.25x JPEG parts.
	waitFor(t, "jpeg parts", func() bool {
		for _, p := range transport.sentParts() {
			if p.MIMEType == "image/jpeg" {
				return true
			}
		}
		return false
	})

	if err := c.SetVideoSource(context.Background(), nil); err != nil {
		t.Fatal(err)
	}
	screen.mu.Lock()
	if !screen.stopped {
		t.Error("source not stopped when selecting none")
	}
	screen.mu.Unlock()
}

func TestFrameLoopStopsWhenSessionCloses(t *testing.T) {
	transport := newFakeTransport()
	c := New(transport, toneCapturer(), nil, WithFrameInterval(5*time.Millisecond))
	c.SetMuted(true)

	if err := c.Connect(context.Background(), &live.ConnectConfig{}); err != nil {
		t.Fatal(err)
	}
	video := &fakeVideo{}
	if err := c.SetVideoSource(context.Background(), video); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "first frame", func() bool {
		video.mu.Lock()
		defer video.mu.Unlock()
		return video.frames >= 1
	})

	c.Disconnect()

	video.mu.Lock()
	n := video.frames
	video.mu.Unlock()
	time.Sleep(50 * time.Millisecond)
	video.mu.Lock()
	defer video.mu.Unlock()
	if video.frames > n {
		t.Errorf("frame loop still grabbing after disconnect (%d -> %d)", n, video.frames)
	}
}

func TestTransportFailureStopsCapture(t *testing.T) {
	transport := newFakeTransport()
	cap := toneCapturer()
	c := New(transport, cap, nil)

	if err := c.Connect(context.Background(), &live.ConnectConfig{}); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "capture start", cap.Running)

	// Mid-session drop: the transport emits error then close.
	transport.mu.Lock()
	transport.state = live.StateFailed
	transport.mu.Unlock()
	transport.emitter.Emit(live.ErrorEvent{Err: errors.New("conn reset")})
	transport.emitter.Emit(live.CloseEvent{Err: errors.New("conn reset")})

	waitFor(t, "capture stop", func() bool { return !cap.Running() })
	if c.Connected() {
		t.Error("controller still connected after transport failure")
	}
}

func TestCaptureFailureDisconnects(t *testing.T) {
	transport := newFakeTransport()
	cap := capture.New(capture.NewDeniedSource())
	c := New(transport, cap, nil)

	err := c.Connect(context.Background(), &live.ConnectConfig{})
	if !errors.Is(err, capture.ErrPermissionDenied) {
		t.Fatalf("err=%v, want ErrPermissionDenied", err)
	}
	if transport.State() != live.StateClosed {
		t.Error("transport left open after capture failure")
	}
	if c.Connected() {
		t.Error("controller claims connected")
	}
}

func TestVolumePassthrough(t *testing.T) {
	transport := newFakeTransport()
	cap := toneCapturer()
	c := New(transport, cap, nil)

	if err := c.Connect(context.Background(), &live.ConnectConfig{}); err != nil {
		t.Fatal(err)
	}
	defer c.Disconnect()

	waitFor(t, "level sample", func() bool { return c.Volume() > 0.1 })
}

func TestTranscriptRouting(t *testing.T) {
	dir := t.TempDir()
	store := newTestStore(t, dir)
	rec := NewRecorder(store)

	transport := newFakeTransport()
	c := New(transport, toneCapturer(), nil, WithRecorder(rec))
	c.SetMuted(true)

	if err := c.Connect(context.Background(), &live.ConnectConfig{}); err != nil {
		t.Fatal(err)
	}
	take := rec.Take()
	if take == "" {
		t.Fatal("expected an open take after connect")
	}

	transport.emitter.Emit(live.TranscriptEvent{Text: "partial", Input: true})
	transport.emitter.Emit(live.TranscriptEvent{Text: "hello there", Final: true, Input: true})
	transport.emitter.Emit(live.TranscriptEvent{Text: "你好", Final: true})

	c.Disconnect()

	text := readStoreFile(t, store, "takes/"+take+"/transcript.txt")
	if strings.Contains(text, "partial") {
		t.Error("partial transcript recorded")
	}
	if !strings.Contains(text, "[user] hello there") || !strings.Contains(text, "[model] 你好") {
		t.Errorf("transcript content:\n%s", text)
	}
}
