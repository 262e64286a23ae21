package capture

import (
	"context"
	"fmt"
	"io"
	"math"
	"sync"
	"time"

	"github.com/voxlate/voxlate/pkg/audio/pcm"
	"github.com/voxlate/voxlate/pkg/audio/resampler"
)

// ReaderSource adapts an io.Reader carrying raw s16le PCM (a file, a
// pipe, stdin) into a Source. If stereo is set, frames are downmixed to
// mono on read.
type ReaderSource struct {
	r      io.Reader
	format pcm.Format
	stereo bool

	mu       sync.Mutex
	opened   bool
	closed   bool
	leftover []byte
}

// NewReaderSource creates a mono PCM source from r.
func NewReaderSource(r io.Reader, format pcm.Format) *ReaderSource {
	return &ReaderSource{r: r, format: format}
}

// NewStereoReaderSource creates a source from interleaved stereo PCM,
// downmixing to mono.
func NewStereoReaderSource(r io.Reader, format pcm.Format) *ReaderSource {
	return &ReaderSource{r: r, format: format, stereo: true}
}

// Open implements Source. A nil reader maps to ErrDeviceUnavailable.
func (s *ReaderSource) Open(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.r == nil {
		return ErrDeviceUnavailable
	}
	s.opened = true
	s.closed = false
	return nil
}

// Format implements Source.
func (s *ReaderSource) Format() pcm.Format { return s.format }

// Read implements Source. The underlying read happens outside the
// mutex so a concurrent Close can interrupt a blocked reader.
func (s *ReaderSource) Read(p []byte) (int, error) {
	s.mu.Lock()
	if s.closed || !s.opened {
		s.mu.Unlock()
		return 0, io.ErrClosedPipe
	}
	// Serve any mono samples left over from a previous downmix.
	if s.stereo && len(s.leftover) > 0 {
		n := copy(p, s.leftover)
		s.leftover = s.leftover[n:]
		s.mu.Unlock()
		return n, nil
	}
	r, stereo := s.r, s.stereo
	s.mu.Unlock()

	if !stereo {
		return r.Read(p)
	}

	raw := make([]byte, len(p)*2)
	rn, err := r.Read(raw)
	if rn == 0 {
		return 0, err
	}
	mono := resampler.DownmixStereo(raw[:rn])
	n := copy(p, mono)
	if n < len(mono) {
		s.mu.Lock()
		s.leftover = append(s.leftover, mono[n:]...)
		s.mu.Unlock()
	}
	return n, err
}

// Close implements Source. Safe to call more than once.
func (s *ReaderSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	if c, ok := s.r.(io.Closer); ok && c != nil {
		return c.Close()
	}
	return nil
}

// ToneSource generates a sine tone in real time. It paces reads at the
// nominal sample rate, which makes it a drop-in stand-in for a live
// microphone in tests and demos.
type ToneSource struct {
	format pcm.Format
	freq   float64
	paced  bool

	mu     sync.Mutex
	opened bool
	closed chan struct{}
	phase  float64
	last   time.Time
}

// NewToneSource creates a tone source. freq is the tone frequency in Hz.
func NewToneSource(format pcm.Format, freq float64) *ToneSource {
	return &ToneSource{format: format, freq: freq, paced: true}
}

// NewUnpacedToneSource creates a tone source that never sleeps; reads
// return immediately. Useful for deterministic tests.
func NewUnpacedToneSource(format pcm.Format, freq float64) *ToneSource {
	return &ToneSource{format: format, freq: freq}
}

// Open implements Source.
func (s *ToneSource) Open(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.opened = true
	s.closed = make(chan struct{})
	s.last = time.Now()
	return nil
}

// Format implements Source.
func (s *ToneSource) Format() pcm.Format { return s.format }

// Read implements Source.
func (s *ToneSource) Read(p []byte) (int, error) {
	s.mu.Lock()
	if !s.opened {
		s.mu.Unlock()
		return 0, io.ErrClosedPipe
	}
	closed := s.closed
	rate := float64(s.format.SampleRate())
	n := len(p) / pcm.BytesPerSample
	step := 2 * math.Pi * s.freq / rate
	for i := 0; i < n; i++ {
		v := int16(math.Sin(s.phase) * 16384)
		p[i*2] = byte(v)
		p[i*2+1] = byte(v >> 8)
		s.phase += step
	}
	dur := s.format.Duration(n * pcm.BytesPerSample)
	s.mu.Unlock()

	if s.paced {
		select {
		case <-time.After(dur):
		case <-closed:
			return 0, io.ErrClosedPipe
		}
	}

	select {
	case <-closed:
		return 0, io.ErrClosedPipe
	default:
	}
	return n * pcm.BytesPerSample, nil
}

// Close implements Source.
func (s *ToneSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.opened {
		return nil
	}
	s.opened = false
	select {
	case <-s.closed:
	default:
		close(s.closed)
	}
	return nil
}

// deniedSource always fails to open; used to exercise the permission
// error path without hardware.
type deniedSource struct{}

// NewDeniedSource returns a Source whose Open always reports
// ErrPermissionDenied.
func NewDeniedSource() Source { return deniedSource{} }

func (deniedSource) Open(context.Context) error { return ErrPermissionDenied }
func (deniedSource) Format() pcm.Format         { return pcm.Rate16K }
func (deniedSource) Read(p []byte) (int, error) {
	return 0, fmt.Errorf("capture: source not open")
}
func (deniedSource) Close() error { return nil }
