// Package pcm defines the raw audio formats and chunk types used across
// the capture, encoding and playback pipeline.
//
// All formats are 16-bit signed little-endian mono PCM; only the sample
// rate varies. Rate16K is the wire format for outbound microphone audio,
// Rate24K is what the speech backend streams back.
package pcm

import (
	"io"
	"math"
	"time"
)

const (
	// Rate16K is audio/pcm;rate=16000, the outbound wire format.
	Rate16K Format = iota
	// Rate24K is audio/pcm;rate=24000, the model's output format.
	Rate24K
	// Rate48K is audio/pcm;rate=48000, a common native capture rate.
	Rate48K
)

// Format identifies a PCM configuration (16-bit signed LE mono).
type Format int

// SampleRate returns the sample rate in Hz.
func (f Format) SampleRate() int {
	switch f {
	case Rate16K:
		return 16000
	case Rate24K:
		return 24000
	case Rate48K:
		return 48000
	}
	panic("pcm: invalid format")
}

// MIMEType returns the wire media type, e.g. "audio/pcm;rate=16000".
func (f Format) MIMEType() string {
	switch f {
	case Rate16K:
		return "audio/pcm;rate=16000"
	case Rate24K:
		return "audio/pcm;rate=24000"
	case Rate48K:
		return "audio/pcm;rate=48000"
	}
	panic("pcm: invalid format")
}

// BytesPerSample is the size of one sample frame (mono s16le).
const BytesPerSample = 2

// SamplesIn returns the number of samples in d at this format's rate.
func (f Format) SamplesIn(d time.Duration) int {
	return int(time.Duration(f.SampleRate()) * d / time.Second)
}

// BytesIn returns the number of PCM bytes in d at this format's rate.
func (f Format) BytesIn(d time.Duration) int {
	return f.SamplesIn(d) * BytesPerSample
}

// Duration returns the play time of n bytes of audio in this format.
func (f Format) Duration(n int) time.Duration {
	return time.Duration(n/BytesPerSample) * time.Second / time.Duration(f.SampleRate())
}

// String implements fmt.Stringer.
func (f Format) String() string { return f.MIMEType() }

// Chunk is an immutable fixed-duration buffer of PCM samples.
//
// A chunk is produced once by the capturer and consumed exactly once by
// the encoder; it is never retained after transmission.
type Chunk struct {
	format Format
	data   []byte
}

// NewChunk wraps data (s16le mono at the given format's rate) in a Chunk.
// The chunk takes ownership of data; callers must not modify it after.
func NewChunk(f Format, data []byte) Chunk {
	return Chunk{format: f, data: data}
}

// Format returns the chunk's PCM format.
func (c Chunk) Format() Format { return c.format }

// Bytes returns the raw sample data. The slice must be treated as
// read-only.
func (c Chunk) Bytes() []byte { return c.data }

// Len returns the chunk size in bytes.
func (c Chunk) Len() int { return len(c.data) }

// Duration returns the chunk's play time.
func (c Chunk) Duration() time.Duration { return c.format.Duration(len(c.data)) }

// WriteTo writes the raw samples to w.
func (c Chunk) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(c.data)
	return int64(n), err
}

// RMS returns the root-mean-square amplitude of the chunk normalized to
// [0, 1]. Used for display-only level metering.
func (c Chunk) RMS() float64 {
	n := len(c.data) / BytesPerSample
	if n == 0 {
		return 0
	}
	var sum float64
	for i := 0; i < n; i++ {
		s := int16(c.data[i*2]) | int16(c.data[i*2+1])<<8
		v := float64(s) / 32768.0
		sum += v * v
	}
	return math.Sqrt(sum / float64(n))
}

// Silence returns a chunk of zero samples with the given duration.
func Silence(f Format, d time.Duration) Chunk {
	return Chunk{format: f, data: make([]byte, f.BytesIn(d))}
}
