// Package resampler converts PCM audio between the pipeline's sample
// rates using a pure Go resampling engine (no CGO).
package resampler

import (
	"fmt"
	"sync"

	resampling "github.com/tphakala/go-audio-resampling"

	"github.com/voxlate/voxlate/pkg/audio/pcm"
)

// Resampler converts s16le mono PCM from one sample rate to another.
// It is stateful (the engine carries filter history between calls), so a
// single Resampler must only process one continuous stream.
type Resampler struct {
	src, dst pcm.Format

	mu     sync.Mutex
	engine resampling.Resampler
}

// New creates a Resampler converting from src to dst. When the rates
// match the Resampler passes data through unchanged.
func New(src, dst pcm.Format) (*Resampler, error) {
	r := &Resampler{src: src, dst: dst}
	if src.SampleRate() == dst.SampleRate() {
		return r, nil
	}
	engine, err := resampling.New(&resampling.Config{
		InputRate:  float64(src.SampleRate()),
		OutputRate: float64(dst.SampleRate()),
		Channels:   1,
		Quality:    resampling.QualitySpec{Preset: resampling.QualityHigh},
	})
	if err != nil {
		return nil, fmt.Errorf("resampler: %w", err)
	}
	r.engine = engine
	return r, nil
}

// Resample converts one block of s16le samples. The returned slice is
// freshly allocated; output length varies with the rate ratio and the
// engine's internal buffering.
func (r *Resampler) Resample(data []byte) ([]byte, error) {
	if r.engine == nil {
		out := make([]byte, len(data))
		copy(out, data)
		return out, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	input := bytesToFloat(data)
	output, err := r.engine.Process(input)
	if err != nil {
		return nil, fmt.Errorf("resampler: %w", err)
	}
	return floatToBytes(output), nil
}

// ResampleChunk converts a chunk, tagging the result with the target
// format.
func (r *Resampler) ResampleChunk(c pcm.Chunk) (pcm.Chunk, error) {
	if c.Format() != r.src {
		return pcm.Chunk{}, fmt.Errorf("resampler: chunk format %s, want %s", c.Format(), r.src)
	}
	out, err := r.Resample(c.Bytes())
	if err != nil {
		return pcm.Chunk{}, err
	}
	return pcm.NewChunk(r.dst, out), nil
}

func bytesToFloat(b []byte) []float64 {
	n := len(b) / pcm.BytesPerSample
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		s := int16(b[i*2]) | int16(b[i*2+1])<<8
		out[i] = float64(s) / 32768.0
	}
	return out
}

func floatToBytes(f []float64) []byte {
	out := make([]byte, len(f)*pcm.BytesPerSample)
	for i, v := range f {
		s := int16(v * 32767.0)
		if v > 1.0 {
			s = 32767
		} else if v < -1.0 {
			s = -32768
		}
		out[i*2] = byte(s)
		out[i*2+1] = byte(s >> 8)
	}
	return out
}

// DownmixStereo averages interleaved stereo s16le frames into mono
// in a new slice. Used by sources whose hardware only captures stereo.
func DownmixStereo(b []byte) []byte {
	frames := len(b) / 4
	out := make([]byte, frames*2)
	for i := 0; i < frames; i++ {
		l := int16(b[i*4]) | int16(b[i*4+1])<<8
		r := int16(b[i*4+2]) | int16(b[i*4+3])<<8
		m := int16((int32(l) + int32(r)) / 2)
		out[i*2] = byte(m)
		out[i*2+1] = byte(m >> 8)
	}
	return out
}
