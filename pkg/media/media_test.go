package media

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/jpeg"
	"testing"
	"time"

	"github.com/voxlate/voxlate/pkg/audio/pcm"
)

func TestEncodeAudioPassthrough(t *testing.T) {
	e, err := NewAudioEncoder(pcm.Rate16K)
	if err != nil {
		t.Fatal(err)
	}

	data := []byte{1, 0, 2, 0, 3, 0, 4, 0}
	part, ok, err := e.Encode(pcm.NewChunk(pcm.Rate16K, data))
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("expected output for passthrough encode")
	}
	if part.MIMEType != "audio/pcm;rate=16000" {
		t.Errorf("mime=%q", part.MIMEType)
	}
	got, err := base64.StdEncoding.DecodeString(part.Data)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, data) {
		t.Errorf("decoded=%v, want %v", got, data)
	}
}

func TestEncodeAudioResamples(t *testing.T) {
	e, err := NewAudioEncoder(pcm.Rate48K)
	if err != nil {
		t.Fatal(err)
	}

	var total int
	chunk := pcm.Silence(pcm.Rate48K, 20*time.Millisecond)
	for i := 0; i < 50; i++ {
		part, ok, err := e.Encode(chunk)
		if err != nil {
			t.Fatal(err)
		}
		if !ok {
			continue
		}
		raw, err := base64.StdEncoding.DecodeString(part.Data)
		if err != nil {
			t.Fatal(err)
		}
		total += len(raw)
	}

	want := pcm.Rate16K.BytesIn(time.Second)
	if total < want*9/10 || total > want*11/10 {
		t.Errorf("resampled total %d bytes, want ~%d", total, want)
	}
}

func TestEncodeFrame(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 64, 48))
	for y := 0; y < 48; y++ {
		for x := 0; x < 64; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 4), G: uint8(y * 5), B: 128, A: 255})
		}
	}

	part, err := EncodeFrame(img)
	if err != nil {
		t.Fatal(err)
	}
	if part.MIMEType != "image/jpeg" {
		t.Errorf("mime=%q", part.MIMEType)
	}

	raw, err := base64.StdEncoding.DecodeString(part.Data)
	if err != nil {
		t.Fatal(err)
	}
	decoded, err := jpeg.Decode(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("output is not a valid JPEG: %v", err)
	}
	if b := decoded.Bounds(); b.Dx() != 16 || b.Dy() != 12 {
		t.Errorf("frame %dx%d, want 16x12 (0.25x)", b.Dx(), b.Dy())
	}
}

func TestEncodeFrameTooSmall(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	if _, err := EncodeFrame(img); err == nil {
		t.Error("expected error for sub-pixel output")
	}
}
