package translate

import (
	"bytes"
	"context"
	"mime"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Whisper implements Transcriber via the OpenAI transcription API, as
// an alternative to the Gemini path.
type Whisper struct {
	client *openai.Client
	model  openai.AudioModel
}

var _ Transcriber = (*Whisper)(nil)

// NewWhisper creates a Whisper transcriber.
func NewWhisper(apiKey string, opts ...option.RequestOption) *Whisper {
	opts = append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	client := openai.NewClient(opts...)
	return &Whisper{
		client: &client,
		model:  openai.AudioModelWhisper1,
	}
}

func (w *Whisper) Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error) {
	resp, err := w.client.Audio.Transcriptions.New(ctx, openai.AudioTranscriptionNewParams{
		Model: w.model,
		File:  openai.File(bytes.NewReader(audio), "audio"+extFor(mimeType), mimeType),
	})
	if err != nil {
		return "", &TranscriptionError{Err: err}
	}
	return strings.TrimSpace(resp.Text), nil
}

func extFor(mimeType string) string {
	exts, err := mime.ExtensionsByType(mimeType)
	if err == nil && len(exts) > 0 {
		return exts[0]
	}
	return ".bin"
}
