package translate

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/googleapis/gax-go/v2/apierror"
	"google.golang.org/genai"
)

// Gemini implements Generator and Transcriber over the Gemini API.
type Gemini struct {
	Client *genai.Client

	// Model should not start with "models/".
	Model string
}

var (
	_ Generator   = (*Gemini)(nil)
	_ Transcriber = (*Gemini)(nil)
)

// GenerateText runs one text-only completion.
func (g *Gemini) GenerateText(ctx context.Context, prompt string) (string, error) {
	return g.generate(ctx, []*genai.Part{genai.NewPartFromText(prompt)})
}

// Transcribe sends the audio inline and asks for a verbatim transcript.
func (g *Gemini) Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error) {
	text, err := g.generate(ctx, []*genai.Part{
		genai.NewPartFromText("Transcribe this audio verbatim. Respond with the transcript only."),
		genai.NewPartFromBytes(audio, mimeType),
	})
	if err != nil {
		return "", &TranscriptionError{Err: err}
	}
	return strings.TrimSpace(text), nil
}

func (g *Gemini) generate(ctx context.Context, parts []*genai.Part) (string, error) {
	contents := []*genai.Content{{Role: "user", Parts: parts}}
	resp, err := g.Client.Models.GenerateContent(ctx, g.Model, contents, safetyOffConfig())
	if err != nil {
		var apiErr *apierror.APIError
		if errors.As(err, &apiErr) {
			err = apiErr.Unwrap()
		}
		return "", err
	}
	if len(resp.Candidates) == 0 {
		return "", fmt.Errorf("no candidates")
	}
	cand := resp.Candidates[0]
	if cand.Content == nil {
		return "", fmt.Errorf("empty candidate (finish reason %s)", cand.FinishReason)
	}

	var sb strings.Builder
	for _, p := range cand.Content.Parts {
		if p.Text != "" {
			sb.WriteString(p.Text)
		}
	}
	return sb.String(), nil
}

// safetyOffConfig disables the safety blocks that otherwise reject
// ordinary conversational snippets mid-translation.
func safetyOffConfig() *genai.GenerateContentConfig {
	return &genai.GenerateContentConfig{
		SafetySettings: []*genai.SafetySetting{
			{Category: genai.HarmCategoryHateSpeech, Threshold: genai.HarmBlockThresholdOff},
			{Category: genai.HarmCategoryHarassment, Threshold: genai.HarmBlockThresholdOff},
			{Category: genai.HarmCategoryDangerousContent, Threshold: genai.HarmBlockThresholdOff},
		},
	}
}
