// Package translate implements the one-shot path: transcribe a spoken
// phrase, detect its language, and translate between English and
// Chinese. Streaming interpretation lives in pkg/session; this package
// is for discrete requests whose results land in the history log.
package translate

import (
	"context"
	"fmt"
	"strings"
)

// Language is a detected or target language.
type Language string

const (
	LangEnglish Language = "english"
	LangChinese Language = "chinese"
	LangUnknown Language = "unknown"
)

// Apology is returned as the translation when the source language is
// neither English nor Chinese.
const Apology = "Sorry, I can only translate between English and Chinese."

// Result is the outcome of one translation request.
type Result struct {
	Translation    string   `json:"translation"`
	SourceLanguage Language `json:"sourceLanguage"`
	TargetLanguage Language `json:"targetLanguage"`
}

// Generator produces one text completion for a prompt.
type Generator interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
}

// Transcriber turns recorded audio into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error)
}

// TranslationError reports a failed translation stage. The current
// request is abandoned; nothing is written to history.
type TranslationError struct {
	Stage string // "detect" or "translate"
	Err   error
}

func (e *TranslationError) Error() string {
	return fmt.Sprintf("translate: %s: %v", e.Stage, e.Err)
}

func (e *TranslationError) Unwrap() error { return e.Err }

// TranscriptionError reports a failed transcription.
type TranscriptionError struct {
	Err error
}

func (e *TranscriptionError) Error() string {
	return fmt.Sprintf("translate: transcribe: %v", e.Err)
}

func (e *TranscriptionError) Unwrap() error { return e.Err }

// Translator runs the two-step detect-then-translate flow.
type Translator struct {
	gen Generator
}

// NewTranslator creates a Translator over gen.
func NewTranslator(gen Generator) *Translator {
	return &Translator{gen: gen}
}

// TranslateText translates text between English and Chinese.
//
// Blank input returns an empty translation with an unknown source and
// English target, without touching the backend. Any other language is
// answered with the fixed apology.
func (t *Translator) TranslateText(ctx context.Context, text string) (Result, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return Result{
			Translation:    "",
			SourceLanguage: LangUnknown,
			TargetLanguage: LangEnglish,
		}, nil
	}

	src, err := t.detectLanguage(ctx, trimmed)
	if err != nil {
		return Result{}, &TranslationError{Stage: "detect", Err: err}
	}
	if src == LangUnknown {
		return Result{
			Translation:    Apology,
			SourceLanguage: LangUnknown,
			TargetLanguage: LangEnglish,
		}, nil
	}

	target := LangEnglish
	if src == LangEnglish {
		target = LangChinese
	}

	translation, err := t.translate(ctx, trimmed, src, target)
	if err != nil {
		return Result{}, &TranslationError{Stage: "translate", Err: err}
	}
	return Result{
		Translation:    translation,
		SourceLanguage: src,
		TargetLanguage: target,
	}, nil
}

func (t *Translator) detectLanguage(ctx context.Context, text string) (Language, error) {
	prompt := fmt.Sprintf(`Identify the language of the following text. Respond with JSON only, in the form {"language": "..."} where the value is exactly one of "english", "chinese" or "unknown" (use "unknown" for any other language).

Text: %s`, text)

	raw, err := t.gen.GenerateText(ctx, prompt)
	if err != nil {
		return LangUnknown, err
	}

	var out struct {
		Language string `json:"language"`
	}
	if err := unmarshalRepair(raw, &out); err != nil {
		return LangUnknown, fmt.Errorf("decode detection %q: %w", raw, err)
	}
	switch Language(strings.ToLower(out.Language)) {
	case LangEnglish:
		return LangEnglish, nil
	case LangChinese:
		return LangChinese, nil
	default:
		return LangUnknown, nil
	}
}

func (t *Translator) translate(ctx context.Context, text string, src, target Language) (string, error) {
	prompt := fmt.Sprintf(`Translate the following %s text into %s. Respond with JSON only, in the form {"translation": "..."}.

Text: %s`, src, target, text)

	raw, err := t.gen.GenerateText(ctx, prompt)
	if err != nil {
		return "", err
	}

	var out struct {
		Translation string `json:"translation"`
	}
	if err := unmarshalRepair(raw, &out); err != nil {
		return "", fmt.Errorf("decode translation %q: %w", raw, err)
	}
	return out.Translation, nil
}
