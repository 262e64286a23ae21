// Package settings holds user preferences as an explicit, injectable
// object backed by a YAML file. Nothing here is global: callers load a
// Settings value, pass it where it is needed, and save it back.
package settings

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/goccy/go-yaml"
)

// Modality selects the model's primary output kind.
type Modality string

const (
	ModalityAudio Modality = "audio"
	ModalityText  Modality = "text"
)

// Settings are the user's preferences.
type Settings struct {
	// APIKey authenticates against the speech backend.
	APIKey string `yaml:"api_key"`

	// Model is the backend model id.
	Model string `yaml:"model"`

	// SystemPrompt primes live sessions.
	SystemPrompt string `yaml:"system_prompt"`

	// Voice picks the output voice for audio responses.
	Voice string `yaml:"voice"`

	// ResponseModality selects audio or text responses.
	ResponseModality Modality `yaml:"response_modality"`

	// SpeechLanguage is the BCP-47 code for spoken output.
	SpeechLanguage string `yaml:"speech_language"`

	// Theme is the console color theme: "dark" or "light".
	Theme string `yaml:"theme"`

	// HistoryDir overrides where the translation history database
	// lives. Empty means the default data dir.
	HistoryDir string `yaml:"history_dir,omitempty"`

	// ArchiveDir is where session recordings are written. Empty
	// disables recording.
	ArchiveDir string `yaml:"archive_dir,omitempty"`
}

// Default returns the settings used when no file exists yet.
func Default() Settings {
	return Settings{
		Model:            "models/gemini-2.0-flash-exp",
		SystemPrompt:     "You are a real-time interpreter. Translate everything you hear between English and Chinese, speaking only the translation.",
		Voice:            "Aoede",
		ResponseModality: ModalityAudio,
		SpeechLanguage:   "en-US",
		Theme:            "dark",
	}
}

// Path returns the settings file location, by default
// os.UserConfigDir()/voxlate/config.yaml.
func Path() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("settings: resolve config dir: %w", err)
	}
	return filepath.Join(base, "voxlate", "config.yaml"), nil
}

// Load reads the settings file at path. A missing file yields the
// defaults; fields absent from the file keep their default values.
func Load(path string) (Settings, error) {
	s := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return s, fmt.Errorf("settings: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Default(), fmt.Errorf("settings: parse %s: %w", path, err)
	}
	return s, nil
}

// Save writes s to path, creating parent directories as needed.
func (s Settings) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("settings: create config dir: %w", err)
	}
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("settings: marshal: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("settings: write %s: %w", path, err)
	}
	return nil
}
