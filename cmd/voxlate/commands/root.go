// Package commands implements the voxlate command tree.
package commands

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/voxlate/voxlate/pkg/cli"
	"github.com/voxlate/voxlate/pkg/settings"
)

var (
	// Global flags.
	verbose    bool
	configFile string

	// Settings loaded at init time.
	globalSettings  *settings.Settings
	settingsLoadErr error
)

var rootCmd = &cobra.Command{
	Use:   "voxlate",
	Short: "Real-time speech interpreter between English and Chinese",
	Long: `voxlate - a speech interpreter CLI backed by the Gemini Live API.

Commands:
  live        Run a streaming interpreter session over a PCM audio feed
  transcribe  Turn a recorded audio file into text
  translate   Translate text between English and Chinese
  history     Browse the translation history
  config      View and edit settings

Settings live in the OS config directory:
  macOS:   ~/Library/Application Support/voxlate/config.yaml
  Linux:   ~/.config/voxlate/config.yaml
  Windows: %AppData%/voxlate/config.yaml

Examples:
  voxlate config set api_key YOUR_KEY
  voxlate translate "How are you?"
  voxlate live --audio speech.pcm -o reply.pcm
  voxlate history --json --filter '.[] | .translatedText'`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initLogging, initSettings)

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "settings file (default: OS config dir)")
}

// initLogging routes slog to stderr; --verbose opens the debug level,
// which includes wire dumps from the live session.
func initLogging() {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

// settingsPath resolves the settings file: --config flag, then the
// VOXLATE_CONFIG environment variable, then the OS default.
func settingsPath() (string, error) {
	if configFile != "" {
		return configFile, nil
	}
	if env := os.Getenv("VOXLATE_CONFIG"); env != "" {
		return env, nil
	}
	return settings.Path()
}

func initSettings() {
	path, err := settingsPath()
	if err == nil {
		var s settings.Settings
		s, err = settings.Load(path)
		if err == nil {
			globalSettings = &s
			settingsLoadErr = nil
			return
		}
	}
	// Deferred reporting: commands that need settings get a clear
	// error via GetSettings(), while commands like 'version' still run.
	globalSettings = nil
	settingsLoadErr = err
}

// GetSettings returns the loaded settings.
func GetSettings() (settings.Settings, error) {
	if globalSettings == nil {
		if settingsLoadErr != nil {
			return settings.Settings{}, fmt.Errorf("settings not available: %w", settingsLoadErr)
		}
		return settings.Settings{}, fmt.Errorf("settings not loaded")
	}
	return *globalSettings, nil
}

// IsVerbose returns whether verbose mode is enabled.
func IsVerbose() bool {
	return verbose
}

func printVerbose(format string, args ...any) {
	cli.PrintVerbose(IsVerbose(), format, args...)
}

// styles derives the lipgloss styles from the configured theme.
func styles() cli.Styles {
	theme := ""
	if s, err := GetSettings(); err == nil {
		theme = s.Theme
	}
	return cli.NewStyles(cli.ThemeByName(theme))
}

// apiKey resolves the backend key: settings first, then GEMINI_API_KEY.
func apiKey() (string, error) {
	if s, err := GetSettings(); err == nil && s.APIKey != "" {
		return s.APIKey, nil
	}
	if env := os.Getenv("GEMINI_API_KEY"); env != "" {
		return env, nil
	}
	return "", fmt.Errorf("no API key configured; run: voxlate config set api_key <key> (or set GEMINI_API_KEY)")
}

// dataDir returns the directory for on-disk state such as the history
// database, next to the settings file.
func dataDir() (string, error) {
	path, err := settingsPath()
	if err != nil {
		return "", err
	}
	return filepath.Dir(path), nil
}
