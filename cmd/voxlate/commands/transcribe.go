package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/voxlate/voxlate/pkg/cli"
	"github.com/voxlate/voxlate/pkg/translate"
)

var transcribeCmd = &cobra.Command{
	Use:   "transcribe <audio-file>",
	Short: "Turn a recorded audio file into text",
	Long: `Transcribe a recorded audio file.

The default engine is Gemini; --engine whisper uses the OpenAI Whisper
API instead (needs OPENAI_API_KEY or --openai-key).

Examples:
  voxlate transcribe memo.wav
  voxlate transcribe memo.ogg --engine whisper
  voxlate transcribe memo.wav --translate --json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		audio, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read audio: %w", err)
		}
		if len(audio) == 0 {
			return fmt.Errorf("empty audio file %s", path)
		}

		mimeType, _ := cmd.Flags().GetString("mime")
		if mimeType == "" {
			mimeType = resolveAudioMIME(path)
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), 120*time.Second)
		defer cancel()

		transcriber, err := newTranscriber(ctx, cmd)
		if err != nil {
			return err
		}

		printVerbose("transcribing %s (%s, %s)", path, mimeType, cli.FormatBytes(int64(len(audio))))
		text, err := transcriber.Transcribe(ctx, audio, mimeType)
		if err != nil {
			return err
		}

		doTranslate, _ := cmd.Flags().GetBool("translate")
		asJSON, _ := cmd.Flags().GetBool("json")

		if !doTranslate {
			if asJSON {
				return cli.Output(map[string]string{"text": text}, cli.OutputOptions{Format: cli.FormatJSON})
			}
			fmt.Println(text)
			return nil
		}

		translator, err := newTranslator(ctx)
		if err != nil {
			return err
		}
		res, err := translator.TranslateText(ctx, text)
		if err != nil {
			return err
		}
		if noHistory, _ := cmd.Flags().GetBool("no-history"); !noHistory {
			if err := recordTranslation(ctx, text, res); err != nil {
				printVerbose("history not updated: %v", err)
			}
		}

		if asJSON {
			return cli.Output(map[string]any{"text": text, "result": res}, cli.OutputOptions{Format: cli.FormatJSON})
		}
		st := styles()
		fmt.Println(st.TranscriptLine(true, text))
		fmt.Println(st.Dim.Render(fmt.Sprintf("%s → %s", res.SourceLanguage, res.TargetLanguage)))
		fmt.Println(res.Translation)
		return nil
	},
}

// newTranscriber picks the engine: Gemini by default, Whisper on request.
func newTranscriber(ctx context.Context, cmd *cobra.Command) (translate.Transcriber, error) {
	engine, _ := cmd.Flags().GetString("engine")
	switch engine {
	case "", "gemini":
		return newGemini(ctx)
	case "whisper":
		key, _ := cmd.Flags().GetString("openai-key")
		if key == "" {
			key = os.Getenv("OPENAI_API_KEY")
		}
		if key == "" {
			return nil, fmt.Errorf("whisper engine needs OPENAI_API_KEY or --openai-key")
		}
		return translate.NewWhisper(key), nil
	default:
		return nil, fmt.Errorf("unknown engine %q (want gemini or whisper)", engine)
	}
}

// audioMIMETypes maps the extensions the backends accept. Raw PCM dumps
// carry the 16kHz wire format.
var audioMIMETypes = map[string]string{
	".pcm":  "audio/pcm;rate=16000",
	".wav":  "audio/wav",
	".mp3":  "audio/mpeg",
	".ogg":  "audio/ogg",
	".flac": "audio/flac",
	".m4a":  "audio/mp4",
	".aac":  "audio/aac",
	".webm": "audio/webm",
}

// resolveAudioMIME guesses the media type from the file extension,
// falling back to WAV.
func resolveAudioMIME(path string) string {
	if t, ok := audioMIMETypes[strings.ToLower(filepath.Ext(path))]; ok {
		return t
	}
	return "audio/wav"
}

func init() {
	transcribeCmd.Flags().String("mime", "", "audio media type (default: from extension)")
	transcribeCmd.Flags().String("engine", "gemini", "transcription engine: gemini or whisper")
	transcribeCmd.Flags().String("openai-key", "", "OpenAI API key for the whisper engine")
	transcribeCmd.Flags().Bool("translate", false, "also translate the transcript")
	transcribeCmd.Flags().Bool("json", false, "output as JSON (for piping)")
	transcribeCmd.Flags().Bool("no-history", false, "do not record the translation")

	rootCmd.AddCommand(transcribeCmd)
}
