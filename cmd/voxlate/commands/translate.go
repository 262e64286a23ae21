package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"google.golang.org/genai"

	"github.com/voxlate/voxlate/pkg/cli"
	"github.com/voxlate/voxlate/pkg/history"
	"github.com/voxlate/voxlate/pkg/translate"
)

var translateCmd = &cobra.Command{
	Use:   "translate [text...]",
	Short: "Translate text between English and Chinese",
	Long: `Translate text between English and Chinese. The source language is
detected automatically; anything else gets a fixed apology.

Reads from the arguments, --file, or stdin.

Examples:
  voxlate translate "How are you?"
  voxlate translate --file notes.txt --json
  echo 你好 | voxlate translate`,
	RunE: func(cmd *cobra.Command, args []string) error {
		text, err := gatherText(cmd, args)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), 60*time.Second)
		defer cancel()

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

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			return cli.Output(res, cli.OutputOptions{Format: cli.FormatJSON})
		}
		st := styles()
		fmt.Println(st.Dim.Render(fmt.Sprintf("%s → %s", res.SourceLanguage, res.TargetLanguage)))
		fmt.Println(res.Translation)
		return nil
	},
}

// gatherText resolves the input text from args, --file, or stdin.
func gatherText(cmd *cobra.Command, args []string) (string, error) {
	if file, _ := cmd.Flags().GetString("file"); file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("read input file: %w", err)
		}
		return string(data), nil
	}
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	return string(data), nil
}

// newTranslator builds the Gemini-backed translator from the settings.
func newTranslator(ctx context.Context) (*translate.Translator, error) {
	gen, err := newGemini(ctx)
	if err != nil {
		return nil, err
	}
	return translate.NewTranslator(gen), nil
}

func newGemini(ctx context.Context) (*translate.Gemini, error) {
	key, err := apiKey()
	if err != nil {
		return nil, err
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: key})
	if err != nil {
		return nil, fmt.Errorf("create backend client: %w", err)
	}
	model := "gemini-2.0-flash"
	if s, serr := GetSettings(); serr == nil && s.Model != "" {
		model = strings.TrimPrefix(s.Model, "models/")
	}
	return &translate.Gemini{Client: client, Model: model}, nil
}

// recordTranslation appends a successful translation to the history
// log. Blank input and apologies are not history.
func recordTranslation(ctx context.Context, original string, res translate.Result) error {
	if res.Translation == "" || res.SourceLanguage == translate.LangUnknown {
		return nil
	}
	log, closeLog, err := openHistory(ctx)
	if err != nil {
		return err
	}
	defer closeLog()

	_, err = log.Append(ctx, history.Record{
		OriginalText:   strings.TrimSpace(original),
		TranslatedText: res.Translation,
		SourceLanguage: string(res.SourceLanguage),
		TargetLanguage: string(res.TargetLanguage),
	})
	return err
}

func init() {
	translateCmd.Flags().String("file", "", "read input text from a file")
	translateCmd.Flags().Bool("json", false, "output as JSON (for piping)")
	translateCmd.Flags().Bool("no-history", false, "do not record the translation")

	rootCmd.AddCommand(translateCmd)
}
