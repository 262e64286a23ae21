package commands

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/voxlate/voxlate/pkg/audio/capture"
	"github.com/voxlate/voxlate/pkg/audio/pcm"
	"github.com/voxlate/voxlate/pkg/cli"
	"github.com/voxlate/voxlate/pkg/live"
	"github.com/voxlate/voxlate/pkg/session"
	"github.com/voxlate/voxlate/pkg/settings"
	"github.com/voxlate/voxlate/pkg/storage"
)

// liveOverrides is the optional -f session file schema. Set fields
// override the stored settings for this run only.
type liveOverrides struct {
	Model        string `yaml:"model" json:"model"`
	SystemPrompt string `yaml:"system_prompt" json:"system_prompt"`
	Voice        string `yaml:"voice" json:"voice"`
	Modality     string `yaml:"response_modality" json:"response_modality"`
	Language     string `yaml:"speech_language" json:"speech_language"`
}

var liveCmd = &cobra.Command{
	Use:   "live",
	Short: "Run a streaming interpreter session",
	Long: `Run a streaming interpreter session over the live API.

Audio input is raw s16le mono PCM from a file or stdin (--audio -),
paced by the session as it is consumed. Model audio (24kHz s16le mono)
goes to the --output file. Transcripts of both sides print as they
arrive. Ctrl-C ends the session.

Examples:
  voxlate live --audio speech.pcm -o reply.pcm
  voxlate live --audio speech48k.pcm --rate 48000 -o reply.pcm
  voxlate live --text "How do I say good morning in Chinese?" -o reply.pcm
  arecord -f S16_LE -r 16000 -c 1 | voxlate live --audio - -o reply.pcm`,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := GetSettings()
		if err != nil {
			return err
		}
		key, err := apiKey()
		if err != nil {
			return err
		}

		audioFile, _ := cmd.Flags().GetString("audio")
		text, _ := cmd.Flags().GetString("text")
		if audioFile == "" && text == "" {
			return fmt.Errorf("either --audio or --text is required")
		}

		cfg, err := buildConnectConfig(cmd, s)
		if err != nil {
			return err
		}

		capturer, closeInput, err := buildCapturer(cmd, audioFile)
		if err != nil {
			return err
		}
		defer closeInput()

		sink := &countingWriter{w: io.Discard}
		outputFile, _ := cmd.Flags().GetString("output")
		if outputFile != "" {
			f, err := os.Create(outputFile)
			if err != nil {
				return fmt.Errorf("create output file: %w", err)
			}
			defer f.Close()
			sink.w = f
		}

		var opts []session.Option
		if s.ArchiveDir != "" {
			store, err := storage.NewLocal(s.ArchiveDir)
			if err != nil {
				return fmt.Errorf("open archive dir: %w", err)
			}
			opts = append(opts, session.WithRecorder(session.NewRecorder(store)))
		}

		sess := live.New(key)
		ctrl := session.New(sess, capturer, sink, opts...)
		if audioFile == "" {
			// Text-only run; never start the microphone pump.
			ctrl.SetMuted(true)
		}

		st := styles()
		closed := make(chan struct{})
		turnDone := make(chan struct{}, 1)
		var closeOnce sync.Once

		sess.Events().
			On(live.TopicTranscript, func(ev live.Event) {
				tr := ev.(live.TranscriptEvent)
				if tr.Final {
					fmt.Println(st.TranscriptLine(tr.Input, tr.Text))
				} else {
					printVerbose("%s (partial)", tr.Text)
				}
			}).
			On(live.TopicText, func(ev live.Event) {
				fmt.Println(st.TranscriptLine(false, ev.(live.TextEvent).Text))
			}).
			On(live.TopicTurnComplete, func(live.Event) {
				select {
				case turnDone <- struct{}{}:
				default:
				}
			}).
			On(live.TopicError, func(ev live.Event) {
				fmt.Fprintln(os.Stderr, st.Error.Render(ev.(live.ErrorEvent).Err.Error()))
			}).
			On(live.TopicClose, func(live.Event) {
				closeOnce.Do(func() { close(closed) })
			})

		inputDone := make(chan struct{})
		var inputOnce sync.Once
		ctrl.OnRecordingStateChange(func(active bool) {
			if !active {
				inputOnce.Do(func() { close(inputDone) })
			}
		})

		timeout, _ := cmd.Flags().GetDuration("timeout")
		ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer cancel()
		if timeout > 0 {
			var cancelTimeout func()
			ctx, cancelTimeout = context.WithTimeout(ctx, timeout)
			defer cancelTimeout()
		}

		start := time.Now()
		if err := ctrl.Connect(ctx, cfg); err != nil {
			return fmt.Errorf("connect: %w", err)
		}
		cli.PrintInfo("Session open (model %s), Ctrl-C to end", cfg.Model)
		printVerbose("connected in %s", cli.FormatDuration(time.Since(start)))

		if text != "" {
			if err := sess.SendText(text); err != nil {
				ctrl.Disconnect()
				return err
			}
		}

		// Run until the input is fully sent and the model finishes its
		// turn, or the session ends, or the user interrupts.
		if audioFile != "" {
			select {
			case <-ctx.Done():
			case <-closed:
			case <-inputDone:
				printVerbose("input drained, waiting for the model turn")
				awaitTurn(ctx, closed, turnDone)
			}
		} else {
			awaitTurn(ctx, closed, turnDone)
		}
		ctrl.Disconnect()

		if n := sink.count(); n > 0 {
			cli.PrintSuccess("Received %s of audio (%s)%s",
				cli.FormatBytes(n),
				cli.FormatDuration(pcm.Rate24K.Duration(int(n))),
				outputSuffix(outputFile))
		}
		return nil
	},
}

func awaitTurn(ctx context.Context, closed <-chan struct{}, turnDone <-chan struct{}) {
	select {
	case <-ctx.Done():
	case <-closed:
	case <-turnDone:
	}
}

func outputSuffix(path string) string {
	if path == "" {
		return ""
	}
	return ", saved to " + path
}

// buildConnectConfig merges stored settings with the -f override file.
func buildConnectConfig(cmd *cobra.Command, s settings.Settings) (*live.ConnectConfig, error) {
	modality := s.ResponseModality
	model := s.Model
	prompt := s.SystemPrompt
	voice := s.Voice
	language := s.SpeechLanguage

	if file, _ := cmd.Flags().GetString("file"); file != "" {
		var ov liveOverrides
		if err := cli.LoadRequest(file, &ov); err != nil {
			return nil, err
		}
		if ov.Model != "" {
			model = ov.Model
		}
		if ov.SystemPrompt != "" {
			prompt = ov.SystemPrompt
		}
		if ov.Voice != "" {
			voice = ov.Voice
		}
		if ov.Modality != "" {
			modality = settings.Modality(ov.Modality)
		}
		if ov.Language != "" {
			language = ov.Language
		}
	}

	responseModality := "AUDIO"
	if modality == settings.ModalityText {
		responseModality = "TEXT"
	}
	return &live.ConnectConfig{
		Model:              model,
		SystemInstruction:  prompt,
		ResponseModalities: []string{responseModality},
		Voice:              voice,
		LanguageCode:       language,
		TranscribeInput:    true,
		TranscribeOutput:   true,
	}, nil
}

// buildCapturer wires the --audio input into a capturer. An empty path
// yields a source that ends immediately (text-only runs).
func buildCapturer(cmd *cobra.Command, audioFile string) (*capture.Capturer, func(), error) {
	format, err := formatForRate(cmd)
	if err != nil {
		return nil, nil, err
	}

	var reader io.Reader
	closeInput := func() {}
	switch audioFile {
	case "":
		reader = bytes.NewReader(nil)
	case "-":
		reader = os.Stdin
	default:
		f, err := os.Open(audioFile)
		if err != nil {
			return nil, nil, fmt.Errorf("open audio: %w", err)
		}
		reader = f
		closeInput = func() { f.Close() }
	}

	var src capture.Source
	if stereo, _ := cmd.Flags().GetBool("stereo"); stereo {
		src = capture.NewStereoReaderSource(reader, format)
	} else {
		src = capture.NewReaderSource(reader, format)
	}
	return capture.New(src), closeInput, nil
}

func formatForRate(cmd *cobra.Command) (pcm.Format, error) {
	rate, _ := cmd.Flags().GetInt("rate")
	switch rate {
	case 16000:
		return pcm.Rate16K, nil
	case 24000:
		return pcm.Rate24K, nil
	case 48000:
		return pcm.Rate48K, nil
	default:
		return 0, fmt.Errorf("unsupported sample rate %d (want 16000, 24000 or 48000)", rate)
	}
}

// countingWriter counts bytes on their way to the wrapped writer.
type countingWriter struct {
	mu sync.Mutex
	w  io.Writer
	n  int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

func (c *countingWriter) count() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.n
}

func init() {
	liveCmd.Flags().String("audio", "", "PCM audio input file, or - for stdin")
	liveCmd.Flags().Int("rate", 16000, "input sample rate in Hz")
	liveCmd.Flags().Bool("stereo", false, "input is interleaved stereo (downmixed to mono)")
	liveCmd.Flags().String("text", "", "send a text turn instead of (or before) audio")
	liveCmd.Flags().StringP("output", "o", "", "file for received model audio (24kHz s16le mono)")
	liveCmd.Flags().StringP("file", "f", "", "session override file (YAML or JSON)")
	liveCmd.Flags().Duration("timeout", 5*time.Minute, "overall session timeout (0 for none)")

	rootCmd.AddCommand(liveCmd)
}
