package session

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/voxlate/voxlate/pkg/storage"
)

// Recorder tees a live session into a FileStore: the outbound PCM as
// one take plus the final transcripts of both sides. Takes are laid
// out as takes/<timestamp>/{audio.pcm,transcript.txt}.
type Recorder struct {
	store storage.FileStore

	mu         sync.Mutex
	take       string
	audio      io.WriteCloser
	transcript io.WriteCloser
}

// NewRecorder creates a Recorder writing into store.
func NewRecorder(store storage.FileStore) *Recorder {
	return &Recorder{store: store}
}

// Begin opens a new take. An already-open take is ended first.
func (r *Recorder) Begin(ctx context.Context) error {
	r.End()

	take := time.Now().UTC().Format("20060102-150405.000")
	audio, err := r.store.Write(ctx, "takes/"+take+"/audio.pcm")
	if err != nil {
		return fmt.Errorf("session: open take audio: %w", err)
	}
	transcript, err := r.store.Write(ctx, "takes/"+take+"/transcript.txt")
	if err != nil {
		audio.Close()
		return fmt.Errorf("session: open take transcript: %w", err)
	}

	r.mu.Lock()
	r.take = take
	r.audio = audio
	r.transcript = transcript
	r.mu.Unlock()
	return nil
}

// Take returns the current take id, or "" when not recording.
func (r *Recorder) Take() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.take
}

// WriteAudio appends captured PCM to the take. A no-op between takes.
func (r *Recorder) WriteAudio(pcm []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.audio != nil {
		r.audio.Write(pcm)
	}
}

// WriteTranscript appends one final transcript line, tagged by side.
func (r *Recorder) WriteTranscript(text string, input bool) {
	side := "model"
	if input {
		side = "user"
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.transcript != nil {
		fmt.Fprintf(r.transcript, "[%s] %s\n", side, text)
	}
}

// End closes the current take. Idempotent.
func (r *Recorder) End() error {
	r.mu.Lock()
	audio, transcript := r.audio, r.transcript
	r.take = ""
	r.audio = nil
	r.transcript = nil
	r.mu.Unlock()

	var err error
	if audio != nil {
		err = audio.Close()
	}
	if transcript != nil {
		if cerr := transcript.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
