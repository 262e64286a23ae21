package session

import (
	"io"
	"log/slog"

	"github.com/voxlate/voxlate/pkg/buffer"
)

// playbackGate sits between inbound audio events and the playback
// sink. Queued-but-unplayed audio can be flushed when the model turn
// is interrupted.
type playbackGate struct {
	queue *buffer.Ring[[]byte]
	sink  io.Writer
	done  chan struct{}
}

func newPlaybackGate(sink io.Writer, queueCap int) *playbackGate {
	g := &playbackGate{
		queue: buffer.NewRing[[]byte](queueCap),
		sink:  sink,
		done:  make(chan struct{}),
	}
	go g.drain()
	return g
}

func (g *playbackGate) drain() {
	defer close(g.done)
	for {
		data, err := g.queue.Next()
		if err != nil {
			return
		}
		if _, err := g.sink.Write(data); err != nil {
			slog.Warn("playback write failed", "error", err)
		}
	}
}

func (g *playbackGate) enqueue(data []byte) {
	g.queue.Add(data)
}

// flush discards everything queued but not yet handed to the sink.
func (g *playbackGate) flush() {
	g.queue.Flush()
}

// stop lets queued audio finish playing, then ends the drain loop.
func (g *playbackGate) stop() {
	g.queue.CloseWrite()
	<-g.done
}
