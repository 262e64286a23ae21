package session

import (
	"context"

	"github.com/voxlate/voxlate/pkg/live"
	"github.com/voxlate/voxlate/pkg/media"
)

// Transport is the slice of the live session the controller drives.
// *live.Session satisfies it; tests use a fake.
type Transport interface {
	Connect(ctx context.Context, cfg *live.ConnectConfig) error
	Disconnect()
	SendRealtimeInput(parts []media.Part) error
	State() live.State
	Events() *live.Emitter
}

var _ Transport = (*live.Session)(nil)
