package session

import (
	"context"
	"image"
)

// VideoSource supplies frames for the session's single non-audio
// stream: a webcam, a screen grab, or anything else that can produce
// an image on demand.
type VideoSource interface {
	// Start acquires the underlying device or surface.
	Start(ctx context.Context) error

	// Frame grabs the current frame.
	Frame(ctx context.Context) (image.Image, error)

	// Stop releases the source. Safe to call more than once.
	Stop() error
}
