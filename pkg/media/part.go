// Package media converts captured audio and video frames into the wire
// representation the live session transmits: base64 PCM at 16kHz for
// audio, downscaled base64 JPEG for frames.
package media

// Part is one outbound media payload, ready for transmission. Parts are
// batched by the session; the batch preserves production order.
type Part struct {
	// MIMEType tags the payload, e.g. "audio/pcm;rate=16000" or
	// "image/jpeg".
	MIMEType string `json:"mimeType"`

	// Data is the base64-encoded payload.
	Data string `json:"data"`
}
