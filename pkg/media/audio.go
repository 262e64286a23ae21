package media

import (
	"encoding/base64"

	"github.com/voxlate/voxlate/pkg/audio/pcm"
	"github.com/voxlate/voxlate/pkg/audio/resampler"
)

// WireFormat is the PCM format everything is normalized to before
// transmission.
const WireFormat = pcm.Rate16K

// AudioEncoder turns captured chunks into wire parts, resampling from
// the capture format to WireFormat when they differ.
//
// An AudioEncoder carries resampler state and therefore belongs to a
// single continuous chunk stream; create a new one per capture session.
type AudioEncoder struct {
	src pcm.Format
	rs  *resampler.Resampler
}

// NewAudioEncoder creates an encoder for chunks captured in src format.
func NewAudioEncoder(src pcm.Format) (*AudioEncoder, error) {
	rs, err := resampler.New(src, WireFormat)
	if err != nil {
		return nil, err
	}
	return &AudioEncoder{src: src, rs: rs}, nil
}

// Encode converts one chunk into a base64 PCM part. The returned ok is
// false when resampling produced no output yet (the engine may buffer
// the first few input blocks).
func (e *AudioEncoder) Encode(c pcm.Chunk) (part Part, ok bool, err error) {
	out, err := e.rs.ResampleChunk(c)
	if err != nil {
		return Part{}, false, err
	}
	if out.Len() == 0 {
		return Part{}, false, nil
	}
	return Part{
		MIMEType: WireFormat.MIMEType(),
		Data:     base64.StdEncoding.EncodeToString(out.Bytes()),
	}, true, nil
}
