package media

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/jpeg"
)

const (
	// frameScale is the fixed downscale factor applied to video frames
	// before encoding, bounding outbound bandwidth.
	frameScale = 4 // 0.25x on each axis

	// frameQuality is the JPEG quality for encoded frames.
	frameQuality = 85
)

// EncodeFrame downscales a video frame to a quarter of its size on each
// axis and returns it as a base64 JPEG part.
func EncodeFrame(img image.Image) (Part, error) {
	small := downscale(img, frameScale)
	if small.Bounds().Empty() {
		return Part{}, fmt.Errorf("media: frame too small to encode")
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, small, &jpeg.Options{Quality: frameQuality}); err != nil {
		return Part{}, fmt.Errorf("media: encode frame: %w", err)
	}
	return Part{
		MIMEType: "image/jpeg",
		Data:     base64.StdEncoding.EncodeToString(buf.Bytes()),
	}, nil
}

// downscale shrinks img by the integer factor using box averaging.
func downscale(img image.Image, factor int) *image.RGBA {
	b := img.Bounds()
	w, h := b.Dx()/factor, b.Dy()/factor
	out := image.NewRGBA(image.Rect(0, 0, w, h))

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var r, g, bl, a uint32
			for dy := 0; dy < factor; dy++ {
				for dx := 0; dx < factor; dx++ {
					pr, pg, pb, pa := img.At(b.Min.X+x*factor+dx, b.Min.Y+y*factor+dy).RGBA()
					r += pr
					g += pg
					bl += pb
					a += pa
				}
			}
			n := uint32(factor * factor)
			i := out.PixOffset(x, y)
			out.Pix[i+0] = uint8(r / n >> 8)
			out.Pix[i+1] = uint8(g / n >> 8)
			out.Pix[i+2] = uint8(bl / n >> 8)
			out.Pix[i+3] = uint8(a / n >> 8)
		}
	}
	return out
}
