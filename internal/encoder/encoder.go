package encoder

import "image"

// Encoder encodes an image into bytes.
type Encoder interface {
	Encode(img *image.RGBA) ([]byte, error)
	SetQuality(quality int)
}

// DefaultQuality is the JPEG quality used for streaming.
const DefaultQuality = 80
