package encoder

import (
	"bytes"
	"image"
	"image/jpeg"
	"sync/atomic"

	"golang.org/x/image/draw"
)

// JPEGEncoder encodes frames as JPEG. It is safe for concurrent use.
type JPEGEncoder struct {
	quality atomic.Int32
	// maxWidth > 0 downsizes wider frames, keeping the aspect ratio.
	maxWidth int
}

type Option func(*JPEGEncoder)

// WithMaxWidth caps the encoded width. Zero keeps the captured size.
func WithMaxWidth(w int) Option {
	return func(e *JPEGEncoder) {
		if w > 0 {
			e.maxWidth = w
		}
	}
}

// NewJPEGEncoder creates a JPEG encoder with the given quality (1-100).
func NewJPEGEncoder(quality int, opts ...Option) *JPEGEncoder {
	e := &JPEGEncoder{}
	e.SetQuality(quality)
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *JPEGEncoder) SetQuality(quality int) {
	e.quality.Store(int32(clampQuality(quality)))
}

func (e *JPEGEncoder) Quality() int { return int(e.quality.Load()) }

func clampQuality(q int) int {
	if q < 1 {
		return 1
	}
	if q > 100 {
		return 100
	}
	return q
}

func (e *JPEGEncoder) Encode(img *image.RGBA) ([]byte, error) {
	var src image.Image = img
	if b := img.Bounds(); e.maxWidth > 0 && b.Dx() > e.maxWidth {
		src = scale(img, e.maxWidth)
	}

	var buf bytes.Buffer
	buf.Grow(256 * 1024) // pre-allocate 256KB
	err := jpeg.Encode(&buf, src, &jpeg.Options{Quality: e.Quality()})
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func scale(img *image.RGBA, width int) *image.RGBA {
	b := img.Bounds()
	height := b.Dy() * width / b.Dx()
	if height < 1 {
		height = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.ApproxBiLinear.Scale(dst, dst.Rect, img, b, draw.Src, nil)
	return dst
}
