package decoder

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"sync/atomic"

	"golang.org/x/image/draw"
)

// DefaultMaxPixels caps a frame at roughly two 8K screens.
const DefaultMaxPixels = 2 * 7680 * 4320

var (
	ErrNotJPEG       = errors.New("frame is not a JPEG image")
	ErrFrameTooLarge = errors.New("frame exceeds pixel limit")
)

var soi = []byte{0xff, 0xd8}

type Option func(*JPEGDecoder)

// WithMaxPixels rejects frames whose header declares more than n pixels,
// before any pixel memory is allocated.
func WithMaxPixels(n int) Option { return func(d *JPEGDecoder) { d.maxPixels = n } }

// JPEGDecoder decodes JPEG frames into origin-anchored *image.RGBA. It is
// safe for concurrent use.
type JPEGDecoder struct {
	maxPixels int

	frames   atomic.Uint64
	rejected atomic.Uint64
}

func NewJPEGDecoder(opts ...Option) *JPEGDecoder {
	d := &JPEGDecoder{maxPixels: DefaultMaxPixels}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *JPEGDecoder) Decode(data []byte) (*image.RGBA, error) {
	img, err := d.decode(data)
	if err != nil {
		d.rejected.Add(1)
		return nil, err
	}
	d.frames.Add(1)
	return img, nil
}

func (d *JPEGDecoder) decode(data []byte) (*image.RGBA, error) {
	if !bytes.HasPrefix(data, soi) {
		return nil, ErrNotJPEG
	}
	cfg, err := jpeg.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("jpeg header: %w", err)
	}
	if d.maxPixels > 0 && cfg.Width*cfg.Height > d.maxPixels {
		return nil, fmt.Errorf("%w: %dx%d", ErrFrameTooLarge, cfg.Width, cfg.Height)
	}
	img, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("jpeg: %w", err)
	}
	return toRGBA(img), nil
}

// Stats returns how many frames decoded and how many were rejected.
func (d *JPEGDecoder) Stats() (frames, rejected uint64) {
	return d.frames.Load(), d.rejected.Load()
}

// toRGBA converts the YCbCr, Gray or CMYK result of jpeg.Decode into an
// RGBA whose bounds start at 0,0, as the display uploads Pix verbatim.
func toRGBA(img image.Image) *image.RGBA {
	b := img.Bounds()
	if rgba, ok := img.(*image.RGBA); ok && b.Min == (image.Point{}) {
		return rgba
	}
	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	if g, ok := img.(*image.Gray); ok {
		for y := 0; y < b.Dy(); y++ {
			i := g.PixOffset(b.Min.X, b.Min.Y+y)
			src := g.Pix[i : i+b.Dx()]
			dst := rgba.Pix[y*rgba.Stride:]
			for x, v := range src {
				dst[4*x], dst[4*x+1], dst[4*x+2], dst[4*x+3] = v, v, v, 0xff
			}
		}
		return rgba
	}
	draw.Draw(rgba, rgba.Rect, img, b.Min, draw.Src)
	return rgba
}
