// Package capture turns a surface handle into an RGB frame. Capturing
// never fails outward: any error yields a black placeholder frame.
package capture

import (
	"image"
	"image/color"
	"time"

	"golang.org/x/image/draw"
)

// Placeholder sizes for the two capture paths.
const (
	WindowPlaceholderWidth   = 640
	WindowPlaceholderHeight  = 480
	DesktopPlaceholderWidth  = 1280
	DesktopPlaceholderHeight = 720
)

// Frame represents a captured screen frame. Alpha is always opaque.
type Frame struct {
	Image     *image.RGBA
	Timestamp time.Time
	// Placeholder is set on substitute frames.
	Placeholder bool
}

func (f *Frame) Width() int  { return f.Image.Rect.Dx() }
func (f *Frame) Height() int { return f.Image.Rect.Dy() }

// Blank returns an all-black frame.
func Blank(w, h int) *Frame {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Rect, image.NewUniform(color.Black), image.Point{}, draw.Src)
	return &Frame{Image: img, Timestamp: time.Now(), Placeholder: true}
}

// WindowPlaceholder is the frame sent while a window target is unavailable.
func WindowPlaceholder() *Frame { return Blank(WindowPlaceholderWidth, WindowPlaceholderHeight) }

func DesktopPlaceholder() *Frame { return Blank(DesktopPlaceholderWidth, DesktopPlaceholderHeight) }
