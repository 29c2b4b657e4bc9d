//go:build !windows && !darwin

package surface

import (
	"fmt"
	"image"

	"github.com/kbinani/screenshot"
)

// X11 and Wayland have no portable notion of "the window owned by a
// process", so only the desktop can be captured here.
type screenOnly struct{}

const desktopHandle = Handle(1)

// Native returns a desktop-only implementation backed by kbinani/screenshot.
func Native() Platform { return screenOnly{} }

func (screenOnly) DesktopHandle() Handle { return desktopHandle }

func (screenOnly) VisibleSurfaces() ([]Handle, error) { return nil, ErrUnsupported }

func (screenOnly) SurfaceExistsAndVisible(Handle) bool { return false }

func (screenOnly) SurfaceRect(Handle) (image.Rectangle, error) {
	return image.Rectangle{}, ErrUnsupported
}

func (screenOnly) ProcessName(Handle) (string, error) { return "", ErrUnsupported }

func (screenOnly) VirtualScreen() (image.Rectangle, error) {
	n := screenshot.NumActiveDisplays()
	var all image.Rectangle
	for i := 0; i < n; i++ {
		all = all.Union(screenshot.GetDisplayBounds(i))
	}
	return all, nil
}

func (screenOnly) PrimaryScreen() (image.Rectangle, error) {
	if screenshot.NumActiveDisplays() == 0 {
		return image.Rectangle{}, fmt.Errorf("no active display: %w", ErrNotFound)
	}
	return screenshot.GetDisplayBounds(0), nil
}

func (screenOnly) CopyDesktop(r image.Rectangle) (*Pixels, error) {
	img, err := screenshot.CaptureRect(r)
	if err != nil {
		return nil, fmt.Errorf("capture %v: %w", r, err)
	}
	return &Pixels{
		Width:  img.Rect.Dx(),
		Height: img.Rect.Dy(),
		Stride: img.Stride,
		Pix:    img.Pix,
	}, nil
}

func (screenOnly) CopyWindow(Handle, int, int) (*Pixels, error) { return nil, ErrUnsupported }

func (screenOnly) EnableDPIAwareness() error { return nil }
