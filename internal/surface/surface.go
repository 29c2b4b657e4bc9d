// Package surface abstracts the OS window manager: enumerating visible
// top-level windows, their geometry and owning process, and copying their
// pixels or the desktop's.
package surface

import (
	"errors"
	"image"
)

// Handle is an opaque OS reference to a window or the desktop.
type Handle uintptr

// NoHandle is the zero handle, never a valid surface.
const NoHandle Handle = 0

var (
	ErrNotFound        = errors.New("surface not found")
	ErrInvalidGeometry = errors.New("surface has invalid geometry")
	ErrUnsupported     = errors.New("not supported on this platform")
)

// Pixels is a raw 32-bit bitmap as returned by the OS. BGR is set when the
// byte order is B,G,R,X instead of R,G,B,X. The fourth byte is ignored.
type Pixels struct {
	Width  int
	Height int
	Stride int
	Pix    []byte
	BGR    bool
}

// Platform is the set of window-manager capabilities the locator and
// capturer need.
type Platform interface {
	// DesktopHandle returns the root surface. It never goes stale.
	DesktopHandle() Handle
	// VisibleSurfaces lists visible top-level surfaces in platform order.
	VisibleSurfaces() ([]Handle, error)
	// SurfaceExistsAndVisible reports whether h still refers to a live,
	// visible surface.
	SurfaceExistsAndVisible(h Handle) bool
	// SurfaceRect returns the bounding rectangle of h in screen coordinates.
	SurfaceRect(h Handle) (image.Rectangle, error)
	// ProcessName returns the executable file name (no directory) of the
	// process owning h.
	ProcessName(h Handle) (string, error)
	// VirtualScreen returns the bounds spanning all monitors. A zero size
	// means the platform could not tell.
	VirtualScreen() (image.Rectangle, error)
	// PrimaryScreen returns the bounds of the main monitor.
	PrimaryScreen() (image.Rectangle, error)
	// CopyDesktop copies the given screen-space region.
	CopyDesktop(r image.Rectangle) (*Pixels, error)
	// CopyWindow copies a w×h region starting at the window's origin.
	CopyWindow(h Handle, w, hgt int) (*Pixels, error)
	// EnableDPIAwareness asks the OS to report physical pixels. It may be
	// called more than once.
	EnableDPIAwareness() error
}

// Bounds builds a rectangle from raw OS edges without normalising them, so
// an inverted or collapsed window keeps a non-positive Dx or Dy and is
// rejected downstream instead of being silently flipped.
func Bounds(left, top, right, bottom int) image.Rectangle {
	return image.Rectangle{Min: image.Pt(left, top), Max: image.Pt(right, bottom)}
}
