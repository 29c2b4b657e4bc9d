// Package surfacetest provides an in-memory surface.Platform.
package surfacetest

import (
	"errors"
	"image"
	"sync"

	"github.com/Because66666/CanLiang/internal/surface"
)

const DesktopHandle surface.Handle = 0xD35C

// Window is a fake top-level window.
type Window struct {
	Handle  surface.Handle
	Process string
	// NameErr makes ProcessName fail for this window.
	NameErr error
	Rect    image.Rectangle
	Visible bool
	// Fill is the BGR colour every copied pixel gets.
	Fill [3]byte
}

// Platform is a goroutine-safe fake. Windows are enumerated in insertion
// order.
type Platform struct {
	mu      sync.Mutex
	windows []*Window

	Virtual image.Rectangle
	Primary image.Rectangle

	// CopyErr makes every copy fail.
	CopyErr error
	// DPIErr is returned from EnableDPIAwareness.
	DPIErr error

	Enumerations int
	DPICalls     int
	Copies       int
}

func New() *Platform {
	return &Platform{
		Virtual: image.Rect(-1920, 0, 1920, 1080),
		Primary: image.Rect(0, 0, 1920, 1080),
	}
}

// Add registers a visible window and returns it for further tweaking.
func (p *Platform) Add(h surface.Handle, process string, r image.Rectangle) *Window {
	p.mu.Lock()
	defer p.mu.Unlock()
	w := &Window{Handle: h, Process: process, Rect: r, Visible: true, Fill: [3]byte{0x30, 0x60, 0x90}}
	p.windows = append(p.windows, w)
	return w
}

// Close destroys the window.
func (p *Platform) Close(h surface.Handle) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, w := range p.windows {
		if w.Handle == h {
			p.windows = append(p.windows[:i], p.windows[i+1:]...)
			return
		}
	}
}

func (p *Platform) SetVisible(h surface.Handle, v bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if w := p.find(h); w != nil {
		w.Visible = v
	}
}

func (p *Platform) SetRect(h surface.Handle, r image.Rectangle) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if w := p.find(h); w != nil {
		w.Rect = r
	}
}

func (p *Platform) Counters() (enumerations, copies int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.Enumerations, p.Copies
}

func (p *Platform) find(h surface.Handle) *Window {
	for _, w := range p.windows {
		if w.Handle == h {
			return w
		}
	}
	return nil
}

func (p *Platform) DesktopHandle() surface.Handle { return DesktopHandle }

func (p *Platform) VisibleSurfaces() ([]surface.Handle, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Enumerations++
	var list []surface.Handle
	for _, w := range p.windows {
		if w.Visible {
			list = append(list, w.Handle)
		}
	}
	return list, nil
}

func (p *Platform) SurfaceExistsAndVisible(h surface.Handle) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	w := p.find(h)
	return w != nil && w.Visible
}

func (p *Platform) SurfaceRect(h surface.Handle) (image.Rectangle, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	w := p.find(h)
	if w == nil {
		return image.Rectangle{}, surface.ErrNotFound
	}
	return w.Rect, nil
}

func (p *Platform) ProcessName(h surface.Handle) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	w := p.find(h)
	if w == nil {
		return "", surface.ErrNotFound
	}
	if w.NameErr != nil {
		return "", w.NameErr
	}
	return w.Process, nil
}

func (p *Platform) VirtualScreen() (image.Rectangle, error) { return p.Virtual, nil }

func (p *Platform) PrimaryScreen() (image.Rectangle, error) {
	if p.Primary.Empty() {
		return image.Rectangle{}, surface.ErrInvalidGeometry
	}
	return p.Primary, nil
}

func (p *Platform) CopyDesktop(r image.Rectangle) (*surface.Pixels, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Copies++
	if p.CopyErr != nil {
		return nil, p.CopyErr
	}
	return fill(r.Dx(), r.Dy(), [3]byte{0xff, 0xff, 0xff}), nil
}

func (p *Platform) CopyWindow(h surface.Handle, w, hgt int) (*surface.Pixels, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Copies++
	if p.CopyErr != nil {
		return nil, p.CopyErr
	}
	win := p.find(h)
	if win == nil {
		return nil, surface.ErrNotFound
	}
	if w <= 0 || hgt <= 0 {
		return nil, errors.New("fake: bad size")
	}
	return fill(w, hgt, win.Fill), nil
}

func (p *Platform) EnableDPIAwareness() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.DPICalls++
	return p.DPIErr
}

// fill returns a BGRX bitmap with a garbage fourth byte, like GDI does.
func fill(w, h int, bgr [3]byte) *surface.Pixels {
	px := &surface.Pixels{Width: w, Height: h, Stride: w * 4, Pix: make([]byte, w*h*4), BGR: true}
	for i := 0; i < len(px.Pix); i += 4 {
		px.Pix[i], px.Pix[i+1], px.Pix[i+2], px.Pix[i+3] = bgr[0], bgr[1], bgr[2], 0x00
	}
	return px
}
