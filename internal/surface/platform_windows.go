//go:build windows

package surface

import (
	"fmt"
	"image"
	"sync"
	"unsafe"

	"golang.org/x/sys/windows"

	"github.com/Because66666/CanLiang/internal/procname"
)

var (
	user32 = windows.NewLazySystemDLL("user32.dll")
	gdi32  = windows.NewLazySystemDLL("gdi32.dll")
	shcore = windows.NewLazySystemDLL("shcore.dll")

	procEnumWindows              = user32.NewProc("EnumWindows")
	procIsWindow                 = user32.NewProc("IsWindow")
	procIsWindowVisible          = user32.NewProc("IsWindowVisible")
	procGetWindowRect            = user32.NewProc("GetWindowRect")
	procGetWindowThreadProcessID = user32.NewProc("GetWindowThreadProcessId")
	procGetDesktopWindow         = user32.NewProc("GetDesktopWindow")
	procGetSystemMetrics         = user32.NewProc("GetSystemMetrics")
	procGetDC                    = user32.NewProc("GetDC")
	procGetWindowDC              = user32.NewProc("GetWindowDC")
	procReleaseDC                = user32.NewProc("ReleaseDC")
	procSetProcessDPIAware       = user32.NewProc("SetProcessDPIAware")

	procCreateCompatibleDC     = gdi32.NewProc("CreateCompatibleDC")
	procCreateCompatibleBitmap = gdi32.NewProc("CreateCompatibleBitmap")
	procSelectObject           = gdi32.NewProc("SelectObject")
	procBitBlt                 = gdi32.NewProc("BitBlt")
	procGetDIBits              = gdi32.NewProc("GetDIBits")
	procDeleteObject           = gdi32.NewProc("DeleteObject")
	procDeleteDC               = gdi32.NewProc("DeleteDC")

	procSetProcessDpiAwareness = shcore.NewProc("SetProcessDpiAwareness")
)

const (
	smXVirtualScreen  = 76
	smYVirtualScreen  = 77
	smCXVirtualScreen = 78
	smCYVirtualScreen = 79
	smCXScreen        = 0
	smCYScreen        = 1

	srcCopy      = 0x00CC0020
	dibRGBColors = 0
	biRGB        = 0

	processPerMonitorDPIAware = 2
	eAccessDenied             = 0x80070005
)

type rect struct {
	Left, Top, Right, Bottom int32
}

type bitmapInfoHeader struct {
	Size          uint32
	Width         int32
	Height        int32
	Planes        uint16
	BitCount      uint16
	Compression   uint32
	SizeImage     uint32
	XPelsPerMeter int32
	YPelsPerMeter int32
	ClrUsed       uint32
	ClrImportant  uint32
}

type bitmapInfo struct {
	Header bitmapInfoHeader
	Colors [1]uint32
}

// enumWindowsCallback is created once: windows.NewCallback slots are a
// limited resource and never freed.
var enumWindowsCallback = windows.NewCallback(func(hwnd uintptr, lparam uintptr) uintptr {
	list := (*[]Handle)(unsafe.Pointer(lparam))
	if visible, _, _ := procIsWindowVisible.Call(hwnd); visible != 0 {
		*list = append(*list, Handle(hwnd))
	}
	return 1
})

type win32 struct {
	names procname.Chain
	// EnumWindows runs the callback on the calling thread; the mutex keeps
	// the shared callback's target list private to one enumeration.
	enumMu sync.Mutex
}

// Native returns the Win32 (user32/gdi32) implementation.
func Native() Platform { return &win32{names: procname.Default()} }

func (p *win32) DesktopHandle() Handle {
	h, _, _ := procGetDesktopWindow.Call()
	return Handle(h)
}

func (p *win32) VisibleSurfaces() ([]Handle, error) {
	p.enumMu.Lock()
	defer p.enumMu.Unlock()

	var list []Handle
	r, _, err := procEnumWindows.Call(enumWindowsCallback, uintptr(unsafe.Pointer(&list)))
	if r == 0 {
		return nil, fmt.Errorf("EnumWindows: %w", err)
	}
	return list, nil
}

func (p *win32) SurfaceExistsAndVisible(h Handle) bool {
	if h == NoHandle {
		return false
	}
	if ok, _, _ := procIsWindow.Call(uintptr(h)); ok == 0 {
		return false
	}
	visible, _, _ := procIsWindowVisible.Call(uintptr(h))
	return visible != 0
}

func (p *win32) SurfaceRect(h Handle) (image.Rectangle, error) {
	var r rect
	ok, _, err := procGetWindowRect.Call(uintptr(h), uintptr(unsafe.Pointer(&r)))
	if ok == 0 {
		return image.Rectangle{}, fmt.Errorf("GetWindowRect: %w", err)
	}
	return Bounds(int(r.Left), int(r.Top), int(r.Right), int(r.Bottom)), nil
}

func (p *win32) ProcessName(h Handle) (string, error) {
	var pid uint32
	tid, _, err := procGetWindowThreadProcessID.Call(uintptr(h), uintptr(unsafe.Pointer(&pid)))
	if tid == 0 {
		return "", fmt.Errorf("GetWindowThreadProcessId: %w", err)
	}
	return p.names.Lookup(pid)
}

func metric(index uintptr) int {
	v, _, _ := procGetSystemMetrics.Call(index)
	return int(int32(v))
}

func (p *win32) VirtualScreen() (image.Rectangle, error) {
	x, y := metric(smXVirtualScreen), metric(smYVirtualScreen)
	w, h := metric(smCXVirtualScreen), metric(smCYVirtualScreen)
	return image.Rect(x, y, x+w, y+h), nil
}

func (p *win32) PrimaryScreen() (image.Rectangle, error) {
	w, h := metric(smCXScreen), metric(smCYScreen)
	if w <= 0 || h <= 0 {
		return image.Rectangle{}, ErrInvalidGeometry
	}
	return image.Rect(0, 0, w, h), nil
}

func (p *win32) CopyDesktop(r image.Rectangle) (*Pixels, error) {
	dc, _, err := procGetDC.Call(0)
	if dc == 0 {
		return nil, fmt.Errorf("GetDC: %w", err)
	}
	defer procReleaseDC.Call(0, dc)
	return blit(dc, r.Min.X, r.Min.Y, r.Dx(), r.Dy())
}

func (p *win32) CopyWindow(h Handle, w, hgt int) (*Pixels, error) {
	dc, _, err := procGetWindowDC.Call(uintptr(h))
	if dc == 0 {
		return nil, fmt.Errorf("GetWindowDC: %w", err)
	}
	defer procReleaseDC.Call(uintptr(h), dc)
	return blit(dc, 0, 0, w, hgt)
}

// blit copies a w×h block at (x, y) of the source DC into a top-down
// 32-bit DIB. Every GDI object created here is released before return.
func blit(src uintptr, x, y, w, h int) (*Pixels, error) {
	if w <= 0 || h <= 0 {
		return nil, ErrInvalidGeometry
	}

	mem, _, err := procCreateCompatibleDC.Call(src)
	if mem == 0 {
		return nil, fmt.Errorf("CreateCompatibleDC: %w", err)
	}
	defer procDeleteDC.Call(mem)

	bmp, _, err := procCreateCompatibleBitmap.Call(src, uintptr(w), uintptr(h))
	if bmp == 0 {
		return nil, fmt.Errorf("CreateCompatibleBitmap: %w", err)
	}
	defer procDeleteObject.Call(bmp)

	old, _, _ := procSelectObject.Call(mem, bmp)
	ok, _, err := procBitBlt.Call(mem, 0, 0, uintptr(w), uintptr(h), src, uintptr(x), uintptr(y), srcCopy)
	// GetDIBits wants the bitmap deselected.
	procSelectObject.Call(mem, old)
	if ok == 0 {
		return nil, fmt.Errorf("BitBlt: %w", err)
	}

	bi := bitmapInfo{Header: bitmapInfoHeader{
		Width:       int32(w),
		Height:      -int32(h), // top-down rows
		Planes:      1,
		BitCount:    32,
		Compression: biRGB,
	}}
	bi.Header.Size = uint32(unsafe.Sizeof(bi.Header))

	px := &Pixels{Width: w, Height: h, Stride: w * 4, Pix: make([]byte, w*h*4), BGR: true}
	lines, _, err := procGetDIBits.Call(mem, bmp, 0, uintptr(h),
		uintptr(unsafe.Pointer(&px.Pix[0])), uintptr(unsafe.Pointer(&bi)), dibRGBColors)
	if lines == 0 {
		return nil, fmt.Errorf("GetDIBits: %w", err)
	}
	return px, nil
}

func (p *win32) EnableDPIAwareness() error {
	if err := procSetProcessDpiAwareness.Find(); err == nil {
		hr, _, _ := procSetProcessDpiAwareness.Call(processPerMonitorDPIAware)
		// E_ACCESSDENIED means the awareness was already set for the process.
		if hr == 0 || uint32(hr) == eAccessDenied {
			return nil
		}
	}
	if ok, _, err := procSetProcessDPIAware.Call(); ok == 0 {
		return fmt.Errorf("SetProcessDPIAware: %w", err)
	}
	return nil
}
