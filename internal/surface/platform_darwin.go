//go:build darwin

package surface

/*
#cgo LDFLAGS: -framework CoreGraphics -framework CoreFoundation
#include <CoreGraphics/CoreGraphics.h>
#include <CoreFoundation/CoreFoundation.h>
#include <dlfcn.h>
#include <stdlib.h>

typedef struct {
    void*  data;
    size_t size;
    int    width;
    int    height;
    size_t bytesPerRow;
} FrameData;

// CGWindowListCreateImage is unavailable in the macOS 15 SDK headers but still
// present in the CoreGraphics dylib. Load it dynamically.
typedef CGImageRef (*CGWindowListCreateImageFunc)(
    CGRect screenBounds,
    uint32_t listOption,
    uint32_t windowID,
    uint32_t imageOption
);

static CGWindowListCreateImageFunc getCGWindowListCreateImage(void) {
    static CGWindowListCreateImageFunc fn = NULL;
    if (!fn) {
        fn = (CGWindowListCreateImageFunc)dlsym(RTLD_DEFAULT, "CGWindowListCreateImage");
    }
    return fn;
}

static int dictInt(CFDictionaryRef d, CFStringRef key, int64_t *out) {
    CFNumberRef n = (CFNumberRef)CFDictionaryGetValue(d, key);
    if (!n) {
        return 0;
    }
    return CFNumberGetValue(n, kCFNumberSInt64Type, out) ? 1 : 0;
}

// listWindows stores the ids of on-screen, normal-layer windows front to back.
int listWindows(uint32_t *ids, int max) {
    CFArrayRef list = CGWindowListCopyWindowInfo(
        kCGWindowListOptionOnScreenOnly | kCGWindowListExcludeDesktopElements, kCGNullWindowID);
    if (!list) {
        return -1;
    }
    int n = 0;
    CFIndex count = CFArrayGetCount(list);
    for (CFIndex i = 0; i < count && n < max; i++) {
        CFDictionaryRef d = (CFDictionaryRef)CFArrayGetValueAtIndex(list, i);
        int64_t layer = 0, id = 0;
        if (!dictInt(d, kCGWindowLayer, &layer) || layer != 0) {
            continue;
        }
        if (!dictInt(d, kCGWindowNumber, &id)) {
            continue;
        }
        ids[n++] = (uint32_t)id;
    }
    CFRelease(list);
    return n;
}

// windowInfo returns 1 if the window exists and fills its bounds, owner pid
// and on-screen flag.
int windowInfo(uint32_t id, CGRect *bounds, int32_t *pid, int *onscreen) {
    CFArrayRef list = CGWindowListCopyWindowInfo(kCGWindowListOptionIncludingWindow, id);
    if (!list) {
        return 0;
    }
    int found = 0;
    if (CFArrayGetCount(list) > 0) {
        CFDictionaryRef d = (CFDictionaryRef)CFArrayGetValueAtIndex(list, 0);
        int64_t num = 0, owner = 0;
        if (dictInt(d, kCGWindowNumber, &num) && (uint32_t)num == id) {
            found = 1;
            CFDictionaryRef b = (CFDictionaryRef)CFDictionaryGetValue(d, kCGWindowBounds);
            if (b) {
                CGRectMakeWithDictionaryRepresentation(b, bounds);
            }
            dictInt(d, kCGWindowOwnerPID, &owner);
            *pid = (int32_t)owner;
            CFBooleanRef on = (CFBooleanRef)CFDictionaryGetValue(d, kCGWindowIsOnscreen);
            *onscreen = (on && CFBooleanGetValue(on)) ? 1 : 0;
        }
    }
    CFRelease(list);
    return found;
}

CGRect mainDisplayBounds(void) {
    return CGDisplayBounds(CGMainDisplayID());
}

CGRect allDisplaysBounds(void) {
    CGDirectDisplayID displays[16];
    uint32_t count = 0;
    CGRect r = CGRectNull;
    if (CGGetActiveDisplayList(16, displays, &count) != kCGErrorSuccess) {
        return CGRectZero;
    }
    for (uint32_t i = 0; i < count; i++) {
        r = CGRectUnion(r, CGDisplayBounds(displays[i]));
    }
    return CGRectIsNull(r) ? CGRectZero : r;
}

// captureRect renders the image into a RGBX buffer owned by the caller.
// windowID 0 with listOption 1 (on screen only) captures the desktop.
FrameData captureRect(CGRect bounds, uint32_t listOption, uint32_t windowID, int useNullRect) {
    FrameData result = {0};

    CGWindowListCreateImageFunc fn = getCGWindowListCreateImage();
    if (!fn) {
        return result;
    }

    CGImageRef image = fn(useNullRect ? CGRectNull : bounds, listOption, windowID, 0);
    if (!image) {
        return result;
    }

    result.width  = (int)CGImageGetWidth(image);
    result.height = (int)CGImageGetHeight(image);
    if (result.width <= 0 || result.height <= 0) {
        CGImageRelease(image);
        return result;
    }

    result.bytesPerRow = result.width * 4;
    result.size        = result.bytesPerRow * result.height;
    result.data        = malloc(result.size);
    if (!result.data) {
        CGImageRelease(image);
        result.size = 0;
        return result;
    }

    CGColorSpaceRef cs = CGColorSpaceCreateDeviceRGB();
    CGContextRef ctx = CGBitmapContextCreate(
        result.data,
        result.width,
        result.height,
        8,
        result.bytesPerRow,
        cs,
        kCGImageAlphaNoneSkipLast
    );
    CGContextDrawImage(ctx, CGRectMake(0, 0, result.width, result.height), image);
    CGContextRelease(ctx);
    CGColorSpaceRelease(cs);
    CGImageRelease(image);

    return result;
}

void freeFrameData(void* data) {
    free(data);
}
*/
import "C"

import (
	"fmt"
	"image"
	"unsafe"

	"github.com/Because66666/CanLiang/internal/procname"
)

const (
	maxWindows = 1024

	listOnScreenOnly    = 1
	listIncludingWindow = 8

	// Window ids are 32-bit, so this never collides with a real window.
	desktopHandle = Handle(1 << 32)
)

type coreGraphics struct {
	names procname.Chain
}

// Native returns the CoreGraphics implementation.
func Native() Platform { return &coreGraphics{names: procname.Default()} }

func (p *coreGraphics) DesktopHandle() Handle { return desktopHandle }

func (p *coreGraphics) VisibleSurfaces() ([]Handle, error) {
	var ids [maxWindows]C.uint32_t
	n := int(C.listWindows(&ids[0], maxWindows))
	if n < 0 {
		return nil, fmt.Errorf("CGWindowListCopyWindowInfo failed")
	}
	list := make([]Handle, n)
	for i := 0; i < n; i++ {
		list[i] = Handle(ids[i])
	}
	return list, nil
}

type cgWindow struct {
	bounds   image.Rectangle
	pid      uint32
	onScreen bool
}

func (p *coreGraphics) window(h Handle) (cgWindow, bool) {
	if h == NoHandle || h == desktopHandle {
		return cgWindow{}, false
	}
	var (
		r        C.CGRect
		pid      C.int32_t
		onscreen C.int
	)
	if C.windowInfo(C.uint32_t(h), &r, &pid, &onscreen) == 0 {
		return cgWindow{}, false
	}
	return cgWindow{bounds: toRect(r), pid: uint32(pid), onScreen: onscreen != 0}, true
}

func (p *coreGraphics) SurfaceExistsAndVisible(h Handle) bool {
	w, ok := p.window(h)
	return ok && w.onScreen
}

func (p *coreGraphics) SurfaceRect(h Handle) (image.Rectangle, error) {
	w, ok := p.window(h)
	if !ok {
		return image.Rectangle{}, ErrNotFound
	}
	return w.bounds, nil
}

func (p *coreGraphics) ProcessName(h Handle) (string, error) {
	w, ok := p.window(h)
	if !ok {
		return "", ErrNotFound
	}
	return p.names.Lookup(w.pid)
}

func (p *coreGraphics) VirtualScreen() (image.Rectangle, error) {
	return toRect(C.allDisplaysBounds()), nil
}

func (p *coreGraphics) PrimaryScreen() (image.Rectangle, error) {
	r := toRect(C.mainDisplayBounds())
	if r.Empty() {
		return image.Rectangle{}, ErrInvalidGeometry
	}
	return r, nil
}

func (p *coreGraphics) CopyDesktop(r image.Rectangle) (*Pixels, error) {
	bounds := C.CGRectMake(C.CGFloat(r.Min.X), C.CGFloat(r.Min.Y), C.CGFloat(r.Dx()), C.CGFloat(r.Dy()))
	return copyFrame(C.captureRect(bounds, listOnScreenOnly, 0, 0))
}

// CopyWindow ignores the requested size: CoreGraphics returns the window
// at backing-store resolution, which is larger on Retina displays.
func (p *coreGraphics) CopyWindow(h Handle, _, _ int) (*Pixels, error) {
	return copyFrame(C.captureRect(C.CGRectNull, listIncludingWindow, C.uint32_t(h), 1))
}

// EnableDPIAwareness is a no-op: CoreGraphics always reports backing pixels.
func (p *coreGraphics) EnableDPIAwareness() error { return nil }

func copyFrame(fd C.FrameData) (*Pixels, error) {
	if fd.data == nil {
		return nil, fmt.Errorf("CGWindowListCreateImage returned no image")
	}
	defer C.freeFrameData(fd.data)

	w := int(fd.width)
	h := int(fd.height)
	byteLen := int(fd.size)

	pix := make([]byte, byteLen)
	copy(pix, unsafe.Slice((*byte)(fd.data), byteLen))

	return &Pixels{Width: w, Height: h, Stride: int(fd.bytesPerRow), Pix: pix}, nil
}

func toRect(r C.CGRect) image.Rectangle {
	x, y := int(r.origin.x), int(r.origin.y)
	return Bounds(x, y, x+int(r.size.width), y+int(r.size.height))
}
