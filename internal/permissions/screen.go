//go:build darwin

package permissions

/*
#cgo LDFLAGS: -framework CoreGraphics
#include <CoreGraphics/CoreGraphics.h>

static int preflightScreenCapture(void) { return CGPreflightScreenCaptureAccess(); }
static int requestScreenCapture(void) { return CGRequestScreenCaptureAccess(); }
*/
import "C"

var screenRecording = grant{
	required:  true,
	preflight: func() bool { return C.preflightScreenCapture() != 0 },
	request:   func() bool { return C.requestScreenCapture() != 0 },
}
