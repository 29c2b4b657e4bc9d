//go:build !darwin

package permissions

// Win32 GDI and X11 capture need no grant.
var screenRecording = grant{}
