// Package display shows received frames in a local window.
package display

import "image"

// Display renders frames until the window is closed.
type Display interface {
	SetFrame(img *image.RGBA)
	Run() error
}
