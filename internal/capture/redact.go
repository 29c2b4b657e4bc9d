package capture

import (
	"image"
	"image/color"
	"strings"

	"golang.org/x/image/draw"
)

// Reference resolution the redaction rectangles are authored in.
const (
	ReferenceWidth  = 3840
	ReferenceHeight = 2160
)

// KnownApp is the only application with built-in redaction regions.
const KnownApp = "yuanshen.exe"

// Region is a rectangle in reference coordinates.
type Region struct {
	X1, Y1, X2, Y2 int
}

// Scale maps r onto a w×h frame, truncating toward zero and clamping to
// the frame. The result may be empty.
func (r Region) Scale(w, h int) image.Rectangle {
	sx := float64(w) / ReferenceWidth
	sy := float64(h) / ReferenceHeight
	return image.Rectangle{
		Min: image.Pt(clamp(int(float64(r.X1)*sx), w), clamp(int(float64(r.Y1)*sy), h)),
		Max: image.Pt(clamp(int(float64(r.X2)*sx), w), clamp(int(float64(r.Y2)*sy), h)),
	}
}

func clamp(v, hi int) int {
	if v < 0 {
		return 0
	}
	if v > hi {
		return hi
	}
	return v
}

// Redactions maps a lower-cased executable name to its masked regions.
type Redactions map[string][]Region

// DefaultRedactions hides the player UID and the name plate of KnownApp.
func DefaultRedactions() Redactions {
	return Redactions{
		KnownApp: {
			{X1: 222, Y1: 374, X2: 583, Y2: 448},
			{X1: 3346, Y1: 2087, X2: 3731, Y2: 2149},
		},
	}
}

func (r Redactions) For(target string) []Region {
	return r[strings.ToLower(target)]
}

// Paint blacks out every non-empty scaled region and returns how many were
// painted.
func Paint(img *image.RGBA, regions []Region) int {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	black := image.NewUniform(color.Black)
	n := 0
	for _, reg := range regions {
		rect := reg.Scale(w, h)
		if rect.Max.X <= rect.Min.X || rect.Max.Y <= rect.Min.Y {
			continue
		}
		draw.Draw(img, rect.Add(img.Rect.Min), black, image.Point{}, draw.Src)
		n++
	}
	return n
}
