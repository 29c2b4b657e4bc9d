package surface

import (
	"image"
	"testing"
)

func TestBoundsKeepsInvertedEdges(t *testing.T) {
	tests := []struct {
		name           string
		l, t, r, b     int
		wantDx, wantDy int
	}{
		{name: "normal", l: 100, t: 50, r: 420, b: 290, wantDx: 320, wantDy: 240},
		{name: "collapsed", l: 10, t: 10, r: 10, b: 200, wantDx: 0, wantDy: 190},
		{name: "inverted height", l: 0, t: 300, r: 100, b: 200, wantDx: 100, wantDy: -100},
		{name: "inverted width", l: 400, t: 0, r: 100, b: 200, wantDx: -300, wantDy: 200},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Bounds(tt.l, tt.t, tt.r, tt.b)
			if got.Dx() != tt.wantDx || got.Dy() != tt.wantDy {
				t.Fatalf("Bounds = %v (%dx%d), want %dx%d", got, got.Dx(), got.Dy(), tt.wantDx, tt.wantDy)
			}
			if got.Min != image.Pt(tt.l, tt.t) {
				t.Fatalf("Min = %v, want (%d,%d)", got.Min, tt.l, tt.t)
			}
		})
	}
}
