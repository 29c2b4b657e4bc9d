package encoder

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"testing"
)

func testImage(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, color.RGBA{uint8(x), uint8(y), 0x80, 0xff})
		}
	}
	return img
}

func TestNewJPEGEncoderClampsQuality(t *testing.T) {
	tests := []struct{ in, want int }{
		{-5, 1}, {0, 1}, {1, 1}, {80, 80}, {100, 100}, {250, 100},
	}
	for _, tt := range tests {
		if got := NewJPEGEncoder(tt.in).Quality(); got != tt.want {
			t.Errorf("NewJPEGEncoder(%d).Quality() = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestEncode(t *testing.T) {
	data, err := NewJPEGEncoder(DefaultQuality).Encode(testImage(64, 48))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(data, []byte{0xff, 0xd8}) {
		t.Fatalf("missing SOI marker: % x", data[:4])
	}
	cfg, err := jpeg.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Width != 64 || cfg.Height != 48 {
		t.Errorf("decoded %dx%d, want 64x48", cfg.Width, cfg.Height)
	}
}

func TestEncodeQualityAffectsSize(t *testing.T) {
	img := testImage(128, 128)
	e := NewJPEGEncoder(95)
	hi, _ := e.Encode(img)
	e.SetQuality(10)
	lo, _ := e.Encode(img)
	if len(lo) >= len(hi) {
		t.Errorf("quality 10 produced %d bytes, quality 95 %d", len(lo), len(hi))
	}
}

func TestEncodeMaxWidth(t *testing.T) {
	tests := []struct {
		name         string
		maxWidth     int
		w, h         int
		wantW, wantH int
	}{
		{"downscaled", 320, 640, 480, 320, 240},
		{"narrower kept", 1280, 640, 480, 640, 480},
		{"disabled", 0, 640, 480, 640, 480},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := NewJPEGEncoder(80, WithMaxWidth(tt.maxWidth)).Encode(testImage(tt.w, tt.h))
			if err != nil {
				t.Fatal(err)
			}
			cfg, err := jpeg.DecodeConfig(bytes.NewReader(data))
			if err != nil {
				t.Fatal(err)
			}
			if cfg.Width != tt.wantW || cfg.Height != tt.wantH {
				t.Errorf("got %dx%d, want %dx%d", cfg.Width, cfg.Height, tt.wantW, tt.wantH)
			}
		})
	}
}
