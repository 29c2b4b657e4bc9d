package decoder

import (
	"bytes"
	"errors"
	"image"
	"image/jpeg"
	"testing"
)

func encode(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 95}); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestDecode(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 32, 16))
	for i := 0; i < len(src.Pix); i += 4 {
		src.Pix[i], src.Pix[i+1], src.Pix[i+2], src.Pix[i+3] = 200, 40, 40, 255
	}
	img, err := NewJPEGDecoder().Decode(encode(t, src))
	if err != nil {
		t.Fatal(err)
	}
	if img.Bounds() != image.Rect(0, 0, 32, 16) {
		t.Fatalf("bounds = %v", img.Bounds())
	}
	c := img.RGBAAt(16, 8)
	if c.A != 255 || c.R < 180 || c.G > 70 || c.B > 70 {
		t.Errorf("pixel = %v", c)
	}
}

func TestDecodeGray(t *testing.T) {
	src := image.NewGray(image.Rect(0, 0, 8, 8))
	for i := range src.Pix {
		src.Pix[i] = 128
	}
	img, err := NewJPEGDecoder().Decode(encode(t, src))
	if err != nil {
		t.Fatal(err)
	}
	if got := img.RGBAAt(4, 4); got.A != 255 || absDiff(got.R, 128) > 4 {
		t.Errorf("pixel = %v", got)
	}
}

func TestDecodeRejects(t *testing.T) {
	big := encode(t, image.NewRGBA(image.Rect(0, 0, 64, 64)))
	tests := []struct {
		name string
		data []byte
		want error
	}{
		{name: "boundary text", data: []byte("--frame\r\n"), want: ErrNotJPEG},
		{name: "empty", data: nil, want: ErrNotJPEG},
		{name: "truncated", data: big[:len(big)/3]},
		{name: "too large", data: big, want: ErrFrameTooLarge},
	}
	d := NewJPEGDecoder(WithMaxPixels(32 * 32))
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img, err := d.Decode(tt.data)
			if err == nil {
				t.Fatalf("decoded %v, want error", img.Bounds())
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
	if frames, rejected := d.Stats(); frames != 0 || rejected != uint64(len(tests)) {
		t.Errorf("stats = %d/%d, want 0/%d", frames, rejected, len(tests))
	}
}

func TestDecodeCountsFrames(t *testing.T) {
	d := NewJPEGDecoder()
	data := encode(t, image.NewGray(image.Rect(0, 0, 4, 4)))
	for i := 0; i < 3; i++ {
		if _, err := d.Decode(data); err != nil {
			t.Fatal(err)
		}
	}
	if frames, rejected := d.Stats(); frames != 3 || rejected != 0 {
		t.Errorf("stats = %d/%d, want 3/0", frames, rejected)
	}
}

func TestToRGBASubImage(t *testing.T) {
	g := image.NewGray(image.Rect(0, 0, 8, 8))
	for i := range g.Pix {
		g.Pix[i] = uint8(i)
	}
	sub := g.SubImage(image.Rect(2, 3, 6, 5)).(*image.Gray)
	rgba := toRGBA(sub)
	if rgba.Bounds() != image.Rect(0, 0, 4, 2) {
		t.Fatalf("bounds = %v", rgba.Bounds())
	}
	if got, want := rgba.RGBAAt(1, 1).R, g.GrayAt(3, 4).Y; got != want {
		t.Errorf("pixel = %d, want %d", got, want)
	}
}

func absDiff(a, b uint8) uint8 {
	if a > b {
		return a - b
	}
	return b - a
}
