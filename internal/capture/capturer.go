package capture

import (
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/Because66666/CanLiang/internal/logger"
	"github.com/Because66666/CanLiang/internal/surface"
)

var captureFailures = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "canliang",
	Subsystem: "capture",
	Name:      "failures_total",
	Help:      "Captures replaced by a placeholder frame.",
}, []string{"path"})

// Capturer grabs frames from one platform. It is safe for concurrent use.
type Capturer struct {
	platform   surface.Platform
	redactions Redactions
	log        *logger.Logger

	dpiOnce sync.Once
}

type Option func(*Capturer)

func WithRedactions(r Redactions) Option { return func(c *Capturer) { c.redactions = r } }

func WithLogger(log *logger.Logger) Option { return func(c *Capturer) { c.log = log } }

func New(p surface.Platform, opts ...Option) *Capturer {
	c := &Capturer{
		platform:   p,
		redactions: DefaultRedactions(),
		log:        logger.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Capture grabs one frame of h. target is only used to pick redaction
// regions for window captures.
func (c *Capturer) Capture(h surface.Handle, target string) (frame *Frame) {
	c.dpiOnce.Do(c.enableDPIAwareness)

	desktop := h != surface.NoHandle && h == c.platform.DesktopHandle()
	defer func() {
		if r := recover(); r != nil {
			c.log.Error().Interface("panic", r).Uint64("hwnd", uint64(h)).Msg("capture panicked")
			frame = c.placeholder(desktop)
		}
	}()

	if desktop {
		img, err := c.desktop()
		if err != nil {
			c.log.Warn().Err(err).Msg("desktop capture failed")
			return c.placeholder(true)
		}
		return &Frame{Image: img, Timestamp: time.Now()}
	}

	img, err := c.window(h)
	if err != nil {
		c.log.Warn().Err(err).Uint64("hwnd", uint64(h)).Str("target", target).Msg("window capture failed")
		return c.placeholder(false)
	}
	if n := Paint(img, c.redactions.For(target)); n > 0 {
		c.log.Debug().Int("regions", n).Msg("redacted")
	}
	return &Frame{Image: img, Timestamp: time.Now()}
}

func (c *Capturer) enableDPIAwareness() {
	if err := c.platform.EnableDPIAwareness(); err != nil {
		c.log.Warn().Err(err).Msg("DPI awareness unavailable, coordinates may be scaled")
	}
}

func (c *Capturer) placeholder(desktop bool) *Frame {
	if desktop {
		captureFailures.WithLabelValues("desktop").Inc()
		return DesktopPlaceholder()
	}
	captureFailures.WithLabelValues("window").Inc()
	return WindowPlaceholder()
}

func (c *Capturer) desktop() (*image.RGBA, error) {
	r, err := c.platform.VirtualScreen()
	if err != nil || r.Dx() <= 0 || r.Dy() <= 0 {
		if r, err = c.platform.PrimaryScreen(); err != nil {
			return nil, fmt.Errorf("screen bounds: %w", err)
		}
	}
	if r.Dx() <= 0 || r.Dy() <= 0 {
		return nil, fmt.Errorf("screen %v: %w", r, surface.ErrInvalidGeometry)
	}
	px, err := c.platform.CopyDesktop(r)
	if err != nil {
		return nil, fmt.Errorf("copy desktop: %w", err)
	}
	return toRGBA(px)
}

func (c *Capturer) window(h surface.Handle) (*image.RGBA, error) {
	if !c.platform.SurfaceExistsAndVisible(h) {
		return nil, fmt.Errorf("window %#x: %w", uint64(h), surface.ErrNotFound)
	}
	r, err := c.platform.SurfaceRect(h)
	if err != nil {
		return nil, fmt.Errorf("window rect: %w", err)
	}
	if r.Dx() <= 0 || r.Dy() <= 0 {
		return nil, fmt.Errorf("window rect %v: %w", r, surface.ErrInvalidGeometry)
	}
	px, err := c.platform.CopyWindow(h, r.Dx(), r.Dy())
	if err != nil {
		return nil, fmt.Errorf("copy window: %w", err)
	}
	return toRGBA(px)
}

// toRGBA copies 4-byte pixels into an opaque RGBA image, swapping red and
// blue for BGR sources.
func toRGBA(px *surface.Pixels) (*image.RGBA, error) {
	if px.Width <= 0 || px.Height <= 0 || px.Stride < px.Width*4 || len(px.Pix) < px.Stride*(px.Height-1)+px.Width*4 {
		return nil, fmt.Errorf("pixels %dx%d stride %d len %d: %w",
			px.Width, px.Height, px.Stride, len(px.Pix), surface.ErrInvalidGeometry)
	}
	img := image.NewRGBA(image.Rect(0, 0, px.Width, px.Height))
	for y := 0; y < px.Height; y++ {
		src := px.Pix[y*px.Stride : y*px.Stride+px.Width*4]
		dst := img.Pix[y*img.Stride : y*img.Stride+px.Width*4]
		for i := 0; i < len(src); i += 4 {
			if px.BGR {
				dst[i], dst[i+1], dst[i+2] = src[i+2], src[i+1], src[i]
			} else {
				dst[i], dst[i+1], dst[i+2] = src[i], src[i+1], src[i+2]
			}
			dst[i+3] = 0xff
		}
	}
	return img, nil
}
