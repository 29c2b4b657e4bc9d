package display

import (
	"fmt"
	"image"
	"math"
	"sync"
	"sync/atomic"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
)

// EbitenDisplay renders the remote window using Ebitengine.
type EbitenDisplay struct {
	mu          sync.Mutex
	frame       *image.RGBA
	frames      uint64
	status      string
	ebitenImage *ebiten.Image
	closed      atomic.Bool

	title   string
	width   int
	height  int
	showHUD bool
}

type Option func(*EbitenDisplay)

func WithTitle(title string) Option { return func(d *EbitenDisplay) { d.title = title } }

// WithSize sets the initial window size.
func WithSize(w, h int) Option {
	return func(d *EbitenDisplay) {
		if w > 0 && h > 0 {
			d.width, d.height = w, h
		}
	}
}

// NewEbitenDisplay creates an Ebitengine-based display.
func NewEbitenDisplay(opts ...Option) *EbitenDisplay {
	d := &EbitenDisplay{
		title:  "CanLiang",
		width:  1280,
		height: 720,
		status: "waiting for frames",
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// SetFrame updates the displayed frame (called from network goroutine).
func (d *EbitenDisplay) SetFrame(img *image.RGBA) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.frame = img
	d.frames++
}

// SetStatus replaces the text shown while no frame has arrived, or in the
// HUD once frames flow.
func (d *EbitenDisplay) SetStatus(s string) {
	d.mu.Lock()
	d.status = s
	d.mu.Unlock()
}

// Run starts the Ebitengine game loop. Must be called from the main goroutine.
func (d *EbitenDisplay) Run() error {
	ebiten.SetWindowSize(d.width, d.height)
	ebiten.SetWindowTitle(d.title)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	return ebiten.RunGame(d)
}

// Close ends Run at the next tick. It may be called from any goroutine.
func (d *EbitenDisplay) Close() { d.closed.Store(true) }

func (d *EbitenDisplay) Update() error {
	if d.closed.Load() || inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		return ebiten.Termination
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyF1) {
		d.showHUD = !d.showHUD
	}
	return nil
}

func (d *EbitenDisplay) Draw(screen *ebiten.Image) {
	d.mu.Lock()
	frame, frames, status := d.frame, d.frames, d.status
	d.mu.Unlock()

	if frame == nil {
		ebitenutil.DebugPrint(screen, status)
		return
	}

	if d.ebitenImage == nil ||
		d.ebitenImage.Bounds().Dx() != frame.Bounds().Dx() ||
		d.ebitenImage.Bounds().Dy() != frame.Bounds().Dy() {
		d.ebitenImage = ebiten.NewImage(frame.Bounds().Dx(), frame.Bounds().Dy())
	}
	d.ebitenImage.WritePixels(frame.Pix)

	sw, sh := screen.Bounds().Dx(), screen.Bounds().Dy()
	fw, fh := float64(frame.Bounds().Dx()), float64(frame.Bounds().Dy())
	scale, offsetX, offsetY := aspectFitTransform(float64(sw), float64(sh), fw, fh)

	op := &ebiten.DrawImageOptions{}
	op.GeoM.Scale(scale, scale)
	op.GeoM.Translate(offsetX, offsetY)
	op.Filter = ebiten.FilterLinear
	screen.DrawImage(d.ebitenImage, op)

	if d.showHUD {
		ebitenutil.DebugPrint(screen, hud(frame.Bounds(), frames, ebiten.ActualFPS(), status))
	}
}

func (d *EbitenDisplay) Layout(outsideWidth, outsideHeight int) (int, int) {
	return outsideWidth, outsideHeight
}

func hud(r image.Rectangle, frames uint64, fps float64, status string) string {
	return fmt.Sprintf("%dx%d  frames %d  %.0f fps\n%s", r.Dx(), r.Dy(), frames, fps, status)
}

// aspectFitTransform returns scale and offsets to fit frame into view with letterboxing.
func aspectFitTransform(viewW, viewH, frameW, frameH float64) (scale, offsetX, offsetY float64) {
	if frameW <= 0 || frameH <= 0 {
		return 1, 0, 0
	}
	scale = math.Min(viewW/frameW, viewH/frameH)
	offsetX = (viewW - frameW*scale) / 2
	offsetY = (viewH - frameH*scale) / 2
	return
}
