package stream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/jpeg"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/Because66666/CanLiang/internal/capture"
	"github.com/Because66666/CanLiang/internal/encoder"
	"github.com/Because66666/CanLiang/internal/locator"
	"github.com/Because66666/CanLiang/internal/surface"
	"github.com/Because66666/CanLiang/internal/surface/surfacetest"
)

// sink records frames; after each one it calls next with the frame count.
type sink struct {
	mu     sync.Mutex
	frames [][]byte
	next   func(n int) error
}

func (s *sink) SendFrame(data []byte) error {
	s.mu.Lock()
	s.frames = append(s.frames, data)
	n := len(s.frames)
	s.mu.Unlock()
	if s.next != nil {
		return s.next(n)
	}
	return nil
}

func (s *sink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.frames)
}

type sleepLog struct {
	mu    sync.Mutex
	calls []time.Duration
}

func (l *sleepLog) sleep(_ context.Context, d time.Duration) {
	l.mu.Lock()
	l.calls = append(l.calls, d)
	l.mu.Unlock()
}

func noSleep(context.Context, time.Duration) {}

type fixture struct {
	platform *surfacetest.Platform
	loc      *locator.Locator
	capturer *capture.Capturer
	enc      *encoder.JPEGEncoder
}

func newFixture() *fixture {
	p := surfacetest.New()
	p.Virtual = image.Rect(0, 0, 64, 32)
	return &fixture{
		platform: p,
		loc:      locator.New(p),
		capturer: capture.New(p),
		enc:      encoder.NewJPEGEncoder(encoder.DefaultQuality),
	}
}

func (f *fixture) session(target string, opts ...SessionOption) *Session {
	return NewSession(target, f.loc, f.capturer, f.enc, append([]SessionOption{WithSleep(noSleep)}, opts...)...)
}

func decode(t *testing.T, data []byte) image.Image {
	t.Helper()
	img, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode frame: %v", err)
	}
	return img
}

func assertSize(t *testing.T, data []byte, w, h int) image.Image {
	t.Helper()
	img := decode(t, data)
	if b := img.Bounds(); b.Dx() != w || b.Dy() != h {
		t.Fatalf("frame is %dx%d, want %dx%d", b.Dx(), b.Dy(), w, h)
	}
	return img
}

// assertDark allows for JPEG noise.
func assertDark(t *testing.T, img image.Image) {
	t.Helper()
	b := img.Bounds()
	r, g, bl, _ := img.At(b.Dx()/2, b.Dy()/2).RGBA()
	if r>>8 > 8 || g>>8 > 8 || bl>>8 > 8 {
		t.Errorf("center pixel is %d,%d,%d, want black", r>>8, g>>8, bl>>8)
	}
}

func TestPlaceholderWhenTargetMissing(t *testing.T) {
	f := newFixture()
	before := testutil.ToFloat64(placeholderFrames)

	var s *Session
	out := &sink{next: func(n int) error {
		if n == 2 {
			// Appearing later does not help; the session never resolves again.
			f.platform.Add(10, "yuanshen.exe", image.Rect(0, 0, 64, 48))
		}
		if n == 5 {
			s.Stop()
		}
		return nil
	}}
	s = f.session("yuanshen.exe")

	if err := s.Run(context.Background(), out); err != nil {
		t.Fatalf("Run() = %v", err)
	}
	if out.count() != 5 {
		t.Fatalf("got %d frames, want 5", out.count())
	}
	for _, data := range out.frames {
		assertDark(t, assertSize(t, data, 640, 480))
	}
	if n, _ := f.platform.Counters(); n != 1 {
		t.Errorf("enumerated %d times, want 1", n)
	}
	if got := testutil.ToFloat64(placeholderFrames) - before; got < 5 {
		t.Errorf("placeholder counter grew by %v, want >= 5", got)
	}

	info := s.Info()
	if info.IsStreaming || info.WindowFound || info.Hwnd != nil || info.State != "stopped" {
		t.Errorf("Info() = %+v", info)
	}
}

func TestDesktopStreaming(t *testing.T) {
	f := newFixture()
	var s *Session
	var mid Info
	out := &sink{next: func(n int) error {
		if n == 1 {
			mid = s.Info()
		}
		if n == 3 {
			s.Stop()
		}
		return nil
	}}
	s = f.session(locator.DefaultDesktopTarget)

	if err := s.Run(context.Background(), out); err != nil {
		t.Fatal(err)
	}
	for _, data := range out.frames {
		img := assertSize(t, data, 64, 32)
		if r, _, _, _ := img.At(10, 10).RGBA(); r>>8 < 240 {
			t.Errorf("desktop pixel red = %d, want white", r>>8)
		}
	}
	if n, _ := f.platform.Counters(); n != 0 {
		t.Errorf("desktop stream enumerated windows %d times", n)
	}
	if !mid.IsStreaming || mid.WindowFound || mid.State != "streaming" {
		t.Errorf("Info() while streaming = %+v", mid)
	}
	if mid.Hwnd == nil || *mid.Hwnd != uint64(surfacetest.DesktopHandle) {
		t.Errorf("hwnd = %v, want desktop handle", mid.Hwnd)
	}
}

func TestWindowReResolvedAfterClose(t *testing.T) {
	f := newFixture()
	f.platform.Add(10, "notepad.exe", image.Rect(0, 0, 64, 48))

	var s *Session
	out := &sink{next: func(n int) error {
		switch n {
		case 2:
			f.platform.Close(10)
			w := f.platform.Add(11, "Notepad.exe", image.Rect(0, 0, 32, 24))
			w.Fill = [3]byte{0, 0, 0xff}
		case 4:
			s.Stop()
		}
		return nil
	}}
	s = f.session("notepad.exe")

	if err := s.Run(context.Background(), out); err != nil {
		t.Fatal(err)
	}
	assertSize(t, out.frames[0], 64, 48)
	assertSize(t, out.frames[1], 64, 48)
	for _, data := range out.frames[2:] {
		img := assertSize(t, data, 32, 24)
		if r, g, _, _ := img.At(16, 12).RGBA(); r>>8 < 230 || g>>8 > 30 {
			t.Errorf("pixel = %d,%d, want red from the new window", r>>8, g>>8)
		}
	}
	if s.Handle() != 11 {
		t.Errorf("handle = %v, want 11", s.Handle())
	}
	if n, _ := f.platform.Counters(); n != 2 {
		t.Errorf("enumerated %d times, want 2", n)
	}
}

func TestLostWindowKeepsStreamingPlaceholders(t *testing.T) {
	f := newFixture()
	f.platform.Add(10, "notepad.exe", image.Rect(0, 0, 64, 48))

	var s *Session
	var info Info
	out := &sink{next: func(n int) error {
		switch n {
		case 2:
			f.platform.Close(10)
		case 3:
			f.platform.Add(12, "notepad.exe", image.Rect(0, 0, 64, 48))
		case 5:
			info = s.Info()
			s.Stop()
		}
		return nil
	}}
	s = f.session("notepad.exe")

	if err := s.Run(context.Background(), out); err != nil {
		t.Fatal(err)
	}
	for _, data := range out.frames[2:] {
		assertDark(t, assertSize(t, data, 640, 480))
	}
	if !info.IsStreaming || info.WindowFound || info.Hwnd != nil {
		t.Errorf("Info() after loss = %+v", info)
	}
	if n, _ := f.platform.Counters(); n != 2 {
		t.Errorf("enumerated %d times, want 2", n)
	}
}

func TestSendErrorEndsSession(t *testing.T) {
	f := newFixture()
	broken := errors.New("broken pipe")
	out := &sink{next: func(n int) error {
		if n == 3 {
			return broken
		}
		return nil
	}}
	s := f.session(locator.DefaultDesktopTarget)

	err := s.Run(context.Background(), out)
	if !errors.Is(err, broken) {
		t.Fatalf("Run() = %v, want %v", err, broken)
	}
	if out.count() != 3 {
		t.Errorf("SendFrame called %d times, want 3", out.count())
	}
	if s.Running() || s.State() != Stopped {
		t.Errorf("running=%v state=%v after disconnect", s.Running(), s.State())
	}
	if s.Frames() != 2 {
		t.Errorf("Frames() = %d, want 2 delivered", s.Frames())
	}
}

func TestContextCancelEndsSession(t *testing.T) {
	f := newFixture()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	out := &sink{next: func(n int) error {
		if n == 2 {
			cancel()
		}
		return nil
	}}
	s := f.session(locator.DefaultDesktopTarget)

	if err := s.Run(ctx, out); !errors.Is(err, context.Canceled) {
		t.Fatalf("Run() = %v, want context.Canceled", err)
	}
	if out.count() != 2 {
		t.Errorf("got %d frames after cancel, want 2", out.count())
	}
	if s.Running() {
		t.Error("still running")
	}
}

func TestStopWaitsForSleep(t *testing.T) {
	f := newFixture()
	var sleeps sleepLog
	var s *Session
	out := &sink{next: func(int) error {
		s.Stop()
		return nil
	}}
	s = f.session(locator.DefaultDesktopTarget, WithFPS(20), WithSleep(sleeps.sleep))

	if err := s.Run(context.Background(), out); err != nil {
		t.Fatal(err)
	}
	if out.count() != 1 {
		t.Errorf("got %d frames, want 1", out.count())
	}
	if !reflect.DeepEqual(sleeps.calls, []time.Duration{50 * time.Millisecond}) {
		t.Errorf("sleeps = %v, want one 50ms tick", sleeps.calls)
	}
}

func TestStopBeforeRun(t *testing.T) {
	f := newFixture()
	out := &sink{}
	s := f.session("notepad.exe")
	s.Stop()

	if err := s.Run(context.Background(), out); err != nil {
		t.Fatal(err)
	}
	if out.count() != 0 || s.State() != Stopped {
		t.Errorf("frames=%d state=%v", out.count(), s.State())
	}
	if n, _ := f.platform.Counters(); n != 0 {
		t.Errorf("resolved a stopped session")
	}
	if err := s.Run(context.Background(), out); !errors.Is(err, ErrAlreadyStarted) {
		t.Errorf("second Run() = %v, want ErrAlreadyStarted", err)
	}
}

type flakyEncoder struct {
	encoder.Encoder
	calls int
}

func (e *flakyEncoder) Encode(img *image.RGBA) ([]byte, error) {
	e.calls++
	if e.calls%2 == 1 {
		return nil, errors.New("encoder busy")
	}
	return e.Encoder.Encode(img)
}

func TestEncodeFailureSkipsEmissionOnly(t *testing.T) {
	f := newFixture()
	enc := &flakyEncoder{Encoder: f.enc}
	var sleeps sleepLog
	var s *Session
	out := &sink{next: func(n int) error {
		if n == 3 {
			s.Stop()
		}
		return nil
	}}
	s = NewSession(locator.DefaultDesktopTarget, f.loc, f.capturer, enc, WithSleep(sleeps.sleep))

	if err := s.Run(context.Background(), out); err != nil {
		t.Fatal(err)
	}
	if enc.calls != 6 {
		t.Errorf("encoded %d times, want 6", enc.calls)
	}
	if len(sleeps.calls) != 6 {
		t.Errorf("slept %d times, want once per tick", len(sleeps.calls))
	}
	for _, d := range sleeps.calls {
		if d != time.Second/DefaultFPS {
			t.Errorf("slept %v, want frame interval", d)
		}
	}
}

type panickyCapturer struct {
	Capturer
	calls int
}

func (c *panickyCapturer) Capture(h surface.Handle, target string) *capture.Frame {
	c.calls++
	if c.calls == 1 {
		panic("bad handle")
	}
	return c.Capturer.Capture(h, target)
}

func TestTickPanicIsRecovered(t *testing.T) {
	f := newFixture()
	var sleeps sleepLog
	var s *Session
	out := &sink{next: func(int) error {
		s.Stop()
		return nil
	}}
	capt := &panickyCapturer{Capturer: f.capturer}
	s = NewSession(locator.DefaultDesktopTarget, f.loc, capt, f.enc, WithSleep(sleeps.sleep))

	if err := s.Run(context.Background(), out); err != nil {
		t.Fatal(err)
	}
	want := []time.Duration{Backoff, time.Second / DefaultFPS}
	if !reflect.DeepEqual(sleeps.calls, want) {
		t.Errorf("sleeps = %v, want %v", sleeps.calls, want)
	}
	if out.count() != 1 {
		t.Errorf("got %d frames, want 1", out.count())
	}
}

func TestInfoIsIdempotent(t *testing.T) {
	f := newFixture()
	f.platform.Add(10, "notepad.exe", image.Rect(0, 0, 16, 16))
	var s *Session
	var a, b Info
	out := &sink{next: func(int) error {
		a, b = s.Info(), s.Info()
		s.Stop()
		return nil
	}}
	s = f.session("notepad.exe")

	if err := s.Run(context.Background(), out); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(a, b) {
		t.Errorf("Info() changed between calls: %+v vs %+v", a, b)
	}
	if !a.WindowFound || a.Hwnd == nil || *a.Hwnd != 10 || a.SessionID != s.ID() {
		t.Errorf("Info() = %+v", a)
	}
	if !reflect.DeepEqual(s.Info(), s.Info()) {
		t.Error("Info() after stop not stable")
	}
}

func TestInfoJSON(t *testing.T) {
	data, err := json.Marshal(IdleInfo("yuanshen.exe"))
	if err != nil {
		t.Fatal(err)
	}
	want := `{"target_app":"yuanshen.exe","is_streaming":false,"window_found":false,"hwnd":null,"state":"idle"}`
	if string(data) != want {
		t.Errorf("got %s, want %s", data, want)
	}
}

func TestStateString(t *testing.T) {
	for s, want := range map[State]string{Idle: "idle", Resolving: "resolving", Streaming: "streaming", Stopped: "stopped", 9: "unknown"} {
		if got := s.String(); got != want {
			t.Errorf("State(%d).String() = %q, want %q", s, got, want)
		}
	}
}
