// Package stream runs capture sessions: resolve the target once, then
// capture, encode and emit a frame every tick until the consumer goes away
// or the session is stopped.
package stream

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/Because66666/CanLiang/internal/capture"
	"github.com/Because66666/CanLiang/internal/encoder"
	"github.com/Because66666/CanLiang/internal/logger"
	"github.com/Because66666/CanLiang/internal/surface"
	"github.com/Because66666/CanLiang/internal/transport"
)

const (
	DefaultFPS = 30
	// Backoff is the pause after a tick that failed unexpectedly.
	Backoff = 100 * time.Millisecond
)

var ErrAlreadyStarted = errors.New("session already started")

// Locator finds the surface for a target. See locator.Locator.
type Locator interface {
	Resolve(target string) (surface.Handle, bool)
	Valid(h surface.Handle) bool
	IsDesktopHandle(h surface.Handle) bool
}

// Capturer grabs one frame and never fails. See capture.Capturer.
type Capturer interface {
	Capture(h surface.Handle, target string) *capture.Frame
}

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration)

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// Session streams one target to one consumer. All methods except Run may
// be called from any goroutine.
type Session struct {
	id     string
	target string

	loc      Locator
	capturer Capturer
	enc      encoder.Encoder
	interval time.Duration
	sleep    SleepFunc
	log      *logger.Logger

	state         atomic.Int32
	running       atomic.Bool
	stopRequested atomic.Bool
	// placeholder is set once resolution has failed; the session then only
	// emits black frames.
	placeholder atomic.Bool
	handle      atomic.Uintptr
	frames      atomic.Uint64
}

type SessionOption func(*Session)

// WithFPS sets the tick rate. Non-positive values keep DefaultFPS.
func WithFPS(fps int) SessionOption {
	return func(s *Session) {
		if fps > 0 {
			s.interval = time.Second / time.Duration(fps)
		}
	}
}

func WithSleep(fn SleepFunc) SessionOption { return func(s *Session) { s.sleep = fn } }

func WithSessionLogger(log *logger.Logger) SessionOption {
	return func(s *Session) { s.log = log }
}

func NewSession(target string, loc Locator, capturer Capturer, enc encoder.Encoder, opts ...SessionOption) *Session {
	s := &Session{
		id:       uuid.NewString(),
		target:   target,
		loc:      loc,
		capturer: capturer,
		enc:      enc,
		interval: time.Second / DefaultFPS,
		sleep:    sleep,
		log:      logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.Extend(s.log.With().Str("sid", s.id[:8]).Str("target", target))
	return s
}

func (s *Session) ID() string     { return s.id }
func (s *Session) Target() string { return s.target }
func (s *Session) State() State   { return State(s.state.Load()) }

// Running reports whether the loop is live and has not been told to stop.
func (s *Session) Running() bool { return s.running.Load() }

func (s *Session) Handle() surface.Handle { return surface.Handle(s.handle.Load()) }

// Frames is the number of frames emitted so far.
func (s *Session) Frames() uint64 { return s.frames.Load() }

// Stop asks the loop to end. A tick in progress, including its sleep, is
// finished first.
func (s *Session) Stop() {
	s.stopRequested.Store(true)
	s.running.Store(false)
}

// Run drives the session until Stop, ctx cancellation or a failed send.
// It returns nil after Stop, ctx.Err() on cancellation and the send error
// when the consumer went away.
func (s *Session) Run(ctx context.Context, out transport.FrameSender) error {
	if !s.state.CompareAndSwap(int32(Idle), int32(Resolving)) {
		return ErrAlreadyStarted
	}
	defer func() {
		s.running.Store(false)
		s.state.Store(int32(Stopped))
	}()
	if s.stopRequested.Load() {
		return nil
	}
	s.running.Store(true)

	activeSessions.Inc()
	defer activeSessions.Dec()

	if h, ok := s.loc.Resolve(s.target); ok {
		s.handle.Store(uintptr(h))
		s.log.Info().Uint64("hwnd", uint64(h)).Msg("stream started")
	} else {
		s.placeholder.Store(true)
		s.log.Warn().Msg("target not found, streaming placeholder frames")
	}
	if s.stopRequested.Load() {
		return nil
	}
	s.state.Store(int32(Streaming))

	for s.running.Load() {
		if err := ctx.Err(); err != nil {
			s.log.Info().Uint64("frames", s.Frames()).Msg("client disconnected")
			return err
		}
		if err := s.tick(ctx, out); err != nil {
			var sendErr *sendError
			if errors.As(err, &sendErr) {
				s.log.Info().Err(sendErr.err).Uint64("frames", s.Frames()).Msg("client disconnected")
				return sendErr.err
			}
			tickErrors.Inc()
			s.log.Error().Err(err).Msg("stream tick failed")
			s.sleep(ctx, Backoff)
		}
	}
	s.log.Info().Uint64("frames", s.Frames()).Msg("stream stopped")
	return nil
}

type sendError struct{ err error }

func (e *sendError) Error() string { return "send frame: " + e.err.Error() }
func (e *sendError) Unwrap() error { return e.err }

func (s *Session) tick(ctx context.Context, out transport.FrameSender) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	frame := s.frame()
	if frame.Placeholder {
		placeholderFrames.Inc()
	}

	data, err := s.enc.Encode(frame.Image)
	if err != nil {
		encodeFailures.Inc()
		s.log.Warn().Err(err).Msg("encode failed, frame skipped")
	} else {
		if err := out.SendFrame(data); err != nil {
			return &sendError{err: err}
		}
		s.frames.Add(1)
		framesSent.Inc()
		frameBytes.Observe(float64(len(data)))
	}

	s.sleep(ctx, s.interval)
	return nil
}

// frame picks what to emit this tick. A window that has vanished is looked
// up again once; if that fails the session falls back to placeholders for
// good.
func (s *Session) frame() *capture.Frame {
	if s.placeholder.Load() {
		return capture.WindowPlaceholder()
	}

	h := s.Handle()
	if !s.loc.IsDesktopHandle(h) && !s.loc.Valid(h) {
		nh, ok := s.loc.Resolve(s.target)
		if !ok {
			s.handle.Store(uintptr(surface.NoHandle))
			s.placeholder.Store(true)
			s.log.Warn().Uint64("hwnd", uint64(h)).Msg("window lost, streaming placeholder frames")
			return capture.WindowPlaceholder()
		}
		s.log.Info().Uint64("old", uint64(h)).Uint64("hwnd", uint64(nh)).Msg("window re-resolved")
		s.handle.Store(uintptr(nh))
		h = nh
	}
	return s.capturer.Capture(h, s.target)
}
