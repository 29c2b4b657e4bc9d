package stream

import (
	"context"
	"fmt"

	"github.com/Because66666/CanLiang/internal/capture"
	"github.com/Because66666/CanLiang/internal/encoder"
	"github.com/Because66666/CanLiang/internal/logger"
	"github.com/Because66666/CanLiang/internal/transport"
)

// Publisher creates and tracks sessions that share one locator, capturer
// and encoder. Each consumer gets its own session and capture loop.
type Publisher struct {
	loc      Locator
	capturer Capturer
	enc      encoder.Encoder
	sessions *Registry
	log      *logger.Logger

	fps   int
	sleep SleepFunc
}

type Option func(*Publisher)

func WithPublisherFPS(fps int) Option { return func(p *Publisher) { p.fps = fps } }

func WithLogger(log *logger.Logger) Option { return func(p *Publisher) { p.log = log } }

func WithPublisherSleep(fn SleepFunc) Option { return func(p *Publisher) { p.sleep = fn } }

func NewPublisher(loc Locator, capturer Capturer, enc encoder.Encoder, opts ...Option) *Publisher {
	p := &Publisher{
		loc:      loc,
		capturer: capturer,
		enc:      enc,
		sessions: NewRegistry(),
		log:      logger.Nop(),
		fps:      DefaultFPS,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Publisher) Sessions() *Registry { return p.sessions }

// NewSession prepares, without starting, a session for target.
func (p *Publisher) NewSession(target string) *Session {
	opts := []SessionOption{WithFPS(p.fps), WithSessionLogger(p.log)}
	if p.sleep != nil {
		opts = append(opts, WithSleep(p.sleep))
	}
	return NewSession(target, p.loc, p.capturer, p.enc, opts...)
}

// Stream runs a registered session for target until the consumer leaves
// or the session is stopped.
func (p *Publisher) Stream(ctx context.Context, target string, out transport.FrameSender) error {
	s := p.NewSession(target)
	p.sessions.Add(s)
	defer p.sessions.Remove(s)
	return s.Run(ctx, out)
}

// Start registers a session and runs it in the background. The returned
// channel yields Run's result.
func (p *Publisher) Start(ctx context.Context, target string, out transport.FrameSender) (*Session, <-chan error) {
	s := p.NewSession(target)
	p.sessions.Add(s)
	done := make(chan error, 1)
	go func() {
		defer p.sessions.Remove(s)
		done <- s.Run(ctx, out)
	}()
	return s, done
}

// Info reports on the latest session for target.
func (p *Publisher) Info(target string) Info {
	if s, ok := p.sessions.Latest(target); ok {
		return s.Info()
	}
	return IdleInfo(target)
}

// Stop stops every live session for target, or all when target is empty.
func (p *Publisher) Stop(target string) int {
	n := p.sessions.Stop(target)
	p.log.Info().Str("target", target).Int("sessions", n).Msg("stop requested")
	return n
}

// Snapshot captures and encodes a single frame of target. A target that
// cannot be found yields a placeholder frame, as a stream would.
func (p *Publisher) Snapshot(target string) ([]byte, *capture.Frame, error) {
	var frame *capture.Frame
	if h, ok := p.loc.Resolve(target); ok {
		frame = p.capturer.Capture(h, target)
	} else {
		frame = capture.WindowPlaceholder()
	}
	data, err := p.enc.Encode(frame.Image)
	if err != nil {
		return nil, nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return data, frame, nil
}
