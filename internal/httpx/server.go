// Package httpx is a small layer over net/http: servers that bind before
// they run and muxes with a path prefix.
package httpx

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/Because66666/CanLiang/internal/logger"
)

type (
	Mux struct {
		*http.ServeMux
		prefix string
	}
	Handler        = http.Handler
	HandlerFunc    = http.HandlerFunc
	ResponseWriter = http.ResponseWriter
	Request        = http.Request
)

// NewServeMux allocates and returns a new ServeMux.
func NewServeMux(prefix string) *Mux {
	return &Mux{ServeMux: http.NewServeMux(), prefix: prefix}
}

func (m *Mux) Handle(pattern string, handler Handler) *Mux {
	m.ServeMux.Handle(m.prefix+pattern, handler)
	return m
}

func (m *Mux) HandleFunc(pattern string, handler func(ResponseWriter, *Request)) *Mux {
	m.ServeMux.HandleFunc(m.prefix+pattern, handler)
	return m
}

func (m *Mux) ServeHTTP(w ResponseWriter, r *Request) { m.ServeMux.ServeHTTP(w, r) }

type Server struct {
	http.Server

	listener net.Listener
	log      *logger.Logger
	tag      string
}

type Option func(*Server)

func WithLogger(log *logger.Logger) Option { return func(s *Server) { s.log = log } }

// WithBaseContext makes every request context a child of ctx, so cancelling
// ctx ends streaming handlers.
func WithBaseContext(ctx context.Context) Option {
	return func(s *Server) { s.BaseContext = func(net.Listener) context.Context { return ctx } }
}

// NewServer binds address right away so a port of 0 resolves to a real
// one and Addr reports it. Streaming responses never finish, so there is
// no write timeout.
func NewServer(tag, address string, handler func(*Server) Handler, opts ...Option) (*Server, error) {
	s := &Server{
		Server: http.Server{
			Addr:              address,
			ReadHeaderTimeout: 10 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		log: logger.Nop(),
		tag: tag,
	}
	for _, opt := range opts {
		opt(s)
	}
	l, err := net.Listen("tcp", address)
	if err != nil {
		return nil, err
	}
	s.listener = l
	s.Addr = l.Addr().String()
	s.Handler = handler(s)
	return s, nil
}

func (s *Server) Run() { go s.run() }

func (s *Server) run() {
	s.log.Info().Str("addr", s.Addr).Msgf("Starting %s server", s.tag)
	err := s.Serve(s.listener)
	if errors.Is(err, http.ErrServerClosed) {
		s.log.Debug().Msgf("%s server was closed", s.tag)
		return
	}
	s.log.Error().Err(err).Msgf("%s server failed", s.tag)
}

// Shutdown waits for active requests until ctx expires, then closes what
// is left. Long-lived streams end through their request contexts.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msgf("Shutting down %s server", s.tag)
	err := s.Server.Shutdown(ctx)
	if errors.Is(err, context.DeadlineExceeded) {
		return s.Server.Close()
	}
	return err
}

func (s *Server) String() string { return s.tag + "::" + s.Addr }
