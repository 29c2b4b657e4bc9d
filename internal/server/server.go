// Package server exposes stream sessions over HTTP: MJPEG, WebSocket,
// status and control endpoints.
package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"runtime"
	"strings"
	"sync/atomic"

	"github.com/gorilla/websocket"

	"github.com/Because66666/CanLiang/internal/httpx"
	"github.com/Because66666/CanLiang/internal/logger"
	"github.com/Because66666/CanLiang/internal/stream"
)

// Programs lists capturable executables. See locator.Locator.
type Programs interface {
	Programs() []string
}

type Server struct {
	pub      *stream.Publisher
	programs Programs
	log      *logger.Logger

	target      atomic.Pointer[string]
	requireExe  bool
	allowOrigin string
	upgrader    websocket.Upgrader
}

type Option func(*Server)

func WithLogger(log *logger.Logger) Option { return func(s *Server) { s.log = log } }

// WithAllowOrigin enables CORS for the given origin.
func WithAllowOrigin(origin string) Option { return func(s *Server) { s.allowOrigin = origin } }

// WithRequireExe forces targets to be executable file names. It defaults
// to true on Windows only.
func WithRequireExe(v bool) Option { return func(s *Server) { s.requireExe = v } }

func New(pub *stream.Publisher, programs Programs, defaultTarget string, opts ...Option) *Server {
	s := &Server{
		pub:        pub,
		programs:   programs,
		log:        logger.Nop(),
		requireExe: runtime.GOOS == "windows",
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 64 * 1024,
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.SetDefaultTarget(defaultTarget)
	s.upgrader.CheckOrigin = s.checkOrigin
	return s
}

// checkOrigin admits non-browser clients (no Origin header), same-origin
// pages and the configured CORS origin. "*" admits everyone.
func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	switch {
	case origin == "", s.allowOrigin == "*":
		return true
	case s.allowOrigin != "" && strings.EqualFold(origin, s.allowOrigin):
		return true
	}
	u, err := url.Parse(origin)
	return err == nil && strings.EqualFold(u.Host, r.Host)
}

// SetDefaultTarget changes the target used when a request names none.
func (s *Server) SetDefaultTarget(target string) { s.target.Store(&target) }

func (s *Server) DefaultTarget() string { return *s.target.Load() }

// Handler routes the API.
func (s *Server) Handler() http.Handler {
	mux := httpx.NewServeMux("")
	mux.HandleFunc("GET /api/video_feed", s.videoFeed)
	mux.HandleFunc("GET /api/ws", s.webSocket)
	mux.HandleFunc("GET /api/snapshot", s.snapshot)
	mux.HandleFunc("GET /api/stream/info", s.info)
	mux.HandleFunc("POST /api/stream/stop", s.stop)
	mux.HandleFunc("GET /api/programs", s.listPrograms)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	return s.cors(mux)
}

func (s *Server) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.allowOrigin != "" {
			h := w.Header()
			h.Set("Access-Control-Allow-Origin", s.allowOrigin)
			h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			h.Set("Access-Control-Allow-Headers", "Content-Type")
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// Response is the envelope of JSON control endpoints.
type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
	Count   *int   `json:"count,omitempty"`
	Stopped *int   `json:"stopped,omitempty"`
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Debug().Err(err).Msg("write response")
	}
}

// targetParam returns the app query parameter or the default target.
func (s *Server) targetParam(r *http.Request) (string, error) {
	app := strings.TrimSpace(r.URL.Query().Get("app"))
	if app == "" {
		return s.DefaultTarget(), nil
	}
	return app, s.validate(app)
}

func (s *Server) validate(app string) error {
	if s.requireExe && !strings.HasSuffix(strings.ToLower(app), ".exe") {
		return fmt.Errorf("app %q must be an executable name ending in .exe", app)
	}
	return nil
}

func (s *Server) badRequest(w http.ResponseWriter, err error) {
	s.writeJSON(w, http.StatusBadRequest, Response{Success: false, Message: err.Error()})
}
