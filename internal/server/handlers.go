package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/Because66666/CanLiang/internal/mjpeg"
	"github.com/Because66666/CanLiang/internal/transport"
)

func (s *Server) videoFeed(w http.ResponseWriter, r *http.Request) {
	target, err := s.targetParam(r)
	if err != nil {
		s.badRequest(w, err)
		return
	}

	mjpeg.WriteHeaders(w.Header())
	w.WriteHeader(http.StatusOK)

	s.log.Info().Str("target", target).Str("remote", r.RemoteAddr).Msg("mjpeg client connected")
	err = s.pub.Stream(r.Context(), target, mjpeg.NewWriter(w))
	s.logStreamEnd(target, r.RemoteAddr, err)
}

func (s *Server) webSocket(w http.ResponseWriter, r *http.Request) {
	target, err := s.targetParam(r)
	if err != nil {
		s.badRequest(w, err)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied.
		s.log.Debug().Err(err).Msg("websocket upgrade")
		return
	}
	tr := transport.NewWebSocketTransport(conn)
	defer tr.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	go func() {
		select {
		case <-tr.Done():
			cancel()
		case <-ctx.Done():
		}
	}()

	s.log.Info().Str("target", target).Str("remote", r.RemoteAddr).Msg("websocket client connected")
	err = s.pub.Stream(ctx, target, tr)
	s.logStreamEnd(target, r.RemoteAddr, err)
}

func (s *Server) logStreamEnd(target, remote string, err error) {
	ev := s.log.Info()
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, transport.ErrClosed) {
		ev = ev.Err(err)
	}
	ev.Str("target", target).Str("remote", remote).Msg("client left")
}

func (s *Server) snapshot(w http.ResponseWriter, r *http.Request) {
	target, err := s.targetParam(r)
	if err != nil {
		s.badRequest(w, err)
		return
	}
	data, frame, err := s.pub.Snapshot(target)
	if err != nil {
		s.writeJSON(w, http.StatusInternalServerError, Response{Message: err.Error()})
		return
	}
	h := w.Header()
	h.Set("Content-Type", "image/jpeg")
	h.Set("Content-Length", strconv.Itoa(len(data)))
	h.Set("Cache-Control", "no-store")
	h.Set("X-Placeholder", strconv.FormatBool(frame.Placeholder))
	_, _ = w.Write(data)
}

func (s *Server) info(w http.ResponseWriter, r *http.Request) {
	target, err := s.targetParam(r)
	if err != nil {
		s.badRequest(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, s.pub.Info(target))
}

// stop ends every session for app, or all sessions when app is omitted.
func (s *Server) stop(w http.ResponseWriter, r *http.Request) {
	app := r.URL.Query().Get("app")
	if app != "" {
		if err := s.validate(app); err != nil {
			s.badRequest(w, err)
			return
		}
	}
	n := s.pub.Stop(app)
	msg := fmt.Sprintf("stopped %d stream(s)", n)
	if n == 0 {
		msg = "no active stream"
	}
	s.writeJSON(w, http.StatusOK, Response{Success: true, Message: msg, Stopped: &n})
}

func (s *Server) listPrograms(w http.ResponseWriter, _ *http.Request) {
	list := s.programs.Programs()
	n := len(list)
	s.writeJSON(w, http.StatusOK, Response{
		Success: true,
		Message: fmt.Sprintf("found %d programs", n),
		Data:    list,
		Count:   &n,
	})
}
