package peer

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/pion/webrtc/v4"

	"github.com/Because66666/CanLiang/internal/logger"
	"github.com/Because66666/CanLiang/internal/stream"
	"github.com/Because66666/CanLiang/internal/transport"
)

// Streamer starts a capture session that writes frames to out.
// stream.Publisher implements it.
type Streamer interface {
	Start(ctx context.Context, target string, out transport.FrameSender) (*stream.Session, <-chan error)
}

// Host is the streamer side of one viewer's connection. The session
// starts when the viewer's frames channel opens and ends with the
// connection.
type Host struct {
	viewerID string
	app      string
	pc       *webrtc.PeerConnection
	sig      Signaler
	tr       *transport.DataChannelTransport
	streamer Streamer
	log      *logger.Logger
	ice      candidates

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	session *stream.Session

	closed atomic.Bool
	done   chan struct{}
}

// NewHost creates a Host answering viewerID and streaming app.
func NewHost(ctx context.Context, api *API, viewerID, app string, sig Signaler, streamer Streamer) (*Host, error) {
	pc, err := api.NewPeerConnection(viewerID)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(ctx)
	h := &Host{
		viewerID: viewerID,
		app:      app,
		pc:       pc,
		sig:      sig,
		tr:       transport.NewDataChannelTransport(nil),
		streamer: streamer,
		log:      api.log.Extend(api.log.With().Str("viewer", viewerID).Str("app", app)),
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}

	trickle(pc, sig, viewerID, h.log)

	pc.OnDataChannel(func(dc *webrtc.DataChannel) {
		if dc.Label() != FramesLabel {
			h.log.Debug().Str("label", dc.Label()).Msg("ignoring data channel")
			return
		}
		h.tr.SetFramesChannel(dc)
		dc.OnOpen(h.start)
		dc.OnClose(h.Close)
	})

	pc.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		switch state {
		case webrtc.PeerConnectionStateFailed, webrtc.PeerConnectionStateClosed:
			h.Close()
		}
	})
	return h, nil
}

func (h *Host) ViewerID() string { return h.viewerID }
func (h *Host) App() string      { return h.app }

// Session is nil until the frames channel opens.
func (h *Host) Session() *stream.Session {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.session
}

// Done is closed once the host has shut down.
func (h *Host) Done() <-chan struct{} { return h.done }

func (h *Host) start() {
	h.mu.Lock()
	if h.session != nil {
		h.mu.Unlock()
		return
	}
	s, errc := h.streamer.Start(h.ctx, h.app, h.tr)
	h.session = s
	h.mu.Unlock()

	h.log.Info().Str("session", s.ID()).Msg("frames channel open, streaming")
	go func() {
		err := <-errc
		switch {
		case err == nil, errors.Is(err, context.Canceled):
			h.log.Info().Uint64("frames", s.Frames()).Msg("stream ended")
		default:
			h.log.Warn().Err(err).Uint64("frames", s.Frames()).Msg("stream ended")
		}
		h.Close()
	}()
}

// HandleOffer processes the viewer's offer and sends back an answer.
func (h *Host) HandleOffer(payload json.RawMessage) error {
	var offer webrtc.SessionDescription
	if err := json.Unmarshal(payload, &offer); err != nil {
		return err
	}
	if err := h.ice.setRemote(h.pc, offer); err != nil {
		return err
	}

	answer, err := h.pc.CreateAnswer(nil)
	if err != nil {
		return err
	}
	if err := h.pc.SetLocalDescription(answer); err != nil {
		return err
	}
	answerJSON, err := json.Marshal(answer)
	if err != nil {
		return err
	}
	return h.sig.SendAnswer(h.viewerID, answerJSON)
}

// HandleICECandidate adds a remote ICE candidate.
func (h *Host) HandleICECandidate(payload json.RawMessage) error {
	return h.ice.add(h.pc, payload)
}

// Close stops the session and the peer connection.
func (h *Host) Close() {
	// pion may call back into Close while closing the connection.
	if !h.closed.CompareAndSwap(false, true) {
		return
	}
	h.cancel()
	if err := h.pc.Close(); err != nil {
		h.log.Debug().Err(err).Msg("close peer connection")
	}
	close(h.done)
}
