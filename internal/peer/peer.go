// Package peer negotiates the WebRTC connections that carry frames from
// the streamer to remote viewers over a "frames" DataChannel.
package peer

import (
	"encoding/json"
	"sync"

	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog"

	"github.com/Because66666/CanLiang/internal/logger"
)

// FramesLabel names the DataChannel the viewer opens for frames.
const FramesLabel = "frames"

// ICEServers is the default ICE server configuration.
var ICEServers = []webrtc.ICEServer{
	{URLs: []string{"stun:stun.l.google.com:19302", "stun:stun1.l.google.com:19302"}},
}

// Signaler relays session descriptions and candidates to a remote peer.
// signaling.Client implements it.
type Signaler interface {
	SendOffer(target, app string, payload json.RawMessage) error
	SendAnswer(target string, payload json.RawMessage) error
	SendICECandidate(target string, payload json.RawMessage) error
}

// API builds peer connections sharing one pion API and ICE setup.
type API struct {
	api        *webrtc.API
	iceServers []webrtc.ICEServer
	log        *logger.Logger
}

type APIOption func(*apiOptions)

type apiOptions struct {
	iceServers []webrtc.ICEServer
	loopback   bool
}

// WithICEServers replaces the default STUN servers. An empty list means
// host candidates only.
func WithICEServers(s []webrtc.ICEServer) APIOption {
	return func(o *apiOptions) { o.iceServers = s }
}

// WithLoopback lets ICE use 127.0.0.1, mostly for tests on one machine.
func WithLoopback() APIOption { return func(o *apiOptions) { o.loopback = true } }

func NewAPI(log *logger.Logger, opts ...APIOption) *API {
	if log == nil {
		log = logger.Nop()
	}
	o := apiOptions{iceServers: ICEServers}
	for _, opt := range opts {
		opt(&o)
	}

	se := webrtc.SettingEngine{}
	level := zerolog.WarnLevel
	if log.GetLevel() <= zerolog.DebugLevel {
		level = zerolog.DebugLevel
	}
	se.LoggerFactory = logger.NewPionLogger(log, level)
	if o.loopback {
		se.SetIncludeLoopbackCandidate(true)
		se.SetNetworkTypes([]webrtc.NetworkType{webrtc.NetworkTypeUDP4})
	}
	return &API{
		api:        webrtc.NewAPI(webrtc.WithSettingEngine(se)),
		iceServers: o.iceServers,
		log:        log.Component("webrtc"),
	}
}

// NewPeerConnection creates a configured PeerConnection.
func (a *API) NewPeerConnection(peerID string) (*webrtc.PeerConnection, error) {
	pc, err := a.api.NewPeerConnection(webrtc.Configuration{ICEServers: a.iceServers})
	if err != nil {
		return nil, err
	}
	pc.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		a.log.Debug().Str("peer", peerID).Str("state", state.String()).Msg("peer connection state")
	})
	return pc, nil
}

// candidates holds remote ICE candidates that arrive before the remote
// description, which pion refuses to add.
type candidates struct {
	mu        sync.Mutex
	remoteSet bool
	pending   []webrtc.ICECandidateInit
}

func (c *candidates) add(pc *webrtc.PeerConnection, payload json.RawMessage) error {
	var candidate webrtc.ICECandidateInit
	if err := json.Unmarshal(payload, &candidate); err != nil {
		return err
	}
	c.mu.Lock()
	if !c.remoteSet {
		c.pending = append(c.pending, candidate)
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()
	return pc.AddICECandidate(candidate)
}

// setRemote applies desc and flushes the buffered candidates.
func (c *candidates) setRemote(pc *webrtc.PeerConnection, desc webrtc.SessionDescription) error {
	if err := pc.SetRemoteDescription(desc); err != nil {
		return err
	}
	c.mu.Lock()
	pending := c.pending
	c.pending = nil
	c.remoteSet = true
	c.mu.Unlock()
	for _, candidate := range pending {
		if err := pc.AddICECandidate(candidate); err != nil {
			return err
		}
	}
	return nil
}

// trickle forwards local candidates to peerID.
func trickle(pc *webrtc.PeerConnection, sig Signaler, peerID string, log *logger.Logger) {
	pc.OnICECandidate(func(c *webrtc.ICECandidate) {
		if c == nil {
			return
		}
		data, err := json.Marshal(c.ToJSON())
		if err != nil {
			log.Warn().Err(err).Msg("marshal ICE candidate")
			return
		}
		if err := sig.SendICECandidate(peerID, data); err != nil {
			log.Warn().Err(err).Str("peer", peerID).Msg("send ICE candidate")
		}
	})
}
