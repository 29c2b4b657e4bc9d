package peer

import (
	"encoding/json"
	"sync/atomic"

	"github.com/pion/webrtc/v4"

	"github.com/Because66666/CanLiang/internal/logger"
	"github.com/Because66666/CanLiang/internal/transport"
)

// Viewer is the receiving side. It opens the frames channel itself so
// the offer carries an SCTP section.
type Viewer struct {
	pc     *webrtc.PeerConnection
	sig    Signaler
	tr     *transport.DataChannelTransport
	hostID string
	app    string
	log    *logger.Logger
	ice    candidates

	closed atomic.Bool
	done   chan struct{}
}

// NewViewer prepares a connection to hostID asking for app.
func NewViewer(api *API, sig Signaler, hostID, app string) (*Viewer, error) {
	pc, err := api.NewPeerConnection(hostID)
	if err != nil {
		return nil, err
	}

	ordered := false
	maxRetransmits := uint16(0)
	dc, err := pc.CreateDataChannel(FramesLabel, &webrtc.DataChannelInit{
		Ordered:        &ordered,
		MaxRetransmits: &maxRetransmits,
	})
	if err != nil {
		_ = pc.Close()
		return nil, err
	}

	v := &Viewer{
		pc:     pc,
		sig:    sig,
		tr:     transport.NewDataChannelTransport(dc),
		hostID: hostID,
		app:    app,
		log:    api.log.Extend(api.log.With().Str("host", hostID)),
		done:   make(chan struct{}),
	}
	dc.OnOpen(func() { v.log.Info().Msg("frames data channel open") })
	dc.OnClose(v.Close)
	trickle(pc, sig, hostID, v.log)

	pc.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		switch state {
		case webrtc.PeerConnectionStateFailed, webrtc.PeerConnectionStateClosed:
			v.Close()
		}
	})
	return v, nil
}

// Transport delivers reassembled frames.
func (v *Viewer) Transport() transport.FrameReceiver { return v.tr }

// Connect initiates the WebRTC connection by creating and sending an offer.
func (v *Viewer) Connect() error {
	offer, err := v.pc.CreateOffer(nil)
	if err != nil {
		return err
	}
	if err := v.pc.SetLocalDescription(offer); err != nil {
		return err
	}
	offerJSON, err := json.Marshal(offer)
	if err != nil {
		return err
	}
	return v.sig.SendOffer(v.hostID, v.app, offerJSON)
}

// HandleAnswer processes an incoming SDP answer.
func (v *Viewer) HandleAnswer(payload json.RawMessage) error {
	var answer webrtc.SessionDescription
	if err := json.Unmarshal(payload, &answer); err != nil {
		return err
	}
	return v.ice.setRemote(v.pc, answer)
}

// HandleICECandidate adds a remote ICE candidate.
func (v *Viewer) HandleICECandidate(payload json.RawMessage) error {
	return v.ice.add(v.pc, payload)
}

func (v *Viewer) Done() <-chan struct{} { return v.done }

// Close shuts down the peer connection.
func (v *Viewer) Close() {
	if !v.closed.CompareAndSwap(false, true) {
		return
	}
	_ = v.pc.Close()
	close(v.done)
}
