package peer

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"testing"
	"time"

	"github.com/pion/webrtc/v4"

	"github.com/Because66666/CanLiang/internal/capture"
	"github.com/Because66666/CanLiang/internal/encoder"
	"github.com/Because66666/CanLiang/internal/locator"
	"github.com/Because66666/CanLiang/internal/stream"
	"github.com/Because66666/CanLiang/internal/surface/surfacetest"
)

// relay delivers signaling messages in order on one goroutine, like a
// single websocket would.
type relay struct {
	q      chan func()
	hub    *Hub
	viewer *Viewer
	errs   chan error
}

func newRelay() *relay {
	r := &relay{q: make(chan func(), 256), errs: make(chan error, 256)}
	go func() {
		for fn := range r.q {
			fn()
		}
	}()
	return r
}

func (r *relay) report(err error) {
	if err != nil {
		r.errs <- err
	}
}

// viewerSide is what the viewer sends through.
type viewerSide struct{ *relay }

func (s viewerSide) SendOffer(_, app string, p json.RawMessage) error {
	s.q <- func() { s.report(s.hub.HandleOffer("viewer-1", app, p)) }
	return nil
}

func (s viewerSide) SendAnswer(string, json.RawMessage) error { return nil }

func (s viewerSide) SendICECandidate(_ string, p json.RawMessage) error {
	s.q <- func() { s.report(s.hub.HandleICECandidate("viewer-1", p)) }
	return nil
}

type hostSide struct{ *relay }

func (s hostSide) SendOffer(string, string, json.RawMessage) error { return nil }

func (s hostSide) SendAnswer(_ string, p json.RawMessage) error {
	s.q <- func() { s.report(s.viewer.HandleAnswer(p)) }
	return nil
}

func (s hostSide) SendICECandidate(_ string, p json.RawMessage) error {
	s.q <- func() { s.report(s.viewer.HandleICECandidate(p)) }
	return nil
}

func newStreamer() *stream.Publisher {
	p := surfacetest.New()
	p.Add(0x10, "notepad.exe", image.Rect(0, 0, 48, 32))
	return stream.NewPublisher(
		locator.New(p),
		capture.New(p),
		encoder.NewJPEGEncoder(encoder.DefaultQuality),
		stream.WithPublisherFPS(60),
	)
}

func TestViewerReceivesFrames(t *testing.T) {
	if testing.Short() {
		t.Skip("opens UDP sockets")
	}
	api := NewAPI(nil, WithICEServers(nil), WithLoopback())
	pub := newStreamer()
	r := newRelay()
	r.hub = NewHub(context.Background(), api, hostSide{r}, pub, func() string { return "notepad.exe" })
	defer r.hub.Close()

	v, err := NewViewer(api, viewerSide{r}, "streamer", "")
	if err != nil {
		t.Fatal(err)
	}
	r.viewer = v
	defer v.Close()

	frames := make(chan []byte, 8)
	v.Transport().OnFrame(func(data []byte) {
		select {
		case frames <- data:
		default:
		}
	})

	if err := v.Connect(); err != nil {
		t.Fatal(err)
	}

	select {
	case data := <-frames:
		if !bytes.HasPrefix(data, []byte{0xFF, 0xD8}) {
			t.Errorf("frame does not start with SOI: % x", data[:4])
		}
	case err := <-r.errs:
		t.Fatalf("signaling: %v", err)
	case <-time.After(15 * time.Second):
		t.Fatal("no frame received")
	}

	h := r.hub.Host("viewer-1")
	if h == nil || h.App() != "notepad.exe" {
		t.Fatalf("host = %+v", h)
	}
	if s := h.Session(); s == nil || s.Target() != "notepad.exe" {
		t.Fatalf("session = %+v", s)
	}
	if n := len(pub.Sessions().Live("notepad.exe")); n != 1 {
		t.Errorf("%d live sessions, want 1", n)
	}

	v.Close()
	select {
	case <-h.Done():
	case <-time.After(15 * time.Second):
		t.Fatal("host did not notice the viewer leaving")
	}
	deadline := time.Now().Add(5 * time.Second)
	for r.hub.Len() != 0 || pub.Sessions().Len() != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("hub has %d hosts, publisher %d sessions", r.hub.Len(), pub.Sessions().Len())
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestHubRejectsOfferWithoutApp(t *testing.T) {
	hub := NewHub(context.Background(), NewAPI(nil, WithICEServers(nil)), hostSide{newRelay()}, newStreamer(), nil)
	if err := hub.HandleOffer("v", "", json.RawMessage(`{}`)); err == nil {
		t.Fatal("expected error")
	}
	if hub.Len() != 0 {
		t.Errorf("Len() = %d", hub.Len())
	}
}

func TestHubBadOfferClosesHost(t *testing.T) {
	hub := NewHub(context.Background(), NewAPI(nil, WithICEServers(nil)), hostSide{newRelay()}, newStreamer(), nil)
	if err := hub.HandleOffer("v", "notepad.exe", json.RawMessage(`not json`)); err == nil {
		t.Fatal("expected error")
	}
	deadline := time.Now().Add(2 * time.Second)
	for hub.Len() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("host not removed")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestHubHoldsEarlyCandidates(t *testing.T) {
	hub := NewHub(context.Background(), NewAPI(nil, WithICEServers(nil)), hostSide{newRelay()}, newStreamer(), nil)
	c, _ := json.Marshal(webrtc.ICECandidateInit{Candidate: "candidate:1 1 udp 1 127.0.0.1 9 typ host"})
	for i := 0; i < maxEarlyCandidates; i++ {
		if err := hub.HandleICECandidate("v", c); err != nil {
			t.Fatalf("candidate %d: %v", i, err)
		}
	}
	if err := hub.HandleICECandidate("v", c); err == nil {
		t.Fatal("expected error once the early buffer is full")
	}
}

func TestCandidatesBufferUntilRemote(t *testing.T) {
	var c candidates
	payload, _ := json.Marshal(webrtc.ICECandidateInit{Candidate: "candidate:1 1 udp 1 127.0.0.1 9 typ host"})
	// nil pc is never touched while the remote description is unset
	if err := c.add(nil, payload); err != nil {
		t.Fatal(err)
	}
	if len(c.pending) != 1 {
		t.Fatalf("pending = %d", len(c.pending))
	}
	if err := c.add(nil, json.RawMessage(`{`)); err == nil {
		t.Fatal("expected unmarshal error")
	}
}
