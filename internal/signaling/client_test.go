package signaling

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// relay answers a register with registered, a list request with one host,
// and echoes offers back as answers from "streamer".
func relay(t *testing.T, got chan<- Message) *httptest.Server {
	t.Helper()
	up := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := up.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			var m Message
			if err := conn.ReadJSON(&m); err != nil {
				return
			}
			got <- m
			switch m.Type {
			case TypeRegister:
				_ = conn.WriteJSON(Message{Type: TypeRegistered, ID: m.ID})
			case TypeListHosts:
				_ = conn.WriteJSON(Message{Type: TypeHosts, List: []HostInfo{{ID: "streamer", Online: true}}})
			case TypeOffer:
				_ = conn.WriteJSON(Message{Type: TypeAnswer, From: m.Target, Payload: m.Payload})
			}
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func wsURL(s *httptest.Server) string { return "ws" + strings.TrimPrefix(s.URL, "http") }

func wait[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("timeout")
	}
	var zero T
	return zero
}

func TestClientRoundTrip(t *testing.T) {
	seen := make(chan Message, 8)
	srv := relay(t, seen)

	registered := make(chan struct{}, 1)
	hosts := make(chan []HostInfo, 1)
	answers := make(chan json.RawMessage, 1)
	c := NewClient(wsURL(srv), "viewer-1", ClientTypeViewer, Handler{
		OnRegistered:   func() { registered <- struct{}{} },
		OnHostsUpdated: func(h []HostInfo) { hosts <- h },
		OnAnswer:       func(_ string, p json.RawMessage) { answers <- p },
	}, nil)

	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer c.Close()

	reg := wait(t, seen)
	if reg.Type != TypeRegister || reg.ID != "viewer-1" || reg.ClientType != ClientTypeViewer {
		t.Fatalf("register = %+v", reg)
	}
	wait(t, registered)

	if err := c.RequestHostList(); err != nil {
		t.Fatal(err)
	}
	wait(t, seen)
	if h := wait(t, hosts); len(h) != 1 || h[0].ID != "streamer" {
		t.Fatalf("hosts = %+v", h)
	}

	if err := c.SendOffer("streamer", "yuanshen.exe", json.RawMessage(`{"sdp":"x"}`)); err != nil {
		t.Fatal(err)
	}
	offer := wait(t, seen)
	if offer.App != "yuanshen.exe" || offer.Target != "streamer" {
		t.Fatalf("offer = %+v", offer)
	}
	if p := wait(t, answers); string(p) != `{"sdp":"x"}` {
		t.Fatalf("answer payload = %s", p)
	}
}

func TestClientDispatchOffer(t *testing.T) {
	var from, app string
	c := NewClient("", "streamer", ClientTypeHost, Handler{
		OnOffer: func(f, a string, _ json.RawMessage) { from, app = f, a },
	}, nil)
	c.dispatch(Message{Type: TypeOffer, From: "viewer-2", App: "桌面.exe"})
	if from != "viewer-2" || app != "桌面.exe" {
		t.Fatalf("got %q %q", from, app)
	}
}

func TestClientSendBeforeConnect(t *testing.T) {
	c := NewClient("ws://127.0.0.1:1", "x", ClientTypeViewer, Handler{}, nil)
	if err := c.RequestHostList(); err != ErrNotConnected {
		t.Fatalf("err = %v", err)
	}
}

func TestClientCloseIdempotent(t *testing.T) {
	seen := make(chan Message, 8)
	srv := relay(t, seen)
	c := NewClient(wsURL(srv), "x", ClientTypeHost, Handler{}, nil)
	if err := c.Connect(context.Background()); err != nil {
		t.Fatal(err)
	}
	c.Close()
	c.Close()
	select {
	case <-c.Done():
	default:
		t.Fatal("done not closed")
	}
	if err := c.SendAnswer("v", nil); err != ErrNotConnected {
		t.Fatalf("err = %v", err)
	}
}
